package exporter

import (
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	api "salesdash/pkg/contracts/api/v1"
	"salesdash/pkg/contracts/domain"
)

// NotAvailable is shown for a metric with no defined value.
const NotAvailable = "N/A"

var printer = message.NewPrinter(language.English)

// FormatCurrency renders an amount as dollars with thousands separators,
// e.g. $1,234.56.
func FormatCurrency(d decimal.Decimal) string {
	d = d.Round(2)
	if d.IsNegative() {
		return "-" + printer.Sprintf("$%.2f", d.Neg().InexactFloat64())
	}
	return printer.Sprintf("$%.2f", d.InexactFloat64())
}

// FormatQuantity renders a unit count as a plain integer, e.g. 5510.
func FormatQuantity(q int64) string {
	return strconv.FormatInt(q, 10)
}

// FormatRating renders a mean rating with two decimals, or N/A when absent.
func FormatRating(r *float64) string {
	if r == nil {
		return NotAvailable
	}
	return fmt.Sprintf("%.2f", *r)
}

// formatRaw renders an exact decimal for machine-readable output.
func formatRaw(d decimal.Decimal) string {
	return d.String()
}

// formatRatingRaw renders a rating for machine-readable output; absent is empty.
func formatRatingRaw(r *float64) string {
	if r == nil {
		return ""
	}
	return decimal.NewFromFloat(*r).String()
}

// Display formats the summary metrics for the page header.
func Display(m domain.SummaryMetrics) *api.MetricsDisplay {
	return &api.MetricsDisplay{
		TotalSales:    FormatCurrency(m.TotalSales),
		GrossIncome:   FormatCurrency(m.GrossIncome),
		TotalQuantity: FormatQuantity(m.TotalQuantity),
		AverageRating: FormatRating(m.AverageRating),
	}
}
