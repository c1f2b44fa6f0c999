package testutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"salesdash/pkg/contracts/domain"
)

// SalesHeader is the header row of the supermarket sales export.
const SalesHeader = "Invoice ID,Branch,City,Customer type,Gender,Product line,Unit price,Quantity,Tax 5%,Total,Date,Time,Payment,cogs,gross margin percentage,gross income,Rating"

// SampleCSV is a small export in the original column layout. Row 4 has an
// unparseable date and row 6 an empty rating.
const SampleCSV = SalesHeader + `
750-67-8428,A,Yangon,Member,Female,Health and beauty,74.69,7,26.1415,548.9715,1/5/2019,13:08,Ewallet,522.83,4.761904762,26.1415,9.1
226-31-3081,C,Naypyitaw,Normal,Female,Electronic accessories,15.28,5,3.82,80.22,3/8/2019,10:29,Cash,76.4,4.761904762,3.82,9.6
631-41-3108,A,Yangon,Normal,Male,Home and lifestyle,46.33,7,16.2155,340.5255,3/3/2019,13:23,Credit card,324.31,4.761904762,16.2155,7.4
123-19-1176,A,Yangon,Member,Male,Health and beauty,58.22,8,23.288,489.048,not a date,20:33,Ewallet,465.76,4.761904762,23.288,8.4
373-73-7910,B,Mandalay,Normal,Male,Sports and travel,86.31,7,30.2085,634.3785,2/8/2019,10:37,Ewallet,604.17,4.761904762,30.2085,5.3
699-14-3026,C,Naypyitaw,Normal,Male,Electronic accessories,85.39,7,29.8865,627.6165,3/8/2019,18:30,Ewallet,597.73,4.761904762,29.8865,
`

// WriteFile writes content into a fresh temp dir and returns its path.
func WriteFile(t *testing.T, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("write fixture %s: %v", name, err)
	}
	return path
}

// WriteSampleCSV writes SampleCSV and returns its path.
func WriteSampleCSV(t *testing.T) string {
	t.Helper()
	return WriteFile(t, "supermarket_sales.csv", []byte(SampleCSV))
}

// Day returns a UTC calendar day pointer.
func Day(year int, month time.Month, day int) *time.Time {
	d := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	return &d
}

// Rating returns a pointer to v.
func Rating(v float64) *float64 {
	return &v
}

// Dec parses a decimal literal, panicking on malformed input.
func Dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// Sale is a compact record builder for tests.
func Sale(branch, line, customer, payment string, date *time.Time, total string, qty int64, rating *float64) domain.SaleRecord {
	t := Dec(total)
	return domain.SaleRecord{
		Branch:       branch,
		ProductLine:  line,
		CustomerType: customer,
		Payment:      payment,
		Date:         date,
		Quantity:     qty,
		Total:        t,
		GrossIncome:  t.Div(decimal.NewFromInt(21)).Round(4),
		Rating:       rating,
	}
}

// FourRowTable is two branches with totals A:10,20 and B:30,40.
func FourRowTable() *domain.SalesTable {
	d := Day(2023, time.January, 1)
	return domain.NewSalesTable("fixture", []domain.SaleRecord{
		Sale("A", "Food", "Member", "Cash", d, "10", 1, Rating(7)),
		Sale("A", "Food", "Member", "Cash", d, "20", 2, Rating(8)),
		Sale("B", "Food", "Member", "Cash", d, "30", 3, Rating(9)),
		Sale("B", "Food", "Member", "Cash", d, "40", 4, Rating(10)),
	})
}

// CSV joins rows into a delimited document with the standard header.
func CSV(rows ...string) string {
	return SalesHeader + "\n" + strings.Join(rows, "\n") + "\n"
}
