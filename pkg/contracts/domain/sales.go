package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// SaleRecord is one transaction row of the sales table.
type SaleRecord struct {
	InvoiceID    string          `json:"invoice_id,omitempty"`
	Branch       string          `json:"branch"`
	City         string          `json:"city,omitempty"`
	CustomerType string          `json:"customer_type"`
	Gender       string          `json:"gender,omitempty"`
	ProductLine  string          `json:"product_line"`
	Payment      string          `json:"payment"`
	Date         *time.Time      `json:"date"` // nil when the source value did not parse
	Quantity     int64           `json:"quantity"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	Total        decimal.Decimal `json:"total"`
	GrossIncome  decimal.Decimal `json:"gross_income"`
	Rating       *float64        `json:"rating"` // nil when the cell was empty
}

// HasDate reports whether the record carries a valid calendar date.
func (r SaleRecord) HasDate() bool {
	return r.Date != nil
}

// SalesTable is an immutable, ordered collection of sale records.
// Constructors copy their input so that no caller can alter a table after
// it has been handed out.
type SalesTable struct {
	source  string
	records []SaleRecord
}

// NewSalesTable builds a table from records, copying the slice.
func NewSalesTable(source string, records []SaleRecord) *SalesTable {
	cp := make([]SaleRecord, len(records))
	copy(cp, records)
	return &SalesTable{source: source, records: cp}
}

// Source is the path the table was loaded from, if any.
func (t *SalesTable) Source() string {
	if t == nil {
		return ""
	}
	return t.source
}

// Len returns the number of rows.
func (t *SalesTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.records)
}

// At returns the i-th record by value.
func (t *SalesTable) At(i int) SaleRecord {
	return t.records[i]
}

// Records returns a copy of all rows.
func (t *SalesTable) Records() []SaleRecord {
	if t == nil {
		return nil
	}
	cp := make([]SaleRecord, len(t.records))
	copy(cp, t.records)
	return cp
}

// Each calls fn for every row in order with a copy of the row.
func (t *SalesTable) Each(fn func(i int, r *SaleRecord)) {
	if t == nil {
		return
	}
	for i := range t.records {
		rec := t.records[i]
		fn(i, &rec)
	}
}

// FilterSelection is the set of constraints chosen by the user.
// An empty categorical set excludes every row; it never means "all".
type FilterSelection struct {
	Branches      []string  `json:"branches"`
	ProductLines  []string  `json:"product_lines"`
	CustomerTypes []string  `json:"customer_types"`
	Start         time.Time `json:"start"`
	End           time.Time `json:"end"`
}

// SelectionDomain lists every value a selection can take for a table.
type SelectionDomain struct {
	Branches      []string   `json:"branches"`
	ProductLines  []string   `json:"product_lines"`
	CustomerTypes []string   `json:"customer_types"`
	Payments      []string   `json:"payments"`
	MinDate       *time.Time `json:"min_date"`
	MaxDate       *time.Time `json:"max_date"`
	Rows          int        `json:"rows"`
	NullDates     int        `json:"null_dates"`
}

// SummaryMetrics are the scalar reductions of a filtered view.
type SummaryMetrics struct {
	TotalSales    decimal.Decimal `json:"total_sales"`
	GrossIncome   decimal.Decimal `json:"gross_income"`
	TotalQuantity int64           `json:"total_quantity"`
	// AverageRating is nil when no row in the view has a rating.
	AverageRating *float64 `json:"average_rating"`
	RowCount      int      `json:"row_count"`
}

// AggregatePoint is one key/value pair of an aggregate table.
type AggregatePoint struct {
	Key   string          `json:"key"`
	Value decimal.Decimal `json:"value"`
}

// AggregateTable maps a grouping key to one derived value.
type AggregateTable struct {
	Name      string           `json:"name"`
	Title     string           `json:"title"`
	Dimension string           `json:"dimension"`
	Measure   string           `json:"measure"`
	Chart     string           `json:"chart"`
	Points    []AggregatePoint `json:"points"`
}

// Len returns the number of groups.
func (t AggregateTable) Len() int {
	return len(t.Points)
}

// Sum adds up every value in the table.
func (t AggregateTable) Sum() decimal.Decimal {
	sum := decimal.Zero
	for _, p := range t.Points {
		sum = sum.Add(p.Value)
	}
	return sum
}

// Lookup returns the value for key.
func (t AggregateTable) Lookup(key string) (decimal.Decimal, bool) {
	for _, p := range t.Points {
		if p.Key == key {
			return p.Value, true
		}
	}
	return decimal.Zero, false
}

// Keys returns the group keys in table order.
func (t AggregateTable) Keys() []string {
	keys := make([]string, len(t.Points))
	for i, p := range t.Points {
		keys[i] = p.Key
	}
	return keys
}

// Dashboard is the output of one render call.
type Dashboard struct {
	Selection   FilterSelection  `json:"selection"`
	Metrics     SummaryMetrics   `json:"metrics"`
	Tables      []AggregateTable `json:"tables"`
	GeneratedAt time.Time        `json:"generated_at"`
}

// Table returns the aggregate table with the given name.
func (d *Dashboard) Table(name string) (AggregateTable, bool) {
	for _, t := range d.Tables {
		if t.Name == name {
			return t, true
		}
	}
	return AggregateTable{}, false
}
