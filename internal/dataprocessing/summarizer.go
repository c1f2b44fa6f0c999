package dataprocessing

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"salesdash/pkg/contracts/domain"
)

// Names of the aggregate tables produced for every render.
const (
	TableSalesByBranch       = "sales_by_branch"
	TableSalesByProductLine  = "sales_by_product_line"
	TableRatingByProductLine = "rating_by_product_line"
	TableSalesByCustomerType = "sales_by_customer_type"
	TableSalesByPayment      = "sales_by_payment"
	TableSalesTrend          = "sales_trend"
)

// Measures
const (
	MeasureSumTotal   = "sum(Total)"
	MeasureMeanRating = "mean(Rating)"
)

// TrendDateFormat is the key format of the sales trend table.
const TrendDateFormat = "2006-01-02"

type measure int

const (
	sumTotal measure = iota
	meanRating
)

// tableSpec describes one grouped reduction over a view.
type tableSpec struct {
	name, title, dimension, chart string
	measure                       measure
	key                           func(r *domain.SaleRecord) (string, bool)
}

func categorical(get func(r *domain.SaleRecord) string) func(r *domain.SaleRecord) (string, bool) {
	return func(r *domain.SaleRecord) (string, bool) { return get(r), true }
}

func byDate(r *domain.SaleRecord) (string, bool) {
	if r.Date == nil {
		return "", false
	}
	return r.Date.Format(TrendDateFormat), true
}

var tableSpecs = []tableSpec{
	{TableSalesByBranch, "Total Sales by Branch", ColBranch, "bar", sumTotal,
		categorical(func(r *domain.SaleRecord) string { return r.Branch })},
	{TableSalesByProductLine, "Sales by Product Line", ColProductLine, "horizontal_bar", sumTotal,
		categorical(func(r *domain.SaleRecord) string { return r.ProductLine })},
	{TableRatingByProductLine, "Average Rating by Product Line", ColProductLine, "bar", meanRating,
		categorical(func(r *domain.SaleRecord) string { return r.ProductLine })},
	{TableSalesByCustomerType, "Sales Distribution by Customer Type", ColCustomerType, "pie", sumTotal,
		categorical(func(r *domain.SaleRecord) string { return r.CustomerType })},
	{TableSalesByPayment, "Sales Distribution by Payment Method", ColPayment, "pie", sumTotal,
		categorical(func(r *domain.SaleRecord) string { return r.Payment })},
	{TableSalesTrend, "Daily Sales Trend", ColDate, "line", sumTotal, byDate},
}

// TableNames lists the aggregate tables in render order.
func TableNames() []string {
	names := make([]string, len(tableSpecs))
	for i, s := range tableSpecs {
		names[i] = s.name
	}
	return names
}

// Summarize computes the four summary metrics of view. Sums over an empty
// view are zero; the average rating is nil when no row has a rating.
func Summarize(view *domain.SalesTable) domain.SummaryMetrics {
	m := domain.SummaryMetrics{
		TotalSales:  decimal.Zero,
		GrossIncome: decimal.Zero,
		RowCount:    view.Len(),
	}

	ratingSum, ratingN := decimal.Zero, int64(0)
	view.Each(func(_ int, r *domain.SaleRecord) {
		m.TotalSales = m.TotalSales.Add(r.Total)
		m.GrossIncome = m.GrossIncome.Add(r.GrossIncome)
		m.TotalQuantity += r.Quantity
		if v, ok := rating(r); ok {
			ratingSum = ratingSum.Add(v)
			ratingN++
		}
	})

	if ratingN > 0 {
		avg := ratingSum.Div(decimal.NewFromInt(ratingN)).InexactFloat64()
		m.AverageRating = &avg
	}
	return m
}

// rating reports r's rating as a decimal. Absent and non-finite ratings
// are skipped.
func rating(r *domain.SaleRecord) (decimal.Decimal, bool) {
	if r.Rating == nil || math.IsNaN(*r.Rating) || math.IsInf(*r.Rating, 0) {
		return decimal.Zero, false
	}
	return decimal.NewFromFloat(*r.Rating), true
}

// accumulator collects one group's partial reduction.
type accumulator struct {
	sum     decimal.Decimal
	ratings decimal.Decimal
	rated   int64
}

// aggregate groups view by spec.key and reduces each group. Keys come out
// in natural order: lexical for categories, chronological for dates.
func aggregate(view *domain.SalesTable, spec tableSpec) domain.AggregateTable {
	groups := make(map[string]*accumulator)
	view.Each(func(_ int, r *domain.SaleRecord) {
		key, ok := spec.key(r)
		if !ok {
			return
		}
		acc, exists := groups[key]
		if !exists {
			acc = &accumulator{sum: decimal.Zero, ratings: decimal.Zero}
			groups[key] = acc
		}
		acc.sum = acc.sum.Add(r.Total)
		if v, ok := rating(r); ok {
			acc.ratings = acc.ratings.Add(v)
			acc.rated++
		}
	})

	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	table := domain.AggregateTable{
		Name:      spec.name,
		Title:     spec.title,
		Dimension: spec.dimension,
		Chart:     spec.chart,
		Points:    make([]domain.AggregatePoint, 0, len(keys)),
	}

	switch spec.measure {
	case meanRating:
		table.Measure = MeasureMeanRating
		for _, k := range keys {
			acc := groups[k]
			// a group whose rows carry no rating has no defined mean
			if acc.rated == 0 {
				continue
			}
			table.Points = append(table.Points, domain.AggregatePoint{
				Key:   k,
				Value: acc.ratings.Div(decimal.NewFromInt(acc.rated)),
			})
		}
	default:
		table.Measure = MeasureSumTotal
		for _, k := range keys {
			table.Points = append(table.Points, domain.AggregatePoint{Key: k, Value: groups[k].sum})
		}
	}
	return table
}

// Summarizer computes metrics and aggregate tables for filtered views.
type Summarizer struct {
	logger *slog.Logger
}

// NewSummarizer creates a summarizer. A nil logger uses slog.Default.
func NewSummarizer(logger *slog.Logger) *Summarizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Summarizer{logger: logger.With(slog.String("component", "summarizer"))}
}

// Aggregate builds every aggregate table from view. Each table is computed
// directly from the view, never from another table, so the groups run
// concurrently. The result order is fixed and matches TableNames.
func (s *Summarizer) Aggregate(ctx context.Context, view *domain.SalesTable) ([]domain.AggregateTable, error) {
	tables := make([]domain.AggregateTable, len(tableSpecs))

	g, ctx := errgroup.WithContext(ctx)
	for i, spec := range tableSpecs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			tables[i] = aggregate(view, spec)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return tables, nil
}

// Render filters table with sel and reduces the resulting view.
func (s *Summarizer) Render(ctx context.Context, table *domain.SalesTable, sel domain.FilterSelection) (*domain.Dashboard, error) {
	start := time.Now()
	view := Filter(table, sel)

	tables, err := s.Aggregate(ctx, view)
	if err != nil {
		return nil, err
	}

	dashboard := &domain.Dashboard{
		Selection:   sel,
		Metrics:     Summarize(view),
		Tables:      tables,
		GeneratedAt: time.Now().UTC(),
	}

	s.logger.DebugContext(ctx, "dashboard rendered",
		slog.Int("table_rows", table.Len()),
		slog.Int("view_rows", view.Len()),
		slog.Duration("duration", time.Since(start)))

	return dashboard, nil
}
