package dataprocessing

import (
	"context"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salesdash/internal/shared/testutil"
	"salesdash/pkg/contracts/domain"
)

func newTestSummarizer(t *testing.T) *Summarizer {
	logger, _ := testutil.NewTestLogger(t)
	return NewSummarizer(logger)
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, testutil.Dec(want).Equal(got), "want %s got %s", want, got.String())
}

func TestRender_FourRowBranchA(t *testing.T) {
	table := testutil.FourRowTable()
	sel := DefaultSelection(table)
	sel.Branches = []string{"A"}

	dash, err := newTestSummarizer(t).Render(context.Background(), table, sel)
	require.NoError(t, err)

	assertDecimal(t, "30", dash.Metrics.TotalSales)
	assert.Equal(t, int64(3), dash.Metrics.TotalQuantity)
	assert.Equal(t, 2, dash.Metrics.RowCount)

	byBranch, ok := dash.Table(TableSalesByBranch)
	require.True(t, ok)
	assert.Equal(t, []string{"A"}, byBranch.Keys(), "B absent")
	v, _ := byBranch.Lookup("A")
	assertDecimal(t, "30", v)
}

func TestSummarize_EmptyView(t *testing.T) {
	m := Summarize(domain.NewSalesTable("empty", nil))

	assert.True(t, m.TotalSales.IsZero())
	assert.True(t, m.GrossIncome.IsZero())
	assert.Equal(t, int64(0), m.TotalQuantity)
	assert.Nil(t, m.AverageRating, "empty mean is the nil sentinel, not zero")
	assert.Equal(t, 0, m.RowCount)
}

func TestSummarize_RatingsSkipMissing(t *testing.T) {
	d := testutil.Day(2019, time.January, 1)
	view := domain.NewSalesTable("t", []domain.SaleRecord{
		testutil.Sale("A", "Food", "Member", "Cash", d, "10.10", 1, testutil.Rating(9.1)),
		testutil.Sale("A", "Food", "Member", "Cash", d, "20.20", 2, testutil.Rating(9.6)),
		testutil.Sale("A", "Food", "Member", "Cash", d, "0.01", 3, nil),
	})

	m := Summarize(view)
	assertDecimal(t, "30.31", m.TotalSales)
	assert.Equal(t, int64(6), m.TotalQuantity)
	require.NotNil(t, m.AverageRating)
	assert.InDelta(t, 9.35, *m.AverageRating, 1e-9)
}

func TestSummarize_AllRatingsMissing(t *testing.T) {
	view := domain.NewSalesTable("t", []domain.SaleRecord{
		testutil.Sale("A", "Food", "Member", "Cash", nil, "5", 1, nil),
	})
	m := Summarize(view)
	assert.Nil(t, m.AverageRating)
	assertDecimal(t, "5", m.TotalSales)
}

func TestRender_NonFiniteRatingsExcluded(t *testing.T) {
	d := testutil.Day(2019, time.January, 1)
	table := domain.NewSalesTable("t", []domain.SaleRecord{
		testutil.Sale("A", "Food", "Member", "Cash", d, "10", 1, testutil.Rating(6)),
		testutil.Sale("A", "Food", "Member", "Cash", d, "10", 1, testutil.Rating(math.NaN())),
		testutil.Sale("A", "Home", "Member", "Cash", d, "10", 1, testutil.Rating(math.Inf(1))),
		testutil.Sale("A", "Home", "Member", "Cash", d, "10", 1, testutil.Rating(math.Inf(-1))),
	})

	dash, err := newTestSummarizer(t).Render(context.Background(), table, DefaultSelection(table))
	require.NoError(t, err)

	require.NotNil(t, dash.Metrics.AverageRating)
	assert.Equal(t, 6.0, *dash.Metrics.AverageRating)
	assertDecimal(t, "40", dash.Metrics.TotalSales)

	rating, ok := dash.Table(TableRatingByProductLine)
	require.True(t, ok)
	assert.Equal(t, []string{"Food"}, rating.Keys(), "Home has only non-finite ratings")
	food, _ := rating.Lookup("Food")
	assertDecimal(t, "6", food)
}

func TestAggregate_TablesAndOrder(t *testing.T) {
	view := domain.NewSalesTable("t", []domain.SaleRecord{
		testutil.Sale("C", "Sports", "Normal", "Ewallet", testutil.Day(2019, time.March, 2), "5", 1, testutil.Rating(5)),
		testutil.Sale("A", "Food", "Member", "Cash", testutil.Day(2019, time.January, 5), "10", 1, testutil.Rating(8)),
		testutil.Sale("B", "Food", "Normal", "Cash", testutil.Day(2019, time.January, 5), "20", 1, testutil.Rating(6)),
		testutil.Sale("A", "Home", "Member", "Credit card", nil, "40", 1, nil),
	})

	tables, err := newTestSummarizer(t).Aggregate(context.Background(), view)
	require.NoError(t, err)
	require.Len(t, tables, 6)

	names := make([]string, len(tables))
	for i, tb := range tables {
		names[i] = tb.Name
	}
	assert.Equal(t, TableNames(), names)

	dash := &domain.Dashboard{Tables: tables}

	byBranch, _ := dash.Table(TableSalesByBranch)
	assert.Equal(t, []string{"A", "B", "C"}, byBranch.Keys())
	assert.Equal(t, "Total Sales by Branch", byBranch.Title)
	assert.Equal(t, MeasureSumTotal, byBranch.Measure)
	a, _ := byBranch.Lookup("A")
	assertDecimal(t, "50", a)

	byLine, _ := dash.Table(TableSalesByProductLine)
	assert.Equal(t, []string{"Food", "Home", "Sports"}, byLine.Keys())

	rating, _ := dash.Table(TableRatingByProductLine)
	assert.Equal(t, MeasureMeanRating, rating.Measure)
	assert.Equal(t, []string{"Food", "Sports"}, rating.Keys(), "Home has no ratings")
	food, _ := rating.Lookup("Food")
	assertDecimal(t, "7", food)

	byCustomer, _ := dash.Table(TableSalesByCustomerType)
	assert.Equal(t, []string{"Member", "Normal"}, byCustomer.Keys())

	byPayment, _ := dash.Table(TableSalesByPayment)
	assert.Equal(t, []string{"Cash", "Credit card", "Ewallet"}, byPayment.Keys())
	assert.Equal(t, "pie", byPayment.Chart)

	trend, _ := dash.Table(TableSalesTrend)
	assert.Equal(t, []string{"2019-01-05", "2019-03-02"}, trend.Keys(), "chronological, null date skipped")
	jan, _ := trend.Lookup("2019-01-05")
	assertDecimal(t, "30", jan)
	assert.Equal(t, "line", trend.Chart)
}

func TestAggregate_EmptyView(t *testing.T) {
	tables, err := newTestSummarizer(t).Aggregate(context.Background(), domain.NewSalesTable("empty", nil))
	require.NoError(t, err)
	require.Len(t, tables, 6)
	for _, tb := range tables {
		assert.Equal(t, 0, tb.Len(), tb.Name)
		assert.NotNil(t, tb.Points, "empty tables encode as [] not null")
	}
}

func TestAggregate_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newTestSummarizer(t).Aggregate(ctx, testutil.FourRowTable())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRender_ConsistencyAcrossSelections(t *testing.T) {
	table := randomTable(rand.New(rand.NewSource(99)), 400)
	rng := rand.New(rand.NewSource(3))
	s := newTestSummarizer(t)

	for i := 0; i < 40; i++ {
		sel := randomSelection(rng, table)
		dash, err := s.Render(context.Background(), table, sel)
		require.NoError(t, err)

		total := dash.Metrics.TotalSales
		for _, name := range []string{TableSalesByBranch, TableSalesByProductLine, TableSalesByCustomerType, TableSalesByPayment, TableSalesTrend} {
			tb, ok := dash.Table(name)
			require.True(t, ok)
			assert.True(t, total.Equal(tb.Sum()), "%s sums to total_sales", name)
		}

		view := Filter(table, sel)
		byBranch, _ := dash.Table(TableSalesByBranch)
		present := map[string]bool{}
		for _, r := range view.Records() {
			present[r.Branch] = true
		}
		assert.Len(t, byBranch.Points, len(present), "only keys present in the view")
	}
}

func TestRender_EmptySelection(t *testing.T) {
	table := testutil.FourRowTable()
	dash, err := newTestSummarizer(t).Render(context.Background(), table, domain.FilterSelection{})
	require.NoError(t, err)

	assert.True(t, dash.Metrics.TotalSales.IsZero())
	assert.Nil(t, dash.Metrics.AverageRating)
	for _, tb := range dash.Tables {
		assert.Empty(t, tb.Points)
	}
	assert.False(t, dash.GeneratedAt.IsZero())
}
