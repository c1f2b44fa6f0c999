package exporter

import (
	"bytes"
	"context"
	"encoding/csv"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"salesdash/internal/dataprocessing"
	"salesdash/internal/shared/testutil"
	"salesdash/pkg/contracts/domain"
)

func renderFixture(t *testing.T, branches ...string) *domain.Dashboard {
	t.Helper()
	table := testutil.FourRowTable()
	sel := dataprocessing.DefaultSelection(table)
	if branches != nil {
		sel.Branches = branches
	}
	dash, err := dataprocessing.NewSummarizer(nil).Render(context.Background(), table, sel)
	require.NoError(t, err)
	return dash
}

func readCSV(t *testing.T, data []byte) [][]string {
	t.Helper()
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	require.NoError(t, err)
	return records
}

func TestCSVWriter_Write(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewCSVWriter(nil).Write(&buf, renderFixture(t), Options{}))

	records := readCSV(t, buf.Bytes())
	assert.Equal(t, []string{"metric", "value"}, records[0])
	assert.Equal(t, []string{LabelTotalSales, "100"}, records[1])
	assert.Equal(t, []string{LabelTotalQuantity, "10"}, records[3])
	assert.Equal(t, []string{LabelAverageRating, "8.5"}, records[4])
	assert.Equal(t, []string{LabelRows, "4"}, records[5])

	// blank lines are skipped by the reader, so the first table starts next
	assert.Equal(t, []string{"Total Sales by Branch"}, records[6])
	assert.Equal(t, []string{dataprocessing.ColBranch, dataprocessing.MeasureSumTotal}, records[7])
	assert.Equal(t, []string{"A", "30"}, records[8])
	assert.Equal(t, []string{"B", "70"}, records[9])
}

func TestCSVWriter_FormattedAndBOM(t *testing.T) {
	var buf bytes.Buffer
	err := NewCSVWriter(nil).Write(&buf, renderFixture(t, "A"), Options{BOMPrefix: true, Formatted: true})
	require.NoError(t, err)

	data := buf.Bytes()
	require.True(t, bytes.HasPrefix(data, utf8BOM))

	records := readCSV(t, data[len(utf8BOM):])
	assert.Equal(t, []string{LabelTotalSales, "$30.00"}, records[1])
	assert.Equal(t, []string{LabelAverageRating, "7.50"}, records[4])
	assert.Contains(t, records, []string{"A", "$30.00"})
}

func TestCSVWriter_EmptyDashboard(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewCSVWriter(nil).Write(&buf, renderFixture(t, []string{}...), Options{Formatted: true}))

	records := readCSV(t, buf.Bytes())
	assert.Equal(t, []string{LabelTotalSales, "$0.00"}, records[1])
	assert.Equal(t, []string{LabelAverageRating, NotAvailable}, records[4])
}

func TestCSVWriter_WriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "dashboard.csv")
	require.NoError(t, NewCSVWriter(nil).WriteFile(path, renderFixture(t), Options{}))
	assert.FileExists(t, path)
}

func TestXLSXWriter_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewXLSXWriter(nil).Write(&buf, renderFixture(t), Options{}))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	want := append([]string{SummarySheet}, dataprocessing.TableNames()...)
	assert.Equal(t, want, f.GetSheetList())

	total, err := f.GetCellValue(SummarySheet, "B2")
	require.NoError(t, err)
	assert.Equal(t, "100", total)

	rows, err := f.GetRows(dataprocessing.TableSalesByBranch)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"A", "30"}, rows[1])
	assert.Equal(t, []string{"B", "70"}, rows[2])
}

func TestXLSXWriter_EmptyTablesHaveNoChart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.xlsx")
	require.NoError(t, NewXLSXWriter(nil).WriteFile(path, renderFixture(t, []string{}...), Options{}))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(dataprocessing.TableSalesTrend)
	require.NoError(t, err)
	assert.Len(t, rows, 1, "header only")

	rating, err := f.GetCellValue(SummarySheet, "B5")
	require.NoError(t, err)
	assert.Empty(t, rating)
}
