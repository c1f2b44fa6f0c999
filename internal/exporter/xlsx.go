package exporter

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/xuri/excelize/v2"

	"salesdash/internal/dataprocessing"
	"salesdash/pkg/contracts/domain"
)

// SummarySheet is the name of the metrics sheet in exported workbooks.
const SummarySheet = "Summary"

// XLSXContentType is the MIME type of exported workbooks.
const XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var chartTypes = map[string]excelize.ChartType{
	"bar":            excelize.Col,
	"horizontal_bar": excelize.Bar,
	"pie":            excelize.Pie,
	"line":           excelize.Line,
}

// XLSXWriter exports dashboards as Excel workbooks.
type XLSXWriter struct {
	logger *slog.Logger
}

// NewXLSXWriter creates a new workbook writer
func NewXLSXWriter(logger *slog.Logger) *XLSXWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &XLSXWriter{logger: logger.With(slog.String("component", "xlsx_exporter"))}
}

// Build returns a workbook with a Summary sheet and one sheet per aggregate
// table, each with a chart of its points. The caller closes the file.
func (xw *XLSXWriter) Build(dash *domain.Dashboard, opts Options) (*excelize.File, error) {
	f := excelize.NewFile()

	if err := f.SetSheetName("Sheet1", SummarySheet); err != nil {
		f.Close()
		return nil, err
	}
	if err := writeSummarySheet(f, dash, opts); err != nil {
		f.Close()
		return nil, err
	}

	for _, t := range dash.Tables {
		if err := writeTableSheet(f, t, opts); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to write sheet %s: %w", t.Name, err)
		}
	}
	f.SetActiveSheet(0)
	return f, nil
}

// Write builds the workbook and writes it to w.
func (xw *XLSXWriter) Write(w io.Writer, dash *domain.Dashboard, opts Options) error {
	f, err := xw.Build(dash, opts)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// WriteFile builds the workbook and saves it at filePath.
func (xw *XLSXWriter) WriteFile(filePath string, dash *domain.Dashboard, opts Options) error {
	xw.logger.Info("Writing XLSX file",
		slog.String("file_path", filePath),
		slog.Int("sheet_count", len(dash.Tables)+1))

	f, err := xw.Build(dash, opts)
	if err != nil {
		return err
	}
	defer f.Close()

	return f.SaveAs(filePath)
}

func writeSummarySheet(f *excelize.File, dash *domain.Dashboard, opts Options) error {
	if err := f.SetSheetRow(SummarySheet, "A1", &[]interface{}{"metric", "value"}); err != nil {
		return err
	}

	m := dash.Metrics
	var rows [][]interface{}
	if opts.Formatted {
		for _, r := range SummaryRows(m, true) {
			rows = append(rows, []interface{}{r[0], r[1]})
		}
	} else {
		var rating interface{}
		if m.AverageRating != nil {
			rating = *m.AverageRating
		}
		rows = [][]interface{}{
			{LabelTotalSales, m.TotalSales.InexactFloat64()},
			{LabelGrossIncome, m.GrossIncome.InexactFloat64()},
			{LabelTotalQuantity, m.TotalQuantity},
			{LabelAverageRating, rating},
			{LabelRows, m.RowCount},
		}
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(SummarySheet, cell, &row); err != nil {
			return err
		}
	}
	return f.SetColWidth(SummarySheet, "A", "B", 18)
}

func writeTableSheet(f *excelize.File, t domain.AggregateTable, opts Options) error {
	sheet := t.Name
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, "A1", &[]interface{}{t.Dimension, t.Measure}); err != nil {
		return err
	}

	for i, p := range t.Points {
		row := i + 2
		var value interface{} = p.Value.InexactFloat64()
		if opts.Formatted {
			value = PointValue(t, p, true)
		}
		if err := f.SetSheetRow(sheet, fmt.Sprintf("A%d", row), &[]interface{}{p.Key, value}); err != nil {
			return err
		}
	}
	if err := f.SetColWidth(sheet, "A", "A", 24); err != nil {
		return err
	}

	// a chart needs at least one numeric point
	if len(t.Points) == 0 || opts.Formatted {
		return nil
	}
	return f.AddChart(sheet, "D2", tableChart(t))
}

func tableChart(t domain.AggregateTable) *excelize.Chart {
	chartType, ok := chartTypes[t.Chart]
	if !ok {
		chartType = excelize.Col
	}
	last := len(t.Points) + 1

	name := "Total"
	if t.Measure == dataprocessing.MeasureMeanRating {
		name = "Rating"
	}

	return &excelize.Chart{
		Type: chartType,
		Series: []excelize.ChartSeries{{
			Name:       name,
			Categories: fmt.Sprintf("'%s'!$A$2:$A$%d", t.Name, last),
			Values:     fmt.Sprintf("'%s'!$B$2:$B$%d", t.Name, last),
		}},
		Title:  []excelize.RichTextRun{{Text: t.Title}},
		Legend: excelize.ChartLegend{Position: "none"},
	}
}
