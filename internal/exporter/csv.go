package exporter

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"salesdash/internal/dataprocessing"
	"salesdash/pkg/contracts/domain"
)

// utf8BOM helps Excel recognize UTF-8
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Options configures dashboard export
type Options struct {
	// BOMPrefix adds a UTF-8 BOM to CSV output.
	BOMPrefix bool
	// Formatted writes display strings instead of exact values.
	Formatted bool
}

// Summary row labels
const (
	LabelTotalSales    = "Total Sales"
	LabelGrossIncome   = "Gross Income"
	LabelTotalQuantity = "Total Quantity"
	LabelAverageRating = "Average Rating"
	LabelRows          = "Rows"
)

// SummaryRows returns the metric label/value pairs of a dashboard.
func SummaryRows(m domain.SummaryMetrics, formatted bool) [][]string {
	if formatted {
		return [][]string{
			{LabelTotalSales, FormatCurrency(m.TotalSales)},
			{LabelGrossIncome, FormatCurrency(m.GrossIncome)},
			{LabelTotalQuantity, FormatQuantity(m.TotalQuantity)},
			{LabelAverageRating, FormatRating(m.AverageRating)},
			{LabelRows, FormatQuantity(int64(m.RowCount))},
		}
	}
	return [][]string{
		{LabelTotalSales, formatRaw(m.TotalSales)},
		{LabelGrossIncome, formatRaw(m.GrossIncome)},
		{LabelTotalQuantity, strconv.FormatInt(m.TotalQuantity, 10)},
		{LabelAverageRating, formatRatingRaw(m.AverageRating)},
		{LabelRows, strconv.Itoa(m.RowCount)},
	}
}

// PointValue renders one aggregate value according to the table's measure.
func PointValue(t domain.AggregateTable, p domain.AggregatePoint, formatted bool) string {
	if !formatted {
		return formatRaw(p.Value)
	}
	if t.Measure == dataprocessing.MeasureMeanRating {
		return p.Value.StringFixed(2)
	}
	return FormatCurrency(p.Value)
}

// CSVWriter provides CSV export functionality
type CSVWriter struct {
	logger *slog.Logger
}

// NewCSVWriter creates a new CSV writer instance
func NewCSVWriter(logger *slog.Logger) *CSVWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &CSVWriter{logger: logger.With(slog.String("component", "csv_exporter"))}
}

// Write writes dash to w: a metric,value block, then for every aggregate
// table a blank line, its title and its dimension,measure header followed
// by the points.
func (cw *CSVWriter) Write(w io.Writer, dash *domain.Dashboard, opts Options) error {
	if opts.BOMPrefix {
		if _, err := w.Write(utf8BOM); err != nil {
			return fmt.Errorf("failed to write BOM: %w", err)
		}
	}

	writer := csv.NewWriter(w)
	write := func(record ...string) error {
		return writer.Write(record)
	}

	if err := write("metric", "value"); err != nil {
		return fmt.Errorf("failed to write headers: %w", err)
	}
	for _, row := range SummaryRows(dash.Metrics, opts.Formatted) {
		if err := write(row...); err != nil {
			return fmt.Errorf("failed to write summary: %w", err)
		}
	}

	for _, t := range dash.Tables {
		if err := write(); err != nil {
			return err
		}
		if err := write(t.Title); err != nil {
			return fmt.Errorf("failed to write table %s: %w", t.Name, err)
		}
		if err := write(t.Dimension, t.Measure); err != nil {
			return fmt.Errorf("failed to write table %s: %w", t.Name, err)
		}
		for _, p := range t.Points {
			if err := write(p.Key, PointValue(t, p, opts.Formatted)); err != nil {
				return fmt.Errorf("failed to write table %s: %w", t.Name, err)
			}
		}
	}

	writer.Flush()
	return writer.Error()
}

// WriteFile writes dash to filePath, creating parent directories.
func (cw *CSVWriter) WriteFile(filePath string, dash *domain.Dashboard, opts Options) (err error) {
	cw.logger.Info("Writing CSV file",
		slog.String("file_path", filePath),
		slog.Int("table_count", len(dash.Tables)))

	if err := os.MkdirAll(filepath.Dir(filePath), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer func() {
		if cerr := file.Close(); err == nil {
			err = cerr
		}
	}()

	return cw.Write(file, dash, opts)
}
