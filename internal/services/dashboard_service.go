package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"salesdash/internal/dataprocessing"
	"salesdash/pkg/contracts/domain"
)

// PageTitle is the dashboard title shown by every presentation adapter.
const PageTitle = "Supermarket Sales Dashboard"

// TableSource yields the loaded sales table for a path. *dataprocessing.TableCache
// implements it.
type TableSource interface {
	Get(ctx context.Context, path string) (*domain.SalesTable, error)
	Report(path string) (*dataprocessing.LoadReport, bool)
	Stats() dataprocessing.CacheStats
}

// RenderObserver receives render events, typically OTel instruments.
type RenderObserver interface {
	RecordRender(ctx context.Context, rows int, d time.Duration, err error)
}

// DashboardOptions describes what a presentation adapter needs to draw its
// filter controls.
type DashboardOptions struct {
	Title   string                 `json:"title"`
	Domain  domain.SelectionDomain `json:"domain"`
	Default domain.FilterSelection `json:"default"`
}

// DashboardService runs the filter and aggregation pipeline over the cached
// sales table.
type DashboardService struct {
	source     TableSource
	path       string
	summarizer *dataprocessing.Summarizer
	metrics    RenderObserver
	logger     *slog.Logger
}

// NewDashboardService creates a dashboard service for the table at path.
// metrics may be nil.
func NewDashboardService(source TableSource, path string, metrics RenderObserver, logger *slog.Logger) *DashboardService {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "dashboard_service"))

	logger.Info("DashboardService initialized", slog.String("data_path", path))

	return &DashboardService{
		source:     source,
		path:       path,
		summarizer: dataprocessing.NewSummarizer(logger),
		metrics:    metrics,
		logger:     logger,
	}
}

// Path returns the input path the service reads.
func (s *DashboardService) Path() string {
	return s.path
}

// Warmup loads the sales table so that a missing or corrupt file surfaces
// before the first request.
func (s *DashboardService) Warmup(ctx context.Context) (*dataprocessing.LoadReport, error) {
	if _, err := s.Table(ctx); err != nil {
		return nil, err
	}
	report, _ := s.source.Report(s.path)

	if report != nil {
		s.logger.InfoContext(ctx, "sales table loaded",
			slog.String("source", report.Source),
			slog.String("format", report.Format),
			slog.String("encoding", report.Encoding),
			slog.Int("rows", report.Rows),
			slog.Int("null_dates", report.NullDates),
			slog.Int("missing_ratings", report.MissingRatings),
			slog.Duration("duration", report.Duration))
	}
	return report, nil
}

// Table returns the cached sales table.
func (s *DashboardService) Table(ctx context.Context) (*domain.SalesTable, error) {
	table, err := s.source.Get(ctx, s.path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTableNotLoaded, err)
	}
	return table, nil
}

// Options returns the selectable values, the default selection and the
// page title.
func (s *DashboardService) Options(ctx context.Context) (*DashboardOptions, error) {
	table, err := s.Table(ctx)
	if err != nil {
		return nil, err
	}

	d := dataprocessing.Domain(table)
	return &DashboardOptions{
		Title:   PageTitle,
		Domain:  d,
		Default: dataprocessing.SelectionFromDomain(d),
	}, nil
}

// DefaultSelection returns the full-domain selection for the loaded table.
func (s *DashboardService) DefaultSelection(ctx context.Context) (domain.FilterSelection, error) {
	table, err := s.Table(ctx)
	if err != nil {
		return domain.FilterSelection{}, err
	}
	return dataprocessing.DefaultSelection(table), nil
}

// Render filters the table with sel and returns the metrics and aggregate
// tables of the resulting view.
func (s *DashboardService) Render(ctx context.Context, sel domain.FilterSelection) (*domain.Dashboard, error) {
	start := time.Now()

	dashboard, err := s.render(ctx, sel)
	if s.metrics != nil {
		rows := 0
		if dashboard != nil {
			rows = dashboard.Metrics.RowCount
		}
		s.metrics.RecordRender(ctx, rows, time.Since(start), err)
	}
	if err != nil {
		s.logger.WarnContext(ctx, "render failed", slog.String("error", err.Error()))
		return nil, err
	}
	return dashboard, nil
}

func (s *DashboardService) render(ctx context.Context, sel domain.FilterSelection) (*domain.Dashboard, error) {
	if dataprocessing.ReversedRange(sel) {
		return nil, fmt.Errorf("%w: end %s is before start %s", ErrInvalidSelection,
			sel.End.Format(time.DateOnly), sel.Start.Format(time.DateOnly))
	}

	table, err := s.Table(ctx)
	if err != nil {
		return nil, err
	}
	return s.summarizer.Render(ctx, table, sel)
}

// Stats returns table cache statistics.
func (s *DashboardService) Stats() dataprocessing.CacheStats {
	return s.source.Stats()
}
