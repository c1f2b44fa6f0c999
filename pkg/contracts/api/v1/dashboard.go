// Package api contains the HTTP and WebSocket contracts of the sales dashboard.
// Version v1 represents the current stable API version.
package api

import (
	"fmt"
	"time"

	"salesdash/pkg/contracts/domain"
)

// DateLayout is the wire format of selection dates.
const DateLayout = "2006-01-02"

// RenderRequest is a filter selection as sent by clients. Every set must be
// present; an empty array is an explicit empty set and matches nothing.
type RenderRequest struct {
	Branches      []string `json:"branches" validate:"required,dive,required"`
	ProductLines  []string `json:"product_lines" validate:"required,dive,required"`
	CustomerTypes []string `json:"customer_types" validate:"required,dive,required"`
	Start         string   `json:"start" validate:"required,datetime=2006-01-02"`
	End           string   `json:"end" validate:"required,datetime=2006-01-02"`
}

// ToSelection converts the request into a domain selection. It fails when a
// date does not parse or the range is reversed.
func (r RenderRequest) ToSelection() (domain.FilterSelection, error) {
	start, err := time.Parse(DateLayout, r.Start)
	if err != nil {
		return domain.FilterSelection{}, fmt.Errorf("start: %w", err)
	}
	end, err := time.Parse(DateLayout, r.End)
	if err != nil {
		return domain.FilterSelection{}, fmt.Errorf("end: %w", err)
	}
	if end.Before(start) {
		return domain.FilterSelection{}, fmt.Errorf("end %s is before start %s", r.End, r.Start)
	}

	return domain.FilterSelection{
		Branches:      r.Branches,
		ProductLines:  r.ProductLines,
		CustomerTypes: r.CustomerTypes,
		Start:         start,
		End:           end,
	}, nil
}

// SelectionResponse is a filter selection with dates in wire format.
type SelectionResponse struct {
	Branches      []string `json:"branches"`
	ProductLines  []string `json:"product_lines"`
	CustomerTypes []string `json:"customer_types"`
	Start         string   `json:"start"`
	End           string   `json:"end"`
}

// NewSelectionResponse converts a domain selection.
func NewSelectionResponse(sel domain.FilterSelection) SelectionResponse {
	return SelectionResponse{
		Branches:      nonNil(sel.Branches),
		ProductLines:  nonNil(sel.ProductLines),
		CustomerTypes: nonNil(sel.CustomerTypes),
		Start:         sel.Start.Format(DateLayout),
		End:           sel.End.Format(DateLayout),
	}
}

// MetricsDisplay holds the metrics formatted for display.
type MetricsDisplay struct {
	TotalSales    string `json:"total_sales"`
	GrossIncome   string `json:"gross_income"`
	TotalQuantity string `json:"total_quantity"`
	AverageRating string `json:"average_rating"`
}

// MetricsResponse carries the summary metrics. AverageRating is null when
// no row in the view has a rating.
type MetricsResponse struct {
	TotalSales    float64         `json:"total_sales"`
	GrossIncome   float64         `json:"gross_income"`
	TotalQuantity int64           `json:"total_quantity"`
	AverageRating *float64        `json:"average_rating"`
	RowCount      int             `json:"row_count"`
	Display       *MetricsDisplay `json:"display,omitempty"`
}

// PointResponse is one aggregate point.
type PointResponse struct {
	Key   string  `json:"key"`
	Value float64 `json:"value"`
}

// TableResponse is one aggregate table.
type TableResponse struct {
	Name      string          `json:"name"`
	Title     string          `json:"title"`
	Dimension string          `json:"dimension"`
	Measure   string          `json:"measure"`
	Chart     string          `json:"chart"`
	Points    []PointResponse `json:"points"`
}

// DashboardResponse is the result of a render.
type DashboardResponse struct {
	Selection   SelectionResponse `json:"selection"`
	Metrics     MetricsResponse   `json:"metrics"`
	Tables      []TableResponse   `json:"tables"`
	GeneratedAt time.Time         `json:"generated_at"`
}

// NewDashboardResponse converts a rendered dashboard.
func NewDashboardResponse(d *domain.Dashboard) DashboardResponse {
	resp := DashboardResponse{
		Selection: NewSelectionResponse(d.Selection),
		Metrics: MetricsResponse{
			TotalSales:    d.Metrics.TotalSales.InexactFloat64(),
			GrossIncome:   d.Metrics.GrossIncome.InexactFloat64(),
			TotalQuantity: d.Metrics.TotalQuantity,
			AverageRating: d.Metrics.AverageRating,
			RowCount:      d.Metrics.RowCount,
		},
		Tables:      make([]TableResponse, 0, len(d.Tables)),
		GeneratedAt: d.GeneratedAt,
	}

	for _, t := range d.Tables {
		tr := TableResponse{
			Name:      t.Name,
			Title:     t.Title,
			Dimension: t.Dimension,
			Measure:   t.Measure,
			Chart:     t.Chart,
			Points:    make([]PointResponse, len(t.Points)),
		}
		for i, p := range t.Points {
			tr.Points[i] = PointResponse{Key: p.Key, Value: p.Value.InexactFloat64()}
		}
		resp.Tables = append(resp.Tables, tr)
	}
	return resp
}

// DomainResponse lists the selectable values of the loaded table.
type DomainResponse struct {
	Branches      []string `json:"branches"`
	ProductLines  []string `json:"product_lines"`
	CustomerTypes []string `json:"customer_types"`
	Payments      []string `json:"payments"`
	MinDate       *string  `json:"min_date"`
	MaxDate       *string  `json:"max_date"`
	Rows          int      `json:"rows"`
	NullDates     int      `json:"null_dates"`
}

// OptionsResponse is what a client needs to draw its filter controls.
type OptionsResponse struct {
	Title   string            `json:"title"`
	Domain  DomainResponse    `json:"domain"`
	Default SelectionResponse `json:"default"`
}

// NewOptionsResponse converts a selection domain and its default selection.
func NewOptionsResponse(title string, d domain.SelectionDomain, def domain.FilterSelection) OptionsResponse {
	return OptionsResponse{
		Title: title,
		Domain: DomainResponse{
			Branches:      nonNil(d.Branches),
			ProductLines:  nonNil(d.ProductLines),
			CustomerTypes: nonNil(d.CustomerTypes),
			Payments:      nonNil(d.Payments),
			MinDate:       formatDate(d.MinDate),
			MaxDate:       formatDate(d.MaxDate),
			Rows:          d.Rows,
			NullDates:     d.NullDates,
		},
		Default: NewSelectionResponse(def),
	}
}

func formatDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(DateLayout)
	return &s
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
