package http

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "salesdash/internal/errors"
	"salesdash/internal/exporter"
	"salesdash/internal/middleware"
	"salesdash/internal/services"
	api "salesdash/pkg/contracts/api/v1"
	"salesdash/pkg/contracts/domain"
)

// Query parameter names of a selection
const (
	ParamBranch       = "branch"
	ParamProductLine  = "product_line"
	ParamCustomerType = "customer_type"
	ParamStart        = "start"
	ParamEnd          = "end"
	ParamFormatted    = "formatted"
)

// ExportFileName is the base name of downloaded exports.
const ExportFileName = "supermarket_sales_dashboard"

// DashboardHandler serves dashboard renders and exports
type DashboardHandler struct {
	service      DashboardServiceInterface
	validation   *middleware.ValidationMiddleware
	errorHandler *apierrors.ErrorHandler
	csvWriter    *exporter.CSVWriter
	xlsxWriter   *exporter.XLSXWriter
	logger       *slog.Logger
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(service DashboardServiceInterface, validation *middleware.ValidationMiddleware, errorHandler *apierrors.ErrorHandler, logger *slog.Logger) *DashboardHandler {
	return &DashboardHandler{
		service:      service,
		validation:   validation,
		errorHandler: errorHandler,
		csvWriter:    exporter.NewCSVWriter(logger),
		xlsxWriter:   exporter.NewXLSXWriter(logger),
		logger:       logger.With(slog.String("component", "dashboard_handler")),
	}
}

// Routes returns the dashboard routes
func (h *DashboardHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Group(func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))
		r.Get("/", h.GetDashboard)
		r.Get("/options", h.GetOptions)
		r.With(h.validation.JSONBody).Post("/render", h.PostRender)
	})

	r.Get("/export.csv", h.ExportCSV)
	r.Get("/export.xlsx", h.ExportXLSX)

	return r
}

// GetOptions handles GET /api/dashboard/options
func (h *DashboardHandler) GetOptions(w http.ResponseWriter, r *http.Request) {
	opts, err := h.service.Options(r.Context())
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	render.JSON(w, r, api.NewOptionsResponse(opts.Title, opts.Domain, opts.Default))
}

// GetDashboard handles GET /api/dashboard
func (h *DashboardHandler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	dash, ok := h.renderFromQuery(w, r)
	if !ok {
		return
	}
	render.JSON(w, r, newDashboardResponse(dash))
}

// PostRender handles POST /api/dashboard/render
func (h *DashboardHandler) PostRender(w http.ResponseWriter, r *http.Request) {
	var req api.RenderRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
		return
	}
	if err := h.validation.ValidateStruct(req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	sel, err := req.ToSelection()
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("end", err.Error()))
		return
	}

	dash, err := h.service.Render(r.Context(), sel)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	render.JSON(w, r, newDashboardResponse(dash))
}

// ExportCSV handles GET /api/dashboard/export.csv
func (h *DashboardHandler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	dash, ok := h.renderFromQuery(w, r)
	if !ok {
		return
	}

	var buf bytes.Buffer
	opts := exporter.Options{BOMPrefix: true, Formatted: formattedParam(r)}
	if err := h.csvWriter.Write(&buf, dash, opts); err != nil {
		h.errorHandler.HandleError(w, r, apierrors.ExportFailed("csv", err))
		return
	}
	h.writeAttachment(w, "text/csv; charset=utf-8", ExportFileName+".csv", buf.Bytes())
}

// ExportXLSX handles GET /api/dashboard/export.xlsx
func (h *DashboardHandler) ExportXLSX(w http.ResponseWriter, r *http.Request) {
	dash, ok := h.renderFromQuery(w, r)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := h.xlsxWriter.Write(&buf, dash, exporter.Options{Formatted: formattedParam(r)}); err != nil {
		h.errorHandler.HandleError(w, r, apierrors.ExportFailed("xlsx", err))
		return
	}
	h.writeAttachment(w, exporter.XLSXContentType, ExportFileName+".xlsx", buf.Bytes())
}

// writeAttachment sends a fully built export so that a failure never leaves
// a truncated download behind.
func (h *DashboardHandler) writeAttachment(w http.ResponseWriter, contentType, filename string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		h.logger.Warn("export write interrupted",
			slog.String("filename", filename),
			slog.String("error", err.Error()))
	}
}

// renderFromQuery parses a selection from the query string, renders it and
// writes a problem response on failure.
func (h *DashboardHandler) renderFromQuery(w http.ResponseWriter, r *http.Request) (*domain.Dashboard, bool) {
	def, err := h.service.DefaultSelection(r.Context())
	if err != nil {
		h.handleServiceError(w, r, err)
		return nil, false
	}

	sel, err := SelectionFromQuery(r.URL.Query(), def)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return nil, false
	}

	dash, err := h.service.Render(r.Context(), sel)
	if err != nil {
		h.handleServiceError(w, r, err)
		return nil, false
	}
	return dash, true
}

func (h *DashboardHandler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, services.ErrInvalidSelection):
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation(ParamEnd, err.Error()))
	case errors.Is(err, services.ErrTableNotLoaded):
		h.errorHandler.HandleError(w, r, apierrors.TableUnavailable(err))
	default:
		h.errorHandler.HandleError(w, r, err)
	}
}

// SelectionFromQuery builds a selection from query parameters, taking every
// absent parameter from def. A categorical parameter whose only values are
// empty is an explicit empty set.
func SelectionFromQuery(q url.Values, def domain.FilterSelection) (domain.FilterSelection, error) {
	sel := def
	sel.Branches = setParam(q, ParamBranch, def.Branches)
	sel.ProductLines = setParam(q, ParamProductLine, def.ProductLines)
	sel.CustomerTypes = setParam(q, ParamCustomerType, def.CustomerTypes)

	var errs []apierrors.ValidationError
	var err error
	if sel.Start, err = dateParam(q, ParamStart, def.Start); err != nil {
		errs = append(errs, apierrors.ValidationError{Field: ParamStart, Message: err.Error()})
	}
	if sel.End, err = dateParam(q, ParamEnd, def.End); err != nil {
		errs = append(errs, apierrors.ValidationError{Field: ParamEnd, Message: err.Error()})
	}
	if len(errs) > 0 {
		return domain.FilterSelection{}, apierrors.NewValidationErrors(errs)
	}

	if sel.End.Before(sel.Start) {
		return domain.FilterSelection{}, apierrors.ErrValidation(ParamEnd,
			fmt.Sprintf("end %s is before start %s", sel.End.Format(api.DateLayout), sel.Start.Format(api.DateLayout)))
	}
	return sel, nil
}

func setParam(q url.Values, key string, def []string) []string {
	values, ok := q[key]
	if !ok {
		return def
	}
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

func dateParam(q url.Values, key string, def time.Time) (time.Time, error) {
	v := q.Get(key)
	if v == "" {
		return def, nil
	}
	t, err := time.Parse(api.DateLayout, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s must be a date in the format %s", key, api.DateLayout)
	}
	return t, nil
}

func formattedParam(r *http.Request) bool {
	ok, _ := strconv.ParseBool(r.URL.Query().Get(ParamFormatted))
	return ok
}

func newDashboardResponse(dash *domain.Dashboard) api.DashboardResponse {
	resp := api.NewDashboardResponse(dash)
	resp.Metrics.Display = exporter.Display(dash.Metrics)
	return resp
}
