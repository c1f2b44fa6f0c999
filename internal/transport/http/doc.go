// Package http implements the HTTP presentation adapter of the sales dashboard.
// Handlers are thin: they parse a filter selection from the request, call the
// dashboard service and encode the result with go-chi/render. Failures are
// returned as RFC 7807 problem details through errors.ErrorHandler.
//
// # Routes
//
//	GET  /api/dashboard/options      selectable values and the default selection
//	GET  /api/dashboard              render from query parameters
//	POST /api/dashboard/render       render from a JSON selection
//	GET  /api/dashboard/export.csv   download the rendered dashboard as CSV
//	GET  /api/dashboard/export.xlsx  download the rendered dashboard as XLSX
//
// # Query selections
//
// branch, product_line and customer_type may be repeated. A parameter that is
// absent selects every value; a parameter given only as empty (branch=)
// selects none. start and end use YYYY-MM-DD and default to the table's date
// range.
package http
