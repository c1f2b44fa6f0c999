// Package services implements the business logic layer of the sales dashboard.
// It sits between the transport adapters (HTTP, WebSocket, CLI) and the data
// processing pipeline.
//
// # Services
//
// DashboardService owns the render pipeline. Every call to Render obtains the
// cached sales table, filters it with the caller's selection and aggregates
// the resulting view:
//
//	svc := services.NewDashboardService(cache, cfg.Data.Path, metrics, logger)
//	if _, err := svc.Warmup(ctx); err != nil {
//	    // missing or corrupt input is fatal at startup
//	}
//	dashboard, err := svc.Render(ctx, selection)
//
// HealthService reports liveness and readiness. The process is ready once the
// sales table has been loaded into the cache.
//
// # Errors
//
// Services wrap the sentinel errors in errors.go with %w so callers can use
// errors.Is. Load failures keep the underlying *errors.AppError in the chain.
package services
