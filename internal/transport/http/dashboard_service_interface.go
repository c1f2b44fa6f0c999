package http

import (
	"context"

	"salesdash/internal/services"
	"salesdash/pkg/contracts/domain"
)

// DashboardServiceInterface defines the dashboard operations used by handlers
type DashboardServiceInterface interface {
	Options(ctx context.Context) (*services.DashboardOptions, error)
	DefaultSelection(ctx context.Context) (domain.FilterSelection, error)
	Render(ctx context.Context, sel domain.FilterSelection) (*domain.Dashboard, error)
}
