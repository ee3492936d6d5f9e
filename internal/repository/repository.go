package repository

import (
	"context"
	"time"

	"github.com/safin-krmavi/Bulltrek/internal/models"
)

type ListStrategiesParams struct {
	Type   *string
	UserID *string
	Limit  int
	Offset int
}

type ListActionsParams struct {
	StrategyType *string
	StrategyID   *string
	Kind         *string
	State        *string
	Limit        int
	Offset       int
}

// Repository stores the local history of created strategies and lifecycle
// actions. Upstream remains the source of truth for both.
type Repository interface {
	InsertStrategy(ctx context.Context, item *models.StrategyRecord) error
	ListStrategies(ctx context.Context, params ListStrategiesParams) ([]models.StrategyRecord, error)

	InsertAction(ctx context.Context, item *models.ActionRecord) error
	SaveAction(ctx context.Context, item *models.ActionRecord) error
	ListActions(ctx context.Context, params ListActionsParams) ([]models.ActionRecord, error)
	DeleteActionsBefore(ctx context.Context, before time.Time) (int64, error)
}
