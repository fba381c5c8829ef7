package objective

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Objective, error)
	Create(ctx context.Context, objectives ...*Objective) error
	Update(ctx context.Context, o *Objective) error
	Delete(ctx context.Context, ids ...uuid.UUID) error

	// PendingFrom lists the pending occurrences of a logical name whose
	// start date is on or after from, the cascade set for update/delete.
	PendingFrom(ctx context.Context, name string, from time.Time) ([]*Objective, error)

	// AddTargetPoint applies a signed delta and reports whether the row
	// still exists.
	AddTargetPoint(ctx context.Context, id uuid.UUID, delta decimal.Decimal) (bool, error)

	// TransitionStatus moves id from one status to another, reporting
	// false when the row is gone or no longer in the expected status.
	TransitionStatus(ctx context.Context, id uuid.UUID, from, to Status) (bool, error)

	Spreads(ctx context.Context, objectiveID uuid.UUID) ([]*Spread, error)
	CreateSpreads(ctx context.Context, spreads ...*Spread) error
	// AdjustSpreadAllocation adds share to the spread's cached
	// allocation in place.
	AdjustSpreadAllocation(ctx context.Context, spreadID uuid.UUID, share decimal.Decimal) error
}
