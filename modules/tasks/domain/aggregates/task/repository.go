package task

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Task, error)
	Create(ctx context.Context, tasks ...*Task) error
	Update(ctx context.Context, t *Task) error
	Delete(ctx context.Context, ids ...uuid.UUID) error
	// PendingFrom lists pending occurrences sharing the logical name
	// whose start date is on or after from, ascending by start.
	PendingFrom(ctx context.Context, name string, from time.Time) ([]*Task, error)
	// TransitionStatus applies from -> to only when the row still holds
	// from. It reports whether a row changed.
	TransitionStatus(ctx context.Context, id uuid.UUID, from, to Status) (bool, error)
}
