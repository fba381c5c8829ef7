package holiday

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
)

var ErrHolidayNotFound = errors.New("holiday not found")

// Holiday is a tenant-wide non-working date.
type Holiday struct {
	id   uuid.UUID
	name string
	date time.Time
}

func New(name string, date time.Time) *Holiday {
	return &Holiday{
		id:   uuid.New(),
		name: name,
		date: date,
	}
}

func Hydrate(id uuid.UUID, name string, date time.Time) *Holiday {
	return &Holiday{id: id, name: name, date: date}
}

func (h *Holiday) ID() uuid.UUID   { return h.id }
func (h *Holiday) Name() string    { return h.name }
func (h *Holiday) Date() time.Time { return h.date }

type Repository interface {
	InRange(ctx context.Context, from, to time.Time) ([]*Holiday, error)
	Create(ctx context.Context, h *Holiday) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// DateSet indexes holidays by calendar date for O(1) lookups during
// occurrence walks.
func DateSet(holidays []*Holiday) map[time.Time]struct{} {
	set := make(map[time.Time]struct{}, len(holidays))
	for _, h := range holidays {
		y, m, d := h.Date().Date()
		set[time.Date(y, m, d, 0, 0, 0, 0, time.UTC)] = struct{}{}
	}
	return set
}
