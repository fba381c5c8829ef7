package busy

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Interval is one entry in an owner's busy calendar. Task occurrences
// register one interval each; external collaborators may register their
// own (meetings, leave) which the scheduler treats the same way.
type Interval struct {
	id      uuid.UUID
	name    string
	ownerID uuid.UUID
	taskID  uuid.UUID // zero when the interval is not backed by a task
	isFree  bool
	start   time.Time
	end     time.Time
}

func New(name string, ownerID uuid.UUID, start, end time.Time) *Interval {
	return &Interval{
		id:      uuid.New(),
		name:    name,
		ownerID: ownerID,
		start:   start,
		end:     end,
	}
}

type Option func(*Interval)

func WithTaskID(taskID uuid.UUID) Option {
	return func(i *Interval) { i.taskID = taskID }
}

func WithIsFree(isFree bool) Option {
	return func(i *Interval) { i.isFree = isFree }
}

func (i *Interval) Apply(opts ...Option) *Interval {
	for _, opt := range opts {
		opt(i)
	}
	return i
}

func Hydrate(id uuid.UUID, name string, ownerID, taskID uuid.UUID, isFree bool, start, end time.Time) *Interval {
	return &Interval{
		id:      id,
		name:    name,
		ownerID: ownerID,
		taskID:  taskID,
		isFree:  isFree,
		start:   start,
		end:     end,
	}
}

func (i *Interval) ID() uuid.UUID      { return i.id }
func (i *Interval) Name() string       { return i.name }
func (i *Interval) OwnerID() uuid.UUID { return i.ownerID }
func (i *Interval) TaskID() uuid.UUID  { return i.taskID }
func (i *Interval) IsFree() bool       { return i.isFree }
func (i *Interval) Start() time.Time   { return i.start }
func (i *Interval) End() time.Time     { return i.end }

// Overlaps reports whether [start, end) intersects the interval. Free
// intervals never conflict.
func (i *Interval) Overlaps(start, end time.Time) bool {
	if i.isFree {
		return false
	}
	return start.Before(i.end) && i.start.Before(end)
}

type Repository interface {
	ForOwnerInRange(ctx context.Context, ownerID uuid.UUID, from, to time.Time) ([]*Interval, error)
	Create(ctx context.Context, intervals ...*Interval) error
	RepointTask(ctx context.Context, taskID uuid.UUID, start, end time.Time) error
	DeleteByTask(ctx context.Context, taskIDs ...uuid.UUID) error
}
