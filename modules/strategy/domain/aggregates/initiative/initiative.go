package initiative

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/emetric-hq/emetric/pkg/routine"
)

var (
	ErrInitiativeNotFound = errors.New("initiative not found")
	ErrNotPending         = errors.New("only pending initiatives can be modified")
	ErrAmbiguousUpline    = errors.New("exactly one upline reference is required")
)

type Status string

const (
	StatusPending Status = "pending"
	StatusActive  Status = "active"
	StatusClosed  Status = "closed"
)

// Upline points an initiative at its parent: either an objective or
// another initiative, never both.
type Upline struct {
	ObjectiveID  uuid.UUID
	InitiativeID uuid.UUID
}

func (u Upline) Validate() error {
	if (u.ObjectiveID == uuid.Nil) == (u.InitiativeID == uuid.Nil) {
		return ErrAmbiguousUpline
	}
	return nil
}

func (u Upline) IsObjective() bool { return u.ObjectiveID != uuid.Nil }

// Initiative is one dated occurrence of a unit of recurring work,
// owned by a person and parented to an objective or to another
// initiative. Its target point accumulates child Task and child
// Initiative deltas.
type Initiative struct {
	id            uuid.UUID
	name          string
	upline        Upline
	ownerID       uuid.UUID
	assignorID    uuid.UUID // zero for top-of-tree owners
	routineOption routine.Option
	startDate     time.Time
	endDate       time.Time
	routineRound  int
	status        Status
	targetPoint   decimal.Decimal
	createdAt     time.Time
	updatedAt     time.Time
}

type Option func(*Initiative)

func WithAssignor(assignorID uuid.UUID) Option {
	return func(i *Initiative) { i.assignorID = assignorID }
}

func New(
	name string,
	upline Upline,
	ownerID uuid.UUID,
	opt routine.Option,
	startDate, endDate time.Time,
	round int,
	opts ...Option,
) (*Initiative, error) {
	if err := upline.Validate(); err != nil {
		return nil, err
	}
	now := time.Now()
	i := &Initiative{
		id:            uuid.New(),
		name:          name,
		upline:        upline,
		ownerID:       ownerID,
		routineOption: opt,
		startDate:     startDate,
		endDate:       endDate,
		routineRound:  round,
		status:        StatusPending,
		targetPoint:   decimal.Zero,
		createdAt:     now,
		updatedAt:     now,
	}
	for _, o := range opts {
		o(i)
	}
	return i, nil
}

func Hydrate(
	id uuid.UUID,
	name string,
	upline Upline,
	ownerID, assignorID uuid.UUID,
	opt routine.Option,
	startDate, endDate time.Time,
	round int,
	status Status,
	targetPoint decimal.Decimal,
	createdAt, updatedAt time.Time,
) *Initiative {
	return &Initiative{
		id:            id,
		name:          name,
		upline:        upline,
		ownerID:       ownerID,
		assignorID:    assignorID,
		routineOption: opt,
		startDate:     startDate,
		endDate:       endDate,
		routineRound:  round,
		status:        status,
		targetPoint:   targetPoint,
		createdAt:     createdAt,
		updatedAt:     updatedAt,
	}
}

func (i *Initiative) ID() uuid.UUID                 { return i.id }
func (i *Initiative) Name() string                  { return i.name }
func (i *Initiative) Upline() Upline                { return i.upline }
func (i *Initiative) OwnerID() uuid.UUID            { return i.ownerID }
func (i *Initiative) AssignorID() uuid.UUID         { return i.assignorID }
func (i *Initiative) RoutineOption() routine.Option { return i.routineOption }
func (i *Initiative) StartDate() time.Time          { return i.startDate }
func (i *Initiative) EndDate() time.Time            { return i.endDate }
func (i *Initiative) RoutineRound() int             { return i.routineRound }
func (i *Initiative) Status() Status                { return i.status }
func (i *Initiative) TargetPoint() decimal.Decimal  { return i.targetPoint }
func (i *Initiative) CreatedAt() time.Time          { return i.createdAt }
func (i *Initiative) UpdatedAt() time.Time          { return i.updatedAt }

func (i *Initiative) IsPending() bool { return i.status == StatusPending }

func (i *Initiative) Reschedule(startDate, endDate time.Time) error {
	if !i.IsPending() {
		return ErrNotPending
	}
	i.startDate = startDate
	i.endDate = endDate
	i.updatedAt = time.Now()
	return nil
}

func (i *Initiative) Rename(name string) error {
	if !i.IsPending() {
		return ErrNotPending
	}
	i.name = name
	i.updatedAt = time.Now()
	return nil
}

type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Initiative, error)
	Create(ctx context.Context, initiatives ...*Initiative) error
	Update(ctx context.Context, i *Initiative) error
	Delete(ctx context.Context, ids ...uuid.UUID) error
	PendingFrom(ctx context.Context, name string, from time.Time) ([]*Initiative, error)
	AddTargetPoint(ctx context.Context, id uuid.UUID, delta decimal.Decimal) (bool, error)
	TransitionStatus(ctx context.Context, id uuid.UUID, from, to Status) (bool, error)
}
