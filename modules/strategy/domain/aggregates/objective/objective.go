package objective

import (
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/emetric-hq/emetric/pkg/routine"
)

var (
	ErrObjectiveNotFound = errors.New("objective not found")
	ErrNotPending        = errors.New("only pending objectives can be modified")
)

// Status is the objective lifecycle. Transitions are applied by the
// transition-job handlers: pending → active at the start date, active →
// closed at the end date.
type Status string

const (
	StatusPending Status = "pending"
	StatusActive  Status = "active"
	StatusClosed  Status = "closed"
)

// AllowedRoutine reports whether an objective may recur at the given
// granularity. Objectives never recur finer than monthly.
func AllowedRoutine(opt routine.Option) bool {
	switch opt {
	case routine.Once, routine.Monthly, routine.Quarterly, routine.HalfYearly, routine.Yearly:
		return true
	}
	return false
}

// Objective is one dated occurrence of a mid-level goal. A recurring
// create produces N objectives sharing a name with ascending rounds;
// each row is independent after creation.
type Objective struct {
	id            uuid.UUID
	name          string
	scopeLevel    string
	routineOption routine.Option
	startDate     time.Time
	endDate       time.Time
	routineRound  int
	status        Status
	targetPoint   decimal.Decimal
	createdAt     time.Time
	updatedAt     time.Time
}

func New(name, scopeLevel string, opt routine.Option, startDate, endDate time.Time, round int) *Objective {
	now := time.Now()
	return &Objective{
		id:            uuid.New(),
		name:          name,
		scopeLevel:    scopeLevel,
		routineOption: opt,
		startDate:     startDate,
		endDate:       endDate,
		routineRound:  round,
		status:        StatusPending,
		targetPoint:   decimal.Zero,
		createdAt:     now,
		updatedAt:     now,
	}
}

func Hydrate(
	id uuid.UUID,
	name, scopeLevel string,
	opt routine.Option,
	startDate, endDate time.Time,
	round int,
	status Status,
	targetPoint decimal.Decimal,
	createdAt, updatedAt time.Time,
) *Objective {
	return &Objective{
		id:            id,
		name:          name,
		scopeLevel:    scopeLevel,
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

func (o *Objective) ID() uuid.UUID                 { return o.id }
func (o *Objective) Name() string                  { return o.name }
func (o *Objective) ScopeLevel() string            { return o.scopeLevel }
func (o *Objective) RoutineOption() routine.Option { return o.routineOption }
func (o *Objective) StartDate() time.Time          { return o.startDate }
func (o *Objective) EndDate() time.Time            { return o.endDate }
func (o *Objective) RoutineRound() int             { return o.routineRound }
func (o *Objective) Status() Status                { return o.status }
func (o *Objective) TargetPoint() decimal.Decimal  { return o.targetPoint }
func (o *Objective) CreatedAt() time.Time          { return o.createdAt }
func (o *Objective) UpdatedAt() time.Time          { return o.updatedAt }

func (o *Objective) IsPending() bool { return o.status == StatusPending }

// Reschedule rewrites the occurrence window. Only pending occurrences
// may move; active or closed ones are history.
func (o *Objective) Reschedule(startDate, endDate time.Time) error {
	if !o.IsPending() {
		return ErrNotPending
	}
	o.startDate = startDate
	o.endDate = endDate
	o.updatedAt = time.Now()
	return nil
}

func (o *Objective) Rename(name string) error {
	if !o.IsPending() {
		return ErrNotPending
	}
	o.name = name
	o.updatedAt = time.Now()
	return nil
}
