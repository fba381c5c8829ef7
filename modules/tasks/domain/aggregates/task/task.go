package task

import (
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/emetric-hq/emetric/modules/calendar/domain/entities/workcal"
	"github.com/emetric-hq/emetric/pkg/routine"
)

var (
	ErrTaskNotFound    = errors.New("task not found")
	ErrNotPending      = errors.New("task is not pending")
	ErrNotRatable      = errors.New("task cannot be rated at this stage")
	ErrReworkExhausted = errors.New("rework limit is zero")
)

type Type string

const (
	TypeQualitative  Type = "qualitative"
	TypeQuantitative Type = "quantitative"
	TypeBoth         Type = "quantitative_and_qualitative"
)

func (t Type) Valid() bool {
	switch t {
	case TypeQualitative, TypeQuantitative, TypeBoth:
		return true
	}
	return false
}

func (t Type) IsQualitative() bool  { return t == TypeQualitative || t == TypeBoth }
func (t Type) IsQuantitative() bool { return t == TypeQuantitative || t == TypeBoth }

type Status string

const (
	StatusPending        Status = "pending"
	StatusActive         Status = "active"
	StatusOverDue        Status = "over_due"
	StatusAwaitingRating Status = "awaiting_rating"
	StatusRework         Status = "rework"
	StatusReworkOverDue  Status = "rework_over_due"
	StatusClosed         Status = "closed"
)

// AllowedRoutine reports whether a task may use the recurrence option.
// Tasks recur at day granularity, so the coarser strategy options are
// out.
func AllowedRoutine(o routine.Option) bool {
	switch o {
	case routine.Once, routine.Daily, routine.Weekly, routine.Monthly:
		return true
	}
	return false
}

// Recurrence carries the sub-parameters that refine a task's routine
// option: the every-N throttle, the weekday set for weekly tasks, and
// either a day-of-month number or a position+weekday pair for monthly
// tasks.
type Recurrence struct {
	RepeatEvery          int
	OccursDays           []time.Weekday
	OccursMonthDayNumber int
	OccursMonthPosition  routine.DayPosition
	OccursMonthDay       time.Weekday
}

// Targets holds the caller-supplied sub-targets before type rules are
// applied. A quantitative task cannot carry quality points or rework
// cycles; a qualitative task cannot carry quantity points.
type Targets struct {
	TurnAroundTime decimal.Decimal
	Quality        decimal.Decimal
	Quantity       decimal.Decimal
	QuantityUnit   decimal.Decimal
	ReworkLimit    int
}

// normalize applies the type rules and returns the derived target
// point, the sum of the three surviving sub-targets.
func (t Targets) normalize(taskType Type) (Targets, decimal.Decimal) {
	if taskType == TypeQuantitative {
		t.ReworkLimit = 0
		t.Quality = decimal.Zero
	}
	if taskType == TypeQualitative {
		t.Quantity = decimal.Zero
		t.QuantityUnit = decimal.Zero
	}
	return t, t.TurnAroundTime.Add(t.Quality).Add(t.Quantity)
}

// Task is one dated occurrence of a unit of assignable work under an
// initiative. Recurrence produces N independent rows sharing a logical
// name with ascending rounds; each row owns its own schedule, status
// and point ledger.
type Task struct {
	id                 uuid.UUID
	name               string
	uplineInitiativeID uuid.UUID
	taskType           Type
	routineOption      routine.Option
	recurrence         Recurrence
	routineRound       int
	startDate          time.Time
	startTime          workcal.TimeOfDay
	duration           time.Duration
	status             Status

	turnAroundTimeTarget   decimal.Decimal
	turnAroundTimeAchieved decimal.Decimal
	qualityTarget          decimal.Decimal
	qualityAchieved        decimal.Decimal
	quantityTarget         decimal.Decimal
	quantityAchieved       decimal.Decimal
	quantityTargetUnit     decimal.Decimal
	quantityUnitAchieved   decimal.Decimal
	targetPoint            decimal.Decimal
	targetPointAchieved    decimal.Decimal

	reworkLimit   int
	reworkRemark  string
	reworkEndDate time.Time
	reworkEndTime workcal.TimeOfDay
	ratingRemark  string

	createdAt time.Time
	updatedAt time.Time
}

func New(
	name string,
	uplineInitiativeID uuid.UUID,
	taskType Type,
	opt routine.Option,
	rec Recurrence,
	startDate time.Time,
	startTime workcal.TimeOfDay,
	duration time.Duration,
	round int,
	targets Targets,
) *Task {
	targets, targetPoint := targets.normalize(taskType)
	now := time.Now()
	return &Task{
		id:                 uuid.New(),
		name:               name,
		uplineInitiativeID: uplineInitiativeID,
		taskType:           taskType,
		routineOption:      opt,
		recurrence:         rec,
		routineRound:       round,
		startDate:          routine.Date(startDate),
		startTime:          startTime,
		duration:           duration,
		status:             StatusPending,
		turnAroundTimeTarget: targets.TurnAroundTime,
		qualityTarget:        targets.Quality,
		quantityTarget:       targets.Quantity,
		quantityTargetUnit:   targets.QuantityUnit,
		targetPoint:          targetPoint,
		reworkLimit:          targets.ReworkLimit,
		createdAt:            now,
		updatedAt:            now,
	}
}

func (t *Task) ID() uuid.UUID                 { return t.id }
func (t *Task) Name() string                  { return t.name }
func (t *Task) UplineInitiativeID() uuid.UUID { return t.uplineInitiativeID }
func (t *Task) Type() Type                    { return t.taskType }
func (t *Task) RoutineOption() routine.Option { return t.routineOption }
func (t *Task) Recurrence() Recurrence        { return t.recurrence }
func (t *Task) RoutineRound() int             { return t.routineRound }
func (t *Task) StartDate() time.Time          { return t.startDate }
func (t *Task) StartTime() workcal.TimeOfDay  { return t.startTime }
func (t *Task) Duration() time.Duration       { return t.duration }
func (t *Task) Status() Status                { return t.status }

func (t *Task) TurnAroundTimeTarget() decimal.Decimal   { return t.turnAroundTimeTarget }
func (t *Task) TurnAroundTimeAchieved() decimal.Decimal { return t.turnAroundTimeAchieved }
func (t *Task) QualityTarget() decimal.Decimal          { return t.qualityTarget }
func (t *Task) QualityAchieved() decimal.Decimal        { return t.qualityAchieved }
func (t *Task) QuantityTarget() decimal.Decimal         { return t.quantityTarget }
func (t *Task) QuantityAchieved() decimal.Decimal       { return t.quantityAchieved }
func (t *Task) QuantityTargetUnit() decimal.Decimal     { return t.quantityTargetUnit }
func (t *Task) QuantityUnitAchieved() decimal.Decimal   { return t.quantityUnitAchieved }
func (t *Task) TargetPoint() decimal.Decimal            { return t.targetPoint }
func (t *Task) TargetPointAchieved() decimal.Decimal    { return t.targetPointAchieved }

func (t *Task) ReworkLimit() int                  { return t.reworkLimit }
func (t *Task) ReworkRemark() string              { return t.reworkRemark }
func (t *Task) ReworkEndDate() time.Time          { return t.reworkEndDate }
func (t *Task) ReworkEndTime() workcal.TimeOfDay  { return t.reworkEndTime }
func (t *Task) RatingRemark() string              { return t.ratingRemark }
func (t *Task) CreatedAt() time.Time              { return t.createdAt }
func (t *Task) UpdatedAt() time.Time              { return t.updatedAt }

func (t *Task) IsPending() bool { return t.status == StatusPending }

// StartAt is the occurrence start in the tenant's location.
func (t *Task) StartAt(loc *time.Location) time.Time {
	return t.startTime.At(t.startDate, loc)
}

// EndAt is the occurrence deadline in the tenant's location.
func (t *Task) EndAt(loc *time.Location) time.Time {
	return t.StartAt(loc).Add(t.duration)
}

// ReworkEndAt is the open rework cycle's deadline. Only meaningful
// after OpenRework has run.
func (t *Task) ReworkEndAt(loc *time.Location) time.Time {
	return t.reworkEndTime.At(t.reworkEndDate, loc)
}

// CanSubmit reports whether the owner may hand in work right now.
func (t *Task) CanSubmit() bool {
	switch t.status {
	case StatusActive, StatusOverDue, StatusRework, StatusReworkOverDue:
		return true
	}
	return false
}

func (t *Task) CanRate() bool { return t.status == StatusAwaitingRating }

func (t *Task) Rename(name string) error {
	if !t.IsPending() {
		return ErrNotPending
	}
	t.name = name
	t.updatedAt = time.Now()
	return nil
}

func (t *Task) Reschedule(startDate time.Time, startTime workcal.TimeOfDay, duration time.Duration) error {
	if !t.IsPending() {
		return ErrNotPending
	}
	t.startDate = routine.Date(startDate)
	t.startTime = startTime
	t.duration = duration
	t.updatedAt = time.Now()
	return nil
}

// OpenRework spends one rework cycle: the remaining limit drops by one
// and the task gets a fresh deadline. The caller schedules the matching
// rework_overdue job keyed by the new limit value.
func (t *Task) OpenRework(remark string, endDate time.Time, endTime workcal.TimeOfDay) error {
	if !t.CanRate() {
		return ErrNotRatable
	}
	if t.reworkLimit == 0 {
		return ErrReworkExhausted
	}
	t.reworkLimit--
	t.reworkRemark = remark
	t.reworkEndDate = routine.Date(endDate)
	t.reworkEndTime = endTime
	t.status = StatusRework
	t.updatedAt = time.Now()
	return nil
}

// Close records the rated achievement and closes the task. Achieved
// sub-points are stored as computed by the rating service; the total is
// their sum.
func (t *Task) Close(tat, quality, quantity, quantityUnit decimal.Decimal, remark string) error {
	if !t.CanRate() {
		return ErrNotRatable
	}
	t.turnAroundTimeAchieved = tat
	t.qualityAchieved = quality
	t.quantityAchieved = quantity
	t.quantityUnitAchieved = quantityUnit
	t.targetPointAchieved = tat.Add(quality).Add(quantity)
	t.ratingRemark = remark
	t.status = StatusClosed
	t.updatedAt = time.Now()
	return nil
}
