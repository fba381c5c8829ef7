package task

import (
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/emetric-hq/emetric/modules/calendar/domain/entities/workcal"
	"github.com/emetric-hq/emetric/pkg/constants"
	"github.com/emetric-hq/emetric/pkg/routine"
	"github.com/emetric-hq/emetric/pkg/serrors"
)

// CreateDTO is one recurring-task request. The routine option decides
// which recurrence sub-parameters apply: daily needs only RepeatEvery,
// weekly adds OccursDays, monthly takes either a day-of-month number or
// a position+weekday pair.
type CreateDTO struct {
	Name               string         `json:"name" validate:"required"`
	UplineInitiativeID uuid.UUID      `json:"upline_initiative_id" validate:"required"`
	Type               Type           `json:"task_type" validate:"required"`
	RoutineOption      routine.Option `json:"routine_option" validate:"required"`
	StartDate          time.Time      `json:"start_date" validate:"required"`
	StartHour          int            `json:"start_hour"`
	StartMinute        int            `json:"start_minute"`
	Duration           time.Duration  `json:"duration"`

	RepeatEvery          int                 `json:"repeat_every"`
	OccursDays           []time.Weekday      `json:"occurs_days"`
	OccursMonthDayNumber int                 `json:"occurs_month_day_number"`
	OccursMonthPosition  routine.DayPosition `json:"occurs_month_day_position"`
	OccursMonthDay       time.Weekday        `json:"occurs_month_day"`
	EndDate              *time.Time          `json:"end_date"`
	AfterOccurrence      int                 `json:"after_occurrence"`

	TurnAroundTimeTargetPoint decimal.Decimal `json:"turn_around_time_target_point"`
	QualityTargetPoint        decimal.Decimal `json:"quality_target_point"`
	QuantityTargetPoint       decimal.Decimal `json:"quantity_target_point"`
	QuantityTargetUnit        decimal.Decimal `json:"quantity_target_unit"`
	ReworkLimit               int             `json:"rework_limit"`
}

func (d *CreateDTO) Normalize() {
	d.Name = strings.TrimSpace(d.Name)
}

func (d *CreateDTO) Validate() error {
	if err := constants.Validate.Struct(d); err != nil {
		var vErrs validator.ValidationErrors
		if errors.As(err, &vErrs) {
			return serrors.FromValidator(vErrs)
		}
		return err
	}
	if !d.Type.Valid() {
		return serrors.Validation("task_type", "invalid task type")
	}
	if !AllowedRoutine(d.RoutineOption) {
		return serrors.Validation("routine_option", "invalid routine option for a task")
	}
	if _, err := workcal.NewTimeOfDay(d.StartHour, d.StartMinute); err != nil {
		return serrors.Validation("start_time", "invalid start time")
	}
	if d.Duration <= 0 {
		return serrors.Validation("duration", "duration must be positive")
	}
	if err := d.validateRecurrence(); err != nil {
		return err
	}
	if d.TurnAroundTimeTargetPoint.IsNegative() || d.QualityTargetPoint.IsNegative() ||
		d.QuantityTargetPoint.IsNegative() || d.QuantityTargetUnit.IsNegative() {
		return serrors.Validation("target_point", "target points cannot be negative")
	}
	if d.ReworkLimit < 0 {
		return serrors.Validation("rework_limit", "rework limit cannot be negative")
	}
	return nil
}

func (d *CreateDTO) validateRecurrence() error {
	if d.RoutineOption == routine.Once {
		return nil
	}
	if d.RepeatEvery < 1 {
		return serrors.Validation("repeat_every", "repeat every must be at least 1")
	}
	if d.EndDate == nil && d.AfterOccurrence <= 0 {
		return serrors.Validation("end_date", "an end date or an occurrence count is required")
	}
	switch d.RoutineOption {
	case routine.Weekly:
		if len(d.OccursDays) == 0 {
			return serrors.Validation("occurs_days", "weekly tasks need at least one weekday")
		}
	case routine.Monthly:
		byNumber := d.OccursMonthDayNumber >= 1 && d.OccursMonthDayNumber <= 31
		byPosition := d.OccursMonthPosition.Valid()
		if byNumber == byPosition {
			return serrors.Validation("occurs_month_day_number",
				"monthly tasks need a day number or a position and weekday, not both")
		}
	}
	return nil
}

func (d *CreateDTO) StartTime() workcal.TimeOfDay {
	return workcal.MustTimeOfDay(d.StartHour, d.StartMinute)
}

func (d *CreateDTO) RecurrenceParams() Recurrence {
	return Recurrence{
		RepeatEvery:          d.RepeatEvery,
		OccursDays:           d.OccursDays,
		OccursMonthDayNumber: d.OccursMonthDayNumber,
		OccursMonthPosition:  d.OccursMonthPosition,
		OccursMonthDay:       d.OccursMonthDay,
	}
}

func (d *CreateDTO) Targets() Targets {
	return Targets{
		TurnAroundTime: d.TurnAroundTimeTargetPoint,
		Quality:        d.QualityTargetPoint,
		Quantity:       d.QuantityTargetPoint,
		QuantityUnit:   d.QuantityTargetUnit,
		ReworkLimit:    d.ReworkLimit,
	}
}

// UpdateDTO reschedules one pending occurrence. Target points are
// write-once at creation; only the name and the schedule move.
type UpdateDTO struct {
	Name        string        `json:"name" validate:"required"`
	StartDate   time.Time     `json:"start_date" validate:"required"`
	StartHour   int           `json:"start_hour"`
	StartMinute int           `json:"start_minute"`
	Duration    time.Duration `json:"duration"`
}

func (d *UpdateDTO) Normalize() {
	d.Name = strings.TrimSpace(d.Name)
}

func (d *UpdateDTO) Validate() error {
	if err := constants.Validate.Struct(d); err != nil {
		var vErrs validator.ValidationErrors
		if errors.As(err, &vErrs) {
			return serrors.FromValidator(vErrs)
		}
		return err
	}
	if _, err := workcal.NewTimeOfDay(d.StartHour, d.StartMinute); err != nil {
		return serrors.Validation("start_time", "invalid start time")
	}
	if d.Duration <= 0 {
		return serrors.Validation("duration", "duration must be positive")
	}
	return nil
}

func (d *UpdateDTO) StartTime() workcal.TimeOfDay {
	return workcal.MustTimeOfDay(d.StartHour, d.StartMinute)
}
