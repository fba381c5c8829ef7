package objective

import (
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/emetric-hq/emetric/pkg/constants"
	"github.com/emetric-hq/emetric/pkg/routine"
	"github.com/emetric-hq/emetric/pkg/serrors"
)

type SpreadDTO struct {
	PerspectiveID uuid.UUID       `json:"perspective_id" validate:"required"`
	RelativePoint decimal.Decimal `json:"relative_point"`
}

// CreateDTO is one recurring-objective request. Exactly one of EndDate
// and AfterOccurrence must be set; "once" requires EndDate.
type CreateDTO struct {
	Name            string         `json:"name" validate:"required"`
	ScopeLevel      string         `json:"scope_level"`
	RoutineOption   routine.Option `json:"routine_option" validate:"required"`
	StartDate       time.Time      `json:"start_date" validate:"required"`
	EndDate         *time.Time     `json:"end_date"`
	AfterOccurrence int            `json:"after_occurrence"`
	Spreads         []SpreadDTO    `json:"spreads" validate:"min=1,dive"`
}

func (d *CreateDTO) Normalize() {
	d.Name = strings.TrimSpace(d.Name)
	d.ScopeLevel = strings.TrimSpace(d.ScopeLevel)
}

func (d *CreateDTO) Validate() error {
	if err := constants.Validate.Struct(d); err != nil {
		var vErrs validator.ValidationErrors
		if errors.As(err, &vErrs) {
			return serrors.FromValidator(vErrs)
		}
		return err
	}
	if !AllowedRoutine(d.RoutineOption) {
		return serrors.Validation("routine_option", "invalid routine option for an objective")
	}
	if err := validateScheduleChoice(d.RoutineOption, d.EndDate, d.AfterOccurrence); err != nil {
		return err
	}
	for _, s := range d.Spreads {
		if !s.RelativePoint.IsPositive() {
			return serrors.Validation("relative_point", "relative point must be positive")
		}
	}
	return nil
}

// Spec converts the DTO into a generator input.
func (d *CreateDTO) Spec() routine.Spec {
	spec := routine.Spec{
		Option:          d.RoutineOption,
		Start:           d.StartDate,
		AfterOccurrence: d.AfterOccurrence,
	}
	if d.EndDate != nil {
		spec.End = *d.EndDate
	}
	return spec
}

func validateScheduleChoice(opt routine.Option, endDate *time.Time, afterOccurrence int) error {
	if opt == routine.Once {
		if endDate == nil {
			return serrors.Validation("end_date", "end date is required for a one-off schedule")
		}
		return nil
	}
	if (endDate == nil) == (afterOccurrence <= 0) {
		return serrors.Validation("end_date", "exactly one of end date and after occurrence is required")
	}
	return nil
}
