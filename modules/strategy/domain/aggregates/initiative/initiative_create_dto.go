package initiative

import (
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/emetric-hq/emetric/pkg/constants"
	"github.com/emetric-hq/emetric/pkg/routine"
	"github.com/emetric-hq/emetric/pkg/serrors"
)

// CreateDTO is one recurring-initiative request. The upline reference
// decides whose window contains the expansion: an objective or a parent
// initiative, never both.
type CreateDTO struct {
	Name               string         `json:"name" validate:"required"`
	UplineObjectiveID  uuid.UUID      `json:"upline_objective_id"`
	UplineInitiativeID uuid.UUID      `json:"upline_initiative_id"`
	OwnerID            uuid.UUID      `json:"owner_id" validate:"required"`
	AssignorID         uuid.UUID      `json:"assignor_id"`
	RoutineOption      routine.Option `json:"routine_option" validate:"required"`
	StartDate          time.Time      `json:"start_date" validate:"required"`
	EndDate            *time.Time     `json:"end_date"`
	AfterOccurrence    int            `json:"after_occurrence"`
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
	if !d.RoutineOption.Valid() {
		return serrors.Validation("routine_option", "invalid routine option")
	}
	if err := d.Upline().Validate(); err != nil {
		return serrors.Validation("upline", "exactly one upline reference is required")
	}
	if d.RoutineOption == routine.Once {
		if d.EndDate == nil {
			return serrors.Validation("end_date", "end date is required for a one-off schedule")
		}
		return nil
	}
	if (d.EndDate == nil) == (d.AfterOccurrence <= 0) {
		return serrors.Validation("end_date", "exactly one of end date and after occurrence is required")
	}
	return nil
}

func (d *CreateDTO) Upline() Upline {
	return Upline{ObjectiveID: d.UplineObjectiveID, InitiativeID: d.UplineInitiativeID}
}

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
