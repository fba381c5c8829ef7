package objective

import (
	"strings"
	"time"

	"github.com/emetric-hq/emetric/pkg/serrors"
)

// UpdateDTO reschedules a single pending occurrence. An occurrence is
// updated as a one-off: recurrence parameters cannot change in place,
// only the window of this row (cascade handles the siblings).
type UpdateDTO struct {
	Name      string    `json:"name"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
}

func (d *UpdateDTO) Normalize() {
	d.Name = strings.TrimSpace(d.Name)
}

func (d *UpdateDTO) Validate() error {
	if d.Name == "" {
		return serrors.Validation("name", "name is required")
	}
	if d.StartDate.IsZero() {
		return serrors.Validation("start_date", "start date is required")
	}
	if d.EndDate.IsZero() || !d.StartDate.Before(d.EndDate) {
		return serrors.Validation("end_date", "end date must follow the start date")
	}
	return nil
}
