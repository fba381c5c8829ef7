package services

import (
	"context"
	"time"

	"github.com/go-faster/errors"

	"github.com/emetric-hq/emetric/modules/calendar/domain/entities/workcal"
)

// tenantLocation resolves the tenant's timezone from its work calendar.
// Tenants without a calendar schedule in UTC.
func tenantLocation(ctx context.Context, repo workcal.Repository) (*time.Location, error) {
	cal, err := repo.Get(ctx)
	if err != nil {
		if errors.Is(err, workcal.ErrWorkCalendarNotFound) {
			return time.UTC, nil
		}
		return nil, err
	}
	return cal.Location(), nil
}

func startOfDay(date time.Time, loc *time.Location) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, loc)
}

func endOfDay(date time.Time, loc *time.Location) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), 23, 59, 59, 0, loc)
}
