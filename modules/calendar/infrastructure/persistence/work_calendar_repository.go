package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/emetric-hq/emetric/modules/calendar/domain/entities/workcal"
	"github.com/emetric-hq/emetric/pkg/composables"
)

const (
	workCalendarFindQuery = `
		SELECT work_start, work_stop, break_start, break_stop, work_days, timezone, updated_at
		FROM work_calendars WHERE tenant_id = $1`
	workCalendarUpsertQuery = `
		INSERT INTO work_calendars (tenant_id, work_start, work_stop, break_start, break_stop, work_days, timezone, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now())
		ON CONFLICT (tenant_id) DO UPDATE SET
			work_start = EXCLUDED.work_start,
			work_stop = EXCLUDED.work_stop,
			break_start = EXCLUDED.break_start,
			break_stop = EXCLUDED.break_stop,
			work_days = EXCLUDED.work_days,
			timezone = EXCLUDED.timezone,
			updated_at = now()`
)

type WorkCalendarRepository struct{}

func NewWorkCalendarRepository() workcal.Repository {
	return &WorkCalendarRepository{}
}

func (r *WorkCalendarRepository) Get(ctx context.Context) (*workcal.WorkCalendar, error) {
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return nil, err
	}
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}

	var (
		workStart, workStop   pgtype.Time
		breakStart, breakStop pgtype.Time
		workDays              []int32
		timezone              string
		updatedAt             time.Time
	)
	if err := tx.QueryRow(ctx, workCalendarFindQuery, tenantID).Scan(
		&workStart, &workStop, &breakStart, &breakStop, &workDays, &timezone, &updatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, workcal.ErrWorkCalendarNotFound
		}
		return nil, err
	}

	days := make([]time.Weekday, 0, len(workDays))
	for _, d := range workDays {
		days = append(days, time.Weekday(d))
	}
	return workcal.New(
		timeOfDay(workStart),
		timeOfDay(workStop),
		days,
		timezone,
		workcal.WithBreak(timeOfDay(breakStart), timeOfDay(breakStop)),
		workcal.WithUpdatedAt(updatedAt),
	)
}

func (r *WorkCalendarRepository) Save(ctx context.Context, c *workcal.WorkCalendar) error {
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return err
	}
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}

	days := make([]int32, 0, 7)
	for _, d := range c.WorkDays() {
		days = append(days, int32(d))
	}
	_, err = tx.Exec(ctx, workCalendarUpsertQuery,
		tenantID,
		pgTime(c.WorkStart()),
		pgTime(c.WorkStop()),
		pgTime(c.BreakStart()),
		pgTime(c.BreakStop()),
		days,
		c.Timezone(),
	)
	return err
}

func timeOfDay(t pgtype.Time) workcal.TimeOfDay {
	minutes := int(t.Microseconds / 60_000_000)
	return workcal.MustTimeOfDay(minutes/60, minutes%60)
}

func pgTime(t workcal.TimeOfDay) pgtype.Time {
	return pgtype.Time{Microseconds: int64(t.Minutes()) * 60_000_000, Valid: true}
}
