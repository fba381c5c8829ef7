package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/emetric-hq/emetric/modules/calendar/domain/entities/holiday"
	"github.com/emetric-hq/emetric/pkg/composables"
)

const (
	holidayRangeQuery = `
		SELECT id, name, date FROM holidays
		WHERE tenant_id = $1 AND date BETWEEN $2 AND $3
		ORDER BY date`
	holidayInsertQuery = `
		INSERT INTO holidays (id, tenant_id, name, date) VALUES ($1, $2, $3, $4)`
	holidayDeleteQuery = `DELETE FROM holidays WHERE id = $1 AND tenant_id = $2`
)

type HolidayRepository struct{}

func NewHolidayRepository() holiday.Repository {
	return &HolidayRepository{}
}

func (r *HolidayRepository) InRange(ctx context.Context, from, to time.Time) ([]*holiday.Holiday, error) {
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return nil, err
	}
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := tx.Query(ctx, holidayRangeQuery, tenantID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var holidays []*holiday.Holiday
	for rows.Next() {
		var (
			id   uuid.UUID
			name string
			date time.Time
		)
		if err := rows.Scan(&id, &name, &date); err != nil {
			return nil, err
		}
		holidays = append(holidays, holiday.Hydrate(id, name, date))
	}
	return holidays, rows.Err()
}

func (r *HolidayRepository) Create(ctx context.Context, h *holiday.Holiday) error {
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return err
	}
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, holidayInsertQuery, h.ID(), tenantID, h.Name(), h.Date())
	return err
}

func (r *HolidayRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return err
	}
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	tag, err := tx.Exec(ctx, holidayDeleteQuery, id, tenantID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return holiday.ErrHolidayNotFound
	}
	return nil
}
