package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/emetric-hq/emetric/modules/calendar/domain/entities/busy"
	"github.com/emetric-hq/emetric/pkg/composables"
)

const (
	busyRangeQuery = `
		SELECT id, name, owner_id, task_id, is_free, start_time, end_time
		FROM busy_intervals
		WHERE tenant_id = $1 AND owner_id = $2 AND start_time < $4 AND end_time > $3
		ORDER BY start_time`
	busyInsertQuery = `
		INSERT INTO busy_intervals (id, tenant_id, name, owner_id, task_id, is_free, start_time, end_time)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	busyRepointQuery = `
		UPDATE busy_intervals SET start_time = $3, end_time = $4
		WHERE tenant_id = $1 AND task_id = $2`
	busyDeleteByTaskQuery = `
		DELETE FROM busy_intervals WHERE tenant_id = $1 AND task_id = ANY($2)`
)

type BusyIntervalRepository struct{}

func NewBusyIntervalRepository() busy.Repository {
	return &BusyIntervalRepository{}
}

func (r *BusyIntervalRepository) ForOwnerInRange(ctx context.Context, ownerID uuid.UUID, from, to time.Time) ([]*busy.Interval, error) {
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return nil, err
	}
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := tx.Query(ctx, busyRangeQuery, tenantID, ownerID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var intervals []*busy.Interval
	for rows.Next() {
		var (
			id, owner  uuid.UUID
			taskID     *uuid.UUID
			name       string
			isFree     bool
			start, end time.Time
		)
		if err := rows.Scan(&id, &name, &owner, &taskID, &isFree, &start, &end); err != nil {
			return nil, err
		}
		task := uuid.Nil
		if taskID != nil {
			task = *taskID
		}
		intervals = append(intervals, busy.Hydrate(id, name, owner, task, isFree, start, end))
	}
	return intervals, rows.Err()
}

func (r *BusyIntervalRepository) Create(ctx context.Context, intervals ...*busy.Interval) error {
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return err
	}
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}

	for _, iv := range intervals {
		var taskID *uuid.UUID
		if iv.TaskID() != uuid.Nil {
			id := iv.TaskID()
			taskID = &id
		}
		if _, err := tx.Exec(ctx, busyInsertQuery,
			iv.ID(), tenantID, iv.Name(), iv.OwnerID(), taskID, iv.IsFree(), iv.Start(), iv.End(),
		); err != nil {
			return err
		}
	}
	return nil
}

func (r *BusyIntervalRepository) RepointTask(ctx context.Context, taskID uuid.UUID, start, end time.Time) error {
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return err
	}
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, busyRepointQuery, tenantID, taskID, start, end)
	return err
}

func (r *BusyIntervalRepository) DeleteByTask(ctx context.Context, taskIDs ...uuid.UUID) error {
	if len(taskIDs) == 0 {
		return nil
	}
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return err
	}
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, busyDeleteByTaskQuery, tenantID, taskIDs)
	return err
}
