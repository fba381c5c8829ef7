package jobs

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/emetric-hq/emetric/pkg/composables"
)

// Store persists transition jobs. All write operations run in the
// caller's transaction so jobs commit or roll back with the occurrence
// rows they belong to.
type Store interface {
	Schedule(ctx context.Context, key Key, fireAt time.Time) error
	Reschedule(ctx context.Context, key Key, fireAt time.Time) error
	Cancel(ctx context.Context, key Key) error
	CancelEntity(ctx context.Context, tenantID uuid.UUID, kind EntityKind, entityIDs ...uuid.UUID) error
}

const (
	jobScheduleQuery = `
		INSERT INTO transition_jobs (id, tenant_id, entity_kind, entity_id, phase, round, fire_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (tenant_id, entity_kind, entity_id, phase, round)
		DO UPDATE SET fire_at = EXCLUDED.fire_at`
	jobRescheduleQuery = `
		UPDATE transition_jobs SET fire_at = $6
		WHERE tenant_id = $1 AND entity_kind = $2 AND entity_id = $3 AND phase = $4 AND round = $5`
	jobCancelQuery = `
		DELETE FROM transition_jobs
		WHERE tenant_id = $1 AND entity_kind = $2 AND entity_id = $3 AND phase = $4 AND round = $5`
	jobCancelEntityQuery = `
		DELETE FROM transition_jobs
		WHERE tenant_id = $1 AND entity_kind = $2 AND entity_id = ANY($3)`
)

type PgStore struct{}

func NewPgStore() *PgStore {
	return &PgStore{}
}

// Schedule inserts or re-points the job identified by key. The upsert
// makes update paths safe to call without knowing whether the job
// already exists.
func (s *PgStore) Schedule(ctx context.Context, key Key, fireAt time.Time) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, jobScheduleQuery,
		uuid.New(), key.TenantID, key.EntityKind, key.EntityID, key.Phase, key.Round, fireAt)
	return err
}

func (s *PgStore) Reschedule(ctx context.Context, key Key, fireAt time.Time) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, jobRescheduleQuery,
		key.TenantID, key.EntityKind, key.EntityID, key.Phase, key.Round, fireAt)
	return err
}

func (s *PgStore) Cancel(ctx context.Context, key Key) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, jobCancelQuery,
		key.TenantID, key.EntityKind, key.EntityID, key.Phase, key.Round)
	return err
}

// CancelEntity removes every pending job of the given entities in one
// statement, used by delete paths.
func (s *PgStore) CancelEntity(ctx context.Context, tenantID uuid.UUID, kind EntityKind, entityIDs ...uuid.UUID) error {
	if len(entityIDs) == 0 {
		return nil
	}
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, jobCancelEntityQuery, tenantID, kind, entityIDs)
	return err
}
