package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/emetric-hq/emetric/modules/strategy/domain/aggregates/initiative"
	"github.com/emetric-hq/emetric/pkg/composables"
	"github.com/emetric-hq/emetric/pkg/routine"
)

const (
	initiativeFindQuery = `
		SELECT id, name, upline_objective_id, upline_initiative_id, owner_id, assignor_id,
		       routine_option, start_date, end_date, routine_round, status, target_point,
		       created_at, updated_at
		FROM initiatives`
	initiativeInsertQuery = `
		INSERT INTO initiatives (id, tenant_id, name, upline_objective_id, upline_initiative_id,
		                         owner_id, assignor_id, routine_option, start_date, end_date,
		                         routine_round, status, target_point, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`
	initiativeUpdateQuery = `
		UPDATE initiatives SET name = $3, start_date = $4, end_date = $5, updated_at = $6
		WHERE id = $1 AND tenant_id = $2`
	initiativeAddPointQuery = `
		UPDATE initiatives SET target_point = target_point + $3, updated_at = now()
		WHERE id = $1 AND tenant_id = $2`
	initiativeTransitionQuery = `
		UPDATE initiatives SET status = $4, updated_at = now()
		WHERE id = $1 AND tenant_id = $2 AND status = $3`
	initiativeDeleteQuery = `DELETE FROM initiatives WHERE tenant_id = $1 AND id = ANY($2)`
)

type InitiativeRepository struct{}

func NewInitiativeRepository() initiative.Repository {
	return &InitiativeRepository{}
}

func (r *InitiativeRepository) GetByID(ctx context.Context, id uuid.UUID) (*initiative.Initiative, error) {
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return nil, err
	}
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}

	row := tx.QueryRow(ctx, initiativeFindQuery+" WHERE id = $1 AND tenant_id = $2", id, tenantID)
	i, err := scanInitiative(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, initiative.ErrInitiativeNotFound
		}
		return nil, err
	}
	return i, nil
}

func (r *InitiativeRepository) Create(ctx context.Context, initiatives ...*initiative.Initiative) error {
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return err
	}
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}

	for _, i := range initiatives {
		if _, err := tx.Exec(ctx, initiativeInsertQuery,
			i.ID(), tenantID, i.Name(),
			nullableUUID(i.Upline().ObjectiveID), nullableUUID(i.Upline().InitiativeID),
			i.OwnerID(), nullableUUID(i.AssignorID()),
			string(i.RoutineOption()), i.StartDate(), i.EndDate(),
			i.RoutineRound(), string(i.Status()), i.TargetPoint(),
			i.CreatedAt(), i.UpdatedAt(),
		); err != nil {
			return err
		}
	}
	return nil
}

func (r *InitiativeRepository) Update(ctx context.Context, i *initiative.Initiative) error {
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return err
	}
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	tag, err := tx.Exec(ctx, initiativeUpdateQuery,
		i.ID(), tenantID, i.Name(), i.StartDate(), i.EndDate(), i.UpdatedAt())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return initiative.ErrInitiativeNotFound
	}
	return nil
}

func (r *InitiativeRepository) Delete(ctx context.Context, ids ...uuid.UUID) error {
	if len(ids) == 0 {
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
	_, err = tx.Exec(ctx, initiativeDeleteQuery, tenantID, ids)
	return err
}

func (r *InitiativeRepository) PendingFrom(ctx context.Context, name string, from time.Time) ([]*initiative.Initiative, error) {
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return nil, err
	}
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}

	q := initiativeFindQuery + `
		WHERE tenant_id = $1 AND name = $2 AND status = $3 AND start_date >= $4
		ORDER BY routine_round`
	rows, err := tx.Query(ctx, q, tenantID, name, string(initiative.StatusPending), from)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*initiative.Initiative
	for rows.Next() {
		i, err := scanInitiative(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, i)
	}
	return out, rows.Err()
}

func (r *InitiativeRepository) AddTargetPoint(ctx context.Context, id uuid.UUID, delta decimal.Decimal) (bool, error) {
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return false, err
	}
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return false, err
	}
	tag, err := tx.Exec(ctx, initiativeAddPointQuery, id, tenantID, delta)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *InitiativeRepository) TransitionStatus(ctx context.Context, id uuid.UUID, from, to initiative.Status) (bool, error) {
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return false, err
	}
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return false, err
	}
	tag, err := tx.Exec(ctx, initiativeTransitionQuery, id, tenantID, string(from), string(to))
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func scanInitiative(row pgx.Row) (*initiative.Initiative, error) {
	var (
		id                   uuid.UUID
		name                 string
		uplineObj, uplineIni *uuid.UUID
		ownerID              uuid.UUID
		assignorID           *uuid.UUID
		opt, status          string
		startDate, endDate   time.Time
		round                int
		targetPoint          decimal.Decimal
		createdAt, updatedAt time.Time
	)
	if err := row.Scan(&id, &name, &uplineObj, &uplineIni, &ownerID, &assignorID,
		&opt, &startDate, &endDate, &round, &status, &targetPoint,
		&createdAt, &updatedAt); err != nil {
		return nil, err
	}
	return initiative.Hydrate(
		id, name,
		initiative.Upline{ObjectiveID: derefUUID(uplineObj), InitiativeID: derefUUID(uplineIni)},
		ownerID, derefUUID(assignorID),
		routine.Option(opt), startDate, endDate, round,
		initiative.Status(status), targetPoint, createdAt, updatedAt,
	), nil
}

func nullableUUID(id uuid.UUID) *uuid.UUID {
	if id == uuid.Nil {
		return nil
	}
	return &id
}

func derefUUID(id *uuid.UUID) uuid.UUID {
	if id == nil {
		return uuid.Nil
	}
	return *id
}
