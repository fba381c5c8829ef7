package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/emetric-hq/emetric/modules/strategy/domain/aggregates/objective"
	"github.com/emetric-hq/emetric/pkg/composables"
	"github.com/emetric-hq/emetric/pkg/routine"
)

const (
	objectiveFindQuery = `
		SELECT id, name, scope_level, routine_option, start_date, end_date,
		       routine_round, status, target_point, created_at, updated_at
		FROM objectives`
	objectiveInsertQuery = `
		INSERT INTO objectives (id, tenant_id, name, scope_level, routine_option, start_date,
		                        end_date, routine_round, status, target_point, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	objectiveUpdateQuery = `
		UPDATE objectives SET name = $3, start_date = $4, end_date = $5, updated_at = $6
		WHERE id = $1 AND tenant_id = $2`
	objectiveAddPointQuery = `
		UPDATE objectives SET target_point = target_point + $3, updated_at = now()
		WHERE id = $1 AND tenant_id = $2`
	objectiveTransitionQuery = `
		UPDATE objectives SET status = $4, updated_at = now()
		WHERE id = $1 AND tenant_id = $2 AND status = $3`
	objectiveDeleteQuery = `DELETE FROM objectives WHERE tenant_id = $1 AND id = ANY($2)`

	spreadFindQuery = `
		SELECT id, objective_id, perspective_id, relative_point, allocation
		FROM objective_perspective_spreads
		WHERE tenant_id = $1 AND objective_id = $2`
	spreadInsertQuery = `
		INSERT INTO objective_perspective_spreads (id, tenant_id, objective_id, perspective_id, relative_point, allocation)
		VALUES ($1, $2, $3, $4, $5, $6)`
	spreadAdjustQuery = `
		UPDATE objective_perspective_spreads SET allocation = allocation + $3
		WHERE id = $1 AND tenant_id = $2`
)

type ObjectiveRepository struct{}

func NewObjectiveRepository() objective.Repository {
	return &ObjectiveRepository{}
}

func (r *ObjectiveRepository) GetByID(ctx context.Context, id uuid.UUID) (*objective.Objective, error) {
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return nil, err
	}
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}

	row := tx.QueryRow(ctx, objectiveFindQuery+" WHERE id = $1 AND tenant_id = $2", id, tenantID)
	o, err := scanObjective(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, objective.ErrObjectiveNotFound
		}
		return nil, err
	}
	return o, nil
}

func (r *ObjectiveRepository) Create(ctx context.Context, objectives ...*objective.Objective) error {
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return err
	}
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}

	for _, o := range objectives {
		if _, err := tx.Exec(ctx, objectiveInsertQuery,
			o.ID(), tenantID, o.Name(), o.ScopeLevel(), string(o.RoutineOption()),
			o.StartDate(), o.EndDate(), o.RoutineRound(), string(o.Status()),
			o.TargetPoint(), o.CreatedAt(), o.UpdatedAt(),
		); err != nil {
			return err
		}
	}
	return nil
}

func (r *ObjectiveRepository) Update(ctx context.Context, o *objective.Objective) error {
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return err
	}
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	tag, err := tx.Exec(ctx, objectiveUpdateQuery,
		o.ID(), tenantID, o.Name(), o.StartDate(), o.EndDate(), o.UpdatedAt())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return objective.ErrObjectiveNotFound
	}
	return nil
}

func (r *ObjectiveRepository) Delete(ctx context.Context, ids ...uuid.UUID) error {
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
	_, err = tx.Exec(ctx, objectiveDeleteQuery, tenantID, ids)
	return err
}

func (r *ObjectiveRepository) PendingFrom(ctx context.Context, name string, from time.Time) ([]*objective.Objective, error) {
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return nil, err
	}
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}

	q := objectiveFindQuery + `
		WHERE tenant_id = $1 AND name = $2 AND status = $3 AND start_date >= $4
		ORDER BY routine_round`
	rows, err := tx.Query(ctx, q, tenantID, name, string(objective.StatusPending), from)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*objective.Objective
	for rows.Next() {
		o, err := scanObjective(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (r *ObjectiveRepository) AddTargetPoint(ctx context.Context, id uuid.UUID, delta decimal.Decimal) (bool, error) {
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return false, err
	}
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return false, err
	}
	tag, err := tx.Exec(ctx, objectiveAddPointQuery, id, tenantID, delta)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *ObjectiveRepository) TransitionStatus(ctx context.Context, id uuid.UUID, from, to objective.Status) (bool, error) {
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return false, err
	}
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return false, err
	}
	tag, err := tx.Exec(ctx, objectiveTransitionQuery, id, tenantID, string(from), string(to))
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *ObjectiveRepository) Spreads(ctx context.Context, objectiveID uuid.UUID) ([]*objective.Spread, error) {
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return nil, err
	}
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := tx.Query(ctx, spreadFindQuery, tenantID, objectiveID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*objective.Spread
	for rows.Next() {
		var (
			id, objID, perspID        uuid.UUID
			relativePoint, allocation decimal.Decimal
		)
		if err := rows.Scan(&id, &objID, &perspID, &relativePoint, &allocation); err != nil {
			return nil, err
		}
		out = append(out, objective.HydrateSpread(id, objID, perspID, relativePoint, allocation))
	}
	return out, rows.Err()
}

func (r *ObjectiveRepository) CreateSpreads(ctx context.Context, spreads ...*objective.Spread) error {
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return err
	}
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}

	for _, s := range spreads {
		if _, err := tx.Exec(ctx, spreadInsertQuery,
			s.ID(), tenantID, s.ObjectiveID(), s.PerspectiveID(), s.RelativePoint(), s.Allocation(),
		); err != nil {
			return err
		}
	}
	return nil
}

func (r *ObjectiveRepository) AdjustSpreadAllocation(ctx context.Context, spreadID uuid.UUID, share decimal.Decimal) error {
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return err
	}
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, spreadAdjustQuery, spreadID, tenantID, share)
	return err
}

func scanObjective(row pgx.Row) (*objective.Objective, error) {
	var (
		id                   uuid.UUID
		name, scope          string
		opt, status          string
		startDate, endDate   time.Time
		round                int
		targetPoint          decimal.Decimal
		createdAt, updatedAt time.Time
	)
	if err := row.Scan(&id, &name, &scope, &opt, &startDate, &endDate,
		&round, &status, &targetPoint, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	return objective.Hydrate(
		id, name, scope, routine.Option(opt), startDate, endDate,
		round, objective.Status(status), targetPoint, createdAt, updatedAt,
	), nil
}
