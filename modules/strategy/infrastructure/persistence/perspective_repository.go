package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/emetric-hq/emetric/modules/strategy/domain/aggregates/perspective"
	"github.com/emetric-hq/emetric/pkg/composables"
)

const (
	perspectiveFindQuery = `
		SELECT id, name, target_point, created_at, updated_at FROM perspectives`
	perspectiveInsertQuery = `
		INSERT INTO perspectives (id, tenant_id, name, target_point, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	perspectiveAddPointQuery = `
		UPDATE perspectives SET target_point = target_point + $3, updated_at = now()
		WHERE id = $1 AND tenant_id = $2`
	perspectiveDeleteQuery = `DELETE FROM perspectives WHERE id = $1 AND tenant_id = $2`
)

type PerspectiveRepository struct{}

func NewPerspectiveRepository() perspective.Repository {
	return &PerspectiveRepository{}
}

func (r *PerspectiveRepository) GetByID(ctx context.Context, id uuid.UUID) (*perspective.Perspective, error) {
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return nil, err
	}
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}

	row := tx.QueryRow(ctx, perspectiveFindQuery+" WHERE id = $1 AND tenant_id = $2", id, tenantID)
	p, err := scanPerspective(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, perspective.ErrPerspectiveNotFound
		}
		return nil, err
	}
	return p, nil
}

func (r *PerspectiveRepository) GetAll(ctx context.Context) ([]*perspective.Perspective, error) {
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return nil, err
	}
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := tx.Query(ctx, perspectiveFindQuery+" WHERE tenant_id = $1 ORDER BY name", tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*perspective.Perspective
	for rows.Next() {
		p, err := scanPerspective(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *PerspectiveRepository) Create(ctx context.Context, p *perspective.Perspective) error {
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return err
	}
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, perspectiveInsertQuery,
		p.ID(), tenantID, p.Name(), p.TargetPoint(), p.CreatedAt(), p.UpdatedAt())
	return err
}

func (r *PerspectiveRepository) AddTargetPoint(ctx context.Context, id uuid.UUID, delta decimal.Decimal) (bool, error) {
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return false, err
	}
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return false, err
	}
	tag, err := tx.Exec(ctx, perspectiveAddPointQuery, id, tenantID, delta)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *PerspectiveRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return err
	}
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	tag, err := tx.Exec(ctx, perspectiveDeleteQuery, id, tenantID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return perspective.ErrPerspectiveNotFound
	}
	return nil
}

func scanPerspective(row pgx.Row) (*perspective.Perspective, error) {
	var (
		id                   uuid.UUID
		name                 string
		targetPoint          decimal.Decimal
		createdAt, updatedAt time.Time
	)
	if err := row.Scan(&id, &name, &targetPoint, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	return perspective.Hydrate(id, name, targetPoint, createdAt, updatedAt), nil
}
