package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/emetric-hq/emetric/modules/tasks/domain/entities/submission"
	"github.com/emetric-hq/emetric/pkg/composables"
)

const (
	submissionInsertQuery = `
		INSERT INTO task_submissions (id, tenant_id, task_id, user_id, quantity_target_unit_achieved, remark, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	submissionForTaskQuery = `
		SELECT id, task_id, user_id, quantity_target_unit_achieved, remark, created_at
		FROM task_submissions
		WHERE tenant_id = $1 AND task_id = $2
		ORDER BY created_at DESC`
	submissionDeleteQuery = `DELETE FROM task_submissions WHERE tenant_id = $1 AND task_id = ANY($2)`
)

type SubmissionRepository struct{}

func NewSubmissionRepository() submission.Repository {
	return &SubmissionRepository{}
}

func (r *SubmissionRepository) Create(ctx context.Context, s *submission.Submission) error {
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return err
	}
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, submissionInsertQuery,
		s.ID(), tenantID, s.TaskID(), s.UserID(), s.QuantityUnitAchieved(), s.Remark(), s.CreatedAt())
	return err
}

func (r *SubmissionRepository) ForTask(ctx context.Context, taskID uuid.UUID) ([]*submission.Submission, error) {
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return nil, err
	}
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := tx.Query(ctx, submissionForTaskQuery, tenantID, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*submission.Submission
	for rows.Next() {
		var (
			id, tID, userID uuid.UUID
			unitAchieved    decimal.Decimal
			remark          string
			createdAt       time.Time
		)
		if err := rows.Scan(&id, &tID, &userID, &unitAchieved, &remark, &createdAt); err != nil {
			return nil, err
		}
		out = append(out, submission.Hydrate(id, tID, userID, unitAchieved, remark, createdAt))
	}
	return out, rows.Err()
}

func (r *SubmissionRepository) DeleteForTasks(ctx context.Context, taskIDs ...uuid.UUID) error {
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
	_, err = tx.Exec(ctx, submissionDeleteQuery, tenantID, taskIDs)
	return err
}
