package services

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/emetric-hq/emetric/modules/strategy/domain/aggregates/initiative"
	"github.com/emetric-hq/emetric/modules/tasks/domain/aggregates/task"
	"github.com/emetric-hq/emetric/modules/tasks/domain/entities/submission"
	"github.com/emetric-hq/emetric/pkg/composables"
	"github.com/emetric-hq/emetric/pkg/serrors"
)

// SubmitDTO is one hand-in against a task. UserID decides the path: the
// owner submits work and moves the task to awaiting_rating, the
// assignor may only add a submission while rating is open.
type SubmitDTO struct {
	TaskID               uuid.UUID       `json:"task_id"`
	UserID               uuid.UUID       `json:"user_id"`
	QuantityUnitAchieved decimal.Decimal `json:"quantity_target_unit_achieved"`
	Remark               string          `json:"remark"`
}

type SubmissionService struct {
	tasks       task.Repository
	submissions submission.Repository
	initiatives initiative.Repository
}

func NewSubmissionService(
	tasks task.Repository,
	submissions submission.Repository,
	initiatives initiative.Repository,
) *SubmissionService {
	return &SubmissionService{
		tasks:       tasks,
		submissions: submissions,
		initiatives: initiatives,
	}
}

func (s *SubmissionService) ForTask(ctx context.Context, taskID uuid.UUID) ([]*submission.Submission, error) {
	return composables.InTenantTxResult(ctx, func(txCtx context.Context) ([]*submission.Submission, error) {
		return s.submissions.ForTask(txCtx, taskID)
	})
}

// Submit records the hand-in. An owner submission is only accepted while
// the task is active, over due or in a rework cycle, and flips the task
// to awaiting_rating.
func (s *SubmissionService) Submit(ctx context.Context, dto *SubmitDTO) (uuid.UUID, error) {
	if dto.TaskID == uuid.Nil {
		return uuid.Nil, serrors.Validation("task_id", "task id is required")
	}
	if dto.UserID == uuid.Nil {
		return uuid.Nil, serrors.Validation("user_id", "user id is required")
	}
	if dto.QuantityUnitAchieved.IsNegative() {
		return uuid.Nil, serrors.Validation("quantity_target_unit_achieved", "achieved unit cannot be negative")
	}

	return composables.InTenantTxResult(ctx, func(txCtx context.Context) (uuid.UUID, error) {
		t, err := s.tasks.GetByID(txCtx, dto.TaskID)
		if err != nil {
			return uuid.Nil, err
		}
		upline, err := s.initiatives.GetByID(txCtx, t.UplineInitiativeID())
		if err != nil {
			return uuid.Nil, err
		}

		if !t.Type().IsQuantitative() && !dto.QuantityUnitAchieved.IsZero() {
			return uuid.Nil, serrors.Validation("quantity_target_unit_achieved", "not valid for this task")
		}

		switch dto.UserID {
		case upline.OwnerID():
			if !t.CanSubmit() {
				return uuid.Nil, serrors.Validation("task_status", "owner cannot make a submission at this stage")
			}
		case upline.AssignorID():
			if !t.CanRate() {
				return uuid.Nil, serrors.Validation("task_status", "assignor cannot make a submission at this stage")
			}
		default:
			return uuid.Nil, serrors.Validation("user_id", "only the task owner or assignor may submit")
		}

		sub := submission.New(t.ID(), dto.UserID, dto.QuantityUnitAchieved, dto.Remark)
		if err := s.submissions.Create(txCtx, sub); err != nil {
			return uuid.Nil, err
		}

		if dto.UserID == upline.OwnerID() {
			if _, err := s.tasks.TransitionStatus(txCtx, t.ID(), t.Status(), task.StatusAwaitingRating); err != nil {
				return uuid.Nil, err
			}
		}
		return sub.ID(), nil
	})
}
