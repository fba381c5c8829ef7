package services

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/emetric-hq/emetric/modules/calendar/domain/entities/workcal"
	"github.com/emetric-hq/emetric/modules/strategy/domain/aggregates/initiative"
	"github.com/emetric-hq/emetric/modules/tasks/domain/aggregates/task"
	"github.com/emetric-hq/emetric/modules/tasks/domain/entities/submission"
	"github.com/emetric-hq/emetric/pkg/composables"
	"github.com/emetric-hq/emetric/pkg/jobs"
	"github.com/emetric-hq/emetric/pkg/serrors"
)

// RateDTO closes a task with the assignor's verdict. The quality score
// is capped by the task's quality target; the achieved quantity unit
// defaults to the newest submission when the rater leaves it unset.
type RateDTO struct {
	RaterID              uuid.UUID        `json:"rater_id"`
	QualityAchieved      decimal.Decimal  `json:"quality_target_point_achieved"`
	QuantityUnitAchieved *decimal.Decimal `json:"quantity_target_unit_achieved"`
	Remark               string           `json:"rating_remark"`
}

// ReworkDTO opens one rework cycle with a fresh deadline.
type ReworkDTO struct {
	Remark    string    `json:"rework_remark"`
	EndDate   time.Time `json:"rework_end_date"`
	EndHour   int       `json:"rework_end_hour"`
	EndMinute int       `json:"rework_end_minute"`
}

// RatingService closes the task lifecycle: rating computes the achieved
// points and closes the row, rework sends it back to the owner with a
// decremented limit and its own overdue job.
type RatingService struct {
	tasks       task.Repository
	submissions submission.Repository
	initiatives initiative.Repository
	workCalRepo workcal.Repository
	jobStore    jobs.Store
}

func NewRatingService(
	tasks task.Repository,
	submissions submission.Repository,
	initiatives initiative.Repository,
	workCalRepo workcal.Repository,
	jobStore jobs.Store,
) *RatingService {
	return &RatingService{
		tasks:       tasks,
		submissions: submissions,
		initiatives: initiatives,
		workCalRepo: workCalRepo,
		jobStore:    jobStore,
	}
}

// Rate closes an awaiting_rating task. Achieved points are computed
// here: the turn-around-time target is granted in full when the owner
// submitted before the occurrence deadline, the quantity point is
// pro-rated by achieved over target units, and the quality point is the
// rater's capped score. The task's own target point never changes on
// rating, so no delta is enqueued.
func (s *RatingService) Rate(ctx context.Context, taskID uuid.UUID, dto *RateDTO) (uuid.UUID, error) {
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return uuid.Nil, err
	}

	err = composables.InTenantTx(ctx, func(txCtx context.Context) error {
		t, err := s.tasks.GetByID(txCtx, taskID)
		if err != nil {
			return err
		}
		if !t.CanRate() {
			return serrors.Validation("task_status", "task cannot be rated at this stage")
		}
		if dto.QualityAchieved.IsNegative() || dto.QualityAchieved.GreaterThan(t.QualityTarget()) {
			return serrors.Validation("quality_target_point_achieved", "invalid quality target point achieved")
		}
		upline, err := s.initiatives.GetByID(txCtx, t.UplineInitiativeID())
		if err != nil {
			return err
		}
		subs, err := s.submissions.ForTask(txCtx, t.ID())
		if err != nil {
			return err
		}

		unitAchieved := newestUnitAchieved(subs)
		if dto.QuantityUnitAchieved != nil {
			if dto.QuantityUnitAchieved.IsNegative() {
				return serrors.Validation("quantity_target_unit_achieved", "achieved unit cannot be negative")
			}
			unitAchieved = *dto.QuantityUnitAchieved
		}

		if dto.RaterID != uuid.Nil {
			raterSub := submission.New(t.ID(), dto.RaterID, unitAchieved, dto.Remark)
			if err := s.submissions.Create(txCtx, raterSub); err != nil {
				return err
			}
		}

		loc, err := s.tenantLocation(txCtx)
		if err != nil {
			return err
		}

		tat := decimal.Zero
		if ownerSubmittedBy(subs, upline.OwnerID(), t.EndAt(loc)) {
			tat = t.TurnAroundTimeTarget()
		}

		quantity := decimal.Zero
		if !t.QuantityTargetUnit().IsZero() {
			quantity = t.QuantityTarget().Mul(unitAchieved).Div(t.QuantityTargetUnit())
		}

		if err := t.Close(tat, dto.QualityAchieved, quantity, unitAchieved, dto.Remark); err != nil {
			return err
		}
		if err := s.tasks.Update(txCtx, t); err != nil {
			return err
		}
		// Any still-pending transition job would now fire as a no-op;
		// drop them instead.
		return s.jobStore.CancelEntity(txCtx, tenantID, jobs.KindTask, t.ID())
	})
	if err != nil {
		return uuid.Nil, err
	}
	return taskID, nil
}

// Rework sends an awaiting_rating task back to the owner. The rework
// limit drops by one; a task whose limit is already zero cannot be
// reworked. The cycle gets its own rework_overdue job keyed by the new
// limit so repeated cycles never collide.
func (s *RatingService) Rework(ctx context.Context, taskID uuid.UUID, dto *ReworkDTO) (uuid.UUID, error) {
	endTime, err := workcal.NewTimeOfDay(dto.EndHour, dto.EndMinute)
	if err != nil {
		return uuid.Nil, serrors.Validation("rework_end_time", "invalid rework end time")
	}
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return uuid.Nil, err
	}

	err = composables.InTenantTx(ctx, func(txCtx context.Context) error {
		t, err := s.tasks.GetByID(txCtx, taskID)
		if err != nil {
			return err
		}
		loc, err := s.tenantLocation(txCtx)
		if err != nil {
			return err
		}
		fireAt := endTime.At(dto.EndDate, loc)
		if fireAt.Before(time.Now()) {
			return serrors.Validation("rework_end_date", "new end date cannot be in the past")
		}

		if err := t.OpenRework(dto.Remark, dto.EndDate, endTime); err != nil {
			switch {
			case errors.Is(err, task.ErrNotRatable):
				return serrors.Validation("task_status", "task rework is not possible at this stage")
			case errors.Is(err, task.ErrReworkExhausted):
				return serrors.Validation("rework_limit", "rework limit is zero")
			}
			return err
		}
		if err := s.tasks.Update(txCtx, t); err != nil {
			return err
		}
		return s.jobStore.Schedule(txCtx, jobs.NewReworkKey(tenantID, t.ID(), t.ReworkLimit()), fireAt)
	})
	if err != nil {
		return uuid.Nil, err
	}
	return taskID, nil
}

func (s *RatingService) tenantLocation(ctx context.Context) (*time.Location, error) {
	cal, err := s.workCalRepo.Get(ctx)
	if err != nil {
		if errors.Is(err, workcal.ErrWorkCalendarNotFound) {
			return time.UTC, nil
		}
		return nil, err
	}
	return cal.Location(), nil
}

func newestUnitAchieved(subs []*submission.Submission) decimal.Decimal {
	if len(subs) == 0 {
		return decimal.Zero
	}
	return subs[0].QuantityUnitAchieved()
}

func ownerSubmittedBy(subs []*submission.Submission, ownerID uuid.UUID, deadline time.Time) bool {
	for _, sub := range subs {
		if sub.UserID() == ownerID && !sub.CreatedAt().After(deadline) {
			return true
		}
	}
	return false
}
