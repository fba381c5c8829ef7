package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	calendarservices "github.com/emetric-hq/emetric/modules/calendar/services"
	"github.com/emetric-hq/emetric/modules/calendar/domain/entities/busy"
	"github.com/emetric-hq/emetric/modules/strategy/domain/aggregates/initiative"
	"github.com/emetric-hq/emetric/modules/strategy/domain/delta"
	"github.com/emetric-hq/emetric/modules/tasks/domain/aggregates/task"
	"github.com/emetric-hq/emetric/modules/tasks/domain/entities/submission"
	"github.com/emetric-hq/emetric/modules/tasks/scheduling"
	"github.com/emetric-hq/emetric/pkg/composables"
	"github.com/emetric-hq/emetric/pkg/jobs"
	"github.com/emetric-hq/emetric/pkg/routine"
	"github.com/emetric-hq/emetric/pkg/serrors"
)

// TaskService owns the task write path: occurrence expansion against
// the tenant calendar, the owner's busy schedule, transition jobs, and
// the target-point deltas flowing up to the upline initiative.
type TaskService struct {
	repo        task.Repository
	submissions submission.Repository
	initiatives initiative.Repository
	calendar    *calendarservices.CalendarService
	jobStore    jobs.Store
	deltas      *delta.Publisher
}

func NewTaskService(
	repo task.Repository,
	submissions submission.Repository,
	initiatives initiative.Repository,
	calendar *calendarservices.CalendarService,
	jobStore jobs.Store,
	deltas *delta.Publisher,
) *TaskService {
	return &TaskService{
		repo:        repo,
		submissions: submissions,
		initiatives: initiatives,
		calendar:    calendar,
		jobStore:    jobStore,
		deltas:      deltas,
	}
}

func (s *TaskService) GetByID(ctx context.Context, id uuid.UUID) (*task.Task, error) {
	return composables.InTenantTxResult(ctx, func(txCtx context.Context) (*task.Task, error) {
		return s.repo.GetByID(txCtx, id)
	})
}

// CreateRecurring expands the request into one task per qualifying
// date. Each row gets a busy-calendar interval on the owner's schedule,
// an activate and an overdue job, and contributes its target point to
// the upline initiative. Expansion failures abort before any row is
// persisted.
func (s *TaskService) CreateRecurring(ctx context.Context, dto *task.CreateDTO) ([]uuid.UUID, error) {
	dto.Normalize()
	if err := dto.Validate(); err != nil {
		return nil, err
	}
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return nil, err
	}

	return composables.InTenantTxResult(ctx, func(txCtx context.Context) ([]uuid.UUID, error) {
		upline, err := s.initiatives.GetByID(txCtx, dto.UplineInitiativeID)
		if err != nil {
			return nil, err
		}

		to := routine.Date(upline.EndDate())
		if dto.EndDate != nil {
			to = routine.Date(*dto.EndDate)
		}
		snap, err := s.calendar.Snapshot(txCtx, upline.OwnerID(), routine.Date(dto.StartDate), to)
		if err != nil {
			return nil, err
		}

		params := scheduling.Params{
			RoutineOption:        dto.RoutineOption,
			StartDate:            dto.StartDate,
			StartTime:            dto.StartTime(),
			Duration:             dto.Duration,
			RepeatEvery:          dto.RepeatEvery,
			OccursDays:           dto.OccursDays,
			OccursMonthDayNumber: dto.OccursMonthDayNumber,
			OccursMonthPosition:  dto.OccursMonthPosition,
			OccursMonthDay:       dto.OccursMonthDay,
			AfterOccurrence:      dto.AfterOccurrence,
		}
		if dto.EndDate != nil {
			params.EndDate = *dto.EndDate
		}
		occs, err := scheduling.Expand(params, uplineWindow(upline), environment(snap), time.Now())
		if err != nil {
			return nil, err
		}

		ids := make([]uuid.UUID, 0, len(occs))
		for i, occ := range occs {
			t := task.New(
				dto.Name, upline.ID(), dto.Type, dto.RoutineOption, dto.RecurrenceParams(),
				occ.Date, dto.StartTime(), dto.Duration, i+1, dto.Targets(),
			)
			if err := s.createOccurrence(txCtx, tenantID, t, upline.OwnerID(), occ); err != nil {
				return nil, err
			}
			ids = append(ids, t.ID())
		}
		return ids, nil
	})
}

// UpdateOccurrence reschedules one pending occurrence. The new slot is
// validated against the calendar the same way creation was. With
// cascade, the not-yet-started pending siblings are dropped and
// regenerated after the new date.
func (s *TaskService) UpdateOccurrence(ctx context.Context, id uuid.UUID, dto *task.UpdateDTO, cascade bool) (uuid.UUID, error) {
	dto.Normalize()
	if err := dto.Validate(); err != nil {
		return uuid.Nil, err
	}
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return uuid.Nil, err
	}

	err = composables.InTenantTx(ctx, func(txCtx context.Context) error {
		row, err := s.repo.GetByID(txCtx, id)
		if err != nil {
			return err
		}
		if !row.IsPending() {
			return serrors.Validation("status", "only pending tasks can be updated")
		}
		upline, err := s.initiatives.GetByID(txCtx, row.UplineInitiativeID())
		if err != nil {
			return err
		}

		var batchEnd time.Time
		if cascade {
			batchEnd, err = s.dropFutureSiblings(txCtx, tenantID, row)
			if err != nil {
				return err
			}
		}

		snap, err := s.calendar.Snapshot(txCtx,
			upline.OwnerID(), routine.Date(dto.StartDate), laterOf(routine.Date(upline.EndDate()), batchEnd))
		if err != nil {
			return err
		}
		env := environment(snap)
		env.Busy = withoutTasks(env.Busy, row.ID())

		// Revalidate the new slot as a one-off occurrence.
		if _, err := scheduling.Expand(scheduling.Params{
			RoutineOption: routine.Once,
			StartDate:     dto.StartDate,
			StartTime:     dto.StartTime(),
			Duration:      dto.Duration,
		}, uplineWindow(upline), env, time.Now()); err != nil {
			return err
		}

		if err := row.Rename(dto.Name); err != nil {
			return err
		}
		if err := row.Reschedule(dto.StartDate, dto.StartTime(), dto.Duration); err != nil {
			return err
		}
		if err := s.repo.Update(txCtx, row); err != nil {
			return err
		}

		loc := snap.Calendar.Location()
		if err := s.calendar.RepointTaskInterval(txCtx, row.ID(), row.StartAt(loc), row.EndAt(loc)); err != nil {
			return err
		}
		if err := s.scheduleJobs(txCtx, tenantID, row.ID(), row.StartAt(loc), row.EndAt(loc)); err != nil {
			return err
		}

		if cascade {
			return s.regenerate(txCtx, tenantID, row, upline, batchEnd, env)
		}
		return nil
	})
	if err != nil {
		return uuid.Nil, err
	}
	return id, nil
}

// DeleteOccurrence removes one occurrence, or with cascade every future
// pending occurrence of the same name. Each removed task leaves a
// negative delta on the upline initiative, together with its jobs, its
// busy interval and its submissions.
func (s *TaskService) DeleteOccurrence(ctx context.Context, id uuid.UUID, cascade bool) error {
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return err
	}

	return composables.InTenantTx(ctx, func(txCtx context.Context) error {
		row, err := s.repo.GetByID(txCtx, id)
		if err != nil {
			return err
		}

		rows := []*task.Task{row}
		if cascade {
			siblings, err := s.repo.PendingFrom(txCtx, row.Name(), row.StartDate())
			if err != nil {
				return err
			}
			for _, sib := range siblings {
				if sib.ID() != row.ID() {
					rows = append(rows, sib)
				}
			}
		}

		ids := make([]uuid.UUID, 0, len(rows))
		for _, t := range rows {
			if err := s.deltas.ToInitiative(txCtx, t.UplineInitiativeID(), t.TargetPoint().Neg()); err != nil {
				return err
			}
			ids = append(ids, t.ID())
		}

		if err := s.jobStore.CancelEntity(txCtx, tenantID, jobs.KindTask, ids...); err != nil {
			return err
		}
		if err := s.calendar.RemoveTaskIntervals(txCtx, ids...); err != nil {
			return err
		}
		if err := s.submissions.DeleteForTasks(txCtx, ids...); err != nil {
			return err
		}
		return s.repo.Delete(txCtx, ids...)
	})
}

func (s *TaskService) createOccurrence(ctx context.Context, tenantID uuid.UUID, t *task.Task, ownerID uuid.UUID, occ scheduling.Occurrence) error {
	if err := s.repo.Create(ctx, t); err != nil {
		return err
	}
	interval := busy.New(t.Name(), ownerID, occ.Start, occ.End).Apply(busy.WithTaskID(t.ID()))
	if err := s.calendar.RecordTaskIntervals(ctx, interval); err != nil {
		return err
	}
	if err := s.scheduleJobs(ctx, tenantID, t.ID(), occ.Start, occ.End); err != nil {
		return err
	}
	return s.deltas.ToInitiative(ctx, t.UplineInitiativeID(), t.TargetPoint())
}

func (s *TaskService) scheduleJobs(ctx context.Context, tenantID, id uuid.UUID, start, end time.Time) error {
	if err := s.jobStore.Schedule(ctx,
		jobs.NewKey(tenantID, jobs.KindTask, id, jobs.PhaseActivate), start,
	); err != nil {
		return err
	}
	return s.jobStore.Schedule(ctx,
		jobs.NewKey(tenantID, jobs.KindTask, id, jobs.PhaseOverdue), end,
	)
}

// dropFutureSiblings deletes the pending siblings starting on or after
// row's start date and returns the latest start date among them, so the
// caller knows how far to regenerate.
func (s *TaskService) dropFutureSiblings(ctx context.Context, tenantID uuid.UUID, row *task.Task) (time.Time, error) {
	siblings, err := s.repo.PendingFrom(ctx, row.Name(), row.StartDate())
	if err != nil {
		return time.Time{}, err
	}

	var batchEnd time.Time
	ids := make([]uuid.UUID, 0, len(siblings))
	for _, sib := range siblings {
		if sib.ID() == row.ID() {
			continue
		}
		if sib.StartDate().After(batchEnd) {
			batchEnd = sib.StartDate()
		}
		if err := s.deltas.ToInitiative(ctx, sib.UplineInitiativeID(), sib.TargetPoint().Neg()); err != nil {
			return time.Time{}, err
		}
		ids = append(ids, sib.ID())
	}
	if len(ids) == 0 {
		return batchEnd, nil
	}
	if err := s.jobStore.CancelEntity(ctx, tenantID, jobs.KindTask, ids...); err != nil {
		return time.Time{}, err
	}
	if err := s.calendar.RemoveTaskIntervals(ctx, ids...); err != nil {
		return time.Time{}, err
	}
	return batchEnd, s.repo.Delete(ctx, ids...)
}

// regenerate re-expands the batch from the updated row's date up to the
// old batch end, continuing the round sequence. The walk starts at the
// row itself so the recurrence pattern stays anchored; the row's own
// date is then skipped.
func (s *TaskService) regenerate(ctx context.Context, tenantID uuid.UUID, row *task.Task, upline *initiative.Initiative, batchEnd time.Time, env scheduling.Environment) error {
	if row.RoutineOption() == routine.Once || batchEnd.IsZero() || !batchEnd.After(row.StartDate()) {
		return nil
	}

	rec := row.Recurrence()
	occs, err := scheduling.Expand(scheduling.Params{
		RoutineOption:        row.RoutineOption(),
		StartDate:            row.StartDate(),
		StartTime:            row.StartTime(),
		Duration:             row.Duration(),
		RepeatEvery:          rec.RepeatEvery,
		OccursDays:           rec.OccursDays,
		OccursMonthDayNumber: rec.OccursMonthDayNumber,
		OccursMonthPosition:  rec.OccursMonthPosition,
		OccursMonthDay:       rec.OccursMonthDay,
		EndDate:              batchEnd,
	}, uplineWindow(upline), env, time.Now())
	if err != nil {
		return err
	}

	targets := task.Targets{
		TurnAroundTime: row.TurnAroundTimeTarget(),
		Quality:        row.QualityTarget(),
		Quantity:       row.QuantityTarget(),
		QuantityUnit:   row.QuantityTargetUnit(),
		ReworkLimit:    row.ReworkLimit(),
	}

	round := row.RoutineRound()
	for _, occ := range occs {
		if !occ.Date.After(row.StartDate()) {
			continue
		}
		round++
		t := task.New(
			row.Name(), row.UplineInitiativeID(), row.Type(), row.RoutineOption(), rec,
			occ.Date, row.StartTime(), row.Duration(), round, targets,
		)
		if err := s.createOccurrence(ctx, tenantID, t, upline.OwnerID(), occ); err != nil {
			return err
		}
	}
	return nil
}

func uplineWindow(i *initiative.Initiative) scheduling.Window {
	return scheduling.Window{Start: i.StartDate(), End: i.EndDate()}
}

func environment(snap *calendarservices.Snapshot) scheduling.Environment {
	return scheduling.Environment{
		Calendar: snap.Calendar,
		Holidays: snap.Holidays,
		Busy:     snap.Busy,
	}
}

func laterOf(a, b time.Time) time.Time {
	if b.After(a) {
		return b
	}
	return a
}

func withoutTasks(intervals []*busy.Interval, taskIDs ...uuid.UUID) []*busy.Interval {
	out := make([]*busy.Interval, 0, len(intervals))
	for _, iv := range intervals {
		skip := false
		for _, id := range taskIDs {
			if iv.TaskID() == id {
				skip = true
				break
			}
		}
		if !skip {
			out = append(out, iv)
		}
	}
	return out
}
