package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/emetric-hq/emetric/modules/calendar/domain/entities/workcal"
	"github.com/emetric-hq/emetric/modules/strategy/domain/aggregates/objective"
	"github.com/emetric-hq/emetric/modules/strategy/domain/delta"
	"github.com/emetric-hq/emetric/pkg/composables"
	"github.com/emetric-hq/emetric/pkg/jobs"
	"github.com/emetric-hq/emetric/pkg/routine"
	"github.com/emetric-hq/emetric/pkg/serrors"
)

// ObjectiveService owns the objective write path: recurring expansion
// into N occurrence rows, their transition jobs, their perspective
// spreads, and the cascade semantics for update and delete.
type ObjectiveService struct {
	repo        objective.Repository
	workCalRepo workcal.Repository
	jobStore    jobs.Store
	deltas      *delta.Publisher
}

func NewObjectiveService(
	repo objective.Repository,
	workCalRepo workcal.Repository,
	jobStore jobs.Store,
	deltas *delta.Publisher,
) *ObjectiveService {
	return &ObjectiveService{
		repo:        repo,
		workCalRepo: workCalRepo,
		jobStore:    jobStore,
		deltas:      deltas,
	}
}

func (s *ObjectiveService) GetByID(ctx context.Context, id uuid.UUID) (*objective.Objective, error) {
	return composables.InTenantTxResult(ctx, func(txCtx context.Context) (*objective.Objective, error) {
		return s.repo.GetByID(txCtx, id)
	})
}

// CreateRecurring expands the request into one objective per occurrence
// window, each with ascending rounds, its own spreads and its own
// activate/close jobs. Everything commits atomically; validation
// failures abort before any row exists.
func (s *ObjectiveService) CreateRecurring(ctx context.Context, dto *objective.CreateDTO) ([]uuid.UUID, error) {
	dto.Normalize()
	if err := dto.Validate(); err != nil {
		return nil, err
	}
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return nil, err
	}

	return composables.InTenantTxResult(ctx, func(txCtx context.Context) ([]uuid.UUID, error) {
		dates, err := routine.StartDates(dto.Spec(), nil, time.Now())
		if err != nil {
			return nil, err
		}
		loc, err := tenantLocation(txCtx, s.workCalRepo)
		if err != nil {
			return nil, err
		}

		var explicitEnd time.Time
		if dto.EndDate != nil {
			explicitEnd = *dto.EndDate
		}

		ids := make([]uuid.UUID, 0, len(dates))
		for i, d := range dates {
			end := routine.WindowEnd(d, dto.RoutineOption, explicitEnd)
			o := objective.New(dto.Name, dto.ScopeLevel, dto.RoutineOption, d, end, i+1)
			if err := s.repo.Create(txCtx, o); err != nil {
				return nil, err
			}

			spreads := make([]*objective.Spread, 0, len(dto.Spreads))
			for _, sp := range dto.Spreads {
				spreads = append(spreads, objective.NewSpread(o.ID(), sp.PerspectiveID, sp.RelativePoint))
			}
			if err := s.repo.CreateSpreads(txCtx, spreads...); err != nil {
				return nil, err
			}

			if err := s.scheduleJobs(txCtx, tenantID, o.ID(), d, end, loc); err != nil {
				return nil, err
			}
			ids = append(ids, o.ID())
		}
		return ids, nil
	})
}

// UpdateOccurrence reschedules one pending occurrence as a one-off.
// With cascade, the not-yet-started pending siblings are dropped and the
// remainder of the batch regenerated after the new window.
func (s *ObjectiveService) UpdateOccurrence(ctx context.Context, id uuid.UUID, dto *objective.UpdateDTO, cascade bool) (uuid.UUID, error) {
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
			return serrors.Validation("status", "only pending objectives can be updated")
		}

		// Revalidate the new window as a one-off.
		if _, err := routine.StartDates(routine.Spec{
			Option: routine.Once,
			Start:  dto.StartDate,
			End:    dto.EndDate,
		}, nil, time.Now()); err != nil {
			return err
		}

		loc, err := tenantLocation(txCtx, s.workCalRepo)
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

		if err := row.Rename(dto.Name); err != nil {
			return err
		}
		if err := row.Reschedule(dto.StartDate, dto.EndDate); err != nil {
			return err
		}
		if err := s.repo.Update(txCtx, row); err != nil {
			return err
		}

		if err := s.scheduleJobs(txCtx, tenantID, row.ID(), row.StartDate(), row.EndDate(), loc); err != nil {
			return err
		}

		if cascade {
			return s.regenerate(txCtx, tenantID, row, batchEnd, loc)
		}
		return nil
	})
	if err != nil {
		return uuid.Nil, err
	}
	return id, nil
}

// DeleteOccurrence removes one occurrence, or with cascade every future
// pending occurrence of the same name. Each removed objective leaves one
// negative delta per spread, equal to the spread's cached allocation, so
// the perspectives unwind exactly what this batch ever contributed.
func (s *ObjectiveService) DeleteOccurrence(ctx context.Context, id uuid.UUID, cascade bool) error {
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return err
	}

	return composables.InTenantTx(ctx, func(txCtx context.Context) error {
		row, err := s.repo.GetByID(txCtx, id)
		if err != nil {
			return err
		}

		rows := []*objective.Objective{row}
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
		for _, o := range rows {
			spreads, err := s.repo.Spreads(txCtx, o.ID())
			if err != nil {
				return err
			}
			for _, sp := range spreads {
				if err := s.deltas.ToPerspective(txCtx, sp.PerspectiveID(), sp.Allocation().Neg()); err != nil {
					return err
				}
			}
			ids = append(ids, o.ID())
		}

		if err := s.jobStore.CancelEntity(txCtx, tenantID, jobs.KindObjective, ids...); err != nil {
			return err
		}
		return s.repo.Delete(txCtx, ids...)
	})
}

func (s *ObjectiveService) scheduleJobs(ctx context.Context, tenantID, id uuid.UUID, start, end time.Time, loc *time.Location) error {
	if err := s.jobStore.Schedule(ctx,
		jobs.NewKey(tenantID, jobs.KindObjective, id, jobs.PhaseActivate),
		startOfDay(start, loc),
	); err != nil {
		return err
	}
	return s.jobStore.Schedule(ctx,
		jobs.NewKey(tenantID, jobs.KindObjective, id, jobs.PhaseClose),
		endOfDay(end, loc),
	)
}

// dropFutureSiblings deletes the pending siblings starting on or after
// row's start date and returns the latest end date among them, so the
// caller knows how far to regenerate.
func (s *ObjectiveService) dropFutureSiblings(ctx context.Context, tenantID uuid.UUID, row *objective.Objective) (time.Time, error) {
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
		if sib.EndDate().After(batchEnd) {
			batchEnd = sib.EndDate()
		}
		spreads, err := s.repo.Spreads(ctx, sib.ID())
		if err != nil {
			return time.Time{}, err
		}
		for _, sp := range spreads {
			if err := s.deltas.ToPerspective(ctx, sp.PerspectiveID(), sp.Allocation().Neg()); err != nil {
				return time.Time{}, err
			}
		}
		ids = append(ids, sib.ID())
	}
	if len(ids) == 0 {
		return batchEnd, nil
	}
	if err := s.jobStore.CancelEntity(ctx, tenantID, jobs.KindObjective, ids...); err != nil {
		return time.Time{}, err
	}
	return batchEnd, s.repo.Delete(ctx, ids...)
}

// regenerate re-expands the batch after row's (updated) window up to the
// old batch end, continuing the round sequence. Spread weights are
// copied from the updated row.
func (s *ObjectiveService) regenerate(ctx context.Context, tenantID uuid.UUID, row *objective.Objective, batchEnd time.Time, loc *time.Location) error {
	opt := row.RoutineOption()
	if opt == routine.Once || batchEnd.IsZero() {
		return nil
	}
	next := routine.Date(row.EndDate()).AddDate(0, 0, 1)
	if routine.WindowEnd(next, opt, batchEnd).After(routine.Date(batchEnd)) {
		return nil // nothing left to regenerate
	}

	dates, err := routine.StartDates(routine.Spec{
		Option: opt,
		Start:  next,
		End:    routine.Date(batchEnd),
	}, nil, time.Now())
	if err != nil {
		return err
	}

	weights, err := s.repo.Spreads(ctx, row.ID())
	if err != nil {
		return err
	}

	round := row.RoutineRound()
	for _, d := range dates {
		round++
		end := routine.WindowEnd(d, opt, batchEnd)
		o := objective.New(row.Name(), row.ScopeLevel(), opt, d, end, round)
		if err := s.repo.Create(ctx, o); err != nil {
			return err
		}
		spreads := make([]*objective.Spread, 0, len(weights))
		for _, w := range weights {
			spreads = append(spreads, objective.NewSpread(o.ID(), w.PerspectiveID(), w.RelativePoint()))
		}
		if err := s.repo.CreateSpreads(ctx, spreads...); err != nil {
			return err
		}
		if err := s.scheduleJobs(ctx, tenantID, o.ID(), d, end, loc); err != nil {
			return err
		}
	}
	return nil
}
