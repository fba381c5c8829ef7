package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/emetric-hq/emetric/modules/calendar/domain/entities/workcal"
	"github.com/emetric-hq/emetric/modules/strategy/domain/aggregates/initiative"
	"github.com/emetric-hq/emetric/modules/strategy/domain/aggregates/objective"
	"github.com/emetric-hq/emetric/modules/strategy/domain/delta"
	"github.com/emetric-hq/emetric/pkg/composables"
	"github.com/emetric-hq/emetric/pkg/jobs"
	"github.com/emetric-hq/emetric/pkg/routine"
	"github.com/emetric-hq/emetric/pkg/serrors"
)

// InitiativeService expands recurring initiatives inside their upline's
// window. The upline is either an objective or a parent initiative; its
// window and granularity bound every occurrence.
type InitiativeService struct {
	repo          initiative.Repository
	objectiveRepo objective.Repository
	workCalRepo   workcal.Repository
	jobStore      jobs.Store
	deltas        *delta.Publisher
}

func NewInitiativeService(
	repo initiative.Repository,
	objectiveRepo objective.Repository,
	workCalRepo workcal.Repository,
	jobStore jobs.Store,
	deltas *delta.Publisher,
) *InitiativeService {
	return &InitiativeService{
		repo:          repo,
		objectiveRepo: objectiveRepo,
		workCalRepo:   workCalRepo,
		jobStore:      jobStore,
		deltas:        deltas,
	}
}

func (s *InitiativeService) GetByID(ctx context.Context, id uuid.UUID) (*initiative.Initiative, error) {
	return composables.InTenantTxResult(ctx, func(txCtx context.Context) (*initiative.Initiative, error) {
		return s.repo.GetByID(txCtx, id)
	})
}

// UplineWindow resolves the containing schedule window for an
// initiative's upline reference.
func (s *InitiativeService) UplineWindow(ctx context.Context, upline initiative.Upline) (*routine.Upline, error) {
	if upline.IsObjective() {
		o, err := s.objectiveRepo.GetByID(ctx, upline.ObjectiveID)
		if err != nil {
			return nil, err
		}
		return &routine.Upline{Start: o.StartDate(), End: o.EndDate(), Option: o.RoutineOption()}, nil
	}
	parent, err := s.repo.GetByID(ctx, upline.InitiativeID)
	if err != nil {
		return nil, err
	}
	return &routine.Upline{Start: parent.StartDate(), End: parent.EndDate(), Option: parent.RoutineOption()}, nil
}

func (s *InitiativeService) CreateRecurring(ctx context.Context, dto *initiative.CreateDTO) ([]uuid.UUID, error) {
	dto.Normalize()
	if err := dto.Validate(); err != nil {
		return nil, err
	}
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return nil, err
	}

	return composables.InTenantTxResult(ctx, func(txCtx context.Context) ([]uuid.UUID, error) {
		upline, err := s.UplineWindow(txCtx, dto.Upline())
		if err != nil {
			return nil, err
		}
		dates, err := routine.StartDates(dto.Spec(), upline, time.Now())
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
			var opts []initiative.Option
			if dto.AssignorID != uuid.Nil {
				opts = append(opts, initiative.WithAssignor(dto.AssignorID))
			}
			ini, err := initiative.New(dto.Name, dto.Upline(), dto.OwnerID, dto.RoutineOption, d, end, i+1, opts...)
			if err != nil {
				return nil, err
			}
			if err := s.repo.Create(txCtx, ini); err != nil {
				return nil, err
			}
			if err := s.scheduleJobs(txCtx, tenantID, ini.ID(), d, end, loc); err != nil {
				return nil, err
			}
			// a fresh initiative carries zero points, so this is a no-op
			// until a point-bearing create path appears; kept for symmetry
			// with delete
			if err := s.forwardUpline(txCtx, dto.Upline(), ini.TargetPoint()); err != nil {
				return nil, err
			}
			ids = append(ids, ini.ID())
		}
		return ids, nil
	})
}

func (s *InitiativeService) UpdateOccurrence(ctx context.Context, id uuid.UUID, dto *objective.UpdateDTO, cascade bool) (uuid.UUID, error) {
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
			return serrors.Validation("status", "only pending initiatives can be updated")
		}

		// Revalidate the new window as a one-off inside the upline.
		upline, err := s.UplineWindow(txCtx, row.Upline())
		if err != nil {
			return err
		}
		if _, err := routine.StartDates(routine.Spec{
			Option: routine.Once,
			Start:  dto.StartDate,
			End:    dto.EndDate,
		}, upline, time.Now()); err != nil {
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

// DeleteOccurrence removes one occurrence or, with cascade, every
// future pending occurrence of the same name. Each removed initiative
// sends its accumulated target point back up the tree as a negative
// delta.
func (s *InitiativeService) DeleteOccurrence(ctx context.Context, id uuid.UUID, cascade bool) error {
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return err
	}

	return composables.InTenantTx(ctx, func(txCtx context.Context) error {
		row, err := s.repo.GetByID(txCtx, id)
		if err != nil {
			return err
		}

		rows := []*initiative.Initiative{row}
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
		for _, ini := range rows {
			if err := s.forwardUpline(txCtx, ini.Upline(), ini.TargetPoint().Neg()); err != nil {
				return err
			}
			ids = append(ids, ini.ID())
		}

		if err := s.jobStore.CancelEntity(txCtx, tenantID, jobs.KindInitiative, ids...); err != nil {
			return err
		}
		return s.repo.Delete(txCtx, ids...)
	})
}

func (s *InitiativeService) forwardUpline(ctx context.Context, upline initiative.Upline, d decimal.Decimal) error {
	if upline.IsObjective() {
		return s.deltas.ToObjective(ctx, upline.ObjectiveID, d)
	}
	return s.deltas.ToInitiative(ctx, upline.InitiativeID, d)
}

func (s *InitiativeService) scheduleJobs(ctx context.Context, tenantID, id uuid.UUID, start, end time.Time, loc *time.Location) error {
	if err := s.jobStore.Schedule(ctx,
		jobs.NewKey(tenantID, jobs.KindInitiative, id, jobs.PhaseActivate),
		startOfDay(start, loc),
	); err != nil {
		return err
	}
	return s.jobStore.Schedule(ctx,
		jobs.NewKey(tenantID, jobs.KindInitiative, id, jobs.PhaseClose),
		endOfDay(end, loc),
	)
}

func (s *InitiativeService) dropFutureSiblings(ctx context.Context, tenantID uuid.UUID, row *initiative.Initiative) (time.Time, error) {
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
		if err := s.forwardUpline(ctx, sib.Upline(), sib.TargetPoint().Neg()); err != nil {
			return time.Time{}, err
		}
		ids = append(ids, sib.ID())
	}
	if len(ids) == 0 {
		return batchEnd, nil
	}
	if err := s.jobStore.CancelEntity(ctx, tenantID, jobs.KindInitiative, ids...); err != nil {
		return time.Time{}, err
	}
	return batchEnd, s.repo.Delete(ctx, ids...)
}

func (s *InitiativeService) regenerate(ctx context.Context, tenantID uuid.UUID, row *initiative.Initiative, batchEnd time.Time, loc *time.Location) error {
	opt := row.RoutineOption()
	if opt == routine.Once || batchEnd.IsZero() {
		return nil
	}
	next := routine.Date(row.EndDate()).AddDate(0, 0, 1)
	if routine.WindowEnd(next, opt, batchEnd).After(routine.Date(batchEnd)) {
		return nil
	}

	dates, err := routine.StartDates(routine.Spec{
		Option: opt,
		Start:  next,
		End:    routine.Date(batchEnd),
	}, nil, time.Now())
	if err != nil {
		return err
	}

	round := row.RoutineRound()
	for _, d := range dates {
		round++
		end := routine.WindowEnd(d, opt, batchEnd)
		var opts []initiative.Option
		if row.AssignorID() != uuid.Nil {
			opts = append(opts, initiative.WithAssignor(row.AssignorID()))
		}
		ini, err := initiative.New(row.Name(), row.Upline(), row.OwnerID(), opt, d, end, round, opts...)
		if err != nil {
			return err
		}
		if err := s.repo.Create(ctx, ini); err != nil {
			return err
		}
		if err := s.scheduleJobs(ctx, tenantID, ini.ID(), d, end, loc); err != nil {
			return err
		}
	}
	return nil
}
