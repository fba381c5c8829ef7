package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/emetric-hq/emetric/modules/calendar/domain/entities/busy"
	"github.com/emetric-hq/emetric/modules/calendar/domain/entities/holiday"
	"github.com/emetric-hq/emetric/modules/calendar/domain/entities/workcal"
	"github.com/emetric-hq/emetric/pkg/composables"
)

// CalendarService is the engine's calendar input: work-hours config,
// holiday dates, and owner busy intervals. The write side keeps one busy
// interval per task occurrence so overlapping work cannot be scheduled
// onto the same owner.
type CalendarService struct {
	workCalRepo workcal.Repository
	holidayRepo holiday.Repository
	busyRepo    busy.Repository
}

func NewCalendarService(
	workCalRepo workcal.Repository,
	holidayRepo holiday.Repository,
	busyRepo busy.Repository,
) *CalendarService {
	return &CalendarService{
		workCalRepo: workCalRepo,
		holidayRepo: holidayRepo,
		busyRepo:    busyRepo,
	}
}

// Snapshot bundles everything the occurrence scheduler reads for one
// expansion: the tenant calendar plus holiday and busy sets covering
// [from, to].
type Snapshot struct {
	Calendar *workcal.WorkCalendar
	Holidays map[time.Time]struct{}
	Busy     []*busy.Interval
}

func (s *CalendarService) Snapshot(ctx context.Context, ownerID uuid.UUID, from, to time.Time) (*Snapshot, error) {
	return composables.InTenantTxResult(ctx, func(txCtx context.Context) (*Snapshot, error) {
		cal, err := s.workCalRepo.Get(txCtx)
		if err != nil {
			return nil, err
		}
		holidays, err := s.holidayRepo.InRange(txCtx, from, to)
		if err != nil {
			return nil, err
		}
		intervals, err := s.busyRepo.ForOwnerInRange(txCtx, ownerID, from, to)
		if err != nil {
			return nil, err
		}
		return &Snapshot{
			Calendar: cal,
			Holidays: holiday.DateSet(holidays),
			Busy:     intervals,
		}, nil
	})
}

func (s *CalendarService) WorkCalendar(ctx context.Context) (*workcal.WorkCalendar, error) {
	return composables.InTenantTxResult(ctx, func(txCtx context.Context) (*workcal.WorkCalendar, error) {
		return s.workCalRepo.Get(txCtx)
	})
}

func (s *CalendarService) SaveWorkCalendar(ctx context.Context, c *workcal.WorkCalendar) error {
	return composables.InTenantTx(ctx, func(txCtx context.Context) error {
		return s.workCalRepo.Save(txCtx, c)
	})
}

func (s *CalendarService) AddHoliday(ctx context.Context, h *holiday.Holiday) error {
	return composables.InTenantTx(ctx, func(txCtx context.Context) error {
		return s.holidayRepo.Create(txCtx, h)
	})
}

func (s *CalendarService) RemoveHoliday(ctx context.Context, id uuid.UUID) error {
	return composables.InTenantTx(ctx, func(txCtx context.Context) error {
		return s.holidayRepo.Delete(txCtx, id)
	})
}

// RecordTaskIntervals is called inside the task-creation transaction so
// the busy entries land atomically with the occurrence rows.
func (s *CalendarService) RecordTaskIntervals(ctx context.Context, intervals ...*busy.Interval) error {
	return s.busyRepo.Create(ctx, intervals...)
}

func (s *CalendarService) RepointTaskInterval(ctx context.Context, taskID uuid.UUID, start, end time.Time) error {
	return s.busyRepo.RepointTask(ctx, taskID, start, end)
}

func (s *CalendarService) RemoveTaskIntervals(ctx context.Context, taskIDs ...uuid.UUID) error {
	return s.busyRepo.DeleteByTask(ctx, taskIDs...)
}
