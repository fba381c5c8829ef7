package services

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/emetric-hq/emetric/modules/calendar/domain/entities/busy"
	"github.com/emetric-hq/emetric/modules/calendar/domain/entities/holiday"
	"github.com/emetric-hq/emetric/modules/calendar/domain/entities/workcal"
	"github.com/emetric-hq/emetric/modules/strategy/domain/aggregates/initiative"
	"github.com/emetric-hq/emetric/modules/tasks/domain/aggregates/task"
	"github.com/emetric-hq/emetric/modules/tasks/domain/entities/submission"
	"github.com/emetric-hq/emetric/pkg/composables"
	"github.com/emetric-hq/emetric/pkg/jobs"
	"github.com/emetric-hq/emetric/pkg/outbox"
	"github.com/emetric-hq/emetric/pkg/serrors"
)

// stubTx satisfies pgx.Tx so InTenantTx reuses it instead of opening a
// real transaction; the in-memory repositories below never touch it.
type stubTx struct{ pgx.Tx }

func (stubTx) Commit(context.Context) error   { return nil }
func (stubTx) Rollback(context.Context) error { return nil }
func (stubTx) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}

func testContext(t *testing.T, tenantID uuid.UUID) context.Context {
	t.Helper()
	ctx := composables.WithTenantID(context.Background(), tenantID)
	return composables.WithTx(ctx, stubTx{})
}

func requireFieldError(t *testing.T, err error, field string) {
	t.Helper()
	require.Error(t, err)
	var base *serrors.BaseError
	require.True(t, errors.As(err, &base), "expected a field-keyed error, got %v", err)
	require.Equal(t, field, base.Field)
}

type memTaskRepo struct {
	tasks map[uuid.UUID]*task.Task
}

func newMemTaskRepo() *memTaskRepo {
	return &memTaskRepo{tasks: map[uuid.UUID]*task.Task{}}
}

func (m *memTaskRepo) GetByID(_ context.Context, id uuid.UUID) (*task.Task, error) {
	t, ok := m.tasks[id]
	if !ok {
		return nil, task.ErrTaskNotFound
	}
	return t, nil
}

func (m *memTaskRepo) Create(_ context.Context, tasks ...*task.Task) error {
	for _, t := range tasks {
		m.tasks[t.ID()] = t
	}
	return nil
}

func (m *memTaskRepo) Update(_ context.Context, t *task.Task) error {
	if _, ok := m.tasks[t.ID()]; !ok {
		return task.ErrTaskNotFound
	}
	m.tasks[t.ID()] = t
	return nil
}

func (m *memTaskRepo) Delete(_ context.Context, ids ...uuid.UUID) error {
	for _, id := range ids {
		delete(m.tasks, id)
	}
	return nil
}

func (m *memTaskRepo) PendingFrom(_ context.Context, name string, from time.Time) ([]*task.Task, error) {
	var out []*task.Task
	for _, t := range m.tasks {
		if t.Name() == name && t.IsPending() && !t.StartDate().Before(from) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RoutineRound() < out[j].RoutineRound() })
	return out, nil
}

func (m *memTaskRepo) TransitionStatus(_ context.Context, id uuid.UUID, from, to task.Status) (bool, error) {
	t, ok := m.tasks[id]
	if !ok || t.Status() != from {
		return false, nil
	}
	p := t.Snapshot()
	p.Status = to
	m.tasks[id] = task.Hydrate(p)
	return true, nil
}

type memSubmissionRepo struct {
	submissions []*submission.Submission
}

func (m *memSubmissionRepo) Create(_ context.Context, s *submission.Submission) error {
	m.submissions = append(m.submissions, s)
	return nil
}

func (m *memSubmissionRepo) ForTask(_ context.Context, taskID uuid.UUID) ([]*submission.Submission, error) {
	var out []*submission.Submission
	for _, s := range m.submissions {
		if s.TaskID() == taskID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt().After(out[j].CreatedAt()) })
	return out, nil
}

func (m *memSubmissionRepo) DeleteForTasks(_ context.Context, taskIDs ...uuid.UUID) error {
	var kept []*submission.Submission
	for _, s := range m.submissions {
		drop := false
		for _, id := range taskIDs {
			if s.TaskID() == id {
				drop = true
				break
			}
		}
		if !drop {
			kept = append(kept, s)
		}
	}
	m.submissions = kept
	return nil
}

type memInitiativeRepo struct {
	initiatives map[uuid.UUID]*initiative.Initiative
}

func newMemInitiativeRepo() *memInitiativeRepo {
	return &memInitiativeRepo{initiatives: map[uuid.UUID]*initiative.Initiative{}}
}

func (m *memInitiativeRepo) GetByID(_ context.Context, id uuid.UUID) (*initiative.Initiative, error) {
	i, ok := m.initiatives[id]
	if !ok {
		return nil, initiative.ErrInitiativeNotFound
	}
	return i, nil
}

func (m *memInitiativeRepo) Create(_ context.Context, initiatives ...*initiative.Initiative) error {
	for _, i := range initiatives {
		m.initiatives[i.ID()] = i
	}
	return nil
}

func (m *memInitiativeRepo) Update(_ context.Context, i *initiative.Initiative) error {
	m.initiatives[i.ID()] = i
	return nil
}

func (m *memInitiativeRepo) Delete(_ context.Context, ids ...uuid.UUID) error {
	for _, id := range ids {
		delete(m.initiatives, id)
	}
	return nil
}

func (m *memInitiativeRepo) PendingFrom(_ context.Context, name string, from time.Time) ([]*initiative.Initiative, error) {
	var out []*initiative.Initiative
	for _, i := range m.initiatives {
		if i.Name() == name && i.IsPending() && !i.StartDate().Before(from) {
			out = append(out, i)
		}
	}
	return out, nil
}

func (m *memInitiativeRepo) AddTargetPoint(_ context.Context, id uuid.UUID, d decimal.Decimal) (bool, error) {
	i, ok := m.initiatives[id]
	if !ok {
		return false, nil
	}
	m.initiatives[id] = initiative.Hydrate(
		i.ID(), i.Name(), i.Upline(), i.OwnerID(), i.AssignorID(), i.RoutineOption(),
		i.StartDate(), i.EndDate(), i.RoutineRound(), i.Status(),
		i.TargetPoint().Add(d), i.CreatedAt(), i.UpdatedAt(),
	)
	return true, nil
}

func (m *memInitiativeRepo) TransitionStatus(_ context.Context, id uuid.UUID, from, to initiative.Status) (bool, error) {
	i, ok := m.initiatives[id]
	if !ok || i.Status() != from {
		return false, nil
	}
	m.initiatives[id] = initiative.Hydrate(
		i.ID(), i.Name(), i.Upline(), i.OwnerID(), i.AssignorID(), i.RoutineOption(),
		i.StartDate(), i.EndDate(), i.RoutineRound(), to,
		i.TargetPoint(), i.CreatedAt(), i.UpdatedAt(),
	)
	return true, nil
}

type stubWorkCalRepo struct {
	cal *workcal.WorkCalendar
}

func (s *stubWorkCalRepo) Get(context.Context) (*workcal.WorkCalendar, error) {
	if s.cal == nil {
		return nil, workcal.ErrWorkCalendarNotFound
	}
	return s.cal, nil
}

func (s *stubWorkCalRepo) Save(_ context.Context, c *workcal.WorkCalendar) error {
	s.cal = c
	return nil
}

type memHolidayRepo struct {
	holidays []*holiday.Holiday
}

func (m *memHolidayRepo) InRange(_ context.Context, from, to time.Time) ([]*holiday.Holiday, error) {
	var out []*holiday.Holiday
	for _, h := range m.holidays {
		if !h.Date().Before(from) && !h.Date().After(to) {
			out = append(out, h)
		}
	}
	return out, nil
}

func (m *memHolidayRepo) Create(_ context.Context, h *holiday.Holiday) error {
	m.holidays = append(m.holidays, h)
	return nil
}

func (m *memHolidayRepo) Delete(_ context.Context, id uuid.UUID) error {
	var kept []*holiday.Holiday
	for _, h := range m.holidays {
		if h.ID() != id {
			kept = append(kept, h)
		}
	}
	m.holidays = kept
	return nil
}

type memBusyRepo struct {
	intervals []*busy.Interval
}

func (m *memBusyRepo) ForOwnerInRange(_ context.Context, ownerID uuid.UUID, from, to time.Time) ([]*busy.Interval, error) {
	var out []*busy.Interval
	for _, iv := range m.intervals {
		if iv.OwnerID() == ownerID && iv.Start().Before(to) && iv.End().After(from) {
			out = append(out, iv)
		}
	}
	return out, nil
}

func (m *memBusyRepo) Create(_ context.Context, intervals ...*busy.Interval) error {
	m.intervals = append(m.intervals, intervals...)
	return nil
}

func (m *memBusyRepo) RepointTask(_ context.Context, taskID uuid.UUID, start, end time.Time) error {
	for i, iv := range m.intervals {
		if iv.TaskID() == taskID {
			m.intervals[i] = busy.Hydrate(iv.ID(), iv.Name(), iv.OwnerID(), taskID, iv.IsFree(), start, end)
		}
	}
	return nil
}

func (m *memBusyRepo) DeleteByTask(_ context.Context, taskIDs ...uuid.UUID) error {
	var kept []*busy.Interval
	for _, iv := range m.intervals {
		drop := false
		for _, id := range taskIDs {
			if iv.TaskID() == id {
				drop = true
				break
			}
		}
		if !drop {
			kept = append(kept, iv)
		}
	}
	m.intervals = kept
	return nil
}

func (m *memBusyRepo) forTask(taskID uuid.UUID) []*busy.Interval {
	var out []*busy.Interval
	for _, iv := range m.intervals {
		if iv.TaskID() == taskID {
			out = append(out, iv)
		}
	}
	return out
}

type mockJobStore struct {
	scheduled map[jobs.Key]time.Time
}

func newMockJobStore() *mockJobStore {
	return &mockJobStore{scheduled: map[jobs.Key]time.Time{}}
}

func (m *mockJobStore) Schedule(_ context.Context, key jobs.Key, fireAt time.Time) error {
	m.scheduled[key] = fireAt
	return nil
}

func (m *mockJobStore) Reschedule(_ context.Context, key jobs.Key, fireAt time.Time) error {
	m.scheduled[key] = fireAt
	return nil
}

func (m *mockJobStore) Cancel(_ context.Context, key jobs.Key) error {
	delete(m.scheduled, key)
	return nil
}

func (m *mockJobStore) CancelEntity(_ context.Context, tenantID uuid.UUID, kind jobs.EntityKind, entityIDs ...uuid.UUID) error {
	for key := range m.scheduled {
		for _, id := range entityIDs {
			if key.TenantID == tenantID && key.EntityKind == kind && key.EntityID == id {
				delete(m.scheduled, key)
			}
		}
	}
	return nil
}

// mockOutbox captures enqueued delta messages instead of writing SQL.
type mockOutbox struct {
	messages []outbox.Message
	seq      int64
}

func (m *mockOutbox) Enqueue(_ context.Context, _ composables.Tx, _ pgx.Identifier, msg outbox.Message) (int64, error) {
	m.messages = append(m.messages, msg)
	m.seq++
	return m.seq, nil
}
