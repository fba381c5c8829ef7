package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/emetric-hq/emetric/modules/calendar/domain/entities/workcal"
	"github.com/emetric-hq/emetric/modules/strategy/domain/aggregates/initiative"
	"github.com/emetric-hq/emetric/modules/strategy/domain/aggregates/objective"
	"github.com/emetric-hq/emetric/modules/strategy/domain/aggregates/perspective"
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

type memObjectiveRepo struct {
	objectives map[uuid.UUID]*objective.Objective
	spreads    map[uuid.UUID]*objective.Spread
}

func newMemObjectiveRepo() *memObjectiveRepo {
	return &memObjectiveRepo{
		objectives: map[uuid.UUID]*objective.Objective{},
		spreads:    map[uuid.UUID]*objective.Spread{},
	}
}

func (m *memObjectiveRepo) GetByID(_ context.Context, id uuid.UUID) (*objective.Objective, error) {
	o, ok := m.objectives[id]
	if !ok {
		return nil, objective.ErrObjectiveNotFound
	}
	return o, nil
}

func (m *memObjectiveRepo) Create(_ context.Context, objectives ...*objective.Objective) error {
	for _, o := range objectives {
		m.objectives[o.ID()] = o
	}
	return nil
}

func (m *memObjectiveRepo) Update(_ context.Context, o *objective.Objective) error {
	if _, ok := m.objectives[o.ID()]; !ok {
		return objective.ErrObjectiveNotFound
	}
	m.objectives[o.ID()] = o
	return nil
}

func (m *memObjectiveRepo) Delete(_ context.Context, ids ...uuid.UUID) error {
	for _, id := range ids {
		delete(m.objectives, id)
		for spreadID, sp := range m.spreads {
			if sp.ObjectiveID() == id {
				delete(m.spreads, spreadID)
			}
		}
	}
	return nil
}

func (m *memObjectiveRepo) PendingFrom(_ context.Context, name string, from time.Time) ([]*objective.Objective, error) {
	var out []*objective.Objective
	for _, o := range m.objectives {
		if o.Name() == name && o.IsPending() && !o.StartDate().Before(from) {
			out = append(out, o)
		}
	}
	return out, nil
}

func (m *memObjectiveRepo) AddTargetPoint(_ context.Context, id uuid.UUID, d decimal.Decimal) (bool, error) {
	o, ok := m.objectives[id]
	if !ok {
		return false, nil
	}
	m.objectives[id] = objective.Hydrate(
		o.ID(), o.Name(), o.ScopeLevel(), o.RoutineOption(), o.StartDate(), o.EndDate(),
		o.RoutineRound(), o.Status(), o.TargetPoint().Add(d), o.CreatedAt(), o.UpdatedAt(),
	)
	return true, nil
}

func (m *memObjectiveRepo) TransitionStatus(_ context.Context, id uuid.UUID, from, to objective.Status) (bool, error) {
	o, ok := m.objectives[id]
	if !ok || o.Status() != from {
		return false, nil
	}
	m.objectives[id] = objective.Hydrate(
		o.ID(), o.Name(), o.ScopeLevel(), o.RoutineOption(), o.StartDate(), o.EndDate(),
		o.RoutineRound(), to, o.TargetPoint(), o.CreatedAt(), o.UpdatedAt(),
	)
	return true, nil
}

func (m *memObjectiveRepo) Spreads(_ context.Context, objectiveID uuid.UUID) ([]*objective.Spread, error) {
	var out []*objective.Spread
	for _, sp := range m.spreads {
		if sp.ObjectiveID() == objectiveID {
			out = append(out, sp)
		}
	}
	return out, nil
}

func (m *memObjectiveRepo) CreateSpreads(_ context.Context, spreads ...*objective.Spread) error {
	for _, sp := range spreads {
		m.spreads[sp.ID()] = sp
	}
	return nil
}

func (m *memObjectiveRepo) AdjustSpreadAllocation(_ context.Context, spreadID uuid.UUID, share decimal.Decimal) error {
	sp, ok := m.spreads[spreadID]
	if !ok {
		return objective.ErrObjectiveNotFound
	}
	m.spreads[spreadID] = objective.HydrateSpread(
		sp.ID(), sp.ObjectiveID(), sp.PerspectiveID(), sp.RelativePoint(), sp.Allocation().Add(share),
	)
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
	if _, ok := m.initiatives[i.ID()]; !ok {
		return initiative.ErrInitiativeNotFound
	}
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

type memPerspectiveRepo struct {
	perspectives map[uuid.UUID]*perspective.Perspective
}

func newMemPerspectiveRepo() *memPerspectiveRepo {
	return &memPerspectiveRepo{perspectives: map[uuid.UUID]*perspective.Perspective{}}
}

func (m *memPerspectiveRepo) GetByID(_ context.Context, id uuid.UUID) (*perspective.Perspective, error) {
	p, ok := m.perspectives[id]
	if !ok {
		return nil, perspective.ErrPerspectiveNotFound
	}
	return p, nil
}

func (m *memPerspectiveRepo) GetAll(_ context.Context) ([]*perspective.Perspective, error) {
	var out []*perspective.Perspective
	for _, p := range m.perspectives {
		out = append(out, p)
	}
	return out, nil
}

func (m *memPerspectiveRepo) Create(_ context.Context, p *perspective.Perspective) error {
	m.perspectives[p.ID()] = p
	return nil
}

func (m *memPerspectiveRepo) AddTargetPoint(_ context.Context, id uuid.UUID, d decimal.Decimal) (bool, error) {
	p, ok := m.perspectives[id]
	if !ok {
		return false, nil
	}
	m.perspectives[id] = perspective.Hydrate(
		p.ID(), p.Name(), p.TargetPoint().Add(d), p.CreatedAt(), p.UpdatedAt(),
	)
	return true, nil
}

func (m *memPerspectiveRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := m.perspectives[id]; !ok {
		return perspective.ErrPerspectiveNotFound
	}
	delete(m.perspectives, id)
	return nil
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
