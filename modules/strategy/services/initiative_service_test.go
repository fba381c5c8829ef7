package services

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/emetric-hq/emetric/modules/strategy/domain/aggregates/initiative"
	"github.com/emetric-hq/emetric/modules/strategy/domain/aggregates/objective"
	"github.com/emetric-hq/emetric/modules/strategy/domain/delta"
	"github.com/emetric-hq/emetric/pkg/jobs"
	"github.com/emetric-hq/emetric/pkg/routine"
)

type initiativeFixture struct {
	svc           *InitiativeService
	repo          *memInitiativeRepo
	objectiveRepo *memObjectiveRepo
	jobStore      *mockJobStore
	outbox        *mockOutbox
	tenantID      uuid.UUID
}

func newInitiativeFixture() *initiativeFixture {
	repo := newMemInitiativeRepo()
	objectiveRepo := newMemObjectiveRepo()
	jobStore := newMockJobStore()
	ob := &mockOutbox{}
	return &initiativeFixture{
		svc:           NewInitiativeService(repo, objectiveRepo, &stubWorkCalRepo{}, jobStore, delta.NewPublisher(ob)),
		repo:          repo,
		objectiveRepo: objectiveRepo,
		jobStore:      jobStore,
		outbox:        ob,
		tenantID:      uuid.New(),
	}
}

func (f *initiativeFixture) seedUplineObjective(t *testing.T, start time.Time, days int) *objective.Objective {
	t.Helper()
	o := objective.Hydrate(
		uuid.New(), "grow revenue", "", routine.Yearly,
		start, start.AddDate(0, 0, days), 1,
		objective.StatusPending, decimal.Zero, time.Now(), time.Now(),
	)
	require.NoError(t, f.objectiveRepo.Create(nil, o))
	return o
}

func TestInitiativeService_CreateRecurringInsideUpline(t *testing.T) {
	f := newInitiativeFixture()
	ctx := testContext(t, f.tenantID)

	start := futureDate(7)
	upline := f.seedUplineObjective(t, start, 364)

	ids, err := f.svc.CreateRecurring(ctx, &initiative.CreateDTO{
		Name:              "ship v2",
		UplineObjectiveID: upline.ID(),
		OwnerID:           uuid.New(),
		RoutineOption:     routine.Monthly,
		StartDate:         start,
		AfterOccurrence:   4,
	})
	require.NoError(t, err)
	require.Len(t, ids, 4)

	for i, id := range ids {
		ini, err := f.repo.GetByID(nil, id)
		require.NoError(t, err)
		require.Equal(t, i+1, ini.RoutineRound())
		require.Equal(t, initiative.StatusPending, ini.Status())
		require.False(t, ini.EndDate().After(upline.EndDate()))

		_, ok := f.jobStore.scheduled[jobs.NewKey(f.tenantID, jobs.KindInitiative, id, jobs.PhaseActivate)]
		require.True(t, ok)
		_, ok = f.jobStore.scheduled[jobs.NewKey(f.tenantID, jobs.KindInitiative, id, jobs.PhaseClose)]
		require.True(t, ok)
	}
}

func TestInitiativeService_CreateRejectsCoarserThanUpline(t *testing.T) {
	f := newInitiativeFixture()
	ctx := testContext(t, f.tenantID)

	start := futureDate(7)
	upline := f.seedUplineObjective(t, start, 90)

	_, err := f.svc.CreateRecurring(ctx, &initiative.CreateDTO{
		Name:              "too coarse",
		UplineObjectiveID: upline.ID(),
		OwnerID:           uuid.New(),
		RoutineOption:     routine.Yearly,
		StartDate:         start,
		AfterOccurrence:   1,
	})
	requireFieldError(t, err, "routine_option")
}

func TestInitiativeService_CreateRejectsCountBeyondUplineEnd(t *testing.T) {
	f := newInitiativeFixture()
	ctx := testContext(t, f.tenantID)

	start := futureDate(7)
	upline := f.seedUplineObjective(t, start, 90)

	_, err := f.svc.CreateRecurring(ctx, &initiative.CreateDTO{
		Name:              "overflows",
		UplineObjectiveID: upline.ID(),
		OwnerID:           uuid.New(),
		RoutineOption:     routine.Monthly,
		StartDate:         start,
		AfterOccurrence:   4,
	})
	requireFieldError(t, err, "after_occurrence")
}

func TestInitiativeService_CreateRequiresExactlyOneUpline(t *testing.T) {
	f := newInitiativeFixture()
	ctx := testContext(t, f.tenantID)

	_, err := f.svc.CreateRecurring(ctx, &initiative.CreateDTO{
		Name:            "orphan",
		OwnerID:         uuid.New(),
		RoutineOption:   routine.Monthly,
		StartDate:       futureDate(7),
		AfterOccurrence: 1,
	})
	requireFieldError(t, err, "upline")
}

func TestInitiativeService_UpdateRejectsWindowBeyondUplineEnd(t *testing.T) {
	f := newInitiativeFixture()
	ctx := testContext(t, f.tenantID)

	start := futureDate(7)
	upline := f.seedUplineObjective(t, start, 364)

	end := start.AddDate(0, 0, 30)
	ids, err := f.svc.CreateRecurring(ctx, &initiative.CreateDTO{
		Name:              "ship v2",
		UplineObjectiveID: upline.ID(),
		OwnerID:           uuid.New(),
		RoutineOption:     routine.Once,
		StartDate:         start,
		EndDate:           &end,
	})
	require.NoError(t, err)
	require.Len(t, ids, 1)

	_, err = f.svc.UpdateOccurrence(ctx, ids[0], &objective.UpdateDTO{
		Name:      "ship v2",
		StartDate: start,
		EndDate:   start.AddDate(3, 0, 0),
	}, false)
	requireFieldError(t, err, "end_date")

	// The stored window is untouched.
	kept, err := f.repo.GetByID(nil, ids[0])
	require.NoError(t, err)
	require.Equal(t, routine.Date(end), kept.EndDate())
}

func TestInitiativeService_UpdateRejectsStartBeforeUplineStart(t *testing.T) {
	f := newInitiativeFixture()
	ctx := testContext(t, f.tenantID)

	start := futureDate(30)
	upline := f.seedUplineObjective(t, start, 364)

	end := start.AddDate(0, 0, 30)
	ids, err := f.svc.CreateRecurring(ctx, &initiative.CreateDTO{
		Name:              "ship v2",
		UplineObjectiveID: upline.ID(),
		OwnerID:           uuid.New(),
		RoutineOption:     routine.Once,
		StartDate:         start,
		EndDate:           &end,
	})
	require.NoError(t, err)

	_, err = f.svc.UpdateOccurrence(ctx, ids[0], &objective.UpdateDTO{
		Name:      "ship v2",
		StartDate: futureDate(7),
		EndDate:   end,
	}, false)
	requireFieldError(t, err, "start_date")
}

func TestInitiativeService_DeleteSendsNegativeDeltaUpline(t *testing.T) {
	f := newInitiativeFixture()
	ctx := testContext(t, f.tenantID)

	uplineObjective := uuid.New()
	start := futureDate(7)
	ini := initiative.Hydrate(
		uuid.New(), "ship v2", initiative.Upline{ObjectiveID: uplineObjective},
		uuid.New(), uuid.Nil, routine.Monthly,
		start, start.AddDate(0, 0, 29), 1,
		initiative.StatusPending, decimal.NewFromInt(40), time.Now(), time.Now(),
	)
	require.NoError(t, f.repo.Create(nil, ini))

	require.NoError(t, f.svc.DeleteOccurrence(ctx, ini.ID(), false))

	deltas := decodedDeltas(t, f.outbox, delta.TopicObjective)
	require.Len(t, deltas, 1)
	require.Equal(t, uplineObjective, deltas[0].ParentID)
	require.True(t, deltas[0].Delta.Equal(decimal.NewFromInt(-40)))
}
