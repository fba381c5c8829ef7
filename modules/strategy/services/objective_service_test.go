package services

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/emetric-hq/emetric/modules/strategy/domain/aggregates/objective"
	"github.com/emetric-hq/emetric/modules/strategy/domain/delta"
	"github.com/emetric-hq/emetric/pkg/jobs"
	"github.com/emetric-hq/emetric/pkg/routine"
)

type objectiveFixture struct {
	svc      *ObjectiveService
	repo     *memObjectiveRepo
	jobStore *mockJobStore
	outbox   *mockOutbox
	tenantID uuid.UUID
}

func newObjectiveFixture() *objectiveFixture {
	repo := newMemObjectiveRepo()
	jobStore := newMockJobStore()
	ob := &mockOutbox{}
	return &objectiveFixture{
		svc:      NewObjectiveService(repo, &stubWorkCalRepo{}, jobStore, delta.NewPublisher(ob)),
		repo:     repo,
		jobStore: jobStore,
		outbox:   ob,
		tenantID: uuid.New(),
	}
}

func futureDate(days int) time.Time {
	return routine.Date(time.Now()).AddDate(0, 0, days)
}

func TestObjectiveService_CreateRecurring(t *testing.T) {
	f := newObjectiveFixture()
	ctx := testContext(t, f.tenantID)

	perspA, perspB := uuid.New(), uuid.New()
	ids, err := f.svc.CreateRecurring(ctx, &objective.CreateDTO{
		Name:            "Grow Revenue",
		RoutineOption:   routine.Monthly,
		StartDate:       futureDate(7),
		AfterOccurrence: 3,
		Spreads: []objective.SpreadDTO{
			{PerspectiveID: perspA, RelativePoint: decimal.NewFromInt(30)},
			{PerspectiveID: perspB, RelativePoint: decimal.NewFromInt(70)},
		},
	})
	require.NoError(t, err)
	require.Len(t, ids, 3)

	for i, id := range ids {
		o, err := f.repo.GetByID(nil, id)
		require.NoError(t, err)
		require.Equal(t, i+1, o.RoutineRound())
		require.Equal(t, objective.StatusPending, o.Status())
		require.True(t, o.TargetPoint().IsZero())

		spreads, err := f.repo.Spreads(nil, id)
		require.NoError(t, err)
		require.Len(t, spreads, 2)

		// every occurrence gets its activate and close jobs
		activate, ok := f.jobStore.scheduled[jobs.NewKey(f.tenantID, jobs.KindObjective, id, jobs.PhaseActivate)]
		require.True(t, ok)
		closeAt, ok := f.jobStore.scheduled[jobs.NewKey(f.tenantID, jobs.KindObjective, id, jobs.PhaseClose)]
		require.True(t, ok)
		require.True(t, activate.Before(closeAt))
	}

	// creation itself moves no points
	require.Empty(t, f.outbox.messages)
}

func TestObjectiveService_CreateRecurring_RejectsDailyRoutine(t *testing.T) {
	f := newObjectiveFixture()
	ctx := testContext(t, f.tenantID)

	_, err := f.svc.CreateRecurring(ctx, &objective.CreateDTO{
		Name:            "Too Fine",
		RoutineOption:   routine.Daily,
		StartDate:       futureDate(7),
		AfterOccurrence: 3,
		Spreads:         []objective.SpreadDTO{{PerspectiveID: uuid.New(), RelativePoint: decimal.NewFromInt(1)}},
	})
	requireFieldError(t, err, "routine_option")
}

func TestObjectiveService_DeleteCascade_UnwindsAllocations(t *testing.T) {
	f := newObjectiveFixture()
	ctx := testContext(t, f.tenantID)

	perspA, perspB := uuid.New(), uuid.New()
	ids, err := f.svc.CreateRecurring(ctx, &objective.CreateDTO{
		Name:            "Grow Revenue",
		RoutineOption:   routine.Monthly,
		StartDate:       futureDate(7),
		AfterOccurrence: 2,
		Spreads: []objective.SpreadDTO{
			{PerspectiveID: perspA, RelativePoint: decimal.NewFromInt(30)},
			{PerspectiveID: perspB, RelativePoint: decimal.NewFromInt(70)},
		},
	})
	require.NoError(t, err)
	require.Len(t, ids, 2)

	// a child delta lands on the first occurrence and fans out
	agg := NewAggregationService(nil, f.repo, newMemInitiativeRepo(), newMemPerspectiveRepo(),
		delta.NewPublisher(f.outbox), quietLogger())
	require.NoError(t, agg.ApplyObjectiveDelta(ctx, delta.PointDelta{
		ParentID: ids[0], Delta: decimal.NewFromInt(100),
	}))

	require.NoError(t, f.svc.DeleteOccurrence(ctx, ids[0], true))

	// batch round trip: every perspective delta ever enqueued sums to zero
	total := decimal.Zero
	for _, pd := range decodedDeltas(t, f.outbox, delta.TopicPerspective) {
		total = total.Add(pd.Delta)
	}
	require.True(t, total.IsZero(), "expected zero sum, got %s", total)

	// rows and jobs are gone
	for _, id := range ids {
		_, err := f.repo.GetByID(nil, id)
		require.Error(t, err)
	}
	require.Empty(t, f.jobStore.scheduled)
}

func TestObjectiveService_UpdateCascade_RegeneratesSiblings(t *testing.T) {
	f := newObjectiveFixture()
	ctx := testContext(t, f.tenantID)

	start := futureDate(7)
	ids, err := f.svc.CreateRecurring(ctx, &objective.CreateDTO{
		Name:            "Grow Revenue",
		RoutineOption:   routine.Monthly,
		StartDate:       start,
		AfterOccurrence: 3,
		Spreads:         []objective.SpreadDTO{{PerspectiveID: uuid.New(), RelativePoint: decimal.NewFromInt(1)}},
	})
	require.NoError(t, err)
	require.Len(t, ids, 3)

	first, err := f.repo.GetByID(nil, ids[0])
	require.NoError(t, err)

	updatedID, err := f.svc.UpdateOccurrence(ctx, ids[0], &objective.UpdateDTO{
		Name:      "Grow Revenue Faster",
		StartDate: first.StartDate(),
		EndDate:   first.EndDate(),
	}, true)
	require.NoError(t, err)
	require.Equal(t, ids[0], updatedID)

	// the rename cascades: the updated row plus regenerated siblings all
	// carry the new name and cover the original batch span
	regenerated, err := f.repo.PendingFrom(nil, "Grow Revenue Faster", first.StartDate())
	require.NoError(t, err)
	require.Len(t, regenerated, 3)

	stale, err := f.repo.PendingFrom(nil, "Grow Revenue", first.StartDate())
	require.NoError(t, err)
	require.Empty(t, stale)
}

func TestObjectiveService_UpdateRejectsPastStartDate(t *testing.T) {
	f := newObjectiveFixture()
	ctx := testContext(t, f.tenantID)

	start := futureDate(7)
	o := objective.Hydrate(
		uuid.New(), "Grow Revenue", "", routine.Monthly,
		start, start.AddDate(0, 0, 29), 1,
		objective.StatusPending, decimal.Zero, time.Now(), time.Now(),
	)
	require.NoError(t, f.repo.Create(nil, o))

	_, err := f.svc.UpdateOccurrence(ctx, o.ID(), &objective.UpdateDTO{
		Name:      "Grow Revenue",
		StartDate: futureDate(-1),
		EndDate:   start.AddDate(0, 0, 29),
	}, false)
	requireFieldError(t, err, "start_date")

	// The stored window is untouched.
	kept, err := f.repo.GetByID(nil, o.ID())
	require.NoError(t, err)
	require.Equal(t, start, kept.StartDate())
}

func TestObjectiveService_UpdateRejectsNonPending(t *testing.T) {
	f := newObjectiveFixture()
	ctx := testContext(t, f.tenantID)

	start := futureDate(7)
	o := objective.Hydrate(
		uuid.New(), "Already Running", "", routine.Monthly,
		start, start.AddDate(0, 0, 29), 1,
		objective.StatusActive, decimal.Zero, time.Now(), time.Now(),
	)
	require.NoError(t, f.repo.Create(nil, o))

	_, err := f.svc.UpdateOccurrence(ctx, o.ID(), &objective.UpdateDTO{
		Name:      "Already Running",
		StartDate: start,
		EndDate:   start.AddDate(0, 0, 29),
	}, false)
	requireFieldError(t, err, "status")
}
