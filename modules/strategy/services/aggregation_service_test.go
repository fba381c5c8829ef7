package services

import (
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/emetric-hq/emetric/modules/strategy/domain/aggregates/initiative"
	"github.com/emetric-hq/emetric/modules/strategy/domain/aggregates/objective"
	"github.com/emetric-hq/emetric/modules/strategy/domain/aggregates/perspective"
	"github.com/emetric-hq/emetric/modules/strategy/domain/delta"
	"github.com/emetric-hq/emetric/pkg/routine"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func decodedDeltas(t *testing.T, ob *mockOutbox, topic string) []delta.PointDelta {
	t.Helper()
	var out []delta.PointDelta
	for _, msg := range ob.messages {
		if msg.Topic != topic {
			continue
		}
		var pd delta.PointDelta
		require.NoError(t, json.Unmarshal(msg.Payload, &pd))
		out = append(out, pd)
	}
	return out
}

func newAggregationFixture() (*AggregationService, *memObjectiveRepo, *memInitiativeRepo, *memPerspectiveRepo, *mockOutbox) {
	objectives := newMemObjectiveRepo()
	initiatives := newMemInitiativeRepo()
	perspectives := newMemPerspectiveRepo()
	ob := &mockOutbox{}
	svc := NewAggregationService(nil, objectives, initiatives, perspectives, delta.NewPublisher(ob), quietLogger())
	return svc, objectives, initiatives, perspectives, ob
}

func seedObjectiveWithSpreads(t *testing.T, repo *memObjectiveRepo, target int64, weights ...int64) (*objective.Objective, []*objective.Spread) {
	t.Helper()
	start := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)
	o := objective.Hydrate(
		uuid.New(), "grow revenue", "", routine.Quarterly,
		start, start.AddDate(0, 0, 90), 1,
		objective.StatusActive, decimal.NewFromInt(target), time.Now(), time.Now(),
	)
	require.NoError(t, repo.Create(nil, o))

	spreads := make([]*objective.Spread, 0, len(weights))
	for _, w := range weights {
		sp := objective.NewSpread(o.ID(), uuid.New(), decimal.NewFromInt(w))
		spreads = append(spreads, sp)
	}
	require.NoError(t, repo.CreateSpreads(nil, spreads...))
	return o, spreads
}

func TestApplyObjectiveDelta_SpreadRedistribution(t *testing.T) {
	svc, objectives, _, _, ob := newAggregationFixture()
	tenantID := uuid.New()
	ctx := testContext(t, tenantID)

	// target 100 split 30/70; a delta of 50 lands as +15 and +35
	o, spreads := seedObjectiveWithSpreads(t, objectives, 100, 30, 70)

	err := svc.ApplyObjectiveDelta(ctx, delta.PointDelta{ParentID: o.ID(), Delta: decimal.NewFromInt(50)})
	require.NoError(t, err)

	updated, err := objectives.GetByID(nil, o.ID())
	require.NoError(t, err)
	require.True(t, updated.TargetPoint().Equal(decimal.NewFromInt(150)),
		"got %s", updated.TargetPoint())

	forwarded := decodedDeltas(t, ob, delta.TopicPerspective)
	require.Len(t, forwarded, 2)
	byPerspective := map[uuid.UUID]decimal.Decimal{}
	for _, pd := range forwarded {
		byPerspective[pd.ParentID] = pd.Delta
	}
	require.True(t, byPerspective[spreads[0].PerspectiveID()].Equal(decimal.NewFromInt(15)))
	require.True(t, byPerspective[spreads[1].PerspectiveID()].Equal(decimal.NewFromInt(35)))

	// cached allocations follow the same shares
	stored, err := objectives.Spreads(nil, o.ID())
	require.NoError(t, err)
	total := decimal.Zero
	for _, sp := range stored {
		total = total.Add(sp.Allocation())
	}
	require.True(t, total.Equal(decimal.NewFromInt(50)))
}

// Redelivering a delta double-counts: application is a blind add with no
// dedup. This is the documented behavior, not a bug to fix here; the
// outbox event id is the hook for consumers that need exactly-once.
func TestApplyObjectiveDelta_RedeliveryDoubleCounts(t *testing.T) {
	svc, objectives, _, _, _ := newAggregationFixture()
	ctx := testContext(t, uuid.New())

	o, _ := seedObjectiveWithSpreads(t, objectives, 100, 30, 70)
	pd := delta.PointDelta{ParentID: o.ID(), Delta: decimal.NewFromInt(50)}

	require.NoError(t, svc.ApplyObjectiveDelta(ctx, pd))
	require.NoError(t, svc.ApplyObjectiveDelta(ctx, pd))

	updated, err := objectives.GetByID(nil, o.ID())
	require.NoError(t, err)
	require.True(t, updated.TargetPoint().Equal(decimal.NewFromInt(200)),
		"redelivery applied twice by design, got %s", updated.TargetPoint())
}

func TestApplyObjectiveDelta_ParentGoneIsDropped(t *testing.T) {
	svc, _, _, _, ob := newAggregationFixture()
	ctx := testContext(t, uuid.New())

	err := svc.ApplyObjectiveDelta(ctx, delta.PointDelta{ParentID: uuid.New(), Delta: decimal.NewFromInt(10)})
	require.NoError(t, err, "a delta aimed at a deleted parent is dropped, not retried")
	require.Empty(t, ob.messages)
}

func TestApplyInitiativeDelta_ForwardsToUpline(t *testing.T) {
	svc, _, initiatives, _, ob := newAggregationFixture()
	ctx := testContext(t, uuid.New())

	uplineObjective := uuid.New()
	start := time.Date(2024, time.March, 4, 0, 0, 0, 0, time.UTC)
	ini, err := initiative.New("ship v2", initiative.Upline{ObjectiveID: uplineObjective},
		uuid.New(), routine.Monthly, start, start.AddDate(0, 0, 29), 1)
	require.NoError(t, err)
	require.NoError(t, initiatives.Create(nil, ini))

	err = svc.ApplyInitiativeDelta(ctx, delta.PointDelta{ParentID: ini.ID(), Delta: decimal.NewFromInt(25)})
	require.NoError(t, err)

	got, err := initiatives.GetByID(nil, ini.ID())
	require.NoError(t, err)
	require.True(t, got.TargetPoint().Equal(decimal.NewFromInt(25)))

	forwarded := decodedDeltas(t, ob, delta.TopicObjective)
	require.Len(t, forwarded, 1)
	require.Equal(t, uplineObjective, forwarded[0].ParentID)
	require.True(t, forwarded[0].Delta.Equal(decimal.NewFromInt(25)))
}

func TestApplyPerspectiveDelta(t *testing.T) {
	svc, _, _, perspectives, _ := newAggregationFixture()
	ctx := testContext(t, uuid.New())

	p := perspective.New("Financial")
	require.NoError(t, perspectives.Create(nil, p))

	err := svc.ApplyPerspectiveDelta(ctx, delta.PointDelta{ParentID: p.ID(), Delta: decimal.NewFromInt(35)})
	require.NoError(t, err)

	got, err := perspectives.GetByID(nil, p.ID())
	require.NoError(t, err)
	require.True(t, got.TargetPoint().Equal(decimal.NewFromInt(35)))
}
