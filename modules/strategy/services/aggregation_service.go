package services

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/emetric-hq/emetric/modules/strategy/domain/aggregates/initiative"
	"github.com/emetric-hq/emetric/modules/strategy/domain/aggregates/objective"
	"github.com/emetric-hq/emetric/modules/strategy/domain/aggregates/perspective"
	"github.com/emetric-hq/emetric/modules/strategy/domain/delta"
	"github.com/emetric-hq/emetric/pkg/composables"
	"github.com/emetric-hq/emetric/pkg/eventbus"
	"github.com/emetric-hq/emetric/pkg/outbox"
)

// AggregationService is the delta worker. Every delta is a blind
// read-modify-write add against its parent; application is commutative
// so deliveries may arrive in any order, but it is NOT idempotent: a
// redelivered delta double-counts. The outbox event id is available in
// the dispatch metadata as a dedup key for consumers that need
// exactly-once, but this worker deliberately does not apply it.
//
// A delta whose parent no longer exists is dropped with a debug log;
// retrying it could never succeed and would only jam the relay.
type AggregationService struct {
	pool         *pgxpool.Pool
	objectives   objective.Repository
	initiatives  initiative.Repository
	perspectives perspective.Repository
	deltas       *delta.Publisher
	log          *logrus.Logger
}

func NewAggregationService(
	pool *pgxpool.Pool,
	objectives objective.Repository,
	initiatives initiative.Repository,
	perspectives perspective.Repository,
	deltas *delta.Publisher,
	log *logrus.Logger,
) *AggregationService {
	return &AggregationService{
		pool:         pool,
		objectives:   objectives,
		initiatives:  initiatives,
		perspectives: perspectives,
		deltas:       deltas,
		log:          log,
	}
}

// Register subscribes the worker to relayed outbox messages.
func (s *AggregationService) Register(bus eventbus.EventBusWithError) {
	bus.Subscribe(s.handleMessage)
}

func (s *AggregationService) handleMessage(meta *outbox.Meta, topic string, payload json.RawMessage) error {
	var pd delta.PointDelta
	if err := json.Unmarshal(payload, &pd); err != nil {
		// malformed payloads can never succeed; drop instead of retrying
		s.log.WithError(err).WithField("topic", topic).Error("aggregation: malformed delta payload")
		return nil
	}

	ctx := composables.WithPool(context.Background(), s.pool)
	ctx = composables.WithTenantID(ctx, meta.TenantID)

	switch topic {
	case delta.TopicInitiative:
		return s.ApplyInitiativeDelta(ctx, pd)
	case delta.TopicObjective:
		return s.ApplyObjectiveDelta(ctx, pd)
	case delta.TopicPerspective:
		return s.ApplyPerspectiveDelta(ctx, pd)
	}
	return nil
}

// ApplyInitiativeDelta adds the delta to the initiative and forwards it
// unchanged to the initiative's own upline.
func (s *AggregationService) ApplyInitiativeDelta(ctx context.Context, pd delta.PointDelta) error {
	return composables.InTenantTx(ctx, func(txCtx context.Context) error {
		found, err := s.initiatives.AddTargetPoint(txCtx, pd.ParentID, pd.Delta)
		if err != nil {
			return err
		}
		if !found {
			s.dropped(txCtx, "initiative", pd)
			return nil
		}
		ini, err := s.initiatives.GetByID(txCtx, pd.ParentID)
		if err != nil {
			return err
		}
		if ini.Upline().IsObjective() {
			return s.deltas.ToObjective(txCtx, ini.Upline().ObjectiveID, pd.Delta)
		}
		return s.deltas.ToInitiative(txCtx, ini.Upline().InitiativeID, pd.Delta)
	})
}

// ApplyObjectiveDelta adds the delta to the objective and redistributes
// it across the objective's perspective spreads proportionally to their
// weights, updating each spread's cached allocation in the same step.
func (s *AggregationService) ApplyObjectiveDelta(ctx context.Context, pd delta.PointDelta) error {
	return composables.InTenantTx(ctx, func(txCtx context.Context) error {
		found, err := s.objectives.AddTargetPoint(txCtx, pd.ParentID, pd.Delta)
		if err != nil {
			return err
		}
		if !found {
			s.dropped(txCtx, "objective", pd)
			return nil
		}

		spreads, err := s.objectives.Spreads(txCtx, pd.ParentID)
		if err != nil {
			return err
		}
		totalWeight := decimal.Zero
		for _, sp := range spreads {
			totalWeight = totalWeight.Add(sp.RelativePoint())
		}
		for _, sp := range spreads {
			share := sp.Share(pd.Delta, totalWeight)
			if share.IsZero() {
				continue
			}
			if err := s.objectives.AdjustSpreadAllocation(txCtx, sp.ID(), share); err != nil {
				return err
			}
			if err := s.deltas.ToPerspective(txCtx, sp.PerspectiveID(), share); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *AggregationService) ApplyPerspectiveDelta(ctx context.Context, pd delta.PointDelta) error {
	return composables.InTenantTx(ctx, func(txCtx context.Context) error {
		found, err := s.perspectives.AddTargetPoint(txCtx, pd.ParentID, pd.Delta)
		if err != nil {
			return err
		}
		if !found {
			s.dropped(txCtx, "perspective", pd)
		}
		return nil
	})
}

func (s *AggregationService) dropped(ctx context.Context, level string, pd delta.PointDelta) {
	tenantID, _ := composables.UseTenantID(ctx)
	s.log.WithFields(logrus.Fields{
		"tenant_id": tenantID,
		"level":     level,
		"parent_id": pd.ParentID,
		"delta":     pd.Delta,
	}).Debug("aggregation: delta dropped, parent is gone")
}
