package delta

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/emetric-hq/emetric/pkg/composables"
	"github.com/emetric-hq/emetric/pkg/outbox"
)

// Topics for the three aggregation levels. Each message carries one
// signed point change aimed at a single parent.
const (
	TopicInitiative  = "strategy.initiative.delta"
	TopicObjective   = "strategy.objective.delta"
	TopicPerspective = "strategy.perspective.delta"
)

// Table is the outbox table every delta flows through.
var Table = pgx.Identifier{"strategy_outbox"}

// PointDelta is the wire payload. Applying it is a commutative add, so
// deliveries may be reordered freely; they must not be duplicated
// (application is not idempotent, see the aggregation service).
type PointDelta struct {
	ParentID uuid.UUID       `json:"parent_id"`
	Delta    decimal.Decimal `json:"delta"`
}

// Publisher enqueues deltas into the strategy outbox inside the
// caller's transaction. Every message gets a fresh event id: the id
// exists as a dedup hook for consumers that want one, but the engine
// itself does not deduplicate.
type Publisher struct {
	outbox outbox.Publisher
}

func NewPublisher(ob outbox.Publisher) *Publisher {
	return &Publisher{outbox: ob}
}

func (p *Publisher) enqueue(ctx context.Context, topic string, parentID uuid.UUID, d decimal.Decimal) error {
	if d.IsZero() {
		return nil
	}
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return err
	}
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(PointDelta{ParentID: parentID, Delta: d})
	if err != nil {
		return err
	}
	_, err = p.outbox.Enqueue(ctx, tx, Table, outbox.Message{
		TenantID: tenantID,
		Topic:    topic,
		EventID:  uuid.New(),
		Payload:  payload,
	})
	return err
}

func (p *Publisher) ToInitiative(ctx context.Context, initiativeID uuid.UUID, d decimal.Decimal) error {
	return p.enqueue(ctx, TopicInitiative, initiativeID, d)
}

func (p *Publisher) ToObjective(ctx context.Context, objectiveID uuid.UUID, d decimal.Decimal) error {
	return p.enqueue(ctx, TopicObjective, objectiveID, d)
}

func (p *Publisher) ToPerspective(ctx context.Context, perspectiveID uuid.UUID, d decimal.Decimal) error {
	return p.enqueue(ctx, TopicPerspective, perspectiveID, d)
}
