package perspective

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var ErrPerspectiveNotFound = errors.New("perspective not found")

// Perspective is a top-level aggregation bucket. Its target point is a
// running sum of the deltas ever applied to it, never recomputed from
// the objectives below.
type Perspective struct {
	id          uuid.UUID
	name        string
	targetPoint decimal.Decimal
	createdAt   time.Time
	updatedAt   time.Time
}

func New(name string) *Perspective {
	now := time.Now()
	return &Perspective{
		id:          uuid.New(),
		name:        strings.ToLower(strings.TrimSpace(name)),
		targetPoint: decimal.Zero,
		createdAt:   now,
		updatedAt:   now,
	}
}

func Hydrate(id uuid.UUID, name string, targetPoint decimal.Decimal, createdAt, updatedAt time.Time) *Perspective {
	return &Perspective{
		id:          id,
		name:        name,
		targetPoint: targetPoint,
		createdAt:   createdAt,
		updatedAt:   updatedAt,
	}
}

func (p *Perspective) ID() uuid.UUID                { return p.id }
func (p *Perspective) Name() string                 { return p.name }
func (p *Perspective) TargetPoint() decimal.Decimal { return p.targetPoint }
func (p *Perspective) CreatedAt() time.Time         { return p.createdAt }
func (p *Perspective) UpdatedAt() time.Time         { return p.updatedAt }

type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Perspective, error)
	GetAll(ctx context.Context) ([]*Perspective, error)
	Create(ctx context.Context, p *Perspective) error
	// AddTargetPoint applies a signed delta in place. It reports false
	// when the perspective no longer exists, which callers treat as a
	// dropped delta rather than an error.
	AddTargetPoint(ctx context.Context, id uuid.UUID, delta decimal.Decimal) (bool, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
