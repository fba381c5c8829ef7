package objective

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Spread links an objective to one perspective with a caller-supplied
// weight. relativePoint is write-once at creation; allocation is the
// cached share of the objective's target point currently attributed to
// the perspective, adjusted with every objective delta.
type Spread struct {
	id            uuid.UUID
	objectiveID   uuid.UUID
	perspectiveID uuid.UUID
	relativePoint decimal.Decimal
	allocation    decimal.Decimal
}

func NewSpread(objectiveID, perspectiveID uuid.UUID, relativePoint decimal.Decimal) *Spread {
	return &Spread{
		id:            uuid.New(),
		objectiveID:   objectiveID,
		perspectiveID: perspectiveID,
		relativePoint: relativePoint,
		allocation:    decimal.Zero,
	}
}

func HydrateSpread(id, objectiveID, perspectiveID uuid.UUID, relativePoint, allocation decimal.Decimal) *Spread {
	return &Spread{
		id:            id,
		objectiveID:   objectiveID,
		perspectiveID: perspectiveID,
		relativePoint: relativePoint,
		allocation:    allocation,
	}
}

func (s *Spread) ID() uuid.UUID                  { return s.id }
func (s *Spread) ObjectiveID() uuid.UUID         { return s.objectiveID }
func (s *Spread) PerspectiveID() uuid.UUID       { return s.perspectiveID }
func (s *Spread) RelativePoint() decimal.Decimal { return s.relativePoint }
func (s *Spread) Allocation() decimal.Decimal    { return s.allocation }

// Share returns this spread's fraction of an objective delta given the
// total weight across all of the objective's spreads.
func (s *Spread) Share(delta, totalWeight decimal.Decimal) decimal.Decimal {
	if totalWeight.IsZero() {
		return decimal.Zero
	}
	return s.relativePoint.Div(totalWeight).Mul(delta)
}
