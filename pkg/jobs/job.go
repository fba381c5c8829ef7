package jobs

import (
	"time"

	"github.com/google/uuid"
)

// EntityKind identifies which aggregate a transition job belongs to.
type EntityKind string

const (
	KindObjective  EntityKind = "objective"
	KindInitiative EntityKind = "initiative"
	KindTask       EntityKind = "task"
)

// Phase is the status boundary a job fires at.
type Phase string

const (
	PhaseActivate      Phase = "activate"
	PhaseClose         Phase = "close"
	PhaseOverdue       Phase = "overdue"
	PhaseReworkOverdue Phase = "rework_overdue"
)

// Key uniquely identifies a transition job. Round is zero except for
// rework-overdue jobs, which carry the rework cycle number so repeated
// rework on the same task never collides.
type Key struct {
	TenantID   uuid.UUID
	EntityKind EntityKind
	EntityID   uuid.UUID
	Phase      Phase
	Round      int
}

func NewKey(tenantID uuid.UUID, kind EntityKind, entityID uuid.UUID, phase Phase) Key {
	return Key{TenantID: tenantID, EntityKind: kind, EntityID: entityID, Phase: phase}
}

func NewReworkKey(tenantID uuid.UUID, taskID uuid.UUID, round int) Key {
	return Key{
		TenantID:   tenantID,
		EntityKind: KindTask,
		EntityID:   taskID,
		Phase:      PhaseReworkOverdue,
		Round:      round,
	}
}

// Job is one persisted, wall-clock-triggered transition.
type Job struct {
	ID        uuid.UUID
	Key       Key
	FireAt    time.Time
	CreatedAt time.Time
}
