package task

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/emetric-hq/emetric/modules/calendar/domain/entities/workcal"
	"github.com/emetric-hq/emetric/pkg/routine"
)

// HydrateParams names every persisted field. The column count makes a
// positional constructor unreadable.
type HydrateParams struct {
	ID                 uuid.UUID
	Name               string
	UplineInitiativeID uuid.UUID
	Type               Type
	RoutineOption      routine.Option
	Recurrence         Recurrence
	RoutineRound       int
	StartDate          time.Time
	StartTime          workcal.TimeOfDay
	Duration           time.Duration
	Status             Status

	TurnAroundTimeTarget   decimal.Decimal
	TurnAroundTimeAchieved decimal.Decimal
	QualityTarget          decimal.Decimal
	QualityAchieved        decimal.Decimal
	QuantityTarget         decimal.Decimal
	QuantityAchieved       decimal.Decimal
	QuantityTargetUnit     decimal.Decimal
	QuantityUnitAchieved   decimal.Decimal
	TargetPoint            decimal.Decimal
	TargetPointAchieved    decimal.Decimal

	ReworkLimit   int
	ReworkRemark  string
	ReworkEndDate time.Time
	ReworkEndTime workcal.TimeOfDay
	RatingRemark  string

	CreatedAt time.Time
	UpdatedAt time.Time
}

func Hydrate(p HydrateParams) *Task {
	return &Task{
		id:                     p.ID,
		name:                   p.Name,
		uplineInitiativeID:     p.UplineInitiativeID,
		taskType:               p.Type,
		routineOption:          p.RoutineOption,
		recurrence:             p.Recurrence,
		routineRound:           p.RoutineRound,
		startDate:              p.StartDate,
		startTime:              p.StartTime,
		duration:               p.Duration,
		status:                 p.Status,
		turnAroundTimeTarget:   p.TurnAroundTimeTarget,
		turnAroundTimeAchieved: p.TurnAroundTimeAchieved,
		qualityTarget:          p.QualityTarget,
		qualityAchieved:        p.QualityAchieved,
		quantityTarget:         p.QuantityTarget,
		quantityAchieved:       p.QuantityAchieved,
		quantityTargetUnit:     p.QuantityTargetUnit,
		quantityUnitAchieved:   p.QuantityUnitAchieved,
		targetPoint:            p.TargetPoint,
		targetPointAchieved:    p.TargetPointAchieved,
		reworkLimit:            p.ReworkLimit,
		reworkRemark:           p.ReworkRemark,
		reworkEndDate:          p.ReworkEndDate,
		reworkEndTime:          p.ReworkEndTime,
		ratingRemark:           p.RatingRemark,
		createdAt:              p.CreatedAt,
		updatedAt:              p.UpdatedAt,
	}
}

// Snapshot is the inverse of Hydrate, used by repositories to read the
// full persisted state back out.
func (t *Task) Snapshot() HydrateParams {
	return HydrateParams{
		ID:                     t.id,
		Name:                   t.name,
		UplineInitiativeID:     t.uplineInitiativeID,
		Type:                   t.taskType,
		RoutineOption:          t.routineOption,
		Recurrence:             t.recurrence,
		RoutineRound:           t.routineRound,
		StartDate:              t.startDate,
		StartTime:              t.startTime,
		Duration:               t.duration,
		Status:                 t.status,
		TurnAroundTimeTarget:   t.turnAroundTimeTarget,
		TurnAroundTimeAchieved: t.turnAroundTimeAchieved,
		QualityTarget:          t.qualityTarget,
		QualityAchieved:        t.qualityAchieved,
		QuantityTarget:         t.quantityTarget,
		QuantityAchieved:       t.quantityAchieved,
		QuantityTargetUnit:     t.quantityTargetUnit,
		QuantityUnitAchieved:   t.quantityUnitAchieved,
		TargetPoint:            t.targetPoint,
		TargetPointAchieved:    t.targetPointAchieved,
		ReworkLimit:            t.reworkLimit,
		ReworkRemark:           t.reworkRemark,
		ReworkEndDate:          t.reworkEndDate,
		ReworkEndTime:          t.reworkEndTime,
		RatingRemark:           t.ratingRemark,
		CreatedAt:              t.createdAt,
		UpdatedAt:              t.updatedAt,
	}
}
