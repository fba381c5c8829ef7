package submission

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var ErrSubmissionNotFound = errors.New("submission not found")

// Submission is one hand-in against a task, by the owner or by the
// assignor during rating. Newest submissions win when the rating
// service reads the achieved quantity unit back out.
type Submission struct {
	id                   uuid.UUID
	taskID               uuid.UUID
	userID               uuid.UUID
	quantityUnitAchieved decimal.Decimal
	remark               string
	createdAt            time.Time
}

func New(taskID, userID uuid.UUID, quantityUnitAchieved decimal.Decimal, remark string) *Submission {
	return &Submission{
		id:                   uuid.New(),
		taskID:               taskID,
		userID:               userID,
		quantityUnitAchieved: quantityUnitAchieved,
		remark:               remark,
		createdAt:            time.Now(),
	}
}

func Hydrate(
	id, taskID, userID uuid.UUID,
	quantityUnitAchieved decimal.Decimal,
	remark string,
	createdAt time.Time,
) *Submission {
	return &Submission{
		id:                   id,
		taskID:               taskID,
		userID:               userID,
		quantityUnitAchieved: quantityUnitAchieved,
		remark:               remark,
		createdAt:            createdAt,
	}
}

func (s *Submission) ID() uuid.UUID                         { return s.id }
func (s *Submission) TaskID() uuid.UUID                     { return s.taskID }
func (s *Submission) UserID() uuid.UUID                     { return s.userID }
func (s *Submission) QuantityUnitAchieved() decimal.Decimal { return s.quantityUnitAchieved }
func (s *Submission) Remark() string                        { return s.remark }
func (s *Submission) CreatedAt() time.Time                  { return s.createdAt }

type Repository interface {
	Create(ctx context.Context, s *Submission) error
	// ForTask lists a task's submissions newest first.
	ForTask(ctx context.Context, taskID uuid.UUID) ([]*Submission, error)
	DeleteForTasks(ctx context.Context, taskIDs ...uuid.UUID) error
}
