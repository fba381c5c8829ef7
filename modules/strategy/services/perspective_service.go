package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/emetric-hq/emetric/modules/strategy/domain/aggregates/perspective"
	"github.com/emetric-hq/emetric/pkg/composables"
	"github.com/emetric-hq/emetric/pkg/serrors"
)

type PerspectiveService struct {
	repo perspective.Repository
}

func NewPerspectiveService(repo perspective.Repository) *PerspectiveService {
	return &PerspectiveService{repo: repo}
}

func (s *PerspectiveService) GetByID(ctx context.Context, id uuid.UUID) (*perspective.Perspective, error) {
	return composables.InTenantTxResult(ctx, func(txCtx context.Context) (*perspective.Perspective, error) {
		return s.repo.GetByID(txCtx, id)
	})
}

func (s *PerspectiveService) GetAll(ctx context.Context) ([]*perspective.Perspective, error) {
	return composables.InTenantTxResult(ctx, func(txCtx context.Context) ([]*perspective.Perspective, error) {
		return s.repo.GetAll(txCtx)
	})
}

func (s *PerspectiveService) Create(ctx context.Context, name string) (*perspective.Perspective, error) {
	if name == "" {
		return nil, serrors.Validation("name", "name is required")
	}
	p := perspective.New(name)
	err := composables.InTenantTx(ctx, func(txCtx context.Context) error {
		return s.repo.Create(txCtx, p)
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (s *PerspectiveService) Delete(ctx context.Context, id uuid.UUID) error {
	return composables.InTenantTx(ctx, func(txCtx context.Context) error {
		return s.repo.Delete(txCtx, id)
	})
}
