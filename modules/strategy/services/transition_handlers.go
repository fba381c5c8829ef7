package services

import (
	"context"

	"github.com/emetric-hq/emetric/modules/strategy/domain/aggregates/initiative"
	"github.com/emetric-hq/emetric/modules/strategy/domain/aggregates/objective"
	"github.com/emetric-hq/emetric/pkg/composables"
	"github.com/emetric-hq/emetric/pkg/jobs"
)

// RegisterTransitionHandlers wires the objective and initiative status
// transitions into the job runner. Each handler is a conditional status
// update: when the row has already advanced, or is gone, nothing
// happens and the job completes as a no-op.
func RegisterTransitionHandlers(reg *jobs.Registry, objectives objective.Repository, initiatives initiative.Repository) {
	reg.Register(jobs.KindObjective, jobs.PhaseActivate, func(ctx context.Context, j jobs.Job) error {
		return composables.InTenantTx(ctx, func(txCtx context.Context) error {
			_, err := objectives.TransitionStatus(txCtx, j.Key.EntityID, objective.StatusPending, objective.StatusActive)
			return err
		})
	})
	reg.Register(jobs.KindObjective, jobs.PhaseClose, func(ctx context.Context, j jobs.Job) error {
		return composables.InTenantTx(ctx, func(txCtx context.Context) error {
			_, err := objectives.TransitionStatus(txCtx, j.Key.EntityID, objective.StatusActive, objective.StatusClosed)
			return err
		})
	})
	reg.Register(jobs.KindInitiative, jobs.PhaseActivate, func(ctx context.Context, j jobs.Job) error {
		return composables.InTenantTx(ctx, func(txCtx context.Context) error {
			_, err := initiatives.TransitionStatus(txCtx, j.Key.EntityID, initiative.StatusPending, initiative.StatusActive)
			return err
		})
	})
	reg.Register(jobs.KindInitiative, jobs.PhaseClose, func(ctx context.Context, j jobs.Job) error {
		return composables.InTenantTx(ctx, func(txCtx context.Context) error {
			_, err := initiatives.TransitionStatus(txCtx, j.Key.EntityID, initiative.StatusActive, initiative.StatusClosed)
			return err
		})
	})
}
