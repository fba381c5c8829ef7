package services

import (
	"context"

	"github.com/emetric-hq/emetric/modules/tasks/domain/aggregates/task"
	"github.com/emetric-hq/emetric/pkg/composables"
	"github.com/emetric-hq/emetric/pkg/jobs"
)

// RegisterTransitionHandlers wires the task status transitions into the
// job runner. Each handler is a conditional status update: a row that
// already advanced, or is gone, leaves the job a no-op.
func RegisterTransitionHandlers(reg *jobs.Registry, tasks task.Repository) {
	reg.Register(jobs.KindTask, jobs.PhaseActivate, func(ctx context.Context, j jobs.Job) error {
		return composables.InTenantTx(ctx, func(txCtx context.Context) error {
			_, err := tasks.TransitionStatus(txCtx, j.Key.EntityID, task.StatusPending, task.StatusActive)
			return err
		})
	})
	reg.Register(jobs.KindTask, jobs.PhaseOverdue, func(ctx context.Context, j jobs.Job) error {
		return composables.InTenantTx(ctx, func(txCtx context.Context) error {
			_, err := tasks.TransitionStatus(txCtx, j.Key.EntityID, task.StatusActive, task.StatusOverDue)
			return err
		})
	})
	reg.Register(jobs.KindTask, jobs.PhaseReworkOverdue, func(ctx context.Context, j jobs.Job) error {
		return composables.InTenantTx(ctx, func(txCtx context.Context) error {
			_, err := tasks.TransitionStatus(txCtx, j.Key.EntityID, task.StatusRework, task.StatusReworkOverDue)
			return err
		})
	})
}
