package jobs

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/emetric-hq/emetric/pkg/composables"
)

// RunnerOptions control the polling loop. Zero values fall back to
// defaults, matching the outbox relay's option style.
type RunnerOptions struct {
	PollInterval time.Duration
	BatchSize    int
	Logger       *logrus.Entry
}

func (o *RunnerOptions) setDefaults() {
	if o.PollInterval <= 0 {
		o.PollInterval = time.Second
	}
	if o.BatchSize <= 0 {
		o.BatchSize = 100
	}
	if o.Logger == nil {
		nop := logrus.New()
		nop.SetOutput(nopWriter{})
		o.Logger = logrus.NewEntry(nop)
	}
}

type nopWriter struct{}

func (nopWriter) Write(p []byte) (int, error) { return len(p), nil }

const jobClaimQuery = `
	SELECT id, tenant_id, entity_kind, entity_id, phase, round, fire_at, created_at
	  FROM transition_jobs
	 WHERE fire_at <= $1
	 ORDER BY fire_at
	 LIMIT $2
	 FOR UPDATE SKIP LOCKED`

// Runner polls transition_jobs for due jobs and executes their handlers.
// Claimed rows stay row-locked while the handler runs, so concurrent
// runners never fire the same job twice; the row is deleted afterwards
// whether or not the handler succeeded. Handlers tolerate this: they
// re-check entity state, and a lost transition surfaces as a benign
// stale status, not corruption.
type Runner struct {
	pool     *pgxpool.Pool
	registry *Registry
	opts     RunnerOptions
	m        *metrics
}

func NewRunner(pool *pgxpool.Pool, registry *Registry, opts RunnerOptions) *Runner {
	opts.setDefaults()
	return &Runner{
		pool:     pool,
		registry: registry,
		opts:     opts,
		m:        getMetrics(),
	}
}

func (r *Runner) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		if err := r.processOnce(ctx); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			r.opts.Logger.WithError(err).Warn("jobs: process tick failed")
		}
	}
}

func (r *Runner) processOnce(ctx context.Context) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	rows, err := tx.Query(ctx, jobClaimQuery, time.Now(), r.opts.BatchSize)
	if err != nil {
		return err
	}

	var due []Job
	for rows.Next() {
		var j Job
		if err := rows.Scan(
			&j.ID, &j.Key.TenantID, &j.Key.EntityKind, &j.Key.EntityID,
			&j.Key.Phase, &j.Key.Round, &j.FireAt, &j.CreatedAt,
		); err != nil {
			rows.Close()
			return err
		}
		due = append(due, j)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}
	if len(due) == 0 {
		return tx.Commit(ctx)
	}

	fired := make([]uuid.UUID, 0, len(due))
	for _, j := range due {
		r.execute(ctx, j)
		fired = append(fired, j.ID)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM transition_jobs WHERE id = ANY($1)`, fired); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// execute runs the handler with the job's tenant resolved back into
// context. Handler failures are logged and dropped, never retried.
func (r *Runner) execute(ctx context.Context, j Job) {
	kind, phase := string(j.Key.EntityKind), string(j.Key.Phase)
	r.m.firedTotal.WithLabelValues(kind, phase).Inc()
	r.m.fireDelay.WithLabelValues(kind, phase).Observe(time.Since(j.FireAt).Seconds())

	handler, err := r.registry.Resolve(j.Key.EntityKind, j.Key.Phase)
	if err != nil {
		r.m.handlerError.WithLabelValues(kind, phase).Inc()
		r.opts.Logger.WithError(err).WithField("entity_id", j.Key.EntityID).Error("jobs: unroutable job")
		return
	}

	jobCtx := composables.WithPool(ctx, r.pool)
	jobCtx = composables.WithTenantID(jobCtx, j.Key.TenantID)
	if err := handler(jobCtx, j); err != nil {
		r.m.handlerError.WithLabelValues(kind, phase).Inc()
		r.opts.Logger.WithError(err).
			WithField("entity_id", j.Key.EntityID).
			WithField("phase", phase).
			Warn("jobs: transition handler failed")
	}
}
