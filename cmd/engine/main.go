package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	strategypersistence "github.com/emetric-hq/emetric/modules/strategy/infrastructure/persistence"
	strategyservices "github.com/emetric-hq/emetric/modules/strategy/services"
	"github.com/emetric-hq/emetric/modules/strategy/domain/delta"
	taskspersistence "github.com/emetric-hq/emetric/modules/tasks/infrastructure/persistence"
	tasksservices "github.com/emetric-hq/emetric/modules/tasks/services"
	"github.com/emetric-hq/emetric/pkg/configuration"
	"github.com/emetric-hq/emetric/pkg/eventbus"
	"github.com/emetric-hq/emetric/pkg/jobs"
	"github.com/emetric-hq/emetric/pkg/ops"
	"github.com/emetric-hq/emetric/pkg/outbox"
	eventbusdispatcher "github.com/emetric-hq/emetric/pkg/outbox/dispatchers/eventbus"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			log.Println(r)
			debug.PrintStack()
			os.Exit(1)
		}
	}()

	conf := configuration.Use()
	logger := conf.Logger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	poolCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	pool, err := pgxpool.New(poolCtx, conf.Database.ConnectionString())
	if err != nil {
		logger.WithError(err).Fatal("engine: failed to open database pool")
	}
	defer pool.Close()

	bus := eventbus.NewEventPublisher(logger)

	objectives := strategypersistence.NewObjectiveRepository()
	initiatives := strategypersistence.NewInitiativeRepository()
	perspectives := strategypersistence.NewPerspectiveRepository()
	tasks := taskspersistence.NewTaskRepository()

	deltas := delta.NewPublisher(outbox.NewPublisher())
	aggregation := strategyservices.NewAggregationService(
		pool, objectives, initiatives, perspectives, deltas, logger,
	)
	aggregation.Register(bus)

	registry := jobs.NewRegistry()
	strategyservices.RegisterTransitionHandlers(registry, objectives, initiatives)
	tasksservices.RegisterTransitionHandlers(registry, tasks)

	if conf.Outbox.RelayEnabled {
		relay, err := outbox.NewRelay(
			pool,
			pgx.Identifier{conf.Outbox.RelayTable},
			eventbusdispatcher.New(bus),
			outbox.RelayOptions{
				PollInterval:    conf.Outbox.RelayPollInterval,
				BatchSize:       conf.Outbox.RelayBatchSize,
				LockTTL:         conf.Outbox.RelayLockTTL,
				MaxAttempts:     conf.Outbox.RelayMaxAttempts,
				SingleActive:    conf.Outbox.RelaySingleActive,
				DispatchTimeout: conf.Outbox.RelayDispatchTimeout,
				Logger:          logger.WithField("component", "outbox-relay"),
			},
		)
		if err != nil {
			logger.WithError(err).Fatal("engine: failed to build outbox relay")
		}
		go runComponent(ctx, logger, "outbox relay", relay.Run)
	}

	if conf.Jobs.RunnerEnabled {
		runner := jobs.NewRunner(pool, registry, jobs.RunnerOptions{
			PollInterval: conf.Jobs.RunnerPollInterval,
			BatchSize:    conf.Jobs.RunnerBatchSize,
			Logger:       logger.WithField("component", "jobs-runner"),
		})
		go runComponent(ctx, logger, "transition job runner", runner.Run)
	}

	if conf.Ops.Enabled {
		server := ops.NewServer(conf.Ops.Address, conf.Ops.Path, pool, logger)
		logger.WithField("address", conf.Ops.Address).Info("engine: ops server listening")
		if err := server.Run(ctx); err != nil {
			logger.WithError(err).Fatal("engine: ops server failed")
		}
		return
	}

	<-ctx.Done()
}

func runComponent(ctx context.Context, logger *logrus.Logger, name string, run func(context.Context) error) {
	if err := run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.WithError(err).Errorf("engine: %s stopped", name)
	}
}
