// Package app wires the stores, the coordinator and the repair worker from
// configuration. Both cmd binaries build on it.
package app

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"

	"github.com/openbiocard/openbiocard-backend/internal/accounts"
	"github.com/openbiocard/openbiocard-backend/internal/cron"
	"github.com/openbiocard/openbiocard-backend/internal/directory"
	"github.com/openbiocard/openbiocard-backend/internal/identity"
	"github.com/openbiocard/openbiocard-backend/internal/repair"
	"github.com/openbiocard/openbiocard-backend/pkg/config"
	"github.com/openbiocard/openbiocard-backend/pkg/logger"
	"github.com/openbiocard/openbiocard-backend/pkg/mailer"
	"github.com/openbiocard/openbiocard-backend/pkg/metrics"
	"github.com/openbiocard/openbiocard-backend/pkg/migrate"
	pkgredis "github.com/openbiocard/openbiocard-backend/pkg/redis"
	"github.com/openbiocard/openbiocard-backend/pkg/security"
	"github.com/openbiocard/openbiocard-backend/pkg/storage"
)

const repairLockName = "projection-repair"

// App holds the long-lived resources of one process.
type App struct {
	Config   *config.Config
	Logger   *logger.Logger
	Redis    *pkgredis.Client
	Storage  storage.Backend
	Identity identity.Service
	Repair   repair.Queue
	Metrics  *prometheus.Registry
}

// New connects to redis when configured, opens storage, runs migrations
// when enabled and builds the coordinator. On error everything opened so
// far is closed again.
func New(ctx context.Context, cfg *config.Config, logg *logger.Logger) (_ *App, err error) {
	a := &App{Config: cfg, Logger: logg, Metrics: prometheus.NewRegistry()}
	defer func() {
		if err != nil {
			err = multierr.Append(err, a.Close())
		}
	}()

	a.Metrics.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	if cfg.Redis.Enabled() {
		a.Redis, err = pkgredis.New(ctx, cfg.Redis, logg)
		if err != nil {
			return nil, fmt.Errorf("bootstrap redis: %w", err)
		}
	}

	opened, err := storage.Open(ctx, cfg, a.Redis, logg)
	if err != nil {
		return nil, err
	}
	a.Storage = opened.Backend
	if err := migrate.MaybeRun(ctx, cfg, logg, opened.SQL); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	if a.Redis != nil {
		a.Repair = repair.NewRedisQueue(a.Redis)
	} else {
		logg.Warn(ctx, "redis not configured; repair marks are kept in process memory")
		a.Repair = repair.NewMemoryQueue()
	}

	a.Identity, err = identity.NewService(identity.ServiceParams{
		Accounts:  accounts.NewRegistry(a.Storage),
		Directory: directory.NewStore(a.Storage),
		Hasher:    security.NewHasher(cfg.Password),
		Mailer:    mailer.New(cfg.Mail, logg),
		Repair:    a.Repair,
		Metrics:   metrics.NewProjectionMetrics(a.Metrics),
		Logger:    logg,
		Root:      cfg.Root,
		Policy:    cfg.Directory,
	})
	if err != nil {
		return nil, fmt.Errorf("build identity service: %w", err)
	}
	return a, nil
}

// RepairWorker builds the cron service running the projection-repair job.
// Without redis the run lock is process-local.
func (a *App) RepairWorker() (*cron.Service, error) {
	var lock cron.Lock = cron.NewLocalLock()
	if a.Redis != nil {
		redisLock, err := cron.NewRedisLock(a.Redis, a.Redis.LockKey(repairLockName), a.Config.Repair.LockTTL)
		if err != nil {
			return nil, err
		}
		lock = redisLock
	}

	job, err := cron.NewProjectionRepairJob(cron.ProjectionRepairJobParams{
		Logger:    a.Logger,
		Queue:     a.Repair,
		Service:   a.Identity,
		BatchSize: a.Config.Repair.BatchSize,
	})
	if err != nil {
		return nil, err
	}

	return cron.NewService(cron.ServiceParams{
		Logger:   a.Logger,
		Registry: cron.NewRegistry(job),
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(a.Metrics),
		Interval: a.Config.Repair.Interval,
	})
}

// Close releases storage and redis.
func (a *App) Close() error {
	var errs error
	if a.Storage != nil {
		errs = multierr.Append(errs, a.Storage.Close())
	}
	if a.Redis != nil {
		errs = multierr.Append(errs, a.Redis.Close())
	}
	return errs
}
