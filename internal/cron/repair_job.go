package cron

import (
	"context"
	"fmt"

	"go.uber.org/multierr"

	"github.com/openbiocard/openbiocard-backend/internal/repair"
	"github.com/openbiocard/openbiocard-backend/pkg/logger"
)

const (
	repairJobName          = "projection-repair"
	defaultRepairBatchSize = 50
)

type reconciler interface {
	Reconcile(ctx context.Context, username string) error
}

type ProjectionRepairJobParams struct {
	Logger    *logger.Logger
	Queue     repair.Queue
	Service   reconciler
	BatchSize int
}

func NewProjectionRepairJob(params ProjectionRepairJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Queue == nil {
		return nil, fmt.Errorf("repair queue required")
	}
	if params.Service == nil {
		return nil, fmt.Errorf("reconciler required")
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultRepairBatchSize
	}
	return &projectionRepairJob{
		logg:  params.Logger,
		queue: params.Queue,
		svc:   params.Service,
		batch: batch,
	}, nil
}

// projectionRepairJob re-derives directory entries for queued usernames from
// their account stores. A username leaves the queue only once it reconciled.
type projectionRepairJob struct {
	logg  *logger.Logger
	queue repair.Queue
	svc   reconciler
	batch int
}

func (j *projectionRepairJob) Name() string { return repairJobName }

func (j *projectionRepairJob) Run(ctx context.Context) error {
	pending, err := j.queue.Pending(ctx, j.batch)
	if err != nil {
		return fmt.Errorf("list pending repairs: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	var errs error
	repaired := 0
	for _, username := range pending {
		if ctx.Err() != nil {
			errs = multierr.Append(errs, ctx.Err())
			break
		}
		if err := j.svc.Reconcile(ctx, username); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("reconcile %s: %w", username, err))
			continue
		}
		if err := j.queue.Clear(ctx, username); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("clear %s: %w", username, err))
			continue
		}
		repaired++
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"pending":  len(pending),
		"repaired": repaired,
		"failed":   len(multierr.Errors(errs)),
	})
	j.logg.Info(logCtx, "projection repair pass complete")
	return errs
}
