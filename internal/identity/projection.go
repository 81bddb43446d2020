package identity

import (
	"context"

	pkgerrors "github.com/openbiocard/openbiocard-backend/pkg/errors"
	"github.com/openbiocard/openbiocard-backend/pkg/metrics"
)

// Flow names used in logs and metrics.
const (
	FlowSignup        = "signup"
	FlowVerifyEmail   = "verify_email"
	FlowProfileEdit   = "profile_edit"
	FlowAdminCreate   = "admin_create"
	FlowAdminPassword = "admin_password"
	FlowDelete        = "delete"
	FlowResync        = "resync"
	FlowReconcile     = "reconcile"
)

type projectionMode int

const (
	// bestEffort logs and queues failures and lets the request succeed.
	bestEffort projectionMode = iota
	// gated surfaces directory conflicts; transient failures behave as bestEffort.
	gated
	// required fails the request on any directory failure.
	required
)

func (m projectionMode) String() string {
	switch m {
	case gated:
		return "gated"
	case required:
		return "required"
	default:
		return "best_effort"
	}
}

// projectBestEffort runs a step whose failures never reach the caller.
func (s *service) projectBestEffort(ctx context.Context, flow, username string, step func(context.Context) error) {
	if err := s.project(ctx, flow, username, bestEffort, step); err != nil {
		s.logg.Error(ctx, "best-effort projection returned an error", err)
	}
}

// project runs one directory step after the authoritative write succeeded.
func (s *service) project(ctx context.Context, flow, username string, mode projectionMode, step func(context.Context) error) error {
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"flow":       flow,
		"username":   username,
		"projection": mode.String(),
	})

	err := step(ctx)
	if err == nil {
		s.metrics.Observe(flow, metrics.OutcomeOK)
		s.logg.Debug(logCtx, "directory projection applied")
		return nil
	}

	if pkgerrors.Is(err, pkgerrors.CodeConflict) {
		s.metrics.Observe(flow, metrics.OutcomeConflict)
		if mode == bestEffort {
			// Retrying cannot resolve a conflict, so nothing is queued.
			s.logg.Warn(s.logg.WithField(logCtx, "error", err.Error()), "directory projection conflict ignored")
			return nil
		}
		s.logg.Warn(s.logg.WithField(logCtx, "error", err.Error()), "directory projection conflict")
		return err
	}

	s.metrics.Observe(flow, metrics.OutcomeFailed)
	s.logg.Error(logCtx, "directory projection failed", err)
	s.markForRepair(logCtx, flow, username)

	if mode == required {
		if pkgerrors.Is(err, pkgerrors.CodeUnavailable) {
			return err
		}
		return pkgerrors.Wrap(pkgerrors.CodeUnavailable, err, "directory update failed")
	}
	return nil
}

// skip records that a flow deliberately left the directory untouched.
func (s *service) skip(ctx context.Context, flow, username string) {
	s.metrics.Observe(flow, metrics.OutcomeSkipped)
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"flow":       flow,
		"username":   username,
		"projection": "deferred",
	})
	s.logg.Debug(logCtx, "directory projection deferred")
}

func (s *service) markForRepair(ctx context.Context, flow, username string) {
	if err := s.repair.Mark(ctx, username); err != nil {
		s.logg.Error(ctx, "failed to queue projection repair", err)
		return
	}
	s.metrics.Marked(flow)
}

func outcomeFor(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeOK
	case pkgerrors.Is(err, pkgerrors.CodeConflict):
		return metrics.OutcomeConflict
	default:
		return metrics.OutcomeFailed
	}
}
