// Package orchestrator owns the lifecycle of one interactive session per
// applicant: acquire, bounded-time execution, guaranteed release.
//
// One applicant's session at a time. The work function runs under the
// per-applicant ceiling; when it blows the ceiling the goroutine's context
// is cancelled and the session is torn down underneath it, which unblocks
// any in-flight surface call. Release happens exactly once on every path
// and its error never masks the work outcome.
package orchestrator

import (
	"context"
	"errors"
	"time"

	"applybot/internal/common/config"
	stderrors "applybot/internal/common/errors"
	"applybot/internal/common/logger"
	"applybot/internal/models"
	"applybot/internal/surface"
)

// ErrSessionTimeout reports that the applicant's work exceeded the session
// ceiling. The remaining work for that applicant is abandoned; the next
// applicant is unaffected.
var ErrSessionTimeout = errors.New("session ceiling exceeded")

// Work is one applicant's complete session activity.
type Work func(ctx context.Context, s surface.Session) error

type Orchestrator struct {
	provider surface.Provider
	cfg      config.BotConfig
	logger   logger.Logger
}

func New(provider surface.Provider, cfg config.BotConfig, log logger.Logger) *Orchestrator {
	return &Orchestrator{
		provider: provider,
		cfg:      cfg,
		logger:   log.WithFields(map[string]interface{}{"component": "orchestrator"}),
	}
}

// Run executes work inside a fresh session and always releases it. When the
// ceiling fires, Run returns while work may still be unwinding; work must
// hand any results to its caller through a channel or other synchronized
// means instead of writing caller state after cancellation.
func (o *Orchestrator) Run(ctx context.Context, applicant *models.Applicant, work Work) error {
	sess, err := o.provider.Acquire(ctx)
	if err != nil {
		return stderrors.NewSessionAcquireFailedError(err)
	}

	workErr := o.runBounded(ctx, sess, applicant, work)

	if err := sess.Release(); err != nil {
		o.logger.Error("session release failed", map[string]interface{}{
			"applicantId": applicant.ID,
			"error":       err.Error(),
		})
	}

	o.coolDown(ctx)
	return workErr
}

func (o *Orchestrator) runBounded(ctx context.Context, sess surface.Session, applicant *models.Applicant, work Work) error {
	ceiling := config.GetDuration(o.cfg.SessionTimeout)
	workCtx, cancel := context.WithTimeout(ctx, ceiling)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- work(workCtx, sess)
	}()

	select {
	case err := <-done:
		return err
	case <-workCtx.Done():
		if ctx.Err() != nil {
			// The whole run was cancelled, not just this applicant.
			return ctx.Err()
		}
		o.logger.Warn("session ceiling exceeded, abandoning applicant", map[string]interface{}{
			"applicantId": applicant.ID,
			"ceilingMs":   o.cfg.SessionTimeout,
		})
		return ErrSessionTimeout
	}
}

// coolDown pauses between applicants so consecutive sessions do not hammer
// the surface back to back.
func (o *Orchestrator) coolDown(ctx context.Context) {
	d := config.GetDuration(o.cfg.CoolDown)
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}
