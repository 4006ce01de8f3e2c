// internal/bot/orchestrator/orchestrator_test.go
package orchestrator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"applybot/internal/common/config"
	stderrors "applybot/internal/common/errors"
	"applybot/internal/common/logger"
	"applybot/internal/models"
	"applybot/internal/surface"
	"applybot/internal/surface/surfacetest"
)

type fakeProvider struct {
	session    *surfacetest.Fake
	acquireErr error
	acquired   int
}

func (p *fakeProvider) Acquire(context.Context) (surface.Session, error) {
	if p.acquireErr != nil {
		return nil, p.acquireErr
	}
	p.acquired++
	return p.session, nil
}

func testConfig() config.BotConfig {
	return config.BotConfig{
		SessionTimeout: 60000,
		CoolDown:       0,
	}
}

func testApplicant() *models.Applicant {
	return &models.Applicant{ID: "user-001"}
}

func TestRun_ReleasesExactlyOnceOnSuccess(t *testing.T) {
	p := &fakeProvider{session: surfacetest.New()}
	o := New(p, testConfig(), logger.NewTestLogger(t))

	err := o.Run(context.Background(), testApplicant(), func(context.Context, surface.Session) error {
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, p.session.Released)
}

func TestRun_ReleasesExactlyOnceOnWorkError(t *testing.T) {
	p := &fakeProvider{session: surfacetest.New()}
	o := New(p, testConfig(), logger.NewTestLogger(t))

	workErr := errors.New("search failed")
	err := o.Run(context.Background(), testApplicant(), func(context.Context, surface.Session) error {
		return workErr
	})

	assert.ErrorIs(t, err, workErr)
	assert.Equal(t, 1, p.session.Released)
}

func TestRun_SessionCeilingExceeded(t *testing.T) {
	p := &fakeProvider{session: surfacetest.New()}
	cfg := testConfig()
	cfg.SessionTimeout = 30
	o := New(p, cfg, logger.NewTestLogger(t))

	err := o.Run(context.Background(), testApplicant(), func(ctx context.Context, _ surface.Session) error {
		<-ctx.Done()
		time.Sleep(5 * time.Millisecond)
		return ctx.Err()
	})

	assert.ErrorIs(t, err, ErrSessionTimeout)
	assert.Equal(t, 1, p.session.Released, "session released despite the timeout")
}

func TestRun_WorkSeesCancelledContextAtCeiling(t *testing.T) {
	p := &fakeProvider{session: surfacetest.New()}
	cfg := testConfig()
	cfg.SessionTimeout = 20
	o := New(p, cfg, logger.NewTestLogger(t))

	sawCancel := make(chan struct{})
	_ = o.Run(context.Background(), testApplicant(), func(ctx context.Context, _ surface.Session) error {
		<-ctx.Done()
		close(sawCancel)
		return ctx.Err()
	})

	select {
	case <-sawCancel:
	case <-time.After(time.Second):
		t.Fatal("work never observed the ceiling cancellation")
	}
}

func TestRun_LateWorkResultArrivesOverChannelOnly(t *testing.T) {
	p := &fakeProvider{session: surfacetest.New()}
	cfg := testConfig()
	cfg.SessionTimeout = 20
	o := New(p, cfg, logger.NewTestLogger(t))

	// Work keeps unwinding after Run returns at the ceiling. Its result must
	// reach the caller through the buffered channel, never a shared write.
	results := make(chan int, 1)
	unwinding := make(chan struct{})
	err := o.Run(context.Background(), testApplicant(), func(ctx context.Context, _ surface.Session) error {
		<-ctx.Done()
		<-unwinding
		results <- 42
		return ctx.Err()
	})

	require.ErrorIs(t, err, ErrSessionTimeout)
	select {
	case <-results:
		t.Fatal("result visible before work finished unwinding")
	default:
	}

	close(unwinding)
	select {
	case got := <-results:
		assert.Equal(t, 42, got)
	case <-time.After(time.Second):
		t.Fatal("late work never delivered its result")
	}
}

func TestRun_AcquireFailure(t *testing.T) {
	p := &fakeProvider{acquireErr: errors.New("chrome refused to start")}
	o := New(p, testConfig(), logger.NewTestLogger(t))

	err := o.Run(context.Background(), testApplicant(), func(context.Context, surface.Session) error {
		t.Fatal("work must not run without a session")
		return nil
	})

	require.Error(t, err)
	stdErr, ok := err.(*stderrors.StandardError)
	require.True(t, ok)
	assert.Equal(t, stderrors.ErrCodeSessionAcquireFailed, stdErr.Code)
	assert.True(t, stdErr.Retryable)
}

func TestRun_ReleaseErrorDoesNotMaskWorkOutcome(t *testing.T) {
	sess := surfacetest.New()
	sess.ReleaseError = errors.New("browser already gone")
	p := &fakeProvider{session: sess}
	o := New(p, testConfig(), logger.NewTestLogger(t))

	err := o.Run(context.Background(), testApplicant(), func(context.Context, surface.Session) error {
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 1, sess.Released)
}

func TestRun_OuterCancellationIsNotATimeout(t *testing.T) {
	p := &fakeProvider{session: surfacetest.New()}
	o := New(p, testConfig(), logger.NewTestLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	err := o.Run(ctx, testApplicant(), func(ctx context.Context, _ surface.Session) error {
		<-ctx.Done()
		return ctx.Err()
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrSessionTimeout)
	assert.Equal(t, 1, p.session.Released)
}

func TestRun_CoolDownRunsAfterRelease(t *testing.T) {
	p := &fakeProvider{session: surfacetest.New()}
	cfg := testConfig()
	cfg.CoolDown = 20
	o := New(p, cfg, logger.NewTestLogger(t))

	start := time.Now()
	err := o.Run(context.Background(), testApplicant(), func(context.Context, surface.Session) error {
		return nil
	})

	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}
