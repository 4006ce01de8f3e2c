// internal/surface/chromedp.go
package surface

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"

	"applybot/internal/common/config"
	"applybot/internal/common/logger"
)

// ChromeProvider launches one headless-or-headed Chrome per acquisition.
type ChromeProvider struct {
	cfg    config.SurfaceConfig
	logger logger.Logger
}

func NewChromeProvider(cfg config.SurfaceConfig, log logger.Logger) *ChromeProvider {
	return &ChromeProvider{
		cfg:    cfg,
		logger: log.WithFields(map[string]interface{}{"component": "surface"}),
	}
}

func (p *ChromeProvider) Acquire(ctx context.Context) (Session, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", p.cfg.Headless),
		chromedp.Flag("start-maximized", true),
		chromedp.NoDefaultBrowserCheck,
	)

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	// Start the browser eagerly so acquisition failures surface here, not on
	// the first interaction.
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}

	p.logger.Info("browser session acquired", nil)

	return &chromeSession{
		ctx:    browserCtx,
		slowMo: time.Duration(p.cfg.SlowMo) * time.Millisecond,
		logger: p.logger,
		cancels: []context.CancelFunc{
			browserCancel,
			allocCancel,
		},
	}, nil
}

type chromeSession struct {
	ctx     context.Context
	slowMo  time.Duration
	logger  logger.Logger
	cancels []context.CancelFunc
}

// linkContext derives a context from base that also ends when trigger ends.
// chromedp only accepts contexts descended from its own, so the caller's
// context cannot be passed to Run directly; linking this way lets an action
// abandoned by its caller stop holding the browser.
func linkContext(trigger, base context.Context) (context.Context, context.CancelFunc) {
	linked, cancel := context.WithCancel(base)
	stop := context.AfterFunc(trigger, cancel)
	return linked, func() {
		stop()
		cancel()
	}
}

// run executes actions against the browser context while honoring the
// caller's context for cancellation. The action is cancelled, not abandoned,
// when the caller's context ends.
func (s *chromeSession) run(ctx context.Context, actions ...chromedp.Action) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	runCtx, cancel := linkContext(ctx, s.ctx)
	defer cancel()

	err := chromedp.Run(runCtx, actions...)
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

func (s *chromeSession) pace() {
	if s.slowMo > 0 {
		time.Sleep(s.slowMo)
	}
}

func (s *chromeSession) Navigate(ctx context.Context, url string) error {
	s.pace()
	return s.run(ctx, chromedp.Navigate(url))
}

func (s *chromeSession) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return s.run(waitCtx, chromedp.WaitVisible(selector, chromedp.ByQuery))
}

func (s *chromeSession) Click(ctx context.Context, selector string) error {
	s.pace()
	return s.run(ctx, chromedp.Click(selector, chromedp.ByQuery))
}

func (s *chromeSession) ClickAll(ctx context.Context, selector string) error {
	script := fmt.Sprintf(
		`(function(){ var els = document.querySelectorAll(%q); els.forEach(function(el){ try { el.click(); } catch (e) {} }); return els.length; })()`,
		selector,
	)
	var clicked int
	return s.run(ctx, chromedp.Evaluate(script, &clicked))
}

func (s *chromeSession) TypeSlow(ctx context.Context, selector, text string) error {
	if err := s.run(ctx, chromedp.Focus(selector, chromedp.ByQuery)); err != nil {
		return err
	}
	for _, r := range text {
		if err := s.run(ctx, chromedp.SendKeys(selector, string(r), chromedp.ByQuery)); err != nil {
			return err
		}
		// Randomized 100-300ms inter-character delay, anti-detection pacing.
		time.Sleep(time.Duration(100+rand.Intn(200)) * time.Millisecond)
	}
	return nil
}

func (s *chromeSession) SetValue(ctx context.Context, selector, value string) error {
	script := fmt.Sprintf(
		`(function(){ var el = document.querySelector(%q); if (!el) { return false; } el.value = %q; el.dispatchEvent(new Event('change', { bubbles: true })); return true; })()`,
		selector, value,
	)
	var ok bool
	if err := s.run(ctx, chromedp.Evaluate(script, &ok)); err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("set value: no element matches %q", selector)
	}
	return nil
}

func (s *chromeSession) Text(ctx context.Context, selector string) (string, error) {
	var out string
	if err := s.run(ctx, chromedp.Text(selector, &out, chromedp.ByQuery)); err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

func (s *chromeSession) Exists(ctx context.Context, selector string) (bool, error) {
	script := fmt.Sprintf(`document.querySelector(%q) !== null`, selector)
	var exists bool
	if err := s.run(ctx, chromedp.Evaluate(script, &exists)); err != nil {
		return false, err
	}
	return exists, nil
}

func (s *chromeSession) Count(ctx context.Context, selector string) (int, error) {
	script := fmt.Sprintf(`document.querySelectorAll(%q).length`, selector)
	var n int
	if err := s.run(ctx, chromedp.Evaluate(script, &n)); err != nil {
		return 0, err
	}
	return n, nil
}

func (s *chromeSession) Evaluate(ctx context.Context, script string, out interface{}) error {
	return s.run(ctx, chromedp.Evaluate(script, out))
}

func (s *chromeSession) PressEnter(ctx context.Context, selector string) error {
	return s.run(ctx, chromedp.SendKeys(selector, kb.Enter, chromedp.ByQuery))
}

func (s *chromeSession) URL(ctx context.Context) (string, error) {
	var u string
	if err := s.run(ctx, chromedp.Location(&u)); err != nil {
		return "", err
	}
	return u, nil
}

func (s *chromeSession) Release() error {
	err := chromedp.Cancel(s.ctx)
	for _, cancel := range s.cancels {
		cancel()
	}
	if err != nil {
		return fmt.Errorf("browser shutdown: %w", err)
	}
	s.logger.Info("browser session released", nil)
	return nil
}
