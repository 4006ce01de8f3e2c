// cmd/applybot/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"applybot/internal/bot/classifier"
	"applybot/internal/bot/discovery"
	"applybot/internal/bot/form"
	"applybot/internal/bot/orchestrator"
	"applybot/internal/bot/pagination"
	"applybot/internal/bot/quota"
	"applybot/internal/common/config"
	"applybot/internal/common/database"
	stderrors "applybot/internal/common/errors"
	"applybot/internal/common/logger"
	"applybot/internal/common/observability"
	"applybot/internal/export"
	"applybot/internal/models"
	"applybot/internal/notify"
	"applybot/internal/store/applicants"
	"applybot/internal/store/ledger"
	"applybot/internal/surface"
)

func main() {
	exportOnly := flag.Bool("export-only", false, "run the applicant export once and exit")
	botOnly := flag.Bool("bot-only", false, "run only the application engine, skip the export")
	configPath := flag.String("config", "", "path to the config file (defaults to configs/config.yaml)")
	flag.Parse()

	if *exportOnly && *botOnly {
		fmt.Fprintln(os.Stderr, "-export-only and -bot-only are mutually exclusive")
		os.Exit(2)
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewZapAdapter(logger.New(cfg.Logging.Level, cfg.Logging.Format))
	log.Info("starting applybot", map[string]interface{}{
		"version":     cfg.App.Version,
		"environment": cfg.App.Environment,
		"exportOnly":  *exportOnly,
		"botOnly":     *botOnly,
	})

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown()

	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		if err := http.ListenAndServe(cfg.App.MetricsAddr, mux); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Warn("metrics endpoint stopped", map[string]interface{}{"error": err.Error()})
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := buildApp(ctx, cfg, obs, log)
	if err != nil {
		log.Error("startup failed", map[string]interface{}{"error": err.Error()})
		os.Exit(1)
	}
	defer app.close()

	if *exportOnly {
		if _, err := app.exporter.Run(ctx); err != nil {
			log.Error("export failed", map[string]interface{}{"error": err.Error()})
			os.Exit(1)
		}
		return
	}

	app.supervise(ctx, *botOnly)
	log.Info("applybot stopped", nil)
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFromFile(path)
	}
	return config.Load()
}

type app struct {
	cfg      *config.Config
	logger   logger.Logger
	pg       *database.PostgresClient
	redis    *database.RedisClient
	gate     *quota.Gate
	profiles *applicants.Store
	exporter *export.Exporter
	notifier *notify.Notifier
	orch     *orchestrator.Orchestrator
	loop     *discovery.Loop
}

func buildApp(ctx context.Context, cfg *config.Config, obs *observability.Observability, log logger.Logger) (*app, error) {
	pg, err := database.NewPostgres(cfg.Database.Postgres)
	if err != nil {
		return nil, err
	}
	if err := retryWithBackoff(ctx, 5, 2*time.Second, func() error {
		return pg.Ping(ctx)
	}); err != nil {
		return nil, fmt.Errorf("postgres unreachable: %w", err)
	}

	// The engine runs without Redis; the quota gate just loses its cache.
	var redisClient *database.RedisClient
	if rc, err := database.NewRedis(cfg.Database.Redis); err == nil {
		if err := rc.Ping(ctx); err == nil {
			redisClient = rc
		} else {
			log.Warn("redis unreachable, quota cache disabled", map[string]interface{}{"error": err.Error()})
			rc.Close()
		}
	}

	var gate *quota.Gate
	ledgerOpts := []ledger.Option{
		ledger.WithCacheInvalidator(ledger.InvalidatorFunc(func(ctx context.Context, id string) {
			gate.Invalidate(ctx, id)
		})),
	}
	if cfg.Database.Elasticsearch.Enabled {
		if es, err := database.NewElasticsearch(cfg.Database.Elasticsearch); err != nil {
			log.Warn("elasticsearch unavailable, record mirror disabled", map[string]interface{}{"error": err.Error()})
		} else if err := es.Ping(ctx); err != nil {
			log.Warn("elasticsearch unreachable, record mirror disabled", map[string]interface{}{"error": err.Error()})
		} else {
			ledgerOpts = append(ledgerOpts, ledger.WithMirror(es, cfg.Database.Elasticsearch.Index))
		}
	}
	ledgerStore := ledger.New(pg.DB, log, ledgerOpts...)

	quotaOpts := []quota.Option{}
	if redisClient != nil {
		quotaOpts = append(quotaOpts, quota.WithCache(redisClient.Client))
	}
	gate = quota.New(cfg.Bot, ledgerStore, log, quotaOpts...)

	profiles := applicants.New(pg.DB, log)
	machine := form.NewMachine(cfg.Bot, gate, ledgerStore, obs, log)
	loop := discovery.NewLoop(
		cfg.Surface,
		classifier.New(cfg.Classifier, log),
		gate,
		machine,
		pagination.NewAdvancer(log),
		obs,
		log,
	)
	orch := orchestrator.New(surface.NewChromeProvider(cfg.Surface, log), cfg.Bot, log)

	notifier, err := notify.New(ctx, cfg.Notifications, log)
	if err != nil {
		return nil, err
	}

	return &app{
		cfg:      cfg,
		logger:   log,
		pg:       pg,
		redis:    redisClient,
		gate:     gate,
		profiles: profiles,
		exporter: export.New(profiles, cfg.Export, log),
		notifier: notifier,
		orch:     orch,
		loop:     loop,
	}, nil
}

func (a *app) close() {
	if a.redis != nil {
		a.redis.Close()
	}
	a.pg.Close()
}

// supervise runs cycles forever with a fixed backoff after fatal errors.
// Only context cancellation ends the loop.
func (a *app) supervise(ctx context.Context, botOnly bool) {
	interval := config.GetDuration(a.cfg.Bot.CycleInterval)

	for {
		if err := a.runCycle(ctx, botOnly); err != nil && !errors.Is(err, context.Canceled) {
			a.logger.Error("cycle failed, retrying after backoff", map[string]interface{}{
				"error":     err.Error(),
				"backoffMs": a.cfg.Bot.CycleInterval,
			})
			a.notifier.FatalAlert(ctx, err)
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(interval):
		}
	}
}

func (a *app) runCycle(ctx context.Context, botOnly bool) error {
	start := time.Now()

	if !botOnly {
		if _, err := a.exporter.Run(ctx); err != nil {
			// The export is a convenience artifact; the engine still runs.
			a.logger.Warn("export failed, continuing with bot run", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}

	eligible, err := a.profiles.Eligible(ctx)
	if err != nil {
		return err
	}

	var stats notify.CycleStats
	for i := range eligible {
		applicant := &eligible[i]
		if err := ctx.Err(); err != nil {
			return err
		}
		if !a.gate.CanSubmit(ctx, applicant.ID) {
			a.logger.Info("applicant at daily limit, skipping", map[string]interface{}{
				"applicantId": applicant.ID,
			})
			continue
		}

		stats.Applicants++
		runStats, err := a.runApplicant(ctx, applicant)
		accumulate(&stats, runStats)
		for attempt := 1; err != nil && attempt <= retryBudget(err); attempt++ {
			a.logger.Warn("retrying applicant run", map[string]interface{}{
				"applicantId": applicant.ID,
				"attempt":     attempt,
				"error":       err.Error(),
			})
			runStats, err = a.runApplicant(ctx, applicant)
			accumulate(&stats, runStats)
		}
		if err != nil {
			stats.Errors++
			switch {
			case errors.Is(err, context.Canceled):
				return err
			case errors.Is(err, orchestrator.ErrSessionTimeout):
				a.logger.Warn("applicant abandoned at session ceiling", map[string]interface{}{
					"applicantId": applicant.ID,
				})
			default:
				a.logger.Error("applicant run failed", map[string]interface{}{
					"applicantId": applicant.ID,
					"error":       err.Error(),
				})
			}
		}
	}

	stats.Duration = time.Since(start)
	a.logger.Info("cycle finished", map[string]interface{}{
		"applicants": stats.Applicants,
		"submitted":  stats.Submitted,
		"abandoned":  stats.Abandoned,
		"errors":     stats.Errors,
		"durationMs": stats.Duration.Milliseconds(),
	})
	a.notifier.CycleSummary(ctx, stats)
	return nil
}

func accumulate(total *notify.CycleStats, s discovery.Stats) {
	total.Submitted += s.Submitted
	total.Abandoned += s.Abandoned
	total.Errors += s.Errors
}

func (a *app) runApplicant(ctx context.Context, applicant *models.Applicant) (discovery.Stats, error) {
	// The work goroutine can outlive Run when the session ceiling fires, so
	// stats travel over a buffered channel; a late delivery is simply never
	// read instead of racing the caller.
	results := make(chan discovery.Stats, 1)
	err := a.orch.Run(ctx, applicant, func(ctx context.Context, sess surface.Session) error {
		if err := a.loop.Login(ctx, sess, applicant); err != nil {
			return err
		}
		if err := a.loop.Search(ctx, sess, applicant.JobTitle, applicant.JobLocation); err != nil {
			return err
		}
		s, err := a.loop.Run(ctx, sess, applicant)
		results <- s
		return err
	})

	select {
	case stats := <-results:
		return stats, err
	default:
		return discovery.Stats{}, err
	}
}

// retryBudget returns how many more attempts the error class allows.
func retryBudget(err error) int {
	var stdErr *stderrors.StandardError
	if errors.As(err, &stdErr) && stderrors.IsRetryableErrorCode(stdErr.Code) {
		return stderrors.GetRetryCount(stdErr.Code)
	}
	return 0
}

// retryWithBackoff retries op with exponential backoff until it succeeds,
// attempts run out, or the context ends.
func retryWithBackoff(ctx context.Context, attempts int, base time.Duration, op func() error) error {
	var err error
	for i := 0; i < attempts; i++ {
		if err = op(); err == nil {
			return nil
		}
		delay := base * time.Duration(1<<i)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return err
}
