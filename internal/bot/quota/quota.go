// Package quota enforces the per-applicant daily submission ceiling.
//
// The ledger is authoritative; Redis only caches today's count for a short
// TTL so that scanning a page of listings does not hammer Postgres with one
// COUNT per card. The day boundary is local midnight. The gate fails open:
// when neither the cache nor the ledger can answer, the submission proceeds
// and the degraded decision is logged. Over-applying by a few during an
// outage is the accepted cost; silently stalling every applicant is not.
package quota

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"applybot/internal/common/config"
	stderrors "applybot/internal/common/errors"
	"applybot/internal/common/logger"
)

// Ledger answers how many applications an applicant submitted since an instant.
type Ledger interface {
	CountSince(ctx context.Context, applicantID string, since time.Time) (int, error)
}

// Gate is the daily-limit decision point.
type Gate struct {
	ledger Ledger
	cache  *redis.Client
	limit  int
	ttl    time.Duration
	logger logger.Logger
	now    func() time.Time
}

type Option func(*Gate)

// WithCache enables the Redis counter cache.
func WithCache(client *redis.Client) Option {
	return func(g *Gate) { g.cache = client }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(g *Gate) { g.now = now }
}

func New(cfg config.BotConfig, ledger Ledger, log logger.Logger, opts ...Option) *Gate {
	g := &Gate{
		ledger: ledger,
		limit:  cfg.MaxDailyApplications,
		ttl:    config.GetDuration(cfg.QuotaCacheTTL),
		logger: log.WithFields(map[string]interface{}{"component": "quota"}),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// CanSubmit reports whether the applicant is still under today's ceiling.
func (g *Gate) CanSubmit(ctx context.Context, applicantID string) bool {
	used, err := g.UsedToday(ctx, applicantID)
	if err != nil {
		degraded := stderrors.NewQuotaCheckFailedError(err)
		g.logger.WithError(degraded).Warn("quota check degraded, failing open", map[string]interface{}{
			"applicantId": applicantID,
		})
		return true
	}
	if used >= g.limit {
		g.logger.Info("daily application limit reached", map[string]interface{}{
			"applicantId": applicantID,
			"used":        used,
			"limit":       g.limit,
		})
		return false
	}
	return true
}

// UsedToday returns today's submission count, cache first.
func (g *Gate) UsedToday(ctx context.Context, applicantID string) (int, error) {
	key := g.cacheKey(applicantID)

	if g.cache != nil {
		if raw, err := g.cache.Get(ctx, key).Result(); err == nil {
			if n, convErr := strconv.Atoi(raw); convErr == nil {
				return n, nil
			}
		} else if err != redis.Nil {
			g.logger.Warn("quota cache read failed", map[string]interface{}{
				"key":   key,
				"error": err.Error(),
			})
		}
	}

	count, err := g.ledger.CountSince(ctx, applicantID, g.startOfDay())
	if err != nil {
		return 0, fmt.Errorf("ledger count failed: %w", err)
	}

	if g.cache != nil {
		if err := g.cache.Set(ctx, key, strconv.Itoa(count), g.ttl).Err(); err != nil {
			g.logger.Warn("quota cache write failed", map[string]interface{}{
				"key":   key,
				"error": err.Error(),
			})
		}
	}
	return count, nil
}

// Invalidate drops the cached count so the next check re-reads the ledger.
// Called after every successful record insert.
func (g *Gate) Invalidate(ctx context.Context, applicantID string) {
	if g.cache == nil {
		return
	}
	key := g.cacheKey(applicantID)
	if err := g.cache.Del(ctx, key).Err(); err != nil {
		g.logger.Warn("quota cache invalidation failed", map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		})
	}
}

func (g *Gate) cacheKey(applicantID string) string {
	return fmt.Sprintf("quota:%s:%s", applicantID, g.now().Format("2006-01-02"))
}

func (g *Gate) startOfDay() time.Time {
	n := g.now()
	return time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, n.Location())
}
