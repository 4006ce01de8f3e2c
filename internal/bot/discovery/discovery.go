// Package discovery authenticates one applicant's session, runs their job
// search, and walks the result pages, handing each viable listing to the
// form machine.
//
// Listings are view-scoped: a reference is valid only until the view is
// navigated or repainted, so every iteration re-reads the cards from the
// live page. Errors inside one listing are caught at listing granularity,
// logged, and skipped; only login and search failures abort the applicant.
package discovery

import (
	"context"
	"fmt"
	"strings"
	"time"

	"applybot/internal/bot/form"
	"applybot/internal/bot/pagination"
	"applybot/internal/common/config"
	stderrors "applybot/internal/common/errors"
	"applybot/internal/common/logger"
	"applybot/internal/common/observability"
	"applybot/internal/models"
	"applybot/internal/surface"
)

// Classifier judges listing relevance against the applicant's target role.
type Classifier interface {
	IsRelevant(ctx context.Context, targetTitle, candidateTitle string) bool
}

// QuotaGate authorizes each submission attempt.
type QuotaGate interface {
	CanSubmit(ctx context.Context, applicantID string) bool
}

// FormRunner completes one opened application flow.
type FormRunner interface {
	Run(ctx context.Context, s surface.Surface, applicant *models.Applicant) form.Outcome
}

// Pager advances the results view to its next page.
type Pager interface {
	NextPage(ctx context.Context, s surface.Surface) pagination.Result
}

// Stats summarizes one applicant's discovery run.
type Stats struct {
	Pages             int
	Seen              int
	SkippedQuota      int
	SkippedIrrelevant int
	SkippedApplied    int
	Attempted         int
	Submitted         int
	Abandoned         int
	Errors            int
}

// Loop is the per-applicant discovery engine.
type Loop struct {
	surfaceCfg config.SurfaceConfig
	classifier Classifier
	quota      QuotaGate
	former     FormRunner
	pager      Pager
	metrics    *observability.Observability
	logger     logger.Logger
}

func NewLoop(
	surfaceCfg config.SurfaceConfig,
	classifier Classifier,
	quota QuotaGate,
	former FormRunner,
	pager Pager,
	obs *observability.Observability,
	log logger.Logger,
) *Loop {
	return &Loop{
		surfaceCfg: surfaceCfg,
		classifier: classifier,
		quota:      quota,
		former:     former,
		pager:      pager,
		metrics:    obs,
		logger:     log.WithFields(map[string]interface{}{"component": "discovery"}),
	}
}

// Login authenticates the session with the applicant's credentials and
// lands on the jobs view.
func (l *Loop) Login(ctx context.Context, s surface.Surface, applicant *models.Applicant) error {
	selectorWait := config.GetDuration(l.surfaceCfg.SelectorWait)
	loginWait := config.GetDuration(l.surfaceCfg.LoginWait)

	if err := s.Navigate(ctx, l.surfaceCfg.LoginURL); err != nil {
		return stderrors.NewLoginFailedError(err)
	}
	if err := s.WaitVisible(ctx, usernameSel, selectorWait); err != nil {
		return stderrors.NewLoginFailedError(err)
	}
	if err := s.TypeSlow(ctx, usernameSel, applicant.LinkedInEmail); err != nil {
		return stderrors.NewLoginFailedError(err)
	}
	if err := s.TypeSlow(ctx, passwordSel, applicant.LinkedInPassword); err != nil {
		return stderrors.NewLoginFailedError(err)
	}
	if err := s.Click(ctx, loginSubmitSel); err != nil {
		return stderrors.NewLoginFailedError(err)
	}

	// The nav marker only renders once authentication fully settled;
	// checkpoint challenges and bad credentials both time out here.
	if err := s.WaitVisible(ctx, navMarkerSel, loginWait); err != nil {
		return stderrors.NewLoginFailedError(err)
	}
	if err := s.WaitVisible(ctx, jobsLinkSel, selectorWait); err != nil {
		return stderrors.NewLoginFailedError(err)
	}
	if err := s.Click(ctx, jobsLinkSel); err != nil {
		return stderrors.NewLoginFailedError(err)
	}

	l.logger.Info("login completed", map[string]interface{}{
		"applicantId": applicant.ID,
	})
	return nil
}

// Search runs the applicant's title and location query and applies the
// quick-apply filter.
func (l *Loop) Search(ctx context.Context, s surface.Surface, title, location string) error {
	selectorWait := config.GetDuration(l.surfaceCfg.SelectorWait)

	if err := s.WaitVisible(ctx, keywordInputSel, selectorWait); err != nil {
		return stderrors.NewSearchFailedError(err)
	}
	if err := s.WaitVisible(ctx, locationInputSel, selectorWait); err != nil {
		return stderrors.NewSearchFailedError(err)
	}

	// Both inputs keep stale text across navigations; clear before typing.
	if err := s.SetValue(ctx, keywordInputSel, ""); err != nil {
		return stderrors.NewSearchFailedError(err)
	}
	if err := s.SetValue(ctx, locationInputSel, ""); err != nil {
		return stderrors.NewSearchFailedError(err)
	}

	if err := s.TypeSlow(ctx, keywordInputSel, title); err != nil {
		return stderrors.NewSearchFailedError(err)
	}
	if err := s.TypeSlow(ctx, locationInputSel, location); err != nil {
		return stderrors.NewSearchFailedError(err)
	}
	if err := s.PressEnter(ctx, locationInputSel); err != nil {
		return stderrors.NewSearchFailedError(err)
	}

	if err := s.WaitVisible(ctx, quickApplyFilterSel, selectorWait); err != nil {
		return stderrors.NewSearchFailedError(err)
	}
	if err := s.Click(ctx, quickApplyFilterSel); err != nil {
		return stderrors.NewSearchFailedError(err)
	}

	l.logger.Info("search submitted", map[string]interface{}{
		"title":    title,
		"location": location,
	})
	return nil
}

// Run walks the result pages for one applicant until the quota gate closes,
// the pager exhausts, or the context ends.
func (l *Loop) Run(ctx context.Context, s surface.Surface, applicant *models.Applicant) (Stats, error) {
	var stats Stats

	for {
		stats.Pages++

		count, err := s.Count(ctx, listingCardSel)
		if err != nil {
			return stats, stderrors.NewSearchFailedError(fmt.Errorf("listing count failed: %w", err))
		}
		l.logger.Info("processing results page", map[string]interface{}{
			"applicantId": applicant.ID,
			"page":        stats.Pages,
			"listings":    count,
		})

		for i := 1; i <= count; i++ {
			if err := ctx.Err(); err != nil {
				return stats, err
			}

			// Checked before every candidate: once the gate closes there
			// is nothing left to do for this applicant today.
			if !l.quota.CanSubmit(ctx, applicant.ID) {
				stats.SkippedQuota++
				l.recordListing(ctx, "skipped_quota")
				l.logger.Info("quota exhausted, ending run", map[string]interface{}{
					"applicantId": applicant.ID,
				})
				return stats, nil
			}

			listing, err := l.readListing(ctx, s, i)
			if err != nil {
				stats.Errors++
				l.recordListing(ctx, "error")
				l.logger.Warn("skipping unreadable listing", map[string]interface{}{
					"applicantId": applicant.ID,
					"index":       i,
					"error":       err.Error(),
				})
				continue
			}
			stats.Seen++

			if listing.Applied {
				stats.SkippedApplied++
				l.recordListing(ctx, "skipped_applied")
				continue
			}
			if !l.classifier.IsRelevant(ctx, applicant.JobTitle, listing.Title) {
				stats.SkippedIrrelevant++
				l.recordListing(ctx, "skipped_irrelevant")
				continue
			}

			stats.Attempted++
			l.recordListing(ctx, "attempted")
			outcome, err := l.apply(ctx, s, applicant, listing)
			if err != nil {
				stats.Errors++
				l.logger.Warn("skipping listing after apply error", map[string]interface{}{
					"applicantId": applicant.ID,
					"index":       i,
					"title":       listing.Title,
					"error":       err.Error(),
				})
				continue
			}
			if outcome.State == form.Submitted {
				stats.Submitted++
			} else {
				stats.Abandoned++
			}
		}

		res := l.pager.NextPage(ctx, s)
		if !res.Advanced {
			l.logger.Info("results exhausted", map[string]interface{}{
				"applicantId": applicant.ID,
				"pages":       stats.Pages,
			})
			return stats, nil
		}
		if err := s.WaitVisible(ctx, listingCardSel, 10*time.Second); err != nil {
			l.logger.Warn("list did not repaint after page advance", map[string]interface{}{
				"applicantId": applicant.ID,
				"error":       err.Error(),
			})
			return stats, nil
		}
	}
}

// readListing reads the i-th card (1-based) on the current page.
func (l *Loop) readListing(ctx context.Context, s surface.Surface, i int) (models.Listing, error) {
	cardSel := fmt.Sprintf("%s:nth-of-type(%d)", listingCardSel, i)

	title, err := s.Text(ctx, cardSel+" "+cardTitleSel)
	if err != nil {
		return models.Listing{}, fmt.Errorf("title read failed: %w", err)
	}

	listing := models.Listing{Index: i, Title: strings.TrimSpace(title)}

	footerSel := cardSel + " " + cardFooterSel
	if present, err := s.Exists(ctx, footerSel); err == nil && present {
		if footer, err := s.Text(ctx, footerSel); err == nil && strings.Contains(footer, "Applied") {
			listing.Applied = true
		}
	}
	return listing, nil
}

// apply opens the listing's detail view and runs the form machine.
func (l *Loop) apply(ctx context.Context, s surface.Surface, applicant *models.Applicant, listing models.Listing) (form.Outcome, error) {
	cardSel := fmt.Sprintf("%s:nth-of-type(%d)", listingCardSel, listing.Index)

	// Cards below the fold sit outside the rendered viewport; bring the card
	// into view before opening it.
	scrollScript := fmt.Sprintf(
		`(function(){ var el = document.querySelector(%q); if (el) { el.scrollIntoView({ block: 'center' }); } return el !== null; })()`,
		cardSel,
	)
	var inView bool
	if err := s.Evaluate(ctx, scrollScript, &inView); err != nil {
		l.logger.Debug("card scroll failed", map[string]interface{}{
			"index": listing.Index,
			"error": err.Error(),
		})
	}

	if err := s.Click(ctx, cardSel+" "+cardTitleSel); err != nil {
		return form.Outcome{}, fmt.Errorf("opening listing detail failed: %w", err)
	}
	if err := s.WaitVisible(ctx, applyButtonSel, 10*time.Second); err != nil {
		return form.Outcome{}, fmt.Errorf("apply affordance not found: %w", err)
	}
	if err := s.Click(ctx, applyButtonSel); err != nil {
		return form.Outcome{}, fmt.Errorf("opening application flow failed: %w", err)
	}

	return l.former.Run(ctx, s, applicant), nil
}

func (l *Loop) recordListing(ctx context.Context, action string) {
	if l.metrics != nil {
		l.metrics.RecordListing(ctx, action)
	}
}
