// Package pagination advances the search-results list to its next page.
//
// Listing surfaces ship two pager dialects and either may appear on a given
// results page: a numbered button bar, and a single next/previous button
// pair. Each dialect is keyed on its current-page indicator and they are
// tried in order; the first whose indicator is present decides the outcome.
// The advancer fails closed: when no dialect matches,
// or the matched dialect reports the last page, the crawl for this search
// ends. Surface errors are downgraded to a non-advance because a broken
// pager must never abort the session, only the page walk.
package pagination

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"applybot/internal/common/logger"
	"applybot/internal/surface"
)

const (
	numberedCurrentSel = ".artdeco-pagination__indicator--number.active.selected button span"
	numberedButtonFmt  = `button[data-test-pagination-page-btn="%d"]`

	nextButtonSel         = "button.jobs-search-pagination__button--next"
	nextButtonDisabledSel = "button.jobs-search-pagination__button--next.artdeco-button--disabled"
	nextCurrentSel        = ".jobs-search-pagination__indicator-button--active span"
)

// Dialect names which pager variant handled the advance attempt.
type Dialect string

const (
	DialectNone       Dialect = "none"
	DialectNumbered   Dialect = "numbered"
	DialectNextButton Dialect = "next_button"
)

// Result reports whether the list moved and which dialect decided it.
type Result struct {
	Advanced bool
	Dialect  Dialect
	FromPage int
	ToPage   int
}

type strategy interface {
	name() Dialect
	// advance returns matched=false when the dialect is absent from the
	// page, so the next strategy gets a chance.
	advance(ctx context.Context, s surface.Surface) (res Result, matched bool, err error)
}

// Advancer walks the strategy chain against a live results page.
type Advancer struct {
	strategies []strategy
	logger     logger.Logger
}

func NewAdvancer(log logger.Logger) *Advancer {
	return &Advancer{
		strategies: []strategy{numberedStrategy{}, nextButtonStrategy{}},
		logger:     log.WithFields(map[string]interface{}{"component": "pagination"}),
	}
}

// NextPage tries each dialect in order and returns the first match.
func (a *Advancer) NextPage(ctx context.Context, s surface.Surface) Result {
	for _, st := range a.strategies {
		res, matched, err := st.advance(ctx, s)
		if err != nil {
			a.logger.Warn("pager dialect failed, ending page walk", map[string]interface{}{
				"dialect": string(st.name()),
				"error":   err.Error(),
			})
			return Result{Advanced: false, Dialect: st.name()}
		}
		if matched {
			return res
		}
	}
	a.logger.Info("no pager present, single results page", nil)
	return Result{Advanced: false, Dialect: DialectNone}
}

// numberedStrategy drives the button-per-page bar. The current page is read
// from the active indicator and the button for current+1 is clicked; a
// missing button means the last page was reached.
type numberedStrategy struct{}

func (numberedStrategy) name() Dialect { return DialectNumbered }

func (numberedStrategy) advance(ctx context.Context, s surface.Surface) (Result, bool, error) {
	present, err := s.Exists(ctx, numberedCurrentSel)
	if err != nil {
		return Result{}, false, err
	}
	if !present {
		return Result{}, false, nil
	}

	raw, err := s.Text(ctx, numberedCurrentSel)
	if err != nil {
		return Result{}, false, err
	}
	current, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return Result{}, false, fmt.Errorf("unparseable page indicator %q: %w", raw, err)
	}

	nextSel := fmt.Sprintf(numberedButtonFmt, current+1)
	hasNext, err := s.Exists(ctx, nextSel)
	if err != nil {
		return Result{}, false, err
	}
	if !hasNext {
		return Result{Advanced: false, Dialect: DialectNumbered, FromPage: current}, true, nil
	}

	if err := s.Click(ctx, nextSel); err != nil {
		return Result{}, false, err
	}
	return Result{Advanced: true, Dialect: DialectNumbered, FromPage: current, ToPage: current + 1}, true, nil
}

// nextButtonStrategy drives the plain next button. The dialect matches only
// when its page indicator is readable; a next button without an index means
// the page state is unknowable and the walk must not navigate blind. A
// disabled next button means the last page was reached.
type nextButtonStrategy struct{}

func (nextButtonStrategy) name() Dialect { return DialectNextButton }

func (nextButtonStrategy) advance(ctx context.Context, s surface.Surface) (Result, bool, error) {
	present, err := s.Exists(ctx, nextCurrentSel)
	if err != nil {
		return Result{}, false, err
	}
	if !present {
		return Result{}, false, nil
	}

	raw, err := s.Text(ctx, nextCurrentSel)
	if err != nil {
		return Result{}, false, err
	}
	current, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return Result{}, false, fmt.Errorf("unparseable page indicator %q: %w", raw, err)
	}

	hasNext, err := s.Exists(ctx, nextButtonSel)
	if err != nil {
		return Result{}, false, err
	}
	if !hasNext {
		return Result{Advanced: false, Dialect: DialectNextButton, FromPage: current}, true, nil
	}

	disabled, err := s.Exists(ctx, nextButtonDisabledSel)
	if err != nil {
		return Result{}, false, err
	}
	if disabled {
		return Result{Advanced: false, Dialect: DialectNextButton, FromPage: current}, true, nil
	}

	if err := s.Click(ctx, nextButtonSel); err != nil {
		return Result{}, false, err
	}
	return Result{Advanced: true, Dialect: DialectNextButton, FromPage: current, ToPage: current + 1}, true, nil
}
