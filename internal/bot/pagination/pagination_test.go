// internal/bot/pagination/pagination_test.go
package pagination

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"applybot/internal/common/logger"
	"applybot/internal/surface/surfacetest"
)

func TestNextPage_NumberedDialectAdvances(t *testing.T) {
	f := surfacetest.New()
	f.ExistsMap[numberedCurrentSel] = true
	f.TextMap[numberedCurrentSel] = "2"
	f.ExistsMap[`button[data-test-pagination-page-btn="3"]`] = true

	a := NewAdvancer(logger.NewTestLogger(t))
	res := a.NextPage(context.Background(), f)

	assert.True(t, res.Advanced)
	assert.Equal(t, DialectNumbered, res.Dialect)
	assert.Equal(t, 2, res.FromPage)
	assert.Equal(t, 3, res.ToPage)
	assert.Equal(t, 1, f.ClickCount(`button[data-test-pagination-page-btn="3"]`))
}

func TestNextPage_NumberedDialectStopsOnLastPage(t *testing.T) {
	f := surfacetest.New()
	f.ExistsMap[numberedCurrentSel] = true
	f.TextMap[numberedCurrentSel] = "7"
	// No button for page 8.

	a := NewAdvancer(logger.NewTestLogger(t))
	res := a.NextPage(context.Background(), f)

	assert.False(t, res.Advanced)
	assert.Equal(t, DialectNumbered, res.Dialect)
	assert.Equal(t, 7, res.FromPage)
	assert.Empty(t, f.Clicks)
}

func TestNextPage_NumberedIndicatorWithWhitespace(t *testing.T) {
	f := surfacetest.New()
	f.ExistsMap[numberedCurrentSel] = true
	f.TextMap[numberedCurrentSel] = " 1 \n"
	f.ExistsMap[`button[data-test-pagination-page-btn="2"]`] = true

	a := NewAdvancer(logger.NewTestLogger(t))
	res := a.NextPage(context.Background(), f)

	assert.True(t, res.Advanced)
	assert.Equal(t, 2, res.ToPage)
}

func TestNextPage_NextButtonDialectAdvances(t *testing.T) {
	f := surfacetest.New()
	f.ExistsMap[nextButtonSel] = true
	f.ExistsMap[nextCurrentSel] = true
	f.TextMap[nextCurrentSel] = "4"

	a := NewAdvancer(logger.NewTestLogger(t))
	res := a.NextPage(context.Background(), f)

	assert.True(t, res.Advanced)
	assert.Equal(t, DialectNextButton, res.Dialect)
	assert.Equal(t, 4, res.FromPage)
	assert.Equal(t, 5, res.ToPage)
	assert.Equal(t, 1, f.ClickCount(nextButtonSel))
}

func TestNextPage_NextButtonDisabledMeansLastPage(t *testing.T) {
	f := surfacetest.New()
	f.ExistsMap[nextButtonSel] = true
	f.ExistsMap[nextButtonDisabledSel] = true
	f.ExistsMap[nextCurrentSel] = true
	f.TextMap[nextCurrentSel] = "9"

	a := NewAdvancer(logger.NewTestLogger(t))
	res := a.NextPage(context.Background(), f)

	assert.False(t, res.Advanced)
	assert.Equal(t, DialectNextButton, res.Dialect)
	assert.Equal(t, 9, res.FromPage)
	assert.Empty(t, f.Clicks)
}

func TestNextPage_NumberedTriedBeforeNextButton(t *testing.T) {
	f := surfacetest.New()
	// Both dialects present; the numbered bar must win.
	f.ExistsMap[numberedCurrentSel] = true
	f.TextMap[numberedCurrentSel] = "1"
	f.ExistsMap[`button[data-test-pagination-page-btn="2"]`] = true
	f.ExistsMap[nextButtonSel] = true

	a := NewAdvancer(logger.NewTestLogger(t))
	res := a.NextPage(context.Background(), f)

	assert.Equal(t, DialectNumbered, res.Dialect)
	assert.Zero(t, f.ClickCount(nextButtonSel))
}

func TestNextPage_NextButtonWithoutIndicatorDoesNotNavigate(t *testing.T) {
	f := surfacetest.New()
	// An enabled next button alone, with no page indicator of either
	// dialect, must end the walk instead of navigating blind.
	f.ExistsMap[nextButtonSel] = true

	a := NewAdvancer(logger.NewTestLogger(t))
	res := a.NextPage(context.Background(), f)

	assert.False(t, res.Advanced)
	assert.Equal(t, DialectNone, res.Dialect)
	assert.Empty(t, f.Clicks)
}

func TestNextPage_IndicatorWithoutNextButtonMeansLastPage(t *testing.T) {
	f := surfacetest.New()
	f.ExistsMap[nextCurrentSel] = true
	f.TextMap[nextCurrentSel] = "6"

	a := NewAdvancer(logger.NewTestLogger(t))
	res := a.NextPage(context.Background(), f)

	assert.False(t, res.Advanced)
	assert.Equal(t, DialectNextButton, res.Dialect)
	assert.Equal(t, 6, res.FromPage)
	assert.Empty(t, f.Clicks)
}

func TestNextPage_NoPagerFailsClosed(t *testing.T) {
	f := surfacetest.New()

	a := NewAdvancer(logger.NewTestLogger(t))
	res := a.NextPage(context.Background(), f)

	assert.False(t, res.Advanced)
	assert.Equal(t, DialectNone, res.Dialect)
}

func TestNextPage_SurfaceErrorFailsClosed(t *testing.T) {
	f := surfacetest.New()
	f.ExistsMap[numberedCurrentSel] = true
	f.TextFn = func(string) (string, error) {
		return "", errors.New("detached node")
	}

	a := NewAdvancer(logger.NewTestLogger(t))
	res := a.NextPage(context.Background(), f)

	assert.False(t, res.Advanced)
	assert.Empty(t, f.Clicks)
}

func TestNextPage_UnparseableIndicatorFailsClosed(t *testing.T) {
	f := surfacetest.New()
	f.ExistsMap[numberedCurrentSel] = true
	f.TextMap[numberedCurrentSel] = "…"

	a := NewAdvancer(logger.NewTestLogger(t))
	res := a.NextPage(context.Background(), f)

	assert.False(t, res.Advanced)
	assert.Empty(t, f.Clicks)
}
