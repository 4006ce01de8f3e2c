// internal/surface/chromedp_test.go
package surface

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type ctxKey string

func assertDoneWithin(t *testing.T, ctx context.Context, d time.Duration) {
	t.Helper()
	select {
	case <-ctx.Done():
	case <-time.After(d):
		t.Fatal("context not cancelled in time")
	}
}

func TestLinkContext_EndsWhenTriggerEnds(t *testing.T) {
	trigger, cancelTrigger := context.WithCancel(context.Background())
	base := context.WithValue(context.Background(), ctxKey("browser"), "b1")

	linked, cancel := linkContext(trigger, base)
	defer cancel()

	// The linked context still carries the base's values, so chromedp can
	// find its session state on it.
	require.Equal(t, "b1", linked.Value(ctxKey("browser")))

	select {
	case <-linked.Done():
		t.Fatal("linked context ended before either parent")
	default:
	}

	cancelTrigger()
	assertDoneWithin(t, linked, time.Second)
	assert.ErrorIs(t, linked.Err(), context.Canceled)
}

func TestLinkContext_EndsWhenBaseEnds(t *testing.T) {
	base, cancelBase := context.WithCancel(context.Background())

	linked, cancel := linkContext(context.Background(), base)
	defer cancel()

	cancelBase()
	assertDoneWithin(t, linked, time.Second)
}

func TestLinkContext_CancelEndsLinked(t *testing.T) {
	linked, cancel := linkContext(context.Background(), context.Background())

	cancel()
	assertDoneWithin(t, linked, time.Second)
}
