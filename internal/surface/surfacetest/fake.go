// Package surfacetest provides a scriptable in-memory Surface for unit tests.
package surfacetest

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Fake implements surface.Surface and surface.Session. Behavior is driven by
// the optional *Fn hooks; unset hooks fall back to the recorded maps.
type Fake struct {
	mu sync.Mutex

	// Scripted state.
	ExistsMap map[string]bool
	TextMap   map[string]string
	CountMap  map[string]int
	URLValue  string

	// Hooks override the maps when set.
	ExistsFn      func(selector string) (bool, error)
	TextFn        func(selector string) (string, error)
	CountFn       func(selector string) (int, error)
	ClickFn       func(selector string) error
	WaitVisibleFn func(selector string, timeout time.Duration) error
	EvaluateFn    func(script string, out interface{}) error

	// Recorded interactions.
	Navigated []string
	Clicks    []string
	ClickAlls []string
	Typed     map[string]string
	SetValues map[string]string
	Waits     []string
	Entered   []string
	Evaluated []string

	Released     int
	ReleaseError error
}

func New() *Fake {
	return &Fake{
		ExistsMap: map[string]bool{},
		TextMap:   map[string]string{},
		CountMap:  map[string]int{},
		Typed:     map[string]string{},
		SetValues: map[string]string{},
	}
}

func (f *Fake) Navigate(_ context.Context, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Navigated = append(f.Navigated, url)
	return nil
}

func (f *Fake) WaitVisible(_ context.Context, selector string, timeout time.Duration) error {
	f.mu.Lock()
	f.Waits = append(f.Waits, selector)
	f.mu.Unlock()
	if f.WaitVisibleFn != nil {
		return f.WaitVisibleFn(selector, timeout)
	}
	if ok := f.ExistsMap[selector]; !ok {
		return fmt.Errorf("wait for %q: timeout", selector)
	}
	return nil
}

func (f *Fake) Click(_ context.Context, selector string) error {
	f.mu.Lock()
	f.Clicks = append(f.Clicks, selector)
	f.mu.Unlock()
	if f.ClickFn != nil {
		return f.ClickFn(selector)
	}
	return nil
}

func (f *Fake) ClickAll(_ context.Context, selector string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ClickAlls = append(f.ClickAlls, selector)
	return nil
}

func (f *Fake) TypeSlow(_ context.Context, selector, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Typed[selector] += text
	return nil
}

func (f *Fake) SetValue(_ context.Context, selector, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.SetValues[selector] = value
	return nil
}

func (f *Fake) Text(_ context.Context, selector string) (string, error) {
	if f.TextFn != nil {
		return f.TextFn(selector)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if txt, ok := f.TextMap[selector]; ok {
		return txt, nil
	}
	return "", fmt.Errorf("no text for %q", selector)
}

func (f *Fake) Exists(_ context.Context, selector string) (bool, error) {
	if f.ExistsFn != nil {
		return f.ExistsFn(selector)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ExistsMap[selector], nil
}

func (f *Fake) Count(_ context.Context, selector string) (int, error) {
	if f.CountFn != nil {
		return f.CountFn(selector)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.CountMap[selector], nil
}

func (f *Fake) Evaluate(_ context.Context, script string, out interface{}) error {
	f.mu.Lock()
	f.Evaluated = append(f.Evaluated, script)
	f.mu.Unlock()
	if f.EvaluateFn != nil {
		return f.EvaluateFn(script, out)
	}
	return nil
}

func (f *Fake) PressEnter(_ context.Context, selector string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Entered = append(f.Entered, selector)
	return nil
}

func (f *Fake) URL(_ context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.URLValue, nil
}

func (f *Fake) Release() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Released++
	return f.ReleaseError
}

// SetExists scripts selector presence after construction, safely.
func (f *Fake) SetExists(selector string, present bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ExistsMap[selector] = present
}

// ClickCount returns how many times the selector was clicked.
func (f *Fake) ClickCount(selector string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.Clicks {
		if c == selector {
			n++
		}
	}
	return n
}
