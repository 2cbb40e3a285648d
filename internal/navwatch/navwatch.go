// Package navwatch tracks whether the current location is a saved tab as
// the user moves around the single-page host. Navigation arrives as raw
// events from an injected source, settles through a debounce, and feeds a
// small state machine that decides between a full strip reload and a cheap
// favourite-toggle refresh.
package navwatch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/lotas/setuptabs/internal/tablist"
	"github.com/lotas/setuptabs/internal/types"
)

// State of the current location relative to the saved list.
type State int

const (
	Unknown State = iota
	OnSavedTab
	NotOnSavedTab
)

func (s State) String() string {
	switch s {
	case OnSavedTab:
		return "on-saved-tab"
	case NotOnSavedTab:
		return "not-on-saved-tab"
	default:
		return "unknown"
	}
}

// Tracker holds the current state and its shadow predecessor.
type Tracker struct {
	prev, cur State
}

// NewTracker starts in Unknown.
func NewTracker() *Tracker {
	return &Tracker{prev: Unknown, cur: Unknown}
}

// State returns the current state.
func (t *Tracker) State() State {
	return t.cur
}

// Observe records a settled navigation to the minified URL and reports
// whether the strip needs a full reload. Leaving or entering a saved tab
// reloads; staying off saved tabs only refreshes the toggle.
func (t *Tracker) Observe(minifiedURL string, tabs types.TabList) (reload bool) {
	next := NotOnSavedTab
	if tablist.ContainsURL(tabs, minifiedURL) {
		next = OnSavedTab
	}
	t.prev = t.cur
	t.cur = next
	return t.prev == OnSavedTab || t.cur == OnSavedTab
}

const (
	// settleDelay is how long a location must stay put before it counts as
	// a navigation. Intermediate render states churn the URL faster.
	settleDelay = 500 * time.Millisecond

	anchorAttempts = 5
	anchorDelay    = 500 * time.Millisecond
)

// Debouncer coalesces raw navigation events: the callback fires with the
// latest URL once events stop arriving for the settle delay.
type Debouncer struct {
	delay time.Duration
	fire  func(url string)

	mu    sync.Mutex
	timer *time.Timer
	last  string
}

// NewDebouncer uses the default 500ms settle delay when delay is zero.
func NewDebouncer(delay time.Duration, fire func(url string)) *Debouncer {
	if delay <= 0 {
		delay = settleDelay
	}
	return &Debouncer{delay: delay, fire: fire}
}

// Notify records a raw navigation event and (re)starts the settle timer.
func (d *Debouncer) Notify(url string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.last = url
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, func() {
		d.mu.Lock()
		u := d.last
		d.mu.Unlock()
		d.fire(u)
	})
}

// Stop cancels a pending fire.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

// WaitForAnchor polls until the strip's attach point exists. The host page
// renders asynchronously, so the first lookups routinely lose the race;
// after 5 attempts 500ms apart the load is declared lost.
func WaitForAnchor(ctx context.Context, probe func() bool) error {
	return waitForAnchor(ctx, probe, anchorAttempts, anchorDelay)
}

func waitForAnchor(ctx context.Context, probe func() bool, attempts int, delay time.Duration) error {
	for i := 0; i < attempts; i++ {
		if probe() {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return fmt.Errorf("anchor not found after %d attempts", attempts)
}
