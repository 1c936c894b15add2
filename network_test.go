package scraper

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time         { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestMonitor() (*networkMonitor, *fakeClock) {
	clock := &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	m := newNetworkMonitor()
	m.now = clock.Now
	m.reset()
	return m, clock
}

func TestNetworkMonitor_QuietFor(t *testing.T) {
	m, clock := newTestMonitor()

	for _, id := range []network.RequestID{"1", "2", "3"} {
		m.handle(&network.EventRequestWillBeSent{RequestID: id})
	}
	clock.Advance(time.Second)
	if got := m.quietFor(2); got != 0 {
		t.Errorf("3 in flight: quietFor() = %v, want 0", got)
	}

	m.handle(&network.EventLoadingFinished{RequestID: "1"})
	clock.Advance(300 * time.Millisecond)
	if got := m.quietFor(2); got != 300*time.Millisecond {
		t.Errorf("2 in flight: quietFor() = %v, want 300ms", got)
	}

	m.handle(&network.EventLoadingFailed{RequestID: "2"})
	clock.Advance(100 * time.Millisecond)
	if got := m.quietFor(0); got != 0 {
		t.Errorf("1 in flight, max 0: quietFor() = %v, want 0", got)
	}

	m.reset()
	if got := m.quietFor(0); got != 0 {
		t.Errorf("after reset: quietFor() = %v, want 0", got)
	}
	clock.Advance(time.Second)
	if got := m.quietFor(0); got != time.Second {
		t.Errorf("after reset: quietFor() = %v, want 1s", got)
	}
}

func TestNetworkMonitor_Navigation(t *testing.T) {
	m, _ := newTestMonitor()
	mark := m.navigations()

	// subframes do not count
	m.handle(&page.EventFrameNavigated{Frame: &cdp.Frame{ID: "sub", ParentID: "main"}})
	m.handle(&page.EventLoadEventFired{})
	if m.navigatedSince(mark) {
		t.Errorf("subframe navigation counted")
	}

	m.handle(&page.EventFrameNavigated{Frame: &cdp.Frame{ID: "main"}})
	if m.navigatedSince(mark) {
		t.Errorf("navigation counted before load")
	}
	m.handle(&page.EventLoadEventFired{})
	if !m.navigatedSince(mark) {
		t.Errorf("loaded navigation not counted")
	}
	if got := m.navigations(); got != mark+1 {
		t.Errorf("navigations() = %v, want %v", got, mark+1)
	}
}

func TestNetworkMonitor_WaitIdle(t *testing.T) {
	m := newNetworkMonitor()
	m.reset()
	m.handle(&network.EventRequestWillBeSent{RequestID: "1"})
	m.handle(&network.EventRequestWillBeSent{RequestID: "2"})
	m.handle(&network.EventRequestWillBeSent{RequestID: "3"})

	go func() {
		time.Sleep(50 * time.Millisecond)
		m.handle(&network.EventLoadingFinished{RequestID: "1"})
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	start := time.Now()
	if err := m.waitIdle(ctx, 100*time.Millisecond, 2); err != nil {
		t.Fatalf("waitIdle() error: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 150*time.Millisecond {
		t.Errorf("waitIdle() returned after %v", elapsed)
	}
}

func TestNetworkMonitor_WaitNavigationTimeout(t *testing.T) {
	m := newNetworkMonitor()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	err := m.waitNavigation(ctx, m.navigations(), 50*time.Millisecond, 2)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("waitNavigation() error = %v, want %v", err, context.DeadlineExceeded)
	}
}
