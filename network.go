package scraper

import (
	"context"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
)

// networkMonitor tracks in-flight requests and main-frame navigations of one
// tab. handle is called from chromedp's event loop and must not block.
type networkMonitor struct {
	mu         sync.Mutex
	inflight   map[network.RequestID]struct{}
	lastEvent  time.Time
	navigation uint64 // count of committed main-frame navigations
	loaded     bool   // load event fired for the current document
	now        func() time.Time
}

func newNetworkMonitor() *networkMonitor {
	return &networkMonitor{
		inflight: make(map[network.RequestID]struct{}),
		now:      time.Now,
	}
}

func (m *networkMonitor) handle(ev interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch e := ev.(type) {
	case *network.EventRequestWillBeSent:
		m.inflight[e.RequestID] = struct{}{}
		m.lastEvent = m.now()
	case *network.EventLoadingFinished:
		delete(m.inflight, e.RequestID)
		m.lastEvent = m.now()
	case *network.EventLoadingFailed:
		delete(m.inflight, e.RequestID)
		m.lastEvent = m.now()
	case *page.EventFrameNavigated:
		if e.Frame != nil && e.Frame.ParentID == "" {
			m.navigation++
			m.loaded = false
			m.lastEvent = m.now()
		}
	case *page.EventLoadEventFired:
		m.loaded = true
	}
}

// reset forgets requests of the previous document.
func (m *networkMonitor) reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inflight = make(map[network.RequestID]struct{})
	m.lastEvent = m.now()
}

func (m *networkMonitor) navigations() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.navigation
}

// quietFor returns how long the network has been idle, or 0 while more than
// maxInflight requests are pending.
func (m *networkMonitor) quietFor(maxInflight int) time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.inflight) > maxInflight {
		return 0
	}
	return m.now().Sub(m.lastEvent)
}

func (m *networkMonitor) navigatedSince(mark uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.navigation > mark && m.loaded
}

// waitIdle blocks until at most maxInflight requests are pending and no
// network event has been seen for quiet.
func (m *networkMonitor) waitIdle(ctx context.Context, quiet time.Duration, maxInflight int) error {
	return m.poll(ctx, quiet, func() bool {
		return m.quietFor(maxInflight) >= quiet
	})
}

// waitNavigation blocks until a main-frame navigation newer than mark has
// loaded and the network has settled.
func (m *networkMonitor) waitNavigation(ctx context.Context, mark uint64, quiet time.Duration, maxInflight int) error {
	err := m.poll(ctx, quiet, func() bool {
		return m.navigatedSince(mark)
	})
	if err != nil {
		return err
	}
	return m.waitIdle(ctx, quiet, maxInflight)
}

func (m *networkMonitor) poll(ctx context.Context, quiet time.Duration, done func() bool) error {
	interval := quiet / 10
	if interval < 10*time.Millisecond {
		interval = 10 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if done() {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
