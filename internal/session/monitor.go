package session

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	// monitorInterval is how often the monitor re-checks the expiry.
	monitorInterval = time.Minute

	// warnWindow is how long before expiry the session enters the expiring
	// state.
	warnWindow = 5 * time.Minute
)

// Monitor periodically checks the session expiry so the session transitions
// toward expiring/expired before the server starts rejecting requests. It
// runs only while a session with an expiry exists; the manager starts it on
// login and stops it on logout.
type Monitor struct {
	manager  *Manager
	interval time.Duration

	mu   sync.Mutex
	stop chan struct{}
}

func newMonitor(m *Manager, interval time.Duration) *Monitor {
	return &Monitor{manager: m, interval: interval}
}

// Start launches the ticker goroutine. No-op if already running.
func (mon *Monitor) Start() {
	mon.mu.Lock()
	defer mon.mu.Unlock()

	if mon.stop != nil {
		return
	}
	stop := make(chan struct{})
	mon.stop = stop
	go mon.run(stop)

	log.Debug().Dur("interval", mon.interval).Msg("expiry monitor started")
}

// Stop halts the ticker. No-op if not running. Does not wait for an in-flight
// tick; ticks after a stop are harmless because the manager's forced
// transitions are idempotent.
func (mon *Monitor) Stop() {
	mon.mu.Lock()
	defer mon.mu.Unlock()

	if mon.stop == nil {
		return
	}
	close(mon.stop)
	mon.stop = nil
}

// Restart resets the interval, picking up a fresh expiry after login.
func (mon *Monitor) Restart() {
	mon.Stop()
	mon.Start()
}

func (mon *Monitor) run(stop chan struct{}) {
	ticker := time.NewTicker(mon.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			mon.tick()
		}
	}
}

// tick re-reads the expiry through the manager rather than acting on state
// captured at start time; a login that landed between ticks must win.
func (mon *Monitor) tick() {
	if !mon.manager.HasExpiry() {
		return
	}

	left := mon.manager.TimeLeft()
	switch {
	case left <= 0:
		mon.manager.expire()
		mon.Stop()
	case left < warnWindow:
		mon.manager.markExpiring()
	}
}
