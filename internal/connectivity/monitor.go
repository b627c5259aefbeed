package connectivity

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Checker probes the remote store. A nil error means reachable.
type Checker interface {
	Ping(ctx context.Context) error
}

// Monitor tracks whether the remote store is reachable and notifies
// subscribers when that changes. The first observation counts as a change.
type Monitor struct {
	checker  Checker
	interval time.Duration
	log      *zap.Logger

	mu        sync.Mutex
	known     bool
	reachable bool
	subs      map[int]func(bool)
	nextID    int
}

func NewMonitor(checker Checker, interval time.Duration, log *zap.Logger) *Monitor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Monitor{
		checker:  checker,
		interval: interval,
		log:      log,
		subs:     make(map[int]func(bool)),
	}
}

// Reachable returns the last observation, probing once if there is none yet.
func (m *Monitor) Reachable(ctx context.Context) bool {
	m.mu.Lock()
	if m.known {
		r := m.reachable
		m.mu.Unlock()
		return r
	}
	m.mu.Unlock()

	return m.Probe(ctx)
}

// Probe pings the checker now and records the outcome.
func (m *Monitor) Probe(ctx context.Context) bool {
	if m.interval > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.interval)
		defer cancel()
	}

	err := m.checker.Ping(ctx)
	if err != nil {
		m.log.Debug("Connectivity probe failed", zap.Error(err))
	}
	m.Set(err == nil)
	return err == nil
}

// Set records an observation from outside the probe loop, such as an OS
// network callback.
func (m *Monitor) Set(reachable bool) {
	m.mu.Lock()
	changed := !m.known || m.reachable != reachable
	m.known = true
	m.reachable = reachable
	var subs []func(bool)
	if changed {
		subs = make([]func(bool), 0, len(m.subs))
		for id := 0; id < m.nextID; id++ {
			if fn, ok := m.subs[id]; ok {
				subs = append(subs, fn)
			}
		}
	}
	m.mu.Unlock()

	if !changed {
		return
	}
	m.log.Info("Connectivity changed", zap.Bool("reachable", reachable))
	for _, fn := range subs {
		fn(reachable)
	}
}

// Subscribe registers fn for transitions. The returned func detaches it.
func (m *Monitor) Subscribe(fn func(reachable bool)) (unsubscribe func()) {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.subs[id] = fn
	m.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.subs, id)
			m.mu.Unlock()
		})
	}
}

// Run probes immediately and then on every interval until ctx is done.
func (m *Monitor) Run(ctx context.Context) {
	m.Probe(ctx)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Probe(ctx)
		}
	}
}
