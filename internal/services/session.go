package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/prudhvinik1/possync/internal/models"
	"github.com/prudhvinik1/possync/internal/repositories"
)

var (
	ErrSessionConflict = errors.New("another shop is signed in on this device")
	ErrNoSession       = errors.New("no active session")
)

type SessionConfig struct {
	// SyncSchedule is a cron spec for periodic SyncAll. Empty disables it.
	SyncSchedule      string
	HeartbeatInterval time.Duration
}

// Session is the signed-in shop on this device and the background work
// running on its behalf.
type Session struct {
	ShopID   string
	DeviceID string
	OpenedAt time.Time

	stopWatch func()
	scheduler *Scheduler
	cancel    context.CancelFunc
	done      sync.WaitGroup
}

// SessionManager keeps at most one shop session per device. All sessions
// share the device's engine and local store.
type SessionManager struct {
	engine   *Engine
	presence repositories.PresenceRepository
	cfg      SessionConfig
	log      *zap.Logger

	mu     sync.Mutex
	active *Session
}

// NewSessionManager wires session lifecycle around engine. presence may be nil.
func NewSessionManager(engine *Engine, presence repositories.PresenceRepository, cfg SessionConfig, log *zap.Logger) *SessionManager {
	if log == nil {
		log = zap.NewNop()
	}
	return &SessionManager{engine: engine, presence: presence, cfg: cfg, log: log}
}

func (m *SessionManager) Engine() *Engine {
	return m.engine
}

// Open starts the session for shopID, or returns it if already open.
func (m *SessionManager) Open(ctx context.Context, shopID, deviceID string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active != nil {
		if m.active.ShopID == shopID {
			return m.active, nil
		}
		return nil, fmt.Errorf("%w: %s", ErrSessionConflict, m.active.ShopID)
	}

	bg, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s := &Session{
		ShopID:   shopID,
		DeviceID: deviceID,
		OpenedAt: m.engine.now(),
		cancel:   cancel,
	}

	if m.cfg.SyncSchedule != "" {
		s.scheduler = NewScheduler(m.cfg.SyncSchedule, func() {
			result := m.engine.SyncAll(bg, shopID)
			if !result.Success {
				m.log.Info("Scheduled sync did not complete", zap.String("shop_id", shopID), zap.String("reason", result.Reason))
			}
		}, m.log)
		if err := s.scheduler.Start(); err != nil {
			cancel()
			return nil, fmt.Errorf("invalid sync schedule: %w", err)
		}
	}

	s.stopWatch = m.engine.WatchConnectivity(shopID)

	if m.presence != nil && m.cfg.HeartbeatInterval > 0 {
		s.done.Add(1)
		go func() {
			defer s.done.Done()
			m.heartbeat(bg, s)
		}()
	}

	m.active = s
	m.log.Info("Session opened", zap.String("shop_id", shopID), zap.String("device_id", deviceID))
	return s, nil
}

// Active returns the open session or ErrNoSession.
func (m *SessionManager) Active() (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active == nil {
		return nil, ErrNoSession
	}
	return m.active, nil
}

// SignOut ends the session and clears everything stored for it, including
// mutations that were never pushed.
func (m *SessionManager) SignOut(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active == nil {
		return ErrNoSession
	}
	s := m.active
	m.stop(s)
	m.active = nil

	if m.presence != nil {
		if err := m.presence.DeletePresence(ctx, s.ShopID, s.DeviceID); err != nil {
			m.log.Warn("Failed to clear presence", zap.Error(err))
		}
	}
	if err := m.engine.Reset(ctx, s.ShopID); err != nil {
		return fmt.Errorf("failed to clear local data: %w", err)
	}

	m.log.Info("Session signed out", zap.String("shop_id", s.ShopID))
	return nil
}

// Close stops background work but keeps local data for the next Open.
func (m *SessionManager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active == nil {
		return
	}
	m.stop(m.active)
	m.active = nil
}

// stop cancels the session context first so a scheduled sync stuck on the
// remote store returns before the scheduler is waited on.
func (m *SessionManager) stop(s *Session) {
	s.cancel()
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
	s.stopWatch()
	s.done.Wait()
}

func (m *SessionManager) heartbeat(ctx context.Context, s *Session) {
	ticker := time.NewTicker(m.cfg.HeartbeatInterval)
	defer ticker.Stop()

	for {
		if m.engine.conn.Reachable(ctx) {
			err := m.presence.SetPresence(ctx, &models.Presence{
				ShopID:   s.ShopID,
				DeviceID: s.DeviceID,
				Status:   string(models.StatusOnline),
			})
			if err != nil && ctx.Err() == nil {
				m.log.Debug("Presence heartbeat failed", zap.Error(err))
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
