package viewer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"lightbox/internal/archive"
	"lightbox/internal/config"
	"lightbox/internal/logging"
	"lightbox/internal/metrics"
	"lightbox/internal/render"
)

const sweepInterval = time.Minute

// Manager tracks live sessions, enforces the configured cap, and expires
// idle sessions in the background.
type Manager struct {
	cfg    *config.Config
	source archive.Source
	engine render.Engine
	logger *slog.Logger

	mu       sync.Mutex
	sessions map[string]*Session
	running  bool
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// NewManager builds a session manager over the given archive source and
// render engine.
func NewManager(cfg *config.Config, source archive.Source, engine render.Engine, logger *slog.Logger) *Manager {
	return &Manager{
		cfg:      cfg,
		source:   source,
		engine:   engine,
		logger:   logging.NewComponentLogger(logger, "sessions"),
		sessions: make(map[string]*Session),
	}
}

// Start launches the idle session sweeper.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return errors.New("session manager already running")
	}
	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true
	m.wg.Add(1)
	m.mu.Unlock()

	go m.sweepLoop(runCtx)
	return nil
}

// Stop halts the sweeper and closes every remaining session.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		m.closeAll()
		return
	}
	cancel := m.cancel
	m.running = false
	m.cancel = nil
	m.mu.Unlock()

	cancel()
	m.wg.Wait()
	m.closeAll()
}

// Create opens a session. layout zero uses the configured default.
func (m *Manager) Create(layout int) (*Session, error) {
	if layout != 0 && !config.ValidLayout(layout) {
		return nil, fmt.Errorf("layout %d: %w", layout, ErrInvalidLayout)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sessions) >= m.cfg.Viewer.MaxSessions {
		return nil, fmt.Errorf("%d sessions open: %w", len(m.sessions), ErrSessionLimit)
	}
	id := uuid.NewString()
	session, err := newSession(id, m.cfg, m.source, m.engine, m.logger)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	if layout != 0 && layout != m.cfg.Viewer.DefaultLayout {
		if err := session.pool.SetLayout(layout); err != nil {
			session.Close()
			return nil, err
		}
	}
	m.sessions[id] = session
	metrics.ActiveSessions.Inc()
	m.logger.Info("session created",
		logging.String(logging.FieldSessionID, id),
		logging.Int("layout", session.pool.Layout()),
		logging.Int("open", len(m.sessions)))
	return session, nil
}

// Get resolves a session and refreshes its idle clock.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.Lock()
	session, ok := m.sessions[id]
	m.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("session %s: %w", id, ErrSessionNotFound)
	}
	session.touch()
	return session, nil
}

// Close removes and tears down a session.
func (m *Manager) Close(id string) error {
	m.mu.Lock()
	session, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("session %s: %w", id, ErrSessionNotFound)
	}
	session.Close()
	metrics.ActiveSessions.Dec()
	return nil
}

// List snapshots every session ordered by creation time.
func (m *Manager) List() []SessionSnapshot {
	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, session := range m.sessions {
		sessions = append(sessions, session)
	}
	m.mu.Unlock()

	sort.Slice(sessions, func(i, j int) bool {
		if sessions[i].createdAt.Equal(sessions[j].createdAt) {
			return sessions[i].id < sessions[j].id
		}
		return sessions[i].createdAt.Before(sessions[j].createdAt)
	})
	out := make([]SessionSnapshot, 0, len(sessions))
	for _, session := range sessions {
		out = append(out, session.Snapshot())
	}
	return out
}

// Count returns the number of open sessions.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func (m *Manager) sweepLoop(ctx context.Context) {
	defer m.wg.Done()
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.expireIdle()
		}
	}
}

// expireIdle closes sessions idle beyond the configured TTL. A TTL of
// zero disables expiry.
func (m *Manager) expireIdle() {
	ttl := time.Duration(m.cfg.Viewer.SessionTTLMinutes) * time.Minute
	if ttl <= 0 {
		return
	}
	cutoff := time.Now().Add(-ttl)

	m.mu.Lock()
	expired := make([]*Session, 0)
	for id, session := range m.sessions {
		if session.LastAccess().Before(cutoff) {
			expired = append(expired, session)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, session := range expired {
		session.Close()
		metrics.ActiveSessions.Dec()
		m.logger.Info("session expired",
			logging.String(logging.FieldSessionID, session.ID()),
			logging.Duration("idle", time.Since(session.LastAccess())))
	}
}

func (m *Manager) closeAll() {
	m.mu.Lock()
	remaining := make([]*Session, 0, len(m.sessions))
	for id, session := range m.sessions {
		remaining = append(remaining, session)
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	for _, session := range remaining {
		session.Close()
		metrics.ActiveSessions.Dec()
	}
}
