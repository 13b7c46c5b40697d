package viewer

import (
	"errors"
	"testing"
	"time"

	"lightbox/internal/logging"
	"lightbox/internal/testsupport"
)

func backdate(session *Session, by time.Duration) {
	session.mu.Lock()
	session.lastAccess = time.Now().Add(-by)
	session.mu.Unlock()
}

func TestExpireIdleClosesStaleSessions(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Viewer.SessionTTLMinutes = 1
	manager := NewManager(cfg, testsupport.NewFakeSource(), testsupport.NewFakeEngine(), logging.NewNop())
	t.Cleanup(manager.Stop)

	stale, err := manager.Create(0)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	fresh, err := manager.Create(0)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	backdate(stale, 2*time.Minute)

	manager.expireIdle()

	if _, err := manager.Get(stale.ID()); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("Get expired session = %v, want ErrSessionNotFound", err)
	}
	if _, err := manager.Get(fresh.ID()); err != nil {
		t.Fatalf("Get fresh session = %v", err)
	}
	if got := manager.Count(); got != 1 {
		t.Fatalf("open sessions = %d, want 1", got)
	}
}

func TestExpireIdleDisabledByZeroTTL(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Viewer.SessionTTLMinutes = 0
	manager := NewManager(cfg, testsupport.NewFakeSource(), testsupport.NewFakeEngine(), logging.NewNop())
	t.Cleanup(manager.Stop)

	session, err := manager.Create(0)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	backdate(session, time.Hour)

	manager.expireIdle()

	if _, err := manager.Get(session.ID()); err != nil {
		t.Fatalf("session expired despite disabled TTL: %v", err)
	}
}

func TestGetRefreshesIdleClock(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Viewer.SessionTTLMinutes = 1
	manager := NewManager(cfg, testsupport.NewFakeSource(), testsupport.NewFakeEngine(), logging.NewNop())
	t.Cleanup(manager.Stop)

	session, err := manager.Create(0)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	backdate(session, 2*time.Minute)

	// A lookup counts as activity and must reset the clock.
	if _, err := manager.Get(session.ID()); err != nil {
		t.Fatalf("Get: %v", err)
	}
	manager.expireIdle()
	if _, err := manager.Get(session.ID()); err != nil {
		t.Fatalf("recently touched session expired: %v", err)
	}
}
