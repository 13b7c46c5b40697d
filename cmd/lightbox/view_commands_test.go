package main

import (
	"strings"
	"testing"

	"lightbox/internal/testsupport"
)

func TestSelectAndNavigate(t *testing.T) {
	env := setupCLITestEnv(t)
	testsupport.SeedSeries(t, env.store, "1.2.3", "1.2.3.1", 3)
	sessionID := createTestSession(t, env, 2)

	out, _, err := runCLI(t, []string{"select", sessionID, "1.2.3.1", "--viewport", "0"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	requireContains(t, out, "Viewport 0 loading series 1.2.3.1 (3 instances)")
	waitViewportDisplayed(t, env, sessionID, 0)

	out, _, err = runCLI(t, []string{"seek", sessionID, "99", "--viewport", "0"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("seek: %v", err)
	}
	requireContains(t, out, "Viewport 0 at instance 3/3")

	out, _, err = runCLI(t, []string{"prev", sessionID, "--viewport", "0"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("prev: %v", err)
	}
	requireContains(t, out, "Viewport 0 at instance 2/3")

	out, _, err = runCLI(t, []string{"next", sessionID, "--viewport", "0"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	requireContains(t, out, "Viewport 0 at instance 3/3")

	// The cursor pins at the last instance instead of wrapping.
	out, _, err = runCLI(t, []string{"next", sessionID, "--viewport", "0"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("next at end: %v", err)
	}
	requireContains(t, out, "Viewport 0 at instance 3/3")

	_, _, err = runCLI(t, []string{"seek", sessionID, "two", "--viewport", "0"}, env.socketPath, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "invalid index") {
		t.Fatalf("expected invalid index error, got %v", err)
	}

	out, _, err = runCLI(t, []string{"next", sessionID, "--viewport", "1"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("next on empty viewport: %v", err)
	}
	requireContains(t, out, "Viewport 1 is empty")
}

func TestNavigateDefaultsToActiveViewport(t *testing.T) {
	env := setupCLITestEnv(t)
	testsupport.SeedSeries(t, env.store, "1.2.3", "1.2.3.1", 3)
	sessionID := createTestSession(t, env, 2)

	if _, _, err := runCLI(t, []string{"select", sessionID, "1.2.3.1", "--viewport", "0"}, env.socketPath, env.configPath); err != nil {
		t.Fatalf("select: %v", err)
	}
	waitViewportDisplayed(t, env, sessionID, 0)

	// No --viewport flag: the command targets the session's active viewport.
	out, _, err := runCLI(t, []string{"seek", sessionID, "1"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("seek: %v", err)
	}
	requireContains(t, out, "Viewport 0 at instance 2/3")
}

func TestSelectUnknownSeries(t *testing.T) {
	env := setupCLITestEnv(t)
	sessionID := createTestSession(t, env, 1)

	_, _, err := runCLI(t, []string{"select", sessionID, "no.such.series", "--viewport", "0"}, env.socketPath, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "series not found") {
		t.Fatalf("expected series not found, got %v", err)
	}
}

func TestCineStartStop(t *testing.T) {
	env := setupCLITestEnv(t)
	testsupport.SeedSeries(t, env.store, "1.2.3", "1.2.3.1", 3)
	sessionID := createTestSession(t, env, 2)

	if _, _, err := runCLI(t, []string{"select", sessionID, "1.2.3.1", "--viewport", "0"}, env.socketPath, env.configPath); err != nil {
		t.Fatalf("select: %v", err)
	}
	waitViewportDisplayed(t, env, sessionID, 0)

	out, _, err := runCLI(t, []string{"cine", "start", sessionID, "--viewport", "0", "--fps", "12"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("cine start: %v", err)
	}
	requireContains(t, out, "Cine playing at 12 fps on viewport 0")

	_, _, err = runCLI(t, []string{"cine", "start", sessionID, "--viewport", "1"}, env.socketPath, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "cine playback already active") {
		t.Fatalf("expected active playback error, got %v", err)
	}

	out, _, err = runCLI(t, []string{"cine", "stop", sessionID}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("cine stop: %v", err)
	}
	requireContains(t, out, "Cine stopped")

	_, _, err = runCLI(t, []string{"cine", "start", sessionID, "--viewport", "1"}, env.socketPath, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "stack too short") {
		t.Fatalf("expected stack too short error, got %v", err)
	}
}
