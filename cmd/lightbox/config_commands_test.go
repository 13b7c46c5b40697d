package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"config", "validate"}, env.socketPath, "")
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")

	initTarget := filepath.Join(t.TempDir(), "config.toml")
	out, _, err = runCLI(t, []string{"config", "init", "--path", initTarget}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(initTarget); err != nil {
		t.Fatalf("init did not write %s: %v", initTarget, err)
	}

	// Without --overwrite a second init must refuse to clobber the file.
	_, _, err = runCLI(t, []string{"config", "init", "--path", initTarget}, env.socketPath, env.configPath)
	if err == nil {
		t.Fatal("second init overwrote the existing file")
	}

	if _, _, err := runCLI(t, []string{"config", "init", "--path", initTarget, "--overwrite"}, env.socketPath, env.configPath); err != nil {
		t.Fatalf("config init --overwrite: %v", err)
	}
}

func TestConfigShow(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"config", "show"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	requireContains(t, out, "Paths")
	requireContains(t, out, "Data directory")
	requireContains(t, out, env.cfg.Paths.DataDir)
	requireContains(t, out, "Source driver")
	requireContains(t, out, "local")
	requireContains(t, out, "Blob driver")
	requireContains(t, out, "Default layout")
}
