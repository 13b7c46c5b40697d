package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"lightbox/internal/config"
	"lightbox/internal/ipc"
)

// commandContext carries the shared flag state and a memoized configuration
// load across every subcommand of a single CLI invocation.
type commandContext struct {
	socketFlag *string
	configFlag *string
	loadConfig func() (*config.Config, error)
}

func newCommandContext(socketFlag, configFlag *string) *commandContext {
	c := &commandContext{
		socketFlag: socketFlag,
		configFlag: configFlag,
	}
	c.loadConfig = sync.OnceValues(c.loadAndPrepare)
	return c
}

func (c *commandContext) loadAndPrepare() (*config.Config, error) {
	cfg, _, _, err := config.Load(c.configPath())
	if err != nil {
		return nil, err
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	return c.loadConfig()
}

func (c *commandContext) configValue() *config.Config {
	cfg, _ := c.loadConfig()
	return cfg
}

func (c *commandContext) configPath() string {
	if c.configFlag == nil {
		return ""
	}
	return strings.TrimSpace(*c.configFlag)
}

func (c *commandContext) socketPath() string {
	if c.socketFlag == nil {
		return defaultSocketPath()
	}
	if strings.TrimSpace(*c.socketFlag) != "" {
		return *c.socketFlag
	}
	// Write the default back so later flag reads see the resolved path.
	*c.socketFlag = defaultSocketPath()
	return *c.socketFlag
}

// withClient dials the daemon socket, runs fn, and closes the connection.
func (c *commandContext) withClient(fn func(*ipc.Client) error) error {
	client, err := c.dialClient()
	if err != nil {
		return err
	}
	defer client.Close()
	return fn(client)
}

// dialClient connects to the control socket, translating dial failures into
// guidance the user can act on.
func (c *commandContext) dialClient() (*ipc.Client, error) {
	sock := c.socketPath()
	client, err := ipc.Dial(sock)
	if err != nil {
		return nil, wrapDialError(err, sock)
	}
	return client, nil
}

func wrapDialError(err error, socket string) error {
	if errors.Is(err, syscall.ENOENT) || os.IsNotExist(err) {
		return fmt.Errorf("connect to daemon: socket %s not found; start the daemon with `lightbox start`", socket)
	}
	if errors.Is(err, syscall.ECONNREFUSED) {
		return fmt.Errorf("connect to daemon: socket %s refused the connection; verify the daemon is running", socket)
	}
	return fmt.Errorf("connect to daemon: %w", err)
}

func defaultSocketPath() string {
	if cfg, _, _, err := config.Load(""); err == nil {
		return cfg.SocketPath()
	}
	dataDir, err := config.ExpandPath("~/.local/share/lightbox")
	if err != nil {
		return filepath.Join(os.TempDir(), "lightbox.sock")
	}
	return filepath.Join(dataDir, "lightbox.sock")
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
