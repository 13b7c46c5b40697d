// Command lightboxd runs the lightbox daemon in the foreground. It is the
// entrypoint for service managers; interactive use normally goes through
// `lightbox start`, which launches the same runtime loop detached.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"lightbox/internal/config"
	"lightbox/internal/daemonrun"
)

func main() {
	configPath := flag.String("config", "", "path to the configuration file")
	logLevel := flag.String("log-level", "", "override the configured log level")
	flag.Parse()

	cfg, _, _, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		log.Fatalf("ensure directories: %v", err)
	}

	if err := daemonrun.Run(context.Background(), cfg, daemonrun.Options{LogLevel: *logLevel}); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
