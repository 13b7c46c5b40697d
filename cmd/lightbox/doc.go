// Package main hosts the lightbox CLI entrypoint and command graph.
//
// The Cobra-based command tree translates terminal invocations into IPC
// calls against the daemon: session and viewport control, archive browsing,
// directory imports, volume reconstruction, and daemon lifecycle management.
// Configuration resolution and socket discovery happen once in the shared
// command context, so individual subcommands stay declarative.
//
// New behavior belongs in the internal packages; commands here should only
// parse flags, call the daemon, and print results.
package main
