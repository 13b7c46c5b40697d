package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

// statusKind classifies a rendered line so it gets a bracket tag and a color.
type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

// ANSI escapes applied only when the destination is a terminal.
const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
)

// Column layout shared by the status, config, and session views.
const (
	statusLabelWidth = 20
	statusIndent     = "  "
)

// kindStyle returns the bracket tag text and ANSI color for a status kind.
func kindStyle(kind statusKind) (label, color string) {
	switch kind {
	case statusOK:
		return "OK", ansiGreen
	case statusWarn:
		return "WARN", ansiYellow
	case statusError:
		return "ERROR", ansiRed
	default:
		return "INFO", ansiBlue
	}
}

func renderStatusLine(label string, kind statusKind, message string, colorize bool) string {
	kindLabel, color := kindStyle(kind)
	tag := "[" + kindLabel + "]"
	if message != "" {
		tag += " " + message
	}
	base := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, label+":", tag)
	if !colorize || color == "" {
		return base
	}
	return color + base + ansiReset
}

func statusKindFromCheck(passed bool) statusKind {
	if passed {
		return statusOK
	}
	return statusWarn
}

func renderSectionHeader(title string, colorize bool) []string {
	line := "== " + strings.TrimSpace(title) + " =="
	rule := strings.Repeat("-", len(line))
	if colorize {
		line = ansiBlue + line + ansiReset
		rule = ansiBlue + rule + ansiReset
	}
	return []string{line, rule}
}

func shouldColorize(writer io.Writer) bool {
	if file, ok := writer.(*os.File); ok {
		fd := file.Fd()
		return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
	}
	return false
}

// formatBytes renders a byte count with a binary unit suffix.
func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
