package ui

import (
	"os"
	"strings"

	"golang.org/x/term"
)

// ShouldUseColor reports whether coop output on stdout should be colored.
func ShouldUseColor() bool {
	return colorFor(os.Stdout)
}

// colorFor applies, in order: COOP_COLOR (always/never/auto), NO_COLOR,
// CLICOLOR_FORCE, CLICOLOR, then TTY detection on f.
func colorFor(f *os.File) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("COOP_COLOR"))) {
	case "always":
		return true
	case "never":
		return false
	}
	// https://no-color.org
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	if strings.TrimSpace(os.Getenv("CLICOLOR_FORCE")) == "1" {
		return true
	}
	if strings.TrimSpace(os.Getenv("CLICOLOR")) == "0" {
		return false
	}
	return f != nil && term.IsTerminal(int(f.Fd()))
}
