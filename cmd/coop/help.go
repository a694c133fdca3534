package main

import (
	"bytes"
	"fmt"
	"regexp"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/cooprules/internal/ui"
)

// helpRule restyles every match of re in cobra's help text. style receives
// the submatches and returns the replacement.
type helpRule struct {
	re    *regexp.Regexp
	style func(m []string) string
}

var helpRules = []helpRule{
	// Group and section headers ("Rules:", "Flags:"), but not "Usage:".
	{
		re:    regexp.MustCompile(`(?m)^((?:[A-Z][a-z]+ ?)+:)[ \t]*$`),
		style: func(m []string) string { return headerStyle(m[1]) },
	},
	// Command names in the "Available Commands" and group listings.
	{
		re:    regexp.MustCompile(`(?m)^(  )([a-z][\w-]*)(  +)`),
		style: func(m []string) string { return m[1] + ui.RenderCommand(m[2]) + m[3] },
	},
	// Example invocations.
	{
		re:    regexp.MustCompile(`(?m)^(  )(coop [^\n]+)$`),
		style: func(m []string) string { return m[1] + ui.RenderCommand(m[2]) },
	},
	// Flag value types: "--http-url string", "--limit int".
	{
		re:    regexp.MustCompile(`(--?[\w-]+\s+)(string|int64|int|float|duration)\b`),
		style: func(m []string) string { return m[1] + ui.RenderMuted(m[2]) },
	},
	// Defaults: (default "http://localhost:8080"), (default 0).
	{
		re:    regexp.MustCompile(`\(default [^)]*\)`),
		style: func(m []string) string { return ui.RenderMuted(m[0]) },
	},
}

func headerStyle(h string) string {
	if h == "Usage:" {
		return h
	}
	return ui.RenderAccent(h)
}

// colorizedHelpFunc renders cobra's usage text, colored when stdout takes color.
func colorizedHelpFunc() func(*cobra.Command, []string) {
	return func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		if !ui.ShouldUseColor() {
			_ = cmd.Usage()
			return
		}

		var buf bytes.Buffer
		cmd.SetOut(&buf)
		_ = cmd.Usage()
		cmd.SetOut(out)
		fmt.Fprint(out, colorizeHelp(buf.String()))
	}
}

func colorizeHelp(s string) string {
	for _, rule := range helpRules {
		s = rule.re.ReplaceAllStringFunc(s, func(match string) string {
			return rule.style(rule.re.FindStringSubmatch(match))
		})
	}
	return s
}
