package ui

import "testing"

func TestShouldUseColor_Env(t *testing.T) {
	t.Setenv("COOP_COLOR", "")
	t.Setenv("NO_COLOR", "1")
	t.Setenv("CLICOLOR_FORCE", "1")
	if ShouldUseColor() {
		t.Fatal("NO_COLOR must win over CLICOLOR_FORCE")
	}

	t.Setenv("NO_COLOR", "")
	if !ShouldUseColor() {
		t.Fatal("CLICOLOR_FORCE=1 should force color")
	}

	t.Setenv("CLICOLOR_FORCE", "")
	t.Setenv("CLICOLOR", "0")
	if ShouldUseColor() {
		t.Fatal("CLICOLOR=0 should disable color")
	}

	t.Setenv("COOP_COLOR", "always")
	if !ShouldUseColor() {
		t.Fatal("COOP_COLOR=always should override CLICOLOR=0")
	}
	t.Setenv("COOP_COLOR", "never")
	t.Setenv("CLICOLOR_FORCE", "1")
	if ShouldUseColor() {
		t.Fatal("COOP_COLOR=never should override CLICOLOR_FORCE")
	}
}

func TestColorFor_NoFile(t *testing.T) {
	t.Setenv("COOP_COLOR", "")
	t.Setenv("NO_COLOR", "")
	t.Setenv("CLICOLOR_FORCE", "")
	t.Setenv("CLICOLOR", "")
	if colorFor(nil) {
		t.Fatal("expected no color without an output file")
	}
}

func TestRender(t *testing.T) {
	defer func(prev bool) { noColor = prev }(noColor)

	noColor = false
	if got := RenderPass("eligible"); got != "\x1b[38;5;71meligible\x1b[0m" {
		t.Fatalf("unexpected pass styling %q", got)
	}
	if got := RenderFail("x"); got != "\x1b[38;5;167mx\x1b[0m" {
		t.Fatalf("unexpected fail styling %q", got)
	}

	ForceNoColor()
	if got := RenderAccent("plain"); got != "plain" {
		t.Fatalf("expected plain text without color, got %q", got)
	}
}
