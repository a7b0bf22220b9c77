// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// terminal.go - Terminal detection and markdown rendering.
//
// Piped input and output get no prompts, no colors and no markdown styling.

package cli

import (
	"os"

	"github.com/charmbracelet/glamour"
	"golang.org/x/term"

	"github.com/EmpSwarup/inductive-ai-agent/internal/ui/styles"
)

// =============================================================================
// TTY DETECTION
// =============================================================================

// IsTTY returns true if stdin is a terminal.
func IsTTY() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// IsStdoutTTY returns true if stdout is a terminal.
func IsStdoutTTY() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// =============================================================================
// TERMINAL WIDTH DETECTION
// =============================================================================

const (
	// DefaultTerminalWidth is the fallback width when detection fails
	DefaultTerminalWidth = 80

	// MinTerminalWidth is the minimum width used for wrapping
	MinTerminalWidth = 40
)

// GetTerminalWidth returns the current terminal width, or
// DefaultTerminalWidth when it cannot be determined.
func GetTerminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return DefaultTerminalWidth
	}
	if width < MinTerminalWidth {
		return MinTerminalWidth
	}
	return width
}

// =============================================================================
// COLOR OUTPUT CONTROL
// =============================================================================

// ColorsEnabled reports whether colored output should be used. The config
// setting and --no-color come first; NO_COLOR disables and FORCE_COLOR
// enables regardless of TTY detection. See https://no-color.org/.
func ColorsEnabled(configured bool) bool {
	if !configured || os.Getenv("NO_COLOR") != "" {
		return false
	}
	if os.Getenv("FORCE_COLOR") != "" {
		return true
	}
	return IsStdoutTTY()
}

// =============================================================================
// MARKDOWN RENDERING
// =============================================================================

// newMarkdownRenderer returns a glamour renderer for the theme mode, or nil
// when markdown is disabled or the renderer cannot be built.
func newMarkdownRenderer(mode string, color bool, width int) *glamour.TermRenderer {
	style := glamour.WithAutoStyle()
	switch {
	case !color:
		style = glamour.WithStandardStyle("notty")
	case mode == styles.ModeDark:
		style = glamour.WithStandardStyle("dark")
	case mode == styles.ModeLight:
		style = glamour.WithStandardStyle("light")
	}

	r, err := glamour.NewTermRenderer(style, glamour.WithWordWrap(width))
	if err != nil {
		return nil
	}
	return r
}

// renderMarkdown renders content with r. The original content is returned
// when r is nil or rendering fails.
func renderMarkdown(r *glamour.TermRenderer, content string) string {
	if r == nil {
		return content
	}
	rendered, err := r.Render(content)
	if err != nil {
		return content
	}
	return rendered
}
