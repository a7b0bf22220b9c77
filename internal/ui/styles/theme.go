// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/EmpSwarup/inductive-ai-agent/internal/model"
)

// Theme modes.
const (
	ModeAuto  = "auto"
	ModeDark  = "dark"
	ModeLight = "light"
)

// Theme holds all the styled components for the terminal client.
// It detects the terminal's color capability and adjusts accordingly.
type Theme struct {
	// Terminal capabilities
	IsDark       bool
	ColorProfile termenv.Profile

	renderer *lipgloss.Renderer

	// ==========================================================================
	// HEADER STYLES
	// ==========================================================================

	Header      lipgloss.Style
	HeaderTitle lipgloss.Style
	HeaderHint  lipgloss.Style

	// ==========================================================================
	// MESSAGE STYLES
	// ==========================================================================

	UserLabel      lipgloss.Style
	UserText       lipgloss.Style
	AssistantLabel lipgloss.Style
	AssistantText  lipgloss.Style
	SystemText     lipgloss.Style
	ErrorText      lipgloss.Style
	Timestamp      lipgloss.Style

	// ==========================================================================
	// PROMPT AND STATUS STYLES
	// ==========================================================================

	Prompt lipgloss.Style
	Status lipgloss.Style
	Muted  lipgloss.Style

	// ==========================================================================
	// CONVERSATION LIST STYLES
	// ==========================================================================

	ListActive lipgloss.Style
	ListItem   lipgloss.Style

	// ==========================================================================
	// STATUS MESSAGE STYLES
	// ==========================================================================

	SuccessStyle lipgloss.Style
	ErrorStyle   lipgloss.Style
	WarningStyle lipgloss.Style
	InfoStyle    lipgloss.Style
}

// NewTheme creates a theme rendering to w. mode is "auto", "dark" or
// "light"; with color false every style renders as plain text.
func NewTheme(w io.Writer, mode string, color bool) *Theme {
	r := lipgloss.NewRenderer(w)
	if !color {
		r.SetColorProfile(termenv.Ascii)
	}
	switch strings.ToLower(mode) {
	case ModeDark:
		r.SetHasDarkBackground(true)
	case ModeLight:
		r.SetHasDarkBackground(false)
	}

	t := &Theme{
		IsDark:       r.HasDarkBackground(),
		ColorProfile: r.ColorProfile(),
		renderer:     r,
	}
	t.initStyles()
	return t
}

// initStyles initializes all the lip gloss styles.
func (t *Theme) initStyles() {
	r := t.renderer

	// Header
	t.Header = r.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Purple).
		Padding(0, 2)

	t.HeaderTitle = r.NewStyle().
		Bold(true).
		Foreground(Purple)

	t.HeaderHint = r.NewStyle().
		Foreground(TextSecondary).
		Italic(true)

	// Messages
	t.UserLabel = r.NewStyle().
		Bold(true).
		Foreground(Cyan)

	t.UserText = r.NewStyle().
		Foreground(UserFg)

	t.AssistantLabel = r.NewStyle().
		Bold(true).
		Foreground(Purple)

	t.AssistantText = r.NewStyle().
		Foreground(AssistantFg)

	t.SystemText = r.NewStyle().
		Foreground(SystemFg).
		Italic(true)

	t.ErrorText = r.NewStyle().
		Foreground(ErrorFg)

	t.Timestamp = r.NewStyle().
		Foreground(TextMuted)

	// Prompt and status
	t.Prompt = r.NewStyle().
		Foreground(Cyan).
		Bold(true)

	t.Status = r.NewStyle().
		Foreground(TextMuted).
		Italic(true)

	t.Muted = r.NewStyle().
		Foreground(TextMuted)

	// Conversation list
	t.ListActive = r.NewStyle().
		Foreground(Purple).
		Bold(true)

	t.ListItem = r.NewStyle().
		Foreground(TextPrimary)

	// Status messages
	t.SuccessStyle = r.NewStyle().Foreground(SuccessHighContrast).Bold(true)
	t.ErrorStyle = r.NewStyle().Foreground(ErrorHighContrast).Bold(true)
	t.WarningStyle = r.NewStyle().Foreground(WarningHighContrast).Bold(true)
	t.InfoStyle = r.NewStyle().Foreground(InfoHighContrast).Bold(true)
}

// Renderer returns the lipgloss renderer the theme was built with.
func (t *Theme) Renderer() *lipgloss.Renderer {
	return t.renderer
}

// =============================================================================
// RENDER HELPERS
// =============================================================================

// RenderSuccess renders a success message with its indicator.
func (t *Theme) RenderSuccess(message string) string {
	return t.SuccessStyle.Render(StatusIndicators.Success + " " + message)
}

// RenderError renders an error message with its indicator.
func (t *Theme) RenderError(message string) string {
	return t.ErrorStyle.Render(StatusIndicators.Error + " " + message)
}

// RenderWarning renders a warning message with its indicator.
func (t *Theme) RenderWarning(message string) string {
	return t.WarningStyle.Render(StatusIndicators.Warning + " " + message)
}

// RenderInfo renders an info message with its indicator.
func (t *Theme) RenderInfo(message string) string {
	return t.InfoStyle.Render(StatusIndicators.Info + " " + message)
}

// RenderAvatar renders the avatar face for e followed by an optional status.
func (t *Theme) RenderAvatar(e model.AvatarEmotion, status string) string {
	g := EmotionGradient(e)
	face := t.renderer.NewStyle().Bold(true).Foreground(g.From).Render(EmotionFace(e))
	if status == "" {
		return face
	}
	return face + " " + t.Status.Render(status)
}

// RenderLabel renders the speaker label for a message role.
func (t *Theme) RenderLabel(role model.Role, assistantName string) string {
	switch role {
	case model.RoleUser:
		return t.UserLabel.Render("You")
	case model.RoleAssistant:
		return t.AssistantLabel.Render(assistantName)
	case model.RoleError:
		return t.ErrorStyle.Render(StatusIndicators.Error)
	default:
		return t.SystemText.Render(role.DisplayName())
	}
}

// RenderContent renders message text in its role's style.
func (t *Theme) RenderContent(role model.Role, text string) string {
	switch role {
	case model.RoleUser:
		return t.UserText.Render(text)
	case model.RoleAssistant:
		return t.AssistantText.Render(text)
	case model.RoleError:
		return t.ErrorText.Render(text)
	default:
		return t.SystemText.Render(text)
	}
}
