// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/EmpSwarup/inductive-ai-agent/internal/model"
)

// =============================================================================
// AVATAR MOODS
// =============================================================================

// Gradient is a two-stop color pair.
type Gradient struct {
	From lipgloss.Color
	To   lipgloss.Color
}

// emotionGradients maps each mood to its avatar background.
var emotionGradients = map[model.AvatarEmotion]Gradient{
	model.EmotionNeutral:   {From: "#8B5CF6", To: "#D946EF"}, // violet -> fuchsia
	model.EmotionHappy:     {From: "#8B5CF6", To: "#D946EF"},
	model.EmotionThinking:  {From: "#3B82F6", To: "#06B6D4"}, // blue -> cyan
	model.EmotionError:     {From: "#EF4444", To: "#F97316"}, // red -> orange
	model.EmotionSurprised: {From: "#FBBF24", To: "#EAB308"}, // amber -> yellow
	model.EmotionWink:      {From: "#EC4899", To: "#F43F5E"}, // pink -> rose
	model.EmotionTyping:    {From: "#10B981", To: "#14B8A6"}, // emerald -> teal
}

// emotionFaces are the terminal renderings of each mood.
var emotionFaces = map[model.AvatarEmotion]string{
	model.EmotionNeutral:   "(o_o)",
	model.EmotionHappy:     "(^_^)",
	model.EmotionThinking:  "(o.O)",
	model.EmotionError:     "(x_x)",
	model.EmotionSurprised: "(O_O)",
	model.EmotionWink:      "(^_~)",
	model.EmotionTyping:    "(o_o)~",
}

// EmotionGradient returns the avatar colors for e. Unknown moods get the
// neutral colors.
func EmotionGradient(e model.AvatarEmotion) Gradient {
	if g, ok := emotionGradients[e]; ok {
		return g
	}
	return emotionGradients[model.EmotionNeutral]
}

// EmotionFace returns the ASCII face for e.
func EmotionFace(e model.AvatarEmotion) string {
	if f, ok := emotionFaces[e]; ok {
		return f
	}
	return emotionFaces[model.EmotionNeutral]
}
