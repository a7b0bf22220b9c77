// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package styles provides the visual styling system for the terminal chat client.

All palette colors use Lip Gloss AdaptiveColor for automatic light/dark
terminal detection.

# Color System (colors.go)

  - Purple - Assistant name and accents
  - Cyan - Prompt and user label
  - Rose - Errors and error-role messages
  - Amber - Warnings and system notices

# Avatar (avatar.go)

Each avatar mood has an ASCII face and a two-stop gradient:

	neutral, happy  violet -> fuchsia
	thinking        blue -> cyan
	typing          emerald -> teal
	wink            pink -> rose
	error           red -> orange
	surprised       amber -> yellow

# Theme System (theme.go)

A Theme binds the styles to a lipgloss renderer for one output. Passing
color=false forces the ASCII profile, which strips all colors:

	theme := styles.NewTheme(os.Stdout, "auto", true)
	fmt.Println(theme.RenderAvatar(model.EmotionThinking, "Thinking..."))
*/
package styles
