// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

// Persona describes the assistant's identity.
type Persona struct {
	Name        string `toml:"name"`
	Avatar      string `toml:"avatar"`
	Personality string `toml:"personality"`
	Greeting    string `toml:"greeting"`
}

// DefaultPersona returns the built-in Zara persona.
func DefaultPersona() Persona {
	return Persona{
		Name:   "Zara",
		Avatar: "/avatars/zara-avatar.svg",
		Personality: "You are Zara, a futuristic, slightly formal, but helpful AI assistant. " +
			"You respond concisely and clearly. Try to give every answer in a sarcastic way.",
		Greeting: "Hello! I'm Zara. How may I assist you today?",
	}
}

// DisplayName returns the persona name, or "Assistant" when unset.
func (p Persona) DisplayName() string {
	if p.Name == "" {
		return RoleAssistant.DisplayName()
	}
	return p.Name
}

// Instruction returns the system text prepended to the first user turn.
func (p Persona) Instruction() string {
	return p.Personality + "\n\nImportant: Do not prefix your responses with your name. " +
		"Reply directly without adding \"" + p.DisplayName() + ":\" or any other prefix before your answer."
}
