// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat owns the conversation state and drives the send cycle.
//
// A Manager holds the conversation list, the active conversation's working
// messages and the transient UI state (input, loading, error, avatar mood).
// Every change is published to subscribers as an immutable State snapshot.
//
// # Send cycle
//
// SendMessage appends the user message and an empty assistant placeholder,
// saves, then streams the reply into the placeholder. Mid-stream saves are
// throttled; the completed reply is saved immediately. A failure replaces the
// placeholder with an error-role message; partial text is discarded.
//
// # Generations
//
// Each cycle carries a per-conversation generation token. Switching away,
// starting a new chat or deleting the conversation bumps the generation and
// cancels the request, so a late fragment never lands in another
// conversation.
//
// # Usage
//
//	m := chat.NewManager(store, client, chat.DefaultOptions())
//	m.Init(ctx)
//	defer m.Close(ctx)
//	unsubscribe := m.Subscribe(render)
//	m.SendMessage(ctx, "Hello")
package chat
