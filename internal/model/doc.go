// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and messages.
//
// This package defines the core domain types shared by the store, the
// streaming adapter and the conversation manager.
//
// # Key Types
//
//   - Conversation: titled, ordered list of messages with a creation time
//   - Message: single message with role, content and creation time
//   - Role: message role enumeration (user, assistant, system, error)
//   - Timestamp: time value that survives malformed persisted data
//   - AvatarEmotion: mood shown by the assistant avatar
//
// # Usage
//
// Create a conversation and title it from the first user message:
//
//	conv := model.NewConversation()
//	msg := model.NewUserMessage("Hello!")
//	conv.Messages = append(conv.Messages, msg)
//	conv.Title = model.TitlePreview(msg.Content)
package model
