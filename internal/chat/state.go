// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import "github.com/EmpSwarup/inductive-ai-agent/internal/model"

// Status texts shown next to the avatar.
const (
	StatusError    = "Error"
	StatusTyping   = "Typing..."
	StatusThinking = "Thinking..."
)

// State is an immutable snapshot of the manager state handed to subscribers.
type State struct {
	// Version increases with every published change.
	Version uint64

	Conversations        []model.Conversation
	ActiveConversationID string

	// Messages is the working message list of the active conversation.
	Messages []model.Message

	Input            string
	IsLoading        bool
	Error            string
	AvatarEmotion    model.AvatarEmotion
	PendingMessageID string
	StreamingStarted bool
}

// CurrentEmotion returns the emotion to display. While loading it is
// "thinking" until the first fragment arrives and "typing" after.
func (s State) CurrentEmotion() model.AvatarEmotion {
	if s.IsLoading {
		if s.StreamingStarted {
			return model.EmotionTyping
		}
		return model.EmotionThinking
	}
	return s.AvatarEmotion
}

// StatusText returns the short status line for the current phase.
func (s State) StatusText() string {
	switch {
	case s.Error != "":
		return StatusError
	case s.IsLoading && s.StreamingStarted:
		return StatusTyping
	case s.IsLoading:
		return StatusThinking
	default:
		return ""
	}
}

// ActiveConversation returns the active conversation, if any.
func (s State) ActiveConversation() (model.Conversation, bool) {
	idx := model.FindConversation(s.Conversations, s.ActiveConversationID)
	if idx < 0 {
		return model.Conversation{}, false
	}
	return s.Conversations[idx], true
}

// PendingMessage returns the assistant message currently being streamed.
func (s State) PendingMessage() (model.Message, bool) {
	if s.PendingMessageID == "" {
		return model.Message{}, false
	}
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].ID == s.PendingMessageID {
			return s.Messages[i], true
		}
	}
	return model.Message{}, false
}
