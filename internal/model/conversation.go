// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"sort"
	"time"
)

const (
	// DefaultTitle is the title of a conversation nobody has written in yet.
	DefaultTitle = "New Conversation"

	// UntitledTitle replaces an empty title on update.
	UntitledTitle = "Untitled Chat"

	// TitlePreviewLength is the number of characters of the first user
	// message kept in a conversation title.
	TitlePreviewLength = 25
)

// =============================================================================
// CONVERSATION TYPE
// =============================================================================

// Conversation holds a complete chat conversation with history and metadata.
type Conversation struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Messages  []Message `json:"messages"`
	CreatedAt Timestamp `json:"createdAt"`
}

// NewConversation creates an empty conversation with the default title.
func NewConversation() Conversation {
	return Conversation{
		ID:        NewID(),
		Title:     DefaultTitle,
		Messages:  []Message{},
		CreatedAt: NewTimestamp(time.Now()),
	}
}

// IsEmpty returns true if there are no messages.
func (c Conversation) IsEmpty() bool {
	return len(c.Messages) == 0
}

// IsPristine reports whether the conversation is empty and still carries the
// default title, i.e. it can be reused instead of creating another one.
func (c Conversation) IsPristine() bool {
	return c.IsEmpty() && c.Title == DefaultTitle
}

// MessageCount returns the number of messages.
func (c Conversation) MessageCount() int {
	return len(c.Messages)
}

// Clone returns a deep copy of the conversation.
func (c Conversation) Clone() Conversation {
	c.Messages = CloneMessages(c.Messages)
	return c
}

// CloneMessages copies a message slice. A nil slice becomes an empty one.
func CloneMessages(msgs []Message) []Message {
	out := make([]Message, len(msgs))
	copy(out, msgs)
	return out
}

// TitlePreview derives a conversation title from the first user message.
func TitlePreview(text string) string {
	runes := []rune(text)
	if len(runes) > TitlePreviewLength {
		return string(runes[:TitlePreviewLength]) + "..."
	}
	return text
}

// =============================================================================
// COLLECTION HELPERS
// =============================================================================

// FindConversation returns the index of the conversation with id, or -1.
func FindConversation(convs []Conversation, id string) int {
	for i := range convs {
		if convs[i].ID == id {
			return i
		}
	}
	return -1
}

// MostRecent returns the conversation with the latest CreatedAt. Ties keep
// list order. ok is false for an empty list.
func MostRecent(convs []Conversation) (conv Conversation, ok bool) {
	if len(convs) == 0 {
		return Conversation{}, false
	}
	sorted := make([]Conversation, len(convs))
	copy(sorted, convs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
	})
	return sorted[0], true
}

// CloneConversations deep-copies a conversation list.
func CloneConversations(convs []Conversation) []Conversation {
	out := make([]Conversation, len(convs))
	for i := range convs {
		out[i] = convs[i].Clone()
	}
	return out
}
