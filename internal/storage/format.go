// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"strconv"
	"strings"

	"github.com/EmpSwarup/inductive-ai-agent/internal/model"
	"github.com/EmpSwarup/inductive-ai-agent/internal/util"
)

// Column widths of the conversation list.
const (
	listIndexWidth   = 4
	listTitleWidth   = 30
	listCreatedWidth = 18
	listCountWidth   = 8
)

// =============================================================================
// CONVERSATION LIST FORMATTING
// =============================================================================

// FormatConversationList renders conversations as a table. Rows are numbered
// from 1 and the active conversation is marked with "*".
func FormatConversationList(convs []model.Conversation, activeID string) string {
	if len(convs) == 0 {
		return "No conversations found."
	}

	rule := strings.Repeat("-", listIndexWidth+listTitleWidth+listCreatedWidth+listCountWidth+4) + "\n"

	var sb strings.Builder
	sb.WriteString(rule)
	sb.WriteString(util.PadRight("#", listIndexWidth) + " " +
		util.PadRight("Title", listTitleWidth) + " " +
		util.PadRight("Created", listCreatedWidth) + " " +
		util.PadRight("Messages", listCountWidth) + "\n")
	sb.WriteString(rule)

	for i, c := range convs {
		marker := " "
		if c.ID == activeID {
			marker = "*"
		}
		idx := marker + strconv.Itoa(i+1)

		sb.WriteString(util.PadRight(idx, listIndexWidth) + " " +
			util.PadRight(util.SingleLine(c.Title), listTitleWidth) + " " +
			util.PadRight(c.CreatedAt.Format("2006-01-02 15:04"), listCreatedWidth) + " " +
			util.PadRight(strconv.Itoa(c.MessageCount()), listCountWidth) + "\n")
	}
	return sb.String()
}

// =============================================================================
// CONVERSATION EXPORT
// =============================================================================

// ExportMarkdown renders a conversation as Markdown with role labels and
// message times.
func ExportMarkdown(c model.Conversation, assistantName string) string {
	var sb strings.Builder
	sb.WriteString("# " + c.Title + "\n\n")
	sb.WriteString("Created: " + c.CreatedAt.String() + "\n\n")
	sb.WriteString("---\n\n")

	for _, msg := range c.Messages {
		label := msg.Role.DisplayName()
		if msg.Role == model.RoleAssistant && assistantName != "" {
			label = assistantName
		}
		sb.WriteString("**" + label + "** (" + msg.CreatedAt.Format("15:04") + "):\n\n")
		sb.WriteString(msg.Content)
		sb.WriteString("\n\n---\n\n")
	}

	return sb.String()
}
