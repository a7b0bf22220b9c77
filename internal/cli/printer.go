// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// printer.go - Streams the assistant reply to the terminal as it grows.

package cli

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/EmpSwarup/inductive-ai-agent/internal/chat"
	"github.com/EmpSwarup/inductive-ai-agent/internal/model"
	"github.com/EmpSwarup/inductive-ai-agent/internal/ui/styles"
)

// streamPrinter is a manager subscriber that writes the pending assistant
// message incrementally. Only content beyond what was already written is
// printed, so every snapshot can be handed to it.
type streamPrinter struct {
	out   io.Writer
	theme *styles.Theme
	name  string
	// decorate adds the thinking line and the speaker label.
	decorate bool

	mu       sync.Mutex
	active   bool
	msgID    string
	printed  int
	labeled  bool
	thinking bool
}

func newStreamPrinter(out io.Writer, theme *styles.Theme, name string, decorate bool) *streamPrinter {
	return &streamPrinter{out: out, theme: theme, name: name, decorate: decorate}
}

// start arms the printer for the next send cycle. name labels the reply.
func (p *streamPrinter) start(name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.name = name
	p.active = true
	p.msgID = ""
	p.printed = 0
	p.labeled = false
	p.thinking = false
}

// stop disarms the printer without writing anything.
func (p *streamPrinter) stop() {
	p.mu.Lock()
	p.active = false
	p.mu.Unlock()
}

// update handles one state snapshot.
func (p *streamPrinter) update(s chat.State) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.active || !s.IsLoading || s.PendingMessageID == "" {
		return
	}
	if p.msgID == "" {
		p.msgID = s.PendingMessageID
	}
	if s.PendingMessageID != p.msgID {
		return
	}

	msg, ok := s.PendingMessage()
	if !ok || msg.Role != model.RoleAssistant {
		return
	}
	if msg.Content == "" {
		if p.decorate && !p.thinking {
			fmt.Fprintln(p.out, p.theme.RenderAvatar(s.CurrentEmotion(), s.StatusText()))
			p.thinking = true
		}
		return
	}
	p.writeLocked(msg.Content)
}

// finish disarms the printer, writes whatever the final snapshot adds and
// returns the message the cycle produced. ok is false when no cycle was
// observed.
func (p *streamPrinter) finish(s chat.State) (msg model.Message, ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.active = false

	id := p.msgID
	if id == "" {
		// The cycle may have completed before any snapshot arrived.
		id = s.PendingMessageID
	}
	if id == "" {
		return model.Message{}, false
	}
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].ID == id {
			msg, ok = s.Messages[i], true
			break
		}
	}
	if !ok {
		return model.Message{}, false
	}

	if msg.Role == model.RoleAssistant {
		p.writeLocked(msg.Content)
	}
	if p.printed > 0 || p.labeled {
		fmt.Fprintln(p.out)
	}
	return msg, true
}

func (p *streamPrinter) writeLocked(content string) {
	if p.decorate && !p.labeled {
		fmt.Fprint(p.out, p.theme.RenderLabel(model.RoleAssistant, p.name)+": ")
		p.labeled = true
	}
	if len(content) <= p.printed {
		return
	}
	fmt.Fprint(p.out, p.renderLines(content[p.printed:]))
	p.printed = len(content)
}

// renderLines styles each line of a fragment separately so no padding is
// added to align the lines of a multi-line block.
func (p *streamPrinter) renderLines(text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		if line != "" {
			lines[i] = p.theme.RenderContent(model.RoleAssistant, line)
		}
	}
	return strings.Join(lines, "\n")
}
