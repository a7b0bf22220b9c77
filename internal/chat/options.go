// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/rs/zerolog"

	"github.com/EmpSwarup/inductive-ai-agent/internal/gemini"
	"github.com/EmpSwarup/inductive-ai-agent/internal/model"
)

// Generator starts a streaming reply for a conversation history.
type Generator interface {
	Generate(ctx context.Context, history []gemini.Turn) (*gemini.Stream, error)
}

// Persister loads and saves the conversation list.
type Persister interface {
	Load(ctx context.Context) []model.Conversation
	Save(ctx context.Context, convs []model.Conversation) error
	SaveDebounced(convs []model.Conversation)
	Flush(ctx context.Context) error
}

// Options tunes manager timing. Zero values take the defaults.
type Options struct {
	// SaveThrottle bounds persistence while streaming. Default: 1s
	SaveThrottle time.Duration

	// Reply pacing: min(ReplyDelayBase + ReplyDelayPerChar*len, ReplyDelayMax).
	// Defaults: 300ms, 15ms, 2s
	ReplyDelayBase    time.Duration
	ReplyDelayPerChar time.Duration
	ReplyDelayMax     time.Duration

	// HappyIdle is how long the avatar stays happy after a reply. Default: 2s
	HappyIdle time.Duration

	// ErrorDelay is the pause before the error is shown. Default: 300ms
	ErrorDelay time.Duration

	// ErrorIdle is how long the avatar shows the error mood. Default: 3s
	ErrorIdle time.Duration

	// PendingClear is how long the pending message id outlives the cycle.
	// Default: 500ms
	PendingClear time.Duration

	// Rand returns a pseudo-random int in [0, n). Default: math/rand/v2 IntN
	Rand func(n int) int

	Logger zerolog.Logger
}

// DefaultOptions returns the standard timings.
func DefaultOptions() Options {
	return Options{
		SaveThrottle:      time.Second,
		ReplyDelayBase:    300 * time.Millisecond,
		ReplyDelayPerChar: 15 * time.Millisecond,
		ReplyDelayMax:     2 * time.Second,
		HappyIdle:         2 * time.Second,
		ErrorDelay:        300 * time.Millisecond,
		ErrorIdle:         3 * time.Second,
		PendingClear:      500 * time.Millisecond,
		Rand:              rand.IntN,
	}
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.SaveThrottle <= 0 {
		o.SaveThrottle = def.SaveThrottle
	}
	if o.ReplyDelayBase <= 0 {
		o.ReplyDelayBase = def.ReplyDelayBase
	}
	if o.ReplyDelayPerChar <= 0 {
		o.ReplyDelayPerChar = def.ReplyDelayPerChar
	}
	if o.ReplyDelayMax <= 0 {
		o.ReplyDelayMax = def.ReplyDelayMax
	}
	if o.HappyIdle <= 0 {
		o.HappyIdle = def.HappyIdle
	}
	if o.ErrorDelay <= 0 {
		o.ErrorDelay = def.ErrorDelay
	}
	if o.ErrorIdle <= 0 {
		o.ErrorIdle = def.ErrorIdle
	}
	if o.PendingClear <= 0 {
		o.PendingClear = def.PendingClear
	}
	if o.Rand == nil {
		o.Rand = def.Rand
	}
	return o
}

// ReplyDelay returns the pacing delay for a reply of n characters.
func (o Options) ReplyDelay(n int) time.Duration {
	d := o.ReplyDelayBase + time.Duration(n)*o.ReplyDelayPerChar
	if d > o.ReplyDelayMax {
		return o.ReplyDelayMax
	}
	return d
}
