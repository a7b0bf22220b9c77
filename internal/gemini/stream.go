// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package gemini

import (
	"iter"
	"strings"
	"sync/atomic"
)

// Stream is a finite, single-use sequence of repaired text fragments.
type Stream struct {
	seq  iter.Seq2[string, error]
	used atomic.Bool
}

// NewStream wraps a fragment sequence.
func NewStream(seq iter.Seq2[string, error]) *Stream {
	return &Stream{seq: seq}
}

// Fragments returns the fragment sequence. Iteration ends after the first
// error. Iterating a second time yields ErrStreamConsumed.
func (s *Stream) Fragments() iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		if !s.used.CompareAndSwap(false, true) {
			yield("", ErrStreamConsumed)
			return
		}
		s.seq(yield)
	}
}

// Collect drains the stream and returns the concatenated text. On error the
// text received so far is returned with it.
func (s *Stream) Collect() (string, error) {
	var sb strings.Builder
	for frag, err := range s.Fragments() {
		if err != nil {
			return sb.String(), err
		}
		sb.WriteString(frag)
	}
	return sb.String(), nil
}

// repairStream batches raw transport fragments through a Repairer. A transport
// error ends the sequence with a *StreamError carrying the text already
// yielded.
func repairStream(raw iter.Seq2[string, error], rep *Repairer) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		var emitted strings.Builder

		for frag, err := range raw {
			if err != nil {
				yield("", &StreamError{Partial: emitted.String(), Err: err})
				return
			}
			if out, ok := rep.Feed(frag); ok {
				emitted.WriteString(out)
				if !yield(out, nil) {
					return
				}
			}
		}

		if out, ok := rep.Flush(); ok {
			yield(out, nil)
		}
	}
}
