// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/EmpSwarup/inductive-ai-agent/internal/model"
)

const (
	// DefaultKey is the key holding the conversation list.
	DefaultKey = "chatConversations"

	// DefaultDebounce is the quiescence window for debounced saves.
	DefaultDebounce = 500 * time.Millisecond
)

// Options configures a Store.
type Options struct {
	// Key is the backend key. Default: DefaultKey
	Key string

	// Debounce is the quiescence window for SaveDebounced. Default: DefaultDebounce
	Debounce time.Duration

	Logger zerolog.Logger
}

// =============================================================================
// STORE
// =============================================================================

// Store reads and writes the whole conversation list under a single key.
//
// Two write paths exist. Save writes immediately and supersedes any pending
// debounced write. SaveDebounced coalesces bursts into one write after the
// quiescence window; each call resets the window and replaces the payload.
type Store struct {
	backend  Backend
	key      string
	debounce time.Duration
	log      zerolog.Logger

	// writeMu serializes backend writes so a stale debounced payload can
	// never land after a forced one.
	writeMu sync.Mutex

	mu         sync.Mutex
	timer      *time.Timer
	pending    []model.Conversation
	hasPending bool
	seq        uint64
	closed     bool
}

// NewStore creates a store on top of backend.
func NewStore(backend Backend, opts Options) *Store {
	if opts.Key == "" {
		opts.Key = DefaultKey
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	return &Store{
		backend:  backend,
		key:      opts.Key,
		debounce: opts.Debounce,
		log:      opts.Logger.With().Str("component", "storage").Logger(),
	}
}

// Key returns the backend key in use.
func (s *Store) Key() string {
	return s.key
}

// =============================================================================
// LOAD
// =============================================================================

// Load returns the persisted conversations. It fails soft: a missing key, a
// backend error or undecodable data all yield an empty list.
func (s *Store) Load(ctx context.Context) []model.Conversation {
	data, err := s.backend.Get(ctx, s.key)
	if err != nil {
		if !errors.Is(err, ErrKeyNotFound) {
			s.log.Error().Err(&PersistenceError{Op: "load", Key: s.key, Err: err}).Msg("Failed to load conversations")
		}
		return []model.Conversation{}
	}

	convs, err := Decode(data)
	if err != nil {
		s.log.Error().Err(&PersistenceError{Op: "decode", Key: s.key, Err: err}).Msg("Failed to parse stored conversations")
		return []model.Conversation{}
	}

	s.log.Debug().Int("count", len(convs)).Msg("Loaded conversations")
	return convs
}

// Decode parses a persisted conversation list. Nil message lists become
// empty ones.
func Decode(data []byte) ([]model.Conversation, error) {
	var convs []model.Conversation
	if err := json.Unmarshal(data, &convs); err != nil {
		return nil, err
	}
	if convs == nil {
		convs = []model.Conversation{}
	}
	for i := range convs {
		if convs[i].Messages == nil {
			convs[i].Messages = []model.Message{}
		}
	}
	return convs, nil
}

// Encode serializes a conversation list. The output is deterministic for a
// given input.
func Encode(convs []model.Conversation) ([]byte, error) {
	out := make([]model.Conversation, len(convs))
	for i := range convs {
		out[i] = convs[i]
		if out[i].Messages == nil {
			out[i].Messages = []model.Message{}
		}
	}
	return json.Marshal(out)
}

// =============================================================================
// SAVE
// =============================================================================

// Save writes convs immediately, cancelling any pending debounced write.
// The returned error is a *PersistenceError.
func (s *Store) Save(ctx context.Context, convs []model.Conversation) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	s.cancelPendingLocked()
	s.mu.Unlock()

	return s.write(ctx, convs)
}

// SaveDebounced schedules convs to be written once no further call arrives
// within the debounce window.
func (s *Store) SaveDebounced(convs []model.Conversation) {
	snapshot := model.CloneConversations(convs)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.seq++
	seq := s.seq
	s.pending = snapshot
	s.hasPending = true
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.debounce, func() {
		s.flushScheduled(seq)
	})
}

// Pending reports whether a debounced write is waiting.
func (s *Store) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hasPending
}

// Flush writes the pending debounced payload now, if any.
func (s *Store) Flush(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	if !s.hasPending {
		s.mu.Unlock()
		return nil
	}
	convs := s.pending
	s.cancelPendingLocked()
	s.mu.Unlock()

	return s.write(ctx, convs)
}

// Close flushes any pending write and closes the backend.
func (s *Store) Close(ctx context.Context) error {
	flushErr := s.Flush(ctx)

	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	if err := s.backend.Close(); err != nil {
		return errors.Wrap(err, "close backend")
	}
	return flushErr
}

// flushScheduled runs on the debounce timer. A newer schedule or a forced
// write in between makes seq stale and the call a no-op.
func (s *Store) flushScheduled(seq uint64) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	if seq != s.seq || !s.hasPending {
		s.mu.Unlock()
		return
	}
	convs := s.pending
	s.pending = nil
	s.hasPending = false
	s.timer = nil
	s.mu.Unlock()

	// Error already logged by write.
	_ = s.write(context.Background(), convs)
}

// cancelPendingLocked drops the pending payload. Caller holds s.mu.
func (s *Store) cancelPendingLocked() {
	s.seq++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.pending = nil
	s.hasPending = false
}

// write encodes and stores convs. Caller holds s.writeMu.
func (s *Store) write(ctx context.Context, convs []model.Conversation) error {
	data, err := Encode(convs)
	if err != nil {
		perr := &PersistenceError{Op: "encode", Key: s.key, Err: err}
		s.log.Error().Err(perr).Msg("Failed to encode conversations")
		return perr
	}
	if err := s.backend.Set(ctx, s.key, data); err != nil {
		perr := &PersistenceError{Op: "save", Key: s.key, Err: err}
		s.log.Error().Err(perr).Msg("Failed to save conversations")
		return perr
	}
	s.log.Debug().Int("count", len(convs)).Int("bytes", len(data)).Msg("Saved conversations")
	return nil
}
