// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/EmpSwarup/inductive-ai-agent/internal/gemini"
	"github.com/EmpSwarup/inductive-ai-agent/internal/model"
)

// defaultErrorText is shown when a failure carries no message.
const defaultErrorText = "An error occurred contacting AI."

// errNoStream is reported when the generator returns neither stream nor error.
var errNoStream = errors.New("failed to initialize Gemini stream")

// =============================================================================
// MANAGER
// =============================================================================

// Manager coordinates the conversation list, the active conversation, the
// send cycle and the avatar mood.
//
// All operations are safe for concurrent use. A send cycle blocks its caller
// until the reply is complete; while it waits on the network the lock is
// released, so other operations (switching, new chat, delete) interleave.
// Every send cycle carries a generation token for its conversation; leaving
// the conversation bumps the generation and cancels the request, and the
// cycle stops applying results once its token is stale.
type Manager struct {
	store Persister
	gen   Generator
	opts  Options
	log   zerolog.Logger

	mu           sync.Mutex
	state        State
	initialized  bool
	closed       bool
	generations  map[string]uint64
	cycles       map[string]*cycle
	idleTimer    timerSlot
	pendingTimer timerSlot

	// Subscriber delivery. queue is guarded by mu; notifyMu is held by the
	// goroutine draining it.
	subs      []subscriber
	nextSubID int
	queue     []State
	notifyMu  sync.Mutex
}

type subscriber struct {
	id int
	fn func(State)
}

// cycle is one in-flight send.
type cycle struct {
	convID    string
	gen       uint64
	ctx       context.Context // cancelled when the conversation is left
	streamCtx context.Context // additionally cancelled with the caller's ctx
	cancel    func()
}

// NewManager creates a manager. Call Init before use.
func NewManager(store Persister, gen Generator, opts Options) *Manager {
	opts = opts.withDefaults()
	return &Manager{
		store:        store,
		gen:          gen,
		opts:         opts,
		log:          opts.Logger.With().Str("component", "chat").Logger(),
		state:        State{AvatarEmotion: model.EmotionNeutral},
		generations:  make(map[string]uint64),
		cycles:       make(map[string]*cycle),
		idleTimer:    timerSlot{name: "emotion-idle"},
		pendingTimer: timerSlot{name: "pending-clear"},
	}
}

// State returns a snapshot of the current state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

// Subscribe registers fn to receive every published state, in order.
// fn runs on the goroutine that made the change and may call back into the
// manager. The returned function unsubscribes.
func (m *Manager) Subscribe(fn func(State)) (unsubscribe func()) {
	m.mu.Lock()
	m.nextSubID++
	id := m.nextSubID
	m.subs = append(m.subs, subscriber{id: id, fn: fn})
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		for i, s := range m.subs {
			if s.id == id {
				m.subs = append(m.subs[:i:i], m.subs[i+1:]...)
				return
			}
		}
	}
}

// =============================================================================
// LIFECYCLE
// =============================================================================

// Init loads persisted conversations and activates the most recently created
// one. With nothing persisted (or unreadable data) a default conversation is
// created and saved. Subsequent calls do nothing.
func (m *Manager) Init(ctx context.Context) {
	convs := m.store.Load(ctx)

	m.mu.Lock()
	if m.initialized || m.closed {
		m.mu.Unlock()
		return
	}
	m.initialized = true

	if recent, ok := model.MostRecent(convs); ok {
		m.state.Conversations = convs
		m.state.ActiveConversationID = recent.ID
		m.state.Messages = model.CloneMessages(recent.Messages)
		m.log.Info().Int("conversations", len(convs)).Str("active", recent.ID).Msg("Loaded conversations")
	} else {
		conv := model.NewConversation()
		m.state.Conversations = []model.Conversation{conv}
		m.state.ActiveConversationID = conv.ID
		m.state.Messages = []model.Message{}
		m.saveLocked(ctx)
		m.log.Info().Str("active", conv.ID).Msg("Created initial conversation")
	}
	m.state.AvatarEmotion = model.EmotionNeutral
	m.publishAndUnlock()
}

// Close cancels in-flight requests, stops timers and flushes pending writes.
func (m *Manager) Close(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	for id, c := range m.cycles {
		c.cancel()
		m.generations[id]++
		delete(m.cycles, id)
	}
	m.stopLocked(&m.idleTimer)
	m.stopLocked(&m.pendingTimer)
	m.mu.Unlock()

	return m.store.Flush(ctx)
}

// =============================================================================
// INPUT
// =============================================================================

// SetInput stores the text being composed.
func (m *Manager) SetInput(text string) {
	m.mu.Lock()
	m.state.Input = text
	m.publishAndUnlock()
}

// Submit sends the stored input. See SendMessage.
func (m *Manager) Submit(ctx context.Context) bool {
	m.mu.Lock()
	input := m.state.Input
	m.mu.Unlock()
	return m.SendMessage(ctx, input)
}

// =============================================================================
// SEND CYCLE
// =============================================================================

// SendMessage runs one send cycle and blocks until it completes. It reports
// false, without any effect, when text is blank, a reply is in flight or no
// conversation is active.
//
// Failures never propagate: they become an error-role message in place of
// the assistant placeholder and a non-empty State.Error.
func (m *Manager) SendMessage(ctx context.Context, text string) bool {
	text = strings.TrimSpace(text)

	m.mu.Lock()
	if text == "" || m.state.IsLoading || m.closed {
		m.mu.Unlock()
		return false
	}
	convID := m.state.ActiveConversationID
	idx := model.FindConversation(m.state.Conversations, convID)
	if idx < 0 {
		m.mu.Unlock()
		return false
	}

	c := m.beginCycleLocked(ctx, convID)
	defer m.endCycle(c)

	m.stopLocked(&m.idleTimer)
	m.stopLocked(&m.pendingTimer)
	m.state.Error = ""
	m.state.IsLoading = true
	m.state.AvatarEmotion = model.EmotionThinking
	m.state.StreamingStarted = false
	m.state.Input = ""

	if len(m.state.Messages) == 0 {
		m.state.Conversations[idx].Title = model.TitlePreview(text)
	}
	base := appendMessage(m.state.Messages, model.NewUserMessage(text))
	placeholder := model.NewAssistantPlaceholder()
	m.state.PendingMessageID = placeholder.ID
	m.setMessagesLocked(convID, appendMessage(base, placeholder))
	m.saveLocked(ctx)
	history := gemini.HistoryFromMessages(base)

	m.log.Debug().Str("conversation", convID).Uint64("generation", c.gen).Int("history", len(history)).Msg("Send cycle started")
	m.publishAndUnlock()

	content, stale, err := m.consume(c, history, base, placeholder)
	switch {
	case stale:
		m.log.Debug().Str("conversation", convID).Uint64("generation", c.gen).Msg("Stale stream abandoned")
	case err != nil:
		m.fail(c, base, placeholder, err)
	default:
		m.finish(c, base, placeholder, content)
	}
	return true
}

// consume folds fragments into the placeholder. stale is true when the cycle
// was superseded and must not touch state any further.
func (m *Manager) consume(c *cycle, history []gemini.Turn, base []model.Message, placeholder model.Message) (content string, stale bool, err error) {
	stream, err := m.gen.Generate(c.streamCtx, history)
	if err != nil {
		return "", false, err
	}
	if stream == nil {
		return "", false, errNoStream
	}

	// Drain the initial token so the first mid-stream save waits a full
	// interval.
	limiter := rate.NewLimiter(rate.Every(m.opts.SaveThrottle), 1)
	limiter.Allow()

	var sb strings.Builder
	for frag, ferr := range stream.Fragments() {
		if ferr != nil {
			return sb.String(), false, ferr
		}

		m.mu.Lock()
		if !m.isCurrentLocked(c) {
			m.mu.Unlock()
			return sb.String(), true, nil
		}
		if !m.state.StreamingStarted {
			m.state.StreamingStarted = true
			m.state.AvatarEmotion = model.EmotionTyping
		}
		sb.WriteString(frag)
		m.setMessagesLocked(c.convID, appendMessage(base, placeholder.WithContent(sb.String())))
		if limiter.Allow() {
			m.saveLocked(c.ctx)
		} else {
			// Trailing edge for a stream that stalls between throttled saves.
			m.store.SaveDebounced(m.state.Conversations)
		}
		m.publishAndUnlock()
	}
	return sb.String(), false, nil
}

// finish commits the reply, paces the happy mood and ends the cycle.
func (m *Manager) finish(c *cycle, base []model.Message, placeholder model.Message, content string) {
	m.mu.Lock()
	if !m.isCurrentLocked(c) {
		m.mu.Unlock()
		return
	}
	m.setMessagesLocked(c.convID, appendMessage(base, placeholder.WithContent(content)))
	m.saveLocked(c.ctx)
	m.publishAndUnlock()

	if !sleep(c.ctx, m.opts.ReplyDelay(utf8.RuneCountInString(content))) {
		return
	}

	m.mu.Lock()
	if !m.isCurrentLocked(c) {
		m.mu.Unlock()
		return
	}
	m.state.AvatarEmotion = model.EmotionHappy
	m.scheduleLocked(&m.idleTimer, m.opts.HappyIdle, m.idleLocked)
	m.endLoadingLocked(placeholder.ID)
	m.log.Debug().Str("conversation", c.convID).Int("chars", len(content)).Msg("Send cycle completed")
	m.publishAndUnlock()
}

// fail rewrites the placeholder as an error message.
func (m *Manager) fail(c *cycle, base []model.Message, placeholder model.Message, err error) {
	text := errorText(err)
	m.log.Error().Err(err).Str("conversation", c.convID).Msg("Error during Gemini stream")

	m.mu.Lock()
	if !m.isCurrentLocked(c) {
		m.mu.Unlock()
		return
	}
	m.state.Error = text
	m.publishAndUnlock()

	if !sleep(c.ctx, m.opts.ErrorDelay) {
		return
	}

	m.mu.Lock()
	if !m.isCurrentLocked(c) {
		m.mu.Unlock()
		return
	}
	m.state.AvatarEmotion = model.EmotionError
	m.setMessagesLocked(c.convID, appendMessage(base, placeholder.AsError(text)))
	m.saveLocked(c.ctx)
	m.scheduleLocked(&m.idleTimer, m.opts.ErrorIdle, m.idleLocked)
	m.endLoadingLocked(placeholder.ID)
	m.publishAndUnlock()
}

// endLoadingLocked clears the loading flags and schedules the pending id
// reset.
func (m *Manager) endLoadingLocked(pendingID string) {
	m.state.IsLoading = false
	m.state.StreamingStarted = false
	m.scheduleLocked(&m.pendingTimer, m.opts.PendingClear, func() {
		if m.state.PendingMessageID == pendingID {
			m.state.PendingMessageID = ""
		}
	})
}

// idleLocked settles the avatar into a random idle mood.
func (m *Manager) idleLocked() {
	m.state.AvatarEmotion = model.IdleEmotions[m.opts.Rand(len(model.IdleEmotions))]
}

// errorText extracts the user-facing message of a failure.
func errorText(err error) string {
	var streamErr *gemini.StreamError
	if errors.As(err, &streamErr) && streamErr.Err != nil {
		err = streamErr.Err
	}
	if errors.Is(err, context.Canceled) {
		return "Request cancelled."
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return defaultErrorText
}

// =============================================================================
// CONVERSATIONS
// =============================================================================

// NewChat activates a fresh conversation and returns its id. An active
// conversation that is still empty and untitled is reused instead.
func (m *Manager) NewChat(ctx context.Context) string {
	m.mu.Lock()
	if m.closed {
		id := m.state.ActiveConversationID
		m.mu.Unlock()
		return id
	}

	activeID := m.state.ActiveConversationID
	if idx := model.FindConversation(m.state.Conversations, activeID); idx >= 0 && m.state.Conversations[idx].IsPristine() {
		m.leaveLocked(activeID)
		m.state.Messages = []model.Message{}
		m.resetTransientLocked()
		m.publishAndUnlock()
		return activeID
	}

	m.newChatLocked(ctx)
	id := m.state.ActiveConversationID
	m.publishAndUnlock()
	return id
}

// SwitchConversation activates the conversation with id. It reports false
// when id is unknown or already active.
func (m *Manager) SwitchConversation(ctx context.Context, id string) bool {
	m.mu.Lock()
	idx := model.FindConversation(m.state.Conversations, id)
	if m.closed || idx < 0 || id == m.state.ActiveConversationID {
		m.mu.Unlock()
		return false
	}

	if m.leaveLocked(m.state.ActiveConversationID) {
		// Keep what the abandoned stream had produced.
		m.saveLocked(ctx)
	}
	m.state.ActiveConversationID = id
	m.state.Messages = model.CloneMessages(m.state.Conversations[idx].Messages)
	m.resetTransientLocked()
	m.log.Debug().Str("conversation", id).Msg("Switched conversation")
	m.publishAndUnlock()
	return true
}

// DeleteConversation removes the conversation with id. Deleting the active
// conversation activates the most recently created remaining one, or a new
// conversation when none remain. It reports false when id is unknown.
func (m *Manager) DeleteConversation(ctx context.Context, id string) bool {
	m.mu.Lock()
	idx := model.FindConversation(m.state.Conversations, id)
	if m.closed || idx < 0 {
		m.mu.Unlock()
		return false
	}

	m.leaveLocked(id)
	remaining := make([]model.Conversation, 0, len(m.state.Conversations)-1)
	remaining = append(remaining, m.state.Conversations[:idx]...)
	remaining = append(remaining, m.state.Conversations[idx+1:]...)
	m.state.Conversations = remaining

	if id == m.state.ActiveConversationID {
		if next, ok := model.MostRecent(remaining); ok {
			m.state.ActiveConversationID = next.ID
			m.state.Messages = model.CloneMessages(next.Messages)
			m.resetTransientLocked()
		} else {
			m.state.ActiveConversationID = ""
			m.newChatLocked(ctx)
			m.log.Debug().Str("deleted", id).Msg("Deleted last conversation")
			m.publishAndUnlock()
			return true
		}
	}

	m.saveLocked(ctx)
	m.log.Debug().Str("deleted", id).Str("active", m.state.ActiveConversationID).Msg("Deleted conversation")
	m.publishAndUnlock()
	return true
}

// UpdateTitle renames a conversation. An empty title becomes "Untitled Chat".
// It reports false when id is unknown.
func (m *Manager) UpdateTitle(ctx context.Context, id, title string) bool {
	m.mu.Lock()
	idx := model.FindConversation(m.state.Conversations, id)
	if m.closed || idx < 0 {
		m.mu.Unlock()
		return false
	}
	if strings.TrimSpace(title) == "" {
		title = model.UntitledTitle
	}
	m.state.Conversations[idx].Title = title
	m.saveLocked(ctx)
	m.publishAndUnlock()
	return true
}

// newChatLocked prepends and activates a new conversation. Caller holds m.mu.
func (m *Manager) newChatLocked(ctx context.Context) {
	if m.state.ActiveConversationID != "" {
		m.leaveLocked(m.state.ActiveConversationID)
	}
	conv := model.NewConversation()
	m.state.Conversations = append([]model.Conversation{conv}, m.state.Conversations...)
	m.state.ActiveConversationID = conv.ID
	m.state.Messages = []model.Message{}
	m.resetTransientLocked()
	m.saveLocked(ctx)
}

// resetTransientLocked clears the per-cycle UI fields. Caller holds m.mu.
func (m *Manager) resetTransientLocked() {
	m.state.IsLoading = false
	m.state.Error = ""
	m.state.Input = ""
	m.state.PendingMessageID = ""
	m.state.StreamingStarted = false
	m.state.AvatarEmotion = model.EmotionNeutral
	m.stopLocked(&m.idleTimer)
	m.stopLocked(&m.pendingTimer)
}

// =============================================================================
// GENERATIONS
// =============================================================================

// beginCycleLocked bumps the conversation's generation and registers a new
// cycle. Caller holds m.mu.
func (m *Manager) beginCycleLocked(ctx context.Context, convID string) *cycle {
	m.generations[convID]++

	cycleCtx, cancelCycle := context.WithCancel(context.WithoutCancel(ctx))
	streamCtx, cancelStream := context.WithCancel(ctx)
	stop := context.AfterFunc(cycleCtx, cancelStream)

	c := &cycle{
		convID:    convID,
		gen:       m.generations[convID],
		ctx:       cycleCtx,
		streamCtx: streamCtx,
		cancel: func() {
			cancelCycle()
			cancelStream()
			stop()
		},
	}
	m.cycles[convID] = c
	return c
}

// endCycle unregisters c and releases its contexts.
func (m *Manager) endCycle(c *cycle) {
	m.mu.Lock()
	if m.cycles[c.convID] == c {
		delete(m.cycles, c.convID)
	}
	m.mu.Unlock()
	c.cancel()
}

// leaveLocked invalidates any cycle running for convID. It reports whether
// one was in flight. Caller holds m.mu.
func (m *Manager) leaveLocked(convID string) bool {
	m.generations[convID]++
	c, ok := m.cycles[convID]
	if !ok {
		return false
	}
	c.cancel()
	delete(m.cycles, convID)
	return true
}

// isCurrentLocked reports whether c may still mutate state. Caller holds m.mu.
func (m *Manager) isCurrentLocked(c *cycle) bool {
	return !m.closed &&
		m.state.ActiveConversationID == c.convID &&
		m.generations[c.convID] == c.gen
}

// =============================================================================
// STATE HELPERS
// =============================================================================

// setMessagesLocked replaces the message list of convID and, when it is
// active, the working list. Caller holds m.mu.
func (m *Manager) setMessagesLocked(convID string, msgs []model.Message) {
	idx := model.FindConversation(m.state.Conversations, convID)
	if idx < 0 {
		return
	}
	m.state.Conversations[idx].Messages = model.CloneMessages(msgs)
	if m.state.ActiveConversationID == convID {
		m.state.Messages = msgs
	}
}

// saveLocked writes the conversation list. Failures are logged by the store
// and never surfaced. Caller holds m.mu.
func (m *Manager) saveLocked(ctx context.Context) {
	if err := m.store.Save(context.WithoutCancel(ctx), m.state.Conversations); err != nil {
		m.log.Warn().Err(err).Msg("Conversation save failed")
	}
}

func (m *Manager) snapshotLocked() State {
	s := m.state
	s.Conversations = model.CloneConversations(m.state.Conversations)
	s.Messages = model.CloneMessages(m.state.Messages)
	return s
}

// publishAndUnlock queues a snapshot for subscribers, releases m.mu and
// delivers queued snapshots in order. Caller holds m.mu.
func (m *Manager) publishAndUnlock() {
	m.state.Version++
	if len(m.subs) > 0 {
		m.queue = append(m.queue, m.snapshotLocked())
	}
	m.mu.Unlock()
	m.drain()
}

// drain delivers queued snapshots. Only one goroutine drains at a time; a
// snapshot queued while another goroutine drains is delivered by it.
func (m *Manager) drain() {
	if !m.notifyMu.TryLock() {
		return
	}
	for {
		m.mu.Lock()
		if len(m.queue) == 0 {
			m.notifyMu.Unlock()
			m.mu.Unlock()
			return
		}
		batch := m.queue
		m.queue = nil
		subs := make([]subscriber, len(m.subs))
		copy(subs, m.subs)
		m.mu.Unlock()

		for _, snap := range batch {
			for _, s := range subs {
				s.fn(snap)
			}
		}
	}
}

// appendMessage returns a new slice holding msgs followed by msg.
func appendMessage(msgs []model.Message, msg model.Message) []model.Message {
	out := make([]model.Message, len(msgs), len(msgs)+1)
	copy(out, msgs)
	return append(out, msg)
}
