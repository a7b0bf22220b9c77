// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package gemini

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/EmpSwarup/inductive-ai-agent/internal/model"
)

// DefaultModel is the model used when none is configured.
const DefaultModel = "gemini-2.0-flash"

// Turn is one entry of the conversation history handed to Generate.
type Turn struct {
	Role model.Role
	Text string
}

// Config configures a Client.
type Config struct {
	// APIKey is the Gemini API credential. Empty makes every Generate fail.
	APIKey string

	// Model is the model identifier. Default: DefaultModel
	Model string

	// BaseURL overrides the API endpoint.
	BaseURL string

	Persona model.Persona

	// BatchSize is the repair batch threshold. Default: DefaultBatchSize
	BatchSize int

	// Transport replaces the genai transport. The API key is still required.
	Transport Transport

	Logger zerolog.Logger
}

// =============================================================================
// CLIENT
// =============================================================================

// Client turns a conversation history into a stream of repaired fragments.
type Client struct {
	apiKey    string
	model     string
	baseURL   string
	batchSize int
	log       zerolog.Logger

	mu        sync.RWMutex
	persona   model.Persona
	transport Transport
}

// NewClient creates a client. It never fails: a missing credential is
// reported by Generate.
func NewClient(cfg Config) *Client {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	return &Client{
		apiKey:    cfg.APIKey,
		model:     cfg.Model,
		baseURL:   cfg.BaseURL,
		batchSize: cfg.BatchSize,
		log:       cfg.Logger.With().Str("component", "gemini").Logger(),
		persona:   cfg.Persona,
		transport: cfg.Transport,
	}
}

// Model returns the configured model identifier.
func (c *Client) Model() string {
	return c.model
}

// Configured reports whether an API key is set.
func (c *Client) Configured() bool {
	return c.apiKey != ""
}

// Persona returns the current persona.
func (c *Client) Persona() model.Persona {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.persona
}

// SetPersona replaces the persona used for subsequent requests.
func (c *Client) SetPersona(p model.Persona) {
	c.mu.Lock()
	c.persona = p
	c.mu.Unlock()
}

// Generate starts a streaming request for history. The returned error is an
// *AdapterInitError when the credential is missing or the SDK client cannot
// be created; no stream is returned in that case.
func (c *Client) Generate(ctx context.Context, history []Turn) (*Stream, error) {
	transport, err := c.getTransport(ctx)
	if err != nil {
		c.log.Error().Err(err).Msg("Gemini client not initialized")
		return nil, err
	}

	persona := c.Persona()
	contents := BuildContents(history, persona)
	c.log.Debug().Int("turns", len(contents)).Str("model", c.model).Msg("Sending to Gemini")

	raw := transport.Stream(ctx, c.model, contents)
	return NewStream(repairStream(raw, NewRepairer(persona.Name, c.batchSize))), nil
}

// getTransport returns the transport, creating the genai client on first use.
// A failed construction is retried on the next call.
func (c *Client) getTransport(ctx context.Context) (Transport, error) {
	if c.apiKey == "" {
		return nil, &AdapterInitError{Err: ErrNotConfigured}
	}

	c.mu.RLock()
	t := c.transport
	c.mu.RUnlock()
	if t != nil {
		return t, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.transport != nil {
		return c.transport, nil
	}
	gt, err := NewGenAITransport(ctx, c.apiKey, c.baseURL)
	if err != nil {
		return nil, &AdapterInitError{Err: err}
	}
	c.transport = gt
	return gt, nil
}

// =============================================================================
// REQUEST BUILDING
// =============================================================================

// BuildContents converts history into outbound request entries. Only user and
// assistant turns are kept, assistant becomes "model", and the first entry,
// when it is a user turn, is prefixed with the persona instruction. history is
// not modified.
func BuildContents(history []Turn, persona model.Persona) []Content {
	contents := make([]Content, 0, len(history))
	for _, turn := range history {
		switch turn.Role {
		case model.RoleUser:
			contents = append(contents, Content{Role: RoleUser, Text: turn.Text})
		case model.RoleAssistant:
			contents = append(contents, Content{Role: RoleModel, Text: turn.Text})
		}
	}

	if len(contents) > 0 && contents[0].Role == RoleUser {
		contents[0].Text = persona.Instruction() + "\n\nUser: " + contents[0].Text
	}
	return contents
}

// HistoryFromMessages derives the request history from a message list,
// dropping system and error messages.
func HistoryFromMessages(msgs []model.Message) []Turn {
	turns := make([]Turn, 0, len(msgs))
	for _, m := range msgs {
		if !m.Role.IsConversational() {
			continue
		}
		turns = append(turns, Turn{Role: m.Role, Text: m.Content})
	}
	return turns
}
