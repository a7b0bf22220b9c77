// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package gemini

import (
	"context"
	"io"
	"iter"

	"github.com/pkg/errors"
	"google.golang.org/genai"
)

// Outbound roles understood by the Gemini API.
const (
	RoleUser  = "user"
	RoleModel = "model"
)

// Content is one outbound request entry.
type Content struct {
	Role string
	Text string
}

// Transport streams raw text chunks for a request.
type Transport interface {
	Stream(ctx context.Context, model string, contents []Content) iter.Seq2[string, error]
}

// =============================================================================
// GENAI TRANSPORT
// =============================================================================

// GenAITransport streams from the Gemini API through the genai SDK.
type GenAITransport struct {
	client *genai.Client
}

// NewGenAITransport constructs a Gemini API client. An empty baseURL uses the
// SDK default endpoint.
func NewGenAITransport(ctx context.Context, apiKey, baseURL string) (*GenAITransport, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      apiKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{BaseURL: baseURL},
	})
	if err != nil {
		return nil, errors.Wrap(err, "create genai client")
	}
	return &GenAITransport{client: client}, nil
}

// Stream implements Transport.
func (t *GenAITransport) Stream(ctx context.Context, model string, contents []Content) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		for chunk, err := range t.client.Models.GenerateContentStream(ctx, model, toGenAIContents(contents), nil) {
			if err != nil {
				if errors.Is(err, io.EOF) {
					return
				}
				yield("", err)
				return
			}
			if chunk == nil {
				continue
			}
			if text := chunk.Text(); text != "" {
				if !yield(text, nil) {
					return
				}
			}
		}
	}
}

func toGenAIContents(contents []Content) []*genai.Content {
	res := make([]*genai.Content, 0, len(contents))
	for _, c := range contents {
		res = append(res, genai.NewContentFromText(c.Text, toGenAIRole(c.Role)))
	}
	return res
}

func toGenAIRole(role string) genai.Role {
	if role == RoleModel {
		return genai.RoleModel
	}
	return genai.RoleUser
}
