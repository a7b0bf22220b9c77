// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"encoding/json"
	"time"

	"github.com/pkg/errors"

	"github.com/EmpSwarup/inductive-ai-agent/internal/model"
)

// =============================================================================
// JSON EXPORTER
// =============================================================================

// JSONExporter exports a conversation in its persisted JSON shape wrapped
// with export metadata. Timestamp options are ignored: the full record is
// always written so the file can be read back.
type JSONExporter struct {
	options *Options
}

// jsonDocument is the exported document.
type jsonDocument struct {
	Assistant    string             `json:"assistant"`
	Model        string             `json:"model,omitempty"`
	ExportedAt   time.Time          `json:"exportedAt"`
	Conversation model.Conversation `json:"conversation"`
}

// NewJSONExporter creates a new JSON exporter.
func NewJSONExporter(opts *Options) *JSONExporter {
	return &JSONExporter{options: opts.withDefaults()}
}

// Export converts a conversation to indented JSON.
func (e *JSONExporter) Export(conv model.Conversation) ([]byte, error) {
	if err := validate(conv); err != nil {
		return nil, err
	}
	doc := jsonDocument{
		Assistant:    e.options.AssistantName,
		Model:        e.options.Model,
		ExportedAt:   e.options.Now().UTC(),
		Conversation: conv,
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "encode conversation")
	}
	return append(data, '\n'), nil
}

// FileExtension returns the file extension for JSON.
func (e *JSONExporter) FileExtension() string {
	return ".json"
}

// MimeType returns the MIME type for JSON.
func (e *JSONExporter) MimeType() string {
	return "application/json"
}
