// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/EmpSwarup/inductive-ai-agent/internal/model"
	"github.com/EmpSwarup/inductive-ai-agent/internal/util"
)

// Supported format names.
const (
	FormatMarkdown = "markdown"
	FormatJSON     = "json"
	FormatHTML     = "html"
)

var (
	// ErrUnknownFormat is returned for an unsupported format name.
	ErrUnknownFormat = errors.New("unknown export format")

	// ErrEmptyConversation is returned when there is nothing to export.
	ErrEmptyConversation = errors.New("conversation has no messages")
)

// =============================================================================
// EXPORT INTERFACE
// =============================================================================

// Exporter defines the interface for conversation exporters.
type Exporter interface {
	// Export converts a conversation to the target format.
	Export(conv model.Conversation) ([]byte, error)

	// FileExtension returns the file extension including the dot.
	FileExtension() string

	// MimeType returns the MIME type of the exported format.
	MimeType() string
}

// =============================================================================
// EXPORT OPTIONS
// =============================================================================

// Options configures export behavior.
type Options struct {
	// OutputDir is where ExportToFile writes. Default: "."
	OutputDir string

	// AssistantName labels assistant messages. Default: "Assistant"
	AssistantName string

	// Model is recorded in the metadata header when set.
	Model string

	// IncludeMetadata adds a metadata header (title, dates, counts).
	IncludeMetadata bool

	// IncludeTimestamps adds per-message times.
	IncludeTimestamps bool

	// Theme for HTML export ("light" or "dark"). Default: "dark"
	Theme string

	// Now stamps the export. Default: time.Now
	Now func() time.Time
}

// DefaultOptions returns default export options.
func DefaultOptions() *Options {
	return &Options{
		OutputDir:         ".",
		AssistantName:     model.RoleAssistant.DisplayName(),
		IncludeMetadata:   true,
		IncludeTimestamps: true,
		Theme:             "dark",
		Now:               time.Now,
	}
}

func (o *Options) withDefaults() *Options {
	def := DefaultOptions()
	if o == nil {
		return def
	}
	out := *o
	if out.OutputDir == "" {
		out.OutputDir = def.OutputDir
	}
	if out.AssistantName == "" {
		out.AssistantName = def.AssistantName
	}
	if out.Theme == "" {
		out.Theme = def.Theme
	}
	if out.Now == nil {
		out.Now = def.Now
	}
	return &out
}

// roleLabel returns the speaker label for a message.
func (o *Options) roleLabel(role model.Role) string {
	if role == model.RoleAssistant {
		return o.AssistantName
	}
	return role.DisplayName()
}

// =============================================================================
// EXPORT FUNCTIONS
// =============================================================================

// New returns the exporter for a format name. "md" is accepted for markdown.
func New(format string, opts *Options) (Exporter, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case FormatMarkdown, "md", "":
		return NewMarkdownExporter(opts), nil
	case FormatJSON:
		return NewJSONExporter(opts), nil
	case FormatHTML, "htm":
		return NewHTMLExporter(opts), nil
	default:
		return nil, errors.Wrapf(ErrUnknownFormat, "%q (use markdown, json or html)", format)
	}
}

// ExportToFile exports conv into opts.OutputDir and returns the file path.
// The file name is derived from the title and the export time. Files are
// written with owner-only permissions.
func ExportToFile(conv model.Conversation, exporter Exporter, opts *Options) (string, error) {
	opts = opts.withDefaults()

	content, err := exporter.Export(conv)
	if err != nil {
		return "", errors.Wrap(err, "export failed")
	}

	filename := fmt.Sprintf("conversation_%s_%s%s",
		sanitizeFilename(conv.Title),
		opts.Now().Format("20060102_150405"),
		exporter.FileExtension(),
	)
	outputPath := filepath.Join(opts.OutputDir, filename)
	if err := util.AtomicWriteFile(outputPath, content, 0600); err != nil {
		return "", errors.Wrap(err, "write export")
	}
	return outputPath, nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// sanitizeFilename replaces characters that are invalid in file names and
// limits the length to 50 runes.
func sanitizeFilename(s string) string {
	s = util.TruncateRunes(strings.TrimSpace(s), 50)

	var sb strings.Builder
	for _, r := range s {
		switch {
		case strings.ContainsRune(`/\:*?"<>|`, r):
			sb.WriteRune('-')
		case r == ' ' || r == '\t' || r == '\n' || r == '\r':
			sb.WriteRune('_')
		case r < 32 || r == 127:
			sb.WriteRune('-')
		default:
			sb.WriteRune(r)
		}
	}
	if sb.Len() == 0 {
		return "conversation"
	}
	return sb.String()
}

func validate(conv model.Conversation) error {
	if len(conv.Messages) == 0 {
		return ErrEmptyConversation
	}
	return nil
}

func formatTimestamp(ts model.Timestamp) string {
	return ts.Format("2006-01-02 15:04:05")
}

func formatShortTimestamp(ts model.Timestamp) string {
	return ts.Format("15:04:05")
}
