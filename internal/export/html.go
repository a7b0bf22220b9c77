// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"bytes"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/EmpSwarup/inductive-ai-agent/internal/model"
	"github.com/EmpSwarup/inductive-ai-agent/internal/ui/styles"
)

// =============================================================================
// HTML EXPORTER
// =============================================================================

// HTMLExporter exports conversations to a standalone HTML page with embedded
// CSS. Message content is rendered as Markdown; raw HTML in messages is
// escaped.
type HTMLExporter struct {
	options *Options
	md      goldmark.Markdown
}

// NewHTMLExporter creates a new HTML exporter.
func NewHTMLExporter(opts *Options) *HTMLExporter {
	return &HTMLExporter{
		options: opts.withDefaults(),
		md:      goldmark.New(goldmark.WithExtensions(extension.GFM)),
	}
}

// Export converts a conversation to HTML.
func (e *HTMLExporter) Export(conv model.Conversation) ([]byte, error) {
	if err := validate(conv); err != nil {
		return nil, err
	}
	o := e.options
	theme := "dark"
	if o.Theme == styles.ModeLight {
		theme = "light"
	}

	var sb strings.Builder
	sb.WriteString("<!DOCTYPE html>\n<html lang=\"en\">\n<head>\n")
	sb.WriteString("    <meta charset=\"UTF-8\">\n")
	sb.WriteString("    <meta name=\"viewport\" content=\"width=device-width, initial-scale=1.0\">\n")
	sb.WriteString(fmt.Sprintf("    <title>%s</title>\n", html.EscapeString(conv.Title)))
	if conv.CreatedAt.Valid() {
		sb.WriteString(fmt.Sprintf("    <meta name=\"date\" content=\"%s\">\n", conv.CreatedAt.Time().Format(time.RFC3339)))
	}
	sb.WriteString(e.css())
	sb.WriteString("</head>\n")
	sb.WriteString(fmt.Sprintf("<body class=\"%s-theme\">\n    <div class=\"container\">\n", theme))

	if o.IncludeMetadata {
		sb.WriteString(e.renderHeader(conv))
	}

	sb.WriteString("        <main class=\"conversation\">\n")
	for _, msg := range conv.Messages {
		rendered, err := e.renderMessage(msg)
		if err != nil {
			return nil, err
		}
		sb.WriteString(rendered)
	}
	sb.WriteString("        </main>\n")

	sb.WriteString(fmt.Sprintf("        <footer class=\"footer\">Exported on %s</footer>\n",
		o.Now().Format("January 2, 2006 at 3:04 PM")))
	sb.WriteString("    </div>\n</body>\n</html>\n")

	return []byte(sb.String()), nil
}

// FileExtension returns the file extension for HTML.
func (e *HTMLExporter) FileExtension() string {
	return ".html"
}

// MimeType returns the MIME type for HTML.
func (e *HTMLExporter) MimeType() string {
	return "text/html"
}

// =============================================================================
// RENDERING FUNCTIONS
// =============================================================================

func (e *HTMLExporter) renderHeader(conv model.Conversation) string {
	o := e.options
	var sb strings.Builder
	sb.WriteString("        <header class=\"header\">\n")
	sb.WriteString(fmt.Sprintf("            <h1>%s</h1>\n", html.EscapeString(conv.Title)))
	sb.WriteString("            <div class=\"metadata\">\n")
	sb.WriteString(fmt.Sprintf("                <span><strong>Assistant:</strong> %s</span>\n", html.EscapeString(o.AssistantName)))
	if o.Model != "" {
		sb.WriteString(fmt.Sprintf("                <span><strong>Model:</strong> %s</span>\n", html.EscapeString(o.Model)))
	}
	sb.WriteString(fmt.Sprintf("                <span><strong>Created:</strong> %s</span>\n", formatTimestamp(conv.CreatedAt)))
	sb.WriteString(fmt.Sprintf("                <span><strong>Messages:</strong> %d</span>\n", len(conv.Messages)))
	sb.WriteString("            </div>\n        </header>\n")
	return sb.String()
}

func (e *HTMLExporter) renderMessage(msg model.Message) (string, error) {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("            <div class=\"message %s-message\">\n", html.EscapeString(msg.Role.String())))
	sb.WriteString("                <div class=\"message-header\">\n")
	sb.WriteString(fmt.Sprintf("                    <span class=\"role-label\">%s</span>\n", html.EscapeString(e.options.roleLabel(msg.Role))))
	if e.options.IncludeTimestamps {
		sb.WriteString(fmt.Sprintf("                    <span class=\"timestamp\">%s</span>\n", formatShortTimestamp(msg.CreatedAt)))
	}
	sb.WriteString("                </div>\n")

	sb.WriteString("                <div class=\"message-content\">\n")
	if msg.Role == model.RoleError {
		sb.WriteString("<p>" + html.EscapeString(msg.Content) + "</p>\n")
	} else {
		var buf bytes.Buffer
		if err := e.md.Convert([]byte(msg.Content), &buf); err != nil {
			return "", errors.Wrap(err, "render message")
		}
		sb.Write(buf.Bytes())
	}
	sb.WriteString("                </div>\n            </div>\n")
	return sb.String(), nil
}

// =============================================================================
// EMBEDDED CSS
// =============================================================================

// css returns the page styles. The assistant accent follows the avatar's
// happy gradient, errors follow its error gradient.
func (e *HTMLExporter) css() string {
	happy := styles.EmotionGradient(model.EmotionHappy)
	failed := styles.EmotionGradient(model.EmotionError)

	return fmt.Sprintf(`    <style>
        * { margin: 0; padding: 0; box-sizing: border-box; }
        :root {
            --font-sans: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, Arial, sans-serif;
            --font-mono: "SF Mono", Monaco, "Fira Code", monospace;
            --assistant-from: %s;
            --assistant-to: %s;
            --error-from: %s;
            --error-to: %s;
        }
        .dark-theme {
            --bg-primary: #1a1b26; --bg-secondary: #24283b; --bg-tertiary: #414868;
            --text-primary: #c0caf5; --text-secondary: #a9b1d6; --text-muted: #565f89;
            --user-bg: #1f2335; --code-bg: #1a1b26; --accent-user: #7aa2f7;
        }
        .light-theme {
            --bg-primary: #ffffff; --bg-secondary: #f7f8fa; --bg-tertiary: #e1e4e8;
            --text-primary: #24292e; --text-secondary: #586069; --text-muted: #6a737d;
            --user-bg: #f6f8fa; --code-bg: #f6f8fa; --accent-user: #0366d6;
        }
        body { font-family: var(--font-sans); line-height: 1.6; color: var(--text-primary); background: var(--bg-primary); padding: 20px; }
        .container { max-width: 900px; margin: 0 auto; background: var(--bg-secondary); border-radius: 12px; overflow: hidden; }
        .header { padding: 32px; background: var(--bg-tertiary); }
        .header h1 { font-size: 28px; margin-bottom: 12px; }
        .metadata { display: flex; flex-wrap: wrap; gap: 16px; font-size: 14px; color: var(--text-secondary); }
        .conversation { padding: 24px; display: flex; flex-direction: column; gap: 16px; }
        .message { padding: 16px 20px; border-radius: 10px; border-left: 4px solid transparent; }
        .user-message { background: var(--user-bg); border-left-color: var(--accent-user); }
        .assistant-message { border-image: linear-gradient(var(--assistant-from), var(--assistant-to)) 1; }
        .error-message { border-image: linear-gradient(var(--error-from), var(--error-to)) 1; color: var(--error-from); }
        .message-header { display: flex; justify-content: space-between; margin-bottom: 8px; font-size: 14px; }
        .role-label { font-weight: 700; }
        .assistant-message .role-label { color: var(--assistant-from); }
        .timestamp { color: var(--text-muted); }
        .message-content p { margin-bottom: 8px; }
        .message-content pre { background: var(--code-bg); padding: 12px; border-radius: 6px; overflow-x: auto; }
        .message-content code { font-family: var(--font-mono); font-size: 14px; }
        .footer { padding: 16px; text-align: center; font-size: 13px; color: var(--text-muted); }
    </style>
`, happy.From, happy.To, failed.From, failed.To)
}
