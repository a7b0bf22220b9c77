// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/EmpSwarup/inductive-ai-agent/internal/model"
)

var fixedNow = func() time.Time { return time.Date(2025, 3, 1, 12, 30, 0, 0, time.UTC) }

func testConversation() model.Conversation {
	conv := model.NewConversation()
	conv.Title = "Goroutines 101"
	conv.Messages = []model.Message{
		model.NewUserMessage("What is a goroutine?"),
		model.NewAssistantPlaceholder().WithContent("A **lightweight** thread.\n\n```go\ngo f()\n```"),
		model.NewAssistantPlaceholder().AsError("quota exceeded"),
	}
	return conv
}

func testOptions() *Options {
	return &Options{
		AssistantName:     "Zara",
		Model:             "gemini-2.0-flash",
		IncludeMetadata:   true,
		IncludeTimestamps: true,
		Now:               fixedNow,
	}
}

func TestNewFormats(t *testing.T) {
	tests := []struct {
		format string
		ext    string
	}{
		{"markdown", ".md"},
		{"md", ".md"},
		{"", ".md"},
		{"JSON", ".json"},
		{"html", ".html"},
	}
	for _, tt := range tests {
		exp, err := New(tt.format, nil)
		if err != nil {
			t.Fatalf("New(%q): %v", tt.format, err)
		}
		if got := exp.FileExtension(); got != tt.ext {
			t.Errorf("New(%q).FileExtension() = %q, want %q", tt.format, got, tt.ext)
		}
	}

	if _, err := New("pdf", nil); !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("New(pdf) error = %v, want ErrUnknownFormat", err)
	}
}

func TestEmptyConversationRejected(t *testing.T) {
	for _, format := range []string{FormatMarkdown, FormatJSON, FormatHTML} {
		exp, _ := New(format, nil)
		if _, err := exp.Export(model.NewConversation()); !errors.Is(err, ErrEmptyConversation) {
			t.Errorf("%s: error = %v, want ErrEmptyConversation", format, err)
		}
	}
}

func TestMarkdownExport(t *testing.T) {
	out, err := NewMarkdownExporter(testOptions()).Export(testConversation())
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	md := string(out)

	for _, want := range []string{
		"title: Goroutines 101\n",
		"model: gemini-2.0-flash\n",
		"messages: 3\n",
		"# Goroutines 101\n",
		"### You <sub>",
		"### Zara <sub>",
		"A **lightweight** thread.",
		"> Error: quota exceeded",
		"*Exported on March 1, 2025 at 12:30 PM*",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q", want)
		}
	}
}

func TestMarkdownWithoutMetadata(t *testing.T) {
	opts := testOptions()
	opts.IncludeMetadata = false
	opts.IncludeTimestamps = false

	out, err := NewMarkdownExporter(opts).Export(testConversation())
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	md := string(out)
	if strings.HasPrefix(md, "---") {
		t.Error("frontmatter written without metadata")
	}
	if !strings.Contains(md, "### Zara\n") {
		t.Error("label without timestamp missing")
	}
}

func TestMarkdownEscapesTitle(t *testing.T) {
	conv := testConversation()
	conv.Title = "Test\nInjection: *bold* #tag"

	out, err := NewMarkdownExporter(testOptions()).Export(conv)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	md := string(out)
	if !strings.Contains(md, `title: "Test\nInjection: *bold* #tag"`) {
		t.Error("frontmatter title not quoted and escaped")
	}
	if strings.Contains(md, "\nInjection: *bold*") {
		t.Error("newline in title leaked into the document")
	}
	if !strings.Contains(md, `# Test Injection: \*bold\* \#tag`) {
		t.Error("heading not escaped")
	}
}

func TestJSONExport(t *testing.T) {
	conv := testConversation()
	out, err := NewJSONExporter(testOptions()).Export(conv)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}

	var doc struct {
		Assistant    string             `json:"assistant"`
		Model        string             `json:"model"`
		Conversation model.Conversation `json:"conversation"`
	}
	if err := json.Unmarshal(out, &doc); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if doc.Assistant != "Zara" || doc.Model != "gemini-2.0-flash" {
		t.Errorf("metadata = %q/%q", doc.Assistant, doc.Model)
	}
	if doc.Conversation.ID != conv.ID || len(doc.Conversation.Messages) != 3 {
		t.Errorf("conversation not preserved: %+v", doc.Conversation)
	}
	if doc.Conversation.Messages[2].Role != model.RoleError {
		t.Errorf("role = %q, want error", doc.Conversation.Messages[2].Role)
	}
}

func TestHTMLExport(t *testing.T) {
	out, err := NewHTMLExporter(testOptions()).Export(testConversation())
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	page := string(out)

	for _, want := range []string{
		"<title>Goroutines 101</title>",
		`<body class="dark-theme">`,
		"<strong>lightweight</strong>",
		"<pre><code class=\"language-go\">",
		"error-message",
		"Error: quota exceeded",
		`<span class="role-label">Zara</span>`,
		"#8B5CF6",
	} {
		if !strings.Contains(page, want) {
			t.Errorf("html missing %q", want)
		}
	}
}

func TestHTMLEscapesContent(t *testing.T) {
	conv := testConversation()
	conv.Title = "<b>title</b>"
	conv.Messages = []model.Message{
		model.NewUserMessage("<script>alert('xss')</script>"),
		model.NewAssistantPlaceholder().AsError("<img src=x onerror=alert(1)>"),
	}

	opts := testOptions()
	opts.Theme = "light"
	out, err := NewHTMLExporter(opts).Export(conv)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	page := string(out)

	if strings.Contains(page, "<script>alert") {
		t.Error("script tag not escaped")
	}
	if strings.Contains(page, "<img src=x") {
		t.Error("error content not escaped")
	}
	if !strings.Contains(page, "&lt;b&gt;title&lt;/b&gt;") {
		t.Error("title not escaped")
	}
	if !strings.Contains(page, `<body class="light-theme">`) {
		t.Error("light theme not applied")
	}
}

func TestExportToFile(t *testing.T) {
	dir := t.TempDir()
	opts := testOptions()
	opts.OutputDir = filepath.Join(dir, "exports")

	path, err := ExportToFile(testConversation(), NewMarkdownExporter(opts), opts)
	if err != nil {
		t.Fatalf("ExportToFile: %v", err)
	}

	want := filepath.Join(opts.OutputDir, "conversation_Goroutines_101_20250301_123000.md")
	if path != want {
		t.Errorf("path = %q, want %q", path, want)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("mode = %v, want 0600", info.Mode().Perm())
	}
}

func TestExportToFileEmpty(t *testing.T) {
	opts := testOptions()
	opts.OutputDir = t.TempDir()
	if _, err := ExportToFile(model.NewConversation(), NewJSONExporter(opts), opts); !errors.Is(err, ErrEmptyConversation) {
		t.Errorf("error = %v, want ErrEmptyConversation", err)
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Simple", "Simple"},
		{"a/b\\c:d", "a-b-c-d"},
		{"with spaces\there", "with_spaces_here"},
		{"   ", "conversation"},
		{"", "conversation"},
		{"bell\x07", "bell-"},
	}
	for _, tt := range tests {
		if got := sanitizeFilename(tt.in); got != tt.want {
			t.Errorf("sanitizeFilename(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}

	long := strings.Repeat("x", 80)
	if got := []rune(sanitizeFilename(long)); len(got) != 50 {
		t.Errorf("long name length = %d, want 50", len(got))
	}
}
