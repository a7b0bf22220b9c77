// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"context"
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EmpSwarup/inductive-ai-agent/internal/chat"
	"github.com/EmpSwarup/inductive-ai-agent/internal/config"
	"github.com/EmpSwarup/inductive-ai-agent/internal/gemini"
	"github.com/EmpSwarup/inductive-ai-agent/internal/model"
	"github.com/EmpSwarup/inductive-ai-agent/internal/ui/styles"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

type fakeTransport struct {
	chunks []string
	err    error
}

func (f *fakeTransport) Stream(_ context.Context, _ string, _ []gemini.Content) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		for _, c := range f.chunks {
			if !yield(c, nil) {
				return
			}
		}
		if f.err != nil {
			yield("", f.err)
		}
	}
}

const testConfig = `[gemini]
api_key = %q

[storage]
backend = "file"
dir = %q
debounce_ms = 1

[chat]
save_throttle_ms = 1
reply_delay_base_ms = 1
reply_delay_per_char_ms = 1
reply_delay_max_ms = 2
happy_idle_ms = 1
error_delay_ms = 1
error_idle_ms = 1
pending_clear_ms = 1

[ui]
color = false
markdown = false
`

// setupConfig writes a config file into a temp dir and clears environment
// overrides. It returns the config path.
func setupConfig(t *testing.T, apiKey string) string {
	t.Helper()
	for _, env := range []string{config.EnvAPIKey, config.EnvModel, config.EnvDataDir, config.EnvStorageBackend} {
		t.Setenv(env, "")
	}
	t.Setenv("NO_COLOR", "1")

	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := fmt.Sprintf(testConfig, apiKey, filepath.Join(dir, "data"))
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

// run executes the command tree and returns its combined output.
func run(t *testing.T, cfgPath string, transport gemini.Transport, stdin string, args ...string) (string, error) {
	t.Helper()
	root := NewRootCommand(Options{
		Version:   "test",
		Transport: transport,
		Stdin:     strings.NewReader(stdin),
	})
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--config", cfgPath, "--log-level", "disabled"}, args...))
	err := root.Execute()
	return out.String(), err
}

func helloTransport() *fakeTransport {
	return &fakeTransport{chunks: []string{"Hello", "World", "!"}}
}

// =============================================================================
// ASK
// =============================================================================

func TestAskPrintsReply(t *testing.T) {
	cfg := setupConfig(t, "test-key")

	out, err := run(t, cfg, helloTransport(), "", "ask", "Say", "hi")
	require.NoError(t, err)
	assert.Equal(t, "Hello World!\n", out)

	out, err = run(t, cfg, nil, "", "conversations", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Say hi")
}

func TestAskReadsPipedInput(t *testing.T) {
	cfg := setupConfig(t, "test-key")

	_, err := run(t, cfg, helloTransport(), "  piped question \n", "ask")
	require.NoError(t, err)

	out, err := run(t, cfg, nil, "", "conversations", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "piped question")
}

func TestAskEmptyInput(t *testing.T) {
	cfg := setupConfig(t, "test-key")

	_, err := run(t, cfg, helloTransport(), "   \n", "ask")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty message")
}

func TestAskMissingCredential(t *testing.T) {
	cfg := setupConfig(t, "")

	_, err := run(t, cfg, helloTransport(), "", "ask", "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not configured")

	// The failed exchange is stored as an error message.
	out, err := run(t, cfg, nil, "", "conversations", "show", "1", "--raw")
	require.NoError(t, err)
	assert.Contains(t, out, "hello")
	assert.Contains(t, out, model.ErrorPrefix)
}

func TestAskStreamError(t *testing.T) {
	cfg := setupConfig(t, "test-key")
	transport := &fakeTransport{chunks: []string{"partial"}, err: errors.New("boom")}

	_, err := run(t, cfg, transport, "", "ask", "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestAskContinue(t *testing.T) {
	cfg := setupConfig(t, "test-key")

	_, err := run(t, cfg, helloTransport(), "", "ask", "first")
	require.NoError(t, err)
	_, err = run(t, cfg, helloTransport(), "", "ask", "--continue", "second")
	require.NoError(t, err)

	out, err := run(t, cfg, nil, "", "conversations", "show", "1", "--raw")
	require.NoError(t, err)
	assert.Contains(t, out, "# first")
	assert.Contains(t, out, "second")
}

// =============================================================================
// CONVERSATIONS
// =============================================================================

func TestConversationsDelete(t *testing.T) {
	cfg := setupConfig(t, "test-key")

	_, err := run(t, cfg, helloTransport(), "", "ask", "first question")
	require.NoError(t, err)
	_, err = run(t, cfg, helloTransport(), "", "ask", "second question")
	require.NoError(t, err)

	out, err := run(t, cfg, nil, "", "conversations", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "first question")
	assert.Contains(t, out, "second question")

	out, err = run(t, cfg, nil, "", "conversations", "delete", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "second question")

	out, err = run(t, cfg, nil, "", "conversations", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "first question")
	assert.NotContains(t, out, "second question")
}

func TestConversationsRenameAndShow(t *testing.T) {
	cfg := setupConfig(t, "test-key")

	_, err := run(t, cfg, helloTransport(), "", "ask", "hello there")
	require.NoError(t, err)

	_, err = run(t, cfg, nil, "", "conversations", "rename", "1", "Greetings")
	require.NoError(t, err)

	out, err := run(t, cfg, nil, "", "conversations", "show", "1", "--raw")
	require.NoError(t, err)
	assert.Contains(t, out, "# Greetings")
	assert.Contains(t, out, "hello there")
	assert.Contains(t, out, "**Zara**")
	assert.Contains(t, out, "Hello World!")
}

func TestConversationsUnknownReference(t *testing.T) {
	cfg := setupConfig(t, "test-key")

	_, err := run(t, cfg, nil, "", "conversations", "show", "5")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no conversation #5")

	_, err = run(t, cfg, nil, "", "conversations", "delete", "no-such-id")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestConversationsExport(t *testing.T) {
	cfg := setupConfig(t, "test-key")
	outDir := filepath.Join(t.TempDir(), "exports")

	_, err := run(t, cfg, helloTransport(), "", "ask", "export me")
	require.NoError(t, err)

	out, err := run(t, cfg, nil, "", "conversations", "export", "1", "--format", "json", "--output", outDir)
	require.NoError(t, err)
	assert.Contains(t, out, "Exported to")

	matches, err := filepath.Glob(filepath.Join(outDir, "conversation_export_me_*.json"))
	require.NoError(t, err)
	require.Len(t, matches, 1)

	data, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	assert.Contains(t, string(data), `"assistant": "Zara"`)
	assert.Contains(t, string(data), "Hello World!")

	_, err = run(t, cfg, nil, "", "conversations", "export", "1", "--format", "pdf", "--output", outDir)
	assert.Error(t, err)
}

func TestResolveConversation(t *testing.T) {
	a, b := model.NewConversation(), model.NewConversation()
	convs := []model.Conversation{a, b}

	tests := []struct {
		name    string
		ref     string
		wantID  string
		wantErr bool
	}{
		{"first by position", "1", a.ID, false},
		{"second by position", " 2 ", b.ID, false},
		{"by id", b.ID, b.ID, false},
		{"zero", "0", "", true},
		{"past end", "3", "", true},
		{"unknown id", "nope", "", true},
		{"empty", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conv, err := resolveConversation(convs, tt.ref)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, conv.ID)
		})
	}
}

// =============================================================================
// CONFIG
// =============================================================================

func TestConfigSetAndGet(t *testing.T) {
	cfg := setupConfig(t, "test-key")

	_, err := run(t, cfg, nil, "", "config", "set", "persona.name", "Nova")
	require.NoError(t, err)

	out, err := run(t, cfg, nil, "", "config", "get", "persona.name")
	require.NoError(t, err)
	assert.Equal(t, "Nova\n", out)

	// Unrelated settings survive the rewrite.
	out, err = run(t, cfg, nil, "", "config", "get", "chat.reply_delay_max_ms")
	require.NoError(t, err)
	assert.Equal(t, "2\n", out)
}

func TestConfigSetRejectsInvalid(t *testing.T) {
	cfg := setupConfig(t, "test-key")

	_, err := run(t, cfg, nil, "", "config", "set", "no.such_key", "x")
	assert.Error(t, err)

	_, err = run(t, cfg, nil, "", "config", "set", "ui.theme", "neon")
	assert.Error(t, err)

	out, err := run(t, cfg, nil, "", "config", "get", "ui.theme")
	require.NoError(t, err)
	assert.Equal(t, config.DefaultTheme+"\n", out)
}

func TestConfigShowMasksKey(t *testing.T) {
	cfg := setupConfig(t, "sk-secret-abcd")

	out, err := run(t, cfg, nil, "", "config", "show")
	require.NoError(t, err)
	assert.NotContains(t, out, "sk-secret")
	assert.Contains(t, out, "abcd")

	out, err = run(t, cfg, nil, "", "config", "get", "gemini.api_key")
	require.NoError(t, err)
	assert.NotContains(t, out, "sk-secret")
}

func TestConfigPathAndKeys(t *testing.T) {
	cfg := setupConfig(t, "test-key")

	out, err := run(t, cfg, nil, "", "config", "path")
	require.NoError(t, err)
	assert.Equal(t, cfg+"\n", out)

	out, err = run(t, cfg, nil, "", "config", "keys")
	require.NoError(t, err)
	assert.Contains(t, out, "gemini.api_key")
	assert.Contains(t, out, "chat.happy_idle_ms")
}

// =============================================================================
// INTERACTIVE
// =============================================================================

func TestREPLSession(t *testing.T) {
	cfg := setupConfig(t, "test-key")

	input := strings.Join([]string{
		"hello",
		"/rename My chat",
		"/list",
		"/bogus",
		"/new",
		"/quit",
		"never sent",
	}, "\n")

	out, err := run(t, cfg, helloTransport(), input)
	require.NoError(t, err)

	assert.Contains(t, out, "Hello! I'm Zara")
	assert.Contains(t, out, "Zara: Hello World!")
	assert.Contains(t, out, "Renamed to My chat")
	assert.Contains(t, out, "My chat")
	assert.Contains(t, out, "unknown command /bogus")

	list, err := run(t, cfg, nil, "", "conversations", "list")
	require.NoError(t, err)
	assert.Contains(t, list, "My chat")
	assert.NotContains(t, list, "never sent")
}

func TestREPLShowsErrors(t *testing.T) {
	cfg := setupConfig(t, "")

	out, err := run(t, cfg, helloTransport(), "hello\n")
	require.NoError(t, err)
	assert.Contains(t, out, "not configured")
	assert.Contains(t, out, model.ErrorPrefix)
}

func TestREPLSwitchAndDelete(t *testing.T) {
	cfg := setupConfig(t, "test-key")

	_, err := run(t, cfg, helloTransport(), "", "ask", "older")
	require.NoError(t, err)
	_, err = run(t, cfg, helloTransport(), "", "ask", "newer")
	require.NoError(t, err)

	out, err := run(t, cfg, helloTransport(), "/switch 2\n/history\n/delete\n/switch 9\n")
	require.NoError(t, err)
	assert.Contains(t, out, "# older")
	assert.Contains(t, out, "Conversation deleted")
	assert.Contains(t, out, "no conversation #9")

	list, err := run(t, cfg, nil, "", "conversations", "list")
	require.NoError(t, err)
	assert.Contains(t, list, "newer")
	assert.NotContains(t, list, "older")
}

// =============================================================================
// STREAM PRINTER
// =============================================================================

func TestStreamPrinterWritesDeltas(t *testing.T) {
	var buf bytes.Buffer
	p := newStreamPrinter(&buf, styles.NewTheme(&buf, styles.ModeDark, false), "Zara", false)

	msg := model.NewAssistantPlaceholder()
	state := func(content string, loading bool) chat.State {
		return chat.State{
			Messages:         []model.Message{model.NewUserMessage("hi"), msg.WithContent(content)},
			IsLoading:        loading,
			PendingMessageID: msg.ID,
			StreamingStarted: content != "",
		}
	}

	// Snapshots before start are ignored.
	p.update(state("ignored", true))
	assert.Empty(t, buf.String())

	p.start("Zara")
	p.update(state("", true))
	p.update(state("Hel", true))
	p.update(state("Hello\nwor", true))
	p.update(state("Hello\nwor", true))

	got, ok := p.finish(state("Hello\nworld", false))
	require.True(t, ok)
	assert.Equal(t, "Hello\nworld", got.Content)
	assert.Equal(t, "Hello\nworld\n", buf.String())

	// Disarmed after finish.
	p.update(state("Hello\nworld and more", true))
	assert.Equal(t, "Hello\nworld\n", buf.String())
}

func TestStreamPrinterDecorates(t *testing.T) {
	var buf bytes.Buffer
	p := newStreamPrinter(&buf, styles.NewTheme(&buf, styles.ModeDark, false), "Zara", true)

	msg := model.NewAssistantPlaceholder()
	loading := chat.State{
		Messages:         []model.Message{msg},
		IsLoading:        true,
		PendingMessageID: msg.ID,
	}

	p.start("Nova")
	p.update(loading)
	assert.Contains(t, buf.String(), chat.StatusThinking)

	final := loading
	final.IsLoading = false
	final.Messages = []model.Message{msg.AsError("boom")}
	got, ok := p.finish(final)
	require.True(t, ok)
	assert.Equal(t, model.RoleError, got.Role)
	assert.NotContains(t, buf.String(), "Nova:")
}
