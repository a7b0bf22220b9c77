// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package gemini

import (
	"context"
	"iter"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EmpSwarup/inductive-ai-agent/internal/model"
)

// fakeTransport replays fixed chunks and records the request.
type fakeTransport struct {
	chunks   []string
	err      error
	model    string
	contents []Content
}

func (f *fakeTransport) Stream(_ context.Context, model string, contents []Content) iter.Seq2[string, error] {
	f.model = model
	f.contents = contents
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

func newTestClient(ft *fakeTransport) *Client {
	return NewClient(Config{
		APIKey:    "test-key",
		Persona:   model.DefaultPersona(),
		Transport: ft,
	})
}

// =============================================================================
// CLIENT TESTS
// =============================================================================

func TestGenerate_MissingKey(t *testing.T) {
	client := NewClient(Config{Persona: model.DefaultPersona()})
	assert.False(t, client.Configured())

	stream, err := client.Generate(context.Background(), []Turn{{Role: model.RoleUser, Text: "hi"}})
	assert.Nil(t, stream)
	require.Error(t, err)

	var initErr *AdapterInitError
	assert.True(t, errors.As(err, &initErr))
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestGenerate_RepairsFragments(t *testing.T) {
	ft := &fakeTransport{chunks: []string{"Hello", "World", "! How", " are you?"}}
	client := newTestClient(ft)

	stream, err := client.Generate(context.Background(), []Turn{{Role: model.RoleUser, Text: "hi"}})
	require.NoError(t, err)

	var frags []string
	for frag, err := range stream.Fragments() {
		require.NoError(t, err)
		frags = append(frags, frag)
	}
	assert.Equal(t, []string{"Hello World! How are ", "you?"}, frags)
	assert.Equal(t, "Hello World! How are you?", strings.Join(frags, ""))
	assert.Equal(t, DefaultModel, ft.model)
}

func TestGenerate_PersonaInjection(t *testing.T) {
	ft := &fakeTransport{chunks: []string{"ok"}}
	client := newTestClient(ft)

	history := []Turn{
		{Role: model.RoleUser, Text: "first"},
		{Role: model.RoleAssistant, Text: "answer"},
		{Role: model.RoleError, Text: "Error: boom"},
		{Role: model.RoleUser, Text: "second"},
	}
	stream, err := client.Generate(context.Background(), history)
	require.NoError(t, err)
	_, err = stream.Collect()
	require.NoError(t, err)

	require.Len(t, ft.contents, 3)
	assert.Equal(t, RoleUser, ft.contents[0].Role)
	assert.True(t, strings.HasPrefix(ft.contents[0].Text, model.DefaultPersona().Personality))
	assert.Contains(t, ft.contents[0].Text, `without adding "Zara:"`)
	assert.True(t, strings.HasSuffix(ft.contents[0].Text, "\n\nUser: first"))
	assert.Equal(t, Content{Role: RoleModel, Text: "answer"}, ft.contents[1])
	assert.Equal(t, Content{Role: RoleUser, Text: "second"}, ft.contents[2])

	// Caller history is untouched.
	assert.Equal(t, "first", history[0].Text)
}

func TestBuildContents_FirstTurnNotUser(t *testing.T) {
	contents := BuildContents([]Turn{
		{Role: model.RoleAssistant, Text: "greeting"},
		{Role: model.RoleUser, Text: "hi"},
	}, model.DefaultPersona())

	require.Len(t, contents, 2)
	assert.Equal(t, "greeting", contents[0].Text)
	assert.Equal(t, "hi", contents[1].Text)
}

func TestSetPersona(t *testing.T) {
	ft := &fakeTransport{chunks: []string{"Nova: Greetings human"}}
	client := newTestClient(ft)
	client.SetPersona(model.Persona{Name: "Nova", Personality: "You are Nova."})

	stream, err := client.Generate(context.Background(), []Turn{{Role: model.RoleUser, Text: "hi"}})
	require.NoError(t, err)
	text, err := stream.Collect()
	require.NoError(t, err)

	assert.Equal(t, "Greetings human", text)
	assert.True(t, strings.HasPrefix(ft.contents[0].Text, "You are Nova."))
}

func TestGenerate_StreamError(t *testing.T) {
	cause := errors.New("connection reset")
	ft := &fakeTransport{chunks: []string{"Hello there, friend"}, err: cause}
	client := newTestClient(ft)

	stream, err := client.Generate(context.Background(), []Turn{{Role: model.RoleUser, Text: "hi"}})
	require.NoError(t, err)

	text, err := stream.Collect()
	assert.Equal(t, "Hello there, ", text)
	require.Error(t, err)

	var streamErr *StreamError
	require.True(t, errors.As(err, &streamErr))
	assert.Equal(t, "Hello there, ", streamErr.Partial)
	assert.ErrorIs(t, err, cause)
}

func TestToGenAIContents(t *testing.T) {
	contents := toGenAIContents([]Content{
		{Role: RoleUser, Text: "hi"},
		{Role: RoleModel, Text: "hello"},
	})

	require.Len(t, contents, 2)
	assert.Equal(t, "user", contents[0].Role)
	assert.Equal(t, "model", contents[1].Role)
	require.Len(t, contents[1].Parts, 1)
	assert.Equal(t, "hello", contents[1].Parts[0].Text)
}

func TestStream_SingleUse(t *testing.T) {
	stream := NewStream(func(yield func(string, error) bool) {
		yield("a", nil)
	})

	text, err := stream.Collect()
	require.NoError(t, err)
	assert.Equal(t, "a", text)

	_, err = stream.Collect()
	assert.ErrorIs(t, err, ErrStreamConsumed)
}

func TestStream_EarlyBreak(t *testing.T) {
	ft := &fakeTransport{chunks: []string{"0123456789", "abcdefghij", "klmnopqrst"}}
	client := newTestClient(ft)

	stream, err := client.Generate(context.Background(), []Turn{{Role: model.RoleUser, Text: "hi"}})
	require.NoError(t, err)

	count := 0
	for range stream.Fragments() {
		count++
		break
	}
	assert.Equal(t, 1, count)
}

func TestHistoryFromMessages(t *testing.T) {
	msgs := []model.Message{
		model.NewUserMessage("hi"),
		model.NewAssistantPlaceholder().WithContent("hello"),
		model.NewAssistantPlaceholder().AsError("boom"),
		model.NewMessage(model.RoleSystem, "note"),
	}
	turns := HistoryFromMessages(msgs)
	assert.Equal(t, []Turn{
		{Role: model.RoleUser, Text: "hi"},
		{Role: model.RoleAssistant, Text: "hello"},
	}, turns)
}

// =============================================================================
// REPAIR TESTS
// =============================================================================

func TestRepairer_Rules(t *testing.T) {
	r := NewRepairer("Zara", DefaultBatchSize)

	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "persona prefix", in: "Zara: Hello", want: "Hello"},
		{name: "generic prefix", in: "assistant:Hello", want: "Hello"},
		{name: "prefix after newline", in: "Hi\nAI: there", want: "Hi\nthere"},
		{name: "case boundary", in: "helloWorld", want: "hello World"},
		{name: "punctuation", in: "Hi.How are you?Fine", want: "Hi. How are you? Fine"},
		{name: "joined a", in: "Anda cat", want: "And a cat"},
		{name: "joined the", in: "Butthe dog", want: "But the dog"},
		{name: "untouched", in: "Plain text.", want: "Plain text."},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, r.Repair(tc.in))
		})
	}
}

func TestRepairer_BatchesBelowThreshold(t *testing.T) {
	r := NewRepairer("Zara", DefaultBatchSize)

	_, ok := r.Feed("Hello")
	assert.False(t, ok, "5 characters must stay buffered")

	out, ok := r.Feed(" World")
	require.True(t, ok)
	assert.Equal(t, "Hello ", out, "the word in progress is held back")

	out, ok = r.Flush()
	require.True(t, ok)
	assert.Equal(t, "World", out)

	out, ok = r.Flush()
	assert.False(t, ok)
	assert.Empty(t, out)
}

// feedAll streams frags through r and returns everything it emitted.
func feedAll(r *Repairer, frags []string) string {
	var emitted strings.Builder
	for _, f := range frags {
		if out, ok := r.Feed(f); ok {
			emitted.WriteString(out)
		}
	}
	if out, ok := r.Flush(); ok {
		emitted.WriteString(out)
	}
	return emitted.String()
}

func TestRepairer_BatchBoundaryInsideRule(t *testing.T) {
	tests := []struct {
		name  string
		frags []string
		want  string
	}{
		{name: "joined word split", frags: []string{"We went Fora", "ge in the woods."}, want: "We went Forage in the woods."},
		{name: "joined a split", frags: []string{"Cats and dogs. Fora", " change, try this."}, want: "Cats and dogs. For a change, try this."},
		{name: "line prefix split", frags: []string{"Hello. ", "\nAI", ": next line here ok"}, want: "Hello. \nnext line here ok"},
		{name: "lead prefix split", frags: []string{"Zar", "a: Good morning to you"}, want: "Good morning to you"},
		{name: "case boundary split", frags: []string{"it was late", "Then we left home"}, want: "it was late Then we left home"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := NewRepairer("Zara", DefaultBatchSize)
			assert.Equal(t, tc.want, r.Repair(strings.Join(tc.frags, "")))
			assert.Equal(t, tc.want, feedAll(NewRepairer("Zara", DefaultBatchSize), tc.frags))
		})
	}
}

func TestRepairer_NameWithSpace(t *testing.T) {
	frags := []string{"Intro line here\nZara ", "Bot: the rest of it follows"}
	r := NewRepairer("Zara Bot", DefaultBatchSize)

	assert.Equal(t, "Intro line here\nthe rest of it follows", feedAll(r, frags))
}

func TestRepairer_MonotonicSuffixes(t *testing.T) {
	frags := []string{"Sure", "thing.", "Thewe", "ather", "isnice", "Today", ",right", "?Yes", "."}
	r := NewRepairer("Zara", DefaultBatchSize)

	var emitted strings.Builder
	prev := ""
	for _, f := range frags {
		if out, ok := r.Feed(f); ok {
			emitted.WriteString(out)
			assert.True(t, strings.HasPrefix(emitted.String(), prev))
			prev = emitted.String()
		}
	}
	if out, ok := r.Flush(); ok {
		emitted.WriteString(out)
	}

	assert.Equal(t, r.Repair(strings.Join(frags, "")), emitted.String())
}

func TestRepairer_MultibyteSafe(t *testing.T) {
	r := NewRepairer("Zara", 3)
	assert.Equal(t, "héllo wörld 日本語", feedAll(r, []string{"héllo ", "wörld ", "日本語"}))
}
