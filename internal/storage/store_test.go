// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EmpSwarup/inductive-ai-agent/internal/model"
)

func sampleConversations() []model.Conversation {
	base := time.Date(2025, 2, 1, 12, 0, 0, 0, time.UTC)
	return []model.Conversation{
		{
			ID:    "c2",
			Title: "Hello",
			Messages: []model.Message{
				{ID: "m1", Role: model.RoleUser, Content: "Hello", CreatedAt: model.NewTimestamp(base)},
				{ID: "m2", Role: model.RoleAssistant, Content: "Hi there.", CreatedAt: model.NewTimestamp(base.Add(time.Second))},
			},
			CreatedAt: model.NewTimestamp(base),
		},
		{
			ID:        "c1",
			Title:     model.DefaultTitle,
			Messages:  []model.Message{},
			CreatedAt: model.NewTimestamp(base.Add(-time.Hour)),
		},
	}
}

// =============================================================================
// LOAD TESTS
// =============================================================================

func TestStore_LoadMissingKey(t *testing.T) {
	store := NewStore(NewMemoryBackend(), Options{})

	convs := store.Load(context.Background())
	assert.NotNil(t, convs)
	assert.Empty(t, convs)
}

func TestStore_LoadMalformedFailsSoft(t *testing.T) {
	backend := NewMemoryBackend()
	require.NoError(t, backend.Set(context.Background(), DefaultKey, []byte(`{not json`)))

	store := NewStore(backend, Options{})
	convs := store.Load(context.Background())
	assert.NotNil(t, convs)
	assert.Empty(t, convs)
}

func TestStore_LoadToleratesBadDates(t *testing.T) {
	backend := NewMemoryBackend()
	raw := `[{"id":"a","title":"T","messages":[{"id":"m","role":"user","content":"x","createdAt":"garbage"}]}]`
	require.NoError(t, backend.Set(context.Background(), DefaultKey, []byte(raw)))

	convs := NewStore(backend, Options{}).Load(context.Background())
	require.Len(t, convs, 1)
	assert.False(t, convs[0].CreatedAt.Valid())
	assert.Equal(t, model.InvalidDate, convs[0].Messages[0].CreatedAt.String())
}

func TestStore_LoadNullMessages(t *testing.T) {
	backend := NewMemoryBackend()
	require.NoError(t, backend.Set(context.Background(), DefaultKey, []byte(`[{"id":"a","title":"T","messages":null}]`)))

	convs := NewStore(backend, Options{}).Load(context.Background())
	require.Len(t, convs, 1)
	assert.NotNil(t, convs[0].Messages)
}

// =============================================================================
// SAVE TESTS
// =============================================================================

func TestStore_SaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewStore(NewMemoryBackend(), Options{})

	want := sampleConversations()
	require.NoError(t, store.Save(ctx, want))

	got := store.Load(ctx)
	require.Len(t, got, 2)
	assert.Equal(t, "c2", got[0].ID)
	assert.Equal(t, "Hi there.", got[0].Messages[1].Content)
	assert.True(t, got[0].CreatedAt.Time().Equal(want[0].CreatedAt.Time()))
}

func TestStore_SaveIsIdempotent(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend()
	store := NewStore(backend, Options{})

	// Start from data with an unusual date format and a malformed date.
	raw := `[{"id":"a","title":"T","messages":[],"createdAt":"2024-12-01T10:00:00+02:00"},` +
		`{"id":"b","title":"U","messages":[{"id":"m","role":"user","content":"x","createdAt":"nope"}],"createdAt":1733047200000}]`
	require.NoError(t, backend.Set(ctx, DefaultKey, []byte(raw)))

	require.NoError(t, store.Save(ctx, store.Load(ctx)))
	first, err := backend.Get(ctx, DefaultKey)
	require.NoError(t, err)

	require.NoError(t, store.Save(ctx, store.Load(ctx)))
	second, err := backend.Get(ctx, DefaultKey)
	require.NoError(t, err)

	assert.Equal(t, string(first), string(second))
}

func TestStore_SaveEncodesEmptyMessagesAsArray(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend()
	store := NewStore(backend, Options{})

	require.NoError(t, store.Save(ctx, []model.Conversation{{ID: "x", Title: "T"}}))
	data, err := backend.Get(ctx, DefaultKey)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"messages":[]`)
	assert.Contains(t, string(data), `"createdAt":null`)
}

func TestStore_SaveCustomKey(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend()
	store := NewStore(backend, Options{Key: "other"})

	require.NoError(t, store.Save(ctx, sampleConversations()))
	_, err := backend.Get(ctx, "other")
	assert.NoError(t, err)
	_, err = backend.Get(ctx, DefaultKey)
	assert.ErrorIs(t, err, ErrKeyNotFound)
}

// =============================================================================
// DEBOUNCE TESTS
// =============================================================================

func TestStore_DebounceCoalesces(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend()
	store := NewStore(backend, Options{Debounce: 30 * time.Millisecond})

	convs := sampleConversations()
	for i := 0; i < 5; i++ {
		convs[0].Title = strings.Repeat("x", i+1)
		store.SaveDebounced(convs)
	}
	assert.True(t, store.Pending())
	assert.Equal(t, 0, backend.Writes())

	require.Eventually(t, func() bool { return backend.Writes() == 1 }, time.Second, 5*time.Millisecond)
	assert.False(t, store.Pending())

	got := store.Load(ctx)
	assert.Equal(t, "xxxxx", got[0].Title)

	// No further write arrives.
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, 1, backend.Writes())
}

func TestStore_DebouncedSnapshotIsolation(t *testing.T) {
	ctx := context.Background()
	store := NewStore(NewMemoryBackend(), Options{Debounce: time.Hour})

	convs := sampleConversations()
	store.SaveDebounced(convs)
	convs[0].Messages[0].Content = "mutated"

	require.NoError(t, store.Flush(ctx))
	assert.Equal(t, "Hello", store.Load(ctx)[0].Messages[0].Content)
}

func TestStore_ForcedSaveSupersedesPending(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend()
	store := NewStore(backend, Options{Debounce: 20 * time.Millisecond})

	stale := sampleConversations()
	stale[0].Title = "stale"
	store.SaveDebounced(stale)

	fresh := sampleConversations()
	fresh[0].Title = "fresh"
	require.NoError(t, store.Save(ctx, fresh))
	assert.False(t, store.Pending())

	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, 1, backend.Writes())
	assert.Equal(t, "fresh", store.Load(ctx)[0].Title)
}

func TestStore_CloseFlushesPending(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend()
	store := NewStore(backend, Options{Debounce: time.Hour})

	store.SaveDebounced(sampleConversations())
	require.NoError(t, store.Close(ctx))
	assert.Equal(t, 1, backend.Writes())

	// Scheduling after close is ignored.
	store.SaveDebounced(sampleConversations())
	assert.False(t, store.Pending())
}

func TestStore_FlushWithoutPending(t *testing.T) {
	backend := NewMemoryBackend()
	store := NewStore(backend, Options{})

	require.NoError(t, store.Flush(context.Background()))
	assert.Equal(t, 0, backend.Writes())
}

// =============================================================================
// BACKEND TESTS
// =============================================================================

func TestFileBackend(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "data")
	backend, err := NewFileBackend(dir)
	require.NoError(t, err)

	_, err = backend.Get(ctx, DefaultKey)
	assert.ErrorIs(t, err, ErrKeyNotFound)

	require.NoError(t, backend.Set(ctx, DefaultKey, []byte(`[]`)))
	data, err := backend.Get(ctx, DefaultKey)
	require.NoError(t, err)
	assert.Equal(t, `[]`, string(data))

	_, err = os.Stat(filepath.Join(dir, DefaultKey+".json"))
	assert.NoError(t, err)

	assert.ErrorIs(t, backend.Set(ctx, "../escape", []byte("x")), ErrInvalidKey)
}

func TestSQLiteBackend(t *testing.T) {
	ctx := context.Background()
	backend, err := NewSQLiteBackend(filepath.Join(t.TempDir(), SQLiteFileName))
	require.NoError(t, err)
	defer backend.Close()

	_, err = backend.Get(ctx, DefaultKey)
	assert.ErrorIs(t, err, ErrKeyNotFound)

	require.NoError(t, backend.Set(ctx, DefaultKey, []byte(`[1]`)))
	require.NoError(t, backend.Set(ctx, DefaultKey, []byte(`[2]`)))

	data, err := backend.Get(ctx, DefaultKey)
	require.NoError(t, err)
	assert.Equal(t, `[2]`, string(data))
}

func TestSQLiteBackend_StoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	backend, err := OpenBackend(BackendSQLite, t.TempDir())
	require.NoError(t, err)

	store := NewStore(backend, Options{})
	require.NoError(t, store.Save(ctx, sampleConversations()))
	got := store.Load(ctx)
	require.NoError(t, store.Close(ctx))

	require.Len(t, got, 2)
	assert.Equal(t, "Hello", got[0].Title)
}

func TestOpenBackend_Unknown(t *testing.T) {
	_, err := OpenBackend("redis", t.TempDir())
	assert.Error(t, err)
}

func TestPersistenceError(t *testing.T) {
	err := &PersistenceError{Op: "save", Key: DefaultKey, Err: ErrInvalidKey}
	assert.ErrorIs(t, err, ErrInvalidKey)
	assert.Contains(t, err.Error(), "save chatConversations")
}

// =============================================================================
// FORMAT TESTS
// =============================================================================

func TestFormatConversationList(t *testing.T) {
	assert.Equal(t, "No conversations found.", FormatConversationList(nil, ""))

	out := FormatConversationList(sampleConversations(), "c1")
	assert.Contains(t, out, "Hello")
	assert.Contains(t, out, "*2")
	assert.Contains(t, out, " 1")
}

func TestExportMarkdown(t *testing.T) {
	md := ExportMarkdown(sampleConversations()[0], "Zara")
	assert.Contains(t, md, "# Hello")
	assert.Contains(t, md, "**You**")
	assert.Contains(t, md, "**Zara**")
	assert.Contains(t, md, "Hi there.")
}
