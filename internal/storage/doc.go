// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage persists the conversation list.
//
// The whole list is stored as one JSON array under a single key
// ("chatConversations" by default) in a pluggable key-value Backend.
//
// # Key Types
//
//   - Store: load, forced save, debounced save, flush
//   - Backend: key-value interface (FileBackend, SQLiteBackend, MemoryBackend)
//   - PersistenceError: failed read or write, logged and never fatal
//
// # Usage
//
//	backend, err := storage.OpenBackend("file", dataDir)
//	store := storage.NewStore(backend, storage.Options{Logger: log})
//	convs := store.Load(ctx)       // never fails; empty on bad data
//	store.SaveDebounced(convs)     // coalesced mid-stream writes
//	err = store.Save(ctx, convs)   // immediate, supersedes pending
//	err = store.Close(ctx)         // flushes pending write
//
// # Storage Location
//
// The file backend writes ~/.zara/data/chatConversations.json, the sqlite
// backend ~/.zara/data/zara.db.
package storage
