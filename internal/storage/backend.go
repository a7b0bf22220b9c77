// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

// =============================================================================
// BACKEND INTERFACE
// =============================================================================

// Backend is a key-value store holding raw encoded values.
type Backend interface {
	// Get returns the value for key, or ErrKeyNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set replaces the value for key.
	Set(ctx context.Context, key string, value []byte) error

	// Close releases backend resources.
	Close() error
}

// Backend kinds accepted by OpenBackend.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// SQLiteFileName is the database file used by the sqlite backend.
const SQLiteFileName = "zara.db"

// OpenBackend opens a backend of the given kind rooted at dir.
func OpenBackend(kind, dir string) (Backend, error) {
	switch strings.ToLower(kind) {
	case BackendFile, "":
		return NewFileBackend(dir)
	case BackendSQLite:
		return NewSQLiteBackend(filepath.Join(dir, SQLiteFileName))
	case BackendMemory:
		return NewMemoryBackend(), nil
	default:
		return nil, errors.Errorf("unknown storage backend %q", kind)
	}
}

// validateKey rejects keys that cannot be used as a file name.
func validateKey(key string) error {
	if key == "" {
		return ErrInvalidKey
	}
	if strings.ContainsAny(key, `/\`) || key == "." || key == ".." {
		return errors.Wrapf(ErrInvalidKey, "%q", key)
	}
	return nil
}

// =============================================================================
// MEMORY BACKEND
// =============================================================================

// MemoryBackend keeps values in process memory. Used for ephemeral sessions
// and tests.
type MemoryBackend struct {
	mu     sync.RWMutex
	values map[string][]byte
	writes int
}

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{values: make(map[string][]byte)}
}

// Get implements Backend.
func (m *MemoryBackend) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.values[key]
	if !ok {
		return nil, ErrKeyNotFound
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

// Set implements Backend.
func (m *MemoryBackend) Set(_ context.Context, key string, value []byte) error {
	if err := validateKey(key); err != nil {
		return err
	}
	v := make([]byte, len(value))
	copy(v, value)

	m.mu.Lock()
	m.values[key] = v
	m.writes++
	m.mu.Unlock()
	return nil
}

// Writes returns the number of successful Set calls.
func (m *MemoryBackend) Writes() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.writes
}

// Close implements Backend.
func (m *MemoryBackend) Close() error {
	return nil
}
