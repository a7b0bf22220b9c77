// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import "github.com/pkg/errors"

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrKeyNotFound is returned by a Backend when the key has no value.
	ErrKeyNotFound = errors.New("key not found")

	// ErrInvalidKey is returned for empty keys or keys with path separators.
	ErrInvalidKey = errors.New("invalid storage key")
)

// PersistenceError describes a failed read or write of the conversation list.
// Persistence errors are logged and never surfaced to the user.
type PersistenceError struct {
	Op  string // "load", "save", "decode", "encode"
	Key string
	Err error
}

// Error implements the error interface.
func (e *PersistenceError) Error() string {
	return "storage " + e.Op + " " + e.Key + ": " + e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *PersistenceError) Unwrap() error {
	return e.Err
}
