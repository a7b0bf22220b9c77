// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package gemini

import (
	"fmt"

	"github.com/pkg/errors"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrNotConfigured is returned when no API key is configured.
	ErrNotConfigured = errors.New("Gemini API key not configured (set CHATBOT_GEMINI_API_KEY)")

	// ErrStreamConsumed is yielded when a Stream is iterated a second time.
	ErrStreamConsumed = errors.New("stream already consumed")
)

// AdapterInitError reports that no stream could be started: the credential is
// missing or the client could not be constructed.
type AdapterInitError struct {
	Err error
}

// Error implements the error interface.
func (e *AdapterInitError) Error() string {
	return e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *AdapterInitError) Unwrap() error {
	return e.Err
}

// StreamError represents an error that occurred during streaming,
// preserving any partial content already yielded before the error.
type StreamError struct {
	Partial string // Content yielded before error
	Err     error
}

// Error implements the error interface.
func (e *StreamError) Error() string {
	if e.Partial != "" {
		return fmt.Sprintf("stream error (partial content received: %d chars): %v", len(e.Partial), e.Err)
	}
	return fmt.Sprintf("stream error: %v", e.Err)
}

// Unwrap returns the underlying error.
func (e *StreamError) Unwrap() error {
	return e.Err
}
