// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"bytes"
	"encoding/json"
	"math"
	"time"
)

// InvalidDate is what an unparseable timestamp renders as.
const InvalidDate = "Invalid Date"

// timestampLayout matches the ISO form produced by browsers (millisecond
// precision, always UTC) so persisted collections round-trip byte for byte.
const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

// maxEpochMillis bounds epoch values the same way browser dates do.
const maxEpochMillis = 8.64e15

// Timestamp is a point in time that tolerates malformed persisted values.
//
// A missing, null or unparseable value decodes to an invalid Timestamp instead
// of failing the whole document. Invalid timestamps encode as null.
type Timestamp struct {
	t     time.Time
	valid bool
}

// NewTimestamp wraps t, truncated to millisecond precision. Times outside
// years 0-9999 cannot be written back in the persisted form and are invalid.
func NewTimestamp(t time.Time) Timestamp {
	t = t.UTC().Truncate(time.Millisecond)
	if y := t.Year(); y < 0 || y > 9999 {
		return Timestamp{}
	}
	return Timestamp{t: t, valid: true}
}

// Time returns the wrapped time. It is the zero time when invalid.
func (ts Timestamp) Time() time.Time {
	return ts.t
}

// Valid reports whether the timestamp holds a real time.
func (ts Timestamp) Valid() bool {
	return ts.valid
}

// After reports whether ts is later than other. Invalid timestamps sort
// before every valid one.
func (ts Timestamp) After(other Timestamp) bool {
	switch {
	case ts.valid && !other.valid:
		return true
	case !ts.valid:
		return false
	default:
		return ts.t.After(other.t)
	}
}

// String renders the timestamp for display.
func (ts Timestamp) String() string {
	if !ts.valid {
		return InvalidDate
	}
	return ts.t.Format(timestampLayout)
}

// Format formats a valid timestamp with layout, or returns InvalidDate.
func (ts Timestamp) Format(layout string) string {
	if !ts.valid {
		return InvalidDate
	}
	return ts.t.Local().Format(layout)
}

// MarshalJSON implements json.Marshaler.
func (ts Timestamp) MarshalJSON() ([]byte, error) {
	if !ts.valid {
		return []byte("null"), nil
	}
	return json.Marshal(ts.t.UTC().Format(timestampLayout))
}

// UnmarshalJSON implements json.Unmarshaler. It never returns an error for a
// bad value; the timestamp is left invalid instead.
func (ts *Timestamp) UnmarshalJSON(data []byte) error {
	*ts = Timestamp{}

	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}

	// Epoch milliseconds.
	var ms float64
	if err := json.Unmarshal(data, &ms); err == nil {
		if math.Abs(ms) <= maxEpochMillis {
			*ts = NewTimestamp(time.UnixMilli(int64(ms)))
		}
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return nil
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			*ts = NewTimestamp(t)
			return nil
		}
	}
	return nil
}
