// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/EmpSwarup/inductive-ai-agent/internal/util"
)

// FileBackend stores each key as a JSON file under a directory.
type FileBackend struct {
	dir string
}

// NewFileBackend creates a file backend rooted at dir, creating it if needed.
func NewFileBackend(dir string) (*FileBackend, error) {
	if dir == "" {
		return nil, errors.New("storage directory is empty")
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, errors.Wrap(err, "create storage directory")
	}
	return &FileBackend{dir: dir}, nil
}

// Dir returns the backing directory.
func (f *FileBackend) Dir() string {
	return f.dir
}

// Path returns the file path holding key.
func (f *FileBackend) Path(key string) string {
	return filepath.Join(f.dir, key+".json")
}

// Get implements Backend.
func (f *FileBackend) Get(ctx context.Context, key string) ([]byte, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(f.Path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrKeyNotFound
		}
		return nil, errors.Wrap(err, "read value")
	}
	return data, nil
}

// Set implements Backend.
func (f *FileBackend) Set(ctx context.Context, key string, value []byte) error {
	if err := validateKey(key); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	// RELIABILITY: Atomic write with fsync prevents a torn file on crash
	return util.AtomicWriteFile(f.Path(key), value, 0600)
}

// Close implements Backend.
func (f *FileBackend) Close() error {
	return nil
}
