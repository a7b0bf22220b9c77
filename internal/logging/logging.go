// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package logging builds the application's zerolog logger.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Log file rotation limits.
const (
	MaxSizeMB  = 10
	MaxBackups = 3
	MaxAgeDays = 28
)

// Options selects where and how to log.
type Options struct {
	// Level is one of debug, info, warn, error, fatal, disabled. Default: info
	Level string
	// Format is "text" (console) or "json". Default: text
	Format string
	// File, when set, receives a rotated plain-text copy of every entry.
	File string
	// Console writes to Stderr in addition to File.
	Console bool
	// WithCaller annotates entries with the calling file and line.
	WithCaller bool
	// Stderr overrides os.Stderr for console output.
	Stderr io.Writer
}

// Setup returns a logger and a closer for any open log file. With neither a
// file nor console output the logger discards everything.
func Setup(opts Options) (zerolog.Logger, io.Closer, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return zerolog.Nop(), nopCloser{}, err
	}

	stderr := opts.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}

	var writers []io.Writer
	if opts.Console {
		if strings.EqualFold(opts.Format, "json") {
			writers = append(writers, stderr)
		} else {
			writers = append(writers, zerolog.ConsoleWriter{Out: stderr})
		}
	}

	var closer io.Closer = nopCloser{}
	if opts.File != "" {
		file := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    MaxSizeMB,
			MaxBackups: MaxBackups,
			MaxAge:     MaxAgeDays,
		}
		closer = file
		if strings.EqualFold(opts.Format, "json") {
			writers = append(writers, file)
		} else {
			writers = append(writers, zerolog.ConsoleWriter{NoColor: true, Out: file})
		}
	}

	if len(writers) == 0 {
		return zerolog.Nop(), closer, nil
	}

	ctx := zerolog.New(io.MultiWriter(writers...)).Level(level).With().Timestamp()
	if opts.WithCaller {
		ctx = ctx.Caller()
	}
	return ctx.Logger(), closer, nil
}

// ParseLevel maps a level name to a zerolog level. Empty means info.
func ParseLevel(name string) (zerolog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "info":
		return zerolog.InfoLevel, nil
	case "debug":
		return zerolog.DebugLevel, nil
	case "warn", "warning":
		return zerolog.WarnLevel, nil
	case "error":
		return zerolog.ErrorLevel, nil
	case "fatal":
		return zerolog.FatalLevel, nil
	case "disabled", "off":
		return zerolog.Disabled, nil
	default:
		return zerolog.NoLevel, errors.Errorf("unknown log level %q", name)
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
