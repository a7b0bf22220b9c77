// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// root.go - Root command and global flags.

package cli

import (
	"context"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/EmpSwarup/inductive-ai-agent/internal/config"
	"github.com/EmpSwarup/inductive-ai-agent/internal/gemini"
)

// shutdownTimeout bounds the final flush on exit.
const shutdownTimeout = 5 * time.Second

// Options configures the command tree.
type Options struct {
	// Version is printed by --version.
	Version string

	// Transport replaces the Gemini transport. Nil uses the genai SDK.
	Transport gemini.Transport

	// Stdin overrides os.Stdin.
	Stdin io.Reader
}

// globalFlags holds the persistent flags shared by every command.
type globalFlags struct {
	configPath string
	logLevel   string
	logFormat  string
	logFile    string
	noColor    bool
	model      string
	backend    string
	dataDir    string
}

// apply overrides configuration values with explicitly set flags.
func (f *globalFlags) apply(cfg *config.Config) {
	if f.noColor {
		cfg.UI.Color = false
	}
	if f.model != "" {
		cfg.Gemini.Model = f.model
	}
	if f.backend != "" {
		cfg.Storage.Backend = strings.ToLower(f.backend)
	}
	if f.dataDir != "" {
		cfg.Storage.Dir = f.dataDir
	}
}

// NewRootCommand builds the command tree. Without a subcommand the
// interactive chat starts.
func NewRootCommand(opts Options) *cobra.Command {
	flags := &globalFlags{}
	stdin := opts.Stdin
	if stdin == nil {
		stdin = os.Stdin
	}

	root := &cobra.Command{
		Use:   "zara",
		Short: "Chat with Zara, a Gemini-powered persona",
		Long: `zara is a terminal chat client for Google's Gemini models.

Replies stream in as they are generated. Conversations are kept in the data
directory and restored on the next start.

Set CHATBOT_GEMINI_API_KEY, or gemini.api_key in ~/.zara/config.toml.`,
		Version:       opts.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runREPL(cmd, flags, opts.Transport, stdin)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", "", "config file (default ~/.zara/config.toml)")
	pf.StringVar(&flags.logLevel, "log-level", "warn", "log level (debug, info, warn, error, disabled)")
	pf.StringVar(&flags.logFormat, "log-format", "text", "log format (text, json)")
	pf.StringVar(&flags.logFile, "log-file", "", "write logs to this file")
	pf.BoolVar(&flags.noColor, "no-color", false, "disable colored output")
	pf.StringVar(&flags.model, "model", "", "Gemini model (overrides config)")
	pf.StringVar(&flags.backend, "backend", "", "storage backend: file, sqlite, memory (overrides config)")
	pf.StringVar(&flags.dataDir, "data-dir", "", "data directory (overrides config)")

	root.AddCommand(
		newAskCommand(flags, opts.Transport, stdin),
		newConversationsCommand(flags),
		newConfigCommand(flags),
	)
	return root
}

// Execute runs the command tree with os.Args.
func Execute(version string) error {
	return NewRootCommand(Options{Version: version}).Execute()
}

// closeApp closes app with a bounded timeout and reports failures on stderr.
func closeApp(cmd *cobra.Command, app *App) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := app.Close(ctx); err != nil {
		cmd.PrintErrln(app.Theme.RenderWarning("Failed to save conversations: " + err.Error()))
	}
}
