// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"io"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/EmpSwarup/inductive-ai-agent/internal/chat"
	"github.com/EmpSwarup/inductive-ai-agent/internal/config"
	"github.com/EmpSwarup/inductive-ai-agent/internal/gemini"
	"github.com/EmpSwarup/inductive-ai-agent/internal/logging"
	"github.com/EmpSwarup/inductive-ai-agent/internal/storage"
	"github.com/EmpSwarup/inductive-ai-agent/internal/ui/styles"
)

// DefaultLogFileName is the REPL's log file inside the data directory.
const DefaultLogFileName = "zara.log"

// =============================================================================
// APPLICATION WIRING
// =============================================================================

// App wires configuration, logging, storage, the Gemini client and the chat
// manager for one command invocation.
type App struct {
	Config     *config.Config
	ConfigPath string
	DataDir    string
	Log        zerolog.Logger

	Store   *storage.Store
	Client  *gemini.Client
	Manager *chat.Manager
	Theme   *styles.Theme
	Color   bool

	logCloser io.Closer
}

// appOptions selects how an App is built.
type appOptions struct {
	flags *globalFlags
	out   io.Writer
	// interactive routes logs to a file so they do not interleave with the
	// conversation.
	interactive bool
	transport   gemini.Transport
}

// newApp loads configuration and builds every component. The caller must
// Close the returned App.
func newApp(ctx context.Context, opts appOptions) (*App, error) {
	f := opts.flags

	cfgPath := f.configPath
	if cfgPath == "" {
		p, err := config.ConfigPath()
		if err != nil {
			return nil, err
		}
		cfgPath = p
	}
	cfg, err := config.LoadFromPath(cfgPath)
	if err != nil {
		return nil, err
	}
	f.apply(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid flags")
	}

	dataDir, err := cfg.DataDir()
	if err != nil {
		return nil, err
	}

	logOpts := logging.Options{
		Level:   f.logLevel,
		Format:  f.logFormat,
		File:    f.logFile,
		Console: !opts.interactive,
	}
	if opts.interactive && logOpts.File == "" {
		logOpts.File = filepath.Join(dataDir, DefaultLogFileName)
	}
	log, closer, err := logging.Setup(logOpts)
	if err != nil {
		return nil, err
	}

	backend, err := storage.OpenBackend(cfg.Storage.Backend, dataDir)
	if err != nil {
		closer.Close()
		return nil, errors.Wrap(err, "failed to open storage")
	}
	store := storage.NewStore(backend, storage.Options{
		Key:      cfg.Storage.Key,
		Debounce: config.Millis(cfg.Storage.DebounceMs),
		Logger:   log,
	})

	client := gemini.NewClient(gemini.Config{
		APIKey:    cfg.Gemini.APIKey,
		Model:     cfg.Gemini.Model,
		BaseURL:   cfg.Gemini.BaseURL,
		Persona:   cfg.Persona,
		Transport: opts.transport,
		Logger:    log,
	})

	chatOpts := chatOptions(cfg)
	chatOpts.Logger = log
	manager := chat.NewManager(store, client, chatOpts)

	color := ColorsEnabled(cfg.UI.Color)
	app := &App{
		Config:     cfg,
		ConfigPath: cfgPath,
		DataDir:    dataDir,
		Log:        log,
		Store:      store,
		Client:     client,
		Manager:    manager,
		Theme:      styles.NewTheme(opts.out, cfg.UI.Theme, color),
		Color:      color,
		logCloser:  closer,
	}

	log.Debug().
		Str("config", cfgPath).
		Str("data_dir", dataDir).
		Str("backend", cfg.Storage.Backend).
		Str("model", cfg.Gemini.Model).
		Bool("api_key", client.Configured()).
		Msg("Loaded configuration")

	manager.Init(ctx)
	return app, nil
}

// Close stops the manager, flushes and closes storage and the log file.
func (a *App) Close(ctx context.Context) error {
	mErr := a.Manager.Close(ctx)
	sErr := a.Store.Close(ctx)
	a.logCloser.Close()
	if mErr != nil {
		return mErr
	}
	return sErr
}

// AssistantName returns the current persona's display name.
func (a *App) AssistantName() string {
	return a.Client.Persona().DisplayName()
}

// chatOptions maps the [chat] settings onto manager options.
func chatOptions(cfg *config.Config) chat.Options {
	c := cfg.Chat
	return chat.Options{
		SaveThrottle:      config.Millis(c.SaveThrottleMs),
		ReplyDelayBase:    config.Millis(c.ReplyDelayBaseMs),
		ReplyDelayPerChar: config.Millis(c.ReplyDelayPerCharMs),
		ReplyDelayMax:     config.Millis(c.ReplyDelayMaxMs),
		HappyIdle:         config.Millis(c.HappyIdleMs),
		ErrorDelay:        config.Millis(c.ErrorDelayMs),
		ErrorIdle:         config.Millis(c.ErrorIdleMs),
		PendingClear:      config.Millis(c.PendingClearMs),
	}
}
