// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management.
//
// Settings come from a TOML file over built-in defaults, with environment
// variable overrides and validation.
//
// # Key Types
//
//   - Config: Main configuration structure with all settings
//   - GeminiConfig: API key, model and endpoint
//   - StorageConfig: Persistence backend and debounce
//   - ChatConfig: Send-cycle timings
//   - Watcher: Reloads the file on change (fsnotify)
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (CHATBOT_GEMINI_API_KEY, ZARA_*)
//   - ~/.zara/config.toml
//   - Built-in defaults
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	key := cfg.Gemini.APIKey
package config
