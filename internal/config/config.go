// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"

	"github.com/EmpSwarup/inductive-ai-agent/internal/model"
	"github.com/EmpSwarup/inductive-ai-agent/internal/util"
)

// Environment variables that override file settings.
const (
	EnvAPIKey         = "CHATBOT_GEMINI_API_KEY"
	EnvModel          = "ZARA_MODEL"
	EnvDataDir        = "ZARA_DATA_DIR"
	EnvStorageBackend = "ZARA_STORAGE_BACKEND"
)

// Defaults not owned by another package.
const (
	DefaultModel          = "gemini-2.0-flash"
	DefaultStorageBackend = "file"
	DefaultStorageKey     = "chatConversations"
	DefaultTheme          = "auto"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete client configuration.
type Config struct {
	Gemini  GeminiConfig  `toml:"gemini"`
	Persona model.Persona `toml:"persona"`
	Storage StorageConfig `toml:"storage"`
	Chat    ChatConfig    `toml:"chat"`
	UI      UIConfig      `toml:"ui"`
}

// GeminiConfig configures the streaming API.
type GeminiConfig struct {
	// APIKey is the Gemini API key. Empty is allowed: sends then fail with a
	// configuration error.
	APIKey string `toml:"api_key"`
	// Model is the model identifier
	Model string `toml:"model"`
	// BaseURL overrides the API endpoint (empty = SDK default)
	BaseURL string `toml:"base_url"`
}

// StorageConfig configures conversation persistence.
type StorageConfig struct {
	// Backend is one of "file", "sqlite", "memory"
	Backend string `toml:"backend"`
	// Dir is the data directory (empty = ConfigDir)
	Dir string `toml:"dir"`
	// Key is the storage key of the conversation list
	Key string `toml:"key"`
	// DebounceMs is the debounced-save window
	DebounceMs int `toml:"debounce_ms"`
}

// ChatConfig holds the send-cycle timings, all in milliseconds.
type ChatConfig struct {
	SaveThrottleMs      int `toml:"save_throttle_ms"`
	ReplyDelayBaseMs    int `toml:"reply_delay_base_ms"`
	ReplyDelayPerCharMs int `toml:"reply_delay_per_char_ms"`
	ReplyDelayMaxMs     int `toml:"reply_delay_max_ms"`
	HappyIdleMs         int `toml:"happy_idle_ms"`
	ErrorDelayMs        int `toml:"error_delay_ms"`
	ErrorIdleMs         int `toml:"error_idle_ms"`
	PendingClearMs      int `toml:"pending_clear_ms"`
}

// UIConfig holds terminal presentation settings.
type UIConfig struct {
	// Theme is "auto", "dark" or "light"
	Theme string `toml:"theme"`
	// Color enables ANSI colors
	Color bool `toml:"color"`
	// Markdown renders assistant replies as markdown in /history
	Markdown bool `toml:"markdown"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Gemini: GeminiConfig{
			Model: DefaultModel,
		},
		Persona: model.DefaultPersona(),
		Storage: StorageConfig{
			Backend:    DefaultStorageBackend,
			Key:        DefaultStorageKey,
			DebounceMs: 500,
		},
		Chat: ChatConfig{
			SaveThrottleMs:      1000,
			ReplyDelayBaseMs:    300,
			ReplyDelayPerCharMs: 15,
			ReplyDelayMaxMs:     2000,
			HappyIdleMs:         2000,
			ErrorDelayMs:        300,
			ErrorIdleMs:         3000,
			PendingClearMs:      500,
		},
		UI: UIConfig{
			Theme:    DefaultTheme,
			Color:    true,
			Markdown: true,
		},
	}
}

// Millis converts a millisecond setting to a duration.
func Millis(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the configuration directory, ~/.zara.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, "could not determine home directory")
	}
	return filepath.Join(home, ".zara"), nil
}

// ConfigPath returns the path of the default config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// DataDir returns the directory conversations are stored in.
func (c *Config) DataDir() (string, error) {
	if c.Storage.Dir != "" {
		return expandHome(c.Storage.Dir)
	}
	return ConfigDir()
}

func expandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, "could not determine home directory")
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}

// ensureSecurePermissions tightens a config file to 0600; it holds the API key.
func ensureSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if mode := info.Mode().Perm(); mode != 0600 {
		if err := os.Chmod(path, 0600); err != nil {
			return errors.Wrapf(err, "failed to fix insecure permissions (was %o)", mode)
		}
	}
	return nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads the default config file. A missing file yields the defaults.
// Environment overrides are applied last.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		cfg := Default()
		cfg.ApplyEnvOverrides()
		return cfg, err
	}
	return LoadFromPath(path)
}

// LoadFromPath loads configuration from path over the defaults, applies
// environment overrides and validates. A missing file is not an error.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	if _, statErr := os.Stat(path); statErr == nil {
		if err := LoadTOML(cfg, path); err != nil {
			return nil, errors.Wrapf(err, "failed to load config from %s", path)
		}
	} else if !os.IsNotExist(statErr) {
		return nil, errors.Wrapf(statErr, "failed to stat config %s", path)
	}

	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}
	return cfg, nil
}

// LoadTOML decodes path into cfg. Keys absent from the file keep their
// current values.
func LoadTOML(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}

	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return errors.Wrap(err, "failed to decode TOML file")
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		fmt.Fprintf(os.Stderr, "Warning: unknown config keys in %s: %v\n", path, undecoded)
	}
	return nil
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save writes cfg to path with 0600 permissions.
func Save(cfg *Config, path string) error {
	var buf bytes.Buffer
	buf.WriteString("# Zara chat client configuration\n")
	buf.WriteString("# Generated - edit with care\n\n")

	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return errors.Wrap(err, "failed to encode config")
	}
	if err := util.AtomicWriteFile(path, buf.Bytes(), 0600); err != nil {
		return errors.Wrap(err, "failed to write config file")
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate checks the configuration and returns ValidateErrors on failure.
// A missing API key is not a validation error.
func (c *Config) Validate() error {
	var errs ValidateErrors

	if strings.TrimSpace(c.Gemini.Model) == "" {
		errs = append(errs, ValidationError{Field: "gemini.model", Message: "must not be empty"})
	}

	switch c.Storage.Backend {
	case "file", "sqlite", "memory":
	default:
		errs = append(errs, ValidationError{
			Field:   "storage.backend",
			Message: fmt.Sprintf("invalid backend '%s', must be one of: file, sqlite, memory", c.Storage.Backend),
		})
	}
	if strings.TrimSpace(c.Storage.Key) == "" {
		errs = append(errs, ValidationError{Field: "storage.key", Message: "must not be empty"})
	} else if strings.ContainsAny(c.Storage.Key, `/\`) {
		errs = append(errs, ValidationError{Field: "storage.key", Message: "must not contain path separators"})
	}
	if c.Storage.DebounceMs < 0 {
		errs = append(errs, ValidationError{Field: "storage.debounce_ms", Message: "must not be negative"})
	}

	timings := []struct {
		field string
		value int
	}{
		{"chat.save_throttle_ms", c.Chat.SaveThrottleMs},
		{"chat.reply_delay_base_ms", c.Chat.ReplyDelayBaseMs},
		{"chat.reply_delay_per_char_ms", c.Chat.ReplyDelayPerCharMs},
		{"chat.reply_delay_max_ms", c.Chat.ReplyDelayMaxMs},
		{"chat.happy_idle_ms", c.Chat.HappyIdleMs},
		{"chat.error_delay_ms", c.Chat.ErrorDelayMs},
		{"chat.error_idle_ms", c.Chat.ErrorIdleMs},
		{"chat.pending_clear_ms", c.Chat.PendingClearMs},
	}
	for _, tm := range timings {
		if tm.value < 0 {
			errs = append(errs, ValidationError{Field: tm.field, Message: "must not be negative"})
		}
	}
	if c.Chat.ReplyDelayMaxMs > 0 && c.Chat.ReplyDelayBaseMs > c.Chat.ReplyDelayMaxMs {
		errs = append(errs, ValidationError{
			Field:   "chat.reply_delay_base_ms",
			Message: fmt.Sprintf("%d exceeds reply_delay_max_ms (%d)", c.Chat.ReplyDelayBaseMs, c.Chat.ReplyDelayMaxMs),
		})
	}

	switch c.UI.Theme {
	case "auto", "dark", "light":
	default:
		errs = append(errs, ValidationError{
			Field:   "ui.theme",
			Message: fmt.Sprintf("invalid theme '%s', must be one of: auto, dark, light", c.UI.Theme),
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// SetDefaults fills empty string settings and zero timings with defaults.
func (c *Config) SetDefaults() {
	def := Default()

	if c.Gemini.Model == "" {
		c.Gemini.Model = def.Gemini.Model
	}
	if c.Persona.Name == "" && c.Persona.Personality == "" {
		c.Persona = def.Persona
	}
	if c.Storage.Backend == "" {
		c.Storage.Backend = def.Storage.Backend
	}
	if c.Storage.Key == "" {
		c.Storage.Key = def.Storage.Key
	}
	if c.Storage.DebounceMs == 0 {
		c.Storage.DebounceMs = def.Storage.DebounceMs
	}

	fillInt(&c.Chat.SaveThrottleMs, def.Chat.SaveThrottleMs)
	fillInt(&c.Chat.ReplyDelayBaseMs, def.Chat.ReplyDelayBaseMs)
	fillInt(&c.Chat.ReplyDelayPerCharMs, def.Chat.ReplyDelayPerCharMs)
	fillInt(&c.Chat.ReplyDelayMaxMs, def.Chat.ReplyDelayMaxMs)
	fillInt(&c.Chat.HappyIdleMs, def.Chat.HappyIdleMs)
	fillInt(&c.Chat.ErrorDelayMs, def.Chat.ErrorDelayMs)
	fillInt(&c.Chat.ErrorIdleMs, def.Chat.ErrorIdleMs)
	fillInt(&c.Chat.PendingClearMs, def.Chat.PendingClearMs)

	if c.UI.Theme == "" {
		c.UI.Theme = def.UI.Theme
	}
}

func fillInt(v *int, def int) {
	if *v == 0 {
		*v = def
	}
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides:
//   - CHATBOT_GEMINI_API_KEY: overrides gemini.api_key
//   - ZARA_MODEL: overrides gemini.model
//   - ZARA_DATA_DIR: overrides storage.dir
//   - ZARA_STORAGE_BACKEND: overrides storage.backend
func (c *Config) ApplyEnvOverrides() {
	if key := os.Getenv(EnvAPIKey); key != "" {
		c.Gemini.APIKey = key
	}
	if m := os.Getenv(EnvModel); m != "" {
		c.Gemini.Model = m
	}
	if dir := os.Getenv(EnvDataDir); dir != "" {
		c.Storage.Dir = dir
	}
	if backend := os.Getenv(EnvStorageBackend); backend != "" {
		c.Storage.Backend = strings.ToLower(backend)
	}
}

// =============================================================================
// GET/SET HELPERS (DOT NOTATION)
// =============================================================================

// Get retrieves a configuration value using dot notation (e.g., "persona.name").
func (c *Config) Get(key string) (interface{}, error) {
	field, err := c.lookup(key)
	if err != nil {
		return nil, err
	}
	return field.Interface(), nil
}

// Set sets a configuration value using dot notation (e.g., "chat.happy_idle_ms").
// String values are converted to the field's type.
func (c *Config) Set(key string, value interface{}) error {
	field, err := c.lookup(key)
	if err != nil {
		return err
	}
	if !field.CanSet() {
		return errors.Errorf("cannot set field: %s", key)
	}
	return setFieldValue(field, value)
}

// lookup resolves a dotted key by TOML tag.
func (c *Config) lookup(key string) (reflect.Value, error) {
	if strings.TrimSpace(key) == "" {
		return reflect.Value{}, errors.New("empty key")
	}
	parts := strings.Split(key, ".")

	v := reflect.ValueOf(c).Elem()
	for i, part := range parts {
		field, ok := fieldByTag(v, part)
		if !ok {
			return reflect.Value{}, errors.Errorf("unknown field: %s", strings.Join(parts[:i+1], "."))
		}
		if i == len(parts)-1 {
			if field.Kind() == reflect.Struct {
				return reflect.Value{}, errors.Errorf("field '%s' is a section", key)
			}
			return field, nil
		}
		if field.Kind() != reflect.Struct {
			return reflect.Value{}, errors.Errorf("field '%s' is not a section", strings.Join(parts[:i+1], "."))
		}
		v = field
	}
	return reflect.Value{}, errors.Errorf("invalid key: %s", key)
}

// fieldByTag finds the struct field whose toml tag is name. Snake_case and
// kebab-case spellings of the tag are accepted.
func fieldByTag(v reflect.Value, name string) (reflect.Value, bool) {
	name = strings.ReplaceAll(strings.ToLower(name), "-", "_")
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		if tomlName(t.Field(i)) == name {
			return v.Field(i), true
		}
	}
	return reflect.Value{}, false
}

func tomlName(f reflect.StructField) string {
	tag := f.Tag.Get("toml")
	if name, _, _ := strings.Cut(tag, ","); name != "" {
		return name
	}
	return strings.ToLower(f.Name)
}

// setFieldValue sets a reflect.Value from an interface{} value with type conversion.
func setFieldValue(field reflect.Value, value interface{}) error {
	if strVal, ok := value.(string); ok {
		switch field.Kind() {
		case reflect.String:
			field.SetString(strVal)
			return nil
		case reflect.Int, reflect.Int64:
			intVal, err := strconv.ParseInt(strVal, 10, 64)
			if err != nil {
				return errors.Errorf("invalid integer value: %v", err)
			}
			field.SetInt(intVal)
			return nil
		case reflect.Bool:
			lower := strings.ToLower(strVal)
			field.SetBool(lower == "1" || lower == "true" || lower == "yes")
			return nil
		}
	}

	val := reflect.ValueOf(value)
	if !val.IsValid() {
		return errors.Errorf("cannot assign nil to %s", field.Type())
	}
	if val.Type().AssignableTo(field.Type()) {
		field.Set(val)
		return nil
	}
	if val.Type().ConvertibleTo(field.Type()) {
		field.Set(val.Convert(field.Type()))
		return nil
	}
	return errors.Errorf("cannot assign %T to %s", value, field.Type())
}

// AllKeys returns every settable key in dot notation.
func AllKeys() []string {
	var keys []string
	var walk func(t reflect.Type, prefix string)
	walk = func(t reflect.Type, prefix string) {
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			name := prefix + tomlName(f)
			if f.Type.Kind() == reflect.Struct {
				walk(f.Type, name+".")
				continue
			}
			keys = append(keys, name)
		}
	}
	walk(reflect.TypeOf(Config{}), "")
	return keys
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// Clone returns a copy of the configuration.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}

// String renders the configuration as TOML with the API key masked.
func (c *Config) String() string {
	safe := c.Clone()
	if safe.Gemini.APIKey != "" {
		safe.Gemini.APIKey = util.MaskSecret(safe.Gemini.APIKey)
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(safe); err != nil {
		return fmt.Sprintf("<config: %v>", err)
	}
	return buf.String()
}
