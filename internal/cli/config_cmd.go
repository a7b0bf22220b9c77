// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// config_cmd.go - Inspect and edit the configuration file.

package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/EmpSwarup/inductive-ai-agent/internal/config"
	"github.com/EmpSwarup/inductive-ai-agent/internal/util"
)

func newConfigCommand(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or edit configuration",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Print the effective configuration (API key masked)",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				path, err := configFilePath(flags)
				if err != nil {
					return err
				}
				cfg, err := config.LoadFromPath(path)
				if err != nil {
					return err
				}
				flags.apply(cfg)
				fmt.Fprint(cmd.OutOrStdout(), cfg.String())
				return nil
			},
		},
		&cobra.Command{
			Use:   "path",
			Short: "Print the config file path",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				path, err := configFilePath(flags)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), path)
				return nil
			},
		},
		&cobra.Command{
			Use:   "keys",
			Short: "List settable keys",
			Args:  cobra.NoArgs,
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintln(cmd.OutOrStdout(), strings.Join(config.AllKeys(), "\n"))
			},
		},
		&cobra.Command{
			Use:   "get <key>",
			Short: "Print one setting",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				path, err := configFilePath(flags)
				if err != nil {
					return err
				}
				cfg, err := config.LoadFromPath(path)
				if err != nil {
					return err
				}
				if isSecretKey(args[0]) {
					cfg = maskedConfig(cfg)
				}
				v, err := cfg.Get(args[0])
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), v)
				return nil
			},
		},
		&cobra.Command{
			Use:   "set <key> <value>",
			Short: "Change one setting in the config file",
			Example: `  zara config set persona.name Nova
  zara config set chat.happy_idle_ms 1500`,
			Args: cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				path, err := configFilePath(flags)
				if err != nil {
					return err
				}
				if err := setConfigValue(path, args[0], args[1]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s = %s\n", args[0], args[1])
				return nil
			},
		},
	)
	return cmd
}

// configFilePath returns --config or the default path.
func configFilePath(flags *globalFlags) (string, error) {
	if flags.configPath != "" {
		return flags.configPath, nil
	}
	return config.ConfigPath()
}

// setConfigValue updates key in the file at path. Environment overrides are
// not applied so they never leak into the file.
func setConfigValue(path, key, value string) error {
	cfg := config.Default()
	if _, err := os.Stat(path); err == nil {
		if err := config.LoadTOML(cfg, path); err != nil {
			return errors.Wrapf(err, "failed to load config from %s", path)
		}
	}
	if err := cfg.Set(key, value); err != nil {
		return err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return err
	}
	return config.Save(cfg, path)
}

func isSecretKey(key string) bool {
	return strings.EqualFold(strings.ReplaceAll(key, "-", "_"), "gemini.api_key")
}

// maskedConfig returns a copy of cfg with the API key masked.
func maskedConfig(cfg *config.Config) *config.Config {
	masked := cfg.Clone()
	if masked.Gemini.APIKey != "" {
		masked.Gemini.APIKey = util.MaskSecret(masked.Gemini.APIKey)
	}
	return masked
}
