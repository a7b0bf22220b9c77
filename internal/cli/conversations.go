// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// conversations.go - Stored conversation management.

package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/EmpSwarup/inductive-ai-agent/internal/export"
	"github.com/EmpSwarup/inductive-ai-agent/internal/model"
	"github.com/EmpSwarup/inductive-ai-agent/internal/storage"
)

func newConversationsCommand(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "conversations",
		Aliases: []string{"convs", "c"},
		Short:   "List, show, rename and delete stored conversations",
		Long: `Manage stored conversations.

Conversations are addressed by their position in the list (1 is the newest)
or by id.`,
	}
	cmd.AddCommand(
		newConversationsListCommand(flags),
		newConversationsShowCommand(flags),
		newConversationsRenameCommand(flags),
		newConversationsDeleteCommand(flags),
		newConversationsExportCommand(flags),
	)
	return cmd
}

func newConversationsListCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List conversations",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(cmd.Context(), appOptions{flags: flags, out: cmd.OutOrStdout()})
			if err != nil {
				return err
			}
			defer closeApp(cmd, app)

			state := app.Manager.State()
			fmt.Fprint(cmd.OutOrStdout(), storage.FormatConversationList(state.Conversations, state.ActiveConversationID))
			return nil
		},
	}
}

func newConversationsShowCommand(flags *globalFlags) *cobra.Command {
	var raw bool

	cmd := &cobra.Command{
		Use:   "show <n|id>",
		Short: "Print a conversation as markdown",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(cmd.Context(), appOptions{flags: flags, out: cmd.OutOrStdout()})
			if err != nil {
				return err
			}
			defer closeApp(cmd, app)

			conv, err := resolveConversation(app.Manager.State().Conversations, args[0])
			if err != nil {
				return err
			}
			md := storage.ExportMarkdown(conv, app.AssistantName())
			if !raw && app.Config.UI.Markdown && IsStdoutTTY() {
				md = renderMarkdown(newMarkdownRenderer(app.Config.UI.Theme, app.Color, GetTerminalWidth()), md)
			}
			fmt.Fprint(cmd.OutOrStdout(), md)
			return nil
		},
	}
	cmd.Flags().BoolVar(&raw, "raw", false, "print markdown source without rendering")
	return cmd
}

func newConversationsRenameCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "rename <n|id> <title>",
		Short: "Rename a conversation",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(cmd.Context(), appOptions{flags: flags, out: cmd.OutOrStdout()})
			if err != nil {
				return err
			}
			defer closeApp(cmd, app)

			conv, err := resolveConversation(app.Manager.State().Conversations, args[0])
			if err != nil {
				return err
			}
			app.Manager.UpdateTitle(cmd.Context(), conv.ID, args[1])
			fmt.Fprintln(cmd.OutOrStdout(), app.Theme.RenderSuccess("Conversation renamed"))
			return nil
		},
	}
}

func newConversationsDeleteCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <n|id>",
		Aliases: []string{"rm"},
		Short:   "Delete a conversation",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(cmd.Context(), appOptions{flags: flags, out: cmd.OutOrStdout()})
			if err != nil {
				return err
			}
			defer closeApp(cmd, app)

			conv, err := resolveConversation(app.Manager.State().Conversations, args[0])
			if err != nil {
				return err
			}
			app.Manager.DeleteConversation(cmd.Context(), conv.ID)
			fmt.Fprintln(cmd.OutOrStdout(), app.Theme.RenderSuccess("Deleted \""+conv.Title+"\""))
			return nil
		},
	}
}

func newConversationsExportCommand(flags *globalFlags) *cobra.Command {
	var (
		format     string
		outputDir  string
		noMetadata bool
	)

	cmd := &cobra.Command{
		Use:   "export <n|id>",
		Short: "Export a conversation to markdown, json or html",
		Example: `  zara conversations export 1
  zara conversations export 2 --format html --output ~/exports`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(cmd.Context(), appOptions{flags: flags, out: cmd.OutOrStdout()})
			if err != nil {
				return err
			}
			defer closeApp(cmd, app)

			conv, err := resolveConversation(app.Manager.State().Conversations, args[0])
			if err != nil {
				return err
			}
			path, err := exportConversation(app, conv, format, outputDir, !noMetadata)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), app.Theme.RenderSuccess("Exported to "+path))
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", export.FormatMarkdown, "markdown, json or html")
	cmd.Flags().StringVarP(&outputDir, "output", "o", ".", "output directory")
	cmd.Flags().BoolVar(&noMetadata, "no-metadata", false, "omit the metadata header")
	return cmd
}

// exportConversation writes conv to outputDir in format and returns the path.
func exportConversation(app *App, conv model.Conversation, format, outputDir string, metadata bool) (string, error) {
	opts := &export.Options{
		OutputDir:         outputDir,
		AssistantName:     app.AssistantName(),
		Model:             app.Client.Model(),
		IncludeMetadata:   metadata,
		IncludeTimestamps: true,
		Theme:             app.Config.UI.Theme,
	}
	exp, err := export.New(format, opts)
	if err != nil {
		return "", err
	}
	path, err := export.ExportToFile(conv, exp, opts)
	if err != nil {
		return "", err
	}
	app.Log.Info().Str("conversation", conv.ID).Str("path", path).Msg("Exported conversation")
	return path, nil
}
