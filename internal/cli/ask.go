// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// ask.go - One-shot question from arguments or piped input.

package cli

import (
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/EmpSwarup/inductive-ai-agent/internal/gemini"
	"github.com/EmpSwarup/inductive-ai-agent/internal/model"
)

// maxPipedInput bounds the message read from stdin.
const maxPipedInput = 1 << 20

func newAskCommand(flags *globalFlags, transport gemini.Transport, stdin io.Reader) *cobra.Command {
	var continueChat bool

	cmd := &cobra.Command{
		Use:   "ask [message...]",
		Short: "Send one message and print the reply",
		Long: `Send one message and stream the reply to stdout.

The message is taken from the arguments, or read from stdin when it is piped.
The exchange is stored as a new conversation unless --continue is given.`,
		Example: `  zara ask "What is a goroutine?"
  git diff | zara ask
  zara ask --continue "And a channel?"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := askText(args, stdin)
			if err != nil {
				return err
			}
			return runAsk(cmd, flags, transport, text, continueChat)
		},
	}
	cmd.Flags().BoolVarP(&continueChat, "continue", "c", false, "continue the most recent conversation")
	return cmd
}

// askText returns the message from args or from piped stdin.
func askText(args []string, stdin io.Reader) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	if f, ok := stdin.(*os.File); ok && f == os.Stdin && IsTTY() {
		return "", errors.New("no message given (pass it as arguments or pipe it in)")
	}
	data, err := io.ReadAll(io.LimitReader(stdin, maxPipedInput))
	if err != nil {
		return "", errors.Wrap(err, "failed to read stdin")
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return "", errors.New("empty message")
	}
	return text, nil
}

func runAsk(cmd *cobra.Command, flags *globalFlags, transport gemini.Transport, text string, continueChat bool) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	out := cmd.OutOrStdout()
	app, err := newApp(ctx, appOptions{flags: flags, out: out, transport: transport})
	if err != nil {
		return err
	}
	defer closeApp(cmd, app)

	if !continueChat {
		app.Manager.NewChat(ctx)
	}

	printer := newStreamPrinter(out, app.Theme, app.AssistantName(), false)
	unsubscribe := app.Manager.Subscribe(printer.update)
	defer unsubscribe()

	printer.start(app.AssistantName())
	if !app.Manager.SendMessage(ctx, text) {
		printer.stop()
		return errors.New("message was not sent")
	}

	msg, ok := printer.finish(app.Manager.State())
	if !ok {
		return errors.New("no reply received")
	}
	if msg.Role == model.RoleError {
		return errors.New(strings.TrimPrefix(msg.Content, model.ErrorPrefix))
	}
	return nil
}
