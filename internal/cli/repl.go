// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// repl.go - Interactive chat loop.
//
// Lines are sent to the active conversation; lines starting with "/" are
// commands. Ctrl+C during a reply cancels the request, Ctrl+C or Ctrl+D at
// the prompt exits.

package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/peterh/liner"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/EmpSwarup/inductive-ai-agent/internal/config"
	"github.com/EmpSwarup/inductive-ai-agent/internal/gemini"
	"github.com/EmpSwarup/inductive-ai-agent/internal/model"
	"github.com/EmpSwarup/inductive-ai-agent/internal/storage"
)

// historyFileName stores prompt history inside the data directory.
const historyFileName = "chat_history"

// errQuit ends the loop.
var errQuit = errors.New("quit")

// =============================================================================
// INPUT
// =============================================================================

// lineReader reads one line of user input.
type lineReader interface {
	Prompt(prompt string) (string, error)
	Close() error
}

// lineEditor provides history and line editing on a terminal.
type lineEditor struct {
	line        *liner.State
	historyFile string
}

func newLineEditor(dataDir string) *lineEditor {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	e := &lineEditor{
		line:        line,
		historyFile: filepath.Join(dataDir, historyFileName),
	}
	if f, err := os.Open(e.historyFile); err == nil {
		line.ReadHistory(f)
		f.Close()
	}
	return e
}

// Prompt reads a line and records non-empty input in the history.
func (e *lineEditor) Prompt(prompt string) (string, error) {
	input, err := e.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		e.line.AppendHistory(input)
	}
	return input, nil
}

// Close saves the history with owner-only permissions and restores the
// terminal.
func (e *lineEditor) Close() error {
	if f, err := os.OpenFile(e.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600); err == nil {
		e.line.WriteHistory(f)
		f.Close()
	}
	return e.line.Close()
}

// plainReader reads lines from a non-terminal input without prompting.
type plainReader struct {
	scanner *bufio.Scanner
}

func newPlainReader(r io.Reader) *plainReader {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 64*1024), 1024*1024)
	return &plainReader{scanner: s}
}

func (r *plainReader) Prompt(string) (string, error) {
	if r.scanner.Scan() {
		return r.scanner.Text(), nil
	}
	if err := r.scanner.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}

func (r *plainReader) Close() error { return nil }

// =============================================================================
// SESSION
// =============================================================================

// replSession is one interactive run.
type replSession struct {
	app     *App
	out     io.Writer
	input   lineReader
	printer *streamPrinter
	prompt  string
}

func runREPL(cmd *cobra.Command, flags *globalFlags, transport gemini.Transport, stdin io.Reader) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	app, err := newApp(ctx, appOptions{flags: flags, out: out, interactive: true, transport: transport})
	if err != nil {
		return err
	}
	defer closeApp(cmd, app)

	watcher, err := config.NewWatcher(app.ConfigPath, config.DefaultWatchDebounce, func(cfg *config.Config) {
		app.Client.SetPersona(cfg.Persona)
	}, app.Log)
	if err == nil {
		if werr := watcher.Watch(); werr != nil {
			app.Log.Warn().Err(werr).Msg("Config reload disabled")
		}
		defer watcher.Close()
	} else {
		app.Log.Warn().Err(err).Msg("Config reload disabled")
	}

	s := &replSession{
		app:     app,
		out:     out,
		printer: newStreamPrinter(out, app.Theme, app.AssistantName(), true),
		prompt:  "> ",
	}
	if f, ok := stdin.(*os.File); ok && f == os.Stdin && IsTTY() {
		s.input = newLineEditor(app.DataDir)
	} else {
		s.input = newPlainReader(stdin)
		s.prompt = ""
	}
	defer s.input.Close()

	unsubscribe := app.Manager.Subscribe(s.printer.update)
	defer unsubscribe()

	if !app.Client.Configured() {
		fmt.Fprintln(out, app.Theme.RenderWarning(gemini.ErrNotConfigured.Error()))
	}
	s.showActive()

	return s.loop(ctx)
}

// loop reads and dispatches lines until the input ends or /quit.
func (s *replSession) loop(ctx context.Context) error {
	for {
		line, err := s.input.Prompt(s.prompt)
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
				fmt.Fprintln(s.out)
				return nil
			}
			return errors.Wrap(err, "failed to read input")
		}

		line = strings.TrimSpace(line)
		switch {
		case line == "":
			continue
		case strings.EqualFold(line, "exit"), strings.EqualFold(line, "quit"):
			return nil
		case strings.HasPrefix(line, "/"):
			if err := s.command(ctx, line); err != nil {
				if errors.Is(err, errQuit) {
					return nil
				}
				fmt.Fprintln(s.out, s.app.Theme.RenderError(err.Error()))
			}
		default:
			s.send(ctx, line)
		}
	}
}

// send runs one send cycle. Ctrl+C cancels the request without leaving.
func (s *replSession) send(ctx context.Context, text string) {
	sendCtx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	s.printer.start(s.app.AssistantName())
	if !s.app.Manager.SendMessage(sendCtx, text) {
		s.printer.stop()
		return
	}

	msg, ok := s.printer.finish(s.app.Manager.State())
	if ok && msg.Role == model.RoleError {
		fmt.Fprintln(s.out, s.app.Theme.RenderError(msg.Content))
	}
}

// showActive prints the active conversation, or the persona greeting when
// it is empty.
func (s *replSession) showActive() {
	state := s.app.Manager.State()
	conv, ok := state.ActiveConversation()
	if !ok {
		return
	}

	fmt.Fprintln(s.out, s.app.Theme.HeaderTitle.Render(conv.Title))
	if len(state.Messages) == 0 {
		persona := s.app.Client.Persona()
		if persona.Greeting != "" {
			fmt.Fprintln(s.out, s.app.Theme.RenderAvatar(model.EmotionNeutral, "")+" "+
				s.app.Theme.RenderLabel(model.RoleAssistant, persona.DisplayName())+": "+
				s.app.Theme.RenderContent(model.RoleAssistant, persona.Greeting))
		}
		return
	}

	name := s.app.AssistantName()
	for _, msg := range state.Messages {
		fmt.Fprintln(s.out, s.app.Theme.RenderLabel(msg.Role, name)+": "+s.app.Theme.RenderContent(msg.Role, msg.Content))
	}
}

// =============================================================================
// SLASH COMMANDS
// =============================================================================

const replHelp = `Commands:
  /new              Start a new conversation
  /list             List conversations
  /switch <n>       Switch to conversation n
  /delete [n]       Delete conversation n (default: the active one)
  /rename <title>   Rename the active conversation
  /history          Show the active conversation as markdown
  /export [format]  Export the active conversation (markdown, json, html)
  /help             Show this help
  /quit             Exit`

// command handles one slash command.
func (s *replSession) command(ctx context.Context, line string) error {
	name, arg, _ := strings.Cut(strings.TrimPrefix(line, "/"), " ")
	arg = strings.TrimSpace(arg)
	m := s.app.Manager

	switch strings.ToLower(name) {
	case "new":
		m.NewChat(ctx)
		s.showActive()

	case "list", "ls":
		state := m.State()
		fmt.Fprint(s.out, storage.FormatConversationList(state.Conversations, state.ActiveConversationID))

	case "switch":
		conv, err := resolveConversation(m.State().Conversations, arg)
		if err != nil {
			return err
		}
		if !m.SwitchConversation(ctx, conv.ID) {
			fmt.Fprintln(s.out, s.app.Theme.RenderInfo("Already active"))
			return nil
		}
		s.showActive()

	case "delete", "rm":
		state := m.State()
		target := state.ActiveConversationID
		if arg != "" {
			conv, err := resolveConversation(state.Conversations, arg)
			if err != nil {
				return err
			}
			target = conv.ID
		}
		if !m.DeleteConversation(ctx, target) {
			return errors.New("conversation not found")
		}
		fmt.Fprintln(s.out, s.app.Theme.RenderSuccess("Conversation deleted"))
		if target == state.ActiveConversationID {
			s.showActive()
		}

	case "rename":
		if !m.UpdateTitle(ctx, m.State().ActiveConversationID, arg) {
			return errors.New("no active conversation")
		}
		conv, _ := m.State().ActiveConversation()
		fmt.Fprintln(s.out, s.app.Theme.RenderSuccess("Renamed to "+conv.Title))

	case "history":
		conv, ok := m.State().ActiveConversation()
		if !ok {
			return errors.New("no active conversation")
		}
		fmt.Fprintln(s.out, s.renderMarkdown(storage.ExportMarkdown(conv, s.app.AssistantName())))

	case "export":
		conv, ok := m.State().ActiveConversation()
		if !ok {
			return errors.New("no active conversation")
		}
		path, err := exportConversation(s.app, conv, arg, ".", true)
		if err != nil {
			return err
		}
		fmt.Fprintln(s.out, s.app.Theme.RenderSuccess("Exported to "+path))

	case "help", "?":
		fmt.Fprintln(s.out, replHelp)

	case "quit", "exit", "q":
		return errQuit

	default:
		return errors.Errorf("unknown command /%s (try /help)", name)
	}
	return nil
}

func (s *replSession) renderMarkdown(md string) string {
	if !s.app.Config.UI.Markdown {
		return md
	}
	r := newMarkdownRenderer(s.app.Config.UI.Theme, s.app.Color, GetTerminalWidth())
	return renderMarkdown(r, md)
}

// resolveConversation finds a conversation by 1-based list position or id.
func resolveConversation(convs []model.Conversation, ref string) (model.Conversation, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return model.Conversation{}, errors.New("conversation number or id required")
	}
	if n, err := strconv.Atoi(ref); err == nil {
		if n < 1 || n > len(convs) {
			return model.Conversation{}, errors.Errorf("no conversation #%d (have %d)", n, len(convs))
		}
		return convs[n-1], nil
	}
	if idx := model.FindConversation(convs, ref); idx >= 0 {
		return convs[idx], nil
	}
	return model.Conversation{}, errors.Errorf("conversation %q not found", ref)
}
