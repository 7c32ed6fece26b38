package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapchat/internal/chat"
	"github.com/leapstack-labs/leapchat/internal/cli/output"
	"github.com/leapstack-labs/leapchat/internal/transcript"
)

const (
	replPrompt = "leapchat> "
	editPrompt = "     sql> "
)

// NewREPLCommand creates the repl command.
func NewREPLCommand() *cobra.Command {
	var conversationID string

	cmd := &cobra.Command{
		Use:   "repl",
		Short: "Chat with the backend line by line",
		Long: `Start a line-mode chat session. Plain lines are questions; dot commands
run, edit and save generated SQL by entry number.`,
		Example: `  leapchat repl
  leapchat repl --conversation 0b6c...   # resume a persisted conversation`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runREPL(cmd, conversationID)
		},
	}

	cmd.Flags().StringVar(&conversationID, "conversation", "", "Conversation ID to resume")

	return cmd
}

func runREPL(cmd *cobra.Command, conversationID string) error {
	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	service, cleanup, err := cmdCtx.OpenService(cmd.Context())
	if err != nil {
		return err
	}
	defer cleanup()

	session := newREPLSession(service, service.Conversation(conversationID), cmdCtx.Renderer)

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          replPrompt,
		HistoryFile:     historyFile(),
		AutoComplete:    session.completer(cmd.Context()),
		InterruptPrompt: "^C",
		EOFPrompt:       ".quit",
		Stdin:           io.NopCloser(cmd.InOrStdin()),
		Stdout:          cmd.OutOrStdout(),
		Stderr:          cmd.ErrOrStderr(),
	})
	if err != nil {
		return fmt.Errorf("failed to initialize REPL: %w", err)
	}
	defer func() { _ = rl.Close() }()

	r := cmdCtx.Renderer
	r.Printf("LeapChat REPL (backend: %s, conversation: %s)\n", cmdCtx.Backend.BaseURL(), session.conv.ID())
	r.Println("Type a question, .help for commands, .quit to exit")
	r.Println()

	ctx := cmd.Context()
	if err := session.showHistory(ctx); err != nil {
		r.Error(err.Error())
	}

	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			session.cancelEdit()
			rl.SetPrompt(replPrompt)
			continue
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}

		if session.handle(ctx, line) {
			break
		}
		rl.SetPrompt(session.prompt())
	}
	return nil
}

// historyFile returns the readline history path, or "" when there is no
// usable cache directory.
func historyFile() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return ""
	}
	dir = filepath.Join(dir, "leapchat")
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return ""
	}
	return filepath.Join(dir, "repl_history")
}

// replSession is the state of one REPL: the conversation, how much of it has
// been printed, and a pending SQL edit.
type replSession struct {
	service   *chat.Service
	conv      *chat.Conversation
	r         *output.Renderer
	shown     int
	questions []string

	editing string // entry ID whose SQL is being typed
	buf     strings.Builder
}

func newREPLSession(service *chat.Service, conv *chat.Conversation, r *output.Renderer) *replSession {
	return &replSession{service: service, conv: conv, r: r}
}

func (s *replSession) prompt() string {
	if s.editing != "" {
		return editPrompt
	}
	return replPrompt
}

func (s *replSession) cancelEdit() {
	s.editing = ""
	s.buf.Reset()
}

// handle processes one input line and reports whether the REPL should exit.
func (s *replSession) handle(ctx context.Context, line string) bool {
	line = strings.TrimSpace(line)

	if s.editing != "" {
		s.collectEdit(ctx, line)
		return false
	}
	if line == "" {
		return false
	}
	if strings.HasPrefix(line, ".") {
		return s.dotCommand(ctx, line)
	}

	if err := s.conv.Ask(ctx, line); err != nil {
		s.r.Error(err.Error())
	}
	s.flush(ctx)
	return false
}

// collectEdit accumulates SQL lines until one ends with a semicolon.
func (s *replSession) collectEdit(ctx context.Context, line string) {
	s.buf.WriteString(line)
	if !strings.HasSuffix(line, ";") {
		s.buf.WriteString("\n")
		return
	}

	id := s.editing
	sql := strings.TrimSpace(strings.TrimSuffix(s.buf.String(), ";"))
	s.cancelEdit()

	s.conv.SetDraft(id, sql)
	saved, err := s.conv.Save(ctx, id)
	switch {
	case err != nil:
		s.r.Error(err.Error())
	case saved:
		s.r.Success("SQL saved")
	default:
		s.r.Muted("Nothing typed, SQL unchanged")
	}
}

func (s *replSession) dotCommand(ctx context.Context, line string) bool {
	parts := strings.Fields(line)
	command := strings.ToLower(parts[0])

	switch command {
	case ".quit", ".exit":
		return true

	case ".help":
		printREPLHelp(s.r.Writer())

	case ".questions":
		questions, err := s.conv.Questions(ctx)
		if err != nil {
			s.r.Error(fmt.Sprintf("could not load questions: %v", err))
			return false
		}
		s.questions = questions
		_ = s.r.Questions(questions)

	case ".ask":
		n, ok := s.argIndex(parts, len(s.questions), "Usage: .ask <question number> (see .questions)")
		if !ok {
			return false
		}
		if err := s.conv.Ask(ctx, s.questions[n]); err != nil {
			s.r.Error(err.Error())
		}
		s.flush(ctx)

	case ".run":
		id, ok := s.entryArg(ctx, parts, ".run <entry number>")
		if !ok {
			return false
		}
		if _, err := s.conv.Run(ctx, id); err != nil {
			s.r.Error(err.Error())
		}
		s.flush(ctx)

	case ".edit":
		id, ok := s.entryArg(ctx, parts, ".edit <entry number>")
		if !ok {
			return false
		}
		if err := s.conv.Edit(ctx, id); err != nil {
			s.r.Error(err.Error())
			return false
		}
		s.editing = id
		s.r.Muted("Type the new SQL and end it with ';' (Ctrl+C cancels)")

	case ".history":
		s.shown = 0
		s.flush(ctx)

	case ".new":
		s.service.Forget(s.conv.ID())
		s.conv = s.service.Conversation("")
		s.shown = 0
		s.r.Success("Started conversation " + s.conv.ID())

	case ".clear":
		_, _ = fmt.Fprint(s.r.Writer(), "\033[H\033[2J")

	default:
		s.r.Error(fmt.Sprintf("Unknown command: %s (type .help for commands)", command))
	}
	return false
}

// argIndex parses a 1-based number argument into a 0-based index below n.
func (s *replSession) argIndex(parts []string, n int, usage string) (int, bool) {
	if len(parts) < 2 {
		s.r.Error(usage)
		return 0, false
	}
	i, err := strconv.Atoi(parts[1])
	if err != nil || i < 1 || i > n {
		s.r.Error(fmt.Sprintf("no item %s", parts[1]))
		return 0, false
	}
	return i - 1, true
}

// entryArg resolves an entry number to its ID.
func (s *replSession) entryArg(ctx context.Context, parts []string, usage string) (string, bool) {
	snap, err := s.conv.Snapshot(ctx)
	if err != nil {
		s.r.Error(err.Error())
		return "", false
	}
	i, ok := s.argIndex(parts, len(snap.Entries), "Usage: "+usage)
	if !ok {
		return "", false
	}
	return snap.Entries[i].ID, true
}

// showHistory prints a resumed conversation.
func (s *replSession) showHistory(ctx context.Context) error {
	snap, err := s.conv.Snapshot(ctx)
	if err != nil {
		return err
	}
	if len(snap.Entries) > 0 {
		s.r.Muted(fmt.Sprintf("Resuming %d entries", len(snap.Entries)))
		s.flush(ctx)
	}
	return nil
}

// flush prints entries added since the last call.
func (s *replSession) flush(ctx context.Context) {
	snap, err := s.conv.Snapshot(ctx)
	if err != nil {
		s.r.Error(err.Error())
		return
	}
	views := transcript.Build(snap)
	for i := s.shown; i < len(views); i++ {
		printView(s.r, i+1, views[i])
	}
	s.shown = len(views)
}

// printView writes one transcript entry with its number.
func printView(r *output.Renderer, n int, v transcript.View) {
	role := "Assistant"
	if v.FromUser {
		role = "You"
	}
	label := fmt.Sprintf("[%d] %s", n, role)
	if len(v.Actions) > 0 {
		label += fmt.Sprintf("  (.run %d / .edit %d)", n, n)
	}
	r.Println(r.Styles().Header.Render(label))

	switch v.Kind {
	case transcript.KindCode:
		_ = r.SQL("", v.Text)
	case transcript.KindEditor:
		_ = r.SQL("", v.Text)
		r.Muted("(editing)")
	case transcript.KindTable, transcript.KindMap:
		_ = r.Result(v.Result)
	case transcript.KindNoData:
		r.Muted(v.Text)
	case transcript.KindDecodeError:
		_ = r.BackendError(v.Text)
	default:
		if v.IsError {
			_ = r.BackendError(v.Text)
		} else {
			r.Println(v.Text)
		}
	}
	r.Println()
}

// completer offers dot commands and entry numbers.
func (s *replSession) completer(ctx context.Context) *readline.PrefixCompleter {
	entryNumbers := func(string) []string {
		snap, err := s.conv.Snapshot(ctx)
		if err != nil {
			return nil
		}
		var nums []string
		for i, e := range snap.Entries {
			if e.Kind == chat.KindSQL && !e.FromUser() {
				nums = append(nums, strconv.Itoa(i+1))
			}
		}
		return nums
	}
	questionNumbers := func(string) []string {
		nums := make([]string, len(s.questions))
		for i := range s.questions {
			nums[i] = strconv.Itoa(i + 1)
		}
		return nums
	}

	return readline.NewPrefixCompleter(
		readline.PcItem(".help"),
		readline.PcItem(".questions"),
		readline.PcItem(".ask", readline.PcItemDynamic(questionNumbers)),
		readline.PcItem(".run", readline.PcItemDynamic(entryNumbers)),
		readline.PcItem(".edit", readline.PcItemDynamic(entryNumbers)),
		readline.PcItem(".history"),
		readline.PcItem(".new"),
		readline.PcItem(".clear"),
		readline.PcItem(".quit"),
		readline.PcItem(".exit"),
	)
}

func printREPLHelp(w io.Writer) {
	help := `
Commands:
  <question>      Ask the backend to write SQL for a question
  .questions      List suggested questions
  .ask <n>        Ask suggested question n
  .run <n>        Run the SQL of entry n
  .edit <n>       Replace the SQL of entry n (end the new SQL with ;)
  .history        Print the whole conversation
  .new            Start a new conversation
  .clear          Clear the screen
  .quit / .exit   Exit the REPL

Tips:
  - Use arrow keys to navigate history
  - Tab completes commands and entry numbers
`
	_, _ = fmt.Fprintln(w, help)
}
