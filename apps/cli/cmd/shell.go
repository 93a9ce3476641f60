package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/hitdesk/packages/backend"
	"github.com/abdul-hamid-achik/hitdesk/packages/output"
	"github.com/abdul-hamid-achik/hitdesk/packages/rpc"
	"github.com/abdul-hamid-achik/hitdesk/packages/session"
	"github.com/abdul-hamid-achik/hitdesk/packages/watch"
	"github.com/abdul-hamid-achik/hitdesk/packages/workspace"
)

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Open an interactive workspace",
	Long: `Open an interactive workspace over a directory of .http files.

Type "help" inside the shell for the list of commands.

Examples:
  hitdesk shell
  hitdesk shell --root ./api --env dev
  hitdesk shell --remote ws://127.0.0.1:7878/rpc`,
	Args: cobra.NoArgs,
	RunE: shellCommand,
}

var (
	remoteFlag       string
	historyLimitFlag int
)

func init() {
	shellCmd.Flags().StringVar(&remoteFlag, "remote", getEnvString("HITDESK_REMOTE", ""), "Use the backend served at this websocket URL (env: HITDESK_REMOTE)")
	shellCmd.Flags().IntVar(&historyLimitFlag, "history-limit", getEnvInt("HITDESK_HISTORY_LIMIT", 20), "Default number of runs shown by history (env: HITDESK_HISTORY_LIMIT)")
}

const shellHelp = `Commands:
  open <dir>          switch to another directory
  files               list .http files
  refresh             re-list files
  select <n|path>     open a file by number or path
  close               close the current file
  show                print the current file content
  edit                edit the current file in $VISUAL or $EDITOR
  append <text>       append a line to the current file
  revert              discard unsaved edits
  save                write unsaved edits
  envs                list environments of the current file
  env [name|-]        show, select or clear the environment
  requests            list requests of the current file
  run <n>             run request n
  runall              run every request of the saved file
  results             print the last results
  status              print workspace state
  history [n]         print recorded runs
  quit                leave the shell`

func shellCommand(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	warn := warnFunc(cmd, cfg)
	sh := &shell{
		out:          cmd.OutOrStdout(),
		console:      newConsole(cmd.OutOrStdout(), cfg),
		historyLimit: historyLimitFlag,
		editor:       externalEditor,
	}

	var svc backend.Service
	if remoteFlag != "" {
		client, err := rpc.Dial(ctx, remoteFlag)
		if err != nil {
			return withExitCode(ExitConfigError, err)
		}
		defer client.Close()
		svc = client
	} else {
		store := openSession(cfg, warn)
		if store != nil {
			defer store.Close()
		}
		local, err := openLocal(ctx, cfg, cfg.Root, store, warn)
		if err != nil {
			return withExitCode(ExitConfigError, err)
		}
		sh.history = local.History
		svc = local
	}

	opts := []workspace.Option{
		workspace.WithNoticeTTL(cfg.NoticeTTLDuration()),
		workspace.WithWarnFunc(warn),
	}

	var watcher *watch.Watcher
	if remoteFlag == "" && cfg.GetWatch() {
		watcher, err = watch.New(func() { sh.ws.Dispatch(workspace.RefreshFiles{}) }, watch.WithWarnFunc(warn))
		if err != nil {
			warn("file watching disabled: %v", err)
		} else {
			opts = append(opts, workspace.WithRootListener(watcher.Retarget))
		}
	}

	sh.ws = workspace.New(svc, opts...)
	go func() { _ = sh.ws.Run(ctx) }()
	if watcher != nil {
		go func() { _ = watcher.Run(ctx) }()
	}

	sh.ws.Dispatch(workspace.Initialize{})
	sh.settle()
	if cfg.DefaultEnvironment != "" {
		sh.ws.Dispatch(workspace.SetEnvironment{Name: cfg.DefaultEnvironment})
		sh.settle()
	}

	fmt.Fprintf(sh.out, "hitdesk %s. Type \"help\" for commands.\n", version)
	return sh.loop(ctx, cmd.InOrStdin())
}

// shell is a line-oriented front end for a workspace.
type shell struct {
	ws           *workspace.Workspace
	out          io.Writer
	console      *output.ConsoleFormatter
	history      func(ctx context.Context, limit int) ([]*session.Run, error)
	historyLimit int
	editor       func(content string) (string, error)
	lastNotice   uint64
}

func (s *shell) loop(ctx context.Context, in io.Reader) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		scanner.Buffer(make([]byte, 64*1024), 1<<20)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		s.prompt()
		select {
		case <-ctx.Done():
			fmt.Fprintln(s.out)
			return nil
		case line, ok := <-lines:
			if !ok {
				fmt.Fprintln(s.out)
				return nil
			}
			if s.handle(ctx, line) {
				return nil
			}
		}
	}
}

func (s *shell) prompt() {
	v := s.ws.Snapshot()
	if v == nil {
		return
	}
	name := "-"
	if f := v.SelectedFile(); f != "" {
		name = filepath.Base(f)
		if v.Dirty() {
			name += "*"
		}
	}
	env := v.Environment
	if env == "" {
		env = "no env"
	}
	fmt.Fprintf(s.out, "[%s | %s] > ", name, env)
}

// handle runs one command line and reports whether the shell should exit.
func (s *shell) handle(ctx context.Context, line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}
	name, args := fields[0], fields[1:]

	switch name {
	case "help", "?":
		fmt.Fprintln(s.out, shellHelp)
	case "quit", "exit":
		return true
	case "open":
		s.open(args)
	case "files":
		s.printFiles()
	case "refresh":
		s.dispatch(workspace.RefreshFiles{})
		s.printFiles()
	case "select":
		s.selectFile(args)
	case "close":
		s.dispatch(workspace.SelectNone{})
	case "show":
		s.show()
	case "edit":
		s.edit()
	case "append":
		s.appendLine(strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), name)))
	case "revert":
		v := s.ws.Snapshot()
		if v != nil && v.Editor.Selected() {
			s.dispatch(workspace.Edit{Content: v.Editor.Saved()})
		}
	case "save":
		s.dispatch(workspace.Save{})
	case "envs":
		s.printEnvironments()
	case "env":
		s.environment(args)
	case "requests":
		s.printRequests()
	case "run":
		s.run(args)
	case "runall":
		s.dispatch(workspace.RunAll{})
		s.printResults()
	case "results":
		s.printResults()
	case "status":
		s.status()
	case "history":
		s.printHistory(ctx, args)
	default:
		fmt.Fprintf(s.out, "unknown command %q, type \"help\" for commands\n", name)
	}
	return false
}

// dispatch sends cmd and waits until everything it started has finished.
func (s *shell) dispatch(cmd workspace.Command) {
	s.ws.Dispatch(cmd)
	s.settle()
}

// settle waits for outstanding work and prints a notice raised meanwhile.
func (s *shell) settle() {
	s.ws.Settle()
	v := s.ws.Snapshot()
	if v == nil || v.Notice == nil || v.Notice.Seq == s.lastNotice {
		return
	}
	s.lastNotice = v.Notice.Seq
	if v.Notice.Level == workspace.LevelError {
		fmt.Fprintf(s.out, "! %s\n", v.Notice.Message)
		return
	}
	fmt.Fprintln(s.out, v.Notice.Message)
}

func (s *shell) open(args []string) {
	if len(args) != 1 {
		fmt.Fprintln(s.out, "usage: open <dir>")
		return
	}
	path, err := filepath.Abs(args[0])
	if err != nil {
		s.console.FormatError(err)
		return
	}
	s.dispatch(workspace.SetRoot{Path: path})
	s.printFiles()
}

func (s *shell) printFiles() {
	v := s.ws.Snapshot()
	if v == nil {
		return
	}
	if p := v.FilesPlaceholder(); p != "" {
		fmt.Fprintln(s.out, p)
		return
	}
	for i, f := range v.Files {
		rel, err := filepath.Rel(v.Root, f.Path)
		if err != nil {
			rel = f.Path
		}
		fmt.Fprintf(s.out, "%3d  %s\n", i+1, rel)
	}
}

func (s *shell) selectFile(args []string) {
	if len(args) != 1 {
		fmt.Fprintln(s.out, "usage: select <n|path>")
		return
	}
	v := s.ws.Snapshot()
	if v == nil {
		return
	}

	var path string
	if n, err := strconv.Atoi(args[0]); err == nil {
		if n < 1 || n > len(v.Files) {
			fmt.Fprintf(s.out, "no file %d, %d files listed\n", n, len(v.Files))
			return
		}
		path = v.Files[n-1].Path
	} else {
		path = args[0]
		if !filepath.IsAbs(path) {
			path = filepath.Join(v.Root, path)
		}
	}

	s.dispatch(workspace.SelectFile{Path: path})
	s.printRequests()
}

func (s *shell) show() {
	v := s.ws.Snapshot()
	if v == nil {
		return
	}
	if !v.Editor.Selected() {
		fmt.Fprintln(s.out, workspace.NoSelectionPlaceholder)
		return
	}
	content := v.Editor.Current()
	fmt.Fprint(s.out, content)
	if !strings.HasSuffix(content, "\n") {
		fmt.Fprintln(s.out)
	}
}

func (s *shell) edit() {
	v := s.ws.Snapshot()
	if v == nil {
		return
	}
	if !v.Editor.Selected() {
		fmt.Fprintln(s.out, workspace.NoSelectionPlaceholder)
		return
	}
	content, err := s.editor(v.Editor.Current())
	if err != nil {
		s.console.FormatError(err)
		return
	}
	s.dispatch(workspace.Edit{Content: content})
}

func (s *shell) appendLine(text string) {
	v := s.ws.Snapshot()
	if v == nil {
		return
	}
	if !v.Editor.Selected() {
		fmt.Fprintln(s.out, workspace.NoSelectionPlaceholder)
		return
	}
	content := v.Editor.Current()
	if content != "" && !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	s.dispatch(workspace.Edit{Content: content + text + "\n"})
}

func (s *shell) printEnvironments() {
	v := s.ws.Snapshot()
	if v == nil {
		return
	}
	if len(v.Environments) == 0 {
		fmt.Fprintln(s.out, "No environments")
		return
	}
	for _, name := range v.Environments {
		marker := " "
		if name == v.Environment {
			marker = "*"
		}
		fmt.Fprintf(s.out, "%s %s\n", marker, name)
	}
}

func (s *shell) environment(args []string) {
	switch {
	case len(args) == 0:
		v := s.ws.Snapshot()
		if v == nil {
			return
		}
		if v.Environment == "" {
			fmt.Fprintln(s.out, "No environment selected")
			return
		}
		fmt.Fprintln(s.out, v.Environment)
	case args[0] == "-":
		s.dispatch(workspace.SetEnvironment{})
	default:
		s.dispatch(workspace.SetEnvironment{Name: args[0]})
	}
}

func (s *shell) printRequests() {
	v := s.ws.Snapshot()
	if v == nil {
		return
	}
	if p := v.RequestsPlaceholder(); p != "" {
		fmt.Fprintln(s.out, p)
		return
	}
	printRequests(s.out, v.Requests.Requests)
}

func (s *shell) run(args []string) {
	if len(args) != 1 {
		fmt.Fprintln(s.out, "usage: run <n>")
		return
	}
	n, err := strconv.Atoi(args[0])
	if err != nil || n < 1 {
		fmt.Fprintf(s.out, "invalid request number %q\n", args[0])
		return
	}
	v := s.ws.Snapshot()
	if v == nil {
		return
	}
	s.dispatch(workspace.RunRequest{Generation: v.Requests.Generation, Index: n - 1})
	s.printResults()
}

func (s *shell) printResults() {
	v := s.ws.Snapshot()
	if v == nil {
		return
	}
	s.console.FormatResults(v.Results)
}

func (s *shell) status() {
	v := s.ws.Snapshot()
	if v == nil {
		return
	}
	root := v.Root
	if root == "" {
		root = "(none)"
	}
	file := v.SelectedFile()
	switch {
	case file == "":
		file = "(none)"
	case v.Dirty():
		file += " (unsaved changes)"
	}
	env := v.Environment
	if env == "" {
		env = "(none)"
	}
	fmt.Fprintf(s.out, "Root:        %s\n", root)
	fmt.Fprintf(s.out, "File:        %s\n", file)
	fmt.Fprintf(s.out, "Environment: %s\n", env)
	if v.Running > 0 {
		fmt.Fprintf(s.out, "Running:     %d\n", v.Running)
	}
}

func (s *shell) printHistory(ctx context.Context, args []string) {
	if s.history == nil {
		fmt.Fprintln(s.out, "history is only available with a local backend")
		return
	}
	limit := s.historyLimit
	if len(args) == 1 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n < 1 {
			fmt.Fprintf(s.out, "invalid limit %q\n", args[0])
			return
		}
		limit = n
	}

	runs, err := s.history(ctx, limit)
	if err != nil {
		s.console.FormatError(err)
		return
	}
	if len(runs) == 0 {
		fmt.Fprintln(s.out, "No runs recorded")
		return
	}
	for _, r := range runs {
		status := output.FailedLabel
		if r.Success && r.Status != nil {
			status = strconv.Itoa(*r.Status)
		}
		fmt.Fprintf(s.out, "%s  %-7s %-6s %s  %s\n",
			r.CreatedAt.Local().Format("2006-01-02 15:04:05"), r.Method, status, r.URL, filepath.Base(r.File))
	}
}

// externalEditor opens content in the user's editor and returns the result.
func externalEditor(content string) (string, error) {
	f, err := os.CreateTemp("", "hitdesk-*.http")
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}
	name := f.Name()
	defer os.Remove(name)

	if _, err := f.WriteString(content); err != nil {
		f.Close()
		return "", fmt.Errorf("writing temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("writing temp file: %w", err)
	}

	editor := getEnvString("VISUAL", getEnvString("EDITOR", "vi"))
	parts := strings.Fields(editor)
	c := exec.Command(parts[0], append(parts[1:], name)...)
	c.Stdin, c.Stdout, c.Stderr = os.Stdin, os.Stdout, os.Stderr
	if err := c.Run(); err != nil {
		return "", fmt.Errorf("running %s: %w", parts[0], err)
	}

	data, err := os.ReadFile(name)
	if err != nil {
		return "", fmt.Errorf("reading edited file: %w", err)
	}
	return string(data), nil
}
