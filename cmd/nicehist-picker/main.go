// nicehist-picker is the interactive TUI front end for browsing predicted
// commands and frecency-ranked directories, meant to be bound to a shell
// widget (e.g. Ctrl-R) that inserts its stdout into the command line.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/runger/nicehist/internal/config"
	"github.com/runger/nicehist/internal/picker"
)

var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Exit codes match what shell widgets expect:
//
//	0 = selection made (use the result)
//	1 = cancelled by user OR invalid usage
//	2 = fallback to native history (no TTY, runtime error, etc.)
const (
	exitSuccess      = 0
	exitCancelled    = 1
	exitInvalidUsage = 1
	exitFallback     = 2
)

const (
	maxQueryLen  = 4096
	pickerErrFmt = "nicehist-picker: %v\n"
)

type pickerOpts struct {
	source string // "predict" or "frecent"
	limit  int
	query  string
	cwd    string
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if err := checkTTY(); err != nil {
		fmt.Fprintf(os.Stderr, pickerErrFmt, err)
		return exitFallback
	}
	if err := checkTERM(); err != nil {
		fmt.Fprintf(os.Stderr, pickerErrFmt, err)
		return exitFallback
	}
	if err := checkTermWidth(); err != nil {
		fmt.Fprintf(os.Stderr, pickerErrFmt, err)
		return exitFallback
	}

	paths := config.DefaultPaths()
	if err := paths.EnsureDirectories(); err != nil {
		fmt.Fprintf(os.Stderr, "nicehist-picker: failed to create state directory: %v\n", err)
		return exitFallback
	}

	lockPath := paths.BaseDir + "/picker.lock"
	lockFd, err := acquireLock(lockPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, pickerErrFmt, err)
		return exitFallback
	}
	defer releaseLock(lockFd)

	if len(args) == 0 {
		printUsage()
		return exitInvalidUsage
	}

	switch args[0] {
	case "history":
		// continue below; "history" is the only subcommand, kept for
		// symmetry with the hook/daemon invocation style.
	case "--help", "-h":
		printUsage()
		return exitSuccess
	case "--version", "-v":
		printVersion()
		return exitSuccess
	default:
		fmt.Fprintf(os.Stderr, "nicehist-picker: unknown command %q\n", args[0])
		printUsage()
		return exitInvalidUsage
	}

	opts, err := parseHistoryFlags(args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, pickerErrFmt, err)
		return exitInvalidUsage
	}
	if opts.cwd == "" {
		if cwd, err := os.Getwd(); err == nil {
			opts.cwd = cwd
		}
	}

	return dispatch(paths, opts)
}

func parseHistoryFlags(args []string) (*pickerOpts, error) {
	fs := flag.NewFlagSet("history", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	opts := &pickerOpts{}
	fs.StringVar(&opts.source, "source", "predict", "item source: predict or frecent")
	fs.IntVar(&opts.limit, "limit", 20, "number of items per page (positive integer)")
	fs.StringVar(&opts.query, "query", "", "initial search query (max 4096 bytes)")
	fs.StringVar(&opts.cwd, "cwd", "", "working directory for prediction context")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: nicehist-picker history [flags]\n\nFlags:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected argument: %s", fs.Arg(0))
	}
	if opts.limit <= 0 {
		return nil, fmt.Errorf("--limit must be a positive integer")
	}
	if opts.source != "predict" && opts.source != "frecent" {
		return nil, fmt.Errorf("--source must be \"predict\" or \"frecent\" (got %q)", opts.source)
	}

	sanitized, err := sanitizeQuery(opts.query)
	if err != nil {
		return nil, fmt.Errorf("--query: %w", err)
	}
	opts.query = sanitized

	return opts, nil
}

// sanitizeQuery strips control characters and safely truncates to
// maxQueryLen bytes without splitting UTF-8 runes.
func sanitizeQuery(q string) (string, error) {
	if q == "" {
		return "", nil
	}
	if strings.ContainsAny(q, "\n\r") {
		return "", fmt.Errorf("query must not contain newlines")
	}

	var b strings.Builder
	b.Grow(len(q))
	currentLen := 0
	for _, r := range q {
		if r >= 0x00 && r <= 0x1F && r != 0x09 {
			continue
		}
		runeLen := utf8.RuneLen(r)
		if currentLen+runeLen > maxQueryLen {
			break
		}
		b.WriteRune(r)
		currentLen += runeLen
	}
	return b.String(), nil
}

func socketPath(paths *config.Paths) string {
	if path := os.Getenv("NICEHIST_SOCKET"); path != "" {
		return path
	}
	cfg, err := config.Load()
	if err == nil && cfg.Daemon.SocketPath != "" {
		return cfg.Daemon.SocketPath
	}
	return paths.SocketFile()
}

// dispatch runs the built-in Bubble Tea TUI against the selected source.
func dispatch(paths *config.Paths, opts *pickerOpts) int {
	sock := socketPath(paths)

	var provider picker.Provider
	switch opts.source {
	case "frecent":
		provider = picker.NewFrecentProvider(sock, "d")
	default:
		provider = picker.NewPredictProvider(sock, opts.cwd)
	}

	model := picker.NewModel(provider).WithPageSize(opts.limit)
	if opts.query != "" {
		model = model.WithQuery(opts.query)
	}

	tty, err := os.OpenFile("/dev/tty", os.O_RDWR, 0)
	if err != nil {
		fmt.Fprintf(os.Stderr, "nicehist-picker: cannot open /dev/tty: %v\n", err)
		return exitFallback
	}
	defer tty.Close()

	// stdout is typically a pipe back to the shell widget, so lipgloss would
	// otherwise see no color support; detect the real profile from the tty.
	lipgloss.SetColorProfile(termenv.NewOutput(tty).ColorProfile())

	p := tea.NewProgram(model,
		tea.WithAltScreen(),
		tea.WithInput(tty),
		tea.WithOutput(tty),
	)

	finalModel, err := p.Run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "nicehist-picker: TUI error: %v\n", err)
		return exitFallback
	}

	m, ok := finalModel.(picker.Model)
	if !ok {
		fmt.Fprintln(os.Stderr, "nicehist-picker: unexpected model type")
		return exitFallback
	}

	if m.IsCancelled() {
		return exitCancelled
	}
	if result := m.Result(); result != "" {
		fmt.Fprintln(os.Stdout, result)
	}
	return exitSuccess
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `Usage: nicehist-picker <command> [flags]

Commands:
  history    Browse predicted commands or frecency-ranked directories

Flags:
  --source   predict (default) or frecent
  --help     Show this help message
  --version  Print version information`)
}

func printVersion() {
	fmt.Printf("nicehist-picker %s\n", Version)
	fmt.Printf("  commit: %s\n", GitCommit)
	fmt.Printf("  built:  %s\n", BuildDate)
}
