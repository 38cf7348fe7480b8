package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/peterh/liner"

	"simonwaldherr.de/go/kestrel/config"
	"simonwaldherr.de/go/kestrel/diag"
	"simonwaldherr.de/go/kestrel/interp"
	"simonwaldherr.de/go/kestrel/runtime"
)

const (
	banner     = "Kestrel REPL. Statements end with ';', blocks close with ';'. :quit to exit."
	promptMain = "kes> "
	promptCont = "...  "

	defaultHistory = ".kestrel_history"
)

func main() {
	configPath := flag.String("config", "", "YAML config file")
	logLevel := flag.String("log-level", "", "log level (debug, info, warn, error)")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			os.Exit(1)
		}
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	os.Exit(loop(cfg))
}

func historyPath(cfg *config.Config) string {
	if cfg.HistoryFile != "" {
		return os.ExpandEnv(cfg.HistoryFile)
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, defaultHistory)
}

func loop(cfg *config.Config) int {
	fmt.Println(banner)
	r, err := newREPL(cfg, os.Stdout, os.Stderr)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return 1
	}

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	histPath := historyPath(cfg)
	if f, err := os.Open(histPath); err == nil {
		_, _ = ln.ReadHistory(f)
		_ = f.Close()
	}
	defer func() {
		if f, err := os.Create(histPath); err == nil {
			_, _ = ln.WriteHistory(f)
			_ = f.Close()
		}
	}()

	for {
		line, err := ln.Prompt(r.prompt())
		if errors.Is(err, liner.ErrPromptAborted) {
			r.abort()
			continue
		}
		if err != nil {
			fmt.Println()
			return 0
		}
		if strings.TrimSpace(line) != "" {
			ln.AppendHistory(line)
		}
		// Ctrl-C while a statement runs interrupts only that input
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		quit := r.handle(ctx, line)
		stop()
		if quit {
			return 0
		}
	}
}

// repl holds one interactive session and its output streams.
type repl struct {
	id     string
	vm     *interp.Interpreter
	sess   *interp.Session
	out    io.Writer
	errOut io.Writer
	log    *slog.Logger
}

func newREPL(cfg *config.Config, out, errOut io.Writer) (*repl, error) {
	id := uuid.NewString()
	logger := cfg.Logger(errOut).With("session", id)
	cwd, _ := os.Getwd()
	vm := interp.NewInterpreter(
		interp.WithStdout(out),
		interp.WithLogger(logger),
		interp.WithMaxFrames(cfg.MaxFrames),
		interp.WithModulePaths(cfg.SearchPaths(cwd)...),
	)
	runtime.Install(vm)
	for _, name := range sortedKeys(cfg.Directives) {
		if err := vm.SetDirective(name, cfg.Directives[name]); err != nil {
			return nil, fmt.Errorf("directive %s: %w", name, err)
		}
	}
	logger.Info("repl session started")
	return &repl{id: id, vm: vm, sess: vm.NewSession("repl"), out: out, errOut: errOut, log: logger}, nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (r *repl) prompt() string {
	if r.sess.Pending() {
		return promptCont
	}
	return promptMain
}

// abort drops a half-entered block after Ctrl-C.
func (r *repl) abort() {
	if r.sess.Pending() {
		r.sess.Discard()
		fmt.Fprintln(r.out, "(block discarded)")
	}
}

// handle runs one input line and reports whether the session should end.
func (r *repl) handle(ctx context.Context, line string) (quit bool) {
	trimmed := strings.TrimSpace(line)
	if strings.HasPrefix(trimmed, ":") && !r.sess.Pending() {
		return r.command(strings.ToLower(trimmed))
	}
	if trimmed == "" && !r.sess.Pending() {
		return false
	}
	echo, err := r.sess.Feed(ctx, line)
	if err != nil {
		var de *diag.Error
		if errors.As(err, &de) {
			fmt.Fprint(r.errOut, de.Report())
		} else {
			fmt.Fprintln(r.errOut, "error:", err)
		}
		return false
	}
	if echo != "" {
		fmt.Fprintln(r.out, echo)
	}
	return r.sess.Exited()
}

func (r *repl) command(cmd string) bool {
	switch cmd {
	case ":quit", ":q":
		return true
	case ":frames":
		fr := r.sess.Frame()
		fmt.Fprintf(r.out, "%s: %d scope(s)\n", fr.Name, len(fr.Scopes))
		for _, sc := range fr.Scopes {
			names := make([]string, 0, len(sc.Vars))
			for n := range sc.Vars {
				names = append(names, n)
			}
			sort.Strings(names)
			fmt.Fprintf(r.out, "  %s: %s\n", sc.Kind, strings.Join(names, ", "))
		}
	case ":modules":
		for _, m := range r.vm.Modules() {
			fmt.Fprintln(r.out, m)
		}
	case ":session":
		fmt.Fprintln(r.out, r.id)
	default:
		fmt.Fprintln(r.out, "unknown command. Try :quit, :frames, :modules or :session.")
	}
	return false
}
