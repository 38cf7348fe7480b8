package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"simonwaldherr.de/go/kestrel/config"
	"simonwaldherr.de/go/kestrel/diag"
	"simonwaldherr.de/go/kestrel/interp"
	"simonwaldherr.de/go/kestrel/runtime"
	"simonwaldherr.de/go/kestrel/source"
)

const (
	exitOK       = 0
	exitScript   = 1
	exitCritical = 2
)

// grace is how long RunSafe waits for the interpreter to notice a
// cancelled context before giving up on it.
const grace = 100 * time.Millisecond

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func usage(fs *flag.FlagSet) func() {
	return func() {
		w := fs.Output()
		fmt.Fprintln(w, "usage: kestrel-cli [flags] <file.kes>")
		fmt.Fprintln(w, "       kestrel-cli fmt <file.kes>")
		fmt.Fprintln(w, "       kestrel-cli vet <file.kes>")
		fs.PrintDefaults()
	}
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) > 0 {
		switch args[0] {
		case "fmt":
			return runFmt(args[1:], stdout, stderr)
		case "vet":
			return runVet(args[1:], stdout, stderr)
		}
	}

	fs := flag.NewFlagSet("kestrel-cli", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = usage(fs)
	configPath := fs.String("config", "", "YAML config file")
	logLevel := fs.String("log-level", "", "log level (debug, info, warn, error)")
	timeout := fs.Duration("timeout", 10*time.Second, "maximum run time")
	if err := fs.Parse(args); err != nil {
		return exitScript
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return exitScript
	}

	cfg, err := loadConfig(*configPath, *logLevel)
	if err != nil {
		fmt.Fprintln(stderr, "error:", err)
		return exitScript
	}
	logger := cfg.Logger(stderr)
	slog.SetDefault(logger)

	path := fs.Arg(0)
	file, err := source.Load(path)
	if err != nil {
		fmt.Fprintln(stderr, "read error:", err)
		return exitScript
	}
	vm, err := newInterpreter(cfg, logger, stdout, filepath.Dir(path))
	if err != nil {
		fmt.Fprintln(stderr, "error:", err)
		return exitScript
	}
	return report(RunSafe(vm, file, *timeout), stderr)
}

func loadConfig(path, level string) (*config.Config, error) {
	cfg := config.Default()
	if path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return nil, err
		}
	}
	if level != "" {
		if _, err := config.ParseLevel(level); err != nil {
			return nil, err
		}
		cfg.LogLevel = level
	}
	return cfg, nil
}

// newInterpreter builds an interpreter with the standard library and the
// configured limits, search paths and initial directives.
func newInterpreter(cfg *config.Config, logger *slog.Logger, stdout io.Writer, base string) (*interp.Interpreter, error) {
	vm := interp.NewInterpreter(
		interp.WithStdout(stdout),
		interp.WithLogger(logger),
		interp.WithMaxFrames(cfg.MaxFrames),
		interp.WithModulePaths(cfg.SearchPaths(base)...),
	)
	runtime.Install(vm)

	names := make([]string, 0, len(cfg.Directives))
	for name := range cfg.Directives {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := vm.SetDirective(name, cfg.Directives[name]); err != nil {
			return nil, fmt.Errorf("directive %s: %w", name, err)
		}
	}
	return vm, nil
}

// RunSafe executes file with a context-based timeout. It recovers from
// panics so the host application is never crashed by a script.
func RunSafe(vm *interp.Interpreter, file *source.File, timeout time.Duration) (retErr error) {
	defer func() {
		if r := recover(); r != nil {
			retErr = diag.Criticalf(diag.TagInternal, "panic recovered: %v", r)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- vm.RunContext(ctx, file)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		// the interpreter stops at the next statement; a blocked host
		// routine is abandoned
		select {
		case <-done:
		case <-time.After(grace):
		}
		return diag.Criticalf(diag.TagInterrupted, "execution timed out after %s", timeout)
	}
}

// report prints err and maps it to the process exit code.
func report(err error, stderr io.Writer) int {
	if err == nil {
		return exitOK
	}
	var de *diag.Error
	if !errors.As(err, &de) {
		fmt.Fprintln(stderr, "error:", err)
		return exitScript
	}
	fmt.Fprint(stderr, de.Report())
	if de.Category == diag.Critical {
		return exitCritical
	}
	return exitScript
}

func readArg(args []string, stderr io.Writer) (string, bool) {
	if len(args) != 1 {
		fmt.Fprintln(stderr, "expected exactly one file")
		return "", false
	}
	src, err := os.ReadFile(args[0])
	if err != nil {
		fmt.Fprintln(stderr, "read error:", err)
		return "", false
	}
	return string(src), true
}

func runFmt(args []string, stdout, stderr io.Writer) int {
	src, ok := readArg(args, stderr)
	if !ok {
		return exitScript
	}
	out, err := interp.FormatSource(src)
	if err != nil {
		fmt.Fprintln(stderr, "fmt:", err)
		return exitScript
	}
	fmt.Fprint(stdout, out)
	return exitOK
}

func runVet(args []string, stdout, stderr io.Writer) int {
	src, ok := readArg(args, stderr)
	if !ok {
		return exitScript
	}
	issues, err := interp.VetSource(src)
	if err != nil {
		fmt.Fprintln(stderr, "vet:", err)
		return exitScript
	}
	for _, issue := range issues {
		fmt.Fprintf(stdout, "%s:%s\n", args[0], issue)
	}
	if len(issues) > 0 {
		return exitScript
	}
	return exitOK
}
