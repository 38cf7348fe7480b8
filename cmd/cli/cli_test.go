package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"simonwaldherr.de/go/kestrel/config"
	"simonwaldherr.de/go/kestrel/source"
)

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func runCLI(args ...string) (int, string, string) {
	var stdout, stderr strings.Builder
	code := run(args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestRunHelloWorld(t *testing.T) {
	path := writeTempFile(t, "hello.kes", `println("hello");`+"\n")
	code, out, errOut := runCLI(path)
	assert.Equal(t, exitOK, code, errOut)
	assert.Equal(t, "hello\n", out)
}

func TestRunExitCodes(t *testing.T) {
	cases := []struct {
		name string
		src  string
		code int
		want string
	}{
		{"script error", "$x = nope;\n", exitScript, "NameError"},
		{"syntax error", "this is not kestrel\n", exitScript, "UnknownStatement"},
		{"stack overflow", "func f():\n\tf();\n;\nf();\n", exitCritical, "StackOverflow"},
		{"scope leak", "do:\n\t$x = 1;\n", exitCritical, "ScopeLeak"},
		{"caught error", "try:\n\traise ValueError \"x\";\ncatch e:\n\tprintln(e.tag);\n;\n", exitOK, ""},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			path := writeTempFile(t, "case.kes", c.src)
			code, _, errOut := runCLI(path)
			assert.Equal(t, c.code, code, errOut)
			assert.Contains(t, errOut, c.want)
		})
	}
}

func TestRunWithConfig(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "util.kes"), []byte("$third = 1 / 3;\n"), 0o644))
	cfgPath := writeTempFile(t, "kestrel.yaml", "max_frames: 8\nmodule_paths:\n  - "+dir+"\ndirectives:\n  precision: \"2\"\n")
	script := writeTempFile(t, "main.kes", "acquire util;\nprintln(util.third);\n")

	code, out, errOut := runCLI("-config", cfgPath, script)
	assert.Equal(t, exitOK, code, errOut)
	assert.Equal(t, "0.33\n", out)

	deep := writeTempFile(t, "deep.kes", "func f(n):\n\tif n > 0:\n\t\tf(n - 1);\n\t;\n;\nf(20);\n")
	code, _, errOut = runCLI("-config", cfgPath, deep)
	assert.Equal(t, exitCritical, code)
	assert.Contains(t, errOut, "StackOverflow")
}

func TestRunRejectsBadInput(t *testing.T) {
	badCfg := writeTempFile(t, "bad.yaml", "max_frame: 3\n")
	script := writeTempFile(t, "ok.kes", "$x = 1;\n")

	for _, args := range [][]string{
		{},
		{"-config", badCfg, script},
		{"-log-level", "loud", script},
		{filepath.Join(t.TempDir(), "missing.kes")},
	} {
		code, _, _ := runCLI(args...)
		assert.Equal(t, exitScript, code, "%v", args)
	}
}

func TestRunSafeTimeout(t *testing.T) {
	cfg := config.Default()
	vm, err := newInterpreter(cfg, cfg.Logger(os.Stderr), os.Stdout, ".")
	require.NoError(t, err)
	start := time.Now()
	err = RunSafe(vm, source.Parse("spin", "while true:\n;\n"), 200*time.Millisecond)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Interrupted")
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestRunTimeoutFlag(t *testing.T) {
	path := writeTempFile(t, "spin.kes", "while true:\n;\n")
	code, _, errOut := runCLI("-timeout", "100ms", path)
	assert.Equal(t, exitCritical, code)
	assert.Contains(t, errOut, "Interrupted")
}

func TestFmtSubcommand(t *testing.T) {
	path := writeTempFile(t, "fmt.kes", "if true:\nprintln(1);\n;")
	code, out, errOut := runCLI("fmt", path)
	assert.Equal(t, exitOK, code, errOut)
	assert.Equal(t, "if true:\n\tprintln(1);\n;", out)

	bad := writeTempFile(t, "bad.kes", ";\n")
	code, _, _ = runCLI("fmt", bad)
	assert.Equal(t, exitScript, code)
}

func TestVetSubcommand(t *testing.T) {
	clean := writeTempFile(t, "clean.kes", "$x = 1;\nprintln(x);\n")
	code, out, _ := runCLI("vet", clean)
	assert.Equal(t, exitOK, code)
	assert.Empty(t, out)

	dirty := writeTempFile(t, "dirty.kes", "$x = 1;\nx = x;\n")
	code, out, _ = runCLI("vet", dirty)
	assert.Equal(t, exitScript, code)
	assert.Contains(t, out, "dirty.kes:2:1: self-assignment")
}

func TestSamples(t *testing.T) {
	cases := []struct {
		file string
		want []string
	}{
		{"hello.kes", []string{"hello from Kestrel", "[1, 4, 16, 25] 4", "KESTREL true"}},
		{"geometry.kes", []string{"rect 3x4 12", "number 7", `["h", "w"]`}},
		{"errors.kes", []string{"42", "caught ValueError: empty input", "0", "rethrown IndexError", "3.14"}},
	}
	for _, c := range cases {
		t.Run(c.file, func(t *testing.T) {
			code, out, errOut := runCLI(filepath.Join("..", "..", "samples", c.file))
			require.Equal(t, exitOK, code, errOut)
			assert.Equal(t, strings.Join(c.want, "\n")+"\n", out)
		})
	}

	for _, name := range []string{"hello.kes", "geometry.kes", "shapes.kes", "errors.kes"} {
		code, _, errOut := runCLI("vet", filepath.Join("..", "..", "samples", name))
		assert.Equal(t, exitOK, code, "%s: %s", name, errOut)
	}
}
