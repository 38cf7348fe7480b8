// interp/environment.go
package interp

import (
	"bufio"
	"context"
	"io"
	"log/slog"
	"os"
	"sort"

	"simonwaldherr.de/go/kestrel/expr"
	"simonwaldherr.de/go/kestrel/grammar"
	"simonwaldherr.de/go/kestrel/value"
)

// DefaultMaxFrames bounds recursion when no directive or option overrides it.
const DefaultMaxFrames = 256

// Interpreter owns the process-wide state: module tables, superglobals,
// host routines, operator table and directive slots.
type Interpreter struct {
	globals     *Scope
	superglobal map[string]*value.Value
	modules     map[string]*Module
	internal    map[string]*Module
	entry       string

	matcher *grammar.Matcher
	eval    *expr.Evaluator

	directives map[string]*directive
	precision  int
	maxFrames  int
	strict     bool

	frames      []*Frame
	modulePaths []string
	exited      bool
	ctx         context.Context

	out io.Writer
	in  *bufio.Reader
	log *slog.Logger

	handlers map[grammar.StatementKind]handler
}

// Option configures an Interpreter.
type Option func(*Interpreter)

func WithStdout(w io.Writer) Option { return func(vm *Interpreter) { vm.out = w } }

func WithStdin(r io.Reader) Option { return func(vm *Interpreter) { vm.in = bufio.NewReader(r) } }

func WithLogger(l *slog.Logger) Option {
	return func(vm *Interpreter) {
		if l != nil {
			vm.log = l
		}
	}
}

func WithMaxFrames(n int) Option {
	return func(vm *Interpreter) {
		if n > 0 {
			vm.maxFrames = n
		}
	}
}

// WithModulePaths sets the directories searched by acquire.
func WithModulePaths(dirs ...string) Option {
	return func(vm *Interpreter) { vm.modulePaths = append(vm.modulePaths, dirs...) }
}

// WithCatalog replaces the statement grammar.
func WithCatalog(c *grammar.Catalog) Option {
	return func(vm *Interpreter) { vm.matcher = grammar.NewMatcher(c) }
}

// WithOperators replaces the operator table.
func WithOperators(t *expr.Table) Option {
	return func(vm *Interpreter) { vm.eval = expr.New(vm, t) }
}

func NewInterpreter(opts ...Option) *Interpreter {
	vm := &Interpreter{
		globals:   newScope(grammar.ScopeInternal, 0, 0),
		modules:   map[string]*Module{},
		internal:  map[string]*Module{},
		matcher:   grammar.NewMatcher(nil),
		precision: -1,
		maxFrames: DefaultMaxFrames,
		ctx:       context.Background(),
		out:       os.Stdout,
		in:        bufio.NewReader(os.Stdin),
		log:       slog.New(slog.DiscardHandler),
	}
	vm.eval = expr.New(vm, nil)
	vm.superglobal = superglobals()
	vm.handlers = vm.handlerTable()
	for _, o := range opts {
		o(vm)
	}
	vm.directives = vm.directiveSlots()
	return vm
}

func (vm *Interpreter) Stdout() io.Writer    { return vm.out }
func (vm *Interpreter) Logger() *slog.Logger { return vm.log }
func (vm *Interpreter) Precision() int       { return vm.precision }

// Format renders v with the current precision directive.
func (vm *Interpreter) Format(v *value.Value) string { return v.Format(vm.precision) }

// ReadLine reads one line of console input without its newline.
func (vm *Interpreter) ReadLine() (string, bool) {
	line, err := vm.in.ReadString('\n')
	if err != nil && line == "" {
		return "", false
	}
	if n := len(line); n > 0 && line[n-1] == '\n' {
		line = line[:n-1]
		if n := len(line); n > 0 && line[n-1] == '\r' {
			line = line[:n-1]
		}
	}
	return line, true
}

// RegisterNative installs a global host routine taking raw values.
func (vm *Interpreter) RegisterNative(name string, f NativeFunc) {
	vm.registerFunc(vm.globals, &Function{Name: name, Returns: value.KindAny, Variadic: true, Native: f})
}

// RegisterPackage installs pkg as an internal module, or as global routines
// and constants when pkg has no name.
func (vm *Interpreter) RegisterPackage(pkg *Package) {
	target := vm.globals
	if pkg.Name != "" {
		mod := newModule(pkg.Name, "")
		mod.Host = true
		vm.internal[pkg.Name] = mod
		target = mod.Scope
	}
	for _, f := range pkg.Funcs {
		vm.registerFunc(target, f)
	}
	for name, v := range pkg.Vars {
		c := v.Copy()
		c.Readonly = true
		target.Vars[name] = c
	}
	vm.log.Debug("package registered", "name", pkg.Name, "funcs", len(pkg.Funcs), "vars", len(pkg.Vars))
}

func (vm *Interpreter) registerFunc(sc *Scope, f *Function) {
	fv := value.NewFunction(f)
	fv.Readonly = true
	sc.Vars[f.Signature()] = fv
}

// Modules lists active and internal module names.
func (vm *Interpreter) Modules() []string {
	names := make([]string, 0, len(vm.modules)+len(vm.internal))
	for n := range vm.modules {
		names = append(names, n)
	}
	for n := range vm.internal {
		names = append(names, n+" (internal)")
	}
	sort.Strings(names)
	return names
}

// Frames describes the live call stack, innermost last.
func (vm *Interpreter) Frames() []string {
	out := make([]string, len(vm.frames))
	for i, fr := range vm.frames {
		out[i] = frameLabel(fr)
	}
	return out
}

func (vm *Interpreter) current() *Frame {
	if len(vm.frames) == 0 {
		return nil
	}
	return vm.frames[len(vm.frames)-1]
}

// slot finds the storage of a plain variable: frame scopes innermost first,
// then the owning module's top-level scope.
func (vm *Interpreter) slot(fr *Frame, name string) (*value.Value, bool) {
	for i := len(fr.Scopes) - 1; i >= 0; i-- {
		if v, ok := fr.Scopes[i].Vars[name]; ok {
			return v, true
		}
	}
	if fr.Module != nil {
		if v, ok := fr.Module.Scope.Vars[name]; ok {
			return v, true
		}
	}
	return nil, false
}

// functionScopes lists the scopes searched for unqualified calls.
func (vm *Interpreter) functionScopes(fr *Frame) []*Scope {
	out := make([]*Scope, 0, len(fr.Scopes)+2)
	for i := len(fr.Scopes) - 1; i >= 0; i-- {
		out = append(out, fr.Scopes[i])
	}
	if fr.Module != nil {
		out = append(out, fr.Module.Scope)
	}
	return append(out, vm.globals)
}
