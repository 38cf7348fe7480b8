// interp/evaluator.go
package interp

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/google/uuid"

	"simonwaldherr.de/go/kestrel/diag"
	"simonwaldherr.de/go/kestrel/expr"
	"simonwaldherr.de/go/kestrel/grammar"
	"simonwaldherr.de/go/kestrel/source"
	"simonwaldherr.de/go/kestrel/value"
)

// Run executes src as the entry module "main".
func (vm *Interpreter) Run(src string) error {
	return vm.RunContext(context.Background(), source.Parse("main", src))
}

// RunFile loads and executes the script at path as the entry module.
func (vm *Interpreter) RunFile(path string) error {
	file, err := source.Load(path)
	if err != nil {
		return diag.Runtimef(diag.TagModule, "%v", err).WithInfo(diag.InfoModuleMissing)
	}
	return vm.RunContext(context.Background(), file)
}

// RunContext executes file as the entry module. Cancelling ctx stops the run
// before the next statement.
func (vm *Interpreter) RunContext(ctx context.Context, file *source.File) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = vm.internalFault(r)
		}
	}()
	vm.ctx = ctx
	vm.exited = false
	mod, err := vm.compileModule(file)
	if err != nil {
		return err
	}
	if old, ok := vm.modules[file.Name]; ok && old != mod {
		vm.log.Debug("entry module replaced", "module", file.Name)
	}
	vm.entry = file.Name
	vm.modules[file.Name] = mod
	vm.log.Info("run", "module", file.Name, "statements", len(mod.Code))
	return vm.runModule(mod)
}

// Exited reports whether the last run ended with an exit statement.
func (vm *Interpreter) Exited() bool { return vm.exited }

func (vm *Interpreter) internalFault(r any) *diag.Error {
	id := uuid.NewString()
	vm.log.Error("internal fault", "incident", id, "panic", fmt.Sprint(r), "stack", string(debug.Stack()))
	de := diag.Criticalf(diag.TagInternal, "%v", r)
	de.Incident = id
	vm.frames = vm.frames[:0]
	return de
}

func (vm *Interpreter) compileModule(file *source.File) (*Module, error) {
	mod := newModule(file.Name, file.Path)
	code, err := vm.compile(file.Name, file.Pieces)
	if err != nil {
		return nil, err
	}
	mod.Code = code
	return mod, nil
}

func (vm *Interpreter) compile(name string, pieces []source.Piece) ([]*grammar.Statement, error) {
	code := make([]*grammar.Statement, 0, len(pieces))
	for _, p := range pieces {
		st, err := vm.matcher.Match(p.Text, p.Line)
		if err != nil {
			return nil, diag.Wrap(err).At(name, p.Line)
		}
		code = append(code, st)
	}
	return code, nil
}

func (vm *Interpreter) runModule(mod *Module) error {
	fr := newFrame(mod.Name, mod, mod.Code, mod.Scope)
	return vm.withFrame(fr, func() error { return vm.execFrame(fr) })
}

// withFrame keeps fr on the call stack while run executes.
func (vm *Interpreter) withFrame(fr *Frame, run func() error) error {
	vm.frames = append(vm.frames, fr)
	vm.log.Debug("frame push", "frame", frameLabel(fr), "depth", len(vm.frames))
	defer func() {
		vm.frames = vm.frames[:len(vm.frames)-1]
		vm.log.Debug("frame pop", "frame", frameLabel(fr), "depth", len(vm.frames))
	}()
	return run()
}

func frameLabel(fr *Frame) string {
	if fr.Module == nil || fr.Module.Name == fr.Name {
		return fr.Name
	}
	return fr.Name + " in " + fr.Module.Name
}

func fileOf(fr *Frame) string {
	if fr.Module == nil {
		return ""
	}
	return fr.Module.Name
}

// execFrame runs statements from the cursor until the code is exhausted, the
// frame returns, or the interpreter exits.
func (vm *Interpreter) execFrame(fr *Frame) error {
	for fr.Cursor < len(fr.Code) {
		if vm.exited || fr.stop {
			return nil
		}
		if err := vm.ctx.Err(); err != nil {
			return diag.Criticalf(diag.TagInterrupted, "execution interrupted: %v", err).At(fileOf(fr), fr.line())
		}
		st := fr.Code[fr.Cursor]
		fr.Cursor++
		if err := vm.step(fr, st); err != nil {
			de := diag.Wrap(err).At(fileOf(fr), st.Line)
			if de.Catchable() && vm.capture(fr, de) {
				continue
			}
			de.Trace = append(de.Trace, fmt.Sprintf("%s line %d", frameLabel(fr), st.Line))
			return de
		}
	}
	if vm.exited || fr.stop {
		return nil
	}
	return vm.leakCheck(fr)
}

func (vm *Interpreter) leakCheck(fr *Frame) error {
	if len(fr.Scopes) <= 1 {
		return nil
	}
	sc := fr.top()
	de := diag.Criticalf(diag.TagScopeLeak, "%s opened at line %d is never closed", sc.Kind, sc.StartLine).
		WithInfo(diag.InfoScopeLeak).At(fileOf(fr), sc.StartLine)
	de.Trace = append(de.Trace, frameLabel(fr))
	return de
}

// capture parks a catchable error on the innermost try scope of fr and
// silences everything above it.
func (vm *Interpreter) capture(fr *Frame, de *diag.Error) bool {
	i := fr.nearest(grammar.ScopeTry)
	if i < 0 {
		return false
	}
	fr.Scopes[i].err = de
	fr.ignoreFrom(i)
	vm.log.Debug("error captured", "tag", de.Tag, "line", de.Line)
	return true
}

// step dispatches one statement: recording, scope bookkeeping, then handler.
func (vm *Interpreter) step(fr *Frame, st *grammar.Statement) error {
	if rec := fr.top().rec; rec != nil {
		return vm.record(fr, rec, st)
	}
	switch {
	case st.Opens && st.Closes:
		return vm.border(fr, st)
	case st.Opens:
		return vm.open(fr, st)
	case st.Closes:
		return vm.closeScope(fr, st)
	}
	if fr.top().Ignore {
		return nil
	}
	return vm.dispatch(fr, st)
}

func (vm *Interpreter) dispatch(fr *Frame, st *grammar.Statement) error {
	h, ok := vm.handlers[st.Kind]
	if !ok {
		return diag.Criticalf(diag.TagInternal, "no handler for %s", st.Kind)
	}
	return h(fr, st)
}

// evalIn evaluates src while fr is the innermost frame.
func (vm *Interpreter) evalIn(fr *Frame, src string) (*value.Value, error) {
	if vm.current() != fr {
		return nil, diag.Criticalf(diag.TagInternal, "evaluation outside the active frame")
	}
	return vm.eval.Eval(src)
}

func (vm *Interpreter) evalBool(fr *Frame, src string) (bool, error) {
	v, err := vm.evalIn(fr, src)
	if err != nil {
		return false, err
	}
	if v.Kind() != value.KindBool {
		return false, diag.Runtimef(diag.TagType, "condition %q is %s, not Bool", src, v.Kind())
	}
	return v.Bool(), nil
}

// Resolve implements expr.Resolver: frame scopes, module tables,
// superglobals, then the owning file and host globals.
func (vm *Interpreter) Resolve(name string) (*value.Value, error) {
	v, ok := vm.lookup(vm.current(), name)
	if !ok {
		return nil, diag.Runtimef(diag.TagName, "unknown name '%s'", name)
	}
	if v.IsUnset() && !v.Unsetable {
		return nil, diag.Runtimef(diag.TagUnset, "variable '%s' is unset", name).WithInfo(diag.InfoUnsetRead)
	}
	return v, nil
}

func (vm *Interpreter) lookup(fr *Frame, name string) (*value.Value, bool) {
	if fr != nil {
		for i := len(fr.Scopes) - 1; i >= 0; i-- {
			if v, ok := fr.Scopes[i].Vars[name]; ok {
				return v, true
			}
		}
	}
	if m, ok := vm.lookupModule(name); ok {
		return value.NewModule(m), true
	}
	if v, ok := vm.superglobal[name]; ok {
		return v, true
	}
	if fr != nil && fr.Module != nil && fr.Module.Scope != nil {
		if v, ok := fr.Module.Scope.Vars[name]; ok {
			return v, true
		}
	}
	v, ok := vm.globals.Vars[name]
	return v, ok
}

// resolvePath walks a dotted identifier to the value it names.
func (vm *Interpreter) resolvePath(parts []string) (*value.Value, error) {
	v, err := vm.Resolve(parts[0])
	if err != nil {
		return nil, err
	}
	for _, p := range parts[1:] {
		if v, err = expr.Member(v, p); err != nil {
			return nil, err
		}
	}
	return v, nil
}

// ReadInput implements expr.Resolver for the console-read marker.
func (vm *Interpreter) ReadInput() (string, error) {
	line, ok := vm.ReadLine()
	if !ok {
		return "", diag.Runtimef(diag.TagValue, "console input exhausted")
	}
	return line, nil
}
