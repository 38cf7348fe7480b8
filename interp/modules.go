// interp/modules.go
package interp

import (
	"path/filepath"
	"strings"

	"simonwaldherr.de/go/kestrel/diag"
	"simonwaldherr.de/go/kestrel/grammar"
	"simonwaldherr.de/go/kestrel/source"
	"simonwaldherr.de/go/kestrel/value"
)

// Module is a file-level namespace: a topLevel scope bound to a source file.
type Module struct {
	Name  string
	Path  string
	Scope *Scope
	Code  []*grammar.Statement
	Host  bool
}

func newModule(name, path string) *Module {
	return &Module{Name: name, Path: path, Scope: newScope(grammar.ScopeTopLevel, 0, 0)}
}

func (m *Module) NamespaceName() string { return m.Name }

func (m *Module) Member(name string) (*value.Value, bool) {
	if m.Scope == nil {
		return nil, false
	}
	v, ok := m.Scope.Vars[name]
	return v, ok
}

func (m *Module) SetMember(name string, v *value.Value) error {
	if m.Scope == nil {
		return diag.Runtimef(diag.TagModule, "module '%s' has been released", m.Name)
	}
	cur, ok := m.Scope.Vars[name]
	if !ok {
		return diag.Runtimef(diag.TagName, "'%s' has no member '%s'", m.Name, name)
	}
	if cur.Readonly || m.Host {
		return diag.Runtimef(diag.TagReadonly, "member '%s.%s' is readonly", m.Name, name).WithInfo(diag.InfoReadonlyAssign)
	}
	cur.Assign(v)
	return nil
}

// destroy clears the variable table and detaches the file.
func (m *Module) destroy() {
	m.Scope.Vars = map[string]*value.Value{}
	m.Scope = nil
	m.Code = nil
}

// lookupModule finds an active or internal module.
func (vm *Interpreter) lookupModule(name string) (*Module, bool) {
	if m, ok := vm.modules[name]; ok {
		return m, true
	}
	m, ok := vm.internal[name]
	return m, ok
}

func modulePath(parts []string) string { return filepath.Join(parts...) }

func (vm *Interpreter) searchPaths(fr *Frame) []string {
	var dirs []string
	if fr != nil && fr.Module != nil && fr.Module.Path != "" {
		dirs = append(dirs, filepath.Dir(fr.Module.Path))
	}
	return append(dirs, vm.modulePaths...)
}

// acquire loads and executes a module. once turns an already loaded module
// into a no-op instead of an error.
func (vm *Interpreter) acquire(fr *Frame, parts []string, once bool) error {
	name := strings.Join(parts, ".")
	if _, ok := vm.internal[name]; ok {
		vm.log.Debug("internal module needs no acquire", "module", name)
		return nil
	}
	if _, ok := vm.modules[name]; ok {
		if once {
			return nil
		}
		return diag.Runtimef(diag.TagModule, "module '%s' is already loaded", name).WithInfo(diag.InfoModuleLoaded)
	}
	path, ok := source.Resolve(modulePath(parts), vm.searchPaths(fr))
	if !ok {
		return diag.Runtimef(diag.TagModule, "module '%s' not found", name).WithInfo(diag.InfoModuleMissing)
	}
	file, err := source.Load(path)
	if err != nil {
		return diag.Runtimef(diag.TagModule, "load module '%s': %v", name, err)
	}
	file.Name = name
	mod, err := vm.compileModule(file)
	if err != nil {
		return err
	}
	vm.modules[name] = mod
	vm.log.Info("module loaded", "module", name, "path", path)
	if err := vm.runModule(mod); err != nil {
		delete(vm.modules, name)
		return err
	}
	return nil
}

// release unloads a module; the executing and the entry module are kept.
func (vm *Interpreter) release(fr *Frame, parts []string) error {
	name := strings.Join(parts, ".")
	if _, ok := vm.internal[name]; ok {
		return diag.Runtimef(diag.TagIllegalOperation, "internal module '%s' cannot be released", name)
	}
	mod, ok := vm.modules[name]
	if !ok {
		return diag.Runtimef(diag.TagModule, "module '%s' is not loaded", name).WithInfo(diag.InfoModuleMissing)
	}
	if name == vm.entry || (fr.Module != nil && fr.Module.Name == name) {
		return diag.Runtimef(diag.TagIllegalOperation, "module '%s' is in use", name).WithInfo(diag.InfoReleaseActive)
	}
	for _, f := range vm.frames {
		if f.Module == mod {
			return diag.Runtimef(diag.TagIllegalOperation, "module '%s' is in use", name).WithInfo(diag.InfoReleaseActive)
		}
	}
	mod.destroy()
	delete(vm.modules, name)
	vm.log.Info("module released", "module", name)
	return nil
}
