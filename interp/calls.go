// interp/calls.go
package interp

import (
	"simonwaldherr.de/go/kestrel/diag"
	"simonwaldherr.de/go/kestrel/grammar"
	"simonwaldherr.de/go/kestrel/value"
)

// maxMaskArgs bounds the Any-substitution search; longer calls only try the
// exact and the variadic signature.
const maxMaskArgs = 8

// candidates lists signatures in resolution order: exact, then Any
// substitutions by increasing count and left to right, then variadic.
func candidates(name string, args []*value.Value) []string {
	kinds := make([]value.Kind, len(args))
	for i, a := range args {
		kinds[i] = a.Kind()
	}
	out := []string{signature(name, kinds)}
	if n := len(kinds); n > 0 && n <= maxMaskArgs {
		for count := 1; count <= n; count++ {
			combinations(n, count, func(pos []int) {
				masked := append([]value.Kind(nil), kinds...)
				for _, p := range pos {
					masked[p] = value.KindAny
				}
				out = append(out, signature(name, masked))
			})
		}
	}
	return append(out, variadicSignature(name))
}

// combinations calls fn with every ascending k-subset of 0..n-1 in
// lexicographic order.
func combinations(n, k int, fn func([]int)) {
	pos := make([]int, k)
	var rec func(start, depth int)
	rec = func(start, depth int) {
		if depth == k {
			fn(pos)
			return
		}
		for i := start; i <= n-(k-depth); i++ {
			pos[depth] = i
			rec(i+1, depth+1)
		}
	}
	rec(0, 0)
}

// findOverload searches the tables in order for the first candidate
// signature; every table is tried for one candidate before the next.
func findOverload(tables []map[string]*value.Value, name string, args []*value.Value) (*Function, bool) {
	for _, sig := range candidates(name, args) {
		for _, t := range tables {
			if v, ok := t[sig]; ok && v.Kind() == value.KindFunction {
				if fn, ok := v.Callable().(*Function); ok && fn.accepts(len(args)) {
					return fn, true
				}
			}
		}
	}
	return nil, false
}

func noOverload(name string, args []*value.Value) *diag.Error {
	return diag.Runtimef(diag.TagOverload, "no overload of %s", candidates(name, args)[0]).WithInfo(diag.InfoNoOverload)
}

// Invoke implements expr.Resolver. recv is a module, class or instance for
// qualified calls.
func (vm *Interpreter) Invoke(name string, recv *value.Value, args []*value.Value) (*value.Value, error) {
	if recv == nil {
		return vm.invokeFree(name, args)
	}
	switch recv.Kind() {
	case value.KindModule:
		mod, ok := recv.Namespace().(*Module)
		if !ok || mod.Scope == nil {
			return nil, diag.Runtimef(diag.TagModule, "module '%s' is not active", recv.Namespace().NamespaceName())
		}
		fn, ok := findOverload([]map[string]*value.Value{mod.Scope.Vars}, name, args)
		if !ok {
			if cls, ok := mod.Scope.Vars[name]; ok && cls.Kind() == value.KindGroupType && !cls.Group().Instance {
				return vm.construct(cls.Group(), args)
			}
			return nil, noOverload(mod.Name+"."+name, args)
		}
		return vm.callFunction(fn, nil, args)
	case value.KindGroupType:
		fn, ok := findOverload([]map[string]*value.Value{recv.Group().Members}, name, args)
		if !ok {
			return nil, noOverload(recv.Group().Name+"."+name, args)
		}
		return vm.callFunction(fn, recv, args)
	}
	return nil, diag.Runtimef(diag.TagType, "%s has no routine '%s'", recv.Kind(), name)
}

func (vm *Interpreter) invokeFree(name string, args []*value.Value) (*value.Value, error) {
	fr := vm.current()
	var tables []map[string]*value.Value
	if fr != nil {
		for _, sc := range vm.functionScopes(fr) {
			tables = append(tables, sc.Vars)
		}
	} else {
		tables = append(tables, vm.globals.Vars)
	}
	if fn, ok := findOverload(tables, name, args); ok {
		return vm.callFunction(fn, nil, args)
	}
	if cls, ok := vm.lookup(fr, name); ok && cls.Kind() == value.KindGroupType && !cls.Group().Instance {
		return vm.construct(cls.Group(), args)
	}
	return nil, noOverload(name, args)
}

// construct instantiates a class and runs a matching init.
func (vm *Interpreter) construct(g *value.Group, args []*value.Value) (*value.Value, error) {
	inst := value.NewGroup(g.Instantiate())
	fn, ok := findOverload([]map[string]*value.Value{inst.Group().Members}, "init", args)
	if !ok {
		if len(args) > 0 {
			return nil, noOverload(g.Name+".init", args)
		}
		return inst, nil
	}
	if _, err := vm.callFunction(fn, inst, args); err != nil {
		return nil, err
	}
	return inst, nil
}

func (vm *Interpreter) callFunction(fn *Function, self *value.Value, args []*value.Value) (*value.Value, error) {
	if fn.IsNative() {
		return vm.callHost(fn, args)
	}
	return vm.callUser(fn, self, args)
}

func (vm *Interpreter) callHost(fn *Function, args []*value.Value) (*value.Value, error) {
	raw := make([]any, len(args))
	for i, a := range args {
		pk := ParamValue
		if !fn.Variadic && i < len(fn.NativeParams) {
			pk = fn.NativeParams[i]
		}
		v, err := marshal(a, pk)
		if err != nil {
			return nil, err
		}
		raw[i] = v
	}
	res, err := fn.Native(raw)
	if err != nil {
		return nil, diag.Wrap(err)
	}
	return value.FromHost(res, fn.Returns)
}

// marshal converts a runtime value to the native parameter kind.
func marshal(v *value.Value, pk ParamKind) (any, error) {
	switch pk {
	case ParamString:
		if v.Kind() == value.KindString {
			return v.Str(), nil
		}
		return v.Display(), nil
	case ParamBool:
		if v.Kind() == value.KindBool {
			return v.Bool(), nil
		}
	case ParamInt:
		if n, ok := v.Integer(); ok {
			return n, nil
		}
	case ParamFloat:
		if f, ok := v.Float(); ok {
			return f, nil
		}
	default:
		return v, nil
	}
	return nil, diag.Runtimef(diag.TagConversion, "cannot pass %s as %s", v.Kind(), pk.Kind())
}

func (vm *Interpreter) callUser(fn *Function, self *value.Value, args []*value.Value) (*value.Value, error) {
	if len(vm.frames) >= vm.maxFrames {
		return nil, diag.Criticalf(diag.TagStackOverflow, "call depth exceeds %d frames calling %s", vm.maxFrames, fn.Signature()).
			WithInfo(diag.InfoStackOverflow)
	}
	base := newScope(grammar.ScopeFunction, fn.StartLine, -1)
	base.InFunction = true
	if self != nil {
		base.Vars["self"] = self
	}
	for i, p := range fn.Params {
		if fn.Variadic && i == len(fn.Params)-1 {
			rest := make([]*value.Value, 0, max(len(args)-i, 0))
			for _, a := range args[min(i, len(args)):] {
				rest = append(rest, a.Copy())
			}
			base.Vars[p.Name] = value.NewArray(rest)
			break
		}
		if i < len(args) {
			base.Vars[p.Name] = args[i].Copy()
		} else {
			base.Vars[p.Name] = value.NewUnset()
		}
	}
	fr := newFrame(fn.Name, fn.module, fn.Body, base)
	fr.fn = fn
	if err := vm.withFrame(fr, func() error { return vm.execFrame(fr) }); err != nil {
		return nil, err
	}
	if fn.Constructor && self != nil {
		return self, nil
	}
	if fr.ret == nil {
		if !kindFits(fn.Returns, value.KindNone) {
			return nil, diag.Runtimef(diag.TagType, "%s returns %s, got None", fn.Name, fn.Returns)
		}
		return value.NewNone(), nil
	}
	return fr.ret, nil
}
