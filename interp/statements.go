// interp/statements.go
package interp

import (
	"strings"
	"unicode"

	"simonwaldherr.de/go/kestrel/diag"
	"simonwaldherr.de/go/kestrel/expr"
	"simonwaldherr.de/go/kestrel/grammar"
	"simonwaldherr.de/go/kestrel/value"
)

type handler func(fr *Frame, st *grammar.Statement) error

func (vm *Interpreter) handlerTable() map[grammar.StatementKind]handler {
	return map[grammar.StatementKind]handler{
		grammar.StmtDirective:   vm.execDirective,
		grammar.StmtDeclare:     vm.execDeclare,
		grammar.StmtIf:          vm.execIf,
		grammar.StmtElseIf:      vm.execIf,
		grammar.StmtElse:        noop,
		grammar.StmtWhile:       vm.execWhile,
		grammar.StmtBreak:       vm.execBreak,
		grammar.StmtContinue:    vm.execBreak,
		grammar.StmtFunction:    vm.execFunction,
		grammar.StmtReturn:      vm.execReturn,
		grammar.StmtClass:       vm.execClass,
		grammar.StmtTry:         noop,
		grammar.StmtCatch:       noop,
		grammar.StmtBlock:       noop,
		grammar.StmtAcquireOnce: vm.execAcquire,
		grammar.StmtAcquire:     vm.execAcquire,
		grammar.StmtRelease:     vm.execRelease,
		grammar.StmtRaise:       vm.execRaise,
		grammar.StmtRethrow:     vm.execRethrow,
		grammar.StmtAssert:      vm.execAssert,
		grammar.StmtExit:        vm.execExit,
		grammar.StmtClear:       vm.execClear,
		grammar.StmtCompound:    vm.execCompound,
		grammar.StmtIndexAssign: vm.execIndexAssign,
		grammar.StmtAssign:      vm.execAssign,
		grammar.StmtCall:        vm.execCall,
	}
}

func noop(*Frame, *grammar.Statement) error { return nil }

func exprText(st *grammar.Statement) string {
	t, _ := st.First(grammar.TokExpression)
	return t.Text
}

func identParts(st *grammar.Statement) []string {
	t, _ := st.First(grammar.TokIdentifier)
	return t.Parts
}

func (vm *Interpreter) execDirective(fr *Frame, st *grammar.Statement) error {
	name, _ := st.First(grammar.TokDeclIdent)
	v, err := vm.evalIn(fr, exprText(st))
	if err != nil {
		return err
	}
	return vm.setDirective(name.Text, v)
}

func (vm *Interpreter) execDeclare(fr *Frame, st *grammar.Statement) error {
	name, _ := st.First(grammar.TokDeclIdent)
	sc := fr.top()
	if old, exists := sc.Vars[name.Text]; exists && vm.strict {
		return diag.Runtimef(diag.TagName, "variable '%s' is already declared in this scope", name.Text).WithInfo(diag.InfoRedeclare)
	} else if exists && old.Readonly {
		return diag.Runtimef(diag.TagReadonly, "variable '%s' is readonly", name.Text).WithInfo(diag.InfoReadonlyAssign)
	}
	v := value.NewUnset()
	if st.HasSyntax("=") {
		res, err := vm.evalIn(fr, exprText(st))
		if err != nil {
			return err
		}
		v = res.Copy()
	}
	v.Unsetable = st.HasSyntax("?")
	v.Readonly = st.HasSyntax("!")
	sc.Vars[name.Text] = v
	return nil
}

func (vm *Interpreter) execIf(fr *Frame, st *grammar.Statement) error {
	ok, err := vm.evalBool(fr, exprText(st))
	if err != nil {
		return err
	}
	sc := fr.top()
	sc.Ignore = !ok
	sc.ifState = ifFailed
	if ok {
		sc.ifState = ifPassed
	}
	return nil
}

func (vm *Interpreter) execWhile(fr *Frame, st *grammar.Statement) error {
	sc := fr.top()
	sc.cond = exprText(st)
	ok, err := vm.evalBool(fr, sc.cond)
	if err != nil {
		return err
	}
	sc.Ignore = !ok
	return nil
}

// execBreak silences every scope up to the nearest loop; continue also asks
// the loop to re-test its condition when it closes.
func (vm *Interpreter) execBreak(fr *Frame, st *grammar.Statement) error {
	i := fr.nearest(grammar.ScopeLoop)
	if i < 0 {
		return diag.Runtimef(diag.TagIllegalOperation, "%s outside of a loop", strings.ToLower(st.Kind.String())).
			WithInfo(diag.InfoBreakOutsideLoop)
	}
	fr.ignoreFrom(i)
	fr.Scopes[i].continuing = st.Kind == grammar.StmtContinue
	return nil
}

func (vm *Interpreter) execFunction(fr *Frame, st *grammar.Statement) error {
	sc := fr.top()
	parent := fr.Scopes[len(fr.Scopes)-2]
	names := st.All(grammar.TokDeclIdent)
	name := names[0].Text
	if parent.Kind != grammar.ScopeTopLevel && parent.Kind != grammar.ScopeClass {
		return diag.Syntaxf(diag.TagIllegalOperation, "function '%s' cannot be declared in %s", name, parent.Kind).
			WithInfo(diag.InfoFunctionPlacement)
	}
	fn := &Function{
		Name:        name,
		File:        fileOf(fr),
		Returns:     value.KindAny,
		StartLine:   st.Line,
		Constructor: parent.Kind == grammar.ScopeClass && name == "init",
		module:      fr.Module,
	}
	args, _ := st.First(grammar.TokArgs)
	for i, part := range args.Parts {
		p, variadic, err := parseParam(part)
		if err != nil {
			return err
		}
		if variadic && i != len(args.Parts)-1 {
			return diag.Syntaxf(diag.TagInvalidExpression, "variadic parameter '%s' must come last", p.Name)
		}
		fn.Variadic = fn.Variadic || variadic
		fn.Params = append(fn.Params, p)
	}
	if st.HasSyntax("->") && len(names) > 1 {
		k, ok := value.KindByName(names[1].Text)
		if !ok {
			return diag.Syntaxf(diag.TagType, "unknown return kind '%s'", names[1].Text)
		}
		fn.Returns = k
	}
	sc.rec.fn = fn
	return nil
}

// parseParam reads "name", "name Kind" or "name..." from a parameter list.
func parseParam(part string) (Param, bool, error) {
	fields := strings.Fields(part)
	if len(fields) == 0 || len(fields) > 2 {
		return Param{}, false, diag.Syntaxf(diag.TagInvalidExpression, "invalid parameter %q", part)
	}
	name, variadic := strings.CutSuffix(fields[0], "...")
	if !validName(name) {
		return Param{}, false, diag.Syntaxf(diag.TagInvalidExpression, "invalid parameter name %q", fields[0])
	}
	p := Param{Name: name, Kind: value.KindAny}
	if len(fields) == 2 {
		k, ok := value.KindByName(fields[1])
		if !ok {
			return Param{}, false, diag.Syntaxf(diag.TagType, "unknown parameter kind '%s'", fields[1])
		}
		p.Kind = k
	}
	if variadic {
		p.Kind = value.KindArray
	}
	return p, variadic, nil
}

func validName(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		if r == '_' || unicode.IsLetter(r) || (i > 0 && unicode.IsDigit(r)) {
			continue
		}
		return false
	}
	return true
}

func (vm *Interpreter) execReturn(fr *Frame, st *grammar.Statement) error {
	if !fr.top().InFunction || fr.fn == nil {
		return diag.Runtimef(diag.TagIllegalOperation, "return outside of a function")
	}
	ret := value.NewNone()
	if src := exprText(st); src != "" {
		v, err := vm.evalIn(fr, src)
		if err != nil {
			return err
		}
		ret = v.Copy()
	}
	if !kindFits(fr.fn.Returns, ret.Kind()) {
		return diag.Runtimef(diag.TagType, "%s returns %s, got %s", fr.fn.Name, fr.fn.Returns, ret.Kind())
	}
	fr.ret, fr.stop = ret, true
	return nil
}

// kindFits reports whether a value of kind got satisfies a declared kind.
func kindFits(want, got value.Kind) bool {
	switch {
	case want == value.KindAny || want == got:
		return true
	case want == value.KindNumber && got == value.KindInt:
		return true
	case want == value.KindInt && got == value.KindNumber:
		return true
	}
	return false
}

func (vm *Interpreter) execClass(fr *Frame, st *grammar.Statement) error {
	name, _ := st.First(grammar.TokDeclIdent)
	fr.top().name = name.Text
	return nil
}

func (vm *Interpreter) execAcquire(fr *Frame, st *grammar.Statement) error {
	return vm.acquire(fr, identParts(st), st.Kind == grammar.StmtAcquireOnce)
}

func (vm *Interpreter) execRelease(fr *Frame, st *grammar.Statement) error {
	return vm.release(fr, identParts(st))
}

func (vm *Interpreter) execRaise(fr *Frame, st *grammar.Statement) error {
	tag, _ := st.First(grammar.TokDeclIdent)
	lit, _ := st.First(grammar.TokString)
	msg, err := value.Unquote(lit.Text)
	if err != nil {
		return err
	}
	return diag.Runtimef(tag.Text, "%s", msg)
}

func (vm *Interpreter) execRethrow(fr *Frame, st *grammar.Statement) error {
	v, err := vm.evalIn(fr, exprText(st))
	if err != nil {
		return err
	}
	if v.Kind() != value.KindError {
		return diag.Runtimef(diag.TagType, "raise expects an Error value, got %s", v.Kind())
	}
	e := *v.Err()
	e.Trace = nil
	return &e
}

func (vm *Interpreter) execAssert(fr *Frame, st *grammar.Statement) error {
	exprs := st.All(grammar.TokExpression)
	first, err := vm.evalIn(fr, exprs[0].Text)
	if err != nil {
		return err
	}
	if len(exprs) == 1 {
		if first.Kind() == value.KindBool && first.Bool() {
			return nil
		}
		de := diag.Runtimef(diag.TagAssertion, "assertion %q failed", exprs[0].Text)
		de.Expected, de.Actual = "true", vm.Format(first)
		return de
	}
	second, err := vm.evalIn(fr, exprs[1].Text)
	if err != nil {
		return err
	}
	want, got := vm.Format(first), vm.Format(second)
	if want == got {
		return nil
	}
	de := diag.Runtimef(diag.TagAssertion, "assertion failed: %s != %s", exprs[0].Text, exprs[1].Text)
	de.Expected, de.Actual = want, got
	return de
}

func (vm *Interpreter) execExit(fr *Frame, st *grammar.Statement) error {
	vm.exited = true
	vm.log.Info("exit", "frame", frameLabel(fr), "line", st.Line)
	return nil
}

func (vm *Interpreter) execClear(fr *Frame, st *grammar.Statement) error {
	target, err := vm.writable(fr, identParts(st))
	if err != nil {
		return err
	}
	return target.Clear()
}

func (vm *Interpreter) execCompound(fr *Frame, st *grammar.Statement) error {
	target, err := vm.writable(fr, identParts(st))
	if err != nil {
		return err
	}
	if target.IsUnset() {
		return diag.Runtimef(diag.TagUnset, "variable '%s' is unset", strings.Join(identParts(st), ".")).WithInfo(diag.InfoUnsetRead)
	}
	rhs, err := vm.evalIn(fr, exprText(st))
	if err != nil {
		return err
	}
	for _, op := range []string{"+=", "-=", "*=", "/="} {
		if st.HasSyntax(op) {
			return target.Compound(op, rhs)
		}
	}
	return diag.Criticalf(diag.TagInternal, "compound statement without operator")
}

func (vm *Interpreter) execIndexAssign(fr *Frame, st *grammar.Statement) error {
	target, err := vm.writable(fr, identParts(st))
	if err != nil {
		return err
	}
	idxTok, _ := st.First(grammar.TokIndex)
	idx, err := vm.evalIn(fr, idxTok.Text)
	if err != nil {
		return err
	}
	rhs, err := vm.evalIn(fr, exprText(st))
	if err != nil {
		return err
	}
	return target.SetIndex(idx, rhs)
}

func (vm *Interpreter) execAssign(fr *Frame, st *grammar.Statement) error {
	parts := identParts(st)
	rhs, err := vm.evalIn(fr, exprText(st))
	if err != nil {
		return err
	}
	if len(parts) > 1 {
		owner, err := vm.resolvePath(parts[:len(parts)-1])
		if err != nil {
			return err
		}
		ns, err := namespaceOf(owner)
		if err != nil {
			return err
		}
		return ns.SetMember(parts[len(parts)-1], rhs)
	}
	target, err := vm.writable(fr, parts)
	if err != nil {
		return err
	}
	target.Assign(rhs)
	return nil
}

func namespaceOf(v *value.Value) (value.Namespace, error) {
	switch v.Kind() {
	case value.KindModule:
		return v.Namespace(), nil
	case value.KindGroupType:
		return v.Group(), nil
	}
	return nil, diag.Runtimef(diag.TagType, "%s has no members", v.Kind())
}

// writable finds the live storage named by parts and rejects readonly slots.
func (vm *Interpreter) writable(fr *Frame, parts []string) (*value.Value, error) {
	name := strings.Join(parts, ".")
	var target *value.Value
	if len(parts) == 1 {
		v, ok := vm.slot(fr, parts[0])
		if !ok {
			if _, sg := vm.superglobal[parts[0]]; sg {
				return nil, diag.Runtimef(diag.TagReadonly, "'%s' is a constant", name).WithInfo(diag.InfoReadonlyAssign)
			}
			return nil, diag.Runtimef(diag.TagName, "unknown variable '%s'", name)
		}
		target = v
	} else {
		owner, err := vm.resolvePath(parts[:len(parts)-1])
		if err != nil {
			return nil, err
		}
		ns, err := namespaceOf(owner)
		if err != nil {
			return nil, err
		}
		v, ok := ns.Member(parts[len(parts)-1])
		if !ok {
			return nil, diag.Runtimef(diag.TagName, "'%s' has no member '%s'", ns.NamespaceName(), parts[len(parts)-1])
		}
		if m, isMod := ns.(*Module); isMod && m.Host {
			return nil, diag.Runtimef(diag.TagReadonly, "member '%s' is readonly", name).WithInfo(diag.InfoReadonlyAssign)
		}
		target = v
	}
	if target.Readonly {
		return nil, diag.Runtimef(diag.TagReadonly, "'%s' is readonly", name).WithInfo(diag.InfoReadonlyAssign)
	}
	return target, nil
}

func (vm *Interpreter) execCall(fr *Frame, st *grammar.Statement) error {
	parts := identParts(st)
	argTok, _ := st.First(grammar.TokArgs)
	args, err := vm.evalArgs(fr, argTok.Parts)
	if err != nil {
		return err
	}
	var recv *value.Value
	if len(parts) > 1 {
		if recv, err = vm.resolvePath(parts[:len(parts)-1]); err != nil {
			return err
		}
	}
	_, err = vm.Invoke(parts[len(parts)-1], recv, args)
	return err
}

func (vm *Interpreter) evalArgs(fr *Frame, srcs []string) ([]*value.Value, error) {
	if vm.current() != fr {
		return nil, diag.Criticalf(diag.TagInternal, "evaluation outside the active frame")
	}
	return vm.eval.EvalAll(srcs)
}

var _ expr.Resolver = (*Interpreter)(nil)
