// interp/scopes.go
package interp

import (
	"simonwaldherr.de/go/kestrel/diag"
	"simonwaldherr.de/go/kestrel/grammar"
	"simonwaldherr.de/go/kestrel/value"
)

// open pushes the scope of an opening statement. The handler only runs when
// the enclosing scope is live.
func (vm *Interpreter) open(fr *Frame, st *grammar.Statement) error {
	parent := fr.top()
	sc := newScope(st.Scope, st.Line, fr.Cursor-1)
	sc.InFunction = parent.InFunction
	sc.InTry = parent.InTry || st.Scope == grammar.ScopeTry
	if parent.Ignore {
		sc.Ignore = true
		sc.ifState = ifDead
	}
	if st.Kind == grammar.StmtFunction {
		sc.InFunction = true
		sc.rec = &recording{}
	}
	fr.push(sc)
	if parent.Ignore {
		return nil
	}
	return vm.dispatch(fr, st)
}

// border closes an if or try scope and opens its elif, else or catch sibling.
func (vm *Interpreter) border(fr *Frame, st *grammar.Statement) error {
	prev := fr.top()
	want := grammar.ScopeIf
	if st.Kind == grammar.StmtCatch {
		want = grammar.ScopeTry
	}
	if len(fr.Scopes) == 1 || prev.Kind != want {
		return diag.Syntaxf(diag.TagIllegalOperation, "%s cannot follow %s", st.Kind, prev.Kind).WithInfo(diag.InfoBorderMismatch)
	}
	fr.pop()
	parent := fr.top()
	sc := newScope(st.Scope, st.Line, fr.Cursor-1)
	sc.InFunction = prev.InFunction
	sc.InTry = parent.InTry
	sc.ifState = prev.ifState
	fr.push(sc)

	switch {
	case parent.Ignore || prev.ifState == ifDead:
		sc.Ignore, sc.ifState = true, ifDead
		return nil
	case st.Kind == grammar.StmtCatch:
		sc.Ignore = prev.err == nil
		if !sc.Ignore {
			return vm.dispatchCatch(sc, st, prev.err)
		}
		return nil
	case st.Kind == grammar.StmtElse:
		sc.Ignore = prev.ifState != ifFailed
		return nil
	case prev.ifState == ifPassed:
		sc.Ignore = true
		return nil
	}
	return vm.dispatch(fr, st)
}

func (vm *Interpreter) dispatchCatch(sc *Scope, st *grammar.Statement, captured *diag.Error) error {
	if tok, ok := st.First(grammar.TokDeclIdent); ok {
		sc.Vars[tok.Text] = value.NewError(captured)
	}
	vm.log.Debug("error caught", "tag", captured.Tag, "line", st.Line)
	return nil
}

// closeScope handles a lone ';'. Loops re-evaluate their condition and
// rewind; classes register their members.
func (vm *Interpreter) closeScope(fr *Frame, st *grammar.Statement) error {
	if len(fr.Scopes) == 1 {
		return diag.Syntaxf(diag.TagIllegalOperation, "cannot close %s", fr.top().Kind).WithInfo(diag.InfoCloseTopLevel)
	}
	sc := fr.pop()
	switch sc.Kind {
	case grammar.ScopeLoop:
		if sc.Ignore && !sc.continuing {
			return nil
		}
		again, err := vm.evalBool(fr, sc.cond)
		if err != nil || !again {
			return err
		}
		sc.Vars = map[string]*value.Value{}
		sc.Ignore, sc.continuing = false, false
		fr.push(sc)
		fr.Cursor = sc.start + 1
	case grammar.ScopeClass:
		if sc.Ignore {
			return nil
		}
		g := value.NewGroupDef(sc.name)
		for k, v := range sc.Vars {
			g.Members[k] = v
		}
		fr.top().Vars[sc.name] = value.NewGroup(g)
		vm.log.Debug("class registered", "class", sc.name, "members", len(g.Members))
	case grammar.ScopeTry:
		if sc.err != nil {
			vm.log.Debug("error swallowed", "tag", sc.err.Tag, "line", sc.err.Line)
		}
	}
	return nil
}

// record buffers a statement into the function body being declared.
func (vm *Interpreter) record(fr *Frame, rec *recording, st *grammar.Statement) error {
	switch {
	case st.Opens && !st.Closes:
		rec.depth++
	case st.Closes && !st.Opens:
		if rec.depth == 0 {
			return vm.finishFunction(fr, rec)
		}
		rec.depth--
	}
	rec.body = append(rec.body, st)
	return nil
}

func (vm *Interpreter) finishFunction(fr *Frame, rec *recording) error {
	sc := fr.pop()
	if sc.Ignore || rec.fn == nil {
		return nil
	}
	fn := rec.fn
	fn.Body = rec.body
	target := fr.top()
	key := fn.Signature()
	if _, exists := target.Vars[key]; exists {
		return diag.Runtimef(diag.TagName, "function %s is already declared", key).WithInfo(diag.InfoRedeclare)
	}
	fv := value.NewFunction(fn)
	fv.Readonly = true
	target.Vars[key] = fv
	vm.log.Debug("function declared", "signature", key, "statements", len(fn.Body))
	return nil
}
