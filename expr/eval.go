// expr/eval.go
package expr

import (
	"strings"

	"simonwaldherr.de/go/kestrel/diag"
	"simonwaldherr.de/go/kestrel/value"
)

// Resolver is the evaluator's view of the live interpreter.
type Resolver interface {
	// Resolve looks up a bare identifier.
	Resolve(name string) (*value.Value, error)
	// Invoke calls name with evaluated arguments; recv is the qualifying
	// module or instance, nil for unqualified calls.
	Invoke(name string, recv *value.Value, args []*value.Value) (*value.Value, error)
	// ReadInput serves the console-read marker.
	ReadInput() (string, error)
}

// Evaluator reduces expression strings to a single value.
type Evaluator struct {
	ops *Table
	res Resolver
}

func New(res Resolver, ops *Table) *Evaluator {
	if ops == nil {
		ops = DefaultTable()
	}
	return &Evaluator{ops: ops, res: res}
}

func (e *Evaluator) Table() *Table { return e.ops }

// Eval evaluates src in the resolver's current scope.
func (e *Evaluator) Eval(src string) (*value.Value, error) {
	toks, err := tokenize(src, e.ops)
	if err != nil {
		return nil, err
	}
	if len(toks) == 0 {
		return nil, invalid("empty expression")
	}
	return e.reduce(toks)
}

// EvalAll evaluates each source in order.
func (e *Evaluator) EvalAll(srcs []string) ([]*value.Value, error) {
	out := make([]*value.Value, 0, len(srcs))
	for _, s := range srcs {
		v, err := e.Eval(s)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (e *Evaluator) reduce(toks []token) (*value.Value, error) {
	toks, err := e.reduceParens(toks)
	if err != nil {
		return nil, err
	}
	if toks, err = e.resolve(toks); err != nil {
		return nil, err
	}
	if toks, err = e.bindIndexers(toks); err != nil {
		return nil, err
	}
	if toks, err = e.applyOperators(toks); err != nil {
		return nil, err
	}
	if len(toks) != 1 || toks[0].kind != tokValue {
		return nil, diag.Syntaxf(diag.TagMissingOperand, "missing operator or operand in %q", render(toks))
	}
	return toks[0].val, nil
}

func render(toks []token) string {
	parts := make([]string, len(toks))
	for i, t := range toks {
		if t.kind == tokValue && t.val != nil {
			parts[i] = t.val.Repr()
			continue
		}
		parts[i] = t.text
	}
	return strings.Join(parts, " ")
}

func splice(toks []token, from, to int, t token) []token {
	out := make([]token, 0, len(toks)-(to-from)+1)
	out = append(out, toks[:from]...)
	out = append(out, t)
	return append(out, toks[to:]...)
}

func valueToken(v *value.Value) token { return token{kind: tokValue, val: v} }

// reduceParens evaluates parenthesized groups inside-out.
func (e *Evaluator) reduceParens(toks []token) ([]token, error) {
	for {
		open := -1
		for i, t := range toks {
			if t.kind == tokOpen {
				open = i
				break
			}
			if t.kind == tokClose {
				return nil, invalid("unbalanced ')' in %q", render(toks))
			}
		}
		if open < 0 {
			return toks, nil
		}
		depth, closing := 0, -1
		for i := open; i < len(toks) && closing < 0; i++ {
			switch toks[i].kind {
			case tokOpen:
				depth++
			case tokClose:
				depth--
				if depth == 0 {
					closing = i
				}
			}
		}
		if closing < 0 {
			return nil, invalid("unbalanced '(' in %q", render(toks))
		}
		if closing == open+1 {
			return nil, invalid("empty parentheses in %q", render(toks))
		}
		v, err := e.reduce(toks[open+1 : closing])
		if err != nil {
			return nil, err
		}
		toks = splice(toks, open, closing+1, valueToken(v))
	}
}

// resolve turns names, calls, arrays and reads into values. A run of module
// tokens qualifies the lookup that follows it.
func (e *Evaluator) resolve(toks []token) ([]token, error) {
	out := make([]token, 0, len(toks))
	var qual *value.Value
	for _, t := range toks {
		var v *value.Value
		var err error
		switch t.kind {
		case tokModule:
			if qual == nil {
				qual, err = e.res.Resolve(t.text)
			} else {
				qual, err = Member(qual, t.text)
			}
			if err != nil {
				return nil, err
			}
			continue
		case tokVariable:
			if qual != nil {
				v, err = Member(qual, t.text)
			} else {
				v, err = e.res.Resolve(t.text)
			}
		case tokFunction:
			var args []*value.Value
			if args, err = e.EvalAll(t.args); err == nil {
				v, err = e.res.Invoke(t.text, qual, args)
			}
		case tokArray:
			var items []*value.Value
			if items, err = e.EvalAll(t.args); err == nil {
				for i, it := range items {
					items[i] = it.Copy()
				}
				v = value.NewArray(items)
			}
		case tokRead:
			var line string
			if line, err = e.res.ReadInput(); err == nil {
				v = value.NewString(line)
			}
		default:
			if qual != nil {
				return nil, invalid("dangling qualifier before %q", t.text)
			}
			out = append(out, t)
			continue
		}
		if err != nil {
			return nil, err
		}
		qual = nil
		out = append(out, valueToken(v))
	}
	if qual != nil {
		return nil, invalid("dangling qualifier in %q", render(toks))
	}
	return out, nil
}

// Member reads a field of a module, group or error value.
func Member(owner *value.Value, name string) (*value.Value, error) {
	var ns value.Namespace
	switch owner.Kind() {
	case value.KindError:
		return errorField(owner.Err(), name)
	case value.KindModule:
		ns = owner.Namespace()
	case value.KindGroupType:
		ns = owner.Group()
	default:
		return nil, diag.Runtimef(diag.TagType, "%s has no member %q", owner.Kind(), name)
	}
	v, ok := ns.Member(name)
	if !ok {
		return nil, diag.Runtimef(diag.TagName, "'%s' has no member '%s'", ns.NamespaceName(), name)
	}
	if v.IsUnset() && !v.Unsetable {
		return nil, diag.Runtimef(diag.TagUnset, "member '%s.%s' is unset", ns.NamespaceName(), name).WithInfo(diag.InfoUnsetRead)
	}
	return v, nil
}

func (e *Evaluator) bindIndexers(toks []token) ([]token, error) {
	for i := 0; i < len(toks); i++ {
		if toks[i].kind != tokIndexer {
			continue
		}
		if i == 0 || toks[i-1].kind != tokValue {
			return nil, invalid("index [%s] has no operand", toks[i].text)
		}
		idx, err := e.Eval(toks[i].text)
		if err != nil {
			return nil, err
		}
		v, err := toks[i-1].val.Index(idx)
		if err != nil {
			return nil, err
		}
		toks = splice(toks, i-1, i+1, valueToken(v))
		i--
	}
	return toks, nil
}

func neighborCode(toks []token, i int) byte {
	if i < 0 || i >= len(toks) || toks[i].kind != tokValue {
		return value.AbsentCode
	}
	return toks[i].val.Kind().Code()
}

// applyOperators reduces by ascending priority. Each application restarts the
// scan at the same level, which makes same-level operators left-associative.
func (e *Evaluator) applyOperators(toks []token) ([]token, error) {
	for prio := 0; prio <= e.ops.MaxPriority(); prio++ {
	scan:
		for {
			for i, t := range toks {
				if t.kind != tokOperator {
					continue
				}
				l, r := neighborCode(toks, i-1), neighborCode(toks, i+1)
				op, ok := e.ops.Lookup(l, t.text, r, prio)
				if !ok {
					if lvl, bin := e.ops.BinaryLevel(t.text); bin && lvl == prio && l != value.AbsentCode && r != value.AbsentCode {
						lk, _ := value.KindByCode(l)
						rk, _ := value.KindByCode(r)
						return nil, diag.Runtimef(diag.TagType, "operator %s is not defined for %s and %s", t.text, lk, rk)
					}
					continue
				}
				var lv, rv *value.Value
				from, to := i, i+1
				if op.Left != value.AbsentCode {
					lv, from = toks[i-1].val, i-1
				}
				if op.Right != value.AbsentCode {
					rv, to = toks[i+1].val, i+2
				}
				res, err := op.Fn(lv, rv)
				if err != nil {
					return nil, err
				}
				toks = splice(toks, from, to, valueToken(res))
				continue scan
			}
			break
		}
	}
	return toks, nil
}

func errorField(e *diag.Error, name string) (*value.Value, error) {
	switch name {
	case "tag":
		return value.NewString(e.Tag), nil
	case "message":
		return value.NewString(e.Message), nil
	case "info":
		return value.NewString(e.Info), nil
	case "line":
		return value.NewInt(int64(e.Line)), nil
	}
	return nil, diag.Runtimef(diag.TagName, "error has no member '%s'", name)
}
