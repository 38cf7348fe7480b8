// interp/types.go
package interp

import (
	"strings"

	"simonwaldherr.de/go/kestrel/diag"
	"simonwaldherr.de/go/kestrel/grammar"
	"simonwaldherr.de/go/kestrel/value"
)

// NativeFunc is a host routine. Arguments arrive marshalled to the declared
// parameter kinds: string, bool, int64, float64 or *value.Value.
type NativeFunc func(args []any) (any, error)

// ParamKind is the native type a host parameter is marshalled to.
type ParamKind int

const (
	ParamValue ParamKind = iota
	ParamString
	ParamBool
	ParamInt
	ParamFloat
)

// Kind is the script-visible kind a host parameter accepts.
func (p ParamKind) Kind() value.Kind {
	switch p {
	case ParamString:
		return value.KindString
	case ParamBool:
		return value.KindBool
	case ParamInt, ParamFloat:
		return value.KindNumber
	}
	return value.KindAny
}

// Param is one declared parameter of a user function.
type Param struct {
	Name string
	Kind value.Kind
}

// Function is a user-defined or host routine. It is immutable once registered.
type Function struct {
	Name        string
	File        string
	Params      []Param
	Returns     value.Kind
	Body        []*grammar.Statement
	StartLine   int
	Constructor bool
	Variadic    bool

	Native       NativeFunc
	NativeParams []ParamKind

	module *Module
}

func (f *Function) IsNative() bool { return f.Native != nil }

// accepts reports whether n arguments bind to the parameters. A variadic
// needs every parameter before the rest parameter.
func (f *Function) accepts(n int) bool {
	return !f.Variadic || f.IsNative() || n >= len(f.Params)-1
}

// Signature is the overload key: name(Kind,Kind) or name(...) for variadics.
// Int parameters are keyed as Number.
func (f *Function) Signature() string {
	if f.Variadic {
		return f.Name + "(...)"
	}
	kinds := make([]value.Kind, len(f.Params))
	for i, p := range f.Params {
		kinds[i] = p.Kind
	}
	return signature(f.Name, kinds)
}

func signature(name string, kinds []value.Kind) string {
	var b strings.Builder
	b.WriteString(name)
	b.WriteByte('(')
	for i, k := range kinds {
		if i > 0 {
			b.WriteByte(',')
		}
		if k == value.KindInt {
			k = value.KindNumber
		}
		b.WriteString(k.String())
	}
	b.WriteByte(')')
	return b.String()
}

func variadicSignature(name string) string { return name + "(...)" }

// ifState chains if/elif/else scopes.
type ifState int

const (
	ifNone ifState = iota
	ifPassed
	ifFailed
	ifDead
)

// recording buffers a function body instead of executing it.
type recording struct {
	fn    *Function
	body  []*grammar.Statement
	depth int
}

// Scope is one lexical context on a frame's scope stack.
type Scope struct {
	Kind grammar.ScopeKind
	Vars map[string]*value.Value

	Ignore     bool
	InFunction bool
	InTry      bool
	StartLine  int

	ifState    ifState
	start      int // cursor index of the opening statement
	cond       string
	continuing bool
	name       string
	rec        *recording
	err        *diag.Error
}

func newScope(kind grammar.ScopeKind, line, start int) *Scope {
	return &Scope{Kind: kind, Vars: map[string]*value.Value{}, StartLine: line, start: start}
}

// Frame is one call-stack entry.
type Frame struct {
	Name   string
	Module *Module
	Code   []*grammar.Statement
	Cursor int
	Scopes []*Scope

	fn   *Function
	ret  *value.Value
	stop bool
}

func newFrame(name string, mod *Module, code []*grammar.Statement, base *Scope) *Frame {
	return &Frame{Name: name, Module: mod, Code: code, Scopes: []*Scope{base}}
}

func (fr *Frame) top() *Scope { return fr.Scopes[len(fr.Scopes)-1] }

func (fr *Frame) push(sc *Scope) { fr.Scopes = append(fr.Scopes, sc) }

func (fr *Frame) pop() *Scope {
	sc := fr.top()
	fr.Scopes = fr.Scopes[:len(fr.Scopes)-1]
	return sc
}

func (fr *Frame) line() int {
	if fr.Cursor > 0 && fr.Cursor <= len(fr.Code) {
		return fr.Code[fr.Cursor-1].Line
	}
	return 0
}

// nearest returns the index of the innermost scope of kind k, or -1.
func (fr *Frame) nearest(k grammar.ScopeKind) int {
	for i := len(fr.Scopes) - 1; i >= 0; i-- {
		if fr.Scopes[i].Kind == k {
			return i
		}
	}
	return -1
}

// ignoreFrom marks scopes i..top as ignored.
func (fr *Frame) ignoreFrom(i int) {
	for _, sc := range fr.Scopes[i:] {
		sc.Ignore = true
	}
}
