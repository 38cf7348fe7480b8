// interp/packages.go
package interp

import (
	"unicode"
	"unicode/utf8"

	"simonwaldherr.de/go/kestrel/value"
)

// Package is a statically built table of host routines and constants. A
// named package becomes an internal module; an unnamed one is global.
type Package struct {
	Name  string
	Funcs []*Function
	Vars  map[string]*value.Value
}

func NewPackage(name string) *Package {
	return &Package{Name: name, Vars: map[string]*value.Value{}}
}

// Routine describes one host routine for the builder.
type Routine struct {
	Name      string
	Returns   value.Kind
	Params    []ParamKind
	Variadic  bool
	ForceCase bool
	Fn        NativeFunc
}

// Func adds a routine. Names are lower-camel cased unless ForceCase is set.
func (p *Package) Func(r Routine) *Package {
	name := r.Name
	if !r.ForceCase {
		name = lowerCamel(name)
	}
	f := &Function{Name: name, Returns: r.Returns, Variadic: r.Variadic, Native: r.Fn, NativeParams: r.Params}
	for i, pk := range r.Params {
		f.Params = append(f.Params, Param{Name: paramName(i), Kind: pk.Kind()})
	}
	p.Funcs = append(p.Funcs, f)
	return p
}

// Const adds a read-only constant.
func (p *Package) Const(name string, v *value.Value) *Package {
	p.Vars[name] = v
	return p
}

func lowerCamel(s string) string {
	r, n := utf8.DecodeRuneInString(s)
	if n == 0 {
		return s
	}
	return string(unicode.ToLower(r)) + s[n:]
}

func paramName(i int) string { return string(rune('a' + i%26)) }
