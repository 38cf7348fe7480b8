// value/value.go
package value

import (
	"math"
	"sort"
	"strings"

	"simonwaldherr.de/go/kestrel/diag"
)

// Namespace is a named member table; modules and class groups implement it.
type Namespace interface {
	NamespaceName() string
	Member(name string) (*Value, bool)
	SetMember(name string, v *Value) error
}

// Callable is the function payload; the interpreter supplies the implementation.
type Callable interface {
	Signature() string
}

// Value is a tagged runtime value. Only the field matching kind is meaningful.
type Value struct {
	kind Kind

	// Unsetable allows reading the value while it is Unset.
	Unsetable bool
	// Readonly rejects assignment to the slot holding the value.
	Readonly bool

	str   string
	num   float64
	i     int64
	b     bool
	items []*Value
	typ   Kind
	ns    Namespace
	group *Group
	fn    Callable
	err   *diag.Error
}

func NewString(s string) *Value  { return &Value{kind: KindString, str: s} }
func NewNumber(f float64) *Value { return &Value{kind: KindNumber, num: f} }
func NewInt(i int64) *Value      { return &Value{kind: KindInt, i: i} }
func NewBool(b bool) *Value      { return &Value{kind: KindBool, b: b} }
func NewType(k Kind) *Value      { return &Value{kind: KindType, typ: k} }
func NewIndexer(i int64) *Value  { return &Value{kind: KindIndexer, i: i} }
func NewNone() *Value            { return &Value{kind: KindNone} }
func NewUnset() *Value           { return &Value{kind: KindUnset} }

// NewArray takes ownership of items; a nil slice is an empty array.
func NewArray(items []*Value) *Value {
	if items == nil {
		items = []*Value{}
	}
	return &Value{kind: KindArray, items: items}
}

// The constructors below coerce absent backing data to Unset.

func NewModule(ns Namespace) *Value {
	if ns == nil {
		return NewUnset()
	}
	return &Value{kind: KindModule, ns: ns, Readonly: true}
}

func NewGroup(g *Group) *Value {
	if g == nil {
		return NewUnset()
	}
	return &Value{kind: KindGroupType, group: g}
}

func NewFunction(fn Callable) *Value {
	if fn == nil {
		return NewUnset()
	}
	return &Value{kind: KindFunction, fn: fn}
}

func NewError(e *diag.Error) *Value {
	if e == nil {
		return NewUnset()
	}
	return &Value{kind: KindError, err: e}
}

func (v *Value) Kind() Kind { return v.kind }

// IsUnset reports whether the value holds no data.
func (v *Value) IsUnset() bool { return v == nil || v.kind == KindUnset }

func (v *Value) Str() string          { return v.str }
func (v *Value) Num() float64         { return v.num }
func (v *Value) Int() int64           { return v.i }
func (v *Value) Bool() bool           { return v.b }
func (v *Value) Items() []*Value      { return v.items }
func (v *Value) TypeKind() Kind       { return v.typ }
func (v *Value) Namespace() Namespace { return v.ns }
func (v *Value) Group() *Group        { return v.group }
func (v *Value) Callable() Callable   { return v.fn }
func (v *Value) Err() *diag.Error     { return v.err }
func (v *Value) SetItems(xs []*Value) { v.items = xs }

// Float returns the numeric payload of Number and Int values.
func (v *Value) Float() (float64, bool) {
	switch v.kind {
	case KindNumber:
		return v.num, true
	case KindInt:
		return float64(v.i), true
	}
	return 0, false
}

// Integer returns an integral index from Number, Int or Indexer values.
func (v *Value) Integer() (int64, bool) {
	switch v.kind {
	case KindInt, KindIndexer:
		return v.i, true
	case KindNumber:
		if v.num == math.Trunc(v.num) && !math.IsInf(v.num, 0) {
			return int64(v.num), true
		}
	}
	return 0, false
}

// Copy returns a slot-independent copy. Arrays copy their elements; groups,
// modules and functions are shared. Flags are not copied.
func (v *Value) Copy() *Value {
	if v == nil {
		return NewUnset()
	}
	c := *v
	c.Unsetable, c.Readonly = false, false
	if v.kind == KindArray {
		c.items = make([]*Value, len(v.items))
		for i, it := range v.items {
			c.items[i] = it.Copy()
		}
	}
	return &c
}

// Assign overwrites v's payload with other's, keeping v's flags.
func (v *Value) Assign(other *Value) {
	u, r := v.Unsetable, v.Readonly
	*v = *other.Copy()
	v.Unsetable, v.Readonly = u, r
}

// Equal compares kind and payload; Number and Int compare numerically.
func Equal(a, b *Value) bool {
	if a == nil || b == nil {
		return a == b
	}
	if af, ok := a.Float(); ok {
		if bf, ok := b.Float(); ok {
			if math.IsNaN(af) && math.IsNaN(bf) {
				return true
			}
			return af == bf
		}
	}
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindString:
		return a.str == b.str
	case KindBool:
		return a.b == b.b
	case KindUnset, KindNone, KindAny:
		return true
	case KindIndexer:
		return a.i == b.i
	case KindType:
		return a.typ == b.typ
	case KindArray:
		if len(a.items) != len(b.items) {
			return false
		}
		for i := range a.items {
			if !Equal(a.items[i], b.items[i]) {
				return false
			}
		}
		return true
	case KindModule:
		return a.ns == b.ns
	case KindGroupType:
		return a.group == b.group
	case KindFunction:
		return a.fn == b.fn
	case KindError:
		return a.err.Tag == b.err.Tag && a.err.Message == b.err.Message
	}
	return false
}

// Group is the payload of GroupType values: a class definition or an instance.
type Group struct {
	Name     string
	Instance bool
	Members  map[string]*Value
}

func NewGroupDef(name string) *Group {
	return &Group{Name: name, Members: map[string]*Value{}}
}

func (g *Group) NamespaceName() string { return g.Name }

func (g *Group) Member(name string) (*Value, bool) {
	v, ok := g.Members[name]
	return v, ok
}

func (g *Group) SetMember(name string, v *Value) error {
	if cur, ok := g.Members[name]; ok {
		if cur.Readonly {
			return diag.Runtimef(diag.TagReadonly, "member '%s.%s' is readonly", g.Name, name).WithInfo(diag.InfoReadonlyAssign)
		}
		cur.Assign(v)
		return nil
	}
	g.Members[name] = v.Copy()
	return nil
}

// Instantiate copies the member table into a fresh instance group.
func (g *Group) Instantiate() *Group {
	inst := &Group{Name: g.Name, Instance: true, Members: make(map[string]*Value, len(g.Members))}
	for k, m := range g.Members {
		c := m.Copy()
		c.Unsetable, c.Readonly = m.Unsetable, m.Readonly
		inst.Members[k] = c
	}
	return inst
}

// Fields lists non-function members, sorted.
func (g *Group) Fields() []string {
	names := make([]string, 0, len(g.Members))
	for k, m := range g.Members {
		if m.kind == KindFunction || strings.ContainsRune(k, '(') {
			continue
		}
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
