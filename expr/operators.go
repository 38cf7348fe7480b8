// expr/operators.go
package expr

import (
	"math"
	"sort"
	"strings"

	"simonwaldherr.de/go/kestrel/diag"
	"simonwaldherr.de/go/kestrel/value"
)

// Priorities, tightest first.
const (
	PrioUnary = iota
	PrioMultiplicative
	PrioAdditive
	PrioShift
	PrioRelational
	PrioEquality
	PrioBitwise
	PrioLogical
)

// OpFunc applies an operator; an absent operand is nil.
type OpFunc func(l, r *value.Value) (*value.Value, error)

// Operator is one signature entry of the table.
type Operator struct {
	Symbol   string
	Priority int
	Left     byte
	Right    byte
	Fn       OpFunc
}

func (o *Operator) Key() string { return signatureKey(o.Left, o.Symbol, o.Right) }

func signatureKey(l byte, sym string, r byte) string {
	return string(l) + sym + string(r)
}

// Table maps operand-kind signatures such as "n+n" or "_-n" to operators.
type Table struct {
	ops         map[string]*Operator
	binaryLevel map[string]int
	symbols     []string
	maxPriority int
}

func NewTable() *Table {
	return &Table{ops: map[string]*Operator{}, binaryLevel: map[string]int{}}
}

// Add registers op, replacing any entry with the same signature.
func (t *Table) Add(op Operator) *Table {
	o := op
	t.ops[o.Key()] = &o
	if o.Left != value.AbsentCode && o.Right != value.AbsentCode {
		t.binaryLevel[o.Symbol] = o.Priority
	}
	if o.Priority > t.maxPriority {
		t.maxPriority = o.Priority
	}
	known := false
	for _, s := range t.symbols {
		if s == o.Symbol {
			known = true
			break
		}
	}
	if !known {
		t.symbols = append(t.symbols, o.Symbol)
		sort.SliceStable(t.symbols, func(i, j int) bool { return len(t.symbols[i]) > len(t.symbols[j]) })
	}
	return t
}

func (t *Table) add(sym string, prio int, l, r byte, fn OpFunc) *Table {
	return t.Add(Operator{Symbol: sym, Priority: prio, Left: l, Right: r, Fn: fn})
}

// Lookup finds the operator for the neighbors at priority prio: the exact
// signature first, then with Any substituted for each present neighbor.
func (t *Table) Lookup(l byte, sym string, r byte, prio int) (*Operator, bool) {
	if op, ok := t.ops[signatureKey(l, sym, r)]; ok && op.Priority == prio {
		return op, true
	}
	wl, wr := l, r
	if wl != value.AbsentCode {
		wl = 'a'
	}
	if wr != value.AbsentCode {
		wr = 'a'
	}
	if op, ok := t.ops[signatureKey(wl, sym, wr)]; ok && op.Priority == prio {
		return op, true
	}
	return nil, false
}

// BinaryLevel reports the priority of sym's two-operand form.
func (t *Table) BinaryLevel(sym string) (int, bool) {
	p, ok := t.binaryLevel[sym]
	return p, ok
}

// Symbols lists operator symbols longest first.
func (t *Table) Symbols() []string { return t.symbols }

func (t *Table) MaxPriority() int { return t.maxPriority }

// matchSymbol returns the longest operator symbol at the head of s.
func (t *Table) matchSymbol(s string) (string, bool) {
	for _, sym := range t.symbols {
		if strings.HasPrefix(s, sym) {
			return sym, true
		}
	}
	return "", false
}

var numericCodes = []byte{'n', 'i'}

func bothInt(l, r *value.Value) bool {
	return l.Kind() == value.KindInt && r.Kind() == value.KindInt
}

func floats(l, r *value.Value) (float64, float64) {
	a, _ := l.Float()
	b, _ := r.Float()
	return a, b
}

func integral(v *value.Value) (int64, error) {
	n, ok := v.Integer()
	if !ok {
		return 0, diag.Runtimef(diag.TagValue, "%s is not an integral number", v.Display())
	}
	return n, nil
}

// arith builds a numeric operator; fi may be nil when the result is always a Number.
func (t *Table) arith(sym string, prio int, fi func(a, b int64) (int64, error), ff func(a, b float64) float64) {
	for _, l := range numericCodes {
		for _, r := range numericCodes {
			t.add(sym, prio, l, r, func(lv, rv *value.Value) (*value.Value, error) {
				if fi != nil && bothInt(lv, rv) {
					n, err := fi(lv.Int(), rv.Int())
					if err != nil {
						return nil, err
					}
					return value.NewInt(n), nil
				}
				a, b := floats(lv, rv)
				return value.NewNumber(ff(a, b)), nil
			})
		}
	}
}

func (t *Table) compare(sym string, fn func(c int) bool) {
	for _, l := range numericCodes {
		for _, r := range numericCodes {
			t.add(sym, PrioRelational, l, r, func(lv, rv *value.Value) (*value.Value, error) {
				a, b := floats(lv, rv)
				if math.IsNaN(a) || math.IsNaN(b) {
					return value.NewBool(false), nil
				}
				c := 0
				if a < b {
					c = -1
				} else if a > b {
					c = 1
				}
				return value.NewBool(fn(c)), nil
			})
		}
	}
	t.add(sym, PrioRelational, 's', 's', func(lv, rv *value.Value) (*value.Value, error) {
		return value.NewBool(fn(strings.Compare(lv.Str(), rv.Str()))), nil
	})
}

func (t *Table) bitwise(sym string, fi func(a, b int64) int64, fb func(a, b bool) bool) {
	for _, l := range numericCodes {
		for _, r := range numericCodes {
			t.add(sym, PrioBitwise, l, r, func(lv, rv *value.Value) (*value.Value, error) {
				a, err := integral(lv)
				if err != nil {
					return nil, err
				}
				b, err := integral(rv)
				if err != nil {
					return nil, err
				}
				if bothInt(lv, rv) {
					return value.NewInt(fi(a, b)), nil
				}
				return value.NewNumber(float64(fi(a, b))), nil
			})
		}
	}
	t.add(sym, PrioBitwise, 'b', 'b', func(lv, rv *value.Value) (*value.Value, error) {
		return value.NewBool(fb(lv.Bool(), rv.Bool())), nil
	})
}

func (t *Table) shift(sym string, fi func(a int64, n uint) int64) {
	for _, l := range numericCodes {
		for _, r := range numericCodes {
			t.add(sym, PrioShift, l, r, func(lv, rv *value.Value) (*value.Value, error) {
				a, err := integral(lv)
				if err != nil {
					return nil, err
				}
				n, err := integral(rv)
				if err != nil {
					return nil, err
				}
				if n < 0 {
					return nil, diag.Runtimef(diag.TagValue, "negative shift count %d", n)
				}
				if bothInt(lv, rv) {
					return value.NewInt(fi(a, uint(n))), nil
				}
				return value.NewNumber(float64(fi(a, uint(n)))), nil
			})
		}
	}
}

// concat joins a string with the display form of a scalar.
func concat(lv, rv *value.Value) (*value.Value, error) {
	return value.NewString(lv.Display() + rv.Display()), nil
}

func boolNum(v *value.Value) float64 {
	if v.Kind() == value.KindBool {
		if v.Bool() {
			return 1
		}
		return 0
	}
	f, _ := v.Float()
	return f
}

// DefaultTable builds the operator table of the language.
func DefaultTable() *Table {
	t := NewTable()

	// unary and postfix
	for _, c := range numericCodes {
		t.add("-", PrioUnary, value.AbsentCode, c, func(_, rv *value.Value) (*value.Value, error) {
			if rv.Kind() == value.KindInt {
				return value.NewInt(-rv.Int()), nil
			}
			return value.NewNumber(-rv.Num()), nil
		})
	}
	t.add("!", PrioUnary, value.AbsentCode, 'b', func(_, rv *value.Value) (*value.Value, error) {
		return value.NewBool(!rv.Bool()), nil
	})
	t.add("??", PrioUnary, 'a', value.AbsentCode, func(lv, _ *value.Value) (*value.Value, error) {
		return value.NewBool(!lv.IsUnset()), nil
	})
	t.add("§", PrioUnary, 'a', value.AbsentCode, func(lv, _ *value.Value) (*value.Value, error) {
		if lv.IsUnset() {
			return value.NewString(""), nil
		}
		return value.NewString(lv.Display()), nil
	})

	// multiplicative
	t.arith("*", PrioMultiplicative, func(a, b int64) (int64, error) { return a * b, nil },
		func(a, b float64) float64 { return a * b })
	t.arith("/", PrioMultiplicative, nil, func(a, b float64) float64 { return a / b })
	t.arith("%", PrioMultiplicative, func(a, b int64) (int64, error) {
		if b == 0 {
			return 0, diag.Runtimef(diag.TagValue, "integer modulo by zero")
		}
		return a % b, nil
	}, math.Mod)
	for _, c := range numericCodes {
		t.add("*", PrioMultiplicative, 's', c, func(lv, rv *value.Value) (*value.Value, error) {
			n, err := integral(rv)
			if err != nil {
				return nil, err
			}
			out, err := value.Repeat(lv.Str(), n)
			if err != nil {
				return nil, err
			}
			return value.NewString(out), nil
		})
	}

	// additive
	t.arith("+", PrioAdditive, func(a, b int64) (int64, error) { return a + b, nil },
		func(a, b float64) float64 { return a + b })
	t.arith("-", PrioAdditive, func(a, b int64) (int64, error) { return a - b, nil },
		func(a, b float64) float64 { return a - b })
	for _, c := range []byte{'s', 'n', 'i', 'b'} {
		t.add("+", PrioAdditive, 's', c, concat)
		if c != 's' {
			t.add("+", PrioAdditive, c, 's', concat)
		}
	}
	for _, c := range numericCodes {
		t.add("+", PrioAdditive, 'b', c, func(lv, rv *value.Value) (*value.Value, error) {
			return value.NewNumber(boolNum(lv) + boolNum(rv)), nil
		})
		t.add("+", PrioAdditive, c, 'b', func(lv, rv *value.Value) (*value.Value, error) {
			return value.NewNumber(boolNum(lv) + boolNum(rv)), nil
		})
	}
	t.add("+", PrioAdditive, 'r', 'r', func(lv, rv *value.Value) (*value.Value, error) {
		out := lv.Copy()
		for _, it := range rv.Items() {
			out.SetItems(append(out.Items(), it.Copy()))
		}
		return out, nil
	})

	// shift
	t.shift("<<", func(a int64, n uint) int64 { return a << n })
	t.shift(">>", func(a int64, n uint) int64 { return a >> n })

	// relational
	t.compare("<", func(c int) bool { return c < 0 })
	t.compare("<=", func(c int) bool { return c <= 0 })
	t.compare(">", func(c int) bool { return c > 0 })
	t.compare(">=", func(c int) bool { return c >= 0 })

	// equality accepts any pair of kinds
	t.add("==", PrioEquality, 'a', 'a', func(lv, rv *value.Value) (*value.Value, error) {
		return value.NewBool(value.Equal(lv, rv)), nil
	})
	t.add("!=", PrioEquality, 'a', 'a', func(lv, rv *value.Value) (*value.Value, error) {
		return value.NewBool(!value.Equal(lv, rv)), nil
	})

	// bitwise
	t.bitwise("&", func(a, b int64) int64 { return a & b }, func(a, b bool) bool { return a && b })
	t.bitwise("|", func(a, b int64) int64 { return a | b }, func(a, b bool) bool { return a || b })
	t.bitwise("^", func(a, b int64) int64 { return a ^ b }, func(a, b bool) bool { return a != b })

	// logical
	t.add("&&", PrioLogical, 'b', 'b', func(lv, rv *value.Value) (*value.Value, error) {
		return value.NewBool(lv.Bool() && rv.Bool()), nil
	})
	t.add("||", PrioLogical, 'b', 'b', func(lv, rv *value.Value) (*value.Value, error) {
		return value.NewBool(lv.Bool() || rv.Bool()), nil
	})
	return t
}
