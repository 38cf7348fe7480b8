// value/ops.go
package value

import (
	"strings"

	"simonwaldherr.de/go/kestrel/diag"
)

func typeError(format string, args ...any) *diag.Error {
	return diag.Runtimef(diag.TagType, format, args...)
}

// MaxRepeatLen bounds the byte length of a repeated string.
const MaxRepeatLen = 16 << 20

// Repeat returns s repeated n times, rejecting negative counts and results
// longer than MaxRepeatLen.
func Repeat(s string, n int64) (string, error) {
	if n < 0 {
		return "", diag.Runtimef(diag.TagValue, "negative repeat count %d", n)
	}
	if len(s) > 0 && n > int64(MaxRepeatLen/len(s)) {
		return "", diag.Runtimef(diag.TagValue, "repeat of %d bytes %d times exceeds %d bytes", len(s), n, MaxRepeatLen)
	}
	return strings.Repeat(s, int(n)), nil
}

// resolveIndex maps a possibly negative index onto [0, n).
func resolveIndex(idx *Value, n int) (int, error) {
	i, ok := idx.Integer()
	if !ok {
		return 0, typeError("index must be an integral number, got %s", idx.Kind())
	}
	if i < 0 {
		i += int64(n)
	}
	if i < 0 || i >= int64(n) {
		return 0, diag.Runtimef(diag.TagIndex, "index %s out of range for length %d", idx.Display(), n)
	}
	return int(i), nil
}

// Index implements subscripting for Array and String values.
func (v *Value) Index(idx *Value) (*Value, error) {
	switch v.kind {
	case KindArray:
		i, err := resolveIndex(idx, len(v.items))
		if err != nil {
			return nil, err
		}
		return v.items[i], nil
	case KindString:
		rs := []rune(v.str)
		i, err := resolveIndex(idx, len(rs))
		if err != nil {
			return nil, err
		}
		return NewString(string(rs[i])), nil
	}
	return nil, typeError("%s is not indexable", v.kind)
}

// SetIndex replaces an array element in place.
func (v *Value) SetIndex(idx, elem *Value) error {
	if v.kind != KindArray {
		return typeError("%s does not support index assignment", v.kind)
	}
	i, err := resolveIndex(idx, len(v.items))
	if err != nil {
		return err
	}
	v.items[i] = elem.Copy()
	return nil
}

// Len reports the length of arrays and strings.
func (v *Value) Len() (int, bool) {
	switch v.kind {
	case KindArray:
		return len(v.items), true
	case KindString:
		return len([]rune(v.str)), true
	}
	return 0, false
}

// Compound applies one of += -= *= /= in place.
func (v *Value) Compound(op string, rhs *Value) error {
	switch op {
	case "+=":
		return v.AddAssign(rhs)
	case "-=":
		return v.SubAssign(rhs)
	case "*=":
		return v.MulAssign(rhs)
	case "/=":
		return v.DivAssign(rhs)
	}
	return typeError("unknown compound operator %s", op)
}

func (v *Value) compoundMismatch(op string, rhs *Value) error {
	return typeError("operator %s is not defined for %s and %s", op, v.kind, rhs.kind)
}

// numericAssign covers Number and Int targets; Int widens to Number when the
// right side is a Number.
func (v *Value) numericAssign(op string, rhs *Value, fi func(a, b int64) int64, ff func(a, b float64) float64) error {
	switch v.kind {
	case KindInt:
		if rhs.kind == KindInt && fi != nil {
			v.i = fi(v.i, rhs.i)
			return nil
		}
		if f, ok := rhs.Float(); ok {
			v.kind, v.num = KindNumber, ff(float64(v.i), f)
			return nil
		}
	case KindNumber:
		if f, ok := rhs.Float(); ok {
			v.num = ff(v.num, f)
			return nil
		}
	}
	return v.compoundMismatch(op, rhs)
}

func (v *Value) AddAssign(rhs *Value) error {
	switch v.kind {
	case KindString:
		if rhs.kind != KindString {
			return v.compoundMismatch("+=", rhs)
		}
		v.str += rhs.str
		return nil
	case KindArray:
		v.items = append(v.items, rhs.Copy())
		return nil
	}
	return v.numericAssign("+=", rhs,
		func(a, b int64) int64 { return a + b },
		func(a, b float64) float64 { return a + b })
}

func (v *Value) SubAssign(rhs *Value) error {
	if v.kind == KindArray {
		for i, it := range v.items {
			if Equal(it, rhs) {
				v.items = append(v.items[:i], v.items[i+1:]...)
				return nil
			}
		}
		return nil
	}
	return v.numericAssign("-=", rhs,
		func(a, b int64) int64 { return a - b },
		func(a, b float64) float64 { return a - b })
}

func (v *Value) MulAssign(rhs *Value) error {
	if v.kind == KindString {
		n, ok := rhs.Integer()
		if !ok {
			return v.compoundMismatch("*=", rhs)
		}
		out, err := Repeat(v.str, n)
		if err != nil {
			return err
		}
		v.str = out
		return nil
	}
	return v.numericAssign("*=", rhs,
		func(a, b int64) int64 { return a * b },
		func(a, b float64) float64 { return a * b })
}

// DivAssign always produces a Number; integer division is not implied.
func (v *Value) DivAssign(rhs *Value) error {
	return v.numericAssign("/=", rhs, nil, func(a, b float64) float64 { return a / b })
}

// Clear empties arrays and strings.
func (v *Value) Clear() error {
	switch v.kind {
	case KindArray:
		v.items = []*Value{}
		return nil
	case KindString:
		v.str = ""
		return nil
	}
	return typeError("%s cannot be cleared", v.kind)
}
