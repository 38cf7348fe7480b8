// value/text.go
package value

import (
	"math"
	"strconv"
	"strings"

	"simonwaldherr.de/go/kestrel/diag"
)

const (
	symInf    = "∞"
	symNegInf = "-∞"
	symNaN    = "NaN"
)

// FromText converts source text into a value of kind k.
func FromText(k Kind, text string) (*Value, error) {
	switch k {
	case KindString:
		return NewString(text), nil
	case KindNumber:
		f, ok := parseNumber(text)
		if !ok {
			return nil, conversionError(k, text)
		}
		return NewNumber(f), nil
	case KindInt:
		n, err := strconv.ParseInt(strings.TrimSpace(text), 10, 64)
		if err != nil {
			return nil, conversionError(k, text)
		}
		return NewInt(n), nil
	case KindBool:
		switch strings.TrimSpace(text) {
		case "true":
			return NewBool(true), nil
		case "false":
			return NewBool(false), nil
		}
		return nil, conversionError(k, text)
	case KindUnset:
		if t := strings.TrimSpace(text); t == "" || t == "unset" {
			return NewUnset(), nil
		}
		return nil, conversionError(k, text)
	case KindNone:
		if strings.TrimSpace(text) == "none" {
			return NewNone(), nil
		}
		return nil, conversionError(k, text)
	case KindType:
		kk, ok := KindByName(strings.TrimSpace(text))
		if !ok {
			return nil, conversionError(k, text)
		}
		return NewType(kk), nil
	case KindIndexer:
		t := strings.TrimSpace(text)
		if len(t) < 2 || t[0] != '[' || t[len(t)-1] != ']' {
			return nil, conversionError(k, text)
		}
		n, err := strconv.ParseInt(strings.TrimSpace(t[1:len(t)-1]), 10, 64)
		if err != nil {
			return nil, conversionError(k, text)
		}
		return NewIndexer(n), nil
	case KindArray:
		return parseArray(text)
	case KindAny:
		return inferText(text)
	case KindError:
		t := strings.TrimSpace(text)
		tag, msg, ok := strings.Cut(t, ": ")
		if !ok || tag == "" {
			return nil, conversionError(k, text)
		}
		return NewError(diag.Runtimef(tag, "%s", msg)), nil
	}
	return nil, conversionError(k, text)
}

func conversionError(k Kind, text string) *diag.Error {
	return diag.Runtimef(diag.TagConversion, "cannot convert %q to %s", text, k)
}

func parseNumber(text string) (float64, bool) {
	t := strings.TrimSpace(text)
	switch t {
	case symInf, "+" + symInf, "inf", "+inf":
		return math.Inf(1), true
	case symNegInf, "-inf":
		return math.Inf(-1), true
	case symNaN:
		return math.NaN(), true
	}
	if t == "" || strings.ContainsAny(t, "xXpP_") {
		return 0, false
	}
	f, err := strconv.ParseFloat(t, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// inferText picks the narrowest kind that accepts text.
func inferText(text string) (*Value, error) {
	t := strings.TrimSpace(text)
	switch {
	case t == "true" || t == "false":
		return NewBool(t == "true"), nil
	case t == "none":
		return NewNone(), nil
	case t == "unset":
		return NewUnset(), nil
	case len(t) >= 2 && t[0] == '"' && t[len(t)-1] == '"':
		s, err := Unquote(t)
		if err != nil {
			return nil, err
		}
		return NewString(s), nil
	case len(t) >= 2 && t[0] == '[' && t[len(t)-1] == ']':
		return parseArray(t)
	}
	if f, ok := parseNumber(t); ok {
		return NewNumber(f), nil
	}
	return NewString(text), nil
}

func parseArray(text string) (*Value, error) {
	t := strings.TrimSpace(text)
	if len(t) < 2 || t[0] != '[' || t[len(t)-1] != ']' {
		return nil, conversionError(KindArray, text)
	}
	inner := strings.TrimSpace(t[1 : len(t)-1])
	if inner == "" {
		return NewArray(nil), nil
	}
	var items []*Value
	for _, part := range SplitTopLevel(inner, ',') {
		v, err := inferText(part)
		if err != nil {
			return nil, err
		}
		items = append(items, v)
	}
	return NewArray(items), nil
}

// SplitTopLevel splits s at sep outside quotes, parentheses and brackets.
func SplitTopLevel(s string, sep byte) []string {
	var out []string
	depth, start, inStr := 0, 0, false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inStr {
			if c == '\\' {
				i++
			} else if c == '"' {
				inStr = false
			}
			continue
		}
		switch c {
		case '"':
			inStr = true
		case '(', '[':
			depth++
		case ')', ']':
			depth--
		default:
			if c == sep && depth == 0 {
				out = append(out, s[start:i])
				start = i + 1
			}
		}
	}
	return append(out, s[start:])
}

// Unquote decodes a double-quoted literal with \n \t \" \\ escapes.
func Unquote(lit string) (string, error) {
	if len(lit) < 2 || lit[0] != '"' || lit[len(lit)-1] != '"' {
		return "", conversionError(KindString, lit)
	}
	body := lit[1 : len(lit)-1]
	var b strings.Builder
	for i := 0; i < len(body); i++ {
		c := body[i]
		if c != '\\' {
			b.WriteByte(c)
			continue
		}
		i++
		if i >= len(body) {
			return "", conversionError(KindString, lit)
		}
		switch body[i] {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case '"':
			b.WriteByte('"')
		case '\\':
			b.WriteByte('\\')
		default:
			b.WriteByte('\\')
			b.WriteByte(body[i])
		}
	}
	return b.String(), nil
}

// Quote is the inverse of Unquote.
func Quote(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`, "\t", `\t`)
	return `"` + r.Replace(s) + `"`
}

// FormatNumber renders f; precision < 0 selects the shortest exact form.
func FormatNumber(f float64, precision int) string {
	switch {
	case math.IsInf(f, 1):
		return symInf
	case math.IsInf(f, -1):
		return symNegInf
	case math.IsNaN(f):
		return symNaN
	}
	if precision >= 0 {
		return strconv.FormatFloat(f, 'f', precision, 64)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// Display is the script-visible string form.
func (v *Value) Display() string { return v.Format(-1) }

// Format renders the value with a number precision.
func (v *Value) Format(precision int) string {
	if v == nil {
		return "unset"
	}
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		return FormatNumber(v.num, precision)
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindUnset:
		return "unset"
	case KindAny:
		return "any"
	case KindNone:
		return "none"
	case KindType:
		return v.typ.String()
	case KindIndexer:
		return "[" + strconv.FormatInt(v.i, 10) + "]"
	case KindArray:
		parts := make([]string, len(v.items))
		for i, it := range v.items {
			parts[i] = it.repr(precision)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case KindModule:
		return "<module " + v.ns.NamespaceName() + ">"
	case KindFunction:
		return "<function " + v.fn.Signature() + ">"
	case KindError:
		return v.err.Error()
	case KindGroupType:
		g := v.group
		if !g.Instance {
			return "<class " + g.Name + ">"
		}
		names := g.Fields()
		parts := make([]string, len(names))
		for i, n := range names {
			parts[i] = n + ": " + g.Members[n].repr(precision)
		}
		return g.Name + "{" + strings.Join(parts, ", ") + "}"
	}
	return "?"
}

// Repr is Display with string literals quoted.
func (v *Value) Repr() string { return v.repr(-1) }

func (v *Value) repr(precision int) string {
	if v != nil && v.kind == KindString {
		return Quote(v.str)
	}
	return v.Format(precision)
}
