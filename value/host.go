package value

import (
	"fmt"

	"simonwaldherr.de/go/kestrel/diag"
)

// FromHost wraps a raw host result using the routine's declared return kind.
func FromHost(raw any, declared Kind) (*Value, error) {
	if v, ok := raw.(*Value); ok {
		if v == nil {
			return NewUnset(), nil
		}
		return v, nil
	}
	if declared == KindNone {
		return NewNone(), nil
	}
	if raw == nil {
		return NewUnset(), nil
	}
	switch declared {
	case KindString:
		if s, ok := raw.(string); ok {
			return NewString(s), nil
		}
		return NewString(fmt.Sprint(raw)), nil
	case KindNumber:
		if f, ok := hostFloat(raw); ok {
			return NewNumber(f), nil
		}
	case KindInt:
		if f, ok := hostFloat(raw); ok {
			return NewInt(int64(f)), nil
		}
	case KindBool:
		if b, ok := raw.(bool); ok {
			return NewBool(b), nil
		}
	case KindType:
		if k, ok := raw.(Kind); ok {
			return NewType(k), nil
		}
	case KindError:
		if e, ok := raw.(*diag.Error); ok {
			return NewError(e), nil
		}
	case KindArray:
		return hostArray(raw)
	case KindAny:
		return inferHost(raw)
	}
	return nil, diag.Runtimef(diag.TagConversion, "host value %T cannot be returned as %s", raw, declared)
}

func hostFloat(raw any) (float64, bool) {
	switch x := raw.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case int32:
		return float64(x), true
	}
	return 0, false
}

func hostArray(raw any) (*Value, error) {
	var items []*Value
	switch xs := raw.(type) {
	case []*Value:
		return NewArray(xs), nil
	case []any:
		for _, x := range xs {
			v, err := inferHost(x)
			if err != nil {
				return nil, err
			}
			items = append(items, v)
		}
	case []string:
		for _, s := range xs {
			items = append(items, NewString(s))
		}
	case []float64:
		for _, f := range xs {
			items = append(items, NewNumber(f))
		}
	default:
		return nil, diag.Runtimef(diag.TagConversion, "host value %T is not an array", raw)
	}
	return NewArray(items), nil
}

func inferHost(raw any) (*Value, error) {
	switch x := raw.(type) {
	case nil:
		return NewUnset(), nil
	case *Value:
		return x, nil
	case string:
		return NewString(x), nil
	case bool:
		return NewBool(x), nil
	case int, int32, int64:
		f, _ := hostFloat(x)
		return NewInt(int64(f)), nil
	case float32, float64:
		f, _ := hostFloat(x)
		return NewNumber(f), nil
	case Kind:
		return NewType(x), nil
	case *diag.Error:
		return NewError(x), nil
	case []any, []string, []float64, []*Value:
		return hostArray(x)
	}
	return nil, diag.Runtimef(diag.TagConversion, "unsupported host value %T", raw)
}
