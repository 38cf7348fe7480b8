// runtime/native_std.go
package runtime

import (
	"fmt"
	"math"
	"math/rand/v2"
	"strings"
	"time"

	"simonwaldherr.de/go/kestrel/diag"
	"simonwaldherr.de/go/kestrel/interp"
	"simonwaldherr.de/go/kestrel/value"
)

// Install registers the global routines and the math, random and strings
// modules on vm.
func Install(vm *interp.Interpreter) {
	vm.RegisterPackage(Globals(vm))
	vm.RegisterPackage(Math())
	vm.RegisterPackage(Random(uint64(time.Now().UnixNano())))
	vm.RegisterPackage(Strings())
}

// ---------------- Globals ----------------

// Globals builds the unnamed package: console output, conversions and
// array helpers.
func Globals(vm *interp.Interpreter) *interp.Package {
	write := func(newline bool) interp.NativeFunc {
		return func(args []any) (any, error) {
			parts := make([]string, len(args))
			for i, a := range args {
				parts[i] = vm.Format(a.(*value.Value))
			}
			s := strings.Join(parts, " ")
			if newline {
				s += "\n"
			}
			_, err := fmt.Fprint(vm.Stdout(), s)
			return nil, err
		}
	}
	read := func(args []any) (any, error) {
		if len(args) > 0 {
			fmt.Fprint(vm.Stdout(), args[0].(string))
		}
		line, ok := vm.ReadLine()
		if !ok {
			return nil, diag.Runtimef(diag.TagValue, "console input exhausted")
		}
		return line, nil
	}
	any1 := []interp.ParamKind{interp.ParamValue}

	return interp.NewPackage("").
		Func(interp.Routine{Name: "print", Variadic: true, Returns: value.KindNone, Fn: write(false)}).
		Func(interp.Routine{Name: "println", Variadic: true, Returns: value.KindNone, Fn: write(true)}).
		Func(interp.Routine{Name: "input", Returns: value.KindString, Fn: read}).
		Func(interp.Routine{Name: "input", Returns: value.KindString, Params: []interp.ParamKind{interp.ParamString}, Fn: read}).
		Func(interp.Routine{Name: "len", Returns: value.KindInt, Params: any1, Fn: length}).
		Func(interp.Routine{Name: "str", Returns: value.KindString, Params: any1, Fn: func(args []any) (any, error) {
			return vm.Format(args[0].(*value.Value)), nil
		}}).
		Func(interp.Routine{Name: "num", Returns: value.KindNumber, Params: any1, Fn: toNumber}).
		Func(interp.Routine{Name: "int", Returns: value.KindInt, Params: any1, Fn: func(args []any) (any, error) {
			f, err := toNumber(args)
			if err != nil {
				return nil, err
			}
			x := math.Trunc(f.(float64))
			if math.IsNaN(x) || x >= math.MaxInt64 || x < math.MinInt64 {
				return nil, diag.Runtimef(diag.TagValue, "cannot convert %s to Int", value.FormatNumber(x, -1))
			}
			return int64(x), nil
		}}).
		Func(interp.Routine{Name: "type", Returns: value.KindType, Params: any1, Fn: func(args []any) (any, error) {
			return args[0].(*value.Value).Kind(), nil
		}}).
		Func(interp.Routine{Name: "push", Returns: value.KindNone, Params: []interp.ParamKind{interp.ParamValue, interp.ParamValue}, Fn: push}).
		Func(interp.Routine{Name: "pop", Returns: value.KindAny, Params: any1, Fn: pop}).
		Func(interp.Routine{Name: "keys", Returns: value.KindArray, Params: any1, Fn: keys})
}

func length(args []any) (any, error) {
	v := args[0].(*value.Value)
	n, ok := v.Len()
	if !ok {
		return nil, diag.Runtimef(diag.TagType, "len of %s", v.Kind())
	}
	return n, nil
}

func toNumber(args []any) (any, error) {
	v := args[0].(*value.Value)
	switch v.Kind() {
	case value.KindNumber, value.KindInt:
		f, _ := v.Float()
		return f, nil
	case value.KindBool:
		if v.Bool() {
			return 1.0, nil
		}
		return 0.0, nil
	case value.KindString:
		n, err := value.FromText(value.KindNumber, v.Str())
		if err != nil {
			return nil, err
		}
		return n.Num(), nil
	}
	return nil, diag.Runtimef(diag.TagConversion, "cannot convert %s to Number", v.Kind())
}

func array(v *value.Value, routine string) error {
	if v.Kind() != value.KindArray {
		return diag.Runtimef(diag.TagType, "%s expects an Array, got %s", routine, v.Kind())
	}
	if v.Readonly {
		return diag.Runtimef(diag.TagReadonly, "%s on a readonly array", routine).WithInfo(diag.InfoReadonlyAssign)
	}
	return nil
}

// push appends a copy of the element in place.
func push(args []any) (any, error) {
	arr, elem := args[0].(*value.Value), args[1].(*value.Value)
	if err := array(arr, "push"); err != nil {
		return nil, err
	}
	arr.SetItems(append(arr.Items(), elem.Copy()))
	return nil, nil
}

func pop(args []any) (any, error) {
	arr := args[0].(*value.Value)
	if err := array(arr, "pop"); err != nil {
		return nil, err
	}
	items := arr.Items()
	if len(items) == 0 {
		return nil, diag.Runtimef(diag.TagIndex, "pop from an empty array")
	}
	last := items[len(items)-1]
	arr.SetItems(items[:len(items)-1])
	return last, nil
}

func keys(args []any) (any, error) {
	v := args[0].(*value.Value)
	if v.Kind() != value.KindGroupType {
		return nil, diag.Runtimef(diag.TagType, "keys expects a class or instance, got %s", v.Kind())
	}
	return v.Group().Fields(), nil
}

// ---------------- math ----------------

func Math() *interp.Package {
	unary := func(name string, f func(float64) float64) interp.Routine {
		return interp.Routine{Name: name, Returns: value.KindNumber, Params: []interp.ParamKind{interp.ParamFloat},
			Fn: func(args []any) (any, error) { return f(args[0].(float64)), nil }}
	}
	return interp.NewPackage("math").
		Func(interp.Routine{Name: "Sqrt", Returns: value.KindNumber, Params: []interp.ParamKind{interp.ParamFloat}, Fn: func(args []any) (any, error) {
			x := args[0].(float64)
			if x < 0 {
				return nil, diag.Runtimef(diag.TagValue, "sqrt of negative number %s", value.FormatNumber(x, -1))
			}
			return math.Sqrt(x), nil
		}}).
		Func(interp.Routine{Name: "Pow", Returns: value.KindNumber, Params: []interp.ParamKind{interp.ParamFloat, interp.ParamFloat}, Fn: func(args []any) (any, error) {
			return math.Pow(args[0].(float64), args[1].(float64)), nil
		}}).
		Func(unary("Floor", math.Floor)).
		Func(unary("Ceil", math.Ceil)).
		Func(unary("Abs", math.Abs)).
		Const("pi", value.NewNumber(math.Pi)).
		Const("e", value.NewNumber(math.E))
}

// ---------------- random ----------------

// Random builds the random module around a PCG source seeded with seed.
// random.seed reseeds it for reproducible runs.
func Random(seed uint64) *interp.Package {
	src := rand.NewPCG(seed, seed)
	rng := rand.New(src)
	return interp.NewPackage("random").
		Func(interp.Routine{Name: "Int", Returns: value.KindInt, Params: []interp.ParamKind{interp.ParamInt, interp.ParamInt}, Fn: func(args []any) (any, error) {
			lo, hi := args[0].(int64), args[1].(int64)
			if hi <= lo {
				return nil, diag.Runtimef(diag.TagValue, "empty range [%d, %d)", lo, hi)
			}
			return lo + rng.Int64N(hi-lo), nil
		}}).
		Func(interp.Routine{Name: "Float", Returns: value.KindNumber, Fn: func(args []any) (any, error) {
			return rng.Float64(), nil
		}}).
		Func(interp.Routine{Name: "Seed", Returns: value.KindNone, Params: []interp.ParamKind{interp.ParamInt}, Fn: func(args []any) (any, error) {
			n := uint64(args[0].(int64))
			src.Seed(n, n)
			return nil, nil
		}})
}

// ---------------- strings ----------------

func Strings() *interp.Package {
	str1 := []interp.ParamKind{interp.ParamString}
	str2 := []interp.ParamKind{interp.ParamString, interp.ParamString}
	return interp.NewPackage("strings").
		Func(interp.Routine{Name: "Upper", Returns: value.KindString, Params: str1, Fn: func(args []any) (any, error) {
			return strings.ToUpper(args[0].(string)), nil
		}}).
		Func(interp.Routine{Name: "Lower", Returns: value.KindString, Params: str1, Fn: func(args []any) (any, error) {
			return strings.ToLower(args[0].(string)), nil
		}}).
		Func(interp.Routine{Name: "Trim", Returns: value.KindString, Params: str1, Fn: func(args []any) (any, error) {
			return strings.TrimSpace(args[0].(string)), nil
		}}).
		Func(interp.Routine{Name: "Contains", Returns: value.KindBool, Params: str2, Fn: func(args []any) (any, error) {
			return strings.Contains(args[0].(string), args[1].(string)), nil
		}}).
		Func(interp.Routine{Name: "Split", Returns: value.KindArray, Params: str2, Fn: func(args []any) (any, error) {
			return strings.Split(args[0].(string), args[1].(string)), nil
		}}).
		Func(interp.Routine{Name: "Join", Returns: value.KindString, Params: []interp.ParamKind{interp.ParamValue, interp.ParamString}, Fn: func(args []any) (any, error) {
			arr := args[0].(*value.Value)
			if arr.Kind() != value.KindArray {
				return nil, diag.Runtimef(diag.TagType, "join expects an Array, got %s", arr.Kind())
			}
			parts := make([]string, len(arr.Items()))
			for i, it := range arr.Items() {
				parts[i] = it.Display()
			}
			return strings.Join(parts, args[1].(string)), nil
		}})
}
