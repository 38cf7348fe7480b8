package interp

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"simonwaldherr.de/go/kestrel/diag"
	"simonwaldherr.de/go/kestrel/value"
)

func hostPackages() (*Package, *Package) {
	fs := NewPackage("fs").
		Func(Routine{Name: "ReadFile", Returns: value.KindString, Params: []ParamKind{ParamString}, Fn: func(args []any) (any, error) {
			if args[0].(string) == "README.md" {
				return "TEST_README_CONTENT", nil
			}
			return "", nil
		}}).
		Func(Routine{Name: "Repeat", Returns: value.KindString, Params: []ParamKind{ParamString, ParamInt}, Fn: func(args []any) (any, error) {
			return strings.Repeat(args[0].(string), int(args[1].(int64))), nil
		}}).
		Func(Routine{Name: "Fail", Returns: value.KindNone, Fn: func(args []any) (any, error) {
			return nil, errors.New("disk unavailable")
		}}).
		Const("Version", value.NewString("1.0"))
	http := NewPackage("http").
		Func(Routine{Name: "GetText", ForceCase: true, Returns: value.KindString, Params: []ParamKind{ParamString}, Fn: func(args []any) (any, error) {
			return "HTTP_OK:" + args[0].(string), nil
		}}).
		Func(Routine{Name: "Status", Returns: value.KindAny, Params: []ParamKind{ParamFloat}, Fn: func(args []any) (any, error) {
			return args[0].(float64) >= 200 && args[0].(float64) < 300, nil
		}})
	return fs, http
}

func TestHostPackages(t *testing.T) {
	vm, buf := newTestVM()
	fs, http := hostPackages()
	vm.RegisterPackage(fs)
	vm.RegisterPackage(http)

	require.NoError(t, vm.Run(`
acquire fs;
acquires http;
$s = fs.readFile("README.md");
println(s);
println(http.GetText("http://example"));
println(fs.repeat("ab", 3));
println(http.status(204));
println(fs.Version);
try:
	fs.fail();
catch e:
	println(e.message);
;
`))
	assert.Equal(t, []string{
		"TEST_README_CONTENT",
		"HTTP_OK:http://example",
		"ababab",
		"true",
		"1.0",
		"disk unavailable",
	}, lines(buf.String()))
	assert.Contains(t, vm.Modules(), "fs (internal)")
}

func TestHostMarshalling(t *testing.T) {
	vm, _ := newTestVM()
	fs, _ := hostPackages()
	vm.RegisterPackage(fs)

	cases := []struct {
		src string
		tag string
	}{
		{`fs.repeat("ab", 1.5);`, diag.TagConversion},
		{`fs.readFile(1);`, diag.TagOverload},
		{`fs.Version = "2";`, diag.TagReadonly},
		{`release fs;`, diag.TagIllegalOperation},
		{`fs.nothing();`, diag.TagOverload},
	}
	for _, c := range cases {
		err := vm.Run(c.src)
		de, ok := diag.As(err)
		require.True(t, ok, c.src)
		assert.Equal(t, c.tag, de.Tag, c.src)
	}
}

func TestGlobalPackage(t *testing.T) {
	vm, buf := newTestVM()
	vm.RegisterPackage(NewPackage("").
		Func(Routine{Name: "Twice", Returns: value.KindNumber, Params: []ParamKind{ParamFloat}, Fn: func(args []any) (any, error) {
			return args[0].(float64) * 2, nil
		}}).
		Const("answer", value.NewNumber(42)))
	require.NoError(t, vm.Run("println(twice(answer));"))
	assert.Equal(t, "84\n", buf.String())
}

func TestHostPanicIsInternalError(t *testing.T) {
	vm, _ := newTestVM()
	vm.RegisterNative("explode", func(args []any) (any, error) {
		var m map[string]int
		m["boom"]++
		return nil, nil
	})
	err := vm.Run("explode();")
	de, ok := diag.As(err)
	require.True(t, ok)
	assert.Equal(t, diag.Critical, de.Category)
	assert.Equal(t, diag.TagInternal, de.Tag)
	assert.NotEmpty(t, de.Incident)
	assert.Contains(t, de.Report(), "internal error, please report")
}

func TestPackageBuilder(t *testing.T) {
	p := NewPackage("demo").
		Func(Routine{Name: "DoThing", Returns: value.KindNone, Params: []ParamKind{ParamString, ParamBool}}).
		Func(Routine{Name: "KeepCase", ForceCase: true, Variadic: true, Returns: value.KindNone})
	require.Len(t, p.Funcs, 2)
	assert.Equal(t, "doThing(String,Bool)", p.Funcs[0].Signature())
	assert.Equal(t, "a", p.Funcs[0].Params[0].Name)
	assert.Equal(t, "KeepCase(...)", p.Funcs[1].Signature())
}

func TestCandidateOrder(t *testing.T) {
	args := []*value.Value{value.NewInt(1), value.NewString("a")}
	assert.Equal(t, []string{
		"f(Number,String)",
		"f(Any,String)",
		"f(Number,Any)",
		"f(Any,Any)",
		"f(...)",
	}, candidates("f", args))
}
