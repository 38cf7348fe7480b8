package runtime

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"simonwaldherr.de/go/kestrel/diag"
	"simonwaldherr.de/go/kestrel/interp"
)

func newStdVM(stdin string) (*interp.Interpreter, *strings.Builder) {
	var out strings.Builder
	vm := interp.NewInterpreter(interp.WithStdout(&out), interp.WithStdin(strings.NewReader(stdin)))
	Install(vm)
	return vm, &out
}

func TestGlobals(t *testing.T) {
	vm, out := newStdVM("alice\n")
	require.NoError(t, vm.Run(`
$a = [1, 2];
push(a, 3);
println(len(a), a);
println(pop(a), len(a));
print("x", 1);
println();
println(str(1.5) + "!", num("2.5") + 1, int(7.9), int("3"));
println(type(a), type("s"), type(len("abc")));
$name = input("who? ");
println(name);
class Point:
	$x = 1;
	$y = 2;
;
println(keys(Point()));
`))
	assert.Equal(t, strings.Join([]string{
		"3 [1, 2, 3]",
		"3 2",
		"x 1",
		"1.5! 3.5 7 3",
		"Array String Int",
		"who? alice",
		`["x", "y"]`,
	}, "\n")+"\n", out.String())
}

func TestGlobalErrors(t *testing.T) {
	cases := []struct {
		src string
		tag string
	}{
		{"pop([]);", diag.TagIndex},
		{"len(1);", diag.TagType},
		{`num("abc");`, diag.TagConversion},
		{"push(1, 2);", diag.TagType},
		{"input();", diag.TagValue},
		{"keys([1]);", diag.TagType},
		{"int(NaN);", diag.TagValue},
		{"int(math.pow(10, 400));", diag.TagValue},
		{"int(-math.pow(10, 400));", diag.TagValue},
		{"int(1e300);", diag.TagValue},
	}
	for _, c := range cases {
		vm, _ := newStdVM("")
		de, ok := diag.As(vm.Run(c.src))
		require.True(t, ok, c.src)
		assert.Equal(t, c.tag, de.Tag, c.src)
	}
}

func TestMathModule(t *testing.T) {
	vm, out := newStdVM("")
	require.NoError(t, vm.Run(`
println(math.sqrt(16), math.pow(2, 10), math.floor(2.7), math.ceil(2.1), math.abs(-3));
println(math.pi > 3.14 && math.pi < 3.15, math.e > 2.71);
try:
	math.sqrt(-1);
catch err:
	println(err.tag);
;
`))
	assert.Equal(t, "4 1024 2 3 3\ntrue true\nValueError\n", out.String())
}

func TestRandomModuleIsSeedable(t *testing.T) {
	draw := func() string {
		vm, out := newStdVM("")
		require.NoError(t, vm.Run(`
random.seed(42);
$i = 0;
while i < 5:
	print(random.int(0, 100), "");
	i += 1;
;
$f = random.float();
println(f >= 0 && f < 1);
`))
		return out.String()
	}
	first := draw()
	assert.Equal(t, first, draw())
	assert.True(t, strings.HasSuffix(first, "true\n"))

	vm, _ := newStdVM("")
	de, ok := diag.As(vm.Run("random.int(5, 5);"))
	require.True(t, ok)
	assert.Equal(t, diag.TagValue, de.Tag)
}

func TestStringsModule(t *testing.T) {
	vm, out := newStdVM("")
	require.NoError(t, vm.Run(`
$parts = strings.split("a,b,c", ",");
println(len(parts), parts[1]);
println(strings.join(parts, "-"), strings.upper("kes"), strings.lower("KES"));
println(strings.contains("kestrel", "st"), "[" + strings.trim("  x  ") + "]");
`))
	assert.Equal(t, "3 b\na-b-c KES kes\ntrue [x]\n", out.String())
}

func TestModulesAreInternal(t *testing.T) {
	vm, _ := newStdVM("")
	assert.Subset(t, vm.Modules(), []string{"math (internal)", "random (internal)", "strings (internal)"})
	de, ok := diag.As(vm.Run("math.pi = 3;"))
	require.True(t, ok)
	assert.Equal(t, diag.TagReadonly, de.Tag)
}
