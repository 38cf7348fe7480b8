package interp

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"simonwaldherr.de/go/kestrel/diag"
	"simonwaldherr.de/go/kestrel/source"
	"simonwaldherr.de/go/kestrel/value"
)

func newTestVM(opts ...Option) (*Interpreter, *strings.Builder) {
	var buf strings.Builder
	opts = append([]Option{WithStdout(&buf), WithStdin(strings.NewReader(""))}, opts...)
	vm := NewInterpreter(opts...)
	vm.RegisterNative("println", func(args []any) (any, error) {
		parts := make([]string, len(args))
		for i, a := range args {
			parts[i] = vm.Format(a.(*value.Value))
		}
		buf.WriteString(strings.Join(parts, " "))
		buf.WriteByte('\n')
		return nil, nil
	})
	return vm, &buf
}

func runAndCapture(t *testing.T, src string) string {
	t.Helper()
	vm, buf := newTestVM()
	if err := vm.Run(src); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	return buf.String()
}

// runError runs src and returns the interpreter error it must produce.
func runError(t *testing.T, src string) *diag.Error {
	t.Helper()
	vm, _ := newTestVM()
	err := vm.Run(src)
	require.Error(t, err)
	de, ok := diag.As(err)
	require.True(t, ok, "not a diag error: %v", err)
	return de
}

func lines(out string) []string {
	return strings.Split(strings.TrimSpace(out), "\n")
}

func TestHelloWorld(t *testing.T) {
	out := runAndCapture(t, `println("hello world");`)
	if out != "hello world\n" {
		t.Errorf("expected 'hello world', got %q", out)
	}
}

func TestVariablesAndArithmetic(t *testing.T) {
	out := runAndCapture(t, `
$x = 10;
$y = 3;
println(x + y);
println(x - y);
println(x * y);
println(x % y);
println(2 - 3 - 4);
println("x=" + x);
`)
	assert.Equal(t, []string{"13", "7", "30", "1", "-5", "x=10"}, lines(out))
}

func TestWhileLoopRewind(t *testing.T) {
	out := runAndCapture(t, `
$n = 0;
$i=0; while i<3: i=i+1; n += 1;;
println(i);
println(n);
assert i == 3;
`)
	assert.Equal(t, []string{"3", "3"}, lines(out))
}

func TestLoopBodyVariablesResetEachPass(t *testing.T) {
	out := runAndCapture(t, `
$i = 0;
while i < 2:
	$tmp = i * 10;
	println(tmp);
	i += 1;
;
`)
	assert.Equal(t, []string{"0", "10"}, lines(out))
}

func TestBreakAndContinue(t *testing.T) {
	out := runAndCapture(t, `
$i = 0;
$sum = 0;
while i < 10:
	i += 1;
	if i == 3:
		continue;
	;
	if i > 5:
		break;
	;
	sum += i;
;
println(sum);
println(i);
`)
	assert.Equal(t, []string{"12", "6"}, lines(out))
}

func TestBreakOutsideLoop(t *testing.T) {
	de := runError(t, "break;")
	assert.Equal(t, diag.TagIllegalOperation, de.Tag)
	assert.Equal(t, diag.InfoBreakOutsideLoop, de.Info)
}

func TestIfElifElse(t *testing.T) {
	cases := []struct {
		x    int
		want string
	}{
		{1, "small"},
		{5, "medium"},
		{50, "large"},
	}
	for _, c := range cases {
		src := "$x = " + value.FormatNumber(float64(c.x), -1) + `;
if x < 3:
	println("small");
elif x < 10:
	println("medium");
else:
	println("large");
;`
		out := runAndCapture(t, src)
		assert.Equal(t, c.want+"\n", out, "x=%d", c.x)
	}
}

func TestDeadBranchNeverRuns(t *testing.T) {
	out := runAndCapture(t, `
if false:
	if true:
		println("inner");
	else:
		println("inner else");
	;
else:
	println("outer else");
;
`)
	assert.Equal(t, "outer else\n", out)
}

func TestConditionMustBeBool(t *testing.T) {
	de := runError(t, "if 1: ;")
	assert.Equal(t, diag.TagType, de.Tag)
}

func TestUnsetGuard(t *testing.T) {
	de := runError(t, "$x;\nprintln(x);")
	assert.Equal(t, diag.Runtime, de.Category)
	assert.Equal(t, diag.TagUnset, de.Tag)
	assert.Equal(t, 2, de.Line)
	assert.NotEmpty(t, de.Hint)

	out := runAndCapture(t, "$?x;\nprintln(x);\nprintln(x??);")
	assert.Equal(t, []string{"unset", "false"}, lines(out))
}

func TestReadonlyAndConstants(t *testing.T) {
	de := runError(t, "$!k = 1;\nk = 2;")
	assert.Equal(t, diag.TagReadonly, de.Tag)
	assert.Equal(t, diag.InfoReadonlyAssign, de.Info)

	de = runError(t, "true = false;")
	assert.Equal(t, diag.TagReadonly, de.Tag)

	// redeclaring does not replace a readonly slot, strict or not
	de = runError(t, "$!x = 1;\n$x = 2;")
	assert.Equal(t, diag.TagReadonly, de.Tag)
	assert.Equal(t, diag.InfoReadonlyAssign, de.Info)
	out := runAndCapture(t, "$x = 1;\n$x = 2;\nprintln(x);")
	assert.Equal(t, []string{"2"}, lines(out))

	de = runError(t, "y = 1;")
	assert.Equal(t, diag.TagName, de.Tag)
}

func TestNameResolutionPrecedence(t *testing.T) {
	vm, buf := newTestVM()
	vm.RegisterPackage(NewPackage("Number").Const("size", value.NewNumber(8)))
	require.NoError(t, vm.Run(`
println(String);
println(Number.size);
do:
	$Number = 1;
	println(Number);
;
`))
	assert.Equal(t, []string{"String", "8", "1"}, lines(buf.String()))
}

func TestFunctionCallAndReturn(t *testing.T) {
	out := runAndCapture(t, `
func add(a Number, b Number) -> Number:
	return a + b;
;
func greet(name String):
	println("hi " + name);
;
println(add(2, 3));
greet("kes");
println(greet("x"));
`)
	assert.Equal(t, []string{"5", "hi kes", "hi x", "none"}, lines(out))
}

func TestRecursion(t *testing.T) {
	out := runAndCapture(t, `
func fact(n Number) -> Number:
	if n <= 1:
		return 1;
	;
	return n * fact(n - 1);
;
println(fact(10));
`)
	assert.Equal(t, "3628800\n", out)
}

func TestOverloadFallback(t *testing.T) {
	out := runAndCapture(t, `
func f(a Number, b):
	return "any";
;
func f(a Number, b String):
	return "exact";
;
func g(a Number, b):
	return "fallback";
;
println(f(1, "a"));
println(f(1, 2));
println(g(1, "a"));
`)
	assert.Equal(t, []string{"exact", "any", "fallback"}, lines(out))

	de := runError(t, `
func g(a Number, b):
	return 1;
;
g("a", "b");
`)
	assert.Equal(t, diag.TagOverload, de.Tag)
	assert.Equal(t, diag.InfoNoOverload, de.Info)
	assert.Contains(t, de.Message, "g(String,String)")
}

func TestVariadicFunction(t *testing.T) {
	out := runAndCapture(t, `
func count(first, rest...):
	println(first);
	println(rest);
;
count(1, 2, 3);
count("a");
`)
	assert.Equal(t, []string{"1", "[2, 3]", "a", "[]"}, lines(out))
}

func TestVariadicNeedsLeadingArguments(t *testing.T) {
	de := runError(t, "func f(a, b, rest...):\n;\nf(1);")
	assert.Equal(t, diag.Runtime, de.Category)
	assert.Equal(t, diag.TagOverload, de.Tag)
	assert.Equal(t, diag.InfoNoOverload, de.Info)

	out := runAndCapture(t, `
func f(a, b, rest...):
	println(a, b, rest);
;
f(1, 2);
try:
	f(1);
catch e:
	println(e.tag);
;
`)
	assert.Equal(t, []string{"1 2 []", "OverloadError"}, lines(out))
}

func TestUnicodeParameterNames(t *testing.T) {
	out := runAndCapture(t, `
func größe(ä, straße2):
	return ä + straße2;
;
println(größe(2, 3));
`)
	assert.Equal(t, []string{"5"}, lines(out))

	de := runError(t, "func f(1a):\n;")
	assert.Equal(t, diag.Syntax, de.Category)
}

func TestRedeclareFunction(t *testing.T) {
	de := runError(t, "func f(a): ;\nfunc f(b): ;")
	assert.Equal(t, diag.InfoRedeclare, de.Info)
}

func TestFunctionPlacement(t *testing.T) {
	de := runError(t, "if true:\n\tfunc g(): ;\n;")
	assert.Equal(t, diag.Syntax, de.Category)
	assert.Equal(t, diag.InfoFunctionPlacement, de.Info)
}

func TestReturnKindChecked(t *testing.T) {
	de := runError(t, "func f() -> Number: return \"x\"; ;\nf();")
	assert.Equal(t, diag.TagType, de.Tag)

	de = runError(t, "return 1;")
	assert.Equal(t, diag.TagIllegalOperation, de.Tag)
}

func TestStackOverflow(t *testing.T) {
	vm, _ := newTestVM(WithMaxFrames(16))
	err := vm.Run("func down(n): return down(n + 1); ;\ndown(0);")
	require.Error(t, err)
	de, _ := diag.As(err)
	assert.Equal(t, diag.Critical, de.Category)
	assert.Equal(t, diag.TagStackOverflow, de.Tag)
	assert.NotEmpty(t, de.Trace)
	assert.Empty(t, vm.Frames())
}

func TestScopeLeak(t *testing.T) {
	de := runError(t, "$x = 1;\ndo:\n\t$y = 2;\n")
	assert.Equal(t, diag.Critical, de.Category)
	assert.Equal(t, diag.TagScopeLeak, de.Tag)
	assert.Equal(t, 2, de.Line)

	de = runError(t, "func f():\n\treturn 1;\n")
	assert.Equal(t, diag.TagScopeLeak, de.Tag)
	assert.Equal(t, 1, de.Line)
}

func TestCloseTopLevel(t *testing.T) {
	de := runError(t, "$x = 1;\n;")
	assert.Equal(t, diag.Syntax, de.Category)
	assert.Equal(t, diag.InfoCloseTopLevel, de.Info)
	assert.Equal(t, "use exit instead", de.Hint)
}

func TestBorderMismatch(t *testing.T) {
	de := runError(t, "do:\nelse:\n;")
	assert.Equal(t, diag.InfoBorderMismatch, de.Info)
}

func TestUnknownStatement(t *testing.T) {
	de := runError(t, "$x = 1;\nthis is not kestrel")
	assert.Equal(t, diag.Syntax, de.Category)
	assert.Equal(t, diag.TagUnknownStatement, de.Tag)
	assert.Equal(t, 2, de.Line)
}

func TestClasses(t *testing.T) {
	out := runAndCapture(t, `
class Point:
	$x = 0;
	$y = 0;
	func init(x, y):
		self.x = x;
		self.y = y;
	;
	func sum() -> Number:
		return self.x + self.y;
	;
	func move(d Number):
		self.x += d;
	;
;
$p = Point(1, 2);
println(p.sum());
p.move(10);
println(p.x);
$q = p;
q.y = 5;
println(p);
$origin = Point();
println(origin);
println(Point);
`)
	assert.Equal(t, []string{"3", "11", "Point{x: 11, y: 5}", "Point{x: 0, y: 0}", "<class Point>"}, lines(out))
}

func TestArraysAreCopied(t *testing.T) {
	out := runAndCapture(t, `
$a = [1, 2, 3];
$b = a;
b[0] = 9;
a += 4;
println(a);
println(b);
println(a[-1]);
clear b;
println(b);
`)
	assert.Equal(t, []string{"[1, 2, 3, 4]", "[9, 2, 3]", "4", "[]"}, lines(out))
}

func TestTryCatch(t *testing.T) {
	out := runAndCapture(t, `
try:
	raise ValueError "bad \"input\"";
	println("skipped");
catch e:
	println(e.tag);
	println(e.message);
;
try:
	$n = missing + 1;
;
try:
	println("fine");
catch:
	println("not reached");
;
println("after");
`)
	assert.Equal(t, []string{"ValueError", `bad "input"`, "fine", "after"}, lines(out))
}

func TestTryCatchesAcrossFrames(t *testing.T) {
	out := runAndCapture(t, `
func explode():
	raise Boom "from function";
	println("never");
;
try:
	explode();
	println("skipped");
catch e:
	println(e.tag + ": " + e.message);
;
`)
	assert.Equal(t, "Boom: from function\n", out)
}

func TestRethrow(t *testing.T) {
	de := runError(t, `
try:
	raise Custom "inner";
catch e:
	raise e;
;
`)
	assert.Equal(t, "Custom", de.Tag)
	assert.Equal(t, "inner", de.Message)

	de = runError(t, "raise 1;")
	assert.Equal(t, diag.TagType, de.Tag)
}

func TestCriticalErrorsAreNotCaught(t *testing.T) {
	vm, _ := newTestVM(WithMaxFrames(8))
	err := vm.Run(`
func down(n): return down(n); ;
try:
	down(1);
catch:
	println("caught");
;
`)
	de, ok := diag.As(err)
	require.True(t, ok)
	assert.Equal(t, diag.TagStackOverflow, de.Tag)
}

func TestAssert(t *testing.T) {
	out := runAndCapture(t, `
assert 1 + 1 == 2;
assert "3", 1 + 2;
println("ok");
`)
	assert.Equal(t, "ok\n", out)

	de := runError(t, "assert 1 == 2;")
	assert.Equal(t, diag.TagAssertion, de.Tag)
	assert.Equal(t, "true", de.Expected)
	assert.Equal(t, "false", de.Actual)

	de = runError(t, `assert "a", "b";`)
	assert.Equal(t, "a", de.Expected)
	assert.Equal(t, "b", de.Actual)
	assert.Contains(t, de.Report(), "expected: a")
}

func TestDirectives(t *testing.T) {
	vm, buf := newTestVM()
	require.NoError(t, vm.Run(`
# precision 2;
println(3.14159);
println(10);
# precision -1;
println(0.5);
`))
	assert.Equal(t, []string{"3.14", "10.00", "0.5"}, lines(buf.String()))

	de := runError(t, "# nosuch 1;")
	assert.Equal(t, diag.TagDirective, de.Tag)
	de = runError(t, `# strict "yes";`)
	assert.Equal(t, diag.TagType, de.Tag)
	de = runError(t, "# strict true;\n$a = 1;\n$a = 2;")
	assert.Equal(t, diag.InfoRedeclare, de.Info)

	vm, _ = newTestVM()
	require.NoError(t, vm.SetDirective("maxframes", "32"))
	v, ok := vm.Directive("maxframes")
	require.True(t, ok)
	assert.Equal(t, "32", v.Display())
	assert.Error(t, vm.SetDirective("precision", "many"))
	assert.Equal(t, []string{"maxframes", "precision", "strict"}, vm.Directives())
}

func TestConsoleRead(t *testing.T) {
	vm, buf := newTestVM(WithStdin(strings.NewReader("kestrel\n")))
	require.NoError(t, vm.Run(`$name = @;
println("hi " + name);`))
	assert.Equal(t, "hi kestrel\n", buf.String())

	err := vm.Run("$again = @;")
	de, ok := diag.As(err)
	require.True(t, ok)
	assert.Equal(t, diag.TagValue, de.Tag)
}

func TestExit(t *testing.T) {
	vm, buf := newTestVM()
	require.NoError(t, vm.Run(`
func stop():
	exit;
;
println("a");
stop();
println("b");
`))
	assert.Equal(t, "a\n", buf.String())
	assert.True(t, vm.Exited())
}

func writeModule(t *testing.T, dir, name, src string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name+source.Extension), []byte(src), 0o644))
}

func TestModuleLifecycle(t *testing.T) {
	dir := t.TempDir()
	writeModule(t, dir, "lib", `
$x = 42;
func double(n Number) -> Number:
	return n * 2;
;
func shout():
	println("lib x is " + x);
;
`)
	vm, buf := newTestVM(WithModulePaths(dir))
	require.NoError(t, vm.Run(`
acquire lib;
acquires lib;
println(lib.x);
println(lib.double(4));
lib.x = 7;
lib.shout();
release lib;
`))
	assert.Equal(t, []string{"42", "8", "lib x is 7"}, lines(buf.String()))
	assert.Equal(t, []string{"main"}, vm.Modules())

	cases := []struct {
		src  string
		info string
	}{
		{"acquire lib;\nacquire lib;", diag.InfoModuleLoaded},
		{"acquire nosuch;", diag.InfoModuleMissing},
		{"release lib;", diag.InfoModuleMissing},
		{"release main;", diag.InfoReleaseActive},
	}
	for _, c := range cases {
		vm, _ = newTestVM(WithModulePaths(dir))
		err := vm.Run(c.src)
		de, ok := diag.As(err)
		require.True(t, ok, c.src)
		assert.Equal(t, c.info, de.Info, c.src)
	}
}

func TestModuleCannotReleaseItself(t *testing.T) {
	dir := t.TempDir()
	writeModule(t, dir, "selfish", "release selfish;\n")
	vm, _ := newTestVM(WithModulePaths(dir))
	err := vm.Run("acquire selfish;")
	de, ok := diag.As(err)
	require.True(t, ok)
	assert.Equal(t, diag.InfoReleaseActive, de.Info)
}

func TestRunFile(t *testing.T) {
	dir := t.TempDir()
	writeModule(t, dir, "helper", "$greeting = \"hello\";\n")
	writeModule(t, dir, "app", "acquire helper;\nprintln(helper.greeting);\n")
	vm, buf := newTestVM()
	require.NoError(t, vm.RunFile(filepath.Join(dir, "app"+source.Extension)))
	assert.Equal(t, "hello\n", buf.String())

	assert.Error(t, vm.RunFile(filepath.Join(dir, "missing.kes")))
}

func TestContextCancel(t *testing.T) {
	vm, _ := newTestVM()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := vm.RunContext(ctx, source.Parse("main", "$x = 1;"))
	de, ok := diag.As(err)
	require.True(t, ok)
	assert.Equal(t, diag.TagInterrupted, de.Tag)
	assert.Equal(t, diag.Critical, de.Category)
}

func TestErrorTrace(t *testing.T) {
	de := runError(t, `
func inner():
	$a = nothing;
;
func outer():
	inner();
;
outer();
`)
	assert.Equal(t, diag.TagName, de.Tag)
	assert.Equal(t, 3, de.Line)
	require.Len(t, de.Trace, 3)
	assert.Equal(t, "inner in main line 3", de.Trace[0])
	assert.Equal(t, "main line 8", de.Trace[2])
	assert.Contains(t, de.Report(), "trace:")
}

func TestStringOps(t *testing.T) {
	out := runAndCapture(t, `
$s = "ab";
s *= 3;
println(s);
println("abc"[1]);
println("x" + true);
$t = "go";
t += "pher";
println(t);
println(t§);
`)
	assert.Equal(t, []string{"ababab", "b", "xtrue", "gopher", "gopher"}, lines(out))
}
