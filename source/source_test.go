package source

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplit(t *testing.T) {
	cases := []struct {
		line string
		want []string
	}{
		{"$i=0; while i<3: i=i+1;;", []string{"$i=0;", "while i<3:", "i=i+1;", ";"}},
		{`print("a;b:c");`, []string{`print("a;b:c");`}},
		{"if x: y = 1; else: y = 2; ;", []string{"if x:", "y = 1;", "else:", "y = 2;", ";"}},
		{"   ", nil},
		{"f(a; b);", []string{"f(a; b);"}},
		{"unterminated", []string{"unterminated"}},
	}
	for _, c := range cases {
		t.Run(c.line, func(t *testing.T) {
			assert.Equal(t, c.want, Split(c.line))
		})
	}
}

func TestStripComment(t *testing.T) {
	assert.Equal(t, "x = 1; ", StripComment("x = 1; // note"))
	assert.Equal(t, `print("http://x");`, StripComment(`print("http://x");`))
	assert.Equal(t, "", StripComment("// whole line"))
}

func TestParseKeepsPhysicalLines(t *testing.T) {
	f := Parse("main", "$a = 1; $b = 2;\n\n// skip\nif a < b:\n  print(a);\n;\n")
	require.Len(t, f.Pieces, 5)
	assert.Equal(t, Piece{Line: 1, Text: "$a = 1;"}, f.Pieces[0])
	assert.Equal(t, Piece{Line: 1, Text: "$b = 2;"}, f.Pieces[1])
	assert.Equal(t, 4, f.Pieces[2].Line)
	assert.Equal(t, 5, f.Pieces[3].Line)
	assert.Equal(t, Piece{Line: 6, Text: ";"}, f.Pieces[4])
	assert.Equal(t, "main", f.Name)
}

func TestDepth(t *testing.T) {
	assert.Equal(t, 1, Depth("while x:"))
	assert.Equal(t, 0, Depth("x = 1;"))
	assert.Equal(t, -1, Depth(";"))
	assert.Equal(t, 0, Depth("else:"))
	assert.Equal(t, 0, Depth("catch err:"))
	assert.Equal(t, 0, Depth("$i=0; while i<3: i=i+1;;"))
	assert.Equal(t, 1, Depth("elsewhere = 2; do:"))
}

func TestLoadAndResolve(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "util.kes")
	require.NoError(t, os.WriteFile(path, []byte("$x = 1;\n"), 0o644))

	got, ok := Resolve("util", []string{filepath.Join(dir, "missing"), dir})
	require.True(t, ok)
	assert.Equal(t, path, got)

	_, ok = Resolve("nope", []string{dir})
	assert.False(t, ok)

	f, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "util", f.Name)
	assert.Equal(t, path, f.Path)
	assert.Len(t, f.Pieces, 1)

	_, err = Load(filepath.Join(dir, "absent.kes"))
	assert.Error(t, err)
}
