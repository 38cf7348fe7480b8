package value

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"simonwaldherr.de/go/kestrel/diag"
)

func TestTextRoundTrip(t *testing.T) {
	cases := []struct {
		name string
		v    *Value
	}{
		{"string", NewString(`say "hi"`)},
		{"empty string", NewString("")},
		{"number", NewNumber(12.5)},
		{"float noise", NewNumber(0.1 + 0.2)},
		{"negative", NewNumber(-3)},
		{"infinity", NewNumber(math.Inf(1))},
		{"negative infinity", NewNumber(math.Inf(-1))},
		{"int", NewInt(-42)},
		{"bool", NewBool(true)},
		{"unset", NewUnset()},
		{"none", NewNone()},
		{"type", NewType(KindGroupType)},
		{"indexer", NewIndexer(-2)},
		{"error", NewError(diag.Runtimef(diag.TagValue, "bad input"))},
		{"array", NewArray([]*Value{NewNumber(1), NewString(`x,"]`), NewArray([]*Value{NewBool(false)}), NewNone()})},
		{"empty array", NewArray(nil)},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			back, err := FromText(c.v.Kind(), c.v.Display())
			require.NoError(t, err)
			assert.Equal(t, c.v.Kind(), back.Kind())
			assert.Equal(t, c.v.Repr(), back.Repr())
		})
	}
}

func TestSpecialNumbers(t *testing.T) {
	assert.Equal(t, "∞", NewNumber(math.Inf(1)).Display())
	assert.Equal(t, "-∞", NewNumber(math.Inf(-1)).Display())
	assert.Equal(t, "NaN", NewNumber(math.NaN()).Display())

	back, err := FromText(KindNumber, NewNumber(math.NaN()).Display())
	require.NoError(t, err)
	assert.True(t, math.IsNaN(back.Num()))
	back, err = FromText(KindNumber, "-∞")
	require.NoError(t, err)
	assert.True(t, math.IsInf(back.Num(), -1))
}

func TestFromTextRejects(t *testing.T) {
	cases := []struct {
		k    Kind
		text string
	}{
		{KindNumber, "12a"},
		{KindNumber, "0x10"},
		{KindInt, "1.5"},
		{KindBool, "yes"},
		{KindType, "Widget"},
		{KindIndexer, "[a]"},
		{KindArray, "1, 2"},
		{KindNone, "null"},
		{KindFunction, "f"},
	}
	for _, c := range cases {
		_, err := FromText(c.k, c.text)
		de, ok := diag.As(err)
		require.True(t, ok, "%s %q", c.k, c.text)
		assert.Equal(t, diag.TagConversion, de.Tag)
	}
}

func TestIndex(t *testing.T) {
	arr := NewArray([]*Value{NewNumber(1), NewNumber(2), NewNumber(3)})
	cases := []struct {
		v    *Value
		idx  *Value
		want string
		tag  string
	}{
		{arr, NewNumber(0), "1", ""},
		{arr, NewNumber(-1), "3", ""},
		{arr, NewIndexer(-3), "1", ""},
		{arr, NewNumber(3), "", diag.TagIndex},
		{arr, NewNumber(-4), "", diag.TagIndex},
		{arr, NewNumber(1.5), "", diag.TagType},
		{NewString("käse"), NewInt(1), "ä", ""},
		{NewString("abc"), NewNumber(-1), "c", ""},
		{NewString(""), NewNumber(0), "", diag.TagIndex},
		{NewBool(true), NewNumber(0), "", diag.TagType},
	}
	for _, c := range cases {
		got, err := c.v.Index(c.idx)
		if c.tag != "" {
			de, ok := diag.As(err)
			require.True(t, ok, "%s[%s]", c.v.Repr(), c.idx.Repr())
			assert.Equal(t, c.tag, de.Tag)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, c.want, got.Display())
	}

	require.NoError(t, arr.SetIndex(NewNumber(-1), NewNumber(9)))
	assert.Equal(t, "[1, 2, 9]", arr.Display())
}

func TestCompound(t *testing.T) {
	cases := []struct {
		target *Value
		op     string
		rhs    *Value
		want   string
		kind   Kind
	}{
		{NewNumber(1.5), "+=", NewNumber(2), "3.5", KindNumber},
		{NewInt(7), "-=", NewInt(2), "5", KindInt},
		{NewInt(3), "*=", NewNumber(0.5), "1.5", KindNumber},
		{NewInt(1), "/=", NewInt(4), "0.25", KindNumber},
		{NewString("ab"), "+=", NewString("c"), "abc", KindString},
		{NewString("ab"), "*=", NewNumber(3), "ababab", KindString},
		{NewArray([]*Value{NewNumber(1)}), "+=", NewNumber(2), "[1, 2]", KindArray},
	}
	for _, c := range cases {
		require.NoError(t, c.target.Compound(c.op, c.rhs), "%s %s", c.op, c.rhs.Repr())
		assert.Equal(t, c.want, c.target.Display())
		assert.Equal(t, c.kind, c.target.Kind())
	}

	for _, bad := range []struct {
		target *Value
		op     string
		rhs    *Value
	}{
		{NewString("a"), "-=", NewString("a")},
		{NewBool(true), "+=", NewBool(true)},
		{NewNumber(1), "+=", NewString("1")},
		{NewNumber(1), "%=", NewNumber(1)},
	} {
		de, ok := diag.As(bad.target.Compound(bad.op, bad.rhs))
		require.True(t, ok)
		assert.Equal(t, diag.TagType, de.Tag)
	}
}

func TestRepeatIsBounded(t *testing.T) {
	s, err := Repeat("ab", 3)
	require.NoError(t, err)
	assert.Equal(t, "ababab", s)

	s, err = Repeat("", 1e15)
	require.NoError(t, err)
	assert.Empty(t, s)

	for _, n := range []int64{-1, 1e12, MaxRepeatLen/2 + 1} {
		_, err := Repeat("ab", n)
		de, ok := diag.As(err)
		require.True(t, ok, "count %d", n)
		assert.Equal(t, diag.TagValue, de.Tag)
	}

	v := NewString("ab")
	de, ok := diag.As(v.MulAssign(NewNumber(1e12)))
	require.True(t, ok)
	assert.Equal(t, diag.TagValue, de.Tag)
	assert.Equal(t, "ab", v.Str())

	full, err := Repeat("x", MaxRepeatLen)
	require.NoError(t, err)
	assert.Len(t, full, MaxRepeatLen)
	assert.True(t, strings.HasPrefix(full, "xx"))
}

func TestClear(t *testing.T) {
	arr := NewArray([]*Value{NewNumber(1)})
	require.NoError(t, arr.Clear())
	assert.Equal(t, "[]", arr.Display())

	s := NewString("abc")
	require.NoError(t, s.Clear())
	assert.Equal(t, "", s.Str())

	de, ok := diag.As(NewNumber(1).Clear())
	require.True(t, ok)
	assert.Equal(t, diag.TagType, de.Tag)
}

func TestCopyIsIndependent(t *testing.T) {
	orig := NewArray([]*Value{NewNumber(1), NewArray([]*Value{NewNumber(2)})})
	orig.Readonly = true
	c := orig.Copy()
	assert.False(t, c.Readonly)
	require.NoError(t, c.Items()[1].AddAssign(NewNumber(3)))
	assert.Equal(t, "[1, [2]]", orig.Display())
	assert.Equal(t, "[1, [2, 3]]", c.Display())
}
