package model

import (
	"math"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueMarshalKeepsInsertionOrder(t *testing.T) {
	v := NewMap()
	v.Set("zeta", Number(1))
	v.Set("alpha", String("a"))
	v.Set("mid", List(Bool(true), Null(), Number(2.5)))

	out, err := json.Marshal(v)
	require.NoError(t, err)
	assert.Equal(t, `{"zeta":1,"alpha":"a","mid":[true,null,2.5]}`, string(out))
}

func TestValueSetExistingKeyKeepsPosition(t *testing.T) {
	v := MapOf("a", 1, "b", 2)
	v.Set("a", Number(10))

	assert.Equal(t, []string{"a", "b"}, v.Keys())
	got, ok := v.Get("a")
	require.True(t, ok)
	n, _ := got.Num()
	assert.Equal(t, 10.0, n)
}

func TestValueNumberEncoding(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{10, "10"},
		{-3, "-3"},
		{0.25, "0.25"},
		{1700000000123456, "1700000000123456"},
		{9007199254740992, "9007199254740992"},
		{1e21, "1e+21"},
		{math.NaN(), "null"},
		{math.Inf(1), "null"},
	}
	for _, tt := range tests {
		out, err := Number(tt.in).MarshalJSON()
		require.NoError(t, err)
		assert.Equal(t, tt.want, string(out))
	}
}

func TestValueJSONKeepsOrderAndLiterals(t *testing.T) {
	doc := `{"b":1,"a":{"d":[9007199254740993,1.50,-0],"c":"x"},"e":null}`
	var v Value
	require.NoError(t, json.Unmarshal([]byte(doc), &v))
	assert.Equal(t, []string{"b", "a", "e"}, v.Keys())

	out, err := json.Marshal(v)
	require.NoError(t, err)
	assert.Equal(t, doc, string(out))

	// Aggregated totals lose the literal but stay integral.
	total, _ := v.Get("b")
	n, _ := total.Num()
	out, err = json.Marshal(Number(n + 1e15))
	require.NoError(t, err)
	assert.Equal(t, "1000000000000001", string(out))
}

func TestValueUnmarshalJSONRejectsTrailingData(t *testing.T) {
	var v Value
	assert.Error(t, v.UnmarshalJSON([]byte(`{"a":1} {"b":2}`)))
	assert.Error(t, v.UnmarshalJSON([]byte(`{"a":`)))
}

func TestInt(t *testing.T) {
	out, err := json.Marshal(Int(9007199254740993))
	require.NoError(t, err)
	assert.Equal(t, "9007199254740993", string(out))
	n, ok := Int(12).Num()
	assert.True(t, ok)
	assert.Equal(t, 12.0, n)
}

func TestValueUnmarshalJSON(t *testing.T) {
	var v Value
	require.NoError(t, json.Unmarshal([]byte(`{"success":{"count":3},"list":[1,"x",false,null]}`), &v))

	count, ok := v.Path("success", "count")
	require.True(t, ok)
	n, ok := count.Num()
	require.True(t, ok)
	assert.Equal(t, 3.0, n)

	list, ok := v.Get("list")
	require.True(t, ok)
	assert.Equal(t, KindList, list.Kind())
	assert.Equal(t, 4, list.Len())
	last, _ := list.Index(3)
	assert.True(t, last.IsNull())
}

func TestValueEqualIgnoresKeyOrder(t *testing.T) {
	a := MapOf("x", 1, "y", "two")
	b := MapOf("y", "two", "x", 1)
	assert.True(t, Equal(a, b))

	b.Set("z", Null())
	assert.False(t, Equal(a, b))
	assert.False(t, Equal(Number(1), String("1")))
	assert.True(t, Equal(Number(math.NaN()), Number(math.NaN())))
}

func TestValueCloneIsDeep(t *testing.T) {
	orig := MapOf("inner", MapOf("n", 1))
	clone := orig.Clone()

	inner, _ := clone.Get("inner")
	inner.Set("n", Number(99))
	clone.Set("inner", inner)

	origInner, _ := orig.Get("inner")
	n, _ := origInner.Get("n")
	v, _ := n.Num()
	assert.Equal(t, 1.0, v)
}

func TestValueAccessorsOnWrongKind(t *testing.T) {
	s := String("x")
	_, ok := s.Get("k")
	assert.False(t, ok)
	_, ok = s.Num()
	assert.False(t, ok)
	assert.Nil(t, s.Keys())
	assert.Equal(t, 0, s.Len())
	assert.Panics(t, func() { s.Set("k", Null()) })
}

func TestFromInterfaceRejectsUnknownTypes(t *testing.T) {
	_, err := FromInterface(struct{}{})
	assert.Error(t, err)
}

func TestNormalizedRecordJSON(t *testing.T) {
	rec := NormalizedRecord{ID: "7", URL: "https://a.example/"}
	out, err := json.Marshal(rec)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"7","url":"https://a.example/","response":null}`, string(out))
}
