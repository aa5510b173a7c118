package pipeline

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"client-report-card/internal/model"
	"client-report-card/internal/testutil"
)

func TestUnmarshalLegacyScalars(t *testing.T) {
	tests := []struct {
		in   string
		want model.Value
	}{
		{"N;", model.Null()},
		{"b:1;", model.Bool(true)},
		{"b:0;", model.Bool(false)},
		{"i:-42;", model.Number(-42)},
		{"d:0.5;", model.Number(0.5)},
		{"d:INF;", model.Number(math.Inf(1))},
		{`s:5:"hello";`, model.String("hello")},
		{`s:0:"";`, model.String("")},
		{`s:3:"a"b";`, model.String(`a"b`)},
		{"s:4:\"\xc3\xa9t\xc3\";", model.String("\xc3\xa9t\xc3")},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := UnmarshalLegacy([]byte(tt.in))
			require.NoError(t, err)
			assert.True(t, model.Equal(tt.want, got), "got %v", got)
		})
	}
}

func TestUnmarshalLegacyArrays(t *testing.T) {
	got, err := UnmarshalLegacy([]byte(`a:2:{i:0;s:1:"a";i:1;s:1:"b";}`))
	require.NoError(t, err)
	assert.Equal(t, model.KindList, got.Kind())
	assert.Equal(t, 2, got.Len())

	got, err = UnmarshalLegacy([]byte(`a:2:{i:1;s:1:"a";i:0;s:1:"b";}`))
	require.NoError(t, err)
	assert.Equal(t, model.KindMap, got.Kind())
	assert.Equal(t, []string{"1", "0"}, got.Keys())

	got, err = UnmarshalLegacy([]byte(`a:0:{}`))
	require.NoError(t, err)
	assert.Equal(t, model.KindList, got.Kind())

	got, err = UnmarshalLegacy([]byte(`a:1:{s:7:"success";a:1:{s:5:"count";i:9;}}`))
	require.NoError(t, err)
	count, ok := got.Path("success", "count")
	require.True(t, ok)
	n, _ := count.Num()
	assert.Equal(t, 9.0, n)
}

func TestUnmarshalLegacyObjectBecomesMapping(t *testing.T) {
	in := "O:8:\"stdClass\":3:{s:4:\"name\";s:3:\"abc\";s:6:\"\x00*\x00ver\";i:2;s:12:\"\x00Plugin\x00slug\";s:1:\"p\";}"
	got, err := UnmarshalLegacy([]byte(in))
	require.NoError(t, err)
	assert.True(t, model.Equal(model.MapOf("name", "abc", "ver", 2, "slug", "p"), got), "got %v", got)
}

func TestUnmarshalLegacyRejectsUnsafeTokens(t *testing.T) {
	for _, in := range []string{
		`C:3:"Foo":4:{abcd}`,
		`a:2:{i:0;s:1:"a";i:1;r:2;}`,
		`a:1:{i:0;R:1;}`,
		`E:7:"Foo:Bar";`,
	} {
		_, err := UnmarshalLegacy([]byte(in))
		assert.True(t, errors.Is(err, ErrUnsupportedToken), "%s: %v", in, err)
	}
}

func TestUnmarshalLegacyMalformed(t *testing.T) {
	for _, in := range []string{
		"",
		"N",
		"b:2;",
		"i:abc;",
		`s:10:"short";`,
		`s:-1:"";`,
		`a:2:{i:0;N;}`,
		`a:1:{d:1.5;N;}`,
		`a:99999999:{}`,
		"x:1;",
	} {
		_, err := UnmarshalLegacy([]byte(in))
		assert.Error(t, err, in)
	}
}

func TestUnmarshalLegacyTrailingData(t *testing.T) {
	_, err := UnmarshalLegacy([]byte("i:1;garbage"))
	assert.ErrorIs(t, err, ErrTrailingData)

	_, err = UnmarshalLegacy([]byte("i:1;\n"))
	assert.NoError(t, err)
}

func TestUnmarshalLegacyDepthLimit(t *testing.T) {
	deep := strings.Repeat("a:1:{i:0;", maxLegacyDepth+2) + "N;" + strings.Repeat("}", maxLegacyDepth+2)
	_, err := UnmarshalLegacy([]byte(deep))
	assert.Error(t, err)
}

func TestUnmarshalLegacyRoundTrip(t *testing.T) {
	v := model.MapOf(
		"success", model.MapOf("count", 12, "ratio", 0.75),
		"plugins", model.List(model.String("a"), model.String("b")),
		"active", true,
		"error", nil,
		"0", "string key zero",
	)
	got, err := UnmarshalLegacy(testutil.MarshalLegacy(v))
	require.NoError(t, err)
	assert.True(t, model.Equal(v, got), "got %v", got)
}
