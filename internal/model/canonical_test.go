package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalCanonical_SortsKeys(t *testing.T) {
	got, err := MarshalCanonical(map[string]any{"b": 1, "a": 2, "c": map[string]any{"z": true, "y": nil}})
	require.NoError(t, err)
	assert.Equal(t, `{"a":2,"b":1,"c":{"y":null,"z":true}}`, string(got))
}

func TestMarshalCanonical_NoHTMLEscaping(t *testing.T) {
	got, err := MarshalCanonical("<a & b>")
	require.NoError(t, err)
	assert.Equal(t, `"<a & b>"`, string(got))
}

func TestMarshalCanonical_NFCNormalizes(t *testing.T) {
	decomposed := "e\u0301"
	got, err := MarshalCanonical(decomposed)
	require.NoError(t, err)
	assert.Equal(t, "\"\u00e9\"", string(got))
}

func TestMarshalCanonical_LineSeparatorsNotEscaped(t *testing.T) {
	got, err := MarshalCanonical("a\u2028b")
	require.NoError(t, err)
	assert.Equal(t, "\"a\u2028b\"", string(got))

	got, err = MarshalCanonical("a\\u2028b")
	require.NoError(t, err)
	assert.Equal(t, `"a\\u2028b"`, string(got), "escaped backslash must stay escaped")
}

func TestMarshalCanonical_Structs(t *testing.T) {
	type location struct {
		Pathname string `json:"pathname"`
		Hash     string `json:"hash,omitempty"`
	}
	got, err := MarshalCanonical(location{Pathname: "/a"})
	require.NoError(t, err)
	assert.Equal(t, `{"pathname":"/a"}`, string(got))
}

func TestMarshalCanonical_NumbersPreserved(t *testing.T) {
	got, err := MarshalCanonical([]any{1, 2.5, int64(9007199254740993)})
	require.NoError(t, err)
	assert.Equal(t, `[1,2.5,9007199254740993]`, string(got))
}

func TestMarshalCanonical_Unsupported(t *testing.T) {
	_, err := MarshalCanonical(make(chan int))
	assert.Error(t, err)
}

func TestCompareKeysRFC8785_SurrogatePairs(t *testing.T) {
	// U+1F600 encodes as surrogates 0xD83D 0xDE00, which sort before U+FFFD in UTF-16
	assert.Negative(t, compareKeysRFC8785("\U0001F600", "\uFFFD"))
	assert.Negative(t, compareKeysRFC8785("a", "b"))
	assert.Negative(t, compareKeysRFC8785("a", "ab"))
	assert.Zero(t, compareKeysRFC8785("x", "x"))
}

func TestSliceHash_Deterministic(t *testing.T) {
	_, h1, err := SliceHash(map[string]any{"a": 1, "b": 2})
	require.NoError(t, err)
	_, h2, err := SliceHash(map[string]any{"b": 2, "a": 1})
	require.NoError(t, err)
	assert.Equal(t, h1, h2)
	assert.Len(t, h1, 64)

	_, h3, err := SliceHash(map[string]any{"a": 1})
	require.NoError(t, err)
	assert.NotEqual(t, h1, h3)
}

func TestContentHash_DomainSeparation(t *testing.T) {
	data := []byte(`{"a":1}`)
	assert.NotEqual(t, ContentHash("one", data), ContentHash("two", data))
}
