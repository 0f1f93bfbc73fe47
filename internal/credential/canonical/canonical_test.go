package canonical

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalize_SortsKeysAndStripsWhitespace(t *testing.T) {
	out, err := Canonicalize([]byte(`{ "b": 1, "a": { "d": [3, 2], "c": "x" } }`))
	require.NoError(t, err)
	assert.Equal(t, `{"a":{"c":"x","d":[3,2]},"b":1}`, string(out))
}

func TestCanonicalize_OrderIndependent(t *testing.T) {
	a, err := Canonicalize([]byte(`{"name":"Ann","degree":{"type":"BSc","year":2020}}`))
	require.NoError(t, err)
	b, err := Canonicalize([]byte(`{"degree":{"year":2020,"type":"BSc"},"name":"Ann"}`))
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestCanonicalize_Idempotent(t *testing.T) {
	inputs := []string{
		`{"z":null,"y":[null,1.50,"é"],"x":{"b":true,"a":false}}`,
		`[1e21, 1e-7, 0.000001, -0, 123456789012]`,
		`"tab\there"`,
	}
	for _, in := range inputs {
		once, err := Canonicalize([]byte(in))
		require.NoError(t, err)
		twice, err := Canonicalize(once)
		require.NoError(t, err)
		assert.Equal(t, string(once), string(twice), "input %s", in)
	}
}

func TestCanonicalize_Nulls(t *testing.T) {
	out, err := Canonicalize([]byte(`{"a":null,"b":[null,{"c":null}],"d":1}`))
	require.NoError(t, err)
	assert.Equal(t, `{"b":[null,{}],"d":1}`, string(out))

	withoutField, err := Canonicalize([]byte(`{"d":1}`))
	require.NoError(t, err)
	withNull, err := Canonicalize([]byte(`{"d":1,"expiresAt":null}`))
	require.NoError(t, err)
	assert.Equal(t, withoutField, withNull)
}

func TestCanonicalize_Numbers(t *testing.T) {
	cases := map[string]string{
		`1.0`:              `1`,
		`-0`:               `0`,
		`1e21`:             `1e+21`,
		`1e20`:             `100000000000000000000`,
		`0.000001`:         `0.000001`,
		`1e-7`:             `1e-7`,
		`123.456`:          `123.456`,
		`-1.5E3`:           `-1500`,
		`4.50`:             `4.5`,
		`9007199254740993`: `9007199254740992`,
	}
	for in, want := range cases {
		out, err := Canonicalize([]byte(in))
		require.NoError(t, err, in)
		assert.Equal(t, want, string(out), "input %s", in)
	}
}

func TestCanonicalize_Strings(t *testing.T) {
	out, err := Canonicalize([]byte(`"a\"b\\c\n\u0001é\/"`))
	require.NoError(t, err)
	assert.Equal(t, "\"a\\\"b\\\\c\\n\\u0001é/\"", string(out))
}

func TestCanonicalize_UTF16KeyOrder(t *testing.T) {
	// U+1F600 encodes as surrogates 0xD83D.. which sort before U+FB01.
	out, err := Canonicalize([]byte(`{"ﬁ":1,"😀":2}`))
	require.NoError(t, err)
	assert.Equal(t, "{\"\U0001F600\":2,\"ﬁ\":1}", string(out))
}

func TestCanonicalize_RejectsInvalidInput(t *testing.T) {
	for _, in := range []string{``, `{`, `{"a":1} {"b":2}`, `[1,]`} {
		_, err := Canonicalize([]byte(in))
		require.Error(t, err, "input %q", in)
		assert.ErrorIs(t, err, ErrInvalidJSON)
	}
}

func TestMarshal_Structs(t *testing.T) {
	type claims struct {
		Name  string  `json:"name"`
		Email *string `json:"email"`
	}
	out, err := Marshal(claims{Name: "Ann"})
	require.NoError(t, err)
	assert.Equal(t, `{"name":"Ann"}`, string(out))
}
