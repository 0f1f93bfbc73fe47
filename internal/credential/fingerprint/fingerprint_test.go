package fingerprint

import (
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "pixelgenesis/pkg/domain-errors"
)

func TestCompute(t *testing.T) {
	fp := Compute([]byte(`{"a":1}`))
	assert.Len(t, fp.String(), Size)
	assert.Equal(t, strings.ToLower(fp.String()), fp.String())
	assert.Equal(t, fp, Compute([]byte(`{"a":1}`)))
	assert.NotEqual(t, fp, Compute([]byte(`{"a":2}`)))

	// Well-known digest of the empty input.
	assert.Equal(t, Fingerprint("e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"), Compute(nil))
}

func TestParse(t *testing.T) {
	full := strings.Repeat("ab", 32)

	fp, err := Parse("0x" + strings.ToUpper(full))
	require.NoError(t, err)
	assert.Equal(t, Fingerprint(full), fp)

	for _, bad := range []string{"", "abc", full + "00", strings.Repeat("zz", 32)} {
		_, err := Parse(bad)
		require.Error(t, err, "input %q", bad)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	}
}

func TestOracleKey(t *testing.T) {
	exact := strings.Repeat("0123456789abcdef", 4)

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "exact", input: exact, want: exact},
		{name: "prefixed", input: "0x" + exact, want: exact},
		{name: "upper case", input: strings.ToUpper(exact), want: exact},
		{name: "short is right padded", input: "abc", want: "abc" + strings.Repeat("0", 61)},
		{name: "odd length", input: "0xf", want: "f" + strings.Repeat("0", 63)},
		{name: "long is truncated", input: exact + "ffff", want: exact},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, err := OracleKey(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, hex.EncodeToString(key[:]))
		})
	}

	t.Run("rejects non-hex", func(t *testing.T) {
		for _, bad := range []string{"", "0x", "xyz", exact[:10] + "g"} {
			_, err := OracleKey(bad)
			require.Error(t, err, "input %q", bad)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
		}
	})

	t.Run("fingerprint method matches function", func(t *testing.T) {
		fp := Compute([]byte("x"))
		a, err := fp.OracleKey()
		require.NoError(t, err)
		b, err := OracleKey(fp.String())
		require.NoError(t, err)
		assert.Equal(t, a, b)
	})
}
