package strings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDedupeAndTrim(t *testing.T) {
	tests := []struct {
		name     string
		input    []string
		expected []string
	}{
		{name: "nil slice", input: nil, expected: nil},
		{name: "empty slice", input: []string{}, expected: []string{}},
		{name: "trims whitespace", input: []string{"  foo  ", "bar  "}, expected: []string{"foo", "bar"}},
		{name: "removes duplicates after trimming", input: []string{"foo", " foo", "bar"}, expected: []string{"foo", "bar"}},
		{name: "drops blanks", input: []string{"", "  ", "x"}, expected: []string{"x"}},
		{name: "case sensitive", input: []string{"Foo", "foo"}, expected: []string{"Foo", "foo"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DedupeAndTrim(tt.input))
		})
	}
}

func TestWithLeading(t *testing.T) {
	assert.Equal(t,
		[]string{"VerifiableCredential", "UniversityDegreeCredential"},
		WithLeading("VerifiableCredential", []string{"UniversityDegreeCredential", "VerifiableCredential", " "}),
	)
	assert.Equal(t, []string{"VerifiableCredential"}, WithLeading("VerifiableCredential", nil))
}
