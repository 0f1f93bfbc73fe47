// Package strings provides string slice helpers used when normalizing request input.
package strings

import (
	"strings"
)

// DedupeAndTrim removes duplicates and empty strings from a slice,
// trimming whitespace from each element. Order is preserved.
//
//	DedupeAndTrim([]string{"  foo ", "bar", "foo", "", "  "})
//	// []string{"foo", "bar"}
func DedupeAndTrim(values []string) []string {
	if len(values) == 0 {
		return values
	}

	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))
	for _, v := range values {
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		result = append(result, trimmed)
	}
	return result
}

// WithLeading returns values normalized by DedupeAndTrim with lead as the first
// element. A later occurrence of lead is dropped rather than moved.
//
//	WithLeading("VerifiableCredential", []string{"Degree", "VerifiableCredential"})
//	// []string{"VerifiableCredential", "Degree"}
func WithLeading(lead string, values []string) []string {
	return DedupeAndTrim(append([]string{lead}, values...))
}
