package normalize

import (
	"fmt"
	"regexp"
	"strings"
)

// ── Column naming ─────────────────────────────────────────────
// Raw header text becomes identifier-safe column names: only [A-Za-z0-9_],
// unique within a table, stable across repeated sanitization.

var (
	// edgeJunk strips the decoration found around header cells
	// ("# Name #", "--- Total ---").
	edgeJunk = regexp.MustCompile(`^[#\-\s]+|[#\-\s]+$`)
	wsRun    = regexp.MustCompile(`\s+`)
	nonWord  = regexp.MustCompile(`[^A-Za-z0-9_]`)
)

// SanitizeColumn renders a raw header key as an identifier-safe column name.
// The result can be empty when the header was pure decoration; callers
// substitute a positional fallback name in that case. Idempotent: feeding a
// sanitized name back through returns it unchanged.
func SanitizeColumn(key string) string {
	s := strings.TrimSpace(key)
	s = edgeJunk.ReplaceAllString(s, "")
	s = wsRun.ReplaceAllString(s, "_")
	return nonWord.ReplaceAllString(s, "")
}

// columnNames sanitizes every original header key, substituting the
// positional Column_<n> fallback for names that sanitize away entirely and
// suffixing duplicates so the result set is unique. fallback[i] reports
// whether column i took a synthetic name; such columns carry no usable
// header and are always typed as strings.
func columnNames(keys []string) (names []string, fallback []bool) {
	names = make([]string, 0, len(keys))
	fallback = make([]bool, 0, len(keys))
	seen := make(map[string]bool, len(keys))

	for i, key := range keys {
		name := SanitizeColumn(key)
		fb := name == ""
		if fb {
			name = fmt.Sprintf("Column_%d", i+1)
		}
		// Distinct headers can sanitize to the same name ("Total $" and
		// "Total %"). Suffix later occurrences instead of overwriting.
		if seen[name] {
			base := name
			for n := 2; ; n++ {
				name = fmt.Sprintf("%s_%d", base, n)
				if !seen[name] {
					break
				}
			}
		}
		seen[name] = true
		names = append(names, name)
		fallback = append(fallback, fb)
	}
	return names, fallback
}
