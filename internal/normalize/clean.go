package normalize

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ── Cell cleaning ─────────────────────────────────────────────
// Extracted cells arrive as noisy strings: thousands separators, estimate
// markers, placeholder dashes. CleanValue collapses all of that into either
// nil or a tidy string, one cell at a time.

// approxMarker matches the literal "(Approx.)" tag some documents attach to
// estimated figures, in any letter case.
var approxMarker = regexp.MustCompile(`(?i)\(approx\.\)`)

// nullSentinels are literal cell values treated as absent. Matched
// case-sensitively: "nil" might be real data, "NIL" never is.
var nullSentinels = map[string]bool{
	"---": true,
	"-":   true,
	"NIL": true,
	"NA":  true,
}

// CleanValue normalizes a single raw cell into nil or a cleaned string.
// It is total: every input yields a result, never an error.
func CleanValue(v any) any {
	if v == nil {
		return nil
	}

	s := strings.TrimSpace(coerceString(v))
	// Commas only ever show up as thousands separators in source tables.
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(approxMarker.ReplaceAllString(s, ""))

	if s == "" || nullSentinels[s] {
		return nil
	}
	return s
}

// coerceString renders a scalar in plain text form. JSON numbers decode as
// float64; integral values must not grow a decimal point or exponent.
func coerceString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", t)
	}
}
