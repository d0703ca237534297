package billing

import (
	"sort"
	"strconv"
	"strings"
)

// ParseThresholds parses a comma-separated threshold list into unique,
// ascending positive integers. Empty, non-numeric and non-positive tokens are
// dropped silently.
func ParseThresholds(csv string) []int {
	seen := make(map[int]struct{})
	var values []int
	for _, part := range strings.Split(csv, ",") {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		v, err := strconv.Atoi(trimmed)
		if err != nil || v <= 0 {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		values = append(values, v)
	}
	sort.Ints(values)
	return values
}

// SanitizeThresholds canonicalizes a threshold list to its comma-joined form.
// Parsing the result yields the same values.
func SanitizeThresholds(csv string) string {
	values := ParseThresholds(csv)
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ",")
}
