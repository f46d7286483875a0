package utils

import "strings"

// TrimSpaceSlice trims whitespace from every element and drops the ones that
// end up empty.
func TrimSpaceSlice(values []string) []string {
	result := make([]string, 0, len(values))
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

// ParseCommaDelimited splits a comma separated flag value into its trimmed,
// non-empty parts. An empty input yields nil.
func ParseCommaDelimited(value string) []string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	parts := TrimSpaceSlice(strings.Split(value, ","))
	if len(parts) == 0 {
		return nil
	}
	return parts
}
