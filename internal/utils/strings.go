package utils

import "strings"

// ParseCSV parses a comma-separated query parameter such as a symbol list
// or an event type filter. Values are trimmed, empties are dropped, and an
// input with nothing usable in it yields nil rather than an empty slice.
func ParseCSV(s string) []string {
	parts := strings.Split(s, ",")

	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if v := strings.TrimSpace(p); v != "" {
			out = append(out, v)
		}
	}

	if len(out) == 0 {
		return nil
	}
	return out
}
