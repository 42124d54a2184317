package normalize

import "strings"

// ToDotPath normalizes an environment variable name to a lowercase
// dot-separated configuration path. Double underscores (__) are treated
// as level separators and converted to dots. Single underscores within a
// level are preserved.
// Examples:
//   - "FOO__BAR" → "foo.bar"
//   - "DB_MAX_CONNECTIONS" → "db_max_connections"
//   - "API__RATE_LIMIT" → "api.rate_limit"
func ToDotPath(key string) string {
	normalized := strings.ReplaceAll(key, "__", ".")
	return strings.ToLower(normalized)
}

// SplitPath splits a dot-separated path into its segments. Empty
// segments produced by leading, trailing, or doubled dots are dropped.
// Examples:
//   - "database.host" → ["database", "host"]
//   - ".server." → ["server"]
func SplitPath(path string) []string {
	parts := strings.Split(path, ".")
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
