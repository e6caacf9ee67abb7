// AngelaMos | 2026
// sql.go

package core

import "strings"

// EscapeLike escapes LIKE/ILIKE metacharacters in user input.
func EscapeLike(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "%", "\\%")
	s = strings.ReplaceAll(s, "_", "\\_")
	return s
}
