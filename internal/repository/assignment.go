package repository

import (
	"fmt"
	"strings"
)

// Assignment is a single column update in a partial-update statement. A nil
// Value renders as a NULL literal; any other value is bound as a positional
// parameter.
type Assignment struct {
	Column string
	Value  any
}

// renderSetClause builds the SET fragment for a parameterized UPDATE,
// appending bound values to args. Placeholders continue from the current
// length of args so callers can bind trailing parameters (the WHERE id).
func renderSetClause(assigns []Assignment, args *[]any) string {
	parts := make([]string, 0, len(assigns))
	for _, a := range assigns {
		if a.Value == nil {
			parts = append(parts, a.Column+" = NULL")
			continue
		}
		*args = append(*args, a.Value)
		parts = append(parts, fmt.Sprintf("%s = $%d", a.Column, len(*args)))
	}
	return strings.Join(parts, ", ")
}
