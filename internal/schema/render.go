package schema

import (
	"strings"

	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/formatter"
)

// Render prints the merged SDL of a validated schema with extensions folded
// into their base types. Builtins and introspection meta fields are omitted.
func Render(doc *ast.Schema) string {
	if doc == nil {
		return ""
	}
	var b strings.Builder
	formatter.NewFormatter(&b, formatter.WithIndent("  ")).FormatSchema(doc)
	return b.String()
}
