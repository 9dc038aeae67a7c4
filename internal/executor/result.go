package executor

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/hanpama/thundergql/internal/language"
)

// Path is a response path. Elements are field response names (string) and
// list indexes (int).
type Path []any

func (p Path) String() string {
	var b strings.Builder
	for i, elem := range p {
		switch v := elem.(type) {
		case string:
			if i > 0 {
				b.WriteByte('.')
			}
			b.WriteString(v)
		case int:
			b.WriteByte('[')
			b.WriteString(strconv.Itoa(v))
			b.WriteByte(']')
		}
	}
	return b.String()
}

// hasPrefix reports whether prefix is a (non-strict) prefix of p.
func (p Path) hasPrefix(prefix Path) bool {
	if len(prefix) > len(p) {
		return false
	}
	for i := range prefix {
		if p[i] != prefix[i] {
			return false
		}
	}
	return true
}

func (p Path) with(elem any) Path {
	out := make(Path, len(p)+1)
	copy(out, p)
	out[len(p)] = elem
	return out
}

// Location is a line and column in the query document.
type Location struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// GraphQLError represents an error that occurred during execution
type GraphQLError struct {
	Message    string         `json:"message"`
	Locations  []Location     `json:"locations,omitempty"`
	Path       Path           `json:"path,omitempty"`
	Extensions map[string]any `json:"extensions,omitempty"`
}

func (e GraphQLError) Error() string {
	return e.Message
}

// ExtendedError is implemented by resolver errors that carry response
// extensions, such as an error code.
type ExtendedError interface {
	error
	Extensions() map[string]any
}

func newFieldError(err error, field *language.Field, path Path) GraphQLError {
	gerr := GraphQLError{Message: err.Error(), Path: path}
	if field != nil && field.Position != nil {
		gerr.Locations = []Location{{Line: field.Position.Line, Column: field.Position.Column}}
	}
	var ext ExtendedError
	if errors.As(err, &ext) {
		gerr.Extensions = ext.Extensions()
	}
	return gerr
}

// ExecutionResult represents the result of executing a GraphQL query
type ExecutionResult struct {
	Data   any            `json:"data"`
	Errors []GraphQLError `json:"errors,omitempty"`
}
