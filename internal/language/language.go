package language

import (
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/gqlerror"
	"github.com/vektah/gqlparser/v2/parser"
	"github.com/vektah/gqlparser/v2/validator"
)

// ParseQuery parses a query document without validating it.
func ParseQuery(source string) (*QueryDocument, error) {
	doc, err := parser.ParseQuery(&ast.Source{Input: source})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// ParseAndValidate parses a query and validates it against a schema with the
// default rule set. A nil list means the document is executable.
func ParseAndValidate(schema *ast.Schema, source string) (*QueryDocument, ErrorList) {
	doc, err := parser.ParseQuery(&ast.Source{Input: source})
	if err != nil {
		return nil, toList(err)
	}
	if errs := validator.ValidateWithRules(schema, doc, nil); len(errs) > 0 {
		return nil, errs
	}
	return doc, nil
}

func toList(err error) ErrorList {
	if gerr, ok := err.(*gqlerror.Error); ok {
		return ErrorList{gerr}
	}
	if list, ok := err.(gqlerror.List); ok {
		return list
	}
	return ErrorList{gqlerror.Wrap(err)}
}
