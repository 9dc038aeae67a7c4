package resolver

import "github.com/pkg/errors"

var (
	// ErrUnresolvedType is returned when no rule classifies a value and there
	// is no fallback resolver.
	ErrUnresolvedType = errors.New("resolver: unresolved type")
	// ErrUnknownOperation is returned when a Produce names an operation that
	// is not registered.
	ErrUnknownOperation = errors.New("resolver: unknown operation")
	// ErrInvalidExpr is returned when evaluating the zero Expr.
	ErrInvalidExpr = errors.New("resolver: invalid expression")
)
