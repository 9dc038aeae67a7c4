package resolver

import (
	"context"

	"github.com/pkg/errors"
)

// TypeResolver maps a runtime value of an interface or union type to the name
// of its concrete object type.
type TypeResolver interface {
	ResolveType(ctx context.Context, value any) (string, error)
}

// TypeResolverFunc adapts a function to TypeResolver.
type TypeResolverFunc func(ctx context.Context, value any) (string, error)

func (f TypeResolverFunc) ResolveType(ctx context.Context, value any) (string, error) {
	return f(ctx, value)
}

// TypeRule classifies a value or reports false when it does not apply.
type TypeRule func(value any) (string, bool)

type wrappedTypeResolver struct {
	rules []TypeRule
	next  TypeResolver
}

// WrapTypeResolver returns a resolver that tries rules in order and falls back
// to next, whose answer is returned unchanged. next may be nil.
func WrapTypeResolver(next TypeResolver, rules ...TypeRule) TypeResolver {
	return &wrappedTypeResolver{rules: rules, next: next}
}

func (w *wrappedTypeResolver) ResolveType(ctx context.Context, value any) (string, error) {
	for _, rule := range w.rules {
		if name, ok := rule(value); ok {
			return name, nil
		}
	}
	if w.next != nil {
		return w.next.ResolveType(ctx, value)
	}
	return "", errors.Wrapf(ErrUnresolvedType, "value of type %T", value)
}
