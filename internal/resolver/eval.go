package resolver

import (
	"context"

	"github.com/pkg/errors"
)

// Operation is a named, externally implemented data-fetch step invoked by
// Produce expressions. Returning ok == false reports absence.
type Operation interface {
	Produce(ctx context.Context, params map[string]any) (value any, ok bool, err error)
}

// OperationFunc adapts a function to Operation.
type OperationFunc func(ctx context.Context, params map[string]any) (any, bool, error)

func (f OperationFunc) Produce(ctx context.Context, params map[string]any) (any, bool, error) {
	return f(ctx, params)
}

// Operations looks up operations by name.
type Operations interface {
	Operation(name string) (Operation, bool)
}

// Attributer is implemented by values that expose named attributes to path
// lookups. ok == false means the attribute does not exist.
type Attributer interface {
	Attribute(ctx context.Context, name string) (value any, ok bool, err error)
}

// Referencer is implemented by entity-reference-shaped values. A path segment
// named "entity" dereferences through it.
type Referencer interface {
	Dereference(ctx context.Context) (value any, ok bool, err error)
}

// Env is the evaluation environment shared by every node of one field
// resolution.
type Env struct {
	Args       map[string]any
	Operations Operations
}

// Eval evaluates e against parent. The boolean result is false when the
// expression yields no value; err is reserved for faults.
func Eval(ctx context.Context, e Expr, env Env, parent any) (any, bool, error) {
	switch e.kind {
	case KindFromValue:
		return e.value, e.value != nil, nil

	case KindFromArgument:
		v, ok := env.Args[e.argument]
		if !ok || v == nil {
			return nil, false, nil
		}
		return v, true, nil

	case KindFromParent:
		return parent, parent != nil, nil

	case KindPathLookup:
		root := parent
		if e.from != nil {
			v, ok, err := Eval(ctx, *e.from, env, parent)
			if err != nil || !ok {
				return nil, false, err
			}
			root = v
		}
		return lookupPath(ctx, root, e.path)

	case KindProduce:
		op, ok := lookupOperation(env, e.operation)
		if !ok {
			return nil, false, errors.Wrapf(ErrUnknownOperation, "%q", e.operation)
		}
		params := make(map[string]any, len(e.bindings))
		for name, b := range e.bindings {
			v, ok, err := Eval(ctx, b, env, parent)
			if err != nil {
				return nil, false, errors.Wrapf(err, "%s: param %s", e.operation, name)
			}
			if ok {
				params[name] = v
			}
		}
		v, ok, err := op.Produce(ctx, params)
		if err != nil {
			return nil, false, errors.Wrapf(err, "%s", e.operation)
		}
		if !ok || v == nil {
			return nil, false, nil
		}
		return v, true, nil

	case KindCompose:
		cur := parent
		for _, stage := range e.stages {
			v, ok, err := Eval(ctx, stage, env, cur)
			if err != nil || !ok {
				return nil, false, err
			}
			cur = v
		}
		return cur, true, nil

	case KindCallback:
		v, ok := e.callback(parent)
		if !ok || v == nil {
			return nil, false, nil
		}
		return v, true, nil
	}
	return nil, false, errors.Wrapf(ErrInvalidExpr, "kind %d", e.kind)
}

func lookupOperation(env Env, name string) (Operation, bool) {
	if env.Operations == nil {
		return nil, false
	}
	return env.Operations.Operation(name)
}

func lookupPath(ctx context.Context, root any, segments []string) (any, bool, error) {
	cur := root
	for _, seg := range segments {
		if cur == nil {
			return nil, false, nil
		}
		v, ok, err := lookupSegment(ctx, cur, seg)
		if err != nil || !ok {
			return nil, false, err
		}
		cur = v
	}
	return cur, cur != nil, nil
}

func lookupSegment(ctx context.Context, v any, seg string) (any, bool, error) {
	if seg == "entity" {
		if r, ok := v.(Referencer); ok {
			return r.Dereference(ctx)
		}
	}
	switch t := v.(type) {
	case Attributer:
		return t.Attribute(ctx, seg)
	case map[string]any:
		out, ok := t[seg]
		return out, ok && out != nil, nil
	case []any:
		// Item lists answer for their first item.
		if len(t) == 0 {
			return nil, false, nil
		}
		return lookupSegment(ctx, t[0], seg)
	}
	return nil, false, nil
}
