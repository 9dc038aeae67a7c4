package resolver

import (
	"fmt"
	"sort"
	"strings"
)

// Kind identifies the variant of an Expr.
type Kind int

const (
	KindPathLookup Kind = iota + 1
	KindProduce
	KindFromValue
	KindFromArgument
	KindFromParent
	KindCompose
	KindCallback
)

func (k Kind) String() string {
	switch k {
	case KindPathLookup:
		return "path"
	case KindProduce:
		return "produce"
	case KindFromValue:
		return "value"
	case KindFromArgument:
		return "argument"
	case KindFromParent:
		return "parent"
	case KindCompose:
		return "compose"
	case KindCallback:
		return "callback"
	}
	return "invalid"
}

// CallbackFunc transforms the current value. Returning false signals that no
// value was produced; evaluation treats that as absence, not as a failure.
type CallbackFunc func(v any) (any, bool)

// Expr is a resolution expression: an immutable description of how one field
// value is computed from a parent value and the query arguments.
//
// Expr is a closed variant; only the constructors in this file create one and
// Eval dispatches on Kind. The zero Expr is invalid.
type Expr struct {
	kind Kind

	// KindPathLookup
	source string
	path   []string
	from   *Expr

	// KindProduce
	operation string
	bindings  map[string]Expr

	// KindFromValue
	value any

	// KindFromArgument
	argument string

	// KindCompose
	stages []Expr

	// KindCallback
	callback CallbackFunc
}

// Path builds a PathLookup that walks dottedPath over the value named by
// source. The traversal root is the parent value unless from is given.
func Path(source, dottedPath string, from ...Expr) Expr {
	e := Expr{kind: KindPathLookup, source: source}
	if dottedPath != "" {
		e.path = strings.Split(dottedPath, ".")
	}
	if len(from) > 0 {
		f := from[0]
		e.from = &f
	}
	return e
}

// Produce builds an invocation of the named external operation. Parameters
// are attached with Bind.
func Produce(operation string) Expr {
	return Expr{kind: KindProduce, operation: operation}
}

// Bind returns a copy of a Produce expression with param bound to e. Binding
// the same param again replaces the earlier binding.
func (x Expr) Bind(param string, e Expr) Expr {
	if x.kind != KindProduce {
		panic(fmt.Sprintf("resolver: Bind called on %s expression", x.kind))
	}
	bindings := make(map[string]Expr, len(x.bindings)+1)
	for k, v := range x.bindings {
		bindings[k] = v
	}
	bindings[param] = e
	x.bindings = bindings
	return x
}

// Value builds a literal constant.
func Value(v any) Expr {
	return Expr{kind: KindFromValue, value: v}
}

// Argument binds to the named query argument.
func Argument(name string) Expr {
	return Expr{kind: KindFromArgument, argument: name}
}

// Parent binds to the parent value of the enclosing evaluation.
func Parent() Expr {
	return Expr{kind: KindFromParent}
}

// Compose chains stages left to right; each stage's output becomes the next
// stage's parent value.
func Compose(first Expr, rest ...Expr) Expr {
	stages := make([]Expr, 0, len(rest)+1)
	stages = append(stages, first)
	stages = append(stages, rest...)
	return Expr{kind: KindCompose, stages: stages}
}

// Callback wraps a pure transform of the current value.
func Callback(fn CallbackFunc) Expr {
	return Expr{kind: KindCallback, callback: fn}
}

// Kind reports the variant of x.
func (x Expr) Kind() Kind { return x.kind }

// Valid reports whether x was built by a constructor.
func (x Expr) Valid() bool { return x.kind != 0 }

// Operation returns the operation name of a Produce expression.
func (x Expr) Operation() string { return x.operation }

// Produces reports whether evaluating x may invoke an external operation.
func (x Expr) Produces() bool {
	switch x.kind {
	case KindProduce:
		return true
	case KindPathLookup:
		return x.from != nil && x.from.Produces()
	case KindCompose:
		for _, s := range x.stages {
			if s.Produces() {
				return true
			}
		}
	}
	return false
}

// String renders x for diagnostics.
func (x Expr) String() string {
	var b strings.Builder
	x.write(&b)
	return b.String()
}

func (x Expr) write(b *strings.Builder) {
	switch x.kind {
	case KindPathLookup:
		fmt.Fprintf(b, "path(%s, %q", x.source, strings.Join(x.path, "."))
		if x.from != nil {
			b.WriteString(", ")
			x.from.write(b)
		}
		b.WriteString(")")
	case KindProduce:
		fmt.Fprintf(b, "produce(%s)", x.operation)
		names := make([]string, 0, len(x.bindings))
		for n := range x.bindings {
			names = append(names, n)
		}
		sort.Strings(names)
		for _, n := range names {
			fmt.Fprintf(b, ".bind(%s, ", n)
			x.bindings[n].write(b)
			b.WriteString(")")
		}
	case KindFromValue:
		fmt.Fprintf(b, "value(%#v)", x.value)
	case KindFromArgument:
		fmt.Fprintf(b, "argument(%s)", x.argument)
	case KindFromParent:
		b.WriteString("parent()")
	case KindCompose:
		b.WriteString("compose(")
		for i, s := range x.stages {
			if i > 0 {
				b.WriteString(", ")
			}
			s.write(b)
		}
		b.WriteString(")")
	case KindCallback:
		b.WriteString("callback()")
	default:
		b.WriteString("invalid")
	}
}
