// Package resolver maps GraphQL schema fields to resolution expressions.
//
// A resolution expression (Expr) is built from a handful of primitives:
//
//   - Path:     traverse dotted attributes of a value ("field_image.entity").
//   - Produce:  invoke a named external operation with bound parameters.
//   - Value:    a literal.
//   - Argument: a query argument.
//   - Parent:   the parent value of the current evaluation.
//   - Compose:  a left-to-right pipeline; each stage's output is the next
//     stage's parent.
//   - Callback: a pure transform that may report "no value".
//
// Evaluation distinguishes absence from failure. A missing path segment, an
// operation or callback that produces nothing, or an unbound argument makes
// Eval return ok == false; a Compose stops at the first absent stage. Errors
// are reserved for faults such as an unknown operation name.
//
// Registry holds the expressions per (type, field) together with the type
// resolvers of interface and union types. Registration is idempotent:
// RegisterIfAbsent never replaces an existing expression, so independent
// assembly passes can provide defaults without clobbering earlier, more
// specific ones.
package resolver
