// Package producer implements the named data producers that Produce
// expressions invoke: entity loading and references, image URLs and
// derivatives, focal points, routes and languages, and remote producers
// served over gRPC.
package producer

import (
	"sort"

	"github.com/pkg/errors"

	"github.com/hanpama/thundergql/internal/resolver"
)

// Operation is a data producer.
type Operation = resolver.Operation

// OperationFunc adapts a function to Operation.
type OperationFunc = resolver.OperationFunc

// ErrDuplicateOperation is returned when a name is registered twice.
var ErrDuplicateOperation = errors.New("producer: duplicate operation")

// Registry maps operation names to producers. It is filled during startup and
// read concurrently afterwards.
type Registry struct {
	ops map[string]Operation
}

var _ resolver.Operations = (*Registry)(nil)

func NewRegistry() *Registry {
	return &Registry{ops: make(map[string]Operation)}
}

// Register adds op under name. Unlike field resolvers, producers are never
// silently replaced.
func (r *Registry) Register(name string, op Operation) error {
	if _, dup := r.ops[name]; dup {
		return errors.Wrapf(ErrDuplicateOperation, "%q", name)
	}
	r.ops[name] = op
	return nil
}

// Operation implements resolver.Operations.
func (r *Registry) Operation(name string) (Operation, bool) {
	op, ok := r.ops[name]
	return op, ok
}

// Names returns the registered operation names, sorted.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.ops))
	for n := range r.ops {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
