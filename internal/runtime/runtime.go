// Package runtime implements executor.Runtime on top of the field resolver
// registry: every field is answered by evaluating its resolution expression
// against the parent value.
package runtime

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/hanpama/thundergql/internal/eventbus"
	"github.com/hanpama/thundergql/internal/events"
	"github.com/hanpama/thundergql/internal/executor"
	"github.com/hanpama/thundergql/internal/resolver"
)

// DefaultMaxConcurrency bounds the number of (type, field) groups of one
// batch resolved at the same time.
const DefaultMaxConcurrency = 8

// Runtime resolves fields from a resolver.Registry.
//
//   - ResolveSync evaluates the field's expression; fields classified async
//     (see Classify) never reach it.
//   - BatchResolveAsync groups tasks by (type, field) and resolves the groups
//     concurrently. Results keep task order and fail independently.
//   - A field without a registered expression reads the attribute of the same
//     name from its parent.
type Runtime struct {
	registry       *resolver.Registry
	operations     resolver.Operations
	maxConcurrency int
}

var _ executor.Runtime = (*Runtime)(nil)

type Option func(*Runtime)

// WithMaxConcurrency sets how many field groups of a batch run in parallel.
func WithMaxConcurrency(n int) Option {
	return func(r *Runtime) {
		if n > 0 {
			r.maxConcurrency = n
		}
	}
}

func New(registry *resolver.Registry, operations resolver.Operations, opts ...Option) *Runtime {
	r := &Runtime{registry: registry, operations: operations, maxConcurrency: DefaultMaxConcurrency}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Runtime) ResolveSync(ctx context.Context, objectType, field string, source any, args map[string]any) (any, error) {
	return r.resolve(ctx, objectType, field, source, args)
}

func (r *Runtime) resolve(ctx context.Context, objectType, field string, source any, args map[string]any) (any, error) {
	expr, ok := r.registry.Lookup(objectType, field)
	if !ok {
		expr = resolver.Path("parent", field)
	}
	v, ok, err := resolver.Eval(ctx, expr, resolver.Env{Args: args, Operations: r.operations}, source)
	if err != nil {
		return nil, errors.Wrapf(err, "%s.%s", objectType, field)
	}
	if !ok {
		return nil, nil
	}
	return v, nil
}

func (r *Runtime) BatchResolveAsync(ctx context.Context, tasks []executor.AsyncResolveTask) []executor.AsyncResolveResult {
	results := make([]executor.AsyncResolveResult, len(tasks))
	if len(tasks) == 0 {
		return results
	}

	type group struct {
		key  resolver.FieldKey
		idxs []int
	}
	var groups []*group
	byKey := make(map[resolver.FieldKey]*group)
	for i, t := range tasks {
		k := resolver.FieldKey{Type: t.ObjectType, Field: t.Field}
		g, ok := byKey[k]
		if !ok {
			g = &group{key: k}
			byKey[k] = g
			groups = append(groups, g)
		}
		g.idxs = append(g.idxs, i)
	}

	var eg errgroup.Group
	eg.SetLimit(r.maxConcurrency)
	for _, g := range groups {
		eg.Go(func() error {
			r.resolveGroup(ctx, g.key, g.idxs, tasks, results)
			return nil
		})
	}
	_ = eg.Wait()
	return results
}

// resolveGroup writes the results of one (type, field) group in place.
func (r *Runtime) resolveGroup(ctx context.Context, key resolver.FieldKey, idxs []int, tasks []executor.AsyncResolveTask, results []executor.AsyncResolveResult) {
	batchID := uuid.NewString()
	start := time.Now()
	eventbus.Publish(ctx, events.ResolveBatchStart{BatchID: batchID, Type: key.Type, Field: key.Field, Size: len(idxs)})

	failed := 0
	for _, i := range idxs {
		t := tasks[i]
		v, err := r.resolve(ctx, t.ObjectType, t.Field, t.Source, t.Args)
		if err != nil {
			failed++
		}
		results[i] = executor.AsyncResolveResult{Value: v, Error: err}
	}

	eventbus.Publish(ctx, events.ResolveBatchFinish{
		BatchID:  batchID,
		Type:     key.Type,
		Field:    key.Field,
		Size:     len(idxs),
		Failed:   failed,
		Duration: time.Since(start),
	})
}

// ResolveType asks the type resolver registered for the abstract type.
func (r *Runtime) ResolveType(ctx context.Context, abstractType string, value any) (string, error) {
	tr, ok := r.registry.TypeResolver(abstractType)
	if !ok {
		return "", errors.Wrapf(resolver.ErrUnresolvedType, "no type resolver for %s", abstractType)
	}
	name, err := tr.ResolveType(ctx, value)
	if err != nil {
		return "", errors.Wrapf(err, "resolve %s", abstractType)
	}
	return name, nil
}
