package executor

import (
	"context"
	"sync"

	"github.com/pkg/errors"
)

// MockResolver resolves a single field for MockRuntime.
type MockResolver func(ctx context.Context, source any, args map[string]any) (any, error)

// Call kinds recorded by MockRuntime.
const (
	CallKindSync  = "sync"
	CallKindAsync = "async"
)

// Value returns a MockResolver that always returns val.
func Value(val any) MockResolver {
	return func(context.Context, any, map[string]any) (any, error) { return val, nil }
}

// Fail returns a MockResolver that always returns err.
func Fail(err error) MockResolver {
	return func(context.Context, any, map[string]any) (any, error) { return nil, err }
}

// FromSource returns a MockResolver reading key from a map source.
func FromSource(key string) MockResolver {
	return func(_ context.Context, source any, _ map[string]any) (any, error) {
		m, _ := source.(map[string]any)
		return m[key], nil
	}
}

// Call is one recorded field resolution. Async calls of the same batch share
// a BatchID; sync calls have BatchID 0.
type Call struct {
	Kind       string
	ObjectType string
	Field      string
	Source     any
	Args       map[string]any
	BatchID    int
}

// MockRuntime is a Runtime backed by per-field resolvers keyed by
// "Type.field". Unregistered fields resolve to null. Abstract values resolve
// through their "__typename" key.
type MockRuntime struct {
	mu        sync.Mutex
	resolvers map[string]MockResolver
	calls     []Call
	batches   int

	TypeResolver func(abstractType string, value any) (string, error)
	Serializer   func(typeName string, value any) (any, error)
}

var _ Runtime = (*MockRuntime)(nil)

func NewMockRuntime(resolvers map[string]MockResolver) *MockRuntime {
	m := &MockRuntime{resolvers: make(map[string]MockResolver, len(resolvers))}
	for k, r := range resolvers {
		m.resolvers[k] = r
	}
	return m
}

func (m *MockRuntime) SetResolver(objectType, field string, r MockResolver) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resolvers[objectType+"."+field] = r
}

func (m *MockRuntime) resolve(ctx context.Context, kind string, batch int, objectType, field string, source any, args map[string]any) (any, error) {
	m.mu.Lock()
	r := m.resolvers[objectType+"."+field]
	m.calls = append(m.calls, Call{Kind: kind, ObjectType: objectType, Field: field, Source: source, Args: args, BatchID: batch})
	m.mu.Unlock()
	if r == nil {
		return nil, nil
	}
	return r(ctx, source, args)
}

func (m *MockRuntime) ResolveSync(ctx context.Context, objectType, field string, source any, args map[string]any) (any, error) {
	return m.resolve(ctx, CallKindSync, 0, objectType, field, source, args)
}

func (m *MockRuntime) BatchResolveAsync(ctx context.Context, tasks []AsyncResolveTask) []AsyncResolveResult {
	m.mu.Lock()
	m.batches++
	batch := m.batches
	m.mu.Unlock()

	results := make([]AsyncResolveResult, len(tasks))
	for i, t := range tasks {
		v, err := m.resolve(ctx, CallKindAsync, batch, t.ObjectType, t.Field, t.Source, t.Args)
		results[i] = AsyncResolveResult{Value: v, Error: err}
	}
	return results
}

func (m *MockRuntime) ResolveType(_ context.Context, abstractType string, value any) (string, error) {
	if m.TypeResolver != nil {
		return m.TypeResolver(abstractType, value)
	}
	if v, ok := value.(map[string]any); ok {
		if name, ok := v["__typename"].(string); ok {
			return name, nil
		}
	}
	return "", errors.Errorf("cannot resolve the concrete type of %s value %T", abstractType, value)
}

func (m *MockRuntime) SerializeLeafValue(_ context.Context, typeName string, value any) (any, error) {
	if m.Serializer != nil {
		return m.Serializer(typeName, value)
	}
	return value, nil
}

// Calls returns the recorded calls in order.
func (m *MockRuntime) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Call(nil), m.calls...)
}

// Batches returns the number of BatchResolveAsync calls.
func (m *MockRuntime) Batches() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.batches
}
