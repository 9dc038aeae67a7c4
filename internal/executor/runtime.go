package executor

import "context"

// Runtime resolves field values for the Executor.
//
// ResolveSync is only called for fields whose schema.Field.Async is false.
// BatchResolveAsync is called once per execution depth with every queued
// async task at that depth and must return one result per task, in task
// order. Results are independent: a failing element does not fail the batch.
//
// Implementations must be safe for concurrent use by multiple executions and
// must not mutate sources or argument maps.
type Runtime interface {
	// ResolveSync resolves one field. Returning (nil, nil) yields null.
	ResolveSync(ctx context.Context, objectType, field string, source any, args map[string]any) (any, error)

	// BatchResolveAsync resolves one depth of async fields.
	BatchResolveAsync(ctx context.Context, tasks []AsyncResolveTask) []AsyncResolveResult

	// ResolveType returns the concrete object type name of a value whose
	// static type is the given interface or union.
	ResolveType(ctx context.Context, abstractType string, value any) (string, error)

	// SerializeLeafValue converts a scalar or enum value into a JSON-safe
	// value. Enums serialize to their name.
	SerializeLeafValue(ctx context.Context, typeName string, value any) (any, error)
}

// AsyncResolveTask is one queued async field.
type AsyncResolveTask struct {
	ObjectType string
	Field      string
	Source     any // parent value, nil for root fields
	Args       map[string]any
}

// AsyncResolveResult is the outcome of one AsyncResolveTask.
type AsyncResolveResult struct {
	Value any
	Error error
}
