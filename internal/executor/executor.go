package executor

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/hanpama/thundergql/internal/language"
	"github.com/hanpama/thundergql/internal/schema"
)

type Executor struct {
	runtime Runtime
	schema  *schema.Schema
}

func NewExecutor(runtime Runtime, schema *schema.Schema) *Executor {
	return &Executor{runtime: runtime, schema: schema}
}

// execution holds the state of one operation.
type execution struct {
	ctx     context.Context
	runtime Runtime
	schema  *schema.Schema
	doc     *language.QueryDocument
	vars    map[string]any
	errors  []GraphQLError

	data     map[string]any
	dataNull bool
	queue    []*queuedField
	// response paths nulled after being written; queued work below them is dropped
	tombstones []Path
}

// queuedField is an async field waiting for the next batch.
type queuedField struct {
	task   AsyncResolveTask
	path   Path
	nullAt Path // where a null propagates if this Non-Null field is null
	typ    *schema.TypeRef
	fields []*language.Field
}

// ExecuteRequest executes the named operation (or the only operation) of a
// validated document.
func (e *Executor) ExecuteRequest(
	ctx context.Context,
	document *language.QueryDocument,
	operationName string,
	variableValues map[string]any,
	initialValue any,
) *ExecutionResult {
	op, err := selectOperation(document, operationName)
	if err != nil {
		return &ExecutionResult{Errors: []GraphQLError{{Message: err.Error()}}}
	}
	vars, err := coerceVariableValues(e.schema, op, variableValues)
	if err != nil {
		return &ExecutionResult{Errors: []GraphQLError{{Message: err.Error()}}}
	}

	var root *schema.Type
	switch op.Operation {
	case language.Query, "":
		root = e.schema.GetQueryType()
	case language.Mutation:
		root = e.schema.GetMutationType()
	case language.Subscription:
		root = e.schema.GetSubscriptionType()
	}
	if root == nil {
		return &ExecutionResult{Errors: []GraphQLError{{Message: fmt.Sprintf("schema does not support %s operations", op.Operation)}}}
	}

	ex := &execution{
		ctx:     ctx,
		runtime: e.runtime,
		schema:  e.schema,
		doc:     document,
		vars:    vars,
	}
	data, ok := ex.executeSelectionSet(root, op.SelectionSet, initialValue, Path{}, Path{})
	if !ok {
		return &ExecutionResult{Errors: ex.errors}
	}
	ex.data = data

	for len(ex.queue) > 0 && !ex.dataNull {
		ex.flush()
	}
	if ex.dataNull {
		return &ExecutionResult{Errors: ex.errors}
	}
	return &ExecutionResult{Data: ex.data, Errors: ex.errors}
}

func selectOperation(doc *language.QueryDocument, name string) (*language.OperationDefinition, error) {
	if name == "" {
		switch len(doc.Operations) {
		case 0:
			return nil, errors.New("document contains no operations")
		case 1:
			return doc.Operations[0], nil
		}
		return nil, errors.New("operation name is required when the document contains multiple operations")
	}
	if op := doc.Operations.ForName(name); op != nil {
		return op, nil
	}
	return nil, errors.Errorf("unknown operation named %q", name)
}

// executeSelectionSet executes the fields of one object. ok is false when a
// Non-Null field of the object completed to null; the object itself is then
// null and the caller decides where that null lands.
func (ex *execution) executeSelectionSet(
	objectType *schema.Type,
	selectionSet language.SelectionSet,
	source any,
	path Path,
	nullAt Path,
) (map[string]any, bool) {
	result := make(map[string]any)
	for _, group := range ex.collectFields(objectType, selectionSet) {
		fieldPath := path.with(group.ResponseName)
		value, ok := ex.executeField(objectType, source, group.Fields, fieldPath, nullAt)
		if !ok {
			return nil, false
		}
		result[group.ResponseName] = value
	}
	return result, true
}

func (ex *execution) executeField(
	objectType *schema.Type,
	source any,
	fields []*language.Field,
	path Path,
	nullAt Path,
) (any, bool) {
	field := fields[0]
	if field.Name == "__typename" {
		return objectType.Name, true
	}
	def := objectType.Field(field.Name)
	if def == nil {
		ex.addError(errors.Errorf("cannot query field %q on type %q", field.Name, objectType.Name), field, path)
		return nil, true
	}

	args, err := coerceArgumentValues(ex.schema, def, field.Arguments, ex.vars)
	if err != nil {
		ex.addError(err, field, path)
		return nil, !def.Type.IsNonNull()
	}

	if def.Async {
		ex.queue = append(ex.queue, &queuedField{
			task: AsyncResolveTask{
				ObjectType: objectType.Name,
				Field:      field.Name,
				Source:     source,
				Args:       args,
			},
			path:   path,
			nullAt: nullAt,
			typ:    def.Type,
			fields: fields,
		})
		return nil, true
	}

	value, err := ex.runtime.ResolveSync(ex.ctx, objectType.Name, field.Name, source, args)
	if err != nil {
		ex.addError(err, field, path)
		return nil, !def.Type.IsNonNull()
	}
	return ex.completeValue(def.Type, fields, value, path, nullAt)
}

// flush sends the queued depth to the runtime and completes the results.
func (ex *execution) flush() {
	queued := ex.queue[:0:0]
	for _, q := range ex.queue {
		if !ex.tombstoned(q.path) {
			queued = append(queued, q)
		}
	}
	ex.queue = nil
	if len(queued) == 0 {
		return
	}

	tasks := make([]AsyncResolveTask, len(queued))
	for i, q := range queued {
		tasks[i] = q.task
	}
	results := ex.runtime.BatchResolveAsync(ex.ctx, tasks)

	for i, q := range queued {
		if ex.dataNull || ex.tombstoned(q.path) {
			continue
		}
		var res AsyncResolveResult
		if i < len(results) {
			res = results[i]
		} else {
			res.Error = errors.Errorf("runtime returned no result for %s.%s", q.task.ObjectType, q.task.Field)
		}
		ex.completeQueued(q, res)
	}
}

func (ex *execution) completeQueued(q *queuedField, res AsyncResolveResult) {
	if res.Error != nil {
		ex.addError(res.Error, q.fields[0], q.path)
		if q.typ.IsNonNull() {
			ex.nullify(q.nullAt)
			return
		}
		ex.setValue(q.path, nil)
		return
	}
	value, ok := ex.completeValue(q.typ, q.fields, res.Value, q.path, q.nullAt)
	if !ok {
		ex.nullify(q.nullAt)
		return
	}
	ex.setValue(q.path, value)
}

// nullify writes null at an already written response path.
func (ex *execution) nullify(path Path) {
	if len(path) == 0 {
		ex.dataNull = true
		return
	}
	ex.setValue(path, nil)
	ex.tombstones = append(ex.tombstones, path)
}

func (ex *execution) tombstoned(path Path) bool {
	for _, t := range ex.tombstones {
		if path.hasPrefix(t) {
			return true
		}
	}
	return false
}

// setValue writes value at path. Missing or null ancestors mean the path was
// pruned and the write is dropped.
func (ex *execution) setValue(path Path, value any) {
	if len(path) == 0 {
		return
	}
	var cur any = ex.data
	for _, elem := range path[:len(path)-1] {
		switch e := elem.(type) {
		case string:
			m, ok := cur.(map[string]any)
			if !ok {
				return
			}
			cur = m[e]
		case int:
			list, ok := cur.([]any)
			if !ok || e >= len(list) {
				return
			}
			cur = list[e]
		}
	}
	switch e := path[len(path)-1].(type) {
	case string:
		if m, ok := cur.(map[string]any); ok {
			m[e] = value
		}
	case int:
		if list, ok := cur.([]any); ok && e < len(list) {
			list[e] = value
		}
	}
}

func (ex *execution) addError(err error, field *language.Field, path Path) {
	ex.errors = append(ex.errors, newFieldError(err, field, path))
}
