package executor

import (
	"reflect"

	"github.com/pkg/errors"

	"github.com/hanpama/thundergql/internal/language"
	"github.com/hanpama/thundergql/internal/schema"
)

// completeValue completes a resolved value against its field type. ok is false
// when the value is null in a Non-Null position; the error has been recorded
// and the caller must propagate the null to nullAt.
func (ex *execution) completeValue(
	typ *schema.TypeRef,
	fields []*language.Field,
	value any,
	path Path,
	nullAt Path,
) (any, bool) {
	if typ.IsNonNull() {
		if isNullish(value) {
			ex.addError(errors.Errorf("cannot return null for non-nullable field %s", path), fields[0], path)
			return nil, false
		}
		completed, ok := ex.completeInner(typ.OfType, fields, value, path, nullAt)
		if !ok {
			return nil, false
		}
		if completed == nil {
			ex.addError(errors.Errorf("cannot return null for non-nullable field %s", path), fields[0], path)
			return nil, false
		}
		return completed, true
	}
	if isNullish(value) {
		return nil, true
	}
	completed, ok := ex.completeInner(typ, fields, value, path, path)
	if !ok {
		ex.tombstones = append(ex.tombstones, path)
		return nil, true
	}
	return completed, true
}

// completeInner completes a non-null value of a list or named type. Errors
// yield (nil, false).
func (ex *execution) completeInner(
	typ *schema.TypeRef,
	fields []*language.Field,
	value any,
	path Path,
	nullAt Path,
) (any, bool) {
	if typ.Kind == schema.TypeRefKindList {
		return ex.completeList(typ.OfType, fields, value, path, nullAt)
	}

	named := ex.schema.Types[typ.Named]
	if named == nil {
		ex.addError(errors.Errorf("unknown type %q", typ.Named), fields[0], path)
		return nil, false
	}
	switch named.Kind {
	case schema.TypeKindScalar, schema.TypeKindEnum:
		out, err := ex.runtime.SerializeLeafValue(ex.ctx, named.Name, value)
		if err != nil {
			ex.addError(err, fields[0], path)
			return nil, false
		}
		return out, true
	case schema.TypeKindObject:
		return ex.completeObject(named, fields, value, path, nullAt)
	case schema.TypeKindInterface, schema.TypeKindUnion:
		typeName, err := ex.runtime.ResolveType(ex.ctx, named.Name, value)
		if err != nil {
			ex.addError(err, fields[0], path)
			return nil, false
		}
		concrete := ex.schema.Types[typeName]
		if concrete == nil || concrete.Kind != schema.TypeKindObject || !ex.schema.IsPossibleType(named.Name, typeName) {
			ex.addError(errors.Errorf("abstract type %s must resolve to an object type at runtime, got %q", named.Name, typeName), fields[0], path)
			return nil, false
		}
		return ex.completeObject(concrete, fields, value, path, nullAt)
	}
	ex.addError(errors.Errorf("cannot complete value of %s type %s", named.Kind, named.Name), fields[0], path)
	return nil, false
}

func (ex *execution) completeList(
	itemType *schema.TypeRef,
	fields []*language.Field,
	value any,
	path Path,
	nullAt Path,
) (any, bool) {
	items, ok := asList(value)
	if !ok {
		ex.addError(errors.Errorf("expected a list value, got %T", value), fields[0], path)
		return nil, false
	}
	out := make([]any, len(items))
	for i, item := range items {
		completed, ok := ex.completeValue(itemType, fields, item, path.with(i), nullAt)
		if !ok {
			return nil, false
		}
		out[i] = completed
	}
	return out, true
}

func (ex *execution) completeObject(
	objectType *schema.Type,
	fields []*language.Field,
	value any,
	path Path,
	nullAt Path,
) (any, bool) {
	var sub language.SelectionSet
	for _, f := range fields {
		sub = append(sub, f.SelectionSet...)
	}
	m, ok := ex.executeSelectionSet(objectType, sub, value, path, nullAt)
	if !ok {
		return nil, false
	}
	return m, true
}

func asList(v any) ([]any, bool) {
	if list, ok := v.([]any); ok {
		return list, true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

// isNullish returns true for nil interfaces and typed nils (map, slice, ptr, interface)
func isNullish(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Interface, reflect.Ptr, reflect.Slice, reflect.Map, reflect.Func, reflect.Chan:
		return rv.IsNil()
	default:
		return false
	}
}
