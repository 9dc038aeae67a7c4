package resolver

import "sort"

// FieldKey identifies a field of a schema type.
type FieldKey struct {
	Type  string
	Field string
}

func (k FieldKey) String() string { return k.Type + "." + k.Field }

// Registry maps schema fields to resolution expressions and abstract types to
// type resolvers.
//
// A Registry is populated once, sequentially, while the schema is assembled
// and is read-only afterwards; concurrent readers need no locking.
type Registry struct {
	fields map[FieldKey]Expr
	types  map[string]TypeResolver
}

func NewRegistry() *Registry {
	return &Registry{
		fields: make(map[FieldKey]Expr),
		types:  make(map[string]TypeResolver),
	}
}

// RegisterIfAbsent registers e for typeName.fieldName unless an expression is
// already present. It reports whether e was registered.
func (r *Registry) RegisterIfAbsent(typeName, fieldName string, e Expr) bool {
	k := FieldKey{Type: typeName, Field: fieldName}
	if _, exists := r.fields[k]; exists {
		return false
	}
	r.fields[k] = e
	return true
}

// Lookup returns the expression registered for typeName.fieldName.
func (r *Registry) Lookup(typeName, fieldName string) (Expr, bool) {
	e, ok := r.fields[FieldKey{Type: typeName, Field: fieldName}]
	return e, ok
}

// AddTypeResolver sets the type resolver of an abstract type. Callers that
// want to extend an existing resolver fetch it first and wrap it.
func (r *Registry) AddTypeResolver(typeName string, tr TypeResolver) {
	r.types[typeName] = tr
}

// TypeResolver returns the type resolver registered for typeName.
func (r *Registry) TypeResolver(typeName string) (TypeResolver, bool) {
	tr, ok := r.types[typeName]
	return tr, ok
}

// Keys returns all registered field keys sorted by type, then field.
func (r *Registry) Keys() []FieldKey {
	keys := make([]FieldKey, 0, len(r.fields))
	for k := range r.fields {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Type != keys[j].Type {
			return keys[i].Type < keys[j].Type
		}
		return keys[i].Field < keys[j].Field
	})
	return keys
}

// Len returns the number of registered fields.
func (r *Registry) Len() int { return len(r.fields) }
