// Package introspection answers __schema and __type queries by wrapping a
// Runtime. The introspection types themselves come from the gqlparser prelude
// and are part of every built schema.
package introspection

import (
	"context"
	"strings"

	"github.com/hanpama/thundergql/internal/executor"
	"github.com/hanpama/thundergql/internal/schema"
)

// Wrapper pairs the wrapped runtime with the schema it must be executed
// against: the wrapped schema plus the meta fields on the query type.
type Wrapper struct {
	Runtime executor.Runtime
	Schema  *schema.Schema
}

// Wrap returns a runtime that resolves introspection fields itself and
// delegates everything else to base.
func Wrap(base executor.Runtime, sch *schema.Schema) *Wrapper {
	return &Wrapper{
		Runtime: &runtime{base: base, schema: sch},
		Schema:  withMetaFields(sch),
	}
}

func withMetaFields(sch *schema.Schema) *schema.Schema {
	out := *sch
	out.Types = make(map[string]*schema.Type, len(sch.Types))
	for name, t := range sch.Types {
		out.Types[name] = t
	}
	q := sch.GetQueryType()
	if q == nil {
		return &out
	}
	query := *q
	query.Fields = append(append([]*schema.Field(nil), q.Fields...),
		&schema.Field{
			Name: "__schema",
			Type: schema.NonNullType(schema.NamedType("__Schema")),
		},
		&schema.Field{
			Name: "__type",
			Type: schema.NamedType("__Type"),
			Arguments: []*schema.InputValue{
				{Name: "name", Type: schema.NonNullType(schema.NamedType("String"))},
			},
		},
	)
	out.Types[query.Name] = &query
	return &out
}

type runtime struct {
	base   executor.Runtime
	schema *schema.Schema // without meta fields
}

func (r *runtime) ResolveSync(ctx context.Context, objectType, field string, source any, args map[string]any) (any, error) {
	if strings.HasPrefix(objectType, "__") {
		return r.resolveMeta(field, source, args), nil
	}
	if objectType == r.schema.QueryType {
		switch field {
		case "__schema":
			return r.schema, nil
		case "__type":
			name, _ := args["name"].(string)
			if t := r.schema.Types[name]; t != nil {
				return t, nil
			}
			return nil, nil
		}
	}
	return r.base.ResolveSync(ctx, objectType, field, source, args)
}

func (r *runtime) BatchResolveAsync(ctx context.Context, tasks []executor.AsyncResolveTask) []executor.AsyncResolveResult {
	return r.base.BatchResolveAsync(ctx, tasks)
}

func (r *runtime) ResolveType(ctx context.Context, abstractType string, value any) (string, error) {
	return r.base.ResolveType(ctx, abstractType, value)
}

func (r *runtime) SerializeLeafValue(ctx context.Context, typeName string, value any) (any, error) {
	switch typeName {
	case "__TypeKind", "__DirectiveLocation":
		return value, nil
	}
	return r.base.SerializeLeafValue(ctx, typeName, value)
}
