package introspection

import (
	"fmt"
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/hanpama/thundergql/internal/schema"
)

// typeRef is a wrapping (LIST or NON_NULL) __Type. Named references are
// answered with the *schema.Type itself.
type typeRef struct {
	ref *schema.TypeRef
}

func (r *runtime) typeOf(ref *schema.TypeRef) any {
	if ref == nil {
		return nil
	}
	if ref.Kind == schema.TypeRefKindNamed {
		if t := r.schema.Types[ref.Named]; t != nil {
			return t
		}
		return nil
	}
	return typeRef{ref: ref}
}

func (r *runtime) resolveMeta(field string, source any, args map[string]any) any {
	includeDeprecated, _ := args["includeDeprecated"].(bool)

	switch src := source.(type) {
	case *schema.Schema:
		switch field {
		case "description":
			return optional(src.Description)
		case "types":
			return sortedTypes(src)
		case "queryType":
			return src.GetQueryType()
		case "mutationType":
			return nilIfAbsent(src.GetMutationType())
		case "subscriptionType":
			return nilIfAbsent(src.GetSubscriptionType())
		case "directives":
			dirs := make([]*schema.Directive, 0, len(src.Directives))
			for _, d := range src.Directives {
				dirs = append(dirs, d)
			}
			sort.Slice(dirs, func(i, j int) bool { return dirs[i].Name < dirs[j].Name })
			return dirs
		}

	case typeRef:
		switch field {
		case "kind":
			return string(src.ref.Kind)
		case "ofType":
			return r.typeOf(src.ref.OfType)
		}
		return nil

	case *schema.Type:
		return r.resolveType(src, field, includeDeprecated)

	case *schema.Field:
		switch field {
		case "name":
			return src.Name
		case "description":
			return optional(src.Description)
		case "args":
			return filterDeprecated(src.Arguments, includeDeprecated)
		case "type":
			return r.typeOf(src.Type)
		case "isDeprecated":
			return src.IsDeprecated
		case "deprecationReason":
			return deprecationReason(src.IsDeprecated, src.DeprecationReason)
		}

	case *schema.InputValue:
		switch field {
		case "name":
			return src.Name
		case "description":
			return optional(src.Description)
		case "type":
			return r.typeOf(src.Type)
		case "defaultValue":
			if src.DefaultValue == nil {
				return nil
			}
			return r.formatValue(src.DefaultValue, src.Type)
		case "isDeprecated":
			return src.IsDeprecated
		case "deprecationReason":
			return deprecationReason(src.IsDeprecated, src.DeprecationReason)
		}

	case *schema.EnumValue:
		switch field {
		case "name":
			return src.Name
		case "description":
			return optional(src.Description)
		case "isDeprecated":
			return src.IsDeprecated
		case "deprecationReason":
			return deprecationReason(src.IsDeprecated, src.DeprecationReason)
		}

	case *schema.Directive:
		switch field {
		case "name":
			return src.Name
		case "description":
			return optional(src.Description)
		case "isRepeatable":
			return src.IsRepeatable
		case "locations":
			return slices.Clone(src.Locations)
		case "args":
			return filterDeprecated(src.Arguments, includeDeprecated)
		}
	}
	return nil
}

func (r *runtime) resolveType(t *schema.Type, field string, includeDeprecated bool) any {
	switch field {
	case "kind":
		return string(t.Kind)
	case "name":
		return t.Name
	case "description":
		return optional(t.Description)
	case "specifiedByURL":
		if t.SpecifiedByURL == nil {
			return nil
		}
		return *t.SpecifiedByURL
	case "fields":
		if t.Kind != schema.TypeKindObject && t.Kind != schema.TypeKindInterface {
			return nil
		}
		var out []*schema.Field
		for _, f := range t.Fields {
			if includeDeprecated || !f.IsDeprecated {
				out = append(out, f)
			}
		}
		return nonNilSlice(out)
	case "interfaces":
		if t.Kind != schema.TypeKindObject && t.Kind != schema.TypeKindInterface {
			return nil
		}
		return r.namedTypes(t.Interfaces)
	case "possibleTypes":
		if !t.IsAbstract() {
			return nil
		}
		return r.namedTypes(t.PossibleTypes)
	case "enumValues":
		if t.Kind != schema.TypeKindEnum {
			return nil
		}
		var out []*schema.EnumValue
		for _, ev := range t.EnumValues {
			if includeDeprecated || !ev.IsDeprecated {
				out = append(out, ev)
			}
		}
		return nonNilSlice(out)
	case "inputFields":
		if t.Kind != schema.TypeKindInputObject {
			return nil
		}
		return filterDeprecated(t.InputFields, includeDeprecated)
	case "isOneOf":
		if t.Kind != schema.TypeKindInputObject {
			return nil
		}
		return t.OneOf
	}
	// ofType of a named type
	return nil
}

func (r *runtime) namedTypes(names []string) []*schema.Type {
	out := make([]*schema.Type, 0, len(names))
	for _, name := range names {
		if t := r.schema.Types[name]; t != nil {
			out = append(out, t)
		}
	}
	return out
}

// formatValue renders a default value as a GraphQL literal.
func (r *runtime) formatValue(v any, typ *schema.TypeRef) string {
	named := r.schema.Types[typ.GetNamedType()]
	switch val := v.(type) {
	case nil:
		return "null"
	case string:
		if named != nil && named.Kind == schema.TypeKindEnum {
			return val
		}
		return strconv.Quote(val)
	case []any:
		inner := typ
		for inner.Kind != schema.TypeRefKindNamed && inner.Kind != schema.TypeRefKindList {
			inner = inner.OfType
		}
		if inner.Kind == schema.TypeRefKindList {
			inner = inner.OfType
		}
		parts := make([]string, len(val))
		for i, item := range val {
			parts[i] = r.formatValue(item, inner)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			fieldType := schema.NamedType("")
			if named != nil {
				for _, f := range named.InputFields {
					if f.Name == k {
						fieldType = f.Type
					}
				}
			}
			parts[i] = k + ": " + r.formatValue(val[k], fieldType)
		}
		return "{" + strings.Join(parts, ", ") + "}"
	}
	return fmt.Sprint(v)
}

func sortedTypes(sch *schema.Schema) []*schema.Type {
	out := make([]*schema.Type, 0, len(sch.Types))
	for _, t := range sch.Types {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func filterDeprecated(in []*schema.InputValue, includeDeprecated bool) []*schema.InputValue {
	out := make([]*schema.InputValue, 0, len(in))
	for _, v := range in {
		if includeDeprecated || !v.IsDeprecated {
			out = append(out, v)
		}
	}
	return out
}

func deprecationReason(deprecated bool, reason string) any {
	if !deprecated {
		return nil
	}
	return reason
}

func optional(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// nilIfAbsent avoids handing the executor a typed nil pointer.
func nilIfAbsent(t *schema.Type) any {
	if t == nil {
		return nil
	}
	return t
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
