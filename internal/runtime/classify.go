package runtime

import (
	"slices"
	"strings"

	"github.com/hanpama/thundergql/internal/resolver"
	"github.com/hanpama/thundergql/internal/schema"
)

// Classify marks every schema field whose expression invokes an operation as
// async, so the executor batches it per depth. It returns the number of
// async fields.
func Classify(sch *schema.Schema, reg *resolver.Registry) int {
	n := 0
	for _, k := range reg.Keys() {
		f := sch.Field(k.Type, k.Field)
		if f == nil {
			continue
		}
		e, _ := reg.Lookup(k.Type, k.Field)
		f.Async = e.Produces()
		if f.Async {
			n++
		}
	}
	return n
}

// Report lists what the registry leaves unresolved for a schema.
type Report struct {
	// Object fields without an expression; they fall back to an attribute
	// lookup by name.
	UnregisteredFields []resolver.FieldKey
	// Interfaces and unions without a type resolver.
	MissingTypeResolvers []string
	// Registered expressions whose field does not exist in the schema.
	UnknownFields []resolver.FieldKey
}

// OK reports whether every abstract type can be resolved and every
// registration targets a schema field.
func (r Report) OK() bool {
	return len(r.MissingTypeResolvers) == 0 && len(r.UnknownFields) == 0
}

// Coverage compares the schema with the registry.
func Coverage(sch *schema.Schema, reg *resolver.Registry) Report {
	var rep Report
	for name, t := range sch.Types {
		if strings.HasPrefix(name, "__") {
			continue
		}
		switch t.Kind {
		case schema.TypeKindObject:
			for _, f := range t.Fields {
				if _, ok := reg.Lookup(name, f.Name); !ok {
					rep.UnregisteredFields = append(rep.UnregisteredFields, resolver.FieldKey{Type: name, Field: f.Name})
				}
			}
		case schema.TypeKindInterface, schema.TypeKindUnion:
			if _, ok := reg.TypeResolver(name); !ok {
				rep.MissingTypeResolvers = append(rep.MissingTypeResolvers, name)
			}
		}
	}
	for _, k := range reg.Keys() {
		if sch.Field(k.Type, k.Field) == nil {
			rep.UnknownFields = append(rep.UnknownFields, k)
		}
	}
	slices.SortFunc(rep.UnregisteredFields, compareKeys)
	slices.Sort(rep.MissingTypeResolvers)
	return rep
}

func compareKeys(a, b resolver.FieldKey) int {
	if c := strings.Compare(a.Type, b.Type); c != 0 {
		return c
	}
	return strings.Compare(a.Field, b.Field)
}
