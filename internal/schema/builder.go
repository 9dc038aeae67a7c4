package schema

import (
	"strings"

	"github.com/vektah/gqlparser/v2"
	"github.com/vektah/gqlparser/v2/ast"
)

// Build loads and validates SDL sources and converts the result. The
// validated gqlparser schema is returned as well; query validation runs
// against it.
func Build(sources ...*ast.Source) (*Schema, *ast.Schema, error) {
	doc, err := gqlparser.LoadSchema(sources...)
	if err != nil {
		return nil, nil, err
	}
	return FromAST(doc), doc, nil
}

// BuildFromSDL is Build for a single source.
func BuildFromSDL(sdl string) (*Schema, error) {
	s, _, err := Build(&ast.Source{Name: "schema.graphql", Input: sdl})
	return s, err
}

// FromAST converts a validated gqlparser schema. The introspection types of
// the prelude are kept, but the __schema and __type meta fields are left off
// the query type; the introspection runtime adds them.
func FromAST(doc *ast.Schema) *Schema {
	s := &Schema{
		Types:       make(map[string]*Type, len(doc.Types)),
		Directives:  make(map[string]*Directive, len(doc.Directives)),
		Description: doc.Description,
	}
	if doc.Query != nil {
		s.QueryType = doc.Query.Name
	}
	if doc.Mutation != nil {
		s.MutationType = doc.Mutation.Name
	}
	if doc.Subscription != nil {
		s.SubscriptionType = doc.Subscription.Name
	}
	for name, def := range doc.Types {
		s.Types[name] = convertDefinition(doc, def)
	}
	for name, dir := range doc.Directives {
		s.Directives[name] = convertDirective(dir)
	}
	return s
}

func convertDefinition(doc *ast.Schema, def *ast.Definition) *Type {
	t := &Type{
		Name:        def.Name,
		Kind:        TypeKind(def.Kind),
		Description: def.Description,
		Interfaces:  append([]string(nil), def.Interfaces...),
	}
	for _, f := range def.Fields {
		if strings.HasPrefix(f.Name, "__") {
			continue
		}
		switch def.Kind {
		case ast.InputObject:
			t.InputFields = append(t.InputFields, convertInputValue(f.Name, f.Description, f.Type, f.DefaultValue, f.Directives))
		default:
			t.Fields = append(t.Fields, convertField(f))
		}
	}
	for _, ev := range def.EnumValues {
		v := &EnumValue{Name: ev.Name, Description: ev.Description}
		v.IsDeprecated, v.DeprecationReason = deprecation(ev.Directives)
		t.EnumValues = append(t.EnumValues, v)
	}
	if def.IsAbstractType() {
		for _, pt := range doc.GetPossibleTypes(def) {
			if pt.Kind == ast.Object {
				t.PossibleTypes = append(t.PossibleTypes, pt.Name)
			}
		}
	}
	if d := def.Directives.ForName("specifiedBy"); d != nil {
		if arg := d.Arguments.ForName("url"); arg != nil {
			url := arg.Value.Raw
			t.SpecifiedByURL = &url
		}
	}
	t.OneOf = def.Directives.ForName("oneOf") != nil
	return t
}

func convertField(f *ast.FieldDefinition) *Field {
	out := &Field{Name: f.Name, Description: f.Description, Type: RefFromAST(f.Type)}
	out.IsDeprecated, out.DeprecationReason = deprecation(f.Directives)
	for _, a := range f.Arguments {
		out.Arguments = append(out.Arguments, convertInputValue(a.Name, a.Description, a.Type, a.DefaultValue, a.Directives))
	}
	return out
}

func convertInputValue(name, desc string, typ *ast.Type, def *ast.Value, dirs ast.DirectiveList) *InputValue {
	v := &InputValue{Name: name, Description: desc, Type: RefFromAST(typ)}
	if def != nil {
		if val, err := def.Value(nil); err == nil {
			v.DefaultValue = val
		}
	}
	v.IsDeprecated, v.DeprecationReason = deprecation(dirs)
	return v
}

func convertDirective(d *ast.DirectiveDefinition) *Directive {
	out := &Directive{Name: d.Name, Description: d.Description, IsRepeatable: d.IsRepeatable}
	for _, loc := range d.Locations {
		out.Locations = append(out.Locations, string(loc))
	}
	for _, a := range d.Arguments {
		out.Arguments = append(out.Arguments, convertInputValue(a.Name, a.Description, a.Type, a.DefaultValue, a.Directives))
	}
	return out
}

// RefFromAST converts a gqlparser type reference, as found in variable
// definitions.
func RefFromAST(t *ast.Type) *TypeRef {
	if t == nil {
		return nil
	}
	var inner *TypeRef
	if t.Elem != nil {
		inner = ListType(RefFromAST(t.Elem))
	} else {
		inner = NamedType(t.NamedType)
	}
	if t.NonNull {
		return NonNullType(inner)
	}
	return inner
}

func deprecation(dirs ast.DirectiveList) (bool, string) {
	d := dirs.ForName("deprecated")
	if d == nil {
		return false, ""
	}
	reason := "No longer supported"
	if arg := d.Arguments.ForName("reason"); arg != nil && arg.Value != nil {
		reason = arg.Value.Raw
	}
	return true, reason
}
