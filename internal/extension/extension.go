// Package extension assembles the GraphQL schema from schema extensions. Each
// extension contributes SDL and registers field and type resolvers on a shared
// resolver.Registry through an Assembly.
package extension

import (
	"strings"

	"github.com/vektah/gqlparser/v2/ast"
	"go.uber.org/zap"

	"github.com/hanpama/thundergql/internal/resolver"
)

// Extension contributes part of the schema and its resolvers.
type Extension interface {
	ID() string
	SDL() string
	RegisterResolvers(a *Assembly)
}

// Assemble runs the extensions in order against reg. Fields registered by an
// earlier extension win over later ones.
func Assemble(reg *resolver.Registry, logger *zap.Logger, exts ...Extension) {
	if logger == nil {
		logger = zap.NewNop()
	}
	for _, ext := range exts {
		before := reg.Len()
		a := &Assembly{Registry: reg, Logger: logger.With(zap.String("extension", ext.ID()))}
		ext.RegisterResolvers(a)
		a.Logger.Info("registered extension", zap.Int("fields", reg.Len()-before))
	}
}

// Sources returns the SDL of exts as parser sources named after the
// extension ids. Extensions without SDL are skipped.
func Sources(exts ...Extension) []*ast.Source {
	out := make([]*ast.Source, 0, len(exts))
	for _, ext := range exts {
		if ext.SDL() == "" {
			continue
		}
		out = append(out, &ast.Source{Name: ext.ID() + ".graphql", Input: ext.SDL()})
	}
	return out
}

// Assembly is the registration surface handed to extensions.
type Assembly struct {
	Registry *resolver.Registry
	Logger   *zap.Logger
}

// AddFieldResolverIfNotExists registers e for type.field unless a resolver is
// already present.
func (a *Assembly) AddFieldResolverIfNotExists(typeName, field string, e resolver.Expr) {
	if a.Registry.RegisterIfAbsent(typeName, field, e) {
		a.Logger.Debug("field resolver", zap.String("type", typeName), zap.String("field", field), zap.Stringer("expr", e))
		return
	}
	a.Logger.Debug("field resolver exists, skipped", zap.String("type", typeName), zap.String("field", field))
}

// AddTypeResolver sets the type resolver of an abstract type.
func (a *Assembly) AddTypeResolver(typeName string, tr resolver.TypeResolver) {
	a.Registry.AddTypeResolver(typeName, tr)
	a.Logger.Debug("type resolver", zap.String("type", typeName))
}

// TypeResolver returns the current resolver of typeName, or nil.
func (a *Assembly) TypeResolver(typeName string) resolver.TypeResolver {
	tr, _ := a.Registry.TypeResolver(typeName)
	return tr
}

// AddSimpleCallbackFields registers fields of typeName that read the
// same-named key of a map parent.
func (a *Assembly) AddSimpleCallbackFields(typeName string, fields ...string) {
	for _, f := range fields {
		a.AddFieldResolverIfNotExists(typeName, f, resolver.Callback(mapKey(f)))
	}
}

func mapKey(key string) resolver.CallbackFunc {
	return func(v any) (any, bool) {
		m, ok := v.(map[string]any)
		if !ok {
			return nil, false
		}
		out, ok := m[key]
		return out, ok
	}
}

// FromEntityReference produces the entities referenced by field. The entity
// defaults to the parent value.
func (a *Assembly) FromEntityReference(field string, entity ...resolver.Expr) resolver.Expr {
	return resolver.Produce("entity_reference").
		Bind("field", resolver.Value(field)).
		Bind("entity", orParent(entity))
}

// FromEntityReferenceRevisions is FromEntityReference for revisioned
// references; the referenced entities follow the parent's language.
func (a *Assembly) FromEntityReferenceRevisions(field string, entity ...resolver.Expr) resolver.Expr {
	return resolver.Produce("entity_reference_revisions").
		Bind("field", resolver.Value(field)).
		Bind("entity", orParent(entity)).
		Bind("language", resolver.Path("entity", "langcode.value", resolver.Parent()))
}

// FromRoute resolves path to the entity it routes to, in the language of the
// path prefix.
func (a *Assembly) FromRoute(path resolver.Expr) resolver.Expr {
	return resolver.Compose(
		resolver.Produce("route_load").Bind("path", path),
		resolver.Produce("route_entity").
			Bind("url", resolver.Parent()).
			Bind("language", resolver.Produce("thunder_language").Bind("path", path)),
	)
}

// MapBundleToSchemaName turns a bundle machine name into a schema type name:
// "media_image" becomes "MediaImage".
func MapBundleToSchemaName(bundle string) string {
	var b strings.Builder
	for _, part := range strings.Split(bundle, "_") {
		if part == "" {
			continue
		}
		b.WriteString(strings.ToUpper(part[:1]))
		b.WriteString(part[1:])
	}
	return b.String()
}

func orParent(e []resolver.Expr) resolver.Expr {
	if len(e) > 0 && e[0].Valid() {
		return e[0]
	}
	return resolver.Parent()
}
