package extension

import (
	"github.com/hanpama/thundergql/internal/entity"
	"github.com/hanpama/thundergql/internal/resolver"
)

// ResolveEntityFields registers the Entity interface fields of typeName.
func (a *Assembly) ResolveEntityFields(typeName string) {
	a.AddFieldResolverIfNotExists(typeName, "id", resolver.Path("entity", "id.value"))
	a.AddFieldResolverIfNotExists(typeName, "uuid", resolver.Path("entity", "uuid.value"))
	a.AddFieldResolverIfNotExists(typeName, "entity", resolver.Path("entity", "type.value"))
	a.AddFieldResolverIfNotExists(typeName, "language", resolver.Path("entity", "langcode.value"))
	a.AddFieldResolverIfNotExists(typeName, "name", resolver.Path("entity", "name.value"))
	a.AddFieldResolverIfNotExists(typeName, "url",
		resolver.Produce("entity_url").Bind("entity", resolver.Parent()))
	a.AddFieldResolverIfNotExists(typeName, "created", resolver.Path("entity", "created.value"))
	a.AddFieldResolverIfNotExists(typeName, "changed", resolver.Path("entity", "changed.value"))
	a.AddFieldResolverIfNotExists(typeName, "published", resolver.Path("entity", "status.value"))
}

// ResolveMediaInterfaceFields registers the Media interface fields of
// typeName.
func (a *Assembly) ResolveMediaInterfaceFields(typeName string) {
	a.ResolveEntityFields(typeName)
	a.AddFieldResolverIfNotExists(typeName, "bundle", resolver.Path("entity", "bundle.value"))
}

// bundleRule maps entities of entityType to prefix + schema name of their
// bundle. An empty entityType matches every entity.
func bundleRule(entityType, prefix string) resolver.TypeRule {
	return func(v any) (string, bool) {
		e, ok := v.(*entity.Entity)
		if !ok || e.Bundle == "" || (entityType != "" && e.Type != entityType) {
			return "", false
		}
		return prefix + MapBundleToSchemaName(e.Bundle), true
	}
}
