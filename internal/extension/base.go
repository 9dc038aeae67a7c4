package extension

import (
	_ "embed"

	"github.com/hanpama/thundergql/internal/resolver"
)

//go:embed graphql/base.graphql
var baseSDL string

// Base provides the query root, the Entity and Media interfaces, taxonomy
// tags and the image helper types.
type Base struct{}

var _ Extension = Base{}

func (Base) ID() string  { return "base" }
func (Base) SDL() string { return baseSDL }

func (Base) RegisterResolvers(a *Assembly) {
	a.AddTypeResolver("Entity", resolver.WrapTypeResolver(nil, bundleRule("", "")))
	// Only media entities implement Media.
	a.AddTypeResolver("Media", resolver.WrapTypeResolver(nil, bundleRule("media", "Media")))

	a.AddFieldResolverIfNotExists("Query", "media",
		resolver.Produce("entity_load").
			Bind("type", resolver.Value("media")).
			Bind("id", resolver.Argument("id")))
	a.AddFieldResolverIfNotExists("Query", "route", a.FromRoute(resolver.Argument("path")))

	a.ResolveEntityFields("Tags")

	a.AddSimpleCallbackFields("ImageDerivative", "src", "url", "width", "height")
	a.AddSimpleCallbackFields("FocalPoint", "x", "y")
}
