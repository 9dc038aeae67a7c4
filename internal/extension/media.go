package extension

import (
	_ "embed"

	"github.com/hanpama/thundergql/internal/resolver"
)

//go:embed graphql/media.graphql
var mediaSDL string

// Media adds media entities and their fields. It requires Base.
type Media struct{}

var _ Extension = Media{}

func (Media) ID() string  { return "media" }
func (Media) SDL() string { return mediaSDL }

func (Media) RegisterResolvers(a *Assembly) {
	a.AddTypeResolver("Entity", MediaTypeResolver(a.TypeResolver("Entity")))
	a.AddTypeResolver("Media", MediaTypeResolver(a.TypeResolver("Media")))
	a.AddTypeResolver("Video", MediaTypeResolver(a.TypeResolver("Video")))

	registerImageFields(a)
	registerVideoFields(a)
}

// MediaTypeResolver resolves media entities to "Media" + bundle schema name
// and leaves everything else to next.
func MediaTypeResolver(next resolver.TypeResolver) resolver.TypeResolver {
	return resolver.WrapTypeResolver(next, bundleRule("media", "Media"))
}

func registerImageFields(a *Assembly) {
	const t = "MediaImage"
	image := resolver.Path("entity", "field_image.entity")

	a.ResolveMediaInterfaceFields(t)
	a.AddFieldResolverIfNotExists(t, "copyright", resolver.Path("entity", "field_copyright.value"))
	a.AddFieldResolverIfNotExists(t, "description", resolver.Path("entity", "field_description.processed"))
	a.AddFieldResolverIfNotExists(t, "src", resolver.Compose(
		image,
		resolver.Produce("image_url").Bind("entity", resolver.Parent()),
	))
	// The image item carries the source dimensions; the file does not.
	a.AddFieldResolverIfNotExists(t, "derivative", resolver.Compose(
		resolver.Produce("image_derivative").
			Bind("entity", image).
			Bind("style", resolver.Argument("style")).
			Bind("width", resolver.Path("entity", "field_image.width")).
			Bind("height", resolver.Path("entity", "field_image.height")),
		resolver.Callback(derivativeWithSrc),
	))
	a.AddFieldResolverIfNotExists(t, "focalPoint", resolver.Compose(
		image,
		resolver.Produce("focal_point").Bind("file", resolver.Parent()),
	))
	a.AddFieldResolverIfNotExists(t, "width", resolver.Path("entity", "field_image.width"))
	a.AddFieldResolverIfNotExists(t, "height", resolver.Path("entity", "field_image.height"))
	a.AddFieldResolverIfNotExists(t, "title", resolver.Path("entity", "field_image.title"))
	a.AddFieldResolverIfNotExists(t, "alt", resolver.Path("entity", "field_image.alt"))
	a.AddFieldResolverIfNotExists(t, "tags", a.FromEntityReference("field_tags"))
	a.AddFieldResolverIfNotExists(t, "source", resolver.Path("entity", "field_source.value"))
}

func registerVideoFields(a *Assembly) {
	const t = "MediaVideo"

	a.ResolveMediaInterfaceFields(t)
	a.AddFieldResolverIfNotExists(t, "src",
		resolver.Produce("media_source_field").Bind("media", resolver.Parent()))
	a.AddFieldResolverIfNotExists(t, "username", resolver.Path("entity", "field_author.value"))
	a.AddFieldResolverIfNotExists(t, "caption", resolver.Path("entity", "field_caption.processed"))
	a.AddFieldResolverIfNotExists(t, "copyright", resolver.Path("entity", "field_copyright.value"))
	a.AddFieldResolverIfNotExists(t, "description", resolver.Path("entity", "field_description.processed"))
	a.AddFieldResolverIfNotExists(t, "source", resolver.Path("entity", "field_source.value"))
}

// derivativeWithSrc copies url into src. A derivative without a url is
// absent rather than an object of nulls.
func derivativeWithSrc(v any) (any, bool) {
	m, ok := v.(map[string]any)
	if !ok {
		return nil, false
	}
	url, _ := m["url"].(string)
	if url == "" {
		return nil, false
	}
	out := make(map[string]any, len(m)+1)
	for k, vv := range m {
		out[k] = vv
	}
	out["src"] = url
	return out, true
}
