package producer

import (
	"github.com/hanpama/thundergql/internal/entity"
)

// ImageStyle is a scale-to-fit derivative definition. A zero dimension is
// unconstrained.
type ImageStyle struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// Options configures the builtin producers.
type Options struct {
	// BaseURL is prepended to public file and derivative URLs.
	BaseURL string
	// FilesDir is the public files directory below BaseURL.
	FilesDir string
	Styles   map[string]ImageStyle
	// SourceFields maps media bundles to the field holding the media source.
	SourceFields map[string]string
	// Languages lists the langcodes recognised as path prefixes.
	Languages       []string
	DefaultLanguage string
}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		FilesDir: "sites/default/files",
		Styles: map[string]ImageStyle{
			"thumbnail": {Width: 100, Height: 100},
			"medium":    {Width: 220, Height: 220},
			"large":     {Width: 480, Height: 480},
		},
		SourceFields: map[string]string{
			"image": "field_image",
			"video": "field_media_video_embed_field",
		},
		Languages:       []string{"en"},
		DefaultLanguage: "en",
	}
}

type builtins struct {
	store entity.Store
	opts  Options
}

// RegisterBuiltins registers every builtin producer on reg.
func RegisterBuiltins(reg *Registry, store entity.Store, opts Options) error {
	b := &builtins{store: store, opts: opts}
	for name, fn := range map[string]OperationFunc{
		"entity_load":                b.entityLoad,
		"entity_url":                 b.entityURL,
		"entity_reference":           b.entityReference,
		"entity_reference_revisions": b.entityReference,
		"image_url":                  b.imageURL,
		"image_derivative":           b.imageDerivative,
		"focal_point":                b.focalPoint,
		"media_source_field":         b.mediaSourceField,
		"route_load":                 b.routeLoad,
		"route_entity":               b.routeEntity,
		"thunder_language":           b.language,
	} {
		if err := reg.Register(name, fn); err != nil {
			return err
		}
	}
	return nil
}
