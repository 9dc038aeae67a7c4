package producer

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/hanpama/thundergql/internal/entity"
)

const testFixtures = `
entities:
  - type: media
    bundle: image
    id: "1"
    fields:
      name: Sunset
      field_image: {target_type: file, target_id: 10, alt: Sun, width: 1600, height: 900}
      field_tags:
        - {target_type: taxonomy_term, target_id: "5"}
        - {target_type: taxonomy_term, target_id: "404"}
        - {target_type: taxonomy_term, target_id: "6"}
      field_empty: []
  - type: media
    bundle: video
    id: "2"
    fields:
      name: Launch
      field_media_video_embed_field: https://video.example/watch?v=abc
  - type: media
    bundle: remote
    id: "3"
  - type: file
    bundle: file
    id: "10"
    fields:
      uri: public://2024/sunset.jpg
      width: 1600
      height: 900
      focal_point: "40, 60"
  - type: file
    bundle: file
    id: "11"
    fields:
      width: 10
      focal_point: "nope"
  - type: taxonomy_term
    bundle: tags
    id: "5"
    fields:
      name: Nature
  - type: taxonomy_term
    bundle: tags
    id: "6"
    fields:
      name: Sky
    translations:
      de: {fields: {name: Himmel}}
aliases:
  /media/sunset: media/1
`

type fixture struct {
	store entity.Store
	reg   *Registry
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f, err := entity.ParseFixtures([]byte(testFixtures))
	require.NoError(t, err)
	store, err := entity.NewMemoryStore(f)
	require.NoError(t, err)

	opts := DefaultOptions()
	opts.BaseURL = "https://cdn.example/"
	opts.Languages = []string{"en", "de"}
	opts.Styles["wide"] = ImageStyle{Width: 800}

	reg := NewRegistry()
	require.NoError(t, RegisterBuiltins(reg, store, opts))
	return &fixture{store: store, reg: reg}
}

func (f *fixture) load(t *testing.T, typ, id string) *entity.Entity {
	t.Helper()
	e, err := f.store.Load(context.Background(), typ, id)
	require.NoError(t, err)
	return e
}

func (f *fixture) produce(t *testing.T, name string, params map[string]any) (any, bool, error) {
	t.Helper()
	op, ok := f.reg.Operation(name)
	require.True(t, ok, "operation %s", name)
	return op.Produce(context.Background(), params)
}

func TestRegistry(t *testing.T) {
	f := newFixture(t)
	require.Equal(t, []string{
		"entity_load", "entity_reference", "entity_reference_revisions", "entity_url",
		"focal_point", "image_derivative", "image_url", "media_source_field",
		"route_entity", "route_load", "thunder_language",
	}, f.reg.Names())

	err := f.reg.Register("image_url", OperationFunc(nil))
	require.ErrorIs(t, err, ErrDuplicateOperation)

	_, ok := f.reg.Operation("nope")
	require.False(t, ok)
}

func TestEntityLoad(t *testing.T) {
	f := newFixture(t)
	v, ok, err := f.produce(t, "entity_load", map[string]any{"type": "taxonomy_term", "id": 6, "language": "de"})
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "Himmel", v.(*entity.Entity).Label())

	_, ok, err = f.produce(t, "entity_load", map[string]any{"type": "taxonomy_term", "id": "999"})
	require.NoError(t, err)
	require.False(t, ok)

	_, _, err = f.produce(t, "entity_load", map[string]any{"id": "1"})
	require.ErrorIs(t, err, ErrInvalidParam)
}

func TestEntityURL(t *testing.T) {
	f := newFixture(t)
	v, ok, err := f.produce(t, "entity_url", map[string]any{"entity": f.load(t, "media", "1")})
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "/media/sunset", v)

	v, _, _ = f.produce(t, "entity_url", map[string]any{"entity": f.load(t, "media", "2")})
	require.Equal(t, "/media/2", v)

	_, ok, _ = f.produce(t, "entity_url", map[string]any{})
	require.False(t, ok)
}

func TestEntityReference(t *testing.T) {
	f := newFixture(t)
	media := f.load(t, "media", "1")

	for _, op := range []string{"entity_reference", "entity_reference_revisions"} {
		t.Run(op, func(t *testing.T) {
			v, ok, err := f.produce(t, op, map[string]any{"field": "field_tags", "entity": media, "language": "de"})
			require.NoError(t, err)
			require.True(t, ok)
			var labels []string
			for _, e := range v.([]any) {
				labels = append(labels, e.(*entity.Entity).Label())
			}
			if diff := cmp.Diff([]string{"Nature", "Himmel"}, labels); diff != "" {
				t.Errorf("labels mismatch (-want +got):\n%s", diff)
			}
		})
	}

	_, ok, err := f.produce(t, "entity_reference", map[string]any{"field": "field_empty", "entity": media})
	require.NoError(t, err)
	require.False(t, ok, "empty field is absent")

	_, ok, err = f.produce(t, "entity_reference", map[string]any{"field": "field_missing", "entity": media})
	require.NoError(t, err)
	require.False(t, ok)

	_, _, err = f.produce(t, "entity_reference", map[string]any{"entity": media})
	require.ErrorIs(t, err, ErrInvalidParam)
}

func TestImageURL(t *testing.T) {
	f := newFixture(t)
	v, ok, err := f.produce(t, "image_url", map[string]any{"entity": f.load(t, "file", "10")})
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "https://cdn.example/sites/default/files/2024/sunset.jpg", v)

	v, ok, err = f.produce(t, "image_url", map[string]any{"entity": map[string]any{"url": "https://x/y.jpg"}})
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "https://x/y.jpg", v)

	_, ok, err = f.produce(t, "image_url", map[string]any{"entity": f.load(t, "file", "11")})
	require.NoError(t, err)
	require.False(t, ok)
}

func TestImageDerivative(t *testing.T) {
	f := newFixture(t)
	file := f.load(t, "file", "10")

	v, ok, err := f.produce(t, "image_derivative", map[string]any{"entity": file, "style": "medium"})
	require.NoError(t, err)
	require.True(t, ok)
	want := map[string]any{
		"url":    "https://cdn.example/styles/medium/public/2024/sunset.jpg",
		"width":  220,
		"height": 124,
	}
	if diff := cmp.Diff(want, v); diff != "" {
		t.Errorf("derivative mismatch (-want +got):\n%s", diff)
	}

	v, _, _ = f.produce(t, "image_derivative", map[string]any{"entity": file, "style": "wide"})
	require.Equal(t, 800, v.(map[string]any)["width"])
	require.Equal(t, 450, v.(map[string]any)["height"])

	v, ok, err = f.produce(t, "image_derivative", map[string]any{"entity": f.load(t, "file", "11"), "style": "thumbnail"})
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "", v.(map[string]any)["url"], "no uri yields an empty url")

	_, _, err = f.produce(t, "image_derivative", map[string]any{"entity": file, "style": "poster"})
	require.ErrorIs(t, err, ErrUnknownImageStyle)
}

func TestImageDerivativeItemDimensions(t *testing.T) {
	f := newFixture(t)

	// file 11 only knows its width; the item dimensions win.
	v, ok, err := f.produce(t, "image_derivative", map[string]any{
		"entity": f.load(t, "file", "11"),
		"style":  "thumbnail",
		"width":  1600,
		"height": float64(900),
	})
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 100, v.(map[string]any)["width"])
	require.Equal(t, 56, v.(map[string]any)["height"])

	v, _, err = f.produce(t, "image_derivative", map[string]any{
		"entity": f.load(t, "file", "10"),
		"style":  "thumbnail",
		"width":  "wide",
	})
	require.NoError(t, err)
	require.Equal(t, 100, v.(map[string]any)["width"], "a non-numeric param falls back to the file")
}

func TestScaleToFit(t *testing.T) {
	for _, tc := range []struct {
		w, h   int
		style  ImageStyle
		ww, wh int
	}{
		{1600, 900, ImageStyle{Width: 100, Height: 100}, 100, 56},
		{900, 1600, ImageStyle{Width: 100, Height: 100}, 56, 100},
		{50, 50, ImageStyle{Width: 100, Height: 100}, 50, 50},
		{1600, 900, ImageStyle{Height: 90}, 160, 90},
		{0, 0, ImageStyle{Width: 100, Height: 80}, 100, 80},
	} {
		w, h := scaleToFit(tc.w, tc.h, tc.style)
		require.Equal(t, [2]int{tc.ww, tc.wh}, [2]int{w, h}, "%dx%d into %+v", tc.w, tc.h, tc.style)
	}
}

func TestFocalPoint(t *testing.T) {
	f := newFixture(t)
	v, ok, err := f.produce(t, "focal_point", map[string]any{"file": f.load(t, "file", "10")})
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, map[string]any{"x": 40, "y": 60}, v)

	_, ok, err = f.produce(t, "focal_point", map[string]any{"file": f.load(t, "file", "11")})
	require.NoError(t, err)
	require.False(t, ok)
}

func TestMediaSourceField(t *testing.T) {
	f := newFixture(t)
	v, ok, err := f.produce(t, "media_source_field", map[string]any{"media": f.load(t, "media", "2")})
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "https://video.example/watch?v=abc", v)

	v, ok, err = f.produce(t, "media_source_field", map[string]any{"media": f.load(t, "media", "1")})
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "file/10", v.(*entity.Entity).Key())

	_, ok, err = f.produce(t, "media_source_field", map[string]any{"media": f.load(t, "media", "3")})
	require.NoError(t, err)
	require.False(t, ok, "bundle without a source field")
}

func TestRoutes(t *testing.T) {
	f := newFixture(t)

	url, ok, err := f.produce(t, "route_load", map[string]any{"path": "/de/media/sunset"})
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, entity.Route{Path: "/media/sunset", EntityType: "media", EntityID: "1"}, url)

	lang, ok, err := f.produce(t, "thunder_language", map[string]any{"path": "/de/media/sunset"})
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "de", lang)

	lang, _, _ = f.produce(t, "thunder_language", map[string]any{"path": "/media/sunset"})
	require.Equal(t, "en", lang)

	v, ok, err := f.produce(t, "route_entity", map[string]any{"url": url, "language": lang})
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "Sunset", v.(*entity.Entity).Label())

	_, ok, err = f.produce(t, "route_load", map[string]any{"path": "/nowhere"})
	require.NoError(t, err)
	require.False(t, ok)

	_, ok, err = f.produce(t, "route_entity", map[string]any{"url": entity.Route{EntityType: "media", EntityID: "999"}})
	require.NoError(t, err)
	require.False(t, ok)
}
