package entity

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func loadTestFixtures(t *testing.T) *Fixtures {
	t.Helper()
	f, err := LoadFixtures("testdata/fixtures.yaml")
	require.NoError(t, err)
	return f
}

func newTestMemoryStore(t *testing.T) *MemoryStore {
	t.Helper()
	s, err := NewMemoryStore(loadTestFixtures(t))
	require.NoError(t, err)
	return s
}

func newTestSQLStore(t *testing.T) *SQLStore {
	t.Helper()
	ctx := context.Background()
	s, err := OpenSQL(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.Migrate(ctx))
	require.NoError(t, s.Import(ctx, loadTestFixtures(t)))
	return s
}

func TestParseFixtures_RequiresTypeAndID(t *testing.T) {
	_, err := ParseFixtures([]byte("entities:\n  - bundle: image\n"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "type and id are required")
}

func TestFixtureEntity_Build(t *testing.T) {
	fe := FixtureEntity{
		Type:   "media",
		Bundle: "image",
		ID:     "7",
		Fields: map[string]any{
			"name":  "Sunset",
			"tags":  []any{map[string]any{"target_type": "taxonomy_term", "target_id": 5}},
			"empty": nil,
		},
	}
	e, err := fe.Build()
	require.NoError(t, err)
	require.Equal(t, "en", e.Langcode)
	require.NotEmpty(t, e.UUID)

	again, err := fe.Build()
	require.NoError(t, err)
	require.Equal(t, e.UUID, again.UUID, "generated uuids are stable")

	require.Equal(t, "Sunset", e.Label())
	require.Equal(t, []string{"empty", "name", "tags"}, e.FieldNames())

	tt, id, ok := e.Fields["tags"].First().Target()
	require.True(t, ok)
	require.Equal(t, "taxonomy_term", tt)
	require.Equal(t, "5", id)
	require.Empty(t, e.Fields["empty"])
}

func TestFixtureEntity_NestedSequence(t *testing.T) {
	fe := FixtureEntity{Type: "media", ID: "1", Fields: map[string]any{"bad": []any{[]any{"x"}}}}
	_, err := fe.Build()
	require.Error(t, err)
	require.Contains(t, err.Error(), "field bad")
}

func TestNewMemoryStore_Duplicate(t *testing.T) {
	f := &Fixtures{Entities: []FixtureEntity{{Type: "media", ID: "1"}, {Type: "media", ID: "1"}}}
	_, err := NewMemoryStore(f)
	require.Error(t, err)
}

func TestNewMemoryStore_InvalidAlias(t *testing.T) {
	f := &Fixtures{Aliases: map[string]string{"/x": "media"}}
	_, err := NewMemoryStore(f)
	require.Error(t, err)
}

func TestParseSystemPath(t *testing.T) {
	tt, id, ok := ParseSystemPath("/media/1")
	require.True(t, ok)
	require.Equal(t, "media", tt)
	require.Equal(t, "1", id)

	for _, p := range []string{"/", "/media", "/media/1/edit", "media//"} {
		_, _, ok := ParseSystemPath(p)
		require.False(t, ok, p)
	}
}

// storeContract runs the same checks against every Store implementation.
func storeContract(t *testing.T, s Store) {
	ctx := context.Background()

	t.Run("load", func(t *testing.T) {
		e, err := s.Load(ctx, "media", "1")
		require.NoError(t, err)
		require.Equal(t, "image", e.Bundle)
		require.Equal(t, "Sunset", e.Label())
		v, ok := e.Fields["created"].First().Get("value")
		require.True(t, ok)
		require.Equal(t, 1700000000, v)
		v, ok = e.Fields["status"].First().Get("value")
		require.True(t, ok)
		require.Equal(t, true, v)
	})

	t.Run("not found", func(t *testing.T) {
		_, err := s.Load(ctx, "media", "999")
		require.Error(t, err)
		require.True(t, IsNotFound(err))
	})

	t.Run("base fields", func(t *testing.T) {
		e, err := s.Load(ctx, "media", "1")
		require.NoError(t, err)
		fl, ok := e.Field("bundle")
		require.True(t, ok)
		v, _ := fl.First().Get("value")
		require.Equal(t, "image", v)
		_, ok = e.Field("missing")
		require.False(t, ok)
	})

	t.Run("dereference", func(t *testing.T) {
		e, err := s.Load(ctx, "media", "1")
		require.NoError(t, err)
		got, ok, err := e.Fields["field_image"].Dereference(ctx)
		require.NoError(t, err)
		require.True(t, ok)
		file := got.(*Entity)
		require.Equal(t, "file/10", file.Key())

		dangling := e.Fields["field_tags"][2]
		_, ok, err = dangling.Dereference(ctx)
		require.NoError(t, err)
		require.False(t, ok)
	})

	t.Run("translation", func(t *testing.T) {
		e, err := s.Load(ctx, "media", "1")
		require.NoError(t, err)
		de := e.Translation("de")
		require.Equal(t, "de", de.Langcode)
		require.Equal(t, "Sonnenuntergang", de.Label())
		_, ok := de.Fields["field_image"]
		require.True(t, ok, "untranslated fields are shared")
		require.Same(t, e, e.Translation("fr"))
		require.Same(t, e, e.Translation(""))
	})

	t.Run("load multiple", func(t *testing.T) {
		got, err := s.LoadMultiple(ctx, "taxonomy_term", []string{"6", "404", "5"})
		require.NoError(t, err)
		var keys []string
		for _, e := range got {
			keys = append(keys, e.Key())
		}
		if diff := cmp.Diff([]string{"taxonomy_term/6", "taxonomy_term/5"}, keys); diff != "" {
			t.Errorf("LoadMultiple mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("route", func(t *testing.T) {
		r, ok, err := s.Route(ctx, "/media/sunset")
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, Route{Path: "/media/sunset", EntityType: "media", EntityID: "1"}, r)

		r, ok, err = s.Route(ctx, "/media/2")
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, "2", r.EntityID)

		_, ok, err = s.Route(ctx, "/media/999")
		require.NoError(t, err)
		require.False(t, ok)

		_, ok, err = s.Route(ctx, "/nowhere")
		require.NoError(t, err)
		require.False(t, ok)
	})

	t.Run("alias", func(t *testing.T) {
		p, ok, err := s.Alias(ctx, "media", "1")
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, "/de/media/sonnenuntergang", p)

		_, ok, err = s.Alias(ctx, "media", "2")
		require.NoError(t, err)
		require.False(t, ok)
	})
}

func TestMemoryStore(t *testing.T) {
	storeContract(t, newTestMemoryStore(t))
}

func TestSQLStore(t *testing.T) {
	storeContract(t, newTestSQLStore(t))
}

func TestSQLStore_ImportReplaces(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLStore(t)
	f := &Fixtures{Entities: []FixtureEntity{{Type: "media", Bundle: "image", ID: "1", Fields: map[string]any{"name": "Dusk"}}}}
	require.NoError(t, s.Import(ctx, f))
	e, err := s.Load(ctx, "media", "1")
	require.NoError(t, err)
	require.Equal(t, "Dusk", e.Label())
}

func TestItem_Attribute(t *testing.T) {
	ctx := context.Background()
	fl := FieldList{{Values: map[string]any{"alt": "Sun", "title": nil}}}
	v, ok, err := fl.Attribute(ctx, "alt")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "Sun", v)

	_, ok, err = fl.Attribute(ctx, "title")
	require.NoError(t, err)
	require.False(t, ok, "nil properties are absent")

	_, ok, err = FieldList{}.Attribute(ctx, "alt")
	require.NoError(t, err)
	require.False(t, ok)
}
