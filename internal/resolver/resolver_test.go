package resolver

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

type opMap map[string]Operation

func (m opMap) Operation(name string) (Operation, bool) {
	op, ok := m[name]
	return op, ok
}

// recordingOp returns its params and records each call.
type recordingOp struct {
	calls []map[string]any
	fn    func(params map[string]any) (any, bool, error)
}

func (o *recordingOp) Produce(_ context.Context, params map[string]any) (any, bool, error) {
	o.calls = append(o.calls, params)
	if o.fn != nil {
		return o.fn(params)
	}
	return params, true, nil
}

func imageURLOp() Operation {
	return OperationFunc(func(_ context.Context, params map[string]any) (any, bool, error) {
		file, ok := params["entity"].(map[string]any)
		if !ok {
			return nil, false, nil
		}
		url, ok := file["url"].(string)
		return url, ok, nil
	})
}

func TestRegisterIfAbsentKeepsFirst(t *testing.T) {
	reg := NewRegistry()
	e1 := Value("first")
	e2 := Value("second")

	require.True(t, reg.RegisterIfAbsent("MediaImage", "src", e1))
	require.False(t, reg.RegisterIfAbsent("MediaImage", "src", e2))

	got, ok := reg.Lookup("MediaImage", "src")
	require.True(t, ok)
	v, ok, err := Eval(context.Background(), got, Env{}, nil)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "first", v)
	require.Equal(t, 1, reg.Len())
}

func TestLookupMissing(t *testing.T) {
	reg := NewRegistry()
	e, ok := reg.Lookup("Nope", "nothing")
	require.False(t, ok)
	require.False(t, e.Valid())
}

func TestKeysSorted(t *testing.T) {
	reg := NewRegistry()
	reg.RegisterIfAbsent("MediaVideo", "src", Parent())
	reg.RegisterIfAbsent("MediaImage", "width", Parent())
	reg.RegisterIfAbsent("MediaImage", "alt", Parent())

	want := []FieldKey{{"MediaImage", "alt"}, {"MediaImage", "width"}, {"MediaVideo", "src"}}
	if diff := cmp.Diff(want, reg.Keys()); diff != "" {
		t.Fatalf("keys mismatch (-want +got):\n%s", diff)
	}
}

func TestMediaImageSrcScenario(t *testing.T) {
	expr := Compose(
		Path("entity", "field_image.entity"),
		Produce("image_url").Bind("entity", Parent()),
	)
	reg := NewRegistry()
	reg.RegisterIfAbsent("MediaImage", "src", expr)
	e, _ := reg.Lookup("MediaImage", "src")
	env := Env{Operations: opMap{"image_url": imageURLOp()}}

	parent := map[string]any{
		"field_image": map[string]any{
			"entity": map[string]any{"url": "https://x/y.jpg"},
		},
	}
	v, ok, err := Eval(context.Background(), e, env, parent)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "https://x/y.jpg", v)

	v, ok, err = Eval(context.Background(), e, env, map[string]any{"name": "no image"})
	require.NoError(t, err)
	require.False(t, ok)
	require.Nil(t, v)
}

func TestPathAbsentPrefix(t *testing.T) {
	parent := map[string]any{"x": map[string]any{"b": map[string]any{"c": 1}}}
	_, ok, err := Eval(context.Background(), Path("entity", "a.b.c"), Env{}, parent)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestPathItemListUsesFirstItem(t *testing.T) {
	parent := map[string]any{
		"field_copyright": []any{
			map[string]any{"value": "CC-BY"},
			map[string]any{"value": "ignored"},
		},
		"field_empty": []any{},
	}
	v, ok, err := Eval(context.Background(), Path("entity", "field_copyright.value"), Env{}, parent)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "CC-BY", v)

	_, ok, err = Eval(context.Background(), Path("entity", "field_empty.value"), Env{}, parent)
	require.NoError(t, err)
	require.False(t, ok)
}

type refItem struct{ target any }

func (r refItem) Dereference(context.Context) (any, bool, error) { return r.target, r.target != nil, nil }

func TestPathDereferencesEntitySegment(t *testing.T) {
	parent := map[string]any{
		"field_image": []any{refItem{target: map[string]any{"uri": "public://a.png"}}},
	}
	v, ok, err := Eval(context.Background(), Path("entity", "field_image.entity.uri"), Env{}, parent)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "public://a.png", v)
}

func TestPathFromExplicitRoot(t *testing.T) {
	env := Env{Args: map[string]any{"input": map[string]any{"langcode": map[string]any{"value": "de"}}}}
	v, ok, err := Eval(context.Background(), Path("entity", "langcode.value", Argument("input")), env, nil)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "de", v)
}

func TestComposeShortCircuits(t *testing.T) {
	after := &recordingOp{}
	env := Env{Operations: opMap{"after": after}}
	expr := Compose(
		Value(1),
		Callback(func(any) (any, bool) { return nil, false }),
		Produce("after").Bind("v", Parent()),
	)
	_, ok, err := Eval(context.Background(), expr, env, nil)
	require.NoError(t, err)
	require.False(t, ok)
	require.Empty(t, after.calls, "stages after an absent stage must not run")
}

func TestComposeDoesNotLeakStaleValue(t *testing.T) {
	expr := Compose(
		Value("stale"),
		Callback(func(v any) (any, bool) { return nil, false }),
	)
	v, ok, err := Eval(context.Background(), expr, Env{}, "parent")
	require.NoError(t, err)
	require.False(t, ok)
	require.Nil(t, v)
}

func TestComposePipesParent(t *testing.T) {
	expr := Compose(
		Path("entity", "a"),
		Path("entity", "b"),
		Callback(func(v any) (any, bool) { return v.(int) * 2, true }),
	)
	v, ok, err := Eval(context.Background(), expr, Env{}, map[string]any{"a": map[string]any{"b": 21}})
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 42, v)
}

func TestProduceBindingsAreSiblings(t *testing.T) {
	op := &recordingOp{}
	env := Env{
		Args:       map[string]any{"style": "thumbnail"},
		Operations: opMap{"image_derivative": op},
	}
	expr := Produce("image_derivative").
		Bind("entity", Parent()).
		Bind("name", Path("entity", "name")).
		Bind("style", Argument("style")).
		Bind("missing", Argument("nope"))

	parent := map[string]any{"name": "file"}
	_, ok, err := Eval(context.Background(), expr, env, parent)
	require.NoError(t, err)
	require.True(t, ok)

	want := []map[string]any{{
		"entity": parent,
		"name":   "file",
		"style":  "thumbnail",
	}}
	if diff := cmp.Diff(want, op.calls); diff != "" {
		t.Fatalf("params mismatch (-want +got):\n%s", diff)
	}
}

func TestBindLastWriteWins(t *testing.T) {
	op := &recordingOp{}
	base := Produce("op").Bind("p", Value("one"))
	overridden := base.Bind("p", Value("two"))
	env := Env{Operations: opMap{"op": op}}

	_, _, err := Eval(context.Background(), overridden, env, nil)
	require.NoError(t, err)
	_, _, err = Eval(context.Background(), base, env, nil)
	require.NoError(t, err)

	require.Equal(t, "two", op.calls[0]["p"])
	require.Equal(t, "one", op.calls[1]["p"], "Bind must not mutate the receiver")
}

func TestProduceUnknownOperation(t *testing.T) {
	_, _, err := Eval(context.Background(), Produce("nope"), Env{Operations: opMap{}}, nil)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrUnknownOperation))
}

func TestProduceAbsentResult(t *testing.T) {
	op := &recordingOp{fn: func(map[string]any) (any, bool, error) { return nil, false, nil }}
	_, ok, err := Eval(context.Background(), Produce("op"), Env{Operations: opMap{"op": op}}, nil)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestProduceFault(t *testing.T) {
	boom := errors.New("boom")
	op := &recordingOp{fn: func(map[string]any) (any, bool, error) { return nil, false, boom }}
	_, _, err := Eval(context.Background(), Produce("op"), Env{Operations: opMap{"op": op}}, nil)
	require.Error(t, err)
	require.True(t, errors.Is(err, boom))
}

func TestSimpleCallbackField(t *testing.T) {
	field := Callback(func(v any) (any, bool) {
		m, ok := v.(map[string]any)
		if !ok {
			return nil, false
		}
		out, ok := m["bar"]
		return out, ok
	})
	v, ok, err := Eval(context.Background(), field, Env{}, map[string]any{"bar": 7})
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 7, v)
}

func TestEvalZeroExpr(t *testing.T) {
	_, _, err := Eval(context.Background(), Expr{}, Env{}, nil)
	require.True(t, errors.Is(err, ErrInvalidExpr))
}

func TestProduces(t *testing.T) {
	require.False(t, Path("entity", "a.b").Produces())
	require.False(t, Compose(Value(1), Callback(func(v any) (any, bool) { return v, true })).Produces())
	require.True(t, Compose(Path("entity", "a"), Produce("x")).Produces())
	require.True(t, Path("entity", "langcode.value", Produce("x")).Produces())
}

func TestString(t *testing.T) {
	e := Compose(
		Path("entity", "field_image.entity"),
		Produce("image_derivative").Bind("style", Argument("style")).Bind("entity", Parent()),
	)
	want := `compose(path(entity, "field_image.entity"), produce(image_derivative).bind(entity, parent()).bind(style, argument(style)))`
	require.Equal(t, want, e.String())
}

func TestBindOnNonProducePanics(t *testing.T) {
	require.Panics(t, func() { _ = Parent().Bind("x", Value(1)) })
}
