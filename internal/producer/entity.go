package producer

import (
	"context"

	"github.com/hanpama/thundergql/internal/entity"
)

// entityLoad: type, id, [language].
func (b *builtins) entityLoad(ctx context.Context, params map[string]any) (any, bool, error) {
	t, err := requireString(params, "type")
	if err != nil {
		return nil, false, err
	}
	id, ok := stringParam(params, "id")
	if !ok {
		return nil, false, nil
	}
	e, err := b.store.Load(ctx, t, id)
	if err != nil {
		if entity.IsNotFound(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	lang, _ := stringParam(params, "language")
	return e.Translation(lang), true, nil
}

// entityURL: entity. The alias wins over the system path.
func (b *builtins) entityURL(ctx context.Context, params map[string]any) (any, bool, error) {
	e, ok := entityParam(params, "entity")
	if !ok {
		return nil, false, nil
	}
	path, ok, err := b.store.Alias(ctx, e.Type, e.ID)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		path = "/" + e.Type + "/" + e.ID
	}
	return path, true, nil
}

// entityReference: field, entity, [language]. Dangling references are
// skipped; an empty result is absent.
func (b *builtins) entityReference(ctx context.Context, params map[string]any) (any, bool, error) {
	e, ok := entityParam(params, "entity")
	if !ok {
		return nil, false, nil
	}
	field, err := requireString(params, "field")
	if err != nil {
		return nil, false, err
	}
	lang, _ := stringParam(params, "language")
	fl, ok := e.Field(field)
	if !ok {
		return nil, false, nil
	}
	var out []any
	for _, it := range fl {
		t, id, ok := it.Target()
		if !ok {
			continue
		}
		ref, err := b.store.Load(ctx, t, id)
		if err != nil {
			if entity.IsNotFound(err) {
				continue
			}
			return nil, false, err
		}
		out = append(out, ref.Translation(lang))
	}
	if len(out) == 0 {
		return nil, false, nil
	}
	return out, true, nil
}
