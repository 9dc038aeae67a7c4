package producer

import (
	"context"
	"slices"
	"strings"

	"github.com/hanpama/thundergql/internal/entity"
)

// routeLoad: path. A leading language prefix is ignored when the prefixed
// path itself does not resolve.
func (b *builtins) routeLoad(ctx context.Context, params map[string]any) (any, bool, error) {
	path, ok := stringParam(params, "path")
	if !ok {
		return nil, false, nil
	}
	r, ok, err := b.store.Route(ctx, path)
	if err != nil || ok {
		return r, ok, err
	}
	if lang, rest := b.splitLanguage(path); lang != "" {
		return b.store.Route(ctx, rest)
	}
	return nil, false, nil
}

// routeEntity: url, [language].
func (b *builtins) routeEntity(ctx context.Context, params map[string]any) (any, bool, error) {
	r, ok := params["url"].(entity.Route)
	if !ok {
		return nil, false, nil
	}
	e, err := b.store.Load(ctx, r.EntityType, r.EntityID)
	if err != nil {
		if entity.IsNotFound(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	lang, _ := stringParam(params, "language")
	return e.Translation(lang), true, nil
}

// language: path. Returns the path's language prefix or the default
// language.
func (b *builtins) language(_ context.Context, params map[string]any) (any, bool, error) {
	path, _ := stringParam(params, "path")
	if lang, _ := b.splitLanguage(path); lang != "" {
		return lang, true, nil
	}
	if b.opts.DefaultLanguage == "" {
		return nil, false, nil
	}
	return b.opts.DefaultLanguage, true, nil
}

// mediaSourceField: media. Reads the bundle's source field; reference items
// dereference to the target entity.
func (b *builtins) mediaSourceField(ctx context.Context, params map[string]any) (any, bool, error) {
	m, ok := entityParam(params, "media")
	if !ok {
		return nil, false, nil
	}
	name, ok := b.opts.SourceFields[m.Bundle]
	if !ok {
		return nil, false, nil
	}
	fl, ok := m.Field(name)
	if !ok || len(fl) == 0 {
		return nil, false, nil
	}
	if v, ok := fl.First().Get("value"); ok {
		return v, true, nil
	}
	return fl.First().Dereference(ctx)
}

func (b *builtins) splitLanguage(path string) (lang, rest string) {
	trimmed := strings.TrimPrefix(path, "/")
	first, tail, _ := strings.Cut(trimmed, "/")
	if first == "" || !slices.Contains(b.opts.Languages, first) {
		return "", path
	}
	return first, "/" + tail
}
