package entity

import (
	"context"

	"github.com/pkg/errors"
)

// MemoryStore is an immutable in-memory Store built from fixtures.
type MemoryStore struct {
	entities map[string]*Entity
	aliases  map[string]Route
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore builds a store from fixtures. A nil document yields an empty
// store.
func NewMemoryStore(f *Fixtures) (*MemoryStore, error) {
	s := &MemoryStore{
		entities: make(map[string]*Entity),
		aliases:  make(map[string]Route),
	}
	if f == nil {
		return s, nil
	}
	for _, fe := range f.Entities {
		e, err := fe.Build()
		if err != nil {
			return nil, err
		}
		if _, dup := s.entities[e.Key()]; dup {
			return nil, errors.Errorf("duplicate fixture entity %s", e.Key())
		}
		e.bind(s)
		s.entities[e.Key()] = e
	}
	for path, target := range f.Aliases {
		t, id, ok := parseTarget(target)
		if !ok {
			return nil, errors.Errorf("alias %s: invalid target %q", path, target)
		}
		s.aliases[path] = Route{Path: path, EntityType: t, EntityID: id}
	}
	return s, nil
}

func (s *MemoryStore) Load(_ context.Context, entityType, id string) (*Entity, error) {
	e, ok := s.entities[entityType+"/"+id]
	if !ok {
		return nil, errors.Wrapf(ErrNotFound, "%s/%s", entityType, id)
	}
	return e, nil
}

func (s *MemoryStore) LoadMultiple(ctx context.Context, entityType string, ids []string) ([]*Entity, error) {
	out := make([]*Entity, 0, len(ids))
	for _, id := range ids {
		e, err := s.Load(ctx, entityType, id)
		if err != nil {
			if IsNotFound(err) {
				continue
			}
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func (s *MemoryStore) Route(_ context.Context, path string) (Route, bool, error) {
	if r, ok := s.aliases[path]; ok {
		return r, true, nil
	}
	t, id, ok := ParseSystemPath(path)
	if !ok {
		return Route{}, false, nil
	}
	if _, exists := s.entities[t+"/"+id]; !exists {
		return Route{}, false, nil
	}
	return Route{Path: path, EntityType: t, EntityID: id}, true, nil
}

// Alias returns the alias path of an entity, if any.
func (s *MemoryStore) Alias(_ context.Context, entityType, id string) (string, bool, error) {
	best := ""
	for path, r := range s.aliases {
		if r.EntityType == entityType && r.EntityID == id && (best == "" || path < best) {
			best = path
		}
	}
	return best, best != "", nil
}
