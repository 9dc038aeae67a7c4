// Package entity provides the content source the GraphQL layer reads from:
// entities with field item lists, reference dereferencing, path aliases, and
// two stores (in-memory fixtures and SQLite).
package entity

import (
	"context"
	"strings"

	"github.com/pkg/errors"
)

// ErrNotFound is returned when an entity does not exist.
var ErrNotFound = errors.New("entity: not found")

// IsNotFound reports whether err is (or wraps) ErrNotFound.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// Loader loads single entities.
type Loader interface {
	Load(ctx context.Context, entityType, id string) (*Entity, error)
}

// Store is a read-only content source.
type Store interface {
	Loader
	// LoadMultiple loads entities in the order of ids, skipping missing ones.
	LoadMultiple(ctx context.Context, entityType string, ids []string) ([]*Entity, error)
	// Route resolves an internal path or alias.
	Route(ctx context.Context, path string) (Route, bool, error)
	// Alias returns the preferred alias path of an entity.
	Alias(ctx context.Context, entityType, id string) (string, bool, error)
}

// Route is a resolved path pointing at an entity.
type Route struct {
	Path       string
	EntityType string
	EntityID   string
}

// ParseSystemPath splits "/<type>/<id>" into its parts.
func ParseSystemPath(path string) (entityType, id string, ok bool) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}

// parseTarget splits "<type>/<id>" alias targets.
func parseTarget(s string) (entityType, id string, ok bool) {
	i := strings.IndexByte(s, '/')
	if i <= 0 || i == len(s)-1 {
		return "", "", false
	}
	return s[:i], s[i+1:], true
}
