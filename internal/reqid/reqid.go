// Package reqid carries a per-request identifier through context.
package reqid

import (
	"context"

	"github.com/google/uuid"
)

// Header is the HTTP header a caller may use to supply its own request id.
const Header = "X-Request-Id"

type key struct{}

// NewContext returns a copy of parent carrying a new random request id.
func NewContext(parent context.Context) (context.Context, string) {
	return WithID(parent, uuid.NewString())
}

// WithID returns a copy of parent carrying id. An empty id is replaced with a
// generated one.
func WithID(parent context.Context, id string) (context.Context, string) {
	if id == "" {
		id = uuid.NewString()
	}
	return context.WithValue(parent, key{}, id), id
}

// FromContext extracts the request id from ctx.
func FromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(key{}).(string)
	return id, ok
}
