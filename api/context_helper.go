package api

import (
	"context"
	"time"
)

// QueryTimeout is the default timeout for database queries
var QueryTimeout = 10 * time.Second

// SetQueryTimeout overrides QueryTimeout. Non-positive values are ignored.
func SetQueryTimeout(d time.Duration) {
	if d > 0 {
		QueryTimeout = d
	}
}

// WithQueryTimeout creates a context with query timeout
func WithQueryTimeout(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return context.WithTimeout(parent, QueryTimeout)
}

type actorKey struct{}

// WithActor stores the authenticated identity on the context
func WithActor(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, actorKey{}, id)
}

// ActorFrom returns the authenticated identity stored by Middleware
func ActorFrom(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(actorKey{}).(string)
	return id, ok && id != ""
}
