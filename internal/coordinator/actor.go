package coordinator

import (
	"context"
	"strings"
)

const anonymousActor = "anonymous"

type actorKey struct{}

// WithActor returns a context carrying the caller's identity for backlog
// entries.
func WithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFrom returns the identity stored by WithActor, or "anonymous".
func ActorFrom(ctx context.Context) string {
	if actor, ok := ctx.Value(actorKey{}).(string); ok {
		if actor = strings.TrimSpace(actor); actor != "" {
			return actor
		}
	}
	return anonymousActor
}
