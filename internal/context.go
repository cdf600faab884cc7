package internal

import (
	"context"
)

type ctxKey string

const ContextActorKey ctxKey = "actorID"

// ActorFromContext returns the verified user id set by the auth middleware.
func ActorFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if userID, ok := ctx.Value(ContextActorKey).(string); ok {
		return userID
	}
	return ""
}

func ContextWithActor(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, ContextActorKey, userID)
}

// RequireActor is ActorFromContext for handlers that cannot run anonymously.
func RequireActor(ctx context.Context) (string, error) {
	actor := ActorFromContext(ctx)
	if actor == "" {
		return "", ErrMissingToken
	}
	return actor, nil
}
