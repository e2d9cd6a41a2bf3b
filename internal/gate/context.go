package gate

import (
	"context"

	"github.com/clinicops/clinic-core/pkg/types"
)

type contextKey struct{ name string }

var (
	callerKey    = contextKey{"caller"}
	sessionIDKey = contextKey{"session_id"}
)

// WithCaller stores the authorized caller and its session in ctx
func WithCaller(ctx context.Context, caller *types.User, sessionID string) context.Context {
	ctx = context.WithValue(ctx, callerKey, caller)
	return context.WithValue(ctx, sessionIDKey, sessionID)
}

// CallerFromContext returns the caller admitted by the gate
func CallerFromContext(ctx context.Context) (*types.User, bool) {
	caller, ok := ctx.Value(callerKey).(*types.User)
	return caller, ok && caller != nil
}

// SessionIDFromContext returns the session the caller authenticated with
func SessionIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(sessionIDKey).(string)
	return id
}
