package walletd

import (
	"context"
)

type contextKey struct{}

var userContextKey = contextKey{}

func WithUser(ctx context.Context, user *APIUser) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

func UserFrom(ctx context.Context) (*APIUser, bool) {
	user, ok := ctx.Value(userContextKey).(*APIUser)
	return user, ok
}
