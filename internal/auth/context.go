package auth

import (
	"context"
)

type operatorKey struct{}

// ContextWithOperator records the system username that passed basic auth.
func ContextWithOperator(ctx context.Context, username string) context.Context {
	return context.WithValue(ctx, operatorKey{}, username)
}

func OperatorFromContext(ctx context.Context) (string, bool) {
	name, ok := ctx.Value(operatorKey{}).(string)
	return name, ok
}
