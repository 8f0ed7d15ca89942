package utils

import (
	"context"
)

type contextKey string

const (
	LoginKey contextKey = "login"
	RoleKey  contextKey = "role"
)

// AnonymousCaller is the caller identity used when no bearer token is sent.
const AnonymousCaller = "anonymous"

// GetCallerFromContext returns the login of the authenticated caller, or
// AnonymousCaller.
func GetCallerFromContext(ctx context.Context) string {
	login, ok := ctx.Value(LoginKey).(string)
	if !ok || login == "" {
		return AnonymousCaller
	}
	return login
}

func GetRoleFromContext(ctx context.Context) (string, bool) {
	roleVal := ctx.Value(RoleKey)
	if roleVal == nil {
		return "", false
	}

	role, ok := roleVal.(string)
	return role, ok
}

func SetCallerContext(ctx context.Context, login, role string) context.Context {
	ctx = context.WithValue(ctx, LoginKey, login)
	ctx = context.WithValue(ctx, RoleKey, role)
	return ctx
}
