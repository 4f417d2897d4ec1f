package auth

import (
	"context"
)

type contextKey string

const (
	// ContextKeyRole is the context key for the authenticated caller's role
	ContextKeyRole contextKey = "role"
	// ContextKeySubject is the context key for the token subject
	ContextKeySubject contextKey = "subject"
)

// WithCaller adds the caller's role and subject to the context
func WithCaller(ctx context.Context, role, subject string) context.Context {
	ctx = context.WithValue(ctx, ContextKeyRole, role)
	return context.WithValue(ctx, ContextKeySubject, subject)
}

// RoleFromContext retrieves the caller role from the context
func RoleFromContext(ctx context.Context) (string, bool) {
	role, ok := ctx.Value(ContextKeyRole).(string)
	return role, ok
}

// SubjectFromContext retrieves the token subject from the context
func SubjectFromContext(ctx context.Context) (string, bool) {
	sub, ok := ctx.Value(ContextKeySubject).(string)
	return sub, ok
}
