package http

import (
	"context"

	"github.com/example/calbook/internal/application"
)

type contextKey string

const (
	principalContextKey  contextKey = "principal"
	pageSlugContextKey   contextKey = "page_slug"
	trackingIDContextKey contextKey = "tracking_id"
	pageIDContextKey     contextKey = "page_id"
	accountIDContextKey  contextKey = "account_id"
	sessionIDContextKey  contextKey = "event_session_id"
	eventIDContextKey    contextKey = "community_event_id"
)

// ContextWithPrincipal returns a derived context containing the authenticated principal.
func ContextWithPrincipal(ctx context.Context, principal application.Principal) context.Context {
	return context.WithValue(ctx, principalContextKey, principal)
}

// PrincipalFromContext extracts the authenticated principal from context if available.
func PrincipalFromContext(ctx context.Context) (application.Principal, bool) {
	principal, ok := ctx.Value(principalContextKey).(application.Principal)
	return principal, ok
}

// ContextWithPageSlug injects the booking page slug resolved from the request path.
func ContextWithPageSlug(ctx context.Context, slug string) context.Context {
	return context.WithValue(ctx, pageSlugContextKey, slug)
}

// PageSlugFromContext extracts a booking page slug previously associated with the context.
func PageSlugFromContext(ctx context.Context) (string, bool) {
	slug, ok := ctx.Value(pageSlugContextKey).(string)
	return slug, ok
}

// ContextWithTrackingID injects the booking tracking identifier resolved from the request path.
func ContextWithTrackingID(ctx context.Context, trackingID string) context.Context {
	return context.WithValue(ctx, trackingIDContextKey, trackingID)
}

// TrackingIDFromContext extracts a booking tracking identifier from the context.
func TrackingIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(trackingIDContextKey).(string)
	return id, ok
}

// ContextWithPageID injects the booking page identifier resolved from the request path.
func ContextWithPageID(ctx context.Context, pageID string) context.Context {
	return context.WithValue(ctx, pageIDContextKey, pageID)
}

// PageIDFromContext extracts a booking page identifier from the context.
func PageIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(pageIDContextKey).(string)
	return id, ok
}

// ContextWithAccountID injects the calendar account identifier resolved from the request path.
func ContextWithAccountID(ctx context.Context, accountID string) context.Context {
	return context.WithValue(ctx, accountIDContextKey, accountID)
}

// AccountIDFromContext extracts a calendar account identifier from the context.
func AccountIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(accountIDContextKey).(string)
	return id, ok
}

// ContextWithSessionID injects the event session identifier resolved from the request path.
func ContextWithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, sessionIDContextKey, sessionID)
}

// SessionIDFromContext extracts an event session identifier from the context.
func SessionIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(sessionIDContextKey).(string)
	return id, ok
}

// ContextWithEventID injects the community event identifier resolved from the request path.
func ContextWithEventID(ctx context.Context, eventID string) context.Context {
	return context.WithValue(ctx, eventIDContextKey, eventID)
}

// EventIDFromContext extracts a community event identifier from the context.
func EventIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(eventIDContextKey).(string)
	return id, ok
}
