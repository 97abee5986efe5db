package services

import "context"

type contextKey string

const (
	runIDKey    contextKey = "run_id"
	resourceKey contextKey = "resource"
	listIDKey   contextKey = "list_id"
)

// WithRunID annotates context with the backup run identifier.
func WithRunID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, runIDKey, id)
}

// RunIDFromContext extracts the backup run identifier if present.
func RunIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(runIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithResource annotates context with the resource kind being exported.
func WithResource(ctx context.Context, resource string) context.Context {
	if resource == "" {
		return ctx
	}
	return context.WithValue(ctx, resourceKey, resource)
}

// ResourceFromContext returns the resource kind if present.
func ResourceFromContext(ctx context.Context) (string, bool) {
	v := ctx.Value(resourceKey)
	if str, ok := v.(string); ok && str != "" {
		return str, true
	}
	return "", false
}

// WithListID annotates context with the Discogs list identifier.
func WithListID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, listIDKey, id)
}

// ListIDFromContext extracts the list identifier if present.
func ListIDFromContext(ctx context.Context) (int64, bool) {
	v := ctx.Value(listIDKey)
	if v == nil {
		return 0, false
	}
	switch val := v.(type) {
	case int64:
		return val, true
	case int:
		return int64(val), true
	default:
		return 0, false
	}
}
