package common

import (
	"context"
	"time"
)

// ContextKey represents a context key type
type ContextKey string

// Context keys
const (
	ContextKeyUserID        ContextKey = "user_id"
	ContextKeyRequestID     ContextKey = "request_id"
	ContextKeyTraceID       ContextKey = "trace_id"
	ContextKeyStartTime     ContextKey = "start_time"
	ContextKeyWorkspaceID   ContextKey = "workspace_id"
	ContextKeyWorkspaceRole ContextKey = "workspace_role"
)

// WithUserID adds user ID to context
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, ContextKeyUserID, userID)
}

// GetUserID extracts user ID from context
func GetUserID(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(ContextKeyUserID).(string)
	return userID, ok
}

// WithRequestID adds request ID to context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, requestID)
}

// GetRequestID extracts request ID from context
func GetRequestID(ctx context.Context) (string, bool) {
	requestID, ok := ctx.Value(ContextKeyRequestID).(string)
	return requestID, ok
}

// WithTraceID adds trace ID to context
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, ContextKeyTraceID, traceID)
}

// GetTraceID extracts trace ID from context
func GetTraceID(ctx context.Context) (string, bool) {
	traceID, ok := ctx.Value(ContextKeyTraceID).(string)
	return traceID, ok
}

// WithStartTime adds start time to context
func WithStartTime(ctx context.Context, startTime time.Time) context.Context {
	return context.WithValue(ctx, ContextKeyStartTime, startTime)
}

// GetStartTime extracts start time from context
func GetStartTime(ctx context.Context) (time.Time, bool) {
	startTime, ok := ctx.Value(ContextKeyStartTime).(time.Time)
	return startTime, ok
}

// GetElapsedTime calculates elapsed time from start time in context
func GetElapsedTime(ctx context.Context) time.Duration {
	if startTime, ok := GetStartTime(ctx); ok {
		return time.Since(startTime)
	}
	return 0
}

// WithWorkspaceID adds the workspace ID being operated on to context
func WithWorkspaceID(ctx context.Context, workspaceID string) context.Context {
	return context.WithValue(ctx, ContextKeyWorkspaceID, workspaceID)
}

// GetWorkspaceID extracts workspace ID from context
func GetWorkspaceID(ctx context.Context) (string, bool) {
	workspaceID, ok := ctx.Value(ContextKeyWorkspaceID).(string)
	return workspaceID, ok
}

// WithWorkspaceRole adds the caller's resolved role within the current
// workspace to context
func WithWorkspaceRole(ctx context.Context, role string) context.Context {
	return context.WithValue(ctx, ContextKeyWorkspaceRole, role)
}

// GetWorkspaceRole extracts the caller's workspace role from context
func GetWorkspaceRole(ctx context.Context) (string, bool) {
	role, ok := ctx.Value(ContextKeyWorkspaceRole).(string)
	return role, ok
}

// EnrichContext adds common metadata to context
func EnrichContext(ctx context.Context, userID, requestID string) context.Context {
	ctx = WithUserID(ctx, userID)
	ctx = WithRequestID(ctx, requestID)
	ctx = WithStartTime(ctx, time.Now())
	return ctx
}

// ContextMetadata contains all context metadata
type ContextMetadata struct {
	UserID      string        `json:"user_id,omitempty"`
	RequestID   string        `json:"request_id,omitempty"`
	TraceID     string        `json:"trace_id,omitempty"`
	WorkspaceID string        `json:"workspace_id,omitempty"`
	Role        string        `json:"role,omitempty"`
	Duration    time.Duration `json:"duration,omitempty"`
}

// ExtractMetadata extracts all metadata from context
func ExtractMetadata(ctx context.Context) ContextMetadata {
	meta := ContextMetadata{}

	if userID, ok := GetUserID(ctx); ok {
		meta.UserID = userID
	}
	if requestID, ok := GetRequestID(ctx); ok {
		meta.RequestID = requestID
	}
	if traceID, ok := GetTraceID(ctx); ok {
		meta.TraceID = traceID
	}
	if workspaceID, ok := GetWorkspaceID(ctx); ok {
		meta.WorkspaceID = workspaceID
	}
	if role, ok := GetWorkspaceRole(ctx); ok {
		meta.Role = role
	}
	meta.Duration = GetElapsedTime(ctx)

	return meta
}
