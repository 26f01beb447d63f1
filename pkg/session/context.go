// Package session carries per-request session facts through context: the
// session identifier and the active log file id. Tools read the file id from
// here rather than trusting model-supplied arguments, so a hallucinated or
// copied id can never reach another session's tables.
package session

import "context"

type sessionIDKey struct{}

type fileIDKey struct{}

// WithSessionID injects a session ID into the context.
func WithSessionID(ctx context.Context, sessionID string) context.Context {
	if sessionID == "" {
		return ctx
	}
	return context.WithValue(ctx, sessionIDKey{}, sessionID)
}

// SessionIDFromContext extracts the session ID from the context.
// Returns empty string if not found.
func SessionIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(sessionIDKey{}).(string); ok {
		return id
	}
	return ""
}

// WithFileID injects the active log file id into the context.
func WithFileID(ctx context.Context, fileID string) context.Context {
	if fileID == "" {
		return ctx
	}
	return context.WithValue(ctx, fileIDKey{}, fileID)
}

// FileIDFromContext extracts the active log file id from the context.
// Returns empty string if no file is active.
func FileIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(fileIDKey{}).(string); ok {
		return id
	}
	return ""
}
