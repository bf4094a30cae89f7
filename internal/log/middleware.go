package log

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// ContextKey type for context keys
type ContextKey string

const (
	// LoggerContextKey is the context key for the logger
	LoggerContextKey ContextKey = "logger"
)

// WithLogger returns ctx carrying logger.
func WithLogger(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, LoggerContextKey, logger)
}

// FromContext extracts a logger from the context
func FromContext(ctx context.Context) *Logger {
	if logger, ok := ctx.Value(LoggerContextKey).(*Logger); ok {
		return logger
	}
	return &Logger{
		Logger:    slog.Default(),
		component: "unknown",
	}
}

// Middleware returns MCP receiving middleware that tags each request with a
// request id, stores a request-scoped logger in the context and logs the
// method outcome and duration.
func Middleware(logger *Logger) mcp.Middleware {
	return func(next mcp.MethodHandler) mcp.MethodHandler {
		return func(ctx context.Context, method string, req mcp.Request) (mcp.Result, error) {
			start := time.Now()
			fields := NewFields().
				WithRequestID(uuid.NewString()).
				With(FieldMethod, method)

			switch r := req.(type) {
			case *mcp.CallToolRequest:
				if r.Params != nil {
					fields = fields.With(FieldTool, r.Params.Name)
				}
			case *mcp.ReadResourceRequest:
				if r.Params != nil {
					fields = fields.With(FieldResourceURI, r.Params.URI)
				}
			}

			reqLogger := logger.With(FieldRequestID, fields[FieldRequestID])
			result, err := next(WithLogger(ctx, reqLogger), method, req)

			fields = fields.WithDuration(start).With(FieldSuccess, err == nil)
			if err != nil {
				logger.WarnContext(ctx, "MCP request failed", fields.WithError(err).ToSlice()...)
			} else {
				logger.DebugContext(ctx, "MCP request completed", fields.ToSlice()...)
			}
			return result, err
		}
	}
}
