package server

import (
	"context"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"github.com/yousuf/builder-typegen/internal/session"
)

type contextKey string

const sessionContextKey contextKey = "session"

// getSessionFromContext retrieves the session context from the request context.
func getSessionFromContext(ctx context.Context) (*session.Context, error) {
	sessionCtx, ok := ctx.Value(sessionContextKey).(*session.Context)
	if !ok || sessionCtx == nil {
		return nil, fmt.Errorf("session context not found in request context")
	}
	return sessionCtx, nil
}

// createSessionInjectionMiddleware stores the session context as a value in
// the request context. Request cancellation never ends the session.
func createSessionInjectionMiddleware(sessionMgr *session.Manager) mcp.Middleware {
	return func(next mcp.MethodHandler) mcp.MethodHandler {
		return func(ctx context.Context, method string, req mcp.Request) (mcp.Result, error) {
			sessionID := req.GetSession().ID()

			sessionCtx, err := sessionMgr.GetOrCreateSession(ctx, sessionID)
			if err != nil {
				return nil, fmt.Errorf("failed to get/create session: %w", err)
			}
			sessionCtx.UpdateLastAccessed()

			ctx = context.WithValue(ctx, sessionContextKey, sessionCtx)
			return next(ctx, method, req)
		}
	}
}

// createLoggingMiddleware logs every MCP method call with its duration.
func createLoggingMiddleware(log logrus.FieldLogger) mcp.Middleware {
	return func(next mcp.MethodHandler) mcp.MethodHandler {
		return func(ctx context.Context, method string, req mcp.Request) (mcp.Result, error) {
			start := time.Now()
			entry := log.WithFields(logrus.Fields{
				"session": req.GetSession().ID(),
				"method":  method,
			})
			entry.Debug("Request")

			result, err := next(ctx, method, req)

			entry = entry.WithField("duration", time.Since(start))
			if err != nil {
				entry.WithError(err).Warn("Request failed")
			} else {
				entry.Info("Request handled")
			}
			return result, err
		}
	}
}
