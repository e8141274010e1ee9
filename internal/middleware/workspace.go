package middleware

import (
	"context"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

const (
	// WorkspaceIDKey is the context key for the caller's workspace ID
	WorkspaceIDKey contextKey = "workspace_id"

	// WorkspaceHeader carries the workspace ID set by the upstream gateway
	WorkspaceHeader = "X-Workspace-ID"
	// workspaceQueryParam is the fallback for clients that cannot set headers (websocket upgrades)
	workspaceQueryParam = "workspace_id"
)

// RequireWorkspace parses the workspace ID supplied by the gateway and stores
// it in the request context. Requests without a valid ID are rejected.
func RequireWorkspace() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := strings.TrimSpace(c.Request().Header.Get(WorkspaceHeader))
			if raw == "" {
				raw = strings.TrimSpace(c.QueryParam(workspaceQueryParam))
			}
			if raw == "" {
				return badRequestError(c, "Workspace ID is required")
			}

			id, err := strconv.ParseInt(raw, 10, 32)
			if err != nil || id <= 0 {
				log.Debug().Str("workspace_id", raw).Msg("Rejected malformed workspace ID")
				return badRequestError(c, "Workspace ID must be a positive integer")
			}

			ctx := context.WithValue(c.Request().Context(), WorkspaceIDKey, int32(id))
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}

// GetWorkspaceID extracts the workspace ID from the echo context, 0 if absent
func GetWorkspaceID(c echo.Context) int32 {
	if id, ok := c.Request().Context().Value(WorkspaceIDKey).(int32); ok {
		return id
	}
	return 0
}
