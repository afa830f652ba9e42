package middleware

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/maintdb/internal/config"
	"github.com/localnerve/maintdb/internal/services"
	"github.com/localnerve/maintdb/internal/types"
	"go.uber.org/zap"
)

// AuthAdmin validates that the request has admin role authorization
func AuthAdmin(cfg *config.Config, logger *zap.Logger) fiber.Handler {
	return authHandler(cfg, logger, []string{"admin"}, "data.authorization.admin")
}

// AuthUser validates that the request has user role authorization
func AuthUser(cfg *config.Config, logger *zap.Logger) fiber.Handler {
	return authHandler(cfg, logger, []string{"user"}, "data.authorization.user")
}

// authHandler passes every request through when no Authorizer is configured.
func authHandler(cfg *config.Config, logger *zap.Logger, roles []string, errorType string) fiber.Handler {
	if !cfg.AuthEnabled() {
		return func(c *fiber.Ctx) error {
			return c.Next()
		}
	}
	return func(c *fiber.Ctx) error {
		if !services.IsAuthorizerInitialized() {
			if err := services.InitAuthorizer(c.UserContext(), cfg, c.Protocol(), c.Hostname(), logger); err != nil {
				logger.Error("authorizer unavailable", zap.Error(err))
				return &types.CustomError{
					Code:    fiber.StatusServiceUnavailable,
					Message: "Authorizer unavailable",
					Type:    errorType,
				}
			}
		}
		return authorize(c, roles, errorType)
	}
}

// authorize performs the authorization check
func authorize(c *fiber.Ctx, roles []string, errorType string) error {
	// Get session cookie
	session := c.Cookies("cookie_session")
	if session == "" {
		return &types.CustomError{
			Code:    fiber.StatusForbidden,
			Message: "Authorizer cookie \"cookie_session\" not found",
			Type:    errorType,
		}
	}

	// Validate session
	data, err := services.ValidateSession(session, roles)
	if err != nil {
		return &types.CustomError{
			Code:    fiber.StatusForbidden,
			Message: fmt.Sprintf("Invalid session: %v", err),
			Type:    errorType,
		}
	}

	// Set user data in context
	if user, ok := data["user"]; ok {
		c.Locals("user", user)
	}

	return c.Next()
}
