package httpapi

import (
	"time"

	"github.com/dmitrijs2005/listings/internal/logging"
	"github.com/dmitrijs2005/listings/internal/server/auth"
	"github.com/gofiber/fiber/v2"
)

const identityLocal = "identity"

// contextMiddleware copies the request id set by the requestid middleware
// into the user context so service-level logs carry it.
func contextMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if rid, ok := c.Locals("requestid").(string); ok && rid != "" {
			c.SetUserContext(logging.WithRequestID(c.UserContext(), rid))
		}
		return c.Next()
	}
}

// structuredLogger logs one record per request after the handler chain ran.
func structuredLogger(log logging.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		if err != nil {
			// Let the error handler write the response so the status is final.
			if herr := c.App().ErrorHandler(c, err); herr != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
		}

		status := c.Response().StatusCode()
		args := []any{
			"status", status,
			"method", c.Method(),
			"path", c.Path(),
			"ip", c.IP(),
			"latency", time.Since(start).String(),
			"user_agent", c.Get(fiber.HeaderUserAgent),
		}

		switch {
		case status >= fiber.StatusInternalServerError:
			log.Error(c.UserContext(), "request", args...)
		case status >= fiber.StatusBadRequest:
			log.Warn(c.UserContext(), "request", args...)
		default:
			log.Info(c.UserContext(), "request", args...)
		}
		return nil
	}
}

// require authenticates the bearer token and checks the caller against policy.
// The resolved identity is stored in Locals for handlers.
func (s *Server) require(policy auth.Policy) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := s.deps.Gate.Authorize(c.UserContext(), c.Get(fiber.HeaderAuthorization), policy)
		if err != nil {
			return err
		}
		c.Locals(identityLocal, id)
		c.SetUserContext(logging.WithUserID(c.UserContext(), id.UserID))
		return c.Next()
	}
}

func identity(c *fiber.Ctx) *auth.Identity {
	id, _ := c.Locals(identityLocal).(*auth.Identity)
	return id
}
