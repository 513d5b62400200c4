package api

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/goliatone/go-tiltguard/auth"
	"github.com/goliatone/go-tiltguard/middleware/jwtware"
)

const identityKey = "tiltguard.identity"

// accessLog logs one line per request. Errors are rendered here so the
// logged status matches the response.
func (s *Server) accessLog() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := s.now()

		if err := c.Next(); err != nil {
			if herr := c.App().ErrorHandler(c, err); herr != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
		}

		s.logger.Info("http request",
			"method", c.Method(),
			"path", c.Path(),
			"status", c.Response().StatusCode(),
			"latency", s.now().Sub(start).Round(time.Microsecond).String(),
			"request_id", c.GetRespHeader(fiber.HeaderXRequestID),
		)
		return nil
	}
}

func (s *Server) logImpersonation(c *fiber.Ctx, claims jwtware.AuthClaims) error {
	if admin := claims.Impersonator(); admin != "" {
		s.logger.Info("impersonated request", "user_id", claims.UserID(), "impersonated_by", admin, "path", c.Path())
	}
	return nil
}

// sessionContext stores the token session in the request context
func sessionContext(ctx context.Context, claims jwtware.AuthClaims) context.Context {
	return auth.WithSessionContext(ctx, &auth.SessionObject{
		UserID:         claims.UserID(),
		Role:           claims.Role(),
		ImpersonatedBy: claims.Impersonator(),
	})
}

// requireActiveUser resolves the token user and rejects deleted or inactive
// accounts
func (s *Server) requireActiveUser(c *fiber.Ctx) error {
	session := sessionFrom(c)
	if session == nil {
		return auth.ErrTokenMalformed
	}

	identity, err := s.deps.Auth.IdentityFromSession(c.UserContext(), session)
	if err != nil {
		if auth.IsNotFound(err) {
			return auth.ErrTokenMalformed
		}
		return err
	}

	c.Locals(identityKey, identity)
	return c.Next()
}

// requireAdmin checks the stored role, not the token role
func (s *Server) requireAdmin(c *fiber.Ctx) error {
	identity := identityFrom(c)
	if identity == nil || !auth.UserRole(identity.Role()).IsAdmin() {
		return auth.ErrAdminRequired
	}
	return c.Next()
}

func identityFrom(c *fiber.Ctx) auth.Identity {
	identity, _ := c.Locals(identityKey).(auth.Identity)
	return identity
}

func sessionFrom(c *fiber.Ctx) auth.Session {
	session, _ := auth.SessionFromContext(c.UserContext())
	return session
}

func currentUserID(c *fiber.Ctx) (uuid.UUID, error) {
	identity := identityFrom(c)
	if identity == nil {
		return uuid.Nil, auth.ErrTokenMalformed
	}
	return auth.ParseUserID(identity.ID())
}
