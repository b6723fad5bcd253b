package middleware

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"socialgraph/internal/identity"
	"socialgraph/internal/observability"

	"github.com/gofiber/fiber/v2"
)

const (
	actorLocal    = "actor"
	externalLocal = "identity"
)

// TokenResolver resolves a bearer token to the acting identity.
type TokenResolver interface {
	Resolve(ctx context.Context, token string) (identity.Resolution, error)
}

// Identity resolves the request's bearer token, if any, and stores the actor
// and the external identity in locals. It never rejects a request: a
// malformed header, a token that fails verification or a failed user lookup
// all continue as Anonymous, and the handlers that need an actor answer
// UNAUTHENTICATED themselves.
func Identity(resolver TokenResolver) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, ok := bearerToken(c)
		if !ok {
			observability.Logger.InfoContext(c.UserContext(), "malformed authorization header, continuing anonymous",
				slog.String("path", c.Path()))
			c.Set(fiber.HeaderWWWAuthenticate, `Bearer error="invalid_request"`)
			return anonymous(c)
		}

		res, err := resolver.Resolve(c.UserContext(), token)
		if errors.Is(err, identity.ErrInvalidToken) {
			observability.Logger.InfoContext(c.UserContext(), "rejected bearer token, continuing anonymous",
				slog.String("path", c.Path()))
			c.Set(fiber.HeaderWWWAuthenticate, `Bearer error="invalid_token"`)
			return anonymous(c)
		}
		if err != nil {
			observability.Logger.ErrorContext(c.UserContext(), "identity resolution failed, continuing anonymous",
				slog.String("path", c.Path()), slog.String("error", err.Error()))
			return anonymous(c)
		}

		c.Locals(actorLocal, res.Actor)
		if res.External != nil {
			c.Locals(externalLocal, res.External)
		}
		return c.Next()
	}
}

func anonymous(c *fiber.Ctx) error {
	c.Locals(actorLocal, identity.Anonymous)
	return c.Next()
}

// ActorFrom returns the actor resolved for this request, or Anonymous.
func ActorFrom(c *fiber.Ctx) identity.Actor {
	if a, ok := c.Locals(actorLocal).(identity.Actor); ok {
		return a
	}
	return identity.Anonymous
}

// ExternalFrom returns the verified external identity of this request, if any.
func ExternalFrom(c *fiber.Ctx) (*identity.External, bool) {
	ext, ok := c.Locals(externalLocal).(*identity.External)
	return ext, ok && ext != nil
}

// bearerToken reads "Authorization: Bearer <token>", falling back to the
// token query parameter used by WebSocket clients. ok is false for a
// malformed header.
func bearerToken(c *fiber.Ctx) (string, bool) {
	header := c.Get(fiber.HeaderAuthorization)
	if header == "" {
		return c.Query("token"), true
	}
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	return parts[1], true
}
