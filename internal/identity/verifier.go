package identity

import (
	"context"
	"errors"

	"socialgraph/internal/models"

	"gorm.io/gorm"
)

// ErrInvalidToken is returned when a presented token cannot be verified.
var ErrInvalidToken = errors.New("invalid or expired token")

// External is the identity asserted by the provider. Subject is opaque and stable.
type External struct {
	Subject  string
	Email    string
	Name     string
	Username string
	ImageURL string
}

// Verifier turns a bearer token into an external identity.
type Verifier interface {
	Verify(ctx context.Context, token string) (*External, error)
}

// UserLookup finds the local profile mirrored from an external identity.
type UserLookup interface {
	GetByExternalID(ctx context.Context, externalID string) (*models.User, error)
}

// Resolution is the outcome of resolving one request's token.
type Resolution struct {
	// External is nil when no token was presented.
	External *External
	Actor    Actor
}

// Resolver maps tokens to internal actors.
type Resolver struct {
	verifier Verifier
	users    UserLookup
}

// NewResolver creates a Resolver.
func NewResolver(verifier Verifier, users UserLookup) *Resolver {
	return &Resolver{verifier: verifier, users: users}
}

// Resolve verifies token and looks up the local user. An empty token, or a
// verified subject with no local profile yet, resolves to Anonymous.
func (r *Resolver) Resolve(ctx context.Context, token string) (Resolution, error) {
	if token == "" {
		return Resolution{Actor: Anonymous}, nil
	}
	ext, err := r.verifier.Verify(ctx, token)
	if err != nil {
		return Resolution{Actor: Anonymous}, err
	}
	user, err := r.users.GetByExternalID(ctx, ext.Subject)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Resolution{External: ext, Actor: Anonymous}, nil
	}
	if err != nil {
		return Resolution{External: ext, Actor: Anonymous}, err
	}
	return Resolution{External: ext, Actor: For(user.ID)}, nil
}
