package identity

import (
	"context"
	"errors"
	"testing"
	"time"

	"socialgraph/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type lookupFunc func(ctx context.Context, externalID string) (*models.User, error)

func (f lookupFunc) GetByExternalID(ctx context.Context, externalID string) (*models.User, error) {
	return f(ctx, externalID)
}

func TestActor(t *testing.T) {
	t.Parallel()

	id, ok := Anonymous.ID()
	assert.False(t, ok)
	assert.Empty(t, id)
	assert.Equal(t, "anonymous", Anonymous.String())
	assert.False(t, For("").Authenticated())

	id, ok = For("u-1").ID()
	assert.True(t, ok)
	assert.Equal(t, "u-1", id)
}

func TestJWTVerifier_RoundTrip(t *testing.T) {
	t.Parallel()
	v := NewJWTVerifier("test-secret-at-least-32-characters!!")

	token, err := v.Sign(External{Subject: "ext-1", Email: "a@example.com", Username: "alice"}, time.Minute)
	require.NoError(t, err)

	ext, err := v.Verify(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "ext-1", ext.Subject)
	assert.Equal(t, "a@example.com", ext.Email)
	assert.Equal(t, "alice", ext.Username)
}

func TestJWTVerifier_Rejects(t *testing.T) {
	t.Parallel()
	v := NewJWTVerifier("test-secret-at-least-32-characters!!")
	other := NewJWTVerifier("another-secret-at-least-32-characters")

	expired, err := v.Sign(External{Subject: "ext-1"}, -time.Minute)
	require.NoError(t, err)
	foreign, err := other.Sign(External{Subject: "ext-1"}, time.Minute)
	require.NoError(t, err)
	noSub, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp": time.Now().Add(time.Minute).Unix(),
	}).SignedString([]byte("test-secret-at-least-32-characters!!"))
	require.NoError(t, err)

	for name, token := range map[string]string{
		"expired":      expired,
		"wrong secret": foreign,
		"missing sub":  noSub,
		"not a jwt":    "garbage",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := v.Verify(context.Background(), token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestResolver_Resolve(t *testing.T) {
	t.Parallel()
	v := NewJWTVerifier("test-secret-at-least-32-characters!!")
	known, err := v.Sign(External{Subject: "ext-known"}, time.Minute)
	require.NoError(t, err)
	unknown, err := v.Sign(External{Subject: "ext-new"}, time.Minute)
	require.NoError(t, err)

	users := lookupFunc(func(_ context.Context, externalID string) (*models.User, error) {
		if externalID == "ext-known" {
			return &models.User{ID: "user-1", ExternalID: externalID}, nil
		}
		return nil, gorm.ErrRecordNotFound
	})
	r := NewResolver(v, users)

	res, err := r.Resolve(context.Background(), "")
	require.NoError(t, err)
	assert.Nil(t, res.External)
	assert.False(t, res.Actor.Authenticated())

	res, err = r.Resolve(context.Background(), known)
	require.NoError(t, err)
	assert.Equal(t, For("user-1"), res.Actor)

	res, err = r.Resolve(context.Background(), unknown)
	require.NoError(t, err)
	require.NotNil(t, res.External)
	assert.Equal(t, "ext-new", res.External.Subject)
	assert.False(t, res.Actor.Authenticated())

	_, err = r.Resolve(context.Background(), "garbage")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestResolver_LookupFailure(t *testing.T) {
	t.Parallel()
	v := NewJWTVerifier("test-secret-at-least-32-characters!!")
	token, err := v.Sign(External{Subject: "ext-1"}, time.Minute)
	require.NoError(t, err)

	r := NewResolver(v, lookupFunc(func(context.Context, string) (*models.User, error) {
		return nil, errors.New("db down")
	}))
	res, err := r.Resolve(context.Background(), token)
	assert.Error(t, err)
	assert.False(t, res.Actor.Authenticated())
}
