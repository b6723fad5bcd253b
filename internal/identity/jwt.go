package identity

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// JWTVerifier verifies HMAC-signed tokens whose "sub" claim is the external subject.
type JWTVerifier struct {
	secret []byte
}

// NewJWTVerifier creates a JWTVerifier.
func NewJWTVerifier(secret string) *JWTVerifier {
	return &JWTVerifier{secret: []byte(secret)}
}

func (v *JWTVerifier) Verify(_ context.Context, tokenString string) (*External, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return nil, ErrInvalidToken
	}

	return &External{
		Subject:  sub,
		Email:    stringClaim(claims, "email"),
		Name:     stringClaim(claims, "name"),
		Username: stringClaim(claims, "preferred_username"),
		ImageURL: stringClaim(claims, "picture"),
	}, nil
}

// Sign issues a token for ext. Used by the seeder and tests.
func (v *JWTVerifier) Sign(ext External, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"sub": ext.Subject,
		"exp": time.Now().Add(ttl).Unix(),
		"iat": time.Now().Unix(),
	}
	if ext.Email != "" {
		claims["email"] = ext.Email
	}
	if ext.Name != "" {
		claims["name"] = ext.Name
	}
	if ext.Username != "" {
		claims["preferred_username"] = ext.Username
	}
	if ext.ImageURL != "" {
		claims["picture"] = ext.ImageURL
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}

func stringClaim(claims map[string]interface{}, key string) string {
	s, _ := claims[key].(string)
	return s
}
