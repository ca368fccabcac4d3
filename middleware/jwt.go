package middleware

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/kasuganosora/autoinvite/cache"
)

const revokedPrefix = "token:revoked:"

// Claims is the control token payload. The operator is carried in Subject
// and every token has a unique ID so it can be revoked.
type Claims struct {
	jwt.RegisteredClaims
}

// Operator returns who the token was minted for.
func (c *Claims) Operator() string { return c.Subject }

// GenerateToken signs a control token for operator with the given secret and TTL.
func GenerateToken(operator, secret string, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", errors.New("empty jwt secret")
	}
	now := time.Now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   operator,
			Issuer:    "autoinvite",
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ParseToken validates a token string and returns the claims.
func ParseToken(tokenStr, secret string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	}, jwt.WithIssuer("autoinvite"))
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.ID == "" {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// Revoke marks the token as unusable until it would have expired anyway.
func Revoke(ctx context.Context, c cache.Cache, claims *Claims) error {
	ttl := time.Minute
	if claims.ExpiresAt != nil {
		if left := time.Until(claims.ExpiresAt.Time); left > 0 {
			ttl = left
		}
	}
	return c.Set(ctx, revokedPrefix+claims.ID, "1", ttl)
}

// IsRevoked reports whether the token was revoked.
func IsRevoked(ctx context.Context, c cache.Cache, claims *Claims) (bool, error) {
	return c.Exists(ctx, revokedPrefix+claims.ID)
}
