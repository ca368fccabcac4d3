package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kasuganosora/autoinvite/cache"
	"github.com/kasuganosora/autoinvite/config"
)

const (
	OperatorKey = "operator"
	claimsKey   = "claims"
)

// Auth validates the control token and rejects revoked ones.
// The token is read from the Authorization Bearer header, or from the
// token query parameter for EventSource clients that cannot set headers.
func Auth(sec config.SecurityConfig, c cache.Cache) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		tokenStr := bearer(ctx)
		if tokenStr == "" {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			return
		}

		claims, err := ParseToken(tokenStr, sec.JWTSecret)
		if err != nil {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		cacheCtx, cancel := context.WithTimeout(ctx.Request.Context(), 2*time.Second)
		defer cancel()
		revoked, err := IsRevoked(cacheCtx, c, claims)
		if err != nil {
			ctx.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "token check unavailable"})
			return
		}
		if revoked {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "token revoked"})
			return
		}

		ctx.Set(OperatorKey, claims.Operator())
		ctx.Set(claimsKey, claims)
		ctx.Next()
	}
}

func bearer(ctx *gin.Context) string {
	if header := ctx.GetHeader("Authorization"); strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return ctx.Query("token")
}

// GetOperator returns the authenticated operator, or "".
func GetOperator(c *gin.Context) string {
	return c.GetString(OperatorKey)
}

// GetClaims returns the authenticated token claims, or nil.
func GetClaims(c *gin.Context) *Claims {
	if v, ok := c.Get(claimsKey); ok {
		return v.(*Claims)
	}
	return nil
}
