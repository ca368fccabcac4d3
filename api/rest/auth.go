package rest

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kasuganosora/autoinvite/cache"
	mw "github.com/kasuganosora/autoinvite/middleware"
	"go.uber.org/zap"
)

// TokenHandler serves the control token endpoints. Tokens are minted
// offline by the token subcommand; the API only inspects and revokes them.
type TokenHandler struct {
	cache  cache.Cache
	logger *zap.Logger
}

// NewTokenHandler creates a TokenHandler.
func NewTokenHandler(c cache.Cache, logger *zap.Logger) *TokenHandler {
	return &TokenHandler{cache: c, logger: logger}
}

// Whoami returns the caller's token details.
// GET /api/token
func (h *TokenHandler) Whoami(c *gin.Context) {
	claims := mw.GetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	resp := gin.H{"operator": claims.Operator(), "token_id": claims.ID}
	if claims.ExpiresAt != nil {
		resp["expires_at"] = claims.ExpiresAt.Time
	}
	c.JSON(http.StatusOK, resp)
}

// Revoke invalidates the caller's token.
// POST /api/token/revoke
func (h *TokenHandler) Revoke(c *gin.Context) {
	claims := mw.GetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	if err := mw.Revoke(ctx, h.cache, claims); err != nil {
		h.logger.Error("token revoke failed", zap.String("token_id", claims.ID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "revoke failed"})
		return
	}
	h.logger.Info("token revoked", zap.String("operator", claims.Operator()), zap.String("token_id", claims.ID))
	c.JSON(http.StatusOK, gin.H{"revoked": true})
}
