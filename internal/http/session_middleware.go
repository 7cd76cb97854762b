package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"ossideas/internal/backend"
)

const sessionClaimsKey = "session_claims"

// SessionAuthMiddleware valida el access token de sesion y guarda los claims
// en el contexto.
func SessionAuthMiddleware(tokens *backend.TokenService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if tokens == nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "tokens not configured"})
			c.Abort()
			return
		}

		header := strings.TrimSpace(c.GetHeader("Authorization"))
		if header == "" || !strings.HasPrefix(strings.ToLower(header), "bearer ") {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			c.Abort()
			return
		}

		token := strings.TrimSpace(header[len("Bearer "):])
		claims, err := tokens.ParseAccessToken(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			c.Abort()
			return
		}

		c.Set(sessionClaimsKey, claims)
		c.Next()
	}
}

// GetSessionClaims obtiene los claims de sesion desde el contexto.
func GetSessionClaims(c *gin.Context) (backend.SessionClaims, bool) {
	val, ok := c.Get(sessionClaimsKey)
	if !ok {
		return backend.SessionClaims{}, false
	}
	claims, ok := val.(backend.SessionClaims)
	return claims, ok
}
