package httpapi

import (
	"net/http"
	"strings"
	"time"

	"livebid-service/internal/auth"
	"livebid-service/internal/domain/shared"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

const identityKey = "identity"

// RequestLogger logs each request with method, path, status and latency
func RequestLogger(logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		logger.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("HTTP request")
	}
}

// RequireAuth verifies the bearer token and stores the caller identity in
// the request context for handlers to read via IdentityFromContext.
func RequireAuth(verifier *auth.TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			JSONError(c, http.StatusUnauthorized, shared.ErrUnauthenticated, "authentication required")
			c.Abort()
			return
		}

		identity, err := verifier.Verify(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			JSONError(c, http.StatusUnauthorized, shared.ErrInvalidToken, "authentication required")
			c.Abort()
			return
		}

		c.Set(identityKey, identity)
		c.Next()
	}
}

// RequireAdmin rejects non-admin callers. Must be chained after RequireAuth.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := IdentityFromContext(c)
		if !ok || !identity.IsAdmin {
			JSONError(c, http.StatusForbidden, shared.ErrForbidden, "admin privileges required")
			c.Abort()
			return
		}
		c.Next()
	}
}

// IdentityFromContext returns the verified caller identity set by RequireAuth
func IdentityFromContext(c *gin.Context) (shared.Identity, bool) {
	value, exists := c.Get(identityKey)
	if !exists {
		return shared.Identity{}, false
	}
	identity, ok := value.(shared.Identity)
	return identity, ok
}
