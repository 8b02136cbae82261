package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/GoPolymarket/polycreds/internal/config"
	"github.com/gin-gonic/gin"
)

const HeaderAdminKey = "X-Admin-Key"
const HeaderAdminSecretKey = "X-Admin-Secret"

// AdminMiddleware guards diagnostics that expose gate and audit state.
func AdminMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cfg == nil || cfg.Auth.AdminKey == "" {
			c.JSON(http.StatusForbidden, gin.H{"error": "admin key not configured"})
			c.Abort()
			return
		}
		if !secureEqual(c.GetHeader(HeaderAdminKey), cfg.Auth.AdminKey) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid admin key"})
			c.Abort()
			return
		}
		c.Next()
	}
}

// AdminSecretMiddleware is the second factor for routes that spend a derive
// attempt or switch identity.
func AdminSecretMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cfg == nil || cfg.Auth.AdminSecretKey == "" {
			c.JSON(http.StatusForbidden, gin.H{"error": "admin secret key not configured"})
			c.Abort()
			return
		}
		if !secureEqual(c.GetHeader(HeaderAdminSecretKey), cfg.Auth.AdminSecretKey) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid admin secret key"})
			c.Abort()
			return
		}
		c.Next()
	}
}

func secureEqual(got, want string) bool {
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}
