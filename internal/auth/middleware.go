package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const claimsKey = "claims"

// KioskAuth enforces bearer access tokens issued by iss.
func KioskAuth(iss *Issuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr := bearer(c)
		if tokenStr == "" {
			// Browsers cannot set headers on a WebSocket upgrade.
			tokenStr = c.Query("access_token")
		}
		if tokenStr == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		claims, err := iss.Parse(tokenStr, KindAccess)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.Set(claimsKey, claims)
		c.Next()
	}
}

func bearer(c *gin.Context) string {
	authz := c.GetHeader("Authorization")
	if len(authz) < len("bearer ") || !strings.EqualFold(authz[:len("bearer ")], "bearer ") {
		return ""
	}
	return strings.TrimSpace(authz[len("bearer "):])
}

// KioskID returns the authenticated kiosk, if any.
func KioskID(c *gin.Context) (string, bool) {
	v, ok := c.Get(claimsKey)
	if !ok {
		return "", false
	}
	claims, ok := v.(Claims)
	if !ok {
		return "", false
	}
	return claims.Subject, true
}
