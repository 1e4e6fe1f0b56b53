package http

import (
	"net/http"
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"huddle/internal/auth"
)

const claimsKey = "claims"

// ClientTokenMiddleware gives every browser a stable identifier in its
// cookie session; rate limiting keys on it.
func ClientTokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		token, _ := session.Get("ct").(string)
		if token == "" {
			token = uuid.NewString()
			session.Set("ct", token)
			_ = session.Save()
		}
		c.Set("client_token", token)
		c.Next()
	}
}

// JWTAuth rejects requests without a valid bearer token and stores the
// verified claims on the context.
func JWTAuth(tokens *auth.Tokens) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		raw, found := strings.CutPrefix(header, "Bearer ")
		if !found || raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "No token"})
			return
		}
		claims, err := tokens.Verify(raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Invalid token"})
			return
		}
		c.Set(claimsKey, claims)
		c.Next()
	}
}

func currentClaims(c *gin.Context) *auth.Claims {
	v, _ := c.Get(claimsKey)
	claims, _ := v.(*auth.Claims)
	return claims
}
