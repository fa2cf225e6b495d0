package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/aegis-id/aegis/service"
)

const (
	ctxToken    = "sessionToken"
	ctxUsername = "username"
	ctxLevel    = "authLevel"
)

// bearerToken extracts the bearer token from the Authorization header.
func bearerToken(c *gin.Context) (string, bool) {
	auth := c.GetHeader("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") {
		return "", false
	}
	token := strings.TrimPrefix(auth, "Bearer ")
	return token, token != ""
}

// sessionToken returns the validated token set by AuthMiddleware, or
// the raw bearer token when the route is not behind the middleware.
func sessionToken(c *gin.Context) string {
	if token, exists := c.Get(ctxToken); exists {
		return token.(string)
	}
	token, _ := bearerToken(c)
	return token
}

// AuthMiddleware validates the bearer token and stashes the session
// identity in the request context.
func AuthMiddleware(engine *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization header"})
			return
		}

		session, err := engine.ValidateSession(c.Request.Context(), token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set(ctxToken, token)
		c.Set(ctxUsername, session.Username)
		c.Set(ctxLevel, session.Level)

		c.Next()
	}
}
