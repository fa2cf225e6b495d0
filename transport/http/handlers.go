package http

import (
	"encoding/base64"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/aegis-id/aegis/core"
	"github.com/aegis-id/aegis/service"
)

// AuthHandlers contains HTTP handlers for the auth endpoints.
type AuthHandlers struct {
	engine *service.AuthService
}

// NewAuthHandlers creates new auth handlers.
func NewAuthHandlers(engine *service.AuthService) *AuthHandlers {
	return &AuthHandlers{engine: engine}
}

// Login handles the login request. Wrong password, unknown user, and
// locked account all produce the same response so account state never
// leaks.
func (h *AuthHandlers) Login(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	result, err := h.engine.AuthenticateUser(c.Request.Context(), req.Username, req.Password, c.ClientIP())
	if err != nil {
		if errors.Is(err, core.ErrInvalidCredentials) || errors.Is(err, core.ErrAccountLocked) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication failed"})
			return
		}
		if errors.Is(err, core.ErrDraining) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "service unavailable"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "authentication failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":      result.Token,
		"token_type": "Bearer",
		"auth_level": result.Level.String(),
		"elapsed_ms": result.Elapsed.Milliseconds(),
	})
}

// Logout handles session logout. It always reports success for a
// well-formed request, even if the token is already dead.
func (h *AuthHandlers) Logout(c *gin.Context) {
	var req struct {
		Token string `json:"token" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	if err := h.engine.LogoutUser(c.Request.Context(), req.Token); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to logout"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

// Challenge issues a fresh escalation challenge, replacing any prior
// live challenge for the user.
func (h *AuthHandlers) Challenge(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	nonce, err := h.engine.GenerateChallenge(c.Request.Context(), req.Username)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create challenge"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"nonce": nonce})
}

// ChallengeVerify consumes a challenge and issues an elevated session
// on success. All rejection causes collapse into one response.
func (h *AuthHandlers) ChallengeVerify(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Nonce    string `json:"nonce" binding:"required"`
		Response string `json:"response" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	result, err := h.engine.ValidateChallengeResponse(c.Request.Context(), req.Username, req.Nonce, req.Response)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "challenge verification failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":      result.Token,
		"token_type": "Bearer",
		"auth_level": result.Level.String(),
	})
}

// Session reports the state of the bearer token without side effects.
func (h *AuthHandlers) Session(c *gin.Context) {
	token, ok := bearerToken(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"valid": false})
		return
	}

	session, err := h.engine.ValidateSession(c.Request.Context(), token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"valid": false})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"valid":      true,
		"username":   session.Username,
		"auth_level": session.Level.String(),
		"expires_at": session.ExpiresAt,
	})
}

// Stats returns the engine's stats snapshot.
func (h *AuthHandlers) Stats(c *gin.Context) {
	snap, err := h.engine.GetStats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to collect stats"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"total_requests":        snap.TotalRequests,
		"successful_requests":   snap.SuccessfulRequests,
		"failed_requests":       snap.FailedRequests,
		"average_processing_ms": float64(snap.AverageProcessingTime.Microseconds()) / 1000,
		"active_sessions":       snap.ActiveSessions,
		"locked_users":          snap.LockedUsers,
	})
}

// Encrypt seals a base64 plaintext under the caller's session.
func (h *AuthHandlers) Encrypt(c *gin.Context) {
	var req struct {
		Plaintext string `json:"plaintext" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	plaintext, err := base64.StdEncoding.DecodeString(req.Plaintext)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	blob, err := h.engine.Encrypt(c.Request.Context(), sessionToken(c), plaintext)
	if err != nil {
		if errors.Is(err, core.ErrUnauthenticated) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "encryption failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ciphertext": base64.StdEncoding.EncodeToString(blob)})
}

// Decrypt opens a base64 blob under the caller's session. Every
// failure cause yields the same generic response.
func (h *AuthHandlers) Decrypt(c *gin.Context) {
	var req struct {
		Ciphertext string `json:"ciphertext" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	blob, err := base64.StdEncoding.DecodeString(req.Ciphertext)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "decryption failed"})
		return
	}

	plaintext, err := h.engine.Decrypt(c.Request.Context(), sessionToken(c), blob)
	if err != nil {
		if errors.Is(err, core.ErrUnauthenticated) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "decryption failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"plaintext": base64.StdEncoding.EncodeToString(plaintext)})
}
