package middleware

import (
	"errors"
	"net/http"
	"strings"

	"chat-friendly/internals/models"
	"chat-friendly/internals/utils"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Context keys set by the guard for downstream handlers.
const (
	CtxUserID = "userID"
	CtxUser   = "user"
)

type RequireAuthMiddleware struct {
	DB           *gorm.DB
	TokenManager *utils.TokenManager
}

func NewRequireAuthMiddleware(db *gorm.DB, tokenManager *utils.TokenManager) *RequireAuthMiddleware {
	return &RequireAuthMiddleware{
		DB:           db,
		TokenManager: tokenManager,
	}
}

// ExtractCredential reads the session credential from the cookie or, for
// non-cookie clients, the Authorization: Bearer header.
func ExtractCredential(c *gin.Context) (string, bool) {
	if tokenStr, err := c.Cookie(utils.SessionCookieName); err == nil && tokenStr != "" {
		return tokenStr, true
	}
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return "", false
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	return parts[1], true
}

// VerifyToken validates the inbound session credential and attaches the
// resolved user id to the context. Every failure collapses to a uniform 401.
func (m *RequireAuthMiddleware) VerifyToken(c *gin.Context) {
	tokenStr, ok := ExtractCredential(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Unauthorized"})
		return
	}

	userID, jti, _, err := m.TokenManager.Verify(tokenStr)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Unauthorized"})
		return
	}

	// Revocation check: a logged-out credential stays invalid until its
	// natural expiry even though its signature still verifies.
	var revoked models.RevokedToken
	if err := m.DB.Where("jti = ?", jti).First(&revoked).Error; err == nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Unauthorized"})
		return
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Server error"})
		return
	}

	c.Set(CtxUserID, userID)
	c.Next()
}

// ResolveUser loads the full user record for a validated identity and
// attaches it to the context. Run after VerifyToken.
func (m *RequireAuthMiddleware) ResolveUser(c *gin.Context) {
	userID := c.GetUint(CtxUserID)
	if userID == 0 {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Unauthorized"})
		return
	}

	var user models.User
	if err := m.DB.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"success": false, "message": "User not found"})
			return
		}
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Server error"})
		return
	}

	c.Set(CtxUser, user)
	c.Next()
}
