package controllers

import (
	"errors"
	"net/http"
	"time"

	"chat-friendly/internals/metrics"
	"chat-friendly/internals/middleware"
	"chat-friendly/internals/models"
	"chat-friendly/internals/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Verification codes are valid for 24 hours from signup.
const verificationValidity = 24 * time.Hour

type AuthController struct {
	DB           *gorm.DB
	EmailManager *utils.EmailManager
	TokenManager *utils.TokenManager
	Logger       *zap.Logger
}

func NewAuthController(db *gorm.DB, emailManager *utils.EmailManager, tokenManager *utils.TokenManager, logger *zap.Logger) *AuthController {
	return &AuthController{
		DB:           db,
		EmailManager: emailManager,
		TokenManager: tokenManager,
		Logger:       logger,
	}
}

// sendEmailAsync fires a best-effort transactional email in the background.
// Delivery failures are logged and counted, never surfaced to the caller.
func sendEmailAsync(logger *zap.Logger, kind string, toEmail string, send func() error) {
	go func() {
		if err := send(); err != nil {
			logger.Warn("email delivery failed",
				zap.String("kind", kind),
				zap.String("to", toEmail),
				zap.Error(err))
			metrics.ObserveEmail(kind, false)
			return
		}
		metrics.ObserveEmail(kind, true)
	}()
}

func (a *AuthController) Signup(c *gin.Context) {
	var body struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required,min=6"`
		Name     string `json:"name" binding:"required"`
	}

	if err := c.ShouldBindJSON(&body); err != nil {
		metrics.Observe("signup", "rejected")
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "All fields are required"})
		return
	}

	// Any existing record conflicts, verified or not; abandoned signups
	// are reclaimed by the janitor once their verification window lapses,
	// never by a later signup request.
	var existing models.User
	if err := a.DB.Where("email = ?", body.Email).First(&existing).Error; err == nil {
		metrics.Observe("signup", "rejected")
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "User already exists"})
		return
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		metrics.Observe("signup", "error")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Server error"})
		return
	}

	hash, err := utils.HashPassword(body.Password)
	if err != nil {
		metrics.Observe("signup", "error")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Server error"})
		return
	}

	code, err := utils.NewNumericCode(6)
	if err != nil {
		metrics.Observe("signup", "error")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Server error"})
		return
	}
	user := models.User{
		Email:                 body.Email,
		Name:                  body.Name,
		Status:                models.DefaultStatus,
		Password:              hash,
		ProfilePic:            models.DefaultAvatarURL,
		VerificationToken:     code,
		VerificationExpiresAt: time.Now().Add(verificationValidity),
	}

	if err := a.DB.Create(&user).Error; err != nil {
		metrics.Observe("signup", "error")
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Failed to create user"})
		return
	}

	// The session is issued immediately; verification gates nothing but
	// the isVerified flag until the client chooses to enforce it.
	token, err := a.TokenManager.IssueAndSetCookie(c, user.ID)
	if err != nil {
		metrics.Observe("signup", "error")
		a.Logger.Error("session issue failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Server error"})
		return
	}

	sendEmailAsync(a.Logger, "verification", user.Email, func() error {
		return a.EmailManager.SendVerificationEmail(user.Email, code)
	})

	metrics.Observe("signup", "ok")
	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "User created successfully",
		"user":    user,
		"token":   token,
	})
}

func (a *AuthController) Login(c *gin.Context) {
	var body struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
	}

	if err := c.ShouldBindJSON(&body); err != nil {
		metrics.Observe("login", "rejected")
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "All fields are required"})
		return
	}

	var user models.User
	err := a.DB.Where("email = ?", body.Email).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Same response as a wrong password so callers cannot tell
			// which emails are registered.
			metrics.Observe("login", "rejected")
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid credentials"})
			return
		}
		metrics.Observe("login", "error")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Server error"})
		return
	}

	if !utils.CheckPassword(body.Password, user.Password) {
		metrics.Observe("login", "rejected")
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid credentials"})
		return
	}

	if user.TwoFAEnabled {
		// No cookie yet; the client must present a TOTP code to
		// /2fa/login-verify to finish the login.
		metrics.Observe("login", "ok")
		c.JSON(http.StatusOK, gin.H{
			"success":           true,
			"twoFactorRequired": true,
			"email":             user.Email,
			"message":           "Please enter your 2FA code to continue",
		})
		return
	}

	token, err := a.TokenManager.IssueAndSetCookie(c, user.ID)
	if err != nil {
		metrics.Observe("login", "error")
		a.Logger.Error("session issue failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Server error"})
		return
	}

	now := time.Now()
	a.DB.Model(&user).Update("last_login", now)
	user.LastLogin = now

	metrics.Observe("login", "ok")
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Logged in successfully",
		"user":    user,
		"token":   token,
	})
}

func (a *AuthController) Logout(c *gin.Context) {
	tokenStr, ok := middleware.ExtractCredential(c)
	if !ok {
		a.TokenManager.ClearSessionCookie(c)
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "Logged out successfully"})
		return
	}

	// Denylist the credential until its natural expiry so the stateless
	// JWT cannot be replayed after logout. A tampered token simply fails
	// to parse and is ignored.
	if jti, expiresAt, err := a.TokenManager.ExtractClaims(tokenStr); err == nil {
		if time.Now().Before(expiresAt) {
			a.DB.Create(&models.RevokedToken{Jti: jti, ExpiresAt: expiresAt})
		}
	}

	a.TokenManager.ClearSessionCookie(c)
	metrics.Observe("logout", "ok")
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Logged out successfully"})
}
