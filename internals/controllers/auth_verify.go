package controllers

import (
	"errors"
	"net/http"
	"time"

	"chat-friendly/internals/metrics"
	"chat-friendly/internals/models"
	"chat-friendly/internals/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// resendCooldown is the minimum gap between verification emails for one
// account.
const resendCooldown = time.Minute

type VerificationController struct {
	DB           *gorm.DB
	EmailManager *utils.EmailManager
	TokenManager *utils.TokenManager
	Logger       *zap.Logger
}

func NewVerificationController(db *gorm.DB, emailManager *utils.EmailManager, tokenManager *utils.TokenManager, logger *zap.Logger) *VerificationController {
	return &VerificationController{
		DB:           db,
		EmailManager: emailManager,
		TokenManager: tokenManager,
		Logger:       logger,
	}
}

func (v *VerificationController) VerifyEmail(c *gin.Context) {
	var body struct {
		Code string `json:"code" binding:"required"`
	}

	if err := c.ShouldBindJSON(&body); err != nil {
		metrics.Observe("verify_email", "rejected")
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Verification code is required"})
		return
	}

	var user models.User
	err := v.DB.Where("verification_token = ? AND verification_token <> ''", body.Code).First(&user).Error
	if err != nil {
		metrics.Observe("verify_email", "rejected")
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid or expired verification code"})
		return
	}

	// Single conditional update so the code is consumed at most once even
	// when two requests race on it. Expiry is strict: now == expiresAt is
	// already expired.
	res := v.DB.Model(&models.User{}).
		Where("id = ? AND verification_token = ? AND verification_expires_at > ?", user.ID, body.Code, time.Now()).
		Updates(map[string]interface{}{
			"is_verified":             true,
			"verification_token":      "",
			"verification_expires_at": time.Time{},
		})
	if res.Error != nil {
		metrics.Observe("verify_email", "error")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Server error"})
		return
	}
	if res.RowsAffected == 0 {
		metrics.Observe("verify_email", "rejected")
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid or expired verification code"})
		return
	}

	user.IsVerified = true
	user.VerificationToken = ""
	user.VerificationExpiresAt = time.Time{}

	sendEmailAsync(v.Logger, "welcome", user.Email, func() error {
		return v.EmailManager.SendWelcomeEmail(user.Email, user.Name)
	})

	metrics.Observe("verify_email", "ok")
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Email verified successfully",
		"user":    user,
	})
}

func (v *VerificationController) ResendVerification(c *gin.Context) {
	var body struct {
		Email string `json:"email" binding:"required,email"`
	}

	if err := c.ShouldBindJSON(&body); err != nil {
		metrics.Observe("resend_verification", "rejected")
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "A valid email address is required"})
		return
	}

	var user models.User
	err := v.DB.Where("email = ? AND is_verified = ?", body.Email, false).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Generic response so callers cannot discover which emails
			// are registered.
			metrics.Observe("resend_verification", "ok")
			c.JSON(http.StatusOK, gin.H{"success": true, "message": "If the account exists, a new code has been sent"})
			return
		}
		metrics.Observe("resend_verification", "error")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Server error"})
		return
	}

	if time.Now().Before(user.UpdatedAt.Add(resendCooldown)) {
		metrics.Observe("resend_verification", "rejected")
		c.JSON(http.StatusTooManyRequests, gin.H{"success": false, "message": "Please wait a minute before requesting a new code"})
		return
	}

	code, err := utils.NewNumericCode(6)
	if err != nil {
		metrics.Observe("resend_verification", "error")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Server error"})
		return
	}
	if err := v.DB.Model(&user).Updates(map[string]interface{}{
		"verification_token":      code,
		"verification_expires_at": time.Now().Add(verificationValidity),
	}).Error; err != nil {
		metrics.Observe("resend_verification", "error")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Server error"})
		return
	}

	sendEmailAsync(v.Logger, "verification", user.Email, func() error {
		return v.EmailManager.SendVerificationEmail(user.Email, code)
	})

	metrics.Observe("resend_verification", "ok")
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "If the account exists, a new code has been sent"})
}
