package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"chat-friendly/internals/metrics"
	"chat-friendly/internals/models"
	"chat-friendly/internals/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Reset flow variants. The OTP flow emails a 6-digit code the client types
// back; the link flow emails a URL carrying an opaque token.
const (
	ResetFlowOTP  = "otp"
	ResetFlowLink = "link"

	resetOTPValidity  = 10 * time.Minute
	resetLinkValidity = time.Hour
)

type PasswordController struct {
	DB           *gorm.DB
	EmailManager *utils.EmailManager
	Logger       *zap.Logger
	// Flow selects the active reset variant, ResetFlowOTP or ResetFlowLink
	Flow string
	// ClientURL is the frontend origin reset links point at
	ClientURL string
}

func NewPasswordController(db *gorm.DB, emailManager *utils.EmailManager, logger *zap.Logger, flow string, clientURL string) *PasswordController {
	if flow != ResetFlowLink {
		flow = ResetFlowOTP
	}
	return &PasswordController{
		DB:           db,
		EmailManager: emailManager,
		Logger:       logger,
		Flow:         flow,
		ClientURL:    clientURL,
	}
}

// ForgotPassword issues a reset credential. The response is identical
// whether or not the account exists.
func (p *PasswordController) ForgotPassword(c *gin.Context) {
	var body struct {
		Email string `json:"email" binding:"required,email"`
	}

	if err := c.ShouldBindJSON(&body); err != nil {
		metrics.Observe("forgot_password", "rejected")
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "A valid email address is required"})
		return
	}

	var user models.User
	err := p.DB.Where("email = ?", body.Email).First(&user).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		metrics.Observe("forgot_password", "error")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Server error"})
		return
	}

	if err == nil {
		if p.Flow == ResetFlowLink {
			token, tokenErr := utils.NewOpaqueToken()
			if tokenErr != nil {
				metrics.Observe("forgot_password", "error")
				c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Server error"})
				return
			}
			if err := p.setResetCredential(&user, token, resetLinkValidity); err != nil {
				metrics.Observe("forgot_password", "error")
				c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Server error"})
				return
			}
			resetURL := fmt.Sprintf("%s/reset-password/%s", p.ClientURL, token)
			sendEmailAsync(p.Logger, "reset_link", user.Email, func() error {
				return p.EmailManager.SendResetLinkEmail(user.Email, resetURL)
			})
		} else {
			otp, otpErr := utils.NewNumericCode(6)
			if otpErr != nil {
				metrics.Observe("forgot_password", "error")
				c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Server error"})
				return
			}
			if err := p.setResetCredential(&user, otp, resetOTPValidity); err != nil {
				metrics.Observe("forgot_password", "error")
				c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Server error"})
				return
			}
			sendEmailAsync(p.Logger, "reset_otp", user.Email, func() error {
				return p.EmailManager.SendResetOTPEmail(user.Email, otp)
			})
		}
	}

	metrics.Observe("forgot_password", "ok")
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "If the account exists, reset instructions have been sent",
		"email":   body.Email,
	})
}

func (p *PasswordController) setResetCredential(user *models.User, value string, validity time.Duration) error {
	return p.DB.Model(user).Updates(map[string]interface{}{
		"reset_password_token":      value,
		"reset_password_expires_at": time.Now().Add(validity),
	}).Error
}

// VerifyOTP checks a reset OTP without consuming it. The stored OTP stays
// live; ResetPassword must present the same code and consumes it atomically.
func (p *PasswordController) VerifyOTP(c *gin.Context) {
	var body struct {
		Email string `json:"email" binding:"required,email"`
		OTP   string `json:"otp" binding:"required"`
	}

	if err := c.ShouldBindJSON(&body); err != nil {
		metrics.Observe("verify_otp", "rejected")
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Email and OTP are required"})
		return
	}

	var user models.User
	err := p.DB.Where("email = ?", body.Email).First(&user).Error
	// A wrong email, a wrong code, and an expired code all get the same
	// answer.
	if err != nil || user.ResetPasswordToken == "" ||
		user.ResetPasswordToken != body.OTP ||
		!time.Now().Before(user.ResetPasswordExpiresAt) {
		metrics.Observe("verify_otp", "rejected")
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid or expired OTP"})
		return
	}

	metrics.Observe("verify_otp", "ok")
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "OTP verified"})
}

// ResetPassword completes the OTP flow: {email, otp, password}.
func (p *PasswordController) ResetPassword(c *gin.Context) {
	var body struct {
		Email    string `json:"email" binding:"required,email"`
		OTP      string `json:"otp" binding:"required"`
		Password string `json:"password" binding:"required,min=6"`
	}

	if err := c.ShouldBindJSON(&body); err != nil {
		metrics.Observe("reset_password", "rejected")
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Email, OTP and new password are required"})
		return
	}

	p.completeReset(c, body.Password,
		"email = ? AND reset_password_token = ? AND reset_password_token <> ''",
		body.Email, body.OTP)
}

// ResetPasswordWithToken completes the link flow: the token rides in the URL.
func (p *PasswordController) ResetPasswordWithToken(c *gin.Context) {
	token := c.Param("token")

	var body struct {
		Password string `json:"password" binding:"required,min=6"`
	}

	if err := c.ShouldBindJSON(&body); err != nil {
		metrics.Observe("reset_password", "rejected")
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "New password is required"})
		return
	}

	p.completeReset(c, body.Password,
		"reset_password_token = ? AND reset_password_token <> ''", token)
}

// completeReset consumes the reset credential and replaces the password in
// one conditional update, so redemption is at-most-once even under
// concurrent requests.
func (p *PasswordController) completeReset(c *gin.Context, newPassword string, query string, args ...interface{}) {
	var user models.User
	if err := p.DB.Where(query, args...).First(&user).Error; err != nil {
		metrics.Observe("reset_password", "rejected")
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid or expired reset token"})
		return
	}

	hash, err := utils.HashPassword(newPassword)
	if err != nil {
		metrics.Observe("reset_password", "error")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Server error"})
		return
	}

	res := p.DB.Model(&models.User{}).
		Where("id = ? AND reset_password_token = ? AND reset_password_expires_at > ?",
			user.ID, user.ResetPasswordToken, time.Now()).
		Updates(map[string]interface{}{
			"password":                  hash,
			"reset_password_token":      "",
			"reset_password_expires_at": time.Time{},
		})
	if res.Error != nil {
		metrics.Observe("reset_password", "error")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Server error"})
		return
	}
	if res.RowsAffected == 0 {
		metrics.Observe("reset_password", "rejected")
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid or expired reset token"})
		return
	}

	sendEmailAsync(p.Logger, "reset_success", user.Email, func() error {
		return p.EmailManager.SendResetSuccessEmail(user.Email)
	})

	metrics.Observe("reset_password", "ok")
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Password reset successful"})
}
