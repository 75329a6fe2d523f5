package controllers

import (
	"bytes"
	"encoding/base64"
	"image/png"
	"net/http"
	"time"

	"chat-friendly/internals/metrics"
	"chat-friendly/internals/middleware"
	"chat-friendly/internals/models"
	"chat-friendly/internals/utils"

	"github.com/gin-gonic/gin"
	"github.com/pquerna/otp/totp"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type MFAController struct {
	DB           *gorm.DB
	TokenManager *utils.TokenManager
	Logger       *zap.Logger
	// AppName is the TOTP issuer shown in authenticator apps
	AppName string
	// EncryptionKey protects TOTP secrets at rest
	EncryptionKey string
}

func NewMFAController(db *gorm.DB, tokenManager *utils.TokenManager, logger *zap.Logger, appName string, encryptionKey string) *MFAController {
	return &MFAController{
		DB:            db,
		TokenManager:  tokenManager,
		Logger:        logger,
		AppName:       appName,
		EncryptionKey: encryptionKey,
	}
}

// Setup2FA generates a fresh TOTP key for the authenticated user and returns
// it with a QR code. 2FA stays off until Activate2FA proves the client can
// produce codes.
func (m *MFAController) Setup2FA(c *gin.Context) {
	user := c.MustGet(middleware.CtxUser).(models.User)

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      m.AppName,
		AccountName: user.Email,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to generate 2FA key"})
		return
	}

	encryptedSecret, err := utils.Encrypt(key.Secret(), m.EncryptionKey)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to store 2FA secret"})
		return
	}

	if err := m.DB.Model(&user).Update("two_fa_secret", encryptedSecret).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Server error"})
		return
	}

	img, err := key.Image(200, 200)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to render QR code"})
		return
	}
	var buf bytes.Buffer
	png.Encode(&buf, img)

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"secret":      key.Secret(),
		"qr_code_url": "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()),
	})
}

func (m *MFAController) Activate2FA(c *gin.Context) {
	user := c.MustGet(middleware.CtxUser).(models.User)

	var body struct {
		Code string `json:"code" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Code is required"})
		return
	}

	if user.TwoFASecret == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "2FA setup has not been started"})
		return
	}

	secret, err := utils.Decrypt(user.TwoFASecret, m.EncryptionKey)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to process security key"})
		return
	}

	if !totp.Validate(body.Code, secret) {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid verification code"})
		return
	}

	if err := m.DB.Model(&user).Update("two_fa_enabled", true).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "2FA activated successfully"})
}

// LoginVerify2FA finishes a login that Login answered with
// twoFactorRequired. Only now is the session credential issued.
func (m *MFAController) LoginVerify2FA(c *gin.Context) {
	var body struct {
		Email string `json:"email" binding:"required,email"`
		Code  string `json:"code" binding:"required"`
	}

	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Email and code are required"})
		return
	}

	var user models.User
	if err := m.DB.Where("email = ?", body.Email).First(&user).Error; err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid credentials"})
		return
	}

	if !user.TwoFAEnabled {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "2FA is not enabled for this account"})
		return
	}

	secret, err := utils.Decrypt(user.TwoFASecret, m.EncryptionKey)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to process security key"})
		return
	}

	if !totp.Validate(body.Code, secret) {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid verification code"})
		return
	}

	token, err := m.TokenManager.IssueAndSetCookie(c, user.ID)
	if err != nil {
		m.Logger.Error("session issue failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Server error"})
		return
	}

	now := time.Now()
	m.DB.Model(&user).Update("last_login", now)
	user.LastLogin = now

	metrics.Observe("login", "ok")
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Logged in successfully",
		"user":    user,
		"token":   token,
	})
}
