package controllers

import (
	"encoding/json"
	"errors"
	"net/http"

	"chat-friendly/internals/config"
	"chat-friendly/internals/models"
	"chat-friendly/internals/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"gorm.io/gorm"
)

const oauthStateCookie = "oauth_state"

// GoogleAuthController handles Google-specific OAuth logic. A Google login
// lands on a verified account since Google attested the email.
type GoogleAuthController struct {
	DB           *gorm.DB
	Config       *oauth2.Config
	TokenManager *utils.TokenManager
	Logger       *zap.Logger
	ClientURL    string
}

func NewGoogleAuthController(db *gorm.DB, tokenManager *utils.TokenManager, logger *zap.Logger, clientURL string) *GoogleAuthController {
	return &GoogleAuthController{
		DB: db,
		Config: &oauth2.Config{
			ClientID:     config.GetEnv("GOOGLE_CLIENT_ID"),
			ClientSecret: config.GetEnv("GOOGLE_CLIENT_SECRET"),
			RedirectURL:  config.GetEnv("GOOGLE_REDIRECT_URL"),
			Endpoint:     google.Endpoint,
			Scopes:       []string{"https://www.googleapis.com/auth/userinfo.email", "https://www.googleapis.com/auth/userinfo.profile"},
		},
		TokenManager: tokenManager,
		Logger:       logger,
		ClientURL:    clientURL,
	}
}

// Login redirects the user to Google's consent page with a per-request
// state bound to a short-lived cookie.
func (g *GoogleAuthController) Login(c *gin.Context) {
	state := uuid.New().String()
	c.SetCookie(oauthStateCookie, state, 300, "/", g.TokenManager.CookieConfig.Domain, g.TokenManager.CookieConfig.IsSecure, true)
	c.Redirect(http.StatusTemporaryRedirect, g.Config.AuthCodeURL(state))
}

// Callback handles the redirect back from Google.
func (g *GoogleAuthController) Callback(c *gin.Context) {
	stateCookie, err := c.Cookie(oauthStateCookie)
	if err != nil || stateCookie == "" || c.Query("state") != stateCookie {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Invalid OAuth state"})
		return
	}

	token, err := g.Config.Exchange(c.Request.Context(), c.Query("code"))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Failed to exchange token"})
		return
	}

	resp, err := g.Config.Client(c.Request.Context(), token).Get("https://www.googleapis.com/oauth2/v2/userinfo")
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to fetch user info"})
		return
	}
	defer resp.Body.Close()

	var googleUser struct {
		ID      string `json:"id"`
		Email   string `json:"email"`
		Name    string `json:"name"`
		Picture string `json:"picture"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&googleUser); err != nil || googleUser.Email == "" {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to read user info"})
		return
	}

	var user models.User
	err = g.DB.Where("email = ?", googleUser.Email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		user = models.User{
			Email:      googleUser.Email,
			Name:       googleUser.Name,
			Status:     models.DefaultStatus,
			ProfilePic: googleUser.Picture,
			GoogleID:   googleUser.ID,
			IsVerified: true,
		}
		if user.ProfilePic == "" {
			user.ProfilePic = models.DefaultAvatarURL
		}
		if err := g.DB.Create(&user).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Server error"})
			return
		}
	} else if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Server error"})
		return
	} else if user.GoogleID == "" {
		// Existing password account logging in via Google for the first
		// time: link it and mark verified.
		g.DB.Model(&user).Updates(map[string]interface{}{
			"google_id":   googleUser.ID,
			"is_verified": true,
		})
	}

	if _, err := g.TokenManager.IssueAndSetCookie(c, user.ID); err != nil {
		g.Logger.Error("session issue failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Server error"})
		return
	}

	c.Redirect(http.StatusTemporaryRedirect, g.ClientURL)
}
