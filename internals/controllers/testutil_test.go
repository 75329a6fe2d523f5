package controllers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"chat-friendly/internals/config"
	"chat-friendly/internals/metrics"
	"chat-friendly/internals/middleware"
	"chat-friendly/internals/models"
	"chat-friendly/internals/utils"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type testEnv struct {
	router *gin.Engine
	db     *gorm.DB
	tokens *utils.TokenManager
}

// newTestEnv wires the auth surface against an in-memory database. The
// email manager points at a closed port with a short timeout, so
// best-effort sends fail quickly and silently as they would on a dead SMTP
// host.
func newTestEnv(t *testing.T, resetFlow string) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	metrics.InitMetrics()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.RevokedToken{}))

	log := zap.NewNop()

	emailManager := utils.NewEmailManager(&utils.SMTPConfig{
		Host:    "127.0.0.1",
		Port:    1,
		AppName: "Chat Friendly",
	})
	emailManager.DialTimeout = 50 * time.Millisecond

	tokenManager := utils.NewTokenManager(&config.CookieConfig{HttpOnly: true}, "test-secret", 7*24*60*60)

	authMiddleware := middleware.NewRequireAuthMiddleware(db, tokenManager)
	authCtrl := NewAuthController(db, emailManager, tokenManager, log)
	verifyCtrl := NewVerificationController(db, emailManager, tokenManager, log)
	passwordCtrl := NewPasswordController(db, emailManager, log, resetFlow, "http://localhost:5173")
	profileCtrl := NewProfileController(db, nil, log)

	r := gin.New()
	auth := r.Group("/api/auth")
	{
		auth.POST("/signup", authCtrl.Signup)
		auth.POST("/login", authCtrl.Login)
		auth.POST("/logout", authCtrl.Logout)
		auth.POST("/verify-email", verifyCtrl.VerifyEmail)
		auth.POST("/resend-verification", verifyCtrl.ResendVerification)
		auth.POST("/forgot-password", passwordCtrl.ForgotPassword)
		auth.POST("/verify-otp", passwordCtrl.VerifyOTP)
		auth.POST("/reset-password", passwordCtrl.ResetPassword)
		auth.POST("/reset-password/:token", passwordCtrl.ResetPasswordWithToken)
		auth.GET("/check-auth", authMiddleware.VerifyToken, profileCtrl.CheckAuth)

		protected := auth.Group("/")
		protected.Use(authMiddleware.VerifyToken, authMiddleware.ResolveUser)
		{
			protected.GET("/profile", profileCtrl.Profile)
			protected.PUT("/update-profile", profileCtrl.UpdateProfile)
		}
	}

	return &testEnv{router: r, db: db, tokens: tokenManager}
}

// do sends a JSON request, optionally with a session cookie, and returns the
// recorder plus the decoded body.
func (e *testEnv) do(t *testing.T, method string, path string, body interface{}, sessionToken string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if sessionToken != "" {
		req.AddCookie(&http.Cookie{Name: utils.SessionCookieName, Value: sessionToken})
	}

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)

	decoded := map[string]interface{}{}
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &decoded))
	}
	return w, decoded
}

// signup creates a user and returns its session token from the response.
func (e *testEnv) signup(t *testing.T, email, password, name string) string {
	t.Helper()
	w, body := e.do(t, http.MethodPost, "/api/auth/signup", gin.H{
		"email": email, "password": password, "name": name,
	}, "")
	require.Equal(t, http.StatusCreated, w.Code)
	token, _ := body["token"].(string)
	require.NotEmpty(t, token)
	return token
}

func (e *testEnv) userByEmail(t *testing.T, email string) models.User {
	t.Helper()
	var user models.User
	require.NoError(t, e.db.Where("email = ?", email).First(&user).Error)
	return user
}

// newBearerRequest builds a request carrying the credential in the
// Authorization header instead of the cookie.
func newBearerRequest(t *testing.T, method string, path string, token string) (*http.Request, *httptest.ResponseRecorder) {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	req.Header.Set("Authorization", "Bearer "+token)
	return req, httptest.NewRecorder()
}

func sessionCookie(w *httptest.ResponseRecorder) *http.Cookie {
	res := http.Response{Header: w.Header()}
	for _, ck := range res.Cookies() {
		if ck.Name == utils.SessionCookieName {
			return ck
		}
	}
	return nil
}
