package middleware

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"chat-friendly/internals/config"
	"chat-friendly/internals/models"
	"chat-friendly/internals/utils"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupGuard(t *testing.T) (*gin.Engine, *gorm.DB, *utils.TokenManager) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.RevokedToken{}))

	tm := utils.NewTokenManager(&config.CookieConfig{HttpOnly: true}, "test-secret", 3600)
	guard := NewRequireAuthMiddleware(db, tm)

	r := gin.New()
	r.GET("/id-only", guard.VerifyToken, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"userID": c.GetUint(CtxUserID)})
	})
	r.GET("/full", guard.VerifyToken, guard.ResolveUser, func(c *gin.Context) {
		user := c.MustGet(CtxUser).(models.User)
		c.JSON(http.StatusOK, gin.H{"email": user.Email})
	})
	return r, db, tm
}

func get(r *gin.Engine, path string, cookie string, bearer string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if cookie != "" {
		req.AddCookie(&http.Cookie{Name: utils.SessionCookieName, Value: cookie})
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestVerifyTokenMissingCredential(t *testing.T) {
	r, _, _ := setupGuard(t)
	assert.Equal(t, http.StatusUnauthorized, get(r, "/id-only", "", "").Code)
}

func TestVerifyTokenInvalidCredential(t *testing.T) {
	r, _, _ := setupGuard(t)
	assert.Equal(t, http.StatusUnauthorized, get(r, "/id-only", "garbage", "").Code)
}

func TestVerifyTokenCookieAndBearer(t *testing.T) {
	r, db, tm := setupGuard(t)
	user := models.User{Email: "a@x.com", Password: "x"}
	require.NoError(t, db.Create(&user).Error)
	token, err := tm.Issue(user.ID)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, get(r, "/id-only", token, "").Code)
	assert.Equal(t, http.StatusOK, get(r, "/id-only", "", token).Code)
}

func TestVerifyTokenRevokedJTI(t *testing.T) {
	r, db, tm := setupGuard(t)
	user := models.User{Email: "a@x.com", Password: "x"}
	require.NoError(t, db.Create(&user).Error)
	token, err := tm.Issue(user.ID)
	require.NoError(t, err)

	jti, expiresAt, err := tm.ExtractClaims(token)
	require.NoError(t, err)
	require.NoError(t, db.Create(&models.RevokedToken{Jti: jti, ExpiresAt: expiresAt}).Error)

	assert.Equal(t, http.StatusUnauthorized, get(r, "/id-only", token, "").Code)
}

func TestVerifyTokenExpiredCredential(t *testing.T) {
	r, db, _ := setupGuard(t)
	user := models.User{Email: "a@x.com", Password: "x"}
	require.NoError(t, db.Create(&user).Error)

	expired := utils.NewTokenManager(&config.CookieConfig{}, "test-secret", -10)
	token, err := expired.Issue(user.ID)
	require.NoError(t, err)

	assert.Equal(t, http.StatusUnauthorized, get(r, "/id-only", token, "").Code)
}

func TestResolveUserMissingRecord(t *testing.T) {
	r, _, tm := setupGuard(t)
	token, err := tm.Issue(999)
	require.NoError(t, err)

	assert.Equal(t, http.StatusNotFound, get(r, "/full", token, "").Code)
}

func TestResolveUserAttachesRecord(t *testing.T) {
	r, db, tm := setupGuard(t)
	user := models.User{Email: "a@x.com", Password: "x"}
	require.NoError(t, db.Create(&user).Error)
	token, err := tm.Issue(user.ID)
	require.NoError(t, err)

	w := get(r, "/full", token, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "a@x.com")
}
