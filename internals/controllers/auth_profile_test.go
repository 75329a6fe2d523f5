package controllers

import (
	"net/http"
	"testing"

	"chat-friendly/internals/models"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckAuth(t *testing.T) {
	env := newTestEnv(t, ResetFlowOTP)
	token := env.signup(t, "a@x.com", "secret1", "A")

	w, body := env.do(t, http.MethodGet, "/api/auth/check-auth", nil, token)
	require.Equal(t, http.StatusOK, w.Code)
	userPayload := body["user"].(map[string]interface{})
	assert.Equal(t, "a@x.com", userPayload["email"])
	assert.NotContains(t, userPayload, "password")

	w, _ = env.do(t, http.MethodGet, "/api/auth/check-auth", nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCheckAuthDeletedUser(t *testing.T) {
	env := newTestEnv(t, ResetFlowOTP)
	token := env.signup(t, "a@x.com", "secret1", "A")

	env.db.Unscoped().Where("email = ?", "a@x.com").Delete(&models.User{})

	// The credential still verifies, but the identity no longer resolves.
	w, _ := env.do(t, http.MethodGet, "/api/auth/check-auth", nil, token)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCheckAuthBearerHeader(t *testing.T) {
	env := newTestEnv(t, ResetFlowOTP)
	token := env.signup(t, "a@x.com", "secret1", "A")

	req, w := newBearerRequest(t, http.MethodGet, "/api/auth/check-auth", token)
	env.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestUpdateProfileRequiresSession(t *testing.T) {
	env := newTestEnv(t, ResetFlowOTP)
	env.signup(t, "a@x.com", "secret1", "A")

	w, _ := env.do(t, http.MethodPut, "/api/auth/update-profile", gin.H{"status": "busy"}, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestUpdateProfilePartialUpdate(t *testing.T) {
	env := newTestEnv(t, ResetFlowOTP)
	token := env.signup(t, "a@x.com", "secret1", "A")
	before := env.userByEmail(t, "a@x.com")

	w, body := env.do(t, http.MethodPut, "/api/auth/update-profile", gin.H{"status": "busy"}, token)
	require.Equal(t, http.StatusOK, w.Code)
	userPayload := body["user"].(map[string]interface{})
	assert.Equal(t, "busy", userPayload["status"])

	after := env.userByEmail(t, "a@x.com")
	assert.Equal(t, "busy", after.Status)
	assert.Equal(t, before.Name, after.Name, "name untouched by partial update")
	assert.Equal(t, before.ProfilePic, after.ProfilePic, "avatar untouched by partial update")
}

func TestUpdateProfileAvatarURL(t *testing.T) {
	env := newTestEnv(t, ResetFlowOTP)
	token := env.signup(t, "a@x.com", "secret1", "A")

	w, _ := env.do(t, http.MethodPut, "/api/auth/update-profile", gin.H{
		"profilePic": "https://cdn.example.com/me.png",
	}, token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "https://cdn.example.com/me.png", env.userByEmail(t, "a@x.com").ProfilePic)
}

func TestUpdateProfileDataURLWithoutStore(t *testing.T) {
	env := newTestEnv(t, ResetFlowOTP)
	token := env.signup(t, "a@x.com", "secret1", "A")

	// Raw image bytes need the object store; without one configured the
	// request is rejected rather than silently stored.
	w, _ := env.do(t, http.MethodPut, "/api/auth/update-profile", gin.H{
		"profilePic": "data:image/png;base64,aGVsbG8=",
	}, token)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdateProfileEmptyBody(t *testing.T) {
	env := newTestEnv(t, ResetFlowOTP)
	token := env.signup(t, "a@x.com", "secret1", "A")

	w, _ := env.do(t, http.MethodPut, "/api/auth/update-profile", gin.H{}, token)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestProfileEndpoint(t *testing.T) {
	env := newTestEnv(t, ResetFlowOTP)
	token := env.signup(t, "a@x.com", "secret1", "A")

	w, body := env.do(t, http.MethodGet, "/api/auth/profile", nil, token)
	require.Equal(t, http.StatusOK, w.Code)
	userPayload := body["user"].(map[string]interface{})
	assert.Equal(t, "A", userPayload["name"])
}
