package utils

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"chat-friendly/internals/config"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// SessionCookieName is the cookie carrying the session credential.
const SessionCookieName = "token"

// ErrInvalidCredential is returned for any signature, expiry, or claim
// failure. Callers must not reveal which check failed.
var ErrInvalidCredential = errors.New("invalid session credential")

// SessionClaims is the JWT payload of a session credential: the user id in
// the subject, a unique JTI for revocation, and issue/expiry times.
type SessionClaims struct {
	jwt.RegisteredClaims
}

// TokenManager mints and verifies session credentials and manages the
// session cookie.
type TokenManager struct {
	// CookieConfig holds the shared security baseline for the session cookie
	CookieConfig *config.CookieConfig
	// JWTSecret is the secret key used for signing session credentials
	JWTSecret string
	// MaxAge is the credential validity window in seconds
	MaxAge int
}

// NewTokenManager initializes and returns a new TokenManager instance.
func NewTokenManager(cookieConfig *config.CookieConfig, jwtSecret string, maxAge int) *TokenManager {
	return &TokenManager{
		CookieConfig: cookieConfig,
		JWTSecret:    jwtSecret,
		MaxAge:       maxAge,
	}
}

// Issue creates a signed session credential for the given user.
func (tm *TokenManager) Issue(userID uint) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(userID), 10),
			ID:        uuid.New().String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(tm.MaxAge) * time.Second)),
		},
	})
	return token.SignedString([]byte(tm.JWTSecret))
}

// IssueAndSetCookie mints a credential and delivers it as an HttpOnly,
// SameSite=Strict cookie. The raw token is also returned for clients that
// prefer the Authorization header.
func (tm *TokenManager) IssueAndSetCookie(c *gin.Context, userID uint) (string, error) {
	tokenStr, err := tm.Issue(userID)
	if err != nil {
		return "", err
	}
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(SessionCookieName, tokenStr, tm.MaxAge, "/", tm.CookieConfig.Domain, tm.CookieConfig.IsSecure, tm.CookieConfig.HttpOnly)
	return tokenStr, nil
}

// Verify parses and validates a credential and returns its user id, JTI,
// and expiry. Any failure collapses to ErrInvalidCredential.
func (tm *TokenManager) Verify(tokenStr string) (uint, string, time.Time, error) {
	claims := &SessionClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidCredential
		}
		return []byte(tm.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		return 0, "", time.Time{}, ErrInvalidCredential
	}
	uid, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil || claims.ExpiresAt == nil {
		return 0, "", time.Time{}, ErrInvalidCredential
	}
	return uint(uid), claims.ID, claims.ExpiresAt.Time, nil
}

// ExtractClaims parses a credential without rejecting an expired one, so a
// logout can still denylist it. The signature is still checked.
func (tm *TokenManager) ExtractClaims(tokenStr string) (string, time.Time, error) {
	claims := &SessionClaims{}
	_, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(tm.JWTSecret), nil
	}, jwt.WithoutClaimsValidation())
	if err != nil || claims.ID == "" || claims.ExpiresAt == nil {
		return "", time.Time{}, ErrInvalidCredential
	}
	return claims.ID, claims.ExpiresAt.Time, nil
}

// ClearSessionCookie instructs the client to discard the session cookie.
func (tm *TokenManager) ClearSessionCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(SessionCookieName, "", -1, "/", tm.CookieConfig.Domain, tm.CookieConfig.IsSecure, tm.CookieConfig.HttpOnly)
}
