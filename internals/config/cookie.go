package config

// CookieConfig defines the shared security baseline for the session cookie.
type CookieConfig struct {
	// Domain for the cookie
	Domain string
	// IsSecure marks the cookie Secure (HTTPS only); enabled in production
	IsSecure bool
	// HttpOnly keeps the cookie out of reach of client-side scripts
	HttpOnly bool
}
