package auth

import (
	"net/http"
	"time"
)

// JWTCookieName is the cookie carrying the bearer credential for browser
// clients. The Authorization header takes precedence when both are present.
const JWTCookieName = "jwt"

// CookieConfig holds bearer-cookie settings.
type CookieConfig struct {
	ExpiresDays int
	Secure      bool // HTTPS only, enabled in production
}

// SetJWTCookie attaches the bearer credential as an http-only cookie.
func SetJWTCookie(w http.ResponseWriter, token string, config CookieConfig) {
	maxAge := config.ExpiresDays * 24 * 60 * 60
	http.SetCookie(w, &http.Cookie{
		Name:     JWTCookieName,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(time.Duration(maxAge) * time.Second),
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   config.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearJWTCookie removes the bearer cookie.
func ClearJWTCookie(w http.ResponseWriter, config CookieConfig) {
	http.SetCookie(w, &http.Cookie{
		Name:     JWTCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   config.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}
