package auth

import (
	"net/http"
	"time"
)

// SessionCookieName is the cookie carrying the opaque session token
const SessionCookieName = "sid"

// CookieConfig holds cookie configuration settings
type CookieConfig struct {
	Domain   string        // Empty string = current host only
	Secure   bool          // HTTPS only
	SameSite string        // "strict", "lax", or "none"
	MaxAge   time.Duration // Lifetime of the session cookie
}

// SetSessionCookie stores the raw session token in an httpOnly cookie
func SetSessionCookie(w http.ResponseWriter, token string, config CookieConfig) {
	maxAge := int(config.MaxAge.Seconds())
	cookie := &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		Domain:   config.Domain,
		Expires:  time.Now().Add(config.MaxAge),
		MaxAge:   maxAge,
		HttpOnly: true, // Critical: prevents JavaScript access (XSS protection)
		Secure:   config.Secure,
		SameSite: parseSameSite(config.SameSite),
	}
	http.SetCookie(w, cookie)
}

// ClearSessionCookie deletes the session cookie
func ClearSessionCookie(w http.ResponseWriter, config CookieConfig) {
	cookie := &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		Domain:   config.Domain,
		MaxAge:   -1, // Negative MaxAge deletes the cookie
		HttpOnly: true,
		Secure:   config.Secure,
		SameSite: parseSameSite(config.SameSite),
	}
	http.SetCookie(w, cookie)
}

// GetSessionCookie retrieves the session token from cookies
func GetSessionCookie(r *http.Request) (string, error) {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil {
		return "", err
	}
	return cookie.Value, nil
}

// parseSameSite converts string to http.SameSite constant. Lax is the default.
func parseSameSite(sameSite string) http.SameSite {
	switch sameSite {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}
