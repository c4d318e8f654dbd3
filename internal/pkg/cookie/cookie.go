package cookie

import (
	"net/http"
	"time"
)

// AuthTokenName uses the __Host- prefix: browsers only accept it over
// HTTPS, with Path=/ and without a Domain attribute, which locks the
// cookie to the exact host that set it.
const AuthTokenName = "__Host-auth_token"

func NewAuthToken(token string, ttl time.Duration) *http.Cookie {
	return &http.Cookie{
		Name:     AuthTokenName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	}
}

// ExpiredAuthToken overwrites the auth cookie with an immediately
// expiring one. Logout is purely client-side: the token itself stays
// valid until its TTL runs out.
func ExpiredAuthToken() *http.Cookie {
	return &http.Cookie{
		Name:     AuthTokenName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	}
}
