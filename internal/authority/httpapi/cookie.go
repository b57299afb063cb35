package httpapi

import (
	"net/http"
	"time"

	"github.com/dmitrijs2005/shopauth/internal/common"
)

// setRefreshCookie delivers the refresh token out of reach of scripts and
// cross-site requests, expiring together with the token itself.
func (s *Server) setRefreshCookie(w http.ResponseWriter, value string, expires time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     common.RefreshTokenCookieName,
		Value:    value,
		Path:     AccountPath,
		Expires:  expires,
		HttpOnly: true,
		Secure:   s.cookieSecure,
		SameSite: http.SameSiteStrictMode,
	})
}

func (s *Server) clearRefreshCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     common.RefreshTokenCookieName,
		Value:    "",
		Path:     AccountPath,
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.cookieSecure,
		SameSite: http.SameSiteStrictMode,
	})
}

func refreshCookieValue(r *http.Request) string {
	c, err := r.Cookie(common.RefreshTokenCookieName)
	if err != nil {
		return ""
	}
	return c.Value
}
