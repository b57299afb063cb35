package guard

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dmitrijs2005/shopauth/internal/common"
	"github.com/dmitrijs2005/shopauth/internal/resource/validator"
)

// Require admits requests carrying a valid bearer token whose principal
// satisfies policy. An empty policy only requires authentication.
// Unauthenticated callers get 401 with a Bearer challenge, authenticated
// callers the policy rejects get 403.
func (g *Guard) Require(policy string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, err := validator.BearerToken(r.Header.Get(common.AuthorizationHeaderName))
			if err != nil {
				// no credentials: bare challenge
				w.Header().Set("WWW-Authenticate", "Bearer")
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			p, err := g.Check(r.Context(), raw, policy)
			if err != nil {
				g.deny(w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
		})
	}
}

func (g *Guard) deny(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, common.ErrPolicyDenied):
		writeError(w, http.StatusForbidden, "forbidden")
	case common.IsAuthenticationFailure(err):
		w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token"`)
		writeError(w, http.StatusUnauthorized, "unauthorized")
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"message": message})
}
