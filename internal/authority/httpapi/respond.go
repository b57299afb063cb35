package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dmitrijs2005/shopauth/internal/common"
)

type messageResponse struct {
	Message string `json:"message"`
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// respondCached writes data with headers the caller already set.
func respondCached(w http.ResponseWriter, data any) {
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, messageResponse{Message: message})
}

// respondServiceError maps the error taxonomy onto HTTP. Every
// authentication failure gets the same body so callers cannot tell an
// unknown account or token from a wrong password or a used token.
func (s *Server) respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case common.IsAuthenticationFailure(err):
		respondError(w, http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, common.ErrorValidation):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, common.ErrorAlreadyExists):
		respondError(w, http.StatusConflict, "account already exists")
	default:
		s.logger.Error(r.Context(), "request failed", "path", r.URL.Path, "error", err)
		respondError(w, http.StatusInternalServerError, "internal error")
	}
}
