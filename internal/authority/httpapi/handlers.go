package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/dmitrijs2005/shopauth/internal/authority/services"
)

const maxBodyBytes = 1 << 16

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registerRequest struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

type registerResponse struct {
	Message string `json:"message"`
	ID      string `json:"id"`
}

// tokenResponse carries the access token. The refresh token travels only in
// the cookie.
type tokenResponse struct {
	AccessToken string `json:"accessToken"`
	TokenType   string `json:"tokenType"`
	ExpiresIn   int64  `json:"expiresIn"`
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	pair, err := s.tokens.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}

	s.respondTokens(w, pair)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	pair, err := s.tokens.Refresh(r.Context(), refreshCookieValue(r))
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}

	s.respondTokens(w, pair)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.tokens.Logout(r.Context(), refreshCookieValue(r)); err != nil {
		s.logger.Error(r.Context(), "logout failed", "error", err)
	}
	s.clearRefreshCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := s.users.Register(r.Context(), req.Email, req.Password, req.ConfirmPassword)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}

	w.Header().Set("Location", AccountPath+"/"+user.ID)
	respondJSON(w, http.StatusCreated, registerResponse{Message: "User registered successfully.", ID: user.ID})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) respondTokens(w http.ResponseWriter, pair *services.TokenPair) {
	s.setRefreshCookie(w, pair.RefreshToken, pair.RefreshExpiresAt)
	respondJSON(w, http.StatusOK, tokenResponse{
		AccessToken: pair.AccessToken,
		TokenType:   "Bearer",
		ExpiresIn:   int64(pair.AccessExpiresAt.Sub(pair.IssuedAt) / time.Second),
	})
}
