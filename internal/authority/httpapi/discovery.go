package httpapi

import (
	"net/http"
	"strings"

	"github.com/dmitrijs2005/shopauth/internal/authority/keys"
)

// discoveryDocument is the subset of OpenID Provider metadata resource
// services need to locate verification keys.
type discoveryDocument struct {
	Issuer                           string   `json:"issuer"`
	JWKSURI                          string   `json:"jwks_uri"`
	IDTokenSigningAlgValuesSupported []string `json:"id_token_signing_alg_values_supported"`
	ResponseTypesSupported           []string `json:"response_types_supported"`
	SubjectTypesSupported            []string `json:"subject_types_supported"`
	ClaimsSupported                  []string `json:"claims_supported"`
}

func (s *Server) handleDiscovery(w http.ResponseWriter, r *http.Request) {
	base := strings.TrimSuffix(s.issuer, "/")
	w.Header().Set("Cache-Control", "public, max-age=300")
	w.Header().Set("Content-Type", "application/json")
	respondCached(w, discoveryDocument{
		Issuer:                           s.issuer,
		JWKSURI:                          base + "/.well-known/jwks.json",
		IDTokenSigningAlgValuesSupported: []string{keys.Algorithm},
		ResponseTypesSupported:           []string{"token"},
		SubjectTypesSupported:            []string{"public"},
		ClaimsSupported:                  []string{"sub", "name", "roles", "iss", "aud", "iat", "exp", "jti"},
	})
}

func (s *Server) handleJWKS(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "public, max-age=300")
	w.Header().Set("Content-Type", "application/jwk-set+json")
	respondCached(w, s.keys.JWKS())
}
