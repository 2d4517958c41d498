package api

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// tokenRequest is the request body for POST /auth/token. The API key may
// alternatively be supplied via the X-API-Key header.
type tokenRequest struct {
	APIKey string `json:"api_key"`
}

// tokenResponse is the response body for POST /auth/token.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// handleIssueToken exchanges a configured API key for a short-lived JWT,
// so clients don't have to carry the long-lived key on every request.
func (s *Server) handleIssueToken(w http.ResponseWriter, r *http.Request) {
	if s.secCfg.JWT.Secret == "" {
		writeError(w, http.StatusNotImplemented, ErrCodeInternal, "token issuing is not configured")
		return
	}

	key := r.Header.Get("X-API-Key")
	if key == "" {
		var req tokenRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeBadRequest(w, "invalid JSON body")
			return
		}
		key = req.APIKey
	}

	if key == "" || !s.isValidAPIKey(key) {
		writeUnauthorized(w, "invalid api key")
		return
	}

	ttl := s.secCfg.JWT.TokenTTL
	if ttl <= 0 {
		ttl = 60
	}

	claims := jwt.MapClaims{
		"sub": callerForKey(key),
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(time.Duration(ttl) * time.Minute).Unix(),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).
		SignedString([]byte(s.secCfg.JWT.Secret))
	if err != nil {
		writeInternalError(w, "failed to generate token")
		return
	}

	writeJSON(w, http.StatusOK, tokenResponse{
		AccessToken: signed,
		TokenType:   "Bearer",
		ExpiresIn:   ttl * 60,
	})
}

// callerForKey derives a stable caller identity from an API key without
// ever exposing the key itself in logs or token claims.
func callerForKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return "key-" + hex.EncodeToString(sum[:4])
}
