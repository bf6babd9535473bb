package apihttp

import (
	"encoding/json"
	"net/http"
	"strings"

	"streamadesk/internal/metrics"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "use POST")
		return
	}

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Username) == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "username and password are required")
		return
	}

	if err := s.catalog.Login(r.Context(), req.Username, req.Password); err != nil {
		metrics.APIRequestsTotal.WithLabelValues("login", "error").Inc()
		writeError(w, http.StatusUnauthorized, "login_failed", err.Error())
		return
	}
	metrics.APIRequestsTotal.WithLabelValues("login", "ok").Inc()
	writeJSON(w, http.StatusOK, map[string]any{"loggedIn": true})
}

// Logout tears down any active playback before dropping credentials, so a
// stream can never outlive the session it was authorized by.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "use POST")
		return
	}

	if s.controller != nil {
		s.controller.Cleanup()
	}
	s.catalog.Logout()
	writeJSON(w, http.StatusOK, map[string]any{"loggedIn": false})
}
