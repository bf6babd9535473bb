package apihttp

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"streamadesk/internal/app"
)

func (s *Server) handlePlayerSettings(w http.ResponseWriter, r *http.Request) {
	if s.settings == nil {
		writeError(w, http.StatusServiceUnavailable, "settings_unavailable", "player settings are not configured")
		return
	}
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, s.settings.Get())
	case http.MethodPut:
		var req app.PlayerSettings
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", "request body must be valid JSON")
			return
		}
		if err := s.settings.Update(req); err != nil {
			s.logger.Warn("update player settings", slog.Any("error", err))
			writeError(w, http.StatusBadRequest, "invalid_settings", err.Error())
			return
		}
		writeJSON(w, http.StatusOK, s.settings.Get())
	default:
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "use GET or PUT")
	}
}
