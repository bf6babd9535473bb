package apihttp

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"streamadesk/internal/domain"
)

const defaultHistoryLimit = 50

type watchPositionRequest struct {
	MediaID   int64   `json:"mediaId"`
	EpisodeID int64   `json:"episodeId"`
	Title     string  `json:"title"`
	Position  float64 `json:"position"`
	Duration  float64 `json:"duration"`
}

func (s *Server) handleWatchHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, http.StatusServiceUnavailable, "history_unavailable", "watch history store is not configured")
		return
	}
	switch r.Method {
	case http.MethodGet:
		s.listWatchHistory(w, r)
	case http.MethodPost:
		s.upsertWatchHistory(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "use GET or POST")
	}
}

func (s *Server) listWatchHistory(w http.ResponseWriter, r *http.Request) {
	limit, err := parseOptionalIntQuery(r.URL.Query().Get("limit"), defaultHistoryLimit)
	if err != nil || limit < 1 {
		writeError(w, http.StatusBadRequest, "invalid_limit", "limit must be a positive integer")
		return
	}

	positions, err := s.history.Recent(r.Context(), limit)
	if err != nil {
		s.logger.Error("list watch history", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "history_error", "failed to load watch history")
		return
	}
	if positions == nil {
		positions = []domain.WatchPosition{}
	}
	writeJSON(w, http.StatusOK, positions)
}

func (s *Server) upsertWatchHistory(w http.ResponseWriter, r *http.Request) {
	var req watchPositionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "request body must be valid JSON")
		return
	}
	if req.MediaID <= 0 {
		writeError(w, http.StatusBadRequest, "invalid_request", "mediaId is required")
		return
	}

	pos := domain.WatchPosition{
		MediaID:   req.MediaID,
		EpisodeID: req.EpisodeID,
		Title:     req.Title,
		Position:  req.Position,
		Duration:  req.Duration,
	}
	if err := s.history.Upsert(r.Context(), pos); err != nil {
		s.logger.Error("upsert watch history", slog.Int64("media_id", req.MediaID), slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "history_error", "failed to save watch position")
		return
	}
	writeJSON(w, http.StatusOK, pos)
}

func (s *Server) handleWatchHistoryByID(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, http.StatusServiceUnavailable, "history_unavailable", "watch history store is not configured")
		return
	}
	if r.Method != http.MethodDelete {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "use DELETE")
		return
	}

	rest := trimPathPrefix(r.URL.Path, "/watch-history/")
	if strings.Contains(rest, "/") {
		writeError(w, http.StatusNotFound, "not_found", "unknown watch history path")
		return
	}
	mediaID, err := parseID(rest)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_id", "media id must be a positive integer")
		return
	}
	episodeID, err := parseOptionalInt64Query(r.URL.Query().Get("episodeId"), 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_id", "episodeId must be an integer")
		return
	}

	if err := s.history.Delete(r.Context(), mediaID, episodeID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "no watch position for that media")
			return
		}
		s.logger.Error("delete watch history", slog.Int64("media_id", mediaID), slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "history_error", "failed to delete watch position")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
