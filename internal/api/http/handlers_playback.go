package apihttp

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"streamadesk/internal/app"
	"streamadesk/internal/domain"
	"streamadesk/internal/metrics"
	"streamadesk/internal/player"
	"streamadesk/internal/stream"
)

type playRequest struct {
	MediaID    int64  `json:"mediaId"`
	EpisodeID  int64  `json:"episodeId"`
	Title      string `json:"title"`
	FileID     int64  `json:"fileId"`
	Extension  string `json:"extension"`
	SubtitleID int64  `json:"subtitleId"`
}

// handlePlay resolves the stream URL, fetches subtitles if requested and
// hands everything to the controller. Starting replaces any session already
// in flight.
func (s *Server) handlePlay(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "use POST")
		return
	}
	if s.controller == nil {
		writeError(w, http.StatusServiceUnavailable, "playback_unavailable", "playback controller not configured")
		return
	}

	var req playRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.FileID <= 0 {
		writeError(w, http.StatusBadRequest, "invalid_request", "fileId is required")
		return
	}

	url, err := s.catalog.StreamURL(domain.FileRef{ID: req.FileID, Extension: req.Extension})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	var cues []domain.SubtitleCue
	if req.SubtitleID > 0 {
		raw, err := s.catalog.DownloadSubtitle(r.Context(), domain.SubtitleRef{ID: req.SubtitleID})
		if err != nil {
			// Subtitles are best effort, playback proceeds without them.
			s.logger.Warn("subtitle download failed",
				slog.Int64("subtitleId", req.SubtitleID),
				slog.String("error", err.Error()),
			)
		} else if cues, err = player.ParseSRT(bytes.NewReader(raw)); err != nil {
			s.logger.Warn("subtitle parse failed", slog.String("error", err.Error()))
			cues = nil
		}
	}

	// Mode and buffer size are read once here; a settings change mid-stream
	// affects the next session, not this one.
	settings := s.playerSettings()

	startReq := stream.StartRequest{
		URL:               url,
		Cookies:           s.catalog.SessionCookies(),
		Mode:              settings.PlaybackMode,
		BufferTargetBytes: int64(settings.BufferSizeMB) << 20,
		Title:             req.Title,
		Subtitles:         cues,
	}
	if err := s.controller.Start(startReq); err != nil {
		metrics.APIRequestsTotal.WithLabelValues("play", "error").Inc()
		writeDomainError(w, err)
		return
	}
	metrics.APIRequestsTotal.WithLabelValues("play", "ok").Inc()

	s.recordPlayStarted(req)

	writeJSON(w, http.StatusAccepted, map[string]any{
		"status": "starting",
		"title":  req.Title,
		"mode":   settings.PlaybackMode.String(),
	})
}

// recordPlayStarted notes the item in the watch history off the request
// path. Best effort: a full queue or missing store just skips the entry.
func (s *Server) recordPlayStarted(req playRequest) {
	if s.history == nil || s.pool == nil || req.MediaID <= 0 {
		return
	}
	pos := domain.WatchPosition{
		MediaID:   req.MediaID,
		EpisodeID: req.EpisodeID,
		Title:     req.Title,
		UpdatedAt: time.Now().UTC(),
	}
	err := s.pool.Submit(func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := s.history.Upsert(ctx, pos); err != nil {
			s.logger.Debug("watch history upsert failed", slog.String("error", err.Error()))
		}
	})
	if err != nil {
		s.logger.Debug("watch history task rejected", slog.String("error", err.Error()))
	}
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "use POST")
		return
	}
	if s.controller != nil {
		s.controller.Cleanup()
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "stopped"})
}

type playbackStatusResponse struct {
	Active          bool   `json:"active"`
	State           string `json:"state"`
	Title           string `json:"title,omitempty"`
	Mode            string `json:"mode,omitempty"`
	PlaybackStarted bool   `json:"playbackStarted"`
	Message         string `json:"message,omitempty"`
	ReceivedBytes   int64  `json:"receivedBytes"`
	TotalBytes      int64  `json:"totalBytes"`
	LastError       string `json:"lastError,omitempty"`
}

func (s *Server) handlePlaybackStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "use GET")
		return
	}

	var snap stream.Snapshot
	if s.controller != nil {
		snap = s.controller.Snapshot()
	} else {
		snap.State = stream.StateIdle.String()
	}
	cached := s.status.view()

	writeJSON(w, http.StatusOK, playbackStatusResponse{
		Active:          snap.Active,
		State:           snap.State,
		Title:           snap.Title,
		Mode:            snap.Mode,
		PlaybackStarted: snap.PlaybackStarted,
		Message:         cached.Message,
		ReceivedBytes:   snap.ReceivedBytes,
		TotalBytes:      snap.TotalBytes,
		LastError:       cached.LastError,
	})
}

func (s *Server) playerSettings() app.PlayerSettings {
	if s.settings != nil {
		return s.settings.Get()
	}
	return app.PlayerSettings{PlaybackMode: domain.ModePreBuffer, BufferSizeMB: 5}
}
