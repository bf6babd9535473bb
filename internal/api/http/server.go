// Package apihttp is the local control surface: a small HTTP + WebSocket API
// that drives login, browsing and playback. It is the process's only UI.
package apihttp

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"streamadesk/internal/app"
	"streamadesk/internal/domain"
	"streamadesk/internal/fetch"
	"streamadesk/internal/stream"
)

// Catalog is the remote media server client surface the handlers need.
type Catalog interface {
	Login(ctx context.Context, username, password string) error
	Logout()
	SessionCookies() []stream.Cookie
	LoggedIn() bool
	ListMovies(ctx context.Context, max, offset int) (domain.MediaPage, error)
	ListShows(ctx context.Context, max, offset int) (domain.MediaPage, error)
	ListGenericVideos(ctx context.Context, max, offset int) (domain.MediaPage, error)
	ContinueWatching(ctx context.Context, max int) ([]domain.MediaItem, error)
	Search(ctx context.Context, query string) (domain.SearchResult, error)
	VideoDetails(ctx context.Context, id int64) (domain.MediaItem, error)
	ShowDetails(ctx context.Context, id int64) (domain.MediaItem, error)
	Episodes(ctx context.Context, showID int64) ([]domain.Episode, error)
	StreamURL(file domain.FileRef) (string, error)
	DownloadSubtitle(ctx context.Context, sub domain.SubtitleRef) ([]byte, error)
	HasTMDBKey(ctx context.Context) (bool, error)
	ImageURL(path string) string
	DownloadImage(ctx context.Context, path string) ([]byte, error)
}

// StreamController is the playback session side of the controller.
type StreamController interface {
	Start(req stream.StartRequest) error
	Cleanup()
	Snapshot() stream.Snapshot
}

type WatchHistoryStore interface {
	Upsert(ctx context.Context, pos domain.WatchPosition) error
	Recent(ctx context.Context, limit int) ([]domain.WatchPosition, error)
	Delete(ctx context.Context, mediaID, episodeID int64) error
}

type PlayerSettingsController interface {
	Get() app.PlayerSettings
	Update(settings app.PlayerSettings) error
}

type Server struct {
	catalog        Catalog
	controller     StreamController
	history        WatchHistoryStore
	settings       PlayerSettingsController
	pool           *fetch.Pool
	allowedOrigins []string
	logger         *slog.Logger
	handler        http.Handler
	wsHub          *wsHub
	status         *statusCache
}

type ServerOption func(*Server)

func WithController(ctrl StreamController) ServerOption {
	return func(s *Server) { s.controller = ctrl }
}

func WithWatchHistory(store WatchHistoryStore) ServerOption {
	return func(s *Server) { s.history = store }
}

func WithPlayerSettings(ctrl PlayerSettingsController) ServerOption {
	return func(s *Server) { s.settings = ctrl }
}

func WithFetchPool(pool *fetch.Pool) ServerOption {
	return func(s *Server) { s.pool = pool }
}

// WithAllowedOrigins configures the CORS allowed origins whitelist.
// When empty (default), any origin is permitted (development mode).
func WithAllowedOrigins(origins []string) ServerOption {
	return func(s *Server) { s.allowedOrigins = origins }
}

func WithLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) { s.logger = logger }
}

func NewServer(catalog Catalog, opts ...ServerOption) *Server {
	s := &Server{
		catalog: catalog,
		status:  newStatusCache(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = slog.Default()
	}

	s.wsHub = newWSHub(s.logger)
	go s.wsHub.run()

	mux := http.NewServeMux()
	mux.HandleFunc("/session/login", s.handleLogin)
	mux.HandleFunc("/session/logout", s.handleLogout)
	mux.HandleFunc("/library/movies", s.handleLibrary(domain.MediaMovie))
	mux.HandleFunc("/library/shows", s.handleLibrary(domain.MediaTVShow))
	mux.HandleFunc("/library/generic", s.handleLibrary(domain.MediaGeneric))
	mux.HandleFunc("/library/continue-watching", s.handleContinueWatching)
	mux.HandleFunc("/search", s.handleSearch)
	mux.HandleFunc("/media/", s.handleMediaByID)
	mux.HandleFunc("/shows/", s.handleShowByID)
	mux.HandleFunc("/playback/play", s.handlePlay)
	mux.HandleFunc("/playback/stop", s.handleStop)
	mux.HandleFunc("/playback/status", s.handlePlaybackStatus)
	mux.HandleFunc("/watch-history", s.handleWatchHistory)
	mux.HandleFunc("/watch-history/", s.handleWatchHistoryByID)
	mux.HandleFunc("/settings/player", s.handlePlayerSettings)
	mux.HandleFunc("/internal/health", s.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/ws", s.handleWS)

	traced := otelhttp.NewHandler(loggingMiddleware(s.logger, mux), "streamadesk",
		otelhttp.WithFilter(func(r *http.Request) bool {
			p := r.URL.Path
			return p != "/metrics" && p != "/internal/health" && p != "/playback/status"
		}),
	)
	s.handler = recoveryMiddleware(s.logger, rateLimitMiddleware(100, 200, metricsMiddleware(corsMiddleware(s.allowedOrigins, traced))))
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// Events returns the stream event surface backed by the WebSocket hub and
// the status cache. Wire it into the controller at startup.
func (s *Server) Events() stream.Events {
	return &hubEvents{hub: s.wsHub, status: s.status}
}

// SetController wires the stream controller after server creation. The
// controller itself is built from Events(), so it cannot exist yet when
// NewServer runs.
func (s *Server) SetController(ctrl StreamController) {
	s.controller = ctrl
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	if s.wsHub == nil {
		http.Error(w, "websocket not available", http.StatusServiceUnavailable)
		return
	}
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("ws upgrade failed", slog.String("error", err.Error()))
		return
	}
	client := &wsClient{
		hub:  s.wsHub,
		conn: conn,
		send: make(chan []byte, 256),
	}
	s.wsHub.register <- client
	go client.writePump()
	go client.readPump()
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"loggedIn": s.catalog != nil && s.catalog.LoggedIn(),
	})
}

// Close disconnects WebSocket clients. The controller and fetch pool are
// owned by main and shut down there.
func (s *Server) Close() {
	if s.wsHub != nil {
		s.wsHub.Close()
	}
}

func trimPathPrefix(path, prefix string) string {
	return strings.Trim(strings.TrimPrefix(path, prefix), "/")
}
