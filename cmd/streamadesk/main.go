package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	apihttp "streamadesk/internal/api/http"
	"streamadesk/internal/app"
	"streamadesk/internal/fetch"
	"streamadesk/internal/history"
	"streamadesk/internal/metrics"
	"streamadesk/internal/player"
	mongorepo "streamadesk/internal/repository/mongo"
	"streamadesk/internal/stream"
	"streamadesk/internal/streama"
	"streamadesk/internal/telemetry"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.opentelemetry.io/contrib/instrumentation/go.mongodb.org/mongo-driver/mongo/otelmongo"
)

// settingsBridge forwards settings changes to the player sink so subtitle
// styling follows the live settings, not just the startup config.
type settingsBridge struct {
	ctrl *app.SettingsController
	sink *player.MPVSink
}

func (b *settingsBridge) Get() app.PlayerSettings { return b.ctrl.Get() }

func (b *settingsBridge) Update(settings app.PlayerSettings) error {
	if err := b.ctrl.Update(settings); err != nil {
		return err
	}
	b.sink.SetStyle(settings.SubtitleSize, settings.SubtitleBold)
	return nil
}

func main() {
	_ = godotenv.Load()

	cfg := app.LoadConfig()
	logger := newLogger(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)
	metrics.Register(prometheus.DefaultRegisterer)

	shutdownTracer, err := telemetry.Init(context.Background(), "streamadesk")
	if err != nil {
		logger.Warn("otel init failed", slog.String("error", err.Error()))
	}
	defer func() {
		if shutdownTracer != nil {
			_ = shutdownTracer(context.Background())
		}
	}()

	logger.Info("configuration loaded",
		slog.String("service", "streamadesk"),
		slog.String("server", cfg.BaseURL()),
		slog.String("controlAddr", cfg.ControlAddr),
		slog.String("playbackMode", cfg.PlaybackMode.String()),
		slog.Int("bufferMB", cfg.BufferSizeMB),
		slog.String("playerPath", cfg.PlayerPath),
		slog.String("logLevel", cfg.LogLevel),
		slog.String("logFormat", cfg.LogFormat),
	)

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	catalog, err := streama.NewClient(streama.Options{
		BaseURL:          cfg.BaseURL(),
		InsecureSSL:      cfg.InsecureSSL,
		TMDBImageBaseURL: cfg.TMDBImageBaseURL,
		Logger:           logger,
	})
	if err != nil {
		logger.Error("media server client init failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Mongo is optional: without it, watch history lives in memory and
	// player settings reset on restart.
	var mongoClient *mongo.Client
	var historyStore history.Store
	var settingsStore app.SettingsStore
	if cfg.MongoURI != "" {
		ctx, cancel := context.WithTimeout(rootCtx, 10*time.Second)
		mongoClient, err = mongorepo.Connect(ctx, cfg.MongoURI, options.Client().SetMonitor(otelmongo.NewMonitor()))
		if err == nil {
			err = mongoClient.Ping(ctx, readpref.Primary())
		}
		cancel()
		if err != nil {
			logger.Error("mongo connect failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
		watchRepo := mongorepo.NewWatchHistoryRepository(mongoClient, cfg.MongoDatabase)
		if err := watchRepo.EnsureIndexes(rootCtx); err != nil {
			logger.Warn("mongo ensure indexes failed", slog.String("error", err.Error()))
		}
		historyStore = watchRepo
		settingsStore = mongorepo.NewPlayerSettingsRepository(mongoClient, cfg.MongoDatabase)
	} else {
		historyStore = history.NewMemoryStore()
	}

	settingsCtrl := app.NewSettingsController(cfg.PlayerSettings(), settingsStore, logger)
	if err := settingsCtrl.Load(rootCtx); err != nil {
		logger.Warn("player settings load failed", slog.String("error", err.Error()))
	}
	liveSettings := settingsCtrl.Get()

	sink := player.NewMPVSink(player.Config{
		Path:         cfg.PlayerPath,
		ExtraArgs:    cfg.PlayerArgs,
		SubtitleSize: liveSettings.SubtitleSize,
		SubtitleBold: liveSettings.SubtitleBold,
	}, logger)

	pool := fetch.NewPool(2, 64, logger)

	server := apihttp.NewServer(catalog,
		apihttp.WithWatchHistory(historyStore),
		apihttp.WithPlayerSettings(&settingsBridge{ctrl: settingsCtrl, sink: sink}),
		apihttp.WithFetchPool(pool),
		apihttp.WithLogger(logger),
	)

	controller := stream.NewController(sink, server.Events(),
		stream.WithLogger(logger),
		stream.WithDownloadRate(cfg.DownloadRateBytes),
	)
	server.SetController(controller)

	// Log in up front when credentials are configured, so the first play
	// request does not have to. Failure here is not fatal, the login
	// endpoint can retry interactively.
	if cfg.Username != "" && cfg.Password != "" {
		loginCtx, cancel := context.WithTimeout(rootCtx, 15*time.Second)
		if err := catalog.Login(loginCtx, cfg.Username, cfg.Password); err != nil {
			logger.Warn("initial login failed", slog.String("error", err.Error()))
		} else {
			logger.Info("logged in", slog.String("username", cfg.Username))
			if hasKey, err := catalog.HasTMDBKey(loginCtx); err != nil {
				logger.Debug("tmdb key check failed", slog.String("error", err.Error()))
			} else if !hasKey {
				logger.Info("server has no TMDB key, poster images limited to server-hosted art")
			}
		}
		cancel()
	}

	srv := &http.Server{
		Addr:              cfg.ControlAddr,
		Handler:           server,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      0,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	logger.Info("control server started", slog.String("addr", cfg.ControlAddr))

	select {
	case <-rootCtx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown error", slog.String("error", err.Error()))
	}
	controller.Shutdown()
	pool.Shutdown()
	server.Close()
	if mongoClient != nil {
		if err := mongoClient.Disconnect(context.Background()); err != nil {
			logger.Warn("mongo disconnect error", slog.String("error", err.Error()))
		}
	}

	logger.Info("stopped")
}

func newLogger(levelRaw, formatRaw string) *slog.Logger {
	level := parseLogLevel(levelRaw)
	options := &slog.HandlerOptions{Level: level}
	format := strings.ToLower(strings.TrimSpace(formatRaw))
	if format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, options))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, options))
}

func parseLogLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
