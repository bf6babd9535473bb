package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

const settingsSaveTimeout = 5 * time.Second

// SettingsStore persists player settings across restarts. The bool result of
// GetPlayerSettings reports whether a saved document exists.
type SettingsStore interface {
	GetPlayerSettings(ctx context.Context) (PlayerSettings, bool, error)
	SetPlayerSettings(ctx context.Context, settings PlayerSettings) error
}

// SettingsController holds the live player settings. Reads are frequent
// (every play request snapshots them), writes come from the settings
// endpoint. Persistence is best effort so a flaky store never blocks
// playback configuration.
type SettingsController struct {
	logger *slog.Logger
	store  SettingsStore

	mu      sync.RWMutex
	current PlayerSettings
}

// NewSettingsController seeds the controller with the config-derived
// defaults. store may be nil, in which case settings live in memory only.
func NewSettingsController(defaults PlayerSettings, store SettingsStore, logger *slog.Logger) *SettingsController {
	if logger == nil {
		logger = slog.Default()
	}
	return &SettingsController{
		logger:  logger,
		store:   store,
		current: sanitizeSettings(defaults),
	}
}

// Load overlays persisted settings on top of the defaults, if any exist.
func (c *SettingsController) Load(ctx context.Context) error {
	if c.store == nil {
		return nil
	}
	saved, found, err := c.store.GetPlayerSettings(ctx)
	if err != nil {
		return fmt.Errorf("load player settings: %w", err)
	}
	if !found {
		return nil
	}
	c.mu.Lock()
	c.current = sanitizeSettings(saved)
	c.mu.Unlock()
	return nil
}

func (c *SettingsController) Get() PlayerSettings {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current
}

// Update validates and applies new settings, then persists them. A store
// failure is logged but does not reject the update.
func (c *SettingsController) Update(settings PlayerSettings) error {
	if settings.BufferSizeMB < minBufferSizeMB || settings.BufferSizeMB > maxBufferSizeMB {
		return fmt.Errorf("buffer size must be between %d and %d MB", minBufferSizeMB, maxBufferSizeMB)
	}
	if settings.SubtitleSize < 1 {
		return fmt.Errorf("subtitle size must be positive")
	}

	c.mu.Lock()
	c.current = settings
	c.mu.Unlock()

	if c.store != nil {
		ctx, cancel := context.WithTimeout(context.Background(), settingsSaveTimeout)
		defer cancel()
		if err := c.store.SetPlayerSettings(ctx, settings); err != nil {
			c.logger.Warn("persist player settings", slog.Any("error", err))
		}
	}
	return nil
}

// sanitizeSettings repairs out-of-range values coming from the env or a
// stale document instead of rejecting them.
func sanitizeSettings(s PlayerSettings) PlayerSettings {
	s.BufferSizeMB = clampBufferSize(s.BufferSizeMB)
	if s.SubtitleSize < 1 {
		s.SubtitleSize = defaultSubtitleSize
	}
	return s
}
