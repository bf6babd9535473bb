package app

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"streamadesk/internal/domain"
)

type fakeSettingsStore struct {
	saved    *PlayerSettings
	getErr   error
	setErr   error
	setCalls int
}

func (f *fakeSettingsStore) GetPlayerSettings(_ context.Context) (PlayerSettings, bool, error) {
	if f.getErr != nil {
		return PlayerSettings{}, false, f.getErr
	}
	if f.saved == nil {
		return PlayerSettings{}, false, nil
	}
	return *f.saved, true, nil
}

func (f *fakeSettingsStore) SetPlayerSettings(_ context.Context, s PlayerSettings) error {
	f.setCalls++
	if f.setErr != nil {
		return f.setErr
	}
	f.saved = &s
	return nil
}

func defaultTestSettings() PlayerSettings {
	return PlayerSettings{
		PlaybackMode: domain.ModePreBuffer,
		BufferSizeMB: 5,
		SubtitleSize: 20,
	}
}

func TestSettingsControllerDefaultsWithoutStore(t *testing.T) {
	c := NewSettingsController(defaultTestSettings(), nil, slog.Default())
	if err := c.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	got := c.Get()
	if got.BufferSizeMB != 5 || got.PlaybackMode != domain.ModePreBuffer {
		t.Fatalf("unexpected defaults: %+v", got)
	}
}

func TestSettingsControllerLoadOverlaysPersisted(t *testing.T) {
	store := &fakeSettingsStore{saved: &PlayerSettings{
		PlaybackMode: domain.ModeFullDownload,
		BufferSizeMB: 10,
		SubtitleSize: 24,
		SubtitleBold: true,
	}}
	c := NewSettingsController(defaultTestSettings(), store, slog.Default())
	if err := c.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	got := c.Get()
	if got.PlaybackMode != domain.ModeFullDownload {
		t.Fatalf("mode = %v, want full", got.PlaybackMode)
	}
	if got.BufferSizeMB != 10 || got.SubtitleSize != 24 || !got.SubtitleBold {
		t.Fatalf("unexpected settings: %+v", got)
	}
}

func TestSettingsControllerLoadSanitizesStaleDocument(t *testing.T) {
	store := &fakeSettingsStore{saved: &PlayerSettings{BufferSizeMB: 900, SubtitleSize: -1}}
	c := NewSettingsController(defaultTestSettings(), store, slog.Default())
	if err := c.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	got := c.Get()
	if got.BufferSizeMB != defaultBufferSizeMB {
		t.Fatalf("buffer = %d, want clamped default %d", got.BufferSizeMB, defaultBufferSizeMB)
	}
	if got.SubtitleSize != defaultSubtitleSize {
		t.Fatalf("subtitle size = %d, want default %d", got.SubtitleSize, defaultSubtitleSize)
	}
}

func TestSettingsControllerLoadPropagatesStoreError(t *testing.T) {
	store := &fakeSettingsStore{getErr: errors.New("mongo down")}
	c := NewSettingsController(defaultTestSettings(), store, slog.Default())
	if err := c.Load(context.Background()); err == nil {
		t.Fatal("expected error from failing store")
	}
}

func TestSettingsControllerUpdateValidates(t *testing.T) {
	c := NewSettingsController(defaultTestSettings(), nil, slog.Default())

	if err := c.Update(PlayerSettings{BufferSizeMB: 0, SubtitleSize: 20}); err == nil {
		t.Fatal("expected error for zero buffer size")
	}
	if err := c.Update(PlayerSettings{BufferSizeMB: 51, SubtitleSize: 20}); err == nil {
		t.Fatal("expected error for oversized buffer")
	}
	if err := c.Update(PlayerSettings{BufferSizeMB: 5, SubtitleSize: 0}); err == nil {
		t.Fatal("expected error for zero subtitle size")
	}
	if got := c.Get(); got.BufferSizeMB != 5 {
		t.Fatalf("rejected update must not apply, got %+v", got)
	}
}

func TestSettingsControllerUpdatePersists(t *testing.T) {
	store := &fakeSettingsStore{}
	c := NewSettingsController(defaultTestSettings(), store, slog.Default())

	want := PlayerSettings{
		PlaybackMode: domain.ModeFullDownload,
		BufferSizeMB: 12,
		SubtitleSize: 28,
	}
	if err := c.Update(want); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if c.Get() != want {
		t.Fatalf("Get = %+v, want %+v", c.Get(), want)
	}
	if store.saved == nil || *store.saved != want {
		t.Fatalf("store saved = %+v, want %+v", store.saved, want)
	}
}

func TestSettingsControllerUpdateSurvivesStoreFailure(t *testing.T) {
	store := &fakeSettingsStore{setErr: errors.New("write failed")}
	c := NewSettingsController(defaultTestSettings(), store, slog.Default())

	want := PlayerSettings{PlaybackMode: domain.ModePreBuffer, BufferSizeMB: 8, SubtitleSize: 20}
	if err := c.Update(want); err != nil {
		t.Fatalf("Update should succeed despite store failure, got %v", err)
	}
	if c.Get() != want {
		t.Fatalf("Get = %+v, want %+v", c.Get(), want)
	}
	if store.setCalls != 1 {
		t.Fatalf("setCalls = %d, want 1", store.setCalls)
	}
}
