package mongo

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/mongo/options"

	"streamadesk/internal/app"
	"streamadesk/internal/domain"
)

// testMongoURI returns the MongoDB connection URI for integration tests.
// Defaults to localhost:27017. Set MONGO_TEST_URI to override.
func testMongoURI() string {
	if uri := os.Getenv("MONGO_TEST_URI"); uri != "" {
		return uri
	}
	return "mongodb://localhost:27017"
}

// setupTestRepos connects to MongoDB and returns repositories using a unique
// test database. The cleanup function drops the database and disconnects.
// Calls t.Skip if MongoDB is unreachable.
func setupTestRepos(t *testing.T) (*WatchHistoryRepository, *PlayerSettingsRepository, func()) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	uri := testMongoURI()
	client, err := Connect(ctx, uri, options.Client().SetConnectTimeout(3*time.Second))
	if err != nil {
		t.Skipf("MongoDB not available at %s: %v", uri, err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		t.Skipf("MongoDB ping failed at %s: %v", uri, err)
	}

	dbName := fmt.Sprintf("streamadesk_test_%d", time.Now().UnixNano())
	history := NewWatchHistoryRepository(client, dbName)
	settings := NewPlayerSettingsRepository(client, dbName)

	if err := history.EnsureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		t.Fatalf("EnsureIndexes: %v", err)
	}

	cleanup := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = client.Database(dbName).Drop(ctx)
		_ = client.Disconnect(ctx)
	}
	return history, settings, cleanup
}

func TestWatchHistoryIntegration(t *testing.T) {
	history, _, cleanup := setupTestRepos(t)
	defer cleanup()
	ctx := context.Background()

	base := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	for i := int64(1); i <= 3; i++ {
		err := history.Upsert(ctx, domain.WatchPosition{
			MediaID:   i,
			Title:     fmt.Sprintf("Movie %d", i),
			Position:  float64(i * 100),
			UpdatedAt: base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("upsert %d: %v", i, err)
		}
	}

	got, err := history.Get(ctx, 2, 0)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Position != 200 || got.Title != "Movie 2" {
		t.Fatalf("got %+v", got)
	}

	// Upsert replaces rather than duplicating.
	if err := history.Upsert(ctx, domain.WatchPosition{MediaID: 2, Title: "Movie 2", Position: 250}); err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	got, err = history.Get(ctx, 2, 0)
	if err != nil {
		t.Fatalf("get after upsert: %v", err)
	}
	if got.Position != 250 {
		t.Fatalf("position = %v, want 250", got.Position)
	}

	recent, err := history.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("got %d entries, want 2", len(recent))
	}

	if err := history.Delete(ctx, 1, 0); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := history.Get(ctx, 1, 0); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("get deleted = %v, want ErrNotFound", err)
	}
	if err := history.Delete(ctx, 1, 0); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("second delete = %v, want ErrNotFound", err)
	}
}

func TestPlayerSettingsIntegration(t *testing.T) {
	_, settings, cleanup := setupTestRepos(t)
	defer cleanup()
	ctx := context.Background()

	_, found, err := settings.GetPlayerSettings(ctx)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if found {
		t.Fatal("settings found in empty database")
	}

	want := app.PlayerSettings{
		PlaybackMode: domain.ModeFullDownload,
		BufferSizeMB: 10,
		SubtitleSize: 24,
		SubtitleBold: true,
	}
	if err := settings.SetPlayerSettings(ctx, want); err != nil {
		t.Fatalf("set: %v", err)
	}

	got, found, err := settings.GetPlayerSettings(ctx)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !found {
		t.Fatal("settings not found after set")
	}
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}
