// Package history records local watch positions so playback can resume
// where it left off.
package history

import (
	"context"

	"streamadesk/internal/domain"
)

// Store persists watch positions. Implementations must be safe for
// concurrent use.
type Store interface {
	Upsert(ctx context.Context, pos domain.WatchPosition) error
	Get(ctx context.Context, mediaID, episodeID int64) (domain.WatchPosition, error)
	Recent(ctx context.Context, limit int) ([]domain.WatchPosition, error)
	Delete(ctx context.Context, mediaID, episodeID int64) error
}
