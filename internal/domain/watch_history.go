package domain

import "time"

// WatchPosition records how far into a media item playback got.
type WatchPosition struct {
	MediaID   int64     `json:"mediaId"`
	EpisodeID int64     `json:"episodeId"` // 0 for movies and generic videos
	Title     string    `json:"title"`
	Position  float64   `json:"position"` // seconds
	Duration  float64   `json:"duration"` // seconds, 0 when unknown
	UpdatedAt time.Time `json:"updatedAt"`
}
