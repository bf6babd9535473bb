package app

import "streamadesk/internal/domain"

// PlayerSettings are the user-adjustable playback knobs that can be
// persisted and changed at runtime, unlike the env-only connection config.
type PlayerSettings struct {
	PlaybackMode domain.PlaybackMode `json:"playbackMode"`
	BufferSizeMB int                 `json:"bufferSizeMb"`
	SubtitleSize int                 `json:"subtitleSize"`
	SubtitleBold bool                `json:"subtitleBold"`
}

// PlayerSettings derives the runtime-adjustable subset from the config.
func (c Config) PlayerSettings() PlayerSettings {
	return PlayerSettings{
		PlaybackMode: c.PlaybackMode,
		BufferSizeMB: c.BufferSizeMB,
		SubtitleSize: c.SubtitleSize,
		SubtitleBold: c.SubtitleBold,
	}
}
