package domain

import (
	"encoding/json"
	"strings"
)

// PlaybackMode selects when playback may begin relative to the download.
type PlaybackMode int

const (
	// ModePreBuffer starts playback once a configured byte threshold of the
	// download has arrived, continuing the download in the background.
	ModePreBuffer PlaybackMode = iota
	// ModeFullDownload starts playback only after the entire resource has
	// been downloaded.
	ModeFullDownload
)

func (m PlaybackMode) String() string {
	if m == ModeFullDownload {
		return "full"
	}
	return "prebuffer"
}

// ParsePlaybackMode maps a config string onto a mode. Unknown values fall
// back to prebuffer.
func ParsePlaybackMode(raw string) PlaybackMode {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "full", "fulldownload", "full_download":
		return ModeFullDownload
	default:
		return ModePreBuffer
	}
}

// MarshalJSON encodes the mode as its config string.
func (m PlaybackMode) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

func (m *PlaybackMode) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*m = ParsePlaybackMode(raw)
	return nil
}

// SubtitleCue is one parsed caption: display text over [StartMs, EndMs].
type SubtitleCue struct {
	StartMs int64  `json:"startMs"`
	EndMs   int64  `json:"endMs"`
	Text    string `json:"text"`
}
