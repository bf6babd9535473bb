package apihttp

import (
	"sync"

	"streamadesk/internal/stream"
)

// statusCache keeps the latest status/progress/error so the polling
// endpoint can answer without waiting for the next push.
type statusCache struct {
	mu        sync.Mutex
	message   string
	received  int64
	total     int64
	lastError string
	playing   string // title, empty when nothing started
}

func newStatusCache() *statusCache {
	return &statusCache{}
}

func (c *statusCache) setMessage(msg string) {
	c.mu.Lock()
	c.message = msg
	c.mu.Unlock()
}

func (c *statusCache) setProgress(received, total int64) {
	c.mu.Lock()
	c.received = received
	c.total = total
	c.mu.Unlock()
}

func (c *statusCache) setPlaying(title string) {
	c.mu.Lock()
	c.playing = title
	c.lastError = ""
	c.mu.Unlock()
}

func (c *statusCache) setError(msg string) {
	c.mu.Lock()
	c.lastError = msg
	c.mu.Unlock()
}

func (c *statusCache) reset() {
	c.mu.Lock()
	c.message = ""
	c.received = 0
	c.total = 0
	c.playing = ""
	c.mu.Unlock()
}

type statusView struct {
	Message       string `json:"message"`
	ReceivedBytes int64  `json:"receivedBytes"`
	TotalBytes    int64  `json:"totalBytes"`
	Playing       string `json:"playing,omitempty"`
	LastError     string `json:"lastError,omitempty"`
}

func (c *statusCache) view() statusView {
	c.mu.Lock()
	defer c.mu.Unlock()
	return statusView{
		Message:       c.message,
		ReceivedBytes: c.received,
		TotalBytes:    c.total,
		Playing:       c.playing,
		LastError:     c.lastError,
	}
}

// hubEvents fans stream events out to WebSocket clients and the status
// cache. Methods must return quickly: the controller may call them while
// holding its own lock.
type hubEvents struct {
	hub    *wsHub
	status *statusCache
}

var _ stream.Events = (*hubEvents)(nil)

type progressPayload struct {
	ReceivedBytes int64 `json:"receivedBytes"`
	TotalBytes    int64 `json:"totalBytes"`
}

func (e *hubEvents) Status(message string) {
	e.status.setMessage(message)
	e.hub.Broadcast("status", map[string]string{"message": message})
}

func (e *hubEvents) Progress(received, total int64) {
	e.status.setProgress(received, total)
	e.hub.Broadcast("progress", progressPayload{ReceivedBytes: received, TotalBytes: total})
}

func (e *hubEvents) PlaybackStarted(title string) {
	e.status.setPlaying(title)
	e.hub.Broadcast("playback_started", map[string]string{"title": title})
}

func (e *hubEvents) StreamError(message string) {
	e.status.setError(message)
	e.hub.Broadcast("error", map[string]string{"message": message})
}

func (e *hubEvents) StateChanged(from, to stream.State) {
	if to == stream.StateIdle {
		e.status.reset()
	}
	e.hub.Broadcast("state", map[string]string{"from": from.String(), "to": to.String()})
}
