package stream

import (
	"context"
	"fmt"
	"strings"
	"time"

	"streamadesk/internal/domain"
)

// State is the lifecycle phase of a StreamSession.
type State int

const (
	StateIdle       State = iota
	StateRequesting       // HTTP request issued, no data yet
	StateBuffering        // receiving data, threshold not reached (PreBuffer only)
	StatePlaying          // sink has been handed the buffer
	StateCompleting       // transfer finished while playing
	StateCancelled        // torn down by user navigation / replacement / logout
	StateErrored          // terminal transport or starvation error
)

var stateNames = [...]string{
	"idle", "requesting", "buffering", "playing",
	"completing", "cancelled", "errored",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("unknown(%d)", int(s))
}

// Cookie is one auth cookie forwarded on the streaming request. Order is
// preserved when serializing the header.
type Cookie struct {
	Name  string
	Value string
}

// CookieHeader serializes cookies into a single request header value:
// "name1=value1; name2=value2".
func CookieHeader(cookies []Cookie) string {
	parts := make([]string, 0, len(cookies))
	for _, c := range cookies {
		parts = append(parts, c.Name+"="+c.Value)
	}
	return strings.Join(parts, "; ")
}

// StreamSession tracks one playback attempt. A session is constructed fresh
// per play request and replaced, never mutated into a new attempt; starting
// a new session implicitly cancels the prior one.
type StreamSession struct {
	id           uint64
	url          string
	title        string
	mode         domain.PlaybackMode
	bufferTarget int64

	buf    *Buffer
	cancel context.CancelFunc // aborts the in-flight transfer

	state           State
	playbackStarted bool
	cancelling      bool

	received   int64
	total      int64 // -1 when the server did not report a length
	lastDataAt time.Time
}
