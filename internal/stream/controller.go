package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"streamadesk/internal/domain"
	"streamadesk/internal/metrics"
)

const (
	downloadChunkSize = 64 << 10
	stallAfter        = 15 * time.Second
	stallCheckEvery   = 5 * time.Second
)

// Sink is the opaque playback device the controller feeds. Implementations
// must tolerate DetachSource while playing (stop first) and must not call
// back into the Controller.
type Sink interface {
	LoadSource(src io.ReadSeekCloser) error
	Play() error
	Stop() error
	DetachSource() error
	SetSubtitles(cues []domain.SubtitleCue)
	ClearSubtitles()
}

// StartRequest carries everything needed to open one playback session.
type StartRequest struct {
	URL               string
	Cookies           []Cookie
	Mode              domain.PlaybackMode
	BufferTargetBytes int64
	Title             string
	Subtitles         []domain.SubtitleCue
}

// Controller owns the lifecycle of at most one StreamSession: it opens the
// authenticated streaming download, accumulates bytes into the session
// buffer, decides when playback may begin, and tears the session down
// deterministically. All state transitions are serialized under c.mu;
// network goroutines detect a superseded session by identity and drop their
// events, so a new session never observes leftovers from the old one.
type Controller struct {
	sink      Sink
	events    Events
	logger    *slog.Logger
	client    *http.Client
	limiter   *rate.Limiter
	userAgent string

	mu     sync.Mutex
	active *StreamSession

	// releaseMu serializes attach and release of the shared sink. Lock
	// order is c.mu before releaseMu; teardown takes releaseMu alone so
	// a slow sink stop never holds up the data path or Snapshot.
	releaseMu sync.Mutex
	sinkOwner atomic.Uint64

	nextID atomic.Uint64
	wg     sync.WaitGroup
}

type Option func(*Controller)

// WithHTTPClient replaces the transport used for the streaming download.
// The client must not carry an overall timeout: the download runs until
// completion, error or cancellation.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Controller) { c.client = client }
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) { c.logger = logger }
}

// WithDownloadRate throttles the download to bytesPerSec. Zero or negative
// leaves the transfer unlimited. The burst never drops below one read chunk:
// WaitN rejects requests larger than the burst outright, so a smaller burst
// would disable the throttle instead of tightening it.
func WithDownloadRate(bytesPerSec int64) Option {
	return func(c *Controller) {
		if bytesPerSec <= 0 {
			return
		}
		burst := int(bytesPerSec)
		if burst < downloadChunkSize {
			burst = downloadChunkSize
		}
		c.limiter = rate.NewLimiter(rate.Limit(bytesPerSec), burst)
	}
}

func WithUserAgent(ua string) Option {
	return func(c *Controller) { c.userAgent = ua }
}

func NewController(sink Sink, events Events, opts ...Option) *Controller {
	c := &Controller{
		sink:      sink,
		events:    events,
		logger:    slog.Default(),
		client:    &http.Client{},
		userAgent: "StreamaDesk/1.0",
	}
	if events == nil {
		c.events = NopEvents{}
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start opens a new playback session, cancelling any session already in
// flight. Precondition failures (missing URL, missing credentials) are
// returned synchronously and no request is issued.
func (c *Controller) Start(req StartRequest) error {
	if strings.TrimSpace(req.URL) == "" {
		return domain.ErrNoStreamURL
	}
	if len(req.Cookies) == 0 {
		return domain.ErrNoCredentials
	}

	ctx, cancel := context.WithCancel(context.Background())
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.URL, nil)
	if err != nil {
		cancel()
		return fmt.Errorf("build stream request: %w", err)
	}
	httpReq.Header.Set("Cookie", CookieHeader(req.Cookies))
	httpReq.Header.Set("User-Agent", c.userAgent)

	// Clean old before starting new.
	c.Cleanup()

	s := c.begin(req, cancel)

	if len(req.Subtitles) > 0 {
		c.releaseMu.Lock()
		c.sinkOwner.Store(s.id)
		c.sink.SetSubtitles(req.Subtitles)
		c.releaseMu.Unlock()
	}

	metrics.StreamSessionsTotal.Inc()
	c.logger.Info("stream session starting",
		slog.Uint64("session", s.id),
		slog.String("url", req.URL),
		slog.String("mode", req.Mode.String()),
		slog.Int64("bufferTarget", req.BufferTargetBytes),
	)

	c.wg.Add(2)
	go c.download(ctx, s, httpReq)
	go c.watchStall(ctx, s)
	return nil
}

// begin installs a fresh session as the active one and moves it to
// Requesting. Split out of Start so tests can drive the event path directly.
func (c *Controller) begin(req StartRequest, cancel context.CancelFunc) *StreamSession {
	s := &StreamSession{
		id:           c.nextID.Add(1),
		url:          req.URL,
		title:        req.Title,
		mode:         req.Mode,
		bufferTarget: req.BufferTargetBytes,
		buf:          NewBuffer(),
		cancel:       cancel,
		total:        -1,
		lastDataAt:   time.Now(),
	}
	c.mu.Lock()
	c.active = s
	c.transition(s, StateRequesting)
	c.mu.Unlock()
	return s
}

// download drains the streaming response into the session buffer. It runs
// until the transfer completes, errors, or the session is superseded.
func (c *Controller) download(ctx context.Context, s *StreamSession, req *http.Request) {
	defer c.wg.Done()

	resp, err := c.client.Do(req)
	if err != nil {
		c.fail(s, fmt.Errorf("stream request: %w", err))
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.fail(s, fmt.Errorf("server returned %s", resp.Status))
		return
	}

	c.onResponse(s, resp.ContentLength)

	chunk := make([]byte, downloadChunkSize)
	for {
		n, readErr := resp.Body.Read(chunk)
		if n > 0 {
			if c.limiter != nil {
				_ = c.limiter.WaitN(ctx, n)
			}
			if !c.onData(s, chunk[:n]) {
				// Superseded or cancelling: stop draining, drop the event.
				return
			}
		}
		if readErr == io.EOF {
			c.onComplete(s)
			return
		}
		if readErr != nil {
			c.fail(s, readErr)
			return
		}
	}
}

// onResponse records the reported content length and, in PreBuffer mode,
// moves the session from Requesting to Buffering.
func (c *Controller) onResponse(s *StreamSession, contentLength int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active != s || s.cancelling {
		return
	}
	if contentLength > 0 {
		s.total = contentLength
	}
	if s.mode == domain.ModePreBuffer {
		c.transition(s, StateBuffering)
	}
}

// onData appends one chunk to the session buffer and starts playback when
// the threshold is crossed. Returns false when the event is stale and the
// caller should stop delivering.
func (c *Controller) onData(s *StreamSession, p []byte) bool {
	c.mu.Lock()
	if c.active != s || s.cancelling {
		c.mu.Unlock()
		return false
	}

	s.buf.Append(p)
	s.received += int64(len(p))
	s.lastDataAt = time.Now()
	metrics.StreamBytesReceived.Add(float64(len(p)))

	wasStarted := s.playbackStarted
	var startErr error
	// A target of zero or less means "start on the first byte".
	if s.mode == domain.ModePreBuffer && !s.playbackStarted && s.received >= s.bufferTarget {
		startErr = c.startPlayback(s)
	}
	justStarted := !wasStarted && s.playbackStarted
	received, total, mode, title := s.received, s.total, s.mode, s.title
	c.mu.Unlock()

	c.events.Progress(received, total)
	if !wasStarted {
		c.events.Status(fmt.Sprintf("Buffering: %.2f MB", mb(received)))
	} else if mode == domain.ModeFullDownload {
		c.events.Status(downloadingStatus(received, total))
	}
	if justStarted {
		c.events.Status("Starting playback...")
		c.events.PlaybackStarted(title)
	}

	if startErr != nil {
		c.fail(s, startErr)
		return false
	}
	return true
}

// onComplete handles terminal completion of the transfer. In PreBuffer mode
// a completed-but-under-threshold transfer starts playback with whatever was
// received; in FullDownload mode this is the only playback trigger. A
// zero-byte completion surfaces as an error rather than idling silently.
func (c *Controller) onComplete(s *StreamSession) {
	c.mu.Lock()
	if c.active != s || s.cancelling {
		c.mu.Unlock()
		return
	}

	s.buf.Complete()

	if !s.playbackStarted && s.received == 0 {
		c.transition(s, StateErrored)
		c.mu.Unlock()
		metrics.StreamErrorsTotal.Inc()
		c.logger.Error("stream completed empty", slog.Uint64("session", s.id), slog.String("url", s.url))
		c.events.StreamError(domain.ErrNoData.Error())
		c.teardown(s)
		return
	}

	wasStarted := s.playbackStarted
	var startErr error
	if !s.playbackStarted {
		startErr = c.startPlayback(s)
	} else {
		c.transition(s, StateCompleting)
	}
	justStarted := !wasStarted && s.playbackStarted
	received, total, mode, title := s.received, s.total, s.mode, s.title
	c.mu.Unlock()

	c.logger.Info("stream transfer complete",
		slog.Uint64("session", s.id),
		slog.Int64("bytes", received),
	)
	if justStarted {
		if mode == domain.ModeFullDownload {
			c.events.Status(downloadingStatus(received, total))
		}
		c.events.Status("Starting playback...")
		c.events.PlaybackStarted(title)
	}
	if startErr != nil {
		c.fail(s, startErr)
	}
}

// startPlayback hands the live buffer to the sink. Guarded to run at most
// once per session; a repeat call is a no-op. Caller must hold c.mu.
func (c *Controller) startPlayback(s *StreamSession) error {
	if s.playbackStarted {
		return nil
	}
	reader := s.buf.NewReader()
	c.releaseMu.Lock()
	c.sinkOwner.Store(s.id)
	if err := c.sink.LoadSource(reader); err != nil {
		c.releaseMu.Unlock()
		_ = reader.Close()
		return fmt.Errorf("load source: %w", err)
	}
	err := c.sink.Play()
	c.releaseMu.Unlock()
	if err != nil {
		return fmt.Errorf("start playback: %w", err)
	}
	s.playbackStarted = true
	c.transition(s, StatePlaying)
	metrics.PlaybackStartsTotal.Inc()
	return nil
}

// fail surfaces a terminal stream error and tears the session down.
// Errors caused by our own cancellation are suppressed: they are the
// expected side effect of teardown, not a fault.
func (c *Controller) fail(s *StreamSession, err error) {
	if errors.Is(err, context.Canceled) {
		return
	}
	c.mu.Lock()
	if c.active != s || s.cancelling {
		c.mu.Unlock()
		return
	}
	c.transition(s, StateErrored)
	c.mu.Unlock()

	metrics.StreamErrorsTotal.Inc()
	c.logger.Error("stream session failed",
		slog.Uint64("session", s.id),
		slog.String("url", s.url),
		slog.String("error", err.Error()),
	)
	c.events.StreamError(err.Error())
	c.teardown(s)
}

// Cleanup tears down the active session, if any. Safe to call at any time
// and from any teardown path: navigation away, logout, replacement by a new
// session, or shutdown.
func (c *Controller) Cleanup() {
	c.mu.Lock()
	s := c.active
	c.mu.Unlock()
	if s != nil {
		c.teardown(s)
	}
}

// teardown releases everything tied to s exactly once. Idempotent: a second
// call, or a call racing another teardown path, is a no-op. Every step is
// best-effort; a failing step never skips the ones after it.
//
// Only the bookkeeping runs under c.mu. The session is marked cancelling
// and detached first, then the sink is released outside the lock: Stop can
// wait out the player's stop grace, and nothing else may stall behind it.
func (c *Controller) teardown(s *StreamSession) {
	c.mu.Lock()
	if c.active != s || s.cancelling {
		c.mu.Unlock()
		return
	}
	s.cancelling = true
	wasPlaying := s.playbackStarted
	cancel := s.cancel
	buf := s.buf
	s.cancel = nil
	s.buf = nil
	s.playbackStarted = false
	c.active = nil
	c.mu.Unlock()

	c.releaseMu.Lock()
	if c.sinkOwner.CompareAndSwap(s.id, 0) {
		c.sink.ClearSubtitles()
	}
	if wasPlaying {
		if err := c.sink.Stop(); err != nil {
			c.logger.Debug("sink stop failed", slog.String("error", err.Error()))
		}
		if err := c.sink.DetachSource(); err != nil {
			c.logger.Debug("sink detach failed", slog.String("error", err.Error()))
		}
	}
	c.releaseMu.Unlock()

	if cancel != nil {
		cancel()
	}
	if buf != nil {
		_ = buf.Close()
	}

	c.mu.Lock()
	if s.state != StateErrored && s.state != StateCompleting {
		c.transition(s, StateCancelled)
	}
	c.transition(s, StateIdle)
	c.mu.Unlock()

	c.logger.Info("stream session released", slog.Uint64("session", s.id))
}

// Shutdown cancels the active session and waits for the controller's
// background goroutines to finish.
func (c *Controller) Shutdown() {
	c.Cleanup()
	c.wg.Wait()
}

// watchStall periodically reports a stalled transfer through the status
// surface. Visibility only; a stall never fails the session by itself.
func (c *Controller) watchStall(ctx context.Context, s *StreamSession) {
	defer c.wg.Done()
	ticker := time.NewTicker(stallCheckEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		c.mu.Lock()
		stale := c.active != s || s.cancelling
		done := s.state == StateCompleting || s.state == StateErrored || s.state == StateIdle
		idle := time.Since(s.lastDataAt)
		c.mu.Unlock()

		if stale {
			return
		}
		if !done && idle >= stallAfter {
			c.logger.Warn("stream transfer stalled",
				slog.Uint64("session", s.id),
				slog.Duration("idle", idle),
			)
			c.events.Status(fmt.Sprintf("Stalled: no data for %ds", int(idle.Seconds())))
		}
	}
}

// Snapshot is a point-in-time view of the active session for the status
// endpoint.
type Snapshot struct {
	Active          bool   `json:"active"`
	State           string `json:"state"`
	Title           string `json:"title"`
	Mode            string `json:"mode"`
	ReceivedBytes   int64  `json:"receivedBytes"`
	TotalBytes      int64  `json:"totalBytes"`
	PlaybackStarted bool   `json:"playbackStarted"`
}

func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active == nil {
		return Snapshot{State: StateIdle.String()}
	}
	s := c.active
	return Snapshot{
		Active:          true,
		State:           s.state.String(),
		Title:           s.title,
		Mode:            s.mode.String(),
		ReceivedBytes:   s.received,
		TotalBytes:      s.total,
		PlaybackStarted: s.playbackStarted,
	}
}

// transition moves s to a new state. Caller must hold c.mu.
func (c *Controller) transition(s *StreamSession, to State) {
	from := s.state
	if from == to {
		return
	}
	s.state = to
	metrics.StreamStateTransitionsTotal.WithLabelValues(from.String(), to.String()).Inc()
	c.logger.Info("stream state transition",
		slog.Uint64("session", s.id),
		slog.String("from", from.String()),
		slog.String("to", to.String()),
	)
	c.events.StateChanged(from, to)
}

func mb(n int64) float64 {
	if n < 0 {
		return 0
	}
	return float64(n) / (1 << 20)
}

func downloadingStatus(received, total int64) string {
	if total > 0 {
		return fmt.Sprintf("Downloading: %.2f / %.2f MB", mb(received), mb(total))
	}
	return fmt.Sprintf("Downloading: %.2f MB", mb(received))
}
