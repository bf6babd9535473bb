package stream

// Events is the controller's outward notification surface. It replaces the
// original UI's signal wiring: implementations fan the calls out to whatever
// front end is attached (status bar text, progress display, error dialog).
//
// Calls are made from the controller's internal goroutines; implementations
// must return quickly and must not call back into the Controller.
type Events interface {
	// Status carries transient, non-blocking status text
	// ("Buffering: 1.00 MB", "Starting playback...").
	Status(message string)
	// Progress reports bytes received vs. total. total is -1 when unknown.
	Progress(receivedBytes, totalBytes int64)
	// PlaybackStarted fires once per session when the sink has been handed
	// the buffer; the surface should switch to its player view.
	PlaybackStarted(title string)
	// StreamError reports a user-visible failure (the blocking-dialog case).
	// Never fired for intentional cancellation.
	StreamError(message string)
	// StateChanged reports session state transitions.
	StateChanged(from, to State)
}

// NopEvents discards all notifications.
type NopEvents struct{}

func (NopEvents) Status(string)             {}
func (NopEvents) Progress(int64, int64)     {}
func (NopEvents) PlaybackStarted(string)    {}
func (NopEvents) StreamError(string)        {}
func (NopEvents) StateChanged(State, State) {}
