package player

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"testing"

	"streamadesk/internal/domain"
)

type fakeSource struct {
	io.ReadSeeker
	closed bool
}

func (f *fakeSource) Close() error {
	f.closed = true
	return nil
}

func newFakeSource(data string) *fakeSource {
	return &fakeSource{ReadSeeker: strings.NewReader(data)}
}

func testSink() *MPVSink {
	return NewMPVSink(Config{}, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestPlayWithoutSourceFails(t *testing.T) {
	s := testSink()
	if err := s.Play(); err == nil {
		t.Fatal("expected error with no source")
	}
}

func TestLoadSourceReplacesAndClosesOld(t *testing.T) {
	s := testSink()
	first := newFakeSource("a")
	second := newFakeSource("b")

	if err := s.LoadSource(first); err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := s.LoadSource(second); err != nil {
		t.Fatalf("load: %v", err)
	}
	if !first.closed {
		t.Fatal("replaced source not closed")
	}
	if second.closed {
		t.Fatal("new source closed prematurely")
	}
}

func TestDetachSourceClosesAndIsIdempotent(t *testing.T) {
	s := testSink()
	src := newFakeSource("data")
	if err := s.LoadSource(src); err != nil {
		t.Fatalf("load: %v", err)
	}

	if err := s.DetachSource(); err != nil {
		t.Fatalf("detach: %v", err)
	}
	if !src.closed {
		t.Fatal("source not closed on detach")
	}
	if err := s.DetachSource(); err != nil {
		t.Fatalf("second detach: %v", err)
	}
}

func TestStopWithoutPlayerIsNoop(t *testing.T) {
	s := testSink()
	if err := s.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}
}

func TestSubtitleFileLifecycle(t *testing.T) {
	s := testSink()
	s.SetSubtitles([]domain.SubtitleCue{{StartMs: 0, EndMs: 1000, Text: "hi"}})

	s.mu.Lock()
	path, err := s.writeSubtitleFile()
	s.mu.Unlock()
	if err != nil {
		t.Fatalf("write subtitle file: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read temp file: %v", err)
	}
	if !strings.Contains(string(data), "00:00:00,000 --> 00:00:01,000") {
		t.Fatalf("unexpected subtitle content: %q", data)
	}

	s.ClearSubtitles()
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatal("temp subtitle file not removed")
	}
	s.mu.Lock()
	cues := s.cues
	s.mu.Unlock()
	if cues != nil {
		t.Fatal("cues not cleared")
	}
}
