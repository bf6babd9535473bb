package player

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"streamadesk/internal/domain"
)

const stopGrace = 2 * time.Second

// Config configures the external player.
type Config struct {
	Path         string   // player binary, e.g. "mpv"
	ExtraArgs    []string // appended verbatim before the input argument
	SubtitleSize int
	SubtitleBold bool
}

// MPVSink plays media by piping the live buffer into an mpv subprocess.
// The source is fed over stdin, so playback can begin while the download is
// still in flight. Subtitles are handed over as a temporary SubRip file.
type MPVSink struct {
	cfg    Config
	logger *slog.Logger

	mu      sync.Mutex
	src     io.ReadSeekCloser
	cues    []domain.SubtitleCue
	subFile string
	proc    *playerProcess
}

func NewMPVSink(cfg Config, logger *slog.Logger) *MPVSink {
	if cfg.Path == "" {
		cfg.Path = "mpv"
	}
	if cfg.SubtitleSize <= 0 {
		cfg.SubtitleSize = 20
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &MPVSink{cfg: cfg, logger: logger}
}

// LoadSource attaches the media source. A previously attached source is
// closed and replaced.
func (s *MPVSink) LoadSource(src io.ReadSeekCloser) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.src != nil {
		_ = s.src.Close()
	}
	s.src = src
	return nil
}

// SetStyle adjusts the subtitle rendering options. Takes effect on the next
// Play, a running player keeps its current style.
func (s *MPVSink) SetStyle(subtitleSize int, subtitleBold bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if subtitleSize > 0 {
		s.cfg.SubtitleSize = subtitleSize
	}
	s.cfg.SubtitleBold = subtitleBold
}

// Play launches the player over the attached source.
func (s *MPVSink) Play() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.src == nil {
		return errors.New("no source loaded")
	}
	if s.proc != nil && !s.proc.IsDone() {
		return errors.New("player already running")
	}

	args := []string{
		"--no-terminal",
		"--force-window=yes",
		"--keep-open=no",
		fmt.Sprintf("--sub-font-size=%d", s.cfg.SubtitleSize),
	}
	if s.cfg.SubtitleBold {
		args = append(args, "--sub-bold=yes")
	}
	if len(s.cues) > 0 {
		path, err := s.writeSubtitleFile()
		if err != nil {
			s.logger.Warn("subtitle file not written", slog.String("error", err.Error()))
		} else {
			args = append(args, "--sub-file="+path)
		}
	}
	args = append(args, s.cfg.ExtraArgs...)
	args = append(args, "-")

	proc := newPlayerProcess(context.Background(), s.cfg.Path, args, s.src)
	if err := proc.Start(); err != nil {
		return fmt.Errorf("start player %s: %w", s.cfg.Path, err)
	}
	s.proc = proc
	s.logger.Info("player started", slog.String("path", s.cfg.Path))

	go func() {
		err := proc.Wait()
		if err != nil && proc.Stderr() != "" {
			s.logger.Warn("player exited",
				slog.String("error", err.Error()),
				slog.String("stderr", proc.Stderr()),
			)
		}
	}()
	return nil
}

// Stop kills the player process if one is running. Waits briefly for the
// process to go away, then proceeds regardless.
func (s *MPVSink) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.proc == nil {
		return nil
	}
	s.proc.Stop()
	select {
	case <-s.proc.Done():
	case <-time.After(stopGrace):
		s.logger.Warn("player did not exit promptly")
	}
	s.proc = nil
	return nil
}

// DetachSource closes and forgets the attached source. Any player still
// reading it observes end of input.
func (s *MPVSink) DetachSource() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.src == nil {
		return nil
	}
	err := s.src.Close()
	s.src = nil
	return err
}

// SetSubtitles stores cues for the next Play. The subtitle file is written
// lazily so cues set before the source arrives still take effect.
func (s *MPVSink) SetSubtitles(cues []domain.SubtitleCue) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cues = append([]domain.SubtitleCue(nil), cues...)
}

// ClearSubtitles drops stored cues and removes the temp subtitle file.
func (s *MPVSink) ClearSubtitles() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cues = nil
	s.removeSubtitleFile()
}

// writeSubtitleFile renders the stored cues to a temp .srt. Caller must
// hold s.mu.
func (s *MPVSink) writeSubtitleFile() (string, error) {
	s.removeSubtitleFile()
	f, err := os.CreateTemp("", "streamadesk-*.srt")
	if err != nil {
		return "", err
	}
	if _, err := f.Write(FormatSRT(s.cues)); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	s.subFile = f.Name()
	return s.subFile, nil
}

func (s *MPVSink) removeSubtitleFile() {
	if s.subFile != "" {
		_ = os.Remove(s.subFile)
		s.subFile = ""
	}
}
