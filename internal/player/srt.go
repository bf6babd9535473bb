package player

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"streamadesk/internal/domain"
)

var srtTimingRe = regexp.MustCompile(
	`^(\d+):(\d{1,2}):(\d{1,2})[,.](\d{1,3})\s*-->\s*(\d+):(\d{1,2}):(\d{1,2})[,.](\d{1,3})`)

// ParseSRT decodes SubRip subtitle text into cues. Malformed blocks are
// skipped rather than failing the whole file; real-world subtitle files are
// rarely pristine.
func ParseSRT(r io.Reader) ([]domain.SubtitleCue, error) {
	var cues []domain.SubtitleCue

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64<<10), 1<<20)

	var (
		inCue bool
		cue   domain.SubtitleCue
		text  []string
	)
	flush := func() {
		if inCue && len(text) > 0 {
			cue.Text = strings.Join(text, "\n")
			cues = append(cues, cue)
		}
		inCue = false
		text = nil
	}

	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		line = strings.TrimPrefix(line, "\ufeff")

		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}
		if m := srtTimingRe.FindStringSubmatch(line); m != nil {
			flush()
			cue = domain.SubtitleCue{
				StartMs: srtTimestampMs(m[1], m[2], m[3], m[4]),
				EndMs:   srtTimestampMs(m[5], m[6], m[7], m[8]),
			}
			inCue = true
			continue
		}
		if !inCue {
			// Sequence number or stray text before the first timing line.
			continue
		}
		text = append(text, line)
	}
	flush()

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read subtitles: %w", err)
	}
	return cues, nil
}

// FormatSRT renders cues back into SubRip text, the format the player
// process accepts as an external subtitle file.
func FormatSRT(cues []domain.SubtitleCue) []byte {
	var b strings.Builder
	for i, cue := range cues {
		fmt.Fprintf(&b, "%d\n%s --> %s\n%s\n\n",
			i+1, srtTimestamp(cue.StartMs), srtTimestamp(cue.EndMs), cue.Text)
	}
	return []byte(b.String())
}

func srtTimestampMs(h, m, s, frac string) int64 {
	// Fraction digits are milliseconds; pad short forms ("5" means 500ms).
	for len(frac) < 3 {
		frac += "0"
	}
	hv, _ := strconv.ParseInt(h, 10, 64)
	mv, _ := strconv.ParseInt(m, 10, 64)
	sv, _ := strconv.ParseInt(s, 10, 64)
	fv, _ := strconv.ParseInt(frac, 10, 64)
	return ((hv*60+mv)*60+sv)*1000 + fv
}

func srtTimestamp(ms int64) string {
	if ms < 0 {
		ms = 0
	}
	h := ms / 3600000
	ms -= h * 3600000
	m := ms / 60000
	ms -= m * 60000
	s := ms / 1000
	ms -= s * 1000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms)
}
