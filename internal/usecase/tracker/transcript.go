package tracker

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/kailas-cloud/argrank/internal/domain"
)

// Window is one timestamped transcript segment.
type Window struct {
	Timestamp string
	Text      string
}

// ParseTranscript reads alternating timestamp and text lines.
// Lines are trimmed. A timestamp without a following text line is an error.
func ParseTranscript(r io.Reader) ([]Window, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var (
		windows []Window
		pending *Window
		line    int
	)
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if pending == nil {
			pending = &Window{Timestamp: text}
			continue
		}
		pending.Text = text
		windows = append(windows, *pending)
		pending = nil
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read transcript: %w", err)
	}
	if pending != nil {
		return nil, domain.NewLineError(line, fmt.Errorf("timestamp %q has no text: %w", pending.Timestamp, domain.ErrMalformedTranscript))
	}
	return windows, nil
}

// ParseTranscriptFile reads a transcript from path.
func ParseTranscriptFile(path string) ([]Window, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open transcript: %w", err)
	}
	defer f.Close()

	windows, err := ParseTranscript(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return windows, nil
}

// Replay ingests windows in order and stops at the first failure.
// onEntry, when set, is called after every ingested window.
func (t *Tracker) Replay(ctx context.Context, windows []Window, onEntry func(idx int, w Window)) error {
	for i, w := range windows {
		if _, err := t.Ingest(ctx, w.Text, w.Timestamp); err != nil {
			return err
		}
		if onEntry != nil {
			onEntry(i, w)
		}
	}
	return nil
}
