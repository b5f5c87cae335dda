package run

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/kailas-cloud/argrank/internal/domain"
)

const maxLineBytes = 1 << 20

// Write serializes r as TREC run lines:
//
//	{topic} Q0 {doc_id} {rank} {score} {name}
//
// Rank is the 1-based list position; it is never derived from the score.
func Write(w io.Writer, r Run, name string) error {
	bw := bufio.NewWriter(w)
	for _, topic := range r.topics {
		for i, e := range r.rankings[topic].entries {
			if _, err := fmt.Fprintf(bw, "%s Q0 %s %d %s %s\n",
				topic, e.DocID, i+1, FormatScore(e.Score), name); err != nil {
				return fmt.Errorf("write run line: %w", err)
			}
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("flush run: %w", err)
	}
	return nil
}

// WriteFile writes r to path, creating parent directories.
func WriteFile(path string, r Run, name string) (err error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create run dir: %w", err)
		}
	}
	f, err := os.Create(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("create run file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close run file: %w", cerr)
		}
	}()
	return Write(f, r, name)
}

// Read parses TREC run lines. Fields 0, 2 and 4 carry topic, document and
// score; the rank column is ignored and re-derived from list position.
// Blank lines are skipped. Any other line with fewer than five fields or an
// unparsable score fails the whole read with domain.ErrMalformedRun.
func Read(rd io.Reader) (Run, error) {
	sc := bufio.NewScanner(rd)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	var topics []string
	entries := make(map[string][]Entry)

	lineNo := 0
	for sc.Scan() {
		lineNo++
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		if len(fields) < 5 {
			return Run{}, domain.NewLineError(lineNo,
				fmt.Errorf("expected at least 5 fields, got %d: %w", len(fields), domain.ErrMalformedRun))
		}
		score, err := strconv.ParseFloat(fields[4], 64)
		if err != nil {
			return Run{}, domain.NewLineError(lineNo,
				fmt.Errorf("score %q: %w", fields[4], domain.ErrMalformedRun))
		}
		topic := fields[0]
		if _, ok := entries[topic]; !ok {
			topics = append(topics, topic)
		}
		entries[topic] = append(entries[topic], Entry{DocID: fields[2], Score: score})
	}
	if err := sc.Err(); err != nil {
		return Run{}, fmt.Errorf("scan run: %w", err)
	}

	b := NewBuilder()
	for _, t := range topics {
		b.Set(t, NewRanking(entries[t]...))
	}
	return b.Build(), nil
}

// ReadFile loads a run from path.
func ReadFile(path string) (Run, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return Run{}, fmt.Errorf("open run file: %w", err)
	}
	defer f.Close()

	r, err := Read(f)
	if err != nil {
		return Run{}, fmt.Errorf("read %s: %w", path, err)
	}
	return r, nil
}

// FormatScore renders the shortest decimal that parses back to s.
// Values in [1e-4, 1e16) use fixed notation with at least one fractional
// digit ("10.0"); everything else uses exponent notation ("1e-05").
func FormatScore(s float64) string {
	switch {
	case math.IsNaN(s):
		return "nan"
	case math.IsInf(s, 1):
		return "inf"
	case math.IsInf(s, -1):
		return "-inf"
	}
	abs := math.Abs(s)
	if s == 0 || (abs >= 1e-4 && abs < 1e16) {
		out := strconv.FormatFloat(s, 'f', -1, 64)
		if !strings.Contains(out, ".") {
			out += ".0"
		}
		return out
	}
	return strconv.FormatFloat(s, 'e', -1, 64)
}
