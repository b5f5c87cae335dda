package tracker

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/kailas-cloud/argrank/internal/domain"
	"github.com/kailas-cloud/argrank/internal/domain/run"
)

func TestParseTranscript(t *testing.T) {
	in := "110:53\nwe should ban zoos\n 110:54 \n  animals deserve freedom  \n"

	got, err := ParseTranscript(strings.NewReader(in))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []Window{
		{Timestamp: "110:53", Text: "we should ban zoos"},
		{Timestamp: "110:54", Text: "animals deserve freedom"},
	}
	if !slices.Equal(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestParseTranscript_DanglingTimestamp(t *testing.T) {
	_, err := ParseTranscript(strings.NewReader("00:01\nhello\n00:02\n"))
	if !errors.Is(err, domain.ErrMalformedTranscript) {
		t.Fatalf("expected ErrMalformedTranscript, got %v", err)
	}
	var le *domain.LineError
	if !errors.As(err, &le) || le.Line != 3 {
		t.Errorf("expected line 3, got %v", err)
	}
}

func TestReplay(t *testing.T) {
	s := &fakeSearcher{hits: map[string][]run.Entry{"a": hits("A", 1.0), "b": hits("B", 1.0)}}
	tr := newTracker(s, Options{})

	var seen []int
	err := tr.Replay(context.Background(), []Window{
		{Timestamp: "t0", Text: "a"},
		{Timestamp: "t1", Text: "b"},
	}, func(idx int, _ Window) { seen = append(seen, idx) })
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !slices.Equal(seen, []int{0, 1}) {
		t.Errorf("expected callbacks [0 1], got %v", seen)
	}
	if !slices.Equal(tr.Labels(), []string{"t0", "t1"}) {
		t.Errorf("expected labels [t0 t1], got %v", tr.Labels())
	}
}
