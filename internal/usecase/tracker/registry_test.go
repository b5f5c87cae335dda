package tracker

import (
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/argrank/internal/domain"
)

func TestRegistry_Lifecycle(t *testing.T) {
	r := NewRegistry(&fakeSearcher{}, Options{Lookback: 3}, zap.NewNop())

	id, tr := r.Create(Options{KNN: 10})
	if id == "" {
		t.Fatal("expected session id")
	}
	if opts := tr.Options(); opts.Lookback != 3 || opts.KNN != 10 || opts.SearchK != DefaultSearchK {
		t.Errorf("unexpected options: %+v", opts)
	}

	got, err := r.Get(id)
	if err != nil || got != tr {
		t.Fatalf("expected session %s, got %v %v", id, got, err)
	}

	other, _ := r.Create(Options{})
	if other == id {
		t.Error("expected distinct session ids")
	}
	if r.Len() != 2 {
		t.Errorf("expected 2 sessions, got %d", r.Len())
	}

	if err := r.Delete(id); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := r.Get(id); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound, got %v", err)
	}
	if err := r.Delete(id); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound on second delete, got %v", err)
	}
}
