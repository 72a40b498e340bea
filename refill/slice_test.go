package refill

import (
	"testing"

	"github.com/viant/xfer/transfer"
)

type fakeSubmitter struct {
	submitted []transfer.Transfer
}

func (f *fakeSubmitter) Submit(t transfer.Transfer, frontInsert bool, delaySeconds float64) {
	f.submitted = append(f.submitted, t)
}

func TestSlice_HookDrainsUntilBacklogFull(t *testing.T) {
	s := NewSlice()
	for i := 0; i < 5; i++ {
		h, err := transfer.NewHTTP("http://a.example")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		s.Push(h)
	}

	sub := &fakeSubmitter{}
	hook := s.Hook(sub)
	hook(1, 3)

	if len(sub.submitted) != 2 {
		t.Fatalf("expected 2 submissions to bring backlog from 1 to 3, got %d", len(sub.submitted))
	}
	if s.Len() != 3 {
		t.Fatalf("expected 3 items left in the source, got %d", s.Len())
	}
}

func TestSlice_HookStopsWhenSourceEmpty(t *testing.T) {
	s := NewSlice()
	h, _ := transfer.NewHTTP("http://a.example")
	s.Push(h)

	sub := &fakeSubmitter{}
	hook := s.Hook(sub)
	hook(0, 10)

	if len(sub.submitted) != 1 {
		t.Fatalf("expected exactly 1 submission before the source ran dry, got %d", len(sub.submitted))
	}
	if s.Len() != 0 {
		t.Fatalf("expected source drained")
	}
}
