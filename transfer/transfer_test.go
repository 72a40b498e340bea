package transfer

import (
	"testing"

	"github.com/viant/xfer/stream"
)

type fakeEngine struct {
	submitted []submission
}

type submission struct {
	t           Transfer
	frontInsert bool
	delay       float64
}

func (f *fakeEngine) Submit(t Transfer, frontInsert bool, delaySeconds float64) {
	f.submitted = append(f.submitted, submission{t, frontInsert, delaySeconds})
}

func TestBase_SetURLSyncsOptions(t *testing.T) {
	b := NewBase("http://a.example/1")
	if b.Options.URL != "http://a.example/1" {
		t.Fatalf("expected Options.URL synced at construction")
	}
	b.SetURL("http://a.example/2")
	if b.URL() != "http://a.example/2" || b.Options.URL != "http://a.example/2" {
		t.Fatalf("expected both url and Options.URL updated")
	}
}

func TestBase_SetOnStreamSetsStreamable(t *testing.T) {
	b := NewBase("http://a.example")
	if b.Streamable {
		t.Fatalf("expected not streamable by default")
	}
	b.SetOnStream(func(buf *stream.Buffer, eng Engine) bool { return true })
	if !b.Streamable {
		t.Fatalf("expected streamable after installing stream hook")
	}
}

func TestBase_AppendNextChain(t *testing.T) {
	h1, _ := NewHTTP("http://a/1")
	h2, _ := NewHTTP("http://a/2")
	h3, _ := NewHTTP("http://a/3")

	h1.Base().AppendNext(h2)
	h1.Base().AppendNext(h3)

	if h1.Base().Next != Transfer(h2) {
		t.Fatalf("expected h2 directly after h1")
	}
	if h2.Base().Next != Transfer(h3) {
		t.Fatalf("expected h3 appended at tail")
	}
}

func TestBase_SetBeforeWithSetThisAsNext(t *testing.T) {
	main, _ := NewHTTP("http://a/main")
	before, _ := NewHTTP("http://a/before")

	main.Base().SetBefore(before, true, main)

	if main.Base().Before != Transfer(before) {
		t.Fatalf("expected before attached")
	}
	if before.Base().Next != Transfer(main) {
		t.Fatalf("expected main appended to before's next chain")
	}
}

func TestBase_PopNextAndPopBefore(t *testing.T) {
	main, _ := NewHTTP("http://a/main")
	next, _ := NewHTTP("http://a/next")
	before, _ := NewHTTP("http://a/before")

	main.Base().Next = next
	main.Base().Before = before

	gotNext := main.Base().PopNext()
	if gotNext != Transfer(next) || main.Base().Next != nil {
		t.Fatalf("expected PopNext to detach and return next")
	}
	gotBefore := main.Base().PopBefore()
	if gotBefore != Transfer(before) || main.Base().Before != nil {
		t.Fatalf("expected PopBefore to detach and return before")
	}
}
