package stream

import (
	"bytes"
	"testing"
)

func TestBuffer_ConsumeLine(t *testing.T) {
	b := New()
	b.Append([]byte("first\r\nsecond\nthird"))

	line, ok := b.ConsumeLine()
	if !ok || string(line) != "first" {
		t.Fatalf("got %q, %v, want %q, true", line, ok, "first")
	}
	line, ok = b.ConsumeLine()
	if !ok || string(line) != "second" {
		t.Fatalf("got %q, %v, want %q, true", line, ok, "second")
	}
	_, ok = b.ConsumeLine()
	if ok {
		t.Fatalf("expected no complete line left")
	}
	if string(b.Peek()) != "third" {
		t.Fatalf("expected buffer untouched after failed ConsumeLine, got %q", b.Peek())
	}
}

func TestBuffer_ConsumeUntil(t *testing.T) {
	b := New()
	b.Append([]byte("event: message\ndata: hi\n\n"))

	chunk, ok := b.ConsumeUntil('\n', false)
	if !ok || string(chunk) != "event: message" {
		t.Fatalf("got %q, %v", chunk, ok)
	}
	chunk, ok = b.ConsumeUntil('\n', true)
	if !ok || string(chunk) != "data: hi\n" {
		t.Fatalf("got %q, %v", chunk, ok)
	}
}

func TestBuffer_ConsumeBytes(t *testing.T) {
	b := New()
	b.Append([]byte("0123456789"))

	chunk, ok := b.ConsumeBytes(4)
	if !ok || string(chunk) != "0123" {
		t.Fatalf("got %q, %v", chunk, ok)
	}
	chunk, ok = b.ConsumeBytes(100)
	if ok {
		t.Fatalf("expected ok=false when fewer bytes are available than requested")
	}
	if string(chunk) != "456789" {
		t.Fatalf("expected all remaining bytes returned, got %q", chunk)
	}
	if b.Len() != 0 {
		t.Fatalf("expected buffer drained, len=%d", b.Len())
	}
}

func TestBuffer_ConsumeAllAndClear(t *testing.T) {
	b := New()
	b.Append([]byte("abc"))
	if got := b.ConsumeAll(); !bytes.Equal(got, []byte("abc")) {
		t.Fatalf("got %q", got)
	}
	if b.Len() != 0 {
		t.Fatalf("expected empty buffer after ConsumeAll")
	}
	b.Append([]byte("xyz"))
	b.Clear()
	if b.Len() != 0 {
		t.Fatalf("expected empty buffer after Clear")
	}
}

func TestBuffer_Monotonicity(t *testing.T) {
	// Stream buffer monotonicity (spec §8 property 5): at any observation
	// point, Peek() must be a prefix of the full response received so far.
	full := []byte("the quick brown fox jumps over the lazy dog")
	b := New()
	for i := 0; i < len(full); i += 7 {
		end := i + 7
		if end > len(full) {
			end = len(full)
		}
		b.Append(full[i:end])
		if !bytes.Equal(b.Peek(), full[:end]) {
			t.Fatalf("prefix violated at %d: got %q, want %q", end, b.Peek(), full[:end])
		}
	}
}
