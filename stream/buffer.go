// Package stream implements the append-only byte accumulator every streaming
// Transfer keeps: bytes observed from a write callback are appended here
// before any user hook runs, and the consume* family lets callers drain it by
// line, delimiter, or fixed byte count.
//
// No example in the reference corpus offers a destructive line/delimiter/
// byte-count consumption API over a mutable, incrementally-appended
// accumulator (bufio.Reader reads once from a fixed io.Reader and cannot be
// appended to after construction). Buffer is therefore built on the standard
// library; see DESIGN.md for the justification this module's conventions
// require before reaching for stdlib over a pack dependency.
package stream

import "bytes"

// Buffer is a single-owner, non-thread-shared byte accumulator.
type Buffer struct {
	data []byte
}

// New returns an empty Buffer.
func New() *Buffer {
	return &Buffer{}
}

// Append adds bytes to the end of the buffer.
func (b *Buffer) Append(data []byte) {
	b.data = append(b.data, data...)
}

// Peek returns the buffer's current contents without consuming them.
func (b *Buffer) Peek() []byte {
	return b.data
}

// Len returns the number of unconsumed bytes.
func (b *Buffer) Len() int {
	return len(b.data)
}

// Clear discards all buffered bytes.
func (b *Buffer) Clear() {
	b.data = nil
}

// ConsumeAll drains and returns every buffered byte.
func (b *Buffer) ConsumeAll() []byte {
	out := b.data
	b.data = nil
	return out
}

// ConsumeLine returns the bytes preceding the first '\n', stripping one
// trailing '\r' if present, and advances past the '\n'. If no '\n' exists the
// buffer is left untouched and ok is false.
func (b *Buffer) ConsumeLine() (line []byte, ok bool) {
	idx := bytes.IndexByte(b.data, '\n')
	if idx < 0 {
		return nil, false
	}
	line = b.data[:idx]
	if len(line) > 0 && line[len(line)-1] == '\r' {
		line = line[:len(line)-1]
	}
	out := make([]byte, len(line))
	copy(out, line)
	b.data = b.data[idx+1:]
	return out, true
}

// ConsumeUntil advances past the first occurrence of delim, returning the
// bytes up to (includeDelim=false) or through (includeDelim=true) it. If
// delim is not found the buffer is left untouched and ok is false.
func (b *Buffer) ConsumeUntil(delim byte, includeDelim bool) (chunk []byte, ok bool) {
	idx := bytes.IndexByte(b.data, delim)
	if idx < 0 {
		return nil, false
	}
	end := idx
	if includeDelim {
		end = idx + 1
	}
	chunk = make([]byte, end)
	copy(chunk, b.data[:end])
	b.data = b.data[idx+1:]
	return chunk, true
}

// ConsumeBytes consumes and returns exactly n bytes. If fewer than n bytes are
// buffered it returns everything available and ok is false.
func (b *Buffer) ConsumeBytes(n int) (chunk []byte, ok bool) {
	if n < 0 {
		return nil, false
	}
	if n > len(b.data) {
		chunk = b.data
		b.data = nil
		return chunk, false
	}
	chunk = make([]byte, n)
	copy(chunk, b.data[:n])
	b.data = b.data[n:]
	return chunk, true
}
