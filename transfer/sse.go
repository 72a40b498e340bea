package transfer

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/viant/xfer/stream"
)

// SSEEvent is one dispatched Server-Sent Event.
type SSEEvent struct {
	Name string
	Data string
	ID   string
}

// SSEState is the SSE parser state embedded by any SSE-capable Transfer
// (spec §3 "SSE parser state"): incremental line parsing with a blank-line
// dispatch boundary, grounded on the line-oriented readSSE parser in the
// teacher's streamable-http client, reimplemented over stream.Buffer instead
// of a bufio.Reader since bytes arrive from a write callback, not a fixed
// io.Reader.
type SSEState struct {
	buf *stream.Buffer

	pendingName string
	pendingData strings.Builder
	lastID      string
	retryMs     int

	hasName bool
	hasData bool
}

// NewSSEState returns a fresh parser with the SSE-default retry of 3000ms.
func NewSSEState() *SSEState {
	return &SSEState{buf: stream.New(), retryMs: 3000}
}

// LastID returns the last `id:` field observed (persists across events).
func (s *SSEState) LastID() string { return s.lastID }

// RetryMs returns the current reconnection delay, as last set by a `retry:`
// field.
func (s *SSEState) RetryMs() int { return s.retryMs }

// Feed appends raw bytes and returns every event dispatched as a result
// (zero or more, since one chunk may complete several events or none).
func (s *SSEState) Feed(data []byte) []SSEEvent {
	s.buf.Append(data)
	var events []SSEEvent
	for {
		line, ok := s.buf.ConsumeLine()
		if !ok {
			break
		}
		if len(line) == 0 {
			if s.hasName || s.hasData {
				events = append(events, s.dispatch())
			}
			continue
		}
		s.consumeField(line)
	}
	return events
}

func (s *SSEState) consumeField(line []byte) {
	switch {
	case bytes.HasPrefix(line, []byte("event:")):
		s.pendingName = trimFieldValue(line, len("event:"))
		s.hasName = true
	case bytes.HasPrefix(line, []byte("data:")):
		s.pendingData.WriteString(trimFieldValue(line, len("data:")))
		s.pendingData.WriteByte('\n')
		s.hasData = true
	case bytes.HasPrefix(line, []byte("id:")):
		s.lastID = trimFieldValue(line, len("id:"))
	case bytes.HasPrefix(line, []byte("retry:")):
		if v, err := strconv.Atoi(strings.TrimSpace(trimFieldValue(line, len("retry:")))); err == nil {
			s.retryMs = v
		}
	default:
		// unrecognized / comment field, ignored
	}
}

func trimFieldValue(line []byte, prefixLen int) string {
	v := string(line[prefixLen:])
	return strings.TrimPrefix(v, " ")
}

// dispatch finalizes the pending event (stripping one trailing '\n' from
// data per spec §3) and resets pending state for the next event.
func (s *SSEState) dispatch() SSEEvent {
	data := strings.TrimSuffix(s.pendingData.String(), "\n")
	ev := SSEEvent{Name: s.pendingName, Data: data, ID: s.lastID}
	s.pendingName = ""
	s.pendingData.Reset()
	s.hasName = false
	s.hasData = false
	return ev
}
