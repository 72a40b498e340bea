package backend

import (
	"context"
	"net/http"
	"time"
)

// Handle is the backend-side materialization of one Transfer: options plus
// whatever of the underlying *http.Request/response the running round trip
// has produced so far. The Engine keeps an opaque back-reference to its own
// Transfer in Owner; backend never inspects it.
type Handle struct {
	ID     uint64
	Owner  interface{}
	Options Options

	ctx    context.Context
	cancel context.CancelFunc

	started time.Time

	respHeader http.Header
	statusCode int
}

// StatusCode returns the response status line's code, or 0 before it is
// observed.
func (h *Handle) StatusCode() int {
	return h.statusCode
}

// ResponseHeader returns headers received so far (nil before any arrive).
func (h *Handle) ResponseHeader() http.Header {
	return h.respHeader
}

// Outcome classifies how a Handle's round trip finished. The scheduler (spec
// §4.5) folds these five values into its four completion kinds: OK, and
// WriteError after a stream abort, become ready.
type Outcome int

const (
	OK Outcome = iota
	WriteError
	TimeoutConnection
	TimeoutTotal
	Error
)

func (o Outcome) String() string {
	switch o {
	case OK:
		return "ok"
	case WriteError:
		return "write_error"
	case TimeoutConnection:
		return "timeout_connection"
	case TimeoutTotal:
		return "timeout_total"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

// Info is the per-completion timing/status block the Engine consults to
// classify an outcome and to report to application hooks.
type Info struct {
	StatusCode        int
	ConnectTimeMs     int64
	PretransferTimeMs int64
	TotalTimeMs       int64
	EffectiveURL      string
	ErrCode           string
	ErrMessage        string
}

// Completion is what Multi.Poll returns for one finished Handle.
type Completion struct {
	Handle  *Handle
	Outcome Outcome
	Info    Info
	Err     error
}
