// Package transfer implements the Transfer descriptor hierarchy the engine
// package schedules: a shared Base (url, options, timeouts, observer hooks,
// follow-up chain) specialized by composition into HTTP, then MCP (HTTP +
// SSE framing + JSON-RPC auto-initialize), matching the "sum types or an
// enum of transfer flavors plus a shared base record" design note.
package transfer

import (
	"net/http"

	"github.com/viant/xfer/backend"
	"github.com/viant/xfer/internal/ptr"
	"github.com/viant/xfer/stream"
)

// TimeoutKind distinguishes connection-phase from total-phase timeouts.
type TimeoutKind int

const (
	TimeoutConnection TimeoutKind = iota
	TimeoutTotal
)

func (k TimeoutKind) String() string {
	if k == TimeoutTotal {
		return "total"
	}
	return "connection"
}

// Info is the per-completion block handed to observer hooks.
type Info struct {
	StatusCode        int
	ConnectTimeMs     int64
	PretransferTimeMs int64
	TotalTimeMs       int64
	EffectiveURL      string
}

func infoFromBackend(i backend.Info) Info {
	return Info{
		StatusCode:        i.StatusCode,
		ConnectTimeMs:     i.ConnectTimeMs,
		PretransferTimeMs: i.PretransferTimeMs,
		TotalTimeMs:       i.TotalTimeMs,
		EffectiveURL:      i.EffectiveURL,
	}
}

// Engine is the callback surface observer hooks receive, letting them submit
// more Transfers (follow-up chains, MCP reinitialization, crawler growth)
// without the transfer package importing the engine package.
type Engine interface {
	Submit(t Transfer, frontInsert bool, delaySeconds float64)
}

// Observer hook signatures (spec §3 "Observer hooks").
type (
	OnReadyFunc    func(info Info, buf *stream.Buffer, eng Engine)
	OnTimeoutFunc  func(kind TimeoutKind, elapsedMs int64, eng Engine)
	OnErrorFunc    func(msg string, code string, info Info, eng Engine)
	OnStreamFunc   func(buf *stream.Buffer, eng Engine) bool
	OnCompleteFunc func(eng Engine)
)

// Transfer is the interface the Engine drives. HTTP implements it directly;
// MCP embeds *HTTP and shadows the methods whose semantics it changes
// (header/body handling, ready/error dispatch), which is enough for Go's
// interface satisfaction to dispatch to MCP's versions through an interface
// value even though the underlying storage is reused by embedding.
type Transfer interface {
	Base() *Base
	PrepareOptions() (backend.Options, error)
	HandleHeaderLine(line []byte, eng Engine)
	HandleBodyChunk(data []byte, eng Engine) bool
	HandleReady(info Info, eng Engine)
	HandleTimeout(kind TimeoutKind, elapsedMs int64, eng Engine)
	HandleError(msg string, code string, info Info, eng Engine)
	HandleComplete(eng Engine)
}

// Base carries every piece of state the Engine needs regardless of Transfer
// flavor: url/options sync, timeouts, streamability, the stream buffer, the
// in-flight handle back-reference, and the before/next follow-up chain
// (spec §4.2).
type Base struct {
	url     string
	Options backend.Options

	ConnectionTimeoutMs *int
	TotalTimeoutMs      *int

	Streamable    bool
	StreamAborted bool
	StreamBuf     *stream.Buffer

	Handle *backend.Handle

	Before Transfer
	Next   Transfer

	OnReadyHook    OnReadyFunc
	OnTimeoutHook  OnTimeoutFunc
	OnErrorHook    OnErrorFunc
	OnStreamHook   OnStreamFunc
	OnCompleteHook OnCompleteFunc
}

// NewBase constructs a Base for url.
func NewBase(url string) *Base {
	return &Base{
		url:       url,
		Options:   backend.Options{URL: url, Header: make(http.Header)},
		StreamBuf: stream.New(),
	}
}

// URL returns the current target URL.
func (b *Base) URL() string { return b.url }

// SetURL keeps Options.URL in sync with url, per the Transfer invariant.
func (b *Base) SetURL(u string) {
	b.url = u
	b.Options.URL = u
}

// SetConnectionTimeout sets the connection-phase timeout in milliseconds.
func (b *Base) SetConnectionTimeout(ms int) {
	b.ConnectionTimeoutMs = ptr.Ref(ms)
	b.Options.ConnectionTimeoutMs = ms
}

// SetTotalTimeout sets the total-phase timeout in milliseconds.
func (b *Base) SetTotalTimeout(ms int) {
	b.TotalTimeoutMs = ptr.Ref(ms)
	b.Options.TotalTimeoutMs = ms
}

// ConnectionTimeoutMsOrDefault reports the effective connection timeout,
// treating an unset value as the backend default (spec §3: "300,000 ms for
// reporting purposes").
func (b *Base) ConnectionTimeoutMsOrDefault() int {
	if b.ConnectionTimeoutMs == nil {
		return 300000
	}
	return ptr.Deref(b.ConnectionTimeoutMs)
}

// TotalTimeoutMsOrDefault mirrors ConnectionTimeoutMsOrDefault for the total
// timeout.
func (b *Base) TotalTimeoutMsOrDefault() int {
	if b.TotalTimeoutMs == nil {
		return 300000
	}
	return ptr.Deref(b.TotalTimeoutMs)
}

// SetOnReady installs the ready hook.
func (b *Base) SetOnReady(fn OnReadyFunc) { b.OnReadyHook = fn }

// SetOnTimeout installs the timeout hook.
func (b *Base) SetOnTimeout(fn OnTimeoutFunc) { b.OnTimeoutHook = fn }

// SetOnError installs the error hook.
func (b *Base) SetOnError(fn OnErrorFunc) { b.OnErrorHook = fn }

// SetOnStream installs the stream hook. Installing one always sets
// Streamable, per spec §4.2 ("the setter for the stream observer implicitly
// sets streamable = true").
func (b *Base) SetOnStream(fn OnStreamFunc) {
	b.OnStreamHook = fn
	b.Streamable = true
}

// SetOnComplete installs the completion hook.
func (b *Base) SetOnComplete(fn OnCompleteFunc) { b.OnCompleteHook = fn }

// AppendNext walks the next chain to its tail and attaches t there. The
// chain is expected to be short (≤ 4), so an O(chain-length) walk is fine.
func (b *Base) AppendNext(t Transfer) {
	if b.Next == nil {
		b.Next = t
		return
	}
	cur := b.Next
	for cur.Base().Next != nil {
		cur = cur.Base().Next
	}
	cur.Base().Next = t
}

// SetBefore attaches before as this Transfer's predecessor. If
// setThisAsNext is true, self is appended to the end of before's next chain
// so that control returns to self once before (and any of its existing
// successors) finish running.
func (b *Base) SetBefore(before Transfer, setThisAsNext bool, self Transfer) {
	b.Before = before
	if setThisAsNext {
		before.Base().AppendNext(self)
	}
}

// PopNext detaches and returns the head of the next chain.
func (b *Base) PopNext() Transfer {
	n := b.Next
	b.Next = nil
	return n
}

// PopBefore detaches and returns the predecessor.
func (b *Base) PopBefore() Transfer {
	before := b.Before
	b.Before = nil
	return before
}

// resetForClone clears the per-run state a clone must not inherit: stream
// buffer, abort flag, in-flight handle, and both follow-up links (spec
// §4.2 "On clone").
func (b *Base) resetForClone() {
	b.StreamBuf = stream.New()
	b.StreamAborted = false
	b.Handle = nil
	b.Before = nil
	b.Next = nil
}

// dispatchReady appends nothing (the caller already appended bytes as they
// streamed) and invokes the ready hook if installed.
func dispatchReady(b *Base, info Info, eng Engine) {
	if b.OnReadyHook != nil {
		b.OnReadyHook(info, b.StreamBuf, eng)
	}
}

func dispatchTimeout(b *Base, kind TimeoutKind, elapsedMs int64, eng Engine) {
	if b.OnTimeoutHook != nil {
		b.OnTimeoutHook(kind, elapsedMs, eng)
	}
}

func dispatchError(b *Base, msg, code string, info Info, eng Engine) {
	if b.OnErrorHook != nil {
		b.OnErrorHook(msg, code, info, eng)
	}
}

func dispatchComplete(b *Base, eng Engine) {
	if b.OnCompleteHook != nil {
		b.OnCompleteHook(eng)
	}
}
