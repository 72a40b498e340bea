package backend

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptrace"
	"sync"
	"sync/atomic"
	"time"
)

// Multi is the non-blocking "multi" interface the engine package drives: it
// runs each added Handle's round trip on its own goroutine (there is no
// direct Go binding to a libcurl-style multi interface in the reference
// corpus) and reports completions back over a single channel, preserving
// the single-consumer-thread contract the scheduler relies on.
type Multi struct {
	client *http.Client

	completions chan Completion

	mu         sync.Mutex
	active     map[uint64]context.CancelFunc
	pendingBuf []Completion
	nextID     uint64
}

// MultiOption configures a Multi at construction.
type MultiOption func(*Multi)

// WithHTTPClient overrides the default *http.Client used for every Handle.
// A handle whose Options need per-handle transport settings (TLS verify,
// proxy, connection timeout, no keep-alive; see buildTransport and proxy.go)
// runs on a copy of this client whose Transport is replaced by a clone of
// http.DefaultTransport.
func WithHTTPClient(client *http.Client) MultiOption {
	return func(m *Multi) {
		if client != nil {
			m.client = client
		}
	}
}

// NewMulti constructs a Multi ready to accept Handles.
func NewMulti(opts ...MultiOption) *Multi {
	m := &Multi{
		client:      &http.Client{},
		completions: make(chan Completion, 256),
		active:      make(map[uint64]context.CancelFunc),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Add materializes a Handle from Options and starts its round trip. owner is
// an opaque back-reference the caller can retrieve from the resulting
// Completion/Handle; Multi never inspects it.
func (m *Multi) Add(ctx context.Context, o Options, owner interface{}) (*Handle, error) {
	id := atomic.AddUint64(&m.nextID, 1)

	runCtx, cancel := context.WithCancel(ctx)
	if o.TotalTimeoutMs > 0 {
		runCtx, cancel = context.WithTimeout(runCtx, time.Duration(o.TotalTimeoutMs)*time.Millisecond)
	}

	h := &Handle{
		ID:      id,
		Owner:   owner,
		Options: o.Clone(),
		ctx:     runCtx,
		cancel:  cancel,
		started: time.Now(),
	}

	m.mu.Lock()
	m.active[id] = cancel
	m.mu.Unlock()

	go m.run(h)
	return h, nil
}

// Remove cancels a Handle's round trip and stops tracking it. It is safe to
// call after the Handle has already completed.
func (m *Multi) Remove(h *Handle) {
	m.mu.Lock()
	cancel, ok := m.active[h.ID]
	delete(m.active, h.ID)
	m.mu.Unlock()
	if ok {
		cancel()
	}
}

// Wait blocks until at least one Completion is ready or timeout elapses,
// returning true if a completion became available.
func (m *Multi) Wait(timeout time.Duration) bool {
	select {
	case c := <-m.completions:
		m.requeue(c)
		return true
	case <-time.After(timeout):
		return false
	}
}

// requeue buffers a completion pulled off the channel by Wait so that Poll
// can hand it back out in order.
func (m *Multi) requeue(c Completion) {
	m.mu.Lock()
	m.pendingBuf = append(m.pendingBuf, c)
	m.mu.Unlock()
}

// Poll drains every Completion currently ready without blocking.
func (m *Multi) Poll() []Completion {
	m.mu.Lock()
	out := m.pendingBuf
	m.pendingBuf = nil
	m.mu.Unlock()

	for {
		select {
		case c := <-m.completions:
			out = append(out, c)
		default:
			return out
		}
	}
}

func (m *Multi) finish(h *Handle, c Completion) {
	m.mu.Lock()
	delete(m.active, h.ID)
	m.mu.Unlock()
	m.completions <- c
}

func (m *Multi) run(h *Handle) {
	info := Info{}

	client := m.client
	transport, err := m.buildTransport(h.Options)
	if err != nil {
		m.finish(h, Completion{Handle: h, Outcome: Error, Info: info, Err: err})
		return
	}
	if transport != nil {
		clone := *client
		clone.Transport = transport
		client = &clone
	}
	if !h.Options.FollowRedirects {
		cl := *client
		cl.CheckRedirect = func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		}
		client = &cl
	} else if h.Options.MaxRedirects > 0 {
		max := h.Options.MaxRedirects
		cl := *client
		cl.CheckRedirect = func(req *http.Request, via []*http.Request) error {
			if len(via) >= max {
				return fmt.Errorf("stopped after %d redirects", max)
			}
			return nil
		}
		client = &cl
	}

	req, err := m.buildRequest(h)
	if err != nil {
		m.finish(h, Completion{Handle: h, Outcome: Error, Info: info, Err: err})
		return
	}

	var connectTime, pretransferTime time.Time
	trace := &httptrace.ClientTrace{
		ConnectDone: func(network, addr string, err error) {
			if err == nil && connectTime.IsZero() {
				connectTime = time.Now()
			}
		},
		WroteRequest: func(wri httptrace.WroteRequestInfo) {
			if pretransferTime.IsZero() {
				pretransferTime = time.Now()
			}
		},
	}
	req = req.WithContext(httptrace.WithClientTrace(req.Context(), trace))

	resp, err := client.Do(req)
	info.TotalTimeMs = time.Since(h.started).Milliseconds()
	if !connectTime.IsZero() {
		info.ConnectTimeMs = connectTime.Sub(h.started).Milliseconds()
	}
	if !pretransferTime.IsZero() {
		info.PretransferTimeMs = pretransferTime.Sub(h.started).Milliseconds()
	}

	if err != nil {
		outcome := classifyError(h.ctx, err, info)
		info.ErrMessage = err.Error()
		m.finish(h, Completion{Handle: h, Outcome: outcome, Info: info, Err: err})
		return
	}
	defer resp.Body.Close()

	h.statusCode = resp.StatusCode
	h.respHeader = resp.Header
	info.StatusCode = resp.StatusCode
	info.EffectiveURL = h.Options.URL

	if cb := h.Options.HeaderCallback; cb != nil {
		statusLine := fmt.Sprintf("HTTP/%d.%d %d %s\r\n", resp.ProtoMajor, resp.ProtoMinor, resp.StatusCode, http.StatusText(resp.StatusCode))
		cb(h, []byte(statusLine))
		for name, values := range resp.Header {
			for _, v := range values {
				line := []byte(name + ": " + v + "\r\n")
				cb(h, line)
			}
		}
		cb(h, []byte("\r\n"))
	}

	if h.Options.FailOnError && resp.StatusCode >= 400 {
		io.Copy(io.Discard, resp.Body)
		info.ErrMessage = fmt.Sprintf("HTTP returned error: %d", resp.StatusCode)
		m.finish(h, Completion{Handle: h, Outcome: Error, Info: info, Err: errors.New(info.ErrMessage)})
		return
	}

	outcome := OK
	buf := make([]byte, 32*1024)
	for {
		n, readErr := resp.Body.Read(buf)
		if n > 0 && h.Options.WriteCallback != nil {
			accepted := h.Options.WriteCallback(h, buf[:n])
			if accepted != n {
				outcome = WriteError
				break
			}
		}
		if readErr != nil {
			if readErr != io.EOF {
				outcome = classifyError(h.ctx, readErr, info)
			}
			break
		}
	}

	m.finish(h, Completion{Handle: h, Outcome: outcome, Info: info})
}

func classifyError(ctx context.Context, err error, info Info) Outcome {
	var netErr net.Error
	isTimeout := errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout())
	if !isTimeout {
		return Error
	}
	if info.ConnectTimeMs > 0 && info.PretransferTimeMs > 0 {
		return TimeoutTotal
	}
	return TimeoutConnection
}

func (m *Multi) buildRequest(h *Handle) (*http.Request, error) {
	o := h.Options
	method := o.method()
	var body io.Reader
	if len(o.PostFields) > 0 {
		body = bytes.NewReader(o.PostFields)
	}
	req, err := http.NewRequestWithContext(h.ctx, method, o.URL, body)
	if err != nil {
		return nil, err
	}
	if o.Header != nil {
		req.Header = o.Header.Clone()
	}
	if o.BasicAuthUser != "" {
		req.SetBasicAuth(o.BasicAuthUser, o.BasicAuthPassword)
	}
	return req, nil
}

func (m *Multi) buildTransport(o Options) (*http.Transport, error) {
	needsTransport := o.InsecureSkipVerify || o.ProxyType != ProxyNone || o.ConnectionTimeoutMs > 0 || o.ForbidReuse || o.FreshConnect
	if !needsTransport {
		return nil, nil
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if o.InsecureSkipVerify {
		if transport.TLSClientConfig == nil {
			transport.TLSClientConfig = &tls.Config{}
		}
		transport.TLSClientConfig.InsecureSkipVerify = true
	}
	if o.ConnectionTimeoutMs > 0 {
		dialer := &net.Dialer{Timeout: time.Duration(o.ConnectionTimeoutMs) * time.Millisecond}
		transport.DialContext = dialer.DialContext
	}
	if o.ForbidReuse || o.FreshConnect {
		transport.DisableKeepAlives = true
	}
	if err := applyProxy(transport, o); err != nil {
		return nil, err
	}
	return transport, nil
}
