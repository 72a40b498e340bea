package transfer

import (
	"fmt"
	"net/url"
	"sort"
	"strings"

	gojson "github.com/goccy/go-json"

	"github.com/viant/xfer/backend"
)

// HTTP is the HTTP-specialized Transfer (spec §4.3): method, body
// serialization, a case-folded header table, auth helpers, and clone
// semantics on top of Base.
type HTTP struct {
	base *HTTPBase
}

// HTTPBase holds the fields HTTP owns directly; kept separate from the
// embedding struct only so MCP can embed *HTTP while still reaching these
// fields through promoted methods.
type HTTPBase struct {
	b *Base

	method      string
	headers     map[string]string // lower-cased keys
	body        []byte
	contentType string
}

// Option configures an HTTP (or MCP) Transfer at construction. Configuration
// failures (bad method, unsupported content type) are raised synchronously
// here rather than deferred (spec §4.3/§7).
type Option func(*HTTP) error

// WithMethod sets the HTTP method (GET or POST).
func WithMethod(method string) Option {
	return func(h *HTTP) error { return h.SetMethod(method) }
}

// WithHeader sets a request header.
func WithHeader(name, value string) Option {
	return func(h *HTTP) error {
		h.SetHeader(name, value)
		return nil
	}
}

// WithBody sets the request body and content type.
func WithBody(body interface{}, contentType string) Option {
	return func(h *HTTP) error { return h.SetBody(body, contentType) }
}

// NewHTTP constructs an HTTP Transfer targeting url, defaulting to GET. The
// first Option to fail aborts construction and its error is returned.
func NewHTTP(url string, opts ...Option) (*HTTP, error) {
	h := &HTTP{
		base: &HTTPBase{
			b:       NewBase(url),
			method:  "GET",
			headers: make(map[string]string),
		},
	}
	for _, opt := range opts {
		if err := opt(h); err != nil {
			return nil, err
		}
	}
	return h, nil
}

// Base satisfies the Transfer interface.
func (h *HTTP) Base() *Base { return h.base.b }

// SetMethod validates and sets the HTTP method; only GET and POST are
// accepted (spec §4.3 "Method validation is strict").
func (h *HTTP) SetMethod(method string) error {
	m := strings.ToUpper(strings.TrimSpace(method))
	if m != "GET" && m != "POST" {
		return fmt.Errorf("transfer: unsupported method %q (only GET and POST are allowed)", method)
	}
	h.base.method = m
	return nil
}

// Method returns the configured HTTP method.
func (h *HTTP) Method() string { return h.base.method }

// SetHeader sets a header; an empty value removes it. Keys are case-folded
// per spec §4.3 "headers are case-folded; setting a header to 'no value'
// removes it". A non-empty Content-Type is mirrored automatically.
func (h *HTTP) SetHeader(name, value string) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return
	}
	if value == "" {
		delete(h.base.headers, key)
		h.base.b.Options.Header.Del(name)
		return
	}
	h.base.headers[key] = value
	h.base.b.Options.Header.Set(name, value)
	if key == "content-type" {
		h.base.contentType = value
	}
}

// Header returns a header's current value and whether it is set.
func (h *HTTP) Header(name string) (string, bool) {
	v, ok := h.base.headers[strings.ToLower(name)]
	return v, ok
}

// SetBearerToken sets Authorization: Bearer <token> (spec §6 wire contract).
func (h *HTTP) SetBearerToken(token string) {
	h.SetHeader("Authorization", "Bearer "+token)
}

// SetBasicAuth sets HTTP Basic authentication directly on the backend
// options (no secret-store integration; see DESIGN.md).
func (h *HTTP) SetBasicAuth(user, pass string) {
	h.base.b.Options.BasicAuthUser = user
	h.base.b.Options.BasicAuthPassword = pass
}

// SetBody encodes body per contentType, following spec §4.3's table:
// application/json or text/json marshal as JSON; x-www-form-urlencoded uses
// standard form encoding with bracketed nesting for map values; an unset
// content type with a map body defaults to JSON; any other content type
// paired with a map body is a configuration error raised at construction.
func (h *HTTP) SetBody(body interface{}, contentType string) error {
	if body == nil {
		h.base.body = nil
		return nil
	}
	if raw, ok := body.([]byte); ok {
		h.base.body = raw
		if contentType != "" {
			h.SetHeader("Content-Type", contentType)
		}
		return nil
	}
	if s, ok := body.(string); ok {
		h.base.body = []byte(s)
		if contentType != "" {
			h.SetHeader("Content-Type", contentType)
		}
		return nil
	}

	ct := strings.ToLower(strings.TrimSpace(contentType))
	switch {
	case ct == "" || ct == "application/json" || ct == "text/json":
		encoded, err := gojson.Marshal(body)
		if err != nil {
			return fmt.Errorf("transfer: failed to JSON-encode body: %w", err)
		}
		h.base.body = encoded
		h.SetHeader("Content-Type", "application/json")
	case ct == "application/x-www-form-urlencoded":
		m, ok := body.(map[string]interface{})
		if !ok {
			return fmt.Errorf("transfer: form-urlencoded body must be a map[string]interface{}")
		}
		values := url.Values{}
		encodeForm("", m, values)
		h.base.body = []byte(values.Encode())
		h.SetHeader("Content-Type", contentType)
	default:
		return fmt.Errorf("transfer: unsupported content type %q for a mapping body", contentType)
	}
	return nil
}

// encodeForm flattens a nested map into bracketed form keys, e.g.
// {"a": {"b": 1}} -> "a[b]=1".
func encodeForm(prefix string, m map[string]interface{}, values url.Values) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		key := k
		if prefix != "" {
			key = prefix + "[" + k + "]"
		}
		switch v := m[k].(type) {
		case map[string]interface{}:
			encodeForm(key, v, values)
		default:
			values.Set(key, fmt.Sprintf("%v", v))
		}
	}
}

// PrepareOptions realizes spec §4.3's "option composition at schedule time":
// POST moves body into the post-fields option; GET with a non-empty body
// sets a custom-request-method option so the backend sends a GET carrying a
// body.
func (h *HTTP) PrepareOptions() (backend.Options, error) {
	opts := h.base.b.Options.Clone()
	opts.Method = h.base.method
	opts.CustomMethod = ""
	opts.PostFields = nil
	if h.base.method == "POST" {
		opts.PostFields = h.base.body
	} else if h.base.method == "GET" && len(h.base.body) > 0 {
		opts.CustomMethod = "GET"
		opts.PostFields = h.base.body
	}
	return opts, nil
}

// Clone returns a new HTTP Transfer for the same URL, dropping body, the
// method override, and any custom-request option (spec §4.3 "Cloning must
// drop..."), and resetting the per-run state inherited from Base.
func (h *HTTP) Clone() *HTTP {
	nb := NewBase(h.base.b.url)
	nb.Options.Header = h.base.b.Options.Header.Clone()
	nb.ConnectionTimeoutMs = h.base.b.ConnectionTimeoutMs
	nb.TotalTimeoutMs = h.base.b.TotalTimeoutMs
	nb.Options.ConnectionTimeoutMs = h.base.b.Options.ConnectionTimeoutMs
	nb.Options.TotalTimeoutMs = h.base.b.Options.TotalTimeoutMs
	nb.Options.BasicAuthUser = h.base.b.Options.BasicAuthUser
	nb.Options.BasicAuthPassword = h.base.b.Options.BasicAuthPassword
	nb.Options.FollowRedirects = h.base.b.Options.FollowRedirects
	nb.Options.MaxRedirects = h.base.b.Options.MaxRedirects
	nb.Options.CookieJarPath = h.base.b.Options.CookieJarPath
	nb.Options.ProxyType = h.base.b.Options.ProxyType
	nb.Options.ProxyHost = h.base.b.Options.ProxyHost
	nb.Options.ProxyPort = h.base.b.Options.ProxyPort
	nb.Options.ProxyUser = h.base.b.Options.ProxyUser
	nb.Options.ProxyPassword = h.base.b.Options.ProxyPassword
	nb.Options.InsecureSkipVerify = h.base.b.Options.InsecureSkipVerify

	headers := make(map[string]string, len(h.base.headers))
	for k, v := range h.base.headers {
		headers[k] = v
	}

	return &HTTP{base: &HTTPBase{
		b:       nb,
		method:  "GET",
		headers: headers,
	}}
}

// HandleHeaderLine is a no-op for plain HTTP Transfers; dual-mode header
// inspection is an MCP concern (spec §4.4).
func (h *HTTP) HandleHeaderLine(line []byte, eng Engine) {}

// HandleBodyChunk appends every observed chunk to the stream buffer (spec
// §9 "curl_multi_getcontent vs streaming write callback": a single unified
// path always buffers; streamable only controls whether the chunk-by-chunk
// hook fires) and, if streaming is enabled, invokes the user's stream hook.
func (h *HTTP) HandleBodyChunk(data []byte, eng Engine) bool {
	b := h.base.b
	b.StreamBuf.Append(data)
	if !b.Streamable || b.OnStreamHook == nil {
		return true
	}
	cont := b.OnStreamHook(b.StreamBuf, eng)
	if !cont {
		b.StreamAborted = true
	}
	return cont
}

// HandleReady dispatches the ready hook.
func (h *HTTP) HandleReady(info Info, eng Engine) { dispatchReady(h.base.b, info, eng) }

// HandleTimeout dispatches the timeout hook.
func (h *HTTP) HandleTimeout(kind TimeoutKind, elapsedMs int64, eng Engine) {
	dispatchTimeout(h.base.b, kind, elapsedMs, eng)
}

// HandleError dispatches the error hook.
func (h *HTTP) HandleError(msg, code string, info Info, eng Engine) {
	dispatchError(h.base.b, msg, code, info, eng)
}

// HandleComplete dispatches the completion hook.
func (h *HTTP) HandleComplete(eng Engine) { dispatchComplete(h.base.b, eng) }
