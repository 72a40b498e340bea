package transfer

// HTTPTransferBuilder replaces the source's prototype-cloning factory (spec
// §9 "Prototype-cloning factory"): instead of a shared global default
// Transfer mutated in place, it holds its own default settings explicitly
// and produces a fresh HTTP Transfer per Build call. No process-wide state.
type HTTPTransferBuilder struct {
	headers             map[string]string
	connectionTimeoutMs *int
	totalTimeoutMs      *int
	followRedirects     bool
	maxRedirects        int
	cookieJarPath       string
}

// NewHTTPTransferBuilder returns an empty builder.
func NewHTTPTransferBuilder() *HTTPTransferBuilder {
	return &HTTPTransferBuilder{headers: make(map[string]string)}
}

// WithDefaultHeader records a header applied to every built Transfer.
func (b *HTTPTransferBuilder) WithDefaultHeader(name, value string) *HTTPTransferBuilder {
	b.headers[name] = value
	return b
}

// WithDefaultTimeouts records connection/total timeouts applied to every
// built Transfer.
func (b *HTTPTransferBuilder) WithDefaultTimeouts(connectionMs, totalMs int) *HTTPTransferBuilder {
	b.connectionTimeoutMs = &connectionMs
	b.totalTimeoutMs = &totalMs
	return b
}

// WithDefaultRedirectPolicy records the follow-redirects policy applied to
// every built Transfer.
func (b *HTTPTransferBuilder) WithDefaultRedirectPolicy(follow bool, max int) *HTTPTransferBuilder {
	b.followRedirects = follow
	b.maxRedirects = max
	return b
}

// WithDefaultCookieJarPath records a cookie jar file applied to every built
// Transfer.
func (b *HTTPTransferBuilder) WithDefaultCookieJarPath(path string) *HTTPTransferBuilder {
	b.cookieJarPath = path
	return b
}

// Build constructs a new HTTP Transfer for url, carrying this builder's
// defaults, optionally overridden with method/body/contentType.
func (b *HTTPTransferBuilder) Build(url, method string, body interface{}, contentType string) (*HTTP, error) {
	h, err := NewHTTP(url)
	if err != nil {
		return nil, err
	}
	for name, value := range b.headers {
		h.SetHeader(name, value)
	}
	if b.connectionTimeoutMs != nil {
		h.Base().SetConnectionTimeout(*b.connectionTimeoutMs)
	}
	if b.totalTimeoutMs != nil {
		h.Base().SetTotalTimeout(*b.totalTimeoutMs)
	}
	h.Base().Options.FollowRedirects = b.followRedirects
	h.Base().Options.MaxRedirects = b.maxRedirects
	h.Base().Options.CookieJarPath = b.cookieJarPath

	if method != "" {
		if err := h.SetMethod(method); err != nil {
			return nil, err
		}
	}
	if body != nil {
		if err := h.SetBody(body, contentType); err != nil {
			return nil, err
		}
	}
	return h, nil
}
