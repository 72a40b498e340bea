// Package backend realizes the non-blocking HTTP "multi" interface the
// engine package drives: a per-handle option struct, write/header callback
// hooks, and a completion queue, all expressed over net/http since the
// reference corpus carries no direct Go binding to a libcurl-style multi
// interface.
package backend

import "net/http"

// ProxyType selects how Options.Proxy* fields are interpreted.
type ProxyType string

const (
	ProxyNone   ProxyType = ""
	ProxyHTTP   ProxyType = "http"
	ProxyHTTPS  ProxyType = "https"
	ProxySOCKS5 ProxyType = "socks5"
)

// WriteCallback receives a chunk of the response body as it arrives. It must
// return len(data) to keep the transfer running; any other return value
// aborts it (the Multi reports Outcome WriteError for that handle).
type WriteCallback func(handle *Handle, data []byte) int

// HeaderCallback receives one response header line, CRLF included. It
// returns the number of bytes consumed; Multi does not consult the return
// value, so a header callback cannot abort the transfer.
type HeaderCallback func(handle *Handle, line []byte) int

// Options is the Go realization of the backend option vocabulary: every
// field the application-facing Transfer types push into before a handle is
// materialized and handed to a Multi.
type Options struct {
	URL    string
	Method string // GET or POST; CustomMethod overrides the wire method.

	PostFields   []byte
	CustomMethod string

	Header http.Header

	TotalTimeoutMs      int
	ConnectionTimeoutMs int

	FollowRedirects bool
	MaxRedirects    int

	CookieJarPath string

	HTTPVersion string // "", "1.1", "2"

	BasicAuthUser     string
	BasicAuthPassword string

	InsecureSkipVerify bool

	ProxyType     ProxyType
	ProxyHost     string
	ProxyPort     int
	ProxyUser     string
	ProxyPassword string

	Verbose       bool
	VerboseOutput interface {
		Write([]byte) (int, error)
	}

	ForbidReuse  bool
	FreshConnect bool

	WriteCallback  WriteCallback
	HeaderCallback HeaderCallback

	FailOnError bool
}

// Clone returns a deep-enough copy for reuse across handles: the Header map
// is copied so mutating the clone never mutates the original.
func (o Options) Clone() Options {
	out := o
	if o.Header != nil {
		out.Header = o.Header.Clone()
	}
	return out
}

// method returns the wire method to use, honoring CustomMethod override.
func (o Options) method() string {
	if o.CustomMethod != "" {
		return o.CustomMethod
	}
	if o.Method == "" {
		return http.MethodGet
	}
	return o.Method
}
