package backend

import (
	"fmt"
	"net/http"
	"net/url"

	"golang.org/x/net/proxy"
)

// applyProxy wires Options.ProxyType into transport, following the pairing
// used throughout the corpus's transport clients: golang.org/x/net/proxy for
// SOCKS5 (net/http has no native SOCKS5 dialer), plain http.Transport.Proxy
// for HTTP/HTTPS proxies.
func applyProxy(transport *http.Transport, o Options) error {
	switch o.ProxyType {
	case ProxyNone:
		return nil
	case ProxyHTTP, ProxyHTTPS:
		proxyURL := &url.URL{
			Scheme: string(o.ProxyType),
			Host:   fmt.Sprintf("%s:%d", o.ProxyHost, o.ProxyPort),
		}
		if o.ProxyUser != "" {
			proxyURL.User = url.UserPassword(o.ProxyUser, o.ProxyPassword)
		}
		transport.Proxy = http.ProxyURL(proxyURL)
		return nil
	case ProxySOCKS5:
		var auth *proxy.Auth
		if o.ProxyUser != "" {
			auth = &proxy.Auth{User: o.ProxyUser, Password: o.ProxyPassword}
		}
		addr := fmt.Sprintf("%s:%d", o.ProxyHost, o.ProxyPort)
		dialer, err := proxy.SOCKS5("tcp", addr, auth, proxy.Direct)
		if err != nil {
			return fmt.Errorf("failed to build socks5 dialer: %w", err)
		}
		transport.DialContext = nil
		transport.Dial = dialer.Dial
		return nil
	default:
		return fmt.Errorf("unsupported proxy type: %q", o.ProxyType)
	}
}
