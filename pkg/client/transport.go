package client

import (
	"crypto/tls"
	"net"
	"net/http"
	"time"

	"golang.org/x/net/http2"
)

// Transport timeouts and limits, see DefaultTransport.
const (
	// DialTimeout is the maximum connection initialization time.
	DialTimeout = 3 * time.Second
	// KeepAlive is the interval between keep-alive probes.
	KeepAlive = 10 * time.Second
	// TLSHandshakeTimeout is the maximum TLS handshake time.
	TLSHandshakeTimeout = 5 * time.Second
	// ResponseHeaderTimeout is the maximum time to wait for the response headers.
	ResponseHeaderTimeout = 20 * time.Second
	// MaxConnectionsPerHost is the maximum number of open connections to one host.
	MaxConnectionsPerHost = 32
)

// DefaultTransport returns a transport with reasonable timeouts and limits, HTTP2 is preferred.
func DefaultTransport() http.RoundTripper {
	dialer := Dialer()
	return &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		TLSHandshakeTimeout:   TLSHandshakeTimeout,
		ResponseHeaderTimeout: ResponseHeaderTimeout,
		MaxConnsPerHost:       MaxConnectionsPerHost,
		MaxIdleConnsPerHost:   MaxConnectionsPerHost,
	}
}

// HTTP2Transport returns a transport that speaks the HTTP2 protocol only,
// without the upgrade from HTTP1. The server must support HTTP2.
func HTTP2Transport() http.RoundTripper {
	dialer := Dialer()
	return &http2.Transport{
		DialTLS: func(network, addr string, cfg *tls.Config) (net.Conn, error) {
			return tls.DialWithDialer(dialer, network, addr, cfg)
		},
		ReadIdleTimeout:  3 * time.Second,
		PingTimeout:      3 * time.Second,
		WriteByteTimeout: 3 * time.Second,
	}
}

// Dialer returns the default dialer used by the transports above.
func Dialer() *net.Dialer {
	return &net.Dialer{
		Timeout:   DialTimeout,
		KeepAlive: KeepAlive,
	}
}
