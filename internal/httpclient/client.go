package httpclient

import (
	"crypto/tls"
	"net"
	"net/http"
	"time"
)

// New creates an HTTP client for feed polling.
//
// There is no whole-request timeout: response bodies are read incrementally
// and bounded per byte by the caller. connectTimeout bounds dialing and the
// TLS handshake, responseTimeout bounds the wait for response headers.
func New(tlsConfig *tls.Config, connectTimeout, responseTimeout time.Duration) *http.Client {
	dialer := &net.Dialer{
		Timeout:   connectTimeout,
		KeepAlive: 30 * time.Second,
	}

	transport := &http.Transport{
		Proxy:                  http.ProxyFromEnvironment,
		DialContext:            dialer.DialContext,
		TLSClientConfig:        tlsConfig,
		TLSHandshakeTimeout:    connectTimeout,
		ResponseHeaderTimeout:  responseTimeout,
		ExpectContinueTimeout:  1 * time.Second,
		IdleConnTimeout:        60 * time.Second,
		MaxIdleConns:           10,
		MaxIdleConnsPerHost:    2,
		MaxResponseHeaderBytes: 64 << 10,
		// Bodies are parsed as they arrive; transparent gzip would only
		// add a decompression buffer in front of the parser.
		DisableCompression: true,
	}

	return &http.Client{
		Transport: transport,
	}
}
