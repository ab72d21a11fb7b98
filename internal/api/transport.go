package api

import (
	"crypto/tls"
	"net"
	"net/http"
	"time"
)

// DefaultTimeout bounds connect plus read for one attempt.
const DefaultTimeout = 30 * time.Second

// Transport sends one HTTP request. *http.Client satisfies it.
type Transport interface {
	Do(req *http.Request) (*http.Response, error)
}

// NewHTTPClient builds the client shared by the dispatcher and the token
// endpoint calls. sslVerify=false disables certificate checks for lab
// deployments with self-signed certificates.
func NewHTTPClient(timeout time.Duration, sslVerify bool) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   timeout,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			TLSHandshakeTimeout: 10 * time.Second,
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSClientConfig:     &tls.Config{InsecureSkipVerify: !sslVerify}, //nolint:gosec // G402: opt-in via ssl_verify: false
		},
	}
}
