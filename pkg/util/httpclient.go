package util

import (
	"net/http"
	"time"
)

// NewStreamingHTTPClient bounds only the wait for response headers, so a body
// that keeps delivering data is never cut off. Callers bound non-streaming
// calls with a context deadline.
func NewStreamingHTTPClient(headerTimeout time.Duration) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.ResponseHeaderTimeout = headerTimeout
	return &http.Client{Transport: transport}
}
