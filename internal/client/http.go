// Package client typed HTTP clients for the upstream user/product services.
//
// Failure policy: a transport-level failure (refused connection, timeout,
// DNS) and a structurally valid response whose success flag is false are
// classified the same way, as a dependency failure carrying the upstream
// service name. Callers never see transport error types.
package client

import (
	"encoding/json"
	"net"
	"net/http"
	"time"
)

// envelope mirrors the uniform response body of the upstream services.
type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// newHTTPClient bounds the connect phase and the whole call separately.
func newHTTPClient(connectTimeout, timeout time.Duration) *http.Client {
	if connectTimeout <= 0 {
		connectTimeout = 5 * time.Second
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout: connectTimeout,
			}).DialContext,
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 100,
		},
	}
}
