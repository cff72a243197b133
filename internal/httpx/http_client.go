// Package httpx holds the shared HTTP client used for outbound API
// calls, so every integration honors the same configured timeout.
package httpx

import (
	"net/http"
	"time"
)

const defaultExternalHTTPTimeout = 90 * time.Second

var externalHTTPClient = &http.Client{
	Timeout: defaultExternalHTTPTimeout,
}

// ConfigureExternalHTTPClient applies the configured timeout in seconds
// and returns the applied duration. Zero or negative keeps the default.
func ConfigureExternalHTTPClient(seconds int) time.Duration {
	timeout := defaultExternalHTTPTimeout
	if seconds > 0 {
		timeout = time.Duration(seconds) * time.Second
	}
	externalHTTPClient.Timeout = timeout
	return timeout
}

// ExternalHTTPClient returns the shared outbound client.
func ExternalHTTPClient() *http.Client {
	return externalHTTPClient
}
