// Package networking provides shared HTTP client construction for outbound
// calls to the hub API and to space endpoints.
package networking

import (
	"crypto/tls"
	"fmt"
	"net/http"
	"time"
)

// HTTPError carries an upstream non-2xx status with a bounded body excerpt.
type HTTPError struct {
	StatusCode int
	Body       string
}

// Error returns the error message.
func (e *HTTPError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("unexpected status %d", e.StatusCode)
	}
	return fmt.Sprintf("unexpected status %d: %s", e.StatusCode, e.Body)
}

// HTTPTimeout is the default overall timeout for outgoing HTTP requests.
const HTTPTimeout = 30 * time.Second

// HeaderAuthorization is the standard bearer-token header.
const HeaderAuthorization = "Authorization"

// HeaderHubAuthorization carries the caller's token to private spaces.
// It is deliberately distinct from the Authorization header so that the
// space-side reverse proxy never confuses gateway credentials with
// forwarded caller credentials.
const HeaderHubAuthorization = "X-HF-Authorization"

// HTTPClientBuilder provides a fluent interface for building HTTP clients.
type HTTPClientBuilder struct {
	clientTimeout         time.Duration
	tlsHandshakeTimeout   time.Duration
	responseHeaderTimeout time.Duration
	headers               map[string]string
}

// NewHTTPClientBuilder returns a new HTTPClientBuilder with safe defaults.
func NewHTTPClientBuilder() *HTTPClientBuilder {
	return &HTTPClientBuilder{
		clientTimeout:         HTTPTimeout,
		tlsHandshakeTimeout:   10 * time.Second,
		responseHeaderTimeout: 10 * time.Second,
		headers:               map[string]string{},
	}
}

// WithTimeout sets the overall client timeout. Zero disables the overall
// timeout entirely; long-lived SSE streams need this, with cancellation
// handled through the request context instead.
func (b *HTTPClientBuilder) WithTimeout(d time.Duration) *HTTPClientBuilder {
	if d >= 0 {
		b.clientTimeout = d
	}
	return b
}

// WithBearerToken attaches an Authorization: Bearer header to every request.
// Empty tokens are ignored so callers can pass through anonymous requests.
func (b *HTTPClientBuilder) WithBearerToken(token string) *HTTPClientBuilder {
	if token != "" {
		b.headers[HeaderAuthorization] = "Bearer " + token
	}
	return b
}

// WithHeader attaches a static header to every request.
func (b *HTTPClientBuilder) WithHeader(key, value string) *HTTPClientBuilder {
	if key != "" && value != "" {
		b.headers[key] = value
	}
	return b
}

// Build creates the configured HTTP client.
func (b *HTTPClientBuilder) Build() *http.Client {
	transport := &http.Transport{
		TLSHandshakeTimeout:   b.tlsHandshakeTimeout,
		ResponseHeaderTimeout: b.responseHeaderTimeout,
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
	}

	var rt http.RoundTripper = transport
	if len(b.headers) > 0 {
		rt = &headerTransport{transport: transport, headers: b.headers}
	}

	return &http.Client{
		Transport: rt,
		Timeout:   b.clientTimeout,
	}
}

// headerTransport injects static headers into every outgoing request.
type headerTransport struct {
	transport http.RoundTripper
	headers   map[string]string
}

// RoundTrip clones the request, adds the configured headers and forwards it.
func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	newReq := req.Clone(req.Context())
	for k, v := range t.headers {
		if newReq.Header.Get(k) == "" {
			newReq.Header.Set(k, v)
		}
	}
	return t.transport.RoundTrip(newReq)
}
