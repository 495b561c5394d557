// Package httpclient provides a centralized HTTP client factory with preset configurations.
package httpclient

import (
	"crypto/tls"
	"net/http"
	"time"
)

// Preset timeout durations for common use cases.
const (
	// DefaultTimeout is the standard timeout for most HTTP requests (30s).
	DefaultTimeout = 30 * time.Second

	// ArrTimeout matches the default api_timeout advanced setting (120s).
	ArrTimeout = 120 * time.Second

	// PlexTimeout is used for plex.tv PIN and account calls.
	PlexTimeout = 15 * time.Second
)

// Options configures an HTTP client.
type Options struct {
	Timeout            time.Duration
	Transport          *http.Transport
	InsecureSkipVerify bool
}

// Option is a functional option for configuring HTTP clients.
type Option func(*Options)

// WithTimeout sets the client timeout.
func WithTimeout(d time.Duration) Option {
	return func(o *Options) {
		o.Timeout = d
	}
}

// WithTransport sets a custom transport.
func WithTransport(t *http.Transport) Option {
	return func(o *Options) {
		o.Transport = t
	}
}

// WithInsecureSkipVerify disables certificate verification, for self-signed Arr installs.
func WithInsecureSkipVerify(skip bool) Option {
	return func(o *Options) {
		o.InsecureSkipVerify = skip
	}
}

// New creates a new HTTP client with the given options.
// If no timeout is specified, DefaultTimeout (30s) is used.
func New(opts ...Option) *http.Client {
	cfg := &Options{
		Timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	client := &http.Client{
		Timeout: cfg.Timeout,
	}

	transport := cfg.Transport
	if transport == nil && cfg.InsecureSkipVerify {
		transport = http.DefaultTransport.(*http.Transport).Clone()
	}

	if transport != nil {
		if cfg.InsecureSkipVerify {
			if transport.TLSClientConfig == nil {
				transport.TLSClientConfig = &tls.Config{}
			}
			transport.TLSClientConfig.InsecureSkipVerify = true //nolint:gosec
		}
		client.Transport = transport
	}

	return client
}

// NewArr creates a client for Arr API calls using the given timeout, falling back to ArrTimeout.
func NewArr(timeout time.Duration, opts ...Option) *http.Client {
	if timeout <= 0 {
		timeout = ArrTimeout
	}
	return New(append([]Option{WithTimeout(timeout)}, opts...)...)
}

// NewPlex creates a client for plex.tv calls.
func NewPlex() *http.Client {
	return New(WithTimeout(PlexTimeout))
}
