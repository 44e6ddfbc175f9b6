package connectivity

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

const (
	defaultProbeURL     = "https://clients3.google.com/generate_204"
	defaultProbeTimeout = 5 * time.Second
)

// HTTPProbe is a Provider that checks reachability by issuing a small HTTP
// request against a well-known endpoint. A failed request means offline; it
// is the answer, not an error.
type HTTPProbe struct {
	client  *http.Client
	url     string
	timeout time.Duration
}

var _ Provider = (*HTTPProbe)(nil)

// ProbeOption customizes an HTTPProbe.
type ProbeOption func(*HTTPProbe)

// WithProbeURL overrides the probed endpoint.
func WithProbeURL(url string) ProbeOption {
	return func(p *HTTPProbe) {
		p.url = url
	}
}

// WithProbeTimeout bounds each probe request.
func WithProbeTimeout(timeout time.Duration) ProbeOption {
	return func(p *HTTPProbe) {
		p.timeout = timeout
	}
}

// WithProbeHTTPClient supplies a custom HTTP client.
func WithProbeHTTPClient(client *http.Client) ProbeOption {
	return func(p *HTTPProbe) {
		p.client = client
	}
}

// NewHTTPProbe creates a probe with sane defaults.
func NewHTTPProbe(opts ...ProbeOption) *HTTPProbe {
	probe := &HTTPProbe{
		client:  http.DefaultClient,
		url:     defaultProbeURL,
		timeout: defaultProbeTimeout,
	}

	for _, opt := range opts {
		opt(probe)
	}

	return probe
}

// Fetch performs one probe request. The request reaching the endpoint at all
// proves a connection; a server-side 5xx proves the link but not a healthy
// internet path, which maps onto Connected without InternetReachable.
func (p *HTTPProbe) Fetch(ctx context.Context) (State, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	reqCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodHead, p.url, nil)
	if err != nil {
		return State{}, fmt.Errorf("build probe request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		// Caller cancellation is not a connectivity verdict.
		if errors.Is(err, context.Canceled) && ctx.Err() != nil {
			return State{}, fmt.Errorf("probe cancelled: %w", err)
		}

		return State{}, nil
	}

	_ = resp.Body.Close()

	return State{
		Connected:         true,
		InternetReachable: resp.StatusCode < http.StatusInternalServerError,
	}, nil
}
