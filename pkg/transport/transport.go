// Package transport sends JSON requests to the remote CRUD API and turns every
// failure into an *apierr.Envelope.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/goliatone/go-leadconsole/pkg/apierr"
)

const maxResponseBytes = 4 << 20

// RequestIDHeader carries the per-request correlation id.
const RequestIDHeader = "X-Request-ID"

// Request describes one call against the API. Path is relative to the base URL.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Body   any
}

// Doer performs a request and returns the decoded JSON body. Errors are always
// *apierr.Envelope values.
type Doer interface {
	Do(ctx context.Context, req Request) (any, error)
}

// Func adapts a plain function to Doer.
type Func func(ctx context.Context, req Request) (any, error)

func (f Func) Do(ctx context.Context, req Request) (any, error) {
	return f(ctx, req)
}

// TokenSource supplies the credential attached to outbound calls.
type TokenSource interface {
	Token() string
}

// Option configures the HTTP transport.
type Option func(*HTTP)

// WithHTTPClient overrides the underlying client.
func WithHTTPClient(client *http.Client) Option {
	return func(h *HTTP) {
		if client != nil {
			h.client = client
		}
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(h *HTTP) {
		h.timeout = timeout
	}
}

// WithTokenSource attaches the credential returned by source to each request.
func WithTokenSource(source TokenSource) Option {
	return func(h *HTTP) {
		h.tokens = source
	}
}

// WithAuthScheme prefixes the Authorization header value, e.g. "Bearer". The
// default sends the raw token.
func WithAuthScheme(scheme string) Option {
	return func(h *HTTP) {
		h.scheme = strings.TrimSpace(scheme)
	}
}

// WithRateLimit caps outbound requests per second. A non-positive limit
// disables limiting.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(h *HTTP) {
		if perSecond <= 0 {
			h.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		h.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// WithLogger sets the request logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(h *HTTP) {
		h.logger = logger
	}
}

// HTTP is the net/http backed Doer.
type HTTP struct {
	base    *url.URL
	client  *http.Client
	timeout time.Duration
	tokens  TokenSource
	scheme  string
	limiter *rate.Limiter
	logger  zerolog.Logger
}

// New returns a transport rooted at baseURL.
func New(baseURL string, opts ...Option) (*HTTP, error) {
	trimmed := strings.TrimSpace(baseURL)
	if trimmed == "" {
		return nil, errors.New("transport: base url is required")
	}
	base, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("transport: parse base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("transport: base url %q must be absolute", baseURL)
	}
	if !strings.HasSuffix(base.Path, "/") {
		base.Path += "/"
	}
	h := &HTTP{
		base:    base,
		client:  http.DefaultClient,
		timeout: 30 * time.Second,
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h, nil
}

// Do sends req and decodes the JSON response.
func (h *HTTP) Do(ctx context.Context, req Request) (any, error) {
	if h.limiter != nil {
		if err := h.limiter.Wait(ctx); err != nil {
			return nil, apierr.Normalize(err)
		}
	}
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	httpReq, requestID, err := h.build(ctx, req)
	if err != nil {
		return nil, &apierr.Envelope{Message: err.Error(), Err: err}
	}

	started := time.Now()
	resp, err := h.client.Do(httpReq)
	if err != nil {
		env := apierr.Normalize(err)
		h.logger.Debug().
			Str("request_id", requestID).
			Str("method", httpReq.Method).
			Str("path", req.Path).
			Err(err).
			Msg("request failed")
		return nil, env
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, apierr.Normalize(err)
	}

	h.logger.Debug().
		Str("request_id", requestID).
		Str("method", httpReq.Method).
		Str("path", req.Path).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(started)).
		Msg("request completed")

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, apierr.FromResponse(resp.StatusCode, body)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, nil
	}
	var decoded any
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, &apierr.Envelope{
			Status:  resp.StatusCode,
			Message: "Invalid response from server",
			Err:     fmt.Errorf("transport: decode response: %w", err),
		}
	}
	return decoded, nil
}

func (h *HTTP) build(ctx context.Context, req Request) (*http.Request, string, error) {
	method := strings.ToUpper(strings.TrimSpace(req.Method))
	if method == "" {
		method = http.MethodGet
	}
	target := h.base.ResolveReference(&url.URL{Path: strings.TrimLeft(req.Path, "/")})
	if len(req.Query) > 0 {
		target.RawQuery = req.Query.Encode()
	}

	var body io.Reader
	if req.Body != nil {
		payload, err := json.Marshal(req.Body)
		if err != nil {
			return nil, "", fmt.Errorf("transport: encode body: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, target.String(), body)
	if err != nil {
		return nil, "", fmt.Errorf("transport: build request: %w", err)
	}
	requestID := uuid.NewString()
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set(RequestIDHeader, requestID)
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if h.tokens != nil {
		if token := h.tokens.Token(); token != "" {
			if h.scheme != "" {
				token = h.scheme + " " + token
			}
			httpReq.Header.Set("Authorization", token)
		}
	}
	return httpReq, requestID, nil
}
