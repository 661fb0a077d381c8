// Package remote implements backend.Adapter on top of the records HTTP API:
//
//	GET    {base}/records       list, newest first
//	POST   {base}/records       create, returns the stored record
//	DELETE {base}/records/{id}  delete one
//	DELETE {base}/records       delete all
//
// Every call is a network round-trip and may fail. Only list requests are
// retried; writes are attempted exactly once.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/JonMunkholm/spraylog/internal/backend"
	"github.com/JonMunkholm/spraylog/internal/record"
)

// RetryPolicy controls the retry behaviour for list requests.
type RetryPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	Jitter     float64
}

// DefaultRetryPolicy implements a conservative retry strategy.
var DefaultRetryPolicy = RetryPolicy{
	MaxRetries: 2,
	BaseDelay:  250 * time.Millisecond,
	MaxDelay:   2 * time.Second,
	Jitter:     0.25,
}

// ErrMalformedResponse is wrapped by errors for 2xx responses whose body
// could not be understood.
var ErrMalformedResponse = errors.New("malformed response")

// DefaultTimeout bounds a single HTTP round-trip.
const DefaultTimeout = 10 * time.Second

// Option configures a Store.
type Option func(*Store)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(s *Store) {
		if h != nil {
			s.httpClient = h
		}
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.httpClient.Timeout = d
		}
	}
}

// WithRetryPolicy overrides the default retry configuration.
func WithRetryPolicy(p RetryPolicy) Option {
	return func(s *Store) {
		s.retry = p
	}
}

// WithLogger sets the logger used for retry diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

var _ backend.Adapter = (*Store)(nil)

// Store talks to the records API rooted at a base URL.
type Store struct {
	baseURL    *url.URL
	httpClient *http.Client
	retry      RetryPolicy
	logger     *slog.Logger
}

// New creates a Store for the API base URL, e.g. "http://localhost:8080/api".
func New(baseURL string, opts ...Option) (*Store, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, errors.New("remote: base URL is required")
	}
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("remote: invalid base URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("remote: base URL must be http or https, got %q", baseURL)
	}

	s := &Store{
		baseURL:    parsed,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		retry:      DefaultRetryPolicy,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.retry.MaxRetries < 0 {
		s.retry.MaxRetries = 0
	}
	return s, nil
}

func (s *Store) List(ctx context.Context) ([]record.Record, error) {
	var records []record.Record
	if err := s.do(ctx, http.MethodGet, nil, nil, &records, true); err != nil {
		return nil, err
	}
	if records == nil {
		records = []record.Record{}
	}
	return records, nil
}

func (s *Store) Create(ctx context.Context, c record.Candidate) (record.Record, error) {
	var created record.Record
	if err := s.do(ctx, http.MethodPost, nil, c, &created, false); err != nil {
		return record.Record{}, err
	}
	if created.ID == "" {
		return record.Record{}, fmt.Errorf("remote: %w: created record has no id", ErrMalformedResponse)
	}
	return created, nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return backend.ErrNotFound
	}
	return s.do(ctx, http.MethodDelete, []string{id}, nil, nil, false)
}

func (s *Store) DeleteAll(ctx context.Context) error {
	return s.do(ctx, http.MethodDelete, nil, nil, nil, false)
}

// Close releases idle connections.
func (s *Store) Close() error {
	s.httpClient.CloseIdleConnections()
	return nil
}

func (s *Store) do(ctx context.Context, method string, segments []string, in, out any, retry bool) error {
	target := s.recordsURL(segments...)

	var payload []byte
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("remote: encode request: %w", err)
		}
		payload = data
	}

	maxRetries := 0
	if retry {
		maxRetries = s.retry.MaxRetries
	}
	bo := newBackoff(s.retry.BaseDelay, s.retry.MaxDelay, s.retry.Jitter)

	for attempt := 0; ; attempt++ {
		err := s.roundTrip(ctx, method, target, payload, out)
		if err == nil {
			return nil
		}
		if attempt >= maxRetries || !shouldRetry(err) {
			return err
		}

		delay := bo.forAttempt(attempt)
		s.logger.Debug("retrying records request",
			"method", method,
			"url", target,
			"attempt", attempt+1,
			"delay", delay,
			"error", err,
		)
		if err := sleep(ctx, delay); err != nil {
			return err
		}
	}
}

func (s *Store) roundTrip(ctx context.Context, method, target string, payload []byte, out any) error {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return fmt.Errorf("remote: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("remote: %s %s: %w", method, target, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("remote: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newAPIError(resp.StatusCode, resp.Header.Get("Content-Type"), data)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("remote: %w: %v", ErrMalformedResponse, err)
	}
	return nil
}

func (s *Store) recordsURL(segments ...string) string {
	elems := []string{"records"}
	for _, seg := range segments {
		elems = append(elems, url.PathEscape(seg))
	}
	return s.baseURL.JoinPath(elems...).String()
}

func shouldRetry(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Retryable()
	}
	return !errors.Is(err, ErrMalformedResponse)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
