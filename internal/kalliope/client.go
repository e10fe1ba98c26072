package kalliope

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/msgpo/kalliope-app/internal/synapse"
)

// API paths relative to the server base URL.
const (
	pathSynapses   = "/synapses"
	pathStartByID  = "/synapses/start/id/"
	pathStartOrder = "/synapses/start/order"
)

// Trigger values passed to Recorder.
const (
	TriggerName  = "name"
	TriggerOrder = "order"
)

// maxResponseSize bounds how much of a response body is read.
const maxResponseSize = 8 << 20

// Recorder receives the outcome of every synapse start.
// influxdb.Client and audit.Recorder implement it.
type Recorder interface {
	RecordRun(synapse, trigger, status string, duration time.Duration, err error)
}

// Logger is the logging interface used by Client.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

// Recorders fans each run out to every recorder in order.
type Recorders []Recorder

func (rs Recorders) RecordRun(name, trigger, status string, duration time.Duration, err error) {
	for _, r := range rs {
		r.RecordRun(name, trigger, status, duration, err)
	}
}

type noopRecorder struct{}

func (noopRecorder) RecordRun(string, string, string, time.Duration, error) {}

// Client calls the Kalliope REST API.
//
// Thread Safety:
//   - All methods are safe for concurrent use. Concurrent starts are
//     independent requests with no ordering between them.
type Client struct {
	http     *http.Client
	recorder Recorder
	logger   Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout sets the HTTP client timeout. Zero disables it.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		hc := *c.http
		hc.Timeout = d
		c.http = &hc
	}
}

// WithRecorder sets the receiver of run telemetry.
func WithRecorder(r Recorder) Option {
	return func(c *Client) {
		if r != nil {
			c.recorder = r
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// New creates a Client. Without options it uses a fresh http.Client with
// no timeout, no telemetry and no logging.
func New(opts ...Option) *Client {
	c := &Client{
		http:     &http.Client{},
		recorder: noopRecorder{},
		logger:   noopLogger{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetSynapses lists the synapses configured on the server.
//
// The body is decoded tolerantly: entries that cannot be used are skipped,
// and a body without a synapse list yields an empty, non-nil slice.
func (c *Client) GetSynapses(ctx context.Context, settings synapse.Settings) ([]synapse.Synapse, error) {
	body, err := c.do(ctx, http.MethodGet, settings, pathSynapses, nil)
	if err != nil {
		return nil, err
	}
	return synapse.ParseSynapses(body), nil
}

// RunSynapse starts s with the parameters of its own signal.
func (c *Client) RunSynapse(ctx context.Context, s synapse.Synapse, settings synapse.Settings) (synapse.OrderResponse, error) {
	return c.RunSynapseByName(ctx, s.Name, settings, s.Signal)
}

// RunSynapseByName starts the synapse called name. Parameters are taken
// from signal, which may be nil; their names must be non-empty and unique.
func (c *Client) RunSynapseByName(ctx context.Context, name string, settings synapse.Settings, signal synapse.Signal) (synapse.OrderResponse, error) {
	if err := synapse.ValidateName(name); err != nil {
		return synapse.OrderResponse{}, err
	}
	if signal != nil {
		if err := synapse.ValidateParams(signal.Params()); err != nil {
			return synapse.OrderResponse{}, err
		}
	}
	payload := synapse.BuildStartPayload(settings, signal)
	return c.start(ctx, settings, pathStartByID+url.PathEscape(name), payload, name, TriggerName)
}

// RunOrder sends free text to the server, which runs every synapse whose
// order signal matches it.
func (c *Client) RunOrder(ctx context.Context, order string, settings synapse.Settings) (synapse.OrderResponse, error) {
	order = strings.TrimSpace(order)
	if order == "" {
		return synapse.OrderResponse{}, ErrEmptyOrder
	}
	payload := synapse.OrderPayload{Order: order, Mute: settings.Mute}
	return c.start(ctx, settings, pathStartOrder, payload, order, TriggerOrder)
}

// start posts payload to path and records the outcome.
func (c *Client) start(ctx context.Context, settings synapse.Settings, path string, payload any, label, trigger string) (synapse.OrderResponse, error) {
	begin := time.Now()

	body, err := c.do(ctx, http.MethodPost, settings, path, payload)
	if err != nil {
		c.recorder.RecordRun(label, trigger, "", time.Since(begin), err)
		return synapse.OrderResponse{}, err
	}

	resp := synapse.ResponseToObject(body)
	c.recorder.RecordRun(label, trigger, resp.Status, time.Since(begin), nil)
	return resp, nil
}

// do performs an authenticated request and returns the response body of a
// 2xx answer.
func (c *Client) do(ctx context.Context, method string, settings synapse.Settings, path string, payload any) ([]byte, error) {
	endpoint, err := endpointURL(settings, path)
	if err != nil {
		return nil, err
	}

	var bodyReader io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("kalliope: encoding request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidURL, err)
	}
	req.SetBasicAuth(settings.Username, settings.Password)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.logger.Debug("kalliope request", "method", method, "path", path)

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("kalliope request failed", "method", method, "path", path, "error", err)
		return nil, fmt.Errorf("%w: %s %s: %w", ErrRequestFailed, method, path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s response: %w", ErrRequestFailed, path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Warn("kalliope request rejected", "method", method, "path", path, "status", resp.StatusCode)
		return nil, &StatusError{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Body:       body,
		}
	}
	return body, nil
}

// endpointURL joins the settings base URL and an escaped API path.
func endpointURL(settings synapse.Settings, path string) (string, error) {
	base := settings.BaseURL()
	if base == "" {
		return "", fmt.Errorf("%w: url is empty", ErrInvalidURL)
	}
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidURL, err)
	}
	if u.Host == "" {
		return "", fmt.Errorf("%w: %q has no host", ErrInvalidURL, settings.URL)
	}
	return base + path, nil
}
