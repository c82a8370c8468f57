// Package collector fetches content from the remote platform API and
// stages it as JSON files for the pipeline.
package collector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"socialpulse/internal/config"
	"socialpulse/internal/crawler"
	"socialpulse/internal/infrastructure"
)

// APIError is a structured failure reported by the platform itself,
// as opposed to a transport failure.
type APIError struct {
	Code    int    `json:"error_code"`
	Message string `json:"error_msg"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Code, e.Message)
}

// ErrEmptyResult reports a well-formed response that carried no payload.
// Callers treat it as "nothing there", not as a failure.
var ErrEmptyResult = errors.New("empty api result")

// Client issues method calls against the platform API. Every request
// passes through the shared sliding-window limiter, which is the single
// outbound channel for one API key.
type Client struct {
	baseURL string
	token   string
	version string
	limiter *crawler.RateLimiter
	http    *http.Client
	logger  *slog.Logger
}

// NewClient builds a client from API configuration and the shared limiter
func NewClient(cfg config.APIConfig, limiter *crawler.RateLimiter, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL: cfg.BaseURL,
		token:   cfg.Token,
		version: cfg.Version,
		limiter: limiter,
		http:    &http.Client{Timeout: cfg.Timeout},
		logger:  logger,
	}
}

// envelope is the three-way response shape every method returns: exactly
// one of Response or Error is set, and Response may be empty.
type envelope struct {
	Response json.RawMessage `json:"response"`
	Error    *APIError       `json:"error"`
}

// call performs one rate-limited method invocation and decodes the result
// into out. Returns ErrEmptyResult when the response carries no payload
// and *APIError when the platform rejected the call.
func (c *Client) call(ctx context.Context, method string, params url.Values, out any) error {
	params.Set("access_token", c.token)
	params.Set("v", c.version)

	var body []byte
	err := c.limiter.Execute(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet,
			c.baseURL+"/"+method+"?"+params.Encode(), nil)
		if err != nil {
			return fmt.Errorf("build request %s: %w", method, err)
		}
		resp, err := c.http.Do(req)
		if err != nil {
			return fmt.Errorf("call %s: %w", method, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("call %s: unexpected status %d", method, resp.StatusCode)
		}
		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read %s response: %w", method, err)
		}
		return nil
	})
	if err != nil {
		infrastructure.OutboundRequestsTotal.WithLabelValues(method, "transport_error").Inc()
		return err
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		infrastructure.OutboundRequestsTotal.WithLabelValues(method, "transport_error").Inc()
		return fmt.Errorf("decode %s response: %w", method, err)
	}
	if env.Error != nil {
		infrastructure.OutboundRequestsTotal.WithLabelValues(method, "api_error").Inc()
		c.logger.Warn("platform rejected call",
			slog.String("method", method),
			slog.Int("code", env.Error.Code),
			slog.String("message", env.Error.Message))
		return env.Error
	}
	if len(env.Response) == 0 || string(env.Response) == "null" {
		infrastructure.OutboundRequestsTotal.WithLabelValues(method, "empty").Inc()
		return ErrEmptyResult
	}

	if err := json.Unmarshal(env.Response, out); err != nil {
		infrastructure.OutboundRequestsTotal.WithLabelValues(method, "transport_error").Inc()
		return fmt.Errorf("decode %s payload: %w", method, err)
	}
	infrastructure.OutboundRequestsTotal.WithLabelValues(method, "ok").Inc()
	return nil
}

// clampDate is the lower bound for item timestamps in one collection pass
func clampDate(t time.Time) int64 {
	return t.Unix()
}
