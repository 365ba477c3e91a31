// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package gemini

import (
	"bytes"
	"context"
	"crypto/sha256"
	"crypto/tls"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/jeranaias/megabot/internal/provider"
)

// Configuration constants for the Gemini API.
const (
	// DefaultBaseURL is the Generative Language API endpoint.
	DefaultBaseURL = "https://generativelanguage.googleapis.com"

	// DefaultModel is used when no model is configured.
	DefaultModel = "gemini-2.5-flash"

	// DefaultConnectTimeout bounds dialing and TLS setup.
	DefaultConnectTimeout = 30 * time.Second

	// MaxErrorBodySize caps how much of an error response is read.
	MaxErrorBodySize = 1 << 20
)

// sharedStreamingClient has no overall timeout; streams are bounded by the
// caller's context.
var sharedStreamingClient = NewStreamingClient(DefaultConnectTimeout)

// NewStreamingClient returns an HTTP client suited to long-lived streams.
// headerTimeout bounds the wait for response headers only.
func NewStreamingClient(headerTimeout time.Duration) *http.Client {
	if headerTimeout <= 0 {
		headerTimeout = DefaultConnectTimeout
	}
	return &http.Client{
		Transport: &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			MaxIdleConns:          10,
			MaxIdleConnsPerHost:   4,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ResponseHeaderTimeout: headerTimeout,
			TLSClientConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
			},
		},
	}
}

// =============================================================================
// CLIENT
// =============================================================================

// Client opens Gemini chat sessions. A Client is safe for concurrent use.
type Client struct {
	baseURL    string
	model      string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at a different endpoint (tests, proxies).
func WithBaseURL(u string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(u, "/")
	}
}

// WithModel selects the model, e.g. "gemini-2.5-flash".
func WithModel(model string) Option {
	return func(c *Client) {
		if model != "" {
			c.model = model
		}
	}
}

// WithHTTPClient replaces the shared streaming client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithRequestsPerMinute throttles outgoing requests. Zero disables the
// throttle.
func WithRequestsPerMinute(n int) Option {
	return func(c *Client) {
		if n <= 0 {
			c.limiter = nil
			return
		}
		c.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(n)), 1)
	}
}

// NewClient creates a client with the given options.
func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		model:      DefaultModel,
		httpClient: sharedStreamingClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Model returns the configured model name.
func (c *Client) Model() string {
	return c.model
}

// NewSession opens a conversation. The key is checked locally for obvious
// defects; the service validates it on the first request.
func (c *Client) NewSession(apiKey, systemInstruction string) (provider.Session, error) {
	if err := ValidateAPIKey(apiKey); err != nil {
		return nil, err
	}
	s := &Session{
		client: c,
		apiKey: apiKey,
	}
	if systemInstruction != "" {
		sys := textContent("", systemInstruction)
		s.system = &sys
	}
	log.Printf("GEMINI_SESSION | model=%s key=%s", c.model, KeyFingerprint(apiKey))
	return s, nil
}

// ValidateAPIKey rejects keys that can never be valid.
func ValidateAPIKey(apiKey string) error {
	switch {
	case apiKey == "":
		return fmt.Errorf("%w: key is empty", provider.ErrInvalidAPIKey)
	case strings.ContainsAny(apiKey, " \t\r\n"):
		return fmt.Errorf("%w: key contains whitespace", provider.ErrInvalidAPIKey)
	}
	return nil
}

// KeyFingerprint identifies a key in logs without revealing it.
func KeyFingerprint(apiKey string) string {
	if apiKey == "" {
		return "none"
	}
	sum := sha256.Sum256([]byte(apiKey))
	return hex.EncodeToString(sum[:4])
}

// MaskKey renders a key for display, keeping only the last four characters.
func MaskKey(apiKey string) string {
	if len(apiKey) <= 4 {
		return strings.Repeat("*", len(apiKey))
	}
	return strings.Repeat("*", 8) + apiKey[len(apiKey)-4:]
}

// =============================================================================
// REQUESTS
// =============================================================================

func (c *Client) streamURL() string {
	return fmt.Sprintf("%s/v1beta/models/%s:streamGenerateContent?alt=sse",
		c.baseURL, url.PathEscape(c.model))
}

// openStream posts body and returns the response once headers arrived with
// status 200.
func (c *Client) openStream(ctx context.Context, apiKey string, body generateRequest) (*http.Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			if ctx.Err() != nil {
				return nil, contextError(ctx, err)
			}
			return nil, fmt.Errorf("%w: request throttled: %v", provider.ErrRateLimited, err)
		}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.streamURL(), bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("x-goog-api-key", apiKey)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Printf("GEMINI_REQUEST_FAILED | model=%s error=%v", c.model, err)
		return nil, contextError(ctx, err)
	}
	log.Printf("GEMINI_RESPONSE | model=%s status=%d turns=%d latency=%dms",
		c.model, resp.StatusCode, len(body.Contents), time.Since(start).Milliseconds())

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		data, _ := io.ReadAll(io.LimitReader(resp.Body, MaxErrorBodySize))
		return nil, handleErrorResponse(resp.StatusCode, data)
	}
	return resp, nil
}

// handleErrorResponse maps an error response to the provider taxonomy.
func handleErrorResponse(statusCode int, body []byte) error {
	var parsed apiErrorResponse
	if err := json.Unmarshal(body, &parsed); err != nil || parsed.Error.Message == "" {
		msg := strings.TrimSpace(string(body))
		if msg == "" {
			msg = http.StatusText(statusCode)
		}
		return classify(&provider.ProviderError{Status: statusCode, Message: msg}, "")
	}
	return classify(&provider.ProviderError{
		Status:  statusCode,
		Code:    parsed.Error.Status,
		Message: parsed.Error.Message,
	}, parsed.Error.reason())
}

// classify links e to a sentinel based on status and reason.
func classify(e *provider.ProviderError, reason string) error {
	switch {
	case reason == "API_KEY_INVALID",
		e.Status == http.StatusUnauthorized,
		strings.Contains(strings.ToLower(e.Message), "api key not valid"):
		e.Err = provider.ErrInvalidAPIKey
	case e.Status == http.StatusTooManyRequests, e.Code == "RESOURCE_EXHAUSTED":
		e.Err = provider.ErrRateLimited
	}
	return e
}

// contextError prefers the context's cause over the transport error it
// produced, so a stall or cancel is reported as such.
func contextError(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		if cause := context.Cause(ctx); cause != nil {
			return cause
		}
		return ctx.Err()
	}
	if errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%w: connection closed mid-response", provider.ErrTransport)
	}
	return fmt.Errorf("%w: %v", provider.ErrTransport, err)
}
