// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chatapi provides the HTTP client for the store assistant backend.
package chatapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// ClientError represents an error from the chat backend client.
type ClientError struct {
	Type    ErrorType
	Message string
	Cause   error
}

func (e *ClientError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *ClientError) Unwrap() error {
	return e.Cause
}

// ErrorType categorizes client errors for handling.
type ErrorType int

const (
	ErrTypeUnknown ErrorType = iota
	ErrTypeConnection
	ErrTypeHTTP
	ErrTypeUnsupported
	ErrTypeInvalidResponse
	ErrTypeRead
)

// Sentinel errors for easy checking.
var (
	// ErrStreamUnsupported means the response carried no body stream.
	ErrStreamUnsupported = &ClientError{Type: ErrTypeUnsupported, Message: "unsupported"}
)

// IsTransportError checks whether an error is any transport-level failure
// (connection, HTTP status, or mid-stream read).
func IsTransportError(err error) bool {
	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		switch clientErr.Type {
		case ErrTypeConnection, ErrTypeHTTP, ErrTypeRead, ErrTypeUnsupported:
			return true
		}
	}
	return false
}

// IsCanceled checks whether an error is a cooperative cancellation.
// A cancelled stream is a terminal state of its own, not a failure.
func IsCanceled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// =============================================================================
// CLIENT CONFIGURATION
// =============================================================================

// ClientConfig holds configuration options for the backend client.
type ClientConfig struct {
	// BaseURL is the backend origin (default: http://127.0.0.1:8000)
	BaseURL string

	// Org is the store slug prefixed to every API path.
	Org string

	// Timeout for non-streaming requests (default: 10s).
	// Streaming requests are bounded by their context instead.
	Timeout time.Duration

	// CSRFCookie is the cookie the anti-forgery token is read from
	// (default: "csrftoken").
	CSRFCookie string

	// CSRFHeader is the header the token is attached to
	// (default: "X-CSRFToken").
	CSRFHeader string

	// RateLimit caps outbound API calls per second (default: 2, burst 4).
	RateLimit float64
	RateBurst int

	// Transport overrides the HTTP transport. Nil means the default;
	// tests inject fakes here.
	Transport http.RoundTripper
}

// DefaultConfig returns the default client configuration.
func DefaultConfig() *ClientConfig {
	return &ClientConfig{
		BaseURL:    "http://127.0.0.1:8000",
		Timeout:    10 * time.Second,
		CSRFCookie: "csrftoken",
		CSRFHeader: "X-CSRFToken",
		RateLimit:  2,
		RateBurst:  4,
	}
}

// =============================================================================
// CLIENT
// =============================================================================

// Client handles communication with the store assistant backend.
//
// The Client is thread-safe for concurrent use, though the protocol layer
// above it only ever keeps a single stream in flight per session.
//
// Example:
//
//	client, _ := chatapi.NewClient(&chatapi.ClientConfig{Org: "acme"})
//	roomID, err := client.CreateRoom(ctx, "red shoes")
//	err = client.StreamChat(ctx, "red shoes", roomID, func(rec chatapi.Record) {
//	    ...
//	})
type Client struct {
	config     *ClientConfig
	base       *url.URL
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient creates a client, filling defaults for zero config values.
func NewClient(config *ClientConfig) (*Client, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if config.BaseURL == "" {
		config.BaseURL = "http://127.0.0.1:8000"
	}
	if config.Timeout == 0 {
		config.Timeout = 10 * time.Second
	}
	if config.CSRFCookie == "" {
		config.CSRFCookie = "csrftoken"
	}
	if config.CSRFHeader == "" {
		config.CSRFHeader = "X-CSRFToken"
	}
	if config.RateLimit == 0 {
		config.RateLimit = 2
	}
	if config.RateBurst == 0 {
		config.RateBurst = 4
	}

	base, err := url.Parse(config.BaseURL)
	if err != nil {
		return nil, &ClientError{Type: ErrTypeConnection, Message: "invalid base URL", Cause: err}
	}

	// Session and anti-forgery cookies live in the jar; the token is
	// mirrored into a header on every state-changing request.
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, &ClientError{Type: ErrTypeUnknown, Message: "failed to create cookie jar", Cause: err}
	}

	return &Client{
		config: config,
		base:   base,
		httpClient: &http.Client{
			Timeout:   config.Timeout,
			Jar:       jar,
			Transport: config.Transport,
		},
		limiter: rate.NewLimiter(rate.Limit(config.RateLimit), config.RateBurst),
	}, nil
}

// GetConfig returns the client configuration.
func (c *Client) GetConfig() *ClientConfig {
	return c.config
}

// SetRateLimit retunes the outbound rate limiter. Safe to call while
// requests are in flight; used by live config reload.
func (c *Client) SetRateLimit(limit float64, burst int) {
	if limit > 0 {
		c.limiter.SetLimit(rate.Limit(limit))
	}
	if burst > 0 {
		c.limiter.SetBurst(burst)
	}
}

// endpoint joins the org prefix and an API path onto the base URL.
func (c *Client) endpoint(path string) string {
	p := path
	if c.config.Org != "" {
		p = "/" + c.config.Org + path
	}
	u := *c.base
	u.Path = strings.TrimSuffix(u.Path, "/") + p
	return u.String()
}

// newRequest builds a request with JSON and anti-forgery headers attached.
func (c *Client) newRequest(ctx context.Context, method, rawURL string, body []byte) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
	if err != nil {
		return nil, &ClientError{Type: ErrTypeConnection, Message: "failed to create request", Cause: err}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.csrfToken(); token != "" {
		req.Header.Set(c.config.CSRFHeader, token)
	}
	return req, nil
}

// csrfToken reads the anti-forgery token from the cookie jar.
func (c *Client) csrfToken() string {
	if c.httpClient.Jar == nil {
		return ""
	}
	for _, cookie := range c.httpClient.Jar.Cookies(c.base) {
		if cookie.Name == c.config.CSRFCookie {
			return cookie.Value
		}
	}
	return ""
}

// =============================================================================
// ROOM OPERATIONS
// =============================================================================

// CreateRoom creates a chat room on the backend and returns its id.
// The name seeds the room title; callers pass the first prompt.
func (c *Client) CreateRoom(ctx context.Context, name string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}

	body, err := json.Marshal(CreateRoomRequest{Name: name})
	if err != nil {
		return "", &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to marshal request", Cause: err}
	}

	req, err := c.newRequest(ctx, http.MethodPost, c.endpoint("/api/chat/create/"), body)
	if err != nil {
		return "", err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if IsCanceled(err) {
			return "", ctx.Err()
		}
		return "", &ClientError{Type: ErrTypeConnection, Message: "room creation failed", Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", &ClientError{
			Type:    ErrTypeHTTP,
			Message: "room creation failed: " + resp.Status,
		}
	}

	var result CreateRoomResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to decode response", Cause: err}
	}
	if result.ChatRoomID == "" {
		return "", &ClientError{Type: ErrTypeInvalidResponse, Message: "backend returned empty room id"}
	}

	return result.ChatRoomID, nil
}

// History retrieves the stored messages of a room, oldest first.
// Used to seed the timeline when reattaching to a room after a reload.
func (c *Client) History(ctx context.Context, roomID string) ([]HistoryEntry, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := c.newRequest(ctx, http.MethodGet, c.endpoint("/api/chat/history/"+roomID+"/"), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if IsCanceled(err) {
			return nil, ctx.Err()
		}
		return nil, &ClientError{Type: ErrTypeConnection, Message: "history request failed", Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &ClientError{
			Type:    ErrTypeHTTP,
			Message: "history request failed: " + resp.Status,
		}
	}

	var entries []HistoryEntry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return nil, &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to decode history", Cause: err}
	}

	return entries, nil
}

// =============================================================================
// STREAMING CHAT
// =============================================================================

// RecordCallback is called for each record decoded from the stream.
type RecordCallback func(rec Record)

// readBufSize is the chunk size for streaming body reads.
const readBufSize = 4 * 1024

// StreamChat sends a prompt and streams the backend's response.
//
// The callback is invoked synchronously, in arrival order, once per
// decoded record, as soon as each is decoded. Return values:
//
//   - nil: the stream ended normally (the caller's end-of-stream event)
//   - a context error: the stream was cancelled; nothing more was read
//     and no end-of-stream is implied
//   - a *ClientError: the request or a mid-stream read failed; no further
//     callbacks follow the failure
//
// A non-success HTTP status fails before any record is delivered.
func (c *Client) StreamChat(ctx context.Context, prompt, roomID string, callback RecordCallback) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	reqBody := ChatRequest{
		Message:    NewUserMessage(prompt),
		Timestamp:  time.Now().UTC(),
		ChatRoomID: &roomID,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to marshal request", Cause: err}
	}

	// Streams are bounded by the context, not a client timeout.
	streamClient := &http.Client{
		Jar:       c.httpClient.Jar,
		Transport: c.config.Transport,
	}

	req, err := c.newRequest(ctx, http.MethodPost, c.endpoint("/api/chat/"), body)
	if err != nil {
		return err
	}

	resp, err := streamClient.Do(req)
	if err != nil {
		if IsCanceled(err) {
			return ctx.Err()
		}
		return &ClientError{Type: ErrTypeConnection, Message: "chat request failed", Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return &ClientError{
			Type:    ErrTypeHTTP,
			Message: "chat request failed: " + resp.Status,
		}
	}

	if resp.Body == nil || resp.Body == http.NoBody {
		return ErrStreamUnsupported
	}

	return c.readStream(ctx, resp.Body, callback)
}

// readStream drives the decoder over the response body.
func (c *Client) readStream(ctx context.Context, body io.Reader, callback RecordCallback) error {
	decoder := NewStreamDecoder()
	buf := make([]byte, readBufSize)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		n, err := body.Read(buf)
		if n > 0 {
			for _, rec := range decoder.Feed(buf[:n]) {
				callback(rec)
			}
		}
		if err != nil {
			if err == io.EOF {
				// Whatever is still pending can never complete.
				decoder.Discard()
				return nil
			}
			if IsCanceled(err) || ctx.Err() != nil {
				return ctx.Err()
			}
			return &ClientError{Type: ErrTypeRead, Message: "stream read failed", Cause: err}
		}
	}
}

// =============================================================================
// CHANNEL ADAPTER
// =============================================================================

// StreamEvent is one delivery on the channel returned by StreamChatChan.
// Exactly one of Record or Err is meaningful; a closed channel with no
// Err delivered means the stream ended normally.
type StreamEvent struct {
	Record Record
	Err    error
}

// StreamChatChan is a channel adapter over StreamChat for callers that
// prefer select loops over callbacks. The channel is closed when the
// stream ends, fails, or is cancelled; cancellation delivers no event.
func (c *Client) StreamChatChan(ctx context.Context, prompt, roomID string) <-chan StreamEvent {
	ch := make(chan StreamEvent)

	go func() {
		defer close(ch)

		err := c.StreamChat(ctx, prompt, roomID, func(rec Record) {
			select {
			case ch <- StreamEvent{Record: rec}:
			case <-ctx.Done():
			}
		})

		if err != nil && !IsCanceled(err) {
			select {
			case ch <- StreamEvent{Err: err}:
			case <-ctx.Done():
			}
		}
	}()

	return ch
}
