// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// =============================================================================
// CONFIGURATION CONSTANTS
// =============================================================================

const (
	// DefaultBaseURL is the backend address used when none is configured.
	DefaultBaseURL = "http://localhost:8000"

	// DefaultTimeout bounds non-streaming requests. Streaming requests have
	// no client timeout; they are controlled through their context.
	DefaultTimeout = 60 * time.Second

	// UploadTimeout bounds PDF uploads, which cover transfer plus
	// server-side chunking and embedding.
	UploadTimeout = 5 * time.Minute

	// MaxResponseSize is the maximum allowed non-streaming response body.
	MaxResponseSize = 10 * 1024 * 1024 // 10MB limit

	// healthProbeInterval is the minimum spacing between real health
	// probes. Calls inside the window reuse the cached result.
	healthProbeInterval = 30 * time.Second
)

var (
	// Shared HTTP client with connection pooling for all backend requests.
	sharedHTTPClient = &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
		},
		Timeout: DefaultTimeout,
	}

	// sharedStreamingClient is used for streaming requests (no timeout,
	// context-controlled) and long-running uploads.
	sharedStreamingClient = &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
		},
		// No timeout for streaming - controlled via context
	}
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrBackendUnavailable is reported when the backend cannot be reached
	// or its health check fails.
	ErrBackendUnavailable = errors.New("backend unavailable")

	// ErrNoDocument is reported when a document operation targets a session
	// with nothing attached.
	ErrNoDocument = errors.New("no document attached to session")
)

// RequestError is a non-2xx backend response, carrying the HTTP status and
// the backend's detail string when the body had one.
type RequestError struct {
	Status int
	Detail string
}

func (e *RequestError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("backend error (HTTP %d): %s", e.Status, e.Detail)
	}
	return fmt.Sprintf("backend error (HTTP %d)", e.Status)
}

// errorDetail is the backend's error body shape.
type errorDetail struct {
	Detail string `json:"detail"`
}

// =============================================================================
// REQUEST / RESPONSE TYPES
// =============================================================================

// ChatRequest is the body of a streamed chat call. Conversation history is
// held server-side keyed by SessionID, so only the new user turn travels.
type ChatRequest struct {
	DeveloperMessage    string `json:"developer_message"`
	UserMessage         string `json:"user_message"`
	APIKey              string `json:"api_key"`
	Model               string `json:"model"`
	SessionID           string `json:"session_id"`
	NumChunksToRetrieve int    `json:"num_chunks_to_retrieve,omitempty"`
}

// UploadResult describes a successfully indexed PDF.
type UploadResult struct {
	Filename      string `json:"filename"`
	ChunksCreated int    `json:"chunks_created"`
}

// DocumentStatus is the backend's view of a session's attached document.
type DocumentStatus struct {
	HasPDF   bool   `json:"has_pdf"`
	Filename string `json:"filename"`
	Chunks   int    `json:"chunks"`
}

// =============================================================================
// CLIENT
// =============================================================================

// Client talks to the document-chat backend. It is safe for concurrent use;
// the underlying HTTP clients are shared and pooled.
type Client struct {
	baseURL string
	apiKey  string

	// Health probes are throttled; between probes the cached result is
	// returned so keystroke-driven checks never hammer the backend.
	healthMu      sync.Mutex
	healthLimiter *rate.Limiter
	healthErr     error
	healthProbed  bool
}

// NewClient creates a client for the backend at baseURL. The apiKey is the
// upstream LLM key the backend forwards; it is never logged in full.
func NewClient(baseURL, apiKey string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:       strings.TrimRight(baseURL, "/"),
		apiKey:        apiKey,
		healthLimiter: rate.NewLimiter(rate.Every(healthProbeInterval), 1),
	}
}

// BaseURL returns the configured backend address.
func (c *Client) BaseURL() string { return c.baseURL }

// APIKeyMasked returns a loggable representation of the API key.
func (c *Client) APIKeyMasked() string {
	if c.apiKey == "" {
		return "[not set]"
	}
	return fmt.Sprintf("[REDACTED, length=%d, fingerprint=%s]", len(c.apiKey), c.keyFingerprint())
}

// keyFingerprint returns a short SHA-256 based identifier for logging
// without exposing any key fragment.
func (c *Client) keyFingerprint() string {
	if c.apiKey == "" {
		return "none"
	}
	h := sha256.Sum256([]byte(c.apiKey))
	return hex.EncodeToString(h[:4])
}

// logRequest logs an API request without exposing sensitive data.
func (c *Client) logRequest(req *http.Request) {
	log.Printf("API Request: %s %s", req.Method, req.URL.Path)
	// Don't log headers or body (API key travels in the body)
}

// logResponse logs an API response with duration.
func (c *Client) logResponse(resp *http.Response, duration time.Duration) {
	log.Printf("API Response: %d %s (%v)", resp.StatusCode, resp.Status, duration)
}

// =============================================================================
// STREAMED CHAT
// =============================================================================

// ChatStream sends one chat turn and streams the reply, invoking onFragment
// for each decoded text fragment in arrival order. It returns nil when the
// stream ends normally, the context's error when cancelled mid-stream, and
// a *RequestError for non-2xx responses (in which case onFragment is never
// called).
func (c *Client) ChatStream(ctx context.Context, chatReq ChatRequest, onFragment func(string)) error {
	if chatReq.APIKey == "" {
		chatReq.APIKey = c.apiKey
	}
	bodyBytes, err := json.Marshal(chatReq)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(bodyBytes))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/plain, text/event-stream")

	c.logRequest(req)
	start := time.Now()

	resp, err := sharedStreamingClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	defer resp.Body.Close()
	c.logResponse(resp, time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := readResponse(resp)
		return c.errorFromResponse(resp.StatusCode, body)
	}

	dec := NewDecoder(resp.Body)
	for {
		frag, err := dec.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			// A cancelled context surfaces as a body read error; report
			// the context's error so callers can tell cancel from failure.
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("stream read failed: %w", err)
		}
		onFragment(frag)
	}
}

// =============================================================================
// DOCUMENT OPERATIONS
// =============================================================================

// UploadPDF uploads a PDF for chunking and indexing under the session. The
// content is read from r; filename is the display name reported back by the
// backend. chunkSize and chunkOverlap are the splitter parameters.
func (c *Client) UploadPDF(ctx context.Context, sessionID, filename string, r io.Reader, chunkSize, chunkOverlap int) (*UploadResult, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("failed to build upload form: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, fmt.Errorf("failed to read PDF: %w", err)
	}
	fields := map[string]string{
		"api_key":       c.apiKey,
		"session_id":    sessionID,
		"chunk_size":    strconv.Itoa(chunkSize),
		"chunk_overlap": strconv.Itoa(chunkOverlap),
	}
	for name, value := range fields {
		if err := mw.WriteField(name, value); err != nil {
			return nil, fmt.Errorf("failed to build upload form: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to build upload form: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, UploadTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/upload-pdf", &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	c.logRequest(req)
	start := time.Now()

	resp, err := sharedStreamingClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	defer resp.Body.Close()
	c.logResponse(resp, time.Since(start))

	body, err := readResponse(resp)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, c.errorFromResponse(resp.StatusCode, body)
	}

	var result UploadResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse upload response: %w", err)
	}
	return &result, nil
}

// ClearPDF removes the session's indexed document on the backend. Returns
// ErrNoDocument if the backend has nothing attached for the session.
func (c *Client) ClearPDF(ctx context.Context, sessionID string) error {
	err := c.doDelete(ctx, "/api/clear-pdf/"+sessionID)
	var reqErr *RequestError
	if errors.As(err, &reqErr) && reqErr.Status == http.StatusNotFound {
		return ErrNoDocument
	}
	return err
}

// ClearConversation discards the session's server-side message history.
func (c *Client) ClearConversation(ctx context.Context, sessionID string) error {
	return c.doDelete(ctx, "/api/clear-conversation/"+sessionID)
}

// PDFStatus reports whether the backend still holds an indexed document for
// the session, used to reconcile local state at startup.
func (c *Client) PDFStatus(ctx context.Context, sessionID string) (*DocumentStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/pdf-status/"+sessionID, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	c.logRequest(req)
	start := time.Now()

	resp, err := sharedHTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	defer resp.Body.Close()
	c.logResponse(resp, time.Since(start))

	body, err := readResponse(resp)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, c.errorFromResponse(resp.StatusCode, body)
	}

	var status DocumentStatus
	if err := json.Unmarshal(body, &status); err != nil {
		return nil, fmt.Errorf("failed to parse status response: %w", err)
	}
	return &status, nil
}

// =============================================================================
// HEALTH
// =============================================================================

// Health reports whether the backend is reachable. Probes are spaced at
// least healthProbeInterval apart; inside the window the previous result is
// returned without touching the network.
func (c *Client) Health(ctx context.Context) error {
	c.healthMu.Lock()
	defer c.healthMu.Unlock()

	if c.healthLimiter.Allow() || !c.healthProbed {
		c.healthErr = c.probeHealth(ctx)
		c.healthProbed = true
	}
	return c.healthErr
}

// probeHealth performs one real GET /api/health round trip.
func (c *Client) probeHealth(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/health", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := sharedHTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 1024))

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: health check returned HTTP %d", ErrBackendUnavailable, resp.StatusCode)
	}
	return nil
}

// =============================================================================
// INTERNAL HELPERS
// =============================================================================

// doDelete issues a DELETE and maps non-2xx bodies to *RequestError.
func (c *Client) doDelete(ctx context.Context, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	c.logRequest(req)
	start := time.Now()

	resp, err := sharedHTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	defer resp.Body.Close()
	c.logResponse(resp, time.Since(start))

	body, err := readResponse(resp)
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.errorFromResponse(resp.StatusCode, body)
	}
	return nil
}

// errorFromResponse builds a *RequestError from a non-2xx body, extracting
// the backend's detail string when present.
func (c *Client) errorFromResponse(statusCode int, body []byte) error {
	var detail errorDetail
	if err := json.Unmarshal(body, &detail); err == nil && detail.Detail != "" {
		return &RequestError{Status: statusCode, Detail: detail.Detail}
	}
	return &RequestError{Status: statusCode, Detail: strings.TrimSpace(string(body))}
}

// readResponse reads a non-streaming body with a size limit so a
// misbehaving backend cannot exhaust memory.
func readResponse(resp *http.Response) ([]byte, error) {
	limitedReader := io.LimitReader(resp.Body, MaxResponseSize)
	body, err := io.ReadAll(limitedReader)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if int64(len(body)) == MaxResponseSize {
		return nil, fmt.Errorf("response exceeded maximum size of %d bytes", MaxResponseSize)
	}
	return body, nil
}
