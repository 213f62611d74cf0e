// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package stream runs one streamed chat exchange at a time against the
// backend, folding fragments into the conversation as they arrive.
//
// A Consumer owns the lifecycle of a single in-flight request: it appends
// the user turn and an assistant placeholder, streams the reply into the
// placeholder, and seals it with the terminal outcome (completed, cancelled,
// or failed). Concurrent sends are rejected rather than queued.
package stream

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/jeranaias/docchat-tui/internal/api"
	"github.com/jeranaias/docchat-tui/internal/model"
)

// =============================================================================
// STATES AND ERRORS
// =============================================================================

// State is the lifecycle phase of one streamed exchange.
type State int

const (
	// StateIdle means no request is in flight.
	StateIdle State = iota
	// StateSending means the request is issued but no fragment has arrived.
	StateSending
	// StateStreaming means at least one fragment has been folded in.
	StateStreaming
	// StateCompleted means the stream ended normally.
	StateCompleted
	// StateCancelled means the user aborted the stream.
	StateCancelled
	// StateFailed means the request or stream errored.
	StateFailed
)

// String returns a short lowercase name for logging and the status bar.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSending:
		return "sending"
	case StateStreaming:
		return "streaming"
	case StateCompleted:
		return "completed"
	case StateCancelled:
		return "cancelled"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether the state is an end state.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateCancelled || s == StateFailed
}

const (
	// CancelledMarker is appended to whatever content arrived before a
	// user-initiated cancel. Partial content is kept, not discarded.
	CancelledMarker = " [Cancelled]"

	// failedContent replaces the placeholder content on the failure path.
	// Partial content is discarded: an half answer next to an error is
	// worse than no answer.
	failedContent = "Sorry, something went wrong talking to the backend."
)

var (
	// ErrStreamActive is reported when a send arrives while another
	// exchange is still in flight.
	ErrStreamActive = errors.New("a response is already streaming")

	// ErrEmptyMessage is reported when the user text is empty after
	// trimming whitespace.
	ErrEmptyMessage = errors.New("message is empty")
)

// =============================================================================
// DEPENDENCIES
// =============================================================================

// Streamer is the backend surface the consumer needs. *api.Client satisfies
// it; tests substitute fakes.
type Streamer interface {
	ChatStream(ctx context.Context, req api.ChatRequest, onFragment func(string)) error
	Health(ctx context.Context) error
}

// SessionInfo carries the per-session request parameters the consumer
// cannot know on its own.
type SessionInfo struct {
	ID               string
	DocumentAttached bool
}

// Options tune one exchange.
type Options struct {
	// Model is the upstream model identifier sent with the request.
	Model string
	// APIKey is the upstream credential for this exchange. Passed per
	// request so a config reload takes effect on the next send.
	APIKey string
	// DeveloperMessage is the system prompt sent with every turn.
	DeveloperMessage string
	// Retrieval supplies num_chunks_to_retrieve when a document is
	// attached; ignored otherwise.
	Retrieval model.RetrievalSettings
	// SkipHealthCheck bypasses the pre-flight reachability probe.
	SkipHealthCheck bool
}

// =============================================================================
// CONSUMER
// =============================================================================

// Consumer drives streamed exchanges against one conversation. Safe for
// concurrent use; at most one exchange runs at a time.
type Consumer struct {
	client Streamer
	conv   *model.Conversation

	mu     sync.Mutex
	active *Handle
}

// NewConsumer creates a consumer bound to a backend client and conversation.
func NewConsumer(client Streamer, conv *model.Conversation) *Consumer {
	return &Consumer{client: client, conv: conv}
}

// Send validates and submits one user turn, returning a Handle for the
// in-flight exchange. The user message and an empty assistant placeholder
// are appended before this returns, so the UI can render both immediately.
//
// Returns ErrEmptyMessage for whitespace-only input and ErrStreamActive if
// an exchange is already running; in both cases the conversation is
// untouched.
func (c *Consumer) Send(ctx context.Context, userText string, sess SessionInfo, opts Options) (*Handle, error) {
	userText = strings.TrimSpace(userText)
	if userText == "" {
		return nil, ErrEmptyMessage
	}

	c.mu.Lock()
	if c.active != nil && !c.active.State().Terminal() {
		c.mu.Unlock()
		return nil, ErrStreamActive
	}

	c.conv.AppendUser(userText)
	target := c.conv.AppendAssistantPlaceholder()

	runCtx, cancel := context.WithCancel(ctx)
	h := &Handle{
		targetIndex: target,
		state:       StateSending,
		done:        make(chan struct{}),
	}
	h.cancelMgr.setCancelFunc(cancel)
	c.active = h
	c.mu.Unlock()

	go c.run(runCtx, h, userText, sess, opts)
	return h, nil
}

// Active returns the current handle, or nil when idle.
func (c *Consumer) Active() *Handle {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// Streaming reports whether an exchange is in flight.
func (c *Consumer) Streaming() bool {
	h := c.Active()
	return h != nil && !h.State().Terminal()
}

// run executes one exchange to its terminal state.
func (c *Consumer) run(ctx context.Context, h *Handle, userText string, sess SessionInfo, opts Options) {
	defer h.finish()

	if !opts.SkipHealthCheck {
		if err := c.client.Health(ctx); err != nil {
			if errors.Is(err, context.Canceled) {
				c.cancelled(h)
				return
			}
			c.fail(h, err)
			return
		}
	}

	req := api.ChatRequest{
		DeveloperMessage: opts.DeveloperMessage,
		UserMessage:      userText,
		APIKey:           opts.APIKey,
		Model:            opts.Model,
		SessionID:        sess.ID,
	}
	if sess.DocumentAttached {
		req.NumChunksToRetrieve = opts.Retrieval.RetrievalCount()
	}

	err := c.client.ChatStream(ctx, req, func(frag string) {
		h.setState(StateStreaming)
		if appendErr := c.conv.AppendToLast(frag); appendErr != nil {
			// The placeholder was sealed underneath us (e.g. the
			// conversation was cleared); drop the fragment.
			return
		}
	})

	switch {
	case err == nil:
		c.conv.SealLast()
		h.setState(StateCompleted)
	case errors.Is(err, context.Canceled):
		c.cancelled(h)
	default:
		c.fail(h, err)
	}
}

// cancelled seals the placeholder keeping whatever content arrived, plus the
// marker. Covers both mid-stream aborts and aborts during the pre-flight
// health probe.
func (c *Consumer) cancelled(h *Handle) {
	c.conv.AppendToLast(CancelledMarker)
	c.conv.SealLast()
	h.setState(StateCancelled)
}

// fail seals the placeholder with the fixed failure text, discarding any
// partial content, and records the cause on the handle.
func (c *Consumer) fail(h *Handle, err error) {
	c.conv.SealLastWith(failedContent)
	h.setErr(err)
	h.setState(StateFailed)
}

// =============================================================================
// HANDLE
// =============================================================================

// cancelManager guards the context cancel function so Cancel can race with
// the run goroutine retiring it. Must be held by pointer-containing structs
// only through methods; safe to call with nothing set.
type cancelManager struct {
	mu         sync.Mutex
	cancelFunc context.CancelFunc
}

func (cm *cancelManager) setCancelFunc(fn context.CancelFunc) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.cancelFunc = fn
}

// cancel invokes the stored cancel function once and clears it. Safe to
// call multiple times or with no cancel function set.
func (cm *cancelManager) cancel() {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	if cm.cancelFunc != nil {
		cm.cancelFunc()
		cm.cancelFunc = nil
	}
}

// Handle tracks one exchange from submission to its terminal state.
type Handle struct {
	cancelMgr   cancelManager
	targetIndex int

	mu    sync.Mutex
	state State
	err   error

	done chan struct{}
}

// State returns the current lifecycle state.
func (h *Handle) State() State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// Err returns the failure cause after StateFailed, nil otherwise.
func (h *Handle) Err() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.err
}

// TargetIndex is the conversation index of the assistant message this
// exchange streams into.
func (h *Handle) TargetIndex() int { return h.targetIndex }

// Cancel aborts the exchange. The first call wins; later calls and calls
// after completion are no-ops.
func (h *Handle) Cancel() {
	h.cancelMgr.cancel()
}

// Done returns a channel closed when the exchange reaches a terminal state.
func (h *Handle) Done() <-chan struct{} { return h.done }

// setState advances the state machine, never regressing out of a terminal
// state and never dropping from streaming back to sending.
func (h *Handle) setState(s State) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.state.Terminal() {
		return
	}
	if h.state == StateStreaming && s == StateStreaming {
		return
	}
	h.state = s
}

func (h *Handle) setErr(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.err = err
}

// finish releases the context and wakes Done waiters. Runs exactly once,
// from the run goroutine's defer.
func (h *Handle) finish() {
	h.cancelMgr.cancel()
	close(h.done)
}
