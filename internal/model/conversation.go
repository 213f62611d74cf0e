// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and messages.
package model

import (
	"errors"
	"sync"
	"time"
)

// ErrNotStreaming is reported when a fragment arrives for a conversation
// whose last message is not in streaming state. The read loop seals before
// returning, so this indicates a logic error in the caller; the fragment is
// dropped rather than corrupting a terminal message.
var ErrNotStreaming = errors.New("last message is not streaming")

// =============================================================================
// CONVERSATION TYPE
// =============================================================================

// Conversation is an ordered, append-only log of messages for one session.
// The only non-append mutation is Clear. At most one message is in streaming
// state at any time: the most recently appended assistant placeholder.
//
// Thread-safety: the streaming consumer appends from its read goroutine
// while the UI loop takes snapshots, so all operations are mutex-protected.
type Conversation struct {
	mu        sync.Mutex
	messages  []*Message
	updatedAt time.Time
}

// NewConversation creates an empty conversation.
func NewConversation() *Conversation {
	return &Conversation{
		messages:  make([]*Message, 0),
		updatedAt: time.Now(),
	}
}

// =============================================================================
// MUTATION PRIMITIVES
// =============================================================================

// AppendUser appends a terminal user message and returns its index.
func (c *Conversation) AppendUser(content string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, NewUserMessage(content))
	c.updatedAt = time.Now()
	return len(c.messages) - 1
}

// AppendAssistantPlaceholder appends an empty streaming assistant message
// and returns its index. The index is what a stream handle targets for the
// duration of one request.
func (c *Conversation) AppendAssistantPlaceholder() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, NewAssistantPlaceholder())
	c.updatedAt = time.Now()
	return len(c.messages) - 1
}

// AppendNotice appends a terminal system-notice message and returns its index.
func (c *Conversation) AppendNotice(content string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, NewSystemNotice(content))
	c.updatedAt = time.Now()
	return len(c.messages) - 1
}

// AppendToLast appends a fragment to the last message. Returns
// ErrNotStreaming if the last message is not in streaming state; the
// fragment is dropped in that case.
func (c *Conversation) AppendToLast(fragment string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	last := c.last()
	if last == nil || !last.IsStreaming {
		return ErrNotStreaming
	}
	last.AppendFragment(fragment)
	c.updatedAt = time.Now()
	return nil
}

// SealLast finalizes the last message, preserving accumulated content.
// No-op if the last message is not streaming.
func (c *Conversation) SealLast() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if last := c.last(); last != nil {
		last.Seal()
		c.updatedAt = time.Now()
	}
}

// SealLastWith finalizes the last message, replacing its content entirely.
// Used for the failure path, where partial content is discarded.
// No-op if the last message is not streaming.
func (c *Conversation) SealLastWith(content string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if last := c.last(); last != nil {
		last.SealWith(content)
		c.updatedAt = time.Now()
	}
}

// Clear discards all messages. This is a local operation only; remote
// conversation state is the session context's responsibility.
func (c *Conversation) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = make([]*Message, 0)
	c.updatedAt = time.Now()
}

// =============================================================================
// READ ACCESS
// =============================================================================

// Snapshot returns value copies of all messages in order, with streaming
// content merged into Content. This is the representation handed to the
// consumer for request building and to the view for rendering.
func (c *Conversation) Snapshot() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Message, len(c.messages))
	for i, m := range c.messages {
		out[i] = Message{
			Role:        m.Role,
			Content:     m.DisplayContent(),
			Timestamp:   m.Timestamp,
			Terminal:    m.Terminal,
			IsStreaming: m.IsStreaming,
			Notice:      m.Notice,
		}
	}
	return out
}

// Len returns the number of messages.
func (c *Conversation) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.messages)
}

// IsEmpty returns true if there are no messages.
func (c *Conversation) IsEmpty() bool {
	return c.Len() == 0
}

// Streaming returns true if the last message is an open streaming placeholder.
func (c *Conversation) Streaming() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	last := c.last()
	return last != nil && last.IsStreaming
}

// UpdatedAt returns the time of the most recent mutation.
func (c *Conversation) UpdatedAt() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.updatedAt
}

// last returns the most recent message. Caller must hold the lock.
func (c *Conversation) last() *Message {
	if len(c.messages) == 0 {
		return nil
	}
	return c.messages[len(c.messages)-1]
}
