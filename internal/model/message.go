// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and messages.
package model

import (
	"strings"
	"time"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the sender of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// DisplayName returns a human-readable name for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleAssistant:
		return "Assistant"
	case RoleSystem:
		return "System"
	default:
		return string(r)
	}
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// Message represents a single message in a conversation.
//
// A message is created either terminal (user messages, system notices) or as
// a streaming assistant placeholder. While streaming, content accumulates in
// a strings.Builder and only moves to Content when the message is sealed.
// Once Terminal is set the message never changes again.
type Message struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`

	// Terminal means no further mutation will occur.
	Terminal bool `json:"terminal"`

	// Streaming state.
	// PERFORMANCE: strings.Builder avoids quadratic allocations during streaming.
	IsStreaming   bool            `json:"-"`
	streamContent strings.Builder `json:"-"`

	// Notice marks assistant-side system notices (document attached/cleared).
	// Notices are terminal at creation and excluded from the user/assistant
	// alternation of the transcript.
	Notice bool `json:"notice,omitempty"`
}

// NewUserMessage creates a terminal user message.
func NewUserMessage(content string) *Message {
	return &Message{
		Role:      RoleUser,
		Content:   content,
		Timestamp: time.Now(),
		Terminal:  true,
	}
}

// NewAssistantPlaceholder creates an empty assistant message in streaming state.
func NewAssistantPlaceholder() *Message {
	return &Message{
		Role:        RoleAssistant,
		Timestamp:   time.Now(),
		IsStreaming: true,
	}
}

// NewSystemNotice creates a terminal system-notice message.
func NewSystemNotice(content string) *Message {
	return &Message{
		Role:      RoleSystem,
		Content:   content,
		Timestamp: time.Now(),
		Terminal:  true,
		Notice:    true,
	}
}

// =============================================================================
// MESSAGE METHODS
// =============================================================================

// AppendFragment appends a decoded fragment to a streaming message.
// Ignored once the message has been sealed.
func (m *Message) AppendFragment(fragment string) {
	if m.IsStreaming {
		m.streamContent.WriteString(fragment)
	}
}

// Seal finalizes a streaming message, merging accumulated fragments into
// Content. Safe to call on an already-terminal message.
func (m *Message) Seal() {
	if !m.IsStreaming {
		return
	}
	m.Content = m.streamContent.String()
	m.streamContent.Reset()
	m.IsStreaming = false
	m.Terminal = true
}

// SealWith finalizes a streaming message, discarding any accumulated
// fragments and replacing the content entirely.
func (m *Message) SealWith(content string) {
	if !m.IsStreaming {
		return
	}
	m.streamContent.Reset()
	m.Content = content
	m.IsStreaming = false
	m.Terminal = true
}

// DisplayContent returns the content to display (streaming or final).
func (m *Message) DisplayContent() string {
	if m.IsStreaming {
		return m.streamContent.String()
	}
	return m.Content
}

// IsEmpty returns true if the message has no content.
func (m *Message) IsEmpty() bool {
	return len(m.Content) == 0 && m.streamContent.Len() == 0
}

// Preview returns a truncated preview of the message content.
// Uses rune-based truncation to handle Unicode correctly.
func (m *Message) Preview(maxLen int) string {
	content := m.DisplayContent()
	runes := []rune(content)
	if len(runes) <= maxLen {
		return content
	}
	return string(runes[:maxLen-3]) + "..."
}
