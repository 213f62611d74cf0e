// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"errors"
	"testing"
)

// =============================================================================
// MESSAGE TESTS
// =============================================================================

func TestNewUserMessageIsTerminal(t *testing.T) {
	msg := NewUserMessage("hello")

	if msg.Role != RoleUser {
		t.Errorf("Expected role user, got %s", msg.Role)
	}
	if !msg.Terminal {
		t.Error("User message should be terminal at creation")
	}
	if msg.IsStreaming {
		t.Error("User message should not be streaming")
	}
}

func TestAssistantPlaceholderStartsEmpty(t *testing.T) {
	msg := NewAssistantPlaceholder()

	if !msg.IsStreaming {
		t.Error("Placeholder should be streaming")
	}
	if msg.Terminal {
		t.Error("Placeholder should not be terminal")
	}
	if !msg.IsEmpty() {
		t.Error("Placeholder should start empty")
	}
}

func TestMessageSealMergesFragments(t *testing.T) {
	msg := NewAssistantPlaceholder()
	msg.AppendFragment("Hi")
	msg.AppendFragment(" there")

	if got := msg.DisplayContent(); got != "Hi there" {
		t.Errorf("Expected display content 'Hi there', got %q", got)
	}

	msg.Seal()

	if msg.Content != "Hi there" {
		t.Errorf("Expected sealed content 'Hi there', got %q", msg.Content)
	}
	if msg.IsStreaming || !msg.Terminal {
		t.Error("Sealed message should be terminal and not streaming")
	}

	// Fragments after seal are ignored
	msg.AppendFragment("!!!")
	if msg.Content != "Hi there" {
		t.Errorf("Content changed after seal: %q", msg.Content)
	}
}

func TestMessageSealWithDiscardsPartial(t *testing.T) {
	msg := NewAssistantPlaceholder()
	msg.AppendFragment("partial output")
	msg.SealWith("error: request failed")

	if msg.Content != "error: request failed" {
		t.Errorf("Expected replaced content, got %q", msg.Content)
	}
	if !msg.Terminal {
		t.Error("SealWith should make the message terminal")
	}
}

func TestSystemNoticeFlags(t *testing.T) {
	msg := NewSystemNotice("Attached report.pdf (12 chunks indexed).")

	if !msg.Notice {
		t.Error("System notice should carry the Notice flag")
	}
	if !msg.Terminal {
		t.Error("System notice should be terminal at creation")
	}
}

// =============================================================================
// CONVERSATION TESTS
// =============================================================================

func TestConversationAppendOrdering(t *testing.T) {
	conv := NewConversation()

	ui := conv.AppendUser("hello")
	ai := conv.AppendAssistantPlaceholder()

	if ui != 0 || ai != 1 {
		t.Errorf("Expected indices 0 and 1, got %d and %d", ui, ai)
	}
	if conv.Len() != 2 {
		t.Errorf("Expected 2 messages, got %d", conv.Len())
	}
	if !conv.Streaming() {
		t.Error("Conversation should report an open streaming placeholder")
	}
}

func TestAppendToLastRequiresStreaming(t *testing.T) {
	conv := NewConversation()
	conv.AppendUser("hello")

	err := conv.AppendToLast("fragment")
	if !errors.Is(err, ErrNotStreaming) {
		t.Errorf("Expected ErrNotStreaming, got %v", err)
	}

	conv.AppendAssistantPlaceholder()
	if err := conv.AppendToLast("Hi"); err != nil {
		t.Errorf("Unexpected error appending to placeholder: %v", err)
	}

	conv.SealLast()
	err = conv.AppendToLast(" late")
	if !errors.Is(err, ErrNotStreaming) {
		t.Errorf("Expected ErrNotStreaming after seal, got %v", err)
	}

	snap := conv.Snapshot()
	if snap[1].Content != "Hi" {
		t.Errorf("Late fragment leaked into sealed message: %q", snap[1].Content)
	}
}

func TestAppendToLastOnEmptyConversation(t *testing.T) {
	conv := NewConversation()
	if err := conv.AppendToLast("x"); !errors.Is(err, ErrNotStreaming) {
		t.Errorf("Expected ErrNotStreaming on empty conversation, got %v", err)
	}
}

func TestSealLastWithReplacesContent(t *testing.T) {
	conv := NewConversation()
	conv.AppendUser("q")
	conv.AppendAssistantPlaceholder()
	conv.AppendToLast("partial")
	conv.SealLastWith("request failed")

	snap := conv.Snapshot()
	if snap[1].Content != "request failed" {
		t.Errorf("Expected replaced content, got %q", snap[1].Content)
	}
	if conv.Streaming() {
		t.Error("Conversation should have no open stream after seal")
	}
}

func TestClearDiscardsAllMessages(t *testing.T) {
	conv := NewConversation()
	conv.AppendUser("a")
	conv.AppendAssistantPlaceholder()
	conv.SealLast()
	conv.AppendNotice("Attached report.pdf (12 chunks indexed).")

	conv.Clear()

	if !conv.IsEmpty() {
		t.Errorf("Expected empty conversation after clear, got %d messages", conv.Len())
	}
}

func TestSnapshotIsDetached(t *testing.T) {
	conv := NewConversation()
	conv.AppendUser("hello")
	conv.AppendAssistantPlaceholder()
	conv.AppendToLast("Hi")

	snap := conv.Snapshot()
	snap[0].Content = "mutated"

	fresh := conv.Snapshot()
	if fresh[0].Content != "hello" {
		t.Error("Mutating a snapshot must not affect the conversation")
	}
	if fresh[1].Content != "Hi" {
		t.Errorf("Snapshot should merge streaming content, got %q", fresh[1].Content)
	}
	if !fresh[1].IsStreaming {
		t.Error("Snapshot should preserve streaming state")
	}
}

func TestNoticeDoesNotBreakAlternation(t *testing.T) {
	conv := NewConversation()
	conv.AppendUser("q1")
	conv.AppendAssistantPlaceholder()
	conv.AppendToLast("a1")
	conv.SealLast()

	before := conv.Len()
	conv.AppendNotice("Document report.pdf detached.")
	if conv.Len() != before+1 {
		t.Errorf("Notice should add exactly one message, got %d -> %d", before, conv.Len())
	}

	snap := conv.Snapshot()
	if snap[0].Content != "q1" || snap[1].Content != "a1" {
		t.Error("Prior messages must be untouched by a notice")
	}
	if !snap[2].Notice {
		t.Error("Appended message should be a notice")
	}
}
