// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the chat view component for the TUI.
//
// This file defines the Bubble Tea message types used by the chat
// interface. All message types follow Bubble Tea conventions and are
// immutable.
package chat

import (
	"time"

	"github.com/jeranaias/docchat-tui/internal/config"
	"github.com/jeranaias/docchat-tui/internal/stream"
)

// =============================================================================
// STREAMING MESSAGES
// =============================================================================

// StreamTickMsg is sent on a capped cadence during streaming so fragment
// arrivals are batched into repaints instead of repainting per token.
type StreamTickMsg struct {
	Time time.Time
}

// StreamDoneMsg signals that the in-flight exchange reached a terminal
// state.
type StreamDoneMsg struct {
	State stream.State
	Err   error
}

// =============================================================================
// SESSION MESSAGES
// =============================================================================

// AttachResultMsg reports the outcome of a document upload.
type AttachResultMsg struct {
	Err error
}

// DetachResultMsg reports the outcome of a document detach.
type DetachResultMsg struct {
	Err error
}

// ClearResultMsg reports the outcome of a conversation clear.
type ClearResultMsg struct {
	Err error
}

// ReconcileResultMsg reports the outcome of the startup document-status
// probe.
type ReconcileResultMsg struct {
	Err error
}

// =============================================================================
// CONFIG MESSAGES
// =============================================================================

// ConfigReloadedMsg delivers a configuration reloaded from disk. Only
// request-level fields take effect; retrieval settings stay session-owned.
type ConfigReloadedMsg struct {
	Config *config.Config
}
