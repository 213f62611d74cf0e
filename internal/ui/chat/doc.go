// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the chat view component for the TUI.
//
// The component owns the transcript viewport, the input line, and the
// status bar. Streaming happens off the Bubble Tea loop: the stream
// consumer folds fragments straight into the conversation, and the view
// repaints on a capped tick while an exchange is in flight.
package chat
