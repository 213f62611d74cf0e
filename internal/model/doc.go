// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and messages.
//
// The Conversation type is the single serialization point for all message
// mutation: the streaming consumer, the session context, and the UI all go
// through its narrow append/seal/clear API. Nothing outside this package
// mutates a Message directly.
package model
