// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api provides the HTTP client for the document-chat backend.
//
// The backend exposes a small JSON-over-HTTP surface: a streamed chat
// completion endpoint, a multipart PDF upload, per-session clear calls,
// a document status probe, and a health check. Chat responses stream as
// plain text; depending on the deployment the body is either raw
// concatenated chunks or newline-delimited "data: "-prefixed events, and
// the Decoder in this package tolerates both.
package api
