// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session ties one conversation, one optional attached document,
// and the retrieval settings together under a stable session identifier.
//
// The backend keys all per-session state (message history, vector index) on
// this identifier, so it is generated once per program run and sent with
// every request. Remote mutations are best-effort: local state is the
// source of truth for what the user sees, and a dead backend never blocks a
// local clear or detach.
package session

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/jeranaias/docchat-tui/internal/api"
	"github.com/jeranaias/docchat-tui/internal/model"
)

// =============================================================================
// TYPES
// =============================================================================

// Document describes the PDF currently attached to the session.
type Document struct {
	Name       string
	ChunkCount int
}

// Remote is the backend surface the session needs. *api.Client satisfies
// it; tests substitute fakes.
type Remote interface {
	UploadPDF(ctx context.Context, sessionID, filename string, r io.Reader, chunkSize, chunkOverlap int) (*api.UploadResult, error)
	ClearPDF(ctx context.Context, sessionID string) error
	ClearConversation(ctx context.Context, sessionID string) error
	PDFStatus(ctx context.Context, sessionID string) (*api.DocumentStatus, error)
}

// Context is the session-scoped state for one program run. Safe for
// concurrent use.
type Context struct {
	id       string
	remote   Remote
	store    *model.Conversation
	settings *model.RetrievalSettings

	mu  sync.Mutex
	doc *Document
}

// NewContext creates a session with a fresh random identifier.
func NewContext(remote Remote, store *model.Conversation, settings *model.RetrievalSettings) *Context {
	return &Context{
		id:       uuid.NewString(),
		remote:   remote,
		store:    store,
		settings: settings,
	}
}

// ID returns the session identifier sent with every backend request.
func (s *Context) ID() string { return s.id }

// Conversation returns the session's message log.
func (s *Context) Conversation() *model.Conversation { return s.store }

// Settings returns the session's retrieval settings.
func (s *Context) Settings() *model.RetrievalSettings { return s.settings }

// Document returns the attached document, if any.
func (s *Context) Document() (Document, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc == nil {
		return Document{}, false
	}
	return *s.doc, true
}

// DocumentAttached reports whether a document is attached.
func (s *Context) DocumentAttached() bool {
	_, ok := s.Document()
	return ok
}

// =============================================================================
// DOCUMENT LIFECYCLE
// =============================================================================

// AttachFile uploads the PDF at path and attaches it to the session,
// replacing any previously attached document on the backend side.
func (s *Context) AttachFile(ctx context.Context, path string) error {
	if !strings.EqualFold(filepath.Ext(path), ".pdf") {
		return fmt.Errorf("only PDF files can be attached: %s", filepath.Base(path))
	}
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", filepath.Base(path), err)
	}
	defer f.Close()
	return s.AttachDocument(ctx, filepath.Base(path), f)
}

// AttachDocument uploads document content for chunking and indexing under
// this session, records the result locally, and appends a system notice.
// On error nothing changes locally.
func (s *Context) AttachDocument(ctx context.Context, filename string, r io.Reader) error {
	result, err := s.remote.UploadPDF(ctx, s.id, filename, r,
		s.settings.ChunkSize(), s.settings.ChunkOverlap())
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.doc = &Document{Name: result.Filename, ChunkCount: result.ChunksCreated}
	s.mu.Unlock()

	s.store.AppendNotice(fmt.Sprintf("Attached %s (%d chunks indexed).", result.Filename, result.ChunksCreated))
	return nil
}

// DetachDocument removes the attached document. The backend delete is
// best-effort: the local detach and notice happen regardless, and the
// remote error (if any) is returned for logging only.
func (s *Context) DetachDocument(ctx context.Context) error {
	s.mu.Lock()
	doc := s.doc
	s.doc = nil
	s.mu.Unlock()

	if doc == nil {
		return nil
	}
	s.store.AppendNotice(fmt.Sprintf("Document %s detached.", doc.Name))

	err := s.remote.ClearPDF(ctx, s.id)
	if err != nil && err != api.ErrNoDocument {
		log.Printf("Remote PDF clear failed (session %s): %v", s.id, err)
		return err
	}
	return nil
}

// ClearConversation empties the local message log and asks the backend to
// drop its server-side history. The local clear always happens; the remote
// error (if any) is returned for logging only.
func (s *Context) ClearConversation(ctx context.Context) error {
	s.store.Clear()

	if err := s.remote.ClearConversation(ctx, s.id); err != nil {
		log.Printf("Remote conversation clear failed (session %s): %v", s.id, err)
		return err
	}
	return nil
}

// Reconcile adopts the backend's view of the session's document. Called at
// startup; errors are returned for logging and leave local state untouched.
func (s *Context) Reconcile(ctx context.Context) error {
	status, err := s.remote.PDFStatus(ctx, s.id)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if status.HasPDF {
		s.doc = &Document{Name: status.Filename, ChunkCount: status.Chunks}
	} else {
		s.doc = nil
	}
	return nil
}
