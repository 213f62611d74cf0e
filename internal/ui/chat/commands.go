// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/docchat-tui/internal/session"
	"github.com/jeranaias/docchat-tui/internal/stream"
)

// sessionOpTimeout bounds the non-streaming backend calls issued from
// slash commands and shortcuts.
const sessionOpTimeout = 30 * time.Second

// =============================================================================
// ASYNC COMMANDS
// =============================================================================

// waitStreamCmd blocks until the exchange settles and reports its outcome.
func waitStreamCmd(h *stream.Handle) tea.Cmd {
	return func() tea.Msg {
		<-h.Done()
		return StreamDoneMsg{State: h.State(), Err: h.Err()}
	}
}

// reconcileCmd adopts the backend's view of the attached document at
// startup.
func reconcileCmd(sess *session.Context) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), sessionOpTimeout)
		defer cancel()
		return ReconcileResultMsg{Err: sess.Reconcile(ctx)}
	}
}

// attachCmd uploads a PDF off the update loop.
func attachCmd(sess *session.Context, path string) tea.Cmd {
	return func() tea.Msg {
		return AttachResultMsg{Err: sess.AttachFile(context.Background(), path)}
	}
}

// detachCmd removes the attached document.
func detachCmd(sess *session.Context) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), sessionOpTimeout)
		defer cancel()
		return DetachResultMsg{Err: sess.DetachDocument(ctx)}
	}
}

// clearCmd empties the conversation locally and server-side.
func clearCmd(sess *session.Context) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), sessionOpTimeout)
		defer cancel()
		return ClearResultMsg{Err: sess.ClearConversation(ctx)}
	}
}

// =============================================================================
// SLASH COMMANDS
// =============================================================================

// handleCommand dispatches a /command entered at the prompt.
func (m Model) handleCommand(line string) (Model, tea.Cmd) {
	fields := strings.Fields(line)
	cmd, args := fields[0], fields[1:]

	switch cmd {
	case "/attach":
		if len(args) != 1 {
			m.statusMsg = "Usage: /attach <path to .pdf>"
			return m, nil
		}
		if m.busy() {
			m.statusMsg = "Wait for the current operation to finish"
			return m, nil
		}
		m.uploading = true
		m.statusMsg = "Uploading " + args[0] + "..."
		m.input.Blur()
		return m, attachCmd(m.sess, args[0])

	case "/detach":
		return m, detachCmd(m.sess)

	case "/clear":
		return m, clearCmd(m.sess)

	case "/settings":
		return m.handleSettings(args)

	case "/help":
		m.statusMsg = "Commands: /attach <path>  /detach  /settings [key value]  /clear  /quit · Keys: esc cancel, ctrl+l clear, pgup/pgdn scroll"
		return m, nil

	case "/quit":
		return m, tea.Quit

	default:
		m.statusMsg = fmt.Sprintf("Unknown command %s (try /help)", cmd)
		return m, nil
	}
}

// handleSettings shows or mutates the retrieval settings. Writes clamp, so
// the confirmation echoes the value actually stored.
func (m Model) handleSettings(args []string) (Model, tea.Cmd) {
	s := m.sess.Settings()

	if len(args) == 0 {
		m.statusMsg = fmt.Sprintf("chunk_size=%d chunk_overlap=%d retrieval_count=%d",
			s.ChunkSize(), s.ChunkOverlap(), s.RetrievalCount())
		return m, nil
	}
	if len(args) != 2 {
		m.statusMsg = "Usage: /settings [chunk_size|chunk_overlap|retrieval_count <n>]"
		return m, nil
	}

	n, err := strconv.Atoi(args[1])
	if err != nil {
		m.statusMsg = fmt.Sprintf("Not a number: %s", args[1])
		return m, nil
	}

	switch args[0] {
	case "chunk_size":
		s.SetChunkSize(n)
		m.statusMsg = fmt.Sprintf("chunk_size=%d chunk_overlap=%d", s.ChunkSize(), s.ChunkOverlap())
	case "chunk_overlap":
		s.SetChunkOverlap(n)
		m.statusMsg = fmt.Sprintf("chunk_overlap=%d", s.ChunkOverlap())
	case "retrieval_count":
		s.SetRetrievalCount(n)
		m.statusMsg = fmt.Sprintf("retrieval_count=%d", s.RetrievalCount())
	default:
		m.statusMsg = fmt.Sprintf("Unknown setting %s", args[0])
	}
	return m, nil
}
