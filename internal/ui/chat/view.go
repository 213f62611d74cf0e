// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/jeranaias/docchat-tui/internal/model"
)

// =============================================================================
// VIEW
// =============================================================================

// View renders the full chat screen: header, transcript, input, status bar.
func (m Model) View() string {
	if !m.ready {
		return "Starting docchat..."
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.viewport.View())
	b.WriteString("\n")
	b.WriteString(m.renderInput())
	b.WriteString("\n")
	b.WriteString(m.renderStatusBar())
	return b.String()
}

// renderHeader draws the title line.
func (m Model) renderHeader() string {
	title := m.theme.HeaderTitle.Render("docchat")
	sub := " · chat with your documents"
	line := title + sub
	return m.theme.Header.Width(m.width).Render(line)
}

// renderInput draws the prompt line, with a spinner while busy.
func (m Model) renderInput() string {
	prompt := m.theme.InputPrompt.Render("> ")
	if m.busy() {
		prompt = m.spin.View() + " "
	}
	return prompt + m.input.View()
}

// =============================================================================
// TRANSCRIPT
// =============================================================================

// renderConversation builds the viewport content from a snapshot.
func (m Model) renderConversation() string {
	snap := m.conversation.Snapshot()
	if len(snap) == 0 {
		return m.theme.Notice.Render(
			"No messages yet. Type a question, or /attach a PDF to chat about it.")
	}

	var b strings.Builder
	for i, msg := range snap {
		if i > 0 {
			b.WriteString("\n\n")
		}
		switch {
		case msg.Notice:
			b.WriteString(m.theme.Notice.Render("• " + msg.Content))

		case msg.Role == model.RoleUser:
			b.WriteString(m.theme.UserLabel.Render("You"))
			b.WriteString("\n")
			b.WriteString(m.theme.MessageBody.Render(msg.Content))

		case msg.Role == model.RoleAssistant:
			b.WriteString(m.theme.AssistantLabel.Render("Assistant"))
			b.WriteString("\n")
			b.WriteString(m.renderAssistantBody(msg))
		}
	}
	return b.String()
}

// renderAssistantBody renders assistant content. Sealed messages get full
// markdown rendering; streaming content stays plain so partial markdown
// never flickers through half-parsed states.
func (m Model) renderAssistantBody(msg model.Message) string {
	if msg.IsStreaming {
		cursor := "▌"
		if msg.Content == "" {
			return m.theme.Notice.Render("thinking") + " " + cursor
		}
		return m.theme.MessageBody.Render(msg.Content) + cursor
	}
	if m.renderer != nil {
		if rendered, err := m.renderer.Render(msg.Content); err == nil {
			return strings.TrimRight(rendered, "\n")
		}
	}
	return m.theme.MessageBody.Render(msg.Content)
}

// =============================================================================
// STATUS BAR
// =============================================================================

// renderStatusBar draws the bottom line: stream state, document badge,
// model, and any transient status message.
func (m Model) renderStatusBar() string {
	var parts []string

	state := "ready"
	style := m.theme.StateIdle
	switch {
	case m.uploading:
		state = "uploading"
		style = m.theme.StateBusy
	case m.streaming():
		state = m.handle.State().String()
		style = m.theme.StateBusy
	}
	parts = append(parts, style.Render(state))

	if doc, ok := m.sess.Document(); ok {
		parts = append(parts, m.theme.DocAttached.Render(
			fmt.Sprintf("doc:%s (%d chunks)", doc.Name, doc.ChunkCount)))
	} else {
		parts = append(parts, m.theme.DocDetached.Render("no document"))
	}

	parts = append(parts, m.theme.StatusValue.Render(m.cfg.Model))
	parts = append(parts, m.theme.DocDetached.Render("sess:"+idTail(m.sess.ID())))

	if m.statusMsg != "" {
		// Truncate before styling so ANSI sequences never get cut mid-way.
		used := lipgloss.Width(strings.Join(parts, " │ "))
		budget := m.width - used - 6
		if budget > 8 {
			parts = append(parts, m.theme.ErrorText.Render(
				runewidth.Truncate(m.statusMsg, budget, "…")))
		}
	}

	line := strings.Join(parts, " │ ")
	return m.theme.StatusBar.Width(m.width).Render(line)
}

// idTail returns the last segment of a session id for compact display.
func idTail(id string) string {
	if i := strings.LastIndex(id, "-"); i >= 0 {
		return id[i+1:]
	}
	if len(id) > 12 {
		return id[len(id)-12:]
	}
	return id
}
