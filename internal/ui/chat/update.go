// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/docchat-tui/internal/stream"
)

// =============================================================================
// UPDATE LOOP
// =============================================================================

// Update handles all Bubble Tea messages for the chat view.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m = m.resize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keyMap.Quit):
			if m.streaming() {
				m.handle.Cancel()
			}
			return m, tea.Quit

		case key.Matches(msg, m.keyMap.Cancel):
			if m.streaming() {
				m.handle.Cancel()
				m.statusMsg = "Cancelling..."
			}
			return m, nil

		case key.Matches(msg, m.keyMap.Clear):
			return m, clearCmd(m.sess)

		case key.Matches(msg, m.keyMap.ScrollUp):
			m.viewport.HalfViewUp()
			return m, nil

		case key.Matches(msg, m.keyMap.ScrollDown):
			m.viewport.HalfViewDown()
			return m, nil

		case key.Matches(msg, m.keyMap.Send):
			return m.submit()
		}

	case StreamTickMsg:
		if m.gate.ShouldRender(m.conversation.UpdatedAt()) {
			m.refreshViewport()
		}
		if m.streaming() {
			return m, streamTickCmd()
		}
		return m, nil

	case StreamDoneMsg:
		m.statusMsg = ""
		switch msg.State {
		case stream.StateCancelled:
			m.statusMsg = "Cancelled"
		case stream.StateFailed:
			if msg.Err != nil {
				m.statusMsg = msg.Err.Error()
			} else {
				m.statusMsg = "Request failed"
			}
		}
		m.forceRender()
		m.input.Focus()
		return m, textinput.Blink

	case AttachResultMsg:
		m.uploading = false
		m.statusMsg = ""
		if msg.Err != nil {
			m.statusMsg = msg.Err.Error()
		}
		m.forceRender()
		m.input.Focus()
		return m, textinput.Blink

	case DetachResultMsg, ClearResultMsg:
		m.statusMsg = ""
		if err := resultErr(msg); err != nil {
			// Local state already changed; the remote failure is advisory.
			m.statusMsg = "Backend not updated: " + err.Error()
		}
		m.forceRender()
		return m, nil

	case ReconcileResultMsg:
		// Startup probe; a dead backend here is not worth a banner.
		if msg.Err == nil {
			m.refreshViewport()
		}
		return m, nil

	case ConfigReloadedMsg:
		if msg.Config != nil {
			m.cfg = msg.Config
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)

	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// resultErr extracts the error from a detach or clear result.
func resultErr(msg tea.Msg) error {
	switch msg := msg.(type) {
	case DetachResultMsg:
		return msg.Err
	case ClearResultMsg:
		return msg.Err
	}
	return nil
}

// =============================================================================
// SUBMIT
// =============================================================================

// submit handles Enter: dispatches slash commands, otherwise starts an
// exchange.
func (m Model) submit() (Model, tea.Cmd) {
	text := strings.TrimSpace(m.input.Value())
	if text == "" {
		return m, nil
	}
	if strings.HasPrefix(text, "/") {
		m.input.Reset()
		return m.handleCommand(text)
	}

	handle, err := m.consumer.Send(context.Background(), text, m.sessionInfo(), m.streamOptions())
	if err != nil {
		switch {
		case errors.Is(err, stream.ErrStreamActive):
			m.statusMsg = "Wait for the current response to finish (Esc cancels)"
		case errors.Is(err, stream.ErrEmptyMessage):
			// Nothing to send.
		default:
			m.statusMsg = err.Error()
		}
		return m, nil
	}

	m.handle = handle
	m.statusMsg = ""
	m.input.Reset()
	m.input.Blur()
	m.forceRender()

	return m, tea.Batch(waitStreamCmd(handle), streamTickCmd())
}

// =============================================================================
// LAYOUT
// =============================================================================

// chromeHeight is the lines taken by header, input line, and status bar.
const chromeHeight = 4

// resize lays the component out for a new terminal size.
func (m Model) resize(width, height int) Model {
	m.width = width
	m.height = height

	vpHeight := height - chromeHeight
	if vpHeight < 1 {
		vpHeight = 1
	}

	if !m.ready {
		m.viewport = viewport.New(width, vpHeight)
		m.ready = true
	} else {
		m.viewport.Width = width
		m.viewport.Height = vpHeight
	}

	m.input.Width = width - 4
	m.renderer = newRenderer(width - 2)

	m.forceRender()
	return m
}

// forceRender repaints immediately, bypassing the frame cap. Used when an
// exchange settles or session state changes out of band.
func (m *Model) forceRender() {
	m.gate.Force()
	m.gate.ShouldRender(m.conversation.UpdatedAt())
	m.refreshViewport()
}

// refreshViewport rebuilds the transcript and pins the view to the bottom.
func (m *Model) refreshViewport() {
	if !m.ready {
		return
	}
	m.viewport.SetContent(m.renderConversation())
	m.viewport.GotoBottom()
}
