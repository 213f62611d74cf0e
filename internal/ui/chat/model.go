// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"github.com/jeranaias/docchat-tui/internal/config"
	"github.com/jeranaias/docchat-tui/internal/model"
	"github.com/jeranaias/docchat-tui/internal/session"
	"github.com/jeranaias/docchat-tui/internal/stream"
	"github.com/jeranaias/docchat-tui/internal/ui/styles"
)

// =============================================================================
// CHAT MODEL
// =============================================================================

// Model is the Bubble Tea model for the chat view.
type Model struct {
	// Styling
	theme  *styles.Theme
	keyMap KeyMap

	// Dimensions
	width  int
	height int
	ready  bool

	// Wiring
	cfg          *config.Config
	sess         *session.Context
	consumer     *stream.Consumer
	conversation *model.Conversation

	// UI components
	viewport viewport.Model
	input    textinput.Model
	spin     spinner.Model

	// Markdown rendering for sealed assistant messages. Rebuilt on resize;
	// nil until the first WindowSizeMsg arrives.
	renderer *glamour.TermRenderer

	// Streaming render optimization
	gate *RenderGate

	// In-flight exchange, nil when idle. Must be accessed through methods
	// since Bubble Tea copies the model on every update.
	handle *stream.Handle

	// Transient state
	uploading bool
	statusMsg string
}

// New creates the chat view wired to a session and stream consumer.
func New(cfg *config.Config, sess *session.Context, consumer *stream.Consumer, theme *styles.Theme) Model {
	input := textinput.New()
	input.Placeholder = "Ask a question, or /attach a PDF"
	input.Prompt = ""
	input.CharLimit = 4000
	input.Focus()

	spin := spinner.New(spinner.WithSpinner(spinner.Dot))
	spin.Style = theme.Spinner

	return Model{
		theme:        theme,
		keyMap:       DefaultKeyMap(),
		cfg:          cfg,
		sess:         sess,
		consumer:     consumer,
		conversation: sess.Conversation(),
		input:        input,
		spin:         spin,
		gate:         NewRenderGate(cfg.UI.MaxFPS),
	}
}

// Init starts the spinner, the input cursor, and the startup reconcile.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		m.spin.Tick,
		reconcileCmd(m.sess),
	)
}

// streaming reports whether an exchange is in flight.
func (m Model) streaming() bool {
	return m.handle != nil && !m.handle.State().Terminal()
}

// busy reports whether the UI should show activity and block sends.
func (m Model) busy() bool {
	return m.streaming() || m.uploading
}

// sessionInfo builds the per-request session parameters.
func (m Model) sessionInfo() stream.SessionInfo {
	return stream.SessionInfo{
		ID:               m.sess.ID(),
		DocumentAttached: m.sess.DocumentAttached(),
	}
}

// streamOptions builds the per-request options from the live config.
func (m Model) streamOptions() stream.Options {
	return stream.Options{
		Model:            m.cfg.Model,
		APIKey:           m.cfg.APIKey,
		DeveloperMessage: m.cfg.DeveloperMessage,
		Retrieval:        *m.sess.Settings(),
		SkipHealthCheck:  !m.cfg.HealthCheck,
	}
}

// newRenderer builds a glamour renderer for the current width.
func newRenderer(width int) *glamour.TermRenderer {
	if width < 20 {
		width = 20
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil
	}
	return r
}
