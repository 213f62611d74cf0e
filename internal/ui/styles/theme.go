// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme holds all the styled components for the application. It detects the
// terminal's color capability and adjusts accordingly.
type Theme struct {
	// Terminal capabilities
	IsDark       bool
	HasTrueColor bool
	ColorProfile termenv.Profile

	// ==========================================================================
	// HEADER STYLES
	// ==========================================================================

	Header      lipgloss.Style
	HeaderTitle lipgloss.Style

	// ==========================================================================
	// MESSAGE STYLES
	// ==========================================================================

	UserLabel      lipgloss.Style
	AssistantLabel lipgloss.Style
	MessageBody    lipgloss.Style
	Notice         lipgloss.Style
	CancelledMark  lipgloss.Style
	ErrorText      lipgloss.Style

	// ==========================================================================
	// INPUT AREA STYLES
	// ==========================================================================

	InputPrompt lipgloss.Style
	InputText   lipgloss.Style

	// ==========================================================================
	// STATUS BAR STYLES
	// ==========================================================================

	StatusBar    lipgloss.Style
	StatusKey    lipgloss.Style
	StatusValue  lipgloss.Style
	DocAttached  lipgloss.Style
	DocDetached  lipgloss.Style
	StateIdle    lipgloss.Style
	StateBusy    lipgloss.Style
	Spinner      lipgloss.Style
}

// NewTheme creates a theme adapted to the current terminal.
func NewTheme() *Theme {
	colorProfile := termenv.ColorProfile()

	t := &Theme{
		IsDark:       termenv.HasDarkBackground(),
		HasTrueColor: colorProfile == termenv.TrueColor,
		ColorProfile: colorProfile,
	}

	t.Header = lipgloss.NewStyle().
		Background(SurfaceDim).
		Foreground(TextPrimary).
		Padding(0, 1)
	t.HeaderTitle = lipgloss.NewStyle().
		Foreground(Cyan).
		Bold(true)

	t.UserLabel = lipgloss.NewStyle().
		Foreground(Cyan).
		Bold(true)
	t.AssistantLabel = lipgloss.NewStyle().
		Foreground(Purple).
		Bold(true)
	t.MessageBody = lipgloss.NewStyle().
		Foreground(TextPrimary)
	t.Notice = lipgloss.NewStyle().
		Foreground(TextMuted).
		Italic(true)
	t.CancelledMark = lipgloss.NewStyle().
		Foreground(Amber)
	t.ErrorText = lipgloss.NewStyle().
		Foreground(Rose)

	t.InputPrompt = lipgloss.NewStyle().
		Foreground(Cyan).
		Bold(true)
	t.InputText = lipgloss.NewStyle().
		Foreground(TextPrimary)

	t.StatusBar = lipgloss.NewStyle().
		Background(SurfaceDim).
		Foreground(TextMuted).
		Padding(0, 1)
	t.StatusKey = lipgloss.NewStyle().
		Foreground(Cyan).
		Bold(true)
	t.StatusValue = lipgloss.NewStyle().
		Foreground(TextPrimary)
	t.DocAttached = lipgloss.NewStyle().
		Foreground(Emerald).
		Bold(true)
	t.DocDetached = lipgloss.NewStyle().
		Foreground(TextMuted)
	t.StateIdle = lipgloss.NewStyle().
		Foreground(Emerald)
	t.StateBusy = lipgloss.NewStyle().
		Foreground(Amber)
	t.Spinner = lipgloss.NewStyle().
		Foreground(Purple)

	return t
}
