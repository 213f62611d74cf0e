// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/docchat-tui/internal/config"
)

// =============================================================================
// CONFIG RELOAD
// =============================================================================

func TestConfigReloadSwapsRequestFields(t *testing.T) {
	m := newCommandTestModel()
	m.cfg.APIKey = "sk-before"
	m.cfg.Model = "gpt-4o-mini"

	reloaded := config.Default()
	reloaded.APIKey = "sk-after"
	reloaded.Model = "gpt-4o"
	reloaded.DeveloperMessage = "Answer tersely."

	updated, _ := m.Update(ConfigReloadedMsg{Config: reloaded})
	m = updated.(Model)

	// The next send builds its request from the live config.
	opts := m.streamOptions()
	if opts.APIKey != "sk-after" {
		t.Errorf("Expected reloaded key on next exchange, got %q", opts.APIKey)
	}
	if opts.Model != "gpt-4o" {
		t.Errorf("Expected reloaded model on next exchange, got %q", opts.Model)
	}
	if opts.DeveloperMessage != "Answer tersely." {
		t.Errorf("Expected reloaded developer message, got %q", opts.DeveloperMessage)
	}
}

func TestConfigReloadIgnoresNil(t *testing.T) {
	m := newCommandTestModel()
	m.cfg.APIKey = "sk-keep"

	updated, _ := m.Update(ConfigReloadedMsg{Config: nil})
	m = updated.(Model)

	if m.cfg.APIKey != "sk-keep" {
		t.Errorf("Nil reload must keep the current config, got key %q", m.cfg.APIKey)
	}
}

// =============================================================================
// SCROLL KEYS
// =============================================================================

func TestScrollKeysMoveViewport(t *testing.T) {
	m := newCommandTestModel()
	m = m.resize(80, 10)

	m.viewport.SetContent(strings.TrimRight(strings.Repeat("line\n", 50), "\n"))
	m.viewport.GotoBottom()
	bottom := m.viewport.YOffset
	if bottom == 0 {
		t.Fatal("Content must overflow the viewport for this test")
	}

	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyPgUp})
	m = updated.(Model)
	if m.viewport.YOffset >= bottom {
		t.Errorf("PgUp must scroll up, offset %d -> %d", bottom, m.viewport.YOffset)
	}

	scrolled := m.viewport.YOffset
	updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyPgDown})
	m = updated.(Model)
	if m.viewport.YOffset <= scrolled {
		t.Errorf("PgDn must scroll back down, offset %d -> %d", scrolled, m.viewport.YOffset)
	}
}
