// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"
	"testing"

	"github.com/jeranaias/docchat-tui/internal/config"
	"github.com/jeranaias/docchat-tui/internal/model"
	"github.com/jeranaias/docchat-tui/internal/session"
	"github.com/jeranaias/docchat-tui/internal/ui/styles"
)

func newCommandTestModel() Model {
	conv := model.NewConversation()
	settings := model.DefaultRetrievalSettings()
	sess := session.NewContext(nil, conv, &settings)
	return Model{
		theme:        styles.NewTheme(),
		keyMap:       DefaultKeyMap(),
		cfg:          config.Default(),
		sess:         sess,
		conversation: conv,
		gate:         NewRenderGate(30),
	}
}

// =============================================================================
// SLASH COMMAND TESTS
// =============================================================================

func TestSettingsCommandShowsCurrentValues(t *testing.T) {
	m := newCommandTestModel()

	m, _ = m.handleCommand("/settings")
	if !strings.Contains(m.statusMsg, "chunk_size=1000") {
		t.Errorf("Expected current settings in status, got %q", m.statusMsg)
	}
}

func TestSettingsCommandClampsAndEchoesStoredValue(t *testing.T) {
	m := newCommandTestModel()

	// 50 is below the floor; the echo must show the clamped value.
	m, _ = m.handleCommand("/settings chunk_size 50")
	if !strings.Contains(m.statusMsg, "chunk_size=100") {
		t.Errorf("Expected clamped chunk_size in echo, got %q", m.statusMsg)
	}
	if m.sess.Settings().ChunkSize() != model.MinChunkSize {
		t.Errorf("Setting not applied, got %d", m.sess.Settings().ChunkSize())
	}
}

func TestSettingsCommandShrinkDragsOverlap(t *testing.T) {
	m := newCommandTestModel()
	m, _ = m.handleCommand("/settings chunk_size 2000")
	m, _ = m.handleCommand("/settings chunk_overlap 1900")

	m, _ = m.handleCommand("/settings chunk_size 500")
	if got := m.sess.Settings().ChunkOverlap(); got != 450 {
		t.Errorf("Expected overlap dragged to 450, got %d", got)
	}
}

func TestSettingsCommandRejectsNonNumeric(t *testing.T) {
	m := newCommandTestModel()

	m, _ = m.handleCommand("/settings chunk_size abc")
	if !strings.Contains(m.statusMsg, "Not a number") {
		t.Errorf("Expected parse complaint, got %q", m.statusMsg)
	}
	if m.sess.Settings().ChunkSize() != model.DefaultChunkSize {
		t.Error("Bad input must not change the setting")
	}
}

func TestUnknownCommandSuggestsHelp(t *testing.T) {
	m := newCommandTestModel()

	m, _ = m.handleCommand("/frobnicate")
	if !strings.Contains(m.statusMsg, "/help") {
		t.Errorf("Expected help hint, got %q", m.statusMsg)
	}
}

func TestAttachCommandRequiresPath(t *testing.T) {
	m := newCommandTestModel()

	m, cmd := m.handleCommand("/attach")
	if cmd != nil {
		t.Error("Malformed /attach must not start an upload")
	}
	if !strings.Contains(m.statusMsg, "Usage") {
		t.Errorf("Expected usage hint, got %q", m.statusMsg)
	}
}
