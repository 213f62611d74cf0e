// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the chat view component for the TUI.
//
// This file implements streaming render optimization. Fragments land in
// the conversation from the consumer goroutine at whatever rate the
// backend produces them; repainting at that rate causes flicker and high
// CPU. The RenderGate caps repaints at a fixed frame rate and skips
// repaints when nothing changed since the last one.
package chat

import (
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// =============================================================================
// RENDER GATE
// =============================================================================

// RenderGate decides whether a streaming tick should rebuild the viewport.
// A repaint happens only when the conversation changed since the last
// repaint AND the minimum frame interval has elapsed.
//
// Thread-safety: ticks arrive on the Bubble Tea loop, but Force may be
// called from message handlers after out-of-band mutations, so state is
// mutex-protected.
type RenderGate struct {
	mu          sync.Mutex
	minInterval time.Duration
	lastRender  time.Time
	lastVersion time.Time
}

// NewRenderGate creates a gate capped at maxFPS repaints per second. The
// accepted range matches config validation; anything outside it falls back
// to 30.
func NewRenderGate(maxFPS int) *RenderGate {
	if maxFPS <= 0 || maxFPS > 120 {
		maxFPS = 30
	}
	return &RenderGate{
		minInterval: time.Duration(1000/maxFPS) * time.Millisecond,
	}
}

// ShouldRender reports whether a repaint is due for the given conversation
// version (its last-updated time) and records it as rendered if so.
func (g *RenderGate) ShouldRender(version time.Time) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !version.After(g.lastVersion) {
		return false
	}
	if time.Since(g.lastRender) < g.minInterval {
		return false
	}
	g.lastRender = time.Now()
	g.lastVersion = version
	return true
}

// Force marks the gate stale so the next ShouldRender repaints regardless
// of the frame interval. Used when an exchange settles and the final
// content must land on screen immediately.
func (g *RenderGate) Force() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.lastRender = time.Time{}
	g.lastVersion = time.Time{}
}

// =============================================================================
// STREAMING TICK COMMAND
// =============================================================================

// streamTickCmd schedules the next streaming repaint check at ~30fps.
func streamTickCmd() tea.Cmd {
	return tea.Tick(33*time.Millisecond, func(t time.Time) tea.Msg {
		return StreamTickMsg{Time: t}
	})
}
