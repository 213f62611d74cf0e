// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"testing"
	"time"
)

// =============================================================================
// RENDER GATE TESTS
// =============================================================================

func TestRenderGateRendersNewVersion(t *testing.T) {
	gate := NewRenderGate(30)

	if !gate.ShouldRender(time.Now()) {
		t.Error("First render of a new version should pass")
	}
}

func TestRenderGateSkipsUnchangedVersion(t *testing.T) {
	gate := NewRenderGate(30)
	version := time.Now()

	if !gate.ShouldRender(version) {
		t.Fatal("First render should pass")
	}
	time.Sleep(50 * time.Millisecond)
	if gate.ShouldRender(version) {
		t.Error("Same version must not repaint, even after the interval")
	}
}

func TestRenderGateCapsFrameRate(t *testing.T) {
	gate := NewRenderGate(30) // ~33ms interval

	if !gate.ShouldRender(time.Now()) {
		t.Fatal("First render should pass")
	}
	// Immediately newer content is still held back by the frame cap.
	if gate.ShouldRender(time.Now()) {
		t.Error("Repaint inside the frame interval must be suppressed")
	}

	time.Sleep(40 * time.Millisecond)
	if !gate.ShouldRender(time.Now()) {
		t.Error("Repaint after the interval with new content should pass")
	}
}

func TestRenderGateForceBypassesCap(t *testing.T) {
	gate := NewRenderGate(30)
	if !gate.ShouldRender(time.Now()) {
		t.Fatal("First render should pass")
	}

	gate.Force()
	if !gate.ShouldRender(time.Now()) {
		t.Error("Force must allow an immediate repaint")
	}
}

func TestRenderGateDefaultsBadFPS(t *testing.T) {
	for _, fps := range []int{0, -5, 121, 1000} {
		gate := NewRenderGate(fps)
		if gate.minInterval != 33*time.Millisecond {
			t.Errorf("FPS %d: expected default 33ms interval, got %v", fps, gate.minInterval)
		}
	}
}

// The gate accepts the full range config validation allows, so a valid
// max_fps is never silently replaced.
func TestRenderGateAcceptsConfiguredRange(t *testing.T) {
	if gate := NewRenderGate(120); gate.minInterval != 8*time.Millisecond {
		t.Errorf("FPS 120: expected 8ms interval, got %v", gate.minInterval)
	}
	if gate := NewRenderGate(1); gate.minInterval != 1000*time.Millisecond {
		t.Errorf("FPS 1: expected 1s interval, got %v", gate.minInterval)
	}
}
