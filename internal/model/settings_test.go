// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import "testing"

// =============================================================================
// RETRIEVAL SETTINGS TESTS
// =============================================================================

func TestDefaultRetrievalSettings(t *testing.T) {
	s := DefaultRetrievalSettings()

	if s.ChunkSize() != 1000 {
		t.Errorf("Expected default chunk size 1000, got %d", s.ChunkSize())
	}
	if s.ChunkOverlap() != 200 {
		t.Errorf("Expected default overlap 200, got %d", s.ChunkOverlap())
	}
	if s.RetrievalCount() != 3 {
		t.Errorf("Expected default retrieval count 3, got %d", s.RetrievalCount())
	}
}

func TestChunkSizeClamping(t *testing.T) {
	s := DefaultRetrievalSettings()

	s.SetChunkSize(50)
	if s.ChunkSize() != MinChunkSize {
		t.Errorf("Expected chunk size clamped to %d, got %d", MinChunkSize, s.ChunkSize())
	}

	s.SetChunkSize(99999)
	if s.ChunkSize() != MaxChunkSize {
		t.Errorf("Expected chunk size clamped to %d, got %d", MaxChunkSize, s.ChunkSize())
	}
}

func TestOverlapClampsAgainstChunkSize(t *testing.T) {
	s := DefaultRetrievalSettings()

	s.SetChunkOverlap(5000)
	if got, want := s.ChunkOverlap(), s.ChunkSize()-OverlapMargin; got != want {
		t.Errorf("Expected overlap clamped to %d, got %d", want, got)
	}

	s.SetChunkOverlap(-10)
	if s.ChunkOverlap() != 0 {
		t.Errorf("Expected overlap clamped to 0, got %d", s.ChunkOverlap())
	}
}

func TestShrinkingChunkSizeReclampsOverlap(t *testing.T) {
	s := DefaultRetrievalSettings()
	s.SetChunkSize(2000)
	s.SetChunkOverlap(1900)

	// Shrinking the chunk size must drag the overlap down with it.
	s.SetChunkSize(500)
	if got := s.ChunkOverlap(); got != 450 {
		t.Errorf("Expected overlap re-clamped to 450, got %d", got)
	}
}

func TestRetrievalCountClamping(t *testing.T) {
	s := DefaultRetrievalSettings()

	s.SetRetrievalCount(0)
	if s.RetrievalCount() != MinRetrievalCount {
		t.Errorf("Expected retrieval count %d, got %d", MinRetrievalCount, s.RetrievalCount())
	}

	s.SetRetrievalCount(100)
	if s.RetrievalCount() != MaxRetrievalCount {
		t.Errorf("Expected retrieval count %d, got %d", MaxRetrievalCount, s.RetrievalCount())
	}
}

// TestClampLawHoldsUnderWriteSequences drives the settings through a mixed
// sequence of writes and checks the invariant after every single write.
func TestClampLawHoldsUnderWriteSequences(t *testing.T) {
	type write struct {
		field string
		value int
	}
	writes := []write{
		{"size", 4000}, {"overlap", 3950}, {"size", 100}, {"overlap", 60},
		{"size", -5}, {"overlap", 100000}, {"size", 2500}, {"overlap", 0},
		{"size", 150}, {"count", 42}, {"overlap", 101}, {"size", 1000},
	}

	s := DefaultRetrievalSettings()
	for i, w := range writes {
		switch w.field {
		case "size":
			s.SetChunkSize(w.value)
		case "overlap":
			s.SetChunkOverlap(w.value)
		case "count":
			s.SetRetrievalCount(w.value)
		}

		if s.ChunkOverlap() < 0 || s.ChunkOverlap() > s.ChunkSize()-OverlapMargin {
			t.Fatalf("Clamp law violated after write %d (%s=%d): size=%d overlap=%d",
				i, w.field, w.value, s.ChunkSize(), s.ChunkOverlap())
		}
		if s.ChunkSize() < MinChunkSize || s.ChunkSize() > MaxChunkSize {
			t.Fatalf("Chunk size out of range after write %d: %d", i, s.ChunkSize())
		}
		if s.RetrievalCount() < MinRetrievalCount || s.RetrievalCount() > MaxRetrievalCount {
			t.Fatalf("Retrieval count out of range after write %d: %d", i, s.RetrievalCount())
		}
	}
}

func TestNewRetrievalSettingsClampsInputs(t *testing.T) {
	s := NewRetrievalSettings(999999, 999999, 999999)

	if s.ChunkSize() != MaxChunkSize {
		t.Errorf("Expected chunk size %d, got %d", MaxChunkSize, s.ChunkSize())
	}
	if s.ChunkOverlap() != MaxChunkSize-OverlapMargin {
		t.Errorf("Expected overlap %d, got %d", MaxChunkSize-OverlapMargin, s.ChunkOverlap())
	}
	if s.RetrievalCount() != MaxRetrievalCount {
		t.Errorf("Expected retrieval count %d, got %d", MaxRetrievalCount, s.RetrievalCount())
	}
}
