// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and messages.
package model

// Bounds for retrieval configuration. The overlap margin keeps chunk overlap
// strictly below chunk size so the backend splitter always makes progress.
const (
	MinChunkSize      = 100
	MaxChunkSize      = 4000
	MinRetrievalCount = 1
	MaxRetrievalCount = 10
	OverlapMargin     = 50

	DefaultChunkSize      = 1000
	DefaultChunkOverlap   = 200
	DefaultRetrievalCount = 3
)

// RetrievalSettings holds the validated numeric configuration sent with
// requests when a document is attached. Every write clamps, so the invariant
// 0 <= chunkOverlap <= chunkSize - OverlapMargin holds after any sequence of
// mutations, not just at submit time. Fields are unexported: the clamping
// setters are the only mutation path.
type RetrievalSettings struct {
	chunkSize      int
	chunkOverlap   int
	retrievalCount int
}

// DefaultRetrievalSettings returns settings matching the backend's defaults.
func DefaultRetrievalSettings() RetrievalSettings {
	return RetrievalSettings{
		chunkSize:      DefaultChunkSize,
		chunkOverlap:   DefaultChunkOverlap,
		retrievalCount: DefaultRetrievalCount,
	}
}

// NewRetrievalSettings builds settings from raw values, clamping each into
// range. Order matters: chunk size first, then overlap against it.
func NewRetrievalSettings(chunkSize, chunkOverlap, retrievalCount int) RetrievalSettings {
	s := DefaultRetrievalSettings()
	s.SetChunkSize(chunkSize)
	s.SetChunkOverlap(chunkOverlap)
	s.SetRetrievalCount(retrievalCount)
	return s
}

// ChunkSize returns the character size of each document chunk.
func (s *RetrievalSettings) ChunkSize() int { return s.chunkSize }

// ChunkOverlap returns the character overlap between adjacent chunks.
func (s *RetrievalSettings) ChunkOverlap() int { return s.chunkOverlap }

// RetrievalCount returns how many chunks the backend retrieves per query.
func (s *RetrievalSettings) RetrievalCount() int { return s.retrievalCount }

// SetChunkSize clamps n into [MinChunkSize, MaxChunkSize] and re-clamps the
// overlap, so shrinking the chunk size never leaves a stale overlap above
// the new ceiling.
func (s *RetrievalSettings) SetChunkSize(n int) {
	s.chunkSize = clampInt(n, MinChunkSize, MaxChunkSize)
	s.chunkOverlap = clampInt(s.chunkOverlap, 0, s.chunkSize-OverlapMargin)
}

// SetChunkOverlap clamps n into [0, chunkSize - OverlapMargin].
func (s *RetrievalSettings) SetChunkOverlap(n int) {
	s.chunkOverlap = clampInt(n, 0, s.chunkSize-OverlapMargin)
}

// SetRetrievalCount clamps n into [MinRetrievalCount, MaxRetrievalCount].
func (s *RetrievalSettings) SetRetrievalCount(n int) {
	s.retrievalCount = clampInt(n, MinRetrievalCount, MaxRetrievalCount)
}

// clampInt bounds n to [lo, hi].
func clampInt(n, lo, hi int) int {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}
