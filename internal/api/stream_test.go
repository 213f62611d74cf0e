// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"errors"
	"io"
	"strings"
	"testing"
	"unicode/utf8"
)

// chunkedReader yields one predefined chunk per Read call, simulating a
// network body that arrives at arbitrary byte boundaries.
type chunkedReader struct {
	chunks [][]byte
}

func (r *chunkedReader) Read(p []byte) (int, error) {
	if len(r.chunks) == 0 {
		return 0, io.EOF
	}
	n := copy(p, r.chunks[0])
	r.chunks[0] = r.chunks[0][n:]
	if len(r.chunks[0]) == 0 {
		r.chunks = r.chunks[1:]
	}
	return n, nil
}

func chunked(chunks ...string) *chunkedReader {
	r := &chunkedReader{}
	for _, c := range chunks {
		r.chunks = append(r.chunks, []byte(c))
	}
	return r
}

// drain collects all fragments until EOF.
func drain(t *testing.T, d *Decoder) []string {
	t.Helper()
	var out []string
	for {
		frag, err := d.Next()
		if err == io.EOF {
			return out
		}
		if err != nil {
			t.Fatalf("Unexpected decode error: %v", err)
		}
		out = append(out, frag)
	}
}

// =============================================================================
// RAW FRAMING
// =============================================================================

func TestDecoderRawPassThrough(t *testing.T) {
	d := NewDecoder(chunked("Hel", "lo, ", "world"))

	frags := drain(t, d)
	if got := strings.Join(frags, ""); got != "Hello, world" {
		t.Errorf("Expected 'Hello, world', got %q", got)
	}
}

func TestDecoderRawPreservesNewlines(t *testing.T) {
	d := NewDecoder(chunked("line one\nline two\n"))

	frags := drain(t, d)
	if got := strings.Join(frags, ""); got != "line one\nline two\n" {
		t.Errorf("Raw newlines must pass through, got %q", got)
	}
}

func TestDecoderRawLineMentioningPrefixMidLine(t *testing.T) {
	// "data: " appearing mid-line is content, not framing.
	d := NewDecoder(chunked("the event was data: 42\n"))

	frags := drain(t, d)
	if got := strings.Join(frags, ""); got != "the event was data: 42\n" {
		t.Errorf("Mid-line prefix must not be stripped, got %q", got)
	}
}

// =============================================================================
// EVENT FRAMING
// =============================================================================

func TestDecoderDataFramedEvents(t *testing.T) {
	d := NewDecoder(chunked("data: Hello\n\n", "data: world\n\n"))

	frags := drain(t, d)
	if len(frags) != 2 || frags[0] != "Hello" || frags[1] != "world" {
		t.Errorf("Expected [Hello world], got %q", frags)
	}
}

func TestDecoderPrefixSplitAcrossReads(t *testing.T) {
	d := NewDecoder(chunked("dat", "a: hi\n"))

	frags := drain(t, d)
	if len(frags) != 1 || frags[0] != "hi" {
		t.Errorf("Expected [hi], got %q", frags)
	}
}

func TestDecoderCRLFTerminatedEvents(t *testing.T) {
	d := NewDecoder(chunked("data: hi\r\n\r\n"))

	frags := drain(t, d)
	if len(frags) != 1 || frags[0] != "hi" {
		t.Errorf("Expected [hi], got %q", frags)
	}
}

func TestDecoderMixedFraming(t *testing.T) {
	// A non-prefixed line after events falls back to raw pass-through.
	d := NewDecoder(chunked("data: a\n", "plain\n"))

	frags := drain(t, d)
	if got := strings.Join(frags, ""); got != "aplain\n" {
		t.Errorf("Expected 'aplain\\n', got %q", got)
	}
}

// =============================================================================
// BOUNDARY HANDLING
// =============================================================================

func TestDecoderUTF8SplitAcrossReads(t *testing.T) {
	// é is 0xC3 0xA9; split it between two reads.
	d := NewDecoder(chunked("caf\xc3", "\xa9 au lait"))

	frags := drain(t, d)
	for i, f := range frags {
		if !utf8.ValidString(f) {
			t.Errorf("Fragment %d is not valid UTF-8: %q", i, f)
		}
	}
	if got := strings.Join(frags, ""); got != "café au lait" {
		t.Errorf("Expected 'café au lait', got %q", got)
	}
}

func TestDecoderFlushesUnterminatedEventAtEOF(t *testing.T) {
	d := NewDecoder(chunked("data: tail"))

	frags := drain(t, d)
	if len(frags) != 1 || frags[0] != "tail" {
		t.Errorf("Expected [tail], got %q", frags)
	}
}

func TestDecoderFlushesHeldPrefixCandidateAtEOF(t *testing.T) {
	// "dat" could have become a prefix; at EOF it is raw content.
	d := NewDecoder(chunked("dat"))

	frags := drain(t, d)
	if len(frags) != 1 || frags[0] != "dat" {
		t.Errorf("Expected [dat], got %q", frags)
	}
}

func TestDecoderEmptyBody(t *testing.T) {
	d := NewDecoder(chunked())

	if frags := drain(t, d); len(frags) != 0 {
		t.Errorf("Expected no fragments from empty body, got %q", frags)
	}
	// Subsequent calls keep returning EOF.
	if _, err := d.Next(); err != io.EOF {
		t.Errorf("Expected io.EOF, got %v", err)
	}
}

// =============================================================================
// ERROR PROPAGATION
// =============================================================================

type failingReader struct {
	data []byte
	err  error
}

func (r *failingReader) Read(p []byte) (int, error) {
	if len(r.data) > 0 {
		n := copy(p, r.data)
		r.data = r.data[n:]
		return n, nil
	}
	return 0, r.err
}

func TestDecoderPropagatesReadErrors(t *testing.T) {
	wantErr := errors.New("connection reset")
	d := NewDecoder(&failingReader{data: []byte("partial"), err: wantErr})

	frag, err := d.Next()
	if err != nil {
		t.Fatalf("Expected buffered fragment before the error, got %v", err)
	}
	if frag != "partial" {
		t.Errorf("Expected 'partial', got %q", frag)
	}

	if _, err := d.Next(); !errors.Is(err, wantErr) {
		t.Errorf("Expected wrapped read error, got %v", err)
	}
}
