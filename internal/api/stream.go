// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"bytes"
	"io"
	"unicode/utf8"
)

// =============================================================================
// STREAM DECODING
// =============================================================================

// dataPrefix is the event framing some deployments put in front of each
// payload line. Detection is per line: a line carrying the prefix is an
// event, any other line is raw content emitted verbatim.
var dataPrefix = []byte("data: ")

// maxHeldBytes bounds how much the decoder buffers while waiting for a
// newline on a prefixed line. Past this, the line is treated as raw content
// so a pathological body cannot grow the buffer without bound.
const maxHeldBytes = 64 * 1024

// Decoder turns a streamed chat response body into text fragments.
//
// It tolerates both wire shapes the backend is deployed with: raw
// concatenated text, and newline-delimited "data: "-prefixed events. For
// prefixed lines the prefix and the terminating newline are stripped; raw
// bytes pass through byte-for-byte. Multi-byte UTF-8 sequences split across
// reads are held until complete, so a fragment never ends mid-rune.
type Decoder struct {
	r     io.Reader
	buf   []byte
	carry []byte   // undecoded tail: possible prefix, open event line, or partial rune
	queue []string // decoded fragments not yet handed out

	midLine bool // emitted part of a raw line; prefix detection is off until newline
	sawData bool // at least one prefixed line seen; blank lines become separators
	eof     bool
}

// NewDecoder wraps a response body for fragment decoding.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{
		r:   r,
		buf: make([]byte, 4096),
	}
}

// Next returns the next text fragment, blocking on the underlying reader as
// needed. It returns io.EOF once the body is exhausted and all held bytes
// have been flushed. Any other error comes from the reader, including
// context cancellation errors on a cancelled request body.
func (d *Decoder) Next() (string, error) {
	for {
		if len(d.queue) > 0 {
			frag := d.queue[0]
			d.queue = d.queue[1:]
			return frag, nil
		}
		if d.eof {
			return "", io.EOF
		}

		n, err := d.r.Read(d.buf)
		if n > 0 {
			d.ingest(d.buf[:n])
		}
		if err == io.EOF {
			d.eof = true
			d.flush()
			continue
		}
		if err != nil {
			return "", err
		}
	}
}

// ingest consumes one chunk of body bytes, emitting every complete line and
// deciding what to do with the unterminated tail.
func (d *Decoder) ingest(p []byte) {
	data := p
	if len(d.carry) > 0 {
		data = append(d.carry, p...)
		d.carry = nil
	}

	for {
		i := bytes.IndexByte(data, '\n')
		if i < 0 {
			break
		}
		d.decodeLine(data[:i+1])
		data = data[i+1:]
	}
	if len(data) == 0 {
		return
	}

	// Unterminated tail. Hold it while it could still turn out to be a
	// prefixed event line; otherwise stream it through as raw content,
	// keeping back only an incomplete trailing rune.
	if !d.midLine && couldBeEventLine(data) && len(data) <= maxHeldBytes {
		d.carry = append([]byte(nil), data...)
		return
	}
	complete, rest := splitIncompleteRune(data)
	if len(complete) > 0 {
		d.emit(string(complete))
		d.midLine = true
	}
	d.carry = append([]byte(nil), rest...)
}

// decodeLine emits one newline-terminated line under the framing rules.
func (d *Decoder) decodeLine(line []byte) {
	if d.midLine {
		// Remainder of a line already partially emitted as raw content.
		d.midLine = false
		d.emit(string(line))
		return
	}
	if bytes.HasPrefix(line, dataPrefix) {
		d.sawData = true
		payload := bytes.TrimRight(line[len(dataPrefix):], "\r\n")
		if len(payload) > 0 {
			d.emit(string(payload))
		}
		return
	}
	if len(bytes.TrimRight(line, "\r\n")) == 0 && d.sawData {
		// Blank separator between events, not content.
		return
	}
	d.emit(string(line))
}

// flush drains whatever is held once the body ends without a final newline.
func (d *Decoder) flush() {
	if len(d.carry) == 0 {
		return
	}
	line := d.carry
	d.carry = nil
	if !d.midLine && bytes.HasPrefix(line, dataPrefix) {
		if payload := line[len(dataPrefix):]; len(payload) > 0 {
			d.emit(string(payload))
		}
		return
	}
	// Raw tail, including a rune the transport truncated mid-sequence.
	d.midLine = false
	d.emit(string(line))
}

func (d *Decoder) emit(frag string) {
	d.queue = append(d.queue, frag)
}

// couldBeEventLine reports whether b is, or could still grow into, a line
// starting with the event prefix.
func couldBeEventLine(b []byte) bool {
	if len(b) >= len(dataPrefix) {
		return bytes.HasPrefix(b, dataPrefix)
	}
	return bytes.HasPrefix(dataPrefix, b)
}

// splitIncompleteRune splits b so that complete never ends inside a
// multi-byte UTF-8 sequence. rest is the (possibly empty) partial sequence
// to retry once more bytes arrive.
func splitIncompleteRune(b []byte) (complete, rest []byte) {
	n := len(b)
	for i := 1; i <= utf8.UTFMax && i <= n; i++ {
		if utf8.RuneStart(b[n-i]) {
			if utf8.FullRune(b[n-i:]) {
				return b, nil
			}
			return b[:n-i], b[n-i:]
		}
	}
	// No rune start within reach: not valid UTF-8 anyway, pass through.
	return b, nil
}
