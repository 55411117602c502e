// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chatapi provides the HTTP client for the store assistant backend.
package chatapi

import (
	"encoding/json"
	"strings"
)

// =============================================================================
// STREAM DECODER
// =============================================================================

// dataPrefix is the optional SSE-style marker in front of a frame.
const dataPrefix = "data: "

// StreamDecoder splits a raw byte stream into complete, parseable records.
//
// Network reads arrive at arbitrary boundaries: a frame may straddle two
// chunks, and a single chunk may carry many frames. The decoder keeps the
// trailing, not-yet-framed remainder in a pending buffer between calls.
// Because the carry is byte-level, a multi-byte UTF-8 rune split across
// chunks is reassembled before any parsing happens.
//
// A candidate frame that fails to parse is treated as evidence the split
// landed inside a larger record, not as corruption: the raw candidate is
// put back in front of the pending buffer and retried once more bytes
// arrive. The invariant is that pending never holds a complete frame.
//
// StreamDecoder is not safe for concurrent use; each streaming request
// owns exactly one and discards it when the request ends.
type StreamDecoder struct {
	pending string
}

// NewStreamDecoder creates a decoder with an empty carry buffer.
func NewStreamDecoder() *StreamDecoder {
	return &StreamDecoder{}
}

// Feed consumes one chunk and returns every record completed by it,
// in stream order. The returned slice is nil when the chunk completed
// nothing.
func (d *StreamDecoder) Feed(chunk []byte) []Record {
	text := d.pending + string(chunk)
	parts := strings.Split(text, "\n")

	// The last element is not guaranteed complete; it seeds the new carry.
	remainder := parts[len(parts)-1]
	candidates := parts[:len(parts)-1]

	var records []Record
	var carry strings.Builder

	for _, raw := range candidates {
		line := strings.TrimSpace(raw)
		line = strings.TrimPrefix(line, dataPrefix)
		if line == "" {
			continue
		}

		var rec Record
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			// Mid-record split: retry once more text arrives.
			carry.WriteString(raw)
			continue
		}
		records = append(records, rec)
	}

	carry.WriteString(remainder)
	d.pending = carry.String()

	return records
}

// Pending returns the current carry buffer. Useful in tests and logs.
func (d *StreamDecoder) Pending() string {
	return d.pending
}

// Discard drops the carry buffer and returns what was dropped.
//
// Called at end of stream: no more bytes will ever arrive, so whatever
// is pending can never become parseable. This bounds the cost of a
// genuinely malformed frame to a single lost frame per stream.
func (d *StreamDecoder) Discard() string {
	dropped := d.pending
	d.pending = ""
	return dropped
}
