// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for the conversation timeline.
package model

import (
	"sync"

	"github.com/jeranaias/shopchat-tui/internal/chatapi"
)

// =============================================================================
// TIMELINE
// =============================================================================

// Timeline is the append-only, ordered log of exchanged messages.
//
// Append is the only mutator and the session controller the only caller
// of it. Ordering is append order; nothing is ever reordered or deleted.
// The mutex preserves the single-writer/multi-reader contract now that
// readers (renderers) and the writer run on different goroutines.
type Timeline struct {
	mu   sync.RWMutex
	msgs []*Message
}

// NewTimeline creates an empty timeline.
func NewTimeline() *Timeline {
	return &Timeline{}
}

// Append adds a message to the end of the timeline.
func (t *Timeline) Append(msg *Message) {
	if msg == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.msgs = append(t.msgs, msg)
}

// All returns a snapshot of the timeline in append order. The slice is
// a copy; callers may iterate it freely while appends continue.
func (t *Timeline) All() []*Message {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]*Message, len(t.msgs))
	copy(out, t.msgs)
	return out
}

// Len returns the number of messages.
func (t *Timeline) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.msgs)
}

// Last returns the most recent message, or nil if empty.
func (t *Timeline) Last() *Message {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if len(t.msgs) == 0 {
		return nil
	}
	return t.msgs[len(t.msgs)-1]
}

// SeedFromHistory appends converted history records, oldest first.
// Called once when reattaching to an existing room, before any send.
// Status and unknown records are skipped; they were never part of the
// durable timeline.
func (t *Timeline) SeedFromHistory(entries []chatapi.HistoryEntry) int {
	seeded := 0
	for _, entry := range entries {
		if msg := FromHistory(entry); msg != nil {
			t.Append(msg)
			seeded++
		}
	}
	return seeded
}
