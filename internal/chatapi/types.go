// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chatapi provides the HTTP client for the store assistant backend.
package chatapi

import (
	"encoding/json"
	"time"
)

// =============================================================================
// RECORD TYPES
// =============================================================================

// RecordType discriminates the records carried in a stream frame.
type RecordType string

const (
	// RecordStatus is a transient progress notice while the assistant works.
	RecordStatus RecordType = "status"

	// RecordAnswer is the final answer with optional suggested items.
	RecordAnswer RecordType = "answer"

	// RecordError is a server-reported logical error.
	RecordError RecordType = "error"

	// RecordUserMessage is a user prompt; the backend replays these in
	// history responses, it never appears in a live stream.
	RecordUserMessage RecordType = "usermessage"
)

// Record is one parsed payload from the stream or from history.
// Exactly the fields relevant to Type are populated.
type Record struct {
	Type    RecordType    `json:"type"`
	Content RecordContent `json:"content,omitempty"`

	// Prompt is set on usermessage records only.
	Prompt string `json:"prompt,omitempty"`
}

// RecordContent is the payload of status, answer and error records.
type RecordContent struct {
	AIResponse    string          `json:"airesponse"`
	ItemSuggested []SuggestedItem `json:"item_suggested,omitempty"`
}

// SuggestedItem is one product the assistant suggests alongside an answer.
type SuggestedItem struct {
	ID    json.Number `json:"id,omitempty"`
	Name  string      `json:"name"`
	Price json.Number `json:"price"` // backend emits both "249.00" and 249
	Image string      `json:"image,omitempty"`
}

// =============================================================================
// REQUEST / RESPONSE TYPES
// =============================================================================

// UserMessage is the message object inside a chat request body.
type UserMessage struct {
	Type   RecordType `json:"type"` // always RecordUserMessage
	Prompt string     `json:"prompt"`
}

// ChatRequest is the request body for POST /{org}/api/chat/.
// ChatRoomID is null only before the first room has been created,
// which the backend rejects; callers create the room first.
type ChatRequest struct {
	Message    UserMessage `json:"message"`
	Timestamp  time.Time   `json:"timestamp"`
	ChatRoomID *string     `json:"chat_room_id"`
}

// CreateRoomRequest is the request body for POST /{org}/api/chat/create/.
// Name carries the first prompt so the backend can title the room.
type CreateRoomRequest struct {
	Name string `json:"name"`
}

// CreateRoomResponse is the response from the room creation endpoint.
type CreateRoomResponse struct {
	ChatRoomID string `json:"chat_room_id"`
}

// HistoryEntry is one stored message from GET /{org}/api/chat/history/{id}/.
type HistoryEntry struct {
	Message   Record    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// =============================================================================
// HELPER METHODS
// =============================================================================

// NewUserMessage builds the message object for a prompt.
func NewUserMessage(prompt string) UserMessage {
	return UserMessage{Type: RecordUserMessage, Prompt: prompt}
}

// Text returns the human-readable text of a record, whatever its type.
func (r Record) Text() string {
	if r.Type == RecordUserMessage {
		return r.Prompt
	}
	return r.Content.AIResponse
}

// Known reports whether the record's type discriminator is one the
// protocol defines. Dispatchers treat unknown types as a reportable
// condition rather than dropping them.
func (r Record) Known() bool {
	switch r.Type {
	case RecordStatus, RecordAnswer, RecordError, RecordUserMessage:
		return true
	default:
		return false
	}
}
