// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for the conversation timeline.
package model

import (
	"time"

	"github.com/google/uuid"

	"github.com/jeranaias/shopchat-tui/internal/chatapi"
)

// =============================================================================
// KIND TYPE
// =============================================================================

// Kind discriminates timeline messages.
type Kind string

const (
	KindUserPrompt Kind = "prompt"
	KindAnswer     Kind = "answer"
	KindError      Kind = "error"
)

// DisplayName returns a human-readable name for the kind.
func (k Kind) DisplayName() string {
	switch k {
	case KindUserPrompt:
		return "You"
	case KindAnswer:
		return "Assistant"
	case KindError:
		return "Error"
	default:
		return string(k)
	}
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// Message is one entry in the timeline. Only the fields relevant to
// Kind are populated. Timestamp is assigned client-side at append time
// and is for ordering and display only.
type Message struct {
	ID        string    `json:"id"`
	Kind      Kind      `json:"kind"`
	Timestamp time.Time `json:"timestamp"`

	// KindUserPrompt
	Prompt string `json:"prompt,omitempty"`

	// KindAnswer
	Answer string                  `json:"answer,omitempty"`
	Items  []chatapi.SuggestedItem `json:"items,omitempty"`

	// KindError
	ErrorText string `json:"error_text,omitempty"`
}

// NewPromptMessage creates a user prompt message.
func NewPromptMessage(text string) *Message {
	return &Message{
		ID:        uuid.NewString(),
		Kind:      KindUserPrompt,
		Timestamp: time.Now(),
		Prompt:    text,
	}
}

// NewAnswerMessage creates an assistant answer message.
func NewAnswerMessage(text string, items []chatapi.SuggestedItem) *Message {
	return &Message{
		ID:        uuid.NewString(),
		Kind:      KindAnswer,
		Timestamp: time.Now(),
		Answer:    text,
		Items:     items,
	}
}

// NewErrorMessage creates an error notice message.
func NewErrorMessage(text string) *Message {
	return &Message{
		ID:        uuid.NewString(),
		Kind:      KindError,
		Timestamp: time.Now(),
		ErrorText: text,
	}
}

// Text returns the message's primary text, whatever its kind.
func (m *Message) Text() string {
	switch m.Kind {
	case KindUserPrompt:
		return m.Prompt
	case KindAnswer:
		return m.Answer
	case KindError:
		return m.ErrorText
	default:
		return ""
	}
}

// FromHistory converts a stored backend record into a timeline message,
// keeping the server-side timestamp. Status records are transient and
// return nil, as do records of unknown type.
func FromHistory(entry chatapi.HistoryEntry) *Message {
	msg := &Message{
		ID:        uuid.NewString(),
		Timestamp: entry.Timestamp,
	}

	switch entry.Message.Type {
	case chatapi.RecordUserMessage:
		msg.Kind = KindUserPrompt
		msg.Prompt = entry.Message.Prompt
	case chatapi.RecordAnswer:
		msg.Kind = KindAnswer
		msg.Answer = entry.Message.Content.AIResponse
		msg.Items = entry.Message.Content.ItemSuggested
	case chatapi.RecordError:
		msg.Kind = KindError
		msg.ErrorText = entry.Message.Content.AIResponse
	default:
		return nil
	}

	return msg
}
