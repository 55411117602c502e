// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for the conversation timeline.
//
// A Timeline is the append-only, ordered log of exchanged messages. The
// session controller is its only writer; rendering collaborators read
// snapshots and never mutate. Messages are a tagged union: a user prompt,
// an assistant answer with suggested items, or an error notice. Transient
// progress text is deliberately NOT a message kind - it lives in the
// session's status projection and never enters the timeline.
package model
