// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session implements the per-conversation state machine.
//
// A Controller moves through three states:
//
//	Idle -> AwaitingRoom -> Streaming -> Idle
//
// Send drives one full cycle: the room is created lazily on the first
// prompt, the prompt is appended to the timeline optimistically, and the
// streamed response is folded in record by record. Status records update
// a transient progress projection that never enters the timeline; answer
// records append to it; error records fill the banner slot. Only one
// send is ever in flight, and cancellation leaves the session exactly as
// the last applied record left it.
package session
