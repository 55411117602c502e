// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ui provides the Bubble Tea chat view.
//
// The view is a pure observer of the session controller: it reads
// timeline snapshots, the transient status text, and the error banner,
// and submits prompts. All protocol and state-machine logic lives in
// the session package; nothing here mutates the timeline.
package ui
