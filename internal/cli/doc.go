// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli provides the plain line-mode REPL.
//
// For dumb terminals and scripted use: a liner prompt loop that sends
// each line through the session controller, prints progress updates on
// a single overwritten status line, and prints the final answer and
// suggested items as plain text. Like the TUI it only observes the
// controller; it owns no protocol logic.
package cli
