// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package room manages lazy creation of the backend chat room.
//
// A room id is absent until the first prompt is sent; Ensure creates it
// exactly once and every later call is a no-network fast path. Concurrent
// first calls share a single in-flight creation, so a rapid double-submit
// cannot create two rooms. Once set, the id is never replaced for the
// lifetime of the lifecycle object.
package room
