// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading for shopchat.
//
// Configuration is layered, lowest precedence first: built-in defaults,
// a TOML file (~/.shopchat/config.toml by default), then SHOPCHAT_*
// environment variables. Watch re-loads the file on change so a running
// client picks up edits without a restart.
package config
