// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chatapi provides the HTTP client for the store assistant backend.
//
// The backend speaks a chunked streaming protocol: a POST to the chat
// endpoint returns a body of newline-delimited JSON records, optionally
// prefixed with "data: ". Each record carries a type discriminator
// (status, answer, error) and a content payload. The package contains:
//
//   - StreamDecoder: turns arbitrary byte chunks into complete records,
//     carrying incomplete trailing data across reads
//   - Client: request construction, anti-forgery headers, room creation,
//     history retrieval, and the streaming chat call itself
//
// The client is safe for concurrent use. Streaming calls deliver records
// synchronously, in arrival order, through a caller-supplied callback.
package chatapi
