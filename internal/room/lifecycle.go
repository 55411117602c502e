// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package room manages lazy creation of the backend chat room.
package room

import (
	"context"
	"sync"
)

// =============================================================================
// COLLABORATOR INTERFACES
// =============================================================================

// Creator issues the room-creation network call.
// *chatapi.Client satisfies it.
type Creator interface {
	CreateRoom(ctx context.Context, name string) (string, error)
}

// Publisher receives the room id once it exists, so the surrounding
// application can push it into its navigable location (URL, window
// title, shell prompt) and reattach after a reload. May be nil.
type Publisher func(roomID string)

// =============================================================================
// LIFECYCLE
// =============================================================================

// Lifecycle holds the room id for one session.
type Lifecycle struct {
	mu      sync.Mutex
	id      string
	creator Creator
	publish Publisher

	// inflight is non-nil while a creation call is running. Followers
	// wait on it instead of issuing a second call.
	inflight chan struct{}
	lastErr  error
}

// NewLifecycle creates a lifecycle with no room id yet.
func NewLifecycle(creator Creator, publish Publisher) *Lifecycle {
	return &Lifecycle{creator: creator, publish: publish}
}

// Attach fixes an existing room id on the lifecycle, e.g. when the
// application reattaches to a room after a reload. No-op if an id is
// already set.
func (l *Lifecycle) Attach(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.id == "" {
		l.id = id
	}
}

// ID returns the current room id, or "" if none exists yet.
func (l *Lifecycle) ID() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.id
}

// Ensure returns the room id, creating the room if none exists.
//
// The fast path returns the stored id with no network call. Otherwise
// exactly one creation call is issued, whatever the number of concurrent
// callers: the first caller becomes the leader, the rest wait for its
// result. The name argument seeds the room title on the backend.
func (l *Lifecycle) Ensure(ctx context.Context, name string) (string, error) {
	l.mu.Lock()
	if l.id != "" {
		id := l.id
		l.mu.Unlock()
		return id, nil
	}

	if l.inflight != nil {
		// Follower: wait for the leader's outcome.
		wait := l.inflight
		l.mu.Unlock()

		select {
		case <-wait:
		case <-ctx.Done():
			return "", ctx.Err()
		}

		l.mu.Lock()
		defer l.mu.Unlock()
		if l.id != "" {
			return l.id, nil
		}
		return "", l.lastErr
	}

	done := make(chan struct{})
	l.inflight = done
	l.mu.Unlock()

	id, err := l.creator.CreateRoom(ctx, name)

	l.mu.Lock()
	l.inflight = nil
	if err != nil {
		l.lastErr = err
		l.mu.Unlock()
		close(done)
		return "", err
	}
	l.id = id
	l.lastErr = nil
	publish := l.publish
	l.mu.Unlock()
	close(done)

	if publish != nil {
		publish(id)
	}

	return id, nil
}
