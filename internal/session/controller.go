// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session implements the per-conversation state machine.
package session

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/jeranaias/shopchat-tui/internal/chatapi"
	"github.com/jeranaias/shopchat-tui/internal/model"
	"github.com/jeranaias/shopchat-tui/internal/room"
)

// =============================================================================
// STATE
// =============================================================================

// State represents the controller's position in the send cycle.
type State int

const (
	StateIdle         State = iota // Ready for input
	StateAwaitingRoom              // Room creation in flight
	StateStreaming                 // One chat request in flight
)

// String returns the state name for logs and tests.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingRoom:
		return "awaiting-room"
	case StateStreaming:
		return "streaming"
	default:
		return "unknown"
	}
}

// statusPlaceholder is shown the moment a prompt is accepted, before
// the backend has reported any progress.
const statusPlaceholder = "Thinking..."

// Sentinel errors for rejected sends. Neither has any side effect on
// the timeline, the room, or the transport.
var (
	// ErrEmptyPrompt rejects a prompt that trims to nothing.
	ErrEmptyPrompt = errors.New("prompt is empty")

	// ErrBusy rejects a send while another is still in flight.
	ErrBusy = errors.New("another send is in flight")
)

// =============================================================================
// BACKEND INTERFACE
// =============================================================================

// Backend is the slice of the chat client the controller consumes.
// *chatapi.Client satisfies it.
type Backend interface {
	StreamChat(ctx context.Context, prompt, roomID string, callback chatapi.RecordCallback) error
	History(ctx context.Context, roomID string) ([]chatapi.HistoryEntry, error)
}

// =============================================================================
// CONTROLLER
// =============================================================================

// Controller owns one conversation: the message timeline, the transient
// "assistant is working" status, the error banner slot, and the room
// reference. It consumes transport events and produces timeline
// mutations; it never renders and never navigates.
//
// Only one send is in flight at a time; Send rejects with ErrBusy
// otherwise, so the effects of two sends can never interleave.
type Controller struct {
	mu sync.Mutex

	state    State
	timeline *model.Timeline
	rooms    *room.Lifecycle
	backend  Backend

	// Transient status projection. Never stored in the timeline.
	status    string
	statusSet bool

	// Error banner slot. Cleared at the start of each send.
	banner string

	// Cancellation of the in-flight send, if any.
	cancel context.CancelFunc

	// onChange is invoked (outside the lock) after every observable
	// mutation so renderers can re-read their snapshots.
	onChange func()
}

// NewController creates an idle controller with an empty timeline.
func NewController(backend Backend, rooms *room.Lifecycle) *Controller {
	return &Controller{
		state:    StateIdle,
		timeline: model.NewTimeline(),
		rooms:    rooms,
		backend:  backend,
	}
}

// SetOnChange registers the change notification hook.
func (c *Controller) SetOnChange(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onChange = fn
}

// notify invokes the change hook outside the lock.
func (c *Controller) notify() {
	c.mu.Lock()
	fn := c.onChange
	c.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// =============================================================================
// PROJECTIONS
// =============================================================================

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Timeline returns the conversation timeline. Callers read snapshots
// via All(); the controller is the only writer.
func (c *Controller) Timeline() *model.Timeline {
	return c.timeline
}

// Status returns the transient progress text and whether one is set.
func (c *Controller) Status() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status, c.statusSet
}

// ErrorBanner returns the visible error text and whether one is set.
func (c *Controller) ErrorBanner() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.banner, c.banner != ""
}

// RoomID returns the room id, or "" before the first send.
func (c *Controller) RoomID() string {
	return c.rooms.ID()
}

// =============================================================================
// SEND
// =============================================================================

// Send submits a prompt and blocks until its stream reaches a terminal
// state. Callers that must stay responsive run it on a goroutine and
// observe progress through OnChange.
//
// Returns ErrEmptyPrompt or ErrBusy on rejection (no side effects), the
// context error on cancellation, a transport error on failure, or nil
// when the stream ended normally. The optimistic user prompt stays in
// the timeline on every path after it was appended.
func (c *Controller) Send(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyPrompt
	}

	c.mu.Lock()
	if c.state != StateIdle {
		c.mu.Unlock()
		return ErrBusy
	}

	sctx, cancel := context.WithCancel(ctx)
	defer cancel()
	c.cancel = cancel
	c.banner = ""

	roomID := c.rooms.ID()
	if roomID == "" {
		c.state = StateAwaitingRoom
		c.mu.Unlock()
		c.notify()

		id, err := c.rooms.Ensure(sctx, text)
		if err != nil {
			c.finishRoomFailure(err)
			return err
		}
		roomID = id
		c.mu.Lock()
	}

	// Optimistic append: the prompt stays visible even if the stream
	// later fails; failures surface as a banner, never as a rollback.
	c.timeline.Append(model.NewPromptMessage(text))
	c.status = statusPlaceholder
	c.statusSet = true
	c.state = StateStreaming
	c.mu.Unlock()
	c.notify()

	err := c.backend.StreamChat(sctx, text, roomID, c.applyRecord)
	c.finishStream(err)
	return err
}

// Cancel aborts the in-flight send, if any. The aborted stream mutates
// nothing further: no end event, no error banner, no timeline append.
func (c *Controller) Cancel() {
	c.mu.Lock()
	cancel := c.cancel
	c.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// finishRoomFailure resolves a failed or cancelled room creation.
// Nothing was appended yet, so the timeline is untouched either way.
func (c *Controller) finishRoomFailure(err error) {
	c.mu.Lock()
	c.cancel = nil
	c.state = StateIdle
	if !chatapi.IsCanceled(err) {
		c.banner = err.Error()
	}
	c.mu.Unlock()
	c.notify()
}

// finishStream resolves the terminal state of a stream.
func (c *Controller) finishStream(err error) {
	c.mu.Lock()
	c.cancel = nil
	c.status = ""
	c.statusSet = false
	c.state = StateIdle
	if err != nil && !chatapi.IsCanceled(err) {
		c.banner = err.Error()
	}
	c.mu.Unlock()
	c.notify()
}

// =============================================================================
// RECORD DISPATCH
// =============================================================================

// applyRecord folds one decoded record into the session. Dispatch is
// exhaustive: a record type the protocol does not define is a reportable
// condition, not something to drop on the floor.
func (c *Controller) applyRecord(rec chatapi.Record) {
	c.mu.Lock()
	switch rec.Type {
	case chatapi.RecordStatus:
		// Cumulative progress: concatenation, not replacement.
		if c.statusSet {
			c.status += ".  " + rec.Content.AIResponse
		} else {
			c.status = rec.Content.AIResponse
			c.statusSet = true
		}

	case chatapi.RecordError:
		// A server-reported logical error does not necessarily end the
		// transport; stay in Streaming until the stream itself ends.
		c.status = ""
		c.statusSet = false
		c.banner = rec.Content.AIResponse

	case chatapi.RecordAnswer:
		c.status = ""
		c.statusSet = false
		c.timeline.Append(model.NewAnswerMessage(rec.Content.AIResponse, rec.Content.ItemSuggested))

	default:
		c.banner = "unsupported response type " + string(rec.Type)
	}
	c.mu.Unlock()
	c.notify()
}

// =============================================================================
// REATTACH
// =============================================================================

// AttachRoom reattaches the session to an existing room and seeds the
// timeline from server-provided history. Only valid while Idle with an
// empty timeline, i.e. right after construction.
func (c *Controller) AttachRoom(ctx context.Context, roomID string) error {
	c.mu.Lock()
	if c.state != StateIdle {
		c.mu.Unlock()
		return ErrBusy
	}
	c.mu.Unlock()

	entries, err := c.backend.History(ctx, roomID)
	if err != nil {
		return err
	}

	c.rooms.Attach(roomID)
	c.timeline.SeedFromHistory(entries)
	c.notify()
	return nil
}
