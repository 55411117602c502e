// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session implements the per-conversation state machine.
package session

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/shopchat-tui/internal/chatapi"
	"github.com/jeranaias/shopchat-tui/internal/model"
	"github.com/jeranaias/shopchat-tui/internal/room"
)

// =============================================================================
// FAKES
// =============================================================================

// fakeCreator hands out room ids without a network.
type fakeCreator struct {
	calls atomic.Int32
	id    string
	err   error
}

func (f *fakeCreator) CreateRoom(ctx context.Context, name string) (string, error) {
	f.calls.Add(1)
	if f.err != nil {
		return "", f.err
	}
	return f.id, nil
}

// fakeBackend replays a scripted stream through the record callback.
type fakeBackend struct {
	stream  func(ctx context.Context, prompt, roomID string, cb chatapi.RecordCallback) error
	history []chatapi.HistoryEntry

	gotPrompt string
	gotRoom   string
}

func (f *fakeBackend) StreamChat(ctx context.Context, prompt, roomID string, cb chatapi.RecordCallback) error {
	f.gotPrompt = prompt
	f.gotRoom = roomID
	if f.stream == nil {
		return nil
	}
	return f.stream(ctx, prompt, roomID, cb)
}

func (f *fakeBackend) History(ctx context.Context, roomID string) ([]chatapi.HistoryEntry, error) {
	return f.history, nil
}

func statusRecord(text string) chatapi.Record {
	return chatapi.Record{Type: chatapi.RecordStatus, Content: chatapi.RecordContent{AIResponse: text}}
}

func answerRecord(text string, items ...chatapi.SuggestedItem) chatapi.Record {
	return chatapi.Record{Type: chatapi.RecordAnswer, Content: chatapi.RecordContent{AIResponse: text, ItemSuggested: items}}
}

func errorRecord(text string) chatapi.Record {
	return chatapi.Record{Type: chatapi.RecordError, Content: chatapi.RecordContent{AIResponse: text}}
}

func newTestController(backend Backend, creator room.Creator) *Controller {
	return NewController(backend, room.NewLifecycle(creator, nil))
}

// =============================================================================
// SEND REJECTION
// =============================================================================

func TestSend_EmptyPromptInert(t *testing.T) {
	creator := &fakeCreator{id: "room-1"}
	backend := &fakeBackend{}
	ctrl := newTestController(backend, creator)

	for _, prompt := range []string{"", "   ", "\n\t"} {
		err := ctrl.Send(context.Background(), prompt)
		require.ErrorIs(t, err, ErrEmptyPrompt)
	}

	assert.Equal(t, int32(0), creator.calls.Load(), "no room creation for rejected prompts")
	assert.Equal(t, 0, ctrl.Timeline().Len())
	assert.Equal(t, StateIdle, ctrl.State())
}

func TestSend_BusyWhileStreaming(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	backend := &fakeBackend{
		stream: func(ctx context.Context, prompt, roomID string, cb chatapi.RecordCallback) error {
			close(entered)
			<-release
			return nil
		},
	}
	ctrl := newTestController(backend, &fakeCreator{id: "room-1"})

	done := make(chan error, 1)
	go func() { done <- ctrl.Send(context.Background(), "first") }()
	<-entered

	assert.Equal(t, StateStreaming, ctrl.State())
	err := ctrl.Send(context.Background(), "second")
	require.ErrorIs(t, err, ErrBusy)

	close(release)
	require.NoError(t, <-done)

	// Only the first prompt made it in.
	assert.Equal(t, 1, ctrl.Timeline().Len())
	assert.Equal(t, StateIdle, ctrl.State())
}

// =============================================================================
// FIRST SEND
// =============================================================================

// First send on a fresh session: room created first, then the prompt
// appended before any stream record arrives.
func TestSend_FirstSendCreatesRoomThenAppendsPrompt(t *testing.T) {
	creator := &fakeCreator{id: "room-1"}
	backend := &fakeBackend{}
	ctrl := newTestController(backend, creator)

	var lenAtStreamStart int
	backend.stream = func(ctx context.Context, prompt, roomID string, cb chatapi.RecordCallback) error {
		lenAtStreamStart = ctrl.Timeline().Len()
		cb(answerRecord("try these"))
		return nil
	}

	err := ctrl.Send(context.Background(), "red shoes")
	require.NoError(t, err)

	assert.Equal(t, int32(1), creator.calls.Load())
	assert.Equal(t, "room-1", ctrl.RoomID())
	assert.Equal(t, "room-1", backend.gotRoom)
	assert.Equal(t, "red shoes", backend.gotPrompt)
	assert.Equal(t, 1, lenAtStreamStart, "prompt appended before the stream began")

	msgs := ctrl.Timeline().All()
	require.Len(t, msgs, 2)
	assert.Equal(t, model.KindUserPrompt, msgs[0].Kind)
	assert.Equal(t, "red shoes", msgs[0].Prompt)
	assert.Equal(t, model.KindAnswer, msgs[1].Kind)
}

func TestSend_ReusesRoomOnLaterSends(t *testing.T) {
	creator := &fakeCreator{id: "room-1"}
	backend := &fakeBackend{}
	ctrl := newTestController(backend, creator)

	require.NoError(t, ctrl.Send(context.Background(), "first"))
	require.NoError(t, ctrl.Send(context.Background(), "second"))

	assert.Equal(t, int32(1), creator.calls.Load(), "room created once, reused after")
}

func TestSend_RoomCreationFailure(t *testing.T) {
	creator := &fakeCreator{err: errors.New("backend down")}
	backend := &fakeBackend{
		stream: func(ctx context.Context, prompt, roomID string, cb chatapi.RecordCallback) error {
			t.Fatal("stream must not start without a room")
			return nil
		},
	}
	ctrl := newTestController(backend, creator)

	err := ctrl.Send(context.Background(), "red shoes")
	require.Error(t, err)

	assert.Equal(t, 0, ctrl.Timeline().Len(), "nothing appended on room failure")
	assert.Equal(t, StateIdle, ctrl.State())
	banner, set := ctrl.ErrorBanner()
	assert.True(t, set)
	assert.Equal(t, "backend down", banner)
}

// =============================================================================
// RECORD DISPATCH
// =============================================================================

func TestSend_StatusRecordsAccumulate(t *testing.T) {
	backend := &fakeBackend{}
	ctrl := newTestController(backend, &fakeCreator{id: "room-1"})

	var midStatus string
	backend.stream = func(ctx context.Context, prompt, roomID string, cb chatapi.RecordCallback) error {
		cb(statusRecord("looking"))
		cb(statusRecord("comparing prices"))
		midStatus, _ = ctrl.Status()
		cb(answerRecord("try these"))
		return nil
	}

	require.NoError(t, ctrl.Send(context.Background(), "red shoes"))

	// Cumulative progress: both texts visible at once, placeholder first.
	assert.True(t, strings.HasPrefix(midStatus, statusPlaceholder))
	assert.Contains(t, midStatus, "looking")
	assert.Contains(t, midStatus, "comparing prices")

	// The answer cleared the indicator.
	_, set := ctrl.Status()
	assert.False(t, set)
	assert.Equal(t, StateIdle, ctrl.State())
}

// Stream carries status records then a server-side error record, then
// ends cleanly: only the prompt lands in the timeline and the banner
// carries the record's own text.
func TestSend_ServerErrorRecord(t *testing.T) {
	backend := &fakeBackend{}
	ctrl := newTestController(backend, &fakeCreator{id: "room-1"})

	var stateAfterError State
	backend.stream = func(ctx context.Context, prompt, roomID string, cb chatapi.RecordCallback) error {
		cb(statusRecord("looking"))
		cb(statusRecord("comparing"))
		cb(errorRecord("no items matched"))
		stateAfterError = ctrl.State()
		return nil
	}

	err := ctrl.Send(context.Background(), "red shoes")
	require.NoError(t, err, "a logical error record does not fail the transport")

	// The error record alone does not end the session.
	assert.Equal(t, StateStreaming, stateAfterError)

	msgs := ctrl.Timeline().All()
	require.Len(t, msgs, 1, "prompt only, no answer")
	assert.Equal(t, model.KindUserPrompt, msgs[0].Kind)

	banner, set := ctrl.ErrorBanner()
	assert.True(t, set)
	assert.Equal(t, "no items matched", banner)

	_, statusSet := ctrl.Status()
	assert.False(t, statusSet, "status cleared by stream end")
	assert.Equal(t, StateIdle, ctrl.State())
}

// Transport rejects mid-stream after progress was already shown.
func TestSend_TransportFailureMidStream(t *testing.T) {
	transportErr := &chatapi.ClientError{Type: chatapi.ErrTypeRead, Message: "read interrupted"}
	backend := &fakeBackend{
		stream: func(ctx context.Context, prompt, roomID string, cb chatapi.RecordCallback) error {
			cb(statusRecord("looking"))
			return transportErr
		},
	}
	ctrl := newTestController(backend, &fakeCreator{id: "room-1"})

	err := ctrl.Send(context.Background(), "red shoes")
	require.ErrorIs(t, err, transportErr)

	_, statusSet := ctrl.Status()
	assert.False(t, statusSet, "status cleared on failure")
	banner, set := ctrl.ErrorBanner()
	assert.True(t, set)
	assert.Contains(t, banner, "read interrupted")
	assert.Equal(t, StateIdle, ctrl.State())

	msgs := ctrl.Timeline().All()
	require.Len(t, msgs, 1, "optimistic prompt survives the failure")
	assert.Equal(t, model.KindUserPrompt, msgs[0].Kind)
}

func TestSend_UnknownRecordTypeReported(t *testing.T) {
	backend := &fakeBackend{
		stream: func(ctx context.Context, prompt, roomID string, cb chatapi.RecordCallback) error {
			cb(chatapi.Record{Type: chatapi.RecordType("telemetry")})
			cb(answerRecord("done"))
			return nil
		},
	}
	ctrl := newTestController(backend, &fakeCreator{id: "room-1"})

	require.NoError(t, ctrl.Send(context.Background(), "hi"))

	banner, set := ctrl.ErrorBanner()
	assert.True(t, set, "unrecognized record types are reportable, not dropped")
	assert.Contains(t, banner, "telemetry")
	assert.Equal(t, 2, ctrl.Timeline().Len(), "the valid answer still landed")
}

// =============================================================================
// CANCELLATION
// =============================================================================

func TestCancel_SilencesStream(t *testing.T) {
	entered := make(chan struct{})
	backend := &fakeBackend{
		stream: func(ctx context.Context, prompt, roomID string, cb chatapi.RecordCallback) error {
			cb(statusRecord("looking"))
			close(entered)
			<-ctx.Done()
			return ctx.Err()
		},
	}
	ctrl := newTestController(backend, &fakeCreator{id: "room-1"})

	done := make(chan error, 1)
	go func() { done <- ctrl.Send(context.Background(), "red shoes") }()
	<-entered

	ctrl.Cancel()
	err := <-done
	require.ErrorIs(t, err, context.Canceled)

	// Cancellation is quiet: no banner, no extra timeline entries.
	_, set := ctrl.ErrorBanner()
	assert.False(t, set)
	assert.Equal(t, 1, ctrl.Timeline().Len())
	assert.Equal(t, StateIdle, ctrl.State())

	// The session accepts new input immediately.
	backend.stream = nil
	require.NoError(t, ctrl.Send(context.Background(), "blue shoes"))
}

// =============================================================================
// REATTACH
// =============================================================================

func TestAttachRoom_SeedsTimeline(t *testing.T) {
	creator := &fakeCreator{id: "room-new"}
	backend := &fakeBackend{
		history: []chatapi.HistoryEntry{
			{Message: chatapi.Record{Type: chatapi.RecordUserMessage, Prompt: "red shoes"}},
			{Message: answerRecord("try these")},
		},
	}
	ctrl := newTestController(backend, creator)

	require.NoError(t, ctrl.AttachRoom(context.Background(), "room-7"))

	assert.Equal(t, "room-7", ctrl.RoomID())
	assert.Equal(t, 2, ctrl.Timeline().Len())

	// Later sends reuse the attached room.
	require.NoError(t, ctrl.Send(context.Background(), "more like these"))
	assert.Equal(t, int32(0), creator.calls.Load())
	assert.Equal(t, "room-7", backend.gotRoom)
}

// =============================================================================
// CHANGE NOTIFICATION
// =============================================================================

func TestOnChange_FiresOnMutations(t *testing.T) {
	backend := &fakeBackend{
		stream: func(ctx context.Context, prompt, roomID string, cb chatapi.RecordCallback) error {
			cb(statusRecord("looking"))
			cb(answerRecord("done"))
			return nil
		},
	}
	ctrl := newTestController(backend, &fakeCreator{id: "room-1"})

	var fired atomic.Int32
	ctrl.SetOnChange(func() { fired.Add(1) })

	require.NoError(t, ctrl.Send(context.Background(), "hi"))
	assert.GreaterOrEqual(t, fired.Load(), int32(4), "room, prompt, records, end")
}
