// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chatapi provides the HTTP client for the store assistant backend.
package chatapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestClient builds a client pointed at a test server with a
// generous rate limit so tests never stall on the limiter.
func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	client, err := NewClient(&ClientConfig{
		BaseURL:   baseURL,
		Org:       "acme",
		Timeout:   5 * time.Second,
		RateLimit: 1000,
		RateBurst: 1000,
	})
	require.NoError(t, err)
	return client
}

// =============================================================================
// STREAMING TESTS
// =============================================================================

func TestStreamChat_DeliversRecordsInOrder(t *testing.T) {
	frames := []string{
		`data: {"type":"status","content":{"airesponse":"looking"}}`,
		`data: {"type":"status","content":{"airesponse":"comparing"}}`,
		`data: {"type":"answer","content":{"airesponse":"try these","item_suggested":[{"name":"sneaker","price":"249.00","image":"/img/1.jpg"}]}}`,
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/acme/api/chat/", r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)

		var req ChatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "red shoes", req.Message.Prompt)
		assert.Equal(t, RecordUserMessage, req.Message.Type)
		require.NotNil(t, req.ChatRoomID)
		assert.Equal(t, "room-1", *req.ChatRoomID)

		flusher := w.(http.Flusher)
		for _, frame := range frames {
			w.Write([]byte(frame + "\n"))
			flusher.Flush()
		}
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	var got []Record
	err := client.StreamChat(context.Background(), "red shoes", "room-1", func(rec Record) {
		got = append(got, rec)
	})
	require.NoError(t, err)

	require.Len(t, got, 3)
	assert.Equal(t, RecordStatus, got[0].Type)
	assert.Equal(t, "looking", got[0].Content.AIResponse)
	assert.Equal(t, RecordStatus, got[1].Type)
	assert.Equal(t, RecordAnswer, got[2].Type)
	require.Len(t, got[2].Content.ItemSuggested, 1)
	assert.Equal(t, "sneaker", got[2].Content.ItemSuggested[0].Name)
	assert.Equal(t, "249.00", got[2].Content.ItemSuggested[0].Price.String())
}

func TestStreamChat_HTTPFailureBeforeAnyRecord(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	calls := 0
	err := client.StreamChat(context.Background(), "hi", "room-1", func(Record) { calls++ })

	require.Error(t, err)
	assert.True(t, IsTransportError(err))
	assert.Equal(t, 0, calls, "no records before a status failure")
}

func TestStreamChat_NoBodyIsUnsupported(t *testing.T) {
	client, err := NewClient(&ClientConfig{
		BaseURL:   "http://backend.invalid",
		RateLimit: 1000,
		RateBurst: 1000,
		Transport: roundTripperFunc(func(r *http.Request) (*http.Response, error) {
			return &http.Response{
				StatusCode: http.StatusOK,
				Status:     "200 OK",
				Header:     make(http.Header),
				Body:       http.NoBody,
				Request:    r,
			}, nil
		}),
	})
	require.NoError(t, err)

	err = client.StreamChat(context.Background(), "hi", "room-1", func(Record) {
		t.Fatal("no records expected")
	})
	require.ErrorIs(t, err, ErrStreamUnsupported)
}

func TestStreamChat_CancellationStopsDelivery(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		flusher := w.(http.Flusher)
		w.Write([]byte(`{"type":"status","content":{"airesponse":"looking"}}` + "\n"))
		flusher.Flush()
		<-release
	}))
	defer server.Close()
	defer close(release)

	client := newTestClient(t, server.URL)

	ctx, cancel := context.WithCancel(context.Background())
	var got []Record
	err := client.StreamChat(ctx, "hi", "room-1", func(rec Record) {
		got = append(got, rec)
		cancel() // abort after the first record
	})

	require.ErrorIs(t, err, context.Canceled)
	assert.True(t, IsCanceled(err))
	assert.False(t, IsTransportError(err), "cancellation is not a transport failure")
	assert.Len(t, got, 1)
}

func TestStreamChatChan_ClosesAfterEnd(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"type":"answer","content":{"airesponse":"done"}}` + "\n"))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	var events []StreamEvent
	for ev := range client.StreamChatChan(context.Background(), "hi", "room-1") {
		events = append(events, ev)
	}

	require.Len(t, events, 1)
	require.NoError(t, events[0].Err)
	assert.Equal(t, RecordAnswer, events[0].Record.Type)
}

// =============================================================================
// ROOM AND HISTORY TESTS
// =============================================================================

func TestCreateRoom(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/acme/api/chat/create/", r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)

		var req CreateRoomRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "red shoes", req.Name)

		json.NewEncoder(w).Encode(CreateRoomResponse{ChatRoomID: "room-42"})
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	id, err := client.CreateRoom(context.Background(), "red shoes")
	require.NoError(t, err)
	assert.Equal(t, "room-42", id)
}

func TestCreateRoom_EmptyIDRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	_, err := client.CreateRoom(context.Background(), "hi")
	require.Error(t, err)
}

func TestHistory(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/acme/api/chat/history/room-7/", r.URL.Path)
		w.Write([]byte(`[
			{"message":{"type":"usermessage","prompt":"red shoes"},"timestamp":"2025-01-02T10:00:00Z"},
			{"message":{"type":"answer","content":{"airesponse":"try these","item_suggested":[]}},"timestamp":"2025-01-02T10:00:05Z"}
		]`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	entries, err := client.History(context.Background(), "room-7")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, RecordUserMessage, entries[0].Message.Type)
	assert.Equal(t, "red shoes", entries[0].Message.Prompt)
	assert.Equal(t, RecordAnswer, entries[1].Message.Type)
}

// =============================================================================
// ANTI-FORGERY TESTS
// =============================================================================

func TestCSRFTokenAttachedFromCookie(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "tok-123", r.Header.Get("X-CSRFToken"))
		json.NewEncoder(w).Encode(CreateRoomResponse{ChatRoomID: "room-1"})
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	// Simulate the cookie the backend set on a previous response.
	base, err := url.Parse(server.URL)
	require.NoError(t, err)
	client.httpClient.Jar.SetCookies(base, []*http.Cookie{
		{Name: "csrftoken", Value: "tok-123"},
	})

	_, err = client.CreateRoom(context.Background(), "hi")
	require.NoError(t, err)
}

// =============================================================================
// TEST HELPERS
// =============================================================================

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}
