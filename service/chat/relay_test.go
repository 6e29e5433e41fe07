package chat

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	chatservice "chatserve/module/chat/service"
	"chatserve/tools/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStore keeps read-by sets in memory with $addToSet semantics.
type fakeStore struct {
	mu     sync.Mutex
	readBy map[string][]string // messageId -> readers
}

func newFakeStore(messages ...string) *fakeStore {
	f := &fakeStore{readBy: map[string][]string{}}
	for _, id := range messages {
		f.readBy[id] = []string{}
	}
	return f
}

func (f *fakeStore) AddMessageReader(_ context.Context, messageID, userID string) (*chatservice.ReadStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	readers, ok := f.readBy[messageID]
	if !ok {
		return nil, errs.ErrRecordNotFound.WrapMsg("message not found")
	}
	found := false
	for _, r := range readers {
		if r == userID {
			found = true
			break
		}
	}
	if !found {
		readers = append(readers, userID)
		f.readBy[messageID] = readers
	}
	out := append([]string{}, readers...)
	return &chatservice.ReadStatus{MessageID: messageID, ReadBy: out}, nil
}

func newTestServer(store MessageStore) *Server {
	return NewServer(Config{SendQueueSize: 16}, store, nil)
}

// recv pops the next queued outbound frame, or nil when none is pending.
func recv(t *testing.T, c *Client) *Frame {
	t.Helper()
	select {
	case b, ok := <-c.Send:
		if !ok {
			return nil
		}
		f, err := ParseFrame(b)
		require.NoError(t, err)
		return f
	default:
		return nil
	}
}

func setup(t *testing.T, s *Server, c *Client, identity string) {
	t.Helper()
	s.dispatch(c, &Frame{Event: EventSetup, Data: map[string]any{
		"data": map[string]any{"_id": identity},
	}})
	ack := recv(t, c)
	require.NotNil(t, ack)
	require.Equal(t, EventConnected, ack.Event)
}

func TestSetupJoinsIdentityRoomAndAcks(t *testing.T) {
	s := newTestServer(newFakeStore())
	c := NewClient("conn-1", nil, 16)

	setup(t, s, c, "u1")

	assert.Equal(t, "u1", c.UserID)
	assert.Same(t, c, s.registry.Lookup("u1"))
	assert.True(t, s.rooms.Contains(c, "u1"))
}

func TestSetupMissingIdentityDropped(t *testing.T) {
	s := newTestServer(newFakeStore())
	c := NewClient("conn-1", nil, 16)

	s.dispatch(c, &Frame{Event: EventSetup, Data: map[string]any{"data": map[string]any{}}})

	assert.Nil(t, recv(t, c))
	assert.Equal(t, "", c.UserID)
	assert.Equal(t, int64(1), s.Stats().MalformedFrames)
}

func TestEventsBeforeSetupDropped(t *testing.T) {
	s := newTestServer(newFakeStore())
	c := NewClient("conn-1", nil, 16)

	s.dispatch(c, &Frame{Event: EventNewMessage, Data: map[string]any{
		"chat":   map[string]any{"users": []any{"u1", "u2"}},
		"sender": map[string]any{"_id": "u1"},
	}})
	s.dispatch(c, &Frame{Event: EventTyping, Data: "chat42"})

	assert.Nil(t, recv(t, c))
	assert.Equal(t, int64(2), s.Stats().UnauthorizedFrames)
}

func TestNewMessageScenario(t *testing.T) {
	// u1 and u2 both connected and joined to chat42; u1's message reaches
	// u2 exactly once and u1 not at all.
	s := newTestServer(newFakeStore())
	c1 := NewClient("conn-1", nil, 16)
	c2 := NewClient("conn-2", nil, 16)

	setup(t, s, c1, "u1")
	s.dispatch(c1, &Frame{Event: EventJoinChat, Data: "chat42"})
	require.Equal(t, EventConnected, recv(t, c1).Event)

	setup(t, s, c2, "u2")
	s.dispatch(c2, &Frame{Event: EventJoinChat, Data: "chat42"})
	require.Equal(t, EventConnected, recv(t, c2).Event)

	payload := map[string]any{
		"chat":    map[string]any{"users": []any{"u1", "u2"}},
		"sender":  map[string]any{"_id": "u1"},
		"content": "hi",
	}
	s.dispatch(c1, &Frame{Event: EventNewMessage, Data: payload})

	got := recv(t, c2)
	require.NotNil(t, got)
	assert.Equal(t, EventMessageReceived, got.Event)
	data, ok := got.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "hi", data["content"])

	assert.Nil(t, recv(t, c2), "only one delivery expected")
	assert.Nil(t, recv(t, c1), "sender must not receive its own message")
}

func TestNewMessagePopulatedUserObjects(t *testing.T) {
	s := newTestServer(newFakeStore())
	c1 := NewClient("conn-1", nil, 16)
	c2 := NewClient("conn-2", nil, 16)
	setup(t, s, c1, "u1")
	setup(t, s, c2, "u2")

	// populated documents instead of bare id strings
	payload := map[string]any{
		"chat": map[string]any{"users": []any{
			map[string]any{"_id": "u1", "username": "alice"},
			map[string]any{"_id": "u2", "username": "bob"},
		}},
		"sender":  map[string]any{"_id": "u1", "username": "alice"},
		"content": "hello",
	}
	s.dispatch(c1, &Frame{Event: EventNewMessage, Data: payload})

	got := recv(t, c2)
	require.NotNil(t, got)
	assert.Equal(t, EventMessageReceived, got.Event)
	assert.Nil(t, recv(t, c1))
}

func TestNewMessageWithoutChatUsersDropped(t *testing.T) {
	s := newTestServer(newFakeStore())
	c1 := NewClient("conn-1", nil, 16)
	c2 := NewClient("conn-2", nil, 16)
	setup(t, s, c1, "u1")
	setup(t, s, c2, "u2")

	s.dispatch(c1, &Frame{Event: EventNewMessage, Data: map[string]any{
		"sender":  map[string]any{"_id": "u1"},
		"content": "hi",
	}})

	assert.Nil(t, recv(t, c2))
	assert.Equal(t, int64(1), s.Stats().MalformedFrames)
}

func TestOfflineUserSilentlySkipped(t *testing.T) {
	s := newTestServer(newFakeStore())
	c1 := NewClient("conn-1", nil, 16)
	setup(t, s, c1, "u1")

	s.dispatch(c1, &Frame{Event: EventNewMessage, Data: map[string]any{
		"chat":   map[string]any{"users": []any{"u1", "ghost"}},
		"sender": map[string]any{"_id": "u1"},
	}})

	assert.Nil(t, recv(t, c1))
	assert.Equal(t, int64(0), s.Stats().DroppedDeliveries)
}

func TestTypingExcludesSender(t *testing.T) {
	s := newTestServer(newFakeStore())
	c1 := NewClient("conn-1", nil, 16)
	c2 := NewClient("conn-2", nil, 16)
	setup(t, s, c1, "u1")
	setup(t, s, c2, "u2")
	s.dispatch(c1, &Frame{Event: EventJoinChat, Data: "chat42"})
	recv(t, c1)
	s.dispatch(c2, &Frame{Event: EventJoinChat, Data: "chat42"})
	recv(t, c2)

	s.dispatch(c1, &Frame{Event: EventTyping, Data: "chat42"})

	got := recv(t, c2)
	require.NotNil(t, got)
	assert.Equal(t, EventTyping, got.Event)
	assert.Nil(t, recv(t, c1), "sender is in the room but must not get its own typing event")

	s.dispatch(c1, &Frame{Event: EventStopTyping, Data: "chat42"})
	got = recv(t, c2)
	require.NotNil(t, got)
	assert.Equal(t, EventStopTyping, got.Event)
}

func TestMessageReadBroadcastsUpdatedSet(t *testing.T) {
	store := newFakeStore("m1")
	s := newTestServer(store)
	c1 := NewClient("conn-1", nil, 16)
	c2 := NewClient("conn-2", nil, 16)
	setup(t, s, c1, "u1")
	setup(t, s, c2, "u2")
	s.dispatch(c1, &Frame{Event: EventJoinChat, Data: "chat42"})
	recv(t, c1)
	s.dispatch(c2, &Frame{Event: EventJoinChat, Data: "chat42"})
	recv(t, c2)

	receipt := map[string]any{"messageId": "m1", "userId": "u2", "chatId": "chat42"}
	s.dispatch(c2, &Frame{Event: EventMessageRead, Data: receipt})

	for _, c := range []*Client{c1, c2} {
		got := recv(t, c)
		require.NotNil(t, got)
		assert.Equal(t, EventMessageReadUpdate, got.Event)
		b, _ := json.Marshal(got.Data)
		var status chatservice.ReadStatus
		require.NoError(t, json.Unmarshal(b, &status))
		assert.Equal(t, "m1", status.MessageID)
		assert.Equal(t, []string{"u2"}, status.ReadBy)
	}

	// applying the same receipt again must not duplicate the reader
	s.dispatch(c2, &Frame{Event: EventMessageRead, Data: receipt})
	got := recv(t, c1)
	require.NotNil(t, got)
	b, _ := json.Marshal(got.Data)
	var status chatservice.ReadStatus
	require.NoError(t, json.Unmarshal(b, &status))
	assert.Equal(t, []string{"u2"}, status.ReadBy)
}

func TestMessageReadUnknownMessageNoBroadcast(t *testing.T) {
	s := newTestServer(newFakeStore())
	c1 := NewClient("conn-1", nil, 16)
	setup(t, s, c1, "u1")
	s.dispatch(c1, &Frame{Event: EventJoinChat, Data: "chat42"})
	recv(t, c1)

	s.dispatch(c1, &Frame{Event: EventMessageRead, Data: map[string]any{
		"messageId": "missing", "userId": "u1", "chatId": "chat42",
	}})

	assert.Nil(t, recv(t, c1))
	assert.Equal(t, int64(1), s.Stats().ReadReceiptFailures)
}

func TestDisconnectRemovesAllMemberships(t *testing.T) {
	s := newTestServer(newFakeStore())
	c1 := NewClient("conn-1", nil, 16)
	c2 := NewClient("conn-2", nil, 16)
	setup(t, s, c1, "u1")
	setup(t, s, c2, "u2")
	s.dispatch(c2, &Frame{Event: EventJoinChat, Data: "chat42"})
	recv(t, c2)

	s.dropClient(c2)

	assert.Nil(t, s.registry.Lookup("u2"))
	assert.False(t, s.rooms.Contains(c2, "chat42"))
	assert.False(t, s.rooms.Contains(c2, "u2"))

	// a later broadcast to its former rooms never reaches it
	s.dispatch(c1, &Frame{Event: EventNewMessage, Data: map[string]any{
		"chat":   map[string]any{"users": []any{"u1", "u2"}},
		"sender": map[string]any{"_id": "u1"},
	}})
	got := recv(t, c2)
	assert.Nil(t, got)
}

func TestLeaveChatStopsRoomDelivery(t *testing.T) {
	s := newTestServer(newFakeStore())
	c1 := NewClient("conn-1", nil, 16)
	c2 := NewClient("conn-2", nil, 16)
	setup(t, s, c1, "u1")
	setup(t, s, c2, "u2")
	s.dispatch(c1, &Frame{Event: EventJoinChat, Data: "chat42"})
	recv(t, c1)
	s.dispatch(c2, &Frame{Event: EventJoinChat, Data: "chat42"})
	recv(t, c2)

	s.dispatch(c2, &Frame{Event: EventLeaveChat, Data: "chat42"})
	s.dispatch(c1, &Frame{Event: EventTyping, Data: "chat42"})

	assert.Nil(t, recv(t, c2))
}

func TestRepeatedSetupSwitchesIdentity(t *testing.T) {
	s := newTestServer(newFakeStore())
	c := NewClient("conn-1", nil, 16)

	setup(t, s, c, "u1")
	setup(t, s, c, "u2")

	assert.Nil(t, s.registry.Lookup("u1"))
	assert.Same(t, c, s.registry.Lookup("u2"))
	assert.False(t, s.rooms.Contains(c, "u1"))
	assert.True(t, s.rooms.Contains(c, "u2"))
}
