package chat

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFrame(t *testing.T) {
	f, err := ParseFrame([]byte(`{"event":"join chat","data":"chat42"}`))
	require.NoError(t, err)
	assert.Equal(t, EventJoinChat, f.Event)
	assert.Equal(t, "chat42", f.Data)
}

func TestParseFrameRejectsBadInput(t *testing.T) {
	_, err := ParseFrame([]byte(`not json`))
	assert.Error(t, err)

	_, err = ParseFrame([]byte(`{"data":"chat42"}`))
	assert.Error(t, err, "frame without event name")
}

func TestFrameEncodeRoundTrip(t *testing.T) {
	in := &Frame{Event: EventMessageReceived, Data: map[string]any{"content": "hi"}}
	out, err := ParseFrame(in.Encode())
	require.NoError(t, err)
	assert.Equal(t, in.Event, out.Event)
	assert.Equal(t, "hi", out.Data.(map[string]any)["content"])
}

func TestFrameEncodeOmitsEmptyData(t *testing.T) {
	var raw map[string]any
	require.NoError(t, json.Unmarshal((&Frame{Event: EventTyping}).Encode(), &raw))
	assert.NotContains(t, raw, "data")
}

func TestDecodeSetup(t *testing.T) {
	id, err := decodeSetup(map[string]any{"data": map[string]any{"_id": "u1"}})
	require.NoError(t, err)
	assert.Equal(t, "u1", id)

	_, err = decodeSetup(map[string]any{"data": map[string]any{}})
	assert.Error(t, err)

	_, err = decodeSetup("u1")
	assert.Error(t, err, "payload must be an object")
}

func TestDecodeReadReceipt(t *testing.T) {
	p, err := decodeReadReceipt(map[string]any{
		"messageId": "m1", "userId": "u1", "chatId": "chat42",
	})
	require.NoError(t, err)
	assert.Equal(t, "m1", p.MessageID)
	assert.Equal(t, "u1", p.UserID)
	assert.Equal(t, "chat42", p.ChatID)

	_, err = decodeReadReceipt(map[string]any{"messageId": "m1"})
	assert.Error(t, err, "all three ids are required")
}

func TestRefID(t *testing.T) {
	assert.Equal(t, "u1", refID("u1"))
	assert.Equal(t, "u1", refID(map[string]any{"_id": "u1", "username": "alice"}))
	assert.Equal(t, "", refID(nil))
	assert.Equal(t, "", refID(map[string]any{"_id": 42}))
	assert.Equal(t, "", refID(7))
}

func TestChatUserIDs(t *testing.T) {
	ids, ok := chatUserIDs(map[string]any{
		"chat": map[string]any{"users": []any{
			"u1",
			map[string]any{"_id": "u2"},
		}},
	})
	require.True(t, ok)
	assert.Equal(t, []string{"u1", "u2"}, ids)

	_, ok = chatUserIDs(map[string]any{"chat": map[string]any{}})
	assert.False(t, ok)

	_, ok = chatUserIDs(map[string]any{})
	assert.False(t, ok)
}

func TestRoomName(t *testing.T) {
	room, ok := roomName("chat42")
	require.True(t, ok)
	assert.Equal(t, "chat42", room)

	_, ok = roomName("")
	assert.False(t, ok)

	_, ok = roomName(map[string]any{"room": "chat42"})
	assert.False(t, ok)
}
