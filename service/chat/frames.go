package chat

import (
	"encoding/json"

	"chatserve/tools/decode"
	"chatserve/tools/errs"
)

// Event names are the wire contract with the web client; the spaces are
// inherited from the socket.io event vocabulary the client already speaks.
const (
	EventSetup             = "setup"
	EventJoinChat          = "join chat"
	EventLeaveChat         = "leave chat"
	EventNewMessage        = "new message"
	EventMessageRead       = "message read"
	EventTyping            = "typing"
	EventStopTyping        = "stop typing"
	EventConnected         = "connected"
	EventMessageReceived   = "message received"
	EventMessageReadUpdate = "message read update"
)

// Frame is the envelope for every relay event, both directions.
type Frame struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

// ParseFrame decodes an inbound frame. Numbers stay json.Number-free float64,
// which decode.Map's weak typing papers over.
func ParseFrame(raw []byte) (*Frame, error) {
	var f Frame
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, errs.WrapMsg(err, "unmarshal frame")
	}
	if f.Event == "" {
		return nil, errs.New("frame missing event name")
	}
	return &f, nil
}

func (f *Frame) Encode() []byte {
	b, err := json.Marshal(f)
	if err != nil {
		// Frame payloads originate from decoded JSON or our own structs,
		// neither of which can fail to marshal.
		return []byte(`{"event":"` + f.Event + `"}`)
	}
	return b
}

// SetupPayload mirrors the client's `{data: {_id}}` handshake shape.
type SetupPayload struct {
	Data struct {
		ID string `json:"_id"`
	} `json:"data"`
}

// ReadReceiptPayload is the inbound `message read` event.
type ReadReceiptPayload struct {
	MessageID string `json:"messageId"`
	UserID    string `json:"userId"`
	ChatID    string `json:"chatId"`
}

// payloadMap returns the frame data as an object, when it is one.
func payloadMap(data any) (map[string]any, bool) {
	m, ok := data.(map[string]any)
	return m, ok
}

// decodeSetup extracts the identity from a setup payload.
func decodeSetup(data any) (string, error) {
	m, ok := payloadMap(data)
	if !ok {
		return "", errs.New("setup payload is not an object")
	}
	p, err := decode.Map[SetupPayload](m)
	if err != nil {
		return "", err
	}
	if p.Data.ID == "" {
		return "", errs.New("setup payload missing data._id")
	}
	return p.Data.ID, nil
}

// decodeReadReceipt extracts and validates a read receipt payload.
func decodeReadReceipt(data any) (*ReadReceiptPayload, error) {
	m, ok := payloadMap(data)
	if !ok {
		return nil, errs.New("message read payload is not an object")
	}
	p, err := decode.Map[ReadReceiptPayload](m)
	if err != nil {
		return nil, err
	}
	if p.MessageID == "" || p.UserID == "" || p.ChatID == "" {
		return nil, errs.New("message read payload missing messageId/userId/chatId")
	}
	return p, nil
}

// refID accepts the two shapes user references arrive in: a bare id string,
// or a populated document carrying `_id`.
func refID(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case map[string]any:
		if id, ok := t["_id"].(string); ok {
			return id
		}
	}
	return ""
}

// chatUserIDs pulls chat.users out of a `new message` payload.
func chatUserIDs(data map[string]any) ([]string, bool) {
	chatObj, ok := payloadMap(data["chat"])
	if !ok {
		return nil, false
	}
	raw, ok := chatObj["users"].([]any)
	if !ok {
		return nil, false
	}
	out := make([]string, 0, len(raw))
	for _, u := range raw {
		if id := refID(u); id != "" {
			out = append(out, id)
		}
	}
	return out, true
}

// roomName expects the payload of join/leave/typing events: a plain string.
func roomName(data any) (string, bool) {
	room, ok := data.(string)
	return room, ok && room != ""
}
