package chat

import (
	"context"
	"time"

	"chatserve/logger"
)

const storeTimeout = 5 * time.Second

// dispatch routes one inbound frame. It runs on the connection's reader
// goroutine, so per-client state (UserID) needs no locking; the shared
// registry and room tables are safe for concurrent dispatchers.
func (s *Server) dispatch(c *Client, f *Frame) {
	if f.Event == EventSetup {
		s.handleSetup(c, f)
		return
	}

	// anonymous connections get exactly one verb
	if c.UserID == "" {
		s.stats.UnauthorizedFrames.Add(1)
		logger.Infof("[relay] drop %q before setup conn=%s", f.Event, c.ConnID)
		return
	}

	switch f.Event {
	case EventJoinChat:
		s.handleJoinChat(c, f)
	case EventLeaveChat:
		s.handleLeaveChat(c, f)
	case EventNewMessage:
		s.handleNewMessage(c, f)
	case EventMessageRead:
		s.handleMessageRead(c, f)
	case EventTyping, EventStopTyping:
		s.handleTyping(c, f)
	default:
		s.stats.MalformedFrames.Add(1)
		logger.Infof("[relay] unknown event %q conn=%s", f.Event, c.ConnID)
	}
}

// handleSetup upgrades the connection to identified: identity room joined,
// presence registered, `connected` acked. A repeated setup switches identity.
func (s *Server) handleSetup(c *Client, f *Frame) {
	identity, err := decodeSetup(f.Data)
	if err != nil {
		s.stats.MalformedFrames.Add(1)
		logger.Infof("[relay] bad setup conn=%s err=%v", c.ConnID, err)
		return
	}

	if c.UserID != "" && c.UserID != identity {
		s.registry.Unregister(c)
		s.rooms.Leave(c, c.UserID)
		s.mirrorOffline(c.UserID)
	}

	c.UserID = identity
	s.registry.Register(identity, c)
	s.rooms.Join(c, identity)
	s.mirrorOnline(identity, c.ConnID)

	s.sendTo(c, &Frame{Event: EventConnected})
	logger.Infof("[relay] setup user=%s conn=%s", identity, c.ConnID)
}

func (s *Server) handleJoinChat(c *Client, f *Frame) {
	room, ok := roomName(f.Data)
	if !ok {
		s.stats.MalformedFrames.Add(1)
		logger.Infof("[relay] join chat without room conn=%s", c.ConnID)
		return
	}
	s.rooms.Join(c, room)
	s.sendTo(c, &Frame{Event: EventConnected})
}

func (s *Server) handleLeaveChat(c *Client, f *Frame) {
	room, ok := roomName(f.Data)
	if !ok {
		s.stats.MalformedFrames.Add(1)
		return
	}
	s.rooms.Leave(c, room)
}

// handleNewMessage relays an already-persisted message to every member of
// chat.users except the sender, via their identity rooms. Best-effort: users
// without a live connection just miss it.
func (s *Server) handleNewMessage(c *Client, f *Frame) {
	data, ok := payloadMap(f.Data)
	if !ok {
		s.stats.MalformedFrames.Add(1)
		logger.Infof("[relay] new message payload not an object conn=%s", c.ConnID)
		return
	}
	users, ok := chatUserIDs(data)
	if !ok {
		s.stats.MalformedFrames.Add(1)
		logger.Infof("[relay] chat.users not defined conn=%s", c.ConnID)
		return
	}
	senderID := refID(data["sender"])

	out := &Frame{Event: EventMessageReceived, Data: f.Data}
	payload := out.Encode()
	for _, uid := range users {
		if uid == senderID {
			continue
		}
		s.emitToUser(uid, payload)
	}
}

// handleMessageRead applies the idempotent read-by update, then broadcasts
// the refreshed set to the chat room. Store failures are logged and counted;
// the sender never sees an error.
func (s *Server) handleMessageRead(c *Client, f *Frame) {
	p, err := decodeReadReceipt(f.Data)
	if err != nil {
		s.stats.MalformedFrames.Add(1)
		logger.Infof("[relay] bad message read conn=%s err=%v", c.ConnID, err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	status, err := s.store.AddMessageReader(ctx, p.MessageID, p.UserID)
	if err != nil {
		s.stats.ReadReceiptFailures.Add(1)
		logger.Infof("[relay] read receipt failed message=%s user=%s err=%v", p.MessageID, p.UserID, err)
		return
	}

	s.broadcastRoom(p.ChatID, &Frame{Event: EventMessageReadUpdate, Data: status}, nil)
}

// handleTyping relays the ephemeral indicator to the room, excluding the
// sender: their own connection is subscribed to the room too.
func (s *Server) handleTyping(c *Client, f *Frame) {
	room, ok := roomName(f.Data)
	if !ok {
		s.stats.MalformedFrames.Add(1)
		return
	}
	s.broadcastRoom(room, &Frame{Event: f.Event}, c)
}

// dropClient is the single disconnect path, shared by read errors and
// heartbeat timeouts. Registry and room cleanup are idempotent, so an abrupt
// close leaves no partial state.
func (s *Server) dropClient(c *Client) {
	s.registry.Unregister(c)
	s.rooms.LeaveAll(c)
	if c.UserID != "" {
		s.mirrorOffline(c.UserID)
	}
	c.closeSend()
	logger.Infof("[relay] disconnect user=%s conn=%s", c.UserID, c.ConnID)
}

func (s *Server) sendTo(c *Client, f *Frame) {
	if !c.trySend(f.Encode()) {
		s.stats.DroppedDeliveries.Add(1)
		logger.Infof("[relay] send queue full, drop %q conn=%s", f.Event, c.ConnID)
	}
}

// emitToUser delivers to the identity's authoritative connection, if any.
func (s *Server) emitToUser(identity string, payload []byte) {
	c := s.registry.Lookup(identity)
	if c == nil {
		return
	}
	if !c.trySend(payload) {
		s.stats.DroppedDeliveries.Add(1)
		logger.Infof("[relay] send queue full, drop delivery user=%s", identity)
	}
}

func (s *Server) broadcastRoom(room string, f *Frame, except *Client) {
	members := s.rooms.Members(room)
	if len(members) == 0 {
		return
	}
	payload := f.Encode()
	for _, m := range members {
		if m == except {
			continue
		}
		if !m.trySend(payload) {
			s.stats.DroppedDeliveries.Add(1)
			logger.Infof("[relay] send queue full, drop %q room=%s user=%s", f.Event, room, m.UserID)
		}
	}
}

func (s *Server) mirrorOnline(identity, connID string) {
	if s.presence == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.presence.Online(ctx, identity, connID, s.cfg.PingTimeout); err != nil {
		logger.Debug("[relay] presence mirror online failed: " + err.Error())
	}
}

func (s *Server) mirrorOffline(identity string) {
	if s.presence == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.presence.Offline(ctx, identity); err != nil {
		logger.Debug("[relay] presence mirror offline failed: " + err.Error())
	}
}
