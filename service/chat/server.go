package chat

import (
	"context"
	"net"
	"net/http"
	"time"

	"chatserve/logger"
	chatservice "chatserve/module/chat/service"
	"chatserve/tools/ids"
	"chatserve/tools/safe"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// MessageStore is the single durable-state contract the relay consumes:
// the idempotent read-receipt update. Everything else it touches is
// in-memory.
type MessageStore interface {
	AddMessageReader(ctx context.Context, messageID, userID string) (*chatservice.ReadStatus, error)
}

// PresenceMirror is the optional best-effort copy of online state kept
// outside the process. Failures never affect delivery.
type PresenceMirror interface {
	Online(ctx context.Context, user, connID string, ttl time.Duration) error
	Offline(ctx context.Context, user string) error
}

type Config struct {
	PingTimeout    time.Duration // drop a connection silent for this long
	SendQueueSize  int           // outbound frames buffered per connection
	MaxMessageSize int64
}

func (c *Config) setDefaults() {
	if c.PingTimeout <= 0 {
		c.PingTimeout = 60 * time.Second
	}
	if c.SendQueueSize <= 0 {
		c.SendQueueSize = 256
	}
	if c.MaxMessageSize <= 0 {
		c.MaxMessageSize = 64 * 1024
	}
}

// Server owns the presence registry and room tables and turns inbound
// connection events into outbound broadcasts. One instance per process,
// injected into the ws route.
type Server struct {
	cfg      Config
	registry *Registry
	rooms    *Rooms
	store    MessageStore
	presence PresenceMirror // may be nil
	stats    Stats
	upgrader websocket.Upgrader
}

func NewServer(cfg Config, store MessageStore, presence PresenceMirror) *Server {
	cfg.setDefaults()
	return &Server{
		cfg:      cfg,
		registry: NewRegistry(),
		rooms:    NewRooms(),
		store:    store,
		presence: presence,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// Stats returns a snapshot of the relay's drop counters.
func (s *Server) Stats() StatsSnapshot {
	return s.stats.Snapshot()
}

const writeWait = 10 * time.Second

// HandleWS upgrades the request and runs the connection's read loop. The
// writer pump runs on its own goroutine; the read loop owns dispatch, so
// events from one connection are handled in arrival order.
func (s *Server) HandleWS(c *gin.Context) {
	ws, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Infof("[ws] upgrade error: %v", err)
		return
	}

	client := NewClient(ids.GenerateString(), ws, s.cfg.SendQueueSize)
	logger.Infof("[ws] connected conn=%s remote=%s", client.ConnID, ws.RemoteAddr())

	safe.Go(func() { s.writePump(client) })
	s.readLoop(client)
}

// readLoop reads until the peer goes away or the heartbeat lapses, then
// tears the connection down through the same path as an explicit disconnect.
func (s *Server) readLoop(client *Client) {
	ws := client.WS
	ws.SetReadLimit(s.cfg.MaxMessageSize)
	_ = ws.SetReadDeadline(time.Now().Add(s.cfg.PingTimeout))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(s.cfg.PingTimeout))
	})

	defer s.dropClient(client)

	for {
		mt, data, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived,
			) {
				logger.Infof("[ws] peer closed conn=%s", client.ConnID)
			} else if ne, ok := err.(net.Error); ok && ne.Timeout() {
				logger.Infof("[ws] heartbeat timeout conn=%s", client.ConnID)
			} else {
				logger.Infof("[ws] read error conn=%s err=%v", client.ConnID, err)
			}
			return
		}
		if mt != websocket.TextMessage && mt != websocket.BinaryMessage {
			continue
		}

		frame, err := ParseFrame(data)
		if err != nil {
			s.stats.MalformedFrames.Add(1)
			sample := data
			if len(sample) > 256 {
				sample = sample[:256]
			}
			logger.Infof("[ws] bad frame conn=%s err=%v sample=%q", client.ConnID, err, sample)
			continue
		}

		s.dispatch(client, frame)
	}
}

// writePump is the connection's single writer: queued frames plus the
// heartbeat pings that keep the read deadline honest on the peer.
func (s *Server) writePump(client *Client) {
	pingPeriod := s.cfg.PingTimeout * 9 / 10
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = client.WS.Close()
	}()

	for {
		select {
		case payload, ok := <-client.Send:
			_ = client.WS.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = client.WS.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := client.WS.WriteMessage(websocket.TextMessage, payload); err != nil {
				logger.Infof("[ws] write error conn=%s err=%v", client.ConnID, err)
				return
			}
		case <-ticker.C:
			_ = client.WS.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.WS.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
