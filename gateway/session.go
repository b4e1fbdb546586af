package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"texttalk/domain/event"
	"texttalk/services"
)

const (
	// Time allowed to write a frame to the peer.
	writeWait = 10 * time.Second
	// Time allowed to read the next pong from the peer.
	pongWait = 60 * time.Second
	// Send pings with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10
	// Headroom on top of the content limit for the JSON envelope of a frame.
	frameOverhead = 512
)

// readLimitFor caps inbound frame size so an oversized message is rejected
// by the transport instead of being buffered whole before validation.
func readLimitFor(maxContentLength int) int64 {
	if maxContentLength <= 0 {
		return 0
	}
	return int64(maxContentLength + frameOverhead)
}

// session is the per-connection state machine. A connection that reaches
// this type is already authenticated: the username comes from the verified
// token, never from client payloads.
//
// One goroutine (readLoop) consumes inbound events, which serializes them
// per connection. A second goroutine (writePump) is the only writer on the
// websocket, draining both fan-out deliveries and error replies.
type session struct {
	id          string
	username    string
	conn        *websocket.Conn
	sink        *Sink
	replies     chan outboundEvent
	chatService services.IChatService
	log         *slog.Logger
	readLimit   int64
}

func newSession(id, username string, conn *websocket.Conn, sink *Sink, chatService services.IChatService, log *slog.Logger, readLimit int64) *session {
	return &session{
		id:          id,
		username:    username,
		conn:        conn,
		sink:        sink,
		replies:     make(chan outboundEvent, 8),
		chatService: chatService,
		log:         log.With("conn_id", id, "username", username),
		readLimit:   readLimit,
	}
}

// run blocks until the connection dies. Membership cleanup is deferred here
// so it runs exactly once whatever ends the connection: clean close, network
// failure, or server shutdown.
func (s *session) run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	defer s.chatService.LeaveAll(s.id)
	defer s.conn.Close()

	go s.writePump(ctx)
	s.readLoop(ctx)
}

// readLoop consumes inbound events one at a time, which preserves the
// per-sender ordering of store writes for this connection.
func (s *session) readLoop(ctx context.Context) {
	if s.readLimit > 0 {
		s.conn.SetReadLimit(s.readLimit)
	}
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var in inboundEvent
		if err := s.conn.ReadJSON(&in); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Warn("Connection closed unexpectedly", "error", err)
			}
			return
		}

		switch in.Event {
		case eventJoinChat:
			s.handleJoin(in)
		case eventPrivateMessage:
			s.handleMessage(ctx, in)
		default:
			s.reply(errorEvent(fmt.Errorf("unknown event %q", in.Event)))
		}
	}
}

func (s *session) handleJoin(in inboundEvent) {
	if in.Receiver == "" {
		s.reply(errorEvent(fmt.Errorf("join_chat: receiver is required")))
		return
	}
	s.chatService.JoinRoom(s.id, s.username, in.Receiver, s.sink)
}

// handleMessage persists then fans out. Validation and store failures are
// reported to this connection only; nothing is broadcast in that case.
func (s *session) handleMessage(ctx context.Context, in inboundEvent) {
	if in.Receiver == "" {
		s.reply(errorEvent(fmt.Errorf("private_message: receiver is required")))
		return
	}
	if _, err := s.chatService.SendMessage(ctx, s.username, in.Receiver, in.Message); err != nil {
		s.reply(errorEvent(err))
	}
}

// reply enqueues an event for this connection's write pump. Replies follow
// the same drop-on-backpressure policy as fan-out deliveries.
func (s *session) reply(evt outboundEvent) {
	select {
	case s.replies <- evt:
	default:
		s.log.Debug("Reply dropped, outbound buffer full")
	}
}

// writePump is the single writer on the websocket. It drains fan-out
// deliveries and local replies, and keeps the connection alive with
// periodic pings.
func (s *session) writePump(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	defer s.conn.Close()

	for {
		select {
		case <-ctx.Done():
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = s.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
			return
		case evt := <-s.sink.Events:
			if err := s.write(evt); err != nil {
				return
			}
		case reply := <-s.replies:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteJSON(reply); err != nil {
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (s *session) write(evt event.DomainEvent) error {
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	switch e := evt.(type) {
	case event.MessageStored:
		return s.conn.WriteJSON(newMessageEvent(e))
	default:
		// Unknown event types are skipped, not fatal.
		s.log.Debug(fmt.Sprintf("Unhandled event type %T", evt))
		return nil
	}
}
