package chat

import (
	"context"
	"errors"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"lobbychat/internal/app/user"
	"lobbychat/internal/pkg/errs"
	"lobbychat/internal/pkg/req"
)

const (
	// timeout duration for writing to the WebSocket connection.
	writeWait = 10 * time.Second

	// maximum time allowed for the server to wait for a Pong message from the client.
	pongWait = 60 * time.Second

	// frequency at which the server sends a Ping message.
	pingPeriod = (pongWait * 9) / 10

	// maximum allowed size (in bytes) of a frame sent by the client.
	maxFrameSize = 8192

	// capacity of the direct reply queue.
	sendBuffer = 64
)

// Client couples a websocket connection to the Session it drives.
// ReadPump turns inbound frames into session operations; WritePump delivers
// direct replies and the session's bus events.
type Client struct {
	session *Session

	// underlying WebSocket connection object.
	conn *websocket.Conn

	// replies (JOINED, ERROR) waiting to be written. Only ReadPump sends on or closes it.
	send chan []byte

	// structured logger with session context.
	logger zerolog.Logger
}

// NewClient constructs a Client for session over conn.
func NewClient(session *Session, conn *websocket.Conn) *Client {
	return &Client{
		session: session,
		conn:    conn,
		send:    make(chan []byte, sendBuffer),
		logger:  session.logger.With().Str("remote_addr", conn.RemoteAddr().String()).Logger(),
	}
}

// Session returns the session driven by this client.
func (c *Client) Session() *Session {
	return c.session
}

// ReadPump reads frames until the connection fails or closes, then disconnects
// the session. ctx bounds credential store calls.
func (c *Client) ReadPump(ctx context.Context) {
	defer c.cleanupOnDisconnect()

	c.conn.SetReadLimit(maxFrameSize)

	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set read deadline")
		return
	}

	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Info().Err(err).Msg("Error reading message (client close/going away)")
			}
			return
		}

		c.processInboundFrame(ctx, data)
	}
}

// cleanupOnDisconnect ends the session and releases the connection.
func (c *Client) cleanupOnDisconnect() {
	c.logger.Debug().Msg("Client connection cleanup starting.")

	c.session.Disconnect()
	close(c.send)

	if err := c.conn.Close(); err != nil && !errors.Is(err, websocket.ErrCloseSent) {
		c.logger.Debug().Err(err).Msg("Client connection close error")
	}
}

// processInboundFrame decodes one frame and applies it to the session.
func (c *Client) processInboundFrame(ctx context.Context, data []byte) {
	var frame Frame
	if err := req.DecodeJSON(data, &frame); err != nil {
		c.logger.Warn().Int("frame_bytes", len(data)).Msg("Client sent invalid JSON")
		c.sendError(err)
		return
	}

	switch frame.Type {
	case TypeJoinGuest:
		var p JoinGuestPayload
		if err := req.DecodeJSON(frame.Payload, &p); err != nil {
			c.sendError(err)
			return
		}
		c.replyEntry(c.session.JoinAsGuest(ctx, p.Name))

	case TypeLogin:
		var p LoginPayload
		if err := req.DecodeJSON(frame.Payload, &p); err != nil {
			c.sendError(err)
			return
		}
		c.replyEntry(c.session.Login(ctx, p.Username, p.Password))

	case TypeSignup:
		var p SignupPayload
		if err := req.DecodeJSON(frame.Payload, &p); err != nil {
			c.sendError(err)
			return
		}
		c.replyEntry(c.session.Signup(ctx, p))

	case TypeText:
		var p TextPayload
		if err := req.DecodeJSON(frame.Payload, &p); err != nil {
			c.sendError(err)
			return
		}
		if err := c.session.Send(p.Content); err != nil {
			c.sendError(err)
		}

	default:
		c.logger.Warn().Str("frame_type", string(frame.Type)).Msg("Client sent unsupported frame type")
		c.sendError(errs.NewError(errs.ErrUnsupportedFrameType, frame.Type))
	}
}

// replyEntry answers an entry attempt with JOINED or ERROR.
func (c *Client) replyEntry(u user.User, err *errs.CustomError) {
	if err != nil {
		c.sendError(err)
		return
	}

	c.sendFrame(TypeJoined, JoinedPayload{
		DisplayName: u.DisplayName,
		UserType:    u.UserType,
	})
}

// sendError queues an ERROR frame.
func (c *Client) sendError(err *errs.CustomError) {
	c.sendFrame(TypeError, ErrorPayload{
		Code:    err.Code,
		Message: err.Message,
		Fields:  err.Fields,
	})
}

// sendFrame marshals the payload and queues it without blocking.
func (c *Client) sendFrame(t FrameType, payload any) {
	data, err := EncodeFrame(t, payload)
	if err != nil {
		c.logger.Error().Err(err).Str("frame_type", string(t)).Msg("Error marshaling frame for client")
		return
	}

	select {
	case c.send <- data:
	default:
		c.logger.Warn().Int("queue_len", len(c.send)).Msg("Client send channel full, dropping frame")
	}
}

// WritePump writes queued replies and bus events to the connection and keeps
// the heartbeat going. It returns when either queue is closed or a write fails.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()

		if err := c.conn.Close(); err != nil {
			c.logger.Debug().Err(err).Msg("Client connection close error in WritePump")
		}
	}()

	for {
		// Events is nil until the session joins; the JOINED reply wakes this
		// loop right after, so the new channel is picked up on the next pass.
		events := c.session.Events()

		select {
		case message, ok := <-c.send:
			if !c.writeQueuedMessage(message, ok) {
				return
			}

		case ev, ok := <-events:
			if !ok {
				c.writeClose()
				return
			}

			data, err := EncodeFrame(TypeEvent, ev)
			if err != nil {
				c.logger.Error().Err(err).Str("event_id", ev.ID).Msg("Error marshaling event")
				continue
			}
			if !c.writeQueuedMessage(data, true) {
				return
			}

		case <-ticker.C:
			if !c.writePingMessage() {
				return
			}
		}
	}
}

// writeQueuedMessage writes one text frame, or a close frame when ok is false.
// Returns true if the WritePump loop should continue.
func (c *Client) writeQueuedMessage(message []byte, ok bool) bool {
	if !ok {
		c.writeClose()
		return false
	}

	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set write deadline")
		return false
	}

	if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
		c.logger.Debug().Err(err).Msg("Error writing message")
		return false
	}

	return true
}

func (c *Client) writeClose() {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return
	}
	if err := c.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil && !errors.Is(err, websocket.ErrCloseSent) {
		c.logger.Debug().Err(err).Msg("Error writing close message")
	}
}

// writePingMessage sends a heartbeat Ping. Returns false if the write failed.
func (c *Client) writePingMessage() bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set write deadline on ping")
		return false
	}

	if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
		c.logger.Debug().Err(err).Msg("Error writing ping")
		return false
	}

	return true
}

// Kick sends a close frame with code and reason and closes the connection,
// which makes ReadPump return and disconnect the session.
// It is safe to call concurrently with the pumps.
func (c *Client) Kick(code int, reason string) {
	c.logger.Info().Int("close_code", code).Str("reason", reason).Msg("Closing client connection.")

	msg := websocket.FormatCloseMessage(code, reason)
	if err := c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait)); err != nil && !errors.Is(err, websocket.ErrCloseSent) {
		c.logger.Debug().Err(err).Msg("Failed to send close frame.")
	}

	if err := c.conn.Close(); err != nil {
		c.logger.Debug().Err(err).Msg("Client connection close error in Kick")
	}
}
