// internal/handlers/game_ws.go
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/jason-s-yu/czar/internal/middleware"
	"github.com/sirupsen/logrus"
)

// Subprotocol is the websocket subprotocol clients must request.
const Subprotocol = "czar"

const (
	writeTimeout      = 5 * time.Second
	disconnectTimeout = 5 * time.Second
	pingInterval      = 30 * time.Second
)

// Connection is one websocket client's outbound queue.
type Connection struct {
	ID     string
	Out    chan interface{}
	logger logrus.FieldLogger
}

// NewConnection returns a connection with a queue of size buffer.
func NewConnection(id string, buffer int, logger logrus.FieldLogger) *Connection {
	if buffer < 1 {
		buffer = 1
	}
	return &Connection{ID: id, Out: make(chan interface{}, buffer), logger: logger}
}

// Send queues msg without blocking. A full queue drops the frame.
func (conn *Connection) Send(msg interface{}) {
	select {
	case conn.Out <- msg:
	default:
		conn.logger.WithFields(logrus.Fields{"conn": conn.ID, "frame": frameType(msg)}).Warn("outbound queue full, dropped frame")
	}
}

func frameType(msg interface{}) string {
	switch m := msg.(type) {
	case ServerEvent:
		return string(m.Type)
	case Response:
		return m.Type
	}
	return "unknown"
}

// WSOptions configures the game socket.
type WSOptions struct {
	OriginPatterns []string
	SendBuffer     int
}

// GameWSHandler upgrades to a websocket speaking the czar subprotocol,
// registers the connection with gs and pumps frames both ways until the
// client goes away. Each connection gets a fresh id that identifies the
// player for as long as the socket lives.
func GameWSHandler(logger *logrus.Logger, gs *GameServer, opts WSOptions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			Subprotocols:   []string{Subprotocol},
			OriginPatterns: opts.OriginPatterns,
		})
		if err != nil {
			logger.Warnf("websocket accept error: %v", err)
			return
		}
		defer c.Close(websocket.StatusInternalError, "handler finished")

		if c.Subprotocol() != Subprotocol {
			c.Close(BadSubprotocolError, "client must speak the czar subprotocol")
			return
		}

		conn := NewConnection(uuid.NewString(), opts.SendBuffer, logger)
		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		if err := gs.Exec(ctx, func() { gs.Connect(conn.ID, conn) }); err != nil {
			c.Close(ServerUnavailableError, "server unavailable")
			return
		}
		middleware.LogWebSocketConnect(logger, conn.ID, r.RemoteAddr)

		go writePump(ctx, cancel, c, conn, logger)
		readErr := readPump(ctx, c, gs, conn, logger)
		cancel()

		dctx, dcancel := context.WithTimeout(context.Background(), disconnectTimeout)
		if err := gs.Exec(dctx, func() { gs.Disconnect(conn.ID) }); err != nil {
			logger.Warnf("disconnect of %s not processed: %v", conn.ID, err)
		}
		dcancel()
		middleware.LogWebSocketDisconnect(logger, conn.ID, r.RemoteAddr, readErr)
		c.Close(websocket.StatusNormalClosure, "")
	}
}

// readPump decodes inbound frames and submits them to the command loop,
// replying to each with its Result. It returns the error that ended the
// connection, or nil on a normal close.
func readPump(ctx context.Context, c *websocket.Conn, gs *GameServer, conn *Connection, logger *logrus.Logger) error {
	for {
		typ, data, err := c.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway || errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
		if typ != websocket.MessageText {
			logger.Warnf("ignoring non-text frame from %s", conn.ID)
			continue
		}

		var cmd Command
		if err := json.Unmarshal(data, &cmd); err != nil {
			logger.Warnf("invalid JSON from %s: %v", conn.ID, err)
			conn.Send(NewResponse(cmd, fail(errBadRequest)))
			continue
		}

		res, err := gs.Submit(ctx, conn.ID, cmd)
		if err != nil {
			return err
		}
		conn.Send(NewResponse(cmd, res))
	}
}

// writePump drains the connection's queue onto the socket and keeps the
// link alive with periodic pings. A failed write or ping cancels the
// session so the read side stops and the player is disconnected.
func writePump(ctx context.Context, cancel context.CancelFunc, c *websocket.Conn, conn *Connection, logger *logrus.Logger) {
	defer cancel()
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-conn.Out:
			data, err := json.Marshal(msg)
			if err != nil {
				logger.Warnf("failed to marshal frame for %s: %v", conn.ID, err)
				continue
			}
			writeCtx, writeCancel := context.WithTimeout(ctx, writeTimeout)
			err = c.Write(writeCtx, websocket.MessageText, data)
			writeCancel()
			if err != nil {
				logger.Warnf("failed to write to %s: %v", conn.ID, err)
				return
			}
		case <-ticker.C:
			pingCtx, pingCancel := context.WithTimeout(ctx, writeTimeout)
			err := c.Ping(pingCtx)
			pingCancel()
			if err != nil {
				logger.Debugf("ping to %s failed: %v", conn.ID, err)
				return
			}
		}
	}
}
