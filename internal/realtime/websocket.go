package realtime

import (
	"context"
	"errors"
	"time"

	"github.com/fasthttp/websocket"
	"go.uber.org/zap"
)

const (
	defaultWriteTimeout = 10 * time.Second
	maxInboundFrame     = 64 << 10
)

type websocketConn struct {
	ws           *websocket.Conn
	writeTimeout time.Duration
}

// NewWebsocketConn adapts a websocket connection to Conn.
func NewWebsocketConn(ws *websocket.Conn, writeTimeout time.Duration) Conn {
	if writeTimeout <= 0 {
		writeTimeout = defaultWriteTimeout
	}
	return &websocketConn{ws: ws, writeTimeout: writeTimeout}
}

func (c *websocketConn) WriteText(data []byte) error {
	if err := c.ws.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
		return err
	}
	return c.ws.WriteMessage(websocket.TextMessage, data)
}

func (c *websocketConn) Ping() error {
	return c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.writeTimeout))
}

func (c *websocketConn) Close() error {
	msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "")
	_ = c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	return c.ws.Close()
}

// Serve registers ws, drains its outbound queue and discards anything the peer sends.
// It returns once the peer disconnects, a write fails, or ctx ends; the client is
// always unregistered on return.
func Serve(ctx context.Context, registry *Registry, ws *websocket.Conn, writeTimeout time.Duration) error {
	client, err := registry.Register(NewWebsocketConn(ws, writeTimeout))
	if err != nil {
		reason := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, err.Error())
		if errors.Is(err, ErrRegistryClosed) {
			reason = websocket.FormatCloseMessage(websocket.CloseGoingAway, err.Error())
		}
		_ = ws.WriteControl(websocket.CloseMessage, reason, time.Now().Add(time.Second))
		_ = ws.Close()
		return err
	}
	defer registry.Unregister(client)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go client.Run(runCtx)

	ws.SetReadLimit(maxInboundFrame)
	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				registry.logger.Debug("client read failed", zap.String("client_id", client.ID()), zap.Error(err))
			}
			return nil
		}
	}
}
