package realtime

import (
	"context"
	"encoding/json"
	"net"
	"testing"
	"time"

	"github.com/fasthttp/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"

	"github.com/fastygo/taskhub/domain"
)

func startWebsocketServer(t *testing.T, registry *Registry) *websocket.Dialer {
	t.Helper()
	ln := fasthttputil.NewInmemoryListener()
	upgrader := websocket.FastHTTPUpgrader{
		CheckOrigin: func(*fasthttp.RequestCtx) bool { return true },
	}
	srv := &fasthttp.Server{
		Handler: func(ctx *fasthttp.RequestCtx) {
			_ = upgrader.Upgrade(ctx, func(ws *websocket.Conn) {
				_ = Serve(context.Background(), registry, ws, time.Second)
			})
		},
	}
	go func() { _ = srv.Serve(ln) }()
	t.Cleanup(func() {
		registry.Close()
		_ = ln.Close()
	})

	return &websocket.Dialer{
		NetDial: func(network, addr string) (net.Conn, error) {
			return ln.Dial()
		},
		HandshakeTimeout: time.Second,
	}
}

func dial(t *testing.T, dialer *websocket.Dialer) *websocket.Conn {
	t.Helper()
	ws, _, err := dialer.Dial("ws://taskhub.test/ws", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ws.Close() })
	return ws
}

func TestServeDeliversBroadcastsAndIgnoresClientPayloads(t *testing.T) {
	registry := NewRegistry(Options{}, nil)
	dialer := startWebsocketServer(t, registry)

	ws := dial(t, dialer)
	require.Eventually(t, func() bool { return registry.Len() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, ws.WriteMessage(websocket.TextMessage, []byte(`{"hello":"server"}`)))

	ev := sampleEvent(domain.ActionUpdate, 5)
	registry.Broadcast(ev)

	require.NoError(t, ws.SetReadDeadline(time.Now().Add(time.Second)))
	kind, data, err := ws.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, websocket.TextMessage, kind)

	var got domain.ChangeEvent
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, ev, got)
}

func TestServeUnregistersOnDisconnect(t *testing.T) {
	registry := NewRegistry(Options{}, nil)
	dialer := startWebsocketServer(t, registry)

	ws := dial(t, dialer)
	require.Eventually(t, func() bool { return registry.Len() == 1 }, time.Second, 5*time.Millisecond)

	_ = ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"))
	_ = ws.Close()

	require.Eventually(t, func() bool { return registry.Len() == 0 }, time.Second, 5*time.Millisecond)
}

func TestServeRejectsBeyondCeiling(t *testing.T) {
	registry := NewRegistry(Options{MaxClients: 1}, nil)
	dialer := startWebsocketServer(t, registry)

	dial(t, dialer)
	require.Eventually(t, func() bool { return registry.Len() == 1 }, time.Second, 5*time.Millisecond)

	second := dial(t, dialer)
	require.NoError(t, second.SetReadDeadline(time.Now().Add(time.Second)))
	_, _, err := second.ReadMessage()
	require.Error(t, err)
	assert.True(t, websocket.IsCloseError(err, websocket.ClosePolicyViolation))
	assert.Equal(t, 1, registry.Len())
}
