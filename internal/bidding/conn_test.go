package bidding

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

// startEchoServer runs a WebSocket server that pushes every frame it
// receives back to all connected clients. Returns the ws:// URL.
func startEchoServer(t *testing.T) string {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			mt, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if err := conn.WriteMessage(mt, data); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestConnManager_SendWhileDisconnected(t *testing.T) {
	m := NewConnManager("ws://127.0.0.1:1/ws", 0, 0, nil)
	err := m.Send(NewSubscribeMessage("auction_koi/1"))
	require.ErrorIs(t, err, ErrNotConnected)
}

func TestConnManager_ConnectIdempotent(t *testing.T) {
	url := startEchoServer(t)
	m := NewConnManager(url, 0, 0, nil)
	defer m.Disconnect()

	readyCalls := 0
	onDone := func(err error) {
		require.NoError(t, err)
		readyCalls++
	}
	require.NoError(t, m.Connect(context.Background(), onDone))
	require.Equal(t, 1, readyCalls)
	require.Equal(t, StateConnected, m.State())

	// Already connected: onDone fires immediately, no new handshake.
	require.NoError(t, m.Connect(context.Background(), onDone))
	require.Equal(t, 2, readyCalls)
}

func TestConnManager_RoundTrip(t *testing.T) {
	url := startEchoServer(t)

	received := make(chan []byte, 1)
	m := NewConnManager(url, 0, 0, func(data []byte) {
		received <- data
	})
	defer m.Disconnect()

	require.NoError(t, m.Connect(context.Background(), nil))
	require.NoError(t, m.Send(NewSubscribeMessage("auction_koi/100")))

	select {
	case data := <-received:
		require.Contains(t, string(data), "auction_koi/100")
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for echoed message")
	}
}

func TestConnManager_DisconnectIdempotent(t *testing.T) {
	url := startEchoServer(t)
	m := NewConnManager(url, 0, 0, nil)
	require.NoError(t, m.Connect(context.Background(), nil))

	m.Disconnect()
	require.Equal(t, StateDisconnected, m.State())
	require.NotPanics(t, m.Disconnect)
	require.Equal(t, StateDisconnected, m.State())
}

func TestConnManager_StateObserver(t *testing.T) {
	url := startEchoServer(t)
	m := NewConnManager(url, 0, 0, nil)

	states := make(chan ConnState, 8)
	m.OnStateChange(func(s ConnState) { states <- s })

	require.NoError(t, m.Connect(context.Background(), nil))
	require.Equal(t, StateConnecting, <-states)
	require.Equal(t, StateConnected, <-states)

	m.Disconnect()
	require.Equal(t, StateDisconnected, <-states)
}

func TestConnManager_ReferenceCounting(t *testing.T) {
	url := startEchoServer(t)
	m := NewConnManager(url, 0, 0, nil)

	m.Acquire()
	m.Acquire()
	require.NoError(t, m.Connect(context.Background(), nil))

	m.Release()
	require.Equal(t, StateConnected, m.State(), "connection must survive while owners remain")

	m.Release()
	require.Equal(t, StateDisconnected, m.State(), "last release must disconnect")
}

func TestConnManager_ConnectCancelled(t *testing.T) {
	m := NewConnManager("ws://127.0.0.1:1/ws", 0, 0, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := m.Connect(ctx, func(error) { t.Fatal("onDone must not run when the dial error is returned directly") })
	require.Error(t, err)
	require.Equal(t, StateDisconnected, m.State())
}

func TestConnManager_QueuedConnectReceivesDialError(t *testing.T) {
	// A raw TCP listener that swallows the handshake request and never
	// answers, so the dial runs into its handshake timeout.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		io.Copy(io.Discard, conn)
	}()

	m := NewConnManager("ws://"+ln.Addr().String(), 250*time.Millisecond, 0, nil)

	connecting := make(chan struct{})
	var once sync.Once
	m.OnStateChange(func(s ConnState) {
		if s == StateConnecting {
			once.Do(func() { close(connecting) })
		}
	})

	dialErr := make(chan error, 1)
	go func() { dialErr <- m.Connect(context.Background(), nil) }()

	select {
	case <-connecting:
	case <-time.After(2 * time.Second):
		t.Fatal("dial never started")
	}

	// Second caller arrives while the handshake is in flight and is queued
	// behind it.
	queued := make(chan error, 1)
	require.NoError(t, m.Connect(context.Background(), func(err error) { queued <- err }))

	require.Error(t, <-dialErr)
	select {
	case err := <-queued:
		require.Error(t, err, "a queued caller must learn the shared dial failed")
	case <-time.After(2 * time.Second):
		t.Fatal("queued caller was never told the dial failed")
	}
	require.Equal(t, StateDisconnected, m.State())
}
