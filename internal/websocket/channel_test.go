package websocket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pushServer is a fake backend push endpoint.
type pushServer struct {
	srv *httptest.Server

	mu     sync.Mutex
	tokens []string

	// onConn runs for every accepted socket; the socket is closed after.
	onConn func(conn *websocket.Conn)
}

func newPushServer(t *testing.T, onConn func(conn *websocket.Conn)) *pushServer {
	t.Helper()
	ps := &pushServer{onConn: onConn}
	up := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	ps.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := r.URL.Query().Get("token")
		ps.mu.Lock()
		ps.tokens = append(ps.tokens, token)
		ps.mu.Unlock()
		if token == "rejected" {
			http.Error(w, "bad token", http.StatusUnauthorized)
			return
		}
		conn, err := up.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		ps.onConn(conn)
	}))
	t.Cleanup(ps.srv.Close)
	return ps
}

func (ps *pushServer) url() string {
	return WSBaseFromAPI(ps.srv.URL) + "/ws"
}

func (ps *pushServer) seen() []string {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	return append([]string(nil), ps.tokens...)
}

func staticToken(tok string) TokenSource {
	return func() string { return tok }
}

func TestWSBaseFromAPI(t *testing.T) {
	assert.Equal(t, "ws://localhost:5000/api", WSBaseFromAPI("http://localhost:5000/api"))
	assert.Equal(t, "wss://swiftel.example/api", WSBaseFromAPI("https://swiftel.example/api"))
	assert.Equal(t, "ws://already", WSBaseFromAPI("ws://already"))
}

func TestDialURL(t *testing.T) {
	u, err := DialURL("ws://localhost:5000/api", "a.b.c")
	require.NoError(t, err)
	assert.Equal(t, "ws://localhost:5000/api?token=a.b.c", u)

	_, err = DialURL("://bad", "x")
	assert.Error(t, err)
}

func TestChannel_OpenWithoutSession(t *testing.T) {
	ch := NewChannel(ChannelConfig{URL: "ws://unused", Token: staticToken("")})

	assert.ErrorIs(t, ch.Open(context.Background()), ErrNoToken)
	assert.False(t, ch.Running())
	ch.Close()
}

func TestChannel_SignalsOnEveryMessage(t *testing.T) {
	release := make(chan struct{})
	ps := newPushServer(t, func(conn *websocket.Conn) {
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"new_notification"}`))
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`not even json`))
		<-release
	})
	defer close(release)

	signals := make(chan struct{}, 8)
	ch := NewChannel(ChannelConfig{
		URL:      ps.url(),
		Token:    staticToken("tok"),
		OnSignal: func() { signals <- struct{}{} },
	})
	require.NoError(t, ch.Open(context.Background()))
	defer ch.Close()

	for i := 0; i < 2; i++ {
		select {
		case <-signals:
		case <-time.After(2 * time.Second):
			t.Fatalf("signal %d not received", i)
		}
	}
	assert.Equal(t, []string{"tok"}, ps.seen())
	assert.Eventually(t, ch.Connected, time.Second, 10*time.Millisecond)
}

func TestChannel_OpenTwiceIsNoop(t *testing.T) {
	release := make(chan struct{})
	ps := newPushServer(t, func(conn *websocket.Conn) { <-release })
	defer close(release)

	ch := NewChannel(ChannelConfig{URL: ps.url(), Token: staticToken("tok")})
	require.NoError(t, ch.Open(context.Background()))
	require.NoError(t, ch.Open(context.Background()))
	defer ch.Close()

	assert.Eventually(t, ch.Connected, time.Second, 10*time.Millisecond)
	assert.Len(t, ps.seen(), 1)
}

func TestChannel_CloseStopsConnection(t *testing.T) {
	closed := make(chan struct{})
	ps := newPushServer(t, func(conn *websocket.Conn) {
		_, _, _ = conn.ReadMessage()
		close(closed)
	})

	ch := NewChannel(ChannelConfig{URL: ps.url(), Token: staticToken("tok"), Reconnect: true})
	require.NoError(t, ch.Open(context.Background()))
	require.Eventually(t, ch.Connected, time.Second, 10*time.Millisecond)

	ch.Close()

	assert.False(t, ch.Running())
	assert.False(t, ch.Connected())
	select {
	case <-closed:
	case <-time.After(2 * time.Second):
		t.Fatal("server never saw the socket close")
	}
	ch.Close()
}

func TestChannel_NoReconnectEndsAfterDrop(t *testing.T) {
	ps := newPushServer(t, func(conn *websocket.Conn) {})

	ch := NewChannel(ChannelConfig{URL: ps.url(), Token: staticToken("tok"), InitialBackoff: 5 * time.Millisecond})
	require.NoError(t, ch.Open(context.Background()))

	assert.Eventually(t, func() bool { return !ch.Running() }, 2*time.Second, 10*time.Millisecond)
	time.Sleep(30 * time.Millisecond)
	assert.Len(t, ps.seen(), 1)
}

func TestChannel_ReconnectRereadsToken(t *testing.T) {
	var served atomic.Int32
	ps := newPushServer(t, func(conn *websocket.Conn) { served.Add(1) })

	tokens := []string{"first", "second"}
	ch := NewChannel(ChannelConfig{
		URL: ps.url(),
		Token: func() string {
			n := int(served.Load())
			if n >= len(tokens) {
				return ""
			}
			return tokens[n]
		},
		Reconnect:      true,
		InitialBackoff: 5 * time.Millisecond,
		MaxBackoff:     20 * time.Millisecond,
	})

	require.NoError(t, ch.Open(context.Background()))

	assert.Eventually(t, func() bool { return !ch.Running() }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"first", "second"}, ps.seen())
}

func TestChannel_HandshakeRejected(t *testing.T) {
	ps := newPushServer(t, func(conn *websocket.Conn) {})

	var calls atomic.Int32
	ch := NewChannel(ChannelConfig{
		URL: ps.url(),
		Token: func() string {
			if calls.Add(1) > 3 {
				return ""
			}
			return "rejected"
		},
		Reconnect:      true,
		InitialBackoff: 5 * time.Millisecond,
		MaxBackoff:     10 * time.Millisecond,
	})
	require.NoError(t, ch.Open(context.Background()))

	assert.Eventually(t, func() bool { return !ch.Running() }, 2*time.Second, 10*time.Millisecond)
	assert.False(t, ch.Connected())
	assert.NotEmpty(t, ps.seen())
}

func TestChannel_ContextCancelStops(t *testing.T) {
	release := make(chan struct{})
	ps := newPushServer(t, func(conn *websocket.Conn) { <-release })
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	ch := NewChannel(ChannelConfig{URL: ps.url(), Token: staticToken("tok"), Reconnect: true})
	require.NoError(t, ch.Open(ctx))
	require.Eventually(t, ch.Connected, time.Second, 10*time.Millisecond)

	cancel()

	assert.Eventually(t, func() bool { return !ch.Running() }, 2*time.Second, 10*time.Millisecond)
}

func TestHandshakeError(t *testing.T) {
	assert.Equal(t, "push channel rejected (status=401)", (&HandshakeError{StatusCode: 401}).Error())
	assert.True(t, strings.HasSuffix((&HandshakeError{StatusCode: 403, Body: "nope"}).Error(), ": nope"))
}

func TestJitter(t *testing.T) {
	for i := 0; i < 20; i++ {
		d := jitter(time.Second)
		assert.GreaterOrEqual(t, d, time.Second)
		assert.Less(t, d, 1500*time.Millisecond)
	}
	assert.Equal(t, time.Duration(1), jitter(1))
}
