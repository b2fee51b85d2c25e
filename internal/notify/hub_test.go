package notify

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newHubServer subscribes every dialed socket to the topic in its query.
func newHubServer(t *testing.T, h *Hub) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if !assert.NoError(t, err) {
			return
		}
		topic := r.URL.Query().Get("topic")
		h.AddConnection(topic, conn)
		defer h.RemoveConnection(topic, conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func dialTopic(t *testing.T, srv *httptest.Server, h *Hub, topic string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?topic=" + topic
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.Eventually(t, func() bool { return h.Connections(topic) >= 1 }, time.Second, 5*time.Millisecond)
	return conn
}

func TestHub_StalledClientDoesNotBlockOtherTopics(t *testing.T) {
	h := NewHub()
	h.writeWait = 200 * time.Millisecond
	srv := newHubServer(t, h)

	stalled, live := RoundTopic(1), RoundTopic(2)
	dialTopic(t, srv, h, stalled) // never reads
	reader := dialTopic(t, srv, h, live)

	bulk := Message{Type: "bulk", Data: strings.Repeat("x", 256<<10)}
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			h.Broadcast(stalled, bulk)
		}
		h.Broadcast(live, Message{Type: MessageRoundEnded})
	}()

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("broadcast blocked behind a client that stopped reading")
	}

	require.NoError(t, reader.SetReadDeadline(time.Now().Add(time.Second)))
	var got Message
	require.NoError(t, reader.ReadJSON(&got))
	assert.Equal(t, MessageRoundEnded, got.Type)

	assert.Eventually(t, func() bool { return h.Connections(stalled) == 0 }, 2*time.Second, 10*time.Millisecond,
		"a client whose buffer filled up is dropped")
	assert.Equal(t, 1, h.Connections(live))
}

func TestHub_RemoveThenBroadcast(t *testing.T) {
	h := NewHub()
	srv := newHubServer(t, h)
	topic := RoundTopic(3)

	conn := dialTopic(t, srv, h, topic)
	conn.Close()
	require.Eventually(t, func() bool { return h.Connections(topic) == 0 }, time.Second, 5*time.Millisecond)

	assert.NotPanics(t, func() {
		h.Broadcast(topic, Message{Type: MessageRoundStarted})
	})
}

func TestHub_DeliversInOrder(t *testing.T) {
	h := NewHub()
	srv := newHubServer(t, h)
	topic := RoundTopic(4)
	conn := dialTopic(t, srv, h, topic)

	types := []string{MessageRoundStarted, MessageAttemptSubmitted, MessageRoundEnded}
	for _, typ := range types {
		h.Broadcast(topic, Message{Type: typ})
	}

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	for _, want := range types {
		var got Message
		require.NoError(t, conn.ReadJSON(&got))
		assert.Equal(t, want, got.Type)
	}
}
