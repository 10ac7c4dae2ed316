package wsbus

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zachkp/folio/internal/store"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func startHub(t *testing.T) (*Hub, string) {
	t.Helper()
	hub := NewHub(quietLogger(), func(*http.Request) bool { return true })
	srv := httptest.NewServer(hub)
	t.Cleanup(func() {
		hub.Close()
		srv.Close()
	})
	return hub, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url string) *Client {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	c, err := Dial(ctx, url, quietLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

// collector records signals delivered on a bus.
type collector struct {
	mu   sync.Mutex
	sigs []store.Signal
}

func (c *collector) add(sig store.Signal) {
	c.mu.Lock()
	c.sigs = append(c.sigs, sig)
	c.mu.Unlock()
}

func (c *collector) keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	keys := make([]string, 0, len(c.sigs))
	for _, s := range c.sigs {
		keys = append(keys, s.Key)
	}
	return keys
}

func TestHubRelaysBetweenPeers(t *testing.T) {
	hub, url := startHub(t)
	a := dial(t, url)
	b := dial(t, url)
	require.Eventually(t, func() bool { return hub.Peers() == 2 }, 2*time.Second, 10*time.Millisecond)

	var fromA, fromB, local collector
	a.Subscribe(fromA.add)
	b.Subscribe(fromB.add)
	hub.Subscribe(local.add)

	a.Publish(store.Signal{Origin: "a", Area: "origin", Key: "projects", NewValue: []byte(`[]`)})

	assert.Eventually(t, func() bool { return len(fromB.keys()) == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Eventually(t, func() bool { return len(local.keys()) == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Never(t, func() bool { return len(fromA.keys()) > 0 }, 200*time.Millisecond, 20*time.Millisecond,
		"a peer never hears its own signal back")
}

func TestHubPublishReachesEveryPeer(t *testing.T) {
	hub, url := startHub(t)
	a := dial(t, url)
	b := dial(t, url)
	require.Eventually(t, func() bool { return hub.Peers() == 2 }, 2*time.Second, 10*time.Millisecond)

	var gotA, gotB collector
	a.Subscribe(gotA.add)
	b.Subscribe(gotB.add)

	hub.Publish(store.Signal{Origin: "server", Area: "origin", Key: "skills", NewValue: []byte(`[]`)})

	assert.Eventually(t, func() bool {
		return len(gotA.keys()) == 1 && len(gotB.keys()) == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestHubRedactsPrivateKeys(t *testing.T) {
	hub, url := startHub(t)
	hub.Redact("contact-messages")
	peer := dial(t, url)
	require.Eventually(t, func() bool { return hub.Peers() == 1 }, 2*time.Second, 10*time.Millisecond)

	var got collector
	peer.Subscribe(got.add)

	hub.Publish(store.Signal{Origin: "srv", Area: "a", Key: "contact-messages", NewValue: []byte(`[{"email":"ann@example.com"}]`)})
	hub.Publish(store.Signal{Origin: "srv", Area: "a", Key: "projects", NewValue: []byte(`[]`)})

	require.Eventually(t, func() bool { return len(got.keys()) == 2 }, 2*time.Second, 10*time.Millisecond)
	got.mu.Lock()
	defer got.mu.Unlock()
	assert.Empty(t, got.sigs[0].NewValue)
	assert.Equal(t, "srv", got.sigs[0].Origin)
	assert.JSONEq(t, `[]`, string(got.sigs[1].NewValue))
}

func TestHubIgnoresMalformedFrames(t *testing.T) {
	hub, url := startHub(t)
	var local collector
	hub.Subscribe(local.add)

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"area":"origin"}`)))
	require.NoError(t, conn.WriteJSON(store.Signal{Origin: "x", Area: "origin", Key: "skills"}))

	assert.Eventually(t, func() bool {
		keys := local.keys()
		return len(keys) == 1 && keys[0] == "skills"
	}, 2*time.Second, 10*time.Millisecond)
}

func TestHubDropsFramesFromBrowsers(t *testing.T) {
	hub, url := startHub(t)
	var local collector
	hub.Subscribe(local.add)

	origin := http.Header{"Origin": {"http://" + strings.TrimPrefix(url, "ws://")}}
	sender, _, err := websocket.DefaultDialer.Dial(url, origin)
	require.NoError(t, err)
	defer sender.Close()
	viewer, _, err := websocket.DefaultDialer.Dial(url, origin)
	require.NoError(t, err)
	defer viewer.Close()
	process := dial(t, url)
	var fromHub collector
	process.Subscribe(fromHub.add)
	require.Eventually(t, func() bool { return hub.Peers() == 3 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, sender.WriteMessage(websocket.TextMessage, []byte(`{"key":"projects","newValue":[{"title":"forged"}]}`)))
	process.Publish(store.Signal{Origin: "worker", Area: "a", Key: "skills"})

	require.NoError(t, viewer.SetReadDeadline(time.Now().Add(2*time.Second)))
	var sig store.Signal
	require.NoError(t, viewer.ReadJSON(&sig))
	assert.Equal(t, "skills", sig.Key)

	require.NoError(t, viewer.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	_, _, err = viewer.ReadMessage()
	assert.Error(t, err, "the browser frame is never relayed")
	assert.Eventually(t, func() bool {
		keys := local.keys()
		return len(keys) == 1 && keys[0] == "skills"
	}, 2*time.Second, 10*time.Millisecond)
	assert.Never(t, func() bool { return len(fromHub.keys()) > 0 }, 200*time.Millisecond, 20*time.Millisecond)
}

func TestStoresAcrossProcesses(t *testing.T) {
	hub, url := startHub(t)
	backend := store.NewMemoryBackend("sqlite:/srv/folio.db")

	server := store.New(backend, store.WithBus(hub), store.WithLogger(quietLogger()))
	defer server.Close()
	client := dial(t, url)
	peer := store.New(backend, store.WithBus(client), store.WithLogger(quietLogger()))
	defer peer.Close()
	require.Eventually(t, func() bool { return hub.Peers() == 1 }, 2*time.Second, 10*time.Millisecond)

	changed := make(chan string, 4)
	b := store.Bind(peer, "headline", "hello", func(v string) { changed <- v })
	defer b.Close()
	store.Get(server, "headline", "hello")
	serverChanged := make(chan string, 4)
	server.Subscribe("headline", func() { serverChanged <- store.Get(server, "headline", "") })

	store.Put(server, "headline", "from server")
	select {
	case v := <-changed:
		assert.Equal(t, "from server", v)
	case <-time.After(2 * time.Second):
		t.Fatal("peer never saw the server's write")
	}

	<-serverChanged
	b.Set("from peer")
	select {
	case v := <-serverChanged:
		assert.Equal(t, "from peer", v)
	case <-time.After(2 * time.Second):
		t.Fatal("server never saw the peer's write")
	}
}

func TestClientDialFailure(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, err := Dial(ctx, "ws://127.0.0.1:1/ws", quietLogger())
	assert.Error(t, err)
}

func TestClientDoneAfterHubCloses(t *testing.T) {
	hub, url := startHub(t)
	c := dial(t, url)
	require.Eventually(t, func() bool { return hub.Peers() == 1 }, 2*time.Second, 10*time.Millisecond)

	hub.Close()

	select {
	case <-c.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("client did not notice the hub going away")
	}
}
