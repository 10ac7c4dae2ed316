// Package wsbus carries store signals between processes over websockets.
//
// A Hub runs inside the serving process and relays every signal it receives
// from one peer to all other peers. Peers are either other folio processes
// (using Client) or browser tabs that refresh the parts of a page bound to a
// changed key. Browser tabs only listen: frames from a connection that sent
// an Origin header are discarded.
package wsbus

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Zachkp/folio/internal/store"
)

const writeWait = 10 * time.Second

// peer wraps a connection; gorilla allows one concurrent writer per conn.
type peer struct {
	conn *websocket.Conn
	mu   sync.Mutex

	// listenOnly peers are browsers; what they send is dropped.
	listenOnly bool
}

func (p *peer) send(sig store.Signal) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	_ = p.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return p.conn.WriteJSON(sig)
}

// Hub implements store.Bus for the serving process.
type Hub struct {
	upgrader websocket.Upgrader
	logger   *slog.Logger

	mu      sync.RWMutex
	peers   map[*peer]struct{}
	subs    map[uint64]func(store.Signal)
	nextID  uint64
	private map[string]bool
}

// NewHub creates a hub. checkOrigin may be nil to accept same-host origins only.
func NewHub(logger *slog.Logger, checkOrigin func(*http.Request) bool) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin,
		},
		logger: logger.With("component", "wsbus"),
		peers:   make(map[*peer]struct{}),
		subs:    make(map[uint64]func(store.Signal)),
		private: make(map[string]bool),
	}
}

// Redact strips the values from signals for keys before they reach any
// peer. Receiving stores re-read the durable record, so peers still
// converge; browsers only learn that the key changed.
func (h *Hub) Redact(keys ...string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, k := range keys {
		h.private[k] = true
	}
}

// Publish sends sig to every connected peer.
func (h *Hub) Publish(sig store.Signal) {
	h.relay(nil, sig)
}

// Subscribe registers fn for signals received from peers.
func (h *Hub) Subscribe(fn func(store.Signal)) func() {
	h.mu.Lock()
	h.nextID++
	id := h.nextID
	h.subs[id] = fn
	h.mu.Unlock()

	return func() {
		h.mu.Lock()
		delete(h.subs, id)
		h.mu.Unlock()
	}
}

// Peers returns the number of connected peers.
func (h *Hub) Peers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.peers)
}

// ServeHTTP upgrades the request and serves the peer until it disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("websocket upgrade failed", "error", err)
		return
	}

	p := &peer{conn: conn, listenOnly: r.Header.Get("Origin") != ""}
	h.mu.Lock()
	h.peers[p] = struct{}{}
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.peers, p)
		h.mu.Unlock()
		_ = conn.Close()
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseNormalClosure) {
				h.logger.Debug("peer disconnected", "error", err)
			}
			return
		}
		if p.listenOnly {
			h.logger.Debug("dropping frame from browser peer", "remote", r.RemoteAddr)
			continue
		}

		var sig store.Signal
		if err := json.Unmarshal(data, &sig); err != nil || sig.Key == "" {
			h.logger.Debug("ignoring malformed frame", "error", err)
			continue
		}

		h.relay(p, sig)

		h.mu.RLock()
		fns := make([]func(store.Signal), 0, len(h.subs))
		for _, fn := range h.subs {
			fns = append(fns, fn)
		}
		h.mu.RUnlock()
		for _, fn := range fns {
			fn(sig)
		}
	}
}

// Close disconnects every peer.
func (h *Hub) Close() {
	h.mu.Lock()
	peers := h.peers
	h.peers = make(map[*peer]struct{})
	h.mu.Unlock()

	for p := range peers {
		p.mu.Lock()
		_ = p.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, ""),
			time.Now().Add(writeWait))
		p.mu.Unlock()
		_ = p.conn.Close()
	}
}

func (h *Hub) relay(from *peer, sig store.Signal) {
	h.mu.RLock()
	targets := make([]*peer, 0, len(h.peers))
	for p := range h.peers {
		if p != from {
			targets = append(targets, p)
		}
	}
	if h.private[sig.Key] {
		sig.NewValue, sig.OldValue = nil, nil
	}
	h.mu.RUnlock()

	for _, p := range targets {
		if err := p.send(sig); err != nil {
			h.logger.Debug("dropping signal for peer", "key", sig.Key, "error", err)
		}
	}
}
