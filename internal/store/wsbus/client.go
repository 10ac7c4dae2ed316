package wsbus

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Zachkp/folio/internal/store"
)

// Client is a store.Bus connected to a remote Hub.
type Client struct {
	conn   *websocket.Conn
	logger *slog.Logger

	writeMu sync.Mutex

	mu     sync.RWMutex
	subs   map[uint64]func(store.Signal)
	nextID uint64

	done      chan struct{}
	closeOnce sync.Once
}

// Dial connects to the hub at url (ws:// or wss://).
func Dial(ctx context.Context, url string, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial change bus %s: %w", url, err)
	}

	c := &Client{
		conn:   conn,
		logger: logger.With("component", "wsbus", "peer", url),
		subs:   make(map[uint64]func(store.Signal)),
		done:   make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

// Publish sends sig to the hub. Failures are logged; delivery is best effort.
func (c *Client) Publish(sig store.Signal) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteJSON(sig); err != nil {
		c.logger.Warn("publish failed", "key", sig.Key, "error", err)
	}
}

// Subscribe registers fn for signals relayed by the hub. fn runs on the
// client's read goroutine.
func (c *Client) Subscribe(fn func(store.Signal)) func() {
	c.mu.Lock()
	c.nextID++
	id := c.nextID
	c.subs[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.subs, id)
		c.mu.Unlock()
	}
}

// Done is closed once the connection to the hub is gone.
func (c *Client) Done() <-chan struct{} { return c.done }

// Close sends a close frame and releases the connection.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.writeMu.Lock()
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(writeWait))
		c.writeMu.Unlock()
		err = c.conn.Close()
	})
	return err
}

func (c *Client) readLoop() {
	defer close(c.done)
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.logger.Warn("change bus connection lost", "error", err)
			}
			return
		}
		var sig store.Signal
		if err := json.Unmarshal(data, &sig); err != nil || sig.Key == "" {
			continue
		}

		c.mu.RLock()
		fns := make([]func(store.Signal), 0, len(c.subs))
		for _, fn := range c.subs {
			fns = append(fns, fn)
		}
		c.mu.RUnlock()
		for _, fn := range fns {
			fn(sig)
		}
	}
}
