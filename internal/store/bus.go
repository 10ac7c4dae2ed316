package store

import (
	"encoding/json"
	"sync"
)

// Signal announces that a key changed in a durable area. NewValue and
// OldValue hold JSON text; an empty NewValue means the record was removed and
// an empty OldValue means there was none.
type Signal struct {
	Origin   string          `json:"origin"`
	Area     string          `json:"area"`
	Key      string          `json:"key"`
	NewValue json.RawMessage `json:"newValue,omitempty"`
	OldValue json.RawMessage `json:"oldValue,omitempty"`
}

// Bus carries signals between store instances that share a durable area.
// Delivery is best effort and may be asynchronous.
type Bus interface {
	Publish(sig Signal)
	Subscribe(fn func(Signal)) (unsubscribe func())
}

// MemoryBus connects stores living in the same process. Publish delivers
// synchronously to every subscriber, the publisher included; stores drop
// their own signals.
type MemoryBus struct {
	mu     sync.RWMutex
	nextID uint64
	subs   map[uint64]func(Signal)
}

func NewMemoryBus() *MemoryBus {
	return &MemoryBus{subs: make(map[uint64]func(Signal))}
}

func (b *MemoryBus) Publish(sig Signal) {
	b.mu.RLock()
	fns := make([]func(Signal), 0, len(b.subs))
	for _, fn := range b.subs {
		fns = append(fns, fn)
	}
	b.mu.RUnlock()

	for _, fn := range fns {
		fn(sig)
	}
}

func (b *MemoryBus) Subscribe(fn func(Signal)) func() {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subs[id] = fn
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
	}
}

// Held returns a bus that queues published signals until Flush is called.
// Tests use it to control when the other instance learns about a change.
func Held() *HeldBus {
	return &HeldBus{inner: NewMemoryBus()}
}

// HeldBus is a MemoryBus with manual delivery.
type HeldBus struct {
	inner   *MemoryBus
	mu      sync.Mutex
	pending []Signal
}

func (b *HeldBus) Publish(sig Signal) {
	b.mu.Lock()
	b.pending = append(b.pending, sig)
	b.mu.Unlock()
}

func (b *HeldBus) Subscribe(fn func(Signal)) func() {
	return b.inner.Subscribe(fn)
}

// Pending returns the queued signals without delivering them.
func (b *HeldBus) Pending() []Signal {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Signal(nil), b.pending...)
}

// Flush delivers queued signals in publish order and returns how many were sent.
func (b *HeldBus) Flush() int {
	b.mu.Lock()
	pending := b.pending
	b.pending = nil
	b.mu.Unlock()

	for _, sig := range pending {
		b.inner.Publish(sig)
	}
	return len(pending)
}
