package store

import (
	"encoding/json"
	"fmt"
	"sync"
)

// Get is the typed form of GetSnapshot.
func Get[T any](s *Store, key string, def T) T {
	return as(s, key, s.GetSnapshot(key, def), def)
}

// Put is the typed form of Set.
func Put[T any](s *Store, key string, value T) {
	s.Set(key, value)
}

// Modify is the typed form of Update.
func Modify[T any](s *Store, key string, def T, fn func(prev T) T) {
	s.Update(key, def, func(prev any) any {
		return fn(as(s, key, prev, def))
	})
}

// ModifyIf is the typed form of UpdateIf.
func ModifyIf[T any](s *Store, key string, def T, fn func(prev T) (T, bool)) bool {
	return s.UpdateIf(key, def, func(prev any) (any, bool) {
		next, ok := fn(as(s, key, prev, def))
		return next, ok
	})
}

// as converts a cached value to T. Values cached before any typed read
// (for example from a signal) are generic JSON and get re-decoded.
func as[T any](s *Store, key string, v any, def T) T {
	if t, ok := v.(T); ok {
		return t
	}
	if v == nil {
		return def
	}
	raw, err := json.Marshal(v)
	if err == nil {
		var out T
		if err = json.Unmarshal(raw, &out); err == nil {
			return out
		}
	}
	s.logger.Warn("cached value has unexpected type, using default",
		"key", key, "type", fmt.Sprintf("%T", v), "error", err)
	return def
}

// Binding ties a consumer to one key for as long as it lives: reads always
// see the shared cached value, writes go through the store and onChange runs
// after every accepted change, local or remote.
type Binding[T any] struct {
	store *Store
	key   string
	def   T

	unsubscribe func()
	closeOnce   sync.Once
}

// Bind creates a binding on key. onChange may be nil when the consumer only
// needs the key to stay fresh.
func Bind[T any](s *Store, key string, def T, onChange func(T)) *Binding[T] {
	b := &Binding[T]{store: s, key: key, def: def}
	s.GetSnapshot(key, def)
	b.unsubscribe = s.Subscribe(key, func() {
		if onChange != nil {
			onChange(b.Get())
		}
	})
	return b
}

func (b *Binding[T]) Key() string { return b.key }

func (b *Binding[T]) Get() T {
	return Get(b.store, b.key, b.def)
}

func (b *Binding[T]) Set(value T) {
	Put(b.store, b.key, value)
}

func (b *Binding[T]) Update(fn func(prev T) T) {
	Modify(b.store, b.key, b.def, fn)
}

// Close stops change notifications. It is safe to call more than once.
func (b *Binding[T]) Close() {
	b.closeOnce.Do(b.unsubscribe)
}
