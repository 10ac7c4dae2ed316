// Package store is the shared persistent key-value store behind all site
// content.
//
// A Store caches values in memory, writes them through to a durable Backend,
// notifies local subscribers synchronously on every change and announces the
// change on a Bus so that other instances sharing the same durable area can
// refresh their caches. Cross-instance propagation is best effort and
// last-write-wins.
//
// Values are treated as immutable snapshots: callers replace whole values and
// never mutate a value they got from the store.
package store

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"reflect"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// Option configures a Store.
type Option func(*Store)

// WithBus attaches the store to a change bus.
func WithBus(bus Bus) Option {
	return func(s *Store) {
		s.bus = bus
	}
}

// WithLogger sets the logger used for recovered failures.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// WithMetrics records store activity in m.
func WithMetrics(m *Metrics) Option {
	return func(s *Store) {
		s.metrics = m
	}
}

// Store is safe for concurrent use.
type Store struct {
	id      string
	backend Backend
	bus     Bus
	logger  *slog.Logger
	metrics *Metrics

	mu       sync.Mutex
	cache    map[string]any
	defaults map[string]any
	types    map[string]reflect.Type
	subs     map[string]map[uint64]func()
	nextSub  uint64

	detach    func()
	closeOnce sync.Once
}

// New creates a store over backend.
func New(backend Backend, opts ...Option) *Store {
	s := &Store{
		id:       uuid.NewString(),
		backend:  backend,
		cache:    make(map[string]any),
		defaults: make(map[string]any),
		types:    make(map[string]reflect.Type),
		subs:     make(map[string]map[uint64]func()),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.logger = s.logger.With("component", "store", "area", backend.Area())
	if s.bus != nil {
		s.detach = s.bus.Subscribe(s.HandleSignal)
	}
	return s
}

// ID identifies this instance as the origin of the signals it publishes.
func (s *Store) ID() string { return s.id }

// Area returns the durable area the store writes to.
func (s *Store) Area() string { return s.backend.Area() }

// GetSnapshot returns the value for key. The first read of a key loads the
// durable record, decoding it into the Go type of def; when the record is
// missing or unreadable def is cached and returned instead. Reads never
// notify subscribers.
func (s *Store) GetSnapshot(key string, def any) any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked(key, def)
}

// Set replaces the value for key, persists it, runs every local subscriber of
// key and then announces the change on the bus. A failed durable write is
// logged and the in-memory value is kept.
func (s *Store) Set(key string, value any) {
	sig, callbacks := func() (*Signal, []func()) {
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.writeLocked(key, value)
	}()
	s.deliver(callbacks)
	s.publish(sig)
}

// Update replaces the value for key with fn(prev), where prev is the current
// snapshot (or def when nothing is known yet). No other write to this store
// interleaves between reading prev and storing the result. fn must not call
// back into the store.
func (s *Store) Update(key string, def any, fn func(prev any) any) {
	sig, callbacks := func() (*Signal, []func()) {
		s.mu.Lock()
		defer s.mu.Unlock()
		prev := s.snapshotLocked(key, def)
		return s.writeLocked(key, fn(prev))
	}()
	s.deliver(callbacks)
	s.publish(sig)
}

// UpdateIf is Update with a veto. When fn reports false nothing is stored,
// persisted, notified or announced, and UpdateIf returns false.
func (s *Store) UpdateIf(key string, def any, fn func(prev any) (any, bool)) bool {
	var (
		sig       *Signal
		callbacks []func()
		ok        bool
	)
	func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		var next any
		if next, ok = fn(s.snapshotLocked(key, def)); ok {
			sig, callbacks = s.writeLocked(key, next)
		}
	}()
	if !ok {
		return false
	}
	s.deliver(callbacks)
	s.publish(sig)
	return true
}

// Subscribe registers fn to run after every accepted change to key. The
// returned function removes fn; calling it more than once is harmless.
func (s *Store) Subscribe(key string, fn func()) (unsubscribe func()) {
	s.mu.Lock()
	s.nextSub++
	id := s.nextSub
	set, ok := s.subs[key]
	if !ok {
		set = make(map[uint64]func())
		s.subs[key] = set
	}
	set[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		set, ok := s.subs[key]
		if !ok {
			return
		}
		delete(set, id)
		if len(set) == 0 {
			delete(s.subs, key)
		}
	}
}

// HandleSignal applies a change announced by another instance. Signals from
// this instance, from another durable area or for keys this instance has
// neither read nor subscribed to are ignored. Accepted signals refresh the
// cache from the durable record and notify local subscribers; they are not
// re-published.
func (s *Store) HandleSignal(sig Signal) {
	if sig.Origin == s.id || sig.Area != s.backend.Area() {
		s.metrics.signal("ignored")
		return
	}

	s.mu.Lock()
	_, cached := s.cache[sig.Key]
	_, watched := s.subs[sig.Key]
	if !cached && !watched {
		s.mu.Unlock()
		s.metrics.signal("ignored")
		return
	}

	// The durable record is authoritative: a signal overtaken by a later
	// write must not roll the cache back.
	raw := sig.NewValue
	if current, ok, err := s.backend.Load(sig.Key); err == nil {
		raw = nil
		if ok {
			raw = current
		}
	}

	if len(raw) == 0 {
		s.resetLocked(sig.Key)
	} else if v, err := s.decodeLocked(sig.Key, raw); err != nil {
		s.metrics.decodeFailure()
		s.logger.Warn("discarding undecodable signal value", "key", sig.Key, "origin", sig.Origin, "error", err)
		s.resetLocked(sig.Key)
	} else {
		s.cache[sig.Key] = v
	}
	callbacks := s.callbacksLocked(sig.Key)
	s.mu.Unlock()

	s.metrics.signal("accepted")
	s.deliver(callbacks)
}

// Keys lists the keys this instance currently manages.
func (s *Store) Keys() []string {
	s.mu.Lock()
	seen := make(map[string]struct{}, len(s.cache)+len(s.subs))
	for k := range s.cache {
		seen[k] = struct{}{}
	}
	for k := range s.subs {
		seen[k] = struct{}{}
	}
	s.mu.Unlock()

	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Close detaches the store from its bus.
func (s *Store) Close() {
	s.closeOnce.Do(func() {
		if s.detach != nil {
			s.detach()
		}
	})
}

func (s *Store) snapshotLocked(key string, def any) any {
	if v, ok := s.cache[key]; ok {
		s.metrics.read("hit")
		return v
	}

	if _, ok := s.defaults[key]; !ok {
		s.defaults[key] = def
	}
	if _, ok := s.types[key]; !ok && def != nil {
		s.types[key] = reflect.TypeOf(def)
	}

	v := def
	result := "default"
	raw, ok, err := s.backend.Load(key)
	switch {
	case err != nil:
		s.logger.Warn("load failed, using default", "key", key, "error", err)
	case ok:
		decoded, err := s.decodeLocked(key, raw)
		if err != nil {
			s.metrics.decodeFailure()
			s.logger.Warn("stored value is corrupt, using default", "key", key, "error", err)
			break
		}
		v = decoded
		result = "loaded"
	}
	s.metrics.read(result)
	s.cache[key] = v
	return v
}

func (s *Store) writeLocked(key string, value any) (*Signal, []func()) {
	s.metrics.write()
	if _, ok := s.types[key]; !ok && value != nil {
		s.types[key] = reflect.TypeOf(value)
	}
	s.cache[key] = value

	var sig *Signal
	old, _, err := s.backend.Load(key)
	if err != nil {
		old = nil
	}
	raw, err := json.Marshal(value)
	switch {
	case err != nil:
		s.metrics.persistFailure()
		s.logger.Warn("value not serializable, kept in memory only", "key", key, "error", err)
	default:
		if err := s.backend.Save(key, raw); err != nil {
			s.metrics.persistFailure()
			s.logger.Warn("persist failed, kept in memory only", "key", key, "error", err)
			break
		}
		sig = &Signal{
			Origin:   s.id,
			Area:     s.backend.Area(),
			Key:      key,
			NewValue: raw,
			OldValue: old,
		}
	}
	return sig, s.callbacksLocked(key)
}

// resetLocked falls back to the remembered default, or forgets the key when
// no default was ever supplied so the next read brings its own.
func (s *Store) resetLocked(key string) {
	if def, ok := s.defaults[key]; ok {
		s.cache[key] = def
		return
	}
	delete(s.cache, key)
}

func (s *Store) decodeLocked(key string, raw []byte) (any, error) {
	t, ok := s.types[key]
	if !ok {
		var v any
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, fmt.Errorf("decode %q: %w", key, err)
		}
		return v, nil
	}
	ptr := reflect.New(t)
	if err := json.Unmarshal(raw, ptr.Interface()); err != nil {
		return nil, fmt.Errorf("decode %q as %s: %w", key, t, err)
	}
	return ptr.Elem().Interface(), nil
}

func (s *Store) callbacksLocked(key string) []func() {
	set := s.subs[key]
	callbacks := make([]func(), 0, len(set))
	for _, fn := range set {
		callbacks = append(callbacks, fn)
	}
	return callbacks
}

func (s *Store) deliver(callbacks []func()) {
	for _, fn := range callbacks {
		fn()
	}
	s.metrics.notified(len(callbacks))
}

func (s *Store) publish(sig *Signal) {
	if sig == nil || s.bus == nil {
		return
	}
	s.bus.Publish(*sig)
}
