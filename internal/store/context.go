package store

import (
	"context"
	"errors"
)

// ErrNoStore reports that a context carries no store. It indicates a
// wiring mistake at the call site.
var ErrNoStore = errors.New("store: no store in context")

type contextKey struct{}

// WithStore returns a copy of ctx carrying s.
func WithStore(ctx context.Context, s *Store) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

// From returns the store carried by ctx.
func From(ctx context.Context) (*Store, error) {
	s, ok := ctx.Value(contextKey{}).(*Store)
	if !ok || s == nil {
		return nil, ErrNoStore
	}
	return s, nil
}

// MustFrom is like From but panics with ErrNoStore.
func MustFrom(ctx context.Context) *Store {
	s, err := From(ctx)
	if err != nil {
		panic(err)
	}
	return s
}
