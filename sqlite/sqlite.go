// Package sqlite provides a [handoff.Source] and a [handoff.Sink] persisted in a SQLite
// database.
//
// A [Sink] appends encoded items to the tail of a table and a [Source] pops them from its
// head, so a database filled by one pipeline can be drained by another.
package sqlite

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/teenjuna/handoff"
	"github.com/teenjuna/handoff/codec"
	storage "github.com/teenjuna/handoff/internal/sqlite"
)

var (
	// ErrClosed is returned when the store has been closed.
	ErrClosed = storage.ErrClosed

	_ handoff.Source[any] = (*Source[any])(nil)
	_ handoff.Sink[any]   = (*Sink[any])(nil)
)

// Store is an open SQLite database holding items.
type Store struct {
	storage *storage.Storage
}

// Open opens the database described by file. A nil file opens a private in-memory database.
//
// Conns limits the number of connections to a file database.
func Open(file *FileConfig, conns int) (*Store, error) {
	if conns < 1 {
		panic("conns can't be < 1")
	}
	s, err := storage.New(
		storage.WithURI(file.uri()),
		storage.WithConns(conns),
	)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	return &Store{storage: s}, nil
}

// Len returns the number of stored items.
func (s *Store) Len(ctx context.Context) (int, error) {
	return s.storage.Len(ctx)
}

// Close closes the database.
func (s *Store) Close() error {
	return s.storage.Close()
}

// Source pops items from the head of a [Store].
type Source[Item any] struct {
	mu    sync.Mutex
	store *Store
	codec codec.Codec[Item]
	done  bool
}

func NewSource[Item any](store *Store, codec codec.Codec[Item]) *Source[Item] {
	if store == nil {
		panic("store can't be nil")
	}
	if codec == nil {
		panic("codec can't be nil")
	}
	return &Source[Item]{
		store: store,
		codec: codec,
	}
}

// Next pops the oldest item. Once the store has been seen empty, Next returns
// [handoff.ErrExhausted] forever, even if items are appended later.
func (s *Source[Item]) Next(ctx context.Context) (Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var zero Item
	if s.done {
		return zero, handoff.ErrExhausted
	}

	data, err := s.store.storage.Pop(ctx)
	if errors.Is(err, storage.ErrEmpty) {
		s.done = true
		return zero, handoff.ErrExhausted
	} else if err != nil {
		return zero, fmt.Errorf("pop item: %w", err)
	}

	item, err := s.codec.Decode(data)
	if err != nil {
		return zero, fmt.Errorf("decode item: %w", err)
	}

	return item, nil
}

// Sink appends items to the tail of a [Store].
type Sink[Item any] struct {
	mu    sync.Mutex
	store *Store
	codec codec.Codec[Item]
}

func NewSink[Item any](store *Store, codec codec.Codec[Item]) *Sink[Item] {
	if store == nil {
		panic("store can't be nil")
	}
	if codec == nil {
		panic("codec can't be nil")
	}
	return &Sink[Item]{
		store: store,
		codec: codec,
	}
}

func (s *Sink[Item]) Store(ctx context.Context, item Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.codec.Encode(item)
	if err != nil {
		return fmt.Errorf("encode item: %w", err)
	}

	if _, err := s.store.storage.Append(ctx, data); err != nil {
		return fmt.Errorf("append item: %w", err)
	}

	return nil
}
