// Package source contains in-memory implementations of [handoff.Source].
//
// Every source guards its own state with a mutex, so a single instance can be shared by any
// number of producers.
package source

import (
	"context"
	"errors"
	"iter"
	"sync"

	"github.com/teenjuna/handoff"
)

var (
	_ handoff.Source[any] = (*SliceSource[any])(nil)
	_ handoff.Source[any] = (*SeqSource[any])(nil)
	_ handoff.Source[any] = (*FuncSource[any])(nil)
)

// SliceSource yields items of a slice in order.
type SliceSource[Item any] struct {
	mu    sync.Mutex
	items []Item
}

// Slice returns a source over a copy of items.
func Slice[Item any](items ...Item) *SliceSource[Item] {
	return &SliceSource[Item]{
		items: append([]Item(nil), items...),
	}
}

func (s *SliceSource[Item]) Next(_ context.Context) (Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.items) == 0 {
		var zero Item
		return zero, handoff.ErrExhausted
	}

	item := s.items[0]
	s.items = s.items[1:]

	return item, nil
}

// Len returns the number of items left.
func (s *SliceSource[Item]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// SeqSource yields items of an [iter.Seq].
type SeqSource[Item any] struct {
	mu   sync.Mutex
	next func() (Item, bool)
	stop func()
	done bool
}

// Seq returns a source pulling items from seq. The source must be closed if it's not
// exhausted, otherwise the iterator is leaked.
func Seq[Item any](seq iter.Seq[Item]) *SeqSource[Item] {
	next, stop := iter.Pull(seq)
	return &SeqSource[Item]{
		next: next,
		stop: stop,
	}
}

func (s *SeqSource[Item]) Next(_ context.Context) (Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var zero Item
	if s.done {
		return zero, handoff.ErrExhausted
	}

	item, ok := s.next()
	if !ok {
		s.done = true
		s.stop()
		return zero, handoff.ErrExhausted
	}

	return item, nil
}

// Close releases the underlying iterator. Next returns [handoff.ErrExhausted] afterwards.
func (s *SeqSource[Item]) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.done = true
	s.stop()
	return nil
}

// FuncSource yields items returned by a function.
type FuncSource[Item any] struct {
	mu   sync.Mutex
	fn   func(ctx context.Context) (Item, error)
	done bool
}

// Func returns a source calling fn for every item. Calls are serialized, and once fn returns
// [handoff.ErrExhausted] it's never called again.
func Func[Item any](fn func(ctx context.Context) (Item, error)) *FuncSource[Item] {
	if fn == nil {
		panic("func can't be nil")
	}
	return &FuncSource[Item]{fn: fn}
}

func (s *FuncSource[Item]) Next(ctx context.Context) (Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var zero Item
	if s.done {
		return zero, handoff.ErrExhausted
	}

	item, err := s.fn(ctx)
	if errors.Is(err, handoff.ErrExhausted) {
		s.done = true
		return zero, handoff.ErrExhausted
	} else if err != nil {
		return zero, err
	}

	return item, nil
}
