// Package sink contains in-memory implementations of [handoff.Sink].
//
// Every sink guards its own state with a mutex, so a single instance can be shared by any
// number of consumers.
package sink

import (
	"context"
	"slices"
	"sync"

	"github.com/teenjuna/handoff"
)

var (
	_ handoff.Sink[any] = (*SliceSink[any])(nil)
	_ handoff.Sink[any] = (*FuncSink[any])(nil)
)

// SliceSink appends items to a slice.
type SliceSink[Item any] struct {
	mu    sync.Mutex
	items []Item
}

func Slice[Item any]() *SliceSink[Item] {
	return &SliceSink[Item]{
		items: make([]Item, 0),
	}
}

func (s *SliceSink[Item]) Store(_ context.Context, item Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, item)
	return nil
}

// Items returns a copy of the stored items in insertion order.
func (s *SliceSink[Item]) Items() []Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.items)
}

// Len returns the number of stored items.
func (s *SliceSink[Item]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// FuncSink passes items to a function.
type FuncSink[Item any] struct {
	mu sync.Mutex
	fn func(ctx context.Context, item Item) error
}

// Func returns a sink calling fn for every item. Calls are serialized.
func Func[Item any](fn func(ctx context.Context, item Item) error) *FuncSink[Item] {
	if fn == nil {
		panic("func can't be nil")
	}
	return &FuncSink[Item]{fn: fn}
}

func (s *FuncSink[Item]) Store(ctx context.Context, item Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fn(ctx, item)
}
