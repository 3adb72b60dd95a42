package handoff

import "context"

// Source supplies items to producers.
//
// Next returns [ErrExhausted] when there are no more items, and keeps returning it on every
// following call. Any other error is treated as a fault of the producer that called it.
// Implementations must be safe for concurrent use if shared by several producers.
type Source[Item any] interface {
	Next(ctx context.Context) (Item, error)
}

// Sink receives items from consumers.
//
// Implementations must be safe for concurrent use if shared by several consumers.
type Sink[Item any] interface {
	Store(ctx context.Context, item Item) error
}
