package handoff

import (
	"context"
	"sync"
	"time"
)

// Buffer is a bounded FIFO queue of messages shared by producers and consumers.
//
// Put blocks while the buffer is full and Get blocks while it is empty. All state is guarded
// by a single mutex, waiting is done on condition variables, so nothing ever spins.
//
// The buffer supports two ways of shutting down:
//
//   - Sentinel (default): the stop sentinel is enqueued like any item and is returned by Get
//     exactly once. Each consumer stops on the first sentinel it receives, so the number of
//     sentinels must match the number of consumers.
//   - Countdown ([BufferConfig.Producers]): a put sentinel doesn't occupy a slot, it marks one
//     producer as exhausted. After the last one the buffer closes itself and Get returns the
//     sentinel to every caller once the remaining items are drained.
//
// In both modes [Buffer.Close] closes the buffer for writing explicitly.
type Buffer[Item any] struct {
	metrics *metrics

	mu       sync.Mutex
	notFull  *sync.Cond
	notEmpty *sync.Cond
	items    []Message[Item]
	head     int
	size     int
	closed   bool

	countdown bool
	producers int
}

// NewBuffer creates a buffer that holds at most capacity messages.
//
// Returns [ErrInvalidCapacity] if capacity < 1.
func NewBuffer[Item any](capacity int, configFuncs ...func(c *BufferConfig)) (*Buffer[Item], error) {
	if capacity < 1 {
		return nil, ErrInvalidCapacity
	}

	cfg := BufferConfig{}
	for _, cf := range configFuncs {
		if cf != nil {
			cf(&cfg)
		}
	}
	if cfg.prometheus == nil {
		cfg.prometheus = Prometheus(nil)
	}

	b := &Buffer[Item]{
		metrics:   cfg.prometheus.metrics(),
		items:     make([]Message[Item], capacity),
		countdown: cfg.producers > 0,
		producers: cfg.producers,
	}
	b.notFull = sync.NewCond(&b.mu)
	b.notEmpty = sync.NewCond(&b.mu)
	b.metrics.capacity.Set(float64(capacity))

	return b, nil
}

// Put appends msg to the tail of the buffer, blocking while the buffer is full.
//
// Returns [ErrClosed] if the buffer is closed, including while Put is blocked, and the
// context error if ctx is cancelled while blocked.
func (b *Buffer[Item]) Put(ctx context.Context, msg Message[Item]) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrClosed
	}

	if msg.IsStop() && b.countdown {
		b.producers--
		if b.producers == 0 {
			b.closeLocked()
		}
		b.metrics.stopsPut.Inc()
		return nil
	}

	if b.size == len(b.items) {
		stop := context.AfterFunc(ctx, b.wake)
		defer stop()

		started := time.Now()
		for b.size == len(b.items) {
			if b.closed {
				return ErrClosed
			}
			if err := ctx.Err(); err != nil {
				return err
			}
			b.notFull.Wait()
		}
		b.metrics.putWait.Observe(time.Since(started).Seconds())
	}

	b.items[(b.head+b.size)%len(b.items)] = msg
	b.size++
	if msg.IsStop() {
		b.metrics.stopsPut.Inc()
	} else {
		b.metrics.itemsPut.Inc()
	}
	b.metrics.length.Set(float64(b.size))
	b.notEmpty.Broadcast()

	return nil
}

// Get removes and returns the message at the head of the buffer, blocking while the buffer is
// empty.
//
// Once the buffer is closed and drained, Get returns the stop sentinel without blocking.
// Returns the context error if ctx is cancelled while blocked.
func (b *Buffer[Item]) Get(ctx context.Context) (Message[Item], error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.size == 0 {
		stop := context.AfterFunc(ctx, b.wake)
		defer stop()

		started := time.Now()
		for b.size == 0 {
			if b.closed {
				return Stop[Item](), nil
			}
			if err := ctx.Err(); err != nil {
				return Message[Item]{}, err
			}
			b.notEmpty.Wait()
		}
		b.metrics.getWait.Observe(time.Since(started).Seconds())
	}

	msg := b.items[b.head]
	b.items[b.head] = Message[Item]{}
	b.head = (b.head + 1) % len(b.items)
	b.size--
	if !msg.IsStop() {
		b.metrics.itemsGot.Inc()
	}
	b.metrics.length.Set(float64(b.size))
	b.notFull.Broadcast()

	return msg, nil
}

// Close closes the buffer for writing. Blocked and future calls to Put return [ErrClosed],
// Get drains queued messages and then returns the stop sentinel.
//
// Returns [ErrClosed] if the buffer is already closed.
func (b *Buffer[Item]) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrClosed
	}
	b.closeLocked()

	return nil
}

// Len returns the number of queued messages. The value can be stale by the time it's used.
func (b *Buffer[Item]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.size
}

// Cap returns the capacity of the buffer.
func (b *Buffer[Item]) Cap() int {
	return len(b.items)
}

// Snapshot returns a copy of queued messages from head to tail.
func (b *Buffer[Item]) Snapshot() []Message[Item] {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]Message[Item], b.size)
	for i := range out {
		out[i] = b.items[(b.head+i)%len(b.items)]
	}
	return out
}

func (b *Buffer[Item]) closeLocked() {
	b.closed = true
	b.notFull.Broadcast()
	b.notEmpty.Broadcast()
}

// wake is called when a waiter's context is done.
func (b *Buffer[Item]) wake() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.notFull.Broadcast()
	b.notEmpty.Broadcast()
}

// BufferConfig is a config of the [Buffer].
type BufferConfig struct {
	producers  int
	prometheus *PrometheusConfig
}

// Producers switches the buffer into countdown mode: it closes itself after receiving n stop
// sentinels.
func (c *BufferConfig) Producers(n int) {
	if n < 1 {
		panic("producers can't be < 1")
	}
	c.producers = n
}

// Prometheus sets the metrics config of the buffer.
func (c *BufferConfig) Prometheus(p *PrometheusConfig) {
	if p == nil {
		panic("prometheus can't be nil")
	}
	c.prometheus = p
}
