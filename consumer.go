package handoff

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"
)

const roleConsumer = "consumer"

// Consumer moves items from a [Buffer] into a [Sink] until it receives a stop sentinel.
type Consumer[Item any] struct {
	cfg    *WorkerConfig
	buffer *Buffer[Item]
	sink   Sink[Item]
	state  state
	items  atomic.Int64
}

func NewConsumer[Item any](
	buffer *Buffer[Item],
	sink Sink[Item],
	configFuncs ...func(c *WorkerConfig),
) *Consumer[Item] {
	if buffer == nil {
		panic("buffer can't be nil")
	}
	if sink == nil {
		panic("sink can't be nil")
	}
	return &Consumer[Item]{
		cfg:    newWorkerConfig(roleConsumer, configFuncs...),
		buffer: buffer,
		sink:   sink,
	}
}

// Run stores items until it gets a stop sentinel. The sentinel itself is never stored.
func (c *Consumer[Item]) Run(ctx context.Context) (err error) {
	c.state.store(StateRunning)
	defer c.state.store(StateDone)

	log := c.cfg.logger
	defer func() {
		switch {
		case err == nil:
		case ctx.Err() != nil && errors.Is(err, ctx.Err()):
			log.Debug("consumer cancelled", zap.Error(err))
		default:
			c.cfg.metrics.workerFaults.WithLabelValues(roleConsumer).Inc()
			log.Error("consumer failed", zap.Error(err))
		}
	}()

	for {
		msg, err := c.buffer.Get(ctx)
		if err != nil {
			return fmt.Errorf("get item: %w", err)
		}

		item, ok := msg.Item()
		if !ok {
			log.Debug("stop received")
			return nil
		}

		if err := c.sink.Store(ctx, item); err != nil {
			return fmt.Errorf("store item: %w", err)
		}
		c.items.Add(1)
		if ce := log.Check(zap.DebugLevel, "got"); ce != nil {
			ce.Write(zap.Any("item", item), zap.Int("buffered", c.buffer.Len()))
		}

		if err := c.cfg.pacer.Pace(ctx); err != nil {
			return fmt.Errorf("pace: %w", err)
		}
	}
}

// State returns the current state of the consumer.
func (c *Consumer[Item]) State() State {
	return c.state.load()
}

// Items returns the number of items stored into the sink so far.
func (c *Consumer[Item]) Items() int {
	return int(c.items.Load())
}

// Name returns the configured name of the consumer.
func (c *Consumer[Item]) Name() string {
	return c.cfg.name
}
