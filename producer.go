package handoff

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"
)

const roleProducer = "producer"

// Producer moves items from a [Source] into a [Buffer] and puts a stop sentinel when the
// source is exhausted.
type Producer[Item any] struct {
	cfg    *WorkerConfig
	source Source[Item]
	buffer *Buffer[Item]
	state  state
	items  atomic.Int64
}

func NewProducer[Item any](
	source Source[Item],
	buffer *Buffer[Item],
	configFuncs ...func(c *WorkerConfig),
) *Producer[Item] {
	if source == nil {
		panic("source can't be nil")
	}
	if buffer == nil {
		panic("buffer can't be nil")
	}
	return &Producer[Item]{
		cfg:    newWorkerConfig(roleProducer, configFuncs...),
		source: source,
		buffer: buffer,
	}
}

// Run pulls items until the source is exhausted, then puts exactly one stop sentinel.
//
// If the source, the buffer or the pacer fails, Run still tries to put the stop sentinel so
// that consumers aren't left waiting, and then returns the fault. Faults are never retried.
func (p *Producer[Item]) Run(ctx context.Context) (err error) {
	p.state.store(StateRunning)
	defer p.state.store(StateDone)

	log := p.cfg.logger
	defer func() {
		switch {
		case err == nil:
		case ctx.Err() != nil && errors.Is(err, ctx.Err()):
			log.Debug("producer cancelled", zap.Error(err))
		default:
			p.cfg.metrics.workerFaults.WithLabelValues(roleProducer).Inc()
			log.Error("producer failed", zap.Error(err))
		}
	}()

	for {
		item, err := p.source.Next(ctx)
		if errors.Is(err, ErrExhausted) {
			p.state.store(StateStopping)
			log.Debug("source exhausted, sending stop")
			if err := p.buffer.Put(ctx, Stop[Item]()); err != nil && !errors.Is(err, ErrClosed) {
				return fmt.Errorf("put stop: %w", err)
			}
			return nil
		} else if err != nil {
			return p.stop(ctx, fmt.Errorf("next item: %w", err))
		}

		if err := p.buffer.Put(ctx, Value(item)); err != nil {
			return p.stop(ctx, fmt.Errorf("put item: %w", err))
		}
		p.items.Add(1)
		if ce := log.Check(zap.DebugLevel, "put"); ce != nil {
			ce.Write(zap.Any("item", item), zap.Int("buffered", p.buffer.Len()))
		}

		if err := p.cfg.pacer.Pace(ctx); err != nil {
			return p.stop(ctx, fmt.Errorf("pace: %w", err))
		}
	}
}

// State returns the current state of the producer.
func (p *Producer[Item]) State() State {
	return p.state.load()
}

// Items returns the number of items put into the buffer so far.
func (p *Producer[Item]) Items() int {
	return int(p.items.Load())
}

// Name returns the configured name of the producer.
func (p *Producer[Item]) Name() string {
	return p.cfg.name
}

// stop puts the stop sentinel after a fault and returns the fault.
func (p *Producer[Item]) stop(ctx context.Context, cause error) error {
	p.state.store(StateStopping)
	if err := p.buffer.Put(ctx, Stop[Item]()); err != nil && !errors.Is(err, ErrClosed) {
		return errors.Join(cause, fmt.Errorf("put stop: %w", err))
	}
	return cause
}
