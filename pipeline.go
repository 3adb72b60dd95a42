package handoff

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Pipeline runs producers and consumers over a shared source, buffer and sink.
type Pipeline[Item any] struct {
	cfg     *Config
	metrics *metrics
	started *atomic.Bool

	buffer    *Buffer[Item]
	producers []*Producer[Item]
	consumers []*Consumer[Item]
}

// Report summarizes a finished run.
type Report struct {
	// RunID identifies the run in logs.
	RunID string
	// Produced is the number of items put into the buffer.
	Produced int
	// Consumed is the number of items stored into the sink.
	Consumed int
	// Duration is the wall time of the run.
	Duration time.Duration
}

// New creates a pipeline moving items from source to sink.
//
// Default configuration:
//   - Capacity: 1
//   - Producers: 1
//   - Consumers: 1
//   - Timeout: none
//   - Shutdown: [ShutdownCountdown]
//   - Pacers: none
//   - Logger: no-op
//   - Prometheus: not registered
//
// Returns [ErrSentinelMismatch] if [ShutdownSentinel] is used with a different number of
// producers and consumers.
func New[Item any](
	source Source[Item],
	sink Sink[Item],
	configFuncs ...func(c *Config),
) (*Pipeline[Item], error) {
	if source == nil {
		panic("source can't be nil")
	}
	if sink == nil {
		panic("sink can't be nil")
	}

	cfg := newConfig(configFuncs...)
	if cfg.shutdown == ShutdownSentinel && cfg.producers != cfg.consumers {
		return nil, fmt.Errorf(
			"%w: %d producers, %d consumers",
			ErrSentinelMismatch, cfg.producers, cfg.consumers,
		)
	}

	buffer, err := NewBuffer[Item](cfg.capacity, func(c *BufferConfig) {
		c.Prometheus(cfg.prometheus)
		if cfg.shutdown == ShutdownCountdown {
			c.Producers(cfg.producers)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("create buffer: %w", err)
	}

	pipeline := Pipeline[Item]{
		cfg:       cfg,
		metrics:   cfg.prometheus.metrics(),
		started:   new(atomic.Bool),
		buffer:    buffer,
		producers: make([]*Producer[Item], cfg.producers),
		consumers: make([]*Consumer[Item], cfg.consumers),
	}

	for i := range pipeline.producers {
		pipeline.producers[i] = NewProducer(source, buffer, func(c *WorkerConfig) {
			c.Name(fmt.Sprintf("%s-%d", roleProducer, i))
			c.Pacer(cfg.producerPacer)
			c.Logger(cfg.logger)
			c.Prometheus(cfg.prometheus)
		})
	}
	for i := range pipeline.consumers {
		pipeline.consumers[i] = NewConsumer(buffer, sink, func(c *WorkerConfig) {
			c.Name(fmt.Sprintf("%s-%d", roleConsumer, i))
			c.Pacer(cfg.consumerPacer)
			c.Logger(cfg.logger)
			c.Prometheus(cfg.prometheus)
		})
	}

	return &pipeline, nil
}

// Run starts all workers and waits until they return.
//
// The first worker fault cancels the other workers and is returned. If the configured
// timeout fires first, the workers are cancelled and a [*DeadlockError] is returned without
// waiting for them. A pipeline can be run only once; next calls return [ErrClosed].
func (p *Pipeline[Item]) Run(ctx context.Context) (*Report, error) {
	if p.started.Swap(true) {
		return nil, ErrClosed
	}

	var (
		report = Report{RunID: uuid.NewString()}
		log    = p.cfg.logger.With(zap.String("run_id", report.RunID))
		start  = time.Now()
	)
	log.Info("pipeline started",
		zap.Int("producers", len(p.producers)),
		zap.Int("consumers", len(p.consumers)),
		zap.Int("capacity", p.buffer.Cap()),
		zap.Stringer("shutdown", p.cfg.shutdown),
	)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	group, groupCtx := errgroup.WithContext(ctx)
	for _, producer := range p.producers {
		group.Go(func() error {
			return producer.Run(groupCtx)
		})
	}
	for _, consumer := range p.consumers {
		group.Go(func() error {
			return consumer.Run(groupCtx)
		})
	}

	done := make(chan error, 1)
	go func() {
		done <- group.Wait()
	}()

	select {
	case err := <-done:
		p.fill(&report, start)
		p.metrics.runDuration.Observe(report.Duration.Seconds())
		if err != nil {
			log.Error("pipeline failed", zap.Error(err))
			return &report, fmt.Errorf("run workers: %w", err)
		}
		log.Info("pipeline finished",
			zap.Int("produced", report.Produced),
			zap.Int("consumed", report.Consumed),
			zap.Duration("duration", report.Duration),
		)
		return &report, nil

	case <-timer(p.cfg.timeout):
		err := &DeadlockError{
			Timeout:  p.cfg.timeout,
			Alive:    p.alive(),
			Buffered: p.buffer.Len(),
		}
		cancel()
		p.fill(&report, start)
		p.metrics.deadlocks.Inc()
		log.Error("pipeline deadlocked", zap.Error(err))
		return &report, err
	}
}

// Buffered returns the number of messages currently in the buffer.
func (p *Pipeline[Item]) Buffered() int {
	return p.buffer.Len()
}

// Workers returns the status of every worker, producers first.
func (p *Pipeline[Item]) Workers() []WorkerStatus {
	statuses := make([]WorkerStatus, 0, len(p.producers)+len(p.consumers))
	for _, producer := range p.producers {
		statuses = append(statuses, WorkerStatus{Name: producer.Name(), State: producer.State()})
	}
	for _, consumer := range p.consumers {
		statuses = append(statuses, WorkerStatus{Name: consumer.Name(), State: consumer.State()})
	}
	return statuses
}

func (p *Pipeline[Item]) alive() []WorkerStatus {
	alive := make([]WorkerStatus, 0)
	for _, status := range p.Workers() {
		if status.State != StateDone {
			alive = append(alive, status)
		}
	}
	return alive
}

func (p *Pipeline[Item]) fill(report *Report, start time.Time) {
	for _, producer := range p.producers {
		report.Produced += producer.Items()
	}
	for _, consumer := range p.consumers {
		report.Consumed += consumer.Items()
	}
	report.Duration = time.Since(start)
}

func timer(d time.Duration) <-chan time.Time {
	if d <= 0 {
		return make(<-chan time.Time)
	}
	return time.After(d)
}
