package handoff

import (
	"time"

	"go.uber.org/zap"

	"github.com/teenjuna/handoff/pacing"
)

// Shutdown selects how consumers learn that producers are done.
type Shutdown int

const (
	// ShutdownCountdown closes the buffer after every producer has put its stop sentinel.
	// Every consumer stops after the buffer is drained, whatever the number of producers and
	// consumers is.
	ShutdownCountdown Shutdown = iota
	// ShutdownSentinel enqueues each producer's stop sentinel like an item. Each consumer
	// stops on the first sentinel it gets, so it requires producers == consumers.
	ShutdownSentinel
)

func (s Shutdown) String() string {
	switch s {
	case ShutdownCountdown:
		return "countdown"
	case ShutdownSentinel:
		return "sentinel"
	default:
		return "unknown"
	}
}

// Config is a config of the [Pipeline].
type Config struct {
	capacity      int
	producers     int
	consumers     int
	timeout       time.Duration
	shutdown      Shutdown
	producerPacer pacing.Pacer
	consumerPacer pacing.Pacer
	logger        *zap.Logger
	prometheus    *PrometheusConfig
}

// Capacity sets the capacity of the buffer.
func (c *Config) Capacity(capacity int) {
	if capacity < 1 {
		panic("capacity can't be < 1")
	}
	c.capacity = capacity
}

// Producers sets the number of producers.
func (c *Config) Producers(producers int) {
	if producers < 1 {
		panic("producers can't be < 1")
	}
	c.producers = producers
}

// Consumers sets the number of consumers.
func (c *Config) Consumers(consumers int) {
	if consumers < 1 {
		panic("consumers can't be < 1")
	}
	c.consumers = consumers
}

// Timeout bounds the time a run may take. Workers still alive after the timeout are
// reported as a [DeadlockError]. Zero means no timeout.
func (c *Config) Timeout(timeout time.Duration) {
	if timeout < 0 {
		panic("timeout can't be < 0")
	}
	c.timeout = timeout
}

// Shutdown sets the shutdown mode.
func (c *Config) Shutdown(shutdown Shutdown) {
	if shutdown != ShutdownCountdown && shutdown != ShutdownSentinel {
		panic("unknown shutdown mode")
	}
	c.shutdown = shutdown
}

// ProducerPacer sets the delay made by producers after every item.
func (c *Config) ProducerPacer(pacer pacing.Pacer) {
	if pacer == nil {
		panic("pacer can't be nil")
	}
	c.producerPacer = pacer
}

// ConsumerPacer sets the delay made by consumers after every item.
func (c *Config) ConsumerPacer(pacer pacing.Pacer) {
	if pacer == nil {
		panic("pacer can't be nil")
	}
	c.consumerPacer = pacer
}

// Logger sets the logger of the pipeline and its workers.
func (c *Config) Logger(logger *zap.Logger) {
	if logger == nil {
		panic("logger can't be nil")
	}
	c.logger = logger
}

// Prometheus sets the metrics config. See [Prometheus].
func (c *Config) Prometheus(p *PrometheusConfig) {
	if p == nil {
		panic("prometheus can't be nil")
	}
	c.prometheus = p
}

func newConfig(configFuncs ...func(c *Config)) *Config {
	cfg := Config{}
	cfg.Capacity(1)
	cfg.Producers(1)
	cfg.Consumers(1)
	cfg.Shutdown(ShutdownCountdown)
	cfg.ProducerPacer(pacing.None())
	cfg.ConsumerPacer(pacing.None())
	cfg.Logger(zap.NewNop())
	cfg.Prometheus(Prometheus(nil))
	for _, cf := range configFuncs {
		if cf != nil {
			cf(&cfg)
		}
	}
	return &cfg
}
