package handoff

import (
	"go.uber.org/zap"

	"github.com/teenjuna/handoff/pacing"
)

// WorkerConfig is a config of a [Producer] or a [Consumer].
type WorkerConfig struct {
	name       string
	pacer      pacing.Pacer
	logger     *zap.Logger
	prometheus *PrometheusConfig
	metrics    *metrics
}

// Name sets the worker name used in logs and diagnostics.
func (c *WorkerConfig) Name(name string) {
	if name == "" {
		panic("name can't be blank")
	}
	c.name = name
}

// Pacer sets the delay made after every item.
func (c *WorkerConfig) Pacer(pacer pacing.Pacer) {
	if pacer == nil {
		panic("pacer can't be nil")
	}
	c.pacer = pacer
}

// Logger sets the logger of the worker.
func (c *WorkerConfig) Logger(logger *zap.Logger) {
	if logger == nil {
		panic("logger can't be nil")
	}
	c.logger = logger
}

// Prometheus sets the metrics config of the worker.
func (c *WorkerConfig) Prometheus(p *PrometheusConfig) {
	if p == nil {
		panic("prometheus can't be nil")
	}
	c.prometheus = p
}

func newWorkerConfig(role string, configFuncs ...func(c *WorkerConfig)) *WorkerConfig {
	cfg := WorkerConfig{
		name:   role,
		pacer:  pacing.None(),
		logger: zap.NewNop(),
	}
	for _, cf := range configFuncs {
		if cf != nil {
			cf(&cfg)
		}
	}
	if cfg.prometheus == nil {
		cfg.prometheus = Prometheus(nil)
	}
	cfg.metrics = cfg.prometheus.metrics()
	cfg.logger = cfg.logger.With(zap.String("worker", cfg.name))
	return &cfg
}
