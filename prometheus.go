package handoff

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusConfig is a config of the Prometheus metrics provided by the buffer, workers and
// pipeline.
//
// An instance can be created only by the [Prometheus] function. The zero value is invalid.
//
// Metrics are created and registered on first use, so one config can be shared by a buffer
// and any number of workers. Fields must not be changed after that.
type PrometheusConfig struct {
	// Namespace of the metrics.
	Namespace string
	// Subsystem of the metrics.
	Subsystem string
	// Options for the buffer capacity gauge.
	Capacity prometheus.GaugeOpts
	// Options for the buffer length gauge.
	Length prometheus.GaugeOpts
	// Options for the put items counter.
	ItemsPut prometheus.CounterOpts
	// Options for the got items counter.
	ItemsGot prometheus.CounterOpts
	// Options for the put stop sentinels counter.
	StopsPut prometheus.CounterOpts
	// Options for the histogram of time spent blocked in Put.
	PutWait prometheus.HistogramOpts
	// Options for the histogram of time spent blocked in Get.
	GetWait prometheus.HistogramOpts
	// Options for the worker faults counter.
	WorkerFaults prometheus.CounterOpts
	// Options for the deadlocks counter.
	Deadlocks prometheus.CounterOpts
	// Options for the run duration histogram.
	RunDuration prometheus.HistogramOpts

	registerer prometheus.Registerer
	once       sync.Once
	m          *metrics
}

// Prometheus returns a [PrometheusConfig] with the provided registerer. If registerer is nil,
// metrics will not be registered. Many default parameters can be configured by passing
// configuration functions.
func Prometheus(
	registerer prometheus.Registerer,
	configFuncs ...func(c *PrometheusConfig),
) *PrometheusConfig {
	const (
		namespace = "handoff"
		subsystem = ""
	)

	c := &PrometheusConfig{
		registerer: registerer,
		Namespace:  namespace,
		Subsystem:  subsystem,
		Capacity: prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "buffer_capacity",
			Help:      "Capacity of the buffer",
		},
		Length: prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "buffer_length",
			Help:      "Number of messages in the buffer",
		},
		ItemsPut: prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "items_put",
			Help:      "Number of items put into the buffer",
		},
		ItemsGot: prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "items_got",
			Help:      "Number of items taken from the buffer",
		},
		StopsPut: prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "stops_put",
			Help:      "Number of stop sentinels put into the buffer",
		},
		PutWait: prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "put_wait_seconds",
			Help:      "Time spent waiting for free space in the buffer",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
		},
		GetWait: prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "get_wait_seconds",
			Help:      "Time spent waiting for a message in the buffer",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
		},
		WorkerFaults: prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "worker_faults",
			Help:      "Number of faults returned by workers",
		},
		Deadlocks: prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "deadlocks",
			Help:      "Number of runs that didn't finish before the timeout",
		},
		RunDuration: prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "run_duration_seconds",
			Help:      "Duration of pipeline runs",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 16),
		},
	}

	for _, cf := range configFuncs {
		if cf != nil {
			cf(c)
		}
	}

	return c
}

func (c *PrometheusConfig) metrics() *metrics {
	c.once.Do(func() {
		c.m = c.newMetrics()
	})
	return c.m
}

func (c *PrometheusConfig) newMetrics() *metrics {
	m := metrics{
		capacity:     prometheus.NewGauge(c.Capacity),
		length:       prometheus.NewGauge(c.Length),
		itemsPut:     prometheus.NewCounter(c.ItemsPut),
		itemsGot:     prometheus.NewCounter(c.ItemsGot),
		stopsPut:     prometheus.NewCounter(c.StopsPut),
		putWait:      prometheus.NewHistogram(c.PutWait),
		getWait:      prometheus.NewHistogram(c.GetWait),
		workerFaults: prometheus.NewCounterVec(c.WorkerFaults, []string{"role"}),
		deadlocks:    prometheus.NewCounter(c.Deadlocks),
		runDuration:  prometheus.NewHistogram(c.RunDuration),
	}

	if c.registerer != nil {
		c.registerer.MustRegister(
			m.capacity,
			m.length,
			m.itemsPut,
			m.itemsGot,
			m.stopsPut,
			m.putWait,
			m.getWait,
			m.workerFaults,
			m.deadlocks,
			m.runDuration,
		)
	}

	return &m
}

type metrics struct {
	capacity     prometheus.Gauge
	length       prometheus.Gauge
	itemsPut     prometheus.Counter
	itemsGot     prometheus.Counter
	stopsPut     prometheus.Counter
	putWait      prometheus.Histogram
	getWait      prometheus.Histogram
	workerFaults *prometheus.CounterVec
	deadlocks    prometheus.Counter
	runDuration  prometheus.Histogram
}
