package handoff_test

import (
	"context"
	"fmt"
	"testing"
	"testing/synctest"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/teenjuna/handoff"
	"github.com/teenjuna/handoff/pacing"
	"github.com/teenjuna/handoff/sink"
	"github.com/teenjuna/handoff/source"
)

func TestPipelineTransfer(t *testing.T) {
	cases := []struct {
		name     string
		items    []int
		capacity int
	}{
		{"small buffer", []int{1, 2, 3}, 2},
		{"no items", []int{}, 5},
		{"capacity one", []int{10, 20, 30}, 1},
		{"capacity larger than data", []int{7, 8}, 100},
		{"order preserved", []int{5, 4, 3, 2, 1}, 3},
		{"large volume", ints(300), 5},
	}

	for _, shutdown := range []handoff.Shutdown{handoff.ShutdownCountdown, handoff.ShutdownSentinel} {
		for _, tc := range cases {
			t.Run(fmt.Sprintf("%s/%s", shutdown, tc.name), func(t *testing.T) {
				run(t, func(t *testing.T) {
					out := sink.Slice[int]()
					pipeline, err := handoff.New(source.Slice(tc.items...), out, func(c *handoff.Config) {
						c.Capacity(tc.capacity)
						c.Shutdown(shutdown)
						c.Timeout(time.Minute)
					})
					require.NoError(t, err)

					report, err := pipeline.Run(t.Context())
					require.NoError(t, err)
					require.Equal(t, tc.items, orEmpty(out.Items()))
					require.Equal(t, len(tc.items), report.Produced)
					require.Equal(t, len(tc.items), report.Consumed)
					require.NotEmpty(t, report.RunID)
					require.Equal(t, 0, pipeline.Buffered())

					for _, status := range pipeline.Workers() {
						require.Equal(t, handoff.StateDone, status.State, status.Name)
					}
				})
			})
		}
	}
}

func TestPipelineSentinelNeverStored(t *testing.T) {
	run(t, func(t *testing.T) {
		items := []*int{new(int), new(int), nil}
		out := sink.Slice[*int]()

		pipeline, err := handoff.New(source.Slice(items...), out)
		require.NoError(t, err)

		_, err = pipeline.Run(t.Context())
		require.NoError(t, err)

		// A nil item is an ordinary item, not a stop signal.
		require.Equal(t, items, out.Items())
	})
}

func TestPipelineWorkers(t *testing.T) {
	cases := []struct {
		producers int
		consumers int
		capacity  int
		items     int
	}{
		{1, 1, 1, 50},
		{2, 2, 3, 20},
		{3, 1, 5, 30},
		{1, 3, 4, 30},
		{4, 2, 3, 40},
		{2, 4, 3, 40},
		{10, 10, 10, 500},
	}

	for _, tc := range cases {
		name := fmt.Sprintf("%dP%dC", tc.producers, tc.consumers)
		t.Run(name, func(t *testing.T) {
			run(t, func(t *testing.T) {
				out := sink.Slice[int]()
				pipeline, err := handoff.New(source.Slice(ints(tc.items)...), out, func(c *handoff.Config) {
					c.Capacity(tc.capacity)
					c.Producers(tc.producers)
					c.Consumers(tc.consumers)
					c.Timeout(30 * time.Second)
				})
				require.NoError(t, err)

				report, err := pipeline.Run(t.Context())
				require.NoError(t, err)
				require.ElementsMatch(t, ints(tc.items), out.Items())
				require.Equal(t, tc.items, report.Produced)
				require.Equal(t, tc.items, report.Consumed)
			})
		})
	}
}

func TestPipelineSentinelMode(t *testing.T) {
	run(t, func(t *testing.T) {
		out := sink.Slice[int]()
		pipeline, err := handoff.New(source.Slice(ints(40)...), out, func(c *handoff.Config) {
			c.Shutdown(handoff.ShutdownSentinel)
			c.Capacity(2)
			c.Producers(3)
			c.Consumers(3)
		})
		require.NoError(t, err)

		_, err = pipeline.Run(t.Context())
		require.NoError(t, err)
		require.ElementsMatch(t, ints(40), out.Items())
	})

	_, err := handoff.New(source.Slice(1), sink.Slice[int](), func(c *handoff.Config) {
		c.Shutdown(handoff.ShutdownSentinel)
		c.Producers(2)
		c.Consumers(1)
	})
	require.ErrorIs(t, err, handoff.ErrSentinelMismatch)
}

func TestPipelineRandomPacing(t *testing.T) {
	run(t, func(t *testing.T) {
		out := sink.Slice[int]()
		pipeline, err := handoff.New(source.Slice(ints(100)...), out, func(c *handoff.Config) {
			c.Capacity(3)
			c.Producers(2)
			c.Consumers(3)
			c.ProducerPacer(pacing.Random(5 * time.Millisecond))
			c.ConsumerPacer(pacing.Fixed(2 * time.Millisecond).WithJitter(0.5))
			c.Logger(zaptest.NewLogger(t))
		})
		require.NoError(t, err)

		_, err = pipeline.Run(t.Context())
		require.NoError(t, err)
		require.ElementsMatch(t, ints(100), out.Items())
	})
}

func TestPipelineProducerFault(t *testing.T) {
	run(t, func(t *testing.T) {
		next := 0
		in := source.Func(func(ctx context.Context) (int, error) {
			if next == 5 {
				return 0, errBoom
			}
			next++
			return next, nil
		})
		out := sink.Slice[int]()

		pipeline, err := handoff.New(in, out, func(c *handoff.Config) {
			c.Capacity(2)
			c.Timeout(time.Minute)
		})
		require.NoError(t, err)

		report, err := pipeline.Run(t.Context())
		require.ErrorIs(t, err, errBoom)
		require.NotErrorIs(t, err, handoff.ErrDeadlock)
		require.Equal(t, 5, report.Produced)
	})
}

func TestPipelineConsumerFault(t *testing.T) {
	run(t, func(t *testing.T) {
		registry := prometheus.NewRegistry()
		out := sink.Func(func(ctx context.Context, item int) error {
			if item == 3 {
				return errBoom
			}
			return nil
		})

		pipeline, err := handoff.New(source.Slice(ints(1000)...), out, func(c *handoff.Config) {
			c.Capacity(1)
			c.Producers(3)
			c.Consumers(2)
			c.Timeout(time.Minute)
			c.Prometheus(handoff.Prometheus(registry))
		})
		require.NoError(t, err)

		// Producers blocked on the full buffer are cancelled, the run doesn't hang.
		_, err = pipeline.Run(t.Context())
		require.ErrorIs(t, err, errBoom)
		require.NotErrorIs(t, err, handoff.ErrDeadlock)
		require.Equal(t, 1.0, gathered(t, registry, "handoff_worker_faults", "role", "consumer"))
		require.Equal(t, 0.0, gathered(t, registry, "handoff_worker_faults", "role", "producer"))
	})
}

func TestPipelineDeadlock(t *testing.T) {
	run(t, func(t *testing.T) {
		var (
			registry = prometheus.NewRegistry()
			release  = make(chan struct{})
			out      = sink.Func(func(ctx context.Context, item int) error {
				<-release
				return nil
			})
		)

		pipeline, err := handoff.New(source.Slice(ints(10)...), out, func(c *handoff.Config) {
			c.Capacity(2)
			c.Timeout(time.Second)
			c.Prometheus(handoff.Prometheus(registry))
		})
		require.NoError(t, err)

		start := time.Now()
		_, err = pipeline.Run(t.Context())
		require.Equal(t, time.Second, time.Since(start))
		require.ErrorIs(t, err, handoff.ErrDeadlock)

		var deadlock *handoff.DeadlockError
		require.ErrorAs(t, err, &deadlock)
		require.Equal(t, time.Second, deadlock.Timeout)
		require.Equal(t, 2, deadlock.Buffered)
		require.Equal(t, []handoff.WorkerStatus{
			{Name: "producer-0", State: handoff.StateRunning},
			{Name: "consumer-0", State: handoff.StateRunning},
		}, deadlock.Alive)
		require.Contains(t, err.Error(), "consumer-0=running")
		require.Equal(t, 1.0, gathered(t, registry, "handoff_deadlocks"))

		// Workers were cancelled and return once the sink is released.
		close(release)
		synctest.Wait()
		for _, status := range pipeline.Workers() {
			require.Equal(t, handoff.StateDone, status.State, status.Name)
		}
	})
}

func TestPipelineContextCancel(t *testing.T) {
	run(t, func(t *testing.T) {
		in := source.Func(func(ctx context.Context) (int, error) {
			return 1, nil
		})
		pipeline, err := handoff.New(in, sink.Slice[int](), func(c *handoff.Config) {
			c.Capacity(4)
			c.Producers(2)
			c.Consumers(2)
		})
		require.NoError(t, err)

		_, err = pipeline.Run(cancelled())
		require.ErrorIs(t, err, context.Canceled)
	})
}

func TestPipelineRunOnce(t *testing.T) {
	run(t, func(t *testing.T) {
		pipeline, err := handoff.New(source.Slice(1, 2), sink.Slice[int]())
		require.NoError(t, err)

		_, err = pipeline.Run(t.Context())
		require.NoError(t, err)

		_, err = pipeline.Run(t.Context())
		require.ErrorIs(t, err, handoff.ErrClosed)
	})
}

func TestPipelineMetrics(t *testing.T) {
	run(t, func(t *testing.T) {
		registry := prometheus.NewRegistry()
		pipeline, err := handoff.New(source.Slice(ints(25)...), sink.Slice[int](), func(c *handoff.Config) {
			c.Capacity(4)
			c.Producers(3)
			c.Consumers(2)
			c.Prometheus(handoff.Prometheus(registry))
		})
		require.NoError(t, err)

		_, err = pipeline.Run(t.Context())
		require.NoError(t, err)

		require.Equal(t, 25.0, gathered(t, registry, "handoff_items_put"))
		require.Equal(t, 25.0, gathered(t, registry, "handoff_items_got"))
		require.Equal(t, 3.0, gathered(t, registry, "handoff_stops_put"))
		require.Equal(t, 4.0, gathered(t, registry, "handoff_buffer_capacity"))
		require.Equal(t, 0.0, gathered(t, registry, "handoff_buffer_length"))

		count, err := testutil.GatherAndCount(registry, "handoff_run_duration_seconds")
		require.NoError(t, err)
		require.Equal(t, 1, count)
	})
}

func TestNewPipeline(t *testing.T) {
	require.PanicsWithValue(t, "source can't be nil", func() {
		_, _ = handoff.New(nil, sink.Slice[int]())
	})

	require.PanicsWithValue(t, "sink can't be nil", func() {
		_, _ = handoff.New[int](source.Slice(1), nil)
	})
}

func orEmpty[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
