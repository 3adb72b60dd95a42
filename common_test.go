package handoff_test

import (
	"context"
	"testing"
	"testing/synctest"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/teenjuna/handoff"
)

func run(t *testing.T, fn func(t *testing.T)) {
	t.Helper()
	synctest.Test(t, fn)
}

func expect[T any](t *testing.T, ch chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	default:
		t.Fatal("channel is empty")
		var zero T
		return zero
	}
}

func expectEmpty[T any](t *testing.T, ch chan T) {
	t.Helper()
	select {
	case <-ch:
		t.Fatal("channel isn't empty")
	default:
	}
}

func ints(n int) []int {
	items := make([]int, n)
	for i := range items {
		items[i] = i + 1
	}
	return items
}

func values(items ...int) []handoff.Message[int] {
	msgs := make([]handoff.Message[int], len(items))
	for i, item := range items {
		msgs[i] = handoff.Value(item)
	}
	return msgs
}

func newBuffer(t *testing.T, capacity int, configFuncs ...func(c *handoff.BufferConfig)) *handoff.Buffer[int] {
	t.Helper()
	buffer, err := handoff.NewBuffer[int](capacity, configFuncs...)
	require.NoError(t, err)
	return buffer
}

func put(t *testing.T, buffer *handoff.Buffer[int], msgs ...handoff.Message[int]) {
	t.Helper()
	for _, msg := range msgs {
		require.NoError(t, buffer.Put(t.Context(), msg))
	}
}

func get(t *testing.T, buffer *handoff.Buffer[int]) handoff.Message[int] {
	t.Helper()
	msg, err := buffer.Get(t.Context())
	require.NoError(t, err)
	return msg
}

func cancelled() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	return ctx
}

// gathered returns the value of a counter or a gauge from the registry. Labels are passed as
// name-value pairs. A metric that wasn't observed yet is 0.
func gathered(t *testing.T, registry *prometheus.Registry, name string, labels ...string) float64 {
	t.Helper()
	families, err := registry.Gather()
	require.NoError(t, err)

	for _, family := range families {
		if family.GetName() != name {
			continue
		}
	metrics:
		for _, metric := range family.GetMetric() {
			for i := 0; i+1 < len(labels); i += 2 {
				matched := false
				for _, label := range metric.GetLabel() {
					if label.GetName() == labels[i] && label.GetValue() == labels[i+1] {
						matched = true
					}
				}
				if !matched {
					continue metrics
				}
			}
			if counter := metric.GetCounter(); counter != nil {
				return counter.GetValue()
			}
			return metric.GetGauge().GetValue()
		}
	}
	return 0
}
