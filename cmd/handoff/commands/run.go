package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/teenjuna/handoff"
	"github.com/teenjuna/handoff/codec"
	"github.com/teenjuna/handoff/codec/gob"
	"github.com/teenjuna/handoff/codec/json"
	"github.com/teenjuna/handoff/codec/msgpack"
	"github.com/teenjuna/handoff/internal/logging"
	"github.com/teenjuna/handoff/pacing"
	"github.com/teenjuna/handoff/sink"
	"github.com/teenjuna/handoff/source"
	"github.com/teenjuna/handoff/sqlite"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Move integers 0..N-1 through the buffer",
		Long: `Run a pipeline over the integers 0..N-1.

Items are stored in memory, or appended to a SQLite database if --db is set.

Examples:
  handoff run --items 100 --producers 3 --consumers 2 --capacity 4
  handoff run --items 20 --pace 50ms --log-level debug --log-dev
  HANDOFF_DB=items.db handoff run --codec json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSettings(cmd)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cmd.OutOrStdout(), s)
		},
	}

	flags := cmd.Flags()
	flags.Int("items", 10, "number of items to move")
	flags.Int("producers", 1, "number of producers")
	flags.Int("consumers", 1, "number of consumers")
	flags.Int("capacity", 1, "capacity of the buffer")
	flags.Duration("timeout", 30*time.Second, "deadlock timeout, 0 disables it")
	flags.String("shutdown", "countdown", "shutdown mode: countdown or sentinel")
	flags.Duration("pace", 0, "upper bound of a random delay after every item")
	flags.String("db", "", "SQLite database file used as the sink")
	flags.String("codec", "msgpack", "codec of items stored in the database: json, gob or msgpack")

	return cmd
}

func run(ctx context.Context, w io.Writer, s *Settings) (err error) {
	logger, err := logging.New(logging.Config{
		Level:       s.LogLevel,
		Development: s.LogDev,
	})
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	shutdown, err := s.shutdown()
	if err != nil {
		return err
	}

	in := source.Seq(func(yield func(int) bool) {
		for i := range s.Items {
			if !yield(i) {
				return
			}
		}
	})
	defer in.Close()

	out, stored, closeSink, err := newSink(ctx, s)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, closeSink())
	}()

	registry := prometheus.NewRegistry()
	pipeline, err := handoff.New[int](in, out, func(c *handoff.Config) {
		c.Capacity(s.Capacity)
		c.Producers(s.Producers)
		c.Consumers(s.Consumers)
		c.Timeout(s.Timeout)
		c.Shutdown(shutdown)
		if s.Pace > 0 {
			c.ProducerPacer(pacing.Random(s.Pace))
			c.ConsumerPacer(pacing.Random(s.Pace))
		}
		c.Logger(logger)
		c.Prometheus(handoff.Prometheus(registry))
	})
	if err != nil {
		return fmt.Errorf("create pipeline: %w", err)
	}

	report, runErr := pipeline.Run(ctx)
	switch {
	case report == nil:
	case errors.Is(runErr, handoff.ErrDeadlock):
		// Workers weren't joined, the sink may still be written to.
		fmt.Fprintf(w, "run %s: produced %d, consumed %d, stored unknown in %s\n",
			report.RunID, report.Produced, report.Consumed, report.Duration)
	default:
		n, err := stored()
		if err != nil {
			logger.Warn("count stored items", zap.Error(err))
		}
		fmt.Fprintf(w, "run %s: produced %d, consumed %d, stored %d in %s\n",
			report.RunID, report.Produced, report.Consumed, n, report.Duration)
	}
	if err := printMetrics(w, registry); err != nil {
		logger.Warn("print metrics", zap.Error(err))
	}

	return runErr
}

// newSink returns the sink of a run, a function counting stored items and a function
// releasing the sink.
func newSink(ctx context.Context, s *Settings) (handoff.Sink[int], func() (int, error), func() error, error) {
	if s.DB == "" {
		out := sink.Slice[int]()
		stored := func() (int, error) { return out.Len(), nil }
		return out, stored, func() error { return nil }, nil
	}

	c, err := codecFor(s.Codec)
	if err != nil {
		return nil, nil, nil, err
	}

	store, err := sqlite.Open(sqlite.File(s.DB), s.Consumers)
	if err != nil {
		return nil, nil, nil, err
	}
	stored := func() (int, error) { return store.Len(ctx) }
	return sqlite.NewSink(store, c), stored, store.Close, nil
}

func codecFor(name string) (codec.Codec[int], error) {
	switch name {
	case "json":
		return json.New[int](), nil
	case "gob":
		return gob.New[int](), nil
	case "msgpack":
		return msgpack.New[int](), nil
	default:
		return nil, fmt.Errorf("unknown codec %q", name)
	}
}

// printMetrics writes every gathered counter and gauge, and the sample count of histograms.
func printMetrics(w io.Writer, gatherer prometheus.Gatherer) error {
	families, err := gatherer.Gather()
	if err != nil {
		return err
	}
	sort.Slice(families, func(i, j int) bool {
		return families[i].GetName() < families[j].GetName()
	})

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "METRIC\tLABELS\tVALUE")
	for _, family := range families {
		for _, metric := range family.GetMetric() {
			pairs := make([]string, 0, len(metric.GetLabel()))
			for _, label := range metric.GetLabel() {
				pairs = append(pairs, label.GetName()+"="+label.GetValue())
			}
			labels := strings.Join(pairs, ",")
			if labels == "" {
				labels = "-"
			}

			switch {
			case metric.GetCounter() != nil:
				fmt.Fprintf(tw, "%s\t%s\t%g\n", family.GetName(), labels, metric.GetCounter().GetValue())
			case metric.GetGauge() != nil:
				fmt.Fprintf(tw, "%s\t%s\t%g\n", family.GetName(), labels, metric.GetGauge().GetValue())
			case metric.GetHistogram() != nil:
				h := metric.GetHistogram()
				fmt.Fprintf(tw, "%s\t%s\tcount=%d sum=%g\n", family.GetName(), labels, h.GetSampleCount(), h.GetSampleSum())
			}
		}
	}
	return tw.Flush()
}
