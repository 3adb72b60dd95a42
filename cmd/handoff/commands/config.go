package commands

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/cobra"

	"github.com/teenjuna/handoff"
)

const envPrefix = "HANDOFF"

// Settings of a run.
type Settings struct {
	Items     int           `envconfig:"ITEMS" default:"10" yaml:"items"`
	Producers int           `envconfig:"PRODUCERS" default:"1" yaml:"producers"`
	Consumers int           `envconfig:"CONSUMERS" default:"1" yaml:"consumers"`
	Capacity  int           `envconfig:"CAPACITY" default:"1" yaml:"capacity"`
	Timeout   time.Duration `envconfig:"TIMEOUT" default:"30s" yaml:"timeout"`
	Shutdown  string        `envconfig:"SHUTDOWN" default:"countdown" yaml:"shutdown"`
	Pace      time.Duration `envconfig:"PACE" default:"0s" yaml:"pace"`
	DB        string        `envconfig:"DB" yaml:"db"`
	Codec     string        `envconfig:"CODEC" default:"msgpack" yaml:"codec"`
	LogLevel  string        `envconfig:"LOG_LEVEL" default:"info" yaml:"log_level"`
	LogDev    bool          `envconfig:"LOG_DEV" default:"false" yaml:"log_dev"`
}

// loadSettings layers defaults, environment, the config file and changed flags of cmd.
func loadSettings(cmd *cobra.Command) (*Settings, error) {
	var s Settings
	if err := envconfig.Process(envPrefix, &s); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	flags := cmd.Flags()

	path, err := flags.GetString("config")
	if err != nil {
		return nil, err
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &s); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	var errs []error
	intFlag := func(name string, dst *int) {
		if flags.Changed(name) {
			v, err := flags.GetInt(name)
			errs = append(errs, err)
			*dst = v
		}
	}
	durationFlag := func(name string, dst *time.Duration) {
		if flags.Changed(name) {
			v, err := flags.GetDuration(name)
			errs = append(errs, err)
			*dst = v
		}
	}
	stringFlag := func(name string, dst *string) {
		if flags.Changed(name) {
			v, err := flags.GetString(name)
			errs = append(errs, err)
			*dst = v
		}
	}

	intFlag("items", &s.Items)
	intFlag("producers", &s.Producers)
	intFlag("consumers", &s.Consumers)
	intFlag("capacity", &s.Capacity)
	durationFlag("timeout", &s.Timeout)
	stringFlag("shutdown", &s.Shutdown)
	durationFlag("pace", &s.Pace)
	stringFlag("db", &s.DB)
	stringFlag("codec", &s.Codec)
	stringFlag("log-level", &s.LogLevel)
	if flags.Changed("log-dev") {
		v, err := flags.GetBool("log-dev")
		errs = append(errs, err)
		s.LogDev = v
	}
	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("read flags: %w", err)
	}

	if err := s.validate(); err != nil {
		return nil, err
	}

	return &s, nil
}

func (s *Settings) validate() error {
	var errs []error
	if s.Items < 0 {
		errs = append(errs, errors.New("items can't be < 0"))
	}
	if s.Producers < 1 {
		errs = append(errs, errors.New("producers can't be < 1"))
	}
	if s.Consumers < 1 {
		errs = append(errs, errors.New("consumers can't be < 1"))
	}
	if s.Capacity < 1 {
		errs = append(errs, handoff.ErrInvalidCapacity)
	}
	if s.Timeout < 0 {
		errs = append(errs, errors.New("timeout can't be < 0"))
	}
	if s.Pace < 0 {
		errs = append(errs, errors.New("pace can't be < 0"))
	}
	if _, err := s.shutdown(); err != nil {
		errs = append(errs, err)
	}
	if _, err := codecFor(s.Codec); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (s *Settings) shutdown() (handoff.Shutdown, error) {
	switch s.Shutdown {
	case handoff.ShutdownCountdown.String():
		return handoff.ShutdownCountdown, nil
	case handoff.ShutdownSentinel.String():
		return handoff.ShutdownSentinel, nil
	default:
		return 0, fmt.Errorf("unknown shutdown %q", s.Shutdown)
	}
}
