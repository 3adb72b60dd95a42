package commands

import (
	"bytes"
	"os"
	"path"
	"testing"
	"testing/synctest"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/teenjuna/handoff"
	"github.com/teenjuna/handoff/sqlite"
)

func TestLoadSettings(t *testing.T) {
	t.Setenv("HANDOFF_ITEMS", "20")
	t.Setenv("HANDOFF_CAPACITY", "3")
	t.Setenv("HANDOFF_CODEC", "json")

	file := path.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(file, []byte("capacity: 5\nconsumers: 2\ntimeout: 5s\n"), 0o600))

	cmd, _, err := newRootCmd().Find([]string{"run"})
	require.NoError(t, err)
	require.NoError(t, cmd.ParseFlags([]string{"--config", file, "--consumers", "4", "--log-dev"}))

	s, err := loadSettings(cmd)
	require.NoError(t, err)
	require.Equal(t, &Settings{
		Items:     20,
		Producers: 1,
		Consumers: 4,
		Capacity:  5,
		Timeout:   5 * time.Second,
		Shutdown:  "countdown",
		Codec:     "json",
		LogLevel:  "info",
		LogDev:    true,
	}, s)
}

func TestLoadSettingsInvalid(t *testing.T) {
	cmd, _, err := newRootCmd().Find([]string{"run"})
	require.NoError(t, err)
	require.NoError(t, cmd.ParseFlags([]string{"--capacity", "0", "--codec", "xml", "--shutdown", "never"}))

	_, err = loadSettings(cmd)
	require.ErrorIs(t, err, handoff.ErrInvalidCapacity)
	require.ErrorContains(t, err, `unknown codec "xml"`)
	require.ErrorContains(t, err, `unknown shutdown "never"`)
}

func TestRun(t *testing.T) {
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{
		"run",
		"--items", "50",
		"--producers", "3",
		"--consumers", "2",
		"--capacity", "4",
		"--log-level", "error",
	})

	require.NoError(t, cmd.ExecuteContext(t.Context()))
	require.Contains(t, out.String(), "produced 50, consumed 50, stored 50")
	require.Regexp(t, `handoff_items_put\s+-\s+50\n`, out.String())
	require.Regexp(t, `handoff_stops_put\s+-\s+3\n`, out.String())
}

func TestRunDatabase(t *testing.T) {
	file := path.Join(t.TempDir(), "items.db")

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{
		"run",
		"--items", "30",
		"--consumers", "3",
		"--db", file,
		"--codec", "gob",
		"--log-level", "error",
	})

	require.NoError(t, cmd.ExecuteContext(t.Context()))
	require.Contains(t, out.String(), "stored 30")

	store, err := sqlite.Open(sqlite.File(file), 1)
	require.NoError(t, err)
	defer store.Close()

	n, err := store.Len(t.Context())
	require.NoError(t, err)
	require.Equal(t, 30, n)
}

func TestRunSentinelMismatch(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{
		"run",
		"--shutdown", "sentinel",
		"--producers", "2",
		"--consumers", "1",
		"--log-level", "error",
	})

	require.ErrorIs(t, cmd.ExecuteContext(t.Context()), handoff.ErrSentinelMismatch)
}

func TestRunDeadlock(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		var out bytes.Buffer
		cmd := newRootCmd()
		cmd.SetOut(&out)
		cmd.SetArgs([]string{
			"run",
			"--items", "100",
			"--pace", "1s",
			"--timeout", "10ms",
			"--log-level", "fatal",
		})

		require.ErrorIs(t, cmd.ExecuteContext(t.Context()), handoff.ErrDeadlock)
		require.Contains(t, out.String(), "stored unknown")
		require.NotRegexp(t, `stored \d+`, out.String())
	})
}
