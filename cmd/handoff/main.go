// Command handoff moves integers from producers to consumers through a bounded buffer.
//
// Usage:
//
//	handoff run [flags]
//
// Settings are read from defaults, HANDOFF_* environment variables, the YAML file passed with
// --config and explicit flags, in that order.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/teenjuna/handoff/cmd/handoff/commands"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := commands.Execute(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
