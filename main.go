// Command anthem generates audio anthems from CRM opportunity records.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"anthemengine/internal/commands"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := commands.Run(ctx, os.Getenv, os.Args[1:])
	cancel()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
