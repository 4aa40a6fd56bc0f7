// Command jin sends prompts to any supported LLM provider and inspects model
// capabilities and parameter drafts.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(os.Stdout, os.Stderr).ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "[jin] %v\n", err)
		stop()
		os.Exit(1)
	}
}
