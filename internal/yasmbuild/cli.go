package yasmbuild

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// Main is the process entry point. It wires interrupt handling into the run
// context so Ctrl-C kills whatever external tool is currently running.
func Main() int {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sig
		colWarn.Println("\nInterrupted; stopping.")
		cancel()
	}()

	return Run(ctx, os.Args[1:], os.Stdin)
}
