package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
)

// module defs - Version and BuildDate can be set at build time via ldflags
var (
	Version   string = "0.1.0"
	BuildDate string = "unknown"
)

const appName = "fleeteval"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run dispatches to a subcommand and returns the process exit status.
func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	if len(args) > 0 && args[0] == "results" {
		return runResults(args[1:], stdout, stderr)
	}
	return runEvaluate(ctx, args, stdin, stdout, stderr)
}

func printVersion(w io.Writer) {
	fmt.Fprintf(w, "%s version %s\n", appName, Version)
}
