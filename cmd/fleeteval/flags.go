package main

import (
	"fmt"
	"io"
	"runtime"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/athena2/fleeteval/internal/config"
)

// flagKeys binds command line flags to configuration keys so a flag,
// when given, wins over the config file and environment.
var flagKeys = map[string]string{
	"log-level": "logLevel",
	"trials":    "evaluation.trials",
	"workers":   "evaluation.workers",
	"seed":      "evaluation.seed",
	"storage":   "storage.type",
	"show-cost": "report.showCost",
}

func newEvaluateFlags(stderr io.Writer) *pflag.FlagSet {
	fs := pflag.NewFlagSet(appName, pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.SortFlags = false

	fs.String("config", ".", "directory containing "+config.FileName)
	fs.String("log-level", "info", "log level: debug, info, warn or error")
	fs.Int("trials", 1, "trials per fleet pairing, overrides the runspec")
	fs.Int("workers", runtime.NumCPU(), "concurrent battles")
	fs.Uint64("seed", 0, "seed for reproducible trials, 0 picks a random one")
	fs.String("storage", "memory", "result storage: memory, sqlite, postgres or websocket")
	fs.Bool("show-cost", false, "print losses out of fleet cost")
	fs.BoolP("version", "v", false, "print the version and exit")
	fs.BoolP("help", "h", false, "print this help and exit")

	fs.Usage = func() { usage(stderr, fs) }
	return fs
}

func usage(w io.Writer, fs *pflag.FlagSet) {
	fmt.Fprintf(w, "Usage:\n")
	fmt.Fprintf(w, "  %s [flags] <runspec>    evaluate the runspec file\n", appName)
	fmt.Fprintf(w, "  %s [flags] -            read the runspec from stdin\n", appName)
	fmt.Fprintf(w, "  %s results [--run <id>] list stored runs\n", appName)
	fmt.Fprintf(w, "\nFlags:\n%s", fs.FlagUsages())
}

// bindFlags must run after config.Load so viper's search order is set up.
func bindFlags(fs *pflag.FlagSet) error {
	for name, key := range flagKeys {
		if err := viper.BindPFlag(key, fs.Lookup(name)); err != nil {
			return fmt.Errorf("failed to bind --%s: %w", name, err)
		}
	}
	return nil
}
