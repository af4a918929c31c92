package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gorm.io/gorm"

	"github.com/athena2/fleeteval/internal/api"
	"github.com/athena2/fleeteval/internal/config"
	"github.com/athena2/fleeteval/internal/dispatcher"
	"github.com/athena2/fleeteval/internal/logging"
	"github.com/athena2/fleeteval/internal/monitor"
	"github.com/athena2/fleeteval/internal/parser"
	"github.com/athena2/fleeteval/internal/report"
	"github.com/athena2/fleeteval/internal/storage"
	"github.com/athena2/fleeteval/internal/worker"
	"github.com/athena2/fleeteval/pkg/core"
)

func runEvaluate(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := newEvaluateFlags(stderr)
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	if help, _ := fs.GetBool("help"); help {
		usage(stdout, fs)
		return 0
	}
	if version, _ := fs.GetBool("version"); version {
		printVersion(stdout)
		return 0
	}
	if fs.NArg() != 1 {
		usage(stderr, fs)
		return 1
	}

	configDir, _ := fs.GetString("config")
	if err := config.Load(configDir); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	if err := bindFlags(fs); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	a := newApp(ctx, stderr)
	defer a.close()

	printVersion(stdout)
	plan, err := loadPlan(parser.NewParser(a.logger), fs.Arg(0), stdin, stdout)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	trials := plan.Trials
	if fs.Changed("trials") {
		trials = viper.GetInt("evaluation.trials")
	}

	if err := a.evaluate(ctx, runName(fs.Arg(0)), plan, trials, stdout); err != nil {
		a.logger.Error("Evaluation failed", "error", err)
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// header prints a "Loading ..." line that is completed with " done!" on
// success and a bare newline otherwise.
type header struct {
	w        io.Writer
	finished bool
}

func startHeader(w io.Writer, title string) *header {
	fmt.Fprint(w, title)
	return &header{w: w}
}

func (h *header) finish() {
	fmt.Fprintln(h.w, " done!")
	h.finished = true
}

func (h *header) end() {
	if !h.finished {
		fmt.Fprintln(h.w)
	}
}

// loadPlan reads the runspec at path, or standard input for "-", printing
// a header per loading stage.
func loadPlan(p *parser.Parser, path string, stdin io.Reader, stdout io.Writer) (*parser.Plan, error) {
	var (
		spec    *parser.Runspec
		baseDir string
		err     error
	)

	settings := startHeader(stdout, "Loading settings...")
	if path == "-" {
		spec, err = p.ReadRunspec(stdin, "json")
		baseDir, _ = os.Getwd()
	} else {
		spec, err = p.ReadRunspecFile(path)
		baseDir = filepath.Dir(path)
	}
	if err != nil {
		settings.end()
		return nil, err
	}
	settings.finish()

	components := startHeader(stdout, "Loading components...")
	designs, err := p.LoadDesigns(spec.Load, baseDir)
	if err != nil {
		components.end()
		return nil, err
	}
	components.finish()

	fleetHeader := startHeader(stdout, "Loading fleets...")
	fleets, err := p.BuildFleets(spec.Fleets, designs)
	if err != nil {
		fleetHeader.end()
		return nil, err
	}
	fleetHeader.finish()

	return parser.NewPlan(spec, designs, fleets), nil
}

// runName names a run after its runspec file.
func runName(path string) string {
	if path == "-" {
		return "stdin"
	}
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// gormBacked is implemented by the database backends.
type gormBacked interface {
	DB() *gorm.DB
	RunDBID() uint
}

// evaluate runs the tournament for plan and prints the results table.
func (a *app) evaluate(ctx context.Context, name string, plan *parser.Plan, trials int, stdout io.Writer) error {
	ec := config.GetEvaluationConfig()

	backend, err := createStorageBackend(config.GetStorageConfig(), a.logger, a.zlog)
	if err != nil {
		return err
	}
	if err := backend.Init(); err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer func() {
		if err := backend.Close(); err != nil {
			a.logger.Error("Failed to close storage", "error", err)
		}
	}()

	fleets := make([]core.FleetInfo, len(plan.Fleets))
	for i, f := range plan.Fleets {
		fleets[i] = core.NewFleetInfo(f)
	}

	tournament := &worker.Tournament{
		Fleets:     plan.Fleets,
		Settings:   plan.Settings,
		Trials:     trials,
		Workers:    ec.Workers,
		Seed:       ec.Seed,
		TraceEvery: ec.TraceEvery,
		DebugDump:  plan.DebugDump,
		Logger:     a.logger,
		Meter:      a.meter(),
	}

	info := &core.RunInfo{
		ID:                 a.runCtx.Start(name, tournament.Matchups()),
		Name:               name,
		Mode:               parser.ModeManual,
		FightLengthLimit:   plan.Settings.FightLengthLimit,
		WithdrawMultiplier: plan.Settings.WithdrawMultiplier,
		Timestep:           plan.Settings.Timestep,
		Trials:             max(1, trials),
		Fleets:             fleets,
		StartTime:          time.Now().UTC(),
		Version:            Version,
	}

	d, err := dispatcher.New(logging.NewDispatcherLogger(a.zlog))
	if err != nil {
		return fmt.Errorf("failed to create dispatcher: %w", err)
	}
	deps := worker.Dependencies{Logger: a.logger, Run: a.runCtx}
	if a.influx != nil {
		deps.Influx = a.influx
	}
	manager := worker.NewManager(deps, backend)
	manager.RegisterHandlers(d)

	if _, err := d.Dispatch(dispatcher.Event{Command: worker.CommandRunStart, Payload: info, Timestamp: info.StartTime}); err != nil {
		a.logger.Warn("Storage did not accept the run, results will not be stored", "error", err)
	}

	mon := a.startMonitor(backend)

	a.logger.Info("Starting tournament",
		"fleets", len(plan.Fleets),
		"trials", info.Trials,
		"matchups", tournament.Matchups(),
		"workers", ec.Workers)

	table := report.NewTable(fleets)
	runErr := tournament.Run(ctx, info.ID, table, func(r core.MatchupResult) {
		if _, err := d.Dispatch(dispatcher.Event{Command: worker.CommandMatchup, Payload: r, Timestamp: r.Time}); err != nil {
			a.logger.Warn("Failed to queue matchup", "matchup", r.Label(), "error", err)
		}
	})
	d.Close()
	if mon != nil {
		mon.Stop()
	}

	if _, err := d.Dispatch(dispatcher.Event{Command: worker.CommandRunEnd, Timestamp: time.Now()}); err != nil {
		a.logger.Warn("Failed to end run", "error", err)
	}

	a.logger.Info("Tournament finished",
		"recorded", manager.Recorded(),
		"failed", manager.Failed(),
		"dbWrite", manager.GetLastDBWriteDuration())
	a.warnLostResults(backend)

	fmt.Fprint(stdout, "\nResults\n\n")
	if err := table.Write(stdout, viper.GetBool("report.showCost")); err != nil {
		return fmt.Errorf("failed to write results: %w", err)
	}

	a.upload(ctx, backend)

	if errors.Is(runErr, context.Canceled) {
		return fmt.Errorf("interrupted after %d of %d matchups", a.runCtx.Progress().Completed, tournament.Matchups())
	}
	return runErr
}

// warnLostResults reports results that did not reach the configured store.
func (a *app) warnLostResults(backend storage.Backend) {
	if s, ok := backend.(interface{ Dropped() int64 }); ok {
		if n := s.Dropped(); n > 0 {
			a.logger.Warn("Stream dropped results", "dropped", n)
		}
	}
	if f, ok := backend.(interface{ Fallback() bool }); ok && f.Fallback() {
		a.logger.Warn("Results were written to the SQLite fallback instead of Postgres",
			"path", config.GetDatabaseConfig().SQLitePath)
	}
}

func (a *app) startMonitor(backend storage.Backend) *monitor.Service {
	mc := config.GetMonitorConfig()
	if !mc.Enabled {
		return nil
	}
	deps := monitor.Dependencies{
		Run:        a.runCtx,
		Logger:     a.logger,
		Storage:    backend,
		StatusFile: mc.StatusFile,
		Interval:   mc.Interval,
	}
	if gb, ok := backend.(gormBacked); ok {
		deps.DB = gb.DB()
		deps.RunDBID = gb.RunDBID
	}
	if a.influx != nil {
		deps.Influx = a.influx
	}
	svc := monitor.NewService(deps)
	if err := svc.Start(); err != nil {
		a.logger.Error("Failed to start monitor", "error", err)
		return nil
	}
	return svc
}

// upload sends the exported results file to the results server when
// api.upload is set and the backend produced one.
func (a *app) upload(ctx context.Context, backend storage.Backend) {
	if !viper.GetBool("api.upload") {
		return
	}
	u, ok := backend.(storage.Uploadable)
	if !ok || u.GetExportedFilePath() == "" {
		a.logger.Warn("api.upload is set but the storage backend exported no file")
		return
	}

	client := api.New(viper.GetString("api.serverUrl"), viper.GetString("api.apiKey"))
	uploadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Minute)
	defer cancel()
	if err := client.Healthcheck(uploadCtx); err != nil {
		a.logger.Warn("Results server unreachable, skipping upload", "url", viper.GetString("api.serverUrl"), "error", err)
		return
	}
	if err := client.Upload(uploadCtx, u.GetExportedFilePath(), u.GetExportMetadata()); err != nil {
		a.logger.Error("Failed to upload results", "path", u.GetExportedFilePath(), "error", err)
		return
	}
	a.logger.Info("Uploaded results", "path", u.GetExportedFilePath())
}
