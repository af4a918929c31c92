package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/pflag"
	"gorm.io/gorm"

	"github.com/athena2/fleeteval/internal/config"
	"github.com/athena2/fleeteval/internal/database"
	"github.com/athena2/fleeteval/internal/report"
	"github.com/athena2/fleeteval/internal/storage"
	gormstorage "github.com/athena2/fleeteval/internal/storage/gorm"
	"github.com/athena2/fleeteval/internal/storage/memory"
	"github.com/athena2/fleeteval/pkg/core"
)

func runResults(args []string, stdout, stderr io.Writer) int {
	fs := pflag.NewFlagSet(appName+" results", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	configDir := fs.String("config", ".", "directory containing "+config.FileName)
	runID := fs.String("run", "", "show the results of one run")
	source := fs.String("storage", "", "results to read: sqlite, postgres or memory (default from storage.type)")
	dbPath := fs.String("db", "", "SQLite file or memory export to read (default from storage.sqlite.path)")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	if err := config.Load(*configDir); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	reader, closeReader, err := openResults(*source, *dbPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	defer closeReader()

	if *runID == "" {
		err = listRuns(stdout, reader)
	} else {
		err = showRun(stdout, reader, *runID)
	}
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// openResults opens the results a previous run left behind: a database for
// the sqlite and postgres backends, or an export file written by the memory
// backend.
func openResults(source, path string) (storage.Reader, func(), error) {
	storageCfg := config.GetStorageConfig()
	if source == "" {
		source = storageCfg.Type
	}

	if source == "memory" {
		if path == "" {
			return nil, nil, fmt.Errorf("storage %q keeps no readable results without --db pointing at an export file", source)
		}
		exp, err := memory.ReadExport(path)
		if err != nil {
			return nil, nil, fmt.Errorf("reading export %s: %w", path, err)
		}
		return exportReader{exp}, func() {}, nil
	}

	db, err := openResultsDB(source, path)
	if err != nil {
		return nil, nil, err
	}
	closeDB := func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	}
	return gormstorage.New(gormstorage.Dependencies{DB: db}), closeDB, nil
}

// openResultsDB opens the database a previous run wrote to.
func openResultsDB(source, path string) (*gorm.DB, error) {
	switch source {
	case "postgres":
		return database.OpenPostgres(config.GetDatabaseConfig())
	case "sqlite":
		if path == "" {
			path = config.GetStorageConfig().SQLite.Path
		}
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("no results database at %s: %w", path, err)
		}
		return database.OpenSQLite(path)
	default:
		return nil, fmt.Errorf("storage %q keeps no readable results, use --storage sqlite, postgres or memory", source)
	}
}

// exportReader serves a memory export as a one-run store.
type exportReader struct {
	exp *memory.RunExport
}

func (r exportReader) Runs() ([]core.RunInfo, error) {
	return []core.RunInfo{r.exp.Run}, nil
}

func (r exportReader) Matchups(runID uuid.UUID) ([]core.MatchupResult, error) {
	if runID != r.exp.Run.ID {
		return nil, nil
	}
	return r.exp.Matchups, nil
}

func listRuns(w io.Writer, reader storage.Reader) error {
	runs, err := reader.Runs()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs stored.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tSTARTED\tFLEETS\tTRIALS")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\n", r.ID, r.Name, r.StartTime.UTC().Format(time.RFC3339), len(r.Fleets), r.Trials)
	}
	return tw.Flush()
}

func showRun(w io.Writer, reader storage.Reader, rawID string) error {
	id, err := uuid.Parse(rawID)
	if err != nil {
		return fmt.Errorf("invalid run id %q: %w", rawID, err)
	}

	runs, err := reader.Runs()
	if err != nil {
		return err
	}
	var info *core.RunInfo
	for i := range runs {
		if runs[i].ID == id {
			info = &runs[i]
			break
		}
	}
	if info == nil {
		return fmt.Errorf("run %s not found", id)
	}

	matchups, err := reader.Matchups(id)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "Run %s (%s), %d trials per pairing, %d results\n\n", info.Name, info.ID, info.Trials, len(matchups))
	table := report.NewTable(info.Fleets)
	for _, m := range matchups {
		table.Add(m)
	}
	return table.Write(w, true)
}
