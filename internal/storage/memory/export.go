package memory

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/athena2/fleeteval/internal/report"
	"github.com/athena2/fleeteval/pkg/core"
)

// ExportVersion is the schema version of exported result files.
const ExportVersion = 1

// RunExport is the JSON document written at the end of a run
type RunExport struct {
	Version  int                  `json:"version"`
	Run      core.RunInfo         `json:"run"`
	EndTime  time.Time            `json:"endTime"`
	Pairings []report.Summary     `json:"pairings"`
	Matchups []core.MatchupResult `json:"matchups"`
}

// exportJSON writes the run to the output directory. Caller holds b.mu.
func (b *Backend) exportJSON() error {
	timestamp := b.run.StartTime.UTC().Format("20060102_150405")
	var filename string
	if b.cfg.CompressOutput {
		filename = fmt.Sprintf("%s_%s.json.gz", fileSafe(b.run.Name), timestamp)
	} else {
		filename = fmt.Sprintf("%s_%s.json", fileSafe(b.run.Name), timestamp)
	}

	if err := os.MkdirAll(b.cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	outputPath := filepath.Join(b.cfg.OutputDir, filename)

	data := b.buildExport()
	var err error
	if b.cfg.CompressOutput {
		err = writeGzipJSON(outputPath, data)
	} else {
		err = writeJSON(outputPath, data)
	}
	if err != nil {
		return err
	}

	b.lastExportPath = outputPath
	b.lastExportMetadata = core.UploadMetadata{
		RunID:    b.run.ID,
		RunName:  b.run.Name,
		Fleets:   len(b.run.Fleets),
		Matchups: b.run.Matchups(),
		Trials:   b.run.Trials,
		Duration: b.endTime.Sub(b.run.StartTime).Seconds(),
		Tag:      b.run.Mode,
	}
	return nil
}

func (b *Backend) buildExport() RunExport {
	matchups := b.matchups
	if matchups == nil {
		matchups = []core.MatchupResult{}
	}
	return RunExport{
		Version:  ExportVersion,
		Run:      *b.run,
		EndTime:  b.endTime,
		Pairings: b.table.Summaries(),
		Matchups: matchups,
	}
}

func fileSafe(name string) string {
	if name == "" {
		return "run"
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', ':', '/', '\\':
			return '_'
		}
		return r
	}, name)
}

func writeJSON(path string, data RunExport) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

func writeGzipJSON(path string, data RunExport) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	gw := gzip.NewWriter(f)
	if err := json.NewEncoder(gw).Encode(data); err != nil {
		gw.Close()
		return fmt.Errorf("failed to encode export: %w", err)
	}
	return gw.Close()
}

// ReadExport loads an export written by either writer.
func ReadExport(path string) (*RunExport, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gr, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("failed to open gzip stream: %w", err)
		}
		defer gr.Close()
		r = gr
	}

	var out RunExport
	if err := json.NewDecoder(r).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode export: %w", err)
	}
	return &out, nil
}
