package storage

import (
	"github.com/google/uuid"

	"github.com/athena2/fleeteval/pkg/core"
)

// Backend is the interface all storage implementations must satisfy
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// Run management
	StartRun(run *core.RunInfo) error
	EndRun() error

	// Result recording
	RecordMatchup(r *core.MatchupResult) error
}

// Uploadable is an optional interface for storage backends that produce
// files suitable for upload to a results server.
type Uploadable interface {
	GetExportedFilePath() string
	GetExportMetadata() core.UploadMetadata
}

// Reader is an optional interface for backends that can list stored runs.
type Reader interface {
	Runs() ([]core.RunInfo, error)
	Matchups(runID uuid.UUID) ([]core.MatchupResult, error)
}
