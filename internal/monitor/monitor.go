package monitor

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"sync"
	"time"

	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"gorm.io/gorm"

	"github.com/athena2/fleeteval/internal/influx"
	"github.com/athena2/fleeteval/internal/model"
	"github.com/athena2/fleeteval/internal/run"
)

// WriteStats is implemented by storage backends with a write queue.
type WriteStats interface {
	QueueLength() int
}

// WriteTimer is implemented by storage backends that time their batches.
type WriteTimer interface {
	LastWriteDuration() time.Duration
}

// PointWriter receives performance points.
type PointWriter interface {
	WritePoint(bucket string, point *influxdb2_write.Point) error
}

// Dependencies holds all dependencies for the monitor service.
// Everything except Run and Logger is optional.
type Dependencies struct {
	Run        *run.Context
	Logger     *slog.Logger
	Storage    any // checked for WriteStats and WriteTimer
	DB         *gorm.DB
	RunDBID    func() uint
	Influx     PointWriter
	StatusFile string
	Interval   time.Duration
}

// Status is one sample of tournament progress.
type Status struct {
	RunID           string  `json:"runId"`
	Name            string  `json:"name"`
	Matchup         string  `json:"matchup,omitempty"`
	Completed       int64   `json:"completed"`
	Total           int64   `json:"total"`
	Percent         float64 `json:"percent"`
	TrialsPerSecond float64 `json:"trialsPerSecond"`
	Uptime          string  `json:"uptime"`
}

// Service manages status monitoring
type Service struct {
	deps      Dependencies
	isRunning bool
	mu        sync.RWMutex
	stopChan  chan struct{}
	done      chan struct{}
}

// NewService creates a new monitor service
func NewService(deps Dependencies) *Service {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Interval <= 0 {
		deps.Interval = 5 * time.Second
	}
	return &Service{deps: deps}
}

// IsRunning returns whether the status monitor is running
func (s *Service) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// GetProgramStatus returns the status file lines and the matching
// performance sample.
func (s *Service) GetProgramStatus() (output []string, perf model.Performance) {
	progress := s.deps.Run.Progress()

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	perf = model.Performance{
		Time:        time.Now().UTC(),
		Completed:   progress.Completed,
		Total:       progress.Total,
		Goroutines:  runtime.NumGoroutine(),
		HeapAllocMB: float64(mem.HeapAlloc) / (1 << 20),
	}
	if s.deps.RunDBID != nil {
		perf.RunID = s.deps.RunDBID()
	}
	uptime := time.Duration(0)
	if !progress.StartedAt.IsZero() {
		uptime = time.Since(progress.StartedAt)
		if secs := uptime.Seconds(); secs > 0 {
			perf.TrialsPerSecond = float64(progress.Completed) / secs
		}
	}
	if ws, ok := s.deps.Storage.(WriteStats); ok {
		perf.WriteQueueLength = ws.QueueLength()
	}
	if wt, ok := s.deps.Storage.(WriteTimer); ok {
		perf.LastWriteDurationMs = float32(wt.LastWriteDuration().Microseconds()) / 1000
	}

	status := Status{
		RunID:           progress.RunID.String(),
		Name:            progress.Name,
		Matchup:         progress.Matchup,
		Completed:       progress.Completed,
		Total:           progress.Total,
		Percent:         progress.Fraction() * 100,
		TrialsPerSecond: perf.TrialsPerSecond,
		Uptime:          uptime.Truncate(time.Second).String(),
	}

	output = append(output, marshalIndent(status))
	output = append(output, marshalIndent(map[string]any{
		"writeQueueLength":    perf.WriteQueueLength,
		"lastWriteDurationMs": perf.LastWriteDurationMs,
		"goroutines":          perf.Goroutines,
		"heapAllocMb":         perf.HeapAllocMB,
	}))
	return output, perf
}

func marshalIndent(v any) string {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf(`{"error": "%s"}`, err)
	}
	return string(data)
}

// Sample takes one status sample and publishes it to every configured sink.
func (s *Service) Sample() {
	logger := s.deps.Logger
	progress := s.deps.Run.Progress()
	if progress.StartedAt.IsZero() {
		return
	}

	lines, perf := s.GetProgramStatus()

	if s.deps.StatusFile != "" {
		if err := writeStatusFile(s.deps.StatusFile, lines); err != nil {
			logger.Error("Error writing status file", "error", err)
		}
	}

	if s.deps.DB != nil && perf.RunID != 0 {
		if err := s.deps.DB.Create(&perf).Error; err != nil {
			logger.Error("Error writing performance sample", "error", err)
		}
	}

	if s.deps.Influx != nil {
		if err := s.deps.Influx.WritePoint(influx.PerformanceBucket, influx.PerformancePoint(progress.RunID.String(), perf)); err != nil {
			logger.Error("Error writing performance point", "error", err)
		}
	}

	logger.Debug("Run progress",
		"completed", perf.Completed,
		"total", perf.Total,
		"trialsPerSecond", perf.TrialsPerSecond)
}

func writeStatusFile(path string, lines []string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	for _, line := range lines {
		if _, err := f.WriteString(line + "\n"); err != nil {
			return err
		}
	}
	return nil
}

// Start starts the status monitor goroutine
func (s *Service) Start() error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.stopChan = make(chan struct{})
	s.done = make(chan struct{})
	stop, done := s.stopChan, s.done
	s.mu.Unlock()

	go func() {
		defer close(done)
		defer func() {
			s.mu.Lock()
			s.isRunning = false
			s.mu.Unlock()
		}()

		s.deps.Logger.Debug("Starting status monitor goroutine", "interval", s.deps.Interval)
		ticker := time.NewTicker(s.deps.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				s.Sample()
			}
		}
	}()

	return nil
}

// Stop stops the status monitor and takes a final sample.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	close(s.stopChan)
	s.isRunning = false
	done := s.done
	s.mu.Unlock()

	<-done
	s.Sample()
}
