package influx

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	influxdb2_api "github.com/influxdata/influxdb-client-go/v2/api"
	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/influxdata/influxdb-client-go/v2/domain"
	"github.com/rs/zerolog"

	"github.com/athena2/fleeteval/internal/config"
	"github.com/athena2/fleeteval/internal/geo"
	"github.com/athena2/fleeteval/internal/model"
	"github.com/athena2/fleeteval/pkg/core"
)

// PerformanceBucket receives tournament throughput samples.
const PerformanceBucket = "fleeteval_performance"

// ErrDisabled is returned by Connect when influx.enabled is false.
var ErrDisabled = errors.New("influx.enabled is false")

// Manager handles InfluxDB connections and writes.
type Manager struct {
	Client       influxdb2.Client
	Writers      map[string]influxdb2_api.WriteAPI
	BackupWriter *gzip.Writer
	IsValid      bool
	BucketNames  []string
	Logger       zerolog.Logger
	BackupPath   string

	cfg        config.InfluxConfig
	backupFile *os.File
	mu         sync.Mutex
}

// NewManager creates a new InfluxDB manager.
func NewManager(log zerolog.Logger, cfg config.InfluxConfig, backupPath string) *Manager {
	return &Manager{
		Writers:     make(map[string]influxdb2_api.WriteAPI),
		IsValid:     false,
		BucketNames: []string{cfg.Bucket, PerformanceBucket},
		Logger:      log,
		BackupPath:  backupPath,
		cfg:         cfg,
	}
}

// MatchupBucket is the bucket receiving matchup points.
func (m *Manager) MatchupBucket() string {
	return m.cfg.Bucket
}

// Connect establishes a connection to InfluxDB. When the server cannot be
// reached, points go to a gzip line-protocol backup file instead.
func (m *Manager) Connect(ctx context.Context) error {
	if !m.cfg.Enabled {
		return ErrDisabled
	}

	m.Client = influxdb2.NewClientWithOptions(
		fmt.Sprintf("%s://%s:%s", m.cfg.Protocol, m.cfg.Host, m.cfg.Port),
		m.cfg.Token,
		influxdb2.DefaultOptions().
			SetBatchSize(2500).
			SetFlushInterval(1000),
	)

	// validate client connection health
	running, err := m.Client.Ping(ctx)

	if err != nil || !running {
		m.IsValid = false
		m.Logger.Info().Str("backupPath", m.BackupPath).
			Msg("Failed to initialize InfluxDB client, writing to backup file")
		if err := m.UseBackup(); err != nil {
			return err
		}
		return nil
	}

	m.IsValid = true
	if err := m.setupOrganizationAndBuckets(ctx); err != nil {
		return err
	}
	m.CreateWriters()
	m.Logger.Info().Msg("InfluxDB client initialized")
	return nil
}

// UseBackup opens the backup file for appending.
func (m *Manager) UseBackup() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.BackupWriter != nil {
		return nil
	}

	file, err := os.OpenFile(m.BackupPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("error creating backup file: %v", err)
	}
	m.backupFile = file
	m.BackupWriter = gzip.NewWriter(file)
	return nil
}

func (m *Manager) setupOrganizationAndBuckets(ctx context.Context) error {
	orgName := m.cfg.Org

	// ensure org exists
	_, err := m.Client.OrganizationsAPI().FindOrganizationByName(ctx, orgName)
	if err != nil {
		m.Logger.Info().Str("org", orgName).Msg("Organization not found, creating")
		_, err = m.Client.OrganizationsAPI().CreateOrganizationWithName(ctx, orgName)
		if err != nil {
			m.Logger.Error().Err(err).Str("org", orgName).Msg("Error creating organization")
			return err
		}
	}

	influxOrg, err := m.Client.OrganizationsAPI().FindOrganizationByName(ctx, orgName)
	if err != nil {
		m.Logger.Error().Err(err).Str("org", orgName).Msg("Error getting organization")
		return err
	}

	// ensure buckets exist with 90 day retention
	for _, bucket := range m.BucketNames {
		_, err = m.Client.BucketsAPI().FindBucketByName(ctx, bucket)
		if err != nil {
			m.Logger.Info().Str("bucket", bucket).Msg("Bucket not found, creating")

			rule := domain.RetentionRuleTypeExpire
			_, err = m.Client.BucketsAPI().CreateBucketWithName(ctx, influxOrg, bucket, domain.RetentionRule{
				Type:         &rule,
				EverySeconds: 60 * 60 * 24 * 90,
			})
			if err != nil {
				m.Logger.Error().Err(err).Str("bucket", bucket).Msg("Error creating bucket")
				return err
			}
		}
	}

	return nil
}

// CreateWriters creates write APIs for all configured buckets.
func (m *Manager) CreateWriters() {
	for _, bucket := range m.BucketNames {
		m.Writers[bucket] = m.Client.WriteAPI(m.cfg.Org, bucket)

		errorsCh := m.Writers[bucket].Errors()
		go func(bucketName string, errorsCh <-chan error) {
			for writeErr := range errorsCh {
				m.Logger.Error().Err(writeErr).Str("bucket", bucketName).
					Msg("Error sending data to InfluxDB")
			}
		}(bucket, errorsCh)
	}

	m.Logger.Debug().Int("buckets", len(m.BucketNames)).Msg("InfluxDB writers initialized")
}

// WritePoint writes a point to InfluxDB or backup file.
func (m *Manager) WritePoint(bucket string, point *influxdb2_write.Point) error {
	if m.IsValid {
		w, ok := m.Writers[bucket]
		if !ok {
			return fmt.Errorf("influxDB bucket '%s' not registered", bucket)
		}
		w.WritePoint(point)
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.BackupWriter == nil {
		return fmt.Errorf("influxDB client not initialized and backup writer not available")
	}

	lineProtocol := influxdb2_write.PointToLineProtocol(point, time.Nanosecond)
	if _, err := m.BackupWriter.Write([]byte(lineProtocol + "\n")); err != nil {
		return fmt.Errorf("error writing to InfluxDB backup file: %s", err)
	}
	return nil
}

// Close flushes pending writes and releases the client and backup file.
func (m *Manager) Close() error {
	for _, w := range m.Writers {
		w.Flush()
	}
	if m.Client != nil {
		m.Client.Close()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	var err error
	if m.BackupWriter != nil {
		err = errors.Join(m.BackupWriter.Close(), m.backupFile.Close())
		m.BackupWriter = nil
		m.backupFile = nil
	}
	return err
}

// MatchupPoint converts a trial result into a "matchup" point.
func MatchupPoint(r core.MatchupResult) *influxdb2_write.Point {
	winner, margin := r.Winner()
	if winner == "" {
		winner = "draw"
	}

	fields := map[string]any{
		"scoreA":      r.A.Score,
		"scoreB":      r.B.Score,
		"margin":      margin,
		"destroyedA":  r.A.Destroyed,
		"destroyedB":  r.B.Destroyed,
		"disengagedA": r.A.Disengaged,
		"disengagedB": r.B.Disengaged,
		"ticks":       r.Ticks,
		"elapsed":     r.Elapsed,
		"durationMs":  float64(r.Duration.Microseconds()) / 1000,
	}
	if closest, ok := geo.ClosestApproach(r.Trace); ok {
		fields["closestApproach"] = closest
	}

	return influxdb2_write.NewPoint(
		"matchup",
		map[string]string{
			"runId":  r.RunID.String(),
			"fleetA": r.A.Fleet,
			"fleetB": r.B.Fleet,
			"winner": winner,
			"trial":  strconv.Itoa(r.Trial),
		},
		fields,
		r.Time,
	)
}

// PerformancePoint converts a throughput sample into a "performance" point.
func PerformancePoint(runID string, p model.Performance) *influxdb2_write.Point {
	return influxdb2_write.NewPoint(
		"performance",
		map[string]string{"runId": runID},
		map[string]any{
			"completed":        p.Completed,
			"total":            p.Total,
			"trialsPerSecond":  p.TrialsPerSecond,
			"writeQueueLength": p.WriteQueueLength,
			"goroutines":       p.Goroutines,
			"heapAllocMb":      p.HeapAllocMB,
		},
		p.Time,
	)
}
