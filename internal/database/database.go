package database

import (
	"database/sql"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/athena2/fleeteval/internal/config"
	"github.com/athena2/fleeteval/internal/model"
)

// Manager owns the connection of the postgres results backend. When
// Postgres cannot be reached it falls back to an in-memory SQLite database
// that is dumped to SqliteFilePath, so a run is never lost to a database
// outage.
type Manager struct {
	DB              *gorm.DB
	SqlDB           *sql.DB
	IsValid         bool
	ShouldSaveLocal bool
	SqliteFilePath  string
	Logger          zerolog.Logger

	cfg config.DatabaseConfig
}

// NewManager creates a new database manager.
func NewManager(log zerolog.Logger, cfg config.DatabaseConfig) *Manager {
	return &Manager{
		SqliteFilePath: cfg.SQLitePath,
		Logger:         log,
		cfg:            cfg,
	}
}

// Connect opens Postgres, or the SQLite fallback if Postgres fails.
func (m *Manager) Connect() error {
	err := m.connectPostgres()
	if err == nil {
		m.Logger.Info().Str("host", m.cfg.Host).Str("database", m.cfg.Database).Msg("Connected to Postgres")
		m.IsValid = true
		return nil
	}

	m.Logger.Error().Err(err).Msg("Failed to connect to Postgres DB, trying SQLite")
	if err := m.connectFallback(); err != nil {
		m.IsValid = false
		return err
	}
	m.Logger.Info().Str("path", m.SqliteFilePath).Msg("Using local SQLite DB in memory with disk dump")
	m.ShouldSaveLocal = true
	m.IsValid = true
	return nil
}

func (m *Manager) connectPostgres() error {
	db, err := OpenPostgres(m.cfg)
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return err
	}
	sqlDB.SetMaxOpenConns(10)
	m.DB, m.SqlDB = db, sqlDB
	return nil
}

func (m *Manager) connectFallback() error {
	db, err := OpenSQLite("")
	if err != nil {
		return fmt.Errorf("failed to get local SQLite DB: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to access sql interface: %w", err)
	}
	m.DB, m.SqlDB = db, sqlDB
	return nil
}

// DumpMemoryToDisk writes the fallback database to SqliteFilePath. It does
// nothing while connected to Postgres.
func (m *Manager) DumpMemoryToDisk() error {
	if !m.ShouldSaveLocal {
		return nil
	}
	start := time.Now()
	if err := DumpMemoryDBToDisk(m.DB, m.SqliteFilePath); err != nil {
		return err
	}
	m.Logger.Debug().Dur("duration", time.Since(start)).Str("path", m.SqliteFilePath).Msg("Dumped memory DB to disk")
	return nil
}

// Close closes the underlying connection pool.
func (m *Manager) Close() error {
	if m.SqlDB == nil {
		return nil
	}
	m.IsValid = false
	return m.SqlDB.Close()
}

// OpenPostgres returns a connection to the Postgres database.
func OpenPostgres(cfg config.DatabaseConfig) (*gorm.DB, error) {
	return gorm.Open(postgres.New(postgres.Config{
		DSN:                  cfg.DSN(),
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		SkipDefaultTransaction: true,
		CreateBatchSize:        10000,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
}

// OpenSQLite returns a connection to a SQLite database.
// If path is empty, a fresh shared-cache in-memory database is used.
func OpenSQLite(path string) (*gorm.DB, error) {
	dsn := path
	if dsn == "" {
		dsn = fmt.Sprintf("file:fleeteval_%s?mode=memory&cache=shared", uuid.NewString())
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		PrepareStmt:            true,
		SkipDefaultTransaction: true,
		CreateBatchSize:        2000,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	// set PRAGMAS
	pragmas := []string{
		"PRAGMA user_version = 1;",
		"PRAGMA journal_mode = MEMORY;",
		"PRAGMA synchronous = OFF;",
		"PRAGMA cache_size = -32000;",
		"PRAGMA temp_store = MEMORY;",
		"PRAGMA foreign_keys = ON;",
	}

	for _, pragma := range pragmas {
		if err := db.Exec(pragma).Error; err != nil {
			return nil, fmt.Errorf("error setting PRAGMA: %w", err)
		}
	}

	return db, nil
}

// Migrate creates or updates every result table.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(model.DatabaseModels...); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

// DumpMemoryDBToDisk vacuums the in-memory database to a disk file.
func DumpMemoryDBToDisk(db *gorm.DB, sqliteFilePath string) error {
	if sqliteFilePath == "" {
		return fmt.Errorf("sqlite file path not set")
	}

	// remove existing file if it exists
	if exists, err := os.Stat(sqliteFilePath); err == nil && exists != nil {
		if err := os.Remove(sqliteFilePath); err != nil {
			return fmt.Errorf("error removing existing DB file: %w", err)
		}
	}

	err := db.Exec("VACUUM INTO '" + strings.ReplaceAll(sqliteFilePath, "'", "''") + "';").Error
	if err != nil {
		return fmt.Errorf("error dumping memory DB to disk: %w", err)
	}

	return nil
}
