package config

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// FileName is the configuration file looked up in the config directory.
const FileName = "fleeteval.cfg.json"

// MemoryConfig holds in-memory/JSON storage backend settings
type MemoryConfig struct {
	OutputDir      string `json:"outputDir" mapstructure:"outputDir"`
	CompressOutput bool   `json:"compressOutput" mapstructure:"compressOutput"`
}

// SQLiteConfig holds SQLite storage backend settings
type SQLiteConfig struct {
	Path         string        `json:"path" mapstructure:"path"`
	DumpInterval time.Duration `json:"dumpInterval" mapstructure:"dumpInterval"`
}

// WebSocketConfig holds streaming storage backend settings
type WebSocketConfig struct {
	URL        string        `json:"url" mapstructure:"url"`
	Secret     string        `json:"secret" mapstructure:"secret"`
	AckTimeout time.Duration `json:"ackTimeout" mapstructure:"ackTimeout"`
}

// StorageConfig selects and configures the result storage backend
type StorageConfig struct {
	Type      string          `json:"type" mapstructure:"type"`
	Memory    MemoryConfig    `json:"memory" mapstructure:"memory"`
	SQLite    SQLiteConfig    `json:"sqlite" mapstructure:"sqlite"`
	WebSocket WebSocketConfig `json:"websocket" mapstructure:"websocket"`
}

// OTelConfig holds OpenTelemetry settings
type OTelConfig struct {
	Enabled      bool          `json:"enabled" mapstructure:"enabled"`
	ServiceName  string        `json:"serviceName" mapstructure:"serviceName"`
	BatchTimeout time.Duration `json:"batchTimeout" mapstructure:"batchTimeout"`
	Endpoint     string        `json:"endpoint" mapstructure:"endpoint"`
	Insecure     bool          `json:"insecure" mapstructure:"insecure"`
}

// EvaluationConfig holds tournament defaults. Runspec values win over these.
type EvaluationConfig struct {
	FightLengthLimit   float64 `json:"fightLengthLimit" mapstructure:"fightLengthLimit"`
	WithdrawMultiplier float64 `json:"withdrawMultiplier" mapstructure:"withdrawMultiplier"`
	Timestep           float64 `json:"timestep" mapstructure:"timestep"`
	Trials             int     `json:"trials" mapstructure:"trials"`
	Workers            int     `json:"workers" mapstructure:"workers"`
	// Seed makes trials reproducible when non-zero.
	Seed uint64 `json:"seed" mapstructure:"seed"`
	// TraceEvery is the tick stride of recorded engagement traces; negative
	// disables them.
	TraceEvery int `json:"traceEvery" mapstructure:"traceEvery"`
}

// DatabaseConfig holds Postgres connection settings and the SQLite fallback path
type DatabaseConfig struct {
	Host       string `json:"host" mapstructure:"host"`
	Port       string `json:"port" mapstructure:"port"`
	Username   string `json:"username" mapstructure:"username"`
	Password   string `json:"password" mapstructure:"password"`
	Database   string `json:"database" mapstructure:"database"`
	SQLitePath string `json:"sqlitePath" mapstructure:"sqlitePath"`
}

// DSN returns the Postgres connection string.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.Host, c.Port, c.Username, c.Password, c.Database)
}

// InfluxConfig holds InfluxDB metrics settings
type InfluxConfig struct {
	Enabled  bool   `json:"enabled" mapstructure:"enabled"`
	Protocol string `json:"protocol" mapstructure:"protocol"`
	Host     string `json:"host" mapstructure:"host"`
	Port     string `json:"port" mapstructure:"port"`
	Token    string `json:"token" mapstructure:"token"`
	Org      string `json:"org" mapstructure:"org"`
	Bucket   string `json:"bucket" mapstructure:"bucket"`
}

// MonitorConfig holds progress monitor settings
type MonitorConfig struct {
	Enabled    bool          `json:"enabled" mapstructure:"enabled"`
	Interval   time.Duration `json:"interval" mapstructure:"interval"`
	StatusFile string        `json:"statusFile" mapstructure:"statusFile"`
}

// Load reads configuration from JSON file and sets default values.
// configDir is the directory containing the config file; a missing file
// leaves the defaults in place.
func Load(configDir string) error {
	SetDefaults()

	viper.SetEnvPrefix("FLEETEVAL")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetConfigName(FileName)
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	err := viper.ReadInConfig()
	var notFound viper.ConfigFileNotFoundError
	if err != nil && !errors.As(err, &notFound) {
		return fmt.Errorf("error reading config file: %v", err)
	}

	return nil
}

// SetDefaults registers every default value.
func SetDefaults() {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./logs")
	viper.SetDefault("logToFile", false)

	viper.SetDefault("evaluation.fightLengthLimit", 360.0)
	viper.SetDefault("evaluation.withdrawMultiplier", 0.1)
	viper.SetDefault("evaluation.timestep", 0.1)
	viper.SetDefault("evaluation.trials", 1)
	viper.SetDefault("evaluation.workers", runtime.NumCPU())
	viper.SetDefault("evaluation.seed", 0)
	viper.SetDefault("evaluation.traceEvery", 10)

	viper.SetDefault("report.showCost", false)

	viper.SetDefault("api.serverUrl", "http://localhost:5000/api")
	viper.SetDefault("api.apiKey", "")
	viper.SetDefault("api.upload", false)

	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", "5432")
	viper.SetDefault("db.username", "postgres")
	viper.SetDefault("db.password", "postgres")
	viper.SetDefault("db.database", "fleeteval")
	viper.SetDefault("db.sqlitePath", "./fleeteval.db")

	viper.SetDefault("storage.type", "memory")
	viper.SetDefault("storage.memory.outputDir", "./results")
	viper.SetDefault("storage.memory.compressOutput", true)
	viper.SetDefault("storage.sqlite.path", "./fleeteval.db")
	viper.SetDefault("storage.sqlite.dumpInterval", "3m")
	viper.SetDefault("storage.websocket.url", "ws://localhost:5000/api/v1/stream")
	viper.SetDefault("storage.websocket.secret", "")
	viper.SetDefault("storage.websocket.ackTimeout", "10s")

	viper.SetDefault("influx.enabled", false)
	viper.SetDefault("influx.host", "localhost")
	viper.SetDefault("influx.port", "8086")
	viper.SetDefault("influx.protocol", "http")
	viper.SetDefault("influx.token", "supersecrettoken")
	viper.SetDefault("influx.org", "fleeteval")
	viper.SetDefault("influx.bucket", "matchups")

	viper.SetDefault("graylog.enabled", false)
	viper.SetDefault("graylog.address", "localhost:12201")

	viper.SetDefault("monitor.enabled", false)
	viper.SetDefault("monitor.interval", "5s")
	viper.SetDefault("monitor.statusFile", "./fleeteval_status.txt")

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.serviceName", "fleeteval")
	viper.SetDefault("otel.batchTimeout", "5s")
	viper.SetDefault("otel.endpoint", "")
	viper.SetDefault("otel.insecure", true)
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value.
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns a bool config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// GetStorageConfig returns the storage backend configuration.
func GetStorageConfig() StorageConfig {
	return StorageConfig{
		Type: viper.GetString("storage.type"),
		Memory: MemoryConfig{
			OutputDir:      viper.GetString("storage.memory.outputDir"),
			CompressOutput: viper.GetBool("storage.memory.compressOutput"),
		},
		SQLite: SQLiteConfig{
			Path:         viper.GetString("storage.sqlite.path"),
			DumpInterval: viper.GetDuration("storage.sqlite.dumpInterval"),
		},
		WebSocket: WebSocketConfig{
			URL:        viper.GetString("storage.websocket.url"),
			Secret:     viper.GetString("storage.websocket.secret"),
			AckTimeout: viper.GetDuration("storage.websocket.ackTimeout"),
		},
	}
}

// GetOTelConfig returns the OpenTelemetry configuration.
func GetOTelConfig() OTelConfig {
	return OTelConfig{
		Enabled:      viper.GetBool("otel.enabled"),
		ServiceName:  viper.GetString("otel.serviceName"),
		BatchTimeout: viper.GetDuration("otel.batchTimeout"),
		Endpoint:     viper.GetString("otel.endpoint"),
		Insecure:     viper.GetBool("otel.insecure"),
	}
}

// GetEvaluationConfig returns the tournament defaults.
func GetEvaluationConfig() EvaluationConfig {
	return EvaluationConfig{
		FightLengthLimit:   viper.GetFloat64("evaluation.fightLengthLimit"),
		WithdrawMultiplier: viper.GetFloat64("evaluation.withdrawMultiplier"),
		Timestep:           viper.GetFloat64("evaluation.timestep"),
		Trials:             viper.GetInt("evaluation.trials"),
		Workers:            max(1, viper.GetInt("evaluation.workers")),
		Seed:               viper.GetUint64("evaluation.seed"),
		TraceEvery:         viper.GetInt("evaluation.traceEvery"),
	}
}

// GetDatabaseConfig returns the database connection configuration.
func GetDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		Host:       viper.GetString("db.host"),
		Port:       viper.GetString("db.port"),
		Username:   viper.GetString("db.username"),
		Password:   viper.GetString("db.password"),
		Database:   viper.GetString("db.database"),
		SQLitePath: viper.GetString("db.sqlitePath"),
	}
}

// GetInfluxConfig returns the InfluxDB configuration.
func GetInfluxConfig() InfluxConfig {
	return InfluxConfig{
		Enabled:  viper.GetBool("influx.enabled"),
		Protocol: viper.GetString("influx.protocol"),
		Host:     viper.GetString("influx.host"),
		Port:     viper.GetString("influx.port"),
		Token:    viper.GetString("influx.token"),
		Org:      viper.GetString("influx.org"),
		Bucket:   viper.GetString("influx.bucket"),
	}
}

// GetMonitorConfig returns the progress monitor configuration.
func GetMonitorConfig() MonitorConfig {
	return MonitorConfig{
		Enabled:    viper.GetBool("monitor.enabled"),
		Interval:   viper.GetDuration("monitor.interval"),
		StatusFile: viper.GetString("monitor.statusFile"),
	}
}
