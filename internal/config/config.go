package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"github.com/Veraticus/cropcast/internal/common"
)

// DatabaseConfig describes the upstream relational store of historical predictions.
type DatabaseConfig struct {
	Driver       string
	Host         string
	Name         string
	User         string
	Password     string
	DSN          string
	TargetColumn string
	Port         int
	Timeout      time.Duration
	Retries      int
	MinRows      int
	Enabled      bool
}

// CacheConfig locates the flat-file training data cache.
type CacheConfig struct {
	Path string
}

// ModelConfig locates the artifact directory.
type ModelConfig struct {
	Dir string
}

// TrainingConfig holds the forest and evaluation settings.
type TrainingConfig struct {
	Seed             uint64
	SyntheticSamples int
	MinRows          int
	Trees            int
	MaxDepth         int
	MaxFeatures      int
	Workers          int
	Folds            int
	TestSize         float64
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// HistoryConfig configures the local prediction history store.
type HistoryConfig struct {
	Path    string
	Enabled bool
}

// Config is the complete application configuration.
type Config struct {
	Database DatabaseConfig
	Cache    CacheConfig
	Model    ModelConfig
	Server   ServerConfig
	History  HistoryConfig
	Training TrainingConfig
}

// DataDir returns the default directory for caches, artifacts and history.
func DataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".cropcast")
	}
	return filepath.Join(home, ".local", "share", "cropcast")
}

// SetDefaults registers every default on v and binds the upstream
// application's environment variable names.
func SetDefaults(v *viper.Viper) {
	dataDir := DataDir()

	v.SetDefault("database.enabled", true)
	v.SetDefault("database.driver", "mysql")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.name", "cropyield")
	v.SetDefault("database.user", "root")
	v.SetDefault("database.password", "")
	v.SetDefault("database.port", 3306)
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.timeout", 5*time.Second)
	v.SetDefault("database.retries", 2)
	v.SetDefault("database.min_rows", 100)
	v.SetDefault("database.target_column", "predictedYield")

	v.SetDefault("cache.path", filepath.Join(dataDir, "training_data.csv"))
	v.SetDefault("model.dir", filepath.Join(dataDir, "model"))

	v.SetDefault("training.seed", 42)
	v.SetDefault("training.synthetic_samples", 2000)
	v.SetDefault("training.min_rows", 100)
	v.SetDefault("training.trees", 100)
	v.SetDefault("training.max_depth", 10)
	v.SetDefault("training.max_features", 0)
	v.SetDefault("training.workers", 0)
	v.SetDefault("training.folds", 5)
	v.SetDefault("training.test_size", 0.2)

	v.SetDefault("server.addr", ":5000")
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 5*time.Minute)

	v.SetDefault("history.enabled", false)
	v.SetDefault("history.path", filepath.Join(dataDir, "history.db"))

	_ = v.BindEnv("database.host", "DB_HOST")
	_ = v.BindEnv("database.name", "DB_NAME")
	_ = v.BindEnv("database.user", "DB_USER")
	_ = v.BindEnv("database.password", "DB_PASSWORD")
	_ = v.BindEnv("database.port", "DB_PORT")
	_ = v.BindEnv("database.dsn", "DATABASE_URL")
}

// Load builds a Config from v. Defaults must already be registered.
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Database: DatabaseConfig{
			Enabled:      v.GetBool("database.enabled"),
			Driver:       v.GetString("database.driver"),
			Host:         v.GetString("database.host"),
			Name:         v.GetString("database.name"),
			User:         v.GetString("database.user"),
			Password:     v.GetString("database.password"),
			Port:         v.GetInt("database.port"),
			DSN:          v.GetString("database.dsn"),
			Timeout:      v.GetDuration("database.timeout"),
			Retries:      v.GetInt("database.retries"),
			MinRows:      v.GetInt("database.min_rows"),
			TargetColumn: v.GetString("database.target_column"),
		},
		Cache: CacheConfig{
			Path: ExpandPath(v.GetString("cache.path")),
		},
		Model: ModelConfig{
			Dir: ExpandPath(v.GetString("model.dir")),
		},
		Training: TrainingConfig{
			Seed:             v.GetUint64("training.seed"),
			SyntheticSamples: v.GetInt("training.synthetic_samples"),
			MinRows:          v.GetInt("training.min_rows"),
			Trees:            v.GetInt("training.trees"),
			MaxDepth:         v.GetInt("training.max_depth"),
			MaxFeatures:      v.GetInt("training.max_features"),
			Workers:          v.GetInt("training.workers"),
			Folds:            v.GetInt("training.folds"),
			TestSize:         v.GetFloat64("training.test_size"),
		},
		Server: ServerConfig{
			Addr:         v.GetString("server.addr"),
			ReadTimeout:  v.GetDuration("server.read_timeout"),
			WriteTimeout: v.GetDuration("server.write_timeout"),
		},
		History: HistoryConfig{
			Enabled: v.GetBool("history.enabled"),
			Path:    ExpandPath(v.GetString("history.path")),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the configuration produced by defaults alone.
func Default() *Config {
	v := viper.New()
	SetDefaults(v)
	cfg, err := Load(v)
	if err != nil {
		panic(fmt.Sprintf("default configuration is invalid: %v", err))
	}
	return cfg
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "mysql", "pgx", "postgres", "sqlite3":
	default:
		return fmt.Errorf("%w: unsupported database driver %q", common.ErrInvalidConfig, c.Database.Driver)
	}
	if c.Database.Timeout <= 0 {
		return fmt.Errorf("%w: database.timeout must be positive", common.ErrInvalidConfig)
	}
	if c.Database.TargetColumn == "" {
		return fmt.Errorf("%w: database.target_column is required", common.ErrMissingConfig)
	}
	if c.Cache.Path == "" {
		return fmt.Errorf("%w: cache.path is required", common.ErrMissingConfig)
	}
	if c.Model.Dir == "" {
		return fmt.Errorf("%w: model.dir is required", common.ErrMissingConfig)
	}
	if c.Training.SyntheticSamples < c.Training.MinRows {
		return fmt.Errorf("%w: training.synthetic_samples (%d) must be at least training.min_rows (%d)",
			common.ErrInvalidConfig, c.Training.SyntheticSamples, c.Training.MinRows)
	}
	if c.Training.Trees <= 0 {
		return fmt.Errorf("%w: training.trees must be positive", common.ErrInvalidConfig)
	}
	if c.Training.TestSize <= 0 || c.Training.TestSize >= 1 {
		return fmt.Errorf("%w: training.test_size must be in (0, 1)", common.ErrInvalidConfig)
	}
	if c.Training.Folds < 2 {
		return fmt.Errorf("%w: training.folds must be at least 2", common.ErrInvalidConfig)
	}
	return nil
}
