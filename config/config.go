// Package config provides YAML configuration for stores and LER defaults.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/hupe1980/relate/ann"
	"github.com/hupe1980/relate/codec"
	"github.com/hupe1980/relate/dissim"
	"github.com/hupe1980/relate/ler"
	"github.com/hupe1980/relate/seed"
	"github.com/hupe1980/relate/store"
)

// Backend names accepted in StoreConfig.Backend.
const (
	BackendLocal    = "local"
	BackendMemory   = "memory"
	BackendBolt     = "bolt"
	BackendSQLite   = "sqlite"
	BackendS3       = "s3"
	BackendMinIO    = "minio"
	BackendDynamoDB = "dynamodb"
)

// Config holds all configuration for the application.
type Config struct {
	Store StoreConfig `yaml:"store"`
	LER   LERConfig   `yaml:"ler"`
	Log   LogConfig   `yaml:"log"`
}

// StoreConfig selects and configures the persistence medium.
type StoreConfig struct {
	Backend string `yaml:"backend"`
	// Root is the directory of the local backend or the database file of
	// the bolt and sqlite backends.
	Root               string         `yaml:"root"`
	Codec              string         `yaml:"codec"`
	Compression        string         `yaml:"compression"`
	WriteMode          string         `yaml:"write_mode"`
	CacheBytes         int64          `yaml:"cache_bytes"`
	IOLimitBytesPerSec int64          `yaml:"io_limit_bytes_per_sec"`
	S3                 S3Config       `yaml:"s3"`
	MinIO              MinIOConfig    `yaml:"minio"`
	DynamoDB           DynamoDBConfig `yaml:"dynamodb"`
}

// S3Config holds Amazon S3 settings.
type S3Config struct {
	Bucket       string `yaml:"bucket"`
	Prefix       string `yaml:"prefix"`
	Region       string `yaml:"region"`
	Endpoint     string `yaml:"endpoint"`
	UsePathStyle bool   `yaml:"use_path_style"`
}

// MinIOConfig holds MinIO settings.
type MinIOConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Secure    bool   `yaml:"secure"`
	Region    string `yaml:"region"`
	Bucket    string `yaml:"bucket"`
	Prefix    string `yaml:"prefix"`
}

// DynamoDBConfig holds DynamoDB settings.
type DynamoDBConfig struct {
	Table    string `yaml:"table"`
	Region   string `yaml:"region"`
	Endpoint string `yaml:"endpoint"`
}

// LERConfig holds the defaults of LER computations.
type LERConfig struct {
	Epsilon float64     `yaml:"epsilon"`
	Metric  string      `yaml:"metric"`
	Gamma   float64     `yaml:"gamma"`
	Method  string      `yaml:"method"`
	Workers int         `yaml:"workers"`
	Index   IndexConfig `yaml:"index"`
}

// IndexConfig holds nearest-prototype index settings.
type IndexConfig struct {
	Kind      string `yaml:"kind"`
	M         int    `yaml:"m"`
	EF        int    `yaml:"ef"`
	EFSearch  int    `yaml:"ef_search"`
	Seed      int64  `yaml:"seed"`
	Heuristic *bool  `yaml:"heuristic"`
}

// HeuristicOrDefault returns whether diverse neighbor selection is enabled;
// defaults to true when unset.
func (c *IndexConfig) HeuristicOrDefault() bool {
	if c.Heuristic != nil {
		return *c.Heuristic
	}
	return true
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads and parses the config file at path, expands paths, and applies defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)

	if cfg.Store.Backend == BackendLocal || cfg.Store.Backend == BackendBolt || cfg.Store.Backend == BackendSQLite {
		cfg.Store.Root = expandPath(cfg.Store.Root, filepath.Dir(path))
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}

// Validate checks that every named component exists.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case BackendLocal, BackendBolt, BackendSQLite:
		if c.Store.Root == "" {
			return fmt.Errorf("config: store.root is required for the %s backend", c.Store.Backend)
		}
	case BackendMemory:
	case BackendS3:
		if c.Store.S3.Bucket == "" {
			return fmt.Errorf("config: store.s3.bucket is required")
		}
	case BackendMinIO:
		if c.Store.MinIO.Endpoint == "" || c.Store.MinIO.Bucket == "" {
			return fmt.Errorf("config: store.minio.endpoint and store.minio.bucket are required")
		}
	case BackendDynamoDB:
		if c.Store.DynamoDB.Table == "" {
			return fmt.Errorf("config: store.dynamodb.table is required")
		}
	default:
		return fmt.Errorf("config: unknown store backend %q", c.Store.Backend)
	}

	if _, err := c.Store.Options(); err != nil {
		return err
	}
	if _, err := c.LER.Dissim(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if _, err := c.LER.Strategy(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if _, err := c.Log.SlogLevel(); err != nil {
		return err
	}
	return nil
}

// Options returns the store options described by c.
func (c StoreConfig) Options() ([]func(o *store.Options), error) {
	var opts []func(o *store.Options)

	if c.Codec != "" {
		cd, ok := codec.ByName(c.Codec)
		if !ok {
			return nil, fmt.Errorf("config: unknown codec %q", c.Codec)
		}
		opts = append(opts, store.WithCodec(cd))
	}

	comp, err := codec.ParseCompression(c.Compression)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	opts = append(opts, store.WithCompression(comp))

	switch c.WriteMode {
	case "", "replace":
		opts = append(opts, store.WithWriteMode(store.WriteReplace))
	case "exclusive":
		opts = append(opts, store.WithWriteMode(store.WriteExclusive))
	default:
		return nil, fmt.Errorf("config: unknown write mode %q", c.WriteMode)
	}
	return opts, nil
}

// Dissim returns the configured dissimilarity function.
func (c LERConfig) Dissim() (dissim.Func, error) {
	if c.Metric == "gaussian" {
		gamma := c.Gamma
		if gamma == 0 {
			gamma = dissim.DefaultGamma
		}
		return dissim.NewGaussian(gamma)
	}
	return dissim.ByTag(c.Metric)
}

// Strategy returns the configured nearest-prototype index.
func (c LERConfig) Strategy() (ann.Strategy, error) {
	switch c.Index.Kind {
	case "", "hnsw":
		h := ann.DefaultHNSW
		if c.Index.M > 0 {
			h.M = c.Index.M
		}
		if c.Index.EF > 0 {
			h.EF = c.Index.EF
		}
		if c.Index.EFSearch > 0 {
			h.EFSearch = c.Index.EFSearch
		}
		if c.Index.Seed != 0 {
			h.Seed = c.Index.Seed
		}
		h.Heuristic = c.Index.HeuristicOrDefault()
		return h, nil
	default:
		return ann.ByName(c.Index.Kind)
	}
}

// Build returns the ler.Config for c with the given seed provider.
func (c LERConfig) Build(sp seed.Provider) (ler.Config, error) {
	d, err := c.Dissim()
	if err != nil {
		return ler.Config{}, err
	}
	idx, err := c.Strategy()
	if err != nil {
		return ler.Config{}, err
	}
	return ler.Config{
		Epsilon: c.Epsilon,
		Dissim:  d,
		Index:   idx,
		Seed:    sp,
		Method:  c.Method,
	}, nil
}

// SlogLevel parses the configured level.
func (c LogConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Level)); err != nil {
		return 0, fmt.Errorf("config: log level: %w", err)
	}
	return level, nil
}
