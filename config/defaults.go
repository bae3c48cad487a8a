package config

import (
	"github.com/hupe1980/relate/ann"
	"github.com/hupe1980/relate/ler"
)

// DefaultEpsilon is the clustering threshold used when none is configured.
const DefaultEpsilon = 0.025

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Store.Backend == "" {
		cfg.Store.Backend = BackendLocal
	}
	if cfg.Store.Root == "" && cfg.Store.Backend == BackendLocal {
		cfg.Store.Root = "./store"
	}
	if cfg.Store.Codec == "" {
		cfg.Store.Codec = "go-json"
	}
	if cfg.Store.Compression == "" {
		cfg.Store.Compression = "zstd"
	}
	if cfg.Store.WriteMode == "" {
		cfg.Store.WriteMode = "replace"
	}
	if cfg.LER.Epsilon == 0 {
		cfg.LER.Epsilon = DefaultEpsilon
	}
	if cfg.LER.Metric == "" {
		cfg.LER.Metric = "euclidean"
	}
	if cfg.LER.Method == "" {
		cfg.LER.Method = ler.DefaultMethod
	}
	if cfg.LER.Index.Kind == "" {
		cfg.LER.Index.Kind = "hnsw"
	}
	if cfg.LER.Index.Kind == "hnsw" {
		if cfg.LER.Index.M == 0 {
			cfg.LER.Index.M = ann.DefaultHNSW.M
		}
		if cfg.LER.Index.EF == 0 {
			cfg.LER.Index.EF = ann.DefaultHNSW.EF
		}
		if cfg.LER.Index.EFSearch == 0 {
			cfg.LER.Index.EFSearch = ann.DefaultHNSW.EFSearch
		}
		if cfg.LER.Index.Seed == 0 {
			cfg.LER.Index.Seed = ann.DefaultHNSW.Seed
		}
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}
