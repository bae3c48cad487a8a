package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/hupe1980/relate"
	"github.com/hupe1980/relate/config"
	"github.com/hupe1980/relate/params"
	"github.com/hupe1980/relate/store"
)

// openStore opens the store named by the global flags.
func openStore(ctx context.Context, opts *RootOptions) (*store.Store, error) {
	cfg := &config.Config{Store: config.StoreConfig{Backend: config.BackendLocal, Root: opts.Root}}
	if opts.Config != "" {
		loaded, err := config.Load(opts.Config)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to load config", err)
		}
		cfg = loaded
	} else {
		config.ApplyDefaults(cfg)
		if _, err := os.Stat(opts.Root); err != nil {
			return nil, WrapExitError(ExitCommandError, "store not found", err)
		}
	}

	level := slog.LevelWarn
	if opts.Verbose {
		level = slog.LevelDebug
	}
	logger := relate.NewTextLogger(level)

	st, err := relate.OpenStore(ctx, cfg.Store, store.WithLogger(logger.Logger))
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open store", err)
	}
	return st, nil
}

// parseParams turns name=value pairs into parameters. Values parse as int,
// float, bool or a comma-separated float list before falling back to string.
func parseParams(pairs []string) (params.Params, error) {
	if len(pairs) == 0 {
		return nil, nil
	}

	raw := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		name, value, ok := strings.Cut(pair, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid parameter %q: want name=value", pair)
		}
		raw[name] = parseValue(value)
	}
	return params.New(raw)
}

func parseValue(s string) any {
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	if strings.Contains(s, ",") {
		parts := strings.Split(s, ",")
		fs := make([]float64, 0, len(parts))
		for _, p := range parts {
			f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
			if err != nil {
				return s
			}
			fs = append(fs, f)
		}
		return fs
	}
	return s
}

// basedOn builds the reference flags of collection commands.
func basedOn(name string, pairs []string) (*store.Reference, error) {
	if name == "" {
		if len(pairs) > 0 {
			return nil, fmt.Errorf("--based-on-param requires --based-on")
		}
		return nil, nil
	}
	p, err := parseParams(pairs)
	if err != nil {
		return nil, err
	}
	return store.Ref(name, p), nil
}
