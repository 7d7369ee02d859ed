// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/book-enricher/internal/provider"
	"github.com/pdiddy/book-enricher/pkg/types"
)

// setDefaults registers DefaultConfig with v so unset keys and env-only
// settings decode to the same values.
func setDefaults(v *viper.Viper) {
	d := types.DefaultConfig()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("enrichment.strategy", d.Enrichment.Strategy)
	v.SetDefault("enrichment.max_providers", d.Enrichment.MaxProviders)
	v.SetDefault("enrichment.min_reliability", d.Enrichment.MinReliability)
	v.SetDefault("enrichment.operation_timeout", d.Enrichment.OperationTimeout)
	v.SetDefault("enrichment.baseline_reliability", d.Enrichment.BaselineReliability)
	v.SetDefault("enrichment.recent_edition_window", d.Enrichment.RecentEditionWindow)
	v.SetDefault("enrichment.max_edition_alternatives", d.Enrichment.MaxEditionAlternatives)
	v.SetDefault("enrichment.retry.max_attempts", d.Enrichment.Retry.MaxAttempts)
	v.SetDefault("enrichment.retry.base_delay", d.Enrichment.Retry.BaseDelay)
	v.SetDefault("enrichment.retry.max_delay", d.Enrichment.Retry.MaxDelay)
	v.SetDefault("catalog.dir", d.Catalog.Dir)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)

	// LOG_LEVEL is honoured when the prefixed variable is unset.
	_ = v.BindEnv("log.level", "BOOK_ENRICHER_LOG_LEVEL", "LOG_LEVEL")
}

// loadConfig decodes the merged file, env, and flag settings.
func loadConfig() (types.Config, error) {
	var cfg types.Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("decoding configuration: %w", err)
	}
	return cfg, nil
}

func setupLogger() error {
	logger, err := newLogger(viper.GetString("log.level"), viper.GetString("log.format"), os.Stderr)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)
	return nil
}

// newLogger builds a text or JSON slog logger writing to w.
func newLogger(level, format string, w io.Writer) (*slog.Logger, error) {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "text", "console":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("log format: unsupported value %q", format)
	}
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// loadProviders builds static providers from the configuration plus any
// --fixtures file. A fixture provider replaces a configured one of the
// same name.
func loadProviders(cmd *cobra.Command, cfg types.Config) ([]provider.Provider, error) {
	cfgs := append([]types.ProviderConfig(nil), cfg.Providers...)
	if path, _ := cmd.Flags().GetString("fixtures"); path != "" {
		fixtures, err := provider.LoadFixtures(path)
		if err != nil {
			return nil, err
		}
		for _, f := range fixtures {
			replaced := false
			for i := range cfgs {
				if cfgs[i].Name == f.Name {
					cfgs[i] = f
					replaced = true
				}
			}
			if !replaced {
				cfgs = append(cfgs, f)
			}
		}
	}
	if len(cfgs) == 0 {
		return nil, fmt.Errorf("no providers configured: add providers to book-enricher.yaml or pass --fixtures")
	}
	return provider.FromConfigs(cfgs), nil
}
