package config

import (
	"context"
	"os"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// Catalog holds the current property catalog and swaps it atomically on reload.
type Catalog struct {
	current atomic.Pointer[PropertiesConfig]
}

// NewCatalog returns a catalog seeded with cfg.
func NewCatalog(cfg *PropertiesConfig) *Catalog {
	c := &Catalog{}
	c.current.Store(cfg)
	return c
}

// Get returns the active catalog.
func (c *Catalog) Get() *PropertiesConfig {
	return c.current.Load()
}

// Set replaces the active catalog.
func (c *Catalog) Set(cfg *PropertiesConfig) {
	c.current.Store(cfg)
}

// WatchProperties reloads properties.yaml on change and calls onUpdate with the latest config.
// It performs an initial load before entering the watch loop.
func WatchProperties(ctx context.Context, path string, interval time.Duration, logger *zerolog.Logger, onUpdate func(*PropertiesConfig)) error {
	if path == "" {
		path = "configs/properties.yaml"
	}
	if interval <= 0 {
		interval = 30 * time.Second
	}

	cfg, err := LoadPropertiesConfig(path)
	if err != nil {
		return err
	}
	if onUpdate != nil {
		onUpdate(cfg)
	}

	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	lastMod := info.ModTime()

	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				info, err := os.Stat(path)
				if err != nil {
					continue // transient errors
				}
				if !info.ModTime().After(lastMod) {
					continue
				}
				cfg, err := LoadPropertiesConfig(path)
				if err != nil {
					if logger != nil {
						logger.Error().Err(err).Str("path", path).Msg("Properties reload rejected, keeping previous catalog")
					}
					lastMod = info.ModTime()
					continue
				}
				lastMod = info.ModTime()
				if logger != nil {
					logger.Info().Str("catalog", cfg.String()).Msg("Properties reloaded")
				}
				if onUpdate != nil {
					onUpdate(cfg)
				}
			}
		}
	}()

	return nil
}
