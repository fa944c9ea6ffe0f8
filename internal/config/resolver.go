package config

import (
	"maps"
	"slices"
)

// Resolve lists the module IDs enabled in cfg, sorted so modules load and
// start in a stable order across runs.
func Resolve(cfg *Config) []string {
	return slices.Sorted(maps.Keys(cfg.Modules))
}
