// Package config holds the tunable constants of the VM and collector:
// values spec.md fixes as defaults (a 1 MiB initial GC threshold, a growth
// factor of 2, a 64-deep call-frame stack) but that are useful to override
// when embedding or stress-testing the interpreter, the same role the
// teacher repo's Thread fields (MaxSteps, MaxCallStackDepth,
// DisableRecursion) play for its machine.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// VM collects the VM and GC tuning knobs.
type VM struct {
	// InitialGCThreshold is the bytesAllocated value (spec.md 4.6) that
	// triggers the very first collection.
	InitialGCThreshold int `yaml:"initial_gc_threshold"`
	// GCGrowthFactor multiplies bytesAllocated after a sweep to compute the
	// next threshold.
	GCGrowthFactor float64 `yaml:"gc_growth_factor"`
	// FramesMax is the maximum call-frame depth (spec.md invariant 8).
	FramesMax int `yaml:"frames_max"`
	// StackSlotsPerFrame bounds the value-stack capacity, FramesMax *
	// StackSlotsPerFrame.
	StackSlotsPerFrame int `yaml:"stack_slots_per_frame"`
	// StressGC forces a collection on every allocation, trading throughput
	// for the strongest possible shakeout of GC bugs.
	StressGC bool `yaml:"stress_gc"`
}

// Default returns spec.md's defaults: a 1 MiB initial threshold, growth
// factor 2, 64 frames of 256 stack slots each, stress mode off.
func Default() VM {
	return VM{
		InitialGCThreshold: 1024 * 1024,
		GCGrowthFactor:     2,
		FramesMax:          64,
		StackSlotsPerFrame: 256,
		StressGC:           false,
	}
}

// Load reads a YAML document at path and overlays it onto Default. A
// missing file is not an error: it simply yields the defaults, since
// spec.md describes no required configuration file.
func Load(path string) (VM, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}
