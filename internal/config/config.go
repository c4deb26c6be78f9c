// Package config holds the engine configuration: a tuned default baseline
// with an optional YAML overlay. Every tunable the engine consults lives
// here; components receive their sub-config at construction.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level engine configuration.
type Config struct {
	Store   StoreConfig   `yaml:"store"`
	Search  SearchConfig  `yaml:"search"`
	Cache   CacheConfig   `yaml:"cache"`
	Cluster ClusterConfig `yaml:"cluster"`
	Pattern PatternConfig `yaml:"pattern"`
}

// StoreConfig configures the persistent store.
type StoreConfig struct {
	// Dir is the badger directory. Empty means the per-OS data dir.
	Dir string `yaml:"dir"`
}

// SearchConfig configures the two-stage search.
type SearchConfig struct {
	// MaxDepth is the iterative-deepening ceiling for the recursive stage.
	MaxDepth int `yaml:"max_depth"`
	// TimeBudget is the wall-clock budget shared by both stages.
	// Zero still yields a legal move: the first fully scored root
	// candidate stands.
	TimeBudget time.Duration `yaml:"time_budget"`
	// SimilarLimit is how many cluster neighbors an expensive query pulls.
	SimilarLimit int `yaml:"similar_limit"`
	// MistakeThreshold is the material loss, in pawn units, above which a
	// played move counts as a mistake worth abstracting.
	MistakeThreshold float64 `yaml:"mistake_threshold"`
}

// CacheConfig configures the adaptive pattern cache.
type CacheConfig struct {
	// BootstrapLookups is how many initial lookups always allow expensive
	// queries, regardless of hit rate.
	BootstrapLookups int `yaml:"bootstrap_lookups"`
	// TargetHitRate gates expensive queries after bootstrap: below it
	// they stay enabled.
	TargetHitRate float64 `yaml:"target_hit_rate"`
	// ExploreInterval forces an expensive query on every n-th lookup so
	// the cache never goes fully stale.
	ExploreInterval int `yaml:"explore_interval"`
	// PersistMinBonus and PersistMinCost gate the persistent tier: only
	// results with |bonus| above the one and query cost above the other
	// are written through.
	PersistMinBonus float64       `yaml:"persist_min_bonus"`
	PersistMinCost  time.Duration `yaml:"persist_min_cost"`
	// WinMultiplier (>1) and LossMultiplier (<1) scale touched bonuses on
	// game outcomes.
	WinMultiplier  float64 `yaml:"win_multiplier"`
	LossMultiplier float64 `yaml:"loss_multiplier"`
	// WarmStartN is how many persisted entries, by use count, are loaded
	// into memory at startup.
	WarmStartN int `yaml:"warm_start_n"`
	// FlushEvery batches persistent writes: the buffer flushes after this
	// many pending rows and at game end.
	FlushEvery int `yaml:"flush_every"`
}

// ClusterConfig configures the position clustering index.
type ClusterConfig struct {
	// Clusters is K, the fixed number of centers.
	Clusters int `yaml:"clusters"`
	// MaxIterations bounds centroid refinement during an offline build.
	MaxIterations int `yaml:"max_iterations"`
	// Workers bounds feature-extraction parallelism during a build.
	Workers int `yaml:"workers"`
}

// PatternConfig configures the pattern abstraction engine.
type PatternConfig struct {
	// MinConfidence filters the violation read path: patterns seen fewer
	// than MinConfidence*10 times stay advisory-only.
	MinConfidence float64 `yaml:"min_confidence"`
	// FlushEvery batches pattern upserts like cache writes.
	FlushEvery int `yaml:"flush_every"`
}

// Default returns the tuned baseline configuration.
func Default() Config {
	return Config{
		Store: StoreConfig{},
		Search: SearchConfig{
			MaxDepth:         4,
			TimeBudget:       2 * time.Second,
			SimilarLimit:     5,
			MistakeThreshold: 1.0,
		},
		Cache: CacheConfig{
			BootstrapLookups: 50,
			TargetHitRate:    0.35,
			ExploreInterval:  20,
			PersistMinBonus:  5.0,
			PersistMinCost:   10 * time.Millisecond,
			WinMultiplier:    1.25,
			LossMultiplier:   0.7,
			WarmStartN:       100,
			FlushEvery:       32,
		},
		Cluster: ClusterConfig{
			Clusters:      16,
			MaxIterations: 20,
			Workers:       4,
		},
		Pattern: PatternConfig{
			MinConfidence: 0.3,
			FlushEvery:    32,
		},
	}
}

// Load returns the defaults overlaid with the YAML file at path. A missing
// file means pure defaults; a present but invalid file is an error.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}

	cfg.normalize()
	return cfg, nil
}

// normalize snaps zero and negative fields back to their defaults so a
// sparse overlay never zeroes a tunable.
func (c *Config) normalize() {
	def := Default()

	if c.Search.MaxDepth <= 0 {
		c.Search.MaxDepth = def.Search.MaxDepth
	}
	if c.Search.TimeBudget < 0 {
		c.Search.TimeBudget = def.Search.TimeBudget
	}
	if c.Search.SimilarLimit <= 0 {
		c.Search.SimilarLimit = def.Search.SimilarLimit
	}
	if c.Search.MistakeThreshold <= 0 {
		c.Search.MistakeThreshold = def.Search.MistakeThreshold
	}

	if c.Cache.BootstrapLookups <= 0 {
		c.Cache.BootstrapLookups = def.Cache.BootstrapLookups
	}
	if c.Cache.TargetHitRate <= 0 || c.Cache.TargetHitRate > 1 {
		c.Cache.TargetHitRate = def.Cache.TargetHitRate
	}
	if c.Cache.ExploreInterval <= 0 {
		c.Cache.ExploreInterval = def.Cache.ExploreInterval
	}
	if c.Cache.PersistMinBonus <= 0 {
		c.Cache.PersistMinBonus = def.Cache.PersistMinBonus
	}
	if c.Cache.PersistMinCost <= 0 {
		c.Cache.PersistMinCost = def.Cache.PersistMinCost
	}
	if c.Cache.WinMultiplier <= 1 {
		c.Cache.WinMultiplier = def.Cache.WinMultiplier
	}
	if c.Cache.LossMultiplier <= 0 || c.Cache.LossMultiplier >= 1 {
		c.Cache.LossMultiplier = def.Cache.LossMultiplier
	}
	if c.Cache.WarmStartN <= 0 {
		c.Cache.WarmStartN = def.Cache.WarmStartN
	}
	if c.Cache.FlushEvery <= 0 {
		c.Cache.FlushEvery = def.Cache.FlushEvery
	}

	if c.Cluster.Clusters <= 0 {
		c.Cluster.Clusters = def.Cluster.Clusters
	}
	if c.Cluster.MaxIterations <= 0 {
		c.Cluster.MaxIterations = def.Cluster.MaxIterations
	}
	if c.Cluster.Workers <= 0 {
		c.Cluster.Workers = def.Cluster.Workers
	}

	if c.Pattern.MinConfidence <= 0 || c.Pattern.MinConfidence > 1 {
		c.Pattern.MinConfidence = def.Pattern.MinConfidence
	}
	if c.Pattern.FlushEvery <= 0 {
		c.Pattern.FlushEvery = def.Pattern.FlushEvery
	}
}
