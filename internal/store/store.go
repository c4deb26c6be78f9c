// Package store persists everything the engine learns: cached bonuses,
// abstract patterns, cluster geometry, evaluator weight constants and a
// game log. The Store interface is what components receive; Badger is the
// durable implementation and Memory the ephemeral one used in tests and
// throwaway sessions.
package store

import (
	"errors"
	"time"

	"github.com/hailam/chessmind/internal/game"
)

// ErrNotFound is returned by point lookups when no row exists.
var ErrNotFound = errors.New("store: not found")

// CacheRow is a persisted pattern_cache entry: a learned bonus for one
// exact (position, move) pair.
type CacheRow struct {
	Key       game.PatternKey `json:"key"`
	Bonus     float64         `json:"bonus"`
	Uses      int             `json:"uses"`
	QueryMS   float64         `json:"query_ms"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// PatternRow is a persisted abstract pattern with its outcome counters.
// Type carries the pattern type slug; the pattern package owns the closed
// enum and converts on load.
type PatternRow struct {
	Type        string    `json:"type"`
	Description string    `json:"description"`
	TimesSeen   int       `json:"times_seen"`
	Wins        int       `json:"wins"`
	Losses      int       `json:"losses"`
	Draws       int       `json:"draws"`
	AvgLoss     float64   `json:"avg_loss"`
	WinRate     float64   `json:"win_rate"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ClusterRow is a persisted cluster center.
type ClusterRow struct {
	ID        int       `json:"id"`
	Center    []float64 `json:"center"`
	Size      int       `json:"size"`
	UpdatedAt time.Time `json:"updated_at"`
}

// MemberRow assigns one sampled position to a cluster, with its distance
// to the center at build time.
type MemberRow struct {
	Cluster  int           `json:"cluster"`
	Position game.Position `json:"position"`
	Distance float64       `json:"distance"`
}

// WeightRow is one discovered evaluator weight constant. Names are dotted,
// e.g. "middlegame.mobility" or "material.scale".
type WeightRow struct {
	Name      string    `json:"name"`
	Value     float64   `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// GameRow is one completed game in the log.
type GameRow struct {
	ID        string    `json:"id"`
	Mover     string    `json:"mover"`
	Result    string    `json:"result"`
	Plies     int       `json:"plies"`
	Mistakes  int       `json:"mistakes"`
	CreatedAt time.Time `json:"created_at"`
}

// CacheRepo is the pattern_cache table. Upserts are idempotent; replaying
// a batch converges to the same state.
type CacheRepo interface {
	Upsert(rows []CacheRow) error
	Get(key game.PatternKey) (CacheRow, error)
	// Top returns up to n rows ordered by Uses descending.
	Top(n int) ([]CacheRow, error)
}

// PatternRepo is the abstract_patterns table, keyed by (type, description).
type PatternRepo interface {
	Upsert(rows []PatternRow) error
	Get(typ, description string) (PatternRow, error)
	All() ([]PatternRow, error)
}

// ClusterRepo is the clusters and cluster_membership tables. A build
// replaces both wholesale; reads never observe a half-written index
// within one call.
type ClusterRepo interface {
	ReplaceAll(centers []ClusterRow, members []MemberRow) error
	Centers() ([]ClusterRow, error)
	// Members returns the rows of one cluster ordered by Distance
	// ascending.
	Members(cluster int) ([]MemberRow, error)
}

// WeightsRepo is the evaluator weights table.
type WeightsRepo interface {
	Upsert(rows []WeightRow) error
	Get(name string) (WeightRow, error)
	All() ([]WeightRow, error)
}

// GamesRepo is the game log.
type GamesRepo interface {
	Insert(row GameRow) error
	Has(id string) (bool, error)
	// Recent returns up to n rows, newest first.
	Recent(n int) ([]GameRow, error)
}

// Store bundles the repositories behind one injected connection.
type Store interface {
	Cache() CacheRepo
	Patterns() PatternRepo
	Clusters() ClusterRepo
	Weights() WeightsRepo
	Games() GamesRepo
	Close() error
}
