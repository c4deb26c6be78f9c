// Package cache is the adaptive two-tier pattern cache. The in-memory
// tier answers exact (position, move) probes for the lifetime of the
// process; the persistent tier keeps only bonuses that were both
// meaningful and expensive to compute, and seeds the next process via a
// top-N warm start. A self-tuning policy decides when the expensive
// query pipeline behind a miss is worth running at all.
package cache

import (
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/hailam/chessmind/internal/config"
	"github.com/hailam/chessmind/internal/game"
	"github.com/hailam/chessmind/internal/store"
)

// QueryFunc computes a bonus the expensive way: pattern violations plus
// cluster transfer. It runs at most once per cached key.
type QueryFunc func() (float64, error)

// Entry is one in-memory cached bonus. Persisted marks that the
// persistent tier holds a row for this key.
type Entry struct {
	Bonus     float64
	Uses      int
	Cost      time.Duration
	Persisted bool
}

// Stats is a point-in-time snapshot of cache behavior.
type Stats struct {
	Lookups          int
	Hits             int
	HitRate          float64
	Entries          int
	ExpensiveQueries int
	PersistedWrites  int
	Evictions        int
}

// Cache is safe for the engine's single-threaded search loop; it is not
// safe for concurrent use.
type Cache struct {
	repo store.CacheRepo
	cfg  config.CacheConfig
	log  *slog.Logger

	entries map[game.PatternKey]*Entry
	pending map[game.PatternKey]store.CacheRow

	lookups   int
	hits      int
	expensive int
	persisted int
	evictions int
}

// New builds the cache and warm-starts it from the most used persisted
// rows. A failing store means starting cold, never an error.
func New(repo store.CacheRepo, cfg config.CacheConfig, log *slog.Logger) *Cache {
	if log == nil {
		log = slog.Default()
	}
	c := &Cache{
		repo:    repo,
		cfg:     cfg,
		log:     log,
		entries: make(map[game.PatternKey]*Entry),
		pending: make(map[game.PatternKey]store.CacheRow),
	}

	rows, err := repo.Top(cfg.WarmStartN)
	if err != nil {
		log.Warn("cache warm start failed, starting cold", "err", err)
		return c
	}
	for _, row := range rows {
		if row.Uses <= 0 {
			continue // rows zeroed by ClearLosingLines stay dead
		}
		c.entries[row.Key] = &Entry{
			Bonus:     row.Bonus,
			Uses:      row.Uses,
			Cost:      time.Duration(row.QueryMS * float64(time.Millisecond)),
			Persisted: true,
		}
	}
	if len(c.entries) > 0 {
		log.Debug("cache warm started", "entries", len(c.entries))
	}
	return c
}

// ShouldExplore is the cost/quality policy: always during the bootstrap
// lookups, afterwards whenever the hit rate has fallen below target, and
// on a fixed cadence regardless so the cache never goes permanently
// stale.
func (c *Cache) ShouldExplore() bool {
	if c.lookups < c.cfg.BootstrapLookups {
		return true
	}
	if c.HitRate() < c.cfg.TargetHitRate {
		return true
	}
	return c.lookups%c.cfg.ExploreInterval == 0
}

// Bonus returns the cached bonus for (pos, mv) and whether it was a hit.
// On a miss with a non-nil fn, the expensive query runs, its result is
// cached, and results that are both large and slow to compute are staged
// for the persistent tier. A nil fn makes a miss a plain zero. Query
// failures become a zero bonus and never propagate.
func (c *Cache) Bonus(pos game.Position, mv game.Move, fn QueryFunc) (float64, bool) {
	c.lookups++
	key := game.Key(pos, mv)

	if e, ok := c.entries[key]; ok {
		c.hits++
		e.Uses++
		return e.Bonus, true
	}

	if fn == nil {
		return 0, false
	}

	bonus, cost := c.runQuery(pos, mv, fn)
	e := &Entry{Bonus: bonus, Uses: 1, Cost: cost}
	c.entries[key] = e

	if math.Abs(bonus) > c.cfg.PersistMinBonus && cost > c.cfg.PersistMinCost {
		e.Persisted = true
		c.stage(key, e)
	}
	return bonus, false
}

// Peek is the exact-match probe for the recursive search stage: no
// expensive query, no policy accounting, just the entry if one exists.
func (c *Cache) Peek(pos game.Position, mv game.Move) (float64, bool) {
	e, ok := c.entries[game.Key(pos, mv)]
	if !ok {
		return 0, false
	}
	e.Uses++
	return e.Bonus, true
}

func (c *Cache) runQuery(pos game.Position, mv game.Move, fn QueryFunc) (bonus float64, cost time.Duration) {
	c.expensive++
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			bonus = 0
			cost = time.Since(start)
			c.log.Warn("expensive query panicked", "pos", pos, "move", mv, "panic", r)
		}
	}()

	b, err := fn()
	cost = time.Since(start)
	if err != nil {
		c.log.Warn("expensive query failed", "pos", pos, "move", mv, "err", err)
		return 0, cost
	}
	return b, cost
}

// ApplyOutcome scales every still-cached bonus touched during the game:
// up on a win, down on a loss, untouched on a draw. Scaled entries that
// live in the persistent tier are staged so both tiers agree. Each key is
// scaled once no matter how often the game revisited it.
func (c *Cache) ApplyOutcome(history []game.MoveRecord, result game.Result) {
	if result == game.Draw {
		return
	}
	mult := c.cfg.WinMultiplier
	if result == game.Loss {
		mult = c.cfg.LossMultiplier
	}

	seen := make(map[game.PatternKey]bool, len(history))
	for _, rec := range history {
		key := game.Key(rec.Before, rec.Move)
		if seen[key] {
			continue
		}
		seen[key] = true

		e, ok := c.entries[key]
		if !ok {
			continue
		}
		e.Bonus *= mult
		if e.Persisted {
			c.stage(key, e)
		}
	}
}

// ClearLosingLines evicts every entry touched in a lost game so the next
// probe misses and the line is re-explored from scratch. Persisted rows
// are zeroed, not left behind, so a warm start cannot resurrect them.
func (c *Cache) ClearLosingLines(history []game.MoveRecord) {
	for _, rec := range history {
		key := game.Key(rec.Before, rec.Move)
		e, ok := c.entries[key]
		if !ok {
			continue
		}
		delete(c.entries, key)
		c.evictions++

		if e.Persisted {
			c.pending[key] = store.CacheRow{Key: key, UpdatedAt: time.Now()}
		}
	}
}

func (c *Cache) stage(key game.PatternKey, e *Entry) {
	c.pending[key] = store.CacheRow{
		Key:       key,
		Bonus:     e.Bonus,
		Uses:      e.Uses,
		QueryMS:   float64(e.Cost) / float64(time.Millisecond),
		UpdatedAt: time.Now(),
	}
	if len(c.pending) >= c.cfg.FlushEvery {
		if err := c.Flush(); err != nil {
			c.log.Warn("cache flush failed", "err", err)
		}
	}
}

// Flush commits every staged row. Upserts are idempotent; a retried
// flush converges to the same persisted state.
func (c *Cache) Flush() error {
	if len(c.pending) == 0 {
		return nil
	}

	rows := make([]store.CacheRow, 0, len(c.pending))
	for _, row := range c.pending {
		rows = append(rows, row)
	}
	if err := c.repo.Upsert(rows); err != nil {
		return fmt.Errorf("flush cache: %w", err)
	}

	c.persisted += len(rows)
	c.pending = make(map[game.PatternKey]store.CacheRow)
	return nil
}

// HitRate returns hits over lookups, zero before any lookup.
func (c *Cache) HitRate() float64 {
	if c.lookups == 0 {
		return 0
	}
	return float64(c.hits) / float64(c.lookups)
}

// Len returns the number of in-memory entries.
func (c *Cache) Len() int {
	return len(c.entries)
}

// Snapshot returns current cache statistics.
func (c *Cache) Snapshot() Stats {
	return Stats{
		Lookups:          c.lookups,
		Hits:             c.hits,
		HitRate:          c.HitRate(),
		Entries:          len(c.entries),
		ExpensiveQueries: c.expensive,
		PersistedWrites:  c.persisted,
		Evictions:        c.evictions,
	}
}
