package cache

import (
	"errors"
	"testing"
	"time"

	"github.com/hailam/chessmind/internal/config"
	"github.com/hailam/chessmind/internal/game"
	"github.com/hailam/chessmind/internal/store"
)

func testConfig() config.CacheConfig {
	return config.CacheConfig{
		BootstrapLookups: 2,
		TargetHitRate:    0.5,
		ExploreInterval:  100,
		PersistMinBonus:  5,
		PersistMinCost:   time.Nanosecond,
		WinMultiplier:    2.0,
		LossMultiplier:   0.5,
		WarmStartN:       10,
		FlushEvery:       1000,
	}
}

// slow wraps a bonus in a query that is guaranteed to clear the persist
// cost threshold.
func slow(bonus float64) QueryFunc {
	return func() (float64, error) {
		time.Sleep(time.Millisecond)
		return bonus, nil
	}
}

func newTestCache(t *testing.T, cfg config.CacheConfig) (*Cache, store.Store) {
	t.Helper()
	st := store.NewMemory()
	return New(st.Cache(), cfg, nil), st
}

func TestBonusQueriesOnce(t *testing.T) {
	c, _ := newTestCache(t, testConfig())

	calls := 0
	fn := func() (float64, error) {
		calls++
		return 7.5, nil
	}

	got, hit := c.Bonus("p", "m", fn)
	if hit || got != 7.5 {
		t.Fatalf("first call = (%v, %v), want (7.5, miss)", got, hit)
	}

	got, hit = c.Bonus("p", "m", fn)
	if !hit || got != 7.5 {
		t.Fatalf("second call = (%v, %v), want (7.5, hit)", got, hit)
	}

	if calls != 1 {
		t.Errorf("query ran %d times, want exactly once", calls)
	}
}

func TestBonusNilQuery(t *testing.T) {
	c, _ := newTestCache(t, testConfig())

	got, hit := c.Bonus("p", "m", nil)
	if hit || got != 0 {
		t.Fatalf("nil query miss = (%v, %v), want (0, miss)", got, hit)
	}

	// Nothing was cached: a later real query still runs.
	calls := 0
	got, hit = c.Bonus("p", "m", func() (float64, error) {
		calls++
		return 3, nil
	})
	if hit || got != 3 || calls != 1 {
		t.Errorf("real query after nil miss = (%v, %v, %d calls), want (3, miss, 1)", got, hit, calls)
	}
}

func TestPersistThresholds(t *testing.T) {
	t.Run("large slow bonus persists", func(t *testing.T) {
		c, st := newTestCache(t, testConfig())

		if got, _ := c.Bonus("p", "m", slow(15.0)); got != 15.0 {
			t.Fatalf("bonus = %v, want 15.0", got)
		}
		if err := c.Flush(); err != nil {
			t.Fatal(err)
		}

		row, err := st.Cache().Get(game.Key("p", "m"))
		if err != nil {
			t.Fatalf("row should be persisted: %v", err)
		}
		if row.Bonus != 15.0 {
			t.Errorf("persisted bonus = %v, want 15.0", row.Bonus)
		}
	})

	t.Run("negative bonus counts by magnitude", func(t *testing.T) {
		c, st := newTestCache(t, testConfig())

		c.Bonus("p", "m", slow(-15.0))
		if err := c.Flush(); err != nil {
			t.Fatal(err)
		}
		if _, err := st.Cache().Get(game.Key("p", "m")); err != nil {
			t.Errorf("large negative bonus should persist: %v", err)
		}
	})

	t.Run("small bonus never persists", func(t *testing.T) {
		c, st := newTestCache(t, testConfig())

		if got, _ := c.Bonus("p", "m", slow(0.2)); got != 0.2 {
			t.Fatalf("bonus = %v, want 0.2", got)
		}
		if err := c.Flush(); err != nil {
			t.Fatal(err)
		}

		if _, err := st.Cache().Get(game.Key("p", "m")); !errors.Is(err, store.ErrNotFound) {
			t.Errorf("small bonus must stay memory-only, got err %v", err)
		}

		// Still served from memory.
		if got, hit := c.Bonus("p", "m", nil); !hit || got != 0.2 {
			t.Errorf("memory tier lost the entry: (%v, %v)", got, hit)
		}
	})

	t.Run("cheap query never persists", func(t *testing.T) {
		cfg := testConfig()
		cfg.PersistMinCost = time.Hour
		c, st := newTestCache(t, cfg)

		c.Bonus("p", "m", slow(100))
		if err := c.Flush(); err != nil {
			t.Fatal(err)
		}

		if _, err := st.Cache().Get(game.Key("p", "m")); !errors.Is(err, store.ErrNotFound) {
			t.Errorf("cheap result must stay memory-only, got err %v", err)
		}
	})
}

func TestQueryErrorBecomesZero(t *testing.T) {
	c, _ := newTestCache(t, testConfig())

	calls := 0
	fn := func() (float64, error) {
		calls++
		return 99, errors.New("lookup blew up")
	}

	got, hit := c.Bonus("p", "m", fn)
	if hit || got != 0 {
		t.Fatalf("failed query = (%v, %v), want (0, miss)", got, hit)
	}

	// The zero is cached; the failing query does not run again.
	got, hit = c.Bonus("p", "m", fn)
	if !hit || got != 0 {
		t.Fatalf("second call = (%v, %v), want (0, hit)", got, hit)
	}
	if calls != 1 {
		t.Errorf("failing query ran %d times, want once", calls)
	}
}

func TestQueryPanicContained(t *testing.T) {
	c, _ := newTestCache(t, testConfig())

	got, hit := c.Bonus("p", "m", func() (float64, error) {
		panic("inside the pipeline")
	})
	if hit || got != 0 {
		t.Fatalf("panicking query = (%v, %v), want (0, miss)", got, hit)
	}

	if got, hit := c.Bonus("p", "m", nil); !hit || got != 0 {
		t.Errorf("panic result not cached as zero: (%v, %v)", got, hit)
	}
}

func TestPolicyPhases(t *testing.T) {
	cfg := testConfig()
	c, _ := newTestCache(t, cfg)

	// Bootstrap: always explore, hit rate irrelevant.
	for i := 0; i < cfg.BootstrapLookups; i++ {
		if !c.ShouldExplore() {
			t.Fatalf("lookup %d is inside bootstrap, must explore", i)
		}
		c.Bonus("warm", "m", func() (float64, error) { return 1, nil })
	}

	// Hit rate now 1/2 = target; exploration switches off.
	if c.HitRate() != 0.5 {
		t.Fatalf("hit rate = %v, want 0.5", c.HitRate())
	}
	if c.ShouldExplore() {
		t.Error("at-target hit rate should not explore")
	}

	// Keep hitting the same key; rate stays above target, still off.
	for i := 0; i < 10; i++ {
		c.Bonus("warm", "m", nil)
	}
	if c.ShouldExplore() {
		t.Error("high hit rate should not explore")
	}

	// Drive the lookup counter onto the forced-exploration cadence.
	for c.lookups%cfg.ExploreInterval != 0 {
		c.Bonus("warm", "m", nil)
	}
	if !c.ShouldExplore() {
		t.Error("forced cadence should explore even at a high hit rate")
	}
}

func TestPolicyLowHitRate(t *testing.T) {
	cfg := testConfig()
	c, _ := newTestCache(t, cfg)

	// Burn through bootstrap with misses only.
	for i := 0; i < cfg.BootstrapLookups+3; i++ {
		c.Bonus(game.Position("p"), game.Move(rune('a'+i)), nil)
	}

	if c.HitRate() != 0 {
		t.Fatalf("hit rate = %v, want 0", c.HitRate())
	}
	if !c.ShouldExplore() {
		t.Error("hit rate below target must keep exploring")
	}
}

func TestApplyOutcome(t *testing.T) {
	history := []game.MoveRecord{{Before: "p", Move: "m"}}

	t.Run("win scales up", func(t *testing.T) {
		c, _ := newTestCache(t, testConfig())
		c.Bonus("p", "m", func() (float64, error) { return 10, nil })

		c.ApplyOutcome(history, game.Win)
		if got, _ := c.Bonus("p", "m", nil); got != 20 {
			t.Errorf("bonus after win = %v, want 20", got)
		}
	})

	t.Run("loss scales down", func(t *testing.T) {
		c, _ := newTestCache(t, testConfig())
		c.Bonus("p", "m", func() (float64, error) { return 10, nil })

		c.ApplyOutcome(history, game.Loss)
		if got, _ := c.Bonus("p", "m", nil); got != 5 {
			t.Errorf("bonus after loss = %v, want 5", got)
		}
	})

	t.Run("draw is a no-op", func(t *testing.T) {
		c, _ := newTestCache(t, testConfig())
		c.Bonus("p", "m", func() (float64, error) { return 10, nil })

		c.ApplyOutcome(history, game.Draw)
		if got, _ := c.Bonus("p", "m", nil); got != 10 {
			t.Errorf("bonus after draw = %v, want 10 untouched", got)
		}
	})

	t.Run("revisited key scales once", func(t *testing.T) {
		c, _ := newTestCache(t, testConfig())
		c.Bonus("p", "m", func() (float64, error) { return 10, nil })

		twice := []game.MoveRecord{{Before: "p", Move: "m"}, {Before: "p", Move: "m"}}
		c.ApplyOutcome(twice, game.Win)
		if got, _ := c.Bonus("p", "m", nil); got != 20 {
			t.Errorf("bonus = %v, want 20 (scaled once)", got)
		}
	})

	t.Run("untouched keys keep their bonus", func(t *testing.T) {
		c, _ := newTestCache(t, testConfig())
		c.Bonus("p", "m", func() (float64, error) { return 10, nil })
		c.Bonus("q", "n", func() (float64, error) { return 4, nil })

		c.ApplyOutcome(history, game.Win)
		if got, _ := c.Bonus("q", "n", nil); got != 4 {
			t.Errorf("untouched bonus = %v, want 4", got)
		}
	})
}

func TestApplyOutcomeMirrorsPersistedTier(t *testing.T) {
	c, st := newTestCache(t, testConfig())

	c.Bonus("p", "m", slow(15.0))
	c.ApplyOutcome([]game.MoveRecord{{Before: "p", Move: "m"}}, game.Win)
	if err := c.Flush(); err != nil {
		t.Fatal(err)
	}

	row, err := st.Cache().Get(game.Key("p", "m"))
	if err != nil {
		t.Fatal(err)
	}
	if row.Bonus != 30.0 {
		t.Errorf("persisted bonus = %v, want the scaled 30.0", row.Bonus)
	}
}

func TestClearLosingLines(t *testing.T) {
	c, st := newTestCache(t, testConfig())
	history := []game.MoveRecord{{Before: "p", Move: "m"}}

	c.Bonus("p", "m", slow(15.0))
	c.ClearLosingLines(history)

	// The next probe misses, with or without a query attached.
	if _, hit := c.Peek("p", "m"); hit {
		t.Error("peek after eviction should miss")
	}
	if _, hit := c.Bonus("p", "m", nil); hit {
		t.Error("bonus after eviction should miss")
	}

	// The persisted row is zeroed and a new process will not warm it up.
	if err := c.Flush(); err != nil {
		t.Fatal(err)
	}
	row, err := st.Cache().Get(game.Key("p", "m"))
	if err != nil {
		t.Fatalf("zeroed row should still exist: %v", err)
	}
	if row.Bonus != 0 || row.Uses != 0 {
		t.Errorf("row = %+v, want zeroed", row)
	}

	fresh := New(st.Cache(), testConfig(), nil)
	if _, hit := fresh.Peek("p", "m"); hit {
		t.Error("warm start resurrected an evicted line")
	}
}

func TestWarmStart(t *testing.T) {
	st := store.NewMemory()
	rows := []store.CacheRow{
		{Key: game.Key("p1", "m1"), Bonus: 9, Uses: 5},
		{Key: game.Key("p2", "m2"), Bonus: 7, Uses: 3},
		{Key: game.Key("p3", "m3"), Bonus: 6, Uses: 1},
	}
	if err := st.Cache().Upsert(rows); err != nil {
		t.Fatal(err)
	}

	cfg := testConfig()
	cfg.WarmStartN = 2
	c := New(st.Cache(), cfg, nil)

	if c.Len() != 2 {
		t.Fatalf("warm start loaded %d entries, want 2", c.Len())
	}
	if got, hit := c.Peek("p1", "m1"); !hit || got != 9 {
		t.Errorf("hottest entry = (%v, %v), want (9, hit)", got, hit)
	}
	if _, hit := c.Peek("p3", "m3"); hit {
		t.Error("entry beyond warm-start budget should not be loaded")
	}
}

func TestFlushBatching(t *testing.T) {
	cfg := testConfig()
	cfg.FlushEvery = 2
	c, st := newTestCache(t, cfg)

	c.Bonus("p1", "m1", slow(15))
	if top, _ := st.Cache().Top(0); len(top) != 0 {
		t.Fatalf("one staged row should not flush yet, store has %d", len(top))
	}

	// The second staged row crosses the batch size and flushes both.
	c.Bonus("p2", "m2", slow(-20))
	top, err := st.Cache().Top(0)
	if err != nil {
		t.Fatal(err)
	}
	if len(top) != 2 {
		t.Errorf("store has %d rows after batch flush, want 2", len(top))
	}
}

func TestSnapshot(t *testing.T) {
	c, _ := newTestCache(t, testConfig())

	c.Bonus("p", "m", func() (float64, error) { return 1, nil })
	c.Bonus("p", "m", nil)
	c.Bonus("q", "n", nil)

	s := c.Snapshot()
	if s.Lookups != 3 || s.Hits != 1 {
		t.Errorf("lookups/hits = %d/%d, want 3/1", s.Lookups, s.Hits)
	}
	if s.Entries != 1 || s.ExpensiveQueries != 1 {
		t.Errorf("entries/queries = %d/%d, want 1/1", s.Entries, s.ExpensiveQueries)
	}
	if s.HitRate != 1.0/3.0 {
		t.Errorf("hit rate = %v, want 1/3", s.HitRate)
	}
}
