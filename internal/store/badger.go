package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/dgraph-io/badger/v4"

	"github.com/hailam/chessmind/internal/game"
)

// Key prefixes, one per table.
const (
	prefixCache   = "pc:"
	prefixPattern = "ap:"
	prefixCluster = "cl:"
	prefixMember  = "cm:"
	prefixWeight  = "wt:"
	prefixGame    = "gm:"
)

// Badger is the durable Store over a single BadgerDB directory. Values are
// JSON; tables are key prefixes. One process owns a directory at a time,
// badger's directory lock enforces it.
type Badger struct {
	db *badger.DB
}

// NewBadger opens (or creates) the store at dir. An empty dir selects the
// per-OS data directory.
func NewBadger(dir string) (*Badger, error) {
	if dir == "" {
		var err error
		dir, err = GetDatabaseDir()
		if err != nil {
			return nil, err
		}
	}

	opts := badger.DefaultOptions(dir)
	opts.Logger = nil // Disable logging

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	return &Badger{db: db}, nil
}

// Close closes the database.
func (b *Badger) Close() error {
	if b.db != nil {
		return b.db.Close()
	}
	return nil
}

func (b *Badger) Cache() CacheRepo { return badgerCache{b.db} }

func (b *Badger) Patterns() PatternRepo { return badgerPatterns{b.db} }

func (b *Badger) Clusters() ClusterRepo { return badgerClusters{b.db} }

func (b *Badger) Weights() WeightsRepo { return badgerWeights{b.db} }

func (b *Badger) Games() GamesRepo { return badgerGames{b.db} }

func setJSON(txn *badger.Txn, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return txn.Set([]byte(key), data)
}

func getJSON(txn *badger.Txn, key string, v any) error {
	item, err := txn.Get([]byte(key))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, v)
	})
}

type badgerCache struct {
	db *badger.DB
}

func (r badgerCache) Upsert(rows []CacheRow) error {
	if len(rows) == 0 {
		return nil
	}
	return r.db.Update(func(txn *badger.Txn) error {
		for _, row := range rows {
			if err := setJSON(txn, prefixCache+row.Key.String(), row); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r badgerCache) Get(key game.PatternKey) (CacheRow, error) {
	var row CacheRow
	err := r.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, prefixCache+key.String(), &row)
	})
	return row, err
}

func (r badgerCache) Top(n int) ([]CacheRow, error) {
	var rows []CacheRow
	err := r.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefixCache)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var row CacheRow
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &row)
			})
			if err != nil {
				return err
			}
			rows = append(rows, row)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Uses > rows[j].Uses
	})
	if n > 0 && len(rows) > n {
		rows = rows[:n]
	}
	return rows, nil
}

type badgerPatterns struct {
	db *badger.DB
}

func patternKey(typ, description string) string {
	return prefixPattern + typ + ":" + description
}

func (r badgerPatterns) Upsert(rows []PatternRow) error {
	if len(rows) == 0 {
		return nil
	}
	return r.db.Update(func(txn *badger.Txn) error {
		for _, row := range rows {
			if err := setJSON(txn, patternKey(row.Type, row.Description), row); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r badgerPatterns) Get(typ, description string) (PatternRow, error) {
	var row PatternRow
	err := r.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, patternKey(typ, description), &row)
	})
	return row, err
}

func (r badgerPatterns) All() ([]PatternRow, error) {
	var rows []PatternRow
	err := r.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefixPattern)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var row PatternRow
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &row)
			})
			if err != nil {
				return err
			}
			rows = append(rows, row)
		}
		return nil
	})
	return rows, err
}

type badgerClusters struct {
	db *badger.DB
}

func clusterKey(id int) string {
	return fmt.Sprintf("%s%04d", prefixCluster, id)
}

func memberKey(cluster int, pos game.Position) string {
	return fmt.Sprintf("%s%04d:%s", prefixMember, cluster, pos)
}

func (r badgerClusters) ReplaceAll(centers []ClusterRow, members []MemberRow) error {
	return r.db.Update(func(txn *badger.Txn) error {
		for _, prefix := range []string{prefixCluster, prefixMember} {
			opts := badger.DefaultIteratorOptions
			opts.PrefetchValues = false
			opts.Prefix = []byte(prefix)
			it := txn.NewIterator(opts)

			var stale [][]byte
			for it.Rewind(); it.Valid(); it.Next() {
				stale = append(stale, it.Item().KeyCopy(nil))
			}
			it.Close()

			for _, key := range stale {
				if err := txn.Delete(key); err != nil {
					return err
				}
			}
		}

		for _, row := range centers {
			if err := setJSON(txn, clusterKey(row.ID), row); err != nil {
				return err
			}
		}
		for _, row := range members {
			if err := setJSON(txn, memberKey(row.Cluster, row.Position), row); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r badgerClusters) Centers() ([]ClusterRow, error) {
	var rows []ClusterRow
	err := r.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefixCluster)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var row ClusterRow
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &row)
			})
			if err != nil {
				return err
			}
			rows = append(rows, row)
		}
		return nil
	})
	return rows, err
}

func (r badgerClusters) Members(cluster int) ([]MemberRow, error) {
	var rows []MemberRow
	prefix := fmt.Sprintf("%s%04d:", prefixMember, cluster)

	err := r.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var row MemberRow
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &row)
			})
			if err != nil {
				return err
			}
			rows = append(rows, row)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Distance < rows[j].Distance
	})
	return rows, nil
}

type badgerWeights struct {
	db *badger.DB
}

func (r badgerWeights) Upsert(rows []WeightRow) error {
	if len(rows) == 0 {
		return nil
	}
	return r.db.Update(func(txn *badger.Txn) error {
		for _, row := range rows {
			if err := setJSON(txn, prefixWeight+row.Name, row); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r badgerWeights) Get(name string) (WeightRow, error) {
	var row WeightRow
	err := r.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, prefixWeight+name, &row)
	})
	return row, err
}

func (r badgerWeights) All() ([]WeightRow, error) {
	var rows []WeightRow
	err := r.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefixWeight)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var row WeightRow
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &row)
			})
			if err != nil {
				return err
			}
			rows = append(rows, row)
		}
		return nil
	})
	return rows, err
}

type badgerGames struct {
	db *badger.DB
}

func (r badgerGames) Insert(row GameRow) error {
	return r.db.Update(func(txn *badger.Txn) error {
		return setJSON(txn, prefixGame+row.ID, row)
	})
}

func (r badgerGames) Has(id string) (bool, error) {
	err := r.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte(prefixGame + id))
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r badgerGames) Recent(n int) ([]GameRow, error) {
	var rows []GameRow
	err := r.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefixGame)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var row GameRow
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &row)
			})
			if err != nil {
				return err
			}
			rows = append(rows, row)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].CreatedAt.After(rows[j].CreatedAt)
	})
	if n > 0 && len(rows) > n {
		rows = rows[:n]
	}
	return rows, nil
}
