package store

import (
	"sort"
	"sync"

	"github.com/hailam/chessmind/internal/game"
)

// Memory is an ephemeral Store over plain maps. Tests inject it in place
// of Badger; a throwaway session that should learn nothing durable can
// too. Semantics match Badger row for row.
type Memory struct {
	mu       sync.RWMutex
	cache    map[string]CacheRow
	patterns map[string]PatternRow
	centers  map[int]ClusterRow
	members  map[int][]MemberRow
	weights  map[string]WeightRow
	games    map[string]GameRow
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		cache:    make(map[string]CacheRow),
		patterns: make(map[string]PatternRow),
		centers:  make(map[int]ClusterRow),
		members:  make(map[int][]MemberRow),
		weights:  make(map[string]WeightRow),
		games:    make(map[string]GameRow),
	}
}

// Close is a no-op.
func (m *Memory) Close() error { return nil }

func (m *Memory) Cache() CacheRepo { return memCache{m} }

func (m *Memory) Patterns() PatternRepo { return memPatterns{m} }

func (m *Memory) Clusters() ClusterRepo { return memClusters{m} }

func (m *Memory) Weights() WeightsRepo { return memWeights{m} }

func (m *Memory) Games() GamesRepo { return memGames{m} }

type memCache struct {
	m *Memory
}

func (r memCache) Upsert(rows []CacheRow) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, row := range rows {
		r.m.cache[row.Key.String()] = row
	}
	return nil
}

func (r memCache) Get(key game.PatternKey) (CacheRow, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	row, ok := r.m.cache[key.String()]
	if !ok {
		return CacheRow{}, ErrNotFound
	}
	return row, nil
}

func (r memCache) Top(n int) ([]CacheRow, error) {
	r.m.mu.RLock()
	rows := make([]CacheRow, 0, len(r.m.cache))
	for _, row := range r.m.cache {
		rows = append(rows, row)
	}
	r.m.mu.RUnlock()

	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Uses != rows[j].Uses {
			return rows[i].Uses > rows[j].Uses
		}
		return rows[i].Key.String() < rows[j].Key.String()
	})
	if n > 0 && len(rows) > n {
		rows = rows[:n]
	}
	return rows, nil
}

type memPatterns struct {
	m *Memory
}

func (r memPatterns) Upsert(rows []PatternRow) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, row := range rows {
		r.m.patterns[row.Type+":"+row.Description] = row
	}
	return nil
}

func (r memPatterns) Get(typ, description string) (PatternRow, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	row, ok := r.m.patterns[typ+":"+description]
	if !ok {
		return PatternRow{}, ErrNotFound
	}
	return row, nil
}

func (r memPatterns) All() ([]PatternRow, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	rows := make([]PatternRow, 0, len(r.m.patterns))
	for _, row := range r.m.patterns {
		rows = append(rows, row)
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Type != rows[j].Type {
			return rows[i].Type < rows[j].Type
		}
		return rows[i].Description < rows[j].Description
	})
	return rows, nil
}

type memClusters struct {
	m *Memory
}

func (r memClusters) ReplaceAll(centers []ClusterRow, members []MemberRow) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	r.m.centers = make(map[int]ClusterRow, len(centers))
	r.m.members = make(map[int][]MemberRow)

	for _, row := range centers {
		r.m.centers[row.ID] = row
	}
	for _, row := range members {
		r.m.members[row.Cluster] = append(r.m.members[row.Cluster], row)
	}
	return nil
}

func (r memClusters) Centers() ([]ClusterRow, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	rows := make([]ClusterRow, 0, len(r.m.centers))
	for _, row := range r.m.centers {
		rows = append(rows, row)
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].ID < rows[j].ID
	})
	return rows, nil
}

func (r memClusters) Members(cluster int) ([]MemberRow, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	rows := append([]MemberRow(nil), r.m.members[cluster]...)
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Distance != rows[j].Distance {
			return rows[i].Distance < rows[j].Distance
		}
		return rows[i].Position < rows[j].Position
	})
	return rows, nil
}

type memWeights struct {
	m *Memory
}

func (r memWeights) Upsert(rows []WeightRow) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, row := range rows {
		r.m.weights[row.Name] = row
	}
	return nil
}

func (r memWeights) Get(name string) (WeightRow, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	row, ok := r.m.weights[name]
	if !ok {
		return WeightRow{}, ErrNotFound
	}
	return row, nil
}

func (r memWeights) All() ([]WeightRow, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	rows := make([]WeightRow, 0, len(r.m.weights))
	for _, row := range r.m.weights {
		rows = append(rows, row)
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Name < rows[j].Name
	})
	return rows, nil
}

type memGames struct {
	m *Memory
}

func (r memGames) Insert(row GameRow) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	r.m.games[row.ID] = row
	return nil
}

func (r memGames) Has(id string) (bool, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	_, ok := r.m.games[id]
	return ok, nil
}

func (r memGames) Recent(n int) ([]GameRow, error) {
	r.m.mu.RLock()
	rows := make([]GameRow, 0, len(r.m.games))
	for _, row := range r.m.games {
		rows = append(rows, row)
	}
	r.m.mu.RUnlock()

	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].CreatedAt.After(rows[j].CreatedAt)
	})
	if n > 0 && len(rows) > n {
		rows = rows[:n]
	}
	return rows, nil
}
