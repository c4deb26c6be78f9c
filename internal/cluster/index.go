package cluster

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hailam/chessmind/internal/config"
	"github.com/hailam/chessmind/internal/game"
	"github.com/hailam/chessmind/internal/store"
)

// Match is one similar sampled position. Distance is the member's
// distance to its cluster center, the value the index was built with.
type Match struct {
	Position game.Position
	Cluster  int
	Distance float64
}

// Index is the position clustering index. Build runs offline and replaces
// the persisted geometry wholesale; FindSimilar is the cheap query path
// used during search and degrades to an empty result on any failure; a
// degraded index never blocks a move decision.
type Index struct {
	inspect game.Inspector
	repo    store.ClusterRepo
	cfg     config.ClusterConfig
	log     *slog.Logger

	centers []store.ClusterRow
	builtAt time.Time
	queries int
	matched int
}

// Stats is a point-in-time snapshot of the index shape and its query
// traffic. Matched counts queries that produced at least one neighbor.
type Stats struct {
	Clusters int
	Members  int
	Queries  int
	Matched  int
	BuiltAt  time.Time
}

// New builds the index handle and loads any persisted centers. A failing
// or empty store simply leaves the index not ready.
func New(inspect game.Inspector, repo store.ClusterRepo, cfg config.ClusterConfig, log *slog.Logger) *Index {
	if log == nil {
		log = slog.Default()
	}
	ix := &Index{inspect: inspect, repo: repo, cfg: cfg, log: log}

	centers, err := repo.Centers()
	if err != nil {
		log.Warn("cluster centers unavailable, index not ready", "err", err)
		return ix
	}
	ix.centers = centers
	if len(centers) > 0 {
		ix.builtAt = centers[0].UpdatedAt
	}
	return ix
}

// Ready reports whether the index has centers to query.
func (ix *Index) Ready() bool {
	return len(ix.centers) > 0
}

// Build recomputes the index from a sample of positions: feature
// extraction (bounded parallelism), centroid refinement, then a wholesale
// replace of the persisted centers and memberships. Positions the
// inspector cannot describe are skipped.
func (ix *Index) Build(ctx context.Context, positions []game.Position) error {
	seen := make(map[game.Position]bool, len(positions))
	unique := positions[:0:0]
	for _, pos := range positions {
		if pos == "" || seen[pos] {
			continue
		}
		seen[pos] = true
		unique = append(unique, pos)
	}

	vecs := make([][]float64, len(unique))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ix.cfg.Workers)
	for i, pos := range unique {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			in, err := ix.inspect.Inspect(pos)
			if err != nil {
				return nil // skip, leaves a nil vector
			}
			vecs[i] = Features(in)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("extract features: %w", err)
	}

	var points [][]float64
	var kept []game.Position
	for i, v := range vecs {
		if v == nil {
			continue
		}
		points = append(points, v)
		kept = append(kept, unique[i])
	}
	if skipped := len(unique) - len(kept); skipped > 0 {
		ix.log.Debug("positions skipped during cluster build", "skipped", skipped)
	}

	centers, assign := kmeans(points, ix.cfg.Clusters, ix.cfg.MaxIterations)

	now := time.Now()
	centerRows := make([]store.ClusterRow, len(centers))
	memberRows := make([]store.MemberRow, 0, len(kept))
	for c, center := range centers {
		centerRows[c] = store.ClusterRow{ID: c, Center: center, UpdatedAt: now}
	}
	for i, pos := range kept {
		c := assign[i]
		centerRows[c].Size++
		memberRows = append(memberRows, store.MemberRow{
			Cluster:  c,
			Position: pos,
			Distance: euclidean(points[i], centers[c]),
		})
	}

	if err := ix.repo.ReplaceAll(centerRows, memberRows); err != nil {
		return fmt.Errorf("persist clusters: %w", err)
	}

	ix.centers = centerRows
	ix.builtAt = now
	ix.log.Info("cluster index rebuilt",
		"positions", len(kept), "clusters", len(centerRows))
	return nil
}

// FindSimilar returns up to limit sampled positions from the cluster
// nearest to pos, closest to their center first, the query itself
// excluded. Any failure along the way yields an empty result, never an
// error.
func (ix *Index) FindSimilar(pos game.Position, limit int) []Match {
	ix.queries++
	if limit <= 0 || !ix.Ready() {
		return nil
	}

	in, err := ix.inspect.Inspect(pos)
	if err != nil {
		ix.log.Debug("similarity lookup skipped", "pos", pos, "err", err)
		return nil
	}
	query := Features(in)

	best, bestDist := -1, math.Inf(1)
	for _, row := range ix.centers {
		if d := euclidean(query, row.Center); d < bestDist {
			best, bestDist = row.ID, d
		}
	}
	if best < 0 {
		return nil
	}

	members, err := ix.repo.Members(best)
	if err != nil {
		ix.log.Debug("cluster members unavailable", "cluster", best, "err", err)
		return nil
	}

	matches := make([]Match, 0, limit)
	for _, m := range members {
		if m.Position == pos {
			continue
		}
		matches = append(matches, Match{Position: m.Position, Cluster: best, Distance: m.Distance})
		if len(matches) == limit {
			break
		}
	}
	if len(matches) > 0 {
		ix.matched++
	}
	return matches
}

// Snapshot returns current index statistics.
func (ix *Index) Snapshot() Stats {
	s := Stats{
		Clusters: len(ix.centers),
		Queries:  ix.queries,
		Matched:  ix.matched,
		BuiltAt:  ix.builtAt,
	}
	for _, row := range ix.centers {
		s.Members += row.Size
	}
	return s
}
