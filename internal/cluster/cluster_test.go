package cluster

import (
	"context"
	"fmt"
	"testing"

	"github.com/hailam/chessmind/internal/config"
	"github.com/hailam/chessmind/internal/game"
	"github.com/hailam/chessmind/internal/store"
)

// posInspector serves canned inspections; unknown positions fail.
type posInspector struct {
	data map[game.Position]game.Inspection
}

func (pi posInspector) Inspect(pos game.Position) (game.Inspection, error) {
	in, ok := pi.data[pos]
	if !ok {
		return game.Inspection{}, fmt.Errorf("unknown position %q", pos)
	}
	return in, nil
}

func (pi posInspector) InspectMove(pos game.Position, mv game.Move) (game.MoveFacts, error) {
	return game.MoveFacts{}, nil
}

// balanced builds an inspection whose only nonzero feature is the
// material balance.
func balanced(diff float64) game.Inspection {
	var in game.Inspection
	in.Material[game.White] = 20 + diff
	in.Material[game.Black] = 20
	return in
}

func twoCamps() posInspector {
	return posInspector{data: map[game.Position]game.Inspection{
		"a1": balanced(5),
		"a2": balanced(7.5),
		"a3": balanced(2.5),
		"b1": balanced(-5),
		"b2": balanced(-7.5),
		"b3": balanced(-2.5),
	}}
}

func clusterConfig(k int) config.ClusterConfig {
	cfg := config.Default().Cluster
	cfg.Clusters = k
	return cfg
}

func TestFeaturesDimension(t *testing.T) {
	if got := len(Features(game.Inspection{})); got != FeatureDim {
		t.Errorf("feature vector has %d dims, want %d", got, FeatureDim)
	}
}

func TestBuildAndFindSimilar(t *testing.T) {
	st := store.NewMemory()
	ix := New(twoCamps(), st.Clusters(), clusterConfig(2), nil)

	positions := []game.Position{"a1", "a2", "a3", "b1", "b2", "b3"}
	if err := ix.Build(context.Background(), positions); err != nil {
		t.Fatalf("build: %v", err)
	}
	if !ix.Ready() {
		t.Fatal("index should be ready after a build")
	}

	centers, err := st.Clusters().Centers()
	if err != nil {
		t.Fatal(err)
	}
	if len(centers) != 2 {
		t.Fatalf("persisted %d centers, want 2", len(centers))
	}

	matches := ix.FindSimilar("a1", 5)
	if len(matches) != 2 {
		t.Fatalf("found %d matches, want 2", len(matches))
	}
	for _, m := range matches {
		if m.Position == "a1" {
			t.Error("query position must be excluded from its own matches")
		}
		if m.Position != "a2" && m.Position != "a3" {
			t.Errorf("match %q crossed camps", m.Position)
		}
	}

	// Closest to the camp's center first.
	if matches[0].Distance > matches[1].Distance {
		t.Errorf("matches out of order: %v then %v", matches[0].Distance, matches[1].Distance)
	}
}

func TestFindSimilarLimit(t *testing.T) {
	st := store.NewMemory()
	ix := New(twoCamps(), st.Clusters(), clusterConfig(2), nil)
	if err := ix.Build(context.Background(), []game.Position{"a1", "a2", "a3", "b1", "b2", "b3"}); err != nil {
		t.Fatal(err)
	}

	if got := ix.FindSimilar("a1", 1); len(got) != 1 {
		t.Errorf("limit 1 returned %d matches", len(got))
	}
	if got := ix.FindSimilar("a1", 0); got != nil {
		t.Errorf("limit 0 returned %d matches, want none", len(got))
	}
}

func TestFindSimilarEmptyIndex(t *testing.T) {
	st := store.NewMemory()
	ix := New(twoCamps(), st.Clusters(), clusterConfig(2), nil)

	if ix.Ready() {
		t.Error("index with no persisted centers should not be ready")
	}
	if got := ix.FindSimilar("a1", 5); got != nil {
		t.Errorf("empty index returned %d matches, want none", len(got))
	}
}

func TestFindSimilarUnknownPosition(t *testing.T) {
	st := store.NewMemory()
	ix := New(twoCamps(), st.Clusters(), clusterConfig(2), nil)
	if err := ix.Build(context.Background(), []game.Position{"a1", "a2", "b1", "b2"}); err != nil {
		t.Fatal(err)
	}

	// The inspector cannot describe the query: degrade to empty, no panic.
	if got := ix.FindSimilar("mystery", 5); got != nil {
		t.Errorf("degraded lookup returned %d matches, want none", len(got))
	}
}

func TestSnapshot(t *testing.T) {
	st := store.NewMemory()
	ix := New(twoCamps(), st.Clusters(), clusterConfig(2), nil)

	if s := ix.Snapshot(); s.Clusters != 0 || s.Queries != 0 {
		t.Fatalf("fresh index snapshot = %+v, want empty", s)
	}

	if err := ix.Build(context.Background(), []game.Position{"a1", "a2", "a3", "b1", "b2", "b3"}); err != nil {
		t.Fatal(err)
	}
	ix.FindSimilar("a1", 5)
	ix.FindSimilar("mystery", 5)

	s := ix.Snapshot()
	if s.Clusters != 2 || s.Members != 6 {
		t.Errorf("shape = %d clusters, %d members, want 2 and 6", s.Clusters, s.Members)
	}
	if s.Queries != 2 || s.Matched != 1 {
		t.Errorf("traffic = %d queries, %d matched, want 2 and 1", s.Queries, s.Matched)
	}
	if s.BuiltAt.IsZero() {
		t.Error("build time should be recorded")
	}
}

func TestBuildSkipsFailingPositions(t *testing.T) {
	st := store.NewMemory()
	ix := New(twoCamps(), st.Clusters(), clusterConfig(2), nil)

	// Two of these positions are unknown to the inspector.
	positions := []game.Position{"a1", "ghost1", "a2", "b1", "ghost2", "b2"}
	if err := ix.Build(context.Background(), positions); err != nil {
		t.Fatalf("build with failing positions: %v", err)
	}

	var total int
	centers, err := st.Clusters().Centers()
	if err != nil {
		t.Fatal(err)
	}
	for _, c := range centers {
		total += c.Size
	}
	if total != 4 {
		t.Errorf("clustered %d positions, want 4", total)
	}
}

func TestBuildDeduplicates(t *testing.T) {
	st := store.NewMemory()
	ix := New(twoCamps(), st.Clusters(), clusterConfig(1), nil)

	if err := ix.Build(context.Background(), []game.Position{"a1", "a1", "a1", "a2"}); err != nil {
		t.Fatal(err)
	}

	members, err := st.Clusters().Members(0)
	if err != nil {
		t.Fatal(err)
	}
	if len(members) != 2 {
		t.Errorf("membership has %d rows, want 2 unique positions", len(members))
	}
}

func TestRebuildReplaces(t *testing.T) {
	st := store.NewMemory()
	ix := New(twoCamps(), st.Clusters(), clusterConfig(2), nil)

	if err := ix.Build(context.Background(), []game.Position{"a1", "a2", "b1", "b2"}); err != nil {
		t.Fatal(err)
	}
	if err := ix.Build(context.Background(), []game.Position{"a1", "a2"}); err != nil {
		t.Fatal(err)
	}

	centers, err := st.Clusters().Centers()
	if err != nil {
		t.Fatal(err)
	}
	var total int
	for _, c := range centers {
		total += c.Size
	}
	if total != 2 {
		t.Errorf("rebuild left %d members, want 2", total)
	}

	// Queries against the rebuilt index only see the new sample.
	for _, m := range ix.FindSimilar("b1", 5) {
		if m.Position == "b2" {
			t.Error("rebuild should have dropped the old sample")
		}
	}
}

func TestKMeansFewerPointsThanK(t *testing.T) {
	points := [][]float64{{1, 0}, {0, 1}}
	centers, assign := kmeans(points, 16, 10)

	if len(centers) != 2 {
		t.Fatalf("got %d centers, want k clamped to 2", len(centers))
	}
	if assign[0] == assign[1] {
		t.Error("two distant points should land in different clusters")
	}
}

func TestKMeansEmpty(t *testing.T) {
	centers, assign := kmeans(nil, 4, 10)
	if centers != nil || assign != nil {
		t.Error("no points, no clusters")
	}
}

func TestKMeansConverges(t *testing.T) {
	points := [][]float64{
		{0, 0}, {0.1, 0}, {0, 0.1},
		{5, 5}, {5.1, 5}, {5, 5.1},
	}
	centers, assign := kmeans(points, 2, 50)

	if len(centers) != 2 {
		t.Fatalf("got %d centers, want 2", len(centers))
	}
	if assign[0] != assign[1] || assign[1] != assign[2] {
		t.Error("first camp split across clusters")
	}
	if assign[3] != assign[4] || assign[4] != assign[5] {
		t.Error("second camp split across clusters")
	}
	if assign[0] == assign[3] {
		t.Error("camps merged into one cluster")
	}
}
