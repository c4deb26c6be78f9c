// Package cluster generalizes learned lessons to never-seen positions.
// An offline build maps sampled positions into a small feature space and
// groups them around K centers; at search time the nearest cluster of a
// query position supplies its closest sampled neighbors.
package cluster

import "github.com/hailam/chessmind/internal/game"

// FeatureDim is the dimensionality of the clustering space.
const FeatureDim = 12

// Features projects an inspection into the clustering space. Differential
// dimensions are White minus Black; every dimension is scaled to roughly
// unit range so no single one dominates the distance metric.
func Features(in game.Inspection) []float64 {
	w, b := game.White, game.Black

	kingSafety := func(s game.Side) float64 {
		return float64(in.KingShield[s] - in.KingAttackers[s])
	}

	return []float64{
		(in.Material[w] - in.Material[b]) / 10,
		(in.Centralization[w] - in.Centralization[b]) / 5,
		float64(in.Mobility[w]-in.Mobility[b]) / 20,
		(kingSafety(w) - kingSafety(b)) / 5,
		in.PawnAdvance[w] - in.PawnAdvance[b],
		float64(in.PawnWeaknesses[w]-in.PawnWeaknesses[b]) / 4,
		float64(in.Space[w]-in.Space[b]) / 10,
		float64(in.CenterControl[w]-in.CenterControl[b]) / 4,
		float64(in.OpenFiles) / 8,
		float64(in.Developed[w]-in.Developed[b]) / 4,
		float64(in.Coordination[w]-in.Coordination[b]) / 5,
		float64(in.Tension) / 8,
	}
}
