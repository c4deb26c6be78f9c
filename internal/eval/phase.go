package eval

import (
	"github.com/hailam/chessmind/internal/game"
)

// PhaseDetector classifies positions into game phases and supplies the
// per-phase signal weights. The default implementation is
// ThresholdDetector; callers may inject their own.
type PhaseDetector interface {
	Phase(pos game.Position) (game.Phase, error)
	Weights(ph game.Phase) map[SignalKind]float64
}

const (
	// endgameMaterial is the total non-king material, both sides summed,
	// at or below which a position counts as an endgame. A full board
	// carries 78 pawn units.
	endgameMaterial = 26.0
	// openingMoves is the last full-move number of the opening.
	openingMoves = 10
)

var defaultWeights = map[game.Phase]map[SignalKind]float64{
	game.Opening: {
		Material: 1.0, Mobility: 1.0, KingSafety: 1.2, PawnStructure: 0.6,
		Center: 1.3, Development: 1.5, Tension: 0.8,
	},
	game.Middlegame: {
		Material: 1.0, Mobility: 1.1, KingSafety: 1.4, PawnStructure: 0.9,
		Center: 1.0, Development: 0.6, Tension: 1.0,
	},
	game.Endgame: {
		Material: 1.2, Mobility: 0.9, KingSafety: 0.7, PawnStructure: 1.4,
		Center: 0.6, Development: 0.2, Tension: 0.6,
	},
}

// ThresholdDetector is the default PhaseDetector: low total material
// means endgame, a low move number means opening, everything else is a
// middlegame.
type ThresholdDetector struct {
	insp game.Inspector
}

func NewThresholdDetector(insp game.Inspector) *ThresholdDetector {
	return &ThresholdDetector{insp: insp}
}

func (d *ThresholdDetector) Phase(pos game.Position) (game.Phase, error) {
	in, err := d.insp.Inspect(pos)
	if err != nil {
		return game.Middlegame, err
	}
	total := in.Material[game.White] + in.Material[game.Black]
	switch {
	case total <= endgameMaterial:
		return game.Endgame, nil
	case in.MoveNumber <= openingMoves:
		return game.Opening, nil
	default:
		return game.Middlegame, nil
	}
}

// Weights returns the default weight table for ph. The map is shared;
// callers must not mutate it.
func (d *ThresholdDetector) Weights(ph game.Phase) map[SignalKind]float64 {
	return defaultWeights[ph]
}
