package eval

import (
	"errors"

	"github.com/hailam/chessmind/internal/game"
	"github.com/hailam/chessmind/internal/store"
)

// SignalKind identifies an evaluation signal. The slug doubles as the
// signal's row name in the weights table.
type SignalKind uint8

const (
	Material SignalKind = iota
	Mobility
	KingSafety
	PawnStructure
	Center
	Development
	Tension
)

// String returns the signal slug.
func (k SignalKind) String() string {
	switch k {
	case Material:
		return "material"
	case Mobility:
		return "mobility"
	case KingSafety:
		return "king_safety"
	case PawnStructure:
		return "pawn_structure"
	case Center:
		return "center"
	case Development:
		return "development"
	default:
		return "tension"
	}
}

// Signal scores one structural aspect of a position. Scores are
// White-positive; the evaluator flips them for Black.
type Signal interface {
	Kind() SignalKind

	Evaluate(pos game.Position) (float64, error)

	// LoadWeights pulls the signal's scale from the weights table. A
	// missing row keeps the baked-in baseline and is not an error.
	LoadWeights(repo store.WeightsRepo) error
}

// inspections caches the last Inspect result so the built-in signals
// share one inspection per evaluated position.
type inspections struct {
	insp game.Inspector
	pos  game.Position
	last game.Inspection
	ok   bool
}

func (s *inspections) at(pos game.Position) (game.Inspection, error) {
	if s.ok && s.pos == pos {
		return s.last, nil
	}
	in, err := s.insp.Inspect(pos)
	if err != nil {
		s.ok = false
		return game.Inspection{}, err
	}
	s.pos, s.last, s.ok = pos, in, true
	return in, nil
}

// signal is a built-in signal: a projection of Inspection times a
// tunable scale.
type signal struct {
	kind    SignalKind
	scale   float64
	src     *inspections
	project func(game.Inspection) float64
}

func (s *signal) Kind() SignalKind { return s.kind }

func (s *signal) Evaluate(pos game.Position) (float64, error) {
	in, err := s.src.at(pos)
	if err != nil {
		return 0, err
	}
	return s.scale * s.project(in), nil
}

func (s *signal) LoadWeights(repo store.WeightsRepo) error {
	row, err := repo.Get(s.kind.String())
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	s.scale = row.Value
	return nil
}

// Baseline scales, in centipawns per projection unit.
const (
	materialScale = 100.0
	mobilityScale = 4.0
	kingScale     = 8.0
	tensionScale  = 3.0
)

func builtins(src *inspections) []Signal {
	return []Signal{
		&signal{kind: Material, scale: materialScale, src: src, project: func(in game.Inspection) float64 {
			return in.MaterialBalance(game.White)
		}},
		&signal{kind: Mobility, scale: mobilityScale, src: src, project: func(in game.Inspection) float64 {
			return float64(in.Mobility[game.White] - in.Mobility[game.Black])
		}},
		&signal{kind: KingSafety, scale: kingScale, src: src, project: func(in game.Inspection) float64 {
			w := in.KingShield[game.White] - in.KingAttackers[game.White]
			b := in.KingShield[game.Black] - in.KingAttackers[game.Black]
			return float64(w - b)
		}},
		&signal{kind: PawnStructure, scale: 1, src: src, project: func(in game.Inspection) float64 {
			weak := in.PawnWeaknesses[game.White] - in.PawnWeaknesses[game.Black]
			adv := in.PawnAdvance[game.White] - in.PawnAdvance[game.Black]
			return -12*float64(weak) + 40*adv
		}},
		&signal{kind: Center, scale: 1, src: src, project: func(in game.Inspection) float64 {
			ctrl := in.CenterControl[game.White] - in.CenterControl[game.Black]
			central := in.Centralization[game.White] - in.Centralization[game.Black]
			space := in.Space[game.White] - in.Space[game.Black]
			return 10*float64(ctrl) + 6*central + 2*float64(space)
		}},
		&signal{kind: Development, scale: 1, src: src, project: func(in game.Inspection) float64 {
			dev := in.Developed[game.White] - in.Developed[game.Black]
			coord := in.Coordination[game.White] - in.Coordination[game.Black]
			return 10*float64(dev) + 4*float64(coord)
		}},
		&signal{kind: Tension, scale: tensionScale, src: src, project: func(in game.Inspection) float64 {
			// Pending captures favor the side with the move.
			if in.SideToMove == game.White {
				return float64(in.Tension)
			}
			return -float64(in.Tension)
		}},
	}
}
