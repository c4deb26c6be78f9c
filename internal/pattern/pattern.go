// Package pattern abstracts concrete mistakes into reusable lessons. A
// battery of pure checks turns (position, move) facts into typed abstract
// patterns; outcome counters accumulate over games and feed back into
// search as penalties for lines that violate well-established patterns.
package pattern

import "time"

// Type is the closed set of abstract pattern categories. New categories
// are added here and nowhere else; an unknown category cannot be
// constructed at runtime.
type Type uint8

const (
	HangingPiece Type = iota
	PrematureQueen
	KingSafety
	TempoLoss
	CenterControl
	PawnWeakness
	TrappedPiece
	numTypes
)

// String returns the stable slug used in storage keys and logs.
func (t Type) String() string {
	switch t {
	case HangingPiece:
		return "hanging_piece"
	case PrematureQueen:
		return "premature_queen_development"
	case KingSafety:
		return "king_safety"
	case TempoLoss:
		return "tempo_loss"
	case CenterControl:
		return "center_control"
	case PawnWeakness:
		return "pawn_weakness"
	case TrappedPiece:
		return "trapped_piece"
	default:
		return "unknown"
	}
}

// TypeFromString maps a stored slug back to its Type.
func TypeFromString(s string) (Type, bool) {
	for t := Type(0); t < numTypes; t++ {
		if t.String() == s {
			return t, true
		}
	}
	return numTypes, false
}

// defaultPriority weights each category before outcome statistics have
// anything to say. Tactical categories outrank positional ones.
var defaultPriority = [numTypes]float64{
	HangingPiece:   1.0,
	PrematureQueen: 0.5,
	KingSafety:     0.8,
	TempoLoss:      0.4,
	CenterControl:  0.4,
	PawnWeakness:   0.3,
	TrappedPiece:   0.7,
}

// Priority returns the category's default heuristic weight.
func (t Type) Priority() float64 {
	if t >= numTypes {
		return 0
	}
	return defaultPriority[t]
}

// Confidence saturates once a pattern has been seen this many times.
const confidenceSeen = 10.0

// Abstract is one learned abstract pattern with its lifetime statistics.
// Identity is (Type, Description); counters only ever grow.
type Abstract struct {
	Type        Type
	Description string
	TimesSeen   int
	Wins        int
	Losses      int
	Draws       int
	// AvgLoss is the running mean material loss, in pawn units, across
	// the extractions of this pattern.
	AvgLoss float64
	// WinRate is wins over all recorded outcomes. Recomputed from the
	// counters on every change, never incrementally drifted.
	WinRate   float64
	UpdatedAt time.Time
}

// Confidence grows linearly with sightings and saturates at 1.
func (a *Abstract) Confidence() float64 {
	c := float64(a.TimesSeen) / confidenceSeen
	if c > 1 {
		return 1
	}
	return c
}

// Outcomes returns the number of recorded game outcomes.
func (a *Abstract) Outcomes() int {
	return a.Wins + a.Losses + a.Draws
}

func (a *Abstract) key() string {
	return a.Type.String() + ":" + a.Description
}

// recount recomputes WinRate from the counters.
func (a *Abstract) recount() {
	total := a.Outcomes()
	if total == 0 {
		a.WinRate = 0
		return
	}
	a.WinRate = float64(a.Wins) / float64(total)
}
