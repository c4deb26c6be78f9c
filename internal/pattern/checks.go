package pattern

import (
	"github.com/hailam/chessmind/internal/game"
)

// Opening thresholds for the check battery, in full moves.
const (
	queenDevelopBy  = 8
	castleDeadline  = 15
	openingMoves    = 5
	centerDeadline  = 12
	developedFloor  = 2
	centerSurrender = -1.0
)

// A check tests one category against the facts of a single move. Checks
// are pure: the same facts always produce the same verdict and the same
// description string.
type check struct {
	typ Type
	fn  func(game.MoveFacts) (string, bool)
}

// battery is evaluated in order; order is part of extraction determinism.
var battery = []check{
	{HangingPiece, checkHangingPiece},
	{PrematureQueen, checkPrematureQueen},
	{KingSafety, checkKingSafety},
	{TempoLoss, checkTempoLoss},
	{CenterControl, checkCenterControl},
	{PawnWeakness, checkPawnWeakness},
	{TrappedPiece, checkTrappedPiece},
}

func checkHangingPiece(f game.MoveFacts) (string, bool) {
	if f.Piece == game.King {
		return "", false
	}
	if f.DestAttackers <= f.DestDefenders {
		return "", false
	}
	if f.DestDefenders == 0 {
		return "undefended " + f.Piece.String() + " on attacked square", true
	}
	return f.Piece.String() + " outnumbered on destination", true
}

func checkPrematureQueen(f game.MoveFacts) (string, bool) {
	if f.Piece != game.Queen {
		return "", false
	}
	if f.MoveNumber > queenDevelopBy || f.Developed >= developedFloor {
		return "", false
	}
	return "queen developed before minor pieces", true
}

func checkKingSafety(f game.MoveFacts) (string, bool) {
	if !f.BreaksCastling || f.MoveNumber > castleDeadline {
		return "", false
	}
	return "castling forfeited in the opening", true
}

func checkTempoLoss(f game.MoveFacts) (string, bool) {
	if f.MoveNumber > openingMoves || f.PriorMoves < 1 {
		return "", false
	}
	if f.Developed >= developedFloor {
		return "", false
	}
	return "same piece moved twice in the opening", true
}

func checkCenterControl(f game.MoveFacts) (string, bool) {
	if f.MoveNumber > centerDeadline || f.CenterDelta > centerSurrender {
		return "", false
	}
	return "center influence surrendered early", true
}

func checkPawnWeakness(f game.MoveFacts) (string, bool) {
	if f.PawnWeaknessDelta <= 0 {
		return "", false
	}
	return "pawn structure weakened", true
}

func checkTrappedPiece(f game.MoveFacts) (string, bool) {
	if f.Piece == game.Pawn || f.Piece == game.King {
		return "", false
	}
	if f.DestMobility > 0 || f.DestAttackers == 0 {
		return "", false
	}
	return f.Piece.String() + " trapped on destination", true
}
