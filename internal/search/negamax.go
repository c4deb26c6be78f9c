package search

import (
	"time"

	"github.com/hailam/chessmind/internal/eval"
	"github.com/hailam/chessmind/internal/game"
)

// Move ordering priorities inside the recursion. Captures outrank
// checks; checks outrank learned bonuses.
const (
	captureBase = 100000.0
	checkBase   = 10000.0
)

type scoredMove struct {
	move  game.Move
	score float64
}

// negamax searches pos to the given depth from the side to move's
// perspective. ok is false when the deadline expired inside the
// subtree; the partial value must be discarded by the caller. Rules
// failures below the root degrade to fast leaf scores, never errors.
func (e *Engine) negamax(pos game.Position, depth int, alpha, beta float64, mover game.Side, deadline time.Time) (float64, bool) {
	if time.Now().After(deadline) {
		return 0, false
	}
	e.nodes++

	status, err := e.rules.Status(pos)
	if err != nil {
		e.log.Debug("status failed in search", "err", err)
	} else if status.Terminal() {
		if status == game.Checkmate {
			return -eval.TerminalScore, true
		}
		return 0, true
	}

	if depth <= 0 {
		return e.eval.QuickScore(pos, mover), true
	}

	moves, err := e.rules.LegalMoves(pos)
	if err != nil {
		e.log.Debug("movegen failed in search", "err", err)
		return e.eval.QuickScore(pos, mover), true
	}
	if len(moves) == 0 {
		// Status said ongoing; treat a moveless position as drawn.
		return 0, true
	}

	scored := e.scoreMoves(pos, moves)

	best := -infScore
	for i := range scored {
		pickMove(scored, i)

		child, err := e.rules.Apply(pos, scored[i].move)
		if err != nil {
			e.log.Debug("apply failed in search", "move", scored[i].move, "err", err)
			continue
		}
		v, ok := e.negamax(child, depth-1, -beta, -alpha, mover.Other(), deadline)
		if !ok {
			return best, false
		}
		v = -v
		if v > best {
			best = v
		}
		if v > alpha {
			alpha = v
		}
		if alpha >= beta {
			break
		}
	}
	return best, true
}

// scoreMoves assigns ordering scores: captures by captured value, then
// checks, then the exact-match cached bonus. Only the cheap probe runs
// here; the recursion never pays for discovery.
func (e *Engine) scoreMoves(pos game.Position, moves []game.Move) []scoredMove {
	scored := make([]scoredMove, len(moves))
	for i, mv := range moves {
		s := 0.0
		facts, err := e.insp.InspectMove(pos, mv)
		if err != nil {
			e.log.Debug("move inspection failed in ordering", "move", mv, "err", err)
		} else {
			if facts.Capture {
				s += captureBase + 100*facts.CapturedValue
			}
			if facts.Check {
				s += checkBase
			}
		}
		if b, ok := e.cache.Peek(pos, mv); ok {
			s += b
		}
		scored[i] = scoredMove{move: mv, score: s}
	}
	return scored
}

// pickMove moves the best remaining entry to index i. Lazy selection
// sort, one step per call; with cutoffs most of the list is never
// sorted.
func pickMove(scored []scoredMove, i int) {
	best := i
	for j := i + 1; j < len(scored); j++ {
		if scored[j].score > scored[best].score {
			best = j
		}
	}
	if best != i {
		scored[i], scored[best] = scored[best], scored[i]
	}
}
