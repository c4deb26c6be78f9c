package search

import (
	"errors"

	"github.com/hailam/chessmind/internal/game"
	"github.com/hailam/chessmind/internal/store"
)

// expensiveQuery is the discovery probe behind a root cache miss:
// pattern violation penalties for the candidate move plus bonuses
// transferred from the same move in structurally similar positions.
// Partial failures degrade to whatever could be gathered; the result is
// a plain number the cache can keep.
func (e *Engine) expensiveQuery(pos game.Position, mv game.Move) float64 {
	total := 0.0

	violations, err := e.patterns.CheckViolations(pos, mv)
	if err != nil {
		e.log.Debug("violation check failed", "move", mv, "err", err)
	} else {
		total += e.patterns.Penalty(violations)
	}

	for _, match := range e.clusters.FindSimilar(pos, e.cfg.SimilarLimit) {
		row, err := e.st.Cache().Get(game.Key(match.Position, mv))
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			e.log.Debug("neighbor bonus lookup failed", "pos", match.Position, "err", err)
			continue
		}
		// Nearer neighbors transfer more of their bonus.
		total += row.Bonus / (1 + match.Distance)
	}
	return total
}
