package search

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hailam/chessmind/internal/game"
	"github.com/hailam/chessmind/internal/pattern"
	"github.com/hailam/chessmind/internal/store"
)

// RecordGameOutcome digests one finished game exactly once: material
// mistakes become pattern abstractions, outcome counters and cached
// bonuses are reinforced, losing lines are evicted, and all batched
// writes land. A repeated game ID is dropped with a warning.
func (e *Engine) RecordGameOutcome(out game.Outcome) error {
	id := out.ID
	if id == "" {
		id = uuid.NewString()
	}
	if id == e.lastGame {
		e.log.Warn("duplicate game outcome dropped", "game", id)
		return nil
	}
	if ok, err := e.st.Games().Has(id); err != nil {
		e.log.Warn("game dedupe probe failed", "game", id, "err", err)
	} else if ok {
		e.log.Warn("duplicate game outcome dropped", "game", id)
		return nil
	}
	e.lastGame = id

	agentMoves, extracted, mistakes := e.digestMoves(out)

	e.patterns.ApplyOutcome(extracted, out.Result)
	e.cache.ApplyOutcome(agentMoves, out.Result)
	if out.Result == game.Loss {
		e.cache.ClearLosingLines(agentMoves)
	}

	if err := e.st.Games().Insert(store.GameRow{
		ID:        id,
		Mover:     out.Mover.String(),
		Result:    out.Result.String(),
		Plies:     len(out.Moves),
		Mistakes:  mistakes,
		CreatedAt: time.Now(),
	}); err != nil {
		e.log.Warn("game log append failed", "game", id, "err", err)
	}

	if err := e.cache.Flush(); err != nil {
		return fmt.Errorf("record outcome: %w", err)
	}
	if err := e.patterns.Flush(); err != nil {
		return fmt.Errorf("record outcome: %w", err)
	}

	e.log.Info("game outcome recorded",
		"game", id, "result", out.Result,
		"plies", len(out.Moves), "mistakes", mistakes)
	return nil
}

// digestMoves walks the game, keeps the agent's own plies, and extracts
// abstractions from moves that lost material. Material lost is the
// agent's balance before its move minus the balance once the opponent
// has replied; the final plies have no reply to measure against and are
// not attributed.
func (e *Engine) digestMoves(out game.Outcome) ([]game.MoveRecord, []*pattern.Abstract, int) {
	var agentMoves []game.MoveRecord
	var extracted []*pattern.Abstract
	mistakes := 0

	for i, rec := range out.Moves {
		mover, err := e.rules.SideToMove(rec.Before)
		if err != nil {
			e.log.Debug("ply skipped, side unknown", "ply", i, "err", err)
			continue
		}
		if mover != out.Mover {
			continue
		}
		agentMoves = append(agentMoves, rec)

		if i+2 >= len(out.Moves) {
			continue
		}
		before, err := e.insp.Inspect(rec.Before)
		if err != nil {
			e.log.Debug("ply skipped, inspection failed", "ply", i, "err", err)
			continue
		}
		after, err := e.insp.Inspect(out.Moves[i+2].Before)
		if err != nil {
			e.log.Debug("ply skipped, inspection failed", "ply", i+2, "err", err)
			continue
		}

		lost := before.MaterialBalance(out.Mover) - after.MaterialBalance(out.Mover)
		if lost < e.cfg.MistakeThreshold {
			continue
		}
		mistakes++

		abs, err := e.patterns.Extract(rec.Before, rec.Move, lost)
		if err != nil {
			e.log.Debug("extraction failed", "ply", i, "err", err)
			continue
		}
		extracted = append(extracted, abs...)
	}
	return agentMoves, extracted, mistakes
}
