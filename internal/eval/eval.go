// Package eval scores positions by combining phase-weighted structural
// signals. Decided positions short-circuit to terminal sentinels that
// dominate any achievable signal sum.
package eval

import (
	"log/slog"

	"github.com/hailam/chessmind/internal/game"
	"github.com/hailam/chessmind/internal/store"
)

// TerminalScore is the sentinel magnitude for decided positions.
const TerminalScore = 100000.0

// Fast-path scales for QuickScore.
const (
	quickMaterial = 100.0
	quickMobility = 4.0
)

// memoCap bounds the score memo. The memo is dropped wholesale when
// full; entries are cheap to recompute.
const memoCap = 1 << 16

type memoKey struct {
	pos  game.Position
	side game.Side
}

// Evaluator scores positions for a given perspective. Scoring is pure
// per (position, perspective) and memoized. Not safe for concurrent use.
type Evaluator struct {
	rules   game.Rules
	phase   PhaseDetector
	signals []Signal
	src     *inspections
	log     *slog.Logger
	memo    map[memoKey]float64
}

// New builds an evaluator over the built-in signals. A nil detector
// gets the default ThresholdDetector.
func New(rules game.Rules, insp game.Inspector, det PhaseDetector, log *slog.Logger) *Evaluator {
	if det == nil {
		det = NewThresholdDetector(insp)
	}
	if log == nil {
		log = slog.Default()
	}
	src := &inspections{insp: insp}
	return &Evaluator{
		rules:   rules,
		phase:   det,
		signals: builtins(src),
		src:     src,
		log:     log,
		memo:    make(map[memoKey]float64),
	}
}

// LoadWeights refreshes every signal's scale from the weights table.
// Missing rows keep baselines; a failing store leaves the evaluator on
// baselines too.
func (e *Evaluator) LoadWeights(repo store.WeightsRepo) {
	for _, sig := range e.signals {
		if err := sig.LoadWeights(repo); err != nil {
			e.log.Warn("signal weights unavailable", "signal", sig.Kind(), "err", err)
		}
	}
}

// Score returns the full score of pos for perspective; positive favors
// perspective.
func (e *Evaluator) Score(pos game.Position, perspective game.Side) float64 {
	key := memoKey{pos: pos, side: perspective}
	if s, ok := e.memo[key]; ok {
		return s
	}

	s := e.score(pos, perspective)
	if len(e.memo) >= memoCap {
		clear(e.memo)
	}
	e.memo[key] = s
	return s
}

func (e *Evaluator) score(pos game.Position, perspective game.Side) float64 {
	status, err := e.rules.Status(pos)
	if err != nil {
		e.log.Debug("status unavailable, scoring as ongoing", "err", err)
	} else if status.Terminal() {
		return e.terminal(pos, status, perspective)
	}

	ph, err := e.phase.Phase(pos)
	if err != nil {
		e.log.Debug("phase detection failed, assuming middlegame", "err", err)
		ph = game.Middlegame
	}
	weights := e.phase.Weights(ph)

	sum := 0.0
	for _, sig := range e.signals {
		v, err := sig.Evaluate(pos)
		if err != nil {
			e.log.Debug("signal failed", "signal", sig.Kind(), "err", err)
			continue
		}
		sum += weights[sig.Kind()] * v
	}
	if perspective == game.Black {
		sum = -sum
	}
	return sum
}

func (e *Evaluator) terminal(pos game.Position, status game.Status, perspective game.Side) float64 {
	if status != game.Checkmate {
		return 0
	}
	mated, err := e.rules.SideToMove(pos)
	if err != nil {
		e.log.Debug("side to move unavailable on mate", "err", err)
		return 0
	}
	if mated == perspective {
		return -TerminalScore
	}
	return TerminalScore
}

// QuickScore is the fast path for the recursive search stage: material
// and mobility only, no phase weighting, no terminal probe. The caller
// handles terminal positions itself.
func (e *Evaluator) QuickScore(pos game.Position, perspective game.Side) float64 {
	in, err := e.src.at(pos)
	if err != nil {
		e.log.Debug("inspection failed in fast path", "err", err)
		return 0
	}
	s := quickMaterial*in.MaterialBalance(game.White) +
		quickMobility*float64(in.Mobility[game.White]-in.Mobility[game.Black])
	if perspective == game.Black {
		s = -s
	}
	return s
}
