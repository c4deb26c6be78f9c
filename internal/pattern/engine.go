package pattern

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/hailam/chessmind/internal/config"
	"github.com/hailam/chessmind/internal/game"
	"github.com/hailam/chessmind/internal/store"
)

// Engine runs the check battery and owns the abstract pattern statistics.
// All known patterns live in memory; store writes are batched and flushed
// every FlushEvery changes and at game end.
type Engine struct {
	inspect game.Inspector
	repo    store.PatternRepo
	cfg     config.PatternConfig
	log     *slog.Logger

	known   map[string]*Abstract
	pending map[string]*Abstract
}

// New builds the engine and loads previously learned patterns. A failing
// or empty store means starting fresh, never an error.
func New(inspect game.Inspector, repo store.PatternRepo, cfg config.PatternConfig, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	e := &Engine{
		inspect: inspect,
		repo:    repo,
		cfg:     cfg,
		log:     log,
		known:   make(map[string]*Abstract),
		pending: make(map[string]*Abstract),
	}
	e.load()
	return e
}

func (e *Engine) load() {
	rows, err := e.repo.All()
	if err != nil {
		e.log.Warn("pattern load failed, starting empty", "err", err)
		return
	}
	for _, row := range rows {
		a, ok := fromRow(row)
		if !ok {
			e.log.Debug("skipping pattern row with unknown type", "type", row.Type)
			continue
		}
		e.known[a.key()] = a
	}
	if len(e.known) > 0 {
		e.log.Debug("patterns loaded", "count", len(e.known))
	}
}

// Extract runs the battery against a move that lost material and records
// every pattern that fires: times seen and the running average loss are
// updated, and the pattern is staged for persistence. The same facts
// always yield the same patterns in the same order.
func (e *Engine) Extract(pos game.Position, mv game.Move, materialLost float64) ([]*Abstract, error) {
	facts, err := e.inspect.InspectMove(pos, mv)
	if err != nil {
		return nil, fmt.Errorf("inspect move: %w", err)
	}

	var out []*Abstract
	for _, c := range battery {
		desc, fired := c.fn(facts)
		if !fired {
			continue
		}
		out = append(out, e.observe(c.typ, desc, materialLost))
	}
	return out, nil
}

func (e *Engine) observe(typ Type, desc string, materialLost float64) *Abstract {
	key := typ.String() + ":" + desc
	a, ok := e.known[key]
	if !ok {
		a = &Abstract{Type: typ, Description: desc}
		e.known[key] = a
	}

	a.TimesSeen++
	a.AvgLoss += (materialLost - a.AvgLoss) / float64(a.TimesSeen)
	a.UpdatedAt = time.Now()
	e.stage(a)
	return a
}

// CheckViolations runs the battery read-only and returns the known
// patterns a candidate move would repeat, filtered to those with enough
// sightings to act on. No statistics change.
func (e *Engine) CheckViolations(pos game.Position, mv game.Move) ([]*Abstract, error) {
	facts, err := e.inspect.InspectMove(pos, mv)
	if err != nil {
		return nil, fmt.Errorf("inspect move: %w", err)
	}

	var out []*Abstract
	for _, c := range battery {
		desc, fired := c.fn(facts)
		if !fired {
			continue
		}
		a, ok := e.known[c.typ.String()+":"+desc]
		if !ok || a.Confidence() < e.cfg.MinConfidence {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

// ApplyOutcome adds one game result to every unique pattern in the slice.
// Exactly one of wins, losses or draws grows per pattern, and the win
// rate is recomputed from the counters.
func (e *Engine) ApplyOutcome(patterns []*Abstract, result game.Result) {
	seen := make(map[string]bool, len(patterns))
	for _, a := range patterns {
		if a == nil || seen[a.key()] {
			continue
		}
		seen[a.key()] = true

		switch result {
		case game.Win:
			a.Wins++
		case game.Loss:
			a.Losses++
		default:
			a.Draws++
		}
		a.recount()
		a.UpdatedAt = time.Now()
		e.stage(a)
	}
}

// Penalty aggregates violations into a non-positive score adjustment in
// the evaluator's units. Confident, costly, losing patterns weigh most;
// patterns whose record turned winning contribute nothing.
func (e *Engine) Penalty(violations []*Abstract) float64 {
	var sum float64
	for _, a := range violations {
		if a.Outcomes() > 0 && a.WinRate > 0.5 {
			continue
		}
		loss := a.AvgLoss
		if loss < 1 {
			loss = 1
		}
		sum += a.Type.Priority() * a.Confidence() * loss * (1 - a.WinRate)
	}
	return -sum
}

func (e *Engine) stage(a *Abstract) {
	e.pending[a.key()] = a
	if len(e.pending) >= e.cfg.FlushEvery {
		if err := e.Flush(); err != nil {
			e.log.Warn("pattern flush failed", "err", err)
		}
	}
}

// Flush upserts every staged pattern. Upserts are idempotent; a retried
// flush converges.
func (e *Engine) Flush() error {
	if len(e.pending) == 0 {
		return nil
	}

	rows := make([]store.PatternRow, 0, len(e.pending))
	for _, a := range e.pending {
		rows = append(rows, toRow(a))
	}
	if err := e.repo.Upsert(rows); err != nil {
		return fmt.Errorf("flush patterns: %w", err)
	}

	e.pending = make(map[string]*Abstract)
	return nil
}

func toRow(a *Abstract) store.PatternRow {
	return store.PatternRow{
		Type:        a.Type.String(),
		Description: a.Description,
		TimesSeen:   a.TimesSeen,
		Wins:        a.Wins,
		Losses:      a.Losses,
		Draws:       a.Draws,
		AvgLoss:     a.AvgLoss,
		WinRate:     a.WinRate,
		UpdatedAt:   a.UpdatedAt,
	}
}

// fromRow rebuilds an Abstract, recomputing the win rate from the
// counters rather than trusting the stored value.
func fromRow(row store.PatternRow) (*Abstract, bool) {
	typ, ok := TypeFromString(row.Type)
	if !ok {
		return nil, false
	}
	a := &Abstract{
		Type:        typ,
		Description: row.Description,
		TimesSeen:   row.TimesSeen,
		Wins:        row.Wins,
		Losses:      row.Losses,
		Draws:       row.Draws,
		AvgLoss:     row.AvgLoss,
		UpdatedAt:   row.UpdatedAt,
	}
	a.recount()
	return a, true
}
