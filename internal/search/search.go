// Package search picks moves with a two-stage adaptive search: a root
// ordering pass under the full evaluator and learned bonuses, then a
// depth-limited alpha-beta refinement over the ordered candidates. It
// also digests finished games back into the learned state.
package search

import (
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/hailam/chessmind/internal/cache"
	"github.com/hailam/chessmind/internal/cluster"
	"github.com/hailam/chessmind/internal/config"
	"github.com/hailam/chessmind/internal/eval"
	"github.com/hailam/chessmind/internal/game"
	"github.com/hailam/chessmind/internal/pattern"
	"github.com/hailam/chessmind/internal/store"
)

// infScore bounds the alpha-beta window strictly above the terminal
// sentinels.
const infScore = 2 * eval.TerminalScore

// Deps are the collaborators and learned components an engine runs on.
type Deps struct {
	Rules     game.Rules
	Inspector game.Inspector
	Eval      *eval.Evaluator
	Cache     *cache.Cache
	Patterns  *pattern.Engine
	Clusters  *cluster.Index
	Store     store.Store
}

// Engine picks moves and records outcomes. Not safe for concurrent
// use; run one engine per playing agent.
type Engine struct {
	rules    game.Rules
	insp     game.Inspector
	eval     *eval.Evaluator
	cache    *cache.Cache
	patterns *pattern.Engine
	clusters *cluster.Index
	st       store.Store
	cfg      config.SearchConfig
	log      *slog.Logger

	nodes    int
	depth    int
	elapsed  time.Duration
	lastGame string
}

// Stats is a snapshot of the last move decision plus cache counters.
type Stats struct {
	Nodes   int
	Depth   int
	Elapsed time.Duration
	Cache   cache.Stats
}

func New(d Deps, cfg config.SearchConfig, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{
		rules:    d.Rules,
		insp:     d.Inspector,
		eval:     d.Eval,
		cache:    d.Cache,
		patterns: d.Patterns,
		clusters: d.Clusters,
		st:       d.Store,
		cfg:      cfg,
		log:      log,
	}
}

// Build wires an engine and every learned component over one store.
func Build(rules game.Rules, insp game.Inspector, st store.Store, cfg config.Config, log *slog.Logger) *Engine {
	ev := eval.New(rules, insp, nil, log)
	ev.LoadWeights(st.Weights())
	return New(Deps{
		Rules:     rules,
		Inspector: insp,
		Eval:      ev,
		Cache:     cache.New(st.Cache(), cfg.Cache, log),
		Patterns:  pattern.New(insp, st.Patterns(), cfg.Pattern, log),
		Clusters:  cluster.New(insp, st.Clusters(), cfg.Cluster, log),
		Store:     st,
	}, cfg.Search, log)
}

// rootMove is one root candidate. The child position is kept so deeper
// iterations need not reapply the move. bad marks candidates the rules
// engine rejected on Apply; they sort last and are never searched.
type rootMove struct {
	move  game.Move
	child game.Position
	score float64
	bad   bool
}

// FindBestMove returns the best move for pos within the wall-clock
// budget. It errors only when the rules engine cannot enumerate or
// orient the root; every other failure degrades. A position with no
// legal moves yields (NoMove, terminal score, nil).
func (e *Engine) FindBestMove(pos game.Position) (game.Move, float64, error) {
	start := time.Now()
	deadline := start.Add(e.cfg.TimeBudget)
	e.nodes, e.depth = 0, 0
	defer func() { e.elapsed = time.Since(start) }()

	moves, err := e.rules.LegalMoves(pos)
	if err != nil {
		return game.NoMove, 0, fmt.Errorf("enumerate root: %w", err)
	}
	rootSide, err := e.rules.SideToMove(pos)
	if err != nil {
		return game.NoMove, 0, fmt.Errorf("orient root: %w", err)
	}
	if len(moves) == 0 {
		return game.NoMove, e.eval.Score(pos, rootSide), nil
	}

	cands := e.orderRoot(pos, moves, rootSide, deadline)
	bestMove, bestScore := cands[0].move, cands[0].score
	e.depth = 1

	// Iterative deepening over the stage-1 order. Each completed depth
	// replaces the answer; a depth cut short by the deadline is
	// discarded whole and the previous answer stands.
	for d := 2; d <= e.cfg.MaxDepth; d++ {
		if time.Now().After(deadline) {
			break
		}
		mv, score, done := e.searchRoot(cands, d, rootSide, deadline)
		if !done {
			break
		}
		bestMove, bestScore = mv, score
		e.depth = d
	}

	e.log.Debug("move picked",
		"move", bestMove, "score", bestScore,
		"depth", e.depth, "nodes", e.nodes,
		"elapsed", time.Since(start))
	return bestMove, bestScore, nil
}

// orderRoot is the first stage: each candidate child scored with the
// full evaluator plus the candidate's learned bonus. Expensive
// discovery runs only here, and only when the cache policy allows it;
// otherwise misses are plain zeros. Candidates reached after the
// deadline get fast scores instead. The first candidate is always
// scored in full, so a zero budget still produces a reasoned move.
func (e *Engine) orderRoot(pos game.Position, moves []game.Move, rootSide game.Side, deadline time.Time) []rootMove {
	explore := e.cache.ShouldExplore()

	cands := make([]rootMove, 0, len(moves))
	for i, mv := range moves {
		child, err := e.rules.Apply(pos, mv)
		if err != nil {
			e.log.Warn("root move rejected by rules", "move", mv, "err", err)
			cands = append(cands, rootMove{move: mv, score: -infScore, bad: true})
			continue
		}

		if i > 0 && time.Now().After(deadline) {
			cands = append(cands, rootMove{move: mv, child: child, score: e.eval.QuickScore(child, rootSide)})
			continue
		}

		score := e.eval.Score(child, rootSide)
		var fn cache.QueryFunc
		if explore {
			fn = func() (float64, error) { return e.expensiveQuery(pos, mv), nil }
		}
		bonus, _ := e.cache.Bonus(pos, mv, fn)
		cands = append(cands, rootMove{move: mv, child: child, score: score + bonus})
	}

	sort.SliceStable(cands, func(i, j int) bool { return cands[i].score > cands[j].score })
	return cands
}

// searchRoot runs one full-window alpha-beta iteration at the given
// depth over the stage-1 order. done is false when the deadline cut the
// iteration short; the partial result must not replace a complete one.
func (e *Engine) searchRoot(cands []rootMove, depth int, rootSide game.Side, deadline time.Time) (game.Move, float64, bool) {
	alpha, beta := -infScore, infScore
	bestMove, bestVal := cands[0].move, -infScore
	opp := rootSide.Other()

	for i := range cands {
		c := cands[i]
		if c.bad {
			continue
		}
		if time.Now().After(deadline) {
			return bestMove, bestVal, false
		}

		v, ok := e.negamax(c.child, depth-1, -beta, -alpha, opp, deadline)
		if !ok {
			return bestMove, bestVal, false
		}
		v = -v
		if v > bestVal {
			bestVal, bestMove = v, c.move
		}
		if v > alpha {
			alpha = v
		}
	}
	return bestMove, bestVal, true
}

// Snapshot returns counters from the most recent FindBestMove.
func (e *Engine) Snapshot() Stats {
	return Stats{
		Nodes:   e.nodes,
		Depth:   e.depth,
		Elapsed: e.elapsed,
		Cache:   e.cache.Snapshot(),
	}
}
