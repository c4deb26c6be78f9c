package pattern

import (
	"testing"

	"github.com/hailam/chessmind/internal/game"
)

func TestBattery(t *testing.T) {
	cases := []struct {
		name  string
		facts game.MoveFacts
		typ   Type
		fires bool
	}{
		{
			name:  "undefended piece on attacked square",
			facts: game.MoveFacts{Piece: game.Knight, DestAttackers: 2, DestDefenders: 0},
			typ:   HangingPiece,
			fires: true,
		},
		{
			name:  "outnumbered but defended",
			facts: game.MoveFacts{Piece: game.Bishop, DestAttackers: 3, DestDefenders: 1},
			typ:   HangingPiece,
			fires: true,
		},
		{
			name:  "well defended piece",
			facts: game.MoveFacts{Piece: game.Knight, DestAttackers: 1, DestDefenders: 2},
			typ:   HangingPiece,
			fires: false,
		},
		{
			name:  "king never hangs",
			facts: game.MoveFacts{Piece: game.King, DestAttackers: 1, DestDefenders: 0},
			typ:   HangingPiece,
			fires: false,
		},
		{
			name:  "early queen sortie",
			facts: game.MoveFacts{Piece: game.Queen, MoveNumber: 4, Developed: 1},
			typ:   PrematureQueen,
			fires: true,
		},
		{
			name:  "queen out after development",
			facts: game.MoveFacts{Piece: game.Queen, MoveNumber: 4, Developed: 3},
			typ:   PrematureQueen,
			fires: false,
		},
		{
			name:  "queen out late",
			facts: game.MoveFacts{Piece: game.Queen, MoveNumber: 20, Developed: 1},
			typ:   PrematureQueen,
			fires: false,
		},
		{
			name:  "castling thrown away early",
			facts: game.MoveFacts{Piece: game.Rook, MoveNumber: 6, BreaksCastling: true},
			typ:   KingSafety,
			fires: true,
		},
		{
			name:  "castling rights already spent",
			facts: game.MoveFacts{Piece: game.Rook, MoveNumber: 6},
			typ:   KingSafety,
			fires: false,
		},
		{
			name:  "shuffling in the opening",
			facts: game.MoveFacts{Piece: game.Knight, MoveNumber: 3, PriorMoves: 1, Developed: 1},
			typ:   TempoLoss,
			fires: true,
		},
		{
			name:  "repeat move after development",
			facts: game.MoveFacts{Piece: game.Knight, MoveNumber: 3, PriorMoves: 1, Developed: 4},
			typ:   TempoLoss,
			fires: false,
		},
		{
			name:  "center given up",
			facts: game.MoveFacts{Piece: game.Pawn, MoveNumber: 7, CenterDelta: -1.5},
			typ:   CenterControl,
			fires: true,
		},
		{
			name:  "center held",
			facts: game.MoveFacts{Piece: game.Pawn, MoveNumber: 7, CenterDelta: 0.5},
			typ:   CenterControl,
			fires: false,
		},
		{
			name:  "structure damaged",
			facts: game.MoveFacts{Piece: game.Pawn, PawnWeaknessDelta: 1},
			typ:   PawnWeakness,
			fires: true,
		},
		{
			name:  "piece buried with attackers",
			facts: game.MoveFacts{Piece: game.Bishop, DestMobility: 0, DestAttackers: 1, DestDefenders: 2},
			typ:   TrappedPiece,
			fires: true,
		},
		{
			name:  "cramped but unattacked",
			facts: game.MoveFacts{Piece: game.Bishop, DestMobility: 0, DestAttackers: 0},
			typ:   TrappedPiece,
			fires: false,
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			var fn func(game.MoveFacts) (string, bool)
			for _, chk := range battery {
				if chk.typ == c.typ {
					fn = chk.fn
					break
				}
			}
			if fn == nil {
				t.Fatalf("no check registered for %v", c.typ)
			}

			desc, fired := fn(c.facts)
			if fired != c.fires {
				t.Errorf("fired = %v, want %v", fired, c.fires)
			}
			if fired && desc == "" {
				t.Error("a firing check must produce a description")
			}

			// Same facts, same verdict, same description.
			desc2, fired2 := fn(c.facts)
			if fired2 != fired || desc2 != desc {
				t.Error("check is not deterministic")
			}
		})
	}
}

func TestTypeRoundTrip(t *testing.T) {
	for typ := Type(0); typ < numTypes; typ++ {
		got, ok := TypeFromString(typ.String())
		if !ok || got != typ {
			t.Errorf("round trip of %v failed: got %v, ok=%v", typ, got, ok)
		}
		if typ.Priority() <= 0 {
			t.Errorf("%v has no default priority", typ)
		}
	}

	if _, ok := TypeFromString("made_up_label"); ok {
		t.Error("unknown slug must not map to a type")
	}
}
