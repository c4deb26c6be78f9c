package game

// Position is a canonical encoded board state. It is produced and
// interpreted only by the rules collaborator; the engine treats it as an
// opaque, stable key. Equal strings mean equal positions.
type Position string

// Move is a compact move encoding, meaningful relative to the Position it
// was generated for.
type Move string

// NoMove is returned when a position admits no legal move.
const NoMove Move = ""

// PatternKey identifies a learned (position, move) association. It is the
// unit key of the adaptive cache and the persistent pattern_cache table.
type PatternKey struct {
	Position Position `json:"position"`
	Move     Move     `json:"move"`
}

// Key builds a PatternKey.
func Key(pos Position, mv Move) PatternKey {
	return PatternKey{Position: pos, Move: mv}
}

// String returns the storage form of the key. Position encodings never
// contain '|'.
func (k PatternKey) String() string {
	return string(k.Position) + "|" + string(k.Move)
}

// Side represents a player.
type Side uint8

const (
	White Side = iota
	Black
)

// Other returns the opposite side.
func (s Side) Other() Side {
	return s ^ 1
}

// String returns the side name.
func (s Side) String() string {
	if s == White {
		return "white"
	}
	return "black"
}

// Result is the outcome of a finished game from the agent's perspective.
type Result uint8

const (
	Win Result = iota
	Loss
	Draw
)

// String returns the result name.
func (r Result) String() string {
	switch r {
	case Win:
		return "win"
	case Loss:
		return "loss"
	default:
		return "draw"
	}
}

// Status is the rules engine's verdict on a position. Checkmate means the
// side to move is mated.
type Status uint8

const (
	Ongoing Status = iota
	Checkmate
	Stalemate
	DrawnGame
)

// Terminal reports whether the game is over in this position.
func (st Status) Terminal() bool {
	return st != Ongoing
}

// String returns the status name.
func (st Status) String() string {
	switch st {
	case Ongoing:
		return "ongoing"
	case Checkmate:
		return "checkmate"
	case Stalemate:
		return "stalemate"
	default:
		return "drawn"
	}
}

// PieceKind classifies a moved piece in MoveFacts.
type PieceKind uint8

const (
	Pawn PieceKind = iota
	Knight
	Bishop
	Rook
	Queen
	King
	NoPieceKind
)

// String returns the piece kind name.
func (pk PieceKind) String() string {
	switch pk {
	case Pawn:
		return "pawn"
	case Knight:
		return "knight"
	case Bishop:
		return "bishop"
	case Rook:
		return "rook"
	case Queen:
		return "queen"
	case King:
		return "king"
	default:
		return "none"
	}
}

// Phase is the broad stage of the game, used for evaluation weighting.
type Phase uint8

const (
	Opening Phase = iota
	Middlegame
	Endgame
)

// String returns the phase name.
func (p Phase) String() string {
	switch p {
	case Opening:
		return "opening"
	case Middlegame:
		return "middlegame"
	default:
		return "endgame"
	}
}

// MoveRecord is one ply of a finished game: the position the move was
// played from, the move itself, and an optional display notation.
type MoveRecord struct {
	Before   Position `json:"before"`
	Move     Move     `json:"move"`
	Notation string   `json:"notation,omitempty"`
}

// Outcome describes a finished game for post-game learning. Result is
// relative to Mover, the side the agent played. Each outcome is consumed
// exactly once; ID deduplicates repeated deliveries.
type Outcome struct {
	ID     string       `json:"id"`
	Mover  Side         `json:"mover"`
	Result Result       `json:"result"`
	Moves  []MoveRecord `json:"moves"`
}
