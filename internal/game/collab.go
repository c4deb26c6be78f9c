package game

// Rules is the externally supplied rules engine. Implementations own move
// legality, position encoding, and terminal detection; the engine never
// reimplements any of it. All methods may be called with positions the
// implementation itself produced via Apply.
type Rules interface {
	// LegalMoves returns every legal move in pos. An empty slice with a
	// nil error is a terminal position, not a failure.
	LegalMoves(pos Position) ([]Move, error)

	// Apply returns the position after mv is played in pos.
	Apply(pos Position, mv Move) (Position, error)

	// Status returns the terminal verdict for pos.
	Status(pos Position) (Status, error)

	// SideToMove returns the side to move in pos.
	SideToMove(pos Position) (Side, error)

	// MoveNumber returns the full-move number of pos, starting at 1.
	MoveNumber(pos Position) (int, error)
}

// Inspector reports structural facts about positions and moves. Facts are
// plain data; everything built on them (pattern checks, clustering
// features, built-in signals) is a pure function and stays testable with
// hand-built values.
type Inspector interface {
	Inspect(pos Position) (Inspection, error)
	InspectMove(pos Position, mv Move) (MoveFacts, error)
}

// Inspection carries side-indexed structural facts about a position.
// Arrays are indexed by Side.
type Inspection struct {
	SideToMove Side
	MoveNumber int

	// Material is total material per side in pawn units, kings excluded.
	Material [2]float64
	// Mobility is the legal-move count per side.
	Mobility [2]int
	// Centralization measures piece influence on the four center squares.
	Centralization [2]float64
	// KingAttackers counts enemy pieces bearing on each side's king zone.
	KingAttackers [2]int
	// KingShield counts intact pawns sheltering each king.
	KingShield [2]int
	// PawnAdvance is the mean advancement of each side's pawns, 0..1.
	PawnAdvance [2]float64
	// PawnWeaknesses counts doubled, isolated and backward pawns.
	PawnWeaknesses [2]int
	// Space counts squares controlled beyond each side's own half.
	Space [2]int
	// CenterControl counts center squares occupied or attacked per side.
	CenterControl [2]int
	// Developed counts pieces moved off their starting squares.
	Developed [2]int
	// Coordination counts mutually defending piece pairs.
	Coordination [2]int
	// OpenFiles counts files with no pawns of either side.
	OpenFiles int
	// Tension counts mutual capture pairs, a tactical-complexity proxy.
	Tension int
}

// MaterialBalance returns material of s minus material of the opponent.
func (in Inspection) MaterialBalance(s Side) float64 {
	return in.Material[s] - in.Material[s.Other()]
}

// MoveFacts describes a single move in its position context, from the
// mover's point of view. Destination facts are evaluated after the move
// is made.
type MoveFacts struct {
	Mover      Side
	Piece      PieceKind
	PieceValue float64
	MoveNumber int

	Capture       bool
	CapturedValue float64
	Check         bool

	// DestAttackers and DestDefenders count enemy attackers and friendly
	// defenders of the destination square after the move.
	DestAttackers int
	DestDefenders int
	// DestMobility is the moved piece's own move count from its
	// destination square.
	DestMobility int

	// PriorMoves is how many times this same piece already moved this
	// game. Zero when the encoding carries no history.
	PriorMoves int
	// Developed counts the mover's developed pieces before this move.
	Developed int

	// BreaksCastling is set when the move forfeits a still-available
	// castling right without castling. Castles is set on castling itself.
	BreaksCastling bool
	Castles        bool

	// CenterDelta is the change in the mover's center control caused by
	// the move. PawnWeaknessDelta is the change in the mover's
	// doubled/isolated/backward pawn count.
	CenterDelta       float64
	PawnWeaknessDelta int
}
