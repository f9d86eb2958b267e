package engine

// CellKind is the content of one board cell. Only CellVoid matters for movement; the encoder
// hashes every kind.
type CellKind uint8

const (
	CellVoid CellKind = iota
	CellStartCube
	CellGoalCube
	CellEnemy
	numCellKinds
)

// Color is an opaque marker for the start or goal coloring of a level.
type Color uint32

// Board is a row-major snapshot of the playfield.
type Board [][]CellKind

type Position struct {
	Row int
	Col int
}

func (p Position) step(a Action) Position {
	dr, dc := a.delta()
	return Position{Row: p.Row + dr, Col: p.Col + dc}
}

// Clone returns a deep copy of b.
func (b Board) Clone() Board {
	if b == nil {
		return nil
	}
	copied := make(Board, len(b))
	for r, row := range b {
		copied[r] = append([]CellKind(nil), row...)
	}
	return copied
}

// LegalActions returns, in canonical order, every direction whose target cell is not void.
// The board must have a cell in all four neighbors of pos; a board edge without void padding
// is a caller bug and panics with an index error.
func LegalActions(pos Position, board Board) []Action {
	actions := make([]Action, 0, numActions)
	for _, a := range canonicalActions {
		next := pos.step(a)
		if board[next.Row][next.Col] != CellVoid {
			actions = append(actions, a)
		}
	}
	return actions
}
