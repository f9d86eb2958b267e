package engine

import "sync"

// StateID keys the learner's tables. Encoded ids are always non-negative.
type StateID int64

// NoState marks "no state observed yet in this episode".
const NoState StateID = -1

// zobristTable holds one random key per (cell, kind) and per agent position for a board shape.
// Keys come from a fixed-seed splitmix64 stream so ids are stable across processes.
type zobristTable struct {
	rows   int
	cols   int
	cells  []uint64
	player []uint64
}

type zobristKey struct {
	rows int
	cols int
}

type zobristStore struct {
	mu     sync.Mutex
	tables map[zobristKey]*zobristTable
}

var zobristTables = &zobristStore{tables: make(map[zobristKey]*zobristTable)}

func getZobrist(rows, cols int) *zobristTable {
	zobristTables.mu.Lock()
	defer zobristTables.mu.Unlock()
	key := zobristKey{rows: rows, cols: cols}
	if table, ok := zobristTables.tables[key]; ok {
		return table
	}
	rng := splitmix64{state: uint64(0x9e3779b97f4a7c15) ^ uint64(rows)<<32 ^ uint64(cols)}
	table := &zobristTable{
		rows:   rows,
		cols:   cols,
		cells:  make([]uint64, rows*cols*int(numCellKinds)),
		player: make([]uint64, rows*cols),
	}
	for i := range table.cells {
		table.cells[i] = rng.next()
	}
	for i := range table.player {
		table.player[i] = rng.next()
	}
	zobristTables.tables[key] = table
	return table
}

func (z *zobristTable) cell(row, col int, kind CellKind) uint64 {
	return z.cells[(row*z.cols+col)*int(numCellKinds)+int(kind)]
}

// Encode hashes the board, the agent position and the two level colors into a StateID.
// Void cells contribute nothing. Ragged rows are hashed up to the widest row.
func Encode(board Board, row, col int, startColor, goalColor Color) StateID {
	rows := len(board)
	cols := 0
	for _, line := range board {
		if len(line) > cols {
			cols = len(line)
		}
	}
	z := getZobrist(rows, cols)
	var hash uint64
	for r, line := range board {
		for c, kind := range line {
			if kind == CellVoid || kind >= numCellKinds {
				continue
			}
			hash ^= z.cell(r, c, kind)
		}
	}
	if row >= 0 && row < rows && col >= 0 && col < cols {
		hash ^= z.player[row*cols+col]
	} else {
		hash ^= mixKey(0x51ed2701, uint64(int64(row))<<32^uint64(uint32(col)))
	}
	hash ^= mixKey(1, uint64(startColor))
	hash ^= mixKey(2, uint64(goalColor))
	return StateID(hash >> 1)
}

// mixKey derives a key for values that have no table slot, such as colors.
func mixKey(slot uint64, value uint64) uint64 {
	rng := splitmix64{state: value<<2 ^ slot + 0x9e3779b97f4a7c15}
	return rng.next()
}

type splitmix64 struct {
	state uint64
}

func (s *splitmix64) next() uint64 {
	s.state += 0x9e3779b97f4a7c15
	z := s.state
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}
