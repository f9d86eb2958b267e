package engine

import "math/rand"

// pyramidEnv is a cube pyramid in the style of the arcade game. Each cube starts in the
// level's start color and flips to the goal color when the agent lands on it. An enemy walks
// the pyramid at random and ends the episode when it meets the agent.
//
// The board is padded with void on every side so that LegalActions can look one cell past any
// cube.
type pyramidEnv struct {
	levels      int
	board       Board
	start       Position
	enemyStart  Position
	pos         Position
	enemy       Position
	maxSteps    int
	stepsTaken  int
	remaining   int
	stepPenalty float64
	rng         *rand.Rand
}

// clearBonusPerLevel scales the reward for flipping every cube with the pyramid height.
const clearBonusPerLevel = 1.0

func newPyramidEnv(levels, maxSteps int, stepPenalty float64, rng *rand.Rand) *pyramidEnv {
	if levels < 2 {
		levels = 2
	}
	if maxSteps <= 0 {
		maxSteps = levels * levels * 6
	}
	if stepPenalty < 0 {
		stepPenalty = 0
	}
	g := &pyramidEnv{
		levels:      levels,
		start:       Position{Row: 1, Col: levels},
		enemyStart:  Position{Row: levels, Col: 1},
		maxSteps:    maxSteps,
		stepPenalty: stepPenalty,
		rng:         rng,
	}
	g.reset()
	return g
}

// isCube reports whether (row, col) holds a cube. Row r, counted from 1 at the apex, spans
// columns levels-r+1 through levels+r-1.
func (g *pyramidEnv) isCube(row, col int) bool {
	if row < 1 || row > g.levels {
		return false
	}
	return col >= g.levels-row+1 && col <= g.levels+row-1
}

func (g *pyramidEnv) reset() {
	rows, cols := g.levels+2, 2*g.levels+1
	g.board = make(Board, rows)
	g.remaining = 0
	for r := 0; r < rows; r++ {
		g.board[r] = make([]CellKind, cols)
		for c := 0; c < cols; c++ {
			if g.isCube(r, c) {
				g.board[r][c] = CellStartCube
				g.remaining++
			}
		}
	}
	g.board[g.start.Row][g.start.Col] = CellGoalCube
	g.remaining--
	g.pos = g.start
	g.enemy = g.enemyStart
	g.stepsTaken = 0
}

// observation is the board as the learner sees it: cube colors with the enemy drawn on top.
func (g *pyramidEnv) observation() Board {
	view := g.board.Clone()
	view[g.enemy.Row][g.enemy.Col] = CellEnemy
	return view
}

// step moves the agent and then the enemy. Moves into the void leave the agent in place.
func (g *pyramidEnv) step(action Action) (reward float64, done, caught bool) {
	if g.stepsTaken >= g.maxSteps {
		return 0, true, false
	}
	next := g.pos.step(action)
	if g.board[next.Row][next.Col] != CellVoid {
		g.pos = next
	}
	g.stepsTaken++
	reward = -g.stepPenalty
	if g.board[g.pos.Row][g.pos.Col] == CellStartCube {
		g.board[g.pos.Row][g.pos.Col] = CellGoalCube
		g.remaining--
		reward++
	}
	if g.pos == g.enemy {
		return reward, true, true
	}
	g.moveEnemy()
	if g.pos == g.enemy {
		return reward, true, true
	}
	if g.remaining == 0 {
		return reward + clearBonusPerLevel*float64(g.levels), true, false
	}
	if g.stepsTaken >= g.maxSteps {
		return reward, true, false
	}
	return reward, false, false
}

func (g *pyramidEnv) moveEnemy() {
	if g.rng == nil {
		return
	}
	moves := LegalActions(g.enemy, g.board)
	if len(moves) == 0 {
		return
	}
	g.enemy = g.enemy.step(moves[g.rng.Intn(len(moves))])
}

func (g *pyramidEnv) cubeCount() int {
	return g.levels * g.levels
}

// palette holds the start/goal color pairs levels cycle through.
var palette = [][2]Color{
	{0x3b5dc9, 0xf4d35e},
	{0xf4d35e, 0xd1495b},
	{0xd1495b, 0x3b5dc9},
}

func paletteFor(episode int) (Color, Color) {
	if episode < 1 {
		episode = 1
	}
	pair := palette[(episode-1)%len(palette)]
	return pair[0], pair[1]
}
