package engine

import (
	"io"
	"log"
	"math"
	"math/rand"
	"path/filepath"
	"testing"

	"tiny-qbert-rl/internal/storage"
)

const (
	testStart Color = 0x3b5dc9
	testGoal  Color = 0xf4d35e
)

// openBoard is a 3x3 block of cubes inside a ring of void.
func openBoard() Board {
	board := make(Board, 5)
	for r := range board {
		board[r] = make([]CellKind, 5)
		for c := range board[r] {
			if r >= 1 && r <= 3 && c >= 1 && c <= 3 {
				board[r][c] = CellStartCube
			}
		}
	}
	return board
}

var center = Position{Row: 2, Col: 2}

func newTestLearner(seed int64) *Learner {
	return NewLearner(rand.New(rand.NewSource(seed)), nil)
}

func TestEncodeIsDeterministic(t *testing.T) {
	board := openBoard()
	a := Encode(board, 2, 2, testStart, testGoal)
	b := Encode(board.Clone(), 2, 2, testStart, testGoal)
	if a != b {
		t.Fatalf("expected identical ids, got %d and %d", a, b)
	}
	if a < 0 {
		t.Fatalf("expected non-negative id, got %d", a)
	}
	if other := Encode(board, 2, 3, testStart, testGoal); other == a {
		t.Fatalf("expected position to change the id")
	}
	if other := Encode(board, 2, 2, testGoal, testStart); other == a {
		t.Fatalf("expected swapped colors to change the id")
	}
	changed := board.Clone()
	changed[1][1] = CellGoalCube
	if other := Encode(changed, 2, 2, testStart, testGoal); other == a {
		t.Fatalf("expected a flipped cube to change the id")
	}
}

func TestEncodeToleratesOddBoards(t *testing.T) {
	ragged := Board{{CellVoid}, {CellVoid, CellStartCube, CellEnemy}, {}}
	first := Encode(ragged, 1, 1, testStart, testGoal)
	if second := Encode(ragged, 1, 1, testStart, testGoal); first != second {
		t.Fatalf("expected stable id for ragged board")
	}
	Encode(ragged, -3, 40, testStart, testGoal)
	Encode(nil, 0, 0, testStart, testGoal)
}

func TestLegalActionsSkipVoid(t *testing.T) {
	board := openBoard()
	corner := Position{Row: 3, Col: 1}
	got := LegalActions(corner, board)
	want := []Action{Up, Right}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
	for _, a := range LegalActions(center, board) {
		if a == NoOp {
			t.Fatalf("noop must never be legal")
		}
		next := center.step(a)
		if board[next.Row][next.Col] == CellVoid {
			t.Fatalf("action %v leads into the void", a)
		}
	}
}

func TestObserveWithoutPreviousStateSkipsUpdate(t *testing.T) {
	l := newTestLearner(1)
	l.Observe(center, openBoard(), 10, testStart, testGoal)
	if l.values.len() != 0 || l.visits.len() != 0 {
		t.Fatalf("expected no table rows, got %d values and %d visits", l.values.len(), l.visits.len())
	}

	l = newTestLearner(1)
	l.SelectAction(center, openBoard(), testStart, testGoal)
	l.Observe(center, openBoard(), 10, testStart, testGoal)
	for state, row := range l.values.data {
		for i, v := range row {
			if v != 0 {
				t.Fatalf("state %d action %d: expected 0, got %v", state, i, v)
			}
		}
	}
}

func TestObserveAppliesTDUpdate(t *testing.T) {
	l := newTestLearner(1)
	board := openBoard()
	prev := Encode(board, 1, 2, testStart, testGoal)
	next := Encode(board, 2, 2, testStart, testGoal)
	*l.values.row(next) = [numActions]float64{5, 1, 2, 3}
	l.currentState = prev
	l.currentAction = Down

	l.Observe(center, board, 1.0, testStart, testGoal)

	got := l.Value(prev, Down)
	if math.Abs(got-0.55) > 1e-9 {
		t.Fatalf("expected 0.55, got %v", got)
	}
	if l.lastState != prev || l.currentState != next {
		t.Fatalf("expected states to shift")
	}
}

func TestCorrectUpdate(t *testing.T) {
	l := newTestLearner(1)
	state := Encode(openBoard(), 2, 2, testStart, testGoal)
	l.values.row(state)[2] = 2.0
	l.lastState = state
	l.lastAction = Left

	l.CorrectUpdate(-1.0)
	if got := l.Value(state, Left); math.Abs(got-1.9) > 1e-9 {
		t.Fatalf("expected 1.9, got %v", got)
	}

	l.lastState = NoState
	l.CorrectUpdate(-100)
	if got := l.Value(state, Left); math.Abs(got-1.9) > 1e-9 {
		t.Fatalf("expected update to be skipped, got %v", got)
	}
}

func TestUnvisitedStateAlwaysExplores(t *testing.T) {
	for seed := int64(1); seed <= 200; seed++ {
		l := newTestLearner(seed)
		a := l.SelectAction(center, openBoard(), testStart, testGoal)
		if !l.isRandomAction {
			t.Fatalf("seed %d: expected exploratory selection", seed)
		}
		if a == NoOp {
			t.Fatalf("seed %d: selected noop", seed)
		}
	}
}

func TestExplorationDecaysWithVisits(t *testing.T) {
	l := newTestLearner(42)
	board := openBoard()
	state := Encode(board, center.Row, center.Col, testStart, testGoal)
	*l.visits.row(state) = [numActions]int64{9, 12, 30, 9}

	const trials = 20000
	random := 0
	for i := 0; i < trials; i++ {
		l.SelectAction(center, board, testStart, testGoal)
		if l.isRandomAction {
			random++
		}
	}
	fraction := float64(random) / trials
	if math.Abs(fraction-0.1) > 0.01 {
		t.Fatalf("expected exploration near 1/(9+1), got %.4f", fraction)
	}
}

func TestExploitationBreaksTiesUniformly(t *testing.T) {
	l := newTestLearner(7)
	board := openBoard()
	state := Encode(board, center.Row, center.Col, testStart, testGoal)
	*l.visits.row(state) = [numActions]int64{maxVisits - 1, maxVisits - 1, maxVisits - 1, maxVisits - 1}
	*l.values.row(state) = [numActions]float64{3, 3, 3 - 1e-12, 3}

	const trials = 30000
	counts := make(map[Action]int)
	greedy := 0
	for i := 0; i < trials; i++ {
		a := l.SelectAction(center, board, testStart, testGoal)
		if l.isRandomAction {
			continue
		}
		greedy++
		counts[a]++
	}
	if counts[Left] != 0 {
		t.Fatalf("expected near-equal value to lose every tie, got %d picks", counts[Left])
	}
	for _, a := range []Action{Up, Right, Down} {
		share := float64(counts[a]) / float64(greedy)
		if math.Abs(share-1.0/3.0) > 0.02 {
			t.Fatalf("expected %v near 1/3 of greedy picks, got %.4f", a, share)
		}
	}
}

func TestVisitCountSaturates(t *testing.T) {
	l := newTestLearner(1)
	board := openBoard()
	state := Encode(board, center.Row, center.Col, testStart, testGoal)
	l.visits.row(state)[0] = maxVisits - 1
	l.tentativeAction = Up

	l.Observe(center, board, 0, testStart, testGoal)
	if got := l.Visits(state, Up); got != maxVisits-1 {
		t.Fatalf("expected %d, got %d", maxVisits-1, got)
	}
}

func TestObserveShiftsActionsAndCounts(t *testing.T) {
	l := newTestLearner(3)
	board := openBoard()
	first := l.SelectAction(center, board, testStart, testGoal)
	l.Observe(center, board, 0, testStart, testGoal)
	if l.currentAction != first || l.lastAction != NoOp {
		t.Fatalf("expected current=%v last=noop, got current=%v last=%v", first, l.currentAction, l.lastAction)
	}
	second := l.SelectAction(center, board, testStart, testGoal)
	l.Observe(center, board, 0, testStart, testGoal)
	if l.currentAction != second || l.lastAction != first {
		t.Fatalf("expected current=%v last=%v, got current=%v last=%v", second, first, l.currentAction, l.lastAction)
	}
	random, total := l.ActionCounts()
	if total != 2 || random < 1 {
		t.Fatalf("expected 2 actions with at least 1 random, got %d/%d", random, total)
	}
}

func TestRandomFraction(t *testing.T) {
	l := newTestLearner(1)
	if got := l.RandomFraction(); got != 0 {
		t.Fatalf("expected 0 with no actions, got %v", got)
	}
	l.randomActionCount = 1
	l.totalActionCount = 4
	if got := l.RandomFraction(); got != 0.25 {
		t.Fatalf("expected 0.25, got %v", got)
	}
}

func TestResetClearsSessionButKeepsTables(t *testing.T) {
	l := newTestLearner(5)
	board := openBoard()
	for i := 0; i < 5; i++ {
		l.SelectAction(center, board, testStart, testGoal)
		l.Observe(center, board, 1, testStart, testGoal)
	}
	states := l.KnownStates()
	if err := l.Reset(); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if l.currentState != NoState || l.lastState != NoState {
		t.Fatalf("expected state sentinels after reset")
	}
	if l.currentAction != NoOp || l.lastAction != NoOp || l.tentativeAction != NoOp {
		t.Fatalf("expected noop actions after reset")
	}
	if !l.isRandomAction || l.totalActionCount != 0 || l.randomActionCount != 0 {
		t.Fatalf("expected cleared counters after reset")
	}
	if l.KnownStates() != states {
		t.Fatalf("expected tables to survive reset")
	}
}

func TestResetPersistsTables(t *testing.T) {
	path := filepath.Join(t.TempDir(), "utilities.ai")
	quiet := log.New(io.Discard, "", 0)
	l := NewLearner(rand.New(rand.NewSource(9)), storage.New(path, quiet))
	board := openBoard()
	for i := 0; i < 50; i++ {
		l.SelectAction(center, board, testStart, testGoal)
		l.Observe(center, board, float64(i%3)-1, testStart, testGoal)
	}
	if err := l.Reset(); err != nil {
		t.Fatalf("reset: %v", err)
	}

	restored := NewLearner(rand.New(rand.NewSource(9)), storage.New(path, quiet))
	want, got := l.Tables(), restored.Tables()
	if len(got.Values) != len(want.Values) || len(got.Visits) != len(want.Visits) {
		t.Fatalf("expected %d/%d rows, got %d/%d", len(want.Values), len(want.Visits), len(got.Values), len(got.Visits))
	}
	for state, row := range want.Values {
		for i := range row {
			if math.Abs(got.Values[state][i]-row[i]) > 1e-12 {
				t.Fatalf("state %d action %d: expected %v, got %v", state, i, row[i], got.Values[state][i])
			}
		}
	}
	for state, row := range want.Visits {
		if *got.Visits[state] != *row {
			t.Fatalf("state %d: expected %v, got %v", state, *row, *got.Visits[state])
		}
	}
}
