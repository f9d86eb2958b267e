package engine

import (
	"math/rand"

	"tiny-qbert-rl/internal/storage"
)

const (
	alpha = 0.10
	gamma = 0.90
)

// Learner is a tabular Q-learner for one agent. It is not safe for concurrent use: the game
// loop alternates SelectAction and Observe from a single goroutine.
type Learner struct {
	rng    *rand.Rand
	values *qTable
	visits *visitTable
	store  *storage.Store

	currentState      StateID
	lastState         StateID
	currentAction     Action
	lastAction        Action
	tentativeAction   Action
	isRandomAction    bool
	randomActionCount int
	totalActionCount  int
}

// NewLearner builds a learner drawing exploration and tie-breaks from rng. When store is
// non-nil the tables are loaded from it now and saved on every Reset.
func NewLearner(rng *rand.Rand, store *storage.Store) *Learner {
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	l := &Learner{
		rng:    rng,
		values: newQTable(),
		visits: newVisitTable(),
		store:  store,
	}
	if store != nil {
		tables := store.Load()
		for state, row := range tables.Values {
			l.values.data[StateID(state)] = row
		}
		for state, row := range tables.Visits {
			l.visits.data[StateID(state)] = row
		}
	}
	l.clearSession()
	return l
}

// Observe records the outcome of the step just executed: the agent is now at pos on board and
// received reward. The value of the previous state is moved toward reward plus the discounted
// best value reachable from the new state, then the last selected action takes effect.
func (l *Learner) Observe(pos Position, board Board, reward float64, startColor, goalColor Color) {
	l.lastState = l.currentState
	l.currentState = Encode(board, pos.Row, pos.Col, startColor, goalColor)

	if l.lastState != NoState && l.currentAction != NoOp {
		q := l.values.get(l.lastState, l.currentAction)
		qMax := l.values.maxValue(l.currentState, LegalActions(pos, board))
		l.values.add(l.lastState, l.currentAction, alpha*(reward+gamma*qMax-q))
	}

	l.lastAction = l.currentAction
	l.currentAction = l.tentativeAction
	l.visits.increment(l.currentState, l.currentAction)
	if l.isRandomAction {
		l.randomActionCount++
	}
	l.totalActionCount++
}

// CorrectUpdate adds alpha*reward to the last state and action without bootstrapping. Use it
// for out-of-band signals such as a terminal penalty.
func (l *Learner) CorrectUpdate(reward float64) {
	if l.lastState == NoState {
		return
	}
	l.values.add(l.lastState, l.lastAction, alpha*reward)
}

// Reset starts a new episode and persists the tables. The tables themselves are kept.
func (l *Learner) Reset() error {
	l.clearSession()
	if l.store == nil {
		return nil
	}
	return l.store.Save(l.Tables())
}

func (l *Learner) clearSession() {
	l.currentState = NoState
	l.lastState = NoState
	l.currentAction = NoOp
	l.lastAction = NoOp
	l.tentativeAction = NoOp
	l.randomActionCount = 0
	l.totalActionCount = 0
	l.isRandomAction = true
}

// RandomFraction is the share of this episode's actions that were exploratory.
func (l *Learner) RandomFraction() float64 {
	if l.totalActionCount == 0 {
		return 0
	}
	return float64(l.randomActionCount) / float64(l.totalActionCount)
}

// ActionCounts returns how many actions took effect this episode and how many were random.
func (l *Learner) ActionCounts() (random, total int) {
	return l.randomActionCount, l.totalActionCount
}

// Tables returns a view of the learned tables for persistence. Rows are shared, not copied.
func (l *Learner) Tables() *storage.Tables {
	tables := &storage.Tables{
		Values: make(map[int64]*[storage.Width]float64, l.values.len()),
		Visits: make(map[int64]*[storage.Width]int64, l.visits.len()),
	}
	for state, row := range l.values.data {
		tables.Values[int64(state)] = row
	}
	for state, row := range l.visits.data {
		tables.Visits[int64(state)] = row
	}
	return tables
}

// Value returns the learned value of taking a from state.
func (l *Learner) Value(state StateID, a Action) float64 {
	return l.values.get(state, a)
}

// Visits returns how many times a took effect in state.
func (l *Learner) Visits(state StateID, a Action) int64 {
	return l.visits.get(state, a)
}

// KnownStates is the number of states with a value row.
func (l *Learner) KnownStates() int {
	return l.values.len()
}
