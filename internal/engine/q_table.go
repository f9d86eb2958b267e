package engine

import "tiny-qbert-rl/internal/storage"

// maxVisits is the saturation ceiling for visit counts; a count never reaches it.
const maxVisits = storage.MaxVisits

type qTable struct {
	data map[StateID]*[numActions]float64
}

func newQTable() *qTable {
	return &qTable{data: make(map[StateID]*[numActions]float64)}
}

// row returns the values for state, inserting a zeroed row on first access.
func (q *qTable) row(state StateID) *[numActions]float64 {
	values, ok := q.data[state]
	if !ok {
		values = new([numActions]float64)
		q.data[state] = values
	}
	return values
}

func (q *qTable) get(state StateID, action Action) float64 {
	idx, ok := action.index()
	if !ok {
		return 0
	}
	return q.row(state)[idx]
}

func (q *qTable) add(state StateID, action Action, delta float64) {
	idx, ok := action.index()
	if !ok {
		return
	}
	q.row(state)[idx] += delta
}

// maxValue is the best value among actions in state, or 0 when actions is empty.
func (q *qTable) maxValue(state StateID, actions []Action) float64 {
	if len(actions) == 0 {
		return 0
	}
	max := q.get(state, actions[0])
	for _, a := range actions[1:] {
		if v := q.get(state, a); v > max {
			max = v
		}
	}
	return max
}

func (q *qTable) len() int {
	return len(q.data)
}

type visitTable struct {
	data map[StateID]*[numActions]int64
}

func newVisitTable() *visitTable {
	return &visitTable{data: make(map[StateID]*[numActions]int64)}
}

func (v *visitTable) row(state StateID) *[numActions]int64 {
	counts, ok := v.data[state]
	if !ok {
		counts = new([numActions]int64)
		v.data[state] = counts
	}
	return counts
}

func (v *visitTable) get(state StateID, action Action) int64 {
	idx, ok := action.index()
	if !ok {
		return 0
	}
	return v.row(state)[idx]
}

// increment bumps the count for (state, action), freezing it one below maxVisits.
func (v *visitTable) increment(state StateID, action Action) {
	idx, ok := action.index()
	if !ok {
		return
	}
	counts := v.row(state)
	counts[idx]++
	if counts[idx] >= maxVisits {
		counts[idx] = maxVisits - 1
	}
}

func (v *visitTable) minCount(state StateID, actions []Action) int64 {
	if len(actions) == 0 {
		return 0
	}
	min := v.get(state, actions[0])
	for _, a := range actions[1:] {
		if c := v.get(state, a); c < min {
			min = c
		}
	}
	return min
}

func (v *visitTable) len() int {
	return len(v.data)
}
