package engine

// SelectAction picks the next action for the agent at pos. The less the least-tried legal
// action has been visited here, the more likely the pick is uniformly random: with visit
// count n it explores with probability 1/(n+1). Otherwise it takes a best-valued action,
// breaking exact ties uniformly at random.
//
// The choice is remembered and becomes the action in effect on the next Observe.
// SelectAction returns NoOp only when no direction is legal.
func (l *Learner) SelectAction(pos Position, board Board, startColor, goalColor Color) Action {
	state := Encode(board, pos.Row, pos.Col, startColor, goalColor)
	actions := LegalActions(pos, board)
	if len(actions) == 0 {
		l.tentativeAction = NoOp
		l.isRandomAction = false
		return NoOp
	}

	minVisited := l.visits.minCount(state, actions)
	if l.rng.Int63n(minVisited+1) == 0 {
		l.tentativeAction = actions[l.rng.Intn(len(actions))]
		l.isRandomAction = true
		return l.tentativeAction
	}

	qMax := l.values.maxValue(state, actions)
	best := make([]Action, 0, len(actions))
	for _, a := range actions {
		if l.values.get(state, a) == qMax {
			best = append(best, a)
		}
	}
	if len(best) == 0 {
		// NaN values never compare equal.
		best = actions
	}
	l.tentativeAction = best[l.rng.Intn(len(best))]
	l.isRandomAction = false
	return l.tentativeAction
}
