package engine

import (
	"fmt"

	"tiny-qbert-rl/internal/storage"
)

// Action is a joystick direction for the agent. NoOp marks "no action yet" and is never
// selected.
type Action int

const (
	NoOp Action = iota
	Up
	Right
	Left
	Down
)

// numActions is the width of every table row: one column per selectable action.
const numActions = storage.Width

// canonicalActions lists the selectable actions in table column order.
var canonicalActions = [numActions]Action{Up, Right, Left, Down}

func (a Action) String() string {
	switch a {
	case NoOp:
		return "noop"
	case Up:
		return "up"
	case Right:
		return "right"
	case Left:
		return "left"
	case Down:
		return "down"
	}
	return fmt.Sprintf("action(%d)", int(a))
}

// index returns the table column for a. NoOp and unknown values have no column.
func (a Action) index() (int, bool) {
	switch a {
	case Up:
		return 0, true
	case Right:
		return 1, true
	case Left:
		return 2, true
	case Down:
		return 3, true
	}
	return -1, false
}

// delta is the (row, col) offset the action moves the agent by.
func (a Action) delta() (int, int) {
	switch a {
	case Up:
		return -1, 0
	case Right:
		return 0, 1
	case Left:
		return 0, -1
	case Down:
		return 1, 0
	}
	return 0, 0
}
