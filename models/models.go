// models contains the types shared by the environment, the learner and the
// render/input collaborators.
package models

import "fmt"

// Action is a horizontal paddle move. It is a closed enumeration; only the
// three values below are valid.
type Action int

const (
	MoveLeft  Action = -1
	Stay      Action = 0
	MoveRight Action = 1

	NumActions = 3
)

// Actions lists every action in index order, such that Actions[a.Index()] == a.
var Actions = [NumActions]Action{MoveLeft, Stay, MoveRight}

// Index returns the action's position in a value-table row.
func (a Action) Index() int {
	return int(a) - int(MoveLeft)
}

// ActionAt is the inverse of Index.
func ActionAt(index int) Action {
	return Actions[index]
}

func (a Action) String() string {
	switch a {
	case MoveLeft:
		return "left"
	case Stay:
		return "stay"
	case MoveRight:
		return "right"
	}
	return fmt.Sprintf("Action(%d)", int(a))
}

// GridState identifies a row of the value table: the paddle's column and the ball's column.
// The ball's row is deliberately not part of the state.
type GridState struct {
	Paddle, Ball int
}

// BallPosition is the ball's cell. Row 0 is the top of the grid.
type BallPosition struct {
	Row, Column int
}

// Step is a single SARSA time step of an agent: do action a in
// state s, observe reward r and successor s'.
type Step struct {
	State     GridState
	Action    Action
	Reward    int
	Successor GridState
	Terminal  bool
}

// ValueReader is read-only access to a live value table, for views.
// Implementations must be safe to read while the learner writes.
type ValueReader interface {
	Size() int
	Greedy(state GridState) (Action, float64)
}

// Frame is what render collaborators see after each tick. Frames are
// idempotent snapshots; dropping intermediate frames loses nothing but animation.
type Frame struct {
	Size     int
	Paddle   int
	Ball     BallPosition
	Score    int
	Episodes int
	// Reward and Terminal describe the tick that produced this frame. When Terminal
	// is set, Ball has already been reset to the top row.
	Reward   int
	Terminal bool
	Mode     string
	Rule     string
	// Values is nil when no learner is active (manual mode).
	Values ValueReader
}
