package paddle_world

import (
	"errors"
	"fmt"
	"io"

	"paddle/models"

	"golang.org/x/exp/rand"
)

// Rewards
const (
	CATCH_REWARD = 1
	MISS_REWARD  = -1
	STEP_REWARD  = 0
)

// Board glyphs for console display.
const (
	EMPTY  = '.'
	BALL   = 'o'
	PADDLE = '='
	CAUGHT = '@'
)

// MIN_GRID_SIZE is the smallest grid on which the ball can fall at least once
// before reaching the bottom row.
const MIN_GRID_SIZE = 2

// ErrGridTooSmall is returned for grids smaller than MIN_GRID_SIZE.
var ErrGridTooSmall = errors.New("grid too small")

// SimulationState is the complete mutable state of the environment.
// The paddle always lives on the bottom row, so only its column is stored.
type SimulationState struct {
	Size   int
	Paddle int
	Ball   models.BallPosition
}

// World simulates one falling ball against one horizontally-movable paddle on
// a Size x Size grid. World is not safe for concurrent use; it is stepped by a
// single tick loop.
type World struct {
	state SimulationState
	rng   *rand.Rand
}

// NewWorld returns a world whose paddle starts centered and whose ball starts at
// the top row in a random column drawn from src.
func NewWorld(size int, src rand.Source) (*World, error) {
	if size < MIN_GRID_SIZE {
		return nil, fmt.Errorf("%w: size %d, need at least %d", ErrGridTooSmall, size, MIN_GRID_SIZE)
	}

	world := &World{
		state: SimulationState{
			Size:   size,
			Paddle: size / 2,
		},
		rng: rand.New(src),
	}
	world.Reset()
	return world, nil
}

// Step moves the paddle, then advances the ball one row, then evaluates the
// reward against the new positions. Terminality is decided here, once per tick.
func (w *World) Step(action models.Action) (reward int, terminal bool) {
	w.state.Paddle = clamp(w.state.Paddle+int(action), 0, w.state.Size-1)
	w.state.Ball.Row++

	terminal = w.state.Ball.Row == w.bottomRow()
	reward = getReward(w.state.Paddle, w.state.Ball, terminal)
	return
}

// Reset returns the ball to the top row in a fresh random column. It must only
// be called after a terminal Step.
func (w *World) Reset() {
	w.state.Ball.Row = 0
	w.state.Ball.Column = w.rng.Intn(w.state.Size)
}

// State returns the decision-point snapshot used to index the value table.
func (w *World) State() models.GridState {
	return models.GridState{
		Paddle: w.state.Paddle,
		Ball:   w.state.Ball.Column,
	}
}

func (w *World) Size() int                 { return w.state.Size }
func (w *World) Paddle() int               { return w.state.Paddle }
func (w *World) Ball() models.BallPosition { return w.state.Ball }

// Snapshot returns a copy of the full simulation state.
func (w *World) Snapshot() SimulationState {
	return w.state
}

func (w *World) bottomRow() int {
	return w.state.Size - 1
}

// getReward only pays out on the terminal row: a catch if the paddle is under the ball, else a miss.
func getReward(paddle int, ball models.BallPosition, terminal bool) int {
	if !terminal {
		return STEP_REWARD
	}
	if paddle == ball.Column {
		return CATCH_REWARD
	}
	return MISS_REWARD
}

func clamp(val, lo, hi int) int {
	return max(lo, min(val, hi))
}

// ShowGrid prints the board for the passed frame, top row first. The paddle is
// drawn on the bottom row; a ball sharing its cell is drawn as CAUGHT.
func ShowGrid(w io.Writer, frame models.Frame) {
	for row := 0; row < frame.Size; row++ {
		for col := 0; col < frame.Size; col++ {
			fmt.Fprintf(w, "%c ", cellGlyph(frame, row, col))
		}
		fmt.Fprintln(w)
	}
	fmt.Fprintf(w, "Points: %d\n", frame.Score)
}

func cellGlyph(frame models.Frame, row, col int) rune {
	isBall := frame.Ball.Row == row && frame.Ball.Column == col
	isPaddle := row == frame.Size-1 && frame.Paddle == col
	switch {
	case isBall && isPaddle:
		return CAUGHT
	case isBall:
		return BALL
	case isPaddle:
		return PADDLE
	}
	return EMPTY
}
