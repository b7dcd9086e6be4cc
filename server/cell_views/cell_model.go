// cell_views contains views derived from the Board view-model.
package cell_views

import (
	"paddle/models"
)

// CELL_PX is the width and height of a board cell in pixels.
const CELL_PX = 40

// Board is the view-model of a frame: everything in it is immediately usable as a
// view parameter, so templates need no helpers to walk models.Frame.
type Board struct {
	Size     int
	Paddle   int
	BallX    int
	BallY    int
	Score    int
	Episodes int
	Mode     string
	Rule     string
	// Values holds a cell per (paddle, ball column) state; nil when no learner is active.
	Values [][]Cell
}

// Cell is a single state of the value table, for the value-function surface.
// X is the paddle column and Y the ball column.
type Cell struct {
	X, Y int
	Max  float64
}

// Convert transforms a frame into a Board, reading the greedy value of every state
// from the frame's live value table.
func Convert(frame models.Frame) Board {
	board := Board{
		Size:     frame.Size,
		Paddle:   frame.Paddle,
		BallX:    frame.Ball.Column,
		BallY:    frame.Ball.Row,
		Score:    frame.Score,
		Episodes: frame.Episodes,
		Mode:     frame.Mode,
		Rule:     frame.Rule,
	}
	if frame.Values == nil {
		return board
	}

	size := frame.Values.Size()
	board.Values = make([][]Cell, size)
	for paddle := 0; paddle < size; paddle++ {
		board.Values[paddle] = make([]Cell, size)
		for ball := 0; ball < size; ball++ {
			_, val := frame.Values.Greedy(models.GridState{Paddle: paddle, Ball: ball})
			board.Values[paddle][ball] = Cell{
				X:   paddle,
				Y:   ball,
				Max: val,
			}
		}
	}
	return board
}
