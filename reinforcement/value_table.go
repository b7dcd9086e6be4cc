package reinforcement

import (
	"fmt"
	"io"

	"paddle/atomic_float"
	"paddle/models"

	"gonum.org/v1/gonum/floats"
)

// ValueTable is the dense action-value function Q(s,a), indexed by
// [paddle column][ball column][action index] and initialized to zero.
// The tick loop is its only writer; views read it concurrently through atomic cells.
type ValueTable struct {
	size  int
	cells [][][models.NumActions]atomic_float.AtomicFloat64
}

// NewValueTable returns a zeroed table for a size x size grid.
func NewValueTable(size int) *ValueTable {
	cells := make([][][models.NumActions]atomic_float.AtomicFloat64, size)
	for paddle := range cells {
		cells[paddle] = make([][models.NumActions]atomic_float.AtomicFloat64, size)
	}
	return &ValueTable{
		size:  size,
		cells: cells,
	}
}

func (vt *ValueTable) Size() int {
	return vt.size
}

func (vt *ValueTable) cell(state models.GridState, action models.Action) *atomic_float.AtomicFloat64 {
	return &vt.cells[state.Paddle][state.Ball][action.Index()]
}

// At returns Q(state, action).
func (vt *ValueTable) At(state models.GridState, action models.Action) float64 {
	return vt.cell(state, action).AtomicRead()
}

// Set overwrites Q(state, action).
func (vt *ValueTable) Set(state models.GridState, action models.Action, val float64) {
	vt.cell(state, action).AtomicSet(val)
}

// Add adds delta to Q(state, action) and returns the new value.
func (vt *ValueTable) Add(state models.GridState, action models.Action, delta float64) float64 {
	return vt.cell(state, action).AtomicAdd(delta)
}

// Row returns a copy of the action values for state, in action index order.
func (vt *ValueTable) Row(state models.GridState) []float64 {
	row := make([]float64, models.NumActions)
	for i := range row {
		row[i] = vt.cells[state.Paddle][state.Ball][i].AtomicRead()
	}
	return row
}

// Greedy returns the max-valued action for state and its value. Ties go to the
// lowest action index, so the result is deterministic for a fixed table.
func (vt *ValueTable) Greedy(state models.GridState) (models.Action, float64) {
	row := vt.Row(state)
	best := floats.MaxIdx(row)
	return models.ActionAt(best), row[best]
}

// Max returns max_a Q(state, a).
func (vt *ValueTable) Max(state models.GridState) float64 {
	return floats.Max(vt.Row(state))
}

// Visit calls fn for every state in the table, paddle-major.
func (vt *ValueTable) Visit(fn func(state models.GridState)) {
	for paddle := 0; paddle < vt.size; paddle++ {
		for ball := 0; ball < vt.size; ball++ {
			fn(models.GridState{Paddle: paddle, Ball: ball})
		}
	}
}

// ShowPolicy prints the greedy action per state as an arrow: one line per paddle
// column, one glyph per ball column.
func (vt *ValueTable) ShowPolicy(w io.Writer) {
	fmt.Fprintln(w, "Policy (rows: paddle, cols: ball):")
	for paddle := 0; paddle < vt.size; paddle++ {
		fmt.Fprint(w, " ")
		for ball := 0; ball < vt.size; ball++ {
			action, _ := vt.Greedy(models.GridState{Paddle: paddle, Ball: ball})
			fmt.Fprintf(w, "%c ", putDir(action))
		}
		fmt.Fprintln(w)
	}
}

// ShowMaxValues prints max_a Q(s,a) for every state, and their total.
func (vt *ValueTable) ShowMaxValues(w io.Writer) {
	fmt.Fprintln(w, "Max vals:")
	total := 0.0
	for paddle := 0; paddle < vt.size; paddle++ {
		fmt.Fprint(w, " ")
		for ball := 0; ball < vt.size; ball++ {
			val := vt.Max(models.GridState{Paddle: paddle, Ball: ball})
			fmt.Fprintf(w, "%5.2f ", val)
			total += val
		}
		fmt.Fprintln(w)
	}
	fmt.Fprintf(w, "Pi total: %.2f\n", total)
}

func putDir(action models.Action) rune {
	switch action {
	case models.MoveLeft:
		return '<'
	case models.MoveRight:
		return '>'
	}
	return '|'
}
