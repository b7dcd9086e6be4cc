package reinforcement

import (
	"paddle/models"

	"golang.org/x/exp/rand"
)

// Learner owns the value table and implements the epsilon-greedy policy and
// the TD update over it. Learner is not safe for concurrent use; the table may
// be read concurrently.
type Learner struct {
	table *ValueTable
	// Alpha is the learning rate.
	alpha float64
	// Gamma is the discount, or how much to value successor state values.
	gamma float64
	rng   *rand.Rand
}

// NewLearner returns a learner over table. src drives exploration.
func NewLearner(table *ValueTable, alpha, gamma float64, src rand.Source) *Learner {
	return &Learner{
		table: table,
		alpha: alpha,
		gamma: gamma,
		rng:   rand.New(src),
	}
}

// Table returns the learner's value table.
func (l *Learner) Table() *ValueTable {
	return l.table
}

// SelectAction implements epsilon-greedy: with probability explorationRate a
// uniformly random action, otherwise the greedy action (lowest index on ties).
func (l *Learner) SelectAction(state models.GridState, explorationRate float64) models.Action {
	if l.rng.Float64() < explorationRate {
		// Exploration: do something random
		return models.ActionAt(l.rng.Intn(models.NumActions))
	}
	action, _ := l.table.Greedy(state)
	return action
}

// Update applies one TD step to Q(step.State, step.Action):
//
//	Q(s,a) += α·(target − Q(s,a))
//
// where the target is given by rule. The successor is always bootstrapped,
// including on terminal ticks.
func (l *Learner) Update(step models.Step, nextAction models.Action, rule UpdateRule) {
	val := l.table.At(step.State, step.Action)
	target := rule.Target(l.table, step, nextAction, l.gamma)
	l.table.Add(step.State, step.Action, l.alpha*(target-val))
}
