package reinforcement

import (
	"paddle/models"
)

// Controller chooses the paddle's action at each decision point and consumes
// the resulting transition. The tick loop depends only on this contract, so new
// controllers or rules do not touch it.
type Controller interface {
	Act(state models.GridState) models.Action
	Learn(step models.Step)
}

// Controller modes, as accepted in config.
const (
	MODE_AI     = "ai"
	MODE_MANUAL = "manual"
)

// EpsilonGreedyController acts epsilon-greedily on the learner's table and
// updates it after every step with its rule.
type EpsilonGreedyController struct {
	learner *Learner
	rule    UpdateRule
	epsilon float64
}

var _ Controller = &EpsilonGreedyController{}

func NewEpsilonGreedyController(learner *Learner, rule UpdateRule, epsilon float64) *EpsilonGreedyController {
	return &EpsilonGreedyController{
		learner: learner,
		rule:    rule,
		epsilon: epsilon,
	}
}

func (c *EpsilonGreedyController) Act(state models.GridState) models.Action {
	return c.learner.SelectAction(state, c.epsilon)
}

// Learn selects the next action on the successor from the same table, for
// bootstrapping only, then applies the rule. The next tick selects afresh.
func (c *EpsilonGreedyController) Learn(step models.Step) {
	nextAction := c.learner.SelectAction(step.Successor, c.epsilon)
	c.learner.Update(step, nextAction, c.rule)
}

func (c *EpsilonGreedyController) Learner() *Learner {
	return c.learner
}

func (c *EpsilonGreedyController) Rule() UpdateRule {
	return c.rule
}

// ManualController replays key presses from an input collaborator. Presses may
// come from any goroutine; Act drains them and keeps the latest, and a tick
// without a press yields Stay. It never learns.
type ManualController struct {
	presses chan models.Action
}

var _ Controller = &ManualController{}

// maxPendingPresses bounds the presses buffered between two ticks.
const maxPendingPresses = 16

func NewManualController() *ManualController {
	return &ManualController{
		presses: make(chan models.Action, maxPendingPresses),
	}
}

// Press queues an action for the next tick. It never blocks; presses beyond the
// buffer are dropped and Press returns false.
func (c *ManualController) Press(action models.Action) bool {
	select {
	case c.presses <- action:
		return true
	default:
		return false
	}
}

func (c *ManualController) Act(_ models.GridState) models.Action {
	action := models.Stay
	for {
		select {
		case action = <-c.presses:
		default:
			return action
		}
	}
}

func (c *ManualController) Learn(_ models.Step) {}
