package reinforcement

import (
	"errors"
	"fmt"
	"strings"

	"paddle/models"
)

// UpdateRule computes the bootstrap target of a TD update. The rules share the
// update skeleton in Learner.Update; only the target differs.
type UpdateRule interface {
	Target(table *ValueTable, step models.Step, nextAction models.Action, gamma float64) float64
	Name() string
}

// QLearningRule bootstraps off-policy, from the best action in the successor:
// r + γ·max_a Q(s',a). The sampled next action is ignored.
type QLearningRule struct{}

func (QLearningRule) Target(
	table *ValueTable,
	step models.Step,
	_ models.Action,
	gamma float64,
) float64 {
	return float64(step.Reward) + gamma*table.Max(step.Successor)
}

func (QLearningRule) Name() string { return QLEARNING }

// SarsaRule bootstraps on-policy, from the action actually selected in the
// successor: r + γ·Q(s',a').
type SarsaRule struct{}

func (SarsaRule) Target(
	table *ValueTable,
	step models.Step,
	nextAction models.Action,
	gamma float64,
) float64 {
	return float64(step.Reward) + gamma*table.At(step.Successor, nextAction)
}

func (SarsaRule) Name() string { return SARSA }

// Rule names, as accepted in config.
const (
	SARSA     = "sarsa"
	QLEARNING = "q-learning"
)

// ErrUnknownRule is returned for rule names that RuleFromName does not recognize.
// There is no fallback rule: silently training with the wrong rule is worse than not starting.
var ErrUnknownRule = errors.New("unknown update rule")

// RuleFromName resolves a rule by name, case-insensitively. "Q-Learning",
// "q_learning" and "qlearning" all select Q-learning.
func RuleFromName(name string) (UpdateRule, error) {
	normalized := strings.ToLower(strings.TrimSpace(name))
	normalized = strings.NewReplacer("_", "-", " ", "-").Replace(normalized)
	switch normalized {
	case SARSA:
		return SarsaRule{}, nil
	case QLEARNING, "qlearning":
		return QLearningRule{}, nil
	}
	return nil, fmt.Errorf("%w: %q (want %q or %q)", ErrUnknownRule, name, SARSA, QLEARNING)
}
