package reinforcement

import (
	"errors"
	"testing"

	"paddle/models"

	. "github.com/smartystreets/goconvey/convey"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

func TestValueTable(t *testing.T) {
	Convey("When a value table is created", t, func() {
		table := NewValueTable(4)

		Convey("Every entry starts at zero", func() {
			count := 0
			table.Visit(func(state models.GridState) {
				count++
				So(table.Row(state), ShouldResemble, []float64{0, 0, 0})
			})
			So(count, ShouldEqual, 16)
		})

		Convey("Entries are addressed by paddle, ball and action", func() {
			state := models.GridState{Paddle: 3, Ball: 1}
			table.Set(state, models.MoveRight, 1.5)
			So(table.At(state, models.MoveRight), ShouldEqual, 1.5)
			So(table.At(state, models.MoveLeft), ShouldEqual, 0.0)
			So(table.At(models.GridState{Paddle: 1, Ball: 3}, models.MoveRight), ShouldEqual, 0.0)
			So(table.Row(state), ShouldResemble, []float64{0, 0, 1.5})
		})

		Convey("Add increments an entry in place", func() {
			state := models.GridState{Paddle: 2, Ball: 0}
			So(table.Add(state, models.Stay, 0.5), ShouldEqual, 0.5)
			So(table.Add(state, models.Stay, -0.2), ShouldAlmostEqual, 0.3)
			So(table.At(state, models.Stay), ShouldAlmostEqual, 0.3)
			So(table.At(state, models.MoveLeft), ShouldEqual, 0.0)
		})

		Convey("Greedy breaks ties toward the lowest action index", func() {
			state := models.GridState{Paddle: 0, Ball: 0}
			action, val := table.Greedy(state)
			So(action, ShouldEqual, models.MoveLeft)
			So(val, ShouldEqual, 0.0)

			table.Set(state, models.Stay, 3)
			table.Set(state, models.MoveRight, 3)
			action, val = table.Greedy(state)
			So(action, ShouldEqual, models.Stay)
			So(val, ShouldEqual, 3.0)
			So(table.Max(state), ShouldEqual, 3.0)
		})
	})
}

func TestSelectAction(t *testing.T) {
	Convey("When selecting actions epsilon-greedily", t, func() {
		table := NewValueTable(5)
		learner := NewLearner(table, 0.1, 0.9, rand.NewSource(42))
		state := models.GridState{Paddle: 2, Ball: 4}

		Convey("An exploration rate of zero always exploits", func() {
			So(learner.SelectAction(state, 0), ShouldEqual, models.MoveLeft)

			table.Set(state, models.MoveRight, 0.5)
			for i := 0; i < 1000; i++ {
				So(learner.SelectAction(state, 0), ShouldEqual, models.MoveRight)
			}

			table.Set(state, models.Stay, 0.5)
			for i := 0; i < 1000; i++ {
				So(learner.SelectAction(state, 0), ShouldEqual, models.Stay)
			}
		})

		Convey("An exploration rate of one is uniform over the actions", func() {
			table.Set(state, models.MoveRight, 10)
			samples := 30000
			counts := make([]float64, models.NumActions)
			for i := 0; i < samples; i++ {
				counts[learner.SelectAction(state, 1).Index()]++
			}

			expected := make([]float64, models.NumActions)
			for i := range expected {
				expected[i] = float64(samples) / models.NumActions
			}
			chi2 := stat.ChiSquare(counts, expected)
			pValue := distuv.ChiSquared{K: models.NumActions - 1}.Survival(chi2)
			So(pValue, ShouldBeGreaterThan, 0.001)
		})
	})
}

func TestUpdate(t *testing.T) {
	Convey("Given a transition into a successor valued [0, 2, 0]", t, func() {
		table := NewValueTable(5)
		learner := NewLearner(table, 0.1, 0.9, rand.NewSource(1))
		state := models.GridState{Paddle: 1, Ball: 1}
		next := models.GridState{Paddle: 2, Ball: 1}
		table.Set(next, models.Stay, 2)
		step := models.Step{
			State:     state,
			Action:    models.MoveRight,
			Reward:    1,
			Successor: next,
		}

		Convey("Q-learning bootstraps from the max successor value", func() {
			learner.Update(step, models.MoveLeft, QLearningRule{})
			So(table.At(state, models.MoveRight), ShouldAlmostEqual, 0.28)
		})

		Convey("SARSA bootstraps from the selected next action", func() {
			learner.Update(step, models.MoveLeft, SarsaRule{})
			So(table.At(state, models.MoveRight), ShouldAlmostEqual, 0.1)
		})

		Convey("SARSA and Q-learning agree when the next action is greedy", func() {
			learner.Update(step, models.Stay, SarsaRule{})
			So(table.At(state, models.MoveRight), ShouldAlmostEqual, 0.28)
		})

		Convey("Only the updated entry changes", func() {
			learner.Update(step, models.MoveLeft, QLearningRule{})
			So(table.At(state, models.MoveLeft), ShouldEqual, 0.0)
			So(table.At(state, models.Stay), ShouldEqual, 0.0)
			So(table.Row(next), ShouldResemble, []float64{0, 2, 0})
		})

		Convey("Repeated updates move the value toward the target", func() {
			for i := 0; i < 500; i++ {
				learner.Update(step, models.Stay, QLearningRule{})
			}
			So(table.At(state, models.MoveRight), ShouldAlmostEqual, 2.8, 1e-6)
		})
	})
}

func TestRuleFromName(t *testing.T) {
	Convey("When resolving update rules by name", t, func() {
		for _, name := range []string{"sarsa", "SARSA", " Sarsa "} {
			rule, err := RuleFromName(name)
			So(err, ShouldBeNil)
			So(rule, ShouldHaveSameTypeAs, SarsaRule{})
		}
		for _, name := range []string{"q-learning", "Q-Learning", "q_learning", "QLearning"} {
			rule, err := RuleFromName(name)
			So(err, ShouldBeNil)
			So(rule, ShouldHaveSameTypeAs, QLearningRule{})
			So(rule.Name(), ShouldEqual, QLEARNING)
		}

		Convey("Unknown names fail instead of falling back", func() {
			rule, err := RuleFromName("expected-sarsa")
			So(rule, ShouldBeNil)
			So(errors.Is(err, ErrUnknownRule), ShouldBeTrue)
			So(err.Error(), ShouldContainSubstring, "expected-sarsa")
		})
	})
}
