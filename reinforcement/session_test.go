package reinforcement

import (
	"context"
	"testing"
	"time"

	"paddle/models"
	"paddle/paddle_world"

	. "github.com/smartystreets/goconvey/convey"
	"golang.org/x/exp/rand"
)

// scriptedController steers the paddle toward a column derived from the ball's
// column, and records what it was asked to learn.
type scriptedController struct {
	size    int
	target  func(ball int) int
	learned []models.Step
}

func (c *scriptedController) Act(state models.GridState) models.Action {
	switch goal := c.target(state.Ball); {
	case goal < state.Paddle:
		return models.MoveLeft
	case goal > state.Paddle:
		return models.MoveRight
	}
	return models.Stay
}

func (c *scriptedController) Learn(step models.Step) {
	c.learned = append(c.learned, step)
}

func (c *scriptedController) chase() {
	c.target = func(ball int) int { return ball }
}

func (c *scriptedController) flee() {
	c.target = func(ball int) int { return (ball + 1) % c.size }
}

func runEpisode(session *Session) models.Frame {
	var frame models.Frame
	for !frame.Terminal {
		frame = session.Tick()
	}
	return frame
}

func TestSession(t *testing.T) {
	Convey("Given a session on a 3x3 grid", t, func() {
		world, err := paddle_world.NewWorld(3, rand.NewSource(11))
		So(err, ShouldBeNil)
		controller := &scriptedController{size: 3}
		session := NewSession(world, controller)

		Convey("A catch then a miss nets a score of zero", func() {
			controller.chase()
			frame := runEpisode(session)
			So(frame.Reward, ShouldEqual, paddle_world.CATCH_REWARD)
			So(frame.Score, ShouldEqual, 1)

			controller.flee()
			frame = runEpisode(session)
			So(frame.Reward, ShouldEqual, paddle_world.MISS_REWARD)
			So(frame.Score, ShouldEqual, 0)
			So(frame.Episodes, ShouldEqual, 2)
		})

		Convey("A miss then a catch nets a score of zero", func() {
			controller.flee()
			So(runEpisode(session).Score, ShouldEqual, -1)
			controller.chase()
			So(runEpisode(session).Score, ShouldEqual, 0)
		})

		Convey("The world is reset exactly on terminal ticks", func() {
			controller.chase()
			lastRow := world.Ball().Row
			for i := 0; i < 60; i++ {
				episodes := session.Episodes()
				frame := session.Tick()
				if frame.Terminal {
					So(lastRow+1, ShouldEqual, 2)
					So(frame.Ball.Row, ShouldEqual, 0)
					So(frame.Ball.Column, ShouldBeBetweenOrEqual, 0, 2)
					So(frame.Episodes, ShouldEqual, episodes+1)
				} else {
					So(frame.Ball.Row, ShouldEqual, lastRow+1)
					So(frame.Reward, ShouldEqual, 0)
					So(frame.Episodes, ShouldEqual, episodes)
				}
				lastRow = frame.Ball.Row
			}
		})

		Convey("The controller learns from every transition", func() {
			controller.chase()
			before := world.State()
			frame := session.Tick()
			So(controller.learned, ShouldHaveLength, 1)
			step := controller.learned[0]
			So(step.State, ShouldResemble, before)
			So(step.Successor.Paddle, ShouldEqual, frame.Paddle)
			So(step.Terminal, ShouldBeFalse)

			frame = session.Tick()
			step = controller.learned[1]
			So(step.Terminal, ShouldBeTrue)
			So(step.Reward, ShouldEqual, frame.Reward)
		})

		Convey("Frames from a non-learning controller carry no values", func() {
			frame := session.Frame()
			So(frame.Values, ShouldBeNil)
			So(frame.Mode, ShouldEqual, MODE_MANUAL)
			So(frame.Size, ShouldEqual, 3)
		})
	})
}

func TestManualSession(t *testing.T) {
	Convey("Given a manually controlled session", t, func() {
		world, err := paddle_world.NewWorld(11, rand.NewSource(3))
		So(err, ShouldBeNil)
		controller := NewManualController()
		session := NewSession(world, controller)

		Convey("No key press keeps the paddle still", func() {
			So(session.Tick().Paddle, ShouldEqual, 5)
		})

		Convey("The latest key press of the tick wins", func() {
			So(controller.Press(models.MoveLeft), ShouldBeTrue)
			So(controller.Press(models.MoveRight), ShouldBeTrue)
			So(session.Tick().Paddle, ShouldEqual, 6)
			So(session.Tick().Paddle, ShouldEqual, 6)
		})

		Convey("Presses beyond the buffer are dropped without blocking", func() {
			for i := 0; i < maxPendingPresses; i++ {
				So(controller.Press(models.MoveLeft), ShouldBeTrue)
			}
			So(controller.Press(models.MoveLeft), ShouldBeFalse)
			So(session.Tick().Paddle, ShouldEqual, 4)
		})
	})
}

func TestEpsilonGreedySession(t *testing.T) {
	Convey("Given a learning session", t, func() {
		world, err := paddle_world.NewWorld(5, rand.NewSource(5))
		So(err, ShouldBeNil)
		learner := NewLearner(NewValueTable(5), 0.1, 0.9, rand.NewSource(6))
		session := NewSession(world, NewEpsilonGreedyController(learner, QLearningRule{}, 0.1))

		Convey("Frames expose the live table and the rule", func() {
			frame := session.Frame()
			So(frame.Mode, ShouldEqual, MODE_AI)
			So(frame.Rule, ShouldEqual, QLEARNING)
			So(frame.Values, ShouldEqual, learner.Table())
		})

		Convey("Terminal rewards reach the table", func() {
			runEpisode(session)
			nonZero := 0
			learner.Table().Visit(func(state models.GridState) {
				for _, val := range learner.Table().Row(state) {
					if val != 0 {
						nonZero++
					}
				}
			})
			So(nonZero, ShouldEqual, 1)
		})
	})
}

func TestRun(t *testing.T) {
	Convey("When a session is run from a tick source", t, func() {
		world, err := paddle_world.NewWorld(4, rand.NewSource(8))
		So(err, ShouldBeNil)
		session := NewSession(world, NewManualController())

		ticks := make(chan time.Time, 10)
		for i := 0; i < 10; i++ {
			ticks <- time.Now()
		}
		close(ticks)

		frames := []models.Frame{}
		session.Run(context.Background(), ticks, func(f models.Frame) {
			frames = append(frames, f)
		})

		Convey("One frame is produced per tick until the source closes", func() {
			So(frames, ShouldHaveLength, 10)
			So(frames[9].Episodes, ShouldEqual, 3)
		})

		Convey("A cancelled context stops the loop", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			session.Run(ctx, make(chan time.Time), func(models.Frame) {
				t.Fatal("ticked after stop")
			})
		})

		Convey("Publisher drops frames rather than blocking", func() {
			out := make(chan models.Frame, 1)
			publish := Publisher(out)
			publish(frames[0])
			publish(frames[1])
			So(<-out, ShouldResemble, frames[0])
			So(len(out), ShouldEqual, 0)
		})
	})
}
