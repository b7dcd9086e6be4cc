package reinforcement

import (
	"context"
	"time"

	"paddle/models"
	"paddle/paddle_world"
)

// Session is the tick loop: one world, one controller, and the running score.
// Tick runs entirely on the caller's goroutine; nothing inside a tick blocks.
type Session struct {
	world      *paddle_world.World
	controller Controller
	score      int
	episodes   int
	mode       string
	rule       string
	values     models.ValueReader
}

// NewSession wires a world to a controller. Learning controllers expose their
// table to frames so views can draw it.
func NewSession(world *paddle_world.World, controller Controller) *Session {
	session := &Session{
		world:      world,
		controller: controller,
		mode:       MODE_MANUAL,
	}
	if eg, ok := controller.(*EpsilonGreedyController); ok {
		session.mode = MODE_AI
		session.rule = eg.Rule().Name()
		session.values = eg.Learner().Table()
	}
	return session
}

// Tick observes the state, acts, steps the world, lets the controller learn
// from the transition, and resets the world if the tick was terminal.
func (s *Session) Tick() models.Frame {
	state := s.world.State()
	action := s.controller.Act(state)
	reward, terminal := s.world.Step(action)
	s.score += reward

	s.controller.Learn(models.Step{
		State:     state,
		Action:    action,
		Reward:    reward,
		Successor: s.world.State(),
		Terminal:  terminal,
	})

	if terminal {
		s.world.Reset()
		s.episodes++
	}

	frame := s.Frame()
	frame.Reward = reward
	frame.Terminal = terminal
	return frame
}

// Frame returns the current read-only view of the session.
func (s *Session) Frame() models.Frame {
	return models.Frame{
		Size:     s.world.Size(),
		Paddle:   s.world.Paddle(),
		Ball:     s.world.Ball(),
		Score:    s.score,
		Episodes: s.episodes,
		Mode:     s.mode,
		Rule:     s.rule,
		Values:   s.values,
	}
}

func (s *Session) Score() int    { return s.score }
func (s *Session) Episodes() int { return s.episodes }

func (s *Session) Controller() Controller { return s.controller }

// FrameFunc receives each frame after its tick. It runs on the tick goroutine
// and must not block.
type FrameFunc func(models.Frame)

// Run ticks once per value received from ticks until ctx is done or ticks is
// closed. Pacing is entirely the caller's concern.
func (s *Session) Run(
	ctx context.Context,
	ticks <-chan time.Time,
	onFrame FrameFunc,
) {
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-ticks:
			if !ok {
				return
			}
			onFrame(s.Tick())
		}
	}
}

// Publisher returns a FrameFunc that offers frames to frames without blocking.
// Frames are dropped when the receiver is busy.
func Publisher(frames chan<- models.Frame) FrameFunc {
	return func(frame models.Frame) {
		select {
		case frames <- frame:
		default:
		}
	}
}
