package reinforcement

import (
	"context"

	"paddle/models"
	"paddle/paddle_world"

	"gonum.org/v1/gonum/stat"
)

// ProgressFunc is a callback by which the training method can lend progress details,
// while exercising some level of control over its cancellation to prevent blocking.
// ProgressFunc is synchronous/blocking and should be defined to complete quickly.
type ProgressFunc func(context.Context, int)

// TrainingReport summarizes a headless run. Rewards holds the terminal reward of
// each completed episode, in order.
type TrainingReport struct {
	Rule    string
	Rewards []float64
	Score   int
}

func (rpt *TrainingReport) Episodes() int {
	return len(rpt.Rewards)
}

func (rpt *TrainingReport) Catches() (n int) {
	for _, r := range rpt.Rewards {
		if r == paddle_world.CATCH_REWARD {
			n++
		}
	}
	return
}

func (rpt *TrainingReport) Misses() int {
	return rpt.Episodes() - rpt.Catches()
}

// CatchRate is the fraction of the last window episodes that ended in a catch,
// or of all episodes if window is not positive or exceeds them.
func (rpt *TrainingReport) CatchRate(window int) float64 {
	rewards := rpt.Rewards
	if len(rewards) == 0 {
		return 0
	}
	if window > 0 && window < len(rewards) {
		rewards = rewards[len(rewards)-window:]
	}
	// Rewards are ±1, so the mean maps onto [0,1] as a catch rate.
	return (stat.Mean(rewards, nil) + 1) / 2
}

// Train runs whole episodes on the session as fast as possible, without pacing,
// until the episode budget is spent or ctx is done. A budget of zero runs until
// ctx is done. Partial episodes at cancellation are not recorded.
func Train(
	ctx context.Context,
	session *Session,
	episodes int,
	progressFn ProgressFunc,
) *TrainingReport {
	report := &TrainingReport{
		Rule: session.Frame().Rule,
	}
	if episodes > 0 {
		report.Rewards = make([]float64, 0, episodes)
	}

	for episodes == 0 || report.Episodes() < episodes {
		// done-guard
		select {
		case <-ctx.Done():
			return report
		default:
		}

		var frame models.Frame
		for !frame.Terminal {
			frame = session.Tick()
		}
		report.Rewards = append(report.Rewards, float64(frame.Reward))
		report.Score = frame.Score

		// Hook: periodically do some other processing (publishing state values for views, etc.)
		if progressFn != nil {
			progressFn(ctx, report.Episodes())
		}
	}
	return report
}
