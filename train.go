package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"

	"paddle/analysis"
	"paddle/reinforcement"

	"github.com/spf13/cobra"
)

const (
	PROGRESS_INTERVAL = 1000
	DEFAULT_WINDOW    = 100
)

func newTrainCommand(opts *options) *cobra.Command {
	var plotPath string
	var window int
	var compare bool

	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train headless, then print the learned policy and values",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			if cfg.Mode() != reinforcement.MODE_AI {
				return fmt.Errorf("%w: train requires mode %q", reinforcement.ErrInvalidConfig, reinforcement.MODE_AI)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			rules := []string{cfg.RuleName()}
			if compare {
				rules = []string{reinforcement.SARSA, reinforcement.QLEARNING}
			}

			reports := []*reinforcement.TrainingReport{}
			for _, rule := range rules {
				cfg.SetAlgorithm("rule", rule)
				report, err := runTraining(ctx, cfg, window)
				if err != nil {
					return err
				}
				reports = append(reports, report)
			}

			if plotPath == "" {
				return nil
			}
			if err := analysis.SaveLearningCurve(plotPath, window, reports...); err != nil {
				return err
			}
			log.Printf("saved learning curve to %s", plotPath)
			return nil
		},
	}
	cmd.Flags().StringVar(&plotPath, "plot", "", "save a png learning curve to this path")
	cmd.Flags().IntVar(&window, "window", DEFAULT_WINDOW, "episodes per moving catch-rate window")
	cmd.Flags().BoolVar(&compare, "compare", false, "train both rules from the same seed")
	return cmd
}

// runTraining trains a fresh session per cfg until its episode budget or deadline,
// logging progress and printing the final policy.
func runTraining(
	ctx context.Context,
	cfg *reinforcement.TrainingConfig,
	window int,
) (*reinforcement.TrainingReport, error) {
	session, _, err := newSession(cfg)
	if err != nil {
		return nil, err
	}

	trainingCtx, cancel, err := cfg.WithTrainingDeadline(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()

	log.Printf("training %s on a %dx%d grid, seed %d", cfg.RuleName(), cfg.GridSize, cfg.GridSize, cfg.Seed)
	report := reinforcement.Train(
		trainingCtx,
		session,
		cfg.Episodes,
		func(_ context.Context, episode int) {
			if episode%PROGRESS_INTERVAL == 0 {
				log.Printf("episode %d, score %d", episode, session.Score())
			}
		})

	log.Printf("%s: %d episodes, %d catches, %d misses, catch rate %.3f over the last %d",
		report.Rule,
		report.Episodes(),
		report.Catches(),
		report.Misses(),
		report.CatchRate(window),
		window)

	if controller, ok := session.Controller().(*reinforcement.EpsilonGreedyController); ok {
		table := controller.Learner().Table()
		table.ShowPolicy(os.Stdout)
		table.ShowMaxValues(os.Stdout)
	}
	return report, nil
}
