/*
Paddle is a tabular reinforcement learning toy: a paddle on the bottom row of a square grid
learns to catch a ball that falls one row per tick from a random column. The agent learns
online with SARSA or Q-learning over a dense table of (paddle column, ball column) states,
and the game is drawn live in the browser, the terminal, or both. A human can take the
paddle with the arrow keys in manual mode.

	paddle train --rule q-learning --episodes 20000 --plot curve.png
	paddle play --mode manual --port 8080
*/
package main

import (
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"paddle/paddle_world"
	"paddle/reinforcement"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"golang.org/x/exp/rand"
)

const (
	DEFAULT_CONFIG_PATH = "./config.yaml"
	CONFIG_ENV          = "PADDLE_CONFIG"
)

// options are the flags shared by every command; they override the config file.
type options struct {
	configPath string
	gridSize   int
	rule       string
	mode       string
	episodes   int
	seed       uint64
	tickRate   float64
	alpha      float64
	gamma      float64
	epsilon    float64
}

func newRootCommand(opts *options) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "paddle",
		Short:         "Paddle trains a tabular agent to catch a falling ball.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	defaultConfig := DEFAULT_CONFIG_PATH
	if path, ok := os.LookupEnv(CONFIG_ENV); ok {
		defaultConfig = path
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", defaultConfig, "path to the yaml config (env "+CONFIG_ENV+")")
	flags.IntVar(&opts.gridSize, "grid-size", reinforcement.DEFAULT_GRID_SIZE, "side length of the square grid")
	flags.StringVar(&opts.rule, "rule", reinforcement.SARSA, "update rule: sarsa or q-learning")
	flags.StringVar(&opts.mode, "mode", reinforcement.MODE_AI, "controller: ai or manual")
	flags.IntVar(&opts.episodes, "episodes", 0, "headless training budget; 0 trains until the deadline")
	flags.Uint64Var(&opts.seed, "seed", 0, "random seed; 0 picks one from the clock")
	flags.Float64Var(&opts.tickRate, "tick-rate", reinforcement.DEFAULT_TICK_RATE, "ticks per second when playing")
	flags.Float64Var(&opts.alpha, "alpha", reinforcement.DEFAULT_ALPHA, "learning rate")
	flags.Float64Var(&opts.gamma, "gamma", reinforcement.DEFAULT_GAMMA, "discount factor")
	flags.Float64Var(&opts.epsilon, "epsilon", reinforcement.DEFAULT_EPSILON, "exploration rate")

	rootCmd.AddCommand(
		newTrainCommand(opts),
		newPlayCommand(opts),
	)
	return rootCmd
}

// loadConfig reads the config file, applies any flags the user set, and validates the result.
// A missing file is only an error when the path was given explicitly.
func loadConfig(cmd *cobra.Command, opts *options) (cfg *reinforcement.TrainingConfig, err error) {
	flags := cmd.Flags()
	if _, statErr := os.Stat(opts.configPath); statErr == nil {
		if cfg, err = reinforcement.FromYaml(opts.configPath); err != nil {
			return
		}
	} else if flags.Changed("config") || !errors.Is(statErr, os.ErrNotExist) {
		err = fmt.Errorf("config: %w", statErr)
		return
	} else {
		cfg = reinforcement.DefaultConfig()
	}

	if flags.Changed("grid-size") {
		cfg.GridSize = opts.gridSize
	}
	if flags.Changed("rule") {
		cfg.SetAlgorithm("rule", opts.rule)
	}
	if flags.Changed("mode") {
		cfg.SetAlgorithm("mode", opts.mode)
	}
	if flags.Changed("episodes") {
		cfg.Episodes = opts.episodes
	}
	if flags.Changed("seed") {
		cfg.Seed = opts.seed
	}
	if flags.Changed("tick-rate") {
		cfg.TickRate = opts.tickRate
	}
	for _, param := range []struct {
		flag string
		val  float64
	}{
		{"alpha", opts.alpha},
		{"gamma", opts.gamma},
		{"epsilon", opts.epsilon},
	} {
		if flags.Changed(param.flag) {
			cfg.SetHyperParam(param.flag, param.val)
		}
	}
	if cfg.Seed == 0 {
		cfg.Seed = uint64(time.Now().UnixNano())
	}

	err = cfg.Validate()
	return
}

// newSession builds the world and controller described by cfg. The manual
// controller is returned for wiring key presses, and is nil in ai mode.
func newSession(
	cfg *reinforcement.TrainingConfig,
) (session *reinforcement.Session, manual *reinforcement.ManualController, err error) {
	var world *paddle_world.World
	if world, err = paddle_world.NewWorld(cfg.GridSize, rand.NewSource(cfg.Seed)); err != nil {
		return
	}

	var controller reinforcement.Controller
	switch cfg.Mode() {
	case reinforcement.MODE_MANUAL:
		manual = reinforcement.NewManualController()
		controller = manual
	default:
		var rule reinforcement.UpdateRule
		if rule, err = reinforcement.RuleFromName(cfg.RuleName()); err != nil {
			return
		}
		learner := reinforcement.NewLearner(
			reinforcement.NewValueTable(cfg.GridSize),
			cfg.Alpha(),
			cfg.Gamma(),
			rand.NewSource(cfg.Seed+1))
		controller = reinforcement.NewEpsilonGreedyController(learner, rule, cfg.Epsilon())
	}

	session = reinforcement.NewSession(world, controller)
	return
}

func main() {
	log.SetPrefix("paddle: ")
	// The .env file is optional.
	_ = godotenv.Load()

	if err := newRootCommand(&options{}).Execute(); err != nil {
		log.Println(err)
		os.Exit(1)
	}
}
