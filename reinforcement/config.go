package reinforcement

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"paddle/paddle_world"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// OuterConfig is the config file envelope: a kind and its definition.
type OuterConfig struct {
	Kind string      `mapstructure:"kind"`
	Def  interface{} `mapstructure:"def"`
}

// TrainingConfig holds the startup configuration of a session: grid geometry,
// standard RL params (learning rate, gamma, epsilon), the update rule and
// controller mode, and pacing. It is fixed once the session starts.
// Note the yaml keys are lowercase: viper lowercases every key it reads, and
// the def section is re-marshalled from viper's map.
type TrainingConfig struct {
	// GridSize is the side length N of the square grid.
	GridSize int `yaml:"gridsize"`
	// HyperParams is a key-val pair of param names and their value.
	HyperParams []HyperParameter `yaml:"hyperparams"`
	// Algorithm selects the update rule ("rule") and controller mode ("mode").
	Algorithm map[string]string `yaml:"algorithm"`
	// TrainingDeadline is a duration describing when to terminate headless training.
	TrainingDeadline map[string]string `yaml:"trainingdeadline"`
	// TickRate is the number of ticks per second when playing.
	TickRate float64 `yaml:"tickrate"`
	// Episodes is the headless training budget; zero means until the deadline.
	Episodes int `yaml:"episodes"`
	// Seed seeds the world and learner; zero picks a time-based seed.
	Seed uint64 `yaml:"seed"`
}

type HyperParameter struct {
	Key string  `yaml:"key"`
	Val float64 `yaml:"val"`
}

// Defaults, per the reference game.
const (
	DEFAULT_GRID_SIZE = 11
	DEFAULT_ALPHA     = 0.1
	DEFAULT_GAMMA     = 0.9
	DEFAULT_EPSILON   = 0.1
	DEFAULT_TICK_RATE = 10.0
)

// DefaultConfig returns the reference configuration: an 11x11 grid, α=0.1,
// γ=0.9, ε=0.1, SARSA, AI mode at 10 ticks per second.
func DefaultConfig() *TrainingConfig {
	return &TrainingConfig{
		GridSize: DEFAULT_GRID_SIZE,
		HyperParams: []HyperParameter{
			{Key: "alpha", Val: DEFAULT_ALPHA},
			{Key: "gamma", Val: DEFAULT_GAMMA},
			{Key: "epsilon", Val: DEFAULT_EPSILON},
		},
		Algorithm: map[string]string{
			"rule": SARSA,
			"mode": MODE_AI,
		},
		TrainingDeadline: map[string]string{},
		TickRate:         DEFAULT_TICK_RATE,
	}
}

func (cfg *TrainingConfig) GetHyperParamOrDefault(param string, defaultVal float64) float64 {
	for _, kvp := range cfg.HyperParams {
		if kvp.Key == param {
			return kvp.Val
		}
	}
	return defaultVal
}

// SetHyperParam overwrites or appends a hyper-parameter.
func (cfg *TrainingConfig) SetHyperParam(param string, val float64) {
	for i := range cfg.HyperParams {
		if cfg.HyperParams[i].Key == param {
			cfg.HyperParams[i].Val = val
			return
		}
	}
	cfg.HyperParams = append(cfg.HyperParams, HyperParameter{Key: param, Val: val})
}

func (cfg *TrainingConfig) Alpha() float64 { return cfg.GetHyperParamOrDefault("alpha", DEFAULT_ALPHA) }
func (cfg *TrainingConfig) Gamma() float64 { return cfg.GetHyperParamOrDefault("gamma", DEFAULT_GAMMA) }
func (cfg *TrainingConfig) Epsilon() float64 {
	return cfg.GetHyperParamOrDefault("epsilon", DEFAULT_EPSILON)
}

func (cfg *TrainingConfig) algorithmOrDefault(key, defaultVal string) string {
	if val, ok := cfg.Algorithm[key]; ok && val != "" {
		return val
	}
	return defaultVal
}

func (cfg *TrainingConfig) RuleName() string { return cfg.algorithmOrDefault("rule", SARSA) }
func (cfg *TrainingConfig) Mode() string     { return cfg.algorithmOrDefault("mode", MODE_AI) }

// SetAlgorithm overwrites an algorithm selector, e.g. "rule" or "mode".
func (cfg *TrainingConfig) SetAlgorithm(key, val string) {
	if cfg.Algorithm == nil {
		cfg.Algorithm = map[string]string{}
	}
	cfg.Algorithm[key] = val
}

// ErrInvalidConfig wraps every configuration validation failure.
var ErrInvalidConfig = errors.New("invalid config")

// Validate fails fast on any misconfiguration, before a single tick runs.
func (cfg *TrainingConfig) Validate() error {
	invalid := func(format string, args ...interface{}) error {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
	}

	if cfg.GridSize < paddle_world.MIN_GRID_SIZE {
		return invalid("gridSize %d is less than %d", cfg.GridSize, paddle_world.MIN_GRID_SIZE)
	}
	// Range checks are written as negated in-range tests so that NaN fails them.
	if alpha := cfg.Alpha(); !(alpha > 0 && alpha <= 1) {
		return invalid("alpha %v not in (0, 1]", alpha)
	}
	if gamma := cfg.Gamma(); !(gamma >= 0 && gamma <= 1) {
		return invalid("gamma %v not in [0, 1]", gamma)
	}
	if epsilon := cfg.Epsilon(); !(epsilon >= 0 && epsilon <= 1) {
		return invalid("epsilon %v not in [0, 1]", epsilon)
	}
	if _, err := RuleFromName(cfg.RuleName()); err != nil {
		return err
	}
	if mode := cfg.Mode(); mode != MODE_AI && mode != MODE_MANUAL {
		return invalid("mode %q, want %q or %q", mode, MODE_AI, MODE_MANUAL)
	}
	if !(cfg.TickRate > 0) || math.IsInf(cfg.TickRate, 1) {
		return invalid("tickRate %v must be positive and finite", cfg.TickRate)
	}
	if cfg.TickPeriod() <= 0 {
		return invalid("tickRate %v is too fast, the tick period rounds to zero", cfg.TickRate)
	}
	if cfg.Episodes < 0 {
		return invalid("episodes %d must not be negative", cfg.Episodes)
	}
	if val, ok := cfg.TrainingDeadline["duration"]; ok {
		if _, err := time.ParseDuration(val); err != nil {
			return invalid("trainingDeadline duration: %v", err)
		}
	}
	return nil
}

// TickPeriod is the wall-clock time between ticks when playing.
func (cfg *TrainingConfig) TickPeriod() time.Duration {
	return time.Duration(float64(time.Second) / cfg.TickRate)
}

// WithTrainingDeadline returns a context extended by the training deadline, if one is specified.
func (cfg *TrainingConfig) WithTrainingDeadline(
	ctx context.Context,
) (context.Context, context.CancelFunc, error) {
	if val, ok := cfg.TrainingDeadline["duration"]; ok {
		if duration, err := time.ParseDuration(val); err != nil {
			return nil, nil, err
		} else {
			innerCtx, cancel := context.WithTimeout(ctx, duration)
			return innerCtx, cancel, nil
		}
	}
	defaultCtx, cancel := context.WithCancel(ctx)
	return defaultCtx, cancel, nil
}

// FromYaml reads a {kind, def} envelope with viper and decodes its def into a
// TrainingConfig on top of DefaultConfig. The result is not validated.
func FromYaml(path string) (*TrainingConfig, error) {
	vp := viper.New()
	vp.SetConfigFile(path)
	vp.SetConfigType("yaml")
	var err error
	if err = vp.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	outerConfig := &OuterConfig{}
	if err = vp.Unmarshal(outerConfig); err != nil {
		return nil, fmt.Errorf("decode config %s: %w", path, err)
	}

	var spec []byte
	if spec, err = yaml.Marshal(outerConfig.Def); err != nil {
		return nil, err
	}

	innerConfig := DefaultConfig()
	// Explicit hyper-params replace the defaults wholesale; missing keys fall back per-key.
	innerConfig.HyperParams = nil
	if err = yaml.Unmarshal(spec, innerConfig); err != nil {
		return nil, fmt.Errorf("decode config %s def: %w", path, err)
	}

	return innerConfig, nil
}
