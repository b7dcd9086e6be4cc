package reinforcement

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

const testConfig = `
kind: paddle
def:
  gridSize: 7
  hyperParams:
    - key: alpha
      val: 0.2
    - key: epsilon
      val: 0.05
  algorithm:
    rule: Q-Learning
    mode: manual
  trainingDeadline:
    duration: 2s
  tickRate: 20
  episodes: 300
  seed: 12
`

func writeConfig(dir, contents string) string {
	path := filepath.Join(dir, "config.yaml")
	So(os.WriteFile(path, []byte(contents), 0o644), ShouldBeNil)
	return path
}

func TestFromYaml(t *testing.T) {
	Convey("When a config file is loaded", t, func() {
		path := writeConfig(t.TempDir(), testConfig)
		cfg, err := FromYaml(path)
		So(err, ShouldBeNil)

		Convey("Its values are decoded", func() {
			So(cfg.GridSize, ShouldEqual, 7)
			So(cfg.Alpha(), ShouldEqual, 0.2)
			So(cfg.Epsilon(), ShouldEqual, 0.05)
			So(cfg.RuleName(), ShouldEqual, "Q-Learning")
			So(cfg.Mode(), ShouldEqual, MODE_MANUAL)
			So(cfg.TickRate, ShouldEqual, 20.0)
			So(cfg.TickPeriod(), ShouldEqual, 50*time.Millisecond)
			So(cfg.Episodes, ShouldEqual, 300)
			So(cfg.Seed, ShouldEqual, uint64(12))
			So(cfg.Validate(), ShouldBeNil)
		})

		Convey("Missing hyper-params fall back to defaults", func() {
			So(cfg.Gamma(), ShouldEqual, DEFAULT_GAMMA)
		})

		Convey("The training deadline bounds the context", func() {
			ctx, cancel, err := cfg.WithTrainingDeadline(context.Background())
			So(err, ShouldBeNil)
			defer cancel()
			deadline, ok := ctx.Deadline()
			So(ok, ShouldBeTrue)
			So(time.Until(deadline), ShouldBeLessThanOrEqualTo, 2*time.Second)
		})
	})

	Convey("When the config file is missing", t, func() {
		_, err := FromYaml(filepath.Join(t.TempDir(), "nope.yaml"))
		So(err, ShouldNotBeNil)
	})
}

func TestValidate(t *testing.T) {
	Convey("Given the default config", t, func() {
		cfg := DefaultConfig()
		So(cfg.Validate(), ShouldBeNil)
		So(cfg.GridSize, ShouldEqual, 11)
		So(cfg.Alpha(), ShouldEqual, 0.1)
		So(cfg.Gamma(), ShouldEqual, 0.9)
		So(cfg.Epsilon(), ShouldEqual, 0.1)
		So(cfg.RuleName(), ShouldEqual, SARSA)
		So(cfg.Mode(), ShouldEqual, MODE_AI)

		Convey("Without a deadline the context has none", func() {
			ctx, cancel, err := cfg.WithTrainingDeadline(context.Background())
			So(err, ShouldBeNil)
			defer cancel()
			_, ok := ctx.Deadline()
			So(ok, ShouldBeFalse)
		})

		invalid := map[string]func(){
			"a one-cell grid":       func() { cfg.GridSize = 1 },
			"a zero learning rate":  func() { cfg.SetHyperParam("alpha", 0) },
			"a discount above one":  func() { cfg.SetHyperParam("gamma", 1.5) },
			"a negative epsilon":    func() { cfg.SetHyperParam("epsilon", -0.1) },
			"an unknown mode":       func() { cfg.SetAlgorithm("mode", "autopilot") },
			"a zero tick rate":      func() { cfg.TickRate = 0 },
			"a NaN learning rate":   func() { cfg.SetHyperParam("alpha", math.NaN()) },
			"a NaN discount":        func() { cfg.SetHyperParam("gamma", math.NaN()) },
			"a NaN epsilon":         func() { cfg.SetHyperParam("epsilon", math.NaN()) },
			"a NaN tick rate":       func() { cfg.TickRate = math.NaN() },
			"an infinite tick rate": func() { cfg.TickRate = math.Inf(1) },
			"a sub-nanosecond tick": func() { cfg.TickRate = 2e9 },
			"negative episodes":     func() { cfg.Episodes = -1 },
			"a bad deadline":        func() { cfg.TrainingDeadline["duration"] = "soon" },
		}
		for name, mutate := range invalid {
			Convey("It rejects "+name, func() {
				mutate()
				So(errors.Is(cfg.Validate(), ErrInvalidConfig), ShouldBeTrue)
			})
		}

		Convey("It rejects an unknown rule", func() {
			cfg.SetAlgorithm("rule", "td-lambda")
			So(errors.Is(cfg.Validate(), ErrUnknownRule), ShouldBeTrue)
		})
	})
}

func TestFromYamlRejectsNaN(t *testing.T) {
	Convey("When a config file carries NaN hyper-parameters", t, func() {
		path := writeConfig(t.TempDir(), `
kind: paddle
def:
  hyperParams:
    - key: alpha
      val: .nan
    - key: epsilon
      val: .nan
`)
		cfg, err := FromYaml(path)
		So(err, ShouldBeNil)
		So(math.IsNaN(cfg.Alpha()), ShouldBeTrue)

		Convey("Validation fails before any tick runs", func() {
			So(errors.Is(cfg.Validate(), ErrInvalidConfig), ShouldBeTrue)
		})
	})
}
