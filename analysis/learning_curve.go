// analysis turns training reports into learning curves and plots.
package analysis

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"paddle/reinforcement"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// ErrNoEpisodes is returned when a report has nothing to plot.
var ErrNoEpisodes = errors.New("no episodes to plot")

// MovingAverage returns the trailing mean of values over window points. The
// first window-1 points average over what is available so far.
func MovingAverage(values []float64, window int) []float64 {
	if window < 1 {
		window = 1
	}
	avgs := make([]float64, len(values))
	for i := range values {
		start := max(0, i-window+1)
		avgs[i] = stat.Mean(values[start:i+1], nil)
	}
	return avgs
}

// CatchRateCurve maps each episode to the trailing catch rate in [0,1].
func CatchRateCurve(report *reinforcement.TrainingReport, window int) []float64 {
	curve := MovingAverage(report.Rewards, window)
	for i := range curve {
		curve[i] = (curve[i] + 1) / 2
	}
	return curve
}

// SaveLearningCurve plots the trailing catch rate of each report, one line per
// report, to path. The image format follows path's extension (png, svg, pdf...).
func SaveLearningCurve(path string, window int, reports ...*reinforcement.TrainingReport) error {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("Catch rate (trailing %d episodes)", window)
	p.X.Label.Text = "Episode"
	p.Y.Label.Text = "Catch rate"
	p.Y.Min = 0
	p.Y.Max = 1

	plotted := 0
	for i, report := range reports {
		if report.Episodes() == 0 {
			continue
		}
		curve := CatchRateCurve(report, window)
		points := make(plotter.XYs, len(curve))
		for ep, rate := range curve {
			points[ep] = plotter.XY{
				X: float64(ep + 1),
				Y: rate,
			}
		}

		line, err := plotter.NewLine(points)
		if err != nil {
			return fmt.Errorf("plot %s: %w", report.Rule, err)
		}
		line.Color = plotutil.Color(i)
		p.Add(line)
		p.Legend.Add(report.Rule, line)
		plotted++
	}
	if plotted == 0 {
		return ErrNoEpisodes
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, os.ModePerm); err != nil {
			return err
		}
	}
	return p.Save(8*vg.Inch, 4*vg.Inch, path)
}
