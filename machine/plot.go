package machine

import (
	"errors"
	"fmt"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// ErrNoSamples is returned by PlotRate when there is nothing to draw.
var ErrNoSamples = errors.New(f("no rate samples recorded"))

// PlotRate draws the samples as a MIPS-over-time line chart. The image
// format follows the file extension (png, svg, pdf, ...).
func PlotRate(samples []RateSample, path string) error {
	if len(samples) == 0 {
		return ErrNoSamples
	}

	points := make(plotter.XYs, len(samples))
	for i, s := range samples {
		points[i].X = s.Elapsed.Seconds()
		points[i].Y = s.IPS / 1e6
	}

	p := plot.New()
	p.Title.Text = "Simulation rate"
	p.X.Label.Text = "time (s)"
	p.Y.Label.Text = "MIPS"
	p.Y.Min = 0

	line, err := plotter.NewLine(points)
	if err != nil {
		return fmt.Errorf("failed to build rate plot: %w", err)
	}
	p.Add(line, plotter.NewGrid())

	if err := p.Save(6*vg.Inch, 4*vg.Inch, path); err != nil {
		return fmt.Errorf("failed to save rate plot: %w", err)
	}

	return nil
}
