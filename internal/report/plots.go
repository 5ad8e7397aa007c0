// Package report renders calibration results as PNG plots and an HTML page.
package report

import (
	"errors"
	"fmt"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/paddy.report/internal/calibration"
)

// ErrNoCurve is returned when a result carries no NLL sweep.
var ErrNoCurve = errors.New("report: result has no NLL curve")

var (
	beforeColor  = color.RGBA{R: 214, G: 39, B: 40, A: 255}
	afterColor   = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	perfectColor = color.RGBA{R: 127, G: 127, B: 127, A: 255}
)

const (
	plotWidth  = 8 * vg.Inch
	plotHeight = 6 * vg.Inch
)

// reliabilityXYs returns (mean confidence, accuracy) for every non-empty bin.
func reliabilityXYs(bins []calibration.ReliabilityBin) plotter.XYs {
	pts := make(plotter.XYs, 0, len(bins))
	for _, b := range bins {
		if b.Count == 0 {
			continue
		}
		pts = append(pts, plotter.XY{X: b.Confidence, Y: b.Accuracy})
	}
	return pts
}

// WriteReliabilityPNG draws accuracy against confidence per bin, before and
// after scaling, with the diagonal of perfect calibration.
func WriteReliabilityPNG(path string, r calibration.Result) error {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("Reliability (T=%.3f)", r.Temperature)
	p.X.Label.Text = "Confidence"
	p.Y.Label.Text = "Accuracy"

	perfect := plotter.NewFunction(func(x float64) float64 { return x })
	perfect.Color = perfectColor
	perfect.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
	p.Add(perfect)
	p.Legend.Add("perfect", perfect)

	series := []struct {
		name string
		bins []calibration.ReliabilityBin
		col  color.Color
	}{
		{fmt.Sprintf("before (ECE %.4f)", r.ECEBefore), r.BinsBefore, beforeColor},
		{fmt.Sprintf("after (ECE %.4f)", r.ECEAfter), r.BinsAfter, afterColor},
	}
	for _, s := range series {
		pts := reliabilityXYs(s.bins)
		if len(pts) == 0 {
			continue
		}
		line, points, err := plotter.NewLinePoints(pts)
		if err != nil {
			return err
		}
		line.Color = s.col
		line.Width = vg.Points(1.5)
		points.GlyphStyle.Color = s.col
		p.Add(line, points)
		p.Legend.Add(s.name, line, points)
	}

	p.X.Min, p.X.Max = 0, 1
	p.Y.Min, p.Y.Max = 0, 1
	p.Legend.Top = true
	p.Legend.Left = true
	p.Legend.XOffs = 10
	p.Legend.YOffs = -10

	if err := p.Save(plotWidth, plotHeight, path); err != nil {
		return fmt.Errorf("save reliability plot: %w", err)
	}
	return nil
}

// WriteNLLCurvePNG draws the grid sweep of mean NLL against temperature and
// marks the grid minimum and the selected temperature.
func WriteNLLCurvePNG(path string, r calibration.Result) error {
	if len(r.Curve) == 0 {
		return ErrNoCurve
	}

	p := plot.New()
	p.Title.Text = "NLL vs temperature"
	p.X.Label.Text = "Temperature"
	p.Y.Label.Text = "Mean NLL"

	pts := make(plotter.XYs, len(r.Curve))
	for i, c := range r.Curve {
		pts[i] = plotter.XY{X: c.Temperature, Y: c.NLL}
	}
	line, err := plotter.NewLine(pts)
	if err != nil {
		return err
	}
	line.Color = afterColor
	line.Width = vg.Points(1)
	p.Add(line)
	p.Legend.Add("grid", line)

	grid, err := plotter.NewScatter(plotter.XYs{{X: r.GridTemperature, Y: r.GridNLL}})
	if err != nil {
		return err
	}
	grid.GlyphStyle.Color = perfectColor
	grid.GlyphStyle.Radius = vg.Points(4)
	p.Add(grid)
	p.Legend.Add(fmt.Sprintf("grid best T=%.3f", r.GridTemperature), grid)

	chosen, err := plotter.NewScatter(plotter.XYs{{X: r.Temperature, Y: r.NLLAfter}})
	if err != nil {
		return err
	}
	chosen.GlyphStyle.Color = beforeColor
	chosen.GlyphStyle.Radius = vg.Points(3)
	p.Add(chosen)
	p.Legend.Add(fmt.Sprintf("selected T=%.3f", r.Temperature), chosen)

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10

	if err := p.Save(plotWidth, plotHeight, path); err != nil {
		return fmt.Errorf("save NLL plot: %w", err)
	}
	return nil
}
