package report

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/paddy.report/internal/calibration"
)

func binLabels(bins []calibration.ReliabilityBin) []string {
	out := make([]string, len(bins))
	for i, b := range bins {
		out[i] = fmt.Sprintf("%.1f-%.1f", b.Lower, b.Upper)
	}
	return out
}

func accuracyBars(bins []calibration.ReliabilityBin) []opts.BarData {
	out := make([]opts.BarData, len(bins))
	for i, b := range bins {
		out[i] = opts.BarData{Value: b.Accuracy}
	}
	return out
}

func reliabilityBar(r calibration.Result) *charts.Bar {
	bins := r.BinsAfter
	if len(bins) == 0 {
		bins = r.BinsBefore
	}
	perfect := make([]opts.BarData, len(bins))
	for i, b := range bins {
		perfect[i] = opts.BarData{Value: (b.Lower + b.Upper) / 2}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "480px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Reliability",
			Subtitle: fmt.Sprintf("ECE %.4f -> %.4f at T=%.3f", r.ECEBefore, r.ECEAfter, r.Temperature),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithYAxisOpts(opts.YAxis{Min: 0, Max: 1, Name: "Accuracy"}),
	)
	bar.SetXAxis(binLabels(bins)).
		AddSeries("before", accuracyBars(r.BinsBefore), charts.WithItemStyleOpts(opts.ItemStyle{Color: "#d62728"})).
		AddSeries("after", accuracyBars(r.BinsAfter), charts.WithItemStyleOpts(opts.ItemStyle{Color: "#1f77b4"})).
		AddSeries("perfect", perfect, charts.WithItemStyleOpts(opts.ItemStyle{Color: "#9e9e9e"}))
	return bar
}

func nllLine(r calibration.Result) *charts.Line {
	xs := make([]string, len(r.Curve))
	ys := make([]opts.LineData, len(r.Curve))
	for i, c := range r.Curve {
		xs[i] = strconv.FormatFloat(c.Temperature, 'f', 3, 64)
		ys[i] = opts.LineData{Value: c.NLL}
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "480px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    "NLL vs temperature",
			Subtitle: fmt.Sprintf("grid best T=%.3f, selected T=%.3f (%s)", r.GridTemperature, r.Temperature, r.Refiner),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "T"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Mean NLL"}),
	)
	line.SetXAxis(xs).AddSeries("nll", ys, charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(true)}))
	return line
}

// WriteHTML renders an interactive report with the reliability bars and the
// NLL sweep.
func WriteHTML(w io.Writer, r calibration.Result) error {
	if len(r.Curve) == 0 {
		return ErrNoCurve
	}
	page := components.NewPage()
	page.PageTitle = fmt.Sprintf("Calibration %s", r.CalibratedAt.UTC().Format(time.RFC3339))
	page.AddCharts(reliabilityBar(r), nllLine(r))
	if err := page.Render(w); err != nil {
		return fmt.Errorf("render calibration report: %w", err)
	}
	return nil
}
