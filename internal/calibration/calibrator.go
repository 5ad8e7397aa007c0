package calibration

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/banshee-data/paddy.report/internal/diagnosis"
	"github.com/banshee-data/paddy.report/internal/monitoring"
	"github.com/banshee-data/paddy.report/internal/timeutil"
)

// baselineTemperature is the unscaled classifier.
const baselineTemperature = 1.0

// Calibrator fits a temperature. It holds configuration only and may be
// reused across batches.
type Calibrator struct {
	gridStart  float64
	gridEnd    float64
	gridPoints int
	bins       int
	workers    int
	refiner    Refiner
	clock      timeutil.Clock
}

// Option configures a Calibrator.
type Option func(*Calibrator)

// WithGrid sets the linear search grid. Invalid grids are ignored.
func WithGrid(start, end float64, points int) Option {
	return func(c *Calibrator) {
		if start > 0 && end > start && points >= 2 {
			c.gridStart, c.gridEnd, c.gridPoints = start, end, points
		}
	}
}

// WithBins sets the number of ECE bins.
func WithBins(n int) Option {
	return func(c *Calibrator) {
		if n >= 1 {
			c.bins = n
		}
	}
}

// WithWorkers bounds parallelism. n <= 0 means GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(c *Calibrator) { c.workers = n }
}

// WithRefiner sets the refinement strategy. nil disables refinement.
func WithRefiner(r Refiner) Option {
	return func(c *Calibrator) { c.refiner = r }
}

// WithClock overrides the clock used for timestamps.
func WithClock(clock timeutil.Clock) Option {
	return func(c *Calibrator) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// New returns a Calibrator with the default grid (60 points over
// [0.05, 3.0]), 10 ECE bins and Nelder-Mead refinement.
func New(opts ...Option) *Calibrator {
	c := &Calibrator{
		gridStart:  DefaultGridStart,
		gridEnd:    DefaultGridEnd,
		gridPoints: DefaultGridPoints,
		bins:       DefaultBins,
		refiner:    NelderMeadRefiner{},
		clock:      timeutil.RealClock{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fit selects the temperature with the lowest mean NLL over samples and
// reports ECE before and after. labelCount is the class count every
// RawOutput must have.
func (c *Calibrator) Fit(ctx context.Context, samples []Sample, labelCount int) (Result, error) {
	if err := validateSamples(samples, labelCount); err != nil {
		return Result{}, err
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	started := c.clock.Now()
	labels := trueLabels(samples)

	base, err := c.probabilities(ctx, samples, baselineTemperature)
	if err != nil {
		return Result{}, err
	}
	eceBefore, binsBefore := ExpectedCalibrationError(base, labels, c.bins)
	nllBefore := NegativeLogLikelihood(base, labels)
	monitoring.Logf("[Calibrator] %d samples, %d classes: ECE before calibration %.4f (NLL %.4f)",
		len(samples), labelCount, eceBefore, nllBefore)

	curve, err := c.sweep(ctx, samples, labels)
	if err != nil {
		return Result{}, err
	}
	nlls := make([]float64, len(curve))
	for i, p := range curve {
		nlls[i] = p.NLL
	}
	best := curve[argmin(nlls)]
	monitoring.Logf("[Calibrator] Grid search best temperature: %.3f (NLL %.4f)", best.Temperature, best.NLL)

	temp, nll := best.Temperature, best.NLL
	if nllBefore < nll {
		monitoring.Logf("[Calibrator] Unscaled output beats the grid (NLL %.4f < %.4f); keeping T=%.1f", nllBefore, nll, baselineTemperature)
		temp, nll = baselineTemperature, nllBefore
	}

	res := Result{
		GridTemperature: best.Temperature,
		GridNLL:         best.NLL,
		SampleCount:     len(samples),
		LabelCount:      labelCount,
		BinsBefore:      binsBefore,
		Curve:           curve,
		ECEBefore:       eceBefore,
		NLLBefore:       nllBefore,
	}

	if c.refiner != nil {
		res.Refiner = refinerName(c.refiner)
		objective := func(t float64) float64 { return meanNLL(samples, labels, t) }
		refined, err := c.refiner.Refine(ctx, c.gridStart, c.gridEnd, temp, objective)
		switch {
		case ctx.Err() != nil:
			return Result{}, ctx.Err()
		case err != nil:
			monitoring.Logf("[Calibrator] Warning: refinement failed, keeping grid result: %v", err)
		default:
			if v := objective(refined); v < nll {
				monitoring.Logf("[Calibrator] Refined temperature: %.3f (NLL %.4f)", refined, v)
				temp, nll = refined, v
				res.Refined = true
			}
		}
	}

	after, err := c.probabilities(ctx, samples, temp)
	if err != nil {
		return Result{}, err
	}
	res.Temperature = temp
	res.NLLAfter = NegativeLogLikelihood(after, labels)
	res.ECEAfter, res.BinsAfter = ExpectedCalibrationError(after, labels, c.bins)
	res.CalibratedAt = c.clock.Now()
	res.Duration = c.clock.Since(started)

	monitoring.Logf("[Calibrator] ECE after calibration: %.4f at T=%.3f", res.ECEAfter, temp)
	if res.Worsened() {
		monitoring.Logf("[Calibrator] Warning: ECE worsened by %.4f", -res.Improvement())
	} else if eceBefore > 0 {
		monitoring.Logf("[Calibrator] ECE improvement: %.4f (%.1f%% reduction)", res.Improvement(), res.Improvement()/eceBefore*100)
	}
	return res, nil
}

func (c *Calibrator) limit(n int) int {
	w := c.workers
	if w <= 0 {
		w = runtime.GOMAXPROCS(0)
	}
	return max(1, min(w, n))
}

// probabilities computes the softmax of every sample at temperature. Each
// goroutine writes only its own index.
func (c *Calibrator) probabilities(ctx context.Context, samples []Sample, temperature float64) ([][]float64, error) {
	out := make([][]float64, len(samples))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.limit(len(samples)))
	for i := range samples {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out[i] = diagnosis.Softmax(samples[i].RawOutput, temperature)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// sweep evaluates the NLL at every grid temperature. Grid points run
// concurrently; each point's NLL is summed in sample order.
func (c *Calibrator) sweep(ctx context.Context, samples []Sample, labels []int) ([]CurvePoint, error) {
	grid := generateGrid(c.gridStart, c.gridEnd, c.gridPoints)
	curve := make([]CurvePoint, len(grid))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.limit(len(grid)))
	for i, t := range grid {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			curve[i] = CurvePoint{Temperature: t, NLL: meanNLL(samples, labels, t)}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return curve, nil
}

// meanNLL matches NegativeLogLikelihood over probabilities computed at t.
func meanNLL(samples []Sample, labels []int, t float64) float64 {
	var sum float64
	for i, s := range samples {
		sum += sampleNLL(diagnosis.Softmax(s.RawOutput, t), labels[i])
	}
	return sum / float64(len(samples))
}
