package calibration

import (
	"context"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/optimize"
)

// Objective maps a temperature to the mean NLL of the batch.
type Objective func(temperature float64) float64

// Refiner improves a grid optimum within [lo, hi]. Implementations must
// return a value inside the bounds. The calibrator keeps the grid result
// whenever the refined value is not strictly better.
type Refiner interface {
	Refine(ctx context.Context, lo, hi, start float64, objective Objective) (float64, error)
}

// Refiner names accepted by NewRefiner.
const (
	RefineNone       = "none"
	RefineNelderMead = "nelder-mead"
	RefineNarrowing  = "narrowing"
)

// NewRefiner returns the refiner registered under name. "none" and ""
// return nil, which disables refinement.
func NewRefiner(name string) (Refiner, error) {
	switch name {
	case "", RefineNone:
		return nil, nil
	case RefineNelderMead:
		return NelderMeadRefiner{}, nil
	case RefineNarrowing:
		return NarrowingRefiner{}, nil
	default:
		return nil, fmt.Errorf("unknown refiner %q (want %q, %q or %q)", name, RefineNone, RefineNelderMead, RefineNarrowing)
	}
}

func refinerName(r Refiner) string {
	switch r.(type) {
	case nil:
		return RefineNone
	case NelderMeadRefiner, *NelderMeadRefiner:
		return RefineNelderMead
	case NarrowingRefiner, *NarrowingRefiner:
		return RefineNarrowing
	default:
		return fmt.Sprintf("%T", r)
	}
}

// NelderMeadRefiner runs a one-dimensional Nelder-Mead simplex search.
// Points outside the bounds are scored at the nearest bound plus a linear
// penalty, and the result is clamped.
type NelderMeadRefiner struct {
	// MaxEvaluations caps objective calls. Zero means 200.
	MaxEvaluations int
}

const outOfBoundsPenalty = 1e3

// Refine implements Refiner.
func (r NelderMeadRefiner) Refine(ctx context.Context, lo, hi, start float64, objective Objective) (float64, error) {
	if err := ctx.Err(); err != nil {
		return start, err
	}
	evals := r.MaxEvaluations
	if evals <= 0 {
		evals = 200
	}

	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			if ctx.Err() != nil {
				return math.Inf(1)
			}
			t := clamp(x[0], lo, hi)
			return objective(t) + outOfBoundsPenalty*math.Abs(x[0]-t)
		},
	}
	settings := &optimize.Settings{FuncEvaluations: evals}
	result, err := optimize.Minimize(problem, []float64{clamp(start, lo, hi)}, settings, &optimize.NelderMead{})
	if err := ctx.Err(); err != nil {
		return start, err
	}
	// An evaluation limit still leaves the best location found.
	if result == nil || len(result.X) == 0 {
		return start, fmt.Errorf("nelder-mead: %w", err)
	}
	return clamp(result.X[0], lo, hi), nil
}

// NarrowingRefiner repeatedly evaluates a small grid around the current
// best value and narrows the window to the span of the best few points.
type NarrowingRefiner struct {
	// Rounds of narrowing. Zero means 6.
	Rounds int
	// Points per round. Zero means 11.
	Points int
	// TopK points that define the next window. Zero means 3.
	TopK int
}

func (r NarrowingRefiner) withDefaults() NarrowingRefiner {
	if r.Rounds <= 0 {
		r.Rounds = 6
	}
	if r.Points < 3 {
		r.Points = 11
	}
	if r.TopK <= 0 {
		r.TopK = 3
	}
	return r
}

// Refine implements Refiner.
func (r NarrowingRefiner) Refine(ctx context.Context, lo, hi, start float64, objective Objective) (float64, error) {
	r = r.withDefaults()
	best := clamp(start, lo, hi)
	bestScore := objective(best)

	half := (hi - lo) / 8
	winLo, winHi := math.Max(lo, best-half), math.Min(hi, best+half)

	for round := 0; round < r.Rounds; round++ {
		if err := ctx.Err(); err != nil {
			return best, err
		}
		grid := generateGrid(winLo, winHi, r.Points)
		scores := make([]float64, len(grid))
		for i, t := range grid {
			scores[i] = objective(t)
		}

		order := make([]int, len(grid))
		for i := range order {
			order[i] = i
		}
		sort.SliceStable(order, func(a, b int) bool { return scores[order[a]] < scores[order[b]] })

		if s := scores[order[0]]; s < bestScore {
			best, bestScore = grid[order[0]], s
		}

		k := min(r.TopK, len(order))
		top := make([]float64, k)
		for i := 0; i < k; i++ {
			top[i] = grid[order[i]]
		}
		winLo, winHi = narrowBounds(top, r.Points, lo, hi)
	}
	return best, nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
