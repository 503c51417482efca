package descent

import (
	"context"
	"fmt"
	"log/slog"
	"math"
)

// DefaultStart and DefaultLearningRate match the interactive demo.
var DefaultStart = [2]float64{2, 2}

const DefaultLearningRate = 0.1

// StepInfo is the state after one gradient step.
type StepInfo struct {
	Iteration int        `json:"iteration"`
	W         [2]float64 `json:"w"`
	Gradient  [2]float64 `json:"gradient"`
	GradNorm  float64    `json:"grad_norm"`
	Loss      float64    `json:"loss"`
}

// GradientDescent walks a surface with a fixed learning rate.
type GradientDescent struct {
	Surface    Surface
	LR         float64
	W          [2]float64
	Iteration  int
	Trajectory [][2]float64
	Losses     []float64
}

// NewGradientDescent starts at start, clamped to the surface domain.
func NewGradientDescent(s Surface, lr float64, start [2]float64) *GradientDescent {
	w := s.Clamp(start)
	return &GradientDescent{
		Surface:    s,
		LR:         lr,
		W:          w,
		Trajectory: [][2]float64{w},
		Losses:     []float64{s.LossAt(w)},
	}
}

// Step moves against the gradient at the current point, then clamps to the
// domain. The reported gradient is the one the step used.
func (g *GradientDescent) Step() StepInfo {
	g1, g2 := g.Surface.Gradient(g.W[0], g.W[1])
	g.W = g.Surface.Clamp([2]float64{g.W[0] - g.LR*g1, g.W[1] - g.LR*g2})
	g.Iteration++

	loss := g.Surface.LossAt(g.W)
	g.Trajectory = append(g.Trajectory, g.W)
	g.Losses = append(g.Losses, loss)
	return StepInfo{
		Iteration: g.Iteration,
		W:         g.W,
		Gradient:  [2]float64{g1, g2},
		GradNorm:  math.Hypot(g1, g2),
		Loss:      loss,
	}
}

// GradNorm is the gradient magnitude at the current point.
func (g *GradientDescent) GradNorm() float64 {
	return math.Hypot(g.Surface.Gradient(g.W[0], g.W[1]))
}

// RunConfig bounds a gradient descent run.
type RunConfig struct {
	MaxIters    int
	GradTol     float64
	Convergence ConvergenceConfig
}

// DefaultRunConfig stops at 500 iterations or when the gradient norm falls
// below 0.001. Plateau detection is off, as in the demo.
func DefaultRunConfig() RunConfig {
	return RunConfig{
		MaxIters:    500,
		GradTol:     1e-3,
		Convergence: DisabledConvergenceConfig(),
	}
}

// Validate checks the run limits.
func (c RunConfig) Validate() error {
	if c.MaxIters < 1 {
		return fmt.Errorf("max iterations must be positive, got %d", c.MaxIters)
	}
	if c.GradTol < 0 {
		return fmt.Errorf("gradient tolerance must be non-negative, got %v", c.GradTol)
	}
	return nil
}

// StopReason says why a run ended.
type StopReason string

const (
	StopGradient  StopReason = "gradient"
	StopMaxIters  StopReason = "max_iterations"
	StopConverged StopReason = "converged"
	StopCancelled StopReason = "cancelled"
)

// Result summarizes a finished run.
type Result struct {
	Surface    string       `json:"surface"`
	W          [2]float64   `json:"w"`
	Loss       float64      `json:"loss"`
	Iterations int          `json:"iterations"`
	Reason     StopReason   `json:"reason"`
	Trajectory [][2]float64 `json:"trajectory"`
	Losses     []float64    `json:"losses"`
}

// Run steps until a stop condition holds. Each step is passed to observe
// when it is non-nil. Cancelling ctx ends the run with StopCancelled and
// ctx.Err().
func (g *GradientDescent) Run(ctx context.Context, cfg RunConfig, observe func(StepInfo)) (Result, error) {
	if err := cfg.Validate(); err != nil {
		return Result{}, err
	}
	tracker := NewConvergenceTracker(cfg.Convergence)
	tracker.Update(g.Losses[len(g.Losses)-1])

	reason := StopMaxIters
	var runErr error
	for g.Iteration < cfg.MaxIters {
		if g.GradNorm() < cfg.GradTol {
			reason = StopGradient
			break
		}
		if err := ctx.Err(); err != nil {
			reason = StopCancelled
			runErr = err
			break
		}

		info := g.Step()
		if observe != nil {
			observe(info)
		}
		if tracker.Update(info.Loss) {
			reason = StopConverged
			break
		}
	}

	slog.Debug("Gradient descent finished",
		"surface", g.Surface.Name,
		"iterations", g.Iteration,
		"reason", reason,
		"loss", g.Losses[len(g.Losses)-1],
	)
	return g.result(reason), runErr
}

func (g *GradientDescent) result(reason StopReason) Result {
	return Result{
		Surface:    g.Surface.Name,
		W:          g.W,
		Loss:       g.Losses[len(g.Losses)-1],
		Iterations: g.Iteration,
		Reason:     reason,
		Trajectory: append([][2]float64(nil), g.Trajectory...),
		Losses:     append([]float64(nil), g.Losses...),
	}
}
