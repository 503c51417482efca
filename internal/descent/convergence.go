package descent

import (
	"log/slog"
	"math"
)

// ConvergenceConfig defines when an iterative run counts as converged
type ConvergenceConfig struct {
	// Enabled controls whether convergence detection is active
	Enabled bool

	// Patience is the number of consecutive steps with no significant
	// improvement before stopping
	Patience int

	// Threshold is the minimum relative improvement required to count as progress.
	// Relative improvement = (lastSignificant - loss) / lastSignificant
	Threshold float64
}

// DefaultConvergenceConfig stops after 20 steps that each improve the loss
// by less than 0.01%
func DefaultConvergenceConfig() ConvergenceConfig {
	return ConvergenceConfig{
		Enabled:   true,
		Patience:  20,
		Threshold: 1e-4,
	}
}

// DisabledConvergenceConfig returns a config with convergence detection disabled
func DisabledConvergenceConfig() ConvergenceConfig {
	return ConvergenceConfig{
		Enabled: false,
	}
}

// ConvergenceTracker tracks loss history and detects when a run has stalled
type ConvergenceTracker struct {
	config          ConvergenceConfig
	history         []float64
	best            float64 // Best loss ever seen
	lastSignificant float64 // Last loss that was a significant improvement
	staleCount      int     // Steps since the last significant improvement
}

// NewConvergenceTracker creates a new convergence tracker with the given config
func NewConvergenceTracker(config ConvergenceConfig) *ConvergenceTracker {
	return &ConvergenceTracker{
		config:          config,
		best:            math.Inf(1),
		lastSignificant: math.Inf(1),
	}
}

// Update records a new loss and returns true if convergence is detected.
// A loss of exactly zero counts as converged immediately.
func (c *ConvergenceTracker) Update(loss float64) bool {
	if !c.config.Enabled {
		return false
	}

	c.history = append(c.history, loss)
	if loss < c.best {
		c.best = loss
	}

	if len(c.history) == 1 {
		c.lastSignificant = loss
		return false
	}
	if c.lastSignificant == 0 {
		return true
	}

	relativeImprovement := (c.lastSignificant - loss) / math.Abs(c.lastSignificant)
	if relativeImprovement >= c.config.Threshold {
		c.lastSignificant = loss
		c.staleCount = 0
		return false
	}

	c.staleCount++
	slog.Debug("No significant loss improvement",
		"loss", loss,
		"last_significant", c.lastSignificant,
		"relative_improvement", relativeImprovement,
		"stale_count", c.staleCount,
		"patience", c.config.Patience,
	)
	if c.staleCount >= c.config.Patience {
		slog.Info("Convergence detected - stopping early",
			"stale_count", c.staleCount,
			"patience", c.config.Patience,
			"best_loss", c.best,
		)
		return true
	}
	return false
}

// Best returns the best loss seen so far
func (c *ConvergenceTracker) Best() float64 {
	return c.best
}

// History returns the full loss history
func (c *ConvergenceTracker) History() []float64 {
	return append([]float64{}, c.history...)
}

// StaleCount returns the current number of steps without improvement
func (c *ConvergenceTracker) StaleCount() int {
	return c.staleCount
}

// Reset clears the tracker's state
func (c *ConvergenceTracker) Reset() {
	c.history = nil
	c.best = math.Inf(1)
	c.lastSignificant = math.Inf(1)
	c.staleCount = 0
}
