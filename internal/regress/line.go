// Package regress implements the least-squares models behind the regression
// demos together with their error metrics and residual diagnostics.
package regress

import (
	"errors"
	"fmt"
	"math"

	"github.com/cwbudde/mlplayground/internal/dataset"
	"github.com/cwbudde/mlplayground/internal/linalg"
)

var (
	// ErrTooFewPoints is returned when a model has fewer samples than parameters.
	ErrTooFewPoints = errors.New("too few points")

	// ErrDegenerate is returned when the predictors carry no variation.
	ErrDegenerate = errors.New("degenerate design")
)

const degenerateEpsilon = 1e-4

// Line is y = Slope·x + Intercept.
type Line struct {
	Slope     float64 `json:"slope"`
	Intercept float64 `json:"intercept"`
}

// Predict evaluates the line at x.
func (l Line) Predict(x float64) float64 {
	return l.Slope*x + l.Intercept
}

// RSS returns the residual sum of squares of l over pts.
func (l Line) RSS(pts []dataset.Point) float64 {
	var rss float64
	for _, p := range pts {
		d := p.Y - l.Predict(p.X)
		rss += d * d
	}
	return rss
}

// FitLine returns the ordinary least squares line through pts. With fewer than
// two points it returns the identity line; with no spread in x it returns the
// horizontal line through mean(y).
func FitLine(pts []dataset.Point) Line {
	if len(pts) < 2 {
		return Line{Slope: 1, Intercept: 0}
	}

	n := float64(len(pts))
	var sumX, sumY, sumXY, sumX2 float64
	for _, p := range pts {
		sumX += p.X
		sumY += p.Y
		sumXY += p.X * p.Y
		sumX2 += p.X * p.X
	}

	denom := n*sumX2 - sumX*sumX
	if math.Abs(denom) < degenerateEpsilon {
		return Line{Slope: 0, Intercept: sumY / n}
	}

	slope := (n*sumXY - sumX*sumY) / denom
	return Line{Slope: slope, Intercept: (sumY - slope*sumX) / n}
}

// Plane is y = B0 + B1·x1 + B2·x2.
type Plane struct {
	B0 float64 `json:"b0"`
	B1 float64 `json:"b1"`
	B2 float64 `json:"b2"`
}

// Predict evaluates the plane at (x1, x2).
func (p Plane) Predict(x1, x2 float64) float64 {
	return p.B0 + p.B1*x1 + p.B2*x2
}

// RSS returns the residual sum of squares of p over pts.
func (p Plane) RSS(pts []dataset.Point3) float64 {
	var rss float64
	for _, q := range pts {
		d := q.Y - p.Predict(q.X1, q.X2)
		rss += d * d
	}
	return rss
}

// R2 returns the coefficient of determination of p over pts.
func (p Plane) R2(pts []dataset.Point3) float64 {
	if len(pts) < 2 {
		return 0
	}
	yTrue := make([]float64, len(pts))
	yPred := make([]float64, len(pts))
	for i, q := range pts {
		yTrue[i] = q.Y
		yPred[i] = p.Predict(q.X1, q.X2)
	}
	return R2(yTrue, yPred)
}

// FitPlane solves the centered two-predictor normal equations.
func FitPlane(pts []dataset.Point3) (Plane, error) {
	n := float64(len(pts))
	if len(pts) < 3 {
		return Plane{}, fmt.Errorf("plane fit with %d points: %w", len(pts), ErrTooFewPoints)
	}

	var m1, m2, my float64
	for _, p := range pts {
		m1 += p.X1
		m2 += p.X2
		my += p.Y
	}
	m1 /= n
	m2 /= n
	my /= n

	var ss11, ss22, ss12, sp1y, sp2y float64
	for _, p := range pts {
		d1, d2, dy := p.X1-m1, p.X2-m2, p.Y-my
		ss11 += d1 * d1
		ss22 += d2 * d2
		ss12 += d1 * d2
		sp1y += d1 * dy
		sp2y += d2 * dy
	}

	det := ss11*ss22 - ss12*ss12
	if math.Abs(det) < degenerateEpsilon {
		return Plane{}, fmt.Errorf("plane fit det=%g: %w", det, linalg.ErrSingular)
	}

	b1 := (ss22*sp1y - ss12*sp2y) / det
	b2 := (ss11*sp2y - ss12*sp1y) / det
	return Plane{B0: my - b1*m1 - b2*m2, B1: b1, B2: b2}, nil
}
