// Package linalg holds the small dense solvers used by the regression demos:
// Gaussian elimination, Cholesky factorization and an explicit 3x3 inverse.
package linalg

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

var (
	// ErrSingular is returned when a system has no unique solution.
	ErrSingular = errors.New("matrix is singular")

	// ErrNotPositiveDefinite is returned by Cholesky for indefinite input.
	ErrNotPositiveDefinite = errors.New("matrix is not positive definite")

	// ErrDimension is returned when operand shapes do not agree.
	ErrDimension = errors.New("dimension mismatch")
)

const (
	pivotEpsilon = 1e-12
	detEpsilon   = 1e-10
)

// SolveLinearSystem solves A·x = b by Gaussian elimination with partial pivoting.
// A and b are not modified.
func SolveLinearSystem(A [][]float64, b []float64) ([]float64, error) {
	n := len(b)
	if len(A) != n {
		return nil, fmt.Errorf("solve %dx? system with %d rhs: %w", len(A), n, ErrDimension)
	}

	aug := make([][]float64, n)
	for i, row := range A {
		if len(row) != n {
			return nil, fmt.Errorf("row %d has %d columns, want %d: %w", i, len(row), n, ErrDimension)
		}
		aug[i] = make([]float64, n+1)
		copy(aug[i], row)
		aug[i][n] = b[i]
	}

	for col := 0; col < n; col++ {
		maxRow := col
		for row := col + 1; row < n; row++ {
			if math.Abs(aug[row][col]) > math.Abs(aug[maxRow][col]) {
				maxRow = row
			}
		}
		aug[col], aug[maxRow] = aug[maxRow], aug[col]

		if math.Abs(aug[col][col]) < pivotEpsilon {
			return nil, fmt.Errorf("pivot %d: %w", col, ErrSingular)
		}

		for row := col + 1; row < n; row++ {
			factor := aug[row][col] / aug[col][col]
			for j := col; j <= n; j++ {
				aug[row][j] -= factor * aug[col][j]
			}
		}
	}

	x := make([]float64, n)
	for i := n - 1; i >= 0; i-- {
		x[i] = aug[i][n]
		for j := i + 1; j < n; j++ {
			x[i] -= aug[i][j] * x[j]
		}
		x[i] /= aug[i][i]
	}
	return x, nil
}

// SolveDense solves A·x = b with gonum's LU-based solver.
func SolveDense(A [][]float64, b []float64) ([]float64, error) {
	n := len(b)
	if len(A) != n {
		return nil, fmt.Errorf("solve %dx? system with %d rhs: %w", len(A), n, ErrDimension)
	}

	data := make([]float64, 0, n*n)
	for i, row := range A {
		if len(row) != n {
			return nil, fmt.Errorf("row %d has %d columns, want %d: %w", i, len(row), n, ErrDimension)
		}
		data = append(data, row...)
	}

	a := mat.NewDense(n, n, data)
	rhs := mat.NewVecDense(n, append([]float64(nil), b...))

	var x mat.VecDense
	if err := x.SolveVec(a, rhs); err != nil {
		var cond mat.Condition
		if errors.As(err, &cond) {
			return nil, fmt.Errorf("condition number %.3g: %w", float64(cond), ErrSingular)
		}
		return nil, fmt.Errorf("gonum solve: %w", err)
	}

	out := make([]float64, n)
	for i := range out {
		out[i] = x.AtVec(i)
	}
	return out, nil
}

// Cholesky returns the lower-triangular L with A = L·Lᵀ.
func Cholesky(A [][]float64) ([][]float64, error) {
	n := len(A)
	L := make([][]float64, n)
	for i := range L {
		if len(A[i]) != n {
			return nil, fmt.Errorf("row %d has %d columns, want %d: %w", i, len(A[i]), n, ErrDimension)
		}
		L[i] = make([]float64, n)
	}

	for i := 0; i < n; i++ {
		for j := 0; j <= i; j++ {
			var sum float64
			if j == i {
				for k := 0; k < j; k++ {
					sum += L[j][k] * L[j][k]
				}
				val := A[i][i] - sum
				if val <= 0 {
					return nil, ErrNotPositiveDefinite
				}
				L[i][j] = math.Sqrt(val)
			} else {
				for k := 0; k < j; k++ {
					sum += L[i][k] * L[j][k]
				}
				L[i][j] = (A[i][j] - sum) / L[j][j]
			}
		}
	}
	return L, nil
}

// IsPositiveDefinite reports whether the symmetric matrix A admits a Cholesky
// factorization according to gonum.
func IsPositiveDefinite(A [][]float64) bool {
	n := len(A)
	sym := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			sym.SetSym(i, j, A[i][j])
		}
	}
	var chol mat.Cholesky
	return chol.Factorize(sym)
}

// Det3x3 returns the determinant of A by cofactor expansion on the first row.
func Det3x3(A [3][3]float64) float64 {
	return A[0][0]*(A[1][1]*A[2][2]-A[1][2]*A[2][1]) -
		A[0][1]*(A[1][0]*A[2][2]-A[1][2]*A[2][0]) +
		A[0][2]*(A[1][0]*A[2][1]-A[1][1]*A[2][0])
}

// Invert3x3 inverts A via the adjugate.
func Invert3x3(A [3][3]float64) ([3][3]float64, error) {
	det := Det3x3(A)
	if math.Abs(det) < detEpsilon {
		return [3][3]float64{}, fmt.Errorf("det=%g: %w", det, ErrSingular)
	}
	inv := 1 / det

	return [3][3]float64{
		{
			(A[1][1]*A[2][2] - A[1][2]*A[2][1]) * inv,
			(A[0][2]*A[2][1] - A[0][1]*A[2][2]) * inv,
			(A[0][1]*A[1][2] - A[0][2]*A[1][1]) * inv,
		},
		{
			(A[1][2]*A[2][0] - A[1][0]*A[2][2]) * inv,
			(A[0][0]*A[2][2] - A[0][2]*A[2][0]) * inv,
			(A[0][2]*A[1][0] - A[0][0]*A[1][2]) * inv,
		},
		{
			(A[1][0]*A[2][1] - A[1][1]*A[2][0]) * inv,
			(A[0][1]*A[2][0] - A[0][0]*A[2][1]) * inv,
			(A[0][0]*A[1][1] - A[0][1]*A[1][0]) * inv,
		},
	}, nil
}

// MulVec3 returns A·v.
func MulVec3(A [3][3]float64, v [3]float64) [3]float64 {
	var out [3]float64
	for i := 0; i < 3; i++ {
		out[i] = A[i][0]*v[0] + A[i][1]*v[1] + A[i][2]*v[2]
	}
	return out
}

// Dot returns the inner product of a and b over the shorter length.
func Dot(a, b []float64) float64 {
	n := min(len(a), len(b))
	var sum float64
	for i := 0; i < n; i++ {
		sum += a[i] * b[i]
	}
	return sum
}

// Transpose returns Aᵀ for a rectangular A.
func Transpose(A [][]float64) [][]float64 {
	if len(A) == 0 {
		return nil
	}
	out := make([][]float64, len(A[0]))
	for j := range out {
		out[j] = make([]float64, len(A))
		for i := range A {
			out[j][i] = A[i][j]
		}
	}
	return out
}

// MatMul returns A·B.
func MatMul(A, B [][]float64) ([][]float64, error) {
	if len(A) == 0 || len(B) == 0 {
		return nil, nil
	}
	if len(A[0]) != len(B) {
		return nil, fmt.Errorf("%dx%d times %dx%d: %w", len(A), len(A[0]), len(B), len(B[0]), ErrDimension)
	}
	out := make([][]float64, len(A))
	for i := range A {
		out[i] = make([]float64, len(B[0]))
		for j := range B[0] {
			var sum float64
			for k := range B {
				sum += A[i][k] * B[k][j]
			}
			out[i][j] = sum
		}
	}
	return out, nil
}

// MatVec returns A·v.
func MatVec(A [][]float64, v []float64) []float64 {
	out := make([]float64, len(A))
	for i, row := range A {
		out[i] = Dot(row, v)
	}
	return out
}
