package linalg

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSolveLinearSystem(t *testing.T) {
	tests := []struct {
		name string
		A    [][]float64
		b    []float64
		want []float64
	}{
		{
			name: "identity",
			A:    [][]float64{{1, 0}, {0, 1}},
			b:    []float64{3, -2},
			want: []float64{3, -2},
		},
		{
			name: "needs pivoting",
			A:    [][]float64{{0, 2, 1}, {1, 1, 1}, {2, 1, 0}},
			b:    []float64{5, 4, 4},
			want: []float64{1, 2, 1},
		},
		{
			name: "3x3 dense",
			A:    [][]float64{{2, 1, -1}, {-3, -1, 2}, {-2, 1, 2}},
			b:    []float64{8, -11, -3},
			want: []float64{2, 3, -1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x, err := SolveLinearSystem(tt.A, tt.b)
			require.NoError(t, err)
			assert.InDeltaSlice(t, tt.want, x, 1e-9)

			dense, err := SolveDense(tt.A, tt.b)
			require.NoError(t, err)
			assert.InDeltaSlice(t, tt.want, dense, 1e-9)
		})
	}
}

func TestSolveLinearSystemSingular(t *testing.T) {
	_, err := SolveLinearSystem([][]float64{{1, 2}, {2, 4}}, []float64{1, 2})
	require.ErrorIs(t, err, ErrSingular)
}

func TestSolveLinearSystemDoesNotMutate(t *testing.T) {
	A := [][]float64{{0, 1}, {1, 0}}
	b := []float64{1, 2}
	_, err := SolveLinearSystem(A, b)
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{0, 1}, {1, 0}}, A)
	assert.Equal(t, []float64{1, 2}, b)
}

func TestSolveDimensionMismatch(t *testing.T) {
	_, err := SolveLinearSystem([][]float64{{1, 2}}, []float64{1, 2})
	require.ErrorIs(t, err, ErrDimension)

	_, err = SolveDense([][]float64{{1, 2}, {3}}, []float64{1, 2})
	require.ErrorIs(t, err, ErrDimension)
}

func TestCholesky(t *testing.T) {
	A := [][]float64{
		{4, 12, -16},
		{12, 37, -43},
		{-16, -43, 98},
	}
	L, err := Cholesky(A)
	require.NoError(t, err)

	want := [][]float64{{2, 0, 0}, {6, 1, 0}, {-8, 5, 3}}
	for i := range want {
		assert.InDeltaSlice(t, want[i], L[i], 1e-12)
	}

	back, err := MatMul(L, Transpose(L))
	require.NoError(t, err)
	for i := range A {
		assert.InDeltaSlice(t, A[i], back[i], 1e-9)
	}
	assert.True(t, IsPositiveDefinite(A))
}

func TestCholeskyNotPositiveDefinite(t *testing.T) {
	A := [][]float64{
		{1, 0.9, 0.9},
		{0.9, 1, -0.9},
		{0.9, -0.9, 1},
	}
	_, err := Cholesky(A)
	require.ErrorIs(t, err, ErrNotPositiveDefinite)
	assert.False(t, IsPositiveDefinite(A))
}

func TestInvert3x3(t *testing.T) {
	A := [3][3]float64{{2, 0, 1}, {1, 3, 2}, {1, 1, 2}}
	inv, err := Invert3x3(A)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			var sum float64
			for k := 0; k < 3; k++ {
				sum += A[i][k] * inv[k][j]
			}
			want := 0.0
			if i == j {
				want = 1
			}
			assert.InDelta(t, want, sum, 1e-12, "entry (%d,%d)", i, j)
		}
	}

	x := MulVec3(inv, [3]float64{3, 6, 3})
	y := MulVec3(A, x)
	assert.InDeltaSlice(t, []float64{3, 6, 3}, y[:], 1e-12)
}

func TestInvert3x3Singular(t *testing.T) {
	_, err := Invert3x3([3][3]float64{{1, 2, 3}, {2, 4, 6}, {1, 1, 1}})
	require.ErrorIs(t, err, ErrSingular)
}

func TestHelpers(t *testing.T) {
	assert.Equal(t, 11.0, Dot([]float64{1, 2}, []float64{3, 4, 5}))

	A := [][]float64{{1, 2, 3}, {4, 5, 6}}
	assert.Equal(t, [][]float64{{1, 4}, {2, 5}, {3, 6}}, Transpose(A))
	assert.Nil(t, Transpose(nil))

	assert.Equal(t, []float64{14, 32}, MatVec(A, []float64{1, 2, 3}))

	_, err := MatMul(A, A)
	require.ErrorIs(t, err, ErrDimension)

	prod, err := MatMul(A, Transpose(A))
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{14, 32}, {32, 77}}, prod)
}
