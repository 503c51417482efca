// Package grid holds the integer fitness landscapes the search package walks
// over, together with their neighborhoods and a plain-text dump format.
package grid

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
)

// DefaultSize is the side length of the demo grids.
const DefaultSize = 10

var (
	// ErrOutOfBounds is returned when a cell lies outside the grid.
	ErrOutOfBounds = errors.New("cell out of bounds")
	// ErrEmpty is returned for a grid without rows or columns.
	ErrEmpty = errors.New("grid is empty")
)

// Cell addresses one grid position. Row 0 is the top row.
type Cell struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

func (c Cell) String() string {
	return fmt.Sprintf("(%d,%d)", c.Row, c.Col)
}

// Add offsets the cell.
func (c Cell) Add(dr, dc int) Cell {
	return Cell{Row: c.Row + dr, Col: c.Col + dc}
}

// Grid is a rectangular table of integer fitness values. Lower is better.
type Grid struct {
	rows, cols int
	values     []int
}

// New returns a zeroed grid.
func New(rows, cols int) (*Grid, error) {
	if rows < 1 || cols < 1 {
		return nil, fmt.Errorf("%w: %dx%d", ErrEmpty, rows, cols)
	}
	return &Grid{rows: rows, cols: cols, values: make([]int, rows*cols)}, nil
}

// FromRows copies a row-major table. All rows must have the same length.
func FromRows(data [][]int) (*Grid, error) {
	if len(data) == 0 || len(data[0]) == 0 {
		return nil, ErrEmpty
	}
	g, err := New(len(data), len(data[0]))
	if err != nil {
		return nil, err
	}
	for r, row := range data {
		if len(row) != g.cols {
			return nil, fmt.Errorf("row %d has %d values, want %d", r, len(row), g.cols)
		}
		copy(g.values[r*g.cols:], row)
	}
	return g, nil
}

// Rows returns the number of rows.
func (g *Grid) Rows() int { return g.rows }

// Cols returns the number of columns.
func (g *Grid) Cols() int { return g.cols }

// Contains reports whether c lies inside the grid.
func (g *Grid) Contains(c Cell) bool {
	return c.Row >= 0 && c.Row < g.rows && c.Col >= 0 && c.Col < g.cols
}

// At returns the value at c.
func (g *Grid) At(c Cell) (int, error) {
	if !g.Contains(c) {
		return 0, fmt.Errorf("%w: %s in %dx%d", ErrOutOfBounds, c, g.rows, g.cols)
	}
	return g.values[c.Row*g.cols+c.Col], nil
}

// Value returns the value at c as a float, or +Inf outside the grid so that
// out-of-range cells never win a comparison.
func (g *Grid) Value(c Cell) float64 {
	if !g.Contains(c) {
		return math.Inf(1)
	}
	return float64(g.values[c.Row*g.cols+c.Col])
}

// Set stores v at c.
func (g *Grid) Set(c Cell, v int) error {
	if !g.Contains(c) {
		return fmt.Errorf("%w: %s in %dx%d", ErrOutOfBounds, c, g.rows, g.cols)
	}
	g.values[c.Row*g.cols+c.Col] = v
	return nil
}

func (g *Grid) set(r, c, v int) {
	g.values[r*g.cols+c] = v
}

func (g *Grid) get(r, c int) int {
	return g.values[r*g.cols+c]
}

// Data returns a row-major copy of the values.
func (g *Grid) Data() [][]int {
	out := make([][]int, g.rows)
	for r := range out {
		out[r] = append([]int(nil), g.values[r*g.cols:(r+1)*g.cols]...)
	}
	return out
}

// Clone returns an independent copy.
func (g *Grid) Clone() *Grid {
	return &Grid{rows: g.rows, cols: g.cols, values: append([]int(nil), g.values...)}
}

// ReverseRows flips the grid vertically, so that row 0 becomes the bottom row.
func (g *Grid) ReverseRows() {
	for top, bottom := 0, g.rows-1; top < bottom; top, bottom = top+1, bottom-1 {
		for c := 0; c < g.cols; c++ {
			a, b := g.get(top, c), g.get(bottom, c)
			g.set(top, c, b)
			g.set(bottom, c, a)
		}
	}
}

// Min returns the first cell (row-major) holding the smallest value.
func (g *Grid) Min() (Cell, int) {
	best, bestV := 0, g.values[0]
	for i, v := range g.values {
		if v < bestV {
			best, bestV = i, v
		}
	}
	return Cell{Row: best / g.cols, Col: best % g.cols}, bestV
}

// RandomCell picks a cell uniformly.
func (g *Grid) RandomCell(rng *rand.Rand) Cell {
	return Cell{Row: rng.Intn(g.rows), Col: rng.Intn(g.cols)}
}

// Label renders c in the 1-based (column, row-from-bottom) coordinates the
// demos print.
func (g *Grid) Label(c Cell) string {
	return fmt.Sprintf("(%d, %d)", c.Col+1, g.rows-c.Row)
}
