package grid

import (
	"fmt"
	"math/rand"
)

// DescentPath is the fixed descending path, in generation coordinates (row 0
// at the top before the rows are reversed).
var DescentPath = []Cell{
	{0, 5}, {1, 5}, {2, 5}, {3, 5},
	{3, 4}, {3, 3}, {4, 3}, {5, 3},
	{6, 3}, {7, 3}, {7, 2}, {7, 1},
	{8, 1}, {9, 1},
}

const (
	pathStartValue = 50
	pathEndValue   = 5
)

// GeneratePath returns a 10x10 grid of values 51..100 crossed by a strictly
// decreasing path that ends in the global minimum 5. Every path value is
// below every off-path value and the path never touches itself except at
// consecutive cells, so a best-improvement climb from the returned start cell
// follows it to the end. Rows are reversed after generation.
func GeneratePath(rng *rand.Rand) (*Grid, Cell) {
	g, _ := New(DefaultSize, DefaultSize)
	for i := range g.values {
		g.values[i] = rng.Intn(50) + 51
	}

	v := pathStartValue
	for _, c := range DescentPath {
		g.set(c.Row, c.Col, v)
		v -= rng.Intn(3) + 1
	}
	end := DescentPath[len(DescentPath)-1]
	g.set(end.Row, end.Col, pathEndValue)

	g.ReverseRows()
	start := DescentPath[0]
	return g, Cell{Row: g.rows - 1 - start.Row, Col: start.Col}
}

// PathEnd returns the cell holding the minimum of a GeneratePath grid.
func PathEnd() Cell {
	end := DescentPath[len(DescentPath)-1]
	return Cell{Row: DefaultSize - 1 - end.Row, Col: end.Col}
}

// GenerateLandscape returns a DefaultSize grid. See GenerateLandscapeSized.
func GenerateLandscape(rng *rand.Rand, mountains bool) *Grid {
	g, _ := GenerateLandscapeSized(rng, DefaultSize, DefaultSize, mountains)
	return g
}

// GenerateLandscapeSized fills a grid with uniform values 1..100, carves two
// to four valleys and, when mountains is set, raises one or two peaks. A
// feature has a Manhattan radius of one or two cells. Valleys only lower
// cells and mountains only raise them. Rows are reversed afterwards.
func GenerateLandscapeSized(rng *rand.Rand, rows, cols int, mountains bool) (*Grid, error) {
	g, err := New(rows, cols)
	if err != nil {
		return nil, err
	}
	for i := range g.values {
		g.values[i] = rng.Intn(100) + 1
	}

	for n := rng.Intn(3) + 2; n > 0; n-- {
		center := g.RandomCell(rng)
		radius := rng.Intn(2) + 1
		base := rng.Intn(30) + 1
		g.feature(center, radius, func(d int) int {
			return base + d*rng.Intn(5)
		}, func(nv, old int) bool { return nv < old })
	}

	if mountains {
		for n := rng.Intn(2) + 1; n > 0; n-- {
			center := g.RandomCell(rng)
			radius := rng.Intn(2) + 1
			base := rng.Intn(20) + 80
			g.feature(center, radius, func(d int) int {
				return base + (radius-d)*rng.Intn(5)
			}, func(nv, old int) bool { return nv > old })
		}
	}

	g.ReverseRows()
	return g, nil
}

// feature rewrites the cells within Manhattan distance radius of center when
// replace accepts the new value.
func (g *Grid) feature(center Cell, radius int, value func(d int) int, replace func(nv, old int) bool) {
	for r := max(0, center.Row-radius); r <= min(g.rows-1, center.Row+radius); r++ {
		for c := max(0, center.Col-radius); c <= min(g.cols-1, center.Col+radius); c++ {
			d := abs(r-center.Row) + abs(c-center.Col)
			if d > radius {
				continue
			}
			if nv := value(d); replace(nv, g.get(r, c)) {
				g.set(r, c, nv)
			}
		}
	}
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// Generator names accepted by Generate.
const (
	GenPath      = "path"
	GenLandscape = "landscape"
	GenMountains = "mountains"
)

var Generators = []string{GenPath, GenLandscape, GenMountains}

// Generate builds the named grid together with a start cell: the path start
// for GenPath and a random cell otherwise.
func Generate(name string, rng *rand.Rand) (*Grid, Cell, error) {
	switch name {
	case GenPath, "":
		g, start := GeneratePath(rng)
		return g, start, nil
	case GenLandscape, GenMountains:
		g := GenerateLandscape(rng, name == GenMountains)
		return g, g.RandomCell(rng), nil
	default:
		return nil, Cell{}, fmt.Errorf("unknown grid generator %q", name)
	}
}
