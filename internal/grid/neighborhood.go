package grid

import "fmt"

// Neighborhood is an ordered set of offsets around a cell. The order matters:
// searches that keep the first of several equal neighbors depend on it.
type Neighborhood struct {
	Name    string
	Offsets [][2]int
}

var (
	// Cross4 is up, down, left, right.
	Cross4 = Neighborhood{Name: "cross4", Offsets: [][2]int{{-1, 0}, {1, 0}, {0, -1}, {0, 1}}}

	// Diagonal4 is up-left, up-right, down-left, down-right.
	Diagonal4 = Neighborhood{Name: "diagonal4", Offsets: [][2]int{{-1, -1}, {-1, 1}, {1, -1}, {1, 1}}}

	// Moore8 is Cross4 followed by Diagonal4.
	Moore8 = Neighborhood{Name: "moore8", Offsets: [][2]int{
		{-1, 0}, {1, 0}, {0, -1}, {0, 1},
		{-1, -1}, {-1, 1}, {1, -1}, {1, 1},
	}}

	// ExtendedCross12 is Cross4, the cross at distance two, then Diagonal4.
	ExtendedCross12 = Neighborhood{Name: "extended12", Offsets: [][2]int{
		{-1, 0}, {1, 0}, {0, -1}, {0, 1},
		{-2, 0}, {2, 0}, {0, -2}, {0, 2},
		{-1, -1}, {-1, 1}, {1, -1}, {1, 1},
	}}

	// VonNeumannOrdered is right, left, down, up.
	VonNeumannOrdered = Neighborhood{Name: "vonneumann", Offsets: [][2]int{{0, 1}, {0, -1}, {1, 0}, {-1, 0}}}
)

// Neighborhoods lists every named neighborhood.
var Neighborhoods = map[string]Neighborhood{
	Cross4.Name:            Cross4,
	Diagonal4.Name:         Diagonal4,
	Moore8.Name:            Moore8,
	ExtendedCross12.Name:   ExtendedCross12,
	VonNeumannOrdered.Name: VonNeumannOrdered,
}

// LookupNeighborhood returns the neighborhood with the given name.
func LookupNeighborhood(name string) (Neighborhood, error) {
	n, ok := Neighborhoods[name]
	if !ok {
		return Neighborhood{}, fmt.Errorf("unknown neighborhood %q", name)
	}
	return n, nil
}

// Neighbors returns the in-bounds neighbors of c in offset order.
func (g *Grid) Neighbors(c Cell, n Neighborhood) []Cell {
	out := make([]Cell, 0, len(n.Offsets))
	for _, o := range n.Offsets {
		if nc := c.Add(o[0], o[1]); g.Contains(nc) {
			out = append(out, nc)
		}
	}
	return out
}
