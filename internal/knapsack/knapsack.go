// Package knapsack encodes 0/1 knapsack solutions in four representations
// and decodes each to the items it packs.
package knapsack

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"strconv"
	"strings"
)

// DefaultCapacity is the weight limit of the demo instance.
const DefaultCapacity = 50

// Item is one packable object.
type Item struct {
	Name   string `json:"name"`
	Weight int    `json:"weight"`
	Value  int    `json:"value"`
}

// Ratio is value per unit of weight.
func (it Item) Ratio() float64 {
	return float64(it.Value) / float64(it.Weight)
}

// DefaultItems returns the 15-item demo instance.
func DefaultItems() []Item {
	return []Item{
		{"diamond", 10, 60},
		{"phone", 5, 40},
		{"laptop", 15, 100},
		{"camera", 8, 50},
		{"headphones", 3, 20},
		{"watch", 2, 30},
		{"book", 4, 15},
		{"console", 12, 80},
		{"guitar", 9, 55},
		{"flashlight", 2, 10},
		{"backpack", 6, 35},
		{"suitcase", 18, 90},
		{"keyboard", 7, 45},
		{"monitor", 11, 70},
		{"palette", 3, 25},
	}
}

// Representation names an encoding.
type Representation string

const (
	Binary      Representation = "binary"
	Integer     Representation = "integer"
	RandomKeys  Representation = "randomkeys"
	Permutation Representation = "permutation"
)

// Representations lists every encoding.
var Representations = []Representation{Binary, Integer, RandomKeys, Permutation}

// ParseRepresentation accepts a representation name.
func ParseRepresentation(s string) (Representation, error) {
	for _, r := range Representations {
		if string(r) == s {
			return r, nil
		}
	}
	return "", fmt.Errorf("unknown representation %q", s)
}

var ErrNoItems = errors.New("no items")

// Problem is a knapsack instance.
type Problem struct {
	Items    []Item `json:"items"`
	Capacity int    `json:"capacity"`
}

// DefaultProblem is the demo instance.
func DefaultProblem() Problem {
	return Problem{Items: DefaultItems(), Capacity: DefaultCapacity}
}

func (p Problem) Validate() error {
	if len(p.Items) == 0 {
		return ErrNoItems
	}
	if p.Capacity < 0 {
		return fmt.Errorf("capacity must be non-negative, got %d", p.Capacity)
	}
	for i, it := range p.Items {
		if it.Weight <= 0 {
			return fmt.Errorf("item %d (%s): weight must be positive", i, it.Name)
		}
	}
	return nil
}

// Solution is an encoded solution. Exactly one of the slices is used,
// selected by Rep.
type Solution struct {
	Rep   Representation `json:"representation"`
	Bits  []int          `json:"bits,omitempty"`
	Index []int          `json:"index,omitempty"`
	Keys  []float64      `json:"keys,omitempty"`
	Order []int          `json:"order,omitempty"`
}

// Evaluation is a decoded solution.
type Evaluation struct {
	Packed   []int `json:"packed"`
	Weight   int   `json:"weight"`
	Value    int   `json:"value"`
	Feasible bool  `json:"feasible"`
}

// Evaluate decodes s against p. Binary solutions take every selected item
// and may exceed the capacity. The other representations fill the knapsack
// greedily in their priority order, skipping items that no longer fit, and
// are always feasible.
func (p Problem) Evaluate(s Solution) (Evaluation, error) {
	switch s.Rep {
	case Binary:
		if len(s.Bits) != len(p.Items) {
			return Evaluation{}, fmt.Errorf("binary solution has %d bits, want %d", len(s.Bits), len(p.Items))
		}
		var ev Evaluation
		for i, b := range s.Bits {
			if b == 1 {
				ev.Packed = append(ev.Packed, i)
				ev.Weight += p.Items[i].Weight
				ev.Value += p.Items[i].Value
			}
		}
		ev.Feasible = ev.Weight <= p.Capacity
		return ev, nil
	case Integer:
		return p.fill(s.Index), nil
	case RandomKeys:
		if len(s.Keys) != len(p.Items) {
			return Evaluation{}, fmt.Errorf("random keys solution has %d keys, want %d", len(s.Keys), len(p.Items))
		}
		return p.fill(decodeKeys(s.Keys)), nil
	case Permutation:
		if err := checkPermutation(s.Order, len(p.Items)); err != nil {
			return Evaluation{}, err
		}
		return p.fill(s.Order), nil
	default:
		return Evaluation{}, fmt.Errorf("unknown representation %q", s.Rep)
	}
}

// fill packs items in the given order. Invalid and repeated indices are
// skipped.
func (p Problem) fill(order []int) Evaluation {
	ev := Evaluation{Feasible: true}
	seen := make(map[int]bool, len(order))
	for _, i := range order {
		if i < 0 || i >= len(p.Items) || seen[i] {
			continue
		}
		if ev.Weight+p.Items[i].Weight > p.Capacity {
			continue
		}
		seen[i] = true
		ev.Packed = append(ev.Packed, i)
		ev.Weight += p.Items[i].Weight
		ev.Value += p.Items[i].Value
	}
	return ev
}

// decodeKeys orders item indices by descending key. Equal keys keep index
// order.
func decodeKeys(keys []float64) []int {
	order := make([]int, len(keys))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return keys[order[a]] > keys[order[b]] })
	return order
}

func checkPermutation(order []int, n int) error {
	if len(order) != n {
		return fmt.Errorf("permutation has %d entries, want %d", len(order), n)
	}
	seen := make([]bool, n)
	for _, i := range order {
		if i < 0 || i >= n || seen[i] {
			return fmt.Errorf("not a permutation of 0..%d: %v", n-1, order)
		}
		seen[i] = true
	}
	return nil
}

// Random draws a solution. Binary bits are fair coins; an integer solution
// lists fewer than n random indices, possibly repeated; keys are uniform in
// [0, 1); a permutation is a Fisher-Yates shuffle.
func (p Problem) Random(rng *rand.Rand, rep Representation) (Solution, error) {
	n := len(p.Items)
	s := Solution{Rep: rep}
	switch rep {
	case Binary:
		s.Bits = make([]int, n)
		for i := range s.Bits {
			if rng.Float64() > 0.5 {
				s.Bits[i] = 1
			}
		}
	case Integer:
		s.Index = make([]int, rng.Intn(n))
		for i := range s.Index {
			s.Index[i] = rng.Intn(n)
		}
	case RandomKeys:
		s.Keys = make([]float64, n)
		for i := range s.Keys {
			s.Keys[i] = rng.Float64()
		}
	case Permutation:
		s.Order = rng.Perm(n)
	default:
		return Solution{}, fmt.Errorf("unknown representation %q", rep)
	}
	return s, nil
}

// RatioOrder returns item indices by descending value/weight ratio.
func (p Problem) RatioOrder() []int {
	order := make([]int, len(p.Items))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return p.Items[order[a]].Ratio() > p.Items[order[b]].Ratio()
	})
	return order
}

// Greedy encodes the value/weight ratio heuristic in rep. Every
// representation decodes to the same packed set.
func (p Problem) Greedy(rep Representation) (Solution, error) {
	order := p.RatioOrder()
	n := len(p.Items)
	s := Solution{Rep: rep}
	switch rep {
	case Binary:
		s.Bits = make([]int, n)
		for _, i := range p.fill(order).Packed {
			s.Bits[i] = 1
		}
	case Integer:
		s.Index = p.fill(order).Packed
	case RandomKeys:
		s.Keys = make([]float64, n)
		for rank, i := range order {
			s.Keys[i] = 1 - float64(rank)/float64(n)
		}
	case Permutation:
		s.Order = order
	default:
		return Solution{}, fmt.Errorf("unknown representation %q", rep)
	}
	return s, nil
}

// String renders the encoding as a bracketed list. Keys use two decimals.
func (s Solution) String() string {
	var parts []string
	switch s.Rep {
	case Binary:
		parts = itoa(s.Bits)
	case Integer:
		parts = itoa(s.Index)
	case RandomKeys:
		for _, k := range s.Keys {
			parts = append(parts, strconv.FormatFloat(k, 'f', 2, 64))
		}
	case Permutation:
		parts = itoa(s.Order)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func itoa(xs []int) []string {
	out := make([]string, len(xs))
	for i, x := range xs {
		out[i] = strconv.Itoa(x)
	}
	return out
}

// Optimum solves the instance exactly by dynamic programming over capacity.
func (p Problem) Optimum() Evaluation {
	n := len(p.Items)
	best := make([][]int, n+1)
	for i := range best {
		best[i] = make([]int, p.Capacity+1)
	}
	for i := 1; i <= n; i++ {
		it := p.Items[i-1]
		for w := 0; w <= p.Capacity; w++ {
			best[i][w] = best[i-1][w]
			if it.Weight <= w {
				best[i][w] = max(best[i][w], best[i-1][w-it.Weight]+it.Value)
			}
		}
	}

	ev := Evaluation{Value: best[n][p.Capacity], Feasible: true}
	w := p.Capacity
	for i := n; i >= 1; i-- {
		if best[i][w] != best[i-1][w] {
			ev.Packed = append([]int{i - 1}, ev.Packed...)
			w -= p.Items[i-1].Weight
			ev.Weight += p.Items[i-1].Weight
		}
	}
	return ev
}
