package search

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/cwbudde/mlplayground/internal/grid"
)

// GeneticConfig controls the genetic algorithm.
type GeneticConfig struct {
	Population     int     `json:"population"`
	Generations    int     `json:"generations"`
	MutationRate   float64 `json:"mutationRate"`
	CrossoverRate  float64 `json:"crossoverRate"`
	TournamentSize int     `json:"tournamentSize"`
	EliteFraction  float64 `json:"eliteFraction"`
}

// DefaultGeneticConfig evolves 10 individuals for 10 generations.
func DefaultGeneticConfig() GeneticConfig {
	return GeneticConfig{
		Population:     10,
		Generations:    10,
		MutationRate:   0.1,
		CrossoverRate:  0.7,
		TournamentSize: 3,
		EliteFraction:  0.1,
	}
}

// Validate checks sizes and that the rates and elite fraction lie in [0, 1].
func (c GeneticConfig) Validate() error {
	if c.Population < 2 {
		return fmt.Errorf("population must be at least 2, got %d", c.Population)
	}
	if c.Generations < 1 {
		return fmt.Errorf("generations must be positive, got %d", c.Generations)
	}
	if c.TournamentSize < 1 {
		return fmt.Errorf("tournament size must be positive, got %d", c.TournamentSize)
	}
	for name, p := range map[string]float64{
		"mutation rate":  c.MutationRate,
		"crossover rate": c.CrossoverRate,
		"elite fraction": c.EliteFraction,
	} {
		if p < 0 || p > 1 {
			return fmt.Errorf("%s must be in [0, 1], got %v", name, p)
		}
	}
	return nil
}

// EliteCount is the number of individuals copied unchanged into the next
// generation. At least one survives.
func (c GeneticConfig) EliteCount() int {
	return max(1, int(math.Floor(float64(c.Population)*c.EliteFraction)))
}

// Individual is one candidate cell and its fitness.
type Individual struct {
	Cell    grid.Cell `json:"cell"`
	Fitness float64   `json:"fitness"`
}

// Genetic evolves a population of cells. Crossover takes the row and the
// column independently from either parent; mutation shifts one coordinate by
// one, clamped to the grid.
type Genetic struct {
	g          *grid.Grid
	cfg        GeneticConfig
	rng        *rand.Rand
	population []Individual
	generation int
	start      Individual
	best       Individual
	path       []grid.Cell
	finished   bool
	last       Event
}

// NewGenetic draws the initial population. Its fittest member is the start.
func NewGenetic(g *grid.Grid, cfg GeneticConfig, rng *rand.Rand) (*Genetic, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	ga := &Genetic{g: g, cfg: cfg, rng: rng}
	ga.population = make([]Individual, cfg.Population)
	for i := range ga.population {
		ga.population[i].Cell = g.RandomCell(rng)
	}
	ga.evaluate()
	ga.start = ga.population[0]
	ga.best = ga.population[0]
	ga.path = []grid.Cell{ga.best.Cell}
	return ga, nil
}

// Name returns AlgGenetic.
func (ga *Genetic) Name() string { return AlgGenetic }

// Population returns a copy of the current population, fittest first.
func (ga *Genetic) Population() []Individual {
	return append([]Individual(nil), ga.population...)
}

func (ga *Genetic) evaluate() {
	for i := range ga.population {
		ga.population[i].Fitness = ga.g.Value(ga.population[i].Cell)
	}
	sort.SliceStable(ga.population, func(i, j int) bool {
		return ga.population[i].Fitness < ga.population[j].Fitness
	})
}

func (ga *Genetic) tournament() Individual {
	var best Individual
	for i := 0; i < ga.cfg.TournamentSize; i++ {
		cand := ga.population[ga.rng.Intn(len(ga.population))]
		if i == 0 || cand.Fitness < best.Fitness {
			best = cand
		}
	}
	return best
}

func (ga *Genetic) crossover(a, b Individual) Individual {
	if ga.rng.Float64() < ga.cfg.CrossoverRate {
		child := Individual{Cell: b.Cell}
		if ga.rng.Float64() < 0.5 {
			child.Cell.Row = a.Cell.Row
		}
		if ga.rng.Float64() < 0.5 {
			child.Cell.Col = a.Cell.Col
		}
		return child
	}
	if ga.rng.Float64() < 0.5 {
		return a
	}
	return b
}

func (ga *Genetic) mutate(ind *Individual) bool {
	if ga.rng.Float64() >= ga.cfg.MutationRate {
		return false
	}
	delta := 1
	if ga.rng.Float64() < 0.5 {
		delta = -1
	}
	if ga.rng.Float64() < 0.5 {
		ind.Cell.Row = clampInt(ind.Cell.Row+delta, 0, ga.g.Rows()-1)
	} else {
		ind.Cell.Col = clampInt(ind.Cell.Col+delta, 0, ga.g.Cols()-1)
	}
	return true
}

func clampInt(v, lo, hi int) int {
	return max(lo, min(hi, v))
}

// Stats returns the mean fitness and the number of distinct cells in the
// population.
func (ga *Genetic) Stats() (avg float64, diversity int) {
	seen := make(map[grid.Cell]struct{}, len(ga.population))
	for _, ind := range ga.population {
		avg += ind.Fitness
		seen[ind.Cell] = struct{}{}
	}
	return avg / float64(len(ga.population)), len(seen)
}

// Step evolves one generation.
func (ga *Genetic) Step() (Event, bool) {
	if ga.finished {
		return ga.last, true
	}
	ga.generation++

	elite := min(ga.cfg.EliteCount(), len(ga.population))
	next := make([]Individual, 0, ga.cfg.Population)
	next = append(next, ga.population[:elite]...)
	for len(next) < ga.cfg.Population {
		next = append(next, ga.crossover(ga.tournament(), ga.tournament()))
	}
	mutations := 0
	for i := elite; i < len(next); i++ {
		if ga.mutate(&next[i]) {
			mutations++
		}
	}
	ga.population = next
	ga.evaluate()

	improved := ga.population[0].Fitness < ga.best.Fitness
	if improved {
		ga.best = ga.population[0]
	}
	ga.path = append(ga.path, ga.population[0].Cell)

	avg, diversity := ga.Stats()
	cells := make([]grid.Cell, len(ga.population))
	for i, ind := range ga.population {
		cells[i] = ind.Cell
	}
	ev := Event{
		Iteration:  ga.generation,
		Phase:      PhaseGeneration,
		Current:    ga.population[0].Cell,
		Best:       ga.best.Cell,
		Value:      ga.population[0].Fitness,
		BestValue:  ga.best.Fitness,
		Accepted:   improved,
		Note:       fmt.Sprintf("%d mutations", mutations),
		AvgFitness: avg,
		Diversity:  diversity,
		Population: cells,
	}
	if ga.generation >= ga.cfg.Generations {
		ga.finished = true
		ga.last = ev
		return ev, true
	}
	return ev, false
}

// Result reports the fittest individual of all generations.
func (ga *Genetic) Result() Result {
	return Result{
		Algorithm:  AlgGenetic,
		Start:      ga.start.Cell,
		StartValue: ga.start.Fitness,
		Best:       ga.best.Cell,
		BestValue:  ga.best.Fitness,
		Final:      ga.population[0].Cell,
		Iterations: ga.generation,
		Path:       append([]grid.Cell(nil), ga.path...),
	}
}
