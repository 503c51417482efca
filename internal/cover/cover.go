// Package cover places facilities over demand points with the greedy
// maximal covering heuristic.
package cover

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
)

// Site is a point in degrees.
type Site struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Metric names a distance function. All metrics return meters.
type Metric string

const (
	Haversine Metric = "haversine"
	Euclidean Metric = "euclidean"
	Manhattan Metric = "manhattan"
)

// Metrics lists every supported distance.
var Metrics = []Metric{Haversine, Euclidean, Manhattan}

// ParseMetric accepts a metric name.
func ParseMetric(s string) (Metric, error) {
	for _, m := range Metrics {
		if string(m) == s {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown metric %q (use haversine, euclidean or manhattan)", s)
}

const (
	earthRadius     = 6371000.0
	metersPerDegree = 111320.0
)

// Distance returns the distance between a and b in meters.
//
// Euclidean and Manhattan project degrees onto a local plane scaled at the
// mean latitude, which is close to Haversine below a few kilometers.
func Distance(m Metric, a, b Site) float64 {
	switch m {
	case Euclidean:
		dx, dy := planar(a, b)
		return math.Hypot(dx, dy)
	case Manhattan:
		dx, dy := planar(a, b)
		return math.Abs(dx) + math.Abs(dy)
	default:
		lat1 := a.Lat * math.Pi / 180
		lat2 := b.Lat * math.Pi / 180
		dLat := (b.Lat - a.Lat) * math.Pi / 180
		dLon := (b.Lon - a.Lon) * math.Pi / 180
		h := math.Sin(dLat/2)*math.Sin(dLat/2) +
			math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
		return earthRadius * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	}
}

func planar(a, b Site) (dx, dy float64) {
	meanLat := (a.Lat + b.Lat) / 2 * math.Pi / 180
	dx = (b.Lat - a.Lat) * metersPerDegree
	dy = (b.Lon - a.Lon) * metersPerDegree * math.Cos(meanLat)
	return dx, dy
}

// ErrNoDemand is returned when there is nothing to cover.
var ErrNoDemand = errors.New("no demand points")

// Config holds the placement parameters.
type Config struct {
	Facilities int     `json:"facilities"`
	Radius     float64 `json:"radius"` // meters
	Metric     Metric  `json:"metric"`
}

// DefaultConfig places five facilities with a one kilometer radius.
func DefaultConfig() Config {
	return Config{Facilities: 5, Radius: 1000, Metric: Haversine}
}

func (c Config) Validate() error {
	if c.Facilities < 1 {
		return fmt.Errorf("facilities must be at least 1, got %d", c.Facilities)
	}
	if c.Radius <= 0 {
		return fmt.Errorf("radius must be positive, got %g", c.Radius)
	}
	if _, err := ParseMetric(string(c.Metric)); err != nil {
		return err
	}
	return nil
}

// Placement is one chosen facility and the demand it newly covered.
type Placement struct {
	Site  Site `json:"site"`
	Index int  `json:"index"` // demand point used as the location
	Gain  int  `json:"gain"`
}

// Greedy places cfg.Facilities facilities on demand points, each time taking
// the location that covers the most still uncovered points. Already covered
// points are not considered as locations. Once everything is covered the
// remaining facilities land on random demand points with zero gain.
func Greedy(rng *rand.Rand, demand []Site, cfg Config) ([]Placement, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(demand) == 0 {
		return nil, ErrNoDemand
	}

	covered := make([]bool, len(demand))
	placements := make([]Placement, 0, cfg.Facilities)
	for f := 0; f < cfg.Facilities; f++ {
		best, bestGain := -1, 0
		for i, c := range demand {
			if covered[i] {
				continue
			}
			gain := 0
			for j, d := range demand {
				if !covered[j] && Distance(cfg.Metric, c, d) <= cfg.Radius {
					gain++
				}
			}
			if gain > bestGain {
				best, bestGain = i, gain
			}
		}
		if best < 0 {
			best = rng.Intn(len(demand))
		}
		for j, d := range demand {
			if Distance(cfg.Metric, demand[best], d) <= cfg.Radius {
				covered[j] = true
			}
		}
		placements = append(placements, Placement{Site: demand[best], Index: best, Gain: bestGain})
	}
	return placements, nil
}

// Report is the coverage of a set of facilities.
type Report struct {
	Covered int     `json:"covered"`
	Total   int     `json:"total"`
	Percent float64 `json:"percent"`
}

// Coverage counts the demand points within radius of at least one facility.
func Coverage(demand, facilities []Site, cfg Config) Report {
	r := Report{Total: len(demand)}
	for _, d := range demand {
		for _, f := range facilities {
			if Distance(cfg.Metric, f, d) <= cfg.Radius {
				r.Covered++
				break
			}
		}
	}
	if r.Total > 0 {
		r.Percent = 100 * float64(r.Covered) / float64(r.Total)
	}
	return r
}

// Sites extracts the locations of placements.
func Sites(ps []Placement) []Site {
	out := make([]Site, len(ps))
	for i, p := range ps {
		out[i] = p.Site
	}
	return out
}
