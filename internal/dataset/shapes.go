package dataset

import (
	"fmt"
	"math"
	"math/rand"
	"slices"
)

// Plane extent used by the clustering shapes.
const (
	PlaneWidth   = 600.0
	PlaneHeight  = 450.0
	planePadding = 50.0
)

// Shape names accepted by Shape.
const (
	ShapeBlobs   = "blobs"
	ShapeCircles = "circles"
	ShapeMoons   = "moons"
	ShapeUniform = "uniform"
)

// Shape generates n points of the named clustering shape. Unknown names
// return an error.
func Shape(rng *rand.Rand, name string, n int) ([]Point2, error) {
	switch name {
	case ShapeBlobs:
		return Blobs(rng, n), nil
	case ShapeCircles:
		return Circles(rng, n), nil
	case ShapeMoons:
		return Moons(rng, n), nil
	case ShapeUniform, "random":
		return Uniform(rng, n), nil
	}
	return nil, fmt.Errorf("unknown shape %q", name)
}

// Blobs places points round-robin around three fixed centers with σ=50.
func Blobs(rng *rand.Rand, n int) []Point2 {
	centers := []Point2{{150, 120}, {450, 150}, {300, 350}}
	pts := make([]Point2, n)
	for i := range pts {
		c := centers[i%len(centers)]
		pts[i] = Point2{X: Normal(rng, c.X, 50), Y: Normal(rng, c.Y, 50)}
	}
	return pts
}

// Circles draws two concentric rings of radius 60 and 150 with radial σ=15.
func Circles(rng *rand.Rand, n int) []Point2 {
	cx, cy := PlaneWidth/2, PlaneHeight/2
	pts := make([]Point2, 0, n)
	for _, radius := range []float64{60, 150} {
		for i := 0; i < n/2; i++ {
			angle := rng.Float64() * 2 * math.Pi
			r := Normal(rng, radius, 15)
			pts = append(pts, Point2{X: cx + r*math.Cos(angle), Y: cy + r*math.Sin(angle)})
		}
	}
	return pts
}

// Moons draws two interleaved half rings of radius 120 with radial σ=15.
func Moons(rng *rand.Rand, n int) []Point2 {
	cx, cy := PlaneWidth/2, PlaneHeight/2
	pts := make([]Point2, 0, n)
	for i := 0; i < n/2; i++ {
		angle := math.Pi * rng.Float64()
		r := Normal(rng, 120, 15)
		pts = append(pts, Point2{X: cx - 50 + r*math.Cos(angle), Y: cy - 30 + r*math.Sin(angle)})
	}
	for i := 0; i < n/2; i++ {
		angle := math.Pi + math.Pi*rng.Float64()
		r := Normal(rng, 120, 15)
		pts = append(pts, Point2{X: cx + 50 + r*math.Cos(angle), Y: cy + 30 + r*math.Sin(angle)})
	}
	return pts
}

// Uniform scatters points over the padded plane.
func Uniform(rng *rand.Rand, n int) []Point2 {
	pts := make([]Point2, n)
	for i := range pts {
		pts[i] = Point2{
			X: planePadding + rng.Float64()*(PlaneWidth-2*planePadding),
			Y: planePadding + rng.Float64()*(PlaneHeight-2*planePadding),
		}
	}
	return pts
}

// LogisticShape generates the 0/1 labelled sets of the sigmoid boundary demo:
// "separable", "overlap" or "diagonal".
func LogisticShape(rng *rand.Rand, name string, n int) ([]LabeledPoint, error) {
	pts := make([]LabeledPoint, 0, n)
	switch name {
	case "separable":
		for i := 0; i < n/2; i++ {
			pts = append(pts, LabeledPoint{X1: -2.5 + rng.Float64()*2, X2: -2.5 + rng.Float64()*2, Label: 0})
		}
		for i := 0; i < n/2; i++ {
			pts = append(pts, LabeledPoint{X1: 0.5 + rng.Float64()*2, X2: 0.5 + rng.Float64()*2, Label: 1})
		}
	case "overlap":
		for i := 0; i < n/2; i++ {
			pts = append(pts, LabeledPoint{X1: -2 + rng.Float64()*3, X2: -2 + rng.Float64()*3, Label: 0})
		}
		for i := 0; i < n/2; i++ {
			pts = append(pts, LabeledPoint{X1: -1 + rng.Float64()*3, X2: -1 + rng.Float64()*3, Label: 1})
		}
	case "diagonal":
		for i := 0; i < n; i++ {
			x1 := (rng.Float64() - 0.5) * 6
			x2 := (rng.Float64() - 0.5) * 6
			label := 0
			if x1+x2+(rng.Float64()-0.5)*1.5 > 0 {
				label = 1
			}
			pts = append(pts, LabeledPoint{X1: x1, X2: x2, Label: label})
		}
	default:
		return nil, fmt.Errorf("unknown logistic shape %q", name)
	}
	return pts, nil
}

// MarginPresets are the fixed ±1 data sets of the margin comparison demos.
var MarginPresets = map[string][]LabeledPoint{
	"separable": {
		{0.15, 0.2, -1}, {0.2, 0.4, -1}, {0.25, 0.15, -1}, {0.3, 0.35, -1}, {0.18, 0.55, -1},
		{0.7, 0.65, 1}, {0.75, 0.5, 1}, {0.8, 0.8, 1}, {0.85, 0.6, 1}, {0.72, 0.85, 1},
	},
	"overlap": {
		{0.25, 0.3, -1}, {0.3, 0.5, -1}, {0.35, 0.25, -1}, {0.4, 0.45, -1}, {0.45, 0.55, -1},
		{0.5, 0.5, 1}, {0.55, 0.6, 1}, {0.6, 0.55, 1}, {0.65, 0.7, 1}, {0.7, 0.65, 1},
	},
	"outlier": {
		{0.15, 0.2, -1}, {0.2, 0.4, -1}, {0.25, 0.15, -1}, {0.3, 0.35, -1}, {0.75, 0.7, -1},
		{0.65, 0.6, 1}, {0.7, 0.5, 1}, {0.75, 0.8, 1}, {0.8, 0.65, 1}, {0.85, 0.75, 1},
	},
	"diagonal": {
		{0.1, 0.15, -1}, {0.2, 0.25, -1}, {0.3, 0.2, -1}, {0.25, 0.1, -1}, {0.15, 0.3, -1},
		{0.7, 0.85, 1}, {0.75, 0.9, 1}, {0.8, 0.75, 1}, {0.85, 0.8, 1}, {0.9, 0.7, 1},
	},
	"clusters": {
		{0.2, 0.25, -1}, {0.25, 0.3, -1}, {0.3, 0.2, -1}, {0.22, 0.18, -1},
		{0.15, 0.75, -1}, {0.2, 0.8, -1}, {0.25, 0.7, -1},
		{0.7, 0.5, 1}, {0.75, 0.55, 1}, {0.8, 0.45, 1}, {0.72, 0.6, 1}, {0.78, 0.52, 1},
	},
}

// MarginPreset returns a copy of the named preset.
func MarginPreset(name string) ([]LabeledPoint, error) {
	pts, ok := MarginPresets[name]
	if !ok {
		return nil, fmt.Errorf("unknown preset %q", name)
	}
	return slices.Clone(pts), nil
}

// ResidualScenario names the error structures of the regression assumptions demo.
type ResidualScenario string

const (
	ScenarioIdeal           ResidualScenario = "ideal"
	ScenarioNonNormal       ResidualScenario = "non-normal"
	ScenarioHeteroscedastic ResidualScenario = "heteroscedastic"
	ScenarioAutocorrelated  ResidualScenario = "autocorrelated"
	ScenarioNonlinear       ResidualScenario = "nonlinear"
)

// AssumptionData draws n points on x in [0, 10) from y = 2 + 0.5x + e, where
// the error e violates one regression assumption with the given severity in [0, 1].
func AssumptionData(rng *rand.Rand, n int, scenario ResidualScenario, severity float64) []Point {
	severity = math.Max(0, math.Min(1, severity))
	pts := make([]Point, n)
	errs := make([]float64, n)

	for i := 0; i < n; i++ {
		x := float64(i) / float64(n) * 10
		var e float64

		switch scenario {
		case ScenarioNonNormal:
			switch {
			case severity < 0.3:
				e = (math.Pow(rng.Float64(), 0.5+severity*2) - 0.5) * 4
			case severity < 0.7:
				if rng.Float64() < 0.5 {
					e = Normal(rng, -2, 0.6)
				} else {
					e = Normal(rng, 2, 0.6)
				}
			default:
				u := rng.Float64()
				switch {
				case u < 0.6:
					e = Normal(rng, 0, 0.3)
				case u < 0.9:
					e = 2 + math.Abs(Normal(rng, 0, 2))
				default:
					e = 5 + math.Abs(Normal(rng, 0, 1))
				}
			}
		case ScenarioHeteroscedastic:
			e = Normal(rng, 0, math.Sqrt(0.3+x*0.8*severity))
		case ScenarioAutocorrelated:
			if i == 0 {
				e = Normal(rng, 0, 1)
			} else {
				rho := 0.3 + 0.65*severity
				e = rho*errs[i-1] + Normal(rng, 0, math.Sqrt(1-rho*rho))
			}
		case ScenarioNonlinear:
			e = Normal(rng, 0, 0.6) + 0.15*severity*(x-5)*(x-5) - 3.5*severity
		default:
			e = Normal(rng, 0, 1)
		}

		errs[i] = e
		yt := 2 + 0.5*x
		pts[i] = Point{X: x, Y: yt + e, YTrue: yt}
	}
	return pts
}

// KNNClasses is the three-cluster sample of the k-NN demo: 15 points of
// class 0 at the top left, 15 of class 1 at the bottom right and 12 of
// class 2 in the center, in plane coordinates.
func KNNClasses(rng *rand.Rand) []LabeledPoint {
	pts := make([]LabeledPoint, 0, 42)
	for i := 0; i < 15; i++ {
		pts = append(pts, LabeledPoint{X1: 100 + rng.Float64()*150, X2: 80 + rng.Float64()*120, Label: 0})
	}
	for i := 0; i < 15; i++ {
		pts = append(pts, LabeledPoint{X1: 350 + rng.Float64()*150, X2: 280 + rng.Float64()*120, Label: 1})
	}
	for i := 0; i < 12; i++ {
		pts = append(pts, LabeledPoint{X1: 250 + rng.Float64()*100, X2: 180 + rng.Float64()*100, Label: 2})
	}
	return pts
}

// House is a listing of the SF vs NY rule-learning set.
type House struct {
	Elevation    float64 `json:"elevation"`
	PricePerSqft float64 `json:"price_per_sqft"`
	InSF         bool    `json:"in_sf"`
}

// Attribute ranges of the housing set.
const (
	MaxElevation    = 250.0
	MaxPricePerSqft = 5000.0
)

// Housing generates n listings, roughly half in each city. San Francisco
// homes sit on hills and are pricier; New York homes are near sea level with
// a long price tail in Manhattan.
func Housing(rng *rand.Rand, n int) []House {
	houses := make([]House, n)
	for i := range houses {
		if i%2 == 0 {
			houses[i] = House{
				Elevation:    clamp(Normal(rng, 70, 45), 0, MaxElevation),
				PricePerSqft: clamp(Normal(rng, 1100, 350), 200, MaxPricePerSqft),
				InSF:         true,
			}
			continue
		}
		price := Normal(rng, 900, 300)
		if rng.Float64() < 0.3 {
			price = Normal(rng, 2200, 800)
		}
		houses[i] = House{
			Elevation:    clamp(math.Abs(Normal(rng, 10, 12)), 0, MaxElevation),
			PricePerSqft: clamp(price, 200, MaxPricePerSqft),
		}
	}
	return Shuffle(rng, houses)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
