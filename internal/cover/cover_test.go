package cover

import (
	"bytes"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDistance_SamePointIsZero(t *testing.T) {
	for _, m := range Metrics {
		assert.InDelta(t, 0, Distance(m, Center, Center), 1e-9, string(m))
	}
}

func TestDistance_Symmetric(t *testing.T) {
	a := Center
	b := Site{Lat: 21.9123, Lon: -102.3145}
	for _, m := range Metrics {
		assert.InDelta(t, Distance(m, a, b), Distance(m, b, a), 1e-6, string(m))
	}
}

func TestDistance_MetricOrdering(t *testing.T) {
	a := Center
	b := Site{Lat: 21.9123, Lon: -102.3145}
	h := Distance(Haversine, a, b)
	e := Distance(Euclidean, a, b)
	m := Distance(Manhattan, a, b)

	assert.InDelta(t, 3800, h, 300)
	assert.GreaterOrEqual(t, m, e)
	assert.InEpsilon(t, h, e, 0.02, "planar approximation at city scale")
}

func TestDistance_LatitudeOnly(t *testing.T) {
	b := Site{Lat: Center.Lat + 0.01, Lon: Center.Lon}
	assert.InDelta(t, 1112, Distance(Haversine, Center, b), 2)
	assert.InDelta(t, 1113.2, Distance(Euclidean, Center, b), 0.1)
	assert.InDelta(t, Distance(Euclidean, Center, b), Distance(Manhattan, Center, b), 1e-9)
}

func TestConfigValidate(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())

	bad := []Config{
		{Facilities: 0, Radius: 1000, Metric: Haversine},
		{Facilities: 1, Radius: 0, Metric: Haversine},
		{Facilities: 1, Radius: 1000, Metric: "chebyshev"},
	}
	for _, c := range bad {
		assert.Error(t, c.Validate(), "%+v", c)
	}
}

// Two groups near the equator, where 0.001 degrees is about 111 m.
func twoGroups() []Site {
	return []Site{
		{0, 0}, {0.001, 0}, {0.002, 0}, {0.003, 0},
		{0, 1}, {0.001, 1},
	}
}

func TestGreedy_TakesLargestGroupFirst(t *testing.T) {
	cfg := Config{Facilities: 3, Radius: 400, Metric: Euclidean}
	got, err := Greedy(rand.New(rand.NewSource(1)), twoGroups(), cfg)
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, 0, got[0].Index, "first of the tied candidates wins")
	assert.Equal(t, 4, got[0].Gain)
	assert.Equal(t, 4, got[1].Index)
	assert.Equal(t, 2, got[1].Gain)
	assert.Equal(t, 0, got[2].Gain, "nothing left to cover")

	rep := Coverage(twoGroups(), Sites(got), cfg)
	assert.Equal(t, Report{Covered: 6, Total: 6, Percent: 100}, rep)
}

func TestGreedy_GainsSumToCoverage(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	demand := DemoSites(rng, Center, 200)
	for _, m := range Metrics {
		cfg := Config{Facilities: 4, Radius: 800, Metric: m}
		got, err := Greedy(rng, demand, cfg)
		require.NoError(t, err)

		sum := 0
		for i, p := range got {
			sum += p.Gain
			if i > 0 {
				assert.LessOrEqual(t, p.Gain, got[i-1].Gain, "%s: gains never increase", m)
			}
		}
		assert.Equal(t, sum, Coverage(demand, Sites(got), cfg).Covered, string(m))
	}
}

func TestGreedy_Errors(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	_, err := Greedy(rng, nil, DefaultConfig())
	require.ErrorIs(t, err, ErrNoDemand)

	_, err = Greedy(rng, twoGroups(), Config{Facilities: 2, Radius: -1, Metric: Haversine})
	require.Error(t, err)
}

func TestCoverage_Empty(t *testing.T) {
	rep := Coverage(nil, []Site{Center}, DefaultConfig())
	assert.Equal(t, Report{}, rep)
}

func TestReadCSV(t *testing.T) {
	in := "FECHA,LATITUD,LONGITUD\n2019-01-02, 21.88 ,-102.29\n2019-01-03,21.90,-102.31\n"
	sites, err := ReadCSV(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, []Site{{21.88, -102.29}, {21.90, -102.31}}, sites)

	sites, err = ReadCSV(strings.NewReader("\ufefflon,lat\n-102.29,21.88\n"))
	require.NoError(t, err)
	assert.Equal(t, []Site{{21.88, -102.29}}, sites)
}

func TestReadCSV_Errors(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"no coordinate columns", "x,y\n1,2\n"},
		{"bad latitude", "lat,lon\nnorth,-102\n"},
		{"short row", "id,lat,lon\n1\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadCSV(strings.NewReader(tt.in))
			require.Error(t, err)
		})
	}

	_, err := ReadCSV(strings.NewReader("x,y\n"))
	require.ErrorIs(t, err, ErrNoCoordinates)
	_, err = ReadCSV(strings.NewReader(""))
	require.ErrorIs(t, err, ErrNoDemand)
	_, err = ReadCSV(strings.NewReader("lat,lon\n"))
	require.ErrorIs(t, err, ErrNoDemand)
}

func TestWriteCSV_ReadableByReadCSV(t *testing.T) {
	want := []Site{{21.8853, -102.2916}, {21.9, -102.31}}
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, want))
	assert.True(t, strings.HasPrefix(buf.String(), "LATITUD,LONGITUD\n"))

	got, err := ReadCSV(&buf)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}
