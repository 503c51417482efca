package cover

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"strconv"
	"strings"
)

// Center is the default demo location (Aguascalientes, MX).
var Center = Site{Lat: 21.8853, Lon: -102.2916}

// DemoSites scatters n incidents around center: most fall into a few
// hotspots about a kilometer wide, the rest are spread over the city.
func DemoSites(rng *rand.Rand, center Site, n int) []Site {
	const degPerKm = 1 / 111.32
	hotspots := make([]Site, 4)
	for i := range hotspots {
		hotspots[i] = Site{
			Lat: center.Lat + (rng.Float64()*2-1)*4*degPerKm,
			Lon: center.Lon + (rng.Float64()*2-1)*4*degPerKm,
		}
	}
	sites := make([]Site, n)
	for i := range sites {
		if rng.Float64() < 0.75 {
			h := hotspots[rng.Intn(len(hotspots))]
			sites[i] = Site{
				Lat: h.Lat + rng.NormFloat64()*0.4*degPerKm,
				Lon: h.Lon + rng.NormFloat64()*0.4*degPerKm,
			}
			continue
		}
		sites[i] = Site{
			Lat: center.Lat + (rng.Float64()*2-1)*6*degPerKm,
			Lon: center.Lon + (rng.Float64()*2-1)*6*degPerKm,
		}
	}
	return sites
}

// ErrNoCoordinates is returned when a CSV header has no latitude or
// longitude column.
var ErrNoCoordinates = errors.New("missing latitude/longitude columns")

var (
	latColumns = []string{"lat", "latitude", "latitud"}
	lonColumns = []string{"lon", "lng", "longitude", "longitud"}
)

// ReadCSV reads sites from a CSV file with a header row. Column names are
// matched case-insensitively; other columns are ignored.
func ReadCSV(r io.Reader) ([]Site, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if err == io.EOF {
		return nil, ErrNoDemand
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	latIdx, lonIdx := column(header, latColumns), column(header, lonColumns)
	if latIdx < 0 || lonIdx < 0 {
		return nil, fmt.Errorf("%w in header %v", ErrNoCoordinates, header)
	}

	var sites []Site
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if latIdx >= len(rec) || lonIdx >= len(rec) {
			return nil, fmt.Errorf("line %d: expected at least %d fields, got %d", line, max(latIdx, lonIdx)+1, len(rec))
		}
		lat, err := strconv.ParseFloat(strings.TrimSpace(rec[latIdx]), 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: latitude: %w", line, err)
		}
		lon, err := strconv.ParseFloat(strings.TrimSpace(rec[lonIdx]), 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: longitude: %w", line, err)
		}
		sites = append(sites, Site{Lat: lat, Lon: lon})
	}
	if len(sites) == 0 {
		return nil, ErrNoDemand
	}
	return sites, nil
}

func column(header []string, names []string) int {
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		for _, n := range names {
			if h == n {
				return i
			}
		}
	}
	return -1
}

// WriteCSV writes sites with a LATITUD,LONGITUD header.
func WriteCSV(w io.Writer, sites []Site) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"LATITUD", "LONGITUD"}); err != nil {
		return err
	}
	for _, s := range sites {
		rec := []string{
			strconv.FormatFloat(s.Lat, 'f', -1, 64),
			strconv.FormatFloat(s.Lon, 'f', -1, 64),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
