package reference

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// DistancePair holds the precomputed geodesic and road distances between a
// sending ICU and a receiving hospital.
type DistancePair struct {
	GeodesicKM float64
	RoadKM     float64
}

type siteKey struct {
	From string
	To   string
}

// DistanceMatrix is the normalized (from, to) -> distances relation. Lookups
// never coerce a missing pair to zero; callers get a MissingReferenceError.
type DistanceMatrix struct {
	entries map[siteKey]DistancePair
}

func normalizeSite(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// DistanceEntry is one row of the normalized relation, for building a matrix
// without going through a file.
type DistanceEntry struct {
	From       string
	To         string
	GeodesicKM float64
	RoadKM     float64
}

func NewDistanceMatrix(entries []DistanceEntry) *DistanceMatrix {
	m := &DistanceMatrix{entries: make(map[siteKey]DistancePair, len(entries))}
	for _, e := range entries {
		key := siteKey{From: normalizeSite(e.From), To: normalizeSite(e.To)}
		m.entries[key] = DistancePair{GeodesicKM: e.GeodesicKM, RoadKM: e.RoadKM}
	}
	return m
}

// LoadDistanceMatrix reads the normalized relation from a CSV with columns
// from, to, geodesic_km, road_km.
func LoadDistanceMatrix(path string) (*DistanceMatrix, error) {
	fid, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("read distance matrix: %w", err)
	}
	defer fid.Close()

	cr := csv.NewReader(fid)
	cr.TrimLeadingSpace = true
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read distance matrix header: %w", err)
	}
	col := map[string]int{}
	for i, name := range header {
		col[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{"from", "to", "geodesic_km", "road_km"} {
		if _, ok := col[required]; !ok {
			return nil, fmt.Errorf("distance matrix %s: missing column %q", path, required)
		}
	}

	m := &DistanceMatrix{entries: make(map[siteKey]DistancePair)}
	line := 1
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read distance matrix: %w", err)
		}
		line++
		geodesic, err := strconv.ParseFloat(record[col["geodesic_km"]], 64)
		if err != nil {
			return nil, fmt.Errorf("distance matrix %s line %d: bad geodesic_km: %w", path, line, err)
		}
		road, err := strconv.ParseFloat(record[col["road_km"]], 64)
		if err != nil {
			return nil, fmt.Errorf("distance matrix %s line %d: bad road_km: %w", path, line, err)
		}
		key := siteKey{From: normalizeSite(record[col["from"]]), To: normalizeSite(record[col["to"]])}
		m.entries[key] = DistancePair{GeodesicKM: geodesic, RoadKM: road}
	}
	if len(m.entries) == 0 {
		return nil, fmt.Errorf("distance matrix %s: no entries", path)
	}
	return m, nil
}

// Lookup returns the distances for a sending/receiving pair. A missing pair
// is a data error for the affected record, never a zero fill.
func (m *DistanceMatrix) Lookup(from, to string) (DistancePair, error) {
	key := siteKey{From: normalizeSite(from), To: normalizeSite(to)}
	pair, ok := m.entries[key]
	if !ok {
		return DistancePair{}, MissingReferenceError{Kind: "distance", Key: key.From + " -> " + key.To}
	}
	return pair, nil
}

// Pairs returns the number of entries, used by reference validation.
func (m *DistanceMatrix) Pairs() int {
	return len(m.entries)
}

// Sites returns the distinct site keys appearing on either side of the
// relation, used to cross-check the hospital catalog.
func (m *DistanceMatrix) Sites() []string {
	seen := map[string]struct{}{}
	var sites []string
	for key := range m.entries {
		for _, s := range []string{key.From, key.To} {
			if _, ok := seen[s]; !ok {
				seen[s] = struct{}{}
				sites = append(sites, s)
			}
		}
	}
	return sites
}
