package reference

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// The distance data is historically maintained as two wide matrices (one row
// per sending ICU, one column per receiving hospital). These are normalized
// into the (from, to) relation at load time so all lookups go through the
// same keyed join.

func readWide(path string) (map[siteKey]float64, error) {
	fid, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("read wide matrix: %w", err)
	}
	defer fid.Close()

	cr := csv.NewReader(fid)
	cr.TrimLeadingSpace = true
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read wide matrix header: %w", err)
	}
	if len(header) < 2 {
		return nil, fmt.Errorf("wide matrix %s: expected site columns after the row label", path)
	}
	receiving := make([]string, len(header))
	for i := 1; i < len(header); i++ {
		receiving[i] = normalizeSite(header[i])
	}

	cells := make(map[siteKey]float64)
	line := 1
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read wide matrix: %w", err)
		}
		line++
		from := normalizeSite(record[0])
		for i := 1; i < len(record) && i < len(header); i++ {
			cell := strings.TrimSpace(record[i])
			if cell == "" || cell == "NA" {
				continue
			}
			km, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return nil, fmt.Errorf("wide matrix %s line %d col %d: %w", path, line, i+1, err)
			}
			cells[siteKey{From: from, To: receiving[i]}] = km
		}
	}
	return cells, nil
}

// LoadWideDistanceMatrices normalizes a geodesic and a road wide matrix into
// one DistanceMatrix. Pairs present in only one of the two inputs are
// rejected up front: a half-known distance would otherwise surface much later
// as a per-record error.
func LoadWideDistanceMatrices(geodesicPath, roadPath string) (*DistanceMatrix, error) {
	geodesic, err := readWide(geodesicPath)
	if err != nil {
		return nil, err
	}
	road, err := readWide(roadPath)
	if err != nil {
		return nil, err
	}

	m := &DistanceMatrix{entries: make(map[siteKey]DistancePair, len(geodesic))}
	for key, gkm := range geodesic {
		rkm, ok := road[key]
		if !ok {
			return nil, fmt.Errorf("road matrix missing pair %s -> %s present in geodesic matrix", key.From, key.To)
		}
		m.entries[key] = DistancePair{GeodesicKM: gkm, RoadKM: rkm}
	}
	for key := range road {
		if _, ok := geodesic[key]; !ok {
			return nil, fmt.Errorf("geodesic matrix missing pair %s -> %s present in road matrix", key.From, key.To)
		}
	}
	if len(m.entries) == 0 {
		return nil, fmt.Errorf("wide matrices produced no distance pairs")
	}
	return m, nil
}
