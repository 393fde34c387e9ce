package weather

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"gopkg.in/guregu/null.v3"
)

// Report is one METAR observation. Ceiling and visibility are nullable:
// stations omit fields they did not measure, and a missing field must stay
// missing instead of defaulting.
type Report struct {
	StationID   string
	Latitude    float64
	Longitude   float64
	ObservedAt  time.Time
	CeilingFt   null.Float
	VisibilityM null.Float
}

func parseNullFloat(raw string) null.Float {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.EqualFold(raw, "NA") || raw == "M" {
		return null.Float{}
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return null.Float{}
	}
	return null.FloatFrom(v)
}

// LoadReportsCSV reads the METAR archive. Each row carries its station's
// coordinates, as in ASOS-style dumps. Rows with unparsable observation
// times are skipped with a count returned to the caller.
func LoadReportsCSV(path string) ([]Report, int, error) {
	fid, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("read weather archive: %w", err)
	}
	defer fid.Close()

	cr := csv.NewReader(fid)
	cr.TrimLeadingSpace = true
	header, err := cr.Read()
	if err != nil {
		return nil, 0, fmt.Errorf("read weather archive header: %w", err)
	}
	col := map[string]int{}
	for i, name := range header {
		col[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{"station_id", "latitude", "longitude", "observed_at", "ceiling_ft", "visibility_m"} {
		if _, ok := col[required]; !ok {
			return nil, 0, fmt.Errorf("weather archive %s: missing column %q", path, required)
		}
	}

	var reports []Report
	malformed := 0
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, 0, fmt.Errorf("read weather archive: %w", err)
		}
		observedAt, err := dateparse.ParseIn(record[col["observed_at"]], time.UTC)
		if err != nil {
			malformed++
			continue
		}
		lat, latErr := strconv.ParseFloat(record[col["latitude"]], 64)
		lon, lonErr := strconv.ParseFloat(record[col["longitude"]], 64)
		if latErr != nil || lonErr != nil {
			malformed++
			continue
		}
		reports = append(reports, Report{
			StationID:   record[col["station_id"]],
			Latitude:    lat,
			Longitude:   lon,
			ObservedAt:  observedAt.UTC(),
			CeilingFt:   parseNullFloat(record[col["ceiling_ft"]]),
			VisibilityM: parseNullFloat(record[col["visibility_m"]]),
		})
	}
	return reports, malformed, nil
}
