package transport

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

const (
	ModalityHEMS  = "HEMS"
	ModalityOther = "Other"
)

// FlightRecord is one rotary-wing movement from the flight-tracking archive.
// Records are only ever tested for proximity to a transfer's discharge event.
type FlightRecord struct {
	FlightID        string
	Registration    string
	DepartureICAO   string
	DepartureAt     time.Time
	OriginSite      string
	DestinationSite string
}

// LoadFlightsCSV reads the flight archive. Rows with unparsable departure
// times are skipped with a count returned to the caller.
func LoadFlightsCSV(path string) ([]FlightRecord, int, error) {
	fid, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("read flight archive: %w", err)
	}
	defer fid.Close()

	cr := csv.NewReader(fid)
	cr.TrimLeadingSpace = true
	header, err := cr.Read()
	if err != nil {
		return nil, 0, fmt.Errorf("read flight archive header: %w", err)
	}
	col := map[string]int{}
	for i, name := range header {
		col[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{"flight_id", "departure_at", "origin_site", "destination_site"} {
		if _, ok := col[required]; !ok {
			return nil, 0, fmt.Errorf("flight archive %s: missing column %q", path, required)
		}
	}

	var flights []FlightRecord
	malformed := 0
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, 0, fmt.Errorf("read flight archive: %w", err)
		}
		departedAt, err := dateparse.ParseIn(record[col["departure_at"]], time.UTC)
		if err != nil {
			malformed++
			continue
		}
		fr := FlightRecord{
			FlightID:        record[col["flight_id"]],
			DepartureAt:     departedAt.UTC(),
			OriginSite:      record[col["origin_site"]],
			DestinationSite: record[col["destination_site"]],
		}
		if i, ok := col["registration"]; ok {
			fr.Registration = record[i]
		}
		if i, ok := col["departure_icao"]; ok {
			fr.DepartureICAO = record[i]
		}
		flights = append(flights, fr)
	}
	return flights, malformed, nil
}
