package weather

import (
	"sort"
	"time"

	"github.com/golang/geo/s2"
	"gopkg.in/guregu/null.v3"
)

const earthRadiusKM = 6371.0

// Minima are the HEMS operating thresholds evaluated against the nearest
// report. The values are operator policy, supplied by configuration.
type Minima struct {
	CeilingFt   float64
	VisibilityM float64
}

type station struct {
	id     string
	latLng s2.LatLng
}

// Service answers whether weather minima were met near a sending hospital at
// a discharge instant. Reports are indexed per station and sorted by time.
type Service struct {
	byStation map[string][]Report
	stations  []station
	minima    Minima
	maxOffset time.Duration
}

func NewService(reports []Report, minima Minima, maxOffset time.Duration) *Service {
	if maxOffset <= 0 {
		maxOffset = 90 * time.Minute
	}
	svc := &Service{
		byStation: make(map[string][]Report),
		minima:    minima,
		maxOffset: maxOffset,
	}
	seen := map[string]struct{}{}
	for _, r := range reports {
		svc.byStation[r.StationID] = append(svc.byStation[r.StationID], r)
		if _, ok := seen[r.StationID]; !ok {
			seen[r.StationID] = struct{}{}
			svc.stations = append(svc.stations, station{
				id:     r.StationID,
				latLng: s2.LatLngFromDegrees(r.Latitude, r.Longitude),
			})
		}
	}
	for id := range svc.byStation {
		rs := svc.byStation[id]
		sort.SliceStable(rs, func(i, j int) bool { return rs[i].ObservedAt.Before(rs[j].ObservedAt) })
	}
	// stable station order makes equal-distance ties deterministic
	sort.SliceStable(svc.stations, func(i, j int) bool { return svc.stations[i].id < svc.stations[j].id })
	return svc
}

// NearestStation returns the reporting station closest to the given
// coordinates by great-circle distance, with the distance in km.
func (s *Service) NearestStation(lat, lon float64) (string, float64, bool) {
	if len(s.stations) == 0 {
		return "", 0, false
	}
	target := s2.LatLngFromDegrees(lat, lon)
	bestID := ""
	bestKM := 0.0
	for i, st := range s.stations {
		km := st.latLng.Distance(target).Radians() * earthRadiusKM
		if i == 0 || km < bestKM {
			bestID = st.id
			bestKM = km
		}
	}
	return bestID, bestKM, true
}

func nearestReport(reports []Report, at time.Time) (Report, bool) {
	if len(reports) == 0 {
		return Report{}, false
	}
	i := sort.Search(len(reports), func(i int) bool {
		return !reports[i].ObservedAt.Before(at)
	})
	if i == 0 {
		return reports[0], true
	}
	if i == len(reports) {
		return reports[len(reports)-1], true
	}
	before, after := reports[i-1], reports[i]
	if at.Sub(before.ObservedAt) <= after.ObservedAt.Sub(at) {
		return before, true
	}
	return after, true
}

func (s *Service) evaluate(report Report, at time.Time) null.Bool {
	offset := report.ObservedAt.Sub(at)
	if offset < 0 {
		offset = -offset
	}
	if offset > s.maxOffset {
		return null.Bool{}
	}
	if !report.CeilingFt.Valid || !report.VisibilityM.Valid {
		return null.Bool{}
	}
	met := report.CeilingFt.Float64 >= s.minima.CeilingFt &&
		report.VisibilityM.Float64 >= s.minima.VisibilityM
	return null.BoolFrom(met)
}

// MinimaAt evaluates the minima for the sending hospital at the discharge
// time. The result is null whenever the answer is unknown: no station, no
// report close enough in time, or a report missing the needed fields.
// Missing data is never defaulted to false.
func (s *Service) MinimaAt(lat, lon float64, at time.Time) null.Bool {
	stationID, _, ok := s.NearestStation(lat, lon)
	if !ok {
		return null.Bool{}
	}
	return s.MinimaAtStation(stationID, at)
}

// MinimaAtStation evaluates the minima against one specific station, for
// hospitals whose catalog entry pins their reporting station. An unknown
// station yields null.
func (s *Service) MinimaAtStation(stationID string, at time.Time) null.Bool {
	report, ok := nearestReport(s.byStation[stationID], at)
	if !ok {
		return null.Bool{}
	}
	return s.evaluate(report, at)
}
