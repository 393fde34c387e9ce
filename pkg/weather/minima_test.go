package weather

import (
	"testing"
	"time"

	"gopkg.in/guregu/null.v3"
)

// Falun lasarett is roughly at 60.61N 15.64E; Borlänge (ESSD) is the nearby
// station, Stockholm Bromma (ESSB) the distant one.
const (
	falunLat = 60.61
	falunLon = 15.64
)

func observed(value string) time.Time {
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		panic(err)
	}
	return t.UTC()
}

func report(station string, lat, lon float64, at string, ceiling, visibility null.Float) Report {
	return Report{
		StationID:   station,
		Latitude:    lat,
		Longitude:   lon,
		ObservedAt:  observed(at),
		CeilingFt:   ceiling,
		VisibilityM: visibility,
	}
}

func testMinima() Minima {
	return Minima{CeilingFt: 500, VisibilityM: 5000}
}

func TestNearestStation(t *testing.T) {
	svc := NewService([]Report{
		report("ESSD", 60.42, 15.52, "2020-01-10T10:00:00Z", null.FloatFrom(1200), null.FloatFrom(9999)),
		report("ESSB", 59.35, 17.94, "2020-01-10T10:00:00Z", null.FloatFrom(1200), null.FloatFrom(9999)),
	}, testMinima(), 90*time.Minute)

	station, km, ok := svc.NearestStation(falunLat, falunLon)
	if !ok {
		t.Fatal("expected a nearest station")
	}
	if station != "ESSD" {
		t.Fatalf("expected ESSD as nearest station, got %s", station)
	}
	if km <= 0 || km > 100 {
		t.Fatalf("implausible distance to ESSD: %.1f km", km)
	}
}

func TestMinimaMet(t *testing.T) {
	svc := NewService([]Report{
		report("ESSD", 60.42, 15.52, "2020-01-10T09:50:00Z", null.FloatFrom(1200), null.FloatFrom(9999)),
	}, testMinima(), 90*time.Minute)

	got := svc.MinimaAt(falunLat, falunLon, observed("2020-01-10T10:00:00Z"))
	if !got.Valid || !got.Bool {
		t.Fatalf("expected minima met, got %+v", got)
	}
}

func TestMinimaNotMet(t *testing.T) {
	svc := NewService([]Report{
		report("ESSD", 60.42, 15.52, "2020-01-10T09:50:00Z", null.FloatFrom(200), null.FloatFrom(1500)),
	}, testMinima(), 90*time.Minute)

	got := svc.MinimaAt(falunLat, falunLon, observed("2020-01-10T10:00:00Z"))
	if !got.Valid || got.Bool {
		t.Fatalf("expected minima not met, got %+v", got)
	}
}

func TestMinimaPicksNearestReportInTime(t *testing.T) {
	svc := NewService([]Report{
		report("ESSD", 60.42, 15.52, "2020-01-10T06:00:00Z", null.FloatFrom(200), null.FloatFrom(1500)),
		report("ESSD", 60.42, 15.52, "2020-01-10T09:50:00Z", null.FloatFrom(1200), null.FloatFrom(9999)),
		report("ESSD", 60.42, 15.52, "2020-01-10T13:00:00Z", null.FloatFrom(100), null.FloatFrom(800)),
	}, testMinima(), 90*time.Minute)

	got := svc.MinimaAt(falunLat, falunLon, observed("2020-01-10T10:00:00Z"))
	if !got.Valid || !got.Bool {
		t.Fatalf("expected the 09:50 report to decide, got %+v", got)
	}
}

func TestMinimaAtStationPinned(t *testing.T) {
	// ESSD is the nearer station and reports flyable weather; a hospital
	// pinned to ESSB must be judged by ESSB's report instead
	svc := NewService([]Report{
		report("ESSD", 60.42, 15.52, "2020-01-10T09:50:00Z", null.FloatFrom(1200), null.FloatFrom(9999)),
		report("ESSB", 59.35, 17.94, "2020-01-10T09:50:00Z", null.FloatFrom(200), null.FloatFrom(1500)),
	}, testMinima(), 90*time.Minute)

	got := svc.MinimaAtStation("ESSB", observed("2020-01-10T10:00:00Z"))
	if !got.Valid || got.Bool {
		t.Fatalf("expected the pinned station's report to decide, got %+v", got)
	}

	if got := svc.MinimaAtStation("XXXX", observed("2020-01-10T10:00:00Z")); got.Valid {
		t.Fatalf("expected null for an unknown station, got %+v", got)
	}
}

func TestMinimaMissingStaysMissing(t *testing.T) {
	// no reports at all
	svc := NewService(nil, testMinima(), 90*time.Minute)
	if got := svc.MinimaAt(falunLat, falunLon, observed("2020-01-10T10:00:00Z")); got.Valid {
		t.Fatalf("expected null with no stations, got %+v", got)
	}

	// nearest report too far away in time
	svc = NewService([]Report{
		report("ESSD", 60.42, 15.52, "2020-01-10T02:00:00Z", null.FloatFrom(1200), null.FloatFrom(9999)),
	}, testMinima(), 90*time.Minute)
	if got := svc.MinimaAt(falunLat, falunLon, observed("2020-01-10T10:00:00Z")); got.Valid {
		t.Fatalf("expected null for a stale report, got %+v", got)
	}

	// report close in time but missing the needed fields
	svc = NewService([]Report{
		report("ESSD", 60.42, 15.52, "2020-01-10T09:50:00Z", null.Float{}, null.FloatFrom(9999)),
	}, testMinima(), 90*time.Minute)
	if got := svc.MinimaAt(falunLat, falunLon, observed("2020-01-10T10:00:00Z")); got.Valid {
		t.Fatalf("expected null when ceiling is missing, got %+v", got)
	}
}
