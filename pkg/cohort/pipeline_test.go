package cohort

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/scandicu/iftcohort/pkg/common/config"
)

// The fixture covers every exclusion path once: a long stay and a malformed
// timestamp drop at linkage, a pneumonia primary at diagnosis, a site missing
// from the distance matrix at the join, a short road distance, a
// single-transfer sending site, and a pre-study admission. Exactly one
// transfer survives.

func writeFixture(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write fixture %s: %v", name, err)
	}
	return path
}

func fixtureConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()

	admissions := writeFixture(t, dir, "admissions.csv",
		"patient_id,icu_id,hospital_name,hospital_type,admitted_at,discharged_at\n"+
			"p1,falun-icu,falun,county,2020-01-09T20:00:00Z,2020-01-10T08:00:00Z\n"+
			"p2,gavle-icu,gävle,county,2020-02-01T06:00:00Z,2020-02-01T18:00:00Z\n"+
			"p3,falun-icu,falun,county,2020-03-01T06:00:00Z,2020-03-01T18:00:00Z\n"+
			"p4,lycksele-icu,lycksele,county,2020-04-01T06:00:00Z,2020-04-01T18:00:00Z\n"+
			"p5,falun-icu,falun,county,2020-05-01T06:00:00Z,2020-05-03T06:00:00Z\n"+
			"p6,falun-icu,falun,county,2020-05-10T06:00:00Z,\n"+
			"p7,falun-icu,falun,county,2019-12-15T08:00:00Z,2019-12-15T20:00:00Z\n"+
			"p8,mora-icu,mora,county,2020-06-01T06:00:00Z,2020-06-01T18:00:00Z\n")

	tertiary := writeFixture(t, dir, "tertiary.csv",
		"patient_id,center_id,admitted_at,codes\n"+
			"p1,uppsala,2020-01-10T11:00:00Z,S06.5;I10\n"+
			"p2,uppsala,2020-02-01T20:00:00Z,S06.5\n"+
			"p3,uppsala,2020-03-01T20:00:00Z,J18.9\n"+
			"p4,uppsala,2020-04-01T20:00:00Z,S06.5\n"+
			"p5,uppsala,2020-05-03T08:00:00Z,S06.5\n"+
			"p6,uppsala,2020-05-10T20:00:00Z,S06.5\n"+
			"p7,uppsala,2019-12-15T22:00:00Z,S06.5\n"+
			"p8,uppsala,2020-06-01T20:00:00Z,S06.5\n")

	hospitals := writeFixture(t, dir, "hospitals.yaml", `
hospitals:
  falun:
    name: Falu lasarett
    latitude: 60.61
    longitude: 15.64
    metar_station: ESSD
  gävle:
    name: Gävle sjukhus
    latitude: 60.67
    longitude: 17.14
  mora:
    name: Mora lasarett
    latitude: 61.00
    longitude: 14.55
  lycksele:
    name: Lycksele lasarett
    latitude: 64.60
    longitude: 18.67
  uppsala:
    name: Akademiska sjukhuset
    latitude: 59.85
    longitude: 17.64
    tertiary: true
`)

	codes := writeFixture(t, dir, "diagnosis_codes.yaml", `
sets:
  tbi: [S06.1, S06.2, S06.3, S06.4, S06.5, S06.6, S06.7, S06.8, S06.9]
  skull_cervical_fracture: [S02.0, S02.1, S12]
  other_body_trauma: [S22, S32, S42, S52, S62, S72, S82, S92]
  sdh_nontraumatic: [I62.0]
  cervical_fracture: [S12.0, S12.1, S12.2, S12.7, S12.9]
  asah: [I60]
  ich: [I61]
  ais: [I63]
direct_order: [asah, ich, ais]
`)

	distances := writeFixture(t, dir, "distances.csv",
		"from,to,geodesic_km,road_km\n"+
			"falun,uppsala,142.3,171.0\n"+
			"gävle,uppsala,95.0,30.0\n"+
			"mora,uppsala,210.8,268.4\n")

	flights := writeFixture(t, dir, "flights.csv",
		"flight_id,departure_icao,departure_at,origin_site,destination_site\n"+
			"hems-101,ESKD,2020-01-10T07:30:00Z,falun,uppsala\n"+
			"hems-102,ESKM,2020-06-01T02:00:00Z,mora,uppsala\n")

	metar := writeFixture(t, dir, "metar.csv",
		"station_id,latitude,longitude,observed_at,ceiling_ft,visibility_m\n"+
			"ESSD,60.42,15.52,2020-01-10T07:50:00Z,1200,9999\n")

	configYAML := writeFixture(t, dir, "pipeline.yaml", `
source:
  driver: csv
  admissions_csv: `+admissions+`
  tertiary_csv: `+tertiary+`
reference:
  hospital_catalog: `+hospitals+`
  diagnosis_codes: `+codes+`
  distance_matrix: `+distances+`
  flights: `+flights+`
  weather_reports: `+metar+`
linkage:
  forward_window: 24h
  early_cutoff_hour: 4
  max_primary_stay: 24h
modality:
  flight_window: 3h
weather:
  min_ceiling_ft: 500
  min_visibility_m: 5000
  max_report_offset: 90m
cohort:
  min_road_km: 49
  min_site_transfers: 2
  study_start: "2020-01-01"
  output_path: `+filepath.Join(dir, "out", "cohort.csv")+`
  flow_report_path: `+filepath.Join(dir, "out", "flow.csv")+`
`)

	cfg, err := config.Load(configYAML)
	if err != nil {
		t.Fatalf("failed to load fixture config: %v", err)
	}
	return cfg
}

func TestPipelineEndToEnd(t *testing.T) {
	cfg := fixtureConfig(t)
	result, err := Run(context.Background(), cfg)
	if err != nil {
		t.Fatalf("pipeline failed: %v", err)
	}

	want := []int{8, 6, 5, 4, 3, 2, 1}
	got := result.Flow.Counts()
	if len(got) != len(want) {
		t.Fatalf("expected %d flow counts, got %v", len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("flow counts %v, want %v", got, want)
		}
	}

	if result.LinkStats.StayTooLong != 1 {
		t.Errorf("expected one long-stay exclusion, got %d", result.LinkStats.StayTooLong)
	}
	if result.LinkStats.MalformedPrimary != 1 {
		t.Errorf("expected one malformed primary, got %d", result.LinkStats.MalformedPrimary)
	}

	if len(result.Transfers) != 1 {
		t.Fatalf("expected one surviving transfer, got %d", len(result.Transfers))
	}
	tr := result.Transfers[0]
	if tr.PatientID != "p1" {
		t.Fatalf("expected p1 to survive, got %s", tr.PatientID)
	}
	if tr.DiagnosisGroup != "TBI" {
		t.Errorf("expected TBI, got %q", tr.DiagnosisGroup)
	}
	if tr.Modality != "HEMS" || tr.MatchedFlightID != "hems-101" {
		t.Errorf("expected HEMS via hems-101, got %s/%s", tr.Modality, tr.MatchedFlightID)
	}
	if !tr.MinimaMet.Valid || !tr.MinimaMet.Bool {
		t.Errorf("expected weather minima met, got %+v", tr.MinimaMet)
	}
	if tr.RoadKM <= 49 {
		t.Errorf("road distance invariant violated: %.1f", tr.RoadKM)
	}
	if stay := tr.PrimaryStay(); stay <= 0 || stay.Hours() >= 24 {
		t.Errorf("length-of-stay invariant violated: %v", stay)
	}

	content, err := os.ReadFile(cfg.Cohort.OutputPath)
	if err != nil {
		t.Fatalf("output CSV not written: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(content)), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected header plus one row, got %d lines", len(lines))
	}
	if !strings.HasPrefix(lines[0], "patient_id,") {
		t.Fatalf("unexpected header: %s", lines[0])
	}
	if !strings.HasPrefix(lines[1], "p1,falun-icu,falun,uppsala,") {
		t.Fatalf("unexpected row: %s", lines[1])
	}

	if _, err := os.Stat(cfg.Cohort.FlowReportPath); err != nil {
		t.Fatalf("flow report not written: %v", err)
	}
}

func TestPipelineWideMatrices(t *testing.T) {
	cfg := fixtureConfig(t)
	dir := t.TempDir()

	// the same three pairs as the normalized fixture, in the historical
	// wide form; lycksele stays absent so the exclusion path is unchanged
	cfg.Reference.GeodesicMatrix = writeFixture(t, dir, "geodesic_wide.csv",
		"site,uppsala\n"+
			"falun,142.3\n"+
			"gävle,95.0\n"+
			"mora,210.8\n")
	cfg.Reference.RoadMatrix = writeFixture(t, dir, "road_wide.csv",
		"site,uppsala\n"+
			"falun,171.0\n"+
			"gävle,30.0\n"+
			"mora,268.4\n")
	cfg.Reference.DistanceMatrix = ""

	result, err := Run(context.Background(), cfg)
	if err != nil {
		t.Fatalf("pipeline failed on wide-form matrices: %v", err)
	}

	want := []int{8, 6, 5, 4, 3, 2, 1}
	got := result.Flow.Counts()
	if len(got) != len(want) {
		t.Fatalf("expected %d flow counts, got %v", len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("flow counts %v, want %v", got, want)
		}
	}
	if len(result.Transfers) != 1 || result.Transfers[0].RoadKM != 171.0 {
		t.Fatalf("wide-form distances not attached: %+v", result.Transfers)
	}
}

func TestPipelineIsReproducible(t *testing.T) {
	cfg := fixtureConfig(t)
	first, err := Run(context.Background(), cfg)
	if err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	second, err := Run(context.Background(), cfg)
	if err != nil {
		t.Fatalf("second run failed: %v", err)
	}

	a, b := first.Flow.Counts(), second.Flow.Counts()
	if len(a) != len(b) {
		t.Fatalf("stage count length differs: %v vs %v", a, b)
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("stage counts differ between runs: %v vs %v", a, b)
		}
	}
	if len(first.Transfers) != len(second.Transfers) {
		t.Fatalf("row counts differ between runs")
	}
	for i := range first.Transfers {
		if first.Transfers[i].PatientID != second.Transfers[i].PatientID {
			t.Fatalf("row order differs between runs at index %d", i)
		}
	}
}
