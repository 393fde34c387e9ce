package cohort

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/scandicu/iftcohort/pkg/linkage"
)

// Columns is the output contract: downstream reporting binds to these names.
var Columns = []string{
	"patient_id",
	"sending_icu",
	"sending_hospital",
	"receiving_center",
	"primary_admitted_at",
	"primary_discharged_at",
	"tertiary_admitted_at",
	"primary_stay_hours",
	"diagnosis_group",
	"modality",
	"matched_flight_id",
	"geodesic_km",
	"road_km",
	"minima_met",
}

func formatMinima(t linkage.Transfer) string {
	if !t.MinimaMet.Valid {
		return ""
	}
	return strconv.FormatBool(t.MinimaMet.Bool)
}

func row(t linkage.Transfer) []string {
	return []string{
		t.PatientID,
		t.Primary.ICUID,
		t.Primary.HospitalName,
		t.Tertiary.CenterID,
		t.PrimaryAdmittedAt.UTC().Format(time.RFC3339),
		t.PrimaryDischargedAt.UTC().Format(time.RFC3339),
		t.TertiaryAdmittedAt.UTC().Format(time.RFC3339),
		strconv.FormatFloat(t.PrimaryStay().Hours(), 'f', 2, 64),
		t.DiagnosisGroup,
		t.Modality,
		t.MatchedFlightID,
		strconv.FormatFloat(t.GeodesicKM, 'f', 1, 64),
		strconv.FormatFloat(t.RoadKM, 'f', 1, 64),
		formatMinima(t),
	}
}

// WriteCSV writes the assembled cohort in its already-deterministic order.
func WriteCSV(path string, transfers []linkage.Transfer) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}
	fid, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("write cohort output: %w", err)
	}
	defer fid.Close()

	w := csv.NewWriter(fid)
	if err := w.Write(Columns); err != nil {
		return err
	}
	for _, t := range transfers {
		if err := w.Write(row(t)); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
