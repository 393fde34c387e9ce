package registry

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
)

// CSV loaders for extracts handed over as flat files instead of a database
// snapshot. Header order is not assumed; columns are resolved by name.

func readAll(path string, required ...string) ([]map[string]string, error) {
	fid, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fid.Close()

	cr := csv.NewReader(fid)
	cr.TrimLeadingSpace = true
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header of %s: %w", path, err)
	}
	for i := range header {
		header[i] = strings.ToLower(strings.TrimSpace(header[i]))
	}
	for _, col := range required {
		found := false
		for _, name := range header {
			if name == col {
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("%s: missing column %q", path, col)
		}
	}

	var rows []map[string]string
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		row := make(map[string]string, len(header))
		for i, field := range record {
			if i < len(header) {
				row[header[i]] = strings.TrimSpace(field)
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// LoadAdmissionsCSV reads primary-ICU admissions from a flat extract.
func LoadAdmissionsCSV(path string) ([]Admission, error) {
	rows, err := readAll(path, "patient_id", "icu_id", "hospital_name", "admitted_at", "discharged_at")
	if err != nil {
		return nil, err
	}
	admissions := make([]Admission, 0, len(rows))
	for i, row := range rows {
		adm := Admission{
			ID:              int64(i + 1),
			PatientID:       row["patient_id"],
			ICUID:           row["icu_id"],
			HospitalName:    row["hospital_name"],
			HospitalType:    row["hospital_type"],
			AdmittedAtRaw:   row["admitted_at"],
			DischargedAtRaw: row["discharged_at"],
		}
		adm.AdmittedAt = parseExtractTime(adm.AdmittedAtRaw)
		adm.DischargedAt = parseExtractTime(adm.DischargedAtRaw)
		admissions = append(admissions, adm)
	}
	return admissions, nil
}

// LoadTertiaryCSV reads tertiary admissions from a flat extract. The codes
// column holds the ordered ICD-10 list separated by ';', primary first.
func LoadTertiaryCSV(path string) ([]TertiaryAdmission, error) {
	rows, err := readAll(path, "patient_id", "center_id", "admitted_at", "codes")
	if err != nil {
		return nil, err
	}
	admissions := make([]TertiaryAdmission, 0, len(rows))
	for i, row := range rows {
		adm := TertiaryAdmission{
			ID:            int64(i + 1),
			PatientID:     row["patient_id"],
			CenterID:      row["center_id"],
			AdmittedAtRaw: row["admitted_at"],
		}
		adm.AdmittedAt = parseExtractTime(adm.AdmittedAtRaw)
		for pos, code := range strings.Split(row["codes"], ";") {
			code = strings.TrimSpace(code)
			if code == "" {
				continue
			}
			adm.Codes = append(adm.Codes, DiagnosisCode{
				AdmissionID: adm.ID,
				Code:        code,
				Position:    pos,
			})
		}
		admissions = append(admissions, adm)
	}
	return admissions, nil
}
