package registry

import "time"

// Admission is one primary-ICU care episode from the registry extract.
// Timestamps are kept both raw (as extracted) and parsed; a nil parsed time
// means the raw value was missing or unparsable, and downstream stages count
// such records instead of matching them.
type Admission struct {
	ID              int64      `gorm:"primaryKey;column:id"`
	PatientID       string     `gorm:"column:patient_id"`
	ICUID           string     `gorm:"column:icu_id"`
	HospitalName    string     `gorm:"column:hospital_name"`
	HospitalType    string     `gorm:"column:hospital_type"`
	AdmittedAtRaw   string     `gorm:"column:admitted_at"`
	DischargedAtRaw string     `gorm:"column:discharged_at"`
	AdmittedAt      *time.Time `gorm:"-"`
	DischargedAt    *time.Time `gorm:"-"`
}

func (Admission) TableName() string {
	return "icu_admissions"
}

// DiagnosisCode is one ICD-10 discharge code on a tertiary admission.
// Position 0 is the primary diagnosis; secondaries keep extract order.
type DiagnosisCode struct {
	ID          int64  `gorm:"primaryKey;column:id"`
	AdmissionID int64  `gorm:"column:admission_id"`
	Code        string `gorm:"column:code"`
	Position    int    `gorm:"column:position"`
}

func (DiagnosisCode) TableName() string {
	return "tertiary_diagnoses"
}

// TertiaryAdmission is one admission to a tertiary (neurosurgical) center.
type TertiaryAdmission struct {
	ID            int64           `gorm:"primaryKey;column:id"`
	PatientID     string          `gorm:"column:patient_id"`
	CenterID      string          `gorm:"column:center_id"`
	AdmittedAtRaw string          `gorm:"column:admitted_at"`
	AdmittedAt    *time.Time      `gorm:"-"`
	Codes         []DiagnosisCode `gorm:"-"`
}

func (TertiaryAdmission) TableName() string {
	return "tertiary_admissions"
}

// PrimaryCode returns the primary discharge diagnosis, or "" when the
// admission carries no codes.
func (t TertiaryAdmission) PrimaryCode() string {
	for _, c := range t.Codes {
		if c.Position == 0 {
			return c.Code
		}
	}
	return ""
}

// SecondaryCodes returns the non-primary codes in extract order.
func (t TertiaryAdmission) SecondaryCodes() []string {
	var codes []string
	for _, c := range t.Codes {
		if c.Position != 0 {
			codes = append(codes, c.Code)
		}
	}
	return codes
}
