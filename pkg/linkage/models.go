package linkage

import (
	"time"

	"github.com/scandicu/iftcohort/pkg/registry"
	"gopkg.in/guregu/null.v3"
)

// Transfer is one interfacility transfer: a primary-ICU discharge linked to a
// tertiary-center admission. The linker produces the pair; downstream stages
// return copies with the derived attributes filled in. At most one Transfer
// exists per patient.
type Transfer struct {
	PatientID string

	Primary  registry.Admission
	Tertiary registry.TertiaryAdmission

	// resolved instants, always valid for a linked pair
	PrimaryAdmittedAt   time.Time
	PrimaryDischargedAt time.Time
	TertiaryAdmittedAt  time.Time

	// attached downstream
	DiagnosisGroup  string
	Modality        string
	MatchedFlightID string
	GeodesicKM      float64
	RoadKM          float64
	MinimaMet       null.Bool
}

// PrimaryStay is the primary-ICU length of stay.
func (t Transfer) PrimaryStay() time.Duration {
	return t.PrimaryDischargedAt.Sub(t.PrimaryAdmittedAt)
}

// Stats reports what the linker excluded, broken out by reason so malformed
// records are counted rather than silently merged or dropped.
type Stats struct {
	PrimaryIn         int
	TertiaryIn        int
	MalformedPrimary  int
	MalformedTertiary int
	InvalidDuration   int
	StayTooLong       int
	CandidatePairs    int
	PatientsLinked    int
}
