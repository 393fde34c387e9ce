package cohort

import (
	"sort"
	"time"

	"github.com/scandicu/iftcohort/pkg/common/logger"
	"github.com/scandicu/iftcohort/pkg/diagnosis"
	"github.com/scandicu/iftcohort/pkg/linkage"
	"github.com/scandicu/iftcohort/pkg/reference"
	"github.com/scandicu/iftcohort/pkg/transport"
	"github.com/scandicu/iftcohort/pkg/weather"
	"github.com/sirupsen/logrus"
)

// Assembler runs the per-transfer enrichment and inclusion stages. Each stage
// consumes its input slice and returns a new one; nothing is mutated in
// place, so stages stay independently testable.
type Assembler struct {
	classifier *diagnosis.Classifier
	inferer    *transport.Inferer
	weather    *weather.Service
	matrix     *reference.DistanceMatrix
	hospitals  reference.HospitalCatalog

	MinRoadKM        float64
	MinSiteTransfers int
	StudyStart       time.Time
}

func NewAssembler(
	classifier *diagnosis.Classifier,
	inferer *transport.Inferer,
	weatherSvc *weather.Service,
	matrix *reference.DistanceMatrix,
	hospitals reference.HospitalCatalog,
) *Assembler {
	return &Assembler{
		classifier: classifier,
		inferer:    inferer,
		weather:    weatherSvc,
		matrix:     matrix,
		hospitals:  hospitals,
		MinRoadKM:  49,
	}
}

// ClassifyDiagnoses attaches a diagnosis group to each transfer and drops
// transfers whose codes match no configured set: those are outside the
// NSICU-relevant cohort, not "unclassified" rows.
func (a *Assembler) ClassifyDiagnoses(transfers []linkage.Transfer, report *FlowReport) []linkage.Transfer {
	out := make([]linkage.Transfer, 0, len(transfers))
	for _, t := range transfers {
		group, ok := a.classifier.Classify(t.Tertiary.PrimaryCode(), t.Tertiary.SecondaryCodes())
		if !ok {
			continue
		}
		t.DiagnosisGroup = group
		out = append(out, t)
	}
	report.Record("diagnosis", len(transfers), len(out))
	return out
}

// InferModality labels each transfer HEMS or Other. No transfer is dropped.
func (a *Assembler) InferModality(transfers []linkage.Transfer) []linkage.Transfer {
	out := make([]linkage.Transfer, 0, len(transfers))
	for _, t := range transfers {
		assignment := a.inferer.Infer(t.Primary.HospitalName, t.Tertiary.CenterID, t.PrimaryDischargedAt)
		t.Modality = assignment.Modality
		t.MatchedFlightID = assignment.FlightID
		out = append(out, t)
	}
	return out
}

// AttachWeather sets the weather-minima flag from the hospital's pinned
// station when the catalog names one, otherwise from the nearest station at
// discharge time. Unknown sending sites and missing weather both leave the
// flag null; no transfer is dropped here, but an unresolvable site is logged
// with its key.
func (a *Assembler) AttachWeather(transfers []linkage.Transfer) []linkage.Transfer {
	out := make([]linkage.Transfer, 0, len(transfers))
	for _, t := range transfers {
		hospital, ok := a.hospitals.Lookup(t.Primary.HospitalName)
		switch {
		case !ok:
			logger.WithStage("weather").WithFields(logrus.Fields{
				"site":       t.Primary.HospitalName,
				"patient_id": t.PatientID,
			}).Warn("sending site missing from hospital catalog")
		case hospital.MetarStation != "":
			t.MinimaMet = a.weather.MinimaAtStation(hospital.MetarStation, t.PrimaryDischargedAt)
		default:
			t.MinimaMet = a.weather.MinimaAt(hospital.Latitude, hospital.Longitude, t.PrimaryDischargedAt)
		}
		out = append(out, t)
	}
	return out
}

// AttachDistances joins each transfer against the normalized distance
// relation. A missing pair is a data error for that record: it is logged with
// the offending key and excluded, never zero-filled.
func (a *Assembler) AttachDistances(transfers []linkage.Transfer, report *FlowReport) []linkage.Transfer {
	out := make([]linkage.Transfer, 0, len(transfers))
	for _, t := range transfers {
		pair, err := a.matrix.Lookup(t.Primary.HospitalName, t.Tertiary.CenterID)
		if err != nil {
			logger.WithStage("distance").WithField("patient_id", t.PatientID).
				WithError(err).Error("record excluded")
			continue
		}
		t.GeodesicKM = pair.GeodesicKM
		t.RoadKM = pair.RoadKM
		out = append(out, t)
	}
	report.Record("distance", len(transfers), len(out))
	return out
}

// FilterRoadDistance keeps transfers strictly beyond the road-distance
// threshold.
func (a *Assembler) FilterRoadDistance(transfers []linkage.Transfer, report *FlowReport) []linkage.Transfer {
	out := make([]linkage.Transfer, 0, len(transfers))
	for _, t := range transfers {
		if t.RoadKM > a.MinRoadKM {
			out = append(out, t)
		}
	}
	report.Record("road_distance", len(transfers), len(out))
	return out
}

// FilterSiteVolume keeps transfers from sending sites contributing at least
// the configured minimum number of transfers.
func (a *Assembler) FilterSiteVolume(transfers []linkage.Transfer, report *FlowReport) []linkage.Transfer {
	if a.MinSiteTransfers <= 1 {
		report.Record("site_volume", len(transfers), len(transfers))
		return transfers
	}
	bySite := make(map[string]int)
	for _, t := range transfers {
		bySite[t.Primary.HospitalName]++
	}
	out := make([]linkage.Transfer, 0, len(transfers))
	for _, t := range transfers {
		if bySite[t.Primary.HospitalName] >= a.MinSiteTransfers {
			out = append(out, t)
		}
	}
	report.Record("site_volume", len(transfers), len(out))
	return out
}

// FilterStudyWindow keeps transfers admitted on or after the study start.
// A zero start disables the restriction.
func (a *Assembler) FilterStudyWindow(transfers []linkage.Transfer, report *FlowReport) []linkage.Transfer {
	if a.StudyStart.IsZero() {
		report.Record("study_window", len(transfers), len(transfers))
		return transfers
	}
	out := make([]linkage.Transfer, 0, len(transfers))
	for _, t := range transfers {
		if !t.PrimaryAdmittedAt.Before(a.StudyStart) {
			out = append(out, t)
		}
	}
	report.Record("study_window", len(transfers), len(out))
	return out
}

// Assemble runs the enrichment and inclusion stages in the fixed order the
// flow diagram documents, finishing with the stable output ordering the
// downstream reporting depends on.
func (a *Assembler) Assemble(transfers []linkage.Transfer, report *FlowReport) []linkage.Transfer {
	out := a.ClassifyDiagnoses(transfers, report)
	out = a.InferModality(out)
	out = a.AttachWeather(out)
	out = a.AttachDistances(out, report)
	out = a.FilterRoadDistance(out, report)
	out = a.FilterSiteVolume(out, report)
	out = a.FilterStudyWindow(out, report)

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].PatientID != out[j].PatientID {
			return out[i].PatientID < out[j].PatientID
		}
		return out[i].PrimaryAdmittedAt.Before(out[j].PrimaryAdmittedAt)
	})
	return out
}
