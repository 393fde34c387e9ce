package linkage

import (
	"sort"
	"time"

	"github.com/scandicu/iftcohort/pkg/common/logger"
	"github.com/scandicu/iftcohort/pkg/registry"
	"github.com/sirupsen/logrus"
)

// Options are the linkage window parameters. They are empirically chosen in
// the source analyses and deliberately configurable, not constants.
type Options struct {
	// ForwardWindow accepts tertiary admissions in [discharge, discharge+w).
	ForwardWindow time.Duration
	// EarlyCutoffHour extends the window backwards by ForwardWindow for
	// discharges whose hour-of-day is before this cutoff (night transfers
	// registered after midnight at the receiving end).
	EarlyCutoffHour int
	// MaxPrimaryStay is the exclusive upper bound on primary-ICU length of
	// stay for a pair to count as an acute transfer.
	MaxPrimaryStay time.Duration
}

type Linker struct {
	opts Options
}

func NewLinker(opts Options) *Linker {
	if opts.ForwardWindow <= 0 {
		opts.ForwardWindow = 24 * time.Hour
	}
	if opts.MaxPrimaryStay <= 0 {
		opts.MaxPrimaryStay = 24 * time.Hour
	}
	return &Linker{opts: opts}
}

// qualifies reports whether a tertiary admission at a belongs to a primary
// discharge at t: within the forward window, or within the backward window
// when the discharge happened in the configured early-morning hours.
func (l *Linker) qualifies(t, a time.Time) bool {
	if !a.Before(t) && a.Before(t.Add(l.opts.ForwardWindow)) {
		return true
	}
	if a.Before(t) && !a.Before(t.Add(-l.opts.ForwardWindow)) {
		return t.UTC().Hour() < l.opts.EarlyCutoffHour
	}
	return false
}

// Link matches primary-ICU discharges to tertiary admissions and resolves
// ties deterministically: per patient the chronologically last primary
// admission, the chronologically first tertiary admission, and the earliest
// remaining pair. Records with missing or impossible timestamps are excluded
// and counted, never matched.
func (l *Linker) Link(admissions []registry.Admission, tertiary []registry.TertiaryAdmission) ([]Transfer, Stats) {
	stats := Stats{PrimaryIn: len(admissions), TertiaryIn: len(tertiary)}

	var primaries []registry.Admission
	for _, adm := range admissions {
		if adm.AdmittedAt == nil || adm.DischargedAt == nil {
			stats.MalformedPrimary++
			continue
		}
		stay := adm.DischargedAt.Sub(*adm.AdmittedAt)
		if stay <= 0 {
			stats.InvalidDuration++
			logger.WithStage("linkage").WithFields(logrus.Fields{
				"patient_id": adm.PatientID,
				"reason":     "non-positive primary stay",
			}).Warn("record excluded")
			continue
		}
		if stay >= l.opts.MaxPrimaryStay {
			stats.StayTooLong++
			continue
		}
		primaries = append(primaries, adm)
	}

	tertiaryByPatient := make(map[string][]registry.TertiaryAdmission)
	for _, ta := range tertiary {
		if ta.AdmittedAt == nil {
			stats.MalformedTertiary++
			continue
		}
		tertiaryByPatient[ta.PatientID] = append(tertiaryByPatient[ta.PatientID], ta)
	}

	type pair struct {
		primary  registry.Admission
		tertiary registry.TertiaryAdmission
	}
	candidates := make(map[string][]pair)
	for _, adm := range primaries {
		for _, ta := range tertiaryByPatient[adm.PatientID] {
			if l.qualifies(*adm.DischargedAt, *ta.AdmittedAt) {
				candidates[adm.PatientID] = append(candidates[adm.PatientID], pair{primary: adm, tertiary: ta})
				stats.CandidatePairs++
			}
		}
	}

	var transfers []Transfer
	for patientID, pairs := range candidates {
		// last primary admission first, then first tertiary admission;
		// IDs break exact timestamp ties so repeated runs agree
		sort.SliceStable(pairs, func(i, j int) bool {
			pi, pj := pairs[i], pairs[j]
			if !pi.primary.AdmittedAt.Equal(*pj.primary.AdmittedAt) {
				return pi.primary.AdmittedAt.After(*pj.primary.AdmittedAt)
			}
			if !pi.tertiary.AdmittedAt.Equal(*pj.tertiary.AdmittedAt) {
				return pi.tertiary.AdmittedAt.Before(*pj.tertiary.AdmittedAt)
			}
			if pi.primary.ID != pj.primary.ID {
				return pi.primary.ID < pj.primary.ID
			}
			return pi.tertiary.ID < pj.tertiary.ID
		})
		chosen := pairs[0]
		transfers = append(transfers, Transfer{
			PatientID:           patientID,
			Primary:             chosen.primary,
			Tertiary:            chosen.tertiary,
			PrimaryAdmittedAt:   *chosen.primary.AdmittedAt,
			PrimaryDischargedAt: *chosen.primary.DischargedAt,
			TertiaryAdmittedAt:  *chosen.tertiary.AdmittedAt,
		})
	}
	stats.PatientsLinked = len(transfers)

	sort.SliceStable(transfers, func(i, j int) bool {
		if transfers[i].PatientID != transfers[j].PatientID {
			return transfers[i].PatientID < transfers[j].PatientID
		}
		return transfers[i].PrimaryAdmittedAt.Before(transfers[j].PrimaryAdmittedAt)
	})

	logger.WithStage("linkage").WithFields(logrus.Fields{
		"primary_in":         stats.PrimaryIn,
		"tertiary_in":        stats.TertiaryIn,
		"malformed_primary":  stats.MalformedPrimary,
		"malformed_tertiary": stats.MalformedTertiary,
		"invalid_duration":   stats.InvalidDuration,
		"stay_too_long":      stats.StayTooLong,
		"linked":             stats.PatientsLinked,
	}).Info("linkage complete")

	return transfers, stats
}
