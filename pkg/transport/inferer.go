package transport

import (
	"strings"
	"time"
)

// Assignment is the inferred modality for one transfer. FlightID and Offset
// are set only for HEMS assignments.
type Assignment struct {
	Modality string
	FlightID string
	Offset   time.Duration
}

// Inferer labels transfers HEMS when a matching outbound flight exists.
// The window is the empirically chosen ±3h default, kept configurable.
type Inferer struct {
	flights []FlightRecord
	window  time.Duration
}

func NewInferer(flights []FlightRecord, window time.Duration) *Inferer {
	if window <= 0 {
		window = 3 * time.Hour
	}
	return &Inferer{flights: flights, window: window}
}

func sameSite(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}

// Infer searches for an outbound movement from the sending site toward the
// receiving site departing within the window around the discharge time.
// Among matches the minimum absolute offset wins; exact ties resolve to the
// earliest departure, then the lexically smallest flight ID, so repeated
// inference always yields the same flight.
func (inf *Inferer) Infer(sendingSite, receivingSite string, dischargedAt time.Time) Assignment {
	best := Assignment{Modality: ModalityOther}
	found := false
	for _, fr := range inf.flights {
		if !sameSite(fr.OriginSite, sendingSite) || !sameSite(fr.DestinationSite, receivingSite) {
			continue
		}
		offset := fr.DepartureAt.Sub(dischargedAt)
		if absDuration(offset) > inf.window {
			continue
		}
		candidate := Assignment{Modality: ModalityHEMS, FlightID: fr.FlightID, Offset: offset}
		if !found {
			best = candidate
			found = true
			continue
		}
		switch {
		case absDuration(candidate.Offset) < absDuration(best.Offset):
			best = candidate
		case absDuration(candidate.Offset) == absDuration(best.Offset):
			if candidate.Offset < best.Offset ||
				(candidate.Offset == best.Offset && candidate.FlightID < best.FlightID) {
				best = candidate
			}
		}
	}
	return best
}
