package transport

import (
	"testing"
	"time"
)

func depart(value string) time.Time {
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		panic(err)
	}
	return t.UTC()
}

func TestInferHEMSWithinWindow(t *testing.T) {
	flights := []FlightRecord{
		{FlightID: "f1", OriginSite: "falun", DestinationSite: "uppsala", DepartureAt: depart("2020-01-10T10:45:00Z")},
	}
	inf := NewInferer(flights, 3*time.Hour)
	got := inf.Infer("Falun", "Uppsala", depart("2020-01-10T10:00:00Z"))
	if got.Modality != ModalityHEMS || got.FlightID != "f1" {
		t.Fatalf("expected HEMS via f1, got %+v", got)
	}
}

func TestInferOtherOutsideWindow(t *testing.T) {
	flights := []FlightRecord{
		{FlightID: "f1", OriginSite: "falun", DestinationSite: "uppsala", DepartureAt: depart("2020-01-10T14:30:00Z")},
	}
	inf := NewInferer(flights, 3*time.Hour)
	got := inf.Infer("falun", "uppsala", depart("2020-01-10T10:00:00Z"))
	if got.Modality != ModalityOther {
		t.Fatalf("expected Other for a flight 4.5h away, got %+v", got)
	}
}

func TestInferDirectionMustMatch(t *testing.T) {
	flights := []FlightRecord{
		{FlightID: "f1", OriginSite: "uppsala", DestinationSite: "falun", DepartureAt: depart("2020-01-10T10:15:00Z")},
	}
	inf := NewInferer(flights, 3*time.Hour)
	got := inf.Infer("falun", "uppsala", depart("2020-01-10T10:00:00Z"))
	if got.Modality != ModalityOther {
		t.Fatalf("expected the reverse direction not to match, got %+v", got)
	}
}

func TestInferPicksMinimumOffset(t *testing.T) {
	flights := []FlightRecord{
		{FlightID: "f1", OriginSite: "falun", DestinationSite: "uppsala", DepartureAt: depart("2020-01-10T12:00:00Z")},
		{FlightID: "f2", OriginSite: "falun", DestinationSite: "uppsala", DepartureAt: depart("2020-01-10T10:20:00Z")},
	}
	inf := NewInferer(flights, 3*time.Hour)
	got := inf.Infer("falun", "uppsala", depart("2020-01-10T10:00:00Z"))
	if got.FlightID != "f2" {
		t.Fatalf("expected the closer flight f2, got %+v", got)
	}
}

func TestInferDeterministicTieBreak(t *testing.T) {
	// equal absolute offsets on both sides of the discharge: the earlier
	// departure wins, and repeated runs agree
	flights := []FlightRecord{
		{FlightID: "late", OriginSite: "falun", DestinationSite: "uppsala", DepartureAt: depart("2020-01-10T11:00:00Z")},
		{FlightID: "early", OriginSite: "falun", DestinationSite: "uppsala", DepartureAt: depart("2020-01-10T09:00:00Z")},
	}
	inf := NewInferer(flights, 3*time.Hour)
	first := inf.Infer("falun", "uppsala", depart("2020-01-10T10:00:00Z"))
	second := inf.Infer("falun", "uppsala", depart("2020-01-10T10:00:00Z"))
	if first.FlightID != "early" {
		t.Fatalf("expected the earlier departure on an exact tie, got %+v", first)
	}
	if first != second {
		t.Fatalf("inference not deterministic: %+v vs %+v", first, second)
	}
}
