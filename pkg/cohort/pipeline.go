package cohort

import (
	"context"
	"fmt"

	"github.com/scandicu/iftcohort/pkg/common/config"
	"github.com/scandicu/iftcohort/pkg/common/database"
	"github.com/scandicu/iftcohort/pkg/common/logger"
	"github.com/scandicu/iftcohort/pkg/diagnosis"
	"github.com/scandicu/iftcohort/pkg/linkage"
	"github.com/scandicu/iftcohort/pkg/reference"
	"github.com/scandicu/iftcohort/pkg/registry"
	"github.com/scandicu/iftcohort/pkg/transport"
	"github.com/scandicu/iftcohort/pkg/weather"
	"github.com/sirupsen/logrus"
)

// Result is what one pipeline run produced.
type Result struct {
	Transfers []linkage.Transfer
	LinkStats linkage.Stats
	Flow      *FlowReport
}

func loadSource(ctx context.Context, cfg *config.Config) ([]registry.Admission, []registry.TertiaryAdmission, error) {
	if cfg.Source.Driver == "csv" {
		admissions, err := registry.LoadAdmissionsCSV(cfg.Source.AdmissionsCSV)
		if err != nil {
			return nil, nil, err
		}
		tertiary, err := registry.LoadTertiaryCSV(cfg.Source.TertiaryCSV)
		if err != nil {
			return nil, nil, err
		}
		return admissions, tertiary, nil
	}

	db, err := database.Open(cfg.Source)
	if err != nil {
		return nil, nil, err
	}
	defer database.Close(db)

	repo := registry.NewRepository(db)
	admissions, err := repo.Admissions(ctx)
	if err != nil {
		return nil, nil, err
	}
	tertiary, err := repo.TertiaryAdmissions(ctx)
	if err != nil {
		return nil, nil, err
	}
	return admissions, tertiary, nil
}

// LoadDistances builds the distance relation from whichever form the config
// names: the historical wide-form geodesic/road pair when both paths are set,
// otherwise the normalized single-file matrix.
func LoadDistances(cfg *config.Config) (*reference.DistanceMatrix, error) {
	if cfg.Reference.GeodesicMatrix != "" && cfg.Reference.RoadMatrix != "" {
		return reference.LoadWideDistanceMatrices(cfg.Reference.GeodesicMatrix, cfg.Reference.RoadMatrix)
	}
	return reference.LoadDistanceMatrix(cfg.Reference.DistanceMatrix)
}

// Run executes the whole pipeline: load, link, classify, infer modality,
// attach weather and distances, filter, and write the output table plus the
// flow report. Per-record problems drop records with counts; any failure to
// load reference data is fatal and aborts before output is produced.
func Run(ctx context.Context, cfg *config.Config) (*Result, error) {
	admissions, tertiary, err := loadSource(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("load registry extract: %w", err)
	}

	hospitals, err := reference.LoadHospitals(cfg.Reference.HospitalCatalog)
	if err != nil {
		return nil, err
	}
	matrix, err := LoadDistances(cfg)
	if err != nil {
		return nil, err
	}
	catalog, err := diagnosis.LoadCatalog(cfg.Reference.DiagnosisCodes)
	if err != nil {
		return nil, err
	}
	classifier, err := diagnosis.NewClassifier(catalog)
	if err != nil {
		return nil, err
	}

	flights, malformedFlights, err := transport.LoadFlightsCSV(cfg.Reference.Flights)
	if err != nil {
		return nil, err
	}
	reports, malformedReports, err := weather.LoadReportsCSV(cfg.Reference.WeatherReports)
	if err != nil {
		return nil, err
	}
	if malformedFlights > 0 || malformedReports > 0 {
		logger.Log.WithFields(logrus.Fields{
			"flights": malformedFlights,
			"reports": malformedReports,
		}).Warn("malformed archive rows skipped")
	}

	flow := NewFlowReport()

	linker := linkage.NewLinker(linkage.Options{
		ForwardWindow:   cfg.Linkage.ForwardWindow.Std(),
		EarlyCutoffHour: cfg.Linkage.EarlyCutoffHour,
		MaxPrimaryStay:  cfg.Linkage.MaxPrimaryStay.Std(),
	})
	transfers, linkStats := linker.Link(admissions, tertiary)
	flow.Record("linkage", linkStats.PrimaryIn, linkStats.PatientsLinked)

	inferer := transport.NewInferer(flights, cfg.Modality.FlightWindow.Std())
	weatherSvc := weather.NewService(reports, weather.Minima{
		CeilingFt:   cfg.Weather.MinCeilingFt,
		VisibilityM: cfg.Weather.MinVisibilityM,
	}, cfg.Weather.MaxReportOffset.Std())

	assembler := NewAssembler(classifier, inferer, weatherSvc, matrix, hospitals)
	assembler.MinRoadKM = cfg.Cohort.MinRoadKM
	assembler.MinSiteTransfers = cfg.Cohort.MinSiteTransfers
	assembler.StudyStart = cfg.StudyStartTime()

	assembled := assembler.Assemble(transfers, flow)

	if cfg.Cohort.OutputPath != "" {
		if err := WriteCSV(cfg.Cohort.OutputPath, assembled); err != nil {
			return nil, err
		}
	}
	if cfg.Cohort.FlowReportPath != "" {
		if err := flow.WriteCSV(cfg.Cohort.FlowReportPath); err != nil {
			return nil, err
		}
	}

	logger.Log.WithFields(logrus.Fields{
		"run_id": flow.RunID,
		"counts": flow.Counts(),
		"rows":   len(assembled),
	}).Info("cohort assembled")

	return &Result{Transfers: assembled, LinkStats: linkStats, Flow: flow}, nil
}
