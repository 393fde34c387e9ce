package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type SourceConfig struct {
	// Driver selects where the registry extract comes from: "sqlite" for an
	// offline snapshot file, "postgres" for running the extract query against
	// the registry database directly, "csv" for flat-file handovers.
	Driver     string `yaml:"driver"`
	SQLitePath string `yaml:"sqlite_path"`

	AdmissionsCSV string `yaml:"admissions_csv"`
	TertiaryCSV   string `yaml:"tertiary_csv"`

	PostgresHost     string `yaml:"postgres_host"`
	PostgresPort     string `yaml:"postgres_port"`
	PostgresUser     string `yaml:"postgres_user"`
	PostgresPassword string `yaml:"postgres_password"`
	PostgresDB       string `yaml:"postgres_db"`
	PostgresSSLMode  string `yaml:"postgres_sslmode"`
}

type ReferenceConfig struct {
	HospitalCatalog string `yaml:"hospital_catalog"`
	DiagnosisCodes  string `yaml:"diagnosis_codes"`
	DistanceMatrix  string `yaml:"distance_matrix"`
	// GeodesicMatrix and RoadMatrix point at the historical wide-form pair.
	// When both are set they take precedence over DistanceMatrix.
	GeodesicMatrix string `yaml:"geodesic_matrix"`
	RoadMatrix     string `yaml:"road_matrix"`
	Flights        string `yaml:"flights"`
	WeatherReports string `yaml:"weather_reports"`
}

type LinkageConfig struct {
	ForwardWindow   Duration `yaml:"forward_window"`
	EarlyCutoffHour int      `yaml:"early_cutoff_hour"`
	MaxPrimaryStay  Duration `yaml:"max_primary_stay"`
}

type ModalityConfig struct {
	FlightWindow Duration `yaml:"flight_window"`
}

type WeatherConfig struct {
	MinCeilingFt    float64  `yaml:"min_ceiling_ft"`
	MinVisibilityM  float64  `yaml:"min_visibility_m"`
	MaxReportOffset Duration `yaml:"max_report_offset"`
}

type CohortConfig struct {
	MinRoadKM float64 `yaml:"min_road_km"`
	// MinSiteTransfers is intentionally per-run configuration: the source
	// analyses use 5 in the main pipeline and 4 in a variant, and the
	// divergence is preserved rather than unified.
	MinSiteTransfers int    `yaml:"min_site_transfers"`
	StudyStart       string `yaml:"study_start"`
	OutputPath       string `yaml:"output_path"`
	FlowReportPath   string `yaml:"flow_report_path"`
}

type Config struct {
	Source    SourceConfig    `yaml:"source"`
	Reference ReferenceConfig `yaml:"reference"`
	Linkage   LinkageConfig   `yaml:"linkage"`
	Modality  ModalityConfig  `yaml:"modality"`
	Weather   WeatherConfig   `yaml:"weather"`
	Cohort    CohortConfig    `yaml:"cohort"`
}

func Default() *Config {
	return &Config{
		Source: SourceConfig{
			Driver:           getEnv("SOURCE_DRIVER", "sqlite"),
			SQLitePath:       getEnv("SOURCE_SQLITE_PATH", "data/registry.db"),
			AdmissionsCSV:    getEnv("SOURCE_ADMISSIONS_CSV", ""),
			TertiaryCSV:      getEnv("SOURCE_TERTIARY_CSV", ""),
			PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
			PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
			PostgresUser:     getEnv("POSTGRES_USER", "registry"),
			PostgresPassword: getEnv("POSTGRES_PASSWORD", ""),
			PostgresDB:       getEnv("POSTGRES_DB", "registry"),
			PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
		},
		Reference: ReferenceConfig{
			HospitalCatalog: getEnv("REF_HOSPITAL_CATALOG", "reference/hospitals.yaml"),
			DiagnosisCodes:  getEnv("REF_DIAGNOSIS_CODES", "reference/diagnosis_codes.yaml"),
			DistanceMatrix:  getEnv("REF_DISTANCE_MATRIX", "reference/distances.csv"),
			GeodesicMatrix:  getEnv("REF_GEODESIC_MATRIX", ""),
			RoadMatrix:      getEnv("REF_ROAD_MATRIX", ""),
			Flights:         getEnv("REF_FLIGHTS", "reference/flights.csv"),
			WeatherReports:  getEnv("REF_WEATHER_REPORTS", "reference/metar.csv"),
		},
		Linkage: LinkageConfig{
			ForwardWindow:   Duration(getDuration("LINKAGE_FORWARD_WINDOW", 24*time.Hour)),
			EarlyCutoffHour: getIntEnv("LINKAGE_EARLY_CUTOFF_HOUR", 4),
			MaxPrimaryStay:  Duration(getDuration("LINKAGE_MAX_PRIMARY_STAY", 24*time.Hour)),
		},
		Modality: ModalityConfig{
			FlightWindow: Duration(getDuration("MODALITY_FLIGHT_WINDOW", 3*time.Hour)),
		},
		Weather: WeatherConfig{
			MinCeilingFt:    getFloatEnv("WEATHER_MIN_CEILING_FT", 500),
			MinVisibilityM:  getFloatEnv("WEATHER_MIN_VISIBILITY_M", 5000),
			MaxReportOffset: Duration(getDuration("WEATHER_MAX_REPORT_OFFSET", 90*time.Minute)),
		},
		Cohort: CohortConfig{
			MinRoadKM:        getFloatEnv("COHORT_MIN_ROAD_KM", 49),
			MinSiteTransfers: getIntEnv("COHORT_MIN_SITE_TRANSFERS", 5),
			StudyStart:       getEnv("COHORT_STUDY_START", ""),
			OutputPath:       getEnv("COHORT_OUTPUT_PATH", "out/cohort.csv"),
			FlowReportPath:   getEnv("COHORT_FLOW_REPORT_PATH", "out/flow_report.csv"),
		},
	}
}

// Load reads the YAML config at path on top of defaults. Environment
// variables seed the defaults, so a value set in the file wins over the
// environment, and both win over the built-in fallbacks.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	content, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(content, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

func (c *Config) Validate() error {
	if c.Linkage.ForwardWindow <= 0 {
		return fmt.Errorf("linkage forward_window must be positive")
	}
	if c.Linkage.EarlyCutoffHour < 0 || c.Linkage.EarlyCutoffHour > 23 {
		return fmt.Errorf("linkage early_cutoff_hour must be in [0,23]")
	}
	if c.Linkage.MaxPrimaryStay <= 0 {
		return fmt.Errorf("linkage max_primary_stay must be positive")
	}
	if c.Modality.FlightWindow <= 0 {
		return fmt.Errorf("modality flight_window must be positive")
	}
	if (c.Reference.GeodesicMatrix == "") != (c.Reference.RoadMatrix == "") {
		return fmt.Errorf("reference geodesic_matrix and road_matrix must be set together")
	}
	if c.Cohort.MinSiteTransfers < 1 {
		return fmt.Errorf("cohort min_site_transfers must be at least 1")
	}
	if c.Cohort.StudyStart != "" {
		if _, err := time.Parse("2006-01-02", c.Cohort.StudyStart); err != nil {
			return fmt.Errorf("cohort study_start: %w", err)
		}
	}
	switch c.Source.Driver {
	case "sqlite", "postgres":
	case "csv":
		if c.Source.AdmissionsCSV == "" || c.Source.TertiaryCSV == "" {
			return fmt.Errorf("csv source requires admissions_csv and tertiary_csv")
		}
	default:
		return fmt.Errorf("source driver '%s' not supported", c.Source.Driver)
	}
	return nil
}

// StudyStartTime returns the configured study start as a UTC instant, or the
// zero time when no date restriction is configured.
func (c *Config) StudyStartTime() time.Time {
	if c.Cohort.StudyStart == "" {
		return time.Time{}
	}
	t, err := time.Parse("2006-01-02", c.Cohort.StudyStart)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
