package reference

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Hospital is one site in the transfer network: a sending ICU or a receiving
// tertiary center. MetarStation pins the site's reporting station; when
// empty, the nearest station by great-circle distance is used instead.
type Hospital struct {
	Name         string  `yaml:"name"`
	Latitude     float64 `yaml:"latitude"`
	Longitude    float64 `yaml:"longitude"`
	Tertiary     bool    `yaml:"tertiary"`
	MetarStation string  `yaml:"metar_station"`
}

type HospitalCatalog struct {
	Hospitals map[string]Hospital `yaml:"hospitals"`
}

func LoadHospitals(path string) (HospitalCatalog, error) {
	content, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return HospitalCatalog{}, fmt.Errorf("read hospital catalog: %w", err)
	}
	var cat HospitalCatalog
	if err := yaml.Unmarshal(content, &cat); err != nil {
		return HospitalCatalog{}, fmt.Errorf("parse hospital catalog: %w", err)
	}
	if len(cat.Hospitals) == 0 {
		return HospitalCatalog{}, fmt.Errorf("hospital catalog empty")
	}
	return cat, nil
}

func (c HospitalCatalog) Lookup(key string) (Hospital, bool) {
	if c.Hospitals == nil {
		return Hospital{}, false
	}
	if h, ok := c.Hospitals[key]; ok {
		return h, true
	}
	for k, h := range c.Hospitals {
		if strings.EqualFold(k, key) {
			return h, true
		}
	}
	return Hospital{}, false
}

// Resolve is Lookup with the missing-key error attached, for call sites that
// treat an unknown site as a per-record data error.
func (c HospitalCatalog) Resolve(key string) (Hospital, error) {
	h, ok := c.Lookup(key)
	if !ok {
		return Hospital{}, MissingReferenceError{Kind: "hospital", Key: key}
	}
	return h, nil
}
