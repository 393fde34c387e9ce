package diagnosis

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Catalog holds the ICD-10 code sets driving classification. The sets are
// externally maintained so the decision logic stays free of embedded code
// literals and can be tested against synthetic tables.
//
// Required set keys: tbi, skull_cervical_fracture, other_body_trauma,
// sdh_nontraumatic, cervical_fracture. DirectOrder lists the remaining
// groups in the precedence they are tried after the compound rules.
type Catalog struct {
	Sets        map[string][]string `yaml:"sets"`
	DirectOrder []string            `yaml:"direct_order"`
}

const (
	setTBI           = "tbi"
	setSkullFracture = "skull_cervical_fracture"
	setOtherTrauma   = "other_body_trauma"
	setSDH           = "sdh_nontraumatic"
	setCervicalFx    = "cervical_fracture"
)

func LoadCatalog(path string) (Catalog, error) {
	content, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return Catalog{}, fmt.Errorf("read diagnosis catalog: %w", err)
	}
	var cat Catalog
	if err := yaml.Unmarshal(content, &cat); err != nil {
		return Catalog{}, fmt.Errorf("parse diagnosis catalog: %w", err)
	}
	if err := cat.Validate(); err != nil {
		return Catalog{}, err
	}
	return cat, nil
}

func (c Catalog) Validate() error {
	if len(c.Sets) == 0 {
		return fmt.Errorf("diagnosis catalog empty")
	}
	for _, required := range []string{setTBI, setSkullFracture, setOtherTrauma, setSDH, setCervicalFx} {
		if len(c.Sets[required]) == 0 {
			return fmt.Errorf("diagnosis catalog: set %q missing or empty", required)
		}
	}
	for _, group := range c.DirectOrder {
		if len(c.Sets[group]) == 0 {
			return fmt.Errorf("diagnosis catalog: direct group %q has no code set", group)
		}
	}
	return nil
}

// NormalizeCode uppercases an ICD-10 code and strips the dot, so "S06.5" and
// "s065" compare equal.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(code), ".", ""))
}

// DefaultCatalog ships the NSICU-relevant code sets used by the cohort
// analyses. Production runs load the reviewed catalog file instead.
func DefaultCatalog() Catalog {
	return Catalog{
		Sets: map[string][]string{
			setTBI:           {"S06.1", "S06.2", "S06.3", "S06.4", "S06.5", "S06.6", "S06.7", "S06.8", "S06.9"},
			setSkullFracture: {"S02.0", "S02.1", "S12"},
			setOtherTrauma:   {"S22", "S32", "S42", "S52", "S62", "S72", "S82", "S92"},
			setSDH:           {"I62.0"},
			setCervicalFx:    {"S12.0", "S12.1", "S12.2", "S12.7", "S12.9"},
			"asah":           {"I60"},
			"ich":            {"I61"},
			"ais":            {"I63"},
			"abm":            {"G00", "G04.2"},
			"avm":            {"Q28.2", "Q28.3"},
			"cvt":            {"I67.6", "G08"},
			"tum":            {"C71", "C79.3", "D32", "D33", "D43"},
			"hc":             {"G91"},
			"sep":            {"A41", "R65.1"},
		},
		DirectOrder: []string{"asah", "ich", "ais", "abm", "avm", "cvt", "tum", "hc", "sep"},
	}
}
