package diagnosis

import (
	"strings"
)

// Group labels for the compound rules. Direct groups take their label from
// the catalog set key, uppercased.
const (
	GroupTBI = "TBI"
	GroupSDH = "SDH"
	GroupCFX = "CFX"
)

// Classifier maps an ordered ICD-10 code list to exactly one diagnosis group.
// The compound rules (TBI, SDH, CFX) are tried in a fixed precedence before
// the direct-membership groups; the first match wins, so classification is
// total and idempotent over the configured sets.
type Classifier struct {
	catalog Catalog
	// normalized member lists per set, matched by prefix so a set entry
	// "S06.5" covers "S06.5X" subcodes
	members map[string][]string
}

func NewClassifier(catalog Catalog) (*Classifier, error) {
	if err := catalog.Validate(); err != nil {
		return nil, err
	}
	members := make(map[string][]string, len(catalog.Sets))
	for set, codes := range catalog.Sets {
		normalized := make([]string, 0, len(codes))
		for _, code := range codes {
			if n := NormalizeCode(code); n != "" {
				normalized = append(normalized, n)
			}
		}
		members[set] = normalized
	}
	return &Classifier{catalog: catalog, members: members}, nil
}

func (c *Classifier) inSet(set, code string) bool {
	n := NormalizeCode(code)
	if n == "" {
		return false
	}
	for _, member := range c.members[set] {
		if strings.HasPrefix(n, member) {
			return true
		}
	}
	return false
}

func (c *Classifier) anyInSet(set string, codes []string) bool {
	for _, code := range codes {
		if c.inSet(set, code) {
			return true
		}
	}
	return false
}

// Classify returns the diagnosis group for a primary code and its ordered
// secondaries. ok is false when no configured set matches; such records are
// excluded from the NSICU-relevant cohort rather than labeled "unclassified".
func (c *Classifier) Classify(primary string, secondaries []string) (string, bool) {
	if NormalizeCode(primary) == "" {
		return "", false
	}

	// TBI outranks everything: directly, or a skull/cervical fracture with a
	// TBI secondary, unless the primary is trauma to another body part.
	if c.inSet(setTBI, primary) {
		return GroupTBI, true
	}
	if c.inSet(setSkullFracture, primary) &&
		c.anyInSet(setTBI, secondaries) &&
		!c.inSet(setOtherTrauma, primary) {
		return GroupTBI, true
	}

	// Non-traumatic SDH is reclassified as TBI when a TBI secondary is present.
	if c.inSet(setSDH, primary) {
		if c.anyInSet(setTBI, secondaries) {
			return GroupTBI, true
		}
		return GroupSDH, true
	}

	// Isolated cervical fracture, same reclassification rule.
	if c.inSet(setCervicalFx, primary) {
		if c.anyInSet(setTBI, secondaries) {
			return GroupTBI, true
		}
		return GroupCFX, true
	}

	for _, group := range c.catalog.DirectOrder {
		if c.inSet(group, primary) {
			return strings.ToUpper(group), true
		}
	}
	return "", false
}
