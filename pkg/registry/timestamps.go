package registry

import (
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// parseExtractTime parses a registry timestamp leniently. The two registries
// feeding the extract disagree on timestamp formatting, so exact layouts are
// not assumed. Returns nil for empty or unparsable values.
func parseExtractTime(raw string) *time.Time {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil
	}
	t, err := dateparse.ParseIn(trimmed, time.UTC)
	if err != nil {
		return nil
	}
	t = t.UTC()
	return &t
}
