package reference

import (
	"errors"
	"fmt"
)

// MissingReferenceError reports a lookup whose key has no entry in the
// reference data. The affected record is excluded from the output; the key is
// carried so it can be logged rather than coerced to a default.
type MissingReferenceError struct {
	Kind string
	Key  string
}

func (e MissingReferenceError) Error() string {
	return fmt.Sprintf("missing %s reference for %q", e.Kind, e.Key)
}

func IsMissingReference(err error) bool {
	var mre MissingReferenceError
	return errors.As(err, &mre)
}
