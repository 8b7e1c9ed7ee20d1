package git

import (
	"errors"
	"fmt"
)

var (
	// ErrRevisionNotFound is returned when a revision does not name an object.
	ErrRevisionNotFound = errors.New("revision not found")
	// ErrOracleUnavailable is returned when the repository cannot be queried at all.
	ErrOracleUnavailable = errors.New("revision oracle unavailable")
)

// OracleError wraps any failure of an oracle query.
type OracleError struct {
	Op       string
	Revision RevisionID
	Err      error
}

func (e *OracleError) Error() string {
	if e.Revision != "" {
		return fmt.Sprintf("oracle %s %s: %v", e.Op, e.Revision.Short(), e.Err)
	}
	return fmt.Sprintf("oracle %s: %v", e.Op, e.Err)
}

func (e *OracleError) Unwrap() error {
	return e.Err
}

// IsOracleError reports whether err came from an oracle query.
func IsOracleError(err error) bool {
	var oe *OracleError
	return errors.As(err, &oe)
}
