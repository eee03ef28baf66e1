package repository

import (
	"database/sql"
	"errors"

	"github.com/lib/pq"
)

// invalidTextRepresentation is raised when an id cannot be parsed as a uuid.
const invalidTextRepresentation = "22P02"

// isMissing reports whether err means the addressed row cannot exist: either
// no row matched, or the id was not a valid uuid.
func isMissing(err error) bool {
	if errors.Is(err, sql.ErrNoRows) {
		return true
	}
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == invalidTextRepresentation
}
