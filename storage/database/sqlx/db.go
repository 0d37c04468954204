// Package sqlxrepos implements the core repositories on postgres.
package sqlxrepos

import (
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/staffroom/core"
)

const (
	uniqueViolation = "23505"
	dateLayout      = "2006-01-02"
)

// NewDB wraps an opened postgres connection.
func NewDB(db *sql.DB) *sqlx.DB {
	return sqlx.NewDb(db, "postgres")
}

// storeErr maps "no rows" to `notFound` and wraps any other failure in a *core.StoreError.
func storeErr(err error, notFound error, op string) error {
	if err == nil {
		return nil
	}
	if errors.Cause(err) == sql.ErrNoRows {
		return notFound
	}
	return core.NewStoreError(err, op)
}

func isUniqueViolation(err error) bool {
	pqErr, ok := errors.Cause(err).(*pq.Error)
	return ok && pqErr.Code == uniqueViolation
}

func utc(t time.Time) time.Time {
	return t.UTC()
}
