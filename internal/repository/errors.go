package repository

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

var (
	// ErrStaleWrite reports an update whose expected updated_at no longer
	// matches the stored row.
	ErrStaleWrite = errors.New("record was modified concurrently")
	// ErrDuplicate reports a unique constraint violation.
	ErrDuplicate = errors.New("record already exists")
)

const uniqueViolation = "23505"

// classify maps driver errors onto repository sentinels, keeping the original
// error in the chain.
func classify(op string, err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return fmt.Errorf("%s: %w: %s", op, ErrDuplicate, pqErr.Constraint)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func expectOneRow(res sql.Result, none error) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return none
	}
	return nil
}
