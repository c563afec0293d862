package database

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/safar/retail-store/internal/errs"
)

type ErrorClass int

const (
	ErrorClassPermanent ErrorClass = iota
	ErrorClassTransient
	ErrorClassDeadlock
	ErrorClassSerialization
)

func ClassifyError(err error) ErrorClass {
	if err == nil {
		return ErrorClassPermanent
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "40001":
			return ErrorClassSerialization
		case "40P01":
			return ErrorClassDeadlock
		case "55P03":
			return ErrorClassTransient
		case "23505", "23503", "23502", "23514":
			return ErrorClassPermanent
		}
	}

	if errors.Is(err, sql.ErrNoRows) {
		return ErrorClassPermanent
	}

	return ErrorClassPermanent
}

func IsRetryable(err error) bool {
	class := ClassifyError(err)
	return class == ErrorClassTransient ||
		class == ErrorClassDeadlock ||
		class == ErrorClassSerialization
}

// Translate maps constraint violations reported by Postgres onto the error
// kinds in package errs. Other errors are returned unchanged.
func Translate(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}

	switch pqErr.Code {
	case "23505":
		return fmt.Errorf("%w: duplicate value violates %s", errs.ErrConflict, pqErr.Constraint)
	case "23503":
		return fmt.Errorf("referenced record %w (%s)", errs.ErrNotFound, pqErr.Constraint)
	case "23514", "23502":
		return fmt.Errorf("%w: %s", errs.ErrValidation, pqErr.Message)
	case "22P02":
		return fmt.Errorf("%w: %s", errs.ErrValidation, pqErr.Message)
	}
	return err
}

var (
	ErrUserNotFound         = errs.NotFound("user")
	ErrProductNotFound      = errs.NotFound("product")
	ErrOrderNotFound        = errs.NotFound("order")
	ErrOptimisticLockFailed = fmt.Errorf("%w: optimistic lock failed", errs.ErrConflict)
	ErrLockTimeout          = fmt.Errorf("%w: row lock not available", errs.ErrConflict)
)
