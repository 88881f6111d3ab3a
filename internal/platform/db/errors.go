package db

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrConcurrencyConflict indicates the transaction lost a serialization
	// or deadlock race and the caller should retry the whole operation.
	ErrConcurrencyConflict = errors.New("db: concurrent update conflict")
	// ErrTransactionFailed wraps infrastructure failures inside a transaction.
	// Validation errors are never wrapped; they reach the caller verbatim.
	ErrTransactionFailed = errors.New("db: transaction failed")
	// ErrDuplicate indicates a unique constraint violation.
	ErrDuplicate = errors.New("db: duplicate entry")
)

// Postgres error codes checked by MapError.
const (
	codeUniqueViolation     = "23505"
	codeSerializationFail   = "40001"
	codeDeadlockDetected    = "40P01"
	codeLockNotAvailable    = "55P03"
	codeQueryCanceledByUser = "57014"
)

// MapError converts low-level pgx errors into platform sentinels.
func MapError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeUniqueViolation:
			return fmt.Errorf("%w: %s", ErrDuplicate, pgErr.ConstraintName)
		case codeSerializationFail, codeDeadlockDetected, codeLockNotAvailable:
			return fmt.Errorf("%w: %s", ErrConcurrencyConflict, pgErr.Code)
		}
	}
	return fmt.Errorf("%w: %v", ErrTransactionFailed, err)
}
