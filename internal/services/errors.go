package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
	"gorm.io/gorm"
)

// ValidationError reports malformed or missing input
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// ConflictError reports a uniqueness violation
type ConflictError struct {
	Entity string
	Detail string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s conflict: %s", e.Entity, e.Detail)
}

// NotFoundError reports referenced entities or relation pairs that do not exist
type NotFoundError struct {
	Entity string
	IDs    []uint
}

func (e *NotFoundError) Error() string {
	if len(e.IDs) == 0 {
		return e.Entity + " not found"
	}
	ids := make([]string, len(e.IDs))
	for i, id := range e.IDs {
		ids[i] = fmt.Sprint(id)
	}
	return fmt.Sprintf("%s not found: %s", e.Entity, strings.Join(ids, ", "))
}

// AuthorizationError reports a mutation of an entity the caller does not own
type AuthorizationError struct {
	Action     string
	ResourceID uint
}

func (e *AuthorizationError) Error() string {
	return fmt.Sprintf("not allowed to %s resource %d", e.Action, e.ResourceID)
}

// TransientStoreError reports a timeout or contention failure; safe to retry
type TransientStoreError struct {
	Op  string
	Err error
}

func (e *TransientStoreError) Error() string {
	return fmt.Sprintf("%s: store temporarily unavailable: %v", e.Op, e.Err)
}

func (e *TransientStoreError) Unwrap() error {
	return e.Err
}

// translateStoreError maps driver and gorm errors onto the service taxonomy.
// Errors that already belong to the taxonomy pass through untouched.
func translateStoreError(err error, op, entity string) error {
	if err == nil {
		return nil
	}

	var (
		validationErr *ValidationError
		conflictErr   *ConflictError
		notFoundErr   *NotFoundError
		authErr       *AuthorizationError
		transientErr  *TransientStoreError
	)
	switch {
	case errors.As(err, &validationErr), errors.As(err, &conflictErr), errors.As(err, &notFoundErr),
		errors.As(err, &authErr), errors.As(err, &transientErr):
		return err
	case errors.Is(err, gorm.ErrRecordNotFound):
		return &NotFoundError{Entity: entity}
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return &ConflictError{Entity: entity, Detail: "already exists"}
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return &NotFoundError{Entity: "referenced entity"}
	case isTransient(err):
		return &TransientStoreError{Op: op, Err: err}
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}

// isTransient reports lock timeouts, deadlocks, serialization failures and busy databases
func isTransient(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "55P03", // lock_not_available
			"40001", // serialization_failure
			"40P01", // deadlock_detected
			"57014": // query_canceled
			return true
		}
		return false
	}

	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked
	}
	return false
}

// sortedIDs returns a sorted copy, used to report missing ids deterministically
func sortedIDs(ids []uint) []uint {
	out := append([]uint(nil), ids...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
