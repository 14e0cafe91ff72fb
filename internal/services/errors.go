package services

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// Domain error kinds. Every rejected operation wraps one of these, with
// a message naming the invariant that failed, and performs no partial
// mutation; callers may retry with corrected input.
var (
	ErrInvalidRequest     = errors.New("invalid request")
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrAlreadySettled     = errors.New("already settled")
	ErrUnknownPlayer      = errors.New("unknown player")
	ErrUnknownBet         = errors.New("unknown bet")
	ErrUnknownUser        = errors.New("unknown user")
	ErrStorageUnavailable = errors.New("storage unavailable")
)

// invalidf wraps ErrInvalidRequest with the specific violated invariant.
func invalidf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidRequest, fmt.Sprintf(format, args...))
}

const storageRetryAttempts = 3

// runInTransaction executes fn in a database transaction, retrying
// transient storage conflicts a bounded number of times before surfacing
// ErrStorageUnavailable. Domain errors abort immediately.
func runInTransaction(db *gorm.DB, fn func(tx *gorm.DB) error) error {
	var err error
	for attempt := 0; attempt < storageRetryAttempts; attempt++ {
		err = db.Transaction(fn)
		if err == nil || !isRetryableStorageError(err) {
			return err
		}
	}
	return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
}

// isRetryableStorageError matches serialization conflicts from postgres
// and lock contention from sqlite. Both drivers report these as plain
// driver errors, so we match on the message.
func isRetryableStorageError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "deadlock detected") ||
		strings.Contains(msg, "could not serialize access") ||
		strings.Contains(msg, "database is locked")
}
