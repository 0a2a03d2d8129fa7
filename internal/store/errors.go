// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package store

import "errors"

// Sentinel errors returned by repository methods to signal well-known failure
// conditions. Callers should use [errors.Is] to match against these values.
var (
	// ErrRecordNotFound is returned when a record is unknown, or when a
	// caller tries to modify a tombstone.
	ErrRecordNotFound = errors.New("record not found")

	// ErrRecordChanged is returned when a record was modified between the
	// read and the write of a read-modify-write operation.
	ErrRecordChanged = errors.New("record changed concurrently")

	// ErrUnknownEntityType is returned for entity types that have no table.
	ErrUnknownEntityType = errors.New("unknown entity type")

	// ErrQueueEntryNotFound is returned when a queue entry id does not exist.
	ErrQueueEntryNotFound = errors.New("queue entry not found")

	// ErrQueueEntryNotFailed is returned when retrying an entry that is not
	// in the failed state.
	ErrQueueEntryNotFailed = errors.New("queue entry is not failed")

	// ErrConflictNotFound is returned when a conflict id does not exist.
	ErrConflictNotFound = errors.New("conflict not found")

	// ErrConflictAlreadyResolved is returned when resolving a conflict that
	// already carries a resolution.
	ErrConflictAlreadyResolved = errors.New("conflict already resolved")
)

// Low-level database operation errors. These are returned (or wrapped) by
// repository methods when a SQL-level operation fails before any domain logic
// can be applied.
var (
	// ErrBuildingSQLQuery is returned when constructing a parameterised SQL
	// query fails.
	ErrBuildingSQLQuery = errors.New("error building sql query")

	// ErrExecutingQuery is returned when executing a SELECT fails.
	ErrExecutingQuery = errors.New("error executing sql query")

	// ErrBeginningTransaction is returned when the driver cannot start a
	// transaction.
	ErrBeginningTransaction = errors.New("failed to begin transaction")

	// ErrCommitingTransaction is returned when committing an open transaction
	// fails. The transaction is considered rolled back at this point.
	ErrCommitingTransaction = errors.New("failed to commit transaction")

	// ErrExecutingStatement is returned when an INSERT, UPDATE or DELETE
	// fails.
	ErrExecutingStatement = errors.New("failed to execute statement")

	// ErrScanningRow is returned when scanning a single result row fails.
	ErrScanningRow = errors.New("failed to scan row")

	// ErrScanningRows is returned when iterating a multi-row result fails.
	ErrScanningRows = errors.New("failed to scan rows")
)
