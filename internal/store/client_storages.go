// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/MKhiriev/go-sync-keeper/internal/config"
	"github.com/MKhiriev/go-sync-keeper/internal/logger"
	"github.com/MKhiriev/go-sync-keeper/internal/utils"
)

// ClientStorages groups the local repositories into a single value that can
// be passed around the service layer.
type ClientStorages struct {
	Records    RecordRepository
	Queue      QueueRepository
	Conflicts  ConflictRepository
	Checkpoint CheckpointRepository

	db     *DB
	inTx   bool
	clock  utils.Clock
	logger *logger.Logger
}

// NewClientStorages initialises the local storage layer:
//  1. Opens an SQLite connection using cfg.DB, creating the database file if
//     it does not yet exist.
//  2. Runs pending schema migrations via [DB.Migrate].
//  3. Wires every repository to the connection.
func NewClientStorages(ctx context.Context, cfg config.ClientStorage, clock utils.Clock, logger *logger.Logger) (*ClientStorages, error) {
	logger.Info().Msg("creating new storages...")

	db, err := NewConnectSQLite(ctx, cfg.DB, logger)
	if err != nil {
		return nil, fmt.Errorf("sqlite connection error: %w", err)
	}

	if err = db.Migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	return NewClientStoragesFromDB(db, clock, logger), nil
}

// NewClientStoragesFromDB wires the repositories to an already opened and
// migrated database.
func NewClientStoragesFromDB(db *DB, clock utils.Clock, logger *logger.Logger) *ClientStorages {
	s := &ClientStorages{db: db, clock: clock, logger: logger}
	s.bind(db)
	return s
}

func (s *ClientStorages) bind(q DBTX) {
	s.Records = NewRecordRepository(q, s.clock, s.logger)
	s.Queue = NewQueueRepository(q, s.clock, s.logger)
	s.Conflicts = NewConflictRepository(q, s.clock, s.logger)
	s.Checkpoint = NewCheckpointRepository(q, s.clock, s.logger)
}

// InTx runs fn with repositories bound to a single transaction. Nested calls
// and storages built without a database (e.g. mocks in tests) run fn
// directly.
//
// The pool holds a single connection, so fn must only use the repositories
// it receives; calling the outer ones would wait forever for the connection.
func (s *ClientStorages) InTx(ctx context.Context, fn func(tx *ClientStorages) error) error {
	if s.db == nil || s.inTx {
		return fn(s)
	}

	return s.db.WithTx(ctx, func(sqlTx *sql.Tx) error {
		tx := &ClientStorages{db: s.db, inTx: true, clock: s.clock, logger: s.logger}
		tx.bind(sqlTx)
		return fn(tx)
	})
}

// Close releases the database connection.
func (s *ClientStorages) Close() error {
	if s.db == nil || s.inTx {
		return nil
	}
	return s.db.Close()
}
