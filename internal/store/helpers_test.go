// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package store

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/MKhiriev/go-sync-keeper/internal/config"
	"github.com/MKhiriev/go-sync-keeper/internal/logger"
	"github.com/MKhiriev/go-sync-keeper/internal/utils"
	"github.com/stretchr/testify/require"
)

var testEpoch = time.UnixMilli(1_760_000_000_000)

// newTestStorages opens a migrated in-memory database on the pure Go driver.
func newTestStorages(t *testing.T) (*ClientStorages, *time.Time) {
	t.Helper()

	clock, now := utils.FixedClock(testEpoch)
	s, err := NewClientStorages(context.Background(), config.ClientStorage{
		DB: config.ClientDB{DSN: ":memory:", Driver: config.DriverModernc},
	}, clock, logger.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	return s, now
}

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}
