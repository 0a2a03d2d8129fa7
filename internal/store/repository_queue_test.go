// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/MKhiriev/go-sync-keeper/internal/logger"
	"github.com/MKhiriev/go-sync-keeper/internal/utils"
	"github.com/MKhiriev/go-sync-keeper/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func enqueue(t *testing.T, s *ClientStorages, typ models.EntityType, id string, op models.Operation, version int64, priority int) models.QueueEntry {
	t.Helper()
	entry, err := s.Queue.Enqueue(context.Background(), models.QueueEntry{
		EntityType:    typ,
		EntityID:      id,
		Operation:     op,
		Payload:       models.Payload{"v": version},
		EntityVersion: version,
		Priority:      priority,
	})
	require.NoError(t, err)
	return entry
}

// ── Enqueue coalescing ───────────────────────────────────────────────────────

func TestQueueRepository_CoalescesPendingEntries(t *testing.T) {
	tests := []struct {
		name string
		ops  []models.Operation
		want models.Operation
	}{
		{name: "create then update", ops: []models.Operation{models.OperationCreate, models.OperationUpdate}, want: models.OperationCreate},
		{name: "update then update", ops: []models.Operation{models.OperationUpdate, models.OperationUpdate}, want: models.OperationUpdate},
		{name: "update then delete", ops: []models.Operation{models.OperationUpdate, models.OperationDelete}, want: models.OperationDelete},
		{name: "create then delete", ops: []models.Operation{models.OperationCreate, models.OperationDelete}, want: models.OperationDelete},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newTestStorages(t)

			var first models.QueueEntry
			for i, op := range tt.ops {
				e := enqueue(t, s, models.EntityPatient, "p-1", op, int64(i+1), 0)
				if i == 0 {
					first = e
				}
			}

			all, err := s.Queue.List(context.Background())
			require.NoError(t, err)
			require.Len(t, all, 1)
			assert.Equal(t, first.ID, all[0].ID)
			assert.Equal(t, tt.want, all[0].Operation)
			assert.Equal(t, int64(len(tt.ops)), all[0].EntityVersion)
			assert.Equal(t, first.EnqueuedAt, all[0].EnqueuedAt)
		})
	}
}

func TestQueueRepository_DoesNotCoalesceInFlight(t *testing.T) {
	s, _ := newTestStorages(t)
	ctx := context.Background()

	enqueue(t, s, models.EntityPatient, "p-1", models.OperationCreate, 1, 0)
	batch, err := s.Queue.DequeueBatch(ctx, 10, testEpoch.UnixMilli(), testEpoch.UnixMilli())
	require.NoError(t, err)
	require.Len(t, batch, 1)

	enqueue(t, s, models.EntityPatient, "p-1", models.OperationUpdate, 2, 0)

	all, err := s.Queue.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	pending, err := s.Queue.CountPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), pending)
}

// hookDBTX calls before ahead of every statement whose text starts with
// prefix.
type hookDBTX struct {
	DBTX
	prefix string
	before func(ctx context.Context)
}

func (h hookDBTX) fire(ctx context.Context, query string) {
	if h.before != nil && strings.HasPrefix(query, h.prefix) {
		h.before(ctx)
	}
}

func (h hookDBTX) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	h.fire(ctx, query)
	return h.DBTX.ExecContext(ctx, query, args...)
}

func (h hookDBTX) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	h.fire(ctx, query)
	return h.DBTX.QueryContext(ctx, query, args...)
}

func (h hookDBTX) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	h.fire(ctx, query)
	return h.DBTX.QueryRowContext(ctx, query, args...)
}

func TestQueueRepository_EditDuringClaimIsNotLost(t *testing.T) {
	s, _ := newTestStorages(t)
	ctx := context.Background()
	now := testEpoch.UnixMilli()

	enqueue(t, s, models.EntityPatient, "p-1", models.OperationUpdate, 1, 0)

	fired := false
	claimer := NewQueueRepository(hookDBTX{
		DBTX:   s.db,
		prefix: "UPDATE " + queueTable,
		before: func(ctx context.Context) {
			if fired {
				return
			}
			fired = true
			_, err := s.Queue.Enqueue(ctx, models.QueueEntry{
				EntityType:    models.EntityPatient,
				EntityID:      "p-1",
				Operation:     models.OperationUpdate,
				Payload:       models.Payload{"phone": "555"},
				EntityVersion: 2,
			})
			require.NoError(t, err)
		},
	}, s.clock, logger.Nop())

	batch, err := claimer.DequeueBatch(ctx, 10, now, now)
	require.NoError(t, err)
	require.True(t, fired)

	// Whatever the edit landed on, the newest payload must be either in the
	// claimed batch or still pending for the next one.
	all, err := s.Queue.List(ctx)
	require.NoError(t, err)

	var newest []models.QueueEntry
	for _, e := range all {
		if e.EntityVersion == 2 {
			newest = append(newest, e)
		}
	}
	require.Len(t, newest, 1)
	assert.Equal(t, "555", newest[0].Payload["phone"])

	for _, e := range batch {
		got, getErr := s.Queue.Get(ctx, e.ID)
		require.NoError(t, getErr)
		assert.Equal(t, models.QueueStatusInFlight, got.Status)
		assert.Equal(t, got.EntityVersion, e.EntityVersion, "claimed entry differs from stored row")
		assert.True(t, got.Payload.Equal(e.Payload))
	}
}

func TestQueueRepository_CoalesceFallsBackToInsertWhenClaimed(t *testing.T) {
	db, mock := newMockDB(t)
	clock, _ := utils.FixedClock(testEpoch)
	repo := NewQueueRepository(db, clock, logger.Nop())

	rows := sqlmock.NewRows(queueColumns).AddRow(
		"q-1", "patients", "p-1", "update", `{"v":1}`, 1, 0, 0, "", "pending", 0, 1000,
	)
	mock.ExpectQuery("SELECT (.+) FROM " + queueTable).WillReturnRows(rows)
	mock.ExpectExec("UPDATE " + queueTable).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO " + queueTable).WillReturnResult(sqlmock.NewResult(0, 1))

	entry, err := repo.Enqueue(context.Background(), models.QueueEntry{
		EntityType:    models.EntityPatient,
		EntityID:      "p-1",
		Operation:     models.OperationUpdate,
		Payload:       models.Payload{"v": 2},
		EntityVersion: 2,
	})
	require.NoError(t, err)
	assert.NotEqual(t, "q-1", entry.ID)
	assert.Equal(t, models.QueueStatusPending, entry.Status)
	assert.Equal(t, int64(2), entry.EntityVersion)
	assert.Equal(t, testEpoch.UnixMilli(), entry.EnqueuedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ── DequeueBatch ─────────────────────────────────────────────────────────────

func TestQueueRepository_DequeueOrderAndCutoff(t *testing.T) {
	s, now := newTestStorages(t)
	ctx := context.Background()

	low := enqueue(t, s, models.EntityNotification, "n-1", models.OperationCreate, 1, 0)
	*now = now.Add(time.Second)
	high := enqueue(t, s, models.EntityReferenceData, "r-1", models.OperationCreate, 1, 10)
	cutoff := now.UnixMilli()
	*now = now.Add(time.Second)
	late := enqueue(t, s, models.EntityPatient, "p-1", models.OperationCreate, 1, 100)

	batch, err := s.Queue.DequeueBatch(ctx, 10, cutoff, now.UnixMilli())
	require.NoError(t, err)
	require.Len(t, batch, 2)
	assert.Equal(t, high.ID, batch[0].ID)
	assert.Equal(t, low.ID, batch[1].ID)
	assert.Equal(t, models.QueueStatusInFlight, batch[0].Status)

	again, err := s.Queue.DequeueBatch(ctx, 10, cutoff, now.UnixMilli())
	require.NoError(t, err)
	assert.Empty(t, again)

	stored, err := s.Queue.Get(ctx, late.ID)
	require.NoError(t, err)
	assert.Equal(t, models.QueueStatusPending, stored.Status)
}

func TestQueueRepository_DequeueRespectsNextAttempt(t *testing.T) {
	s, _ := newTestStorages(t)
	ctx := context.Background()
	now := testEpoch.UnixMilli()

	e := enqueue(t, s, models.EntityPatient, "p-1", models.OperationCreate, 1, 0)
	_, err := s.Queue.MarkFailed(ctx, e.ID, "timeout", false, 5, now+1000)
	require.NoError(t, err)

	batch, err := s.Queue.DequeueBatch(ctx, 10, now, now)
	require.NoError(t, err)
	assert.Empty(t, batch)

	batch, err = s.Queue.DequeueBatch(ctx, 10, now, now+1000)
	require.NoError(t, err)
	assert.Len(t, batch, 1)
}

// ── MarkFailed / Retry / RequeueInFlight ─────────────────────────────────────

func TestQueueRepository_MarkFailedExhaustsRetries(t *testing.T) {
	s, _ := newTestStorages(t)
	ctx := context.Background()

	e := enqueue(t, s, models.EntityPatient, "p-1", models.OperationCreate, 1, 0)

	got, err := s.Queue.MarkFailed(ctx, e.ID, "timeout", false, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, models.QueueStatusPending, got.Status)
	assert.Equal(t, 1, got.AttemptCount)

	got, err = s.Queue.MarkFailed(ctx, e.ID, "timeout", false, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, models.QueueStatusFailed, got.Status)
	assert.Equal(t, "timeout", got.LastError)

	failed, err := s.Queue.CountFailed(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), failed)
}

func TestQueueRepository_PermanentFailureAndRetry(t *testing.T) {
	s, _ := newTestStorages(t)
	ctx := context.Background()

	e := enqueue(t, s, models.EntityPatient, "p-1", models.OperationCreate, 1, 0)

	_, err := s.Queue.Retry(ctx, e.ID)
	assert.ErrorIs(t, err, ErrQueueEntryNotFailed)

	got, err := s.Queue.MarkFailed(ctx, e.ID, "rejected", true, 5, 0)
	require.NoError(t, err)
	assert.Equal(t, models.QueueStatusFailed, got.Status)

	failed, err := s.Queue.ListFailed(ctx, 0)
	require.NoError(t, err)
	require.Len(t, failed, 1)

	retried, err := s.Queue.Retry(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, models.QueueStatusPending, retried.Status)
	assert.Zero(t, retried.AttemptCount)
	assert.Equal(t, "rejected", retried.LastError)

	_, err = s.Queue.Retry(ctx, "missing")
	assert.ErrorIs(t, err, ErrQueueEntryNotFound)
}

func TestQueueRepository_RequeueAndSucceed(t *testing.T) {
	s, _ := newTestStorages(t)
	ctx := context.Background()
	now := testEpoch.UnixMilli()

	a := enqueue(t, s, models.EntityPatient, "p-1", models.OperationCreate, 1, 0)
	b := enqueue(t, s, models.EntityPatient, "p-2", models.OperationCreate, 1, 0)
	_, err := s.Queue.DequeueBatch(ctx, 10, now, now)
	require.NoError(t, err)

	n, err := s.Queue.RequeueInFlight(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	require.NoError(t, s.Queue.MarkSucceeded(ctx, a.ID))
	require.NoError(t, s.Queue.MarkSucceeded(ctx))

	dropped, err := s.Queue.DropForEntity(ctx, models.EntityPatient, "p-2")
	require.NoError(t, err)
	assert.Equal(t, int64(1), dropped)

	_, err = s.Queue.Get(ctx, b.ID)
	assert.ErrorIs(t, err, ErrQueueEntryNotFound)

	pending, err := s.Queue.CountPending(ctx)
	require.NoError(t, err)
	assert.Zero(t, pending)
}

// ── SQL error paths ──────────────────────────────────────────────────────────

func TestQueueRepository_CountError(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewQueueRepository(db, nil, logger.Nop())

	mock.ExpectQuery("SELECT COUNT").WillReturnError(errors.New("database is locked"))

	_, err := repo.CountFailed(context.Background())
	assert.ErrorIs(t, err, ErrScanningRow)
}

func TestQueueRepository_DequeueNonPositiveLimit(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewQueueRepository(db, nil, logger.Nop())

	batch, err := repo.DequeueBatch(context.Background(), 0, 0, 0)
	assert.NoError(t, err)
	assert.Nil(t, batch)
	assert.NoError(t, mock.ExpectationsWereMet())
}
