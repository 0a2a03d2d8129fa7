// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/MKhiriev/go-sync-keeper/internal/logger"
	"github.com/MKhiriev/go-sync-keeper/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ── Create / Get ─────────────────────────────────────────────────────────────

func TestRecordRepository_Create(t *testing.T) {
	s, _ := newTestStorages(t)
	ctx := context.Background()

	e, err := s.Records.Create(ctx, models.EntityPatient, models.Payload{"givenName": "Amara"})
	require.NoError(t, err)

	assert.NotEmpty(t, e.ID)
	assert.Equal(t, int64(1), e.Version)
	assert.True(t, e.Dirty)
	assert.False(t, e.HasRemote())
	assert.Equal(t, testEpoch.UnixMilli(), e.LastModified)

	got, err := s.Records.Get(ctx, models.EntityPatient, e.ID)
	require.NoError(t, err)
	assert.Equal(t, models.EntityPatient, got.Type)
	assert.Equal(t, "Amara", got.Payload["givenName"])
	assert.Nil(t, got.RemoteID)
	assert.Nil(t, got.DeletedAt)
}

func TestRecordRepository_UnknownType(t *testing.T) {
	s, _ := newTestStorages(t)

	_, err := s.Records.Create(context.Background(), models.EntityType("vaccines"), nil)
	assert.ErrorIs(t, err, ErrUnknownEntityType)
}

func TestRecordRepository_GetMissing(t *testing.T) {
	s, _ := newTestStorages(t)

	_, err := s.Records.Get(context.Background(), models.EntityPatient, "nope")
	assert.ErrorIs(t, err, ErrRecordNotFound)
}

// ── Update ───────────────────────────────────────────────────────────────────

func TestRecordRepository_UpdateMergesAndBumpsVersion(t *testing.T) {
	s, now := newTestStorages(t)
	ctx := context.Background()

	e, err := s.Records.Create(ctx, models.EntityPatient, models.Payload{"givenName": "Amara", "sex": "F"})
	require.NoError(t, err)

	*now = now.Add(time.Minute)
	updated, err := s.Records.Update(ctx, models.EntityPatient, e.ID, models.Payload{"phoneNumber": "555", "sex": nil})
	require.NoError(t, err)

	assert.Equal(t, int64(2), updated.Version)
	assert.Equal(t, "Amara", updated.Payload["givenName"])
	assert.Equal(t, "555", updated.Payload["phoneNumber"])
	assert.NotContains(t, updated.Payload, "sex")
	assert.Equal(t, now.UnixMilli(), updated.LastModified)
}

func TestRecordRepository_UpdateTombstoneFails(t *testing.T) {
	s, _ := newTestStorages(t)
	ctx := context.Background()

	e, err := s.Records.Create(ctx, models.EntityPatient, models.Payload{})
	require.NoError(t, err)
	_, err = s.Records.SoftDelete(ctx, models.EntityPatient, e.ID)
	require.NoError(t, err)

	_, err = s.Records.Update(ctx, models.EntityPatient, e.ID, models.Payload{"x": 1})
	assert.ErrorIs(t, err, ErrRecordNotFound)
}

// ── SoftDelete ───────────────────────────────────────────────────────────────

func TestRecordRepository_SoftDeleteIsIdempotent(t *testing.T) {
	s, _ := newTestStorages(t)
	ctx := context.Background()

	e, err := s.Records.Create(ctx, models.EntityNotification, models.Payload{"message": "hi"})
	require.NoError(t, err)

	first, err := s.Records.SoftDelete(ctx, models.EntityNotification, e.ID)
	require.NoError(t, err)
	assert.True(t, first.Deleted)
	assert.NotNil(t, first.DeletedAt)
	assert.Equal(t, int64(2), first.Version)

	second, err := s.Records.SoftDelete(ctx, models.EntityNotification, e.ID)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	live, err := s.Records.List(ctx, models.EntityNotification)
	require.NoError(t, err)
	assert.Empty(t, live)

	dirty, err := s.Records.FindDirty(ctx, models.EntityNotification)
	require.NoError(t, err)
	assert.Len(t, dirty, 1)
}

// ── MarkSynced ───────────────────────────────────────────────────────────────

func TestRecordRepository_MarkSyncedClearsDirtyForAckedVersion(t *testing.T) {
	s, _ := newTestStorages(t)
	ctx := context.Background()

	e, err := s.Records.Create(ctx, models.EntityPatient, models.Payload{"givenName": "Amara"})
	require.NoError(t, err)

	synced, err := s.Records.MarkSynced(ctx, models.EntityPatient, e.ID, "r-1", 1, e.Version)
	require.NoError(t, err)
	assert.False(t, synced.Dirty)
	assert.Equal(t, "r-1", synced.RemoteIDOrEmpty())
	assert.Equal(t, int64(1), synced.RemoteVersion)

	byRemote, err := s.Records.GetByRemoteID(ctx, models.EntityPatient, "r-1")
	require.NoError(t, err)
	assert.Equal(t, e.ID, byRemote.ID)
}

func TestRecordRepository_MarkSyncedKeepsDirtyAfterConcurrentEdit(t *testing.T) {
	s, _ := newTestStorages(t)
	ctx := context.Background()

	e, err := s.Records.Create(ctx, models.EntityPatient, models.Payload{"givenName": "Amara"})
	require.NoError(t, err)
	_, err = s.Records.Update(ctx, models.EntityPatient, e.ID, models.Payload{"familyName": "K."})
	require.NoError(t, err)

	synced, err := s.Records.MarkSynced(ctx, models.EntityPatient, e.ID, "r-1", 1, e.Version)
	require.NoError(t, err)
	assert.True(t, synced.Dirty)
	assert.Equal(t, "r-1", synced.RemoteIDOrEmpty())
}

// ── ApplyRemote ──────────────────────────────────────────────────────────────

func TestRecordRepository_ApplyRemoteInsertsThenOverwrites(t *testing.T) {
	s, _ := newTestStorages(t)
	ctx := context.Background()

	inserted, err := s.Records.ApplyRemote(ctx, models.EntityReferenceData, models.Snapshot{
		RemoteID:   "ref-1",
		Version:    3,
		ModifiedAt: 100,
		Payload:    models.Payload{"code": "BCG"},
	})
	require.NoError(t, err)
	assert.False(t, inserted.Dirty)
	assert.Equal(t, int64(3), inserted.RemoteVersion)

	overwritten, err := s.Records.ApplyRemote(ctx, models.EntityReferenceData, models.Snapshot{
		RemoteID:   "ref-1",
		Version:    4,
		ModifiedAt: 200,
		Payload:    models.Payload{"code": "BCG", "label": "Bacille"},
	})
	require.NoError(t, err)
	assert.Equal(t, inserted.ID, overwritten.ID)
	assert.Equal(t, int64(4), overwritten.RemoteVersion)
	assert.Equal(t, "Bacille", overwritten.Payload["label"])
	assert.Equal(t, int64(200), overwritten.LastModified)
}

func TestRecordRepository_ApplyRemoteToTombstone(t *testing.T) {
	s, _ := newTestStorages(t)
	ctx := context.Background()

	e, err := s.Records.Create(ctx, models.EntityPatient, models.Payload{"givenName": "Amara"})
	require.NoError(t, err)

	got, err := s.Records.ApplyRemoteTo(ctx, models.EntityPatient, e.ID, models.Snapshot{
		RemoteID: "r-1",
		Version:  5,
		Deleted:  true,
	})
	require.NoError(t, err)
	assert.True(t, got.Deleted)
	assert.False(t, got.Dirty)
	assert.NotNil(t, got.DeletedAt)
	assert.Equal(t, "Amara", got.Payload["givenName"])
}

// ── Restore / ReplacePayload ─────────────────────────────────────────────────

func TestRecordRepository_RestoreOverRemoteTombstoneDropsLink(t *testing.T) {
	s, _ := newTestStorages(t)
	ctx := context.Background()

	e, err := s.Records.Create(ctx, models.EntityPatient, models.Payload{"givenName": "Amara"})
	require.NoError(t, err)
	_, err = s.Records.MarkSynced(ctx, models.EntityPatient, e.ID, "r-1", 1, e.Version)
	require.NoError(t, err)

	restored, err := s.Records.Restore(ctx, models.EntityPatient, e.ID, models.Snapshot{RemoteID: "r-1", Version: 2, Deleted: true})
	require.NoError(t, err)
	assert.True(t, restored.Dirty)
	assert.False(t, restored.HasRemote())
	assert.Equal(t, int64(0), restored.RemoteVersion)
}

func TestRecordRepository_RestoreAdoptsRemoteVersion(t *testing.T) {
	s, _ := newTestStorages(t)
	ctx := context.Background()

	e, err := s.Records.Create(ctx, models.EntityPatient, models.Payload{"givenName": "Amara"})
	require.NoError(t, err)

	restored, err := s.Records.Restore(ctx, models.EntityPatient, e.ID, models.Snapshot{RemoteID: "r-9", Version: 7})
	require.NoError(t, err)
	assert.Equal(t, int64(7), restored.RemoteVersion)
	assert.Equal(t, "r-9", restored.RemoteIDOrEmpty())
	assert.Equal(t, e.Version+1, restored.Version)
}

func TestRecordRepository_ReplacePayloadRevivesTombstone(t *testing.T) {
	s, _ := newTestStorages(t)
	ctx := context.Background()

	e, err := s.Records.Create(ctx, models.EntityPatient, models.Payload{"givenName": "Amara"})
	require.NoError(t, err)
	_, err = s.Records.SoftDelete(ctx, models.EntityPatient, e.ID)
	require.NoError(t, err)

	got, err := s.Records.ReplacePayload(ctx, models.EntityPatient, e.ID, models.Payload{"givenName": "Ama"})
	require.NoError(t, err)
	assert.False(t, got.Deleted)
	assert.Nil(t, got.DeletedAt)
	assert.True(t, got.Dirty)
	assert.Equal(t, models.Payload{"givenName": "Ama"}, got.Payload)
}

// ── PurgeTombstones / HardDelete ─────────────────────────────────────────────

func TestRecordRepository_PurgeTombstones(t *testing.T) {
	s, now := newTestStorages(t)
	ctx := context.Background()

	dirtyTomb, err := s.Records.Create(ctx, models.EntityPatient, models.Payload{})
	require.NoError(t, err)
	_, err = s.Records.SoftDelete(ctx, models.EntityPatient, dirtyTomb.ID)
	require.NoError(t, err)

	cleanTomb, err := s.Records.ApplyRemote(ctx, models.EntityPatient, models.Snapshot{RemoteID: "r-2", Version: 1, Deleted: true})
	require.NoError(t, err)

	*now = now.Add(time.Hour)
	n, err := s.Records.PurgeTombstones(ctx, models.EntityPatient, now.UnixMilli())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = s.Records.Get(ctx, models.EntityPatient, cleanTomb.ID)
	assert.ErrorIs(t, err, ErrRecordNotFound)
	_, err = s.Records.Get(ctx, models.EntityPatient, dirtyTomb.ID)
	assert.NoError(t, err)

	require.NoError(t, s.Records.HardDelete(ctx, models.EntityPatient, dirtyTomb.ID))
	_, err = s.Records.Get(ctx, models.EntityPatient, dirtyTomb.ID)
	assert.ErrorIs(t, err, ErrRecordNotFound)
}

// ── SQL error paths ──────────────────────────────────────────────────────────

func TestRecordRepository_ListQueryError(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRecordRepository(db, nil, logger.Nop())

	mock.ExpectQuery("SELECT (.+) FROM patients").WillReturnError(errors.New("disk I/O error"))

	_, err := repo.List(context.Background(), models.EntityPatient)
	assert.ErrorIs(t, err, ErrExecutingQuery)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordRepository_UpdateLostRace(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRecordRepository(db, nil, logger.Nop())

	rows := sqlmock.NewRows(recordColumns).
		AddRow("id-1", nil, 1, 0, 10, true, false, nil, `{"givenName":"Amara"}`)
	mock.ExpectQuery("SELECT (.+) FROM patients").WillReturnRows(rows)
	mock.ExpectExec("UPDATE patients").WillReturnResult(sqlmock.NewResult(0, 0))

	_, err := repo.Update(context.Background(), models.EntityPatient, "id-1", models.Payload{"sex": "F"})
	assert.ErrorIs(t, err, ErrRecordChanged)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordRepository_CreateExecError(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRecordRepository(db, nil, logger.Nop())

	mock.ExpectExec("INSERT INTO notifications").WillReturnError(errors.New("readonly database"))

	_, err := repo.Create(context.Background(), models.EntityNotification, nil)
	assert.ErrorIs(t, err, ErrExecutingStatement)
}
