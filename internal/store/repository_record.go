// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/MKhiriev/go-sync-keeper/internal/logger"
	"github.com/MKhiriev/go-sync-keeper/internal/utils"
	"github.com/MKhiriev/go-sync-keeper/models"
	sq "github.com/Masterminds/squirrel"
)

// recordRepository is the SQLite-backed implementation of [RecordRepository].
// Each entity type lives in its own table with identical sync columns.
type recordRepository struct {
	q      DBTX
	clock  utils.Clock
	logger *logger.Logger
}

// NewRecordRepository constructs a [RecordRepository] on top of q, which may
// be the pool or an open transaction.
func NewRecordRepository(q DBTX, clock utils.Clock, logger *logger.Logger) RecordRepository {
	return &recordRepository{q: q, clock: clock, logger: logger}
}

// Create inserts a new dirty entity with version 1.
func (r *recordRepository) Create(ctx context.Context, t models.EntityType, payload models.Payload) (models.Entity, error) {
	log := logger.FromContext(ctx)

	table, err := tableFor(t)
	if err != nil {
		return models.Entity{}, err
	}

	e := models.Entity{
		ID:           utils.NewID(),
		Type:         t,
		Version:      1,
		LastModified: r.clock.NowMillis(),
		Dirty:        true,
		Payload:      payload.Clone(),
	}
	if e.Payload == nil {
		e.Payload = models.Payload{}
	}

	if err = r.insert(ctx, table, e); err != nil {
		log.Err(err).
			Str("func", "recordRepository.Create").
			Str("entity_type", t.String()).
			Msg("failed to insert record")
		return models.Entity{}, err
	}

	return e, nil
}

// Update merges partial into the payload of a live entity.
func (r *recordRepository) Update(ctx context.Context, t models.EntityType, id string, partial models.Payload) (models.Entity, error) {
	current, err := r.Get(ctx, t, id)
	if err != nil {
		return models.Entity{}, err
	}
	if current.Deleted {
		return models.Entity{}, fmt.Errorf("%w: %s %s is deleted", ErrRecordNotFound, t, id)
	}

	return r.updateVersioned(ctx, "recordRepository.Update", current, map[string]any{
		"payload":       current.Payload.Merge(partial),
		"version":       current.Version + 1,
		"dirty":         true,
		"last_modified": r.clock.NowMillis(),
	})
}

// SoftDelete turns a live entity into a dirty tombstone. Deleting a
// tombstone again returns it unchanged.
func (r *recordRepository) SoftDelete(ctx context.Context, t models.EntityType, id string) (models.Entity, error) {
	current, err := r.Get(ctx, t, id)
	if err != nil {
		return models.Entity{}, err
	}
	if current.Deleted {
		return current, nil
	}

	now := r.clock.NowMillis()
	return r.updateVersioned(ctx, "recordRepository.SoftDelete", current, map[string]any{
		"deleted":       true,
		"deleted_at":    now,
		"version":       current.Version + 1,
		"dirty":         true,
		"last_modified": now,
	})
}

// HardDelete removes the row. It is used by the sync engine only.
func (r *recordRepository) HardDelete(ctx context.Context, t models.EntityType, id string) error {
	log := logger.FromContext(ctx)

	table, err := tableFor(t)
	if err != nil {
		return err
	}

	query, args, err := builder.Delete(table).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	if _, err = r.q.ExecContext(ctx, query, args...); err != nil {
		log.Err(err).
			Str("func", "recordRepository.HardDelete").
			Str("entity_type", t.String()).
			Str("id", id).
			Msg("failed to delete record")
		return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}
	return nil
}

// Get returns the entity including tombstones.
func (r *recordRepository) Get(ctx context.Context, t models.EntityType, id string) (models.Entity, error) {
	return r.getOne(ctx, "recordRepository.Get", t, sq.Eq{"id": id})
}

// GetByRemoteID returns the entity linked to remoteID, including tombstones.
func (r *recordRepository) GetByRemoteID(ctx context.Context, t models.EntityType, remoteID string) (models.Entity, error) {
	return r.getOne(ctx, "recordRepository.GetByRemoteID", t, sq.Eq{"remote_id": remoteID})
}

// List returns live entities in creation order.
func (r *recordRepository) List(ctx context.Context, t models.EntityType) ([]models.Entity, error) {
	return r.getMany(ctx, "recordRepository.List", t, sq.Eq{"deleted": false}, "id")
}

// FindDirty returns every dirty entity, tombstones included.
func (r *recordRepository) FindDirty(ctx context.Context, t models.EntityType) ([]models.Entity, error) {
	return r.getMany(ctx, "recordRepository.FindDirty", t, sq.Eq{"dirty": true}, "last_modified", "id")
}

// ApplyRemote writes a remote snapshot into the entity linked to its remote
// id, or inserts a new clean entity when none is linked yet.
func (r *recordRepository) ApplyRemote(ctx context.Context, t models.EntityType, snap models.Snapshot) (models.Entity, error) {
	existing, err := r.GetByRemoteID(ctx, t, snap.RemoteID)
	switch {
	case err == nil:
		return r.ApplyRemoteTo(ctx, t, existing.ID, snap)
	case !errors.Is(err, ErrRecordNotFound):
		return models.Entity{}, err
	}

	table, err := tableFor(t)
	if err != nil {
		return models.Entity{}, err
	}

	remoteID := snap.RemoteID
	e := models.Entity{
		ID:            utils.NewID(),
		Type:          t,
		RemoteID:      &remoteID,
		Version:       1,
		RemoteVersion: snap.Version,
		LastModified:  snap.ModifiedAt,
		Deleted:       snap.Deleted,
		Payload:       snap.Payload.Clone(),
	}
	if e.Payload == nil {
		e.Payload = models.Payload{}
	}
	if snap.Deleted {
		now := r.clock.NowMillis()
		e.DeletedAt = &now
	}

	if err = r.insert(ctx, table, e); err != nil {
		logger.FromContext(ctx).Err(err).
			Str("func", "recordRepository.ApplyRemote").
			Str("entity_type", t.String()).
			Str("remote_id", snap.RemoteID).
			Msg("failed to insert remote record")
		return models.Entity{}, err
	}
	return e, nil
}

// ApplyRemoteTo overwrites the local entity id with snap and marks it clean.
// A snapshot without payload keeps the current payload.
func (r *recordRepository) ApplyRemoteTo(ctx context.Context, t models.EntityType, id string, snap models.Snapshot) (models.Entity, error) {
	current, err := r.Get(ctx, t, id)
	if err != nil {
		return models.Entity{}, err
	}

	set := map[string]any{
		"remote_version": snap.Version,
		"version":        current.Version + 1,
		"dirty":          false,
		"deleted":        snap.Deleted,
		"last_modified":  snap.ModifiedAt,
	}
	if snap.RemoteID != "" {
		set["remote_id"] = snap.RemoteID
	}
	if snap.Payload != nil {
		set["payload"] = snap.Payload
	}
	switch {
	case snap.Deleted && !current.Deleted:
		set["deleted_at"] = r.clock.NowMillis()
	case !snap.Deleted:
		set["deleted_at"] = nil
	}

	return r.updateVersioned(ctx, "recordRepository.ApplyRemoteTo", current, set)
}

// MarkSynced links the remote id and version after an acknowledged upload.
// The dirty flag is cleared only if the entity still carries ackedVersion,
// so edits made while the upload was in flight stay dirty.
func (r *recordRepository) MarkSynced(ctx context.Context, t models.EntityType, id, remoteID string, remoteVersion, ackedVersion int64) (models.Entity, error) {
	log := logger.FromContext(ctx)

	table, err := tableFor(t)
	if err != nil {
		return models.Entity{}, err
	}

	query, args, err := builder.Update(table).
		Set("remote_id", remoteID).
		Set("remote_version", remoteVersion).
		Set("dirty", sq.Expr("CASE WHEN version = ? THEN 0 ELSE dirty END", ackedVersion)).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return models.Entity{}, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	if err = r.execOne(ctx, query, args...); err != nil {
		log.Err(err).
			Str("func", "recordRepository.MarkSynced").
			Str("entity_type", t.String()).
			Str("id", id).
			Msg("failed to mark record synced")
		return models.Entity{}, err
	}

	return r.Get(ctx, t, id)
}

// SetRemoteVersion records the latest observed remote version.
func (r *recordRepository) SetRemoteVersion(ctx context.Context, t models.EntityType, id string, remoteVersion int64) error {
	table, err := tableFor(t)
	if err != nil {
		return err
	}

	query, args, err := builder.Update(table).
		Set("remote_version", remoteVersion).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	if err = r.execOne(ctx, query, args...); err != nil {
		logger.FromContext(ctx).Err(err).
			Str("func", "recordRepository.SetRemoteVersion").
			Str("id", id).
			Msg("failed to set remote version")
		return err
	}
	return nil
}

// Restore re-marks the entity dirty on top of base, the remote state the
// local version should replace. If base is a remote tombstone the remote
// link is dropped so the next upload recreates the record.
func (r *recordRepository) Restore(ctx context.Context, t models.EntityType, id string, base models.Snapshot) (models.Entity, error) {
	current, err := r.Get(ctx, t, id)
	if err != nil {
		return models.Entity{}, err
	}

	set := map[string]any{
		"version":       current.Version + 1,
		"dirty":         true,
		"last_modified": r.clock.NowMillis(),
	}
	if base.Deleted {
		set["remote_id"] = nil
		set["remote_version"] = 0
	} else {
		set["remote_version"] = base.Version
		if base.RemoteID != "" {
			set["remote_id"] = base.RemoteID
		}
	}

	return r.updateVersioned(ctx, "recordRepository.Restore", current, set)
}

// ReplacePayload overwrites the payload, revives a tombstone and marks the
// entity dirty.
func (r *recordRepository) ReplacePayload(ctx context.Context, t models.EntityType, id string, payload models.Payload) (models.Entity, error) {
	current, err := r.Get(ctx, t, id)
	if err != nil {
		return models.Entity{}, err
	}
	if payload == nil {
		payload = models.Payload{}
	}

	return r.updateVersioned(ctx, "recordRepository.ReplacePayload", current, map[string]any{
		"payload":       payload,
		"deleted":       false,
		"deleted_at":    nil,
		"version":       current.Version + 1,
		"dirty":         true,
		"last_modified": r.clock.NowMillis(),
	})
}

// PurgeTombstones hard-deletes clean tombstones deleted at or before before.
func (r *recordRepository) PurgeTombstones(ctx context.Context, t models.EntityType, before int64) (int64, error) {
	table, err := tableFor(t)
	if err != nil {
		return 0, err
	}

	query, args, err := builder.Delete(table).
		Where(sq.Eq{"deleted": true, "dirty": false}).
		Where(sq.LtOrEq{"deleted_at": before}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	res, err := r.q.ExecContext(ctx, query, args...)
	if err != nil {
		logger.FromContext(ctx).Err(err).
			Str("func", "recordRepository.PurgeTombstones").
			Str("entity_type", t.String()).
			Msg("failed to purge tombstones")
		return 0, fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}
	return res.RowsAffected()
}

func (r *recordRepository) insert(ctx context.Context, table string, e models.Entity) error {
	query, args, err := builder.Insert(table).
		Columns(recordColumns...).
		Values(e.ID, e.RemoteID, e.Version, e.RemoteVersion, e.LastModified, e.Dirty, e.Deleted, e.DeletedAt, e.Payload).
		ToSql()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	if _, err = r.q.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}
	return nil
}

// updateVersioned applies set to current guarded by its version, then
// re-reads the row.
func (r *recordRepository) updateVersioned(ctx context.Context, fn string, current models.Entity, set map[string]any) (models.Entity, error) {
	log := logger.FromContext(ctx)

	table, err := tableFor(current.Type)
	if err != nil {
		return models.Entity{}, err
	}

	query, args, err := builder.Update(table).
		SetMap(set).
		Where(sq.Eq{"id": current.ID, "version": current.Version}).
		ToSql()
	if err != nil {
		return models.Entity{}, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	if err = r.execOne(ctx, query, args...); err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			err = fmt.Errorf("%w: %s %s", ErrRecordChanged, current.Type, current.ID)
		}
		log.Err(err).
			Str("func", fn).
			Str("entity_type", current.Type.String()).
			Str("id", current.ID).
			Msg("failed to update record")
		return models.Entity{}, err
	}

	return r.Get(ctx, current.Type, current.ID)
}

// execOne runs a statement expected to touch exactly one row.
func (r *recordRepository) execOne(ctx context.Context, query string, args ...any) error {
	res, err := r.q.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}
	if n == 0 {
		return ErrRecordNotFound
	}
	return nil
}

func (r *recordRepository) getOne(ctx context.Context, fn string, t models.EntityType, where sq.Sqlizer) (models.Entity, error) {
	log := logger.FromContext(ctx)

	table, err := tableFor(t)
	if err != nil {
		return models.Entity{}, err
	}

	query, args, err := builder.Select(recordColumns...).From(table).Where(where).Limit(1).ToSql()
	if err != nil {
		log.Err(err).Str("func", fn).Msg("failed to create query")
		return models.Entity{}, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	e, err := scanEntity(r.q.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Entity{}, fmt.Errorf("%w: %s", ErrRecordNotFound, t)
	}
	if err != nil {
		log.Err(err).
			Str("func", fn).
			Str("entity_type", t.String()).
			Msg("failed to scan record row")
		return models.Entity{}, fmt.Errorf("%w: %w", ErrScanningRow, err)
	}

	e.Type = t
	return e, nil
}

func (r *recordRepository) getMany(ctx context.Context, fn string, t models.EntityType, where sq.Sqlizer, orderBy ...string) ([]models.Entity, error) {
	log := logger.FromContext(ctx)

	table, err := tableFor(t)
	if err != nil {
		return nil, err
	}

	query, args, err := builder.Select(recordColumns...).From(table).Where(where).OrderBy(orderBy...).ToSql()
	if err != nil {
		log.Err(err).Str("func", fn).Msg("failed to create query")
		return nil, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		log.Err(err).
			Str("func", fn).
			Str("entity_type", t.String()).
			Msg("failed to execute query")
		return nil, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}
	defer rows.Close()

	results := make([]models.Entity, 0, 16)
	for rows.Next() {
		e, scanErr := scanEntity(rows)
		if scanErr != nil {
			log.Err(scanErr).Str("func", fn).Msg("failed to scan record row")
			return nil, fmt.Errorf("%w: %w", ErrScanningRow, scanErr)
		}
		e.Type = t
		results = append(results, e)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		log.Err(rowsErr).Str("func", fn).Msg("error occurred during rows iteration")
		return nil, fmt.Errorf("%w: %w", ErrScanningRows, rowsErr)
	}

	return results, nil
}

func scanEntity(row rowScanner) (models.Entity, error) {
	var (
		e         models.Entity
		remoteID  sql.NullString
		deletedAt sql.NullInt64
	)

	err := row.Scan(
		&e.ID,
		&remoteID,
		&e.Version,
		&e.RemoteVersion,
		&e.LastModified,
		&e.Dirty,
		&e.Deleted,
		&deletedAt,
		&e.Payload,
	)
	if err != nil {
		return models.Entity{}, err
	}

	if remoteID.Valid {
		id := remoteID.String
		e.RemoteID = &id
	}
	if deletedAt.Valid {
		at := deletedAt.Int64
		e.DeletedAt = &at
	}
	return e, nil
}
