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

type conflictRepository struct {
	q      DBTX
	clock  utils.Clock
	logger *logger.Logger
}

// NewConflictRepository constructs a [ConflictRepository] on top of q.
func NewConflictRepository(q DBTX, clock utils.Clock, logger *logger.Logger) ConflictRepository {
	return &conflictRepository{q: q, clock: clock, logger: logger}
}

// Record stores c as the unresolved conflict of its entity. An existing
// unresolved conflict for the same entity is refreshed in place, keeping its
// id and detection time.
func (r *conflictRepository) Record(ctx context.Context, c models.Conflict) (models.Conflict, error) {
	log := logger.FromContext(ctx)

	existing, err := r.GetUnresolvedForEntity(ctx, c.EntityType, c.EntityID)
	switch {
	case err == nil:
		existing.ConflictType = c.ConflictType
		existing.LocalSnapshot = c.LocalSnapshot
		existing.RemoteSnapshot = c.RemoteSnapshot

		query, args, buildErr := builder.Update(conflictsTable).
			Set("conflict_type", existing.ConflictType).
			Set("local_snapshot", existing.LocalSnapshot).
			Set("remote_snapshot", existing.RemoteSnapshot).
			Where(sq.Eq{"id": existing.ID}).
			ToSql()
		if buildErr != nil {
			return models.Conflict{}, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, buildErr)
		}
		if _, err = r.q.ExecContext(ctx, query, args...); err != nil {
			log.Err(err).
				Str("func", "conflictRepository.Record").
				Str("conflict_id", existing.ID).
				Msg("failed to refresh conflict")
			return models.Conflict{}, fmt.Errorf("%w: %w", ErrExecutingStatement, err)
		}
		return existing, nil
	case !errors.Is(err, ErrConflictNotFound):
		return models.Conflict{}, err
	}

	c.ID = utils.NewID()
	c.Resolution = models.ResolutionUnresolved
	c.ResolvedAt = nil
	if c.DetectedAt == 0 {
		c.DetectedAt = r.clock.NowMillis()
	}

	query, args, err := builder.Insert(conflictsTable).
		Columns(conflictColumns...).
		Values(c.ID, c.EntityType, c.EntityID, c.ConflictType, c.LocalSnapshot, c.RemoteSnapshot, c.DetectedAt, c.Resolution, c.ResolvedAt).
		ToSql()
	if err != nil {
		return models.Conflict{}, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	if _, err = r.q.ExecContext(ctx, query, args...); err != nil {
		log.Err(err).
			Str("func", "conflictRepository.Record").
			Str("entity_type", c.EntityType.String()).
			Str("entity_id", c.EntityID).
			Msg("failed to insert conflict")
		return models.Conflict{}, fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}
	return c, nil
}

func (r *conflictRepository) Get(ctx context.Context, id string) (models.Conflict, error) {
	return r.selectOne(ctx, "conflictRepository.Get", sq.Eq{"id": id})
}

// GetUnresolvedForEntity returns the open conflict of an entity or
// ErrConflictNotFound.
func (r *conflictRepository) GetUnresolvedForEntity(ctx context.Context, t models.EntityType, entityID string) (models.Conflict, error) {
	return r.selectOne(ctx, "conflictRepository.GetUnresolvedForEntity", sq.Eq{
		"entity_type": t,
		"entity_id":   entityID,
		"resolution":  models.ResolutionUnresolved,
	})
}

// ListUnresolved returns open conflicts, oldest first.
func (r *conflictRepository) ListUnresolved(ctx context.Context) ([]models.Conflict, error) {
	return r.list(ctx, "conflictRepository.ListUnresolved", sq.Eq{"resolution": models.ResolutionUnresolved})
}

// ListForEntity returns every conflict recorded for the entity, resolved
// ones included, oldest first.
func (r *conflictRepository) ListForEntity(ctx context.Context, t models.EntityType, entityID string) ([]models.Conflict, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEntityType, t)
	}
	return r.list(ctx, "conflictRepository.ListForEntity", sq.Eq{"entity_type": t, "entity_id": entityID})
}

func (r *conflictRepository) list(ctx context.Context, fn string, where sq.Sqlizer) ([]models.Conflict, error) {
	log := logger.FromContext(ctx)

	query, args, err := builder.Select(conflictColumns...).
		From(conflictsTable).
		Where(where).
		OrderBy("detected_at ASC", "id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		log.Err(err).Str("func", fn).Msg("failed to execute query")
		return nil, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}
	defer rows.Close()

	conflicts := make([]models.Conflict, 0)
	for rows.Next() {
		c, scanErr := scanConflict(rows)
		if scanErr != nil {
			log.Err(scanErr).Str("func", fn).Msg("failed to scan conflict")
			return nil, fmt.Errorf("%w: %w", ErrScanningRow, scanErr)
		}
		conflicts = append(conflicts, c)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf("%w: %w", ErrScanningRows, rowsErr)
	}
	return conflicts, nil
}

func (r *conflictRepository) CountUnresolved(ctx context.Context) (int64, error) {
	query, args, err := builder.Select("COUNT(*)").
		From(conflictsTable).
		Where(sq.Eq{"resolution": models.ResolutionUnresolved}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	var n int64
	if err = r.q.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		logger.FromContext(ctx).Err(err).Str("func", "conflictRepository.CountUnresolved").Msg("failed to count conflicts")
		return 0, fmt.Errorf("%w: %w", ErrScanningRow, err)
	}
	return n, nil
}

// MarkResolved records resolution on an open conflict.
func (r *conflictRepository) MarkResolved(ctx context.Context, id string, resolution models.Resolution) (models.Conflict, error) {
	c, err := r.Get(ctx, id)
	if err != nil {
		return models.Conflict{}, err
	}
	if c.Resolved() {
		return models.Conflict{}, fmt.Errorf("%w: %s", ErrConflictAlreadyResolved, id)
	}

	now := r.clock.NowMillis()
	query, args, err := builder.Update(conflictsTable).
		Set("resolution", resolution).
		Set("resolved_at", now).
		Where(sq.Eq{"id": id, "resolution": models.ResolutionUnresolved}).
		ToSql()
	if err != nil {
		return models.Conflict{}, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	if _, err = r.q.ExecContext(ctx, query, args...); err != nil {
		logger.FromContext(ctx).Err(err).
			Str("func", "conflictRepository.MarkResolved").
			Str("conflict_id", id).
			Msg("failed to resolve conflict")
		return models.Conflict{}, fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}

	c.Resolution = resolution
	c.ResolvedAt = &now
	return c, nil
}

func (r *conflictRepository) selectOne(ctx context.Context, fn string, where sq.Sqlizer) (models.Conflict, error) {
	query, args, err := builder.Select(conflictColumns...).
		From(conflictsTable).
		Where(where).
		OrderBy("detected_at DESC").
		Limit(1).
		ToSql()
	if err != nil {
		return models.Conflict{}, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	c, err := scanConflict(r.q.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Conflict{}, ErrConflictNotFound
	}
	if err != nil {
		logger.FromContext(ctx).Err(err).Str("func", fn).Msg("failed to scan conflict")
		return models.Conflict{}, fmt.Errorf("%w: %w", ErrScanningRow, err)
	}
	return c, nil
}

func scanConflict(row rowScanner) (models.Conflict, error) {
	var (
		c          models.Conflict
		resolvedAt sql.NullInt64
	)

	err := row.Scan(
		&c.ID,
		&c.EntityType,
		&c.EntityID,
		&c.ConflictType,
		&c.LocalSnapshot,
		&c.RemoteSnapshot,
		&c.DetectedAt,
		&c.Resolution,
		&resolvedAt,
	)
	if err != nil {
		return models.Conflict{}, err
	}

	if resolvedAt.Valid {
		at := resolvedAt.Int64
		c.ResolvedAt = &at
	}
	return c, nil
}
