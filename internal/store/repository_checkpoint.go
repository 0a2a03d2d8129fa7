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

type checkpointRepository struct {
	q      DBTX
	clock  utils.Clock
	logger *logger.Logger
}

// NewCheckpointRepository constructs a [CheckpointRepository] on top of q.
func NewCheckpointRepository(q DBTX, clock utils.Clock, logger *logger.Logger) CheckpointRepository {
	return &checkpointRepository{q: q, clock: clock, logger: logger}
}

// Get returns the stored checkpoint, or the zero checkpoint before the
// first successful cycle.
func (r *checkpointRepository) Get(ctx context.Context) (models.Checkpoint, error) {
	query, args, err := builder.Select("last_sync_at", "updated_at").
		From(checkpointTable).
		Where(sq.Eq{"id": 1}).
		ToSql()
	if err != nil {
		return models.Checkpoint{}, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	var cp models.Checkpoint
	err = r.q.QueryRowContext(ctx, query, args...).Scan(&cp.LastSyncAt, &cp.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Checkpoint{}, nil
	}
	if err != nil {
		logger.FromContext(ctx).Err(err).Str("func", "checkpointRepository.Get").Msg("failed to read checkpoint")
		return models.Checkpoint{}, fmt.Errorf("%w: %w", ErrScanningRow, err)
	}
	return cp, nil
}

// Save upserts the checkpoint row.
func (r *checkpointRepository) Save(ctx context.Context, lastSyncAt int64) error {
	now := r.clock.NowMillis()

	query, args, err := builder.Insert(checkpointTable).
		Columns("id", "last_sync_at", "updated_at").
		Values(1, lastSyncAt, now).
		Suffix("ON CONFLICT(id) DO UPDATE SET last_sync_at = excluded.last_sync_at, updated_at = excluded.updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	if _, err = r.q.ExecContext(ctx, query, args...); err != nil {
		logger.FromContext(ctx).Err(err).Str("func", "checkpointRepository.Save").Msg("failed to save checkpoint")
		return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}
	return nil
}
