// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package store

import (
	"cmp"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/MKhiriev/go-sync-keeper/internal/logger"
	"github.com/MKhiriev/go-sync-keeper/internal/utils"
	"github.com/MKhiriev/go-sync-keeper/models"
	sq "github.com/Masterminds/squirrel"
)

type queueRepository struct {
	q      DBTX
	clock  utils.Clock
	logger *logger.Logger
}

// NewQueueRepository constructs a [QueueRepository] on top of q.
func NewQueueRepository(q DBTX, clock utils.Clock, logger *logger.Logger) QueueRepository {
	return &queueRepository{q: q, clock: clock, logger: logger}
}

// Enqueue appends entry to the queue. If a pending entry for the same entity
// exists it is coalesced into it instead: the operation is folded with
// [models.CoalesceOperations], payload and version are replaced with the
// newer ones and the original enqueue time is kept.
func (r *queueRepository) Enqueue(ctx context.Context, entry models.QueueEntry) (models.QueueEntry, error) {
	log := logger.FromContext(ctx)

	existing, err := r.latestPending(ctx, entry.EntityType, entry.EntityID)
	switch {
	case err == nil:
		merged, ok, mergeErr := r.coalesce(ctx, existing, entry)
		if mergeErr != nil || ok {
			return merged, mergeErr
		}
		log.Debug().
			Str("func", "queueRepository.Enqueue").
			Str("entry_id", existing.ID).
			Msg("pending entry was claimed meanwhile, enqueueing a new one")
	case !errors.Is(err, ErrQueueEntryNotFound):
		return models.QueueEntry{}, err
	}

	now := r.clock.NowMillis()
	entry.ID = utils.NewID()
	entry.Status = models.QueueStatusPending
	entry.AttemptCount = 0
	entry.LastError = ""
	entry.NextAttemptAt = 0
	entry.EnqueuedAt = now
	entry.Payload = entry.Payload.Clone()

	query, args, err := builder.Insert(queueTable).
		Columns(queueColumns...).
		Values(
			entry.ID,
			entry.EntityType,
			entry.EntityID,
			entry.Operation,
			entry.Payload,
			entry.EntityVersion,
			entry.Priority,
			entry.AttemptCount,
			entry.LastError,
			entry.Status,
			entry.NextAttemptAt,
			entry.EnqueuedAt,
		).
		ToSql()
	if err != nil {
		return models.QueueEntry{}, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	if _, err = r.q.ExecContext(ctx, query, args...); err != nil {
		log.Err(err).
			Str("func", "queueRepository.Enqueue").
			Str("entity_type", entry.EntityType.String()).
			Str("entity_id", entry.EntityID).
			Msg("failed to insert queue entry")
		return models.QueueEntry{}, fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}

	return entry, nil
}

// coalesce folds entry into the pending entry existing. ok is false when
// existing stopped being pending before the update, in which case nothing
// was written.
func (r *queueRepository) coalesce(ctx context.Context, existing, entry models.QueueEntry) (models.QueueEntry, bool, error) {
	merged := existing
	merged.Operation = models.CoalesceOperations(existing.Operation, entry.Operation)
	merged.Payload = entry.Payload.Clone()
	merged.EntityVersion = entry.EntityVersion
	merged.Priority = max(existing.Priority, entry.Priority)

	query, args, err := builder.Update(queueTable).
		Set("operation", merged.Operation).
		Set("payload", merged.Payload).
		Set("entity_version", merged.EntityVersion).
		Set("priority", merged.Priority).
		Where(sq.Eq{"id": merged.ID, "status": models.QueueStatusPending}).
		ToSql()
	if err != nil {
		return models.QueueEntry{}, false, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	res, err := r.q.ExecContext(ctx, query, args...)
	if err != nil {
		logger.FromContext(ctx).Err(err).
			Str("func", "queueRepository.coalesce").
			Str("entry_id", merged.ID).
			Msg("failed to coalesce queue entry")
		return models.QueueEntry{}, false, fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return models.QueueEntry{}, false, fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}
	return merged, n > 0, nil
}

// DequeueBatch claims up to limit pending entries that are due at now and
// were enqueued no later than enqueuedBefore. Claimed entries move to
// in_flight. Order: priority descending, then oldest first.
func (r *queueRepository) DequeueBatch(ctx context.Context, limit int, enqueuedBefore, now int64) ([]models.QueueEntry, error) {
	if limit <= 0 {
		return nil, nil
	}

	// Selecting and claiming happen in one statement so a concurrent
	// Enqueue can never coalesce into an entry that is already being
	// uploaded.
	claim, claimArgs, err := builder.Select("id").
		From(queueTable).
		Where(sq.Eq{"status": models.QueueStatusPending}).
		Where(sq.LtOrEq{"next_attempt_at": now, "enqueued_at": enqueuedBefore}).
		OrderBy("priority DESC", "enqueued_at ASC", "id ASC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	query, args, err := builder.Update(queueTable).
		Set("status", models.QueueStatusInFlight).
		Where("id IN ("+claim+")", claimArgs...).
		Suffix("RETURNING " + strings.Join(queueColumns, ", ")).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	entries, err := r.queryEntries(ctx, "queueRepository.DequeueBatch", query, args)
	if err != nil {
		return nil, err
	}

	// RETURNING does not keep the order of the subquery.
	slices.SortFunc(entries, func(a, b models.QueueEntry) int {
		return cmp.Or(
			cmp.Compare(b.Priority, a.Priority),
			cmp.Compare(a.EnqueuedAt, b.EnqueuedAt),
			strings.Compare(a.ID, b.ID),
		)
	})
	return entries, nil
}

// MarkSucceeded removes acknowledged entries.
func (r *queueRepository) MarkSucceeded(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}

	query, args, err := builder.Delete(queueTable).Where(sq.Eq{"id": ids}).ToSql()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	if _, err = r.q.ExecContext(ctx, query, args...); err != nil {
		logger.FromContext(ctx).Err(err).
			Str("func", "queueRepository.MarkSucceeded").
			Strs("ids", ids).
			Msg("failed to delete queue entries")
		return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}
	return nil
}

// MarkFailed records a failed attempt. The entry becomes failed when the
// failure is permanent or the retry budget is spent; otherwise it returns to
// pending and becomes due at nextAttemptAt.
func (r *queueRepository) MarkFailed(ctx context.Context, id, cause string, permanent bool, maxRetries int, nextAttemptAt int64) (models.QueueEntry, error) {
	entry, err := r.Get(ctx, id)
	if err != nil {
		return models.QueueEntry{}, err
	}

	entry.AttemptCount++
	entry.LastError = cause
	if permanent || (maxRetries > 0 && entry.AttemptCount >= maxRetries) {
		entry.Status = models.QueueStatusFailed
	} else {
		entry.Status = models.QueueStatusPending
		entry.NextAttemptAt = nextAttemptAt
	}

	query, args, err := builder.Update(queueTable).
		Set("attempt_count", entry.AttemptCount).
		Set("last_error", entry.LastError).
		Set("status", entry.Status).
		Set("next_attempt_at", entry.NextAttemptAt).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return models.QueueEntry{}, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	if _, err = r.q.ExecContext(ctx, query, args...); err != nil {
		logger.FromContext(ctx).Err(err).
			Str("func", "queueRepository.MarkFailed").
			Str("entry_id", id).
			Msg("failed to record queue failure")
		return models.QueueEntry{}, fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}
	return entry, nil
}

// RequeueInFlight returns entries left in_flight by an interrupted cycle to
// pending.
func (r *queueRepository) RequeueInFlight(ctx context.Context) (int64, error) {
	query, args, err := builder.Update(queueTable).
		Set("status", models.QueueStatusPending).
		Where(sq.Eq{"status": models.QueueStatusInFlight}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	res, err := r.q.ExecContext(ctx, query, args...)
	if err != nil {
		logger.FromContext(ctx).Err(err).
			Str("func", "queueRepository.RequeueInFlight").
			Msg("failed to requeue in-flight entries")
		return 0, fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}
	return res.RowsAffected()
}

// DropForEntity removes every entry of one entity regardless of status.
func (r *queueRepository) DropForEntity(ctx context.Context, t models.EntityType, entityID string) (int64, error) {
	query, args, err := builder.Delete(queueTable).
		Where(sq.Eq{"entity_type": t, "entity_id": entityID}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	res, err := r.q.ExecContext(ctx, query, args...)
	if err != nil {
		logger.FromContext(ctx).Err(err).
			Str("func", "queueRepository.DropForEntity").
			Str("entity_type", t.String()).
			Str("entity_id", entityID).
			Msg("failed to drop queue entries")
		return 0, fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}
	return res.RowsAffected()
}

func (r *queueRepository) Get(ctx context.Context, id string) (models.QueueEntry, error) {
	return r.selectOne(ctx, "queueRepository.Get",
		builder.Select(queueColumns...).From(queueTable).Where(sq.Eq{"id": id}))
}

// List returns entries in drain order, filtered by status when given.
func (r *queueRepository) List(ctx context.Context, statuses ...models.QueueStatus) ([]models.QueueEntry, error) {
	query := builder.Select(queueColumns...).
		From(queueTable).
		OrderBy("priority DESC", "enqueued_at ASC", "id ASC")
	if len(statuses) > 0 {
		query = query.Where(sq.Eq{"status": statuses})
	}
	return r.selectEntries(ctx, "queueRepository.List", query)
}

// CountPending counts entries waiting for upload, in flight included.
func (r *queueRepository) CountPending(ctx context.Context) (int64, error) {
	return r.count(ctx, "queueRepository.CountPending",
		sq.Eq{"status": []models.QueueStatus{models.QueueStatusPending, models.QueueStatusInFlight}})
}

func (r *queueRepository) CountFailed(ctx context.Context) (int64, error) {
	return r.count(ctx, "queueRepository.CountFailed", sq.Eq{"status": models.QueueStatusFailed})
}

// ListFailed returns failed entries, oldest first. A non-positive limit
// returns all of them.
func (r *queueRepository) ListFailed(ctx context.Context, limit int) ([]models.QueueEntry, error) {
	query := builder.Select(queueColumns...).
		From(queueTable).
		Where(sq.Eq{"status": models.QueueStatusFailed}).
		OrderBy("enqueued_at ASC", "id ASC")
	if limit > 0 {
		query = query.Limit(uint64(limit))
	}
	return r.selectEntries(ctx, "queueRepository.ListFailed", query)
}

// Retry moves a failed entry back to pending with a fresh retry budget.
func (r *queueRepository) Retry(ctx context.Context, id string) (models.QueueEntry, error) {
	entry, err := r.Get(ctx, id)
	if err != nil {
		return models.QueueEntry{}, err
	}
	if entry.Status != models.QueueStatusFailed {
		return models.QueueEntry{}, fmt.Errorf("%w: %s is %s", ErrQueueEntryNotFailed, id, entry.Status)
	}

	entry.Status = models.QueueStatusPending
	entry.AttemptCount = 0
	entry.NextAttemptAt = 0

	query, args, err := builder.Update(queueTable).
		Set("status", entry.Status).
		Set("attempt_count", entry.AttemptCount).
		Set("next_attempt_at", entry.NextAttemptAt).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return models.QueueEntry{}, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	if _, err = r.q.ExecContext(ctx, query, args...); err != nil {
		logger.FromContext(ctx).Err(err).
			Str("func", "queueRepository.Retry").
			Str("entry_id", id).
			Msg("failed to retry queue entry")
		return models.QueueEntry{}, fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}
	return entry, nil
}

func (r *queueRepository) latestPending(ctx context.Context, t models.EntityType, entityID string) (models.QueueEntry, error) {
	return r.selectOne(ctx, "queueRepository.latestPending",
		builder.Select(queueColumns...).
			From(queueTable).
			Where(sq.Eq{"entity_type": t, "entity_id": entityID, "status": models.QueueStatusPending}).
			OrderBy("enqueued_at DESC", "id DESC"))
}

func (r *queueRepository) setStatus(ctx context.Context, fn string, status models.QueueStatus, ids []string) error {
	query, args, err := builder.Update(queueTable).
		Set("status", status).
		Where(sq.Eq{"id": ids}).
		ToSql()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	if _, err = r.q.ExecContext(ctx, query, args...); err != nil {
		logger.FromContext(ctx).Err(err).
			Str("func", fn).
			Str("status", string(status)).
			Msg("failed to update queue status")
		return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}
	return nil
}

func (r *queueRepository) count(ctx context.Context, fn string, where sq.Sqlizer) (int64, error) {
	query, args, err := builder.Select("COUNT(*)").From(queueTable).Where(where).ToSql()
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	var n int64
	if err = r.q.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		logger.FromContext(ctx).Err(err).Str("func", fn).Msg("failed to count queue entries")
		return 0, fmt.Errorf("%w: %w", ErrScanningRow, err)
	}
	return n, nil
}

func (r *queueRepository) selectOne(ctx context.Context, fn string, b sq.SelectBuilder) (models.QueueEntry, error) {
	query, args, err := b.Limit(1).ToSql()
	if err != nil {
		return models.QueueEntry{}, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	entry, err := scanQueueEntry(r.q.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return models.QueueEntry{}, ErrQueueEntryNotFound
	}
	if err != nil {
		logger.FromContext(ctx).Err(err).Str("func", fn).Msg("failed to scan queue entry")
		return models.QueueEntry{}, fmt.Errorf("%w: %w", ErrScanningRow, err)
	}
	return entry, nil
}

func (r *queueRepository) selectEntries(ctx context.Context, fn string, b sq.SelectBuilder) ([]models.QueueEntry, error) {
	query, args, err := b.ToSql()
	if err != nil {
		logger.FromContext(ctx).Err(err).Str("func", fn).Msg("failed to create query")
		return nil, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}
	return r.queryEntries(ctx, fn, query, args)
}

func (r *queueRepository) queryEntries(ctx context.Context, fn, query string, args []any) ([]models.QueueEntry, error) {
	log := logger.FromContext(ctx)

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		log.Err(err).Str("func", fn).Msg("failed to execute query")
		return nil, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}
	defer rows.Close()

	entries := make([]models.QueueEntry, 0, 16)
	for rows.Next() {
		entry, scanErr := scanQueueEntry(rows)
		if scanErr != nil {
			log.Err(scanErr).Str("func", fn).Msg("failed to scan queue entry")
			return nil, fmt.Errorf("%w: %w", ErrScanningRow, scanErr)
		}
		entries = append(entries, entry)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		log.Err(rowsErr).Str("func", fn).Msg("error occurred during rows iteration")
		return nil, fmt.Errorf("%w: %w", ErrScanningRows, rowsErr)
	}
	return entries, nil
}

func scanQueueEntry(row rowScanner) (models.QueueEntry, error) {
	var e models.QueueEntry
	err := row.Scan(
		&e.ID,
		&e.EntityType,
		&e.EntityID,
		&e.Operation,
		&e.Payload,
		&e.EntityVersion,
		&e.Priority,
		&e.AttemptCount,
		&e.LastError,
		&e.Status,
		&e.NextAttemptAt,
		&e.EnqueuedAt,
	)
	return e, err
}
