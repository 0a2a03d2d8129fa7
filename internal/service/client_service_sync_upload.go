// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/MKhiriev/go-sync-keeper/internal/adapter"
	"github.com/MKhiriev/go-sync-keeper/internal/format"
	"github.com/MKhiriev/go-sync-keeper/internal/metrics"
	"github.com/MKhiriev/go-sync-keeper/internal/store"
	"github.com/MKhiriev/go-sync-keeper/models"
)

type uploadOutcome int

const (
	uploadDone uploadOutcome = iota
	uploadTransient
	uploadRejected
	uploadFatal
)

// classifyUpload decides what a failed entry means for the rest of the
// drain. Anything not known to be permanent is retried.
func classifyUpload(ctx context.Context, err error) uploadOutcome {
	switch {
	case err == nil:
		return uploadDone
	case ctx.Err() != nil,
		errors.Is(err, ErrStorageFailure),
		errors.Is(err, adapter.ErrUnauthorized),
		errors.Is(err, context.Canceled):
		return uploadFatal
	case errors.Is(err, adapter.ErrRejected),
		errors.Is(err, format.ErrUnknownType),
		errors.Is(err, format.ErrInvalidReference):
		return uploadRejected
	default:
		return uploadTransient
	}
}

// upload drains the queue. Entries enqueued after the cycle started wait
// for the next cycle. On abort, entries still in flight return to pending.
func (o *syncOrchestrator) upload(ctx context.Context, c *cycle) error {
	err := o.drain(ctx, c)
	if err != nil {
		if _, requeueErr := o.storages.Queue.RequeueInFlight(context.WithoutCancel(ctx)); requeueErr != nil {
			o.logger.Err(requeueErr).
				Str("func", "syncOrchestrator.upload").
				Msg("failed to return in-flight entries to the queue")
		}
	}
	return err
}

// requeueDirty queues dirty entities that have no queue entry, such as one
// dropped by hand or lost to a crash. Entities with an open conflict wait
// for its resolution instead.
func (o *syncOrchestrator) requeueDirty(ctx context.Context) error {
	type entityKey struct {
		t  models.EntityType
		id string
	}

	entries, err := o.storages.Queue.List(ctx)
	if err != nil {
		return storageErr("list queue", err)
	}
	open, err := o.storages.Conflicts.ListUnresolved(ctx)
	if err != nil {
		return storageErr("list unresolved conflicts", err)
	}

	covered := make(map[entityKey]struct{}, len(entries)+len(open))
	for _, entry := range entries {
		covered[entityKey{t: entry.EntityType, id: entry.EntityID}] = struct{}{}
	}
	for _, c := range open {
		covered[entityKey{t: c.EntityType, id: c.EntityID}] = struct{}{}
	}

	swept := 0
	for _, t := range o.format.DependencyOrder() {
		dirty, err := o.storages.Records.FindDirty(ctx, t)
		if err != nil {
			return storageErr("find dirty entities", err)
		}

		for _, e := range dirty {
			if _, ok := covered[entityKey{t: e.Type, id: e.ID}]; ok {
				continue
			}
			err = o.inTx(ctx, "requeue dirty entity", func(tx *store.ClientStorages) error {
				current, err := tx.Records.Get(ctx, e.Type, e.ID)
				if errors.Is(err, store.ErrRecordNotFound) {
					return nil
				}
				if err != nil || !current.Dirty {
					return err
				}
				return enqueueEntity(ctx, tx, o.format, current, operationFor(current))
			})
			if err != nil {
				return err
			}
			swept++
		}
	}

	if swept > 0 {
		o.logger.Warn().Int("entities", swept).Msg("queued dirty entities that had no queue entry")
	}
	return nil
}

func (o *syncOrchestrator) drain(ctx context.Context, c *cycle) error {
	consecutive := 0

	for {
		batch, err := o.storages.Queue.DequeueBatch(ctx, o.opts.BatchSize, c.start, c.start)
		if err != nil {
			return storageErr("dequeue batch", err)
		}
		if len(batch) == 0 {
			return nil
		}

		entries, superseded := coalesceBatch(batch)
		if len(superseded) > 0 {
			if err = o.storages.Queue.MarkSucceeded(ctx, superseded...); err != nil {
				return storageErr("drop superseded entries", err)
			}
		}

		for _, entry := range entries {
			err = o.uploadEntry(ctx, c, entry)

			switch classifyUpload(ctx, err) {
			case uploadDone:
				consecutive = 0

			case uploadRejected:
				consecutive = 0
				c.warning = fmt.Sprintf("%s %s rejected: %v", entry.EntityType, entry.EntityID, err)
				if _, markErr := o.storages.Queue.MarkFailed(ctx, entry.ID, err.Error(), true, o.opts.MaxRetries, 0); markErr != nil {
					return storageErr("mark entry failed", markErr)
				}
				o.logger.Warn().
					Err(err).
					Str("entry_id", entry.ID).
					Str("entity_type", entry.EntityType.String()).
					Msg("upload rejected, entry needs attention")

			case uploadTransient:
				consecutive++
				if markErr := o.retryLater(ctx, entry, err); markErr != nil {
					return markErr
				}
				if o.opts.MaxConsecutiveTransient > 0 && consecutive >= o.opts.MaxConsecutiveTransient {
					return fmt.Errorf("%w: %d consecutive failures: %w", ErrRemoteUnavailable, consecutive, err)
				}

			default:
				return err
			}
		}
	}
}

// retryLater records a transient failure and schedules the next attempt.
func (o *syncOrchestrator) retryLater(ctx context.Context, entry models.QueueEntry, cause error) error {
	delay := retryDelay(entry.AttemptCount+1, o.opts.BackoffInitial, o.opts.BackoffMax)
	next := o.clock.NowMillis() + delay.Milliseconds()

	updated, err := o.storages.Queue.MarkFailed(ctx, entry.ID, cause.Error(), false, o.opts.MaxRetries, next)
	if err != nil {
		return storageErr("mark entry failed", err)
	}

	event := o.logger.Debug()
	if updated.Status == models.QueueStatusFailed {
		event = o.logger.Warn()
	}
	event.Err(cause).
		Str("entry_id", entry.ID).
		Int("attempt", updated.AttemptCount).
		Str("status", string(updated.Status)).
		Dur("retry_in", delay).
		Msg("upload failed")
	return nil
}

// coalesceBatch folds entries of the same entity into the oldest one. The
// folded entry carries the newest payload and the combined operation; the
// ids of the others are returned as superseded.
func coalesceBatch(batch []models.QueueEntry) ([]models.QueueEntry, []string) {
	type entityKey struct {
		t  models.EntityType
		id string
	}

	groups := make(map[entityKey][]models.QueueEntry, len(batch))
	order := make([]entityKey, 0, len(batch))
	for _, entry := range batch {
		key := entityKey{t: entry.EntityType, id: entry.EntityID}
		if _, seen := groups[key]; !seen {
			order = append(order, key)
		}
		groups[key] = append(groups[key], entry)
	}

	kept := make([]models.QueueEntry, 0, len(order))
	var superseded []string
	for _, key := range order {
		group := groups[key]
		if len(group) == 1 {
			kept = append(kept, group[0])
			continue
		}

		slices.SortStableFunc(group, func(a, b models.QueueEntry) int {
			return cmp.Compare(a.EnqueuedAt, b.EnqueuedAt)
		})

		folded := group[0]
		for _, later := range group[1:] {
			folded.Operation = models.CoalesceOperations(folded.Operation, later.Operation)
			folded.Payload = later.Payload
			folded.EntityVersion = max(folded.EntityVersion, later.EntityVersion)
			folded.Priority = max(folded.Priority, later.Priority)
			superseded = append(superseded, later.ID)
		}
		kept = append(kept, folded)
	}
	return kept, superseded
}

// uploadEntry pushes one entry. The remote operation follows the current
// state of the entity rather than the queued operation, so an update of a
// record the remote side never acknowledged becomes a create.
func (o *syncOrchestrator) uploadEntry(ctx context.Context, c *cycle, entry models.QueueEntry) error {
	entity, err := o.storages.Records.Get(ctx, entry.EntityType, entry.EntityID)
	if errors.Is(err, store.ErrRecordNotFound) {
		if err = o.storages.Queue.MarkSucceeded(ctx, entry.ID); err != nil {
			return storageErr("drop orphan entry", err)
		}
		return nil
	}
	if err != nil {
		return storageErr("load entity", err)
	}
	if !entity.Dirty {
		if err = o.storages.Queue.MarkSucceeded(ctx, entry.ID); err != nil {
			return storageErr("drop settled entry", err)
		}
		return nil
	}

	op := operationFor(entity)
	var label string
	switch op {
	case models.OperationDelete:
		label, err = o.uploadDelete(ctx, c, entry, entity)
	case models.OperationCreate:
		label, err = o.uploadCreate(ctx, c, entry, entity)
	default:
		label, err = o.uploadUpdate(ctx, c, entry, entity)
	}

	switch classifyUpload(ctx, err) {
	case uploadDone:
	case uploadRejected:
		label = metrics.UploadRejected
	default:
		label = metrics.UploadTransient
	}
	o.metrics.ObserveUpload(string(op), label)
	return err
}

func (o *syncOrchestrator) uploadCreate(ctx context.Context, c *cycle, entry models.QueueEntry, entity models.Entity) (string, error) {
	fields, err := o.format.ToWire(ctx, entity.Type, entry.Payload, c.refs)
	if err != nil {
		return "", err
	}

	// The local id doubles as idempotency key, so a retried create after a
	// lost acknowledgement does not duplicate the record.
	ack, err := o.remote.CreateRecord(ctx, c.scope, entity.Type, entity.ID, fields)
	if err != nil {
		return "", err
	}

	err = o.inTx(ctx, "link created record", func(tx *store.ClientStorages) error {
		return o.acknowledge(ctx, tx, entry, entity.Type, entity.ID, ack.RemoteID, ack.Version)
	})
	return metrics.UploadAcked, err
}

// acknowledge links the entity to the acknowledged remote version and drops
// entry. An entity edited after entry was claimed stays dirty and is queued
// again so the edit reaches the remote side on the next drain.
func (o *syncOrchestrator) acknowledge(ctx context.Context, tx *store.ClientStorages, entry models.QueueEntry, t models.EntityType, id, remoteID string, remoteVersion int64) error {
	synced, err := tx.Records.MarkSynced(ctx, t, id, remoteID, remoteVersion, entry.EntityVersion)
	if err != nil {
		return err
	}
	if err = tx.Queue.MarkSucceeded(ctx, entry.ID); err != nil {
		return err
	}
	if !synced.Dirty {
		return nil
	}

	o.logger.Debug().
		Str("entity_type", t.String()).
		Str("entity_id", id).
		Int64("version", synced.Version).
		Int64("uploaded_version", entry.EntityVersion).
		Msg("entity changed during upload, queueing it again")
	return enqueueEntity(ctx, tx, o.format, synced, operationFor(synced))
}

func (o *syncOrchestrator) uploadUpdate(ctx context.Context, c *cycle, entry models.QueueEntry, entity models.Entity) (string, error) {
	fields, err := o.format.ToWire(ctx, entity.Type, entry.Payload, c.refs)
	if err != nil {
		return "", err
	}

	remoteID := entity.RemoteIDOrEmpty()
	res, err := o.remote.UpdateRecord(ctx, c.scope, entity.Type, remoteID, entity.RemoteVersion, fields)
	if err != nil {
		return "", err
	}

	switch res.Status {
	case models.UpdateConflict, models.UpdateNotFound:
		return metrics.UploadConflict, o.escalate(ctx, c, entry, entity, res)
	}

	err = o.inTx(ctx, "acknowledge update", func(tx *store.ClientStorages) error {
		return o.acknowledge(ctx, tx, entry, entity.Type, entity.ID, cmp.Or(res.Ack.RemoteID, remoteID), res.Ack.Version)
	})
	return metrics.UploadAcked, err
}

// escalate turns a refused update into a conflict record. The entry is
// dropped; resolution decides what is uploaded next. When the remote side
// already holds the same content the entity is simply linked to the newer
// remote version.
func (o *syncOrchestrator) escalate(ctx context.Context, c *cycle, entry models.QueueEntry, entity models.Entity, res models.UpdateResult) error {
	remote := models.Snapshot{RemoteID: entity.RemoteIDOrEmpty(), Version: entity.RemoteVersion}
	switch {
	case res.Status == models.UpdateNotFound:
		remote.Deleted = true
		remote.ModifiedAt = c.start
	case res.Current != nil:
		snap, err := o.format.Snapshot(ctx, entity.Type, *res.Current, c.refs)
		if err != nil {
			return err
		}
		remote = snap
	}

	conflictType := models.ConflictUpdateUpdate
	if remote.Complete() {
		comparison := o.format.Compare(entity, remote)
		if !comparison.Diverged {
			return o.inTx(ctx, "adopt remote version", func(tx *store.ClientStorages) error {
				return o.acknowledge(ctx, tx, entry, entity.Type, entity.ID, cmp.Or(remote.RemoteID, entity.RemoteIDOrEmpty()), remote.Version)
			})
		}
		conflictType = comparison.Type
	}

	var recorded models.Conflict
	err := o.inTx(ctx, "record upload conflict", func(tx *store.ClientStorages) error {
		var err error
		recorded, err = tx.Conflicts.Record(ctx, models.Conflict{
			EntityType:     entity.Type,
			EntityID:       entity.ID,
			ConflictType:   conflictType,
			LocalSnapshot:  entity.Snapshot(),
			RemoteSnapshot: remote,
		})
		if err != nil {
			return err
		}
		_, err = tx.Queue.DropForEntity(ctx, entity.Type, entity.ID)
		return err
	})
	if err != nil {
		return err
	}

	o.logger.Info().
		Str("conflict_id", recorded.ID).
		Str("entity_type", entity.Type.String()).
		Str("entity_id", entity.ID).
		Str("conflict_type", string(conflictType)).
		Msg("remote refused update, conflict recorded")
	return nil
}

// uploadDelete removes the record remotely. A record the remote side never
// saw is removed locally right away. A remote "not found" counts as done.
func (o *syncOrchestrator) uploadDelete(ctx context.Context, c *cycle, entry models.QueueEntry, entity models.Entity) (string, error) {
	if !entity.HasRemote() {
		err := o.inTx(ctx, "drop unsynced tombstone", func(tx *store.ClientStorages) error {
			if err := tx.Records.HardDelete(ctx, entity.Type, entity.ID); err != nil {
				return err
			}
			_, err := tx.Queue.DropForEntity(ctx, entity.Type, entity.ID)
			return err
		})
		return metrics.UploadAcked, err
	}

	remoteID := entity.RemoteIDOrEmpty()
	if _, err := o.remote.DeleteRecord(ctx, c.scope, entity.Type, remoteID); err != nil {
		return "", err
	}

	err := o.inTx(ctx, "acknowledge delete", func(tx *store.ClientStorages) error {
		if o.opts.TombstoneRetention <= 0 {
			if err := tx.Records.HardDelete(ctx, entity.Type, entity.ID); err != nil {
				return err
			}
			_, err := tx.Queue.DropForEntity(ctx, entity.Type, entity.ID)
			return err
		}
		return o.acknowledge(ctx, tx, entry, entity.Type, entity.ID, remoteID, entity.RemoteVersion)
	})
	return metrics.UploadAcked, err
}
