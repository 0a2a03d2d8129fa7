// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import (
	"context"
	"fmt"

	"github.com/MKhiriev/go-sync-keeper/internal/format"
	"github.com/MKhiriev/go-sync-keeper/internal/store"
	"github.com/MKhiriev/go-sync-keeper/models"
)

// operationFor picks the remote write that brings the remote side in line
// with e.
func operationFor(e models.Entity) models.Operation {
	switch {
	case e.Deleted:
		return models.OperationDelete
	case !e.HasRemote():
		return models.OperationCreate
	default:
		return models.OperationUpdate
	}
}

// enqueueEntity queues the upload of e. Must run in the transaction that
// wrote e.
func enqueueEntity(ctx context.Context, tx *store.ClientStorages, f *format.Adapter, e models.Entity, op models.Operation) error {
	_, err := tx.Queue.Enqueue(ctx, models.QueueEntry{
		EntityType:    e.Type,
		EntityID:      e.ID,
		Operation:     op,
		Payload:       e.Payload,
		EntityVersion: e.Version,
		Priority:      f.Priority(e.Type, op),
	})
	return err
}

// decide maps a policy onto a resolution for a diverged pair. Manual
// leaves the conflict unresolved.
func decide(policy models.ConflictPolicy, local models.Entity, remote models.Snapshot) models.Resolution {
	switch policy {
	case models.PolicyLocalWins:
		return models.ResolutionKeepLocal
	case models.PolicyRemoteWins:
		return models.ResolutionKeepRemote
	case models.PolicyTimestamp:
		if remote.ModifiedAt > local.LastModified {
			return models.ResolutionKeepRemote
		}
		return models.ResolutionKeepLocal
	default:
		return models.ResolutionUnresolved
	}
}

// applyResolution writes the winning side of c into the record store and
// marks c resolved. Pending queue entries of the entity are replaced by a
// single entry matching the outcome. Must run inside tx.
func applyResolution(ctx context.Context, tx *store.ClientStorages, f *format.Adapter, c models.Conflict, resolution models.Resolution, merged models.Payload) (models.Conflict, error) {
	t, id := c.EntityType, c.EntityID

	local, err := tx.Records.Get(ctx, t, id)
	if err != nil {
		return models.Conflict{}, err
	}

	switch resolution {
	case models.ResolutionKeepLocal:
		restored, err := tx.Records.Restore(ctx, t, id, c.RemoteSnapshot)
		if err != nil {
			return models.Conflict{}, err
		}
		if err = requeue(ctx, tx, f, restored); err != nil {
			return models.Conflict{}, err
		}

	case models.ResolutionKeepRemote:
		snap := c.RemoteSnapshot
		if !snap.Complete() {
			return models.Conflict{}, fmt.Errorf("%w: conflict %s", ErrIncompleteSnapshot, c.ID)
		}
		snap.Payload = f.PreserveLocalOnly(t, local.Payload, snap.Payload)
		if _, err = tx.Records.ApplyRemoteTo(ctx, t, id, snap); err != nil {
			return models.Conflict{}, err
		}
		if _, err = tx.Queue.DropForEntity(ctx, t, id); err != nil {
			return models.Conflict{}, err
		}

	case models.ResolutionMerged:
		if _, err = tx.Records.Restore(ctx, t, id, c.RemoteSnapshot); err != nil {
			return models.Conflict{}, err
		}
		payload := f.PreserveLocalOnly(t, local.Payload, merged)
		replaced, err := tx.Records.ReplacePayload(ctx, t, id, payload)
		if err != nil {
			return models.Conflict{}, err
		}
		if err = requeue(ctx, tx, f, replaced); err != nil {
			return models.Conflict{}, err
		}

	default:
		return models.Conflict{}, fmt.Errorf("%w: resolution %q", ErrInvalidDataProvided, resolution)
	}

	return tx.Conflicts.MarkResolved(ctx, c.ID, resolution)
}

func requeue(ctx context.Context, tx *store.ClientStorages, f *format.Adapter, e models.Entity) error {
	if _, err := tx.Queue.DropForEntity(ctx, e.Type, e.ID); err != nil {
		return err
	}
	return enqueueEntity(ctx, tx, f, e, operationFor(e))
}
