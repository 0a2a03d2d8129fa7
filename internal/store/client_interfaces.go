// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package store

import (
	"context"

	"github.com/MKhiriev/go-sync-keeper/models"
)

// RecordRepository persists entities of every type. Read-modify-write
// sequences that span several calls must run inside ClientStorages.InTx.
type RecordRepository interface {
	Create(ctx context.Context, t models.EntityType, payload models.Payload) (models.Entity, error)
	Update(ctx context.Context, t models.EntityType, id string, partial models.Payload) (models.Entity, error)
	SoftDelete(ctx context.Context, t models.EntityType, id string) (models.Entity, error)
	HardDelete(ctx context.Context, t models.EntityType, id string) error

	Get(ctx context.Context, t models.EntityType, id string) (models.Entity, error)
	GetByRemoteID(ctx context.Context, t models.EntityType, remoteID string) (models.Entity, error)
	List(ctx context.Context, t models.EntityType) ([]models.Entity, error)
	FindDirty(ctx context.Context, t models.EntityType) ([]models.Entity, error)

	ApplyRemote(ctx context.Context, t models.EntityType, snap models.Snapshot) (models.Entity, error)
	ApplyRemoteTo(ctx context.Context, t models.EntityType, id string, snap models.Snapshot) (models.Entity, error)
	MarkSynced(ctx context.Context, t models.EntityType, id, remoteID string, remoteVersion, ackedVersion int64) (models.Entity, error)
	SetRemoteVersion(ctx context.Context, t models.EntityType, id string, remoteVersion int64) error
	Restore(ctx context.Context, t models.EntityType, id string, base models.Snapshot) (models.Entity, error)
	ReplacePayload(ctx context.Context, t models.EntityType, id string, payload models.Payload) (models.Entity, error)
	PurgeTombstones(ctx context.Context, t models.EntityType, before int64) (int64, error)
}

// QueueRepository is the durable change queue.
type QueueRepository interface {
	Enqueue(ctx context.Context, entry models.QueueEntry) (models.QueueEntry, error)
	DequeueBatch(ctx context.Context, limit int, enqueuedBefore, now int64) ([]models.QueueEntry, error)
	MarkSucceeded(ctx context.Context, ids ...string) error
	MarkFailed(ctx context.Context, id, cause string, permanent bool, maxRetries int, nextAttemptAt int64) (models.QueueEntry, error)
	RequeueInFlight(ctx context.Context) (int64, error)
	DropForEntity(ctx context.Context, t models.EntityType, entityID string) (int64, error)

	Get(ctx context.Context, id string) (models.QueueEntry, error)
	List(ctx context.Context, statuses ...models.QueueStatus) ([]models.QueueEntry, error)
	CountPending(ctx context.Context) (int64, error)
	CountFailed(ctx context.Context) (int64, error)
	ListFailed(ctx context.Context, limit int) ([]models.QueueEntry, error)
	Retry(ctx context.Context, id string) (models.QueueEntry, error)
}

// ConflictRepository is the conflict store.
type ConflictRepository interface {
	Record(ctx context.Context, c models.Conflict) (models.Conflict, error)
	Get(ctx context.Context, id string) (models.Conflict, error)
	GetUnresolvedForEntity(ctx context.Context, t models.EntityType, entityID string) (models.Conflict, error)
	ListUnresolved(ctx context.Context) ([]models.Conflict, error)
	ListForEntity(ctx context.Context, t models.EntityType, entityID string) ([]models.Conflict, error)
	CountUnresolved(ctx context.Context) (int64, error)
	MarkResolved(ctx context.Context, id string, resolution models.Resolution) (models.Conflict, error)
}

// CheckpointRepository stores the single sync checkpoint row.
type CheckpointRepository interface {
	Get(ctx context.Context) (models.Checkpoint, error)
	Save(ctx context.Context, lastSyncAt int64) error
}
