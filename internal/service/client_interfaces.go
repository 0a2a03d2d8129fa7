// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import (
	"context"
	"time"

	"github.com/MKhiriev/go-sync-keeper/models"
)

// RecordService is the write path used by the UI layer. Every mutation is
// stored and queued for upload in one local transaction and never waits for
// the network.
type RecordService interface {
	// Create stores a new dirty record and queues its upload.
	Create(ctx context.Context, t models.EntityType, payload models.Payload) (models.Entity, error)

	// Update merges partial into a live record. Unknown or deleted ids
	// return store.ErrRecordNotFound.
	Update(ctx context.Context, t models.EntityType, id string, partial models.Payload) (models.Entity, error)

	// Delete soft-deletes a record. Deleting a tombstone is a no-op.
	Delete(ctx context.Context, t models.EntityType, id string) (models.Entity, error)

	Get(ctx context.Context, t models.EntityType, id string) (models.Entity, error)
	List(ctx context.Context, t models.EntityType) ([]models.Entity, error)
}

// ConflictService exposes the conflict store to users.
type ConflictService interface {
	List(ctx context.Context) ([]models.Conflict, error)
	Get(ctx context.Context, id string) (models.Conflict, error)

	// History lists every conflict of one entity, including resolved ones
	// together with their resolution and resolution time.
	History(ctx context.Context, t models.EntityType, entityID string) ([]models.Conflict, error)

	// Resolve applies the chosen side to the local record in one transaction
	// and marks the conflict resolved. merged is only used with
	// models.ResolutionMerged.
	Resolve(ctx context.Context, id string, resolution models.Resolution, merged models.Payload) (models.Conflict, error)
}

// QueueService exposes the change queue for inspection and manual retries.
type QueueService interface {
	List(ctx context.Context, statuses ...models.QueueStatus) ([]models.QueueEntry, error)
	ListFailed(ctx context.Context, limit int) ([]models.QueueEntry, error)
	Retry(ctx context.Context, id string) (models.QueueEntry, error)
}

// SyncOrchestrator runs sync cycles. At most one cycle runs at a time.
type SyncOrchestrator interface {
	// RunCycle performs upload, download and conflict resolution. It returns
	// ErrCycleInProgress immediately when another cycle is running.
	RunCycle(ctx context.Context, reason models.TriggerReason) error

	// Running reports whether a cycle is in progress.
	Running() bool

	// Phase returns the current state of the state machine.
	Phase() models.Phase

	// RefreshStatus recomputes the counters of the published status.
	RefreshStatus(ctx context.Context)

	// SetScope replaces the scope used by subsequent cycles.
	SetScope(scope models.Scope)
}

// SyncJob owns the orchestrator in a background goroutine and feeds it
// timer, reconnect and manual triggers.
type SyncJob interface {
	// Start launches the worker. Cycles run every interval while connected;
	// a non-positive interval defaults to 30 seconds. A running job is
	// stopped first.
	Start(ctx context.Context, interval time.Duration)

	// Stop cancels the worker and blocks until it has exited. A cycle in
	// progress finishes its current remote call first.
	Stop()

	// Trigger asks for a cycle. It never blocks and never queues a second
	// request behind a running cycle.
	Trigger(reason models.TriggerReason) models.TriggerResult
}
