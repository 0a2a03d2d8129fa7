// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package adapter provides the remote API contract the sync engine talks to
// and its implementations.
//
// [RemoteAPI] decouples the orchestrator from the transport. The package
// ships an HTTP/REST implementation ([NewHTTPRemote]) and an in-memory one
// ([NewMemoryRemote]) used for tests and offline demos.
//
// Transport failures are reported through the sentinel errors in errors.go
// ([ErrTransient], [ErrRejected], [ErrUnauthorized]) so callers can use
// [errors.Is] regardless of the protocol. Conflicts and missing records are
// not errors: they come back as distinguished result statuses.
package adapter

import (
	"context"

	"github.com/MKhiriev/go-sync-keeper/models"
)

//go:generate mockgen -source=interfaces.go -destination=../mock/remote_api_mock.go -package=mock

// RemoteAPI is the system of record. Every call is scoped explicitly.
type RemoteAPI interface {
	// CreateRecord inserts a new record. clientID is the local entity id and
	// makes the call idempotent: repeating a create with the same clientID
	// returns the acknowledgement of the first one.
	CreateRecord(ctx context.Context, scope models.Scope, t models.EntityType, clientID string, fields models.WireFields) (models.RemoteAck, error)

	// UpdateRecord replaces the fields of remoteID if its current version is
	// still baseVersion. Otherwise it reports UpdateConflict together with
	// the current remote record when available.
	UpdateRecord(ctx context.Context, scope models.Scope, t models.EntityType, remoteID string, baseVersion int64, fields models.WireFields) (models.UpdateResult, error)

	// DeleteRecord removes remoteID. A record that is already gone is
	// reported as DeleteNotFound.
	DeleteRecord(ctx context.Context, scope models.Scope, t models.EntityType, remoteID string) (models.DeleteResult, error)

	// ListChangedSince returns records of type t modified at or after since
	// (milliseconds), remote tombstones included.
	ListChangedSince(ctx context.Context, scope models.Scope, t models.EntityType, since int64) ([]models.RemoteRecord, error)
}

// HealthChecker reports whether the remote service is reachable.
type HealthChecker interface {
	Ping(ctx context.Context) error
}
