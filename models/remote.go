// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package models

// WireFields is a record's field map in remote (snake_case) naming.
type WireFields map[string]any

// Scope identifies who is syncing and for which facility. It is passed to
// every remote call.
type Scope struct {
	FacilityID string `json:"facility_id"`
	UserID     string `json:"user_id"`
	Token      string `json:"-"`
}

// RemoteRecord is a record as returned by the remote service.
type RemoteRecord struct {
	RemoteID   string     `json:"remote_id"`
	Type       EntityType `json:"type"`
	Version    int64      `json:"version"`
	ModifiedAt int64      `json:"modified_at"`
	Deleted    bool       `json:"deleted"`
	Fields     WireFields `json:"fields,omitempty"`
}

// RemoteAck acknowledges a successful remote write.
type RemoteAck struct {
	RemoteID   string `json:"remote_id"`
	Version    int64  `json:"version"`
	ModifiedAt int64  `json:"modified_at"`
}

// UpdateStatus is the outcome of a conditional remote update.
type UpdateStatus int

const (
	UpdateOK UpdateStatus = iota
	UpdateConflict
	UpdateNotFound
)

// UpdateResult is returned by a remote update. Current is populated on
// UpdateConflict when the remote service returns its current record.
type UpdateResult struct {
	Status  UpdateStatus
	Ack     RemoteAck
	Current *RemoteRecord
}

// DeleteStatus is the outcome of a remote delete.
type DeleteStatus int

const (
	DeleteOK DeleteStatus = iota
	DeleteNotFound
)

// DeleteResult is returned by a remote delete.
type DeleteResult struct {
	Status DeleteStatus
}
