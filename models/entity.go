// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package models

// EntityType names a kind of locally stored record. Every entity type owns
// its own table in the local store and its own collection on the remote side.
type EntityType string

const (
	EntityReferenceData     EntityType = "reference_data"
	EntityPatient           EntityType = "patients"
	EntityImmunizationEvent EntityType = "immunization_events"
	EntityNotification      EntityType = "notifications"
)

// EntityTypes lists every supported entity type with parents before children.
var EntityTypes = []EntityType{
	EntityReferenceData,
	EntityPatient,
	EntityImmunizationEvent,
	EntityNotification,
}

// Valid reports whether t is one of the supported entity types.
func (t EntityType) Valid() bool {
	for _, known := range EntityTypes {
		if t == known {
			return true
		}
	}
	return false
}

func (t EntityType) String() string {
	return string(t)
}

// Entity is a single locally persisted record together with its sync
// bookkeeping.
type Entity struct {
	// ID is the locally generated identifier. It never changes.
	ID string `json:"id"`

	// Type is the kind of record.
	Type EntityType `json:"type"`

	// RemoteID is assigned by the remote service once the first create has
	// been acknowledged. Nil until then.
	RemoteID *string `json:"remote_id,omitempty"`

	// Version is the local edit counter. Incremented on every local write.
	Version int64 `json:"version"`

	// RemoteVersion is the last remote version this replica has observed.
	RemoteVersion int64 `json:"remote_version"`

	// LastModified is the local wall-clock time of the last write in
	// milliseconds since the Unix epoch.
	LastModified int64 `json:"last_modified"`

	// Dirty is set while the entity carries local changes not yet
	// acknowledged by the remote service.
	Dirty bool `json:"dirty"`

	// Deleted marks a tombstone. Tombstones are retained until the remote
	// delete is acknowledged.
	Deleted bool `json:"deleted"`

	// DeletedAt is the time the tombstone was created, in milliseconds.
	DeletedAt *int64 `json:"deleted_at,omitempty"`

	// Payload holds the domain fields in local (camelCase) naming.
	Payload Payload `json:"payload"`
}

// HasRemote reports whether the remote service has acknowledged a create
// for this entity.
func (e Entity) HasRemote() bool {
	return e.RemoteID != nil && *e.RemoteID != ""
}

// RemoteIDOrEmpty returns the remote identifier or an empty string.
func (e Entity) RemoteIDOrEmpty() string {
	if e.RemoteID == nil {
		return ""
	}
	return *e.RemoteID
}

// Snapshot captures the entity state as it is stored in conflict records.
func (e Entity) Snapshot() Snapshot {
	return Snapshot{
		RemoteID:   e.RemoteIDOrEmpty(),
		Version:    e.Version,
		ModifiedAt: e.LastModified,
		Deleted:    e.Deleted,
		Payload:    e.Payload.Clone(),
	}
}

// Snapshot is a point-in-time copy of one side of a record. It is used both
// for remote records being applied locally and for the two sides of a
// conflict. Payload is always in local naming.
type Snapshot struct {
	RemoteID   string  `json:"remote_id,omitempty"`
	Version    int64   `json:"version"`
	ModifiedAt int64   `json:"modified_at"`
	Deleted    bool    `json:"deleted"`
	Payload    Payload `json:"payload,omitempty"`
}

// Complete reports whether the snapshot carries enough state to overwrite a
// local record with it.
func (s Snapshot) Complete() bool {
	return s.Deleted || s.Payload != nil
}
