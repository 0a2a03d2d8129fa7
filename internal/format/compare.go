// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package format

import "github.com/MKhiriev/go-sync-keeper/models"

// Comparison describes how a local entity relates to an incoming remote
// snapshot of the same record.
type Comparison struct {
	// Diverged is false when both sides carry the same content.
	Diverged bool

	// Type classifies the divergence. Only meaningful when Diverged.
	Type models.ConflictType

	// ChangedFields lists payload keys whose values differ.
	ChangedFields []string

	// LocalNewer and Tie compare the local modification time with the
	// remote one.
	LocalNewer bool
	Tie        bool
}

// Compare classifies local against remote. Local-only fields are ignored.
func (a *Adapter) Compare(local models.Entity, remote models.Snapshot) Comparison {
	c := Comparison{
		LocalNewer: local.LastModified > remote.ModifiedAt,
		Tie:        local.LastModified == remote.ModifiedAt,
	}

	switch {
	case local.Deleted && remote.Deleted:
		return c
	case local.Deleted:
		c.Diverged = true
		c.Type = models.ConflictDeleteUpdate
		return c
	case remote.Deleted:
		c.Diverged = true
		c.Type = models.ConflictUpdateDelete
		return c
	}

	localPayload := a.stripLocalOnly(local.Type, local.Payload)
	remotePayload := a.stripLocalOnly(local.Type, remote.Payload)

	c.Type = models.ConflictUpdateUpdate
	c.ChangedFields = localPayload.DiffKeys(remotePayload)
	c.Diverged = len(c.ChangedFields) > 0
	return c
}
