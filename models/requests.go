// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package models

// CreateRecordRequest asks to store a new record locally.
type CreateRecordRequest struct {
	Type    EntityType `json:"type"`
	Payload Payload    `json:"payload"`
}

// UpdateRecordRequest merges Payload into an existing record.
type UpdateRecordRequest struct {
	Type    EntityType `json:"type"`
	ID      string     `json:"id"`
	Payload Payload    `json:"payload"`
}

// DeleteRecordRequest soft-deletes a record.
type DeleteRecordRequest struct {
	Type EntityType `json:"type"`
	ID   string     `json:"id"`
}

// ResolveConflictRequest settles a conflict. MergedPayload is required for
// ResolutionMerged and ignored otherwise.
type ResolveConflictRequest struct {
	ConflictID    string     `json:"conflict_id"`
	Resolution    Resolution `json:"resolution"`
	MergedPayload Payload    `json:"merged_payload,omitempty"`
}
